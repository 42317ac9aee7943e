package queue

import (
    "context"
    "encoding/json"
    "log/slog"
    "time"

    "github.com/juju/errors"
    amqp "github.com/rabbitmq/amqp091-go"
)

// DemandAcceptedHandler processes one event.  Returning an error rejects
// the delivery without requeueing it.
type DemandAcceptedHandler func(ctx context.Context, ev DemandAcceptedEvent) error

// ConsumeDemandAccepted connects to RabbitMQ, declares the demand.accepted
// queue (durable) and hands every delivery to handle.  It runs a reconnect
// loop with exponential backoff and only returns when ctx is cancelled.
// Deliveries are acknowledged after handle returns, so an event can be
// delivered more than once; handle must be idempotent.
func ConsumeDemandAccepted(ctx context.Context, url string, handle DemandAcceptedHandler) error {
    backoff := time.Second
    for {
        if ctx.Err() != nil {
            return ctx.Err()
        }
        conn, err := amqp.Dial(url)
        if err != nil {
            slog.Warn("demand-consumer: failed to dial broker", "error", err, "retry_in", backoff)
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = consumeLoop(ctx, conn, handle)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        slog.Warn("demand-consumer: consume loop ended, reconnecting", "error", err)
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, handle DemandAcceptedHandler) error {
    ch, err := conn.Channel()
    if err != nil {
        return errors.Annotate(err, "channel open")
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        slog.Warn("demand-consumer: set QoS failed", "error", err)
    }
    if _, err := ch.QueueDeclare(DemandAcceptedQueue, true, false, false, false, nil); err != nil {
        return errors.Annotate(err, "queue declare")
    }
    msgs, err := ch.Consume(DemandAcceptedQueue, "", false, false, false, false, nil)
    if err != nil {
        return errors.Annotate(err, "queue consume")
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := HandleDelivery(ctx, d.Body, handle); err != nil {
                slog.Error("demand-consumer: handle message failed", "error", err, "message_id", d.MessageId)
                // Reject without requeue to avoid tight redelivery loops.
                _ = d.Nack(false, false)
                continue
            }
            _ = d.Ack(false)
        }
    }
}

// HandleDelivery decodes one delivery body and passes it to handle.
func HandleDelivery(ctx context.Context, body []byte, handle DemandAcceptedHandler) error {
    var ev DemandAcceptedEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return errors.Annotate(err, "unmarshal")
    }
    if ev.DemandID == "" || ev.ClientIdentityID == "" || ev.ProviderIdentityID == "" {
        return errors.NotValidf("event without demand or participants")
    }
    return handle(ctx, ev)
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
