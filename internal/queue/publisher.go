package queue

import (
    "context"
    "encoding/json"
    "log/slog"
    "sync"
    "time"

    "github.com/juju/errors"
    amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher publishes demand events to RabbitMQ.  The connection is dialled
// lazily and re-dialled after a failure, so a broker outage only costs the
// events published while it lasts.  Messages are marked persistent.
type Publisher struct {
    url string

    mu   sync.Mutex
    conn *amqp.Connection
}

// NewPublisher returns a publisher for the broker at url.  No connection
// is made until the first Publish.
func NewPublisher(url string) *Publisher { return &Publisher{url: url} }

// PublishDemandAccepted publishes ev to the demand.accepted queue.  Errors
// are returned so the caller can log them; the queue is declared on every
// call, which is idempotent.
func (p *Publisher) PublishDemandAccepted(ctx context.Context, ev DemandAcceptedEvent) error {
    body, err := json.Marshal(ev)
    if err != nil {
        return errors.Annotate(err, "marshal event")
    }
    ch, err := p.channel()
    if err != nil {
        return errors.Trace(err)
    }
    defer func() { _ = ch.Close() }()

    // Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(DemandAcceptedQueue, true, false, false, false, nil); err != nil {
        p.reset()
        return errors.Annotate(err, "queue declare")
    }
    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        MessageId:    ev.DemandID,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    // Default exchange, routing key = queue name.
    if err := ch.PublishWithContext(ctx, "", DemandAcceptedQueue, false, false, pub); err != nil {
        p.reset()
        return errors.Annotate(err, "publish")
    }
    return nil
}

// Close closes the underlying connection, if any.
func (p *Publisher) Close() error {
    p.mu.Lock()
    defer p.mu.Unlock()
    if p.conn == nil {
        return nil
    }
    err := p.conn.Close()
    p.conn = nil
    return err
}

func (p *Publisher) channel() (*amqp.Channel, error) {
    p.mu.Lock()
    defer p.mu.Unlock()
    if p.conn == nil || p.conn.IsClosed() {
        conn, err := amqp.Dial(p.url)
        if err != nil {
            return nil, errors.Annotate(err, "rabbitmq dial")
        }
        p.conn = conn
    }
    ch, err := p.conn.Channel()
    if err != nil {
        _ = p.conn.Close()
        p.conn = nil
        return nil, errors.Annotate(err, "rabbitmq channel")
    }
    return ch, nil
}

func (p *Publisher) reset() {
    p.mu.Lock()
    defer p.mu.Unlock()
    if p.conn != nil {
        if err := p.conn.Close(); err != nil {
            slog.Debug("rabbitmq: close after failure", "error", err)
        }
        p.conn = nil
    }
}
