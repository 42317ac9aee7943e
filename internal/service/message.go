package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/juju/errors"

	"github.com/iliyamo/service-marketplace/internal/apperr"
	"github.com/iliyamo/service-marketplace/internal/model"
	"github.com/iliyamo/service-marketplace/internal/queue"
)

// MessageService owns demand threads.  Participants are never stored
// here on their own; every write resolves the demand from the demand
// service first.
type MessageService struct {
	store   MessageStore
	demands DemandResolver
}

func NewMessageService(store MessageStore, demands DemandResolver) *MessageService {
	return &MessageService{store: store, demands: demands}
}

// SendInput is a message submitted by a participant.  To is optional; when
// set it must name the other participant.
type SendInput struct {
	DemandID string
	To       string
	Content  string
}

// Send stores a message from the caller to the other participant of the
// demand.
func (s *MessageService) Send(ctx context.Context, caller model.Caller, in SendInput) (model.Message, error) {
	content, err := checkContent(in.Content)
	if err != nil {
		return model.Message{}, err
	}
	if in.DemandID == "" {
		return model.Message{}, apperr.Validation(apperr.CodeValidation, "demandId is required")
	}
	if in.To != "" && in.To == caller.ID {
		return model.Message{}, apperr.Validation(apperr.CodeSelfMessage, "cannot send a message to yourself")
	}
	d, err := s.resolve(ctx, caller, in.DemandID)
	if err != nil {
		return model.Message{}, err
	}
	to := d.Counterpart(caller.ID)
	if to == "" || (in.To != "" && in.To != to) {
		return model.Message{}, apperr.Authorization(apperr.CodeNotAParticipant, "sender and recipient must be the participants of demand %s", d.ID)
	}
	if to == caller.ID {
		return model.Message{}, apperr.Validation(apperr.CodeSelfMessage, "cannot send a message to yourself")
	}
	if err := requireOpen(d); err != nil {
		return model.Message{}, err
	}
	m := model.Message{
		ID:             uuid.NewString(),
		DemandID:       d.ID,
		FromIdentityID: caller.ID,
		ToIdentityID:   to,
		Content:        content,
	}
	if err := s.store.Create(ctx, &m); err != nil {
		return model.Message{}, apperr.Internal(err)
	}
	return m, nil
}

// ListByDemand returns a thread oldest first, then marks the messages
// addressed to the caller as read.  The returned messages show their read
// state from before the call.
func (s *MessageService) ListByDemand(ctx context.Context, caller model.Caller, demandID string, page model.Page) ([]model.Message, error) {
	if _, err := s.resolve(ctx, caller, demandID); err != nil {
		return nil, err
	}
	out, err := s.store.ListByDemand(ctx, demandID, page.Normalize())
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if _, err := s.store.MarkRead(ctx, demandID, caller.ID); err != nil {
		slog.Warn("mark messages read failed", "demand_id", demandID, "identity_id", caller.ID, "error", err)
	}
	return out, nil
}

// MarkRead flags the caller's unread messages of a thread as read and
// returns how many changed.
func (s *MessageService) MarkRead(ctx context.Context, caller model.Caller, demandID string) (int64, error) {
	if _, err := s.resolve(ctx, caller, demandID); err != nil {
		return 0, err
	}
	n, err := s.store.MarkRead(ctx, demandID, caller.ID)
	if err != nil {
		return 0, apperr.Internal(err)
	}
	return n, nil
}

// Conversations lists the caller's threads, newest activity first.  It
// only reads this service's own store.
func (s *MessageService) Conversations(ctx context.Context, caller model.Caller) ([]model.ConversationSummary, error) {
	out, err := s.store.Conversations(ctx, caller.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

// InitConversation seeds the thread of a demand on behalf of its provider.
// It is idempotent: when the thread already has messages they are returned
// unchanged.
func (s *MessageService) InitConversation(ctx context.Context, caller model.Caller, demandID, clientID, text string) ([]model.Message, error) {
	d, err := s.resolve(ctx, caller, demandID)
	if err != nil {
		return nil, err
	}
	if !caller.Is(d.ProviderIdentityID) {
		return nil, apperr.Authorization(apperr.CodeNotAuthorized, "only the provider of demand %s may open its conversation", demandID)
	}
	if clientID != "" && clientID != d.ClientIdentityID {
		return nil, apperr.Authorization(apperr.CodeNotAParticipant, "%s is not the client of demand %s", clientID, demandID)
	}
	if err := requireOpen(d); err != nil {
		return nil, err
	}
	if err := s.seed(ctx, d.ID, d.ProviderIdentityID, d.ClientIdentityID, text); err != nil {
		return nil, err
	}
	return s.thread(ctx, d.ID)
}

// SeedFromEvent handles a demand.accepted event.  The event comes from
// the demand service itself, so the participants it names are trusted.
func (s *MessageService) SeedFromEvent(ctx context.Context, ev queue.DemandAcceptedEvent) error {
	return s.seed(ctx, ev.DemandID, ev.ProviderIdentityID, ev.ClientIdentityID, ev.SeedText)
}

func (s *MessageService) seed(ctx context.Context, demandID, from, to, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		text = DefaultSeedText
	}
	if n, err := s.store.CountByDemand(ctx, demandID); err != nil {
		return apperr.Internal(err)
	} else if n > 0 {
		return nil
	}
	m := model.Message{
		ID:             uuid.NewString(),
		DemandID:       demandID,
		FromIdentityID: from,
		ToIdentityID:   to,
		Content:        truncate(text, model.MaxMessageLength),
	}
	created, err := s.store.CreateSeed(ctx, &m)
	if err != nil {
		return apperr.Internal(err)
	}
	if created {
		slog.Info("conversation seeded", "demand_id", demandID)
	}
	return nil
}

func (s *MessageService) thread(ctx context.Context, demandID string) ([]model.Message, error) {
	out, err := s.store.ListByDemand(ctx, demandID, model.Page{Limit: model.MaxPageLimit})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

// resolve fetches the demand with the caller's credential.  The demand
// service answers 403 to non-participants; that answer and a missing
// demand are final.  This check gates every write, so an unreachable
// demand service fails the request.
func (s *MessageService) resolve(ctx context.Context, caller model.Caller, demandID string) (model.Demand, error) {
	d, err := s.demands.Get(ctx, caller.Credential, demandID)
	switch {
	case err == nil:
	case errors.Is(err, errors.Forbidden):
		return model.Demand{}, apperr.Authorization(apperr.CodeNotAParticipant, "not a participant of demand %s", demandID)
	case errors.Is(err, errors.NotFound):
		return model.Demand{}, apperr.NotFound("demand %s not found", demandID)
	default:
		slog.Warn("demand resolution failed", "call_site", MessageDemandResolution.Name, "demand_id", demandID, "error", err)
		return model.Demand{}, err
	}
	if !d.IsParticipant(caller.ID) {
		return model.Demand{}, apperr.Authorization(apperr.CodeNotAParticipant, "not a participant of demand %s", demandID)
	}
	return d, nil
}

func requireOpen(d model.Demand) error {
	if d.Status.AllowsMessaging() {
		return nil
	}
	if d.Status == model.StatusPending {
		return apperr.Validation(apperr.CodeDemandNotAccepted, "messaging opens once the demand is accepted")
	}
	return apperr.Validation(apperr.CodeConversationClosed, "the demand is %s", d.Status)
}

func checkContent(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", apperr.Validation(apperr.CodeValidation, "content is required")
	}
	if len([]rune(s)) > model.MaxMessageLength {
		return "", apperr.Validation(apperr.CodeValidation, "content exceeds %d characters", model.MaxMessageLength)
	}
	return s, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
