package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/service-marketplace/internal/apperr"
	"github.com/iliyamo/service-marketplace/internal/model"
	"github.com/iliyamo/service-marketplace/internal/queue"
)

// fakeDemands answers like the demand service: 404 for unknown demands,
// 403 for callers that are not participants.
type fakeDemands struct {
	mu      sync.Mutex
	demands map[string]model.Demand
	callers map[string]string // credential -> identity id
	down    bool
}

func (f *fakeDemands) Get(_ context.Context, credential, id string) (model.Demand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return model.Demand{}, apperr.Upstream("demand", fmt.Errorf("connection refused"))
	}
	d, ok := f.demands[id]
	if !ok {
		return model.Demand{}, apperr.NotFound("demand %s not found", id)
	}
	if !d.IsParticipant(f.callers[credential]) {
		return model.Demand{}, apperr.Authorization(apperr.CodeNotAParticipant, "not a participant")
	}
	return d, nil
}

func newMessageFixture(status model.DemandStatus) (*MessageService, *memMessages, *fakeDemands) {
	store := &memMessages{}
	demands := &fakeDemands{
		demands: map[string]model.Demand{
			"d1": {ID: "d1", ClientIdentityID: alice.ID, ProviderIdentityID: bob.ID, Status: status},
		},
		callers: map[string]string{alice.Credential: alice.ID, bob.Credential: bob.ID, carol.Credential: carol.ID},
	}
	return NewMessageService(store, demands), store, demands
}

func TestSendBetweenParticipants(t *testing.T) {
	svc, _, _ := newMessageFixture(model.StatusAccepted)
	ctx := context.Background()

	m, err := svc.Send(ctx, alice, SendInput{DemandID: "d1", Content: "  hello  "})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, m.FromIdentityID)
	assert.Equal(t, bob.ID, m.ToIdentityID)
	assert.Equal(t, "hello", m.Content)

	m, err = svc.Send(ctx, bob, SendInput{DemandID: "d1", To: alice.ID, Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, m.ToIdentityID)
}

func TestSendRejections(t *testing.T) {
	svc, store, _ := newMessageFixture(model.StatusAccepted)
	ctx := context.Background()

	tests := map[string]struct {
		caller model.Caller
		in     SendInput
		code   string
	}{
		"self":           {alice, SendInput{DemandID: "d1", To: alice.ID, Content: "x"}, apperr.CodeSelfMessage},
		"third party":    {carol, SendInput{DemandID: "d1", Content: "x"}, apperr.CodeNotAParticipant},
		"wrong to":       {alice, SendInput{DemandID: "d1", To: carol.ID, Content: "x"}, apperr.CodeNotAParticipant},
		"empty":          {alice, SendInput{DemandID: "d1", Content: "   "}, apperr.CodeValidation},
		"too long":       {alice, SendInput{DemandID: "d1", Content: strings.Repeat("é", model.MaxMessageLength+1)}, apperr.CodeValidation},
		"missing demand": {alice, SendInput{Content: "x"}, apperr.CodeValidation},
		"unknown demand": {alice, SendInput{DemandID: "nope", Content: "x"}, apperr.CodeNotFound},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Send(ctx, tt.caller, tt.in)
			assert.True(t, apperr.Is(err, tt.code), "got %v", err)
		})
	}
	assert.Empty(t, store.rows)
}

func TestSendRequiresAcceptedDemand(t *testing.T) {
	for status, code := range map[model.DemandStatus]string{
		model.StatusPending:   apperr.CodeDemandNotAccepted,
		model.StatusRejected:  apperr.CodeConversationClosed,
		model.StatusCancelled: apperr.CodeConversationClosed,
	} {
		svc, _, _ := newMessageFixture(status)
		_, err := svc.Send(context.Background(), alice, SendInput{DemandID: "d1", Content: "x"})
		assert.True(t, apperr.Is(err, code), "%s: got %v", status, err)
	}
	svc, _, _ := newMessageFixture(model.StatusCompleted)
	_, err := svc.Send(context.Background(), alice, SendInput{DemandID: "d1", Content: "thanks"})
	assert.NoError(t, err)
}

func TestSendFailsClosedWhenDemandServiceIsDown(t *testing.T) {
	svc, store, demands := newMessageFixture(model.StatusAccepted)
	demands.down = true
	_, err := svc.Send(context.Background(), alice, SendInput{DemandID: "d1", Content: "x"})
	assert.True(t, errors.Is(err, apperr.UpstreamUnavailable))
	assert.Empty(t, store.rows)
}

func TestListByDemandMarksRead(t *testing.T) {
	svc, _, _ := newMessageFixture(model.StatusAccepted)
	ctx := context.Background()
	_, err := svc.Send(ctx, alice, SendInput{DemandID: "d1", Content: "one"})
	require.NoError(t, err)
	_, err = svc.Send(ctx, bob, SendInput{DemandID: "d1", Content: "two"})
	require.NoError(t, err)

	convs, err := svc.Conversations(ctx, bob)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, 1, convs[0].UnreadCount)
	assert.Equal(t, "two", convs[0].LastMessage.Content)
	assert.Equal(t, alice.ID, convs[0].Counterpart)

	msgs, err := svc.ListByDemand(ctx, bob, "d1", model.Page{})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "one", msgs[0].Content)
	assert.Equal(t, "two", msgs[1].Content)

	convs, err = svc.Conversations(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, 0, convs[0].UnreadCount)

	// Alice's own unread message is untouched by Bob's read.
	convs, err = svc.Conversations(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 1, convs[0].UnreadCount)

	_, err = svc.ListByDemand(ctx, carol, "d1", model.Page{})
	assert.True(t, apperr.Is(err, apperr.CodeNotAParticipant))
}

func TestInitConversationIsIdempotent(t *testing.T) {
	svc, store, _ := newMessageFixture(model.StatusAccepted)
	ctx := context.Background()

	first, err := svc.InitConversation(ctx, bob, "d1", alice.ID, "welcome")
	require.NoError(t, err)
	second, err := svc.InitConversation(ctx, bob, "d1", alice.ID, "welcome again")
	require.NoError(t, err)

	require.Len(t, first, 1)
	assert.Equal(t, first, second)
	assert.True(t, first[0].Seed)
	assert.Equal(t, bob.ID, first[0].FromIdentityID)
	assert.Len(t, store.rows, 1)

	// The event path shares the same de-duplication.
	require.NoError(t, svc.SeedFromEvent(ctx, queue.DemandAcceptedEvent{DemandID: "d1", ClientIdentityID: alice.ID, ProviderIdentityID: bob.ID}))
	assert.Len(t, store.rows, 1)
}

func TestConcurrentSeedingStoresOneMessage(t *testing.T) {
	svc, store, _ := newMessageFixture(model.StatusAccepted)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = svc.SeedFromEvent(context.Background(), queue.DemandAcceptedEvent{DemandID: "d1", ClientIdentityID: alice.ID, ProviderIdentityID: bob.ID})
		}()
	}
	wg.Wait()
	n, err := store.CountByDemand(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestInitConversationOnlyByProvider(t *testing.T) {
	svc, _, _ := newMessageFixture(model.StatusAccepted)
	_, err := svc.InitConversation(context.Background(), alice, "d1", alice.ID, "hi")
	assert.True(t, apperr.Is(err, apperr.CodeNotAuthorized))

	_, err = svc.InitConversation(context.Background(), bob, "d1", carol.ID, "hi")
	assert.True(t, apperr.Is(err, apperr.CodeNotAParticipant))
}
