package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/service-marketplace/internal/client"
	"github.com/iliyamo/service-marketplace/internal/config"
	"github.com/iliyamo/service-marketplace/internal/handler"
	"github.com/iliyamo/service-marketplace/internal/model"
	"github.com/iliyamo/service-marketplace/internal/router"
	"github.com/iliyamo/service-marketplace/internal/service"
)

type messages struct {
	mu   sync.Mutex
	rows []model.Message
}

func (s *messages) Create(_ context.Context, m *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.CreatedAt = time.Now().UTC()
	s.rows = append(s.rows, *m)
	return nil
}

func (s *messages) CreateSeed(_ context.Context, m *model.Message) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.DemandID == m.DemandID && r.Seed {
			return false, nil
		}
	}
	m.Seed = true
	m.CreatedAt = time.Now().UTC()
	s.rows = append(s.rows, *m)
	return true, nil
}

func (s *messages) CountByDemand(_ context.Context, demandID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.rows {
		if r.DemandID == demandID {
			n++
		}
	}
	return n, nil
}

func (s *messages) ListByDemand(_ context.Context, demandID string, _ model.Page) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Message{}
	for _, r := range s.rows {
		if r.DemandID == demandID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *messages) MarkRead(_ context.Context, demandID, identityID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for i, r := range s.rows {
		if r.DemandID == demandID && r.ToIdentityID == identityID && !r.Read {
			s.rows[i].Read = true
			n++
		}
	}
	return n, nil
}

func (s *messages) Conversations(_ context.Context, identityID string) ([]model.ConversationSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byDemand := map[string]model.ConversationSummary{}
	for _, r := range s.rows {
		if r.FromIdentityID != identityID && r.ToIdentityID != identityID {
			continue
		}
		sum := byDemand[r.DemandID]
		sum.DemandID = r.DemandID
		sum.LastMessage = r
		sum.LastMessageAt = r.CreatedAt
		if r.ToIdentityID == identityID && !r.Read {
			sum.UnreadCount++
		}
		byDemand[r.DemandID] = sum
	}
	out := []model.ConversationSummary{}
	for _, sum := range byDemand {
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DemandID < out[j].DemandID })
	return out, nil
}

// newMessageServer wires the message routes to a live demand server so
// participant resolution goes through the HTTP client.
func newMessageServer(t *testing.T, demands *server) (*server, *messages) {
	t.Helper()
	upstream := httptest.NewServer(demands.e)
	t.Cleanup(upstream.Close)

	store := &messages{}
	svc := service.NewMessageService(store, client.NewDemandClient(upstream.URL, time.Second))
	e := router.NewServer("message", nil)
	router.RegisterMessage(e, handler.NewMessageHandler(svc), secret, config.IdempotencyConfig{}, nil)
	return &server{t: t, e: e}, store
}

func TestMessagingOverHTTP(t *testing.T) {
	demands := newDemandServer(t)
	msgs, store := newMessageServer(t, demands)
	asClient := bearer(t, "client-1", model.RoleClient)
	asProvider := bearer(t, "provider-1", model.RoleProvider)
	asOutsider := bearer(t, "client-9", model.RoleClient)
	demands.store.rows["d1"] = model.Demand{ID: "d1", ClientIdentityID: "client-1", ProviderIdentityID: "provider-1", ServiceID: "s1", Status: model.StatusPending, Version: 1}

	rec := msgs.call(http.MethodPost, "/messages", asClient, `{"demandId":"d1","content":"hello"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "DemandNotAccepted", errorCode(t, rec))

	demands.store.rows["d1"] = model.Demand{ID: "d1", ClientIdentityID: "client-1", ProviderIdentityID: "provider-1", ServiceID: "s1", Status: model.StatusAccepted, Version: 2}

	rec = msgs.call(http.MethodPost, "/messages/init", asProvider, `{"demandId":"d1","clientId":"client-1","content":"Thanks, let's talk"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = msgs.call(http.MethodPost, "/messages/init", asProvider, `{"demandId":"d1","clientId":"client-1"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = msgs.call(http.MethodPost, "/messages", asClient, `{"demandId":"d1","content":"when are you free?"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var m model.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	assert.Equal(t, "provider-1", m.ToIdentityID)

	rec = msgs.call(http.MethodPost, "/messages", asOutsider, `{"demandId":"d1","content":"hi"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "NotAParticipant", errorCode(t, rec))

	rec = msgs.call(http.MethodPost, "/messages", asClient, `{"demandId":"d1","to":"client-1","content":"me"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "SelfMessageNotAllowed", errorCode(t, rec))

	rec = msgs.call(http.MethodGet, "/messages/demand/d1", asClient, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var thread []model.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &thread))
	require.Len(t, thread, 2)
	assert.True(t, thread[0].Seed)
	assert.False(t, thread[0].Read)

	rec = msgs.call(http.MethodGet, "/messages/conversations", asProvider, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var convs []model.ConversationSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &convs))
	require.Len(t, convs, 1)
	assert.Equal(t, 1, convs[0].UnreadCount)

	rec = msgs.call(http.MethodPut, "/messages/demand/d1/read", asProvider, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"updated":1}`, rec.Body.String())
	assert.Len(t, store.rows, 2)
}
