package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/iliyamo/service-marketplace/internal/model"
	"github.com/iliyamo/service-marketplace/internal/repository"
)

// In-memory stores with the same contract as the MySQL repositories:
// unique keys answer ErrDuplicate and conditional updates ErrConflict.

type memIdentities struct {
	mu   sync.Mutex
	rows map[string]model.Identity
}

func newMemIdentities() *memIdentities { return &memIdentities{rows: map[string]model.Identity{}} }

func (m *memIdentities) Create(_ context.Context, u *model.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.Email = repository.NormalizeEmail(u.Email)
	for _, r := range m.rows {
		if r.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	u.CreatedAt, u.UpdatedAt = time.Now(), time.Now()
	m.rows[u.ID] = *u
	return nil
}

func (m *memIdentities) GetByEmail(_ context.Context, email string) (model.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.Email == repository.NormalizeEmail(email) {
			return r, nil
		}
	}
	return model.Identity{}, repository.ErrNotFound
}

func (m *memIdentities) GetByID(_ context.Context, id string) (model.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rows[id]; ok {
		return r, nil
	}
	return model.Identity{}, repository.ErrNotFound
}

func (m *memIdentities) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

type memCatalog struct {
	mu         sync.Mutex
	categories map[string]model.Category
	services   map[string]model.Service
}

func newMemCatalog() *memCatalog {
	return &memCatalog{categories: map[string]model.Category{}, services: map[string]model.Service{}}
}

func (m *memCatalog) CreateCategory(_ context.Context, c *model.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.categories {
		if r.Name == c.Name {
			return repository.ErrDuplicate
		}
	}
	c.CreatedAt = time.Now()
	m.categories[c.ID] = *c
	return nil
}

func (m *memCatalog) ListCategories(context.Context) ([]model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Category{}
	for _, c := range m.categories {
		out = append(out, c)
	}
	return out, nil
}

func (m *memCatalog) GetCategory(_ context.Context, id string) (model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.categories[id]; ok {
		return c, nil
	}
	return model.Category{}, repository.ErrNotFound
}

func (m *memCatalog) CreateService(_ context.Context, s *model.Service) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.CreatedAt = time.Now()
	m.services[s.ID] = *s
	return nil
}

func (m *memCatalog) ListServices(_ context.Context, categoryID string) ([]model.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Service{}
	for _, s := range m.services {
		if categoryID == "" || s.CategoryID == categoryID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memCatalog) GetServiceDetail(_ context.Context, id string) (model.ServiceDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.services[id]
	if !ok {
		return model.ServiceDetail{}, repository.ErrNotFound
	}
	return model.ServiceDetail{Service: s, Category: m.categories[s.CategoryID]}, nil
}

type memProfiles struct {
	mu   sync.Mutex
	rows map[string]model.ProviderProfile
	// failCreate makes Create fail, to exercise saga compensation.
	failCreate error
}

func newMemProfiles() *memProfiles { return &memProfiles{rows: map[string]model.ProviderProfile{}} }

func (m *memProfiles) Create(_ context.Context, p *model.ProviderProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate != nil {
		return m.failCreate
	}
	for _, r := range m.rows {
		if r.IdentityID == p.IdentityID {
			return repository.ErrDuplicate
		}
	}
	p.CreatedAt, p.UpdatedAt = time.Now(), time.Now()
	m.rows[p.ID] = *p
	return nil
}

func (m *memProfiles) GetByID(_ context.Context, id string) (model.ProviderProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.rows[id]; ok {
		return p, nil
	}
	return model.ProviderProfile{}, repository.ErrNotFound
}

func (m *memProfiles) GetByIdentity(_ context.Context, identityID string) (model.ProviderProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.rows {
		if p.IdentityID == identityID {
			return p, nil
		}
	}
	return model.ProviderProfile{}, repository.ErrNotFound
}

func (m *memProfiles) List(_ context.Context, f model.ProviderFilter) ([]model.ProviderProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.ProviderProfile{}
	for _, p := range m.rows {
		if (f.ServiceID == "" || p.ServiceID == f.ServiceID) && (f.CategoryID == "" || p.CategoryID == f.CategoryID) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memProfiles) SetVerified(_ context.Context, id string, verified bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Verified = verified
	m.rows[id] = p
	return nil
}

func (m *memProfiles) SetAvailability(_ context.Context, identityID string, available bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, p := range m.rows {
		if p.IdentityID == identityID {
			p.Available = available
			m.rows[id] = p
			return nil
		}
	}
	return repository.ErrNotFound
}

type memDemands struct {
	mu   sync.Mutex
	rows map[string]model.Demand
}

func newMemDemands() *memDemands { return &memDemands{rows: map[string]model.Demand{}} }

func (m *memDemands) Create(_ context.Context, d *model.Demand) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.CreatedAt, d.UpdatedAt, d.Version = time.Now(), time.Now(), 1
	m.rows[d.ID] = *d
	return nil
}

func (m *memDemands) GetByID(_ context.Context, id string) (model.Demand, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.rows[id]
	if !ok {
		return model.Demand{}, repository.ErrNotFound
	}
	if d.Location != nil {
		loc := *d.Location
		d.Location = &loc
	}
	return d, nil
}

func (m *memDemands) ListByParticipant(_ context.Context, identityID string, page model.Page) ([]model.Demand, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Demand{}
	for _, d := range m.rows {
		if d.IsParticipant(identityID) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if page.Offset >= len(out) {
		return []model.Demand{}, nil
	}
	out = out[page.Offset:]
	if len(out) > page.Limit {
		out = out[:page.Limit]
	}
	return out, nil
}

func (m *memDemands) UpdateStatus(_ context.Context, id string, from, to model.DemandStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.rows[id]
	if !ok || d.Status != from {
		return repository.ErrConflict
	}
	d.Status = to
	d.Version++
	d.UpdatedAt = time.Now()
	m.rows[id] = d
	return nil
}

func (m *memDemands) SaveLocation(_ context.Context, id string, version int, loc model.Location, appointment *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.rows[id]
	if !ok || d.Version != version || d.Status != model.StatusAccepted {
		return repository.ErrConflict
	}
	d.Location = &loc
	if appointment != nil {
		d.AppointmentDate = appointment
	}
	d.Version++
	m.rows[id] = d
	return nil
}

type memMessages struct {
	mu   sync.Mutex
	rows []model.Message
}

func (m *memMessages) Create(_ context.Context, msg *model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.CreatedAt = time.Now()
	m.rows = append(m.rows, *msg)
	return nil
}

func (m *memMessages) CreateSeed(_ context.Context, msg *model.Message) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.Seed && r.DemandID == msg.DemandID {
			return false, nil
		}
	}
	msg.Seed = true
	msg.CreatedAt = time.Now()
	m.rows = append(m.rows, *msg)
	return true, nil
}

func (m *memMessages) CountByDemand(_ context.Context, demandID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.rows {
		if r.DemandID == demandID {
			n++
		}
	}
	return n, nil
}

func (m *memMessages) ListByDemand(_ context.Context, demandID string, page model.Page) ([]model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Message{}
	for _, r := range m.rows {
		if r.DemandID == demandID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memMessages) MarkRead(_ context.Context, demandID, identityID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i, r := range m.rows {
		if r.DemandID == demandID && r.ToIdentityID == identityID && !r.Read {
			m.rows[i].Read = true
			n++
		}
	}
	return n, nil
}

func (m *memMessages) Conversations(_ context.Context, identityID string) ([]model.ConversationSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byDemand := map[string]*model.ConversationSummary{}
	var order []string
	for _, r := range m.rows {
		if r.FromIdentityID != identityID && r.ToIdentityID != identityID {
			continue
		}
		s, ok := byDemand[r.DemandID]
		if !ok {
			s = &model.ConversationSummary{DemandID: r.DemandID}
			byDemand[r.DemandID] = s
		} else {
			order = remove(order, r.DemandID)
		}
		order = append(order, r.DemandID)
		s.LastMessage, s.LastMessageAt = r, r.CreatedAt
		s.Counterpart = r.FromIdentityID
		if r.FromIdentityID == identityID {
			s.Counterpart = r.ToIdentityID
		}
		if r.ToIdentityID == identityID && !r.Read {
			s.UnreadCount++
		}
	}
	out := []model.ConversationSummary{}
	for i := len(order) - 1; i >= 0; i-- {
		out = append(out, *byDemand[order[i]])
	}
	return out, nil
}

func remove(s []string, v string) []string {
	out := s[:0]
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

// mockCatalog and mockRegistry stand in for peer clients.

type mockCatalog struct{ mock.Mock }

func (m *mockCatalog) GetService(ctx context.Context, id string) (model.ServiceDetail, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.ServiceDetail), args.Error(1)
}

type mockRegistry struct{ mock.Mock }

func (m *mockRegistry) CreateProfile(ctx context.Context, credential string, in model.ProfileInput) (model.ProviderProfile, error) {
	args := m.Called(ctx, credential, in)
	return args.Get(0).(model.ProviderProfile), args.Error(1)
}

func (m *mockRegistry) GetProfile(ctx context.Context, id string) (model.ProviderProfile, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.ProviderProfile), args.Error(1)
}

func (m *mockRegistry) ListByService(ctx context.Context, id string) ([]model.ProviderProfile, error) {
	args := m.Called(ctx, id)
	return args.Get(0).([]model.ProviderProfile), args.Error(1)
}

type mockSeeder struct{ mock.Mock }

func (m *mockSeeder) SeedConversation(ctx context.Context, caller model.Caller, d model.Demand, text string) error {
	return m.Called(ctx, caller, d, text).Error(0)
}
