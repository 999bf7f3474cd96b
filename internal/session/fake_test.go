package session

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/magabrotheeeer/ems-portal/internal/models"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeBackend struct {
	mu           sync.Mutex
	listener     func(*models.Principal)
	unsubscribed bool
	subscribeErr error

	session    func(ctx context.Context) (*models.Principal, error)
	profile    func(ctx context.Context, id string) (*models.Profile, error)
	signOutErr error

	sessionCalls atomic.Int32
	profileCalls atomic.Int32
	signOutCalls atomic.Int32
}

type fakeSubscription struct {
	b *fakeBackend
}

func (s fakeSubscription) Unsubscribe() {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	s.b.unsubscribed = true
	s.b.listener = nil
}

func (b *fakeBackend) GetCurrentSession(ctx context.Context) (*models.Principal, error) {
	b.sessionCalls.Add(1)
	if b.session == nil {
		return nil, nil
	}
	return b.session(ctx)
}

func (b *fakeBackend) OnSessionChange(fn func(*models.Principal)) (Subscription, error) {
	if b.subscribeErr != nil {
		return nil, b.subscribeErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listener = fn
	return fakeSubscription{b: b}, nil
}

func (b *fakeBackend) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	b.profileCalls.Add(1)
	if b.profile == nil {
		return nil, models.ErrNotFound
	}
	return b.profile(ctx, id)
}

func (b *fakeBackend) SignOut(context.Context) error {
	b.signOutCalls.Add(1)
	return b.signOutErr
}

// emit доставляет уведомление так же, как хаб: синхронно и по порядку.
func (b *fakeBackend) emit(p *models.Principal) {
	b.mu.Lock()
	fn := b.listener
	b.mu.Unlock()
	if fn != nil {
		fn(p)
	}
}

func (b *fakeBackend) isUnsubscribed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.unsubscribed
}

type fakeMetrics struct {
	stale       atomic.Int32
	transitions atomic.Int32
	mu          sync.Mutex
	fetches     map[string]int
}

func (m *fakeMetrics) Transition(Status) { m.transitions.Add(1) }
func (m *fakeMetrics) StaleResult()      { m.stale.Add(1) }

func (m *fakeMetrics) ProfileFetch(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetches == nil {
		m.fetches = make(map[string]int)
	}
	m.fetches[result]++
}

func (m *fakeMetrics) fetchCount(result string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetches[result]
}

func principal(id string) *models.Principal {
	return &models.Principal{ID: id, Email: id + "@example.com"}
}

func profileFor(id string) *models.Profile {
	return &models.Profile{
		ID:               id,
		Username:         "user-" + id,
		FirstName:        "Name-" + id,
		SubscriptionType: models.SubscriptionTrial,
		Role:             models.RoleStudent,
	}
}

// profilesByID отдаёт профиль с id принципала.
func profilesByID(_ context.Context, id string) (*models.Profile, error) {
	return profileFor(id), nil
}
