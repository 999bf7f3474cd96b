package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/magabrotheeeer/ems-portal/internal/lib/sl"
)

// BackendFactory возвращает бэкенд, привязанный к сессии браузера sid.
type BackendFactory func(sid string) Backend

// Registry хранит резолверы сессий браузеров, по одному на sid.
type Registry struct {
	log     *slog.Logger
	factory BackendFactory
	opts    Options
	idleTTL time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	resolvers map[string]*Resolver
	closed    bool
}

// NewRegistry создаёт реестр. Резолверы, к которым не обращались дольше idleTTL,
// закрываются при очередном проходе Sweep.
func NewRegistry(log *slog.Logger, factory BackendFactory, opts Options, idleTTL time.Duration) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		log:       log,
		factory:   factory,
		opts:      opts,
		idleTTL:   idleTTL,
		ctx:       ctx,
		cancel:    cancel,
		resolvers: make(map[string]*Resolver),
	}
}

// Acquire возвращает запущенный резолвер сессии sid, создавая его при необходимости.
func (g *Registry) Acquire(sid string) (*Resolver, error) {
	const op = "session.Registry.Acquire"

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil, fmt.Errorf("%s: %w", op, ErrClosed)
	}

	if r, ok := g.resolvers[sid]; ok {
		select {
		case <-r.Done():
		default:
			r.touch()
			return r, nil
		}
	}

	r := NewResolver(g.log.With(sl.Session(sid)), g.factory(sid), g.opts)
	if err := r.Start(g.ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	g.resolvers[sid] = r
	return r, nil
}

// Release закрывает и удаляет резолвер сессии sid.
func (g *Registry) Release(sid string) {
	g.mu.Lock()
	r, ok := g.resolvers[sid]
	delete(g.resolvers, sid)
	g.mu.Unlock()
	if ok {
		r.Close()
	}
}

// Len возвращает число активных резолверов.
func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.resolvers)
}

// Sweep закрывает резолверы, простаивающие дольше idleTTL на момент now.
func (g *Registry) Sweep(now time.Time) int {
	var idle []*Resolver
	g.mu.Lock()
	for sid, r := range g.resolvers {
		if now.Sub(r.IdleSince()) > g.idleTTL {
			idle = append(idle, r)
			delete(g.resolvers, sid)
		}
	}
	g.mu.Unlock()

	for _, r := range idle {
		r.Close()
	}
	return len(idle)
}

// Janitor периодически вызывает Sweep, пока не завершится ctx.
func (g *Registry) Janitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := g.Sweep(now); n > 0 {
				g.log.Debug("idle session resolvers closed", slog.Int("count", n))
			}
		}
	}
}

// Close закрывает все резолверы. После Close Acquire возвращает ErrClosed.
func (g *Registry) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	resolvers := g.resolvers
	g.resolvers = make(map[string]*Resolver)
	g.mu.Unlock()

	for _, r := range resolvers {
		r.Close()
	}
	g.cancel()
}
