package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/magabrotheeeer/ems-portal/internal/lib/sl"
	"github.com/magabrotheeeer/ems-portal/internal/models"
)

var (
	// ErrClosed — резолвер закрыт.
	ErrClosed = errors.New("session resolver closed")
	// ErrAlreadyStarted — повторный вызов Start.
	ErrAlreadyStarted = errors.New("session resolver already started")

	errStaleResult = errors.New("stale result")
)

const (
	fetchOK        = "ok"
	fetchNotFound  = "not_found"
	fetchError     = "error"
	fetchCancelled = "cancelled"
)

type principalEvent struct {
	principal *models.Principal
}

type lookupEvent struct {
	principal *models.Principal
	err       error
}

type fetchEvent struct {
	gen       uint64
	principal *models.Principal
	profile   *models.Profile
	err       error
}

type retryEvent struct {
	handled chan struct{}
}

// Resolver держит состояние одной сессии браузера.
// Читать состояние можно из любых горутин, изменяет его только цикл событий.
type Resolver struct {
	log     *slog.Logger
	backend Backend
	opts    Options

	qmu   sync.Mutex
	queue []any
	wake  chan struct{}

	mu      sync.RWMutex
	state   State
	changed chan struct{}

	lifeMu sync.Mutex
	cancel context.CancelFunc
	sub    Subscription
	closed bool
	done   chan struct{}

	lastUsed atomic.Int64

	// поля ниже принадлежат циклу событий
	gen           uint64
	cancelFetch   context.CancelFunc
	lookupSettled bool
}

// NewResolver создаёт резолвер в состоянии Loading. Для работы нужен Start.
func NewResolver(log *slog.Logger, backend Backend, opts Options) *Resolver {
	r := &Resolver{
		log:     log,
		backend: backend,
		opts:    opts.withDefaults(),
		wake:    make(chan struct{}, 1),
		state:   Loading(),
		changed: make(chan struct{}),
		done:    make(chan struct{}),
	}
	r.touch()
	return r
}

// Start подписывается на уведомления бэкенда, затем запрашивает текущую сессию.
// Резолвер живёт, пока не закрыт или пока не отменён ctx.
func (r *Resolver) Start(ctx context.Context) error {
	const op = "session.Resolver.Start"

	r.lifeMu.Lock()
	defer r.lifeMu.Unlock()
	if r.closed {
		return fmt.Errorf("%s: %w", op, ErrClosed)
	}
	if r.cancel != nil {
		return fmt.Errorf("%s: %w", op, ErrAlreadyStarted)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	sub, err := r.backend.OnSessionChange(func(p *models.Principal) {
		r.enqueue(principalEvent{principal: p})
	})
	if err != nil {
		r.log.Warn("session change subscription failed", sl.Err(err))
	} else {
		r.sub = sub
	}

	go r.loop(loopCtx)
	go r.lookup(loopCtx)
	return nil
}

// Close отписывается от уведомлений и останавливает цикл. Повторный вызов ничего не делает.
func (r *Resolver) Close() {
	r.lifeMu.Lock()
	if r.closed {
		r.lifeMu.Unlock()
		return
	}
	r.closed = true
	cancel, sub := r.cancel, r.sub
	r.sub = nil
	r.lifeMu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	if cancel == nil {
		close(r.done)
		return
	}
	cancel()
	<-r.done
}

// Done закрывается после остановки резолвера.
func (r *Resolver) Done() <-chan struct{} {
	return r.done
}

// State возвращает текущий снимок состояния.
func (r *Resolver) State() State {
	r.touch()
	return r.current()
}

// Wait блокируется, пока состояние не перестанет быть Loading или пока не завершится ctx.
// Возвращает последнее известное состояние.
func (r *Resolver) Wait(ctx context.Context) (State, error) {
	r.touch()
	for {
		r.mu.RLock()
		st, ch := r.state, r.changed
		r.mu.RUnlock()
		if !st.IsLoading() {
			return st, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return st, ctx.Err()
		case <-r.done:
			return r.current(), ErrClosed
		}
	}
}

// Retry повторяет загрузку профиля из состояния ProfileUnavailable.
// В остальных состояниях ничего не делает. Возвращается, когда цикл обработал запрос,
// так что следующий Wait уже видит новое поколение.
func (r *Resolver) Retry(ctx context.Context) error {
	const op = "session.Resolver.Retry"
	r.touch()
	ev := retryEvent{handled: make(chan struct{})}
	r.enqueue(ev)
	select {
	case <-ev.handled:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	case <-r.done:
		return fmt.Errorf("%s: %w", op, ErrClosed)
	}
}

// SignOut завершает сессию на бэкенде. Состояние изменится по уведомлению бэкенда.
func (r *Resolver) SignOut(ctx context.Context) error {
	const op = "session.Resolver.SignOut"
	r.touch()
	if err := r.backend.SignOut(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// IdleSince возвращает время последнего обращения к резолверу.
func (r *Resolver) IdleSince() time.Time {
	return time.Unix(0, r.lastUsed.Load())
}

func (r *Resolver) touch() {
	r.lastUsed.Store(time.Now().UnixNano())
}

func (r *Resolver) current() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

func (r *Resolver) enqueue(ev any) {
	r.qmu.Lock()
	r.queue = append(r.queue, ev)
	r.qmu.Unlock()
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *Resolver) dequeue() (any, bool) {
	r.qmu.Lock()
	defer r.qmu.Unlock()
	if len(r.queue) == 0 {
		return nil, false
	}
	ev := r.queue[0]
	r.queue[0] = nil
	r.queue = r.queue[1:]
	return ev, true
}

func (r *Resolver) loop(ctx context.Context) {
	defer close(r.done)
	defer func() {
		if r.cancelFetch != nil {
			r.cancelFetch()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.wake:
		}
		for {
			ev, ok := r.dequeue()
			if !ok {
				break
			}
			if ctx.Err() != nil {
				return
			}
			r.handle(ctx, ev)
		}
	}
}

func (r *Resolver) handle(ctx context.Context, ev any) {
	switch ev := ev.(type) {
	case principalEvent:
		r.lookupSettled = true
		r.applyPrincipal(ctx, ev.principal)
	case lookupEvent:
		if r.lookupSettled {
			r.discard(errStaleResult, "initial lookup superseded by notification")
			return
		}
		r.lookupSettled = true
		if ev.err != nil {
			r.log.Error("initial session lookup failed, treating as anonymous", sl.Err(ev.err))
			r.supersede()
			r.setState(Anonymous())
			return
		}
		r.applyPrincipal(ctx, ev.principal)
	case fetchEvent:
		r.applyProfile(ev)
	case retryEvent:
		defer close(ev.handled)
		cur := r.current()
		if cur.Status != StatusProfileUnavailable {
			return
		}
		r.supersede()
		r.setState(State{Status: StatusLoading, Principal: cur.Principal})
		r.fetch(ctx, cur.Principal)
	}
}

func (r *Resolver) applyPrincipal(ctx context.Context, p *models.Principal) {
	r.supersede()
	if p == nil {
		r.setState(Anonymous())
		return
	}
	cur := r.current()
	if cur.Status != StatusAuthenticated || cur.PrincipalID() != p.ID {
		r.setState(State{Status: StatusLoading, Principal: p})
	}
	r.fetch(ctx, p)
}

func (r *Resolver) applyProfile(ev fetchEvent) {
	cur := r.current()
	if ev.gen != r.gen || cur.PrincipalID() != ev.principal.ID {
		r.opts.Metrics.StaleResult()
		r.discard(errStaleResult, "profile result for superseded generation",
			slog.Uint64("generation", ev.gen),
			slog.Uint64("current_generation", r.gen),
		)
		return
	}
	if r.cancelFetch != nil {
		r.cancelFetch()
		r.cancelFetch = nil
	}

	log := r.log.With(sl.Principal(ev.principal.ID))
	switch {
	case ev.err == nil && ev.profile != nil:
		r.setState(Authenticated(ev.principal, ev.profile))
	case ev.err == nil || errors.Is(ev.err, models.ErrNotFound):
		log.Warn("profile not found for principal")
		r.setState(ProfileUnavailable(ev.principal, "profile not found"))
	case cur.Status == StatusAuthenticated:
		log.Warn("profile refresh failed, keeping previous profile", sl.Err(ev.err))
	default:
		log.Error("profile fetch failed", sl.Err(ev.err))
		r.setState(ProfileUnavailable(ev.principal, "profile service unavailable"))
	}
}

func (r *Resolver) discard(err error, msg string, attrs ...any) {
	r.log.Debug(msg, append(attrs, sl.Err(err))...)
}

// supersede начинает новое поколение и отменяет загрузку профиля предыдущего.
func (r *Resolver) supersede() {
	r.gen++
	if r.cancelFetch != nil {
		r.cancelFetch()
		r.cancelFetch = nil
	}
}

func (r *Resolver) setState(s State) {
	r.mu.Lock()
	r.state = s
	close(r.changed)
	r.changed = make(chan struct{})
	r.mu.Unlock()

	r.opts.Metrics.Transition(s.Status)
	r.log.Debug("session state changed",
		slog.String("status", s.Status.String()),
		sl.Principal(s.PrincipalID()),
	)
}

func (r *Resolver) lookup(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.LookupTimeout)
	defer cancel()

	var principal *models.Principal
	err := backoff.Retry(func() error {
		p, err := r.backend.GetCurrentSession(ctx)
		if err != nil {
			if !models.IsTransport(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		principal = p
		return nil
	}, backoff.WithContext(r.opts.newBackOff(), ctx))

	r.enqueue(lookupEvent{principal: principal, err: err})
}

func (r *Resolver) fetch(ctx context.Context, p *models.Principal) {
	ctx, cancel := context.WithCancel(ctx)
	r.cancelFetch = cancel
	gen := r.gen

	go func() {
		profile, err := r.fetchProfile(ctx, p.ID)
		r.enqueue(fetchEvent{gen: gen, principal: p, profile: profile, err: err})
	}()
}

func (r *Resolver) fetchProfile(ctx context.Context, principalID string) (*models.Profile, error) {
	var profile *models.Profile
	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		actx, cancel := context.WithTimeout(ctx, r.opts.FetchTimeout)
		defer cancel()
		p, err := r.backend.GetProfile(actx, principalID)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return backoff.Permanent(err)
			}
			return err
		}
		profile = p
		return nil
	}, backoff.WithContext(r.opts.newBackOff(), ctx), func(err error, next time.Duration) {
		r.log.Debug("profile fetch attempt failed",
			sl.Principal(principalID),
			slog.Int("attempt", attempt),
			slog.Duration("next", next),
			sl.Err(err),
		)
	})

	switch {
	case err == nil:
		r.opts.Metrics.ProfileFetch(fetchOK)
	case ctx.Err() != nil:
		r.opts.Metrics.ProfileFetch(fetchCancelled)
	case errors.Is(err, models.ErrNotFound):
		r.opts.Metrics.ProfileFetch(fetchNotFound)
	default:
		r.opts.Metrics.ProfileFetch(fetchError)
	}
	return profile, err
}
