// Package session разрешает состояние сессии браузера поверх бэкенда идентификации.
//
// Resolver держит ровно одно из состояний Loading, Anonymous, Authenticated
// или ProfileUnavailable и переходит между ними по уведомлениям бэкенда.
// Все переходы выполняются одной горутиной в порядке поступления событий.
package session

import (
	"context"

	"github.com/magabrotheeeer/ems-portal/internal/models"
)

// Status — дискриминатор состояния сессии.
type Status int

const (
	StatusLoading Status = iota
	StatusAnonymous
	StatusAuthenticated
	StatusProfileUnavailable
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusAnonymous:
		return "anonymous"
	case StatusAuthenticated:
		return "authenticated"
	case StatusProfileUnavailable:
		return "profile_unavailable"
	default:
		return "unknown"
	}
}

// MarshalText сериализует статус строкой.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// State — снимок состояния сессии.
// Profile заполнен только в StatusAuthenticated.
// Principal заполнен в Authenticated, ProfileUnavailable и в Loading после получения принципала.
type State struct {
	Status    Status            `json:"status"`
	Principal *models.Principal `json:"principal,omitempty"`
	Profile   *models.Profile   `json:"profile,omitempty"`
	Reason    string            `json:"reason,omitempty"`
}

// Loading начальное состояние.
func Loading() State { return State{Status: StatusLoading} }

// Anonymous состояние без сессии.
func Anonymous() State { return State{Status: StatusAnonymous} }

// Authenticated состояние с загруженным профилем.
func Authenticated(p *models.Principal, profile *models.Profile) State {
	return State{Status: StatusAuthenticated, Principal: p, Profile: profile}
}

// ProfileUnavailable состояние, когда принципал есть, а профиль получить не удалось.
func ProfileUnavailable(p *models.Principal, reason string) State {
	return State{Status: StatusProfileUnavailable, Principal: p, Reason: reason}
}

// IsLoading сообщает, что состояние ещё не разрешено.
func (s State) IsLoading() bool { return s.Status == StatusLoading }

// PrincipalID возвращает id принципала или пустую строку.
func (s State) PrincipalID() string {
	if s.Principal == nil {
		return ""
	}
	return s.Principal.ID
}

// Subscription — активная подписка на уведомления об изменении сессии.
type Subscription interface {
	Unsubscribe()
}

// Backend — контракт бэкенда идентификации для одной сессии браузера.
//
// GetProfile возвращает models.ErrNotFound, если профиля нет,
// и *models.TransportError, если бэкенд недоступен.
// Уведомление с nil означает, что сессии больше нет.
type Backend interface {
	GetCurrentSession(ctx context.Context) (*models.Principal, error)
	OnSessionChange(fn func(*models.Principal)) (Subscription, error)
	GetProfile(ctx context.Context, principalID string) (*models.Profile, error)
	SignOut(ctx context.Context) error
}

// Metrics собирает счётчики резолвера.
type Metrics interface {
	Transition(status Status)
	StaleResult()
	ProfileFetch(result string)
}

type nopMetrics struct{}

func (nopMetrics) Transition(Status)   {}
func (nopMetrics) StaleResult()        {}
func (nopMetrics) ProfileFetch(string) {}
