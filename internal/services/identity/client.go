package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/ems-portal/internal/lib/sl"
	"github.com/magabrotheeeer/ems-portal/internal/models"
	"github.com/magabrotheeeer/ems-portal/internal/session"
)

// Client — бэкенд одной браузерной сессии.
type Client struct {
	svc *Service
	sid string
}

var _ session.Backend = (*Client)(nil)

type subscription func()

func (f subscription) Unsubscribe() { f() }

// GetCurrentSession возвращает принципала сессии или nil, если сессии нет или она истекла.
func (c *Client) GetCurrentSession(ctx context.Context) (*models.Principal, error) {
	const op = "identity.Client.GetCurrentSession"
	rec, err := c.svc.sessions.Get(ctx, c.sid)
	if err != nil {
		return nil, models.Transport(op, err)
	}
	if rec == nil {
		return nil, nil
	}
	return rec.Principal(), nil
}

// OnSessionChange подписывает fn на изменения сессии.
func (c *Client) OnSessionChange(fn func(*models.Principal)) (session.Subscription, error) {
	return subscription(c.svc.hub.Subscribe(c.sid, fn)), nil
}

// GetProfile читает профиль из кэша, при промахе из хранилища.
func (c *Client) GetProfile(ctx context.Context, principalID string) (*models.Profile, error) {
	const op = "identity.Client.GetProfile"
	log := c.svc.log.With(sl.Session(c.sid), sl.Principal(principalID))
	key := profileKey(principalID)

	var cached models.Profile
	found, err := c.svc.profiles.Get(ctx, key, &cached)
	if err != nil {
		log.Warn("profile cache read failed", sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	profile, err := c.svc.accounts.GetProfile(ctx, principalID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return nil, models.Transport(op, err)
	}

	if err := c.svc.profiles.Set(ctx, key, profile, c.svc.profileTTL); err != nil {
		log.Warn("profile cache write failed", sl.Err(err))
	}
	return profile, nil
}

// SignOut завершает сессию.
func (c *Client) SignOut(ctx context.Context) error {
	return c.svc.SignOut(ctx, c.sid)
}
