package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/ems-portal/internal/cache"
	"github.com/magabrotheeeer/ems-portal/internal/config"
	"github.com/magabrotheeeer/ems-portal/internal/models"
	"github.com/magabrotheeeer/ems-portal/internal/session"
)

func TestClient_DrivesResolverThroughSignInAndSignOut(t *testing.T) {
	env := newTestEnv(t)
	env.accounts.On("GetAccountByEmail", mock.Anything, "jane@example.com").Return(accountWithPassword(t, "password123"), nil)
	env.accounts.On("GetProfile", mock.Anything, "p-1").Return(&models.Profile{ID: "p-1", Username: "jane"}, nil)

	sess, err := env.svc.SignIn(context.Background(),
		models.LoginForm{Method: models.LoginByEmail, Identifier: "jane@example.com", Password: "password123"})
	require.NoError(t, err)

	opts := session.Options{
		LookupTimeout: time.Second,
		FetchTimeout:  time.Second,
		Retry:         config.Retry{InitialInterval: time.Millisecond, MaxInterval: time.Millisecond, MaxAttempts: 1},
	}
	registry := session.NewRegistry(newNoopLogger(), func(sid string) session.Backend {
		return env.svc.Client(sid)
	}, opts, time.Minute)
	defer registry.Close()

	r, err := registry.Acquire(sess.ID)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	st, err := r.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, session.StatusAuthenticated, st.Status)
	assert.Equal(t, "jane", st.Profile.Username)

	require.NoError(t, r.SignOut(context.Background()))
	require.Eventually(t, func() bool {
		return r.State().Status == session.StatusAnonymous
	}, 2*time.Second, 5*time.Millisecond)
	assert.Nil(t, r.State().Profile)
}

func TestClient_UnknownSessionResolvesAnonymous(t *testing.T) {
	env := newTestEnv(t)

	r := session.NewResolver(newNoopLogger(), env.svc.Client("never-issued"), session.Options{})
	require.NoError(t, r.Start(context.Background()))
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	st, err := r.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.StatusAnonymous, st.Status)
}

// failingSignOutHub теряет публикацию события выхода.
type failingSignOutHub struct {
	*cache.Hub
}

func (h failingSignOutHub) Publish(ctx context.Context, sid string, event cache.Event, p *models.Principal) error {
	if event == cache.EventSignedOut {
		return errors.New("redis: connection reset")
	}
	return h.Hub.Publish(ctx, sid, event, p)
}

func TestClient_SignOutPublishFailureStillResolvesAnonymous(t *testing.T) {
	env := newTestEnv(t)
	env.svc.hub = failingSignOutHub{Hub: env.hub}
	env.accounts.On("GetAccountByEmail", mock.Anything, "jane@example.com").Return(accountWithPassword(t, "password123"), nil)
	env.accounts.On("GetProfile", mock.Anything, "p-1").Return(&models.Profile{ID: "p-1", Username: "jane"}, nil)

	sess, err := env.svc.SignIn(context.Background(),
		models.LoginForm{Method: models.LoginByEmail, Identifier: "jane@example.com", Password: "password123"})
	require.NoError(t, err)

	r := session.NewResolver(newNoopLogger(), env.svc.Client(sess.ID), session.Options{
		LookupTimeout: time.Second,
		FetchTimeout:  time.Second,
		Retry:         config.Retry{InitialInterval: time.Millisecond, MaxInterval: time.Millisecond, MaxAttempts: 1},
	})
	require.NoError(t, r.Start(context.Background()))
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	st, err := r.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, session.StatusAuthenticated, st.Status)

	err = r.SignOut(context.Background())
	require.Error(t, err)
	assert.True(t, models.IsTransport(err))

	rec, err := env.sessions.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Nil(t, rec)

	require.Eventually(t, func() bool {
		return r.State().Status == session.StatusAnonymous
	}, 2*time.Second, 5*time.Millisecond)
	assert.Nil(t, r.State().Profile)
}
