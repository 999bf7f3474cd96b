package sessionstate

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/ems-portal/internal/http/middlewarectx"
	"github.com/magabrotheeeer/ems-portal/internal/models"
	"github.com/magabrotheeeer/ems-portal/internal/session"
)

type loadingView struct {
	session.View
	waited bool
}

func (v *loadingView) State() session.State { return session.Loading() }

func (v *loadingView) Wait(ctx context.Context) (session.State, error) {
	v.waited = true
	<-ctx.Done()
	return session.Loading(), ctx.Err()
}

func serve(t *testing.T, h *Handler, view session.View, target string) map[string]any {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req = req.WithContext(context.WithValue(req.Context(), middlewarectx.SessionView, view))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	return got["data"].(map[string]any)
}

func TestStateHandler_Authenticated(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	end := now.Add(36 * time.Hour)
	profile := &models.Profile{
		ID:               "p-1",
		Username:         "jane",
		SubscriptionType: models.SubscriptionTrial,
		TrialEndDate:     &end,
	}

	h := New(slog.New(slog.NewTextHandler(io.Discard, nil)), time.Second)
	h.now = func() time.Time { return now }

	view := session.Static(session.Authenticated(&models.Principal{ID: "p-1", Email: "jane@example.com"}, profile))
	data := serve(t, h, view, "/api/v1/session")

	sess := data["session"].(map[string]any)
	assert.Equal(t, "authenticated", sess["status"])
	tr := data["trial"].(map[string]any)
	assert.Equal(t, "expiring_soon", tr["urgency"])
	assert.EqualValues(t, 2, tr["days_remaining"])
}

func TestStateHandler_AnonymousHasNoTrial(t *testing.T) {
	h := New(slog.New(slog.NewTextHandler(io.Discard, nil)), time.Second)
	data := serve(t, h, session.Static(session.Anonymous()), "/api/v1/session")

	assert.Equal(t, "anonymous", data["session"].(map[string]any)["status"])
	assert.Equal(t, "none", data["trial"].(map[string]any)["urgency"])
}

func TestStateHandler_WaitIsBounded(t *testing.T) {
	h := New(slog.New(slog.NewTextHandler(io.Discard, nil)), 20*time.Millisecond)

	view := &loadingView{}
	data := serve(t, h, view, "/api/v1/session")
	assert.True(t, view.waited)
	assert.Equal(t, "loading", data["session"].(map[string]any)["status"])

	view = &loadingView{}
	data = serve(t, h, view, "/api/v1/session?wait=false")
	assert.False(t, view.waited)
	assert.Equal(t, "loading", data["session"].(map[string]any)["status"])
}
