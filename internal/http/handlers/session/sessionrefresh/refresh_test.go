package sessionrefresh

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/ems-portal/internal/config"
	"github.com/magabrotheeeer/ems-portal/internal/http/middlewarectx"
	"github.com/magabrotheeeer/ems-portal/internal/models"
	"github.com/magabrotheeeer/ems-portal/internal/services/identity"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Refresh(ctx context.Context, sid string) (*identity.Session, error) {
	args := m.Called(ctx, sid)
	sess, _ := args.Get(0).(*identity.Session)
	return sess, args.Error(1)
}

type metricsStub struct {
	results []string
}

func (m *metricsStub) AuthRequest(_, result string) { m.results = append(m.results, result) }

func TestRefreshHandler(t *testing.T) {
	expires := time.Now().Add(time.Hour)

	tests := []struct {
		name       string
		sid        string
		mockSess   *identity.Session
		mockErr    error
		wantCode   int
		wantCookie string
		wantResult string
	}{
		{
			name:       "refreshed",
			sid:        "sid-1",
			mockSess:   &identity.Session{ID: "sid-1", Token: "new-token", ExpiresAt: expires},
			wantCode:   http.StatusOK,
			wantCookie: "new-token",
			wantResult: "ok",
		},
		{
			name:       "no session",
			wantCode:   http.StatusUnauthorized,
			wantResult: "unauthorized",
		},
		{
			name:       "session expired",
			sid:        "sid-1",
			mockErr:    models.ErrInvalidToken,
			wantCode:   http.StatusUnauthorized,
			wantCookie: "",
			wantResult: "unauthorized",
		},
		{
			name:       "backend unavailable",
			sid:        "sid-1",
			mockErr:    models.Transport("identity.Refresh", errors.New("refused")),
			wantCode:   http.StatusServiceUnavailable,
			wantResult: "unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			m := &metricsStub{}
			h := New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc, m, config.Session{CookieName: "ems_session"})
			if tt.sid != "" {
				svc.On("Refresh", mock.Anything, tt.sid).Return(tt.mockSess, tt.mockErr).Once()
			}

			req := httptest.NewRequest(http.MethodPost, "/api/v1/session/refresh", nil)
			if tt.sid != "" {
				req = req.WithContext(context.WithValue(req.Context(), middlewarectx.SessionID, tt.sid))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			var got map[string]any
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))

			cookies := rec.Result().Cookies()
			switch {
			case tt.wantCookie != "":
				require.Len(t, cookies, 1)
				assert.Equal(t, tt.wantCookie, cookies[0].Value)
			case errors.Is(tt.mockErr, models.ErrInvalidToken):
				require.Len(t, cookies, 1)
				assert.Less(t, cookies[0].MaxAge, 0)
			default:
				assert.Empty(t, cookies)
			}
			assert.Equal(t, []string{tt.wantResult}, m.results)
			svc.AssertExpectations(t)
		})
	}
}
