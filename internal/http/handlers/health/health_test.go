package health

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name     string
		checks   map[string]CheckFunc
		wantCode int
		wantData map[string]any
	}{
		{
			name:     "all healthy",
			checks:   map[string]CheckFunc{"postgres": ok, "redis": ok},
			wantCode: http.StatusOK,
			wantData: map[string]any{"postgres": "ok", "redis": "ok"},
		},
		{
			name:     "redis down",
			checks:   map[string]CheckFunc{"postgres": ok, "redis": down},
			wantCode: http.StatusServiceUnavailable,
			wantData: map[string]any{"postgres": "ok", "redis": "down"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(slog.New(slog.NewTextHandler(io.Discard, nil)), tt.checks)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			var got map[string]any
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
			assert.Equal(t, tt.wantData, got["data"])
		})
	}
}
