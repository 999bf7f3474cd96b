// Package portaldashboard отдаёт данные дашборда текущего пользователя.
package portaldashboard

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/ems-portal/internal/dashboard"
	"github.com/magabrotheeeer/ems-portal/internal/http/middlewarectx"
	"github.com/magabrotheeeer/ems-portal/internal/http/response"
	"github.com/magabrotheeeer/ems-portal/internal/session"
	"github.com/magabrotheeeer/ems-portal/internal/trial"
)

// Handler отдаёт дашборд.
type Handler struct {
	log  *slog.Logger
	wait time.Duration
	now  func() time.Time
}

// New создаёт обработчик.
func New(log *slog.Logger, wait time.Duration) *Handler {
	return &Handler{log: log, wait: wait, now: time.Now}
}

// ServeHTTP godoc
// @Summary Дашборд
// @Description Возвращает приветствие, статус пробного периода, прогресс обучения и рекомендации.
// @Tags Portal
// @Produce  json
// @Success 200 {object} response.Response{data=dashboard.Overview} "Данные дашборда"
// @Failure 401 {object} response.ErrorResponse "Нет сессии"
// @Failure 503 {object} response.ErrorResponse "Сессия ещё разрешается или профиль недоступен"
// @Router /portal/dashboard [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.portal.dashboard"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	st := middlewarectx.ResolvedState(r, h.wait)
	switch st.Status {
	case session.StatusAuthenticated:
	case session.StatusAnonymous:
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("not signed in"))
		return
	default:
		log.Info("dashboard unavailable", slog.String("status", st.Status.String()), slog.String("reason", st.Reason))
		w.WriteHeader(http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("profile is not available yet"))
		return
	}

	now := h.now()
	render.JSON(w, r, response.StatusOKWithData(dashboard.Build(st.Profile, trial.Derive(st.Profile, now), now)))
}
