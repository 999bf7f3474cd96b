// Package logout реализует HTTP-обработчик выхода из сессии.
package logout

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/ems-portal/internal/config"
	"github.com/magabrotheeeer/ems-portal/internal/http/middlewarectx"
	"github.com/magabrotheeeer/ems-portal/internal/http/response"
	"github.com/magabrotheeeer/ems-portal/internal/lib/sl"
	"github.com/magabrotheeeer/ems-portal/internal/models"
	"github.com/magabrotheeeer/ems-portal/internal/session"
)

// Metrics считает исходы запросов аутентификации.
type Metrics interface {
	AuthRequest(op, result string)
}

// Handler завершает сессию запроса.
type Handler struct {
	log     *slog.Logger
	metrics Metrics
	cookie  config.Session
}

// New создаёт обработчик выхода.
func New(log *slog.Logger, metrics Metrics, cookie config.Session) *Handler {
	return &Handler{log: log, metrics: metrics, cookie: cookie}
}

// ServeHTTP godoc
// @Summary Выход
// @Description Завершает сессию. Состояние сессии меняется только после уведомления бэкенда.
// @Tags Auth
// @Produce  json
// @Success 200 {object} response.Response "Сессия завершена"
// @Failure 401 {object} response.ErrorResponse "Нет сессии"
// @Failure 503 {object} response.ErrorResponse "Бэкенд идентификации недоступен"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /auth/logout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.logout"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	view := middlewarectx.ViewFromContext(r.Context())
	err := view.SignOut(r.Context())
	switch {
	case err == nil:
	case errors.Is(err, session.ErrNoSession):
		h.metrics.AuthRequest("logout", "unauthorized")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("not signed in"))
		return
	case models.IsTransport(err):
		log.Error("identity backend unavailable", sl.Err(err))
		h.metrics.AuthRequest("logout", "unavailable")
		w.WriteHeader(http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("service temporarily unavailable"))
		return
	default:
		log.Error("sign out failed", sl.Err(err))
		h.metrics.AuthRequest("logout", "error")
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	middlewarectx.ClearSessionCookie(w, h.cookie)
	h.metrics.AuthRequest("logout", "ok")
	log.Info("signed out", sl.Session(middlewarectx.SessionIDFromContext(r.Context())))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{"signed_out": true}))
}
