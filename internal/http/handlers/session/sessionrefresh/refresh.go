// Package sessionrefresh продлевает сессию браузера и перевыпускает токен.
package sessionrefresh

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/ems-portal/internal/config"
	"github.com/magabrotheeeer/ems-portal/internal/http/middlewarectx"
	"github.com/magabrotheeeer/ems-portal/internal/http/response"
	"github.com/magabrotheeeer/ems-portal/internal/lib/sl"
	"github.com/magabrotheeeer/ems-portal/internal/models"
	"github.com/magabrotheeeer/ems-portal/internal/services/identity"
)

// Service продлевает сессию.
type Service interface {
	Refresh(ctx context.Context, sid string) (*identity.Session, error)
}

// Metrics считает исходы запросов аутентификации.
type Metrics interface {
	AuthRequest(op, result string)
}

// Result — срок действия продлённой сессии.
type Result struct {
	ExpiresAt time.Time `json:"expires_at"`
}

// Handler продлевает сессию запроса.
type Handler struct {
	log     *slog.Logger
	svc     Service
	metrics Metrics
	cookie  config.Session
}

// New создаёт обработчик продления.
func New(log *slog.Logger, svc Service, metrics Metrics, cookie config.Session) *Handler {
	return &Handler{log: log, svc: svc, metrics: metrics, cookie: cookie}
}

// ServeHTTP godoc
// @Summary Продление сессии
// @Description Продлевает сессию и перевыпускает токен. Профиль перечитывается, пока он перечитывается, остаётся виден прежний.
// @Tags Session
// @Produce  json
// @Success 200 {object} response.Response{data=Result} "Сессия продлена"
// @Failure 401 {object} response.ErrorResponse "Нет сессии или она истекла"
// @Failure 503 {object} response.ErrorResponse "Бэкенд идентификации недоступен"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /session/refresh [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.session.refresh"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	sid := middlewarectx.SessionIDFromContext(r.Context())
	if sid == "" {
		h.fail(w, r, http.StatusUnauthorized, "unauthorized", "not signed in")
		return
	}

	sess, err := h.svc.Refresh(r.Context(), sid)
	switch {
	case err == nil:
	case errors.Is(err, models.ErrInvalidToken):
		log.Info("session expired", sl.Session(sid))
		middlewarectx.ClearSessionCookie(w, h.cookie)
		h.fail(w, r, http.StatusUnauthorized, "unauthorized", "session expired")
		return
	case models.IsTransport(err):
		log.Error("identity backend unavailable", sl.Session(sid), sl.Err(err))
		h.fail(w, r, http.StatusServiceUnavailable, "unavailable", "service temporarily unavailable")
		return
	default:
		log.Error("refresh failed", sl.Session(sid), sl.Err(err))
		h.fail(w, r, http.StatusInternalServerError, "error", "internal error")
		return
	}

	middlewarectx.SetSessionCookie(w, h.cookie, sess.Token, sess.ExpiresAt)
	h.metrics.AuthRequest("refresh", "ok")
	log.Info("session refreshed", sl.Session(sid))
	render.JSON(w, r, response.StatusOKWithData(Result{ExpiresAt: sess.ExpiresAt}))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, status int, result, msg string) {
	h.metrics.AuthRequest("refresh", result)
	w.WriteHeader(status)
	render.JSON(w, r, response.Error(msg))
}
