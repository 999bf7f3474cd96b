// Package sessionretry повторяет загрузку профиля после сбоя.
package sessionretry

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/ems-portal/internal/http/handlers/session/sessionstate"
	"github.com/magabrotheeeer/ems-portal/internal/http/middlewarectx"
	"github.com/magabrotheeeer/ems-portal/internal/http/response"
	"github.com/magabrotheeeer/ems-portal/internal/lib/sl"
)

// Handler запускает повторную загрузку профиля и ждёт её результата.
type Handler struct {
	log  *slog.Logger
	wait time.Duration
}

// New создаёт обработчик повтора.
func New(log *slog.Logger, wait time.Duration) *Handler {
	return &Handler{log: log, wait: wait}
}

// ServeHTTP godoc
// @Summary Повтор загрузки профиля
// @Description Из состояния profile_unavailable запускает новую загрузку профиля. В остальных состояниях ничего не меняет.
// @Tags Session
// @Produce  json
// @Success 200 {object} response.Response{data=sessionstate.Result} "Состояние после повтора"
// @Failure 503 {object} response.ErrorResponse "Сессия закрыта"
// @Router /session/retry [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.session.retry"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	view := middlewarectx.ViewFromContext(r.Context())
	if err := view.Retry(r.Context()); err != nil {
		log.Error("retry failed", sl.Err(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("session is not available"))
		return
	}

	st := middlewarectx.ResolvedState(r, h.wait)
	log.Info("profile retry handled", slog.String("status", st.Status.String()))
	render.JSON(w, r, response.StatusOKWithData(sessionstate.NewResult(st, time.Now())))
}
