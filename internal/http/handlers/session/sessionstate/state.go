// Package sessionstate отдаёт текущее состояние сессии браузера.
package sessionstate

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/ems-portal/internal/http/middlewarectx"
	"github.com/magabrotheeeer/ems-portal/internal/http/response"
	"github.com/magabrotheeeer/ems-portal/internal/session"
	"github.com/magabrotheeeer/ems-portal/internal/trial"
)

// Result — состояние сессии и производный статус пробного периода.
type Result struct {
	Session session.State `json:"session"`
	Trial   trial.Status  `json:"trial"`
}

// NewResult собирает ответ для состояния st на момент now.
func NewResult(st session.State, now time.Time) Result {
	res := Result{Session: st, Trial: trial.None()}
	if st.Status == session.StatusAuthenticated {
		res.Trial = trial.Derive(st.Profile, now)
	}
	return res
}

// Handler отдаёт состояние сессии.
type Handler struct {
	log  *slog.Logger
	wait time.Duration
	now  func() time.Time
}

// New создаёт обработчик. wait ограничивает ожидание разрешения сессии.
func New(log *slog.Logger, wait time.Duration) *Handler {
	return &Handler{log: log, wait: wait, now: time.Now}
}

// ServeHTTP godoc
// @Summary Состояние сессии
// @Description Возвращает состояние сессии (loading, anonymous, authenticated, profile_unavailable) и статус пробного периода.
// @Description По умолчанию ждёт разрешения сессии, с wait=false отвечает сразу.
// @Tags Session
// @Produce  json
// @Param wait query bool false "Ждать разрешения сессии"
// @Success 200 {object} response.Response{data=Result} "Состояние сессии"
// @Router /session [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.session.state"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var st session.State
	if wait, err := strconv.ParseBool(r.URL.Query().Get("wait")); err == nil && !wait {
		st = middlewarectx.ViewFromContext(r.Context()).State()
	} else {
		st = middlewarectx.ResolvedState(r, h.wait)
	}
	log.Debug("session state", slog.String("status", st.Status.String()))

	render.JSON(w, r, response.StatusOKWithData(NewResult(st, h.now())))
}
