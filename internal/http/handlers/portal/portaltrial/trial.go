// Package portaltrial отдаёт статус пробного периода текущего пользователя.
package portaltrial

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/ems-portal/internal/http/middlewarectx"
	"github.com/magabrotheeeer/ems-portal/internal/http/response"
	"github.com/magabrotheeeer/ems-portal/internal/session"
	"github.com/magabrotheeeer/ems-portal/internal/trial"
)

// Result — статус пробного периода и признак показа баннера.
type Result struct {
	trial.Status
	ShowBanner bool `json:"show_banner"`
}

// Handler отдаёт статус пробного периода.
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
// @Summary Статус пробного периода
// @Description Вычисляет оставшиеся дни, процент использования и срочность по профилю текущего пользователя.
// @Tags Portal
// @Produce  json
// @Success 200 {object} response.Response{data=Result} "Статус пробного периода"
// @Failure 401 {object} response.ErrorResponse "Нет сессии"
// @Failure 503 {object} response.ErrorResponse "Сессия ещё разрешается или профиль недоступен"
// @Router /portal/trial [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.portal.trial"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	st := middlewarectx.ResolvedState(r, h.wait)
	if msg, code, ok := unresolved(st); !ok {
		log.Info("trial status unavailable", slog.String("status", st.Status.String()))
		w.WriteHeader(code)
		render.JSON(w, r, response.Error(msg))
		return
	}

	status := trial.Derive(st.Profile, h.now())
	render.JSON(w, r, response.StatusOKWithData(Result{Status: status, ShowBanner: status.ShowBanner()}))
}

// unresolved возвращает ответ для состояний без профиля.
func unresolved(st session.State) (string, int, bool) {
	switch st.Status {
	case session.StatusAuthenticated:
		return "", http.StatusOK, true
	case session.StatusAnonymous:
		return "not signed in", http.StatusUnauthorized, false
	case session.StatusProfileUnavailable:
		return "profile unavailable: " + st.Reason, http.StatusServiceUnavailable, false
	default:
		return "session is still resolving", http.StatusServiceUnavailable, false
	}
}
