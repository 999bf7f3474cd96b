// Package login реализует HTTP-обработчик входа по email или username.
//
// Неизвестный пользователь и неверный пароль дают одинаковый ответ 401.
// При успехе токен новой сессии записывается в cookie.
package login

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/ems-portal/internal/config"
	"github.com/magabrotheeeer/ems-portal/internal/http/middlewarectx"
	"github.com/magabrotheeeer/ems-portal/internal/http/response"
	"github.com/magabrotheeeer/ems-portal/internal/lib/sl"
	"github.com/magabrotheeeer/ems-portal/internal/models"
	"github.com/magabrotheeeer/ems-portal/internal/services/identity"
)

// Service описывает вход в бэкенде идентификации.
type Service interface {
	SignIn(ctx context.Context, form models.LoginForm) (*identity.Session, error)
}

// Metrics считает исходы запросов аутентификации.
type Metrics interface {
	AuthRequest(op, result string)
}

// Result — данные открытой сессии.
type Result struct {
	PrincipalID string    `json:"principal_id"`
	Email       string    `json:"email"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Handler обрабатывает HTTP-запросы входа.
type Handler struct {
	log      *slog.Logger        // Логгер для записи операций и ошибок
	svc      Service             // Бэкенд идентификации
	metrics  Metrics             // Счётчики исходов
	cookie   config.Session      // Параметры cookie сессии
	validate *validator.Validate // Валидатор для проверки входных данных
}

// New создаёт обработчик входа.
func New(log *slog.Logger, svc Service, metrics Metrics, cookie config.Session) *Handler {
	return &Handler{
		log:      log,
		svc:      svc,
		metrics:  metrics,
		cookie:   cookie,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Вход
// @Description Проверяет учётные данные и открывает сессию. Токен возвращается в cookie.
// @Tags Auth
// @Accept  json
// @Accept  x-www-form-urlencoded
// @Produce  json
// @Param request body models.LoginForm true "Учётные данные"
// @Success 200 {object} response.Response{data=Result} "Сессия открыта"
// @Failure 400 {object} response.ErrorResponse "Некорректное тело запроса"
// @Failure 401 {object} response.ErrorResponse "Неверные учётные данные"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 503 {object} response.ErrorResponse "Бэкенд идентификации недоступен"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /auth/login [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.login"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var form models.LoginForm
	if err := render.Decode(r, &form); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		h.fail(w, r, http.StatusBadRequest, "bad_request", response.Error("invalid request body"))
		return
	}
	form.Normalize()

	if err := h.validate.Struct(form); err != nil {
		log.Info("validation failed", sl.Err(err))
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			h.fail(w, r, http.StatusUnprocessableEntity, "invalid", response.ValidationError(verrs))
			return
		}
		h.fail(w, r, http.StatusUnprocessableEntity, "invalid", response.Error("invalid request"))
		return
	}

	sess, err := h.svc.SignIn(r.Context(), form)
	switch {
	case err == nil:
	case errors.Is(err, models.ErrInvalidCredentials):
		log.Info("invalid credentials", slog.String("method", string(form.Method)))
		h.fail(w, r, http.StatusUnauthorized, "unauthorized", response.Error("invalid credentials"))
		return
	case models.IsTransport(err):
		log.Error("identity backend unavailable", sl.Err(err))
		h.fail(w, r, http.StatusServiceUnavailable, "unavailable", response.Error("service temporarily unavailable"))
		return
	default:
		log.Error("login failed", sl.Err(err))
		h.fail(w, r, http.StatusInternalServerError, "error", response.Error("internal error"))
		return
	}

	middlewarectx.SetSessionCookie(w, h.cookie, sess.Token, sess.ExpiresAt)
	h.metrics.AuthRequest("login", "ok")
	log.Info("login success", sl.Principal(sess.Principal.ID), sl.Session(sess.ID))

	render.JSON(w, r, response.StatusOKWithData(Result{
		PrincipalID: sess.Principal.ID,
		Email:       sess.Principal.Email,
		ExpiresAt:   sess.ExpiresAt,
	}))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, status int, result string, body any) {
	h.metrics.AuthRequest("login", result)
	w.WriteHeader(status)
	render.JSON(w, r, body)
}
