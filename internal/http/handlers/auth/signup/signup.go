// Package signup реализует HTTP-обработчик регистрации.
//
// Тело запроса принимается в JSON или как форма, проходит нормализацию и
// валидацию, после чего сервис идентификации создаёт учётную запись с профилем
// на пробном периоде и сразу открывает сессию. Токен сессии кладётся в cookie.
package signup

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
	"github.com/magabrotheeeer/ems-portal/internal/lib/password"
	"github.com/magabrotheeeer/ems-portal/internal/lib/sl"
	"github.com/magabrotheeeer/ems-portal/internal/models"
	"github.com/magabrotheeeer/ems-portal/internal/services/identity"
)

// Service описывает регистрацию в бэкенде идентификации.
type Service interface {
	SignUp(ctx context.Context, form models.SignupForm) (*identity.Session, error)
}

// Metrics считает исходы запросов аутентификации.
type Metrics interface {
	AuthRequest(op, result string)
}

// Result — данные успешной регистрации.
type Result struct {
	PrincipalID string    `json:"principal_id"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Handler обрабатывает HTTP-запросы регистрации.
type Handler struct {
	log      *slog.Logger
	svc      Service
	metrics  Metrics
	cookie   config.Session
	validate *validator.Validate
}

// New создаёт обработчик регистрации.
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
// @Summary Регистрация
// @Description Создаёт учётную запись с 14-дневным пробным периодом и открывает сессию.
// @Tags Auth
// @Accept  json
// @Accept  x-www-form-urlencoded
// @Produce  json
// @Param request body models.SignupForm true "Данные регистрации"
// @Success 201 {object} response.Response{data=Result} "Учётная запись создана"
// @Failure 400 {object} response.ErrorResponse "Некорректное тело запроса"
// @Failure 409 {object} response.ErrorResponse "Email или username заняты"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 503 {object} response.ErrorResponse "Бэкенд идентификации недоступен"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /auth/signup [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.signup"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var form models.SignupForm
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

	sess, err := h.svc.SignUp(r.Context(), form)
	switch {
	case err == nil:
	case errors.Is(err, models.ErrAccountExists):
		log.Info("account already exists", slog.String("username", form.Username))
		h.fail(w, r, http.StatusConflict, "conflict", response.Error("email or username already taken"))
		return
	case errors.Is(err, password.ErrTooShort), errors.Is(err, password.ErrTooLong):
		log.Info("password rejected", sl.Err(err))
		h.fail(w, r, http.StatusUnprocessableEntity, "invalid", response.Error("field Password "+passwordReason(err)))
		return
	case models.IsTransport(err):
		log.Error("identity backend unavailable", sl.Err(err))
		h.fail(w, r, http.StatusServiceUnavailable, "unavailable", response.Error("service temporarily unavailable"))
		return
	default:
		log.Error("signup failed", sl.Err(err))
		h.fail(w, r, http.StatusInternalServerError, "error", response.Error("internal error"))
		return
	}

	middlewarectx.SetSessionCookie(w, h.cookie, sess.Token, sess.ExpiresAt)
	h.metrics.AuthRequest("signup", "ok")
	log.Info("account registered", sl.Principal(sess.Principal.ID), sl.Session(sess.ID))

	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(Result{
		PrincipalID: sess.Principal.ID,
		Email:       sess.Principal.Email,
		Username:    form.Username,
		ExpiresAt:   sess.ExpiresAt,
	}))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, status int, result string, body any) {
	h.metrics.AuthRequest("signup", result)
	w.WriteHeader(status)
	render.JSON(w, r, body)
}

func passwordReason(err error) string {
	if errors.Is(err, password.ErrTooLong) {
		return "must be at most 72 bytes"
	}
	return "must be at least 8 characters"
}
