// Package web отдаёт HTML-страницы портала.
//
// Каждая страница проходит через route guard: по состоянию сессии запроса
// показывается сама страница, заглушка загрузки, страница ошибки профиля
// или выполняется редирект 303. Формы входа, регистрации, выхода и повтора
// загрузки профиля обрабатываются здесь же.
package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/ems-portal/internal/config"
	"github.com/magabrotheeeer/ems-portal/internal/dashboard"
	"github.com/magabrotheeeer/ems-portal/internal/guard"
	"github.com/magabrotheeeer/ems-portal/internal/http/middlewarectx"
	"github.com/magabrotheeeer/ems-portal/internal/http/response"
	"github.com/magabrotheeeer/ems-portal/internal/lib/password"
	"github.com/magabrotheeeer/ems-portal/internal/lib/sl"
	"github.com/magabrotheeeer/ems-portal/internal/models"
	"github.com/magabrotheeeer/ems-portal/internal/services/identity"
	"github.com/magabrotheeeer/ems-portal/internal/session"
	"github.com/magabrotheeeer/ems-portal/internal/trial"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pageNames = []string{
	"home", "about", "pricing", "demo", "login", "signup",
	"dashboard", "loading", "profile_error", "message",
}

// Accounts — вход и регистрация в бэкенде идентификации.
type Accounts interface {
	SignUp(ctx context.Context, form models.SignupForm) (*identity.Session, error)
	SignIn(ctx context.Context, form models.LoginForm) (*identity.Session, error)
}

// Metrics считает решения guard и исходы форм.
type Metrics interface {
	GuardDecision(action string)
	AuthRequest(op, result string)
}

type pageData struct {
	Title          string
	SignedIn       bool
	Refresh        int
	Errors         []string
	Message        string
	Next           string
	TrialDays      int
	Yearly         bool
	Plans          []Plan
	Modules        []Module
	Certifications []models.Certification
	Login          models.LoginForm
	Signup         models.SignupForm
	Overview       *dashboard.Overview
}

// Pages — HTML-часть портала.
type Pages struct {
	log      *slog.Logger
	table    *guard.Table
	accounts Accounts
	metrics  Metrics
	cookie   config.Session
	wait     time.Duration
	validate *validator.Validate
	pages    map[string]*template.Template
	now      func() time.Time
}

// New разбирает шаблоны страниц.
func New(log *slog.Logger, table *guard.Table, accounts Accounts, metrics Metrics, cookie config.Session) (*Pages, error) {
	const op = "web.New"

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.ParseFS(templatesFS, "templates/base.html", "templates/errors.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("%s: parse %s: %w", op, name, err)
		}
		pages[name] = t
	}

	return &Pages{
		log:      log,
		table:    table,
		accounts: accounts,
		metrics:  metrics,
		cookie:   cookie,
		wait:     cookie.ResolveWait,
		validate: validator.New(),
		pages:    pages,
		now:      time.Now,
	}, nil
}

// Register вешает страницы, выход и повтор загрузки профиля на роутер.
func (p *Pages) Register(r chi.Router) {
	r.Get("/", p.guarded("home", p.static("Home")))
	r.Get("/about", p.guarded("about", p.static("About")))
	r.Get("/pricing", p.guarded("pricing", p.pricing))
	r.Get("/demo", p.guarded("demo", p.static("Demo")))
	r.Get("/login", p.guarded("login", p.static("Sign in")))
	r.Get("/signup", p.guarded("signup", p.static("Start your free trial")))
	r.Get("/dashboard", p.guarded("dashboard", p.dashboard))

	r.Post("/logout", p.submitLogout)
	r.Post("/session/retry", p.submitRetry)
}

// RegisterForms вешает обработчики форм входа и регистрации.
func (p *Pages) RegisterForms(r chi.Router) {
	r.Post("/login", p.submitLogin)
	r.Post("/signup", p.submitSignup)
}

type builder func(r *http.Request, st session.State) (pageData, bool)

// guarded применяет решение guard к странице name.
func (p *Pages) guarded(name string, build builder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "web.guarded"

		log := p.log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		st := middlewarectx.ResolvedState(r, p.wait)
		d := p.table.Decide(st.Status, r.URL.Path)
		p.metrics.GuardDecision(d.Action.String())
		log.Debug("guard decision",
			slog.String("path", r.URL.Path),
			slog.String("status", st.Status.String()),
			slog.String("action", d.Action.String()),
		)

		switch d.Action {
		case guard.ActionLoading:
			w.Header().Set("Cache-Control", "no-store")
			p.render(w, r, http.StatusOK, "loading", pageData{Title: "Loading", Refresh: 1})
		case guard.ActionRedirect:
			p.redirect(w, r, d)
		case guard.ActionProfileError:
			w.Header().Set("Cache-Control", "no-store")
			p.render(w, r, http.StatusServiceUnavailable, "profile_error", pageData{
				Title:    "Profile unavailable",
				SignedIn: true,
				Next:     r.URL.Path,
			})
		default:
			data, ok := build(r, st)
			if !ok {
				p.redirect(w, r, guard.Decision{Action: guard.ActionRedirect, Target: p.table.EntryDefault(), Replace: true})
				return
			}
			data.SignedIn = signedIn(st)
			data.TrialDays = trial.TotalDays
			p.render(w, r, http.StatusOK, name, data)
		}
	}
}

func (p *Pages) redirect(w http.ResponseWriter, r *http.Request, d guard.Decision) {
	code := http.StatusFound
	if d.Replace {
		code = http.StatusSeeOther
		w.Header().Set("Cache-Control", "no-store")
	}
	http.Redirect(w, r, d.Target, code)
}

func (p *Pages) static(title string) builder {
	return func(*http.Request, session.State) (pageData, bool) {
		return pageData{
			Title:          title,
			Modules:        Modules,
			Certifications: models.Certifications,
			Login:          models.LoginForm{Method: models.LoginByEmail},
		}, true
	}
}

func (p *Pages) pricing(r *http.Request, _ session.State) (pageData, bool) {
	return pageData{
		Title:  "Pricing",
		Plans:  Plans,
		Yearly: r.URL.Query().Get("billing") == "yearly",
	}, true
}

// dashboard требует загруженный профиль, иначе посетитель уходит на страницу входа.
func (p *Pages) dashboard(_ *http.Request, st session.State) (pageData, bool) {
	if st.Profile == nil {
		return pageData{}, false
	}
	now := p.now()
	overview := dashboard.Build(st.Profile, trial.Derive(st.Profile, now), now)
	return pageData{Title: "Dashboard", Overview: &overview}, true
}

func (p *Pages) submitLogin(w http.ResponseWriter, r *http.Request) {
	const op = "web.submitLogin"

	log := p.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var form models.LoginForm
	if err := render.DecodeForm(r.Body, &form); err != nil {
		log.Info("failed to decode login form", sl.Err(err))
		p.formError(w, r, "login", http.StatusBadRequest, pageData{Title: "Sign in"}, "Invalid form submission.")
		return
	}
	form.Normalize()
	data := pageData{Title: "Sign in", Login: models.LoginForm{Method: form.Method, Identifier: form.Identifier}}

	if msgs := p.validationMessages(form); msgs != nil {
		p.metrics.AuthRequest("login", "invalid")
		p.formError(w, r, "login", http.StatusUnprocessableEntity, data, msgs...)
		return
	}

	sess, err := p.accounts.SignIn(r.Context(), form)
	switch {
	case err == nil:
	case errors.Is(err, models.ErrInvalidCredentials):
		p.metrics.AuthRequest("login", "unauthorized")
		p.formError(w, r, "login", http.StatusUnauthorized, data, "Invalid credentials.")
		return
	case models.IsTransport(err):
		log.Error("identity backend unavailable", sl.Err(err))
		p.metrics.AuthRequest("login", "unavailable")
		p.formError(w, r, "login", http.StatusServiceUnavailable, data, "Sign in is temporarily unavailable, please try again.")
		return
	default:
		log.Error("login failed", sl.Err(err))
		p.metrics.AuthRequest("login", "error")
		p.formError(w, r, "login", http.StatusInternalServerError, data, "Something went wrong, please try again.")
		return
	}

	p.metrics.AuthRequest("login", "ok")
	log.Info("login success", sl.Principal(sess.Principal.ID), sl.Session(sess.ID))
	middlewarectx.SetSessionCookie(w, p.cookie, sess.Token, sess.ExpiresAt)
	p.redirect(w, r, guard.Decision{Action: guard.ActionRedirect, Target: p.table.ProtectedDefault(), Replace: true})
}

func (p *Pages) submitSignup(w http.ResponseWriter, r *http.Request) {
	const op = "web.submitSignup"

	log := p.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	data := pageData{Title: "Start your free trial", Certifications: models.Certifications}

	var form models.SignupForm
	if err := render.DecodeForm(r.Body, &form); err != nil {
		log.Info("failed to decode signup form", sl.Err(err))
		p.formError(w, r, "signup", http.StatusBadRequest, data, "Invalid form submission.")
		return
	}
	form.Normalize()
	data.Signup = form
	data.Signup.Password, data.Signup.ConfirmPassword = "", ""

	if msgs := p.validationMessages(form); msgs != nil {
		p.metrics.AuthRequest("signup", "invalid")
		p.formError(w, r, "signup", http.StatusUnprocessableEntity, data, msgs...)
		return
	}

	sess, err := p.accounts.SignUp(r.Context(), form)
	switch {
	case err == nil:
	case errors.Is(err, models.ErrAccountExists):
		p.metrics.AuthRequest("signup", "conflict")
		p.formError(w, r, "signup", http.StatusConflict, data, "An account with this email or username already exists.")
		return
	case errors.Is(err, password.ErrTooShort), errors.Is(err, password.ErrTooLong):
		p.metrics.AuthRequest("signup", "invalid")
		p.formError(w, r, "signup", http.StatusUnprocessableEntity, data, "Password must be between 8 and 72 characters.")
		return
	case models.IsTransport(err):
		log.Error("identity backend unavailable", sl.Err(err))
		p.metrics.AuthRequest("signup", "unavailable")
		p.formError(w, r, "signup", http.StatusServiceUnavailable, data, "Sign up is temporarily unavailable, please try again.")
		return
	default:
		log.Error("signup failed", sl.Err(err))
		p.metrics.AuthRequest("signup", "error")
		p.formError(w, r, "signup", http.StatusInternalServerError, data, "Something went wrong, please try again.")
		return
	}

	p.metrics.AuthRequest("signup", "ok")
	log.Info("account registered", sl.Principal(sess.Principal.ID), sl.Session(sess.ID))
	middlewarectx.SetSessionCookie(w, p.cookie, sess.Token, sess.ExpiresAt)
	p.redirect(w, r, guard.Decision{Action: guard.ActionRedirect, Target: p.table.ProtectedDefault(), Replace: true})
}

func (p *Pages) submitLogout(w http.ResponseWriter, r *http.Request) {
	const op = "web.submitLogout"

	log := p.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	err := middlewarectx.ViewFromContext(r.Context()).SignOut(r.Context())
	if err != nil && !errors.Is(err, session.ErrNoSession) {
		log.Error("sign out failed", sl.Err(err))
		p.metrics.AuthRequest("logout", "error")
		p.render(w, r, http.StatusServiceUnavailable, "message", pageData{
			Title:    "Sign out failed",
			SignedIn: true,
			Message:  "We could not sign you out right now, please try again.",
		})
		return
	}

	p.metrics.AuthRequest("logout", "ok")
	middlewarectx.ClearSessionCookie(w, p.cookie)
	p.redirect(w, r, guard.Decision{Action: guard.ActionRedirect, Target: "/", Replace: true})
}

// submitRetry повторяет загрузку профиля и возвращает посетителя на исходную страницу.
func (p *Pages) submitRetry(w http.ResponseWriter, r *http.Request) {
	const op = "web.submitRetry"

	next := r.PostFormValue("next")
	if p.table.Classify(next) == guard.ClassUnknown {
		next = p.table.ProtectedDefault()
	}

	if err := middlewarectx.ViewFromContext(r.Context()).Retry(r.Context()); err != nil {
		p.log.Warn("profile retry failed",
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.Err(err),
		)
	}
	p.redirect(w, r, guard.Decision{Action: guard.ActionRedirect, Target: next, Replace: true})
}

func (p *Pages) validationMessages(form any) []string {
	err := p.validate.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return response.ValidationMessages(verrs)
	}
	return []string{"Invalid form submission."}
}

func (p *Pages) formError(w http.ResponseWriter, r *http.Request, name string, status int, data pageData, msgs ...string) {
	data.Errors = msgs
	data.TrialDays = trial.TotalDays
	if data.Certifications == nil {
		data.Certifications = models.Certifications
	}
	p.render(w, r, status, name, data)
}

func (p *Pages) render(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	const op = "web.render"

	var buf bytes.Buffer
	if err := p.pages[name].ExecuteTemplate(&buf, "base", data); err != nil {
		p.log.Error("failed to render page",
			slog.String("op", op),
			slog.String("page", name),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.Err(err),
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func signedIn(st session.State) bool {
	return st.Status == session.StatusAuthenticated || st.Status == session.StatusProfileUnavailable
}
