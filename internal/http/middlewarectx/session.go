// Package middlewarectx содержит HTTP middleware портала.
//
// SessionMiddleware читает cookie сессии, проверяет токен и кладёт в контекст
// запроса представление сессии браузера. Запросы без cookie или с негодным
// токеном получают анонимное представление, негодная cookie при этом стирается.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/ems-portal/internal/config"
	"github.com/magabrotheeeer/ems-portal/internal/lib/sl"
	"github.com/magabrotheeeer/ems-portal/internal/session"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// SessionView — ключ для представления сессии в контексте
	SessionView Key = "session_view"
	// SessionID — ключ для id сессии браузера в контексте
	SessionID Key = "session_id"
)

// Authenticator проверяет токен из cookie и возвращает id сессии.
type Authenticator interface {
	Authenticate(token string) (string, error)
}

// Resolvers выдаёт резолвер сессии браузера по её id.
type Resolvers interface {
	Acquire(sid string) (*session.Resolver, error)
}

// SessionMiddleware возвращает middleware, который связывает запрос с резолвером сессии.
func SessionMiddleware(log *slog.Logger, cfg config.Session, auth Authenticator, resolvers Resolvers) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.SessionMiddleware"

			cookie, err := r.Cookie(cfg.CookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r.WithContext(withAnonymous(r.Context())))
				return
			}

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			sid, err := auth.Authenticate(cookie.Value)
			if err != nil {
				log.Info("invalid session cookie, clearing", sl.Err(err))
				ClearSessionCookie(w, cfg)
				next.ServeHTTP(w, r.WithContext(withAnonymous(r.Context())))
				return
			}

			resolver, err := resolvers.Acquire(sid)
			if err != nil {
				log.Error("failed to acquire session resolver", sl.Session(sid), sl.Err(err))
				next.ServeHTTP(w, r.WithContext(withAnonymous(r.Context())))
				return
			}

			ctx := context.WithValue(r.Context(), SessionView, session.View(resolver))
			ctx = context.WithValue(ctx, SessionID, sid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func withAnonymous(ctx context.Context) context.Context {
	return context.WithValue(ctx, SessionView, session.Static(session.Anonymous()))
}

// ViewFromContext возвращает представление сессии запроса.
// Без SessionMiddleware запрос считается анонимным.
func ViewFromContext(ctx context.Context) session.View {
	if v, ok := ctx.Value(SessionView).(session.View); ok {
		return v
	}
	return session.Static(session.Anonymous())
}

// SessionIDFromContext возвращает id сессии браузера или пустую строку.
func SessionIDFromContext(ctx context.Context) string {
	sid, _ := ctx.Value(SessionID).(string)
	return sid
}

// ResolvedState ждёт разрешения сессии не дольше wait и возвращает состояние.
// По истечении wait возвращается текущее состояние, возможно Loading.
func ResolvedState(r *http.Request, wait time.Duration) session.State {
	view := ViewFromContext(r.Context())
	ctx, cancel := context.WithTimeout(r.Context(), wait)
	defer cancel()
	st, _ := view.Wait(ctx)
	return st
}

// SetSessionCookie записывает токен сессии в cookie.
func SetSessionCookie(w http.ResponseWriter, cfg config.Session, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie стирает cookie сессии.
func ClearSessionCookie(w http.ResponseWriter, cfg config.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
