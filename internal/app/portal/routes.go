package portal

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/magabrotheeeer/ems-portal/docs"
	"github.com/magabrotheeeer/ems-portal/internal/config"
	"github.com/magabrotheeeer/ems-portal/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/ems-portal/internal/http/handlers/auth/logout"
	"github.com/magabrotheeeer/ems-portal/internal/http/handlers/auth/signup"
	"github.com/magabrotheeeer/ems-portal/internal/http/handlers/health"
	"github.com/magabrotheeeer/ems-portal/internal/http/handlers/portal/portaldashboard"
	"github.com/magabrotheeeer/ems-portal/internal/http/handlers/portal/portaltrial"
	"github.com/magabrotheeeer/ems-portal/internal/http/handlers/session/sessionrefresh"
	"github.com/magabrotheeeer/ems-portal/internal/http/handlers/session/sessionretry"
	"github.com/magabrotheeeer/ems-portal/internal/http/handlers/session/sessionstate"
	"github.com/magabrotheeeer/ems-portal/internal/http/middlewarectx"
	"github.com/magabrotheeeer/ems-portal/internal/metrics"
	"github.com/magabrotheeeer/ems-portal/internal/services/identity"
	"github.com/magabrotheeeer/ems-portal/internal/session"
	"github.com/magabrotheeeer/ems-portal/internal/web"
)

// RegisterRoutes регистрирует все маршруты портала.
func RegisterRoutes(r chi.Router, logger *slog.Logger, cfg config.Session, identityService *identity.Service,
	registry *session.Registry, pages *web.Pages, collector *metrics.Collector, limiter *middlewarectx.IPLimiter,
	gatherer prometheus.Gatherer, checks map[string]health.CheckFunc) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
	)

	r.Get("/health", health.New(logger, checks).ServeHTTP)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/docs/*", httpSwagger.WrapHandler)

	// Всё остальное видит сессию браузера
	r.Group(func(r chi.Router) {
		r.Use(middlewarectx.SessionMiddleware(logger, cfg, identityService, registry))

		r.Route("/api/v1", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.RateLimitMiddleware(logger, limiter))
				r.Post("/auth/signup", signup.New(logger, identityService, collector, cfg).ServeHTTP)
				r.Post("/auth/login", login.New(logger, identityService, collector, cfg).ServeHTTP)
			})
			r.Post("/auth/logout", logout.New(logger, collector, cfg).ServeHTTP)

			r.Get("/session", sessionstate.New(logger, cfg.ResolveWait).ServeHTTP)
			r.Post("/session/retry", sessionretry.New(logger, cfg.ResolveWait).ServeHTTP)
			r.Post("/session/refresh", sessionrefresh.New(logger, identityService, collector, cfg).ServeHTTP)

			r.Get("/portal/trial", portaltrial.New(logger, cfg.ResolveWait).ServeHTTP)
			r.Get("/portal/dashboard", portaldashboard.New(logger, cfg.ResolveWait).ServeHTTP)
		})

		pages.Register(r)
		// HTML-формы входа и регистрации ограничиваются так же, как API
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RateLimitMiddleware(logger, limiter))
			pages.RegisterForms(r)
		})
	})
}
