// Package devserver предоставляет маршруты dev-бэкенда.
package devserver

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/crewdoghq/crewdog-client/internal/bus"
	"github.com/crewdoghq/crewdog-client/internal/http/handlers/account/consume"
	accountsummary "github.com/crewdoghq/crewdog-client/internal/http/handlers/account/summary"
	"github.com/crewdoghq/crewdog-client/internal/http/handlers/auth/login"
	"github.com/crewdoghq/crewdog-client/internal/http/handlers/auth/register"
	"github.com/crewdoghq/crewdog-client/internal/http/middlewarectx"
	identityservice "github.com/crewdoghq/crewdog-client/internal/services/identity"
	"github.com/crewdoghq/crewdog-client/internal/storage"
)

// RegisterRoutes регистрирует все маршруты dev-бэкенда.
func RegisterRoutes(r chi.Router, logger *slog.Logger, identityService *identityservice.Service, db *storage.Storage, activity bus.Bus) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/register", register.New(logger, identityService).ServeHTTP)
		r.Post("/login", login.New(logger, identityService).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(identityService, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger, rate.NewLimiter(10, 30)))
			r.With(middlewarectx.CheckUserMiddleware(logger)).
				Get("/account/summary/{userID}", accountsummary.New(logger, db).ServeHTTP)
			r.Post("/account/consume", consume.New(logger, db, activity).ServeHTTP)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
