// Package account собирает HTTP-приложение сервиса учётных записей.
package account

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	// Регистрирует описание API для /docs.
	_ "github.com/magabrotheeeer/account-service/docs"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/auth/token"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/health"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/user/business"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/user/me"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/verification/resend"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/verification/verify"
	"github.com/magabrotheeeer/account-service/internal/http/middlewarectx"
	authservice "github.com/magabrotheeeer/account-service/internal/services/auth"
	"github.com/magabrotheeeer/account-service/internal/services/provisioning"
)

// NewRouter создаёт chi.Router со всеми маршрутами приложения.
func NewRouter(logger *slog.Logger, authService *authservice.AuthService, provisioningService *provisioning.Service) http.Handler {
	router := chi.NewRouter()
	RegisterRoutes(router, logger, authService, provisioningService)
	return router
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, authService *authservice.AuthService, provisioningService *provisioning.Service) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
	)

	// Открытые конечные точки
	r.Get("/", health.New().ServeHTTP)
	r.Post("/token", token.New(logger, authService).ServeHTTP)
	r.Post("/registration", register.New(logger, authService).ServeHTTP)
	r.Get("/verification", verify.New(logger, authService).ServeHTTP)
	r.Post("/verification/resend", resend.New(logger, authService).ServeHTTP)

	// Группа с JWT аутентификацией
	r.Group(func(r chi.Router) {
		r.Use(middlewarectx.JWTMiddleware(authService, logger))
		meHandler := me.New(logger)
		r.Post("/user/me", meHandler.ServeHTTP)
		r.Get("/user/me", meHandler.ServeHTTP)
		r.With(middlewarectx.VerifiedOnly(logger)).
			Get("/user/business", business.New(logger, provisioningService).ServeHTTP)
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
