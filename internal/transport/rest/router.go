package rest

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/user-management/internal/auth"
	"github.com/frahmantamala/user-management/internal/transport/middleware"
	"github.com/frahmantamala/user-management/internal/transport/swagger"
	"github.com/frahmantamala/user-management/internal/user"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Route binds a handler to the policy the guard enforces before it runs.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
	Policy  auth.RoutePolicy
}

type Options struct {
	// EnforceReadPermission additionally requires permission.read.user on
	// the user lookup routes, which otherwise only need a valid access token.
	EnforceReadPermission bool
	// MetricsPath exposes Prometheus metrics when non-empty.
	MetricsPath    string
	AllowedOrigins []string
}

type Dependencies struct {
	Guard       *auth.Guard
	AuthHandler *auth.Handler
	UserHandler *user.Handler
	Health      *HealthHandler
	OpenAPI     http.Handler
	Logger      *slog.Logger
	Options     Options
}

// Routes is the API route table.
func Routes(authHandler *auth.Handler, userHandler *user.Handler, opts Options) []Route {
	read := auth.RequireAuth()
	if opts.EnforceReadPermission {
		read = auth.RequirePermissions(user.PermissionReadUser)
	}

	return []Route{
		{http.MethodPost, "/auth/login", authHandler.Login, auth.PublicRoute()},
		{http.MethodPost, "/auth/register", authHandler.Register, auth.PublicRoute()},
		{http.MethodPost, "/auth/refresh", authHandler.Refresh, auth.RequireRefresh()},

		{http.MethodPost, "/users", userHandler.Create, auth.RequireRoles(user.RoleAdmin).WithPermissions(user.PermissionCreateUser)},
		{http.MethodGet, "/users/all", userHandler.FindAll, read},
		{http.MethodGet, "/users", userHandler.FindByUsername, read},
		{http.MethodGet, "/users/{id}", userHandler.FindByID, read},
		{http.MethodPut, "/users/{id}", userHandler.Update, auth.RequirePermissions(user.PermissionUpdateUser)},
		{http.MethodDelete, "/users/{id}", userHandler.Delete, auth.RequirePermissions(user.PermissionDeleteUser)},
	}
}

func RegisterAllRoutes(router *chi.Mux, deps Dependencies) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	health := deps.Health
	if health == nil {
		health = NewHealthHandler(nil)
	}

	// Apply global middleware
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.Metrics)
	router.Use(middleware.CORS(deps.Options.AllowedOrigins))

	router.Get("/ping", health.pingHandler)
	router.Get("/health", health.healthCheckHandler)
	if deps.Options.MetricsPath != "" {
		router.Handle(deps.Options.MetricsPath, promhttp.Handler())
	}
	if deps.OpenAPI != nil {
		router.Handle(swagger.SpecPath, deps.OpenAPI)
		router.Handle("/swagger/*", swagger.Handler())
	}

	for _, rt := range Routes(deps.AuthHandler, deps.UserHandler, deps.Options) {
		router.With(deps.Guard.Middleware(rt.Policy)).Method(rt.Method, rt.Pattern, rt.Handler)
	}
}
