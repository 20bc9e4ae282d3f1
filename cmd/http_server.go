package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/user-management/internal"
	"github.com/frahmantamala/user-management/internal/auth"
	"github.com/frahmantamala/user-management/internal/core/events"
	"github.com/frahmantamala/user-management/internal/transport"
	"github.com/frahmantamala/user-management/internal/transport/rest"
	"github.com/frahmantamala/user-management/internal/transport/swagger"
	"github.com/frahmantamala/user-management/internal/user"
	"github.com/frahmantamala/user-management/pkg/logger"

	"github.com/go-chi/chi"
	"github.com/spf13/cobra"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config  *internal.Config
	Storage *Storage
	Bus     *events.Bus
	Router  *chi.Mux
	Logger  *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	defer deps.close()

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr, "driver", deps.Config.Database.Driver)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			deps.Logger.Error("Server failed to start", "error", err)
			deps.close()
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

func (d *Dependencies) close() {
	d.Bus.Wait()
	if err := d.Storage.Close(); err != nil {
		d.Logger.Error("Database close error", "error", err)
	}
}

func initializeDependencies(ctx context.Context) (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	lg := logger.Init(logger.Options{
		Level:  config.Observability.Logging.Level,
		Format: config.Observability.Logging.Format,
	})

	storage, err := openStorage(ctx, config.Database, lg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	bus := events.NewBus(lg)
	user.RegisterAuditLog(bus, lg)

	security := config.Security
	userService := user.NewService(storage.Repo, auth.NewBcryptHasher(security.BCryptCost), bus, user.RoleName(security.DefaultRole), lg)

	if admin := security.BootstrapAdmin; admin.Username != "" {
		u, created, err := userService.EnsureAdmin(ctx, admin.Username, admin.Password)
		if err != nil {
			_ = storage.Close()
			return nil, fmt.Errorf("failed to bootstrap admin: %w", err)
		}
		if created {
			lg.Info("bootstrap admin created", "user_id", u.ID, "username", u.Username)
		}
	}

	tokens := auth.NewJWTTokenGenerator(security.AccessTokenSecret, security.RefreshTokenSecret, security.AccessTokenDuration, security.RefreshTokenDuration)
	tokens.Issuer = security.Issuer

	doc, err := swagger.Load(ctx)
	if err != nil {
		_ = storage.Close()
		return nil, err
	}
	openAPI, err := swagger.SpecHandler(doc)
	if err != nil {
		_ = storage.Close()
		return nil, err
	}

	base := transport.NewBaseHandler(lg)
	rbac := auth.NewRBACAuthorization(auth.NewPermissionChecker(), lg)

	metricsPath := ""
	if config.Observability.Metrics.Enabled {
		metricsPath = config.Observability.Metrics.Path
	}

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, rest.Dependencies{
		Guard:       auth.NewGuard(base, tokens, userService, rbac),
		AuthHandler: auth.NewHandler(base, auth.NewService(userService, tokens, lg)),
		UserHandler: user.NewHandler(base, userService),
		Health:      rest.NewHealthHandler(storage.Components),
		OpenAPI:     openAPI,
		Logger:      lg,
		Options: rest.Options{
			EnforceReadPermission: security.EnforceReadPermission,
			MetricsPath:           metricsPath,
			AllowedOrigins:        config.Server.AllowedOrigins,
		},
	})

	return &Dependencies{
		Config:  config,
		Storage: storage,
		Bus:     bus,
		Router:  router,
		Logger:  lg,
	}, nil
}
