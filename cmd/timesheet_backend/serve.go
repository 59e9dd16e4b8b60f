package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/SscSPs/timesheet_app/internal/adapters/database/pgsql"
	"github.com/SscSPs/timesheet_app/internal/adapters/database/sqlite"
	portsrepo "github.com/SscSPs/timesheet_app/internal/core/ports/repositories"
	"github.com/SscSPs/timesheet_app/internal/core/services"
	"github.com/SscSPs/timesheet_app/internal/handlers"
	"github.com/SscSPs/timesheet_app/internal/middleware"
	"github.com/SscSPs/timesheet_app/internal/platform/config"
	"github.com/SscSPs/timesheet_app/internal/utils"
	"github.com/SscSPs/timesheet_app/pkg/database"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"
)

var skipMigrations bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, cfg, err := bootstrap()
		if err != nil {
			return err
		}
		return serve(cmd.Context(), logger, cfg)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not apply pending migrations on startup")
}

func serve(parent context.Context, logger *slog.Logger, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, closeStore, err := openStore(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	posthogClient := utils.InitializePosthogClient(cfg.PosthogAPIKey, logger)
	defer posthogClient.Close()

	serviceContainer, err := services.NewServiceContainer(cfg, repos, services.WithEventPublisher(posthogClient))
	if err != nil {
		logger.Error("Failed to build services", slog.String("error", err.Error()))
		return err
	}

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware (logging, recovery, CORS, analytics)
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	r.Use(cors.New(corsConfig))
	r.Use(middleware.PosthogMiddleware(posthogClient))

	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		return err
	}

	if err := handlers.RegisterRoutes(r, cfg, serviceContainer); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server starting", slog.String("port", cfg.Port), slog.String("driver", cfg.DatabaseDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Error("Server failed to run", slog.String("error", err.Error()))
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openStore connects the configured database and returns its repositories with a close func.
func openStore(ctx context.Context, logger *slog.Logger, cfg *config.Config) (portsrepo.RepositoryProvider, func(), error) {
	switch cfg.DatabaseDriver {
	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			logger.Error("Failed to open SQLite database", slog.String("path", cfg.SQLitePath), slog.String("error", err.Error()))
			return portsrepo.RepositoryProvider{}, nil, err
		}
		logger.Info("SQLite database opened", slog.String("path", cfg.SQLitePath))
		return sqlite.NewRepositoryProvider(db), func() { db.Close() }, nil

	case config.DriverPostgres:
		if !skipMigrations {
			if err := runMigrations(logger, cfg, func(m *migrate.Migrate) error { return m.Up() }); err != nil {
				logger.Error("Failed to migrate database", slog.String("error", err.Error()))
				return portsrepo.RepositoryProvider{}, nil, err
			}
		}
		dbPool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, cfg.EnableDBCheck)
		if err != nil {
			logger.Error("Failed to initialize database pool", slog.String("error", err.Error()))
			return portsrepo.RepositoryProvider{}, nil, err
		}
		logger.Info("Database connection pool established.")
		return pgsql.NewRepositoryProvider(dbPool), func() { database.ClosePgxPool(dbPool) }, nil
	}
	return portsrepo.RepositoryProvider{}, nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
}
