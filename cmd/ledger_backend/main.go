package main

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

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	portsrepo "github.com/mar0580/teste-sistema-bancario/internal/core/ports/repositories"
	"github.com/mar0580/teste-sistema-bancario/internal/core/services"
	"github.com/mar0580/teste-sistema-bancario/internal/handlers"
	"github.com/mar0580/teste-sistema-bancario/internal/middleware"
	"github.com/mar0580/teste-sistema-bancario/internal/platform/config"
	"github.com/mar0580/teste-sistema-bancario/internal/platform/locker"
	"github.com/mar0580/teste-sistema-bancario/internal/platform/seed"
	"github.com/mar0580/teste-sistema-bancario/internal/repositories/database/mysql"
	"github.com/mar0580/teste-sistema-bancario/internal/repositories/database/pgsql"
	"github.com/mar0580/teste-sistema-bancario/internal/repositories/memory"
	"github.com/mar0580/teste-sistema-bancario/pkg/database"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 10 * time.Second

// @title Ledger API
// @version 1.0
// @description Account ledger with credits, debits, transfers and transaction history.

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @security BearerAuth
func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("Server exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	var redisClient *redis.Client
	var lk locker.Locker
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer database.CloseRedis(redisClient)

		opts := locker.DefaultRedisOptions()
		opts.Expiry = cfg.LockTTL
		lk, err = locker.NewRedisLocker(redisClient, opts)
		if err != nil {
			return fmt.Errorf("failed to create distributed locker: %w", err)
		}
		logger.Info("Using Redis for account locks and rate limiting")
	}

	container := services.NewServiceContainer(cfg, repos, lk)
	logger.Info("Ledger service ready",
		slog.String("store", cfg.LedgerStore),
		slog.String("lock_strategy", cfg.LockStrategy),
		slog.Int("max_retries", cfg.MaxRetries))

	if cfg.SeedFile != "" {
		f, err := seed.Load(cfg.SeedFile)
		if err != nil {
			return err
		}
		if _, err := seed.Apply(ctx, container.Ledger, f, logger); err != nil {
			return fmt.Errorf("failed to apply seed file: %w", err)
		}
	}

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := handlers.RegisterValidators(); err != nil {
		return err
	}

	r := gin.New()

	// Global middleware (logging, recovery)
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  cfg.CORSAllowedOrigins,
			AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
			ExposeHeaders: []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
			MaxAge:        12 * time.Hour,
		}))
	}

	rateLimiter, err := middleware.NewRateLimiter(cfg.RateLimit, redisClient)
	if err != nil {
		return err
	}
	r.Use(middleware.RateLimit(rateLimiter))

	if err := r.SetTrustedProxies(nil); err != nil {
		return fmt.Errorf("failed to set trusted proxies: %w", err)
	}

	handlers.RegisterRoutes(r, cfg, container)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server starting", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// openStore connects the configured backend and returns its repositories with a cleanup func.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (portsrepo.RepositoryProvider, func(), error) {
	switch cfg.LedgerStore {
	case config.StorePostgres:
		dbPool, err := database.NewPgxPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return portsrepo.RepositoryProvider{}, nil, err
		}
		logger.Info("Database connection pool established.")
		if err := runMigrations(cfg.DatabaseURL, logger); err != nil {
			database.ClosePgxPool(dbPool)
			return portsrepo.RepositoryProvider{}, nil, err
		}
		return pgsql.NewRepositoryProvider(dbPool), func() { database.ClosePgxPool(dbPool) }, nil

	case config.StoreMySQL:
		db, err := database.NewMySQL(ctx, database.DefaultMySQLOptions(cfg.MySQLDSN, cfg.MySQLLogLevel))
		if err != nil {
			return portsrepo.RepositoryProvider{}, nil, err
		}
		if err := mysql.AutoMigrate(ctx, db); err != nil {
			database.CloseMySQL(db)
			return portsrepo.RepositoryProvider{}, nil, err
		}
		return mysql.NewRepositoryProvider(db), func() { database.CloseMySQL(db) }, nil

	default:
		logger.Warn("Using the in-memory store; balances are lost on restart")
		return memory.NewRepositoryProvider(memory.NewStore()), func() {}, nil
	}
}
