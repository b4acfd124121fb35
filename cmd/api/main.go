// Package main is the entrypoint for the Shopcore API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/shopcore/shopcore/internal/audit"
	"github.com/shopcore/shopcore/internal/auth"
	"github.com/shopcore/shopcore/internal/cache"
	"github.com/shopcore/shopcore/internal/config"
	"github.com/shopcore/shopcore/internal/dispatch"
	"github.com/shopcore/shopcore/internal/handler"
	"github.com/shopcore/shopcore/internal/middleware"
	"github.com/shopcore/shopcore/internal/repository"
	"github.com/shopcore/shopcore/internal/server"
)

func main() {
	// Initialize context
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg)

	// Initialize database
	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	dbRouter := repository.NewRouter()
	dbRouter.Register(repository.DefaultKey, repo)

	// Initialize cache
	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	// Session tokens
	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		logger.Error("failed to initialize token manager", "error", err)
		os.Exit(1)
	}

	// Dispatcher, with the audit trail attached when enabled
	dispatchOpts := []dispatch.Option{}
	var auditWorker *audit.Worker
	if cfg.AuditEnabled {
		publisher := audit.NewPublisher(cacheClient.Client(), logger)
		dispatchOpts = append(dispatchOpts, dispatch.WithAuditor(publisher))
		auditWorker = audit.NewWorker(cacheClient.Client(), repo, logger, audit.NewConsumerID())
	}
	dispatcher := dispatch.New(logger, dispatchOpts...)

	// Initialize handlers
	h := handler.New()
	statusHandler := handler.NewStatusHandler(dbRouter, cacheClient)
	entityHandler := handler.NewEntityHandler(dispatcher, logger)
	authHandler := handler.NewAuthHandler(tokens, cacheClient, logger)

	// Setup router
	r := setupRouter(h, statusHandler, entityHandler, authHandler, dbRouter, cacheClient, tokens, cfg, logger)

	// Create and run server
	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	if auditWorker != nil {
		workerCtx, cancelWorker := context.WithCancel(ctx)
		go func() {
			if err := auditWorker.Run(workerCtx); err != nil {
				logger.Error("audit worker stopped", "error", err)
			}
		}()
		srv.OnShutdown("audit_worker", func(ctx context.Context) error {
			defer cancelWorker()
			return auditWorker.Shutdown(ctx)
		})
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"audit_enabled", cfg.AuditEnabled,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(
	h *handler.Handler,
	statusHandler *handler.StatusHandler,
	entityHandler *handler.EntityHandler,
	authHandler *handler.AuthHandler,
	dbRouter *repository.Router,
	cacheClient *cache.Cache,
	tokens *auth.TokenManager,
	cfg *config.Config,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{
		IsDevelopment: cfg.IsDevelopment(),
	}))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))
	r.Use(middleware.Database(dbRouter))

	// Liveness endpoint (no auth required)
	r.Get("/status/", statusHandler.Status)

	// Auth middleware configuration
	authCfg := middleware.AuthConfig{
		Logger:      logger,
		Tokens:      tokens,
		Revocations: cacheClient,
	}

	// Rate limit middleware configuration
	rateLimitCfg := middleware.RateLimitConfig{
		Logger:            logger,
		Cache:             cacheClient,
		Enabled:           cfg.RateLimitLoginEnabled,
		AttemptsPerMinute: cfg.RateLimitLoginPerMinute,
		Burst:             cfg.RateLimitLoginBurst,
	}

	// Session endpoints
	r.With(middleware.RateLimitLogin(rateLimitCfg)).Post("/authenticate/login", authHandler.Login)
	r.With(middleware.Auth(authCfg)).Get("/authenticate/logout", authHandler.Logout)

	// Generic entity operations (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(authCfg))

		r.Get("/{entity}/{operation}/", entityHandler.Collection)
		r.Post("/{entity}/{operation}/", entityHandler.Collection)
		r.Get("/{entity}/{operation}/{id}/", entityHandler.Member)
		r.Put("/{entity}/{operation}/{id}/", entityHandler.Member)
		r.Delete("/{entity}/{operation}/{id}", entityHandler.Member)
	})

	// 404 and 405 handlers
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
