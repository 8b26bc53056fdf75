package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"fieldpay/internal/domain/audit"
	"fieldpay/internal/domain/auth"
	"fieldpay/internal/domain/collection"
	"fieldpay/internal/domain/core"
	"fieldpay/internal/domain/reports"
	"fieldpay/internal/domain/sheet"
	"fieldpay/internal/platform/cache"
	"fieldpay/internal/platform/config"
	"fieldpay/internal/platform/db"
	"fieldpay/internal/platform/events"
	"fieldpay/internal/platform/jobs"
	"fieldpay/internal/platform/metrics"
	"fieldpay/internal/transport/http/api"
	audithandler "fieldpay/internal/transport/http/handlers/audit"
	authhandler "fieldpay/internal/transport/http/handlers/auth"
	collectionhandler "fieldpay/internal/transport/http/handlers/collection"
	corehandler "fieldpay/internal/transport/http/handlers/core"
	reportshandler "fieldpay/internal/transport/http/handlers/reports"
	sheethandler "fieldpay/internal/transport/http/handlers/sheet"
	"fieldpay/internal/transport/http/middleware"
)

// Routes is an API handler group mounted under /api/v1.
type Routes interface {
	RegisterRoutes(r chi.Router)
}

type RouterDeps struct {
	Auth     *authhandler.Handler
	Handlers []Routes
	Ready    func(ctx context.Context) error
	Metrics  *metrics.Collector
}

// NewRouter assembles the middleware chain and mounts every handler group.
func NewRouter(cfg config.Config, logger *zap.Logger, deps RouterDeps) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger, deps.Metrics))
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.RateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst))
	router.Use(middleware.Auth(cfg.JWTSecret))
	router.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if deps.Ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := deps.Ready(ctx); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled && deps.Metrics != nil {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, deps.Metrics.Snapshot(), middleware.GetRequestID(r.Context()))
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		if deps.Auth != nil {
			deps.Auth.RegisterPublicRoutes(r)
			deps.Auth.RegisterRoutes(r)
		}
		for _, h := range deps.Handlers {
			h.RegisterRoutes(r)
		}
	})

	return router
}

// App owns the process-wide resources behind the HTTP handler.
type App struct {
	Config  config.Config
	Logger  *zap.Logger
	Pool    *pgxpool.Pool
	Redis   *redis.Client
	Events  events.Publisher
	Jobs    *jobs.Service
	Metrics *metrics.Collector
	Router  http.Handler
}

// New connects to Postgres (and Redis and Kafka when configured), prepares the schema,
// and wires every service into the router.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	app := &App{Config: cfg, Logger: logger, Pool: pool, Metrics: metrics.New(), Events: events.NopPublisher{}}

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir, logger); err != nil {
			app.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg, logger); err != nil {
			app.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	if cfg.RedisAddr != "" {
		app.Redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := app.Redis.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, rate cache falls back to postgres", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
	}
	if cfg.KafkaEnabled {
		app.Events = events.NewKafkaPublisher(cfg.KafkaBrokers, logger)
	}

	rateCache := cache.New(app.Redis, "fieldpay:", cfg.RateCacheTTL, logger)
	coreService := core.NewService(core.NewStore(pool), rateCache, logger)
	collectionService := collection.NewService(collection.NewStore(pool), coreService, logger)
	sheetService := sheet.NewService(sheet.NewStore(pool), coreService, collectionService, cfg.Rules(),
		sheet.WithPublisher(app.Events),
		sheet.WithMetrics(app.Metrics),
		sheet.WithLogger(logger),
	)
	reportsService := reports.NewService(coreService, collectionService, logger)
	authService := auth.NewService(auth.NewStore(pool), cfg.JWTSecret, cfg.TokenTTL, logger)
	auditService := audit.New(pool, logger)
	jobRuns := jobs.NewStore(pool)
	app.Jobs = jobs.New(jobRuns, logger)

	app.Router = NewRouter(cfg, logger, RouterDeps{
		Auth: authhandler.NewHandler(authService, auditService),
		Handlers: []Routes{
			corehandler.NewHandler(coreService, auditService),
			collectionhandler.NewHandler(collectionService, auditService),
			sheethandler.NewHandler(sheetService, app.Jobs, coreService, auditService),
			reportshandler.NewHandler(reportsService, jobRuns),
			audithandler.NewHandler(auditService),
		},
		Ready:   pool.Ping,
		Metrics: app.Metrics,
	})
	return app, nil
}

// Close releases the pool, redis client and kafka writer.
func (a *App) Close() {
	if closer, ok := a.Events.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			a.Logger.Warn("event publisher close failed", zap.Error(err))
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			a.Logger.Warn("redis close failed", zap.Error(err))
		}
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
}
