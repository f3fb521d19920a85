package app

import (
	"context"
	"database/sql"
	"net/http"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	libredis "greenhouse/libs/redis"

	"greenhouse/internal/auth"
	"greenhouse/internal/config"
	httpserver "greenhouse/internal/http"
	"greenhouse/internal/http/handlers"
	"greenhouse/internal/http/middleware"
	"greenhouse/internal/repository"
	"greenhouse/internal/service"
	"greenhouse/internal/ws"
	"greenhouse/libs/db"
)

// App wires greenhouse API dependencies.
type App struct {
	server *httpserver.Server
	db     *sql.DB
	redis  *goredis.Client
	hub    *ws.Hub
	logger *zap.Logger
}

// New constructs the application graph.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	pool, err := db.NewPostgres(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	readingRepo := repository.NewReadingRepository(pool)
	if err := readingRepo.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	hub := ws.NewHub(0, logger)
	readingsService := service.NewReadingsService(readingRepo, hub, logger)

	readingsHandlers := handlers.NewReadingsHandlers(readingsService, logger)

	authenticator := auth.New(cfg.Auth.Token)
	router := httpserver.NewRouter(httpserver.RouterDeps{
		ReadingsHandlers: readingsHandlers,
		StreamHandler:    hub.Handler(),
		HealthHandler:    handlers.NewHealthHandler(),
	}, middleware.RequireToken(authenticator))

	var redisClient *goredis.Client
	middlewares := []func(http.Handler) http.Handler{
		middleware.Recovery(logger),
		middleware.RequestLogger(logger),
		middleware.CORS(cfg.CORS.Origins),
	}

	if cfg.RateLimit.Enabled {
		var counter middleware.CounterStore
		if cfg.Redis.Addr != "" {
			redisClient, err = libredis.NewClient(cfg.Redis.Addr, cfg.Redis.Password)
			if err != nil {
				pool.Close()
				return nil, err
			}
			counter = middleware.NewRedisCounter(redisClient)
		} else {
			counter = middleware.NewMemoryCounter()
		}
		middlewares = append(middlewares, middleware.RateLimit(counter, cfg.RateLimit.PerMinute, logger))
	}

	middlewares = append(middlewares, middleware.MaxRequestSize(cfg.MaxRequestSize, logger))

	server := httpserver.NewServer(cfg.HTTPAddress(), router, logger, middlewares...)

	return &App{
		server: server,
		db:     pool,
		redis:  redisClient,
		hub:    hub,
		logger: logger,
	}, nil
}

// Run starts serving HTTP traffic.
func (a *App) Run(ctx context.Context) error {
	return a.server.Run(ctx)
}

// Close releases resources.
func (a *App) Close() {
	if a.hub != nil {
		a.hub.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
}
