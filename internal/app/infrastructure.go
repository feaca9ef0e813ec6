package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"

	"github.com/chatterbox-app/auth-service/internal/config"
	"github.com/chatterbox-app/auth-service/pkg/database"
	"github.com/chatterbox-app/auth-service/pkg/observability"
)

// ConnPool is the bounded pool of pinned PostgreSQL connections every data
// access operation borrows from.
type ConnPool = database.Pool[*database.PgConn]

type Infrastructure interface {
	Pool() *ConnPool
	Redis() *database.Redis
	Logger() *zap.Logger
	MetricsHandler() http.Handler
	MeterProvider() *metric.MeterProvider

	Shutdown(ctx context.Context) error
}

type infrastructure struct {
	postgres       *database.Postgres
	pool           *ConnPool
	redis          *database.Redis
	logger         *zap.Logger
	metricsHandler http.Handler
	meterProvider  *metric.MeterProvider
}

var _ Infrastructure = &infrastructure{}

func NewInfrastructure(ctx context.Context, cfg config.Config) (*infrastructure, error) {
	i := &infrastructure{}

	logger, err := observability.InitLogger(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	i.logger = logger

	postgres, err := database.NewPostgres(cfg.Postgres.DSN(), cfg.Postgres.PoolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	i.postgres = postgres

	if err := database.Migrate(postgres, cfg.Postgres.MigrationsDir); err != nil {
		_ = i.postgres.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	pool, err := database.NewPool(ctx, postgres.Dial, cfg.Postgres.PoolSize, cfg.Postgres.BorrowTimeout.Duration, logger)
	if err != nil {
		_ = i.postgres.Close()
		return nil, fmt.Errorf("failed to build connection pool: %w", err)
	}
	i.pool = pool

	redis, err := database.NewRedis(cfg.Redis.Address(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		i.pool.Shutdown()
		_ = i.postgres.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	i.redis = redis

	meterProvider, metricsHandler, err := observability.InitTelemetry("auth-service")
	if err != nil {
		i.pool.Shutdown()
		_ = i.postgres.Close()
		_ = i.redis.Close()
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	i.meterProvider = meterProvider
	i.metricsHandler = metricsHandler

	return i, nil
}

func (i *infrastructure) Pool() *ConnPool {
	return i.pool
}

func (i *infrastructure) Redis() *database.Redis {
	return i.redis
}

func (i *infrastructure) Logger() *zap.Logger {
	return i.logger
}

func (i *infrastructure) MetricsHandler() http.Handler {
	return i.metricsHandler
}

func (i *infrastructure) MeterProvider() *metric.MeterProvider {
	return i.meterProvider
}

func (i *infrastructure) Shutdown(ctx context.Context) error {
	// Idle connections first; the database handle underneath goes last.
	i.pool.Shutdown()

	errs := make(chan error, 4)

	go func() { errs <- i.postgres.Close() }()
	go func() { errs <- i.redis.Close() }()
	go func() { errs <- i.logger.Sync() }()
	go func() { errs <- observability.Shutdown(ctx, i.meterProvider, i.logger) }()

	return errors.Join(<-errs, <-errs, <-errs, <-errs)
}
