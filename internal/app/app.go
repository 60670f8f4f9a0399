package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/wearedev-studio/skillgame-app-sub001/internal/config"
	"github.com/wearedev-studio/skillgame-app-sub001/internal/kvstore"
	"github.com/wearedev-studio/skillgame-app-sub001/internal/utils"
)

const (
	maxRetries     = 5
	connectTimeout = 5 * time.Second
	initialBackoff = 500 * time.Millisecond
)

type App struct {
	Config *config.Config
	DB     *pgxpool.Pool
	KV     kvstore.Store
}

func NewApp(cfg *config.Config) (*App, error) {
	var (
		dbPool  *pgxpool.Pool
		err     error
		backoff = initialBackoff
	)

	for i := 1; i <= maxRetries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		dbPool, err = newDBPool(ctx, cfg.DBUrl)
		cancel()
		if err == nil {
			utils.Logger.Infof("Successfully connected to database on attempt %d", i)
			break
		}

		utils.Logger.WithError(err).Warnf(
			"Failed to connect to database on attempt %d/%d. Retrying in %v...",
			i, maxRetries, backoff,
		)

		if i == maxRetries {
			return nil, fmt.Errorf("unable to connect to database after %d attempts: %w", maxRetries, err)
		}

		time.Sleep(backoff)
		backoff *= 2
	}

	var kv kvstore.Store
	if cfg.RedisURL != "" {
		redisStore, rerr := kvstore.NewRedisStore(cfg.RedisURL, cfg.AppName+":")
		if rerr != nil {
			dbPool.Close()
			return nil, fmt.Errorf("unable to connect to redis: %w", rerr)
		}
		utils.Logger.Info("Counter store: redis")
		kv = redisStore
	} else {
		// Single-instance fallback. Rate limits and monitor aggregates are
		// not shared across replicas in this mode.
		utils.Logger.Warn("REDIS_URL not set; using in-process counter store")
		kv = kvstore.NewMemoryStore()
	}

	return &App{
		Config: cfg,
		DB:     dbPool,
		KV:     kv,
	}, nil
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
		utils.Logger.Info("Database connection closed.")
	}
}

// newDBPool constructs the pgx pool with production-safe settings: idle
// sockets are retired before the platform proxy drops them, and a periodic
// health check keeps every connection warm.
func newDBPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}

	poolCfg.MaxConnIdleTime = 2 * time.Minute
	poolCfg.HealthCheckPeriod = 30 * time.Second

	return pgxpool.ConnectConfig(ctx, poolCfg)
}
