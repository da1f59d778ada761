package infra

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/currency/internal/config"
	"github.com/congo-pay/currency/internal/ledger"
)

// Backends bundles the connections opened for a configuration and the
// ledger store built on top of them.
type Backends struct {
	DB    *pgxpool.Pool
	Cache *redis.Client
	Store ledger.Store
}

// Open connects to Postgres and Redis when they are configured and builds
// the ledger store selected by STORE_BACKEND.
func Open(ctx context.Context, cfg config.Config) (*Backends, error) {
	b := &Backends{}

	if cfg.DatabaseURL != "" {
		db, err := NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		b.DB = db
	}

	if cfg.RedisURL != "" {
		cache, err := NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.Cache = cache
	}

	switch cfg.StoreBackend {
	case config.BackendPostgres:
		if b.DB == nil {
			b.Close()
			return nil, fmt.Errorf("postgres store requires a database url")
		}
		pg := ledger.NewPostgresStore(b.DB)
		if err := pg.EnsureSchema(ctx); err != nil {
			b.Close()
			return nil, err
		}
		b.Store = pg
	case config.BackendRedis:
		if b.Cache == nil {
			b.Close()
			return nil, fmt.Errorf("redis store requires a redis url")
		}
		b.Store = ledger.NewRedisStore(b.Cache, "")
	case config.BackendMemory:
		b.Store = ledger.NewInMemory()
	default:
		b.Close()
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	return b, nil
}

// Close releases every open connection.
func (b *Backends) Close() error {
	var err error
	if b.Cache != nil {
		err = b.Cache.Close()
	}
	if b.DB != nil {
		b.DB.Close()
	}
	return err
}
