package infra

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/playmaxx/playmaxx/internal/config"
	"github.com/playmaxx/playmaxx/internal/session"
)

// Backends holds the connections opened for the configured store engine.
// Cache is set whenever REDIS_URL is configured, even when the session store
// itself lives elsewhere, so rate limiting and the mutation gate can use it.
type Backends struct {
	KV    session.KV
	Cache *redis.Client
	DB    *pgxpool.Pool

	engine string
}

// Open connects the session store engine selected by cfg.StoreEngine.
func Open(ctx context.Context, cfg config.Config) (*Backends, error) {
	b := &Backends{engine: cfg.StoreEngine}

	if cfg.RedisURL != "" {
		cache, err := NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		b.Cache = cache
	}

	switch cfg.StoreEngine {
	case session.EngineMemory:
		b.KV = session.NewMemoryKV()
	case session.EngineSQLite:
		kv, err := session.NewSQLiteKV(ctx, cfg.StorePath)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.KV = kv
	case session.EngineRedis:
		if b.Cache == nil {
			return nil, fmt.Errorf("redis url is required")
		}
		b.KV = session.NewRedisKV(b.Cache)
	case session.EnginePostgres:
		db, err := NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.DB = db
		kv := session.NewPostgresKV(db)
		if err := kv.EnsureSchema(ctx); err != nil {
			b.Close()
			return nil, fmt.Errorf("ensure session schema: %w", err)
		}
		b.KV = kv
	default:
		b.Close()
		return nil, fmt.Errorf("%w: %q", session.ErrUnknownEngine, cfg.StoreEngine)
	}
	return b, nil
}

// Engine returns the store engine name.
func (b *Backends) Engine() string { return b.engine }

// Close releases every connection exactly once. The redis and postgres
// engines own their connection once KV is set.
func (b *Backends) Close() error {
	var errs []error
	if b.KV != nil {
		errs = append(errs, b.KV.Close())
	}
	if b.Cache != nil && (b.engine != session.EngineRedis || b.KV == nil) {
		errs = append(errs, b.Cache.Close())
	}
	if b.DB != nil && b.KV == nil {
		b.DB.Close()
	}
	return errors.Join(errs...)
}
