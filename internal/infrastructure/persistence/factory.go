// Package persistence wires a configured storage backend to the kv.Store
// contract the engine runs against.
package persistence

import (
	"context"
	"fmt"

	"github.com/ext-flex/extflex-engine/config"
	"github.com/ext-flex/extflex-engine/internal/infrastructure/persistence/kv"
	"github.com/ext-flex/extflex-engine/internal/infrastructure/persistence/postgres"
	"github.com/ext-flex/extflex-engine/internal/infrastructure/persistence/redis"
	"github.com/ext-flex/extflex-engine/internal/infrastructure/persistence/sqlite"
)

// Open builds the store selected by the configuration.
func Open(ctx context.Context, cfg config.StorageConfig) (kv.Store, error) {
	switch cfg.Backend {
	case config.BackendMemory, "":
		return kv.NewMemoryStore(), nil

	case config.BackendSQLite:
		return sqlite.NewStore(cfg.SQLitePath)

	case config.BackendRedis:
		rc := redis.DefaultConfig()
		rc.Host = cfg.RedisHost
		rc.Port = cfg.RedisPort
		rc.Password = cfg.RedisPassword
		rc.DB = cfg.RedisDB
		if cfg.RedisKeyPrefix != "" {
			rc.KeyPrefix = cfg.RedisKeyPrefix
		}
		if cfg.RedisPoolSize > 0 {
			rc.PoolSize = cfg.RedisPoolSize
		}
		return redis.NewStore(rc)

	case config.BackendPostgres:
		if cfg.PostgresURL != "" {
			return postgres.NewStoreFromURL(ctx, cfg.PostgresURL, cfg.PostgresTable)
		}
		pc := postgres.DefaultConfig()
		pc.Host = cfg.PostgresHost
		pc.Port = cfg.PostgresPort
		pc.Database = cfg.PostgresDB
		pc.User = cfg.PostgresUser
		pc.Password = cfg.PostgresPass
		pc.SSLMode = cfg.PostgresSSL
		if cfg.PostgresTable != "" {
			pc.Table = cfg.PostgresTable
		}
		return postgres.NewStore(ctx, pc)

	default:
		return nil, fmt.Errorf("persistence: unknown backend %q", cfg.Backend)
	}
}
