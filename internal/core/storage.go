package core

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"orgroster/internal/config"
	"orgroster/internal/infra/persistence/jsonfile"
	"orgroster/internal/infra/persistence/memory"
	"orgroster/internal/infra/persistence/postgres"
	"orgroster/internal/infra/persistence/sqlite"
	"orgroster/pkg/domain"
)

// StorageDriver identifies a concrete document store implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageJSON     StorageDriver = "json"     // flat JSON document file
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// OpenDocumentStore selects a backend from the storage settings. An empty
// driver means json.
func OpenDocumentStore(ctx context.Context, cfg config.Storage, log zerolog.Logger) (domain.DocumentStore, error) {
	driver := StorageDriver(cfg.Driver)
	if driver == "" {
		driver = StorageJSON
	}
	log.Debug().Str("driver", string(driver)).Bool("strict", cfg.Strict).Msg("opening document store")
	switch driver {
	case StorageMemory:
		return memory.NewStore(), nil
	case StorageJSON:
		return jsonfile.New(cfg.DataPath, jsonfile.WithStrict(cfg.Strict)), nil
	case StorageSQLite:
		store, err := sqlite.NewStore(cfg.SQLitePath, cfg.Strict)
		if err != nil {
			return nil, err
		}
		return store, nil
	case StoragePostgres:
		store, err := postgres.NewStore(ctx, cfg.PostgresDSN,
			postgres.WithStrict(cfg.Strict),
			postgres.WithRetryNotify(func(err error, wait time.Duration) {
				log.Warn().Err(err).Dur("retry_in", wait).Msg("postgres not ready")
			}))
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
