package core

import (
	"context"
	"fmt"
	"yardops/internal/infra/persistence/memory"
	"yardops/internal/infra/persistence/mongo"
	"yardops/internal/infra/persistence/postgres"
	"yardops/internal/infra/persistence/sqlite"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
	StorageMongo    StorageDriver = "mongo"    // MongoDB, non-atomic across collections
)

// StorageConfig selects and parameterises a backend.
type StorageConfig struct {
	Driver      StorageDriver
	SQLitePath  string
	PostgresDSN string
	MongoURI    string
	MongoDB     string
}

// OpenPersistentStore opens the configured backend with engine evaluating
// commit-time rules. An empty driver selects sqlite.
func OpenPersistentStore(ctx context.Context, cfg StorageConfig, engine *RulesEngine) (PersistentStore, error) {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	driver := cfg.Driver
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(engine), nil
	case StorageSQLite:
		s, err := sqlite.NewStore(cfg.SQLitePath, engine)
		if err != nil {
			return nil, err
		}
		return s, nil
	case StoragePostgres:
		s, err := postgres.NewStore(cfg.PostgresDSN, engine)
		if err != nil {
			return nil, err
		}
		return s, nil
	case StorageMongo:
		s, err := mongo.NewStore(ctx, cfg.MongoURI, cfg.MongoDB, engine)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
