package store

import (
	"context"
	"fmt"

	"github.com/tecton-ai/tecton-mcp/internal/config"
)

// OpenIndex opens the backend selected by cfg.Backend.
func OpenIndex(ctx context.Context, cfg config.StoreConfig) (Index, error) {
	switch cfg.Backend {
	case "", "sqlite":
		return OpenSQLiteIndex(cfg.SQLitePath)
	case "qdrant":
		manifest, err := LoadManifest(cfg.ManifestPath)
		if err != nil {
			return nil, err
		}
		return NewQdrant(cfg.Qdrant.Host, cfg.Qdrant.Port, cfg.Qdrant.APIKey, cfg.Qdrant.CollectionPrefix, manifest)
	case "pgvector":
		return NewPGVector(ctx, cfg.Postgres.DSN)
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", cfg.Backend)
	}
}
