package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	"github.com/tmacam/dcrawl/config"
	"github.com/tmacam/dcrawl/internal/store"
	"github.com/tmacam/dcrawl/internal/store/boltstore"
	"github.com/tmacam/dcrawl/internal/store/fsstore"
	"github.com/tmacam/dcrawl/internal/store/pgstore"
)

// OpenStore opens one logical Durable Store under the configured
// backend: name is a namespace such as "article/pending" or "clients"
// that each backend maps onto its own directory, bucket, or row
// namespace. db is only consulted for the postgres backend.
func OpenStore(ctx context.Context, cfg config.StoreConfig, db *sql.DB, name string) (store.Store, error) {
	switch cfg.Backend {
	case config.StoreBackendBolt:
		s, err := boltstore.Open(cfg.BoltPath, name)
		if err != nil {
			return nil, fmt.Errorf("open bolt store %s: %w", name, err)
		}
		return s, nil
	case config.StoreBackendPostgres:
		if db == nil {
			return nil, fmt.Errorf("open postgres store %s: no database connection", name)
		}
		if err := pgstore.EnsureSchema(ctx, db, cfg.Postgres.Table); err != nil {
			return nil, fmt.Errorf("ensure postgres schema for %s: %w", name, err)
		}
		return pgstore.Open(db, cfg.Postgres.Table, name), nil
	default:
		s, err := fsstore.Open(filepath.Join(cfg.FSDir, name))
		if err != nil {
			return nil, fmt.Errorf("open fs store %s: %w", name, err)
		}
		return s, nil
	}
}
