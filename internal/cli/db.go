package cli

import (
	"context"
	"path/filepath"

	"github.com/roach88/potholes/internal/config"
	"github.com/roach88/potholes/internal/importer"
	"github.com/roach88/potholes/internal/store"
	"github.com/roach88/potholes/internal/store/postgres"
)

// frameStore is what the frames commands need from either backend.
type frameStore interface {
	importer.Store
	CountByPayloadLength(ctx context.Context, n int) (int64, error)
	Close() error
}

var (
	_ frameStore = (*store.Store)(nil)
	_ frameStore = (*postgres.Store)(nil)
)

// openStore opens PostgreSQL when database.url is set and SQLite otherwise.
// It returns a short backend description for logging.
func openStore(ctx context.Context, cfg *config.Config) (frameStore, string, error) {
	if cfg.Database.URL != "" {
		st, err := postgres.Open(ctx, cfg.Database.URL)
		if err != nil {
			return nil, "", err
		}
		return st, "postgres", nil
	}

	path := resolvePath(cfg.BaseDir, cfg.Database.Path)
	st, err := store.Open(path)
	if err != nil {
		return nil, "", err
	}
	return st, "sqlite:" + path, nil
}

// resolvePath joins relative paths onto baseDir.
func resolvePath(baseDir, path string) string {
	if filepath.IsAbs(path) || baseDir == "" {
		return path
	}
	return filepath.Join(baseDir, path)
}
