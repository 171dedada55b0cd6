package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sjournalfx-cmyk/teamhub/internal/config"
	"github.com/sjournalfx-cmyk/teamhub/internal/db"
	"github.com/sjournalfx-cmyk/teamhub/internal/migrate"
	"github.com/sjournalfx-cmyk/teamhub/internal/snapshot"
	"github.com/sjournalfx-cmyk/teamhub/internal/store"
)

// Workspace is one opened workspace: config, database, snapshot layer,
// and the live state store. Close when done.
type Workspace struct {
	Config *config.Config
	DB     *sql.DB
	Snap   snapshot.Store
	Store  *store.Store
}

func (w *Workspace) Close() error {
	if w.DB == nil {
		return nil
	}
	return w.DB.Close()
}

// Open loads config, opens and migrates the workspace database, and
// hydrates the state store from the latest snapshot. Missing workspace
// files are created on the fly.
func Open(ctx context.Context, workspace string) (*Workspace, error) {
	cfg, err := config.Load(workspace)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		return nil, fmt.Errorf("ensure workspace: %w", err)
	}
	sqlDB, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := migrate.Migrate(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	snap := snapshot.New(sqlDB)
	if cfg.Workspace.SnapshotKey != "" {
		snap.Key = cfg.Workspace.SnapshotKey
	}
	return &Workspace{
		Config: cfg,
		DB:     sqlDB,
		Snap:   snap,
		Store:  store.Open(ctx, snap),
	}, nil
}
