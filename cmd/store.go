package cmd

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/kozaktomas/photo-collage/internal/config"
	"github.com/kozaktomas/photo-collage/internal/database"
	"github.com/kozaktomas/photo-collage/internal/database/mock"
	"github.com/kozaktomas/photo-collage/internal/database/postgres"
)

// openRegionStore returns the keep-region cache: PostgreSQL when
// DATABASE_URL is set, otherwise a process-local in-memory store.
func openRegionStore(ctx context.Context, cfg *config.Config, logger *log.Logger) (database.KeepRegionWriter, error) {
	if cfg.Database.URL == "" {
		logger.Info("DATABASE_URL not set, using in-memory keep-region cache")
		return mock.NewMockKeepRegionStore(), nil
	}

	logger.Info("connecting to PostgreSQL")
	if err := postgres.Initialize(ctx, &cfg.Database, logger); err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	store, err := database.GetKeepRegionWriter(ctx)
	if err != nil {
		return nil, err
	}
	if n, err := store.Count(ctx); err == nil {
		logger.Info("keep-region cache ready", "records", n)
	}
	return store, nil
}

// closeRegionStore releases the PostgreSQL pool if one was opened.
func closeRegionStore() {
	if pool := postgres.GetGlobalPool(); pool != nil {
		pool.Close()
	}
}
