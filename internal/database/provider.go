package database

import (
	"context"
	"fmt"
)

var (
	postgresKeepRegionWriter func() KeepRegionWriter
	postgresInitialized      bool
)

// RegisterPostgresBackend registers PostgreSQL repository constructors.
// This is called by the postgres package to avoid import cycles.
func RegisterPostgresBackend(keepRegions func() KeepRegionWriter) {
	postgresKeepRegionWriter = keepRegions
	postgresInitialized = true
}

// IsInitialized returns whether the PostgreSQL backend has been initialized.
func IsInitialized() bool {
	return postgresInitialized
}

// GetKeepRegionReader returns a KeepRegionReader from the PostgreSQL backend
func GetKeepRegionReader(ctx context.Context) (KeepRegionReader, error) {
	return GetKeepRegionWriter(ctx)
}

// GetKeepRegionWriter returns a KeepRegionWriter from the PostgreSQL backend
func GetKeepRegionWriter(ctx context.Context) (KeepRegionWriter, error) {
	if !postgresInitialized {
		return nil, fmt.Errorf("PostgreSQL backend not initialized: DATABASE_URL is required")
	}
	if postgresKeepRegionWriter == nil {
		return nil, fmt.Errorf("PostgreSQL keep-region writer not registered")
	}
	return postgresKeepRegionWriter(), nil
}
