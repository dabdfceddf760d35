package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kozaktomas/photo-collage/internal/database"
	"github.com/kozaktomas/photo-collage/internal/geometry"
)

// KeepRegionRepository provides PostgreSQL-backed keep-region storage
type KeepRegionRepository struct {
	pool *Pool
}

// NewKeepRegionRepository creates a new PostgreSQL keep-region repository
func NewKeepRegionRepository(pool *Pool) *KeepRegionRepository {
	return &KeepRegionRepository{pool: pool}
}

// Save stores a record, replacing the one for the same photo version
func (r *KeepRegionRepository) Save(ctx context.Context, rec database.KeepRegionRecord) error {
	regions := rec.Regions
	if regions == nil {
		regions = []geometry.KeepRegion{}
	}
	data, err := json.Marshal(regions)
	if err != nil {
		return fmt.Errorf("marshal regions: %w", err)
	}

	query := `
		INSERT INTO keep_regions (photo_id, content_hash, width, height, regions, detectors)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (photo_id, content_hash) DO UPDATE SET
			width = EXCLUDED.width,
			height = EXCLUDED.height,
			regions = EXCLUDED.regions,
			detectors = EXCLUDED.detectors,
			created_at = NOW()
	`

	_, err = r.pool.exec(ctx, query, rec.PhotoID, rec.ContentHash, rec.Width, rec.Height, string(data), rec.Detectors)
	if err != nil {
		return fmt.Errorf("save keep regions: %w", err)
	}
	return nil
}

// Get retrieves a record by photo id and content hash, returns nil if not found
func (r *KeepRegionRepository) Get(ctx context.Context, photoID, contentHash string) (*database.KeepRegionRecord, error) {
	query := `
		SELECT photo_id, content_hash, width, height, regions, detectors, created_at
		FROM keep_regions
		WHERE photo_id = $1 AND content_hash = $2
	`

	rec, err := scanRecord(r.pool.queryRow(ctx, query, photoID, contentHash))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get keep regions: %w", err)
	}
	return rec, nil
}

// ListByPhoto returns all cached versions of a photo, newest first
func (r *KeepRegionRepository) ListByPhoto(ctx context.Context, photoID string) ([]database.KeepRegionRecord, error) {
	query := `
		SELECT photo_id, content_hash, width, height, regions, detectors, created_at
		FROM keep_regions
		WHERE photo_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.query(ctx, query, photoID)
	if err != nil {
		return nil, fmt.Errorf("list keep regions: %w", err)
	}
	defer rows.Close()

	var out []database.KeepRegionRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan keep regions: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keep regions: %w", err)
	}
	return out, nil
}

// Count returns the total number of cached records
func (r *KeepRegionRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.queryRow(ctx, "SELECT COUNT(*) FROM keep_regions").Scan(&count); err != nil {
		return 0, fmt.Errorf("count keep regions: %w", err)
	}
	return count, nil
}

// DeleteByPhoto removes all versions of a photo
func (r *KeepRegionRepository) DeleteByPhoto(ctx context.Context, photoID string) (int64, error) {
	result, err := r.pool.exec(ctx, "DELETE FROM keep_regions WHERE photo_id = $1", photoID)
	if err != nil {
		return 0, fmt.Errorf("delete keep regions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*database.KeepRegionRecord, error) {
	var rec database.KeepRegionRecord
	var data []byte
	if err := row.Scan(
		&rec.PhotoID,
		&rec.ContentHash,
		&rec.Width,
		&rec.Height,
		&data,
		&rec.Detectors,
		&rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &rec.Regions); err != nil {
		return nil, fmt.Errorf("unmarshal regions: %w", err)
	}
	return &rec, nil
}
