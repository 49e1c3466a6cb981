package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ugcfactory/internal/domain"
)

// AssetRepositoryPG implements domain.AssetRepository using PostgreSQL.
type AssetRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewAssetRepository constructs a new asset repository instance.
func NewAssetRepository(pool *pgxpool.Pool) *AssetRepositoryPG {
	return &AssetRepositoryPG{pool: pool}
}

// Upsert writes the (job, kind, variant) slot, replacing URL and metadata
// when a row already exists. The unique index on
// (job_id, kind, variant_index) makes concurrent writers converge on a
// single row.
func (r *AssetRepositoryPG) Upsert(ctx context.Context, asset *domain.Asset) error {
	query := `
INSERT INTO assets (id, job_id, kind, variant_index, url, meta)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (job_id, kind, variant_index)
DO UPDATE SET url = EXCLUDED.url, meta = EXCLUDED.meta;
`
	_, err := r.pool.Exec(ctx, query,
		asset.ID,
		asset.JobID,
		asset.Kind,
		asset.VariantIndex,
		asset.URL,
		asset.Meta,
	)
	return err
}

// ListByJobID returns all assets belonging to the job.
func (r *AssetRepositoryPG) ListByJobID(ctx context.Context, jobID string) ([]domain.Asset, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, job_id, kind, variant_index, url, meta, created_at
FROM assets
WHERE job_id = $1
ORDER BY created_at ASC;
`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []domain.Asset
	for rows.Next() {
		var asset domain.Asset
		if err := rows.Scan(&asset.ID, &asset.JobID, &asset.Kind, &asset.VariantIndex, &asset.URL, &asset.Meta, &asset.CreatedAt); err != nil {
			return nil, err
		}
		assets = append(assets, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return assets, nil
}

// GetByJobKindVariant fetches the single asset for (job, kind, variant).
func (r *AssetRepositoryPG) GetByJobKindVariant(ctx context.Context, jobID string, kind domain.AssetKind, variantIndex int) (*domain.Asset, error) {
	query := `
SELECT id, job_id, kind, variant_index, url, meta, created_at
FROM assets
WHERE job_id = $1 AND kind = $2 AND variant_index = $3;
`
	row := r.pool.QueryRow(ctx, query, jobID, kind, variantIndex)
	var asset domain.Asset
	if err := row.Scan(&asset.ID, &asset.JobID, &asset.Kind, &asset.VariantIndex, &asset.URL, &asset.Meta, &asset.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &asset, nil
}
