// Package db owns the relational schema. The API applies it at boot;
// every statement is idempotent, so there is no separate migration step.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlJobs = `
CREATE TABLE IF NOT EXISTS jobs (
    id              UUID PRIMARY KEY,
    status          VARCHAR(32) NOT NULL DEFAULT 'queued',
    input_image_url TEXT NOT NULL DEFAULT '',
    product_meta    JSONB NOT NULL DEFAULT '{}'::jsonb,
    target_count    INTEGER NOT NULL DEFAULT 1,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const ddlAssets = `
CREATE TABLE IF NOT EXISTS assets (
    id            UUID PRIMARY KEY,
    job_id        UUID NOT NULL REFERENCES jobs (id) ON DELETE CASCADE,
    kind          VARCHAR(32) NOT NULL,
    variant_index INTEGER NOT NULL DEFAULT 0,
    url           TEXT NOT NULL DEFAULT '',
    meta          JSONB NOT NULL DEFAULT '{}'::jsonb,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

// One completed artifact per (job, kind, variant). Step upserts and the
// finalize callback rely on this as their conflict target.
const ddlAssetsUnique = `
CREATE UNIQUE INDEX IF NOT EXISTS uq_assets_job_kind_variant
    ON assets (job_id, kind, variant_index);`

const ddlRunLogs = `
CREATE TABLE IF NOT EXISTS run_logs (
    id         UUID PRIMARY KEY,
    job_id     UUID NOT NULL REFERENCES jobs (id) ON DELETE CASCADE,
    step       VARCHAR(32) NOT NULL,
    provider   VARCHAR(32) NOT NULL,
    status     VARCHAR(16) NOT NULL,
    request    JSONB NOT NULL DEFAULT '{}'::jsonb,
    response   JSONB NOT NULL DEFAULT '{}'::jsonb,
    error_text TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

var statements = []string{
	ddlJobs,
	`CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs (status);`,
	ddlAssets,
	ddlAssetsUnique,
	`CREATE INDEX IF NOT EXISTS idx_assets_job_id ON assets (job_id);`,
	ddlRunLogs,
	`CREATE INDEX IF NOT EXISTS idx_run_logs_job_id ON run_logs (job_id);`,
}

// Ensure creates every table and index the repositories expect.
func Ensure(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
