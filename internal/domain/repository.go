package domain

import "context"

// JobRepository defines persistence for job entities.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	GetByID(ctx context.Context, jobID string) (*Job, error)
	UpdateStatus(ctx context.Context, jobID string, status JobStatus) error
}

// AssetRepository handles persistence for job artifacts.
type AssetRepository interface {
	// Upsert writes the (job, kind, variant) slot atomically, replacing URL
	// and metadata when a row already exists. Steps are replayable, so a
	// re-run overwrites its own slot instead of growing duplicates.
	Upsert(ctx context.Context, asset *Asset) error
	ListByJobID(ctx context.Context, jobID string) ([]Asset, error)
	GetByJobKindVariant(ctx context.Context, jobID string, kind AssetKind, variantIndex int) (*Asset, error)
}

// RunLogRepository appends audit records for step attempts.
type RunLogRepository interface {
	Append(ctx context.Context, log *RunLog) error
	ListByJobID(ctx context.Context, jobID string) ([]RunLog, error)
}
