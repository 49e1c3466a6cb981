package domain

import "time"

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusQueued        JobStatus = "queued"
	JobStatusRunning       JobStatus = "running"
	JobStatusFinalizing    JobStatus = "finalizing"
	JobStatusSucceeded     JobStatus = "succeeded"
	JobStatusFailed        JobStatus = "failed"
	JobStatusPartialFailed JobStatus = "partial_failed"
)

// Job tracks one request to turn a product image plus metadata into a batch
// of short vertical marketing videos. Status is mutated only by the step
// executors and the finalize callback.
type Job struct {
	ID            string
	Status        JobStatus
	InputImageURL string
	ProductMeta   map[string]any
	TargetCount   int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
