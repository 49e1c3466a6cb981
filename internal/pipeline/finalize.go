package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"ugcfactory/internal/domain"
	"ugcfactory/internal/idempotency"
	"ugcfactory/internal/queue"
)

// FinalizeInput selects the variant plus an optional explicit raw video URL.
type FinalizeInput struct {
	VariantIndex int
	VideoURLRaw  string
}

// FinalizeResult reports whether work was queued or already delivered.
type FinalizeResult struct {
	Queued   bool
	FinalURL string
}

// RequestFinalize enqueues postprocessing for one variant and returns
// without waiting for it. A variant that already has a final asset is
// returned as-is; a variant another caller just queued reports queued
// without enqueueing twice.
func (s *Service) RequestFinalize(ctx context.Context, jobID string, in FinalizeInput) (*FinalizeResult, error) {
	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	idx := in.VariantIndex
	if idx <= 0 {
		idx = 1
	}

	// A delivered variant is never re-queued, whatever the lease says.
	final, err := s.assets.GetByJobKindVariant(ctx, jobID, domain.AssetKindFinal, idx)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, domain.Internal("load final asset", err)
	}
	if final != nil && final.URL != "" {
		return &FinalizeResult{Queued: false, FinalURL: final.URL}, nil
	}

	raw := strings.TrimSpace(in.VideoURLRaw)
	if raw == "" {
		existing, err := s.assets.GetByJobKindVariant(ctx, jobID, domain.AssetKindVideo, idx)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Internal("load video asset", err)
		}
		if existing != nil {
			raw = existing.URL
		}
	}
	if raw == "" {
		return nil, domain.Validation("video_url_raw_required")
	}

	leaseKey := idempotency.VariantKey(jobID, domain.StepFinalize, idx)
	acquired, err := s.guard.TryAcquire(ctx, leaseKey)
	if err != nil {
		return nil, domain.Internal("acquire idempotency lease", err)
	}
	if !acquired {
		acquired, err = s.healLease(ctx, leaseKey)
		if err != nil {
			return nil, err
		}
		if !acquired {
			// Someone else queued this variant in between.
			return &FinalizeResult{Queued: true}, nil
		}
	}

	if err := s.queue.Push(ctx, queue.Message{JobID: jobID, VariantIndex: idx}); err != nil {
		if relErr := s.guard.Release(ctx, leaseKey); relErr != nil {
			s.log.Error().Err(relErr).Str("job_id", jobID).Msg("release finalize lease")
		}
		return nil, domain.Internal("enqueue finalize work", err)
	}

	s.appendRunLog(ctx, &domain.RunLog{
		JobID:    job.ID,
		Step:     domain.StepFinalize,
		Provider: providerWorker,
		Status:   domain.RunStatusQueued,
		Request:  map[string]any{"variant_index": idx},
		Response: map[string]any{"queue": s.queue.Key()},
	})
	if err := s.jobs.UpdateStatus(ctx, job.ID, domain.JobStatusFinalizing); err != nil {
		return nil, domain.Internal("advance job status", err)
	}
	return &FinalizeResult{Queued: true}, nil
}

// CallbackInput is the worker's report for one finished variant.
type CallbackInput struct {
	JobID        string
	VariantIndex int
	FinalURL     string
	StorageKey   string
}

// CallbackResult echoes the recomputed job status.
type CallbackResult struct {
	OK     bool
	Status domain.JobStatus
}

// CompleteFinalize records the deliverable produced by the worker, releases
// the finalize lease, and recomputes the job status. The job succeeds once
// every variant has a final asset.
func (s *Service) CompleteFinalize(ctx context.Context, in CallbackInput) (*CallbackResult, error) {
	finalURL := strings.TrimSpace(in.FinalURL)
	if finalURL == "" {
		return nil, domain.Validation("final_url_required")
	}
	storageKey := strings.TrimSpace(in.StorageKey)
	if storageKey == "" {
		return nil, domain.Validation("storage_key_required")
	}

	job, err := s.loadJob(ctx, in.JobID)
	if err != nil {
		return nil, err
	}
	idx := in.VariantIndex
	if idx <= 0 {
		idx = 1
	}

	asset := &domain.Asset{
		ID:           uuid.NewString(),
		JobID:        job.ID,
		Kind:         domain.AssetKindFinal,
		VariantIndex: idx,
		URL:          finalURL,
	}
	if err := asset.EncodeMeta(domain.FinalMeta{StorageKey: storageKey}); err != nil {
		return nil, domain.Internal("encode final meta", err)
	}
	if err := s.assets.Upsert(ctx, asset); err != nil {
		return nil, domain.Internal("persist final asset", err)
	}

	s.appendRunLog(ctx, &domain.RunLog{
		JobID:    job.ID,
		Step:     domain.StepFinalize,
		Provider: providerWorker,
		Status:   domain.RunStatusOK,
		Request:  map[string]any{"variant_index": idx},
		Response: map[string]any{"final_url": finalURL},
	})

	if err := s.guard.Release(ctx, idempotency.VariantKey(job.ID, domain.StepFinalize, idx)); err != nil {
		s.log.Error().Err(err).Str("job_id", job.ID).Msg("release finalize lease")
	}

	assets, err := s.assets.ListByJobID(ctx, job.ID)
	if err != nil {
		return nil, domain.Internal("list assets", err)
	}
	target := job.TargetCount
	if target < 1 {
		target = 1
	}
	status := domain.JobStatusFinalizing
	if domain.CountByKind(assets, domain.AssetKindFinal) >= target {
		status = domain.JobStatusSucceeded
	}
	if err := s.jobs.UpdateStatus(ctx, job.ID, status); err != nil {
		return nil, domain.Internal("advance job status", err)
	}
	return &CallbackResult{OK: true, Status: status}, nil
}
