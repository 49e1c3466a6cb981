package pipeline

import (
	"context"
	"encoding/json"

	"ugcfactory/internal/domain"
)

// Per-variant outcome labels for a full run.
const (
	OutcomeOK     = "ok"
	OutcomeQueued = "queued"
	OutcomeError  = "error"
)

// VariantOutcome is the per-variant result of a full run.
type VariantOutcome struct {
	VariantIndex int
	Status       string
	FinalURL     string
	Error        string
}

// RunResult aggregates a full run across all variants.
type RunResult struct {
	Results []VariantOutcome
	Status  domain.JobStatus
}

// RunAll drives voice, video and finalize for every variant in order,
// generating scripts first when the job has none. A variant failure is
// recorded and the loop moves on; a script failure aborts the run since
// nothing downstream can proceed.
func (s *Service) RunAll(ctx context.Context, jobID string) (*RunResult, error) {
	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	assets, err := s.assets.ListByJobID(ctx, jobID)
	if err != nil {
		return nil, domain.Internal("list assets", err)
	}
	var scripts []json.RawMessage
	for _, a := range assets {
		if a.Kind == domain.AssetKindScript {
			scripts = append(scripts, a.Meta)
		}
	}
	if len(scripts) == 0 {
		res, err := s.RunScriptStep(ctx, jobID)
		if err != nil {
			return nil, err
		}
		scripts = res.Scripts
	}

	byIndex := make(map[int]domain.ScriptMeta, len(scripts))
	for i, rawMeta := range scripts {
		var meta domain.ScriptMeta
		if err := json.Unmarshal(rawMeta, &meta); err != nil {
			s.log.Warn().Err(err).Str("job_id", jobID).Msg("script meta unreadable")
			continue
		}
		if meta.VariantIndex <= 0 {
			meta.VariantIndex = i + 1
		}
		byIndex[meta.VariantIndex] = meta
	}

	target := job.TargetCount
	if target < 1 {
		target = 1
	}

	results := make([]VariantOutcome, 0, target)
	anyFailed := false
	anyQueued := false

	for idx := 1; idx <= target; idx++ {
		meta, ok := byIndex[idx]
		if !ok {
			meta = byIndex[1]
		}
		text := resolveScriptText(meta)

		outcome, stepErr := s.runVariant(ctx, job, idx, text)
		if stepErr != nil {
			anyFailed = true
			s.appendRunLog(ctx, &domain.RunLog{
				JobID:     job.ID,
				Step:      domain.StepRun,
				Provider:  providerAPI,
				Status:    domain.RunStatusError,
				Request:   map[string]any{"variant_index": idx},
				ErrorText: stepErr.Error(),
			})
			results = append(results, VariantOutcome{
				VariantIndex: idx,
				Status:       OutcomeError,
				Error:        stepErr.Error(),
			})
			continue
		}
		if outcome.Status == OutcomeQueued {
			anyQueued = true
		}
		results = append(results, outcome)
	}

	status := domain.JobStatusSucceeded
	if anyQueued {
		status = domain.JobStatusFinalizing
	}
	if anyFailed {
		status = domain.JobStatusPartialFailed
	}
	if err := s.jobs.UpdateStatus(ctx, job.ID, status); err != nil {
		return nil, domain.Internal("advance job status", err)
	}
	return &RunResult{Results: results, Status: status}, nil
}

// runVariant drives one variant through voice, video and finalize.
func (s *Service) runVariant(ctx context.Context, job *domain.Job, idx int, text string) (VariantOutcome, error) {
	voiceRes, err := s.RunVoiceStep(ctx, job.ID, VoiceInput{VariantIndex: idx, Text: text})
	if err != nil {
		return VariantOutcome{}, err
	}
	videoRes, err := s.RunVideoStep(ctx, job.ID, VideoInput{
		VariantIndex: idx,
		ImageURL:     job.InputImageURL,
		AudioURL:     voiceRes.AudioURL,
		StylePreset:  "default",
	})
	if err != nil {
		return VariantOutcome{}, err
	}
	finalRes, err := s.RequestFinalize(ctx, job.ID, FinalizeInput{
		VariantIndex: idx,
		VideoURLRaw:  videoRes.VideoURLRaw,
	})
	if err != nil {
		return VariantOutcome{}, err
	}
	if finalRes.FinalURL != "" {
		return VariantOutcome{VariantIndex: idx, Status: OutcomeOK, FinalURL: finalRes.FinalURL}, nil
	}
	return VariantOutcome{VariantIndex: idx, Status: OutcomeQueued}, nil
}
