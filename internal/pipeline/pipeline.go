package pipeline

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"ugcfactory/internal/domain"
	"ugcfactory/internal/idempotency"
	"ugcfactory/internal/infra"
	"ugcfactory/internal/providers/script"
	"ugcfactory/internal/providers/video"
	"ugcfactory/internal/providers/voice"
	"ugcfactory/internal/queue"
	"ugcfactory/internal/storage"
)

// Provider labels recorded on run logs for operations executed by this
// service or the finalize worker rather than an external provider.
const (
	providerWorker = "worker"
	providerAPI    = "api"
)

// leaseStepVideo names the video step's lease namespace. Run logs record the
// step as video_gen.
const leaseStepVideo = "video"

const (
	defaultTargetCount = 3
	maxTargetCount     = 8
)

// FinalizeEnqueuer is the queue surface the orchestrator needs.
type FinalizeEnqueuer interface {
	Push(ctx context.Context, msg queue.Message) error
	Key() string
}

// Deps bundles the collaborators the service orchestrates.
type Deps struct {
	Jobs       domain.JobRepository
	Assets     domain.AssetRepository
	RunLogs    domain.RunLogRepository
	Guard      *idempotency.Guard
	Queue      FinalizeEnqueuer
	Store      storage.ArtifactStore
	Script     script.Generator
	Voice      voice.Synthesizer
	Video      video.Generator
	PresignTTL time.Duration
	Logger     infra.Logger
}

// Service owns the job state machine. It validates inputs, guards each step
// with an idempotency lease, invokes providers, and persists assets plus run
// logs. It holds no per-request state and is safe for concurrent use.
type Service struct {
	jobs       domain.JobRepository
	assets     domain.AssetRepository
	runLogs    domain.RunLogRepository
	guard      *idempotency.Guard
	queue      FinalizeEnqueuer
	store      storage.ArtifactStore
	script     script.Generator
	voice      voice.Synthesizer
	video      video.Generator
	presignTTL time.Duration
	log        infra.Logger
}

// NewService wires the orchestrator from its dependencies.
func NewService(d Deps) *Service {
	return &Service{
		jobs:       d.Jobs,
		assets:     d.Assets,
		runLogs:    d.RunLogs,
		guard:      d.Guard,
		queue:      d.Queue,
		store:      d.Store,
		script:     d.Script,
		voice:      d.Voice,
		video:      d.Video,
		presignTTL: d.PresignTTL,
		log:        d.Logger,
	}
}

// CreateJobInput is the payload for job creation.
type CreateJobInput struct {
	ProductMeta map[string]any
	TargetCount int
	ImageURL    string
	ImageBase64 string
}

// CreateJob registers a new job. Exactly one image input is accepted; an
// inline base64 image is uploaded to the artifact store before the row is
// written, so the job always carries a fetchable image URL.
func (s *Service) CreateJob(ctx context.Context, in CreateJobInput) (*domain.Job, error) {
	count := in.TargetCount
	if count == 0 {
		count = defaultTargetCount
	}
	if count < 1 || count > maxTargetCount {
		return nil, domain.Validation("target_count must be between 1 and 8")
	}

	imageURL := strings.TrimSpace(in.ImageURL)
	imageB64 := strings.TrimSpace(in.ImageBase64)
	if (imageURL == "") == (imageB64 == "") {
		return nil, domain.Validation("exactly one of image_url or image_base64 is required")
	}

	meta := in.ProductMeta
	if meta == nil {
		meta = map[string]any{}
	}

	job := &domain.Job{
		ID:            uuid.NewString(),
		Status:        domain.JobStatusQueued,
		InputImageURL: imageURL,
		ProductMeta:   meta,
		TargetCount:   count,
	}

	if imageB64 != "" {
		raw, err := base64.StdEncoding.DecodeString(imageB64)
		if err != nil {
			return nil, domain.Validation("image_base64 is not valid base64")
		}
		key := storage.InputImageKey(job.ID)
		if err := s.store.Put(ctx, key, raw, http.DetectContentType(raw)); err != nil {
			return nil, domain.Internal("store input image", err)
		}
		url, err := s.store.PresignedGetURL(key, s.presignTTL)
		if err != nil {
			return nil, domain.Internal("presign input image", err)
		}
		job.InputImageURL = url
	}

	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, domain.Internal("create job", err)
	}
	return job, nil
}

// GetJob loads the job plus every asset it has accumulated.
func (s *Service) GetJob(ctx context.Context, jobID string) (*domain.Job, []domain.Asset, error) {
	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}
	assets, err := s.assets.ListByJobID(ctx, jobID)
	if err != nil {
		return nil, nil, domain.Internal("list assets", err)
	}
	return job, assets, nil
}

func (s *Service) loadJob(ctx context.Context, jobID string) (*domain.Job, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFound("job_not_found")
		}
		return nil, domain.Internal("load job", err)
	}
	return job, nil
}

// appendRunLog records an audit row. Append failures are logged and
// swallowed; the step outcome they describe already happened.
func (s *Service) appendRunLog(ctx context.Context, rl *domain.RunLog) {
	if rl.ID == "" {
		rl.ID = uuid.NewString()
	}
	if rl.Request == nil {
		rl.Request = map[string]any{}
	}
	if rl.Response == nil {
		rl.Response = map[string]any{}
	}
	if err := s.runLogs.Append(ctx, rl); err != nil {
		s.log.Error().Err(err).Str("job_id", rl.JobID).Str("step", rl.Step).Msg("append run log")
	}
}

// failStep releases the lease so the step can be retried, records the
// failure, and marks the job failed.
func (s *Service) failStep(ctx context.Context, jobID, step, provider, leaseKey string, request map[string]any, stepErr error) {
	if err := s.guard.Release(ctx, leaseKey); err != nil {
		s.log.Error().Err(err).Str("job_id", jobID).Str("step", step).Msg("release lease")
	}
	s.appendRunLog(ctx, &domain.RunLog{
		JobID:     jobID,
		Step:      step,
		Provider:  provider,
		Status:    domain.RunStatusError,
		Request:   request,
		ErrorText: stepErr.Error(),
	})
	if err := s.jobs.UpdateStatus(ctx, jobID, domain.JobStatusFailed); err != nil {
		s.log.Error().Err(err).Str("job_id", jobID).Msg("mark job failed")
	}
}

// healLease recovers from a lease held with no matching completed asset:
// release and re-acquire, once.
func (s *Service) healLease(ctx context.Context, key string) (bool, error) {
	if err := s.guard.Release(ctx, key); err != nil {
		return false, domain.Internal("release idempotency lease", err)
	}
	ok, err := s.guard.TryAcquire(ctx, key)
	if err != nil {
		return false, domain.Internal("acquire idempotency lease", err)
	}
	return ok, nil
}

// touch bumps the job's updated_at without changing its status.
func (s *Service) touch(ctx context.Context, job *domain.Job) {
	if err := s.jobs.UpdateStatus(ctx, job.ID, job.Status); err != nil {
		s.log.Error().Err(err).Str("job_id", job.ID).Msg("touch job")
	}
}

// resolveScriptText assembles narration text from a script variant: the full
// script when present, otherwise hook, body and CTA joined with spaces.
func resolveScriptText(meta domain.ScriptMeta) string {
	if text := strings.TrimSpace(meta.FullScript); text != "" {
		return text
	}
	parts := make([]string, 0, 3)
	for _, p := range []string{meta.Hook, meta.Body, meta.CTA} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// estimateDurationMs approximates speech length from rune count. It is a
// pacing hint for downstream timing, not measured audio duration.
func estimateDurationMs(text string) int {
	ms := utf8.RuneCountInString(text) * 40
	if ms < 1000 {
		ms = 1000
	}
	if ms > 15000 {
		ms = 15000
	}
	return ms
}

func metaString(meta map[string]any, key string) string {
	if meta == nil {
		return ""
	}
	if v, ok := meta[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}
