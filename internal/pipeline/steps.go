package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"

	"ugcfactory/internal/domain"
	"ugcfactory/internal/idempotency"
	"ugcfactory/internal/providers/script"
	"ugcfactory/internal/providers/video"
	"ugcfactory/internal/safety"
	"ugcfactory/internal/storage"
)

// ScriptResult carries the generated variants as their persisted JSON
// payloads.
type ScriptResult struct {
	Scripts []json.RawMessage
}

// RunScriptStep generates every script variant for a job in one provider
// call. The step is job-scoped: a single lease covers all variants, and a
// repeat call returns the stored variants without touching the provider.
func (s *Service) RunScriptStep(ctx context.Context, jobID string) (*ScriptResult, error) {
	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	leaseKey := idempotency.Key(jobID, domain.StepScriptGen)
	acquired, err := s.guard.TryAcquire(ctx, leaseKey)
	if err != nil {
		return nil, domain.Internal("acquire idempotency lease", err)
	}
	if !acquired {
		assets, err := s.assets.ListByJobID(ctx, jobID)
		if err != nil {
			return nil, domain.Internal("list assets", err)
		}
		var existing []json.RawMessage
		for _, a := range assets {
			if a.Kind == domain.AssetKindScript {
				existing = append(existing, a.Meta)
			}
		}
		if len(existing) > 0 {
			return &ScriptResult{Scripts: existing}, nil
		}
		// Lease held but nothing persisted: most likely a crashed attempt.
		acquired, err = s.healLease(ctx, leaseKey)
		if err != nil {
			return nil, err
		}
		if !acquired {
			return nil, domain.Conflict("idempotency_conflict_no_assets")
		}
	}

	prompt := script.RenderPrompt(job.ProductMeta, job.TargetCount)
	request := map[string]any{"prompt": domain.Snap(prompt)}

	out, err := s.script.Generate(ctx, script.GenerateRequest{
		Prompt:      prompt,
		ProductName: metaString(job.ProductMeta, "product_name"),
		TargetCount: job.TargetCount,
	})
	if err != nil {
		stepErr := domain.Provider("script_gen_failed", err)
		s.failStep(ctx, jobID, domain.StepScriptGen, s.script.Name(), leaseKey, request, stepErr)
		return nil, stepErr
	}
	if len(out.Variants) == 0 {
		stepErr := domain.Provider("script_gen_failed", errors.New("variants missing"))
		s.failStep(ctx, jobID, domain.StepScriptGen, s.script.Name(), leaseKey, request, stepErr)
		return nil, stepErr
	}

	for _, v := range out.Variants {
		if err := safety.ValidateScript(v.FullScript); err != nil {
			stepErr := domain.AsError(err)
			s.failStep(ctx, jobID, domain.StepScriptGen, s.script.Name(), leaseKey, request, stepErr)
			return nil, stepErr
		}
	}

	scripts := make([]json.RawMessage, 0, len(out.Variants))
	for i, v := range out.Variants {
		if v.VariantIndex <= 0 {
			v.VariantIndex = i + 1
		}
		asset := &domain.Asset{
			ID:           uuid.NewString(),
			JobID:        job.ID,
			Kind:         domain.AssetKindScript,
			VariantIndex: v.VariantIndex,
		}
		if err := asset.EncodeMeta(v); err != nil {
			stepErr := domain.Internal("encode script meta", err)
			s.failStep(ctx, jobID, domain.StepScriptGen, s.script.Name(), leaseKey, request, stepErr)
			return nil, stepErr
		}
		if err := s.assets.Upsert(ctx, asset); err != nil {
			stepErr := domain.Internal("persist script asset", err)
			s.failStep(ctx, jobID, domain.StepScriptGen, s.script.Name(), leaseKey, request, stepErr)
			return nil, stepErr
		}
		scripts = append(scripts, asset.Meta)
	}

	s.appendRunLog(ctx, &domain.RunLog{
		JobID:    job.ID,
		Step:     domain.StepScriptGen,
		Provider: s.script.Name(),
		Status:   domain.RunStatusOK,
		Request:  request,
		Response: map[string]any{"variants_count": len(out.Variants)},
	})
	if err := s.jobs.UpdateStatus(ctx, job.ID, domain.JobStatusRunning); err != nil {
		return nil, domain.Internal("advance job status", err)
	}
	return &ScriptResult{Scripts: scripts}, nil
}

// VoiceInput selects the variant plus optional overrides for voice and text.
type VoiceInput struct {
	VariantIndex int
	VoiceID      string
	Text         string
}

// VoiceResult reports where the synthesized narration lives.
type VoiceResult struct {
	AudioURL   string
	DurationMs int
}

// RunVoiceStep synthesizes narration for one variant and uploads it. Text
// falls back to the variant's script asset when not supplied.
func (s *Service) RunVoiceStep(ctx context.Context, jobID string, in VoiceInput) (*VoiceResult, error) {
	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	idx := in.VariantIndex
	if idx <= 0 {
		idx = 1
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		text, err = s.scriptTextForVariant(ctx, jobID, idx)
		if err != nil {
			return nil, err
		}
	}
	if text == "" {
		return nil, domain.Validation("empty_text")
	}

	leaseKey := idempotency.VariantKey(jobID, domain.StepTTS, idx)
	acquired, err := s.guard.TryAcquire(ctx, leaseKey)
	if err != nil {
		return nil, domain.Internal("acquire idempotency lease", err)
	}
	if !acquired {
		existing, err := s.assets.GetByJobKindVariant(ctx, jobID, domain.AssetKindAudio, idx)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Internal("load audio asset", err)
		}
		if existing != nil && existing.URL != "" {
			meta, metaErr := existing.AudioMeta()
			if metaErr != nil {
				s.log.Warn().Err(metaErr).Str("job_id", jobID).Msg("audio meta unreadable")
			}
			return &VoiceResult{AudioURL: existing.URL, DurationMs: meta.DurationMs}, nil
		}
		acquired, err = s.healLease(ctx, leaseKey)
		if err != nil {
			return nil, err
		}
		if !acquired {
			return nil, domain.Conflict("idempotency_conflict_no_assets")
		}
	}

	request := map[string]any{"variant_index": idx}
	syn, err := s.voice.Synthesize(ctx, text, in.VoiceID)
	if err != nil {
		stepErr := domain.Provider("tts_failed", err)
		s.failStep(ctx, jobID, domain.StepTTS, s.voice.Name(), leaseKey, request, stepErr)
		return nil, stepErr
	}

	durationMs := estimateDurationMs(text)
	audioKey := storage.AudioKey(jobID, idx)
	if err := s.store.Put(ctx, audioKey, syn.Audio, syn.ContentType); err != nil {
		stepErr := domain.Internal("store audio artifact", err)
		s.failStep(ctx, jobID, domain.StepTTS, s.voice.Name(), leaseKey, request, stepErr)
		return nil, stepErr
	}
	audioURL, err := s.store.PresignedGetURL(audioKey, s.presignTTL)
	if err != nil {
		stepErr := domain.Internal("presign audio artifact", err)
		s.failStep(ctx, jobID, domain.StepTTS, s.voice.Name(), leaseKey, request, stepErr)
		return nil, stepErr
	}

	asset := &domain.Asset{
		ID:           uuid.NewString(),
		JobID:        job.ID,
		Kind:         domain.AssetKindAudio,
		VariantIndex: idx,
		URL:          audioURL,
	}
	if err := asset.EncodeMeta(domain.AudioMeta{
		Provider:   s.voice.Name(),
		VoiceID:    in.VoiceID,
		DurationMs: durationMs,
		StorageKey: audioKey,
	}); err != nil {
		stepErr := domain.Internal("encode audio meta", err)
		s.failStep(ctx, jobID, domain.StepTTS, s.voice.Name(), leaseKey, request, stepErr)
		return nil, stepErr
	}
	if err := s.assets.Upsert(ctx, asset); err != nil {
		stepErr := domain.Internal("persist audio asset", err)
		s.failStep(ctx, jobID, domain.StepTTS, s.voice.Name(), leaseKey, request, stepErr)
		return nil, stepErr
	}

	s.appendRunLog(ctx, &domain.RunLog{
		JobID:    job.ID,
		Step:     domain.StepTTS,
		Provider: s.voice.Name(),
		Status:   domain.RunStatusOK,
		Request:  request,
		Response: map[string]any{"audio_url": audioURL, "duration_ms": durationMs},
	})
	s.touch(ctx, job)

	return &VoiceResult{AudioURL: audioURL, DurationMs: durationMs}, nil
}

// scriptTextForVariant derives narration text from the variant's script
// asset, falling back to the lowest-indexed script when the exact variant has
// none. Unreadable metadata resolves to empty text rather than an error.
func (s *Service) scriptTextForVariant(ctx context.Context, jobID string, idx int) (string, error) {
	asset, err := s.assets.GetByJobKindVariant(ctx, jobID, domain.AssetKindScript, idx)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return "", domain.Internal("load script asset", err)
		}
		assets, listErr := s.assets.ListByJobID(ctx, jobID)
		if listErr != nil {
			return "", domain.Internal("list assets", listErr)
		}
		asset = lowestScript(assets)
	}
	if asset == nil {
		return "", nil
	}
	meta, err := asset.ScriptMeta()
	if err != nil {
		s.log.Warn().Err(err).Str("job_id", jobID).Msg("script meta unreadable")
		return "", nil
	}
	return resolveScriptText(meta), nil
}

func lowestScript(assets []domain.Asset) *domain.Asset {
	var best *domain.Asset
	for i := range assets {
		a := &assets[i]
		if a.Kind != domain.AssetKindScript {
			continue
		}
		if best == nil || a.VariantIndex < best.VariantIndex {
			best = a
		}
	}
	return best
}

// VideoInput selects the variant plus optional overrides for the image,
// audio and style.
type VideoInput struct {
	VariantIndex int
	ImageURL     string
	AudioURL     string
	StylePreset  string
}

// VideoResult reports where the provider-rendered clip lives.
type VideoResult struct {
	VideoURLRaw string
}

// RunVideoStep renders the avatar clip for one variant and re-hosts the
// provider output in the artifact store. Audio falls back to the variant's
// audio asset; the image falls back to the job input.
func (s *Service) RunVideoStep(ctx context.Context, jobID string, in VideoInput) (*VideoResult, error) {
	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	idx := in.VariantIndex
	if idx <= 0 {
		idx = 1
	}

	audioURL := strings.TrimSpace(in.AudioURL)
	if audioURL == "" {
		existing, err := s.assets.GetByJobKindVariant(ctx, jobID, domain.AssetKindAudio, idx)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Internal("load audio asset", err)
		}
		if existing != nil {
			audioURL = existing.URL
		}
	}
	if audioURL == "" {
		return nil, domain.Validation("audio_url_required")
	}

	leaseKey := idempotency.VariantKey(jobID, leaseStepVideo, idx)
	acquired, err := s.guard.TryAcquire(ctx, leaseKey)
	if err != nil {
		return nil, domain.Internal("acquire idempotency lease", err)
	}
	if !acquired {
		existing, err := s.assets.GetByJobKindVariant(ctx, jobID, domain.AssetKindVideo, idx)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Internal("load video asset", err)
		}
		if existing != nil && existing.URL != "" {
			return &VideoResult{VideoURLRaw: existing.URL}, nil
		}
		acquired, err = s.healLease(ctx, leaseKey)
		if err != nil {
			return nil, err
		}
		if !acquired {
			return nil, domain.Conflict("idempotency_conflict_no_assets")
		}
	}

	imageURL := strings.TrimSpace(in.ImageURL)
	if imageURL == "" {
		imageURL = job.InputImageURL
	}

	request := map[string]any{"variant_index": idx}
	clip, err := s.video.Generate(ctx, video.Input{
		ImageURL:    imageURL,
		AudioURL:    audioURL,
		StylePreset: in.StylePreset,
	})
	if err != nil {
		stepErr := domain.Provider("video_gen_failed", err)
		s.failStep(ctx, jobID, domain.StepVideoGen, s.video.Name(), leaseKey, request, stepErr)
		return nil, stepErr
	}

	videoKey := storage.RawVideoKey(jobID, idx)
	if err := s.store.Put(ctx, videoKey, clip, "video/mp4"); err != nil {
		stepErr := domain.Internal("store video artifact", err)
		s.failStep(ctx, jobID, domain.StepVideoGen, s.video.Name(), leaseKey, request, stepErr)
		return nil, stepErr
	}
	videoURL, err := s.store.PresignedGetURL(videoKey, s.presignTTL)
	if err != nil {
		stepErr := domain.Internal("presign video artifact", err)
		s.failStep(ctx, jobID, domain.StepVideoGen, s.video.Name(), leaseKey, request, stepErr)
		return nil, stepErr
	}

	asset := &domain.Asset{
		ID:           uuid.NewString(),
		JobID:        job.ID,
		Kind:         domain.AssetKindVideo,
		VariantIndex: idx,
		URL:          videoURL,
	}
	if err := asset.EncodeMeta(domain.VideoMeta{
		Provider:    s.video.Name(),
		ImageURL:    imageURL,
		AudioURL:    audioURL,
		StylePreset: in.StylePreset,
		StorageKey:  videoKey,
	}); err != nil {
		stepErr := domain.Internal("encode video meta", err)
		s.failStep(ctx, jobID, domain.StepVideoGen, s.video.Name(), leaseKey, request, stepErr)
		return nil, stepErr
	}
	if err := s.assets.Upsert(ctx, asset); err != nil {
		stepErr := domain.Internal("persist video asset", err)
		s.failStep(ctx, jobID, domain.StepVideoGen, s.video.Name(), leaseKey, request, stepErr)
		return nil, stepErr
	}

	s.appendRunLog(ctx, &domain.RunLog{
		JobID:    job.ID,
		Step:     domain.StepVideoGen,
		Provider: s.video.Name(),
		Status:   domain.RunStatusOK,
		Request:  request,
		Response: map[string]any{"video_url_raw": videoURL},
	})
	s.touch(ctx, job)

	return &VideoResult{VideoURLRaw: videoURL}, nil
}
