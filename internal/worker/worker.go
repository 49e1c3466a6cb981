package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"ugcfactory/internal/domain"
	"ugcfactory/internal/infra"
	"ugcfactory/internal/queue"
	"ugcfactory/internal/storage"
)

// Consumer is the queue surface the worker drains. A failed message is
// pushed to the dead-letter list byte for byte; there is no retry.
type Consumer interface {
	Pop(ctx context.Context, timeout time.Duration) ([]byte, error)
	DeadLetter(ctx context.Context, payload []byte) error
	Key() string
}

// JobAPI is the orchestrator surface the worker talks to.
type JobAPI interface {
	FetchJob(ctx context.Context, jobID string) (*JobView, error)
	NotifyFinalized(ctx context.Context, jobID string, variantIndex int, finalURL, storageKey string) error
}

// Deps wires a worker instance.
type Deps struct {
	Queue      Consumer
	API        JobAPI
	Store      storage.ArtifactStore
	Media      MediaPipeline
	Downloader *http.Client
	PresignTTL time.Duration
	PopTimeout time.Duration
	// Pause is the delay between messages. Zero means the 200ms default,
	// negative disables it.
	Pause  time.Duration
	Logger infra.Logger
}

// Worker drains the finalize queue: download the raw clip, crop and caption
// it, upload the final cut, and report it back to the API.
type Worker struct {
	queue      Consumer
	api        JobAPI
	store      storage.ArtifactStore
	media      MediaPipeline
	downloader *http.Client
	presignTTL time.Duration
	popTimeout time.Duration
	pause      time.Duration
	log        infra.Logger
}

func New(d Deps) *Worker {
	downloader := d.Downloader
	if downloader == nil {
		downloader = &http.Client{Timeout: 60 * time.Second}
	}
	popTimeout := d.PopTimeout
	if popTimeout <= 0 {
		popTimeout = 5 * time.Second
	}
	pause := d.Pause
	if pause < 0 {
		pause = 0
	} else if pause == 0 {
		pause = 200 * time.Millisecond
	}
	return &Worker{
		queue:      d.Queue,
		api:        d.API,
		store:      d.Store,
		media:      d.Media,
		downloader: downloader,
		presignTTL: d.PresignTTL,
		popTimeout: popTimeout,
		pause:      pause,
		log:        d.Logger,
	}
}

// Run consumes messages until the context is canceled. Every per-message
// failure is dead-lettered and the loop keeps going.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info().Str("queue", w.queue.Key()).Msg("worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("worker stopping")
			return ctx.Err()
		default:
		}

		payload, err := w.queue.Pop(ctx, w.popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				w.log.Info().Msg("worker stopping")
				return ctx.Err()
			}
			w.log.Warn().Err(err).Msg("queue pop failed")
			w.sleep(ctx, time.Second)
			continue
		}
		if payload == nil {
			continue
		}

		if err := w.process(ctx, payload); err != nil {
			w.log.Error().Err(err).Msg("finalize failed")
			if dlErr := w.queue.DeadLetter(ctx, payload); dlErr != nil {
				w.log.Error().Err(dlErr).Msg("dead letter push failed")
			}
		}
		w.sleep(ctx, w.pause)
	}
}

func (w *Worker) process(ctx context.Context, payload []byte) error {
	msg, err := queue.Decode(payload)
	if err != nil {
		return err
	}

	job, err := w.api.FetchJob(ctx, msg.JobID)
	if err != nil {
		return err
	}

	video := pickAsset(job.Assets, "video", msg.VariantIndex)
	if video == nil || video.URL == "" {
		return fmt.Errorf("video url missing for job %s variant %d", msg.JobID, msg.VariantIndex)
	}
	captions := captionsFor(job.Assets, msg.VariantIndex)

	tmpDir, err := os.MkdirTemp("", "finalize-")
	if err != nil {
		return fmt.Errorf("temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	inputPath := filepath.Join(tmpDir, "raw.mp4")
	outputPath := filepath.Join(tmpDir, "final.mp4")

	start := time.Now()
	if err := w.download(ctx, video.URL, inputPath); err != nil {
		return err
	}
	if err := w.media.Finalize(ctx, inputPath, outputPath, captions); err != nil {
		return err
	}

	final, err := os.ReadFile(outputPath)
	if err != nil {
		return fmt.Errorf("read final cut: %w", err)
	}

	key := storage.FinalKey(msg.JobID, msg.VariantIndex)
	if err := w.store.Put(ctx, key, final, "video/mp4"); err != nil {
		return fmt.Errorf("store final cut: %w", err)
	}
	finalURL, err := w.store.PresignedGetURL(key, w.presignTTL)
	if err != nil {
		return fmt.Errorf("presign final cut: %w", err)
	}

	if err := w.api.NotifyFinalized(ctx, msg.JobID, msg.VariantIndex, finalURL, key); err != nil {
		return err
	}

	w.log.Info().
		Str("job_id", msg.JobID).
		Int("variant_index", msg.VariantIndex).
		Dur("took", time.Since(start)).
		Msg("final delivered")
	return nil
}

func (w *Worker) download(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := w.downloader.Do(req)
	if err != nil {
		return fmt.Errorf("download raw clip: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("download raw clip: status %d", resp.StatusCode)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		return fmt.Errorf("download raw clip: %w", err)
	}
	return nil
}

func (w *Worker) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func pickAsset(assets []AssetView, kind string, variantIndex int) *AssetView {
	for i := range assets {
		if assets[i].Kind == kind && assets[i].VariantIndex == variantIndex {
			return &assets[i]
		}
	}
	return nil
}

// captionsFor pulls caption lines from the variant's script asset. A missing
// script or an unreadable meta payload simply means no subtitles.
func captionsFor(assets []AssetView, variantIndex int) []domain.Caption {
	script := pickAsset(assets, "script", variantIndex)
	if script == nil || len(script.Meta) == 0 {
		return nil
	}
	var meta struct {
		Captions []domain.Caption `json:"captions"`
	}
	if err := json.Unmarshal(script.Meta, &meta); err != nil {
		return nil
	}
	return meta.Captions
}
