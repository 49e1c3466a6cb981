package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"ugcfactory/internal/infra"
	"ugcfactory/internal/queue"
	"ugcfactory/internal/storage"
	"ugcfactory/internal/worker"
)

// The worker talks to Redis, object storage, and the orchestrator API.
// It never touches the database; job state arrives through the read API.
func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := infra.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: redis connection failed")
	}
	defer rdb.Close()

	store, err := buildStore(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure storage")
	}

	api, err := worker.NewAPIClient(worker.APIClientOptions{
		BaseURL:       cfg.APIBaseURL,
		APIKey:        cfg.APIKey,
		InternalToken: cfg.InternalToken,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure api client")
	}

	w := worker.New(worker.Deps{
		Queue:      queue.NewFinalizeQueue(rdb, cfg.QueueKey),
		API:        api,
		Store:      store,
		Media:      worker.NewFFmpeg(cfg.FFmpegBin),
		PresignTTL: cfg.PresignTTL,
		Logger:     logger,
	})

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}

func buildStore(cfg *infra.Config) (storage.ArtifactStore, error) {
	switch cfg.StorageBackend {
	case "s3":
		return storage.NewS3Store(storage.S3Options{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	case "filesystem":
		return storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.StorageBackend)
	}
}
