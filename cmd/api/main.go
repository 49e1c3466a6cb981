package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"ugcfactory/internal/adapter/repo"
	"ugcfactory/internal/db"
	"ugcfactory/internal/http/handlers"
	"ugcfactory/internal/http/httpapi"
	"ugcfactory/internal/idempotency"
	"ugcfactory/internal/infra"
	"ugcfactory/internal/pipeline"
	"ugcfactory/internal/providers/script"
	"ugcfactory/internal/providers/video"
	"ugcfactory/internal/providers/voice"
	"ugcfactory/internal/queue"
	"ugcfactory/internal/storage"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	if err := db.Ensure(ctx, dbpool); err != nil {
		logger.Fatal().Err(err).Msg("failed to apply database schema")
	}

	rdb, err := infra.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}
	defer rdb.Close()

	store, files, err := buildStore(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init storage")
	}

	scriptGen, err := buildScriptProvider(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init script provider")
	}
	voiceSynth, err := buildVoiceProvider(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init voice provider")
	}
	videoGen, err := buildVideoProvider(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init video provider")
	}

	svc := pipeline.NewService(pipeline.Deps{
		Jobs:       repo.NewJobRepository(dbpool),
		Assets:     repo.NewAssetRepository(dbpool),
		RunLogs:    repo.NewRunLogRepository(dbpool),
		Guard:      idempotency.NewGuard(idempotency.NewRedisStore(rdb), cfg.IdempotencyTTL),
		Queue:      queue.NewFinalizeQueue(rdb, cfg.QueueKey),
		Store:      store,
		Script:     scriptGen,
		Voice:      voiceSynth,
		Video:      videoGen,
		PresignTTL: cfg.PresignTTL,
		Logger:     logger,
	})

	app := handlers.NewApp(svc, logger)
	router := httpapi.NewRouter(app, httpapi.Options{
		APIKey:          cfg.APIKey,
		InternalToken:   cfg.InternalToken,
		RateLimitPerMin: cfg.RateLimitPerMin,
		Logger:          logger,
		Files:           files,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

// buildStore returns the artifact store plus, for the filesystem backend,
// the handler the router mounts under /static.
func buildStore(cfg *infra.Config) (storage.ArtifactStore, http.Handler, error) {
	switch cfg.StorageBackend {
	case "s3":
		st, err := storage.NewS3Store(storage.S3Options{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			return nil, nil, err
		}
		return st, nil, nil
	case "filesystem":
		st, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
		if err != nil {
			return nil, nil, err
		}
		return st, http.FileServer(http.Dir(st.BasePath())), nil
	default:
		return nil, nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.StorageBackend)
	}
}

func buildScriptProvider(cfg *infra.Config) (script.Generator, error) {
	switch cfg.ScriptProvider {
	case "openai":
		return script.NewOpenAIGenerator(script.OpenAIOptions{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
		})
	case "dummy":
		return script.NewDummyGenerator(), nil
	default:
		return nil, fmt.Errorf("unknown SCRIPT_PROVIDER %q", cfg.ScriptProvider)
	}
}

func buildVoiceProvider(cfg *infra.Config) (voice.Synthesizer, error) {
	switch cfg.VoiceProvider {
	case "openai":
		return voice.NewOpenAISynthesizer(voice.OpenAIOptions{
			APIKey:   cfg.OpenAIAPIKey,
			Model:    cfg.OpenAITTSModel,
			BaseURL:  cfg.OpenAIBaseURL,
			MaxChars: cfg.TTSMaxChars,
		})
	case "dummy":
		return voice.NewDummySynthesizer(), nil
	default:
		return nil, fmt.Errorf("unknown VOICE_PROVIDER %q", cfg.VoiceProvider)
	}
}

func buildVideoProvider(cfg *infra.Config) (video.Generator, error) {
	switch cfg.VideoProvider {
	case "heygen":
		provider, err := video.NewHeyGenProvider(video.HeyGenOptions{
			APIKey:   cfg.HeyGenAPIKey,
			AvatarID: cfg.HeyGenAvatarID,
			BaseURL:  cfg.HeyGenBaseURL,
		})
		if err != nil {
			return nil, err
		}
		return video.NewPollingGenerator(provider, cfg.VideoPollTimeout), nil
	case "dummy":
		return video.NewDummyGenerator(), nil
	default:
		return nil, fmt.Errorf("unknown VIDEO_PROVIDER %q", cfg.VideoProvider)
	}
}
