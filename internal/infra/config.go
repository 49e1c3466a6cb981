package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	Port             string
	DatabaseURL      string
	APIKey           string
	InternalToken    string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	QueueKey         string
	// IdempotencyTTL must stay well above VideoPollTimeout: leases are not
	// renewed mid-step, so a lease that expires during a long provider poll
	// would let a second caller start the same work.
	IdempotencyTTL   time.Duration
	ScriptProvider   string
	VoiceProvider    string
	VideoProvider    string
	OpenAIAPIKey     string
	OpenAIModel      string
	OpenAITTSModel   string
	OpenAIBaseURL    string
	TTSMaxChars      int
	HeyGenAPIKey     string
	HeyGenBaseURL    string
	HeyGenAvatarID   string
	VideoPollTimeout time.Duration
	StorageBackend   string
	StoragePath      string
	StorageBaseURL   string
	S3Endpoint       string
	S3Region         string
	S3Bucket         string
	S3AccessKey      string
	S3SecretKey      string
	PresignTTL       time.Duration
	APIBaseURL       string
	FFmpegBin        string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		APIKey:           os.Getenv("API_KEY"),
		InternalToken:    os.Getenv("INTERNAL_TOKEN"),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          getEnvInt("REDIS_DB", 0),
		QueueKey:         getEnv("FINALIZE_QUEUE_KEY", "ugc:finalize"),
		IdempotencyTTL:   time.Second * time.Duration(getEnvInt("IDEMPOTENCY_TTL_SECONDS", 86400)),
		ScriptProvider:   getEnv("SCRIPT_PROVIDER", "dummy"),
		VoiceProvider:    getEnv("VOICE_PROVIDER", "dummy"),
		VideoProvider:    getEnv("VIDEO_PROVIDER", "dummy"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:      getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAITTSModel:   getEnv("OPENAI_TTS_MODEL", "tts-1"),
		OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		TTSMaxChars:      getEnvInt("TTS_MAX_CHARS", 800),
		HeyGenAPIKey:     os.Getenv("HEYGEN_API_KEY"),
		HeyGenBaseURL:    getEnv("HEYGEN_BASE_URL", "https://api.heygen.com"),
		HeyGenAvatarID:   getEnv("HEYGEN_AVATAR_ID", "default"),
		VideoPollTimeout: time.Second * time.Duration(getEnvInt("VIDEO_POLL_TIMEOUT_SECONDS", 600)),
		StorageBackend:   getEnv("STORAGE_BACKEND", "filesystem"),
		StoragePath:      getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL:   getEnv("STORAGE_BASE_URL", "http://localhost:8080/static"),
		S3Endpoint:       os.Getenv("S3_ENDPOINT"),
		S3Region:         getEnv("S3_REGION", "us-east-1"),
		S3Bucket:         os.Getenv("S3_BUCKET"),
		S3AccessKey:      os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:      os.Getenv("S3_SECRET_KEY"),
		PresignTTL:       time.Second * time.Duration(getEnvInt("PRESIGN_TTL_SECONDS", 600)),
		APIBaseURL:       getEnv("API_BASE_URL", "http://localhost:8080"),
		FFmpegBin:        getEnv("FFMPEG_BIN", "ffmpeg"),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API_KEY is required")
	}

	if cfg.InternalToken == "" {
		return nil, fmt.Errorf("INTERNAL_TOKEN is required")
	}

	if cfg.StorageBackend == "s3" && cfg.S3Bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET is required when STORAGE_BACKEND=s3")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
