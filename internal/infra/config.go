package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	DefaultLocale      string
	GeoIPDBPath        string
	CORSAllowedOrigins []string
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	RateLimitPerMin    int

	FalAPIKey        string
	FalBaseURL       string
	GeminiAPIKey     string
	VeoModel         string
	ArkAPIKey        string
	ArkBaseURL       string
	SeedanceModel    string
	OpenAIAPIKey     string
	OpenAIModel      string
	ElevenLabsAPIKey string
	ElevenLabsVoice  string
	DashScopeAPIKey  string
	DashScopeBaseURL string
	KeyframeModel    string

	PollInterval        time.Duration
	PollMaxAttempts     int
	StatusCheckRetries  int
	ProviderHTTPTimeout time.Duration
	RenderSweepSchedule string

	HistoryBackend string
	HistoryFile    string
	HistoryRefresh time.Duration
	RedisAddr      string
	RedisPassword  string
	RedisDB        int

	StorageBackend string
	StoragePath    string
	PublicBaseURL  string
	S3Bucket       string
	AWSRegion      string
	AWSAccessKeyID string
	AWSSecretKey   string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               getEnv("PORT", "8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		DefaultLocale:      getEnv("DEFAULT_LOCALE", "en"),
		GeoIPDBPath:        os.Getenv("GEOIP_DB_PATH"),
		CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 30),

		FalAPIKey:        os.Getenv("FAL_API_KEY"),
		FalBaseURL:       getEnv("FAL_BASE_URL", "https://queue.fal.run"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		VeoModel:         getEnv("VEO_MODEL", "veo-2.0-generate-001"),
		ArkAPIKey:        os.Getenv("ARK_API_KEY"),
		ArkBaseURL:       getEnv("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		SeedanceModel:    getEnv("SEEDANCE_MODEL", "doubao-seedance-1-0-pro-250528"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:      getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		ElevenLabsAPIKey: os.Getenv("ELEVENLABS_API_KEY"),
		ElevenLabsVoice:  getEnv("ELEVENLABS_VOICE_ID", "21m00Tcm4TlvDq8ikWAM"),
		DashScopeAPIKey:  os.Getenv("DASHSCOPE_API_KEY"),
		DashScopeBaseURL: getEnv("DASHSCOPE_BASE_URL", "https://dashscope-intl.aliyuncs.com/api/v1"),
		KeyframeModel:    getEnv("KEYFRAME_MODEL", "qwen-image-plus"),

		PollInterval:        time.Second * time.Duration(getEnvInt("POLL_INTERVAL_SECONDS", 5)),
		PollMaxAttempts:     getEnvInt("POLL_MAX_ATTEMPTS", 60),
		StatusCheckRetries:  getEnvInt("STATUS_CHECK_RETRIES", 2),
		ProviderHTTPTimeout: time.Second * time.Duration(getEnvInt("PROVIDER_HTTP_TIMEOUT_SECONDS", 60)),
		RenderSweepSchedule: getEnv("RENDER_SWEEP_SCHEDULE", "@every 5m"),

		HistoryBackend: strings.ToLower(getEnv("HISTORY_BACKEND", "postgres")),
		HistoryFile:    getEnv("HISTORY_FILE", "./storage/render_history.json"),
		HistoryRefresh: time.Second * time.Duration(getEnvInt("HISTORY_REFRESH_SECONDS", 30)),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        getEnvInt("REDIS_DB", 0),

		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", "filesystem")),
		StoragePath:    getEnv("STORAGE_PATH", "./storage"),
		PublicBaseURL:  os.Getenv("PUBLIC_BASE_URL"),
		S3Bucket:       os.Getenv("S3_BUCKET"),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID: os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretKey:   os.Getenv("AWS_SECRET_ACCESS_KEY"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	switch cfg.HistoryBackend {
	case "postgres", "redis", "file":
	default:
		return nil, fmt.Errorf("unsupported HISTORY_BACKEND %q", cfg.HistoryBackend)
	}

	switch cfg.StorageBackend {
	case "filesystem":
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET is required when STORAGE_BACKEND=s3")
		}
	default:
		return nil, fmt.Errorf("unsupported STORAGE_BACKEND %q", cfg.StorageBackend)
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.PollMaxAttempts <= 0 {
		cfg.PollMaxAttempts = 60
	}
	if cfg.StatusCheckRetries < 0 {
		cfg.StatusCheckRetries = 0
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

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}
