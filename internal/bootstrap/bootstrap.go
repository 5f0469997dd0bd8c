// Package bootstrap wires configuration into the services shared by the API
// and the worker.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"studio/internal/adapter/repo"
	"studio/internal/estimate"
	"studio/internal/history"
	"studio/internal/infra"
	"studio/internal/infra/credentials"
	"studio/internal/providers/keyframe"
	"studio/internal/providers/prompt"
	"studio/internal/providers/tts"
	"studio/internal/providers/video"
	"studio/internal/render"
	"studio/internal/storage"
)

// Services is the assembled dependency graph.
type Services struct {
	Config *infra.Config
	Logger *infra.Logger

	Pool  *pgxpool.Pool
	SQL   *infra.SQLRunner
	Redis *redis.Client

	Projects *repo.ProjectRepositoryPG
	Scenes   *repo.SceneRepositoryPG
	Jobs     *repo.VideoJobRepositoryPG

	Adapters  *video.Registry
	Router    *render.Router
	Poller    *render.Poller
	Runner    *render.Runner
	History   *history.Buffer
	Estimator *estimate.Estimator

	Writer    prompt.ScreenplayWriter
	Speech    *tts.Client
	Keyframes *keyframe.Client
	Blobs     storage.BlobStore
	MediaDir  string
}

// Keys are the provider API keys after the environment and the
// integration_tokens table have been consulted.
type Keys struct {
	Fal        string
	Gemini     string
	Ark        string
	OpenAI     string
	ElevenLabs string
	DashScope  string
}

// ResolveKeys fills every key missing from cfg from the credential store.
func ResolveKeys(ctx context.Context, cfg *infra.Config, store *credentials.Store, logger *infra.Logger) Keys {
	resolve := func(provider, configured string) string {
		key, err := store.Resolve(ctx, provider, configured)
		if err != nil {
			logger.Warn().Err(err).Str("provider", provider).Msg("bootstrap: load stored api key")
			return strings.TrimSpace(configured)
		}
		if key == "" {
			logger.Warn().Str("provider", provider).Msg("bootstrap: api key missing")
		}
		return key
	}
	return Keys{
		Fal:        resolve(credentials.ProviderFal, cfg.FalAPIKey),
		Gemini:     resolve(credentials.ProviderGemini, cfg.GeminiAPIKey),
		Ark:        resolve(credentials.ProviderArk, cfg.ArkAPIKey),
		OpenAI:     resolve(credentials.ProviderOpenAI, cfg.OpenAIAPIKey),
		ElevenLabs: resolve(credentials.ProviderElevenLabs, cfg.ElevenLabsAPIKey),
		DashScope:  resolve(credentials.ProviderDashScope, cfg.DashScopeAPIKey),
	}
}

// Build connects to the database and the selected backends and assembles the
// render pipeline.
func Build(ctx context.Context, cfg *infra.Config, logger *infra.Logger) (*Services, error) {
	logger = infra.OrDiscard(logger)
	svc := &Services{Config: cfg, Logger: logger}

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	svc.Pool = pool
	svc.SQL = infra.NewSQLRunner(pool, *logger)

	keys := ResolveKeys(ctx, cfg, credentials.NewStore(svc.SQL), logger)

	svc.Projects = repo.NewProjectRepository(svc.SQL)
	svc.Scenes = repo.NewSceneRepository(svc.SQL)
	svc.Jobs = repo.NewVideoJobRepository(svc.SQL)

	port, err := svc.historyPort(ctx)
	if err != nil {
		svc.Close()
		return nil, err
	}
	svc.History = history.NewBuffer(port).RefreshEvery(cfg.HistoryRefresh)
	if err := svc.History.Load(ctx); err != nil {
		logger.Warn().Err(err).Str("backend", cfg.HistoryBackend).Msg("bootstrap: load render history")
	}
	logger.Info().Str("backend", cfg.HistoryBackend).Int("records", svc.History.Len()).Msg("bootstrap: render history loaded")

	if err := svc.buildStorage(ctx); err != nil {
		svc.Close()
		return nil, err
	}

	svc.Adapters, err = NewAdapters(ctx, cfg, keys, svc.Blobs, logger)
	if err != nil {
		svc.Close()
		return nil, err
	}
	svc.Router = render.NewRouter(render.RouterOptions{Adapters: svc.Adapters, Logger: logger})
	svc.Poller = render.NewPoller(render.PollerOptions{
		Adapters:      svc.Adapters,
		Interval:      cfg.PollInterval,
		MaxAttempts:   cfg.PollMaxAttempts,
		StatusRetries: cfg.StatusCheckRetries,
		Logger:        logger,
	})
	svc.Runner = render.NewRunner(render.RunnerOptions{
		Router:  svc.Router,
		Poller:  svc.Poller,
		Scenes:  svc.Scenes,
		Jobs:    svc.Jobs,
		History: svc.History,
		Logger:  logger,
	})
	svc.Estimator = estimate.New(nil)

	svc.Writer = NewWriter(ctx, cfg, keys, logger)
	if keys.ElevenLabs != "" {
		svc.Speech = tts.NewClient(tts.Options{
			APIKey:         keys.ElevenLabs,
			VoiceID:        cfg.ElevenLabsVoice,
			Logger:         logger,
			RequestTimeout: cfg.ProviderHTTPTimeout,
		})
	}
	if keys.DashScope != "" {
		svc.Keyframes = keyframe.NewClient(keyframe.Options{
			APIKey:  keys.DashScope,
			BaseURL: cfg.DashScopeBaseURL,
			Model:   cfg.KeyframeModel,
			Logger:  logger,
		})
	}
	return svc, nil
}

// NewAdapters registers one adapter per provider. Providers without a key
// stay registered and fail their submissions with missing credentials.
func NewAdapters(ctx context.Context, cfg *infra.Config, keys Keys, blobs storage.BlobStore, logger *infra.Logger) (*video.Registry, error) {
	httpClient := &http.Client{Timeout: cfg.ProviderHTTPTimeout}
	queue := video.NewQueueClient(video.QueueOptions{
		APIKey:     keys.Fal,
		BaseURL:    cfg.FalBaseURL,
		HTTPClient: httpClient,
		Logger:     logger,
	})
	veo, err := video.NewVeoAdapter(ctx, video.VeoOptions{
		APIKey:     keys.Gemini,
		Model:      cfg.VeoModel,
		HTTPClient: httpClient,
		Store:      blobs,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap: veo adapter: %w", err)
	}
	return video.NewRegistry(
		video.NewWanAdapter(queue),
		video.NewKlingAdapter(queue),
		video.NewLTXAdapter(queue),
		video.NewHailuoAdapter(queue),
		veo,
		video.NewSeedanceAdapter(video.SeedanceOptions{
			APIKey:  keys.Ark,
			BaseURL: cfg.ArkBaseURL,
			Model:   cfg.SeedanceModel,
			Logger:  logger,
		}),
	), nil
}

// NewWriter prefers OpenAI, then Gemini, then the static writer.
func NewWriter(ctx context.Context, cfg *infra.Config, keys Keys, logger *infra.Logger) prompt.ScreenplayWriter {
	onFallback := func(reason string, err error) {
		logger.Warn().Err(err).Str("reason", reason).Msg("screenplay: using static writer")
	}
	if keys.OpenAI != "" {
		writer, err := prompt.NewOpenAIWriter(prompt.OpenAIOptions{
			APIKey:     keys.OpenAI,
			Model:      cfg.OpenAIModel,
			HTTPClient: &http.Client{Timeout: cfg.ProviderHTTPTimeout},
			MaxRetries: 1,
			OnFallback: onFallback,
			OnWarning: func(reason, detail string) {
				logger.Warn().Str("reason", reason).Str("detail", detail).Msg("screenplay: openai model adjusted")
			},
		})
		if err == nil {
			return writer
		}
		logger.Warn().Err(err).Msg("bootstrap: openai writer unavailable")
	}
	if keys.Gemini != "" {
		writer, err := prompt.NewGeminiWriter(ctx, prompt.GeminiOptions{
			APIKey:     keys.Gemini,
			OnFallback: onFallback,
		})
		if err == nil {
			return writer
		}
		logger.Warn().Err(err).Msg("bootstrap: gemini writer unavailable")
	}
	return prompt.NewStaticWriter()
}

func (s *Services) historyPort(ctx context.Context) (history.Port, error) {
	switch s.Config.HistoryBackend {
	case "redis":
		rdb, err := infra.NewRedisClient(ctx, s.Config)
		if err != nil {
			return nil, err
		}
		s.Redis = rdb
		return history.NewRedisStore(rdb, ""), nil
	case "file":
		return history.NewFileStore(s.Config.HistoryFile)
	default:
		return history.NewPostgresStore(s.SQL), nil
	}
}

func (s *Services) buildStorage(ctx context.Context) error {
	if s.Config.StorageBackend == "s3" {
		store, err := storage.NewS3Store(ctx, storage.S3Options{
			Bucket:          s.Config.S3Bucket,
			Region:          s.Config.AWSRegion,
			AccessKeyID:     s.Config.AWSAccessKeyID,
			SecretAccessKey: s.Config.AWSSecretKey,
			PublicRead:      true,
			Logger:          s.Logger,
		})
		if err != nil {
			return err
		}
		s.Blobs = store
		return nil
	}
	path := s.Config.StoragePath
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	store, err := storage.NewFileStore(path)
	if err != nil {
		return fmt.Errorf("bootstrap: storage: %w", err)
	}
	store.SetPublicURL(s.Config.PublicBaseURL)
	s.Blobs = store
	s.MediaDir = store.BasePath()
	return nil
}

// Close releases the database pool and the Redis client.
// StaleAfter is how long a scene may stay generating before it is treated as
// abandoned: twice the poll budget plus the outcome write timeout.
func (s *Services) StaleAfter() time.Duration {
	return 2*s.Poller.Budget() + render.PersistTimeout
}

func (s *Services) Close() {
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
	if s.Pool != nil {
		s.Pool.Close()
	}
}
