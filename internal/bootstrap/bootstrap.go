// Package bootstrap assembles the orchestrator and its collaborators from
// configuration and environment, the way the teacher's bootstrap.New
// built its single-job App from a JSONStore and a checker, generalized
// here to the multi-job Orchestrator and its full dependency graph.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-redis/redis/v8"

	"media-dubber/internal/artifact"
	"media-dubber/internal/config"
	"media-dubber/internal/diagnostics"
	"media-dubber/internal/download"
	"media-dubber/internal/genmodel"
	"media-dubber/internal/jobs"
	"media-dubber/internal/mux"
	"media-dubber/internal/orchestrator"
	"media-dubber/internal/posteditor"
	"media-dubber/internal/procexec"
	"media-dubber/internal/recognizer"
	"media-dubber/internal/segment"
	"media-dubber/internal/translator"
	"media-dubber/internal/tts"
	"media-dubber/internal/tts/providers/openaitts"
	"media-dubber/internal/tts/providers/resonance"
)

// App bundles every long-lived collaborator both entrypoints need,
// mirroring the teacher's App struct shape (Settings, Store, Jobs,
// Diagnostics) extended with the multi-job Orchestrator and the sweeper
// goroutine the single-slot teacher never needed.
type App struct {
	Settings     config.Settings
	Store        config.Store
	Registry     *jobs.Registry
	Events       *jobs.EventBus
	Artifacts    *artifact.Store
	TTS          *tts.Registry
	Orchestrator *orchestrator.Orchestrator
	Diagnostics  *diagnostics.Checker
	Sweeper      *artifact.Sweeper
	Logger       *slog.Logger
}

// New loads settings, wires every stage's collaborators, and returns a
// ready-to-run App. It does not start the worker pool or sweeper; call
// Start for that once the caller (HTTP server, CLI) is ready to run.
func New() (*App, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve user home: %w", err)
	}

	logger := slog.Default()
	store := config.NewJSONStore(filepath.Join(homeDir, ".media-dubber", "settings.json"))
	settings, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	settings = config.LoadEnv(settings)

	tempDir := settings.TempDir
	if tempDir == "" {
		tempDir = filepath.Join(homeDir, ".media-dubber", "artifacts")
	}

	registryStore := redisStoreFromEnv()
	registry := jobs.NewRegistry(registryStore)
	events := jobs.NewEventBus()
	artifacts := artifact.New(tempDir)
	checker := diagnostics.NewChecker()

	runner := &procexec.OSRunner{Deadline: 6 * time.Hour}
	fetcher := download.New(runner, envOrDefault("DOWNLOADER_PATH", "yt-dlp"), envOrDefault("FFMPEG_PATH", "ffmpeg"))
	muxer := mux.New(runner, fetcher.ProbeDuration)

	rec := buildRecognizer(runner, fetcher, settings)

	regions := settings.RegionList
	clientFor := chatClientFactory(regions)

	postEditor := &posteditor.Editor{ClientFor: clientFor, Regions: regions, Model: settings.PostEditorModel}
	translate := &translator.Translator{ClientFor: clientFor, Regions: regions, Model: settings.PostEditorModel}

	ttsRegistry := buildTTSRegistry(settings)

	orch := orchestrator.New(orchestrator.Deps{
		Registry:   registry,
		Events:     events,
		Artifacts:  artifacts,
		Fetcher:    fetcher,
		Recognizer: rec,
		Segmenter:  segment.New(segment.Options{}),
		PostEditor: postEditor,
		Translator: translate,
		TTS:        ttsRegistry,
		Muxer:      muxer,
		Runner:     runner,
		FFmpegPath: envOrDefault("FFMPEG_PATH", "ffmpeg"),
		Settings:   settings,
		Logger:     logger,
	})

	ttl := time.Duration(settings.ArtifactTTLSeconds) * time.Second
	sweeper := artifact.NewSweeper(artifacts, registry, ttl, logger)

	return &App{
		Settings:     settings,
		Store:        store,
		Registry:     registry,
		Events:       events,
		Artifacts:    artifacts,
		TTS:          ttsRegistry,
		Orchestrator: orch,
		Diagnostics:  checker,
		Sweeper:      sweeper,
		Logger:       logger,
	}, nil
}

// Start launches the worker pool and TTL sweeper. Both stop when ctx is
// cancelled.
func (a *App) Start(ctx context.Context) {
	a.Orchestrator.Start(ctx)
	go a.Sweeper.Run(ctx)
}

func buildRecognizer(runner procexec.Runner, fetcher *download.Fetcher, settings config.Settings) recognizer.Recognizer {
	sync := recognizer.NewWhisperCPP(envOrDefault("WHISPER_BIN", "whisper.cpp"), envOrDefault("WHISPER_MODEL", ""))
	sync.Runner = runner

	staged := recognizer.NewStagedClient(envOrDefault("RECOGNIZER_STAGED_URL", ""))

	return &recognizer.Router{
		Sync:           sync,
		Staged:         staged,
		SyncLimitBytes: int64(settings.SyncSizeLimitMB) * 1024 * 1024,
		Stat:           statSize,
		ProbeDuration:  fetcher.ProbeDuration,
	}
}

func statSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func chatClientFactory(regions []string) func(region string) genmodel.ChatClient {
	apiKey := os.Getenv("GENMODEL_API_KEY")
	endpoints := genmodel.RegionEndpoints{}
	for _, region := range regions {
		if url := os.Getenv("GENMODEL_ENDPOINT_" + region); url != "" {
			endpoints[region] = url
		}
	}
	return func(region string) genmodel.ChatClient {
		return genmodel.NewChatClient(apiKey, endpoints, region)
	}
}

func buildTTSRegistry(settings config.Settings) *tts.Registry {
	outputDir := filepath.Join(os.TempDir(), "media-dubber-tts")

	providers := []tts.Provider{
		openaitts.New(os.Getenv("OPENAI_API_KEY"), os.Getenv("OPENAI_BASE_URL"), outputDir),
		resonance.New(envOrDefault("RESONANCE_BASE_URL", "https://api.resonance.example"), os.Getenv("RESONANCE_API_KEY"), outputDir),
	}
	return tts.NewRegistry(providers...)
}

func redisStoreFromEnv() jobs.Store {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: os.Getenv("REDIS_PASSWORD")})
	return jobs.NewRedisStore(client, "media-dubber:job:", 7*24*time.Hour)
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
