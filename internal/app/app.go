// Package app wires configuration into the clients, store and enricher shared
// by the server and the CLI.
package app

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/option"

	"github.com/blagoySimandov/rowenrich/internal/config"
	"github.com/blagoySimandov/rowenrich/internal/enricher"
	"github.com/blagoySimandov/rowenrich/internal/models"
	"github.com/blagoySimandov/rowenrich/internal/ocr"
	// registers "tesseract" when built with -tags tesseract
	_ "github.com/blagoySimandov/rowenrich/internal/ocr/tesseract"
	"github.com/blagoySimandov/rowenrich/internal/pipeline"
	"github.com/blagoySimandov/rowenrich/internal/services"
	"github.com/blagoySimandov/rowenrich/internal/source"
	"github.com/blagoySimandov/rowenrich/internal/state"
)

type App struct {
	Config   *config.Config
	Store    state.Store
	Manager  *state.Manager
	Tracker  *services.UsageTracker
	Enricher *enricher.Enricher
}

// New opens the run store and builds every configured backend. Backends
// without credentials are left out; requesting their stage then fails with a
// stage config error.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	store, err := state.Open(ctx, cfg.StoreDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open run store: %w", err)
	}

	tracker := services.NewUsageTracker()

	searcher, err := NewSearcher(ctx, cfg, tracker)
	if err != nil {
		store.Close()
		return nil, err
	}
	completer, err := NewCompleter(ctx, cfg, tracker)
	if err != nil {
		store.Close()
		return nil, err
	}
	engine, err := NewOCREngine(cfg, tracker)
	if err != nil {
		store.Close()
		return nil, err
	}

	builder := enricher.NewStageBuilder(searcher, completer, engine, enricher.BuilderConfig{
		NumResults:    cfg.SearchNumResults,
		SystemPrompt:  cfg.SystemPrompt,
		OCRLanguage:   cfg.OCRLanguage,
		CacheSearches: cfg.CacheSearches,
		DocumentRoot:  cfg.DataDir,
	})

	p := pipeline.NewPipeline(&pipeline.PipelineConfig{
		DefaultStageTimeout: cfg.StageTimeout,
		DefaultWorkers:      cfg.Workers,
	})

	manager := state.NewManager(store)
	enr := enricher.NewEnricher(p, manager, builder, tracker, enricher.Config{
		SourceOptions: SourceOptions(cfg),
		Defaults:      RunDefaults(cfg),
	})

	return &App{
		Config:   cfg,
		Store:    store,
		Manager:  manager,
		Tracker:  tracker,
		Enricher: enr,
	}, nil
}

func (a *App) Close() error {
	return a.Store.Close()
}

func SourceOptions(cfg *config.Config) source.Options {
	return source.Options{
		CredentialsFile: cfg.GoogleCredentialsFile,
		SheetRange:      cfg.SheetsRange,
	}
}

func RunDefaults(cfg *config.Config) models.RunOptions {
	return models.RunOptions{
		StageTimeout: cfg.StageTimeout,
		Workers:      cfg.Workers,
		Retry: models.RetryConfig{
			MaxAttempts:     cfg.RetryMaxAttempts,
			InitialInterval: cfg.RetryInitial,
			MaxInterval:     cfg.RetryMax,
		},
	}
}

// NewSearcher returns the configured search backend, or nil when its key is
// missing.
func NewSearcher(ctx context.Context, cfg *config.Config, tracker services.IUsageTracker) (services.WebSearcher, error) {
	switch strings.ToLower(cfg.SearchProvider) {
	case "serpapi", "":
		if cfg.SerpAPIKey == "" {
			return nil, nil
		}
		return services.NewSerpAPIClient(cfg.SerpAPIKey, services.WithSerpAPIUsageTracker(tracker))
	case "serper":
		if cfg.SerperAPIKey == "" {
			return nil, nil
		}
		return services.NewSerperClient(cfg.SerperAPIKey, services.WithSerperUsageTracker(tracker))
	case "google":
		if cfg.GoogleAPIKey == "" || cfg.GoogleCSEID == "" {
			return nil, nil
		}
		return services.NewGoogleCSEClient(ctx, cfg.GoogleCSEID, tracker, option.WithAPIKey(cfg.GoogleAPIKey))
	default:
		return nil, fmt.Errorf("unknown search provider %q", cfg.SearchProvider)
	}
}

// NewCompleter returns the configured completion backend, or nil when its key
// is missing.
func NewCompleter(ctx context.Context, cfg *config.Config, tracker services.IUsageTracker) (services.Completer, error) {
	switch strings.ToLower(cfg.CompletionProvider) {
	case "openai", "":
		if cfg.OpenAIAPIKey == "" {
			return nil, nil
		}
		opts := []services.OpenAICompleterOption{
			services.WithOpenAIModel(cfg.OpenAIModel),
			services.WithOpenAIUsageTracker(tracker),
		}
		if cfg.OpenAIBaseURL != "" {
			opts = append(opts, services.WithOpenAIBaseURL(cfg.OpenAIBaseURL))
		}
		return services.NewOpenAICompleter(cfg.OpenAIAPIKey, opts...)
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, nil
		}
		return services.NewGeminiCompleter(ctx, cfg.GeminiAPIKey,
			services.WithModel(cfg.GeminiModel),
			services.WithUsageTracker(tracker),
		)
	default:
		return nil, fmt.Errorf("unknown completion provider %q", cfg.CompletionProvider)
	}
}

// NewOCREngine returns the OCR.space client or an engine registered under
// cfg.OCRProvider.
func NewOCREngine(cfg *config.Config, tracker services.IUsageTracker) (ocr.Engine, error) {
	switch provider := strings.ToLower(cfg.OCRProvider); provider {
	case "ocrspace", "":
		opts := []services.OCRSpaceClientOption{services.WithOCRSpaceUsageTracker(tracker)}
		if cfg.OCRBaseURL != "" {
			opts = append(opts, services.WithOCRSpaceBaseURL(cfg.OCRBaseURL))
		}
		return services.NewOCRSpaceClient(cfg.OCRAPIKey, opts...)
	case "none":
		return nil, nil
	default:
		factory, ok := ocr.Lookup(provider)
		if !ok {
			return nil, fmt.Errorf("unknown OCR provider %q (registered: %s)", cfg.OCRProvider, strings.Join(ocr.Registered(), ", "))
		}
		return factory(), nil
	}
}
