package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blagoySimandov/rowenrich/internal/config"
	"github.com/blagoySimandov/rowenrich/internal/services"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("ENRICH_CONFIG", "")
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.StoreDriver = "memory"
	return cfg
}

func TestNewSearcher(t *testing.T) {
	ctx := context.Background()
	tracker := services.NewUsageTracker()
	cfg := testConfig(t)

	cfg.SearchProvider, cfg.SerpAPIKey = "serpapi", ""
	s, err := NewSearcher(ctx, cfg, tracker)
	require.NoError(t, err)
	assert.Nil(t, s)

	cfg.SerpAPIKey = "key"
	s, err = NewSearcher(ctx, cfg, tracker)
	require.NoError(t, err)
	assert.IsType(t, &services.SerpAPIClient{}, s)

	cfg.SearchProvider, cfg.SerperAPIKey = "serper", "key"
	s, err = NewSearcher(ctx, cfg, tracker)
	require.NoError(t, err)
	assert.IsType(t, &services.SerperClient{}, s)

	cfg.SearchProvider = "bing"
	_, err = NewSearcher(ctx, cfg, tracker)
	assert.Error(t, err)
}

func TestNewCompleter(t *testing.T) {
	ctx := context.Background()
	tracker := services.NewUsageTracker()
	cfg := testConfig(t)

	cfg.CompletionProvider, cfg.OpenAIAPIKey = "openai", ""
	c, err := NewCompleter(ctx, cfg, tracker)
	require.NoError(t, err)
	assert.Nil(t, c)

	cfg.OpenAIAPIKey = "key"
	c, err = NewCompleter(ctx, cfg, tracker)
	require.NoError(t, err)
	assert.IsType(t, &services.OpenAICompleter{}, c)

	cfg.CompletionProvider = "claude"
	_, err = NewCompleter(ctx, cfg, tracker)
	assert.Error(t, err)
}

func TestNewOCREngine(t *testing.T) {
	tracker := services.NewUsageTracker()
	cfg := testConfig(t)

	e, err := NewOCREngine(cfg, tracker)
	require.NoError(t, err)
	assert.Equal(t, "ocrspace", e.Name())

	cfg.OCRProvider = "none"
	e, err = NewOCREngine(cfg, tracker)
	require.NoError(t, err)
	assert.Nil(t, e)

	cfg.OCRProvider = "abbyy"
	_, err = NewOCREngine(cfg, tracker)
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	cfg := testConfig(t)
	cfg.SerpAPIKey = "key"
	cfg.OpenAIAPIKey = "key"

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Enricher)
	_, ok := a.Enricher.ActiveRun()
	assert.False(t, ok)

	defaults := RunDefaults(cfg)
	assert.Equal(t, cfg.StageTimeout, defaults.StageTimeout)
	assert.Equal(t, cfg.RetryMaxAttempts, defaults.Retry.MaxAttempts)
}
