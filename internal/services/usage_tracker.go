package services

import (
	"context"
	"sync"

	"github.com/blagoySimandov/rowenrich/internal/models"
)

type contextKey string

const runIDContextKey contextKey = "runID"

func ContextWithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDContextKey, runID)
}

func RunIDFromContext(ctx context.Context) string {
	if v := ctx.Value(runIDContextKey); v != nil {
		if runID, ok := v.(string); ok {
			return runID
		}
	}
	return ""
}

type IUsageTracker interface {
	AddTokens(ctx context.Context, tknIn, tknOut int)
	AddSearchQueries(ctx context.Context, count int)
	AddOCRPages(ctx context.Context, count int)
	Usage(runID string) models.Usage
}

// UsageTracker counts external calls per run, keyed by the run ID carried in
// the context. Calls made outside a run are counted under "".
type UsageTracker struct {
	mu    sync.RWMutex
	byRun map[string]*models.Usage
}

func NewUsageTracker() *UsageTracker {
	return &UsageTracker{
		byRun: make(map[string]*models.Usage),
	}
}

func (t *UsageTracker) entry(ctx context.Context) *models.Usage {
	runID := RunIDFromContext(ctx)
	u, ok := t.byRun[runID]
	if !ok {
		u = &models.Usage{}
		t.byRun[runID] = u
	}
	return u
}

func (t *UsageTracker) AddTokens(ctx context.Context, tknIn, tknOut int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	u := t.entry(ctx)
	u.TokensIn += tknIn
	u.TokensOut += tknOut
}

func (t *UsageTracker) AddSearchQueries(ctx context.Context, count int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entry(ctx).SearchQueries += count
}

func (t *UsageTracker) AddOCRPages(ctx context.Context, count int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entry(ctx).OCRPages += count
}

func (t *UsageTracker) Usage(runID string) models.Usage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if u, ok := t.byRun[runID]; ok {
		return *u
	}
	return models.Usage{}
}

// Forget drops the counters of a finished run.
func (t *UsageTracker) Forget(runID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byRun, runID)
}

type noopTracker struct{}

func (noopTracker) AddTokens(context.Context, int, int)   {}
func (noopTracker) AddSearchQueries(context.Context, int) {}
func (noopTracker) AddOCRPages(context.Context, int)      {}
func (noopTracker) Usage(string) models.Usage             { return models.Usage{} }
