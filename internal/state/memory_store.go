package state

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/blagoySimandov/rowenrich/internal/models"
)

// MemoryStore keeps runs in process memory. It is used by tests and by
// --store=memory.
type MemoryStore struct {
	mu      sync.RWMutex
	runs    map[string]*models.RunDB
	results map[string]map[int]models.ResultRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs:    make(map[string]*models.RunDB),
		results: make(map[string]map[int]models.ResultRecord),
	}
}

func (s *MemoryStore) CreateRun(ctx context.Context, run *models.RunDB) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	stored := *run
	if stored.StartedAt.IsZero() {
		stored.StartedAt = now
	}
	stored.UpdatedAt = now
	if stored.Status == "" {
		stored.Status = models.RunStatusPending
	}
	s.runs[run.RunID] = &stored
	s.results[run.RunID] = make(map[int]models.ResultRecord)
	return nil
}

func (s *MemoryStore) SetRunStatus(ctx context.Context, runID string, status models.RunStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[runID]
	if !ok {
		return notFound(runID)
	}
	now := time.Now()
	run.Status = status
	run.UpdatedAt = now
	if status.Terminal() {
		run.FinishedAt = &now
	}
	return nil
}

func (s *MemoryStore) SetRunUsage(ctx context.Context, runID string, usage models.Usage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[runID]
	if !ok {
		return notFound(runID)
	}
	run.Usage = usage
	return nil
}

func (s *MemoryStore) summary(run *models.RunDB) *models.RunSummary {
	completed, failed := 0, 0
	for _, rec := range s.results[run.RunID] {
		completed++
		if rec.Status == models.StatusError {
			failed++
		}
	}
	return run.ToSummary(completed, failed)
}

func (s *MemoryStore) GetRun(ctx context.Context, runID string) (*models.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[runID]
	if !ok {
		return nil, notFound(runID)
	}
	return s.summary(run), nil
}

func (s *MemoryStore) ListRuns(ctx context.Context, offset, limit int) ([]*models.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]*models.RunDB, 0, len(s.runs))
	for _, r := range s.runs {
		runs = append(runs, r)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})

	out := []*models.RunSummary{}
	for _, r := range page(runs, offset, limit) {
		out = append(out, s.summary(r))
	}
	return out, nil
}

func (s *MemoryStore) SaveResult(ctx context.Context, runID string, rec models.ResultRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	results, ok := s.results[runID]
	if !ok {
		return notFound(runID)
	}
	results[rec.RowIndex] = rec
	return nil
}

func (s *MemoryStore) ListResults(ctx context.Context, runID string, offset, limit int) ([]models.ResultRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results, ok := s.results[runID]
	if !ok {
		return nil, notFound(runID)
	}
	all := make([]models.ResultRecord, 0, len(results))
	for _, rec := range results {
		all = append(all, rec)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].RowIndex < all[j].RowIndex
	})
	return append([]models.ResultRecord{}, page(all, offset, limit)...), nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func page[T any](items []T, offset, limit int) []T {
	offset = max(offset, 0)
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
