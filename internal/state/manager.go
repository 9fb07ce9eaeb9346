package state

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/blagoySimandov/rowenrich/internal/models"
)

// Manager pairs the store with the in-process handles of live runs.
type Manager struct {
	store       Store
	cancelFuncs map[string]func()
	mu          sync.RWMutex
}

func NewManager(store Store) *Manager {
	return &Manager{
		store:       store,
		cancelFuncs: make(map[string]func()),
	}
}

func (m *Manager) GenerateRunID() string {
	return uuid.New().String()
}

// InitializeRun records a new run as RUNNING and remembers how to cancel it.
func (m *Manager) InitializeRun(ctx context.Context, run *models.RunDB, cancel func()) error {
	run.Status = models.RunStatusRunning
	if err := m.store.CreateRun(ctx, run); err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	m.mu.Lock()
	m.cancelFuncs[run.RunID] = cancel
	m.mu.Unlock()
	return nil
}

// Active reports whether runID has been initialized and not yet finished.
func (m *Manager) Active(runID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.cancelFuncs[runID]
	return ok
}

// ActiveCount returns the number of live runs.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.cancelFuncs)
}

func (m *Manager) Record(ctx context.Context, runID string, rec models.ResultRecord) error {
	if err := m.store.SaveResult(ctx, runID, rec); err != nil {
		return fmt.Errorf("failed to record result: %w", err)
	}
	return nil
}

// Cancel asks a live run to stop. Unknown or finished runs are left alone.
func (m *Manager) Cancel(ctx context.Context, runID string) error {
	m.mu.RLock()
	cancel, ok := m.cancelFuncs[runID]
	m.mu.RUnlock()

	if !ok {
		if _, err := m.store.GetRun(ctx, runID); err != nil {
			return err
		}
		return nil
	}
	cancel()
	return nil
}

// Finish stores the terminal status and usage of a run and forgets its handle.
func (m *Manager) Finish(ctx context.Context, runID string, status models.RunStatus, usage models.Usage) error {
	m.mu.Lock()
	delete(m.cancelFuncs, runID)
	m.mu.Unlock()

	if err := m.store.SetRunUsage(ctx, runID, usage); err != nil {
		return err
	}
	return m.store.SetRunStatus(ctx, runID, status)
}

func (m *Manager) Progress(ctx context.Context, runID string) (*models.RunSummary, error) {
	return m.store.GetRun(ctx, runID)
}

func (m *Manager) Store() Store {
	return m.store
}
