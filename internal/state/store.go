package state

import (
	"context"

	"github.com/blagoySimandov/rowenrich/internal/models"
)

// Store persists runs and their result records. GetRun and ListResults return
// models.ErrRunNotFound for unknown run IDs.
type Store interface {
	CreateRun(ctx context.Context, run *models.RunDB) error
	SetRunStatus(ctx context.Context, runID string, status models.RunStatus) error
	SetRunUsage(ctx context.Context, runID string, usage models.Usage) error
	GetRun(ctx context.Context, runID string) (*models.RunSummary, error)
	ListRuns(ctx context.Context, offset, limit int) ([]*models.RunSummary, error)

	SaveResult(ctx context.Context, runID string, rec models.ResultRecord) error
	ListResults(ctx context.Context, runID string, offset, limit int) ([]models.ResultRecord, error)

	Close() error
}

// Open returns the store selected by driver: "sqlite", "postgres" or "memory".
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "memory":
		return NewMemoryStore(), nil
	case "postgres":
		return NewPostgresStore(ctx, dsn)
	default:
		return NewSQLiteStore(ctx, dsn)
	}
}

func notFound(runID string) error {
	return &models.Error{Kind: models.ErrRunNotFound, Op: "get run " + runID}
}
