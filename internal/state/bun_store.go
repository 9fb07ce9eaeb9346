package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/uptrace/bun"

	"github.com/blagoySimandov/rowenrich/internal/db"
	"github.com/blagoySimandov/rowenrich/internal/models"
)

// BunStore keeps runs in the runs and run_results tables of a SQLite or
// Postgres database.
type BunStore struct {
	db *bun.DB
}

func NewPostgresStore(ctx context.Context, connectionString string) (*BunStore, error) {
	return newBunStore(ctx, db.NewBunPostgresClient(connectionString))
}

func NewSQLiteStore(ctx context.Context, dsn string) (*BunStore, error) {
	client, err := db.NewBunSQLiteClient(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return newBunStore(ctx, client)
}

func newBunStore(ctx context.Context, client *bun.DB) (*BunStore, error) {
	store := &BunStore{db: client}
	if err := store.InitializeDatabase(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return store, nil
}

func (s *BunStore) InitializeDatabase(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*models.RunDB)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create runs table: %w", err)
	}

	_, err = s.db.NewCreateTable().
		Model((*models.ResultDB)(nil)).
		IfNotExists().
		ForeignKey(`("run_id") REFERENCES "runs" ("run_id") ON DELETE CASCADE`).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create run_results table: %w", err)
	}

	_, err = s.db.NewCreateIndex().
		Model((*models.ResultDB)(nil)).
		Index("idx_run_results_status").
		Column("run_id", "status").
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create status index: %w", err)
	}

	_, err = s.db.NewCreateIndex().
		Model((*models.RunDB)(nil)).
		Index("idx_runs_started_at").
		Column("started_at").
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create started_at index: %w", err)
	}

	return nil
}

func (s *BunStore) CreateRun(ctx context.Context, run *models.RunDB) error {
	now := time.Now()
	if run.StartedAt.IsZero() {
		run.StartedAt = now
	}
	run.UpdatedAt = now

	_, err := s.db.NewInsert().
		Model(run).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

func (s *BunStore) SetRunStatus(ctx context.Context, runID string, status models.RunStatus) error {
	now := time.Now()
	query := s.db.NewUpdate().
		Model((*models.RunDB)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", now).
		Where("run_id = ?", runID)
	if status.Terminal() {
		query = query.Set("finished_at = ?", now)
	}

	res, err := query.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set run status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound(runID)
	}
	return nil
}

func (s *BunStore) SetRunUsage(ctx context.Context, runID string, usage models.Usage) error {
	_, err := s.db.NewUpdate().
		Model((*models.RunDB)(nil)).
		Set("usage = ?", usage).
		Set("updated_at = ?", time.Now()).
		Where("run_id = ?", runID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set run usage: %w", err)
	}
	return nil
}

func (s *BunStore) GetRun(ctx context.Context, runID string) (*models.RunSummary, error) {
	var run models.RunDB
	err := s.db.NewSelect().
		Model(&run).
		Where("run_id = ?", runID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	completed, failed, err := s.countResults(ctx, runID)
	if err != nil {
		return nil, err
	}
	return run.ToSummary(completed, failed), nil
}

func (s *BunStore) countResults(ctx context.Context, runID string) (completed, failed int, err error) {
	type statusCount struct {
		Status string `bun:"status"`
		Count  int    `bun:"count"`
	}

	var counts []statusCount
	err = s.db.NewSelect().
		Model((*models.ResultDB)(nil)).
		Column("status").
		ColumnExpr("COUNT(*) as count").
		Where("run_id = ?", runID).
		Group("status").
		Scan(ctx, &counts)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count results: %w", err)
	}

	for _, c := range counts {
		completed += c.Count
		if models.ResultStatus(c.Status) == models.StatusError {
			failed += c.Count
		}
	}
	return completed, failed, nil
}

func (s *BunStore) ListRuns(ctx context.Context, offset, limit int) ([]*models.RunSummary, error) {
	var runs []models.RunDB
	query := s.db.NewSelect().
		Model(&runs).
		Order("started_at DESC").
		Limit(pageLimit(limit)).
		Offset(max(offset, 0))
	if err := query.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	out := make([]*models.RunSummary, 0, len(runs))
	for i := range runs {
		completed, failed, err := s.countResults(ctx, runs[i].RunID)
		if err != nil {
			return nil, err
		}
		out = append(out, runs[i].ToSummary(completed, failed))
	}
	return out, nil
}

func (s *BunStore) SaveResult(ctx context.Context, runID string, rec models.ResultRecord) error {
	_, err := s.db.NewInsert().
		Model(models.ResultFromApp(runID, rec)).
		On("CONFLICT (run_id, row_index) DO UPDATE").
		Set("entity = EXCLUDED.entity").
		Set("fields = EXCLUDED.fields").
		Set("status = EXCLUDED.status").
		Set("message = EXCLUDED.message").
		Set("duration_ms = EXCLUDED.duration_ms").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}
	return nil
}

func (s *BunStore) ListResults(ctx context.Context, runID string, offset, limit int) ([]models.ResultRecord, error) {
	exists, err := s.db.NewSelect().
		Model((*models.RunDB)(nil)).
		Where("run_id = ?", runID).
		Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	if !exists {
		return nil, notFound(runID)
	}

	var rows []models.ResultDB
	query := s.db.NewSelect().
		Model(&rows).
		Where("run_id = ?", runID).
		Order("row_index ASC").
		Limit(pageLimit(limit)).
		Offset(max(offset, 0))
	if err := query.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}

	out := make([]models.ResultRecord, len(rows))
	for i := range rows {
		out[i] = rows[i].ToResultRecord()
	}
	return out, nil
}

// pageLimit maps "no limit" to an explicit bound; SQLite rejects OFFSET
// without LIMIT.
func pageLimit(limit int) int {
	if limit <= 0 {
		return math.MaxInt32
	}
	return limit
}

func (s *BunStore) Close() error {
	return s.db.Close()
}
