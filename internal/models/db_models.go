package models

import (
	"errors"
	"time"

	"github.com/uptrace/bun"
)

type RunDB struct {
	bun.BaseModel `bun:"table:runs,alias:r"`

	RunID      string     `bun:"run_id,pk" json:"run_id"`
	Origin     string     `bun:"origin,notnull" json:"origin"`
	KeyColumn  string     `bun:"key_column,notnull" json:"key_column"`
	Options    RunOptions `bun:"options" json:"options"`
	TotalRows  int        `bun:"total_rows,notnull" json:"total_rows"`
	Status     RunStatus  `bun:"status,notnull,default:'PENDING'" json:"status"`
	Usage      Usage      `bun:"usage" json:"usage"`
	StartedAt  time.Time  `bun:"started_at,notnull" json:"started_at"`
	FinishedAt *time.Time `bun:"finished_at" json:"finished_at"`
	UpdatedAt  time.Time  `bun:"updated_at,notnull" json:"updated_at"`
}

type ResultDB struct {
	bun.BaseModel `bun:"table:run_results,alias:rr"`

	RunID      string       `bun:"run_id,pk" json:"run_id"`
	RowIndex   int          `bun:"row_index,pk" json:"row_index"`
	Entity     string       `bun:"entity,notnull" json:"entity"`
	Fields     []Field      `bun:"fields" json:"fields"`
	Status     ResultStatus `bun:"status,notnull" json:"status"`
	Message    string       `bun:"message" json:"message"`
	DurationMs int64        `bun:"duration_ms" json:"duration_ms"`
	CreatedAt  time.Time    `bun:"created_at,notnull" json:"created_at"`
}

func ResultFromApp(runID string, r ResultRecord) *ResultDB {
	return &ResultDB{
		RunID:      runID,
		RowIndex:   r.RowIndex,
		Entity:     r.Entity,
		Fields:     r.Fields,
		Status:     r.Status,
		Message:    r.Message,
		DurationMs: r.Duration.Milliseconds(),
		CreatedAt:  time.Now(),
	}
}

// ToResultRecord restores a stored result. The typed cause is not persisted, so
// failed records carry a plain error with the stored message.
func (r *ResultDB) ToResultRecord() ResultRecord {
	rec := ResultRecord{
		RowIndex: r.RowIndex,
		Entity:   r.Entity,
		Fields:   r.Fields,
		Status:   r.Status,
		Message:  r.Message,
		Duration: time.Duration(r.DurationMs) * time.Millisecond,
	}
	if r.Status == StatusError && r.Message != "" {
		rec.Err = errors.New(r.Message)
	}
	return rec
}

func (r *RunDB) ToSummary(completed, failed int) *RunSummary {
	return &RunSummary{
		RunID:      r.RunID,
		Origin:     r.Origin,
		KeyColumn:  r.KeyColumn,
		Status:     r.Status,
		Total:      r.TotalRows,
		Completed:  completed,
		Failed:     failed,
		Usage:      r.Usage,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
}
