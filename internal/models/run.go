package models

import (
	"strings"
	"time"
)

type RunStatus string

const (
	RunStatusPending   RunStatus = "PENDING"
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusCancelled RunStatus = "CANCELLED"
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusFailed    RunStatus = "FAILED"
)

func (s RunStatus) Terminal() bool {
	return s == RunStatusCancelled || s == RunStatusCompleted || s == RunStatusFailed
}

// Default templates of a search+extract run.
const (
	DefaultSearchTemplate  = "Get me the email address of {entity}"
	DefaultExtractTemplate = "Extract the email address from the following web results for {entity}"
)

// DefaultPlaceholder is substituted with the entity value in stage templates.
const DefaultPlaceholder = "{entity}"

// placeholderAliases are recognised when StageParams.Placeholder is empty.
var placeholderAliases = []string{DefaultPlaceholder, "{company}"}

// StageParams is the per-stage template, e.g. "Get me the email address of {entity}".
type StageParams struct {
	Template    string `json:"template" yaml:"template"`
	Placeholder string `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
}

func (p StageParams) placeholder() string {
	if p.Placeholder != "" {
		return p.Placeholder
	}
	for _, alias := range placeholderAliases {
		if strings.Contains(p.Template, alias) {
			return alias
		}
	}
	return DefaultPlaceholder
}

// Validate reports a StageConfig error when the template lacks its placeholder.
func (p StageParams) Validate() error {
	ph := p.placeholder()
	if !strings.Contains(p.Template, ph) {
		return &Error{Kind: ErrStageConfig, Op: "validate template " + quote(p.Template), Err: &missingPlaceholderError{ph}}
	}
	return nil
}

// Render substitutes every occurrence of the placeholder with entity.
func (p StageParams) Render(entity string) string {
	return strings.ReplaceAll(p.Template, p.placeholder(), entity)
}

type missingPlaceholderError struct {
	placeholder string
}

func (e *missingPlaceholderError) Error() string {
	return "missing placeholder " + e.placeholder
}

func quote(s string) string {
	return `"` + s + `"`
}

// RetryConfig bounds retries of transient stage failures. MaxAttempts <= 1
// disables retrying.
type RetryConfig struct {
	MaxAttempts     int           `json:"max_attempts" yaml:"max_attempts"`
	InitialInterval time.Duration `json:"initial_interval" yaml:"initial_interval"`
	MaxInterval     time.Duration `json:"max_interval" yaml:"max_interval"`
}

func (c RetryConfig) Enabled() bool {
	return c.MaxAttempts > 1
}

// RunOptions is the scalar part of a run's configuration, fixed at start.
type RunOptions struct {
	KeyColumn    string        `json:"key_column"`
	Offset       int           `json:"offset,omitempty"`
	Limit        int           `json:"limit,omitempty"`
	StageTimeout time.Duration `json:"stage_timeout"`
	Workers      int           `json:"workers"`
	Retry        RetryConfig   `json:"retry"`
}

// Progress is reported to observers after every record.
type Progress struct {
	RunID     string `json:"run_id"`
	Entity    string `json:"entity"`
	Status    string `json:"status"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
}

// RunSummary is the externally visible state of a run.
type RunSummary struct {
	RunID      string     `json:"run_id"`
	Origin     string     `json:"origin"`
	KeyColumn  string     `json:"key_column"`
	Status     RunStatus  `json:"status"`
	Total      int        `json:"total"`
	Completed  int        `json:"completed"`
	Failed     int        `json:"failed"`
	Usage      Usage      `json:"usage"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	// Last is the most recent progress event of a live run.
	Last *Progress `json:"last,omitempty"`
}

// Usage counts billable external calls made by a run.
type Usage struct {
	SearchQueries int `json:"search_queries"`
	TokensIn      int `json:"tokens_in"`
	TokensOut     int `json:"tokens_out"`
	OCRPages      int `json:"ocr_pages"`
}
