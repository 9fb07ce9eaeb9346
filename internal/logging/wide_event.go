package logging

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey string

const (
	contextKeyWideEvent contextKey = "wide_event"
	contextKeyTraceID   contextKey = "trace_id"
)

// Lifecycle event types written to the log file.
const (
	EventSourceLoaded   = "source.loaded"
	EventSourceFailed   = "source.failed"
	EventRunStarted     = "run.started"
	EventRunFinished    = "run.finished"
	EventRecordFailed   = "record.failed"
	EventRecordComplete = "record.completed"
	EventExported       = "results.exported"
	EventExportFailed   = "results.export_failed"
	EventHTTPRequest    = "http.request"
)

// WideEvent is a single structured log entry that is populated as an
// operation flows through the system and emitted once at the end.
type WideEvent struct {
	TraceID   string
	EventType string
	Timestamp time.Time

	HTTPMethod     string
	HTTPPath       string
	HTTPStatusCode int
	HTTPDurationMs int64

	Source    string
	RunID     string
	RunStatus string
	KeyColumn string
	TotalRows int
	Completed int
	Failed    int

	Stages []string

	Error          string
	PanicRecovered bool

	Metadata map[string]interface{}
}

// NewWideEvent creates a new WideEvent with a trace ID and timestamp
func NewWideEvent(eventType string) *WideEvent {
	return &WideEvent{
		TraceID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
		Metadata:  make(map[string]interface{}),
	}
}

// WithContext attaches a WideEvent to a context
func WithContext(ctx context.Context, event *WideEvent) context.Context {
	ctx = context.WithValue(ctx, contextKeyWideEvent, event)
	ctx = context.WithValue(ctx, contextKeyTraceID, event.TraceID)
	return ctx
}

// FromContext retrieves the WideEvent from a context
func FromContext(ctx context.Context) *WideEvent {
	if event, ok := ctx.Value(contextKeyWideEvent).(*WideEvent); ok {
		return event
	}
	return nil
}

// GetTraceID retrieves just the trace ID from context
func GetTraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(contextKeyTraceID).(string); ok {
		return traceID
	}
	return ""
}

func EnrichHTTP(ctx context.Context, method, path string) {
	if event := FromContext(ctx); event != nil {
		event.HTTPMethod = method
		event.HTTPPath = path
	}
}

func EnrichHTTPStatus(ctx context.Context, statusCode int) {
	if event := FromContext(ctx); event != nil {
		event.HTTPStatusCode = statusCode
	}
}

func EnrichHTTPDuration(ctx context.Context, duration time.Duration) {
	if event := FromContext(ctx); event != nil {
		event.HTTPDurationMs = duration.Milliseconds()
	}
}

func EnrichSource(ctx context.Context, source string, rows int) {
	if event := FromContext(ctx); event != nil {
		event.Source = source
		event.TotalRows = rows
	}
}

func EnrichRun(ctx context.Context, runID, status string) {
	if event := FromContext(ctx); event != nil {
		event.RunID = runID
		event.RunStatus = status
	}
}

func EnrichError(ctx context.Context, err error) {
	if event := FromContext(ctx); event != nil && err != nil {
		event.Error = err.Error()
	}
}

func EnrichPanic(ctx context.Context) {
	if event := FromContext(ctx); event != nil {
		event.PanicRecovered = true
	}
}

func EnrichMetadata(ctx context.Context, key string, value interface{}) {
	if event := FromContext(ctx); event != nil {
		event.Metadata[key] = value
	}
}

// Emit writes the event in the context, if any, to the global logger.
func Emit(ctx context.Context) {
	event := FromContext(ctx)
	if event == nil {
		return
	}
	EmitEvent(event)
}

// EmitEvent writes event at error level when it carries an error, info otherwise.
func EmitEvent(event *WideEvent) {
	var e *zerolog.Event
	if event.Error != "" || event.PanicRecovered {
		e = log.Error()
	} else {
		e = log.Info()
	}

	e = e.Str("trace_id", event.TraceID).
		Str("event_type", event.EventType).
		Time("started_at", event.Timestamp)

	if event.HTTPMethod != "" {
		e = e.Str("http_method", event.HTTPMethod).
			Str("http_path", event.HTTPPath).
			Int("http_status_code", event.HTTPStatusCode).
			Int64("http_duration_ms", event.HTTPDurationMs)
	}
	if event.Source != "" {
		e = e.Str("source", event.Source)
	}
	if event.RunID != "" {
		e = e.Str("run_id", event.RunID)
	}
	if event.RunStatus != "" {
		e = e.Str("run_status", event.RunStatus)
	}
	if event.KeyColumn != "" {
		e = e.Str("key_column", event.KeyColumn)
	}
	if len(event.Stages) > 0 {
		e = e.Strs("stages", event.Stages)
	}
	if event.TotalRows != 0 {
		e = e.Int("total_rows", event.TotalRows)
	}
	if event.Completed != 0 || event.Failed != 0 {
		e = e.Int("completed", event.Completed).Int("failed", event.Failed)
	}
	if event.Error != "" {
		e = e.Str("error", event.Error)
	}
	if event.PanicRecovered {
		e = e.Bool("panic_recovered", true)
	}
	if len(event.Metadata) > 0 {
		e = e.Interface("metadata", event.Metadata)
	}

	e.Msg("wide_event")
}

// EmitRowEvent logs the outcome of one record.
func EmitRowEvent(ctx context.Context, eventType, runID string, rowIndex int, entity, stage string, duration time.Duration, err error) {
	var e *zerolog.Event
	if err != nil {
		e = log.Error().Err(err)
	} else {
		e = log.Debug()
	}

	e.Str("trace_id", GetTraceID(ctx)).
		Str("event_type", eventType).
		Str("run_id", runID).
		Int("row_index", rowIndex).
		Str("entity", entity).
		Str("stage", stage).
		Int64("duration_ms", duration.Milliseconds()).
		Msg("row_event")
}
