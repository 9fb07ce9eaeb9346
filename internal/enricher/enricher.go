package enricher

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/blagoySimandov/rowenrich/internal/logging"
	"github.com/blagoySimandov/rowenrich/internal/models"
	"github.com/blagoySimandov/rowenrich/internal/pipeline"
	"github.com/blagoySimandov/rowenrich/internal/services"
	"github.com/blagoySimandov/rowenrich/internal/sink"
	"github.com/blagoySimandov/rowenrich/internal/source"
	"github.com/blagoySimandov/rowenrich/internal/state"
)

// IEnricher is what the shells drive.
type IEnricher interface {
	Load(ctx context.Context, spec string) (*models.Table, error)
	Start(ctx context.Context, table *models.Table, req StartRequest) (string, error)
	Progress(ctx context.Context, runID string) (*models.RunSummary, error)
	Cancel(ctx context.Context, runID string) error
	Results(ctx context.Context, runID string, offset, limit int) ([]models.ResultRecord, error)
	Wait(ctx context.Context, runID string) error
	Export(ctx context.Context, runID, destination string, opts ...sink.ExportOption) (int64, error)
}

// StartRequest describes a run before its stages are bound.
type StartRequest struct {
	Options   models.RunOptions
	Stages    []models.StageSpec
	Observers []pipeline.Observer
}

type liveRun struct {
	run  *pipeline.Run
	done chan struct{}

	mu   sync.Mutex
	last *models.Progress
	// results holds every emitted record in order, whether or not the store
	// accepted it.
	results       []models.ResultRecord
	persistErrors int
}

type Enricher struct {
	pipeline   *pipeline.Pipeline
	manager    *state.Manager
	builder    *StageBuilder
	tracker    *services.UsageTracker
	sourceOpts source.Options
	defaults   models.RunOptions

	mu   sync.Mutex
	live map[string]*liveRun
	// recent is the last finished run; its buffer outlives the run.
	recent *liveRun
}

type Config struct {
	SourceOptions source.Options
	// Defaults fill the zero fields of each run's options.
	Defaults models.RunOptions
}

func NewEnricher(p *pipeline.Pipeline, manager *state.Manager, builder *StageBuilder, tracker *services.UsageTracker, cfg Config) *Enricher {
	if tracker == nil {
		tracker = services.NewUsageTracker()
	}
	return &Enricher{
		pipeline:   p,
		manager:    manager,
		builder:    builder,
		tracker:    tracker,
		sourceOpts: cfg.SourceOptions,
		defaults:   cfg.Defaults,
		live:       make(map[string]*liveRun),
	}
}

func (e *Enricher) Load(ctx context.Context, spec string) (*models.Table, error) {
	event := logging.NewWideEvent(logging.EventSourceLoaded)
	table, err := source.Load(ctx, spec, e.sourceOpts)
	if err != nil {
		event.EventType = logging.EventSourceFailed
		event.Source = spec
		event.Error = err.Error()
		logging.EmitEvent(event)
		return nil, err
	}
	event.Source = table.Origin
	event.TotalRows = len(table.Rows)
	logging.EmitEvent(event)
	return table, nil
}

func (e *Enricher) Preview(ctx context.Context, spec string, limit int) (*models.PreviewResponse, error) {
	table, err := e.Load(ctx, spec)
	if err != nil {
		return nil, err
	}
	return models.NewPreviewResponse(table, limit), nil
}

func (e *Enricher) withDefaults(opts models.RunOptions) models.RunOptions {
	if opts.StageTimeout <= 0 {
		opts.StageTimeout = e.defaults.StageTimeout
	}
	if opts.Workers <= 0 {
		opts.Workers = e.defaults.Workers
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = e.defaults.Retry
	}
	return opts
}

// Start binds the stages and launches the run in the background. Only one
// run may be live at a time. The run is detached from ctx's cancellation.
func (e *Enricher) Start(ctx context.Context, table *models.Table, req StartRequest) (string, error) {
	bindings, err := e.builder.Build(req.Stages)
	if err != nil {
		return "", err
	}
	opts := e.withDefaults(req.Options)

	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.live) > 0 {
		return "", models.ErrRunActive
	}

	runID := e.manager.GenerateRunID()
	lr := &liveRun{done: make(chan struct{})}
	observers := append([]pipeline.Observer{lr.observe}, req.Observers...)

	run, err := e.pipeline.Start(context.WithoutCancel(ctx), table, pipeline.RunConfig{
		ID:        runID,
		Options:   opts,
		Stages:    bindings,
		Observers: observers,
	})
	if err != nil {
		return "", err
	}
	lr.run = run

	err = e.manager.InitializeRun(ctx, &models.RunDB{
		RunID:     runID,
		Origin:    table.Origin,
		KeyColumn: opts.KeyColumn,
		Options:   opts,
		TotalRows: run.Total(),
	}, run.Cancel)
	if err != nil {
		run.Cancel()
		return "", err
	}
	e.live[runID] = lr

	stageNames := make([]string, len(bindings))
	for i, b := range bindings {
		stageNames[i] = b.Stage.Name()
	}
	event := logging.NewWideEvent(logging.EventRunStarted)
	event.RunID = runID
	event.Source = table.Origin
	event.KeyColumn = opts.KeyColumn
	event.TotalRows = run.Total()
	event.Stages = stageNames
	logging.EmitEvent(event)

	go e.collect(context.WithoutCancel(ctx), lr)
	return runID, nil
}

func (lr *liveRun) observe(p models.Progress) {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	lr.last = &p
}

func (lr *liveRun) lastProgress() *models.Progress {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	return lr.last
}

// collect persists every result as it is emitted and finalizes the run. A
// run whose results could not all be stored ends FAILED.
func (e *Enricher) collect(ctx context.Context, lr *liveRun) {
	runID := lr.run.ID()
	defer close(lr.done)

	for rec := range lr.run.Results() {
		err := e.manager.Record(ctx, runID, rec)
		lr.mu.Lock()
		lr.results = append(lr.results, rec)
		if err != nil {
			lr.persistErrors++
		}
		lr.mu.Unlock()
		if err != nil {
			log.Error().Err(err).Str("run_id", runID).Int("row_index", rec.RowIndex).Msg("failed to persist result")
		}
	}
	lr.run.Wait()

	status := models.RunStatusCompleted
	if lr.run.Cancelled() {
		status = models.RunStatusCancelled
	}
	if _, persistErrors := lr.buffered(); persistErrors > 0 {
		status = models.RunStatusFailed
		log.Error().Str("run_id", runID).Int("unsaved", persistErrors).Msg("run results were not fully stored")
	}
	usage := e.tracker.Usage(runID)
	e.tracker.Forget(runID)
	if err := e.manager.Finish(ctx, runID, status, usage); err != nil {
		log.Error().Err(err).Str("run_id", runID).Msg("failed to finish run")
	}

	e.mu.Lock()
	delete(e.live, runID)
	e.recent = lr
	e.mu.Unlock()

	emitted, failed := lr.run.Counts()
	event := logging.NewWideEvent(logging.EventRunFinished)
	event.RunID = runID
	event.RunStatus = string(status)
	event.TotalRows = lr.run.Total()
	event.Completed = emitted
	event.Failed = failed
	event.Metadata["search_queries"] = usage.SearchQueries
	event.Metadata["tokens_in"] = usage.TokensIn
	event.Metadata["tokens_out"] = usage.TokensOut
	logging.EmitEvent(event)
}

// buffered returns a copy of the emitted records and the number the store
// rejected.
func (lr *liveRun) buffered() ([]models.ResultRecord, int) {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	return append([]models.ResultRecord(nil), lr.results...), lr.persistErrors
}

// bufferedRun returns the live or most recently finished run with runID.
func (e *Enricher) bufferedRun(runID string) (*liveRun, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if lr, ok := e.live[runID]; ok {
		return lr, true
	}
	if e.recent != nil && e.recent.run.ID() == runID {
		return e.recent, true
	}
	return nil, false
}

func (e *Enricher) liveRun(runID string) (*liveRun, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	lr, ok := e.live[runID]
	return lr, ok
}

func (e *Enricher) Progress(ctx context.Context, runID string) (*models.RunSummary, error) {
	summary, err := e.manager.Progress(ctx, runID)
	if err != nil {
		return nil, err
	}
	if lr, ok := e.liveRun(runID); ok {
		summary.Last = lr.lastProgress()
		summary.Usage = e.tracker.Usage(runID)
	}
	if lr, ok := e.bufferedRun(runID); ok {
		results, _ := lr.buffered()
		summary.Completed, summary.Failed = len(results), 0
		for _, r := range results {
			if r.Status == models.StatusError {
				summary.Failed++
			}
		}
	}
	return summary, nil
}

// ListRuns returns stored runs, newest first.
func (e *Enricher) ListRuns(ctx context.Context, offset, limit int) ([]*models.RunSummary, error) {
	return e.manager.Store().ListRuns(ctx, offset, limit)
}

func (e *Enricher) Cancel(ctx context.Context, runID string) error {
	return e.manager.Cancel(ctx, runID)
}

// Results pages through the results of runID. The live or most recent run is
// served from its buffer, other runs from the store.
func (e *Enricher) Results(ctx context.Context, runID string, offset, limit int) ([]models.ResultRecord, error) {
	lr, ok := e.bufferedRun(runID)
	if !ok {
		return e.manager.Store().ListResults(ctx, runID, offset, limit)
	}
	results, _ := lr.buffered()
	if offset >= len(results) {
		return nil, nil
	}
	results = results[offset:]
	if limit > 0 && limit < len(results) {
		results = results[:limit]
	}
	return results, nil
}

// Wait blocks until runID has finished and all its results are stored.
func (e *Enricher) Wait(ctx context.Context, runID string) error {
	lr, ok := e.liveRun(runID)
	if !ok {
		_, err := e.manager.Progress(ctx, runID)
		return err
	}
	select {
	case <-lr.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Export writes the results of runID to destination. A failed run whose
// buffer is gone cannot be exported, its stored results being incomplete.
func (e *Enricher) Export(ctx context.Context, runID, destination string, opts ...sink.ExportOption) (int64, error) {
	if _, ok := e.bufferedRun(runID); !ok {
		summary, err := e.manager.Progress(ctx, runID)
		if err != nil {
			return 0, err
		}
		if summary.Status == models.RunStatusFailed {
			return 0, &models.Error{Kind: models.ErrResultsIncomplete, Op: "export " + runID}
		}
	}
	results, err := e.Results(ctx, runID, 0, 0)
	if err != nil {
		return 0, err
	}

	event := logging.NewWideEvent(logging.EventExported)
	event.RunID = runID
	event.Metadata["destination"] = destination
	event.Metadata["rows"] = len(results)

	n, err := sink.Export(ctx, destination, results, e.sourceOpts, opts...)
	if err != nil {
		event.EventType = logging.EventExportFailed
		event.Error = err.Error()
	}
	event.Metadata["written"] = n
	logging.EmitEvent(event)
	return n, err
}

// ActiveRun returns the ID of the live run, if any.
func (e *Enricher) ActiveRun() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id := range e.live {
		return id, true
	}
	return "", false
}

// IsRunActive reports whether err means another run is still live.
func IsRunActive(err error) bool {
	return errors.Is(err, models.ErrRunActive)
}
