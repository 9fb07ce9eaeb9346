package pipeline

import (
	"context"
	"iter"
	"maps"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/blagoySimandov/rowenrich/internal/logging"
	"github.com/blagoySimandov/rowenrich/internal/models"
	"github.com/blagoySimandov/rowenrich/internal/services"
)

// Observer receives progress after every emitted record. It is called from
// the run's emitting goroutine and must not block for long.
type Observer func(models.Progress)

type RunConfig struct {
	ID        string
	Options   models.RunOptions
	Stages    []Binding
	Observers []Observer
}

type PipelineConfig struct {
	DefaultStageTimeout time.Duration
	DefaultWorkers      int
}

type Pipeline struct {
	config *PipelineConfig
}

func NewPipeline(config *PipelineConfig) *Pipeline {
	if config == nil {
		config = &PipelineConfig{}
	}
	return &Pipeline{config: config}
}

type job struct {
	rowIndex int
	entity   string
}

// Run is one pass of a fixed stage chain over a fixed set of records.
type Run struct {
	id        string
	total     int
	opts      models.RunOptions
	stages    []Binding
	observers []Observer

	results   chan models.ResultRecord
	done      chan struct{}
	consumed  atomic.Bool
	cancelled atomic.Bool
	emitted   int
	failed    int
}

// Start validates cfg against table and begins processing in the background.
// Records are visited in table order starting at Options.Offset.
func (p *Pipeline) Start(ctx context.Context, table *models.Table, cfg RunConfig) (*Run, error) {
	entities, err := table.Entities(cfg.Options.KeyColumn)
	if err != nil {
		return nil, err
	}
	for _, b := range cfg.Stages {
		if err := b.validate(); err != nil {
			return nil, err
		}
	}

	opts := cfg.Options
	if opts.StageTimeout <= 0 {
		opts.StageTimeout = p.config.DefaultStageTimeout
	}
	if opts.StageTimeout <= 0 {
		opts.StageTimeout = 60 * time.Second
	}
	if opts.Workers <= 0 {
		opts.Workers = max(p.config.DefaultWorkers, 1)
	}

	jobs := selectJobs(entities, opts.Offset, opts.Limit)

	run := &Run{
		id:        cfg.ID,
		total:     len(jobs),
		opts:      opts,
		stages:    append([]Binding(nil), cfg.Stages...),
		observers: append([]Observer(nil), cfg.Observers...),
		results:   make(chan models.ResultRecord, len(jobs)),
		done:      make(chan struct{}),
	}
	if run.id == "" {
		run.id = uuid.New().String()
	}

	ctx = services.ContextWithRunID(ctx, run.id)
	go func() {
		defer close(run.done)
		defer close(run.results)
		if opts.Workers > 1 {
			run.processParallel(ctx, jobs)
		} else {
			run.processSequential(ctx, jobs)
		}
	}()

	return run, nil
}

func selectJobs(entities []string, offset, limit int) []job {
	offset = max(offset, 0)
	if offset > len(entities) {
		offset = len(entities)
	}
	end := len(entities)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	jobs := make([]job, 0, end-offset)
	for i := offset; i < end; i++ {
		jobs = append(jobs, job{rowIndex: i, entity: entities[i]})
	}
	return jobs
}

func (r *Run) ID() string {
	return r.id
}

func (r *Run) Total() int {
	return r.total
}

// Results yields the result records in input order as they become
// available. The sequence can be consumed once; later calls yield nothing.
func (r *Run) Results() iter.Seq[models.ResultRecord] {
	return func(yield func(models.ResultRecord) bool) {
		if !r.consumed.CompareAndSwap(false, true) {
			return
		}
		for rec := range r.results {
			if !yield(rec) {
				return
			}
		}
	}
}

// Collect drains Results into a slice.
func (r *Run) Collect() []models.ResultRecord {
	var out []models.ResultRecord
	for rec := range r.Results() {
		out = append(out, rec)
	}
	return out
}

// Cancel stops the run before the next record. The record in flight
// completes and is emitted.
func (r *Run) Cancel() {
	r.cancelled.Store(true)
}

// Wait blocks until the last record has been emitted.
func (r *Run) Wait() {
	<-r.done
}

func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Cancelled reports whether the run stopped before visiting every record.
// It is only meaningful after Wait returns.
func (r *Run) Cancelled() bool {
	return r.emitted < r.total
}

// Counts returns the number of emitted and failed records. It is only
// meaningful after Wait returns.
func (r *Run) Counts() (emitted, failed int) {
	return r.emitted, r.failed
}

func (r *Run) stopped(ctx context.Context) bool {
	return r.cancelled.Load() || ctx.Err() != nil
}

func (r *Run) processSequential(ctx context.Context, jobs []job) {
	for _, j := range jobs {
		if r.stopped(ctx) {
			return
		}
		r.emit(r.process(ctx, j))
	}
}

// processParallel runs up to Workers records at once and emits them in
// input order through one slot per record.
func (r *Run) processParallel(ctx context.Context, jobs []job) {
	slots := make([]chan models.ResultRecord, len(jobs))
	for i := range slots {
		slots[i] = make(chan models.ResultRecord, 1)
	}

	launched := make(chan int, 1)
	g := new(errgroup.Group)
	g.SetLimit(r.opts.Workers)
	go func() {
		n := 0
		for i, j := range jobs {
			if r.stopped(ctx) {
				break
			}
			g.Go(func() error {
				slots[i] <- r.process(ctx, j)
				return nil
			})
			n++
		}
		launched <- n
	}()

	limit := len(jobs)
	for next := 0; next < limit; {
		select {
		case rec := <-slots[next]:
			r.emit(rec)
			next++
		case n := <-launched:
			limit = n
			launched = nil
		}
	}
	g.Wait()
}

func (r *Run) process(ctx context.Context, j job) models.ResultRecord {
	start := time.Now()
	rec := models.ResultRecord{
		RowIndex: j.rowIndex,
		Entity:   j.entity,
		Status:   models.StatusComplete,
	}

	fields := make(map[string]string, len(r.stages))
	previous := ""
	for _, b := range r.stages {
		out, err := applyStage(ctx, r.opts, b, StageInput{
			Entity:   j.entity,
			Previous: previous,
			Params:   b.Params,
			Fields:   maps.Clone(fields),
		})
		if err != nil {
			serr := newStageError(b.Stage.Name(), j.entity, err)
			rec.Status = models.StatusError
			rec.Message = serr.Error()
			rec.Err = serr
			break
		}
		rec.Fields = append(rec.Fields, models.Field{Name: b.Field, Value: out})
		fields[b.Field] = out
		previous = out
	}
	rec.Duration = time.Since(start)

	stage := ""
	var err error
	if rec.Err != nil {
		stage = rec.Err.(*models.StageError).Stage
		err = rec.Err
	}
	logging.EmitRowEvent(ctx, rowEventType(rec), r.id, rec.RowIndex, rec.Entity, stage, rec.Duration, err)
	return rec
}

func rowEventType(rec models.ResultRecord) string {
	if rec.Status == models.StatusError {
		return logging.EventRecordFailed
	}
	return logging.EventRecordComplete
}

func (r *Run) emit(rec models.ResultRecord) {
	r.results <- rec
	r.emitted++
	if rec.Status == models.StatusError {
		r.failed++
	}

	progress := models.Progress{
		RunID:     r.id,
		Entity:    rec.Entity,
		Status:    rec.StatusText(),
		Completed: r.emitted,
		Total:     r.total,
	}
	for _, obs := range r.observers {
		obs(progress)
	}
}
