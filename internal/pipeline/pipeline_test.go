package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blagoySimandov/rowenrich/internal/models"
	"github.com/blagoySimandov/rowenrich/internal/pipeline"
	"github.com/blagoySimandov/rowenrich/internal/services"
)

func newTable(column string, values ...*string) *models.Table {
	columns := []string{column}
	index := map[string]int{column: 0}
	t := &models.Table{Origin: "test", Columns: columns}
	for _, v := range values {
		t.Rows = append(t.Rows, models.NewRecord(columns, index, []*string{v}))
	}
	return t
}

func names(values ...string) *models.Table {
	ptrs := make([]*string, len(values))
	for i := range values {
		ptrs[i] = &values[i]
	}
	return newTable("name", ptrs...)
}

// funcStage is a deterministic stand-in for a remote stage.
type funcStage struct {
	name  string
	calls atomic.Int32
	fn    func(ctx context.Context, in pipeline.StageInput) (string, error)
}

func (s *funcStage) Name() string { return s.name }

func (s *funcStage) Apply(ctx context.Context, in pipeline.StageInput) (string, error) {
	s.calls.Add(1)
	return s.fn(ctx, in)
}

func echoStage() *funcStage {
	return &funcStage{name: "Extraction", fn: func(_ context.Context, in pipeline.StageInput) (string, error) {
		return in.Previous, nil
	}}
}

func lookupStage(answers map[string]string, failures map[string]error) *funcStage {
	return &funcStage{name: "Search", fn: func(_ context.Context, in pipeline.StageInput) (string, error) {
		if err, ok := failures[in.Entity]; ok {
			return "", err
		}
		return answers[in.Entity], nil
	}}
}

func searchExtract(search, extract pipeline.Stage) []pipeline.Binding {
	return []pipeline.Binding{
		{Stage: search, Params: models.StageParams{Template: "contact email of {entity}"}, Field: models.FieldSearchResults},
		{Stage: extract, Params: models.StageParams{Template: "Get me the email address of {entity}"}, Field: models.FieldExtractedInfo},
	}
}

func start(t *testing.T, table *models.Table, cfg pipeline.RunConfig) *pipeline.Run {
	t.Helper()
	if cfg.Options.KeyColumn == "" {
		cfg.Options.KeyColumn = "name"
	}
	run, err := pipeline.NewPipeline(nil).Start(context.Background(), table, cfg)
	require.NoError(t, err)
	return run
}

func TestRunSearchThenExtract(t *testing.T) {
	search := lookupStage(map[string]string{"Acme": "contact@acme.com"}, nil)
	run := start(t, names("Acme", "Globex"), pipeline.RunConfig{Stages: searchExtract(search, echoStage())})

	results := run.Collect()
	run.Wait()

	require.Len(t, results, 2)
	assert.Equal(t, "Acme", results[0].Entity)
	assert.Equal(t, "contact@acme.com", results[0].ExtractedInfo())
	assert.Equal(t, models.StatusComplete, results[0].Status)
	assert.Equal(t, "Globex", results[1].Entity)
	assert.Equal(t, "", results[1].ExtractedInfo())
	assert.Equal(t, models.StatusComplete, results[1].Status)
	assert.False(t, run.Cancelled())
}

func TestRunStageFailureDoesNotAbort(t *testing.T) {
	netErr := fmt.Errorf("failed to execute request: %w", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")})
	search := lookupStage(map[string]string{"Acme": "contact@acme.com"}, map[string]error{"Globex": netErr})
	extract := echoStage()
	run := start(t, names("Acme", "Globex", "Initech"), pipeline.RunConfig{Stages: searchExtract(search, extract)})

	results := run.Collect()

	require.Len(t, results, 3)
	assert.Equal(t, models.StatusComplete, results[0].Status)
	assert.Equal(t, models.StatusError, results[1].Status)
	assert.Contains(t, results[1].Message, "Search failed: ")
	assert.Equal(t, results[1].Message, results[1].ExtractedInfo())
	assert.ErrorIs(t, results[1].Err, models.ErrStageNetwork)
	var se *models.StageError
	require.ErrorAs(t, results[1].Err, &se)
	assert.Equal(t, "Globex", se.Entity)
	assert.Equal(t, models.StatusComplete, results[2].Status)

	// the failing record never reached extraction
	assert.EqualValues(t, 2, extract.calls.Load())

	_, failed := run.Counts()
	assert.Equal(t, 1, failed)
}

func TestRunServiceErrorKind(t *testing.T) {
	search := lookupStage(nil, map[string]error{"Acme": &services.ServiceError{Service: "serpapi", StatusCode: 401}})
	run := start(t, names("Acme"), pipeline.RunConfig{Stages: searchExtract(search, echoStage())})

	results := run.Collect()
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, models.ErrStageService)
}

func TestRunKeepsOrderAndCount(t *testing.T) {
	values := make([]string, 50)
	position := make(map[string]int, len(values))
	for i := range values {
		values[i] = fmt.Sprintf("entity-%02d", i)
		position[values[i]] = i
	}
	slow := &funcStage{name: "Search", fn: func(_ context.Context, in pipeline.StageInput) (string, error) {
		// later records finish first
		time.Sleep(time.Duration(len(values)-position[in.Entity]) * 20 * time.Microsecond)
		return "r:" + in.Entity, nil
	}}

	for _, workers := range []int{1, 4} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			run := start(t, names(values...), pipeline.RunConfig{
				Options: models.RunOptions{Workers: workers},
				Stages:  searchExtract(slow, echoStage()),
			})
			results := run.Collect()

			require.Len(t, results, len(values))
			for i, rec := range results {
				assert.Equal(t, i, rec.RowIndex)
				assert.Equal(t, values[i], rec.Entity)
				assert.Equal(t, "r:"+values[i], rec.ExtractedInfo())
			}
		})
	}
}

func TestRunIsIdempotent(t *testing.T) {
	table := names("Acme", "Globex", "Acme")
	search := lookupStage(map[string]string{"Acme": "a", "Globex": "g"}, nil)

	first := start(t, table, pipeline.RunConfig{Stages: searchExtract(search, echoStage())}).Collect()
	second := start(t, table, pipeline.RunConfig{Stages: searchExtract(search, echoStage())}).Collect()

	require.Len(t, first, 3)
	require.Len(t, second, 3)
	for i := range first {
		assert.Equal(t, first[i].Entity, second[i].Entity)
		assert.Equal(t, first[i].Fields, second[i].Fields)
		assert.Equal(t, first[i].Status, second[i].Status)
	}
}

func TestRunProcessesAbsentAndEmptyEntities(t *testing.T) {
	empty := ""
	acme := "Acme"
	table := newTable("name", &acme, nil, &empty)

	var seen []string
	var mu sync.Mutex
	stage := &funcStage{name: "Search", fn: func(_ context.Context, in pipeline.StageInput) (string, error) {
		mu.Lock()
		seen = append(seen, in.Entity)
		mu.Unlock()
		return "ok", nil
	}}
	run := start(t, table, pipeline.RunConfig{Stages: []pipeline.Binding{
		{Stage: stage, Params: models.StageParams{Template: "{entity}"}, Field: models.FieldSearchResults},
	}})

	results := run.Collect()
	require.Len(t, results, 3)
	assert.Equal(t, []string{"Acme", "", ""}, seen)
	assert.Equal(t, "", results[1].Entity)
	assert.Equal(t, models.StatusComplete, results[1].Status)
}

func TestRunCancelBetweenRecords(t *testing.T) {
	entered := make(chan struct{})
	gate := make(chan struct{})
	stage := &funcStage{name: "Search", fn: func(_ context.Context, in pipeline.StageInput) (string, error) {
		if in.Entity == "b" {
			close(entered)
			<-gate
		}
		return in.Entity, nil
	}}

	run := start(t, names("a", "b", "c", "d"), pipeline.RunConfig{
		Stages: []pipeline.Binding{{Stage: stage, Params: models.StageParams{Template: "{entity}"}, Field: "out"}},
	})

	<-entered
	run.Cancel()
	close(gate)
	results := run.Collect()
	run.Wait()

	// the in-flight record completes, nothing after it starts
	require.Len(t, results, 2)
	assert.Equal(t, "b", results[1].Entity)
	assert.Equal(t, models.StatusComplete, results[1].Status)
	assert.True(t, run.Cancelled())
	assert.EqualValues(t, 2, stage.calls.Load())
}

func TestRunStopsOnParentContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stage := &funcStage{name: "Search", fn: func(_ context.Context, in pipeline.StageInput) (string, error) {
		if in.Entity == "a" {
			cancel()
		}
		return in.Entity, nil
	}}

	run, err := pipeline.NewPipeline(nil).Start(ctx, names("a", "b", "c"), pipeline.RunConfig{
		Options: models.RunOptions{KeyColumn: "name"},
		Stages:  []pipeline.Binding{{Stage: stage, Params: models.StageParams{Template: "{entity}"}, Field: "out"}},
	})
	require.NoError(t, err)
	run.Wait()

	results := run.Collect()
	require.Len(t, results, 1)
	assert.True(t, run.Cancelled())
}

func TestRunResultsSingleUse(t *testing.T) {
	run := start(t, names("a", "b"), pipeline.RunConfig{Stages: []pipeline.Binding{
		{Stage: echoStage(), Params: models.StageParams{Template: "{entity}"}, Field: "out"},
	}})
	assert.Len(t, run.Collect(), 2)
	assert.Empty(t, run.Collect())
}

func TestRunProgressObserver(t *testing.T) {
	var progress []models.Progress
	search := lookupStage(map[string]string{"Acme": "x"}, map[string]error{"Globex": errors.New("boom")})
	run := start(t, names("Acme", "Globex"), pipeline.RunConfig{
		ID:        "run-1",
		Stages:    searchExtract(search, echoStage()),
		Observers: []pipeline.Observer{func(p models.Progress) { progress = append(progress, p) }},
	})
	run.Collect()
	run.Wait()

	require.Len(t, progress, 2)
	assert.Equal(t, models.Progress{RunID: "run-1", Entity: "Acme", Status: "Complete", Completed: 1, Total: 2}, progress[0])
	assert.Equal(t, "Globex", progress[1].Entity)
	assert.Equal(t, "Error: Search failed: boom", progress[1].Status)
	assert.Equal(t, 2, progress[1].Completed)
}

func TestRunOffsetAndLimit(t *testing.T) {
	run := start(t, names("a", "b", "c", "d", "e"), pipeline.RunConfig{
		Options: models.RunOptions{Offset: 1, Limit: 3},
		Stages:  []pipeline.Binding{{Stage: echoStage(), Params: models.StageParams{Template: "{entity}"}, Field: "out"}},
	})
	results := run.Collect()

	assert.Equal(t, 3, run.Total())
	require.Len(t, results, 3)
	assert.Equal(t, "b", results[0].Entity)
	assert.Equal(t, 1, results[0].RowIndex)
	assert.Equal(t, "d", results[2].Entity)
}

func TestRunStageTimeout(t *testing.T) {
	blocking := &funcStage{name: "Search", fn: func(ctx context.Context, in pipeline.StageInput) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	run := start(t, names("Acme"), pipeline.RunConfig{
		Options: models.RunOptions{StageTimeout: 10 * time.Millisecond},
		Stages:  searchExtract(blocking, echoStage()),
	})

	results := run.Collect()
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, models.ErrStageNetwork)
	assert.ErrorIs(t, results[0].Err, context.DeadlineExceeded)
}

func TestRunRetriesTransientFailures(t *testing.T) {
	var attempts atomic.Int32
	flaky := &funcStage{name: "Search", fn: func(_ context.Context, in pipeline.StageInput) (string, error) {
		if attempts.Add(1) < 3 {
			return "", &services.ServiceError{Service: "serpapi", StatusCode: 503}
		}
		return "found", nil
	}}
	run := start(t, names("Acme"), pipeline.RunConfig{
		Options: models.RunOptions{Retry: models.RetryConfig{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}},
		Stages:  searchExtract(flaky, echoStage()),
	})

	results := run.Collect()
	require.Len(t, results, 1)
	assert.Equal(t, models.StatusComplete, results[0].Status)
	assert.Equal(t, "found", results[0].ExtractedInfo())
	assert.EqualValues(t, 3, attempts.Load())
}

func TestRunDoesNotRetryPermanentFailures(t *testing.T) {
	denied := &funcStage{name: "Search", fn: func(_ context.Context, in pipeline.StageInput) (string, error) {
		return "", &services.ServiceError{Service: "serpapi", StatusCode: 401}
	}}
	run := start(t, names("Acme"), pipeline.RunConfig{
		Options: models.RunOptions{Retry: models.RetryConfig{MaxAttempts: 5, InitialInterval: time.Millisecond}},
		Stages:  searchExtract(denied, echoStage()),
	})

	results := run.Collect()
	require.Len(t, results, 1)
	assert.Equal(t, models.StatusError, results[0].Status)
	assert.EqualValues(t, 1, denied.calls.Load())
}

func TestStartRejectsBadConfig(t *testing.T) {
	p := pipeline.NewPipeline(nil)
	table := names("Acme")

	tests := []struct {
		name string
		cfg  pipeline.RunConfig
		want error
	}{
		{
			name: "unknown column",
			cfg:  pipeline.RunConfig{Options: models.RunOptions{KeyColumn: "company"}},
			want: models.ErrUnknownColumn,
		},
		{
			name: "template without placeholder",
			cfg: pipeline.RunConfig{
				Options: models.RunOptions{KeyColumn: "name"},
				Stages:  []pipeline.Binding{{Stage: echoStage(), Params: models.StageParams{Template: "static query"}, Field: "out"}},
			},
			want: models.ErrStageConfig,
		},
		{
			name: "nil stage",
			cfg: pipeline.RunConfig{
				Options: models.RunOptions{KeyColumn: "name"},
				Stages:  []pipeline.Binding{{Params: models.StageParams{Template: "{entity}"}, Field: "out"}},
			},
			want: models.ErrStageConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Start(context.Background(), table, tt.cfg)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRunWithoutStagesEmitsEntities(t *testing.T) {
	run := start(t, names("Acme", "Globex"), pipeline.RunConfig{})
	results := run.Collect()
	require.Len(t, results, 2)
	assert.Empty(t, results[0].Fields)
	assert.Equal(t, models.StatusComplete, results[1].Status)
}
