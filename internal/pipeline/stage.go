package pipeline

import (
	"context"
	"errors"

	"github.com/blagoySimandov/rowenrich/internal/models"
	"github.com/blagoySimandov/rowenrich/internal/services"
)

// StageInput is what a stage sees for one record. Fields is a copy of the
// outputs produced so far by earlier stages of the same record.
type StageInput struct {
	Entity   string
	Previous string
	Params   models.StageParams
	Fields   map[string]string
}

type Stage interface {
	Apply(ctx context.Context, in StageInput) (string, error)
	Name() string
}

// Binding places a stage in a run with its template and output field.
type Binding struct {
	Stage  Stage
	Params models.StageParams
	Field  string
}

func (b Binding) validate() error {
	if b.Stage == nil {
		return &models.Error{Kind: models.ErrStageConfig, Op: "bind stage", Err: errors.New("nil stage")}
	}
	if b.Field == "" {
		return &models.Error{Kind: models.ErrStageConfig, Op: "bind stage " + b.Stage.Name(), Err: errors.New("empty output field")}
	}
	return b.Params.Validate()
}

// newStageError classifies err and attaches the stage and entity to it.
func newStageError(stage, entity string, err error) *models.StageError {
	var se *models.StageError
	if errors.As(err, &se) {
		return se
	}
	return &models.StageError{
		Kind:   classify(err),
		Stage:  stage,
		Entity: entity,
		Err:    err,
	}
}

func classify(err error) error {
	switch {
	case errors.Is(err, models.ErrStageConfig):
		return models.ErrStageConfig
	case services.IsServiceError(err):
		return models.ErrStageService
	case services.IsTransient(err), errors.Is(err, context.Canceled):
		return models.ErrStageNetwork
	default:
		return models.ErrStageService
	}
}
