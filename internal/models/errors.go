package models

import (
	"errors"
	"fmt"
)

// Error kinds. Callers match them with errors.Is.
var (
	ErrSourceUnreadable      = errors.New("source unreadable")
	ErrSourceEmpty           = errors.New("source empty")
	ErrSourceMalformed       = errors.New("source malformed")
	ErrStageNetwork          = errors.New("stage network error")
	ErrStageService          = errors.New("stage service error")
	ErrStageConfig           = errors.New("stage config error")
	ErrDestinationUnwritable = errors.New("destination unwritable")

	ErrUnknownColumn = errors.New("unknown column")
	ErrRunNotFound   = errors.New("run not found")
	ErrRunActive     = errors.New("a run is already active")

	ErrPathForbidden     = errors.New("local path not permitted")
	ErrResultsIncomplete = errors.New("run results incomplete")
)

// Error attaches an operation and an underlying cause to one of the error kinds.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// StageError is the per-record failure produced at a stage boundary. Its
// message is what ends up in the result record, e.g. "Search failed: timeout".
type StageError struct {
	Kind   error
	Stage  string
	Entity string
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}
