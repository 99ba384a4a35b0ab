package ingestion

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreRequired is returned when a pipeline is created without a store.
	ErrStoreRequired = errors.New("store required")

	// ErrAlreadyIngested is returned for a live run over a source that already
	// has entities, unless the request forces re-ingestion.
	ErrAlreadyIngested = errors.New("source already ingested")

	// ErrInvalidSheet is returned for a CSV export that cannot be imported.
	ErrInvalidSheet = errors.New("invalid sheet")
)

// Stage names a pipeline stage that can fail a run.
type Stage string

const (
	StageValidation Stage = "validation"
	StageParse      Stage = "parse"
	StageExtract    Stage = "extract"
	StageInsert     Stage = "insert"
)

// StageError reports the stage at which a run failed.
type StageError struct {
	Stage Stage
	Path  string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed for %s: %v", e.Stage, e.Path, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageError(stage Stage, path string, err error) *StageError {
	return &StageError{Stage: stage, Path: path, Err: err}
}
