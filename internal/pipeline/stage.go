package pipeline

import (
	"context"
	"fmt"
	"time"
)

// Stage is one fallible step of a pipeline run.
type Stage struct {
	State State
	Run   func(ctx context.Context) error
}

// StageError tags a failure with the stage that produced it, so the exit
// diagnostic names where the run stopped rather than just what the tool said.
type StageError struct {
	Stage State
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// StageStatus is the outcome of a single stage within a run.
type StageStatus string

const (
	StatusOK      StageStatus = "ok"
	StatusFailed  StageStatus = "failed"
	StatusSkipped StageStatus = "skipped" // never ran because an earlier stage failed
)

// StageResult records what one stage did. Set once at stage completion.
type StageResult struct {
	Stage    State
	Status   StageStatus
	Err      error
	Start    time.Time
	Duration time.Duration
}
