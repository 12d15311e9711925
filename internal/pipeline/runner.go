// Package pipeline executes an ordered list of fallible stages with
// fail-fast semantics: the first failing stage aborts the run, every later
// stage is recorded as skipped, and the failure carries its stage tag.
// There are no retries and no state persists across runs.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/relforge/relctl/pkg/logging"
)

// Runner drives stages through the state machine.
type Runner struct {
	log *logging.Logger
}

// NewRunner creates a pipeline runner.
func NewRunner(log *logging.Logger) *Runner {
	return &Runner{log: log}
}

// Run executes stages in order until the first failure.
//
// Every stage's transition from its predecessor is validated against the
// state machine before it runs; a stage list that does not form a legal
// path is a programming error and fails before any stage executes.
//
// The returned results always have one entry per stage. On failure the
// error is a *StageError for the failing stage.
func (r *Runner) Run(ctx context.Context, stages []Stage) ([]StageResult, error) {
	if len(stages) == 0 {
		return nil, fmt.Errorf("no stages to run")
	}

	if err := validatePath(stages); err != nil {
		return nil, err
	}

	results := make([]StageResult, 0, len(stages))
	for i, stage := range stages {
		if err := ctx.Err(); err != nil {
			tagged := &StageError{Stage: stage.State, Err: err}
			results = append(results, StageResult{
				Stage:  stage.State,
				Status: StatusFailed,
				Err:    err,
				Start:  time.Now(),
			})
			return r.abort(results, stages[i+1:]), tagged
		}

		r.log.Info("stage starting", map[string]interface{}{"stage": string(stage.State)})

		start := time.Now()
		err := stage.Run(ctx)
		duration := time.Since(start)

		if err != nil {
			tagged := &StageError{Stage: stage.State, Err: err}
			results = append(results, StageResult{
				Stage:    stage.State,
				Status:   StatusFailed,
				Err:      err,
				Start:    start,
				Duration: duration,
			})
			r.log.Error("stage failed", map[string]interface{}{
				"stage":    string(stage.State),
				"duration": duration.String(),
				"error":    err.Error(),
			})
			return r.abort(results, stages[i+1:]), tagged
		}

		results = append(results, StageResult{
			Stage:    stage.State,
			Status:   StatusOK,
			Start:    start,
			Duration: duration,
		})
		r.log.Info("stage complete", map[string]interface{}{
			"stage":    string(stage.State),
			"duration": duration.String(),
		})
	}

	return results, nil
}

// abort marks every stage that never ran as skipped.
func (r *Runner) abort(results []StageResult, remaining []Stage) []StageResult {
	for _, stage := range remaining {
		results = append(results, StageResult{
			Stage:  stage.State,
			Status: StatusSkipped,
			Start:  time.Now(),
		})
	}
	return results
}

// validatePath checks that no stage is itself a terminal state, that
// consecutive stages form legal transitions, and that the final stage can
// reach a terminal state.
func validatePath(stages []Stage) error {
	for _, stage := range stages {
		if IsTerminal(stage.State) {
			return fmt.Errorf("invalid stage order: terminal state %s cannot run as a stage", stage.State)
		}
	}
	for i := 1; i < len(stages); i++ {
		if err := ValidateTransition(stages[i-1].State, stages[i].State); err != nil {
			return fmt.Errorf("invalid stage order: %w", err)
		}
	}
	last := stages[len(stages)-1].State
	if err := ValidateTransition(last, StateDone); err != nil {
		return fmt.Errorf("pipeline cannot finish from %s: %w", last, err)
	}
	return nil
}
