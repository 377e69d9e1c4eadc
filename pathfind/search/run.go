package search

import (
	"context"
	"sync"

	"github.com/wricardo/pathrace/pathfind/grid"
)

// Run executes algorithm over g to completion, pausing between steps with the
// configured pacer. Cancelling ctx cancels the run at its next step.
//
// Outcomes, including failure and cancellation, are reported in the Result;
// the error is only non-nil when the run could not be created.
func Run(ctx context.Context, algorithm Algorithm, g *grid.Grid, options ...Option) (Result, error) {
	stepper, err := NewStepper(algorithm, g, options...)
	if err != nil {
		return Result{}, err
	}
	opts := applyOptions(options)

	return Drive(ctx, stepper, opts.Pacer, opts.Locker), nil
}

// Drive steps an existing stepper until it is done. A nil pacer runs without
// delay; a non-nil locker is held around every step.
func Drive(ctx context.Context, stepper *Stepper, pacer Pacer, locker sync.Locker) Result {
	if pacer == nil {
		pacer = NoDelay{}
	}

	for {
		if ctx.Err() != nil {
			stepper.Cancel()
		}

		if locker != nil {
			locker.Lock()
		}
		snapshot := stepper.Step()
		if locker != nil {
			locker.Unlock()
		}

		if snapshot.Done {
			break
		}
		if err := pacer.Pause(ctx, snapshot.Phase); err != nil {
			stepper.Cancel()
		}
	}

	return stepper.Result()
}

// Solve runs algorithm synchronously with no pacing
func Solve(algorithm Algorithm, g *grid.Grid, options ...Option) (Result, error) {
	options = append(options, WithPacer(NoDelay{}))
	return Run(context.Background(), algorithm, g, options...)
}
