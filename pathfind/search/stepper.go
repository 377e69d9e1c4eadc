package search

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/wricardo/pathrace/pathfind/grid"
)

// Stepper runs one algorithm over one grid, one main-loop iteration per Step.
// Step never blocks; pacing between steps is the caller's concern (see Run).
//
// A Stepper borrows the grid's search fields for the whole run. The grid must
// not be searched by anything else until the Stepper is done.
type Stepper struct {
	algorithm Algorithm
	grid      *grid.Grid
	strategy  strategy
	listener  Listener

	start *grid.Node
	end   *grid.Node

	status    Status
	reason    Reason
	phase     Phase
	stepCount int
	seq       int

	visited []grid.Position
	path    []grid.Position
	cursor  *grid.Node
	marked  int

	cancelRequested atomic.Bool
	startedAt       time.Time
	finishedAt      time.Time
}

// NewStepper creates a stepper in the Ready state
func NewStepper(algorithm Algorithm, g *grid.Grid, options ...Option) (*Stepper, error) {
	if g == nil {
		return nil, ErrNilGrid
	}
	opts := applyOptions(options)

	strat, err := newStrategy(algorithm, opts.Frontier)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, algorithm)
	}

	return &Stepper{
		algorithm: algorithm,
		grid:      g,
		strategy:  strat,
		listener:  opts.Listener,
		status:    StatusReady,
		phase:     PhaseSearch,
	}, nil
}

// Algorithm returns the algorithm this stepper runs
func (s *Stepper) Algorithm() Algorithm { return s.algorithm }

// Status returns the current state of the run
func (s *Stepper) Status() Status { return s.status }

// Done reports whether the run reached a terminal state
func (s *Stepper) Done() bool { return s.status.Terminal() }

// Cancel requests cancellation. It is safe to call from any goroutine; the
// run stops at the start of its next step.
func (s *Stepper) Cancel() {
	s.cancelRequested.Store(true)
}

// Step advances the run by one main-loop iteration (search phase) or one
// path node (trace phase) and returns a snapshot
func (s *Stepper) Step() StepSnapshot {
	if s.status.Terminal() {
		return s.snapshot(nil)
	}

	if s.status == StatusReady {
		s.begin()
		if s.status.Terminal() {
			return s.snapshot(nil)
		}
	}

	if s.cancelRequested.Load() {
		s.finish(StatusCancelled, ReasonCancelled)
		return s.snapshot(nil)
	}

	if s.phase == PhaseTrace {
		return s.traceStep()
	}
	return s.searchStep()
}

// begin validates the endpoints and initializes the algorithm
func (s *Stepper) begin() {
	s.startedAt = time.Now()
	s.status = StatusRunning

	s.start = s.grid.Start()
	s.end = s.grid.End()
	if s.start == nil || s.end == nil {
		s.finish(StatusFailed, ReasonMissingEndpoint)
		return
	}

	s.strategy.prepare(s.grid, s.start, s.end)
}

func (s *Stepper) searchStep() StepSnapshot {
	s.stepCount++

	current := s.strategy.next()
	if current == nil || s.strategy.unreachable(current) {
		s.finish(StatusFailed, ReasonUnreachable)
		return s.snapshot(nil)
	}

	if current == s.end {
		s.path = s.fullPath()
		s.cursor = s.end
		s.phase = PhaseTrace
		return s.traceStep()
	}

	pos := current.Position()

	// The start node is settled but never displayed as visited
	if !current.IsStart {
		current.IsVisited = true
		s.visited = append(s.visited, pos)
		s.emit(Event{Type: EventVisited, Position: &pos})
	}

	s.strategy.settle(s.grid, current)
	return s.snapshot(&pos)
}

// traceStep follows one backlink from the end toward the start and marks it.
// The walk stops when the next link is the start, so only nodes strictly
// between the endpoints are marked.
func (s *Stepper) traceStep() StepSnapshot {
	for {
		previous := s.grid.Previous(s.cursor)
		if previous == nil || previous == s.start {
			s.finish(StatusSucceeded, ReasonNone)
			return s.snapshot(nil)
		}

		s.cursor = previous
		if s.cursor.IsEndpoint() {
			continue
		}

		s.cursor.IsPath = true
		s.marked++
		pos := s.cursor.Position()
		s.emit(Event{Type: EventPath, Position: &pos})
		return s.snapshot(&pos)
	}
}

// fullPath returns the start-to-end positions by following backlinks
func (s *Stepper) fullPath() []grid.Position {
	var reversed []grid.Position
	for n := s.end; n != nil; n = s.grid.Previous(n) {
		reversed = append(reversed, n.Position())
		if n == s.start {
			break
		}
	}

	path := make([]grid.Position, len(reversed))
	for i, pos := range reversed {
		path[len(reversed)-1-i] = pos
	}
	return path
}

func (s *Stepper) finish(status Status, reason Reason) {
	s.status = status
	s.reason = reason
	s.finishedAt = time.Now()
	if s.startedAt.IsZero() {
		s.startedAt = s.finishedAt
	}
	s.emit(Event{Type: EventResult, Status: status, Reason: reason})
}

func (s *Stepper) emit(event Event) {
	s.seq++
	event.Algorithm = s.algorithm
	event.Seq = s.seq
	if s.listener != nil {
		s.listener(event)
	}
}

func (s *Stepper) snapshot(current *grid.Position) StepSnapshot {
	return StepSnapshot{
		Algorithm: s.algorithm,
		Phase:     s.phase,
		StepIndex: s.stepCount,
		Current:   current,
		Visited:   len(s.visited),
		Frontier:  s.frontierLen(),
		Status:    s.status,
		Reason:    s.reason,
		Done:      s.status.Terminal(),
	}
}

func (s *Stepper) frontierLen() int {
	if s.start == nil || s.end == nil {
		return 0
	}
	return s.strategy.frontierLen()
}

// Result summarizes the run so far
func (s *Stepper) Result() Result {
	result := Result{
		Algorithm:    s.algorithm,
		Status:       s.status,
		Reason:       s.reason,
		Found:        s.status == StatusSucceeded,
		Path:         []grid.Position{},
		PathMarked:   s.marked,
		Visited:      append([]grid.Position{}, s.visited...),
		VisitedCount: len(s.visited),
		Steps:        s.stepCount,
	}
	if result.Found {
		result.Path = append(result.Path, s.path...)
		result.PathLength = len(s.path) - 1
	}
	if !s.startedAt.IsZero() {
		end := s.finishedAt
		if end.IsZero() {
			end = time.Now()
		}
		result.Duration = end.Sub(s.startedAt)
	}
	return result
}
