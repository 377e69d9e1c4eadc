package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wricardo/pathrace/pathfind/grid"
	"github.com/wricardo/pathrace/pathfind/search"
)

// Session represents an active visualizer session. It owns one grid per
// algorithm; the grids always share size, walls and endpoints and differ
// only in search state.
type Session struct {
	ID        string
	LayoutID  string
	CreatedAt time.Time

	boards []*board

	mu           sync.Mutex // guards the fields below
	lastAccessed time.Time
	speed        search.Speed
	race         *race
	last         *RaceResult
}

// board is one algorithm's grid. The lock is held by the running search for
// each step and by readers taking snapshots.
type board struct {
	algorithm search.Algorithm
	mu        sync.RWMutex
	grid      *grid.Grid
}

// race is an in-flight search of every board
type race struct {
	id       string
	started  time.Time
	speed    search.Speed
	ctx      context.Context
	cancel   context.CancelFunc
	steppers []*search.Stepper
	done     chan struct{}
	result   *RaceResult
}

// NewSession creates a session whose grids are built from layout
func NewSession(id, layoutID string, layout *grid.Layout) (*Session, error) {
	g, err := grid.FromLayout(layout)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	s := &Session{
		ID:           id,
		LayoutID:     layoutID,
		CreatedAt:    now,
		lastAccessed: now,
		speed:        search.DefaultSpeed,
	}
	for i, algorithm := range search.Algorithms {
		boardGrid := g
		if i > 0 {
			boardGrid = g.Clone()
		}
		s.boards = append(s.boards, &board{algorithm: algorithm, grid: boardGrid})
	}
	return s, nil
}

func (s *Session) board(algorithm search.Algorithm) (*board, error) {
	for _, b := range s.boards {
		if b.algorithm == algorithm {
			return b, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", search.ErrUnknownAlgorithm, algorithm)
}

// Snapshot returns the grid of one algorithm
func (s *Session) Snapshot(algorithm search.Algorithm, detailed bool) (*grid.Snapshot, error) {
	b, err := s.board(algorithm)
	if err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.grid.Snapshot(detailed), nil
}

// Touch records an access at t
func (s *Session) Touch(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccessed = t
}

// LastAccessed returns the time of the last access
func (s *Session) LastAccessed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccessed
}

// Speed returns the session speed
func (s *Session) Speed() search.Speed {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speed
}

// Running reports whether a race is in flight
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.race != nil
}

// Info builds the public view of the session
func (s *Session) Info() *SessionInfo {
	s.mu.Lock()
	speed, running, accessed := s.speed, s.race != nil, s.lastAccessed
	s.mu.Unlock()

	b := s.boards[0]
	b.mu.RLock()
	defer b.mu.RUnlock()

	snapshot := b.grid.Snapshot(false)
	return &SessionInfo{
		ID:             s.ID,
		LayoutID:       s.LayoutID,
		Size:           snapshot.Size,
		Speed:          speed.Name,
		Start:          snapshot.Start,
		End:            snapshot.End,
		Walls:          snapshot.Walls,
		Rows:           snapshot.Rows,
		Running:        running,
		CreatedAt:      s.CreatedAt,
		LastAccessedAt: accessed,
	}
}

// Edit applies mutate to every grid. A running race is cancelled first and
// any previous search state is cleared, so an edit always leaves the grids
// free of visited and path marks.
//
// mutate must behave identically on every grid; the first error aborts.
func (s *Session) Edit(mutate func(g *grid.Grid) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	for _, b := range s.boards {
		b.mu.Lock()
		b.grid.ResetSearchState()
		err := mutate(b.grid)
		b.mu.Unlock()
		if err != nil {
			return err
		}
	}
	return nil
}

// Replace swaps every grid for a copy of g, cancelling any running race
func (s *Session) Replace(g *grid.Grid) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	for i, b := range s.boards {
		next := g
		if i > 0 {
			next = g.Clone()
		}
		b.mu.Lock()
		b.grid = next
		b.mu.Unlock()
	}
}

// SetSpeed changes the pacing of future races
func (s *Session) SetSpeed(speed search.Speed) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.speed = speed
}

// Cancel requests cancellation of the running race and waits for it to stop.
// It reports whether a race was running.
func (s *Session) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked()
}

// LastResult returns the running race as a partial result, or the last
// finished one
func (s *Session) LastResult() (*RaceResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.race != nil {
		return &RaceResult{
			RunID:     s.race.id,
			SessionID: s.ID,
			Status:    RaceRunning,
			Speed:     s.race.speed.Name,
			StartedAt: s.race.started,
			Results:   []search.Result{},
		}, nil
	}
	if s.last == nil {
		return nil, ErrNoResults
	}
	return s.last, nil
}

// stopLocked cancels running races until none is left. s.mu is released
// while waiting so the race can record its result.
func (s *Session) stopLocked() bool {
	stopped := false
	for s.race != nil {
		r := s.race
		for _, stepper := range r.steppers {
			stepper.Cancel()
		}
		r.cancel()

		s.mu.Unlock()
		<-r.done
		s.mu.Lock()
		stopped = true
	}
	return stopped
}

// beginRace clears search state and prepares one stepper per grid
func (s *Session) beginRace(runID string, listener search.Listener, options ...search.Option) (*race, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.race != nil {
		return nil, ErrSearchRunning
	}

	options = append(options, search.WithListener(listener))
	r := &race{
		id:      runID,
		started: time.Now(),
		speed:   s.speed,
		done:    make(chan struct{}),
	}
	for _, b := range s.boards {
		b.mu.Lock()
		b.grid.ResetSearchState()
		stepper, err := search.NewStepper(b.algorithm, b.grid, options...)
		b.mu.Unlock()
		if err != nil {
			return nil, err
		}
		r.steppers = append(r.steppers, stepper)
	}

	r.ctx, r.cancel = context.WithCancel(context.Background())
	s.race = r
	return r, nil
}

// endRace records the result of r and frees the session for the next race
func (s *Session) endRace(r *race) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.race == r {
		s.race = nil
	}
	s.last = r.result
}
