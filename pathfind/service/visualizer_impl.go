package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/pathrace/pathfind/grid"
	"github.com/wricardo/pathrace/pathfind/search"
)

// visualizerImpl implements the Visualizer interface
type visualizerImpl struct {
	sessions  SessionManager
	layouts   LayoutManager
	publisher Publisher
	frontier  search.FrontierKind
}

// Option configures a Visualizer
type Option func(*visualizerImpl)

// WithPublisher forwards session events to p
func WithPublisher(p Publisher) Option {
	return func(v *visualizerImpl) {
		if p != nil {
			v.publisher = p
		}
	}
}

// WithFrontier selects the frontier used by races and stateless solves
func WithFrontier(kind search.FrontierKind) Option {
	return func(v *visualizerImpl) { v.frontier = kind }
}

// NewVisualizer creates a new visualizer service instance
func NewVisualizer(sessions SessionManager, layouts LayoutManager, options ...Option) Visualizer {
	v := &visualizerImpl{
		sessions:  sessions,
		layouts:   layouts,
		publisher: nopPublisher{},
		frontier:  search.FrontierSorted,
	}
	for _, o := range options {
		o(v)
	}
	return v
}

// layoutID returns the preset identifier of a layout, used for consistent API
// responses
func (v *visualizerImpl) layoutID(layout *grid.Layout) string {
	available, err := v.layouts.ListLayouts()
	if err == nil {
		for _, info := range available {
			if info.Name == layout.Name {
				return info.LayoutID
			}
		}
	}
	if layout.Name == "" {
		return "default"
	}
	return layout.Name
}

func (v *visualizerImpl) availableLayouts() string {
	available, err := v.layouts.ListLayouts()
	if err != nil || len(available) == 0 {
		return "none"
	}
	ids := make([]string, 0, len(available))
	for _, info := range available {
		ids = append(ids, info.LayoutID)
	}
	return strings.Join(ids, ", ")
}

func validateSize(size int) error {
	if size < grid.MinGridSize || size > grid.MaxGridSize {
		return fmt.Errorf("%w: size must be between %d and %d, got %d",
			grid.ErrInvalidSize, grid.MinGridSize, grid.MaxGridSize, size)
	}
	return nil
}

// CreateSession creates a session from a layout preset, or an open grid of
// the given size when no preset is named
func (v *visualizerImpl) CreateSession(ctx context.Context, layoutID string, size int) (*SessionInfo, error) {
	var layout *grid.Layout

	switch {
	case layoutID != "":
		loaded, err := v.layouts.LoadLayout(layoutID)
		if err != nil {
			return nil, fmt.Errorf("layout '%s' (available: %s): %w", layoutID, v.availableLayouts(), err)
		}
		if size != 0 && size != loaded.Size {
			return nil, fmt.Errorf("%w: layout '%s' is %dx%d, requested size %d",
				ErrInvalidInput, layoutID, loaded.Size, loaded.Size, size)
		}
		layout = loaded
	case size != 0:
		if err := validateSize(size); err != nil {
			return nil, err
		}
		layout = grid.OpenLayout(size)
		layoutID = layout.Name
	default:
		layout = v.layouts.GetDefault()
		layoutID = v.layoutID(layout)
	}

	// Let the session manager generate a 4-character ID
	sess, err := v.sessions.Create("", layoutID, layout)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	log.WithFields(log.Fields{
		"session": sess.ID,
		"layout":  layoutID,
		"size":    layout.Size,
	}).Info("session created")

	return sess.Info(), nil
}

func (v *visualizerImpl) getSession(sessionID string) (*Session, error) {
	sess, err := v.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	v.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}

// GetSession retrieves session information
func (v *visualizerImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	sess, err := v.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Info(), nil
}

// ListSessions returns all active sessions
func (v *visualizerImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	sessions := v.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, sess.Info())
	}
	return result, nil
}

// DeleteSession stops any running race and removes the session
func (v *visualizerImpl) DeleteSession(ctx context.Context, sessionID string) error {
	sess, err := v.sessions.Get(sessionID)
	if err != nil {
		return fmt.Errorf("session %s: %w", sessionID, err)
	}
	sess.Cancel()
	return v.sessions.Delete(sessionID)
}

// edit applies a mirrored mutation and publishes the new grid
func (v *visualizerImpl) edit(sessionID string, mutate func(g *grid.Grid) error) (*SessionInfo, error) {
	sess, err := v.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.Edit(mutate); err != nil {
		return nil, err
	}

	info := sess.Info()
	v.publisher.Publish(sess.ID, EventGridUpdate, info)
	return info, nil
}

// SetStart moves the start node. Placing it on the end node does nothing.
func (v *visualizerImpl) SetStart(ctx context.Context, sessionID string, row, col int) (*SessionInfo, error) {
	return v.edit(sessionID, func(g *grid.Grid) error {
		_, err := g.SetStart(row, col)
		return err
	})
}

// SetEnd moves the end node. Placing it on the start node does nothing.
func (v *visualizerImpl) SetEnd(ctx context.Context, sessionID string, row, col int) (*SessionInfo, error) {
	return v.edit(sessionID, func(g *grid.Grid) error {
		_, err := g.SetEnd(row, col)
		return err
	})
}

// ToggleWall flips the wall flag of a non-endpoint node
func (v *visualizerImpl) ToggleWall(ctx context.Context, sessionID string, row, col int) (*SessionInfo, error) {
	return v.edit(sessionID, func(g *grid.Grid) error {
		_, err := g.ToggleWall(row, col)
		return err
	})
}

// SetWall sets the wall flag of a non-endpoint node
func (v *visualizerImpl) SetWall(ctx context.Context, sessionID string, row, col int, wall bool) (*SessionInfo, error) {
	return v.edit(sessionID, func(g *grid.Grid) error {
		_, err := g.SetWall(row, col, wall)
		return err
	})
}

// ClearPath removes visited and path marks
func (v *visualizerImpl) ClearPath(ctx context.Context, sessionID string) (*SessionInfo, error) {
	return v.edit(sessionID, func(g *grid.Grid) error { return nil })
}

// ClearWalls removes every wall and the search marks
func (v *visualizerImpl) ClearWalls(ctx context.Context, sessionID string) (*SessionInfo, error) {
	return v.edit(sessionID, func(g *grid.Grid) error {
		g.ClearWalls()
		return nil
	})
}

// ResetGrid clears everything, including the endpoints
func (v *visualizerImpl) ResetGrid(ctx context.Context, sessionID string) (*SessionInfo, error) {
	return v.edit(sessionID, func(g *grid.Grid) error {
		g.Reset()
		return nil
	})
}

// Resize replaces the grids with open grids of the new size
func (v *visualizerImpl) Resize(ctx context.Context, sessionID string, size int) (*SessionInfo, error) {
	if err := validateSize(size); err != nil {
		return nil, err
	}
	sess, err := v.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	g, err := grid.New(size)
	if err != nil {
		return nil, err
	}
	sess.Replace(g)

	info := sess.Info()
	v.publisher.Publish(sess.ID, EventGridUpdate, info)
	return info, nil
}

// SetSpeed changes the pacing of the next race
func (v *visualizerImpl) SetSpeed(ctx context.Context, sessionID, speed string) (*SessionInfo, error) {
	parsed, err := search.ParseSpeed(speed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	sess, err := v.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	sess.SetSpeed(parsed)
	return sess.Info(), nil
}

// GetGrid returns one algorithm's grid including per-node search state
func (v *visualizerImpl) GetGrid(ctx context.Context, sessionID string, algorithm search.Algorithm) (*grid.Snapshot, error) {
	if algorithm == "" {
		algorithm = search.Dijkstra
	}
	sess, err := v.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Snapshot(algorithm, true)
}

// FindPath starts a race of every algorithm. With wait set it blocks until
// the race ends or ctx is done; otherwise it returns the running race.
func (v *visualizerImpl) FindPath(ctx context.Context, sessionID string, wait bool) (*RaceResult, error) {
	sess, err := v.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	listener := func(event search.Event) {
		v.publisher.Publish(sess.ID, string(event.Type), event)
	}
	r, err := sess.beginRace(uuid.NewString(), listener, search.WithFrontier(v.frontier))
	if err != nil {
		return nil, err
	}

	started := &RaceResult{
		RunID:     r.id,
		SessionID: sess.ID,
		Status:    RaceRunning,
		Speed:     r.speed.Name,
		StartedAt: r.started,
		Results:   []search.Result{},
	}

	log.WithFields(log.Fields{
		"session": sess.ID,
		"run":     r.id,
		"speed":   r.speed.Name,
	}).Info("race started")
	v.publisher.Publish(sess.ID, EventRaceStarted, started)

	go v.runRace(sess, r)

	if !wait {
		return started, nil
	}

	select {
	case <-r.done:
		return r.result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel stops the running race, if any
func (v *visualizerImpl) Cancel(ctx context.Context, sessionID string) error {
	sess, err := v.getSession(sessionID)
	if err != nil {
		return err
	}
	if sess.Cancel() {
		log.WithField("session", sess.ID).Info("race cancelled")
	}
	return nil
}

// Results returns the running or last finished race
func (v *visualizerImpl) Results(ctx context.Context, sessionID string) (*RaceResult, error) {
	sess, err := v.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.LastResult()
}

// ListLayouts lists the layout presets
func (v *visualizerImpl) ListLayouts(ctx context.Context) ([]*LayoutInfo, error) {
	return v.layouts.ListLayouts()
}

// LoadLayout returns one layout preset
func (v *visualizerImpl) LoadLayout(ctx context.Context, name string) (*grid.Layout, error) {
	return v.layouts.LoadLayout(name)
}

// Solve runs the requested algorithms synchronously on private copies of the
// described grid
func (v *visualizerImpl) Solve(ctx context.Context, req *SolveRequest) (*SolveResult, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: empty request", ErrInvalidInput)
	}

	base, err := v.solveGrid(req)
	if err != nil {
		return nil, err
	}

	algorithms := req.Algorithms
	if len(algorithms) == 0 {
		algorithms = search.Algorithms
	}
	frontier := req.Frontier
	if frontier == "" {
		frontier = v.frontier
	}

	results := make([]search.Result, len(algorithms))
	rendered := make([][]string, len(algorithms))

	group, ctx := errgroup.WithContext(ctx)
	for i, algorithm := range algorithms {
		i, algorithm := i, algorithm
		g := base.Clone()
		group.Go(func() error {
			result, err := search.Run(ctx, algorithm, g, search.WithFrontier(frontier), search.WithPacer(search.NoDelay{}))
			if err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidInput, err)
			}
			results[i] = result
			rendered[i] = g.Render()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	out := &SolveResult{
		Size:     base.Size(),
		Rows:     base.Rows(),
		Rendered: make(map[string][]string, len(algorithms)),
		Results:  results,
		Agree:    agree(results),
	}
	for i, algorithm := range algorithms {
		out.Rendered[string(algorithm)] = rendered[i]
	}
	return out, nil
}

// solveGrid builds the grid of a stateless request
func (v *visualizerImpl) solveGrid(req *SolveRequest) (*grid.Grid, error) {
	layout := req.Layout
	if layout == nil && req.LayoutID != "" {
		loaded, err := v.layouts.LoadLayout(req.LayoutID)
		if err != nil {
			return nil, fmt.Errorf("layout '%s': %w", req.LayoutID, err)
		}
		layout = loaded
	}
	if layout != nil {
		return grid.FromLayout(layout)
	}

	size := req.Size
	if size == 0 {
		size = grid.DefaultGridSize
	}
	if err := validateSize(size); err != nil {
		return nil, err
	}

	start := grid.Position{Row: 0, Col: 0}
	if req.Start != nil {
		start = *req.Start
	}
	end := grid.Position{Row: size - 1, Col: size - 1}
	if req.End != nil {
		end = *req.End
	}
	if start == end {
		return nil, fmt.Errorf("%w: start and end must differ", ErrInvalidInput)
	}

	g, err := grid.New(size)
	if err != nil {
		return nil, err
	}
	g.Reset()
	for _, wall := range req.Walls {
		if _, err := g.SetWall(wall.Row, wall.Col, true); err != nil {
			return nil, fmt.Errorf("wall %v: %w", wall, err)
		}
	}
	if _, err := g.SetStart(start.Row, start.Col); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	if _, err := g.SetEnd(end.Row, end.Col); err != nil {
		return nil, fmt.Errorf("end: %w", err)
	}
	return g, nil
}
