package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wricardo/pathrace/pathfind/grid"
	"github.com/wricardo/pathrace/pathfind/search"
	"github.com/wricardo/pathrace/pathfind/service"
)

var errNotFound = errors.New("not found")

// MockSessionManager implements service.SessionManager for testing
type MockSessionManager struct {
	mu       sync.Mutex
	sessions map[string]*service.Session
}

func NewMockSessionManager() *MockSessionManager {
	return &MockSessionManager{
		sessions: make(map[string]*service.Session),
	}
}

func (m *MockSessionManager) Create(id, layoutID string, layout *grid.Layout) (*service.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Generate ID if empty (mimics real session manager behavior)
	if id == "" {
		id = fmt.Sprintf("t%03d", len(m.sessions)+1)
	}
	if _, exists := m.sessions[id]; exists {
		return nil, errors.New("session already exists")
	}

	sess, err := service.NewSession(id, layoutID, layout)
	if err != nil {
		return nil, err
	}
	m.sessions[id] = sess
	return sess, nil
}

func (m *MockSessionManager) Get(id string) (*service.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, exists := m.sessions[id]
	if !exists {
		return nil, errNotFound
	}
	return sess, nil
}

func (m *MockSessionManager) List() []*service.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*service.Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		result = append(result, sess)
	}
	return result
}

func (m *MockSessionManager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[id]; !exists {
		return errNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *MockSessionManager) UpdateLastAccessed(id string) error {
	sess, err := m.Get(id)
	if err != nil {
		return err
	}
	sess.Touch(time.Now())
	return nil
}

// MockLayoutManager implements service.LayoutManager for testing
type MockLayoutManager struct {
	layouts map[string]*grid.Layout
}

func NewMockLayoutManager() *MockLayoutManager {
	return &MockLayoutManager{
		layouts: map[string]*grid.Layout{
			"open": grid.OpenLayout(5),
			"gap": {
				Name: "Gap",
				Size: 5,
				Rows: []string{
					"S....",
					".....",
					"###.#",
					".....",
					"....E",
				},
			},
			"boxed": {
				Name: "Boxed",
				Size: 5,
				Rows: []string{
					"S....",
					".....",
					".....",
					"....#",
					"...#E",
				},
			},
		},
	}
}

func (m *MockLayoutManager) LoadLayout(name string) (*grid.Layout, error) {
	layout, exists := m.layouts[name]
	if !exists {
		return nil, errNotFound
	}
	return layout, nil
}

func (m *MockLayoutManager) ListLayouts() ([]*service.LayoutInfo, error) {
	var infos []*service.LayoutInfo
	for _, id := range []string{"boxed", "gap", "open"} {
		layout := m.layouts[id]
		infos = append(infos, &service.LayoutInfo{
			Filename: id + ".json",
			LayoutID: id,
			Name:     layout.Name,
			Size:     layout.Size,
		})
	}
	return infos, nil
}

func (m *MockLayoutManager) GetDefault() *grid.Layout {
	return m.layouts["open"]
}

type publishedEvent struct {
	event string
	data  interface{}
}

// recordingPublisher collects published events
type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(sessionID, event string, data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{event: event, data: data})
}

func (p *recordingPublisher) all() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedEvent{}, p.events...)
}

func newTestVisualizer(t *testing.T) (service.Visualizer, *recordingPublisher) {
	t.Helper()
	publisher := &recordingPublisher{}
	v := service.NewVisualizer(NewMockSessionManager(), NewMockLayoutManager(), service.WithPublisher(publisher))
	return v, publisher
}

func createInstantSession(t *testing.T, v service.Visualizer, layoutID string) *service.SessionInfo {
	t.Helper()
	ctx := context.Background()
	info, err := v.CreateSession(ctx, layoutID, 0)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	if _, err := v.SetSpeed(ctx, info.ID, "instant"); err != nil {
		t.Fatalf("Failed to set speed: %v", err)
	}
	return info
}

func TestVisualizer_CreateSession(t *testing.T) {
	v, _ := newTestVisualizer(t)
	ctx := context.Background()

	t.Run("default layout", func(t *testing.T) {
		info, err := v.CreateSession(ctx, "", 0)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if info.LayoutID != "open" {
			t.Errorf("Expected layout_id 'open', got '%s'", info.LayoutID)
		}
		if info.Size != 5 {
			t.Errorf("Expected size 5, got %d", info.Size)
		}
		if info.Speed != search.DefaultSpeed.Name {
			t.Errorf("Expected default speed, got %s", info.Speed)
		}
		if *info.Start != (grid.Position{Row: 0, Col: 0}) || *info.End != (grid.Position{Row: 4, Col: 4}) {
			t.Errorf("Unexpected endpoints %v %v", info.Start, info.End)
		}
	})

	t.Run("named layout", func(t *testing.T) {
		info, err := v.CreateSession(ctx, "gap", 0)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(info.Walls) != 4 {
			t.Errorf("Expected 4 walls, got %d", len(info.Walls))
		}
	})

	t.Run("open grid of a size", func(t *testing.T) {
		info, err := v.CreateSession(ctx, "", 12)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if info.Size != 12 || *info.End != (grid.Position{Row: 11, Col: 11}) {
			t.Errorf("Expected open 12x12 grid, got %+v", info)
		}
	})

	t.Run("unknown layout lists available ones", func(t *testing.T) {
		_, err := v.CreateSession(ctx, "nope", 0)
		if !errors.Is(err, errNotFound) {
			t.Fatalf("Expected wrapped not found error, got %v", err)
		}
		if !strings.Contains(err.Error(), "boxed, gap, open") {
			t.Errorf("Expected available layouts in error, got %q", err.Error())
		}
	})

	t.Run("invalid size", func(t *testing.T) {
		_, err := v.CreateSession(ctx, "", 1)
		if !errors.Is(err, grid.ErrInvalidSize) {
			t.Errorf("Expected ErrInvalidSize, got %v", err)
		}
	})

	t.Run("size mismatch", func(t *testing.T) {
		_, err := v.CreateSession(ctx, "gap", 7)
		if !errors.Is(err, service.ErrInvalidInput) {
			t.Errorf("Expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestVisualizer_EditsAreMirrored(t *testing.T) {
	v, publisher := newTestVisualizer(t)
	ctx := context.Background()
	info := createInstantSession(t, v, "open")

	if _, err := v.SetWall(ctx, info.ID, 2, 2, true); err != nil {
		t.Fatalf("Failed to set wall: %v", err)
	}
	if _, err := v.ToggleWall(ctx, info.ID, 1, 3); err != nil {
		t.Fatalf("Failed to toggle wall: %v", err)
	}
	if _, err := v.SetStart(ctx, info.ID, 0, 4); err != nil {
		t.Fatalf("Failed to set start: %v", err)
	}
	updated, err := v.SetEnd(ctx, info.ID, 4, 0)
	if err != nil {
		t.Fatalf("Failed to set end: %v", err)
	}

	for _, algorithm := range search.Algorithms {
		snapshot, err := v.GetGrid(ctx, info.ID, algorithm)
		if err != nil {
			t.Fatalf("Failed to get %s grid: %v", algorithm, err)
		}
		if len(snapshot.Walls) != 2 {
			t.Errorf("%s: expected 2 walls, got %d", algorithm, len(snapshot.Walls))
		}
		if *snapshot.Start != (grid.Position{Row: 0, Col: 4}) || *snapshot.End != (grid.Position{Row: 4, Col: 0}) {
			t.Errorf("%s: unexpected endpoints %v %v", algorithm, snapshot.Start, snapshot.End)
		}
		for i, row := range snapshot.Rows {
			if row != updated.Rows[i] {
				t.Errorf("%s row %d: expected %q, got %q", algorithm, i, updated.Rows[i], row)
			}
		}
	}

	gridUpdates := 0
	for _, e := range publisher.all() {
		if e.event == service.EventGridUpdate {
			gridUpdates++
		}
	}
	if gridUpdates != 4 {
		t.Errorf("Expected 4 grid updates, got %d", gridUpdates)
	}
}

func TestVisualizer_EditErrors(t *testing.T) {
	v, _ := newTestVisualizer(t)
	ctx := context.Background()
	info := createInstantSession(t, v, "open")

	if _, err := v.SetWall(ctx, info.ID, 9, 9, true); !errors.Is(err, grid.ErrOutOfBounds) {
		t.Errorf("Expected ErrOutOfBounds, got %v", err)
	}
	if _, err := v.SetStart(ctx, "missing", 0, 0); !errors.Is(err, errNotFound) {
		t.Errorf("Expected not found, got %v", err)
	}
	if _, err := v.SetSpeed(ctx, info.ID, "warp"); !errors.Is(err, service.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
	if _, err := v.Resize(ctx, info.ID, 500); !errors.Is(err, grid.ErrInvalidSize) {
		t.Errorf("Expected ErrInvalidSize, got %v", err)
	}
	if _, err := v.GetGrid(ctx, info.ID, "bfs"); !errors.Is(err, search.ErrUnknownAlgorithm) {
		t.Errorf("Expected ErrUnknownAlgorithm, got %v", err)
	}
}

func TestVisualizer_FindPathWait(t *testing.T) {
	v, publisher := newTestVisualizer(t)
	ctx := context.Background()
	info := createInstantSession(t, v, "open")

	race, err := v.FindPath(ctx, info.ID, true)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if race.Status != service.RaceFinished {
		t.Fatalf("Expected finished race, got %s", race.Status)
	}
	if race.RunID == "" || race.FinishedAt == nil {
		t.Errorf("Expected run id and finish time, got %+v", race)
	}
	if !race.Agree {
		t.Error("Expected both algorithms to agree")
	}
	for _, algorithm := range search.Algorithms {
		result, ok := race.Result(algorithm)
		if !ok {
			t.Fatalf("Missing result for %s", algorithm)
		}
		if !result.Found || result.PathLength != 8 || result.PathMarked != 7 {
			t.Errorf("%s: expected 8-step path with 7 marks, got %+v", algorithm, result)
		}
	}

	// Grids keep the marks of the finished race
	snapshot, _ := v.GetGrid(ctx, info.ID, search.AStar)
	if len(snapshot.Path) != 7 || len(snapshot.Visited) == 0 {
		t.Errorf("Expected marks on the grid, got %d path and %d visited", len(snapshot.Path), len(snapshot.Visited))
	}

	last, err := v.Results(ctx, info.ID)
	if err != nil || last.RunID != race.RunID {
		t.Errorf("Expected last result %s, got %+v (%v)", race.RunID, last, err)
	}

	events := publisher.all()
	var started, finished int
	seqs := map[search.Algorithm]int{}
	pathEvents := map[search.Algorithm]int{}
	for i, e := range events {
		switch e.event {
		case service.EventRaceStarted:
			started = i
		case service.EventRaceFinished:
			finished = i
		case string(search.EventVisited), string(search.EventPath), string(search.EventResult):
			event := e.data.(search.Event)
			if event.Seq != seqs[event.Algorithm]+1 {
				t.Errorf("%s: out of order seq %d after %d", event.Algorithm, event.Seq, seqs[event.Algorithm])
			}
			seqs[event.Algorithm] = event.Seq
			if event.Type == search.EventPath {
				pathEvents[event.Algorithm]++
			}
			if i < started {
				t.Error("Search event published before race_started")
			}
		}
	}
	if finished != len(events)-1 {
		t.Errorf("Expected race_finished last, at %d of %d", finished, len(events))
	}
	for _, algorithm := range search.Algorithms {
		if pathEvents[algorithm] != 7 {
			t.Errorf("%s: expected 7 path events, got %d", algorithm, pathEvents[algorithm])
		}
	}
}

func TestVisualizer_FindPathUnreachable(t *testing.T) {
	v, _ := newTestVisualizer(t)
	info := createInstantSession(t, v, "boxed")

	race, err := v.FindPath(context.Background(), info.ID, true)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	for _, result := range race.Results {
		if result.Status != search.StatusFailed || result.Reason != search.ReasonUnreachable {
			t.Errorf("%s: expected failed/unreachable, got %s/%s", result.Algorithm, result.Status, result.Reason)
		}
	}
	if !race.Agree {
		t.Error("Two failures agree")
	}
}

func TestVisualizer_FindPathWhileRunning(t *testing.T) {
	v, _ := newTestVisualizer(t)
	ctx := context.Background()

	info, _ := v.CreateSession(ctx, "", 20)
	v.SetSpeed(ctx, info.ID, "slow")

	race, err := v.FindPath(ctx, info.ID, false)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if race.Status != service.RaceRunning {
		t.Errorf("Expected running race, got %s", race.Status)
	}

	if _, err := v.FindPath(ctx, info.ID, false); !errors.Is(err, service.ErrSearchRunning) {
		t.Errorf("Expected ErrSearchRunning, got %v", err)
	}

	current, _ := v.Results(ctx, info.ID)
	if current.Status != service.RaceRunning || current.RunID != race.RunID {
		t.Errorf("Expected the running race, got %+v", current)
	}

	if err := v.Cancel(ctx, info.ID); err != nil {
		t.Fatalf("Failed to cancel: %v", err)
	}

	last, err := v.Results(ctx, info.ID)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if last.Status != service.RaceCancelled {
		t.Errorf("Expected cancelled race, got %s", last.Status)
	}
	for _, result := range last.Results {
		if result.Status != search.StatusCancelled {
			t.Errorf("%s: expected cancelled, got %s", result.Algorithm, result.Status)
		}
	}

	// Cancelling again is harmless
	if err := v.Cancel(ctx, info.ID); err != nil {
		t.Errorf("Second cancel failed: %v", err)
	}

	// A new race can start
	v.SetSpeed(ctx, info.ID, "instant")
	if _, err := v.FindPath(ctx, info.ID, true); err != nil {
		t.Errorf("Expected a new race to start, got %v", err)
	}
}

func TestVisualizer_EditCancelsRunningRace(t *testing.T) {
	v, _ := newTestVisualizer(t)
	ctx := context.Background()

	info, _ := v.CreateSession(ctx, "", 20)
	v.SetSpeed(ctx, info.ID, "slow")

	if _, err := v.FindPath(ctx, info.ID, false); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	time.Sleep(120 * time.Millisecond)

	updated, err := v.ToggleWall(ctx, info.ID, 10, 10)
	if err != nil {
		t.Fatalf("Failed to toggle wall: %v", err)
	}
	if updated.Running {
		t.Error("Edit should stop the running race")
	}

	for _, algorithm := range search.Algorithms {
		snapshot, _ := v.GetGrid(ctx, info.ID, algorithm)
		if len(snapshot.Visited) != 0 || len(snapshot.Path) != 0 {
			t.Errorf("%s: edit should clear search marks", algorithm)
		}
		if len(snapshot.Walls) != 1 {
			t.Errorf("%s: expected the new wall", algorithm)
		}
	}

	last, _ := v.Results(ctx, info.ID)
	if last.Status != service.RaceCancelled {
		t.Errorf("Expected cancelled race, got %s", last.Status)
	}
}

func TestVisualizer_EditAfterRaceClearsMarks(t *testing.T) {
	v, _ := newTestVisualizer(t)
	ctx := context.Background()
	info := createInstantSession(t, v, "open")

	v.FindPath(ctx, info.ID, true)
	v.SetWall(ctx, info.ID, 3, 1, true)

	snapshot, _ := v.GetGrid(ctx, info.ID, search.Dijkstra)
	if len(snapshot.Visited) != 0 || len(snapshot.Path) != 0 {
		t.Error("Editing after a race should clear the previous marks")
	}
}

func TestVisualizer_ClearScopes(t *testing.T) {
	v, _ := newTestVisualizer(t)
	ctx := context.Background()
	info := createInstantSession(t, v, "gap")

	v.FindPath(ctx, info.ID, true)

	cleared, err := v.ClearPath(ctx, info.ID)
	if err != nil {
		t.Fatalf("ClearPath failed: %v", err)
	}
	if len(cleared.Walls) != 4 {
		t.Errorf("ClearPath should keep walls, got %d", len(cleared.Walls))
	}

	cleared, _ = v.ClearWalls(ctx, info.ID)
	if len(cleared.Walls) != 0 || cleared.Start == nil || cleared.End == nil {
		t.Errorf("ClearWalls should keep endpoints only, got %+v", cleared)
	}

	v.SetWall(ctx, info.ID, 1, 1, true)
	reset, _ := v.ResetGrid(ctx, info.ID)
	if len(reset.Walls) != 0 || reset.Start != nil || reset.End != nil {
		t.Errorf("ResetGrid should clear everything, got %+v", reset)
	}

	race, _ := v.FindPath(ctx, info.ID, true)
	for _, result := range race.Results {
		if result.Reason != search.ReasonMissingEndpoint {
			t.Errorf("%s: expected missing_endpoint, got %s", result.Algorithm, result.Reason)
		}
	}
}

func TestVisualizer_Resize(t *testing.T) {
	v, _ := newTestVisualizer(t)
	ctx := context.Background()
	info := createInstantSession(t, v, "gap")

	resized, err := v.Resize(ctx, info.ID, 8)
	if err != nil {
		t.Fatalf("Resize failed: %v", err)
	}
	if resized.Size != 8 || len(resized.Walls) != 0 || *resized.End != (grid.Position{Row: 7, Col: 7}) {
		t.Errorf("Expected open 8x8 grid, got %+v", resized)
	}
	if resized.Speed != "instant" {
		t.Errorf("Resize should keep the speed, got %s", resized.Speed)
	}

	race, _ := v.FindPath(ctx, info.ID, true)
	for _, result := range race.Results {
		if result.PathLength != 14 {
			t.Errorf("%s: expected path length 14, got %d", result.Algorithm, result.PathLength)
		}
	}
}

func TestVisualizer_ResultsBeforeRace(t *testing.T) {
	v, _ := newTestVisualizer(t)
	info := createInstantSession(t, v, "open")

	if _, err := v.Results(context.Background(), info.ID); !errors.Is(err, service.ErrNoResults) {
		t.Errorf("Expected ErrNoResults, got %v", err)
	}
}

func TestVisualizer_DeleteSession(t *testing.T) {
	v, _ := newTestVisualizer(t)
	ctx := context.Background()

	info, _ := v.CreateSession(ctx, "", 20)
	v.SetSpeed(ctx, info.ID, "slow")
	v.FindPath(ctx, info.ID, false)

	if err := v.DeleteSession(ctx, info.ID); err != nil {
		t.Fatalf("Failed to delete session: %v", err)
	}
	if _, err := v.GetSession(ctx, info.ID); !errors.Is(err, errNotFound) {
		t.Errorf("Expected not found, got %v", err)
	}
	if err := v.DeleteSession(ctx, info.ID); !errors.Is(err, errNotFound) {
		t.Errorf("Expected not found on second delete, got %v", err)
	}
}

func TestVisualizer_ListSessions(t *testing.T) {
	v, _ := newTestVisualizer(t)
	ctx := context.Background()

	v.CreateSession(ctx, "", 0)
	v.CreateSession(ctx, "gap", 0)

	sessions, err := v.ListSessions(ctx)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(sessions) != 2 {
		t.Errorf("Expected 2 sessions, got %d", len(sessions))
	}
}

func TestVisualizer_Solve(t *testing.T) {
	v, _ := newTestVisualizer(t)
	ctx := context.Background()

	t.Run("size and walls", func(t *testing.T) {
		result, err := v.Solve(ctx, &service.SolveRequest{
			Size:  5,
			Walls: []grid.Position{{Row: 2, Col: 0}, {Row: 2, Col: 1}, {Row: 2, Col: 2}, {Row: 2, Col: 4}},
		})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !result.Agree || len(result.Results) != 2 {
			t.Fatalf("Expected two agreeing results, got %+v", result)
		}
		if result.Rows[2] != "###.#" {
			t.Errorf("Unexpected rows %v", result.Rows)
		}
		if result.Rendered["dijkstra"][2] != "###*#" {
			t.Errorf("Expected the gap on the rendered path, got %v", result.Rendered["dijkstra"])
		}
	})

	t.Run("layout by id with one algorithm", func(t *testing.T) {
		result, err := v.Solve(ctx, &service.SolveRequest{
			LayoutID:   "boxed",
			Algorithms: []search.Algorithm{search.AStar},
		})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(result.Results) != 1 || result.Results[0].Found {
			t.Errorf("Expected a single failed result, got %+v", result.Results)
		}
	})

	t.Run("inline layout with heap frontier", func(t *testing.T) {
		result, err := v.Solve(ctx, &service.SolveRequest{
			Layout:   &grid.Layout{Size: 3, Rows: []string{"S.#", ".#.", "..E"}},
			Frontier: search.FrontierHeap,
		})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		for _, r := range result.Results {
			if r.PathLength != 4 {
				t.Errorf("%s: expected length 4, got %d", r.Algorithm, r.PathLength)
			}
		}
	})

	t.Run("same start and end", func(t *testing.T) {
		_, err := v.Solve(ctx, &service.SolveRequest{
			Size:  4,
			Start: &grid.Position{Row: 1, Col: 1},
			End:   &grid.Position{Row: 1, Col: 1},
		})
		if !errors.Is(err, service.ErrInvalidInput) {
			t.Errorf("Expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("unknown algorithm", func(t *testing.T) {
		_, err := v.Solve(ctx, &service.SolveRequest{Size: 4, Algorithms: []search.Algorithm{"bfs"}})
		if !errors.Is(err, service.ErrInvalidInput) {
			t.Errorf("Expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("wall out of bounds", func(t *testing.T) {
		_, err := v.Solve(ctx, &service.SolveRequest{Size: 4, Walls: []grid.Position{{Row: 4, Col: 0}}})
		if !errors.Is(err, grid.ErrOutOfBounds) {
			t.Errorf("Expected ErrOutOfBounds, got %v", err)
		}
	})
}

func TestVisualizer_Layouts(t *testing.T) {
	v, _ := newTestVisualizer(t)
	ctx := context.Background()

	layouts, err := v.ListLayouts(ctx)
	if err != nil || len(layouts) != 3 {
		t.Fatalf("Expected 3 layouts, got %d (%v)", len(layouts), err)
	}

	layout, err := v.LoadLayout(ctx, "gap")
	if err != nil || layout.Name != "Gap" {
		t.Errorf("Expected the gap layout, got %+v (%v)", layout, err)
	}
}
