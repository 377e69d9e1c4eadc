package search

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/wricardo/pathrace/pathfind/grid"
)

func mustGrid(t *testing.T, rows ...string) *grid.Grid {
	t.Helper()
	g, err := grid.FromLayout(&grid.Layout{Size: len(rows), Rows: rows})
	if err != nil {
		t.Fatalf("Failed to build grid: %v", err)
	}
	return g
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) listen(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) ofType(eventType EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func positions(events []Event) []grid.Position {
	out := make([]grid.Position, len(events))
	for i, e := range events {
		out[i] = *e.Position
	}
	return out
}

func equalPositions(a, b []grid.Position) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// bfsDistance is an independent reference for the shortest path length
func bfsDistance(g *grid.Grid) int {
	start, end := g.Start(), g.End()
	dist := map[*grid.Node]int{start: 0}
	queue := []*grid.Node{start}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if n == end {
			return dist[n]
		}
		for _, nb := range g.Neighbors(n) {
			if _, seen := dist[nb]; !seen {
				dist[nb] = dist[n] + 1
				queue = append(queue, nb)
			}
		}
	}
	return -1
}

func TestOpenGrid_FiveByFive(t *testing.T) {
	for _, algorithm := range Algorithms {
		t.Run(string(algorithm), func(t *testing.T) {
			g, _ := grid.New(5)
			rec := &recorder{}

			result, err := Solve(algorithm, g, WithListener(rec.listen))
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			if result.Status != StatusSucceeded || !result.Found {
				t.Fatalf("Expected success, got %s (%s)", result.Status, result.Reason)
			}
			if len(result.Path) != 9 {
				t.Errorf("Expected 9 path nodes, got %d", len(result.Path))
			}
			if result.PathLength != 8 {
				t.Errorf("Expected path length 8, got %d", result.PathLength)
			}
			if result.Path[0] != (grid.Position{Row: 0, Col: 0}) || result.Path[8] != (grid.Position{Row: 4, Col: 4}) {
				t.Errorf("Path should run from start to end, got %v", result.Path)
			}
			if result.PathMarked != 7 {
				t.Errorf("Expected 7 marked path nodes, got %d", result.PathMarked)
			}
			if got := len(rec.ofType(EventPath)); got != 7 {
				t.Errorf("Expected 7 path events, got %d", got)
			}

			last := rec.events[len(rec.events)-1]
			if last.Type != EventResult || last.Status != StatusSucceeded {
				t.Errorf("Expected final succeeded result event, got %+v", last)
			}
		})
	}
}

func TestOpenGrid_PathLengthIsManhattan(t *testing.T) {
	tests := []struct {
		size       int
		start, end grid.Position
	}{
		{2, grid.Position{Row: 0, Col: 0}, grid.Position{Row: 1, Col: 1}},
		{6, grid.Position{Row: 5, Col: 0}, grid.Position{Row: 0, Col: 5}},
		{7, grid.Position{Row: 3, Col: 3}, grid.Position{Row: 3, Col: 6}},
		{10, grid.Position{Row: 9, Col: 2}, grid.Position{Row: 1, Col: 8}},
		{4, grid.Position{Row: 0, Col: 1}, grid.Position{Row: 0, Col: 0}},
	}

	for _, tt := range tests {
		for _, algorithm := range Algorithms {
			for _, kind := range []FrontierKind{FrontierSorted, FrontierHeap} {
				g, _ := grid.New(tt.size)
				g.Reset()
				g.SetStart(tt.start.Row, tt.start.Col)
				g.SetEnd(tt.end.Row, tt.end.Col)

				result, _ := Solve(algorithm, g, WithFrontier(kind))
				expected := grid.ManhattanDistance(tt.start, tt.end)
				if result.PathLength != expected {
					t.Errorf("%s/%s size=%d %v->%v: expected length %d, got %d",
						algorithm, kind, tt.size, tt.start, tt.end, expected, result.PathLength)
				}
			}
		}
	}
}

func TestDijkstra_VisitedOrderParity(t *testing.T) {
	g := mustGrid(t,
		"S..",
		"...",
		"..E",
	)
	rec := &recorder{}

	result, _ := Solve(Dijkstra, g, WithListener(rec.listen))

	expectedVisited := []grid.Position{{Row: 0, Col: 1}, {Row: 1, Col: 0}, {Row: 0, Col: 2}, {Row: 1, Col: 1}, {Row: 2, Col: 0}, {Row: 1, Col: 2}, {Row: 2, Col: 1}}
	if !equalPositions(result.Visited, expectedVisited) {
		t.Errorf("Expected visited order %v, got %v", expectedVisited, result.Visited)
	}
	if !equalPositions(positions(rec.ofType(EventVisited)), expectedVisited) {
		t.Errorf("Visited events out of order: %v", positions(rec.ofType(EventVisited)))
	}

	expectedPath := []grid.Position{{Row: 0, Col: 0}, {Row: 0, Col: 1}, {Row: 0, Col: 2}, {Row: 1, Col: 2}, {Row: 2, Col: 2}}
	if !equalPositions(result.Path, expectedPath) {
		t.Errorf("Expected path %v, got %v", expectedPath, result.Path)
	}

	expectedMarks := []grid.Position{{Row: 1, Col: 2}, {Row: 0, Col: 2}, {Row: 0, Col: 1}}
	if got := positions(rec.ofType(EventPath)); !equalPositions(got, expectedMarks) {
		t.Errorf("Expected path events %v, got %v", expectedMarks, got)
	}

	if result.Steps != 9 {
		t.Errorf("Expected 9 steps, got %d", result.Steps)
	}
}

func TestAStar_VisitedOrderParity(t *testing.T) {
	g := mustGrid(t,
		"S..",
		"...",
		"..E",
	)

	result, _ := Solve(AStar, g)

	expectedVisited := []grid.Position{{Row: 1, Col: 0}, {Row: 0, Col: 1}, {Row: 2, Col: 0}, {Row: 1, Col: 1}, {Row: 0, Col: 2}, {Row: 2, Col: 1}, {Row: 1, Col: 2}}
	if !equalPositions(result.Visited, expectedVisited) {
		t.Errorf("Expected visited order %v, got %v", expectedVisited, result.Visited)
	}

	expectedPath := []grid.Position{{Row: 0, Col: 0}, {Row: 1, Col: 0}, {Row: 2, Col: 0}, {Row: 2, Col: 1}, {Row: 2, Col: 2}}
	if !equalPositions(result.Path, expectedPath) {
		t.Errorf("Expected path %v, got %v", expectedPath, result.Path)
	}
}

func TestAStar_ManhattanHeuristic(t *testing.T) {
	g, _ := grid.New(5)
	stepper, err := NewStepper(AStar, g)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	stepper.Step()

	n, _ := g.At(1, 2)
	if n.H != 5 {
		t.Errorf("Expected h=5 at (1,2), got %v", n.H)
	}
	start := g.Start()
	if start.G != 0 || start.F != 8 {
		t.Errorf("Expected start g=0 f=8, got g=%v f=%v", start.G, start.F)
	}
}

func TestWallWithGap(t *testing.T) {
	gap := grid.Position{Row: 2, Col: 3}

	for _, algorithm := range Algorithms {
		t.Run(string(algorithm), func(t *testing.T) {
			g := mustGrid(t,
				"S....",
				".....",
				"###.#",
				".....",
				"....E",
			)

			result, _ := Solve(algorithm, g)
			if !result.Found {
				t.Fatalf("Expected a path, got %s", result.Status)
			}

			throughGap := false
			for _, pos := range result.Path {
				if pos == gap {
					throughGap = true
				}
			}
			if !throughGap {
				t.Errorf("Path %v does not pass the gap", result.Path)
			}

			visitedGap := false
			for _, pos := range result.Visited {
				if pos == gap {
					visitedGap = true
				}
			}
			if !visitedGap {
				t.Error("Visited set should include the gap")
			}

			if result.PathLength != 8 {
				t.Errorf("Expected path length 8, got %d", result.PathLength)
			}
		})
	}
}

func TestUnreachableEnd(t *testing.T) {
	for _, algorithm := range Algorithms {
		t.Run(string(algorithm), func(t *testing.T) {
			g := mustGrid(t,
				"S....",
				".....",
				".....",
				"....#",
				"...#E",
			)
			rec := &recorder{}

			result, _ := Solve(algorithm, g, WithListener(rec.listen))
			if result.Status != StatusFailed || result.Reason != ReasonUnreachable {
				t.Fatalf("Expected failed/unreachable, got %s/%s", result.Status, result.Reason)
			}
			if result.Found || len(result.Path) != 0 {
				t.Error("Failed run should have no path")
			}
			if len(rec.ofType(EventPath)) != 0 {
				t.Error("Failed run should emit no path events")
			}
			// Every reachable non-start cell is explored before giving up
			if result.VisitedCount != 25-3-1 {
				t.Errorf("Expected 21 visited nodes, got %d", result.VisitedCount)
			}
		})
	}
}

func TestMissingEndpoint(t *testing.T) {
	for _, algorithm := range Algorithms {
		g, _ := grid.New(4)
		g.Reset()
		g.SetStart(0, 0)

		result, _ := Solve(algorithm, g)
		if result.Status != StatusFailed || result.Reason != ReasonMissingEndpoint {
			t.Errorf("%s: expected failed/missing_endpoint, got %s/%s", algorithm, result.Status, result.Reason)
		}
		if result.Steps != 0 {
			t.Errorf("%s: expected no steps, got %d", algorithm, result.Steps)
		}
	}
}

func TestStartNeverVisited(t *testing.T) {
	for _, algorithm := range Algorithms {
		g, _ := grid.New(6)
		result, _ := Solve(algorithm, g)

		if g.Start().IsVisited {
			t.Errorf("%s: start node marked visited", algorithm)
		}
		for _, pos := range result.Visited {
			if pos == g.Start().Position() {
				t.Errorf("%s: start appears in visited order", algorithm)
			}
		}
		if g.Start().IsPath || g.End().IsPath {
			t.Errorf("%s: endpoints must not be marked as path", algorithm)
		}
	}
}

func TestAdjacentEndpoints(t *testing.T) {
	for _, algorithm := range Algorithms {
		g := mustGrid(t,
			"SE.",
			"...",
			"...",
		)

		result, _ := Solve(algorithm, g)
		if !result.Found || result.PathLength != 1 || len(result.Path) != 2 {
			t.Errorf("%s: expected direct path, got %+v", algorithm, result)
		}
		if result.PathMarked != 0 {
			t.Errorf("%s: expected no marked path nodes, got %d", algorithm, result.PathMarked)
		}
	}
}

func TestResetAndRerunIsIdempotent(t *testing.T) {
	for _, algorithm := range Algorithms {
		g := mustGrid(t,
			"S.....",
			".##...",
			"...#..",
			".#..#.",
			"..#...",
			"....#E",
		)

		first, _ := Solve(algorithm, g)
		g.ResetSearchState()
		second, _ := Solve(algorithm, g)

		if !equalPositions(first.Visited, second.Visited) {
			t.Errorf("%s: visited order changed between runs", algorithm)
		}
		if !equalPositions(first.Path, second.Path) {
			t.Errorf("%s: path changed between runs", algorithm)
		}
	}
}

func TestDijkstraAndAStarAgree(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	for i := 0; i < 60; i++ {
		size := 3 + r.Intn(8)
		base, _ := grid.New(size)
		base.Reset()
		for _, n := range base.Nodes() {
			if r.Float64() < 0.3 {
				base.SetWall(n.Row(), n.Col(), true)
			}
		}
		start := grid.Position{Row: r.Intn(size), Col: r.Intn(size)}
		end := start
		for end == start {
			end = grid.Position{Row: r.Intn(size), Col: r.Intn(size)}
		}
		base.SetStart(start.Row, start.Col)
		base.SetEnd(end.Row, end.Col)

		expected := bfsDistance(base)

		for _, kind := range []FrontierKind{FrontierSorted, FrontierHeap} {
			dijkstra, _ := Solve(Dijkstra, base.Clone(), WithFrontier(kind))
			astar, _ := Solve(AStar, base.Clone(), WithFrontier(kind))

			if dijkstra.Found != astar.Found {
				t.Fatalf("case %d/%s: dijkstra found=%v astar found=%v\n%v", i, kind, dijkstra.Found, astar.Found, base.Rows())
			}
			if expected < 0 {
				if dijkstra.Found {
					t.Errorf("case %d/%s: expected no path", i, kind)
				}
				continue
			}
			if dijkstra.PathLength != expected || astar.PathLength != expected {
				t.Errorf("case %d/%s: expected length %d, dijkstra=%d astar=%d\n%v",
					i, kind, expected, dijkstra.PathLength, astar.PathLength, base.Rows())
			}
		}
	}
}

func TestStepper_Cancel(t *testing.T) {
	g, _ := grid.New(8)
	rec := &recorder{}
	stepper, _ := NewStepper(Dijkstra, g, WithListener(rec.listen))

	for i := 0; i < 4; i++ {
		stepper.Step()
	}
	before := len(rec.events)

	stepper.Cancel()
	snapshot := stepper.Step()

	if !snapshot.Done || snapshot.Status != StatusCancelled {
		t.Fatalf("Expected cancelled snapshot, got %+v", snapshot)
	}
	if len(rec.events) != before+1 {
		t.Fatalf("Expected only the result event after cancel, got %d new events", len(rec.events)-before)
	}
	last := rec.events[len(rec.events)-1]
	if last.Type != EventResult || last.Status != StatusCancelled || last.Reason != ReasonCancelled {
		t.Errorf("Expected cancelled result event, got %+v", last)
	}

	// Further steps are inert
	stepper.Step()
	stepper.Step()
	if len(rec.events) != before+1 {
		t.Error("No events may follow cancellation")
	}

	// Partial state is left in place
	if !g.HasSearchState() {
		t.Error("Cancellation should not roll back visited flags")
	}
}

func TestRun_CancelFromPacer(t *testing.T) {
	g, _ := grid.New(10)
	rec := &recorder{}
	pauses := 0
	pacer := PacerFunc(func(ctx context.Context, phase Phase) error {
		pauses++
		if pauses == 3 {
			return context.Canceled
		}
		return nil
	})

	result, err := Run(context.Background(), AStar, g, WithListener(rec.listen), WithPacer(pacer))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if result.Status != StatusCancelled {
		t.Fatalf("Expected cancelled, got %s", result.Status)
	}
	if result.VisitedCount != 2 {
		t.Errorf("Expected 2 visited nodes before cancel, got %d", result.VisitedCount)
	}
	if got := len(rec.ofType(EventVisited)); got != 2 {
		t.Errorf("Expected 2 visited events, got %d", got)
	}
	last := rec.events[len(rec.events)-1]
	if last.Type != EventResult {
		t.Errorf("Last event should be the result, got %s", last.Type)
	}
}

func TestRun_ContextAlreadyCancelled(t *testing.T) {
	g, _ := grid.New(5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, _ := Run(ctx, Dijkstra, g, WithDelays(0, 0))
	if result.Status != StatusCancelled {
		t.Errorf("Expected cancelled, got %s", result.Status)
	}
	if result.VisitedCount != 0 || result.Steps != 0 {
		t.Errorf("Expected no work, got visited=%d steps=%d", result.VisitedCount, result.Steps)
	}
}

func TestRun_PacerPhases(t *testing.T) {
	g, _ := grid.New(4)
	phases := map[Phase]int{}
	pacer := PacerFunc(func(ctx context.Context, phase Phase) error {
		phases[phase]++
		return nil
	})

	result, _ := Run(context.Background(), Dijkstra, g, WithPacer(pacer))
	if !result.Found {
		t.Fatalf("Expected success, got %s", result.Status)
	}
	// One pause per marked path node; the step that finds the end marks the
	// first one, and the last trace step finishes without pausing
	if phases[PhaseTrace] != result.PathMarked {
		t.Errorf("Expected %d trace pauses, got %d", result.PathMarked, phases[PhaseTrace])
	}
	if phases[PhaseSearch] != result.Steps-1 {
		t.Errorf("Expected %d search pauses, got %d", result.Steps-1, phases[PhaseSearch])
	}
}

func TestRun_WithLocker(t *testing.T) {
	g, _ := grid.New(6)
	var mu sync.Mutex

	result, err := Run(context.Background(), AStar, g, WithLocker(&mu))
	if err != nil || !result.Found {
		t.Fatalf("Expected success, got %v %s", err, result.Status)
	}
	if !mu.TryLock() {
		t.Error("Locker should be released after the run")
	}
}

func TestEventSequenceIsOrdered(t *testing.T) {
	g, _ := grid.New(6)
	rec := &recorder{}
	Solve(Dijkstra, g, WithListener(rec.listen))

	for i, e := range rec.events {
		if e.Seq != i+1 {
			t.Fatalf("Event %d has seq %d", i, e.Seq)
		}
		if e.Algorithm != Dijkstra {
			t.Errorf("Event %d has algorithm %s", i, e.Algorithm)
		}
	}
}

func TestNewStepper_Errors(t *testing.T) {
	g, _ := grid.New(3)

	if _, err := NewStepper("bfs", g); !errors.Is(err, ErrUnknownAlgorithm) {
		t.Errorf("Expected ErrUnknownAlgorithm, got %v", err)
	}
	if _, err := NewStepper(Dijkstra, nil); !errors.Is(err, ErrNilGrid) {
		t.Errorf("Expected ErrNilGrid, got %v", err)
	}
}

func TestParseAlgorithm(t *testing.T) {
	tests := map[string]Algorithm{
		"dijkstra": Dijkstra,
		"Dijkstra": Dijkstra,
		"astar":    AStar,
		"A*":       AStar,
		"a-star":   AStar,
	}
	for input, expected := range tests {
		got, err := ParseAlgorithm(input)
		if err != nil || got != expected {
			t.Errorf("ParseAlgorithm(%q) = %q, %v; expected %q", input, got, err, expected)
		}
	}

	if _, err := ParseAlgorithm("bfs"); !errors.Is(err, ErrUnknownAlgorithm) {
		t.Errorf("Expected ErrUnknownAlgorithm, got %v", err)
	}
}
