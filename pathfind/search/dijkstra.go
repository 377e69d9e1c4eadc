package search

import (
	"math"

	"github.com/wricardo/pathrace/pathfind/grid"
)

// strategy is the algorithm-specific part of a run. The stepper owns the
// loop, events and termination; a strategy owns the frontier and relaxation.
type strategy interface {
	prepare(g *grid.Grid, start, end *grid.Node)
	next() *grid.Node
	// unreachable reports whether extracting n proves the end cannot be reached
	unreachable(n *grid.Node) bool
	settle(g *grid.Grid, n *grid.Node)
	frontierLen() int
}

func newStrategy(algorithm Algorithm, kind FrontierKind) (strategy, error) {
	switch algorithm {
	case Dijkstra:
		return &dijkstraSearch{kind: kind}, nil
	case AStar:
		return &astarSearch{kind: kind}, nil
	default:
		return nil, ErrUnknownAlgorithm
	}
}

// dijkstraSearch settles nodes in order of distance from the start. Every
// node starts in the unvisited frontier.
type dijkstraSearch struct {
	kind      FrontierKind
	unvisited frontier
	visited   []bool
}

func (d *dijkstraSearch) prepare(g *grid.Grid, start, end *grid.Node) {
	nodes := g.Nodes()
	for _, n := range nodes {
		n.Distance = math.Inf(1)
	}
	start.Distance = 0

	d.visited = make([]bool, len(nodes))
	d.unvisited = newFrontier(d.kind, len(nodes), func(n *grid.Node) float64 { return n.Distance })
	for _, n := range nodes {
		d.unvisited.Push(n)
	}
}

func (d *dijkstraSearch) next() *grid.Node {
	return d.unvisited.Pop()
}

func (d *dijkstraSearch) unreachable(n *grid.Node) bool {
	return math.IsInf(n.Distance, 1)
}

func (d *dijkstraSearch) settle(g *grid.Grid, current *grid.Node) {
	d.visited[current.Index()] = true

	for _, neighbor := range g.Neighbors(current) {
		if d.visited[neighbor.Index()] {
			continue
		}

		tentativeDistance := current.Distance + 1
		if tentativeDistance < neighbor.Distance {
			neighbor.Distance = tentativeDistance
			g.SetPrevious(neighbor, current)
			d.unvisited.Fix(neighbor)
		}
	}
}

func (d *dijkstraSearch) frontierLen() int {
	return d.unvisited.Len()
}
