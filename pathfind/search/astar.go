package search

import (
	"math"

	"github.com/wricardo/pathrace/pathfind/grid"
)

// astarSearch expands the open node with the lowest f = g + h, where h is the
// Manhattan distance to the end
type astarSearch struct {
	kind   FrontierKind
	open   frontier
	closed []bool
}

func (a *astarSearch) prepare(g *grid.Grid, start, end *grid.Node) {
	nodes := g.Nodes()
	for _, n := range nodes {
		n.G = math.Inf(1)
		n.F = math.Inf(1)
		n.H = float64(n.ManhattanDistance(end))
	}
	start.G = 0
	start.F = start.H

	a.closed = make([]bool, len(nodes))
	a.open = newFrontier(a.kind, len(nodes), func(n *grid.Node) float64 { return n.F })
	a.open.Push(start)
}

func (a *astarSearch) next() *grid.Node {
	return a.open.Pop()
}

func (a *astarSearch) unreachable(n *grid.Node) bool {
	return false
}

func (a *astarSearch) settle(g *grid.Grid, current *grid.Node) {
	a.closed[current.Index()] = true

	for _, neighbor := range g.Neighbors(current) {
		if a.closed[neighbor.Index()] {
			continue
		}

		tentativeG := current.G + 1
		inOpen := a.open.Contains(neighbor)
		if inOpen && tentativeG >= neighbor.G {
			continue
		}

		g.SetPrevious(neighbor, current)
		neighbor.G = tentativeG
		neighbor.F = neighbor.G + neighbor.H
		if inOpen {
			a.open.Fix(neighbor)
		} else {
			a.open.Push(neighbor)
		}
	}
}

func (a *astarSearch) frontierLen() int {
	return a.open.Len()
}
