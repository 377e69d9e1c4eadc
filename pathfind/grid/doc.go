// Package grid provides the data model shared by the pathfinding algorithms.
//
// A Grid owns a square, row-major arena of Nodes. Each Node carries its
// immutable position, the obstacle and endpoint flags set by the caller, and
// the mutable search fields (distance, g/h/f scores, previous link, visited
// and path flags) written by a search run.
//
// Core Types:
//
// Grid holds the arena and the start/end references. Node is a single cell.
// Layout is the textual description of a grid used by presets and the CLI:
//
//	.  open cell
//	#  wall
//	S  start
//	E  end
//
// Usage:
//
//	g, err := grid.New(10)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	g.ToggleWall(3, 4)
//	g.SetEnd(7, 7)
//
//	// Between runs
//	g.ResetSearchState()
//
// Invariants:
//
// At most one node is the start and at most one is the end; a node is never
// both a wall and an endpoint. Search state lives inline in the nodes and is
// cleared by ResetSearchState, while walls and endpoints persist until they
// are changed or the grid is recreated.
package grid
