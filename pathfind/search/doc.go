// Package search implements Dijkstra and A* over a grid.Grid as steppable,
// cancelable runs.
//
// It exposes two entry points:
//
//   - Run: drive a search to completion, pausing between steps with a Pacer.
//   - Stepper: advance a search one iteration at a time to drive animations
//     or tests.
//
// Every run emits an ordered stream of Events: one "visited" event per node
// settled (never for the start), one "path" event per node marked during path
// reconstruction (end toward start, endpoints excluded), and a final "result"
// event carrying Succeeded, Failed or Cancelled.
//
// Both algorithms treat every move as cost 1 and move in four directions.
// By default the frontier is re-sorted with a stable sort on every extraction,
// which fixes the visited order for equal scores. WithFrontier(FrontierHeap)
// swaps in a binary heap that breaks ties by row, then column; paths keep the
// same length but the visited order can differ.
package search
