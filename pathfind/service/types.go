package service

import (
	"errors"
	"time"

	"github.com/wricardo/pathrace/pathfind/grid"
	"github.com/wricardo/pathrace/pathfind/search"
)

var (
	ErrSearchRunning = errors.New("search already running")
	ErrNoResults     = errors.New("no search has run yet")
	ErrInvalidInput  = errors.New("invalid input")
)

// Event names published alongside the search events
const (
	EventRaceStarted  = "race_started"
	EventRaceFinished = "race_finished"
	EventGridUpdate   = "grid_update"
)

// SessionInfo provides information about a visualizer session
type SessionInfo struct {
	ID             string          `json:"id"`
	LayoutID       string          `json:"layout_id"`
	Size           int             `json:"size"`
	Speed          string          `json:"speed"`
	Start          *grid.Position  `json:"start,omitempty"`
	End            *grid.Position  `json:"end,omitempty"`
	Walls          []grid.Position `json:"walls"`
	Rows           []string        `json:"rows"`
	Running        bool            `json:"running"`
	CreatedAt      time.Time       `json:"created_at"`
	LastAccessedAt time.Time       `json:"last_accessed_at"`
}

// RaceStatus is the state of a race
type RaceStatus string

const (
	RaceRunning   RaceStatus = "running"
	RaceFinished  RaceStatus = "finished"
	RaceCancelled RaceStatus = "cancelled"
)

// RaceResult contains the outcome of running every algorithm on a session.
// Agree is set when every algorithm finished and all found paths of the same
// length, or all failed.
type RaceResult struct {
	RunID      string          `json:"run_id"`
	SessionID  string          `json:"session_id"`
	Status     RaceStatus      `json:"status"`
	Speed      string          `json:"speed"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
	Results    []search.Result `json:"results"`
	Agree      bool            `json:"agree"`
}

// Result returns the result for one algorithm
func (r *RaceResult) Result(algorithm search.Algorithm) (search.Result, bool) {
	for _, result := range r.Results {
		if result.Algorithm == algorithm {
			return result, true
		}
	}
	return search.Result{}, false
}

// SolveRequest describes a stateless search. Either Layout or Size (with
// optional walls and endpoints) defines the grid.
type SolveRequest struct {
	Layout     *grid.Layout        `json:"layout,omitempty"`
	LayoutID   string              `json:"layout_id,omitempty"`
	Size       int                 `json:"size,omitempty"`
	Start      *grid.Position      `json:"start,omitempty"`
	End        *grid.Position      `json:"end,omitempty"`
	Walls      []grid.Position     `json:"walls,omitempty"`
	Algorithms []search.Algorithm  `json:"algorithms,omitempty"`
	Frontier   search.FrontierKind `json:"frontier,omitempty"`
}

// SolveResult contains the rendered grid and per-algorithm results of a
// stateless search
type SolveResult struct {
	Size     int                 `json:"size"`
	Rows     []string            `json:"rows"`
	Rendered map[string][]string `json:"rendered"`
	Results  []search.Result     `json:"results"`
	Agree    bool                `json:"agree"`
}

// LayoutInfo provides information about a layout preset
type LayoutInfo struct {
	Filename    string `json:"filename"`
	LayoutID    string `json:"layout_id"` // The identifier to use for session creation
	Name        string `json:"name"`
	Description string `json:"description"`
	Size        int    `json:"size"`
	Walls       int    `json:"walls"`
}

// agree reports whether finished results describe the same shortest path
// length. Cancelled or incomplete results never agree.
func agree(results []search.Result) bool {
	if len(results) == 0 {
		return false
	}
	first := results[0]
	for _, r := range results {
		if r.Status != search.StatusSucceeded && r.Status != search.StatusFailed {
			return false
		}
		if r.Found != first.Found || r.PathLength != first.PathLength {
			return false
		}
	}
	return true
}
