package search

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wricardo/pathrace/pathfind/grid"
)

// Algorithm names a search algorithm
type Algorithm string

const (
	Dijkstra Algorithm = "dijkstra"
	AStar    Algorithm = "astar"
)

// Algorithms lists every supported algorithm in race order
var Algorithms = []Algorithm{Dijkstra, AStar}

var (
	ErrUnknownAlgorithm = errors.New("unknown algorithm")
	ErrNilGrid          = errors.New("grid is nil")
)

// ParseAlgorithm resolves an algorithm name, accepting a few common spellings
func ParseAlgorithm(name string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "dijkstra":
		return Dijkstra, nil
	case "astar", "a*", "a-star", "a_star":
		return AStar, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
}

// Status is the state of a run
type Status string

const (
	StatusReady     Status = "ready"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further steps will happen
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCancelled
}

// Reason explains a failed or cancelled run
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonMissingEndpoint Reason = "missing_endpoint"
	ReasonUnreachable     Reason = "unreachable"
	ReasonCancelled       Reason = "cancelled"
)

// Phase distinguishes the two kinds of suspension point
type Phase string

const (
	PhaseSearch Phase = "search"
	PhaseTrace  Phase = "trace"
)

// EventType is the kind of a step event
type EventType string

const (
	EventVisited EventType = "visited"
	EventPath    EventType = "path"
	EventResult  EventType = "result"
)

// Event is emitted for every node settled, every path node traced, and once
// when the run ends
type Event struct {
	Algorithm Algorithm      `json:"algorithm"`
	Type      EventType      `json:"type"`
	Seq       int            `json:"seq"`
	Position  *grid.Position `json:"position,omitempty"`
	Status    Status         `json:"status,omitempty"`
	Reason    Reason         `json:"reason,omitempty"`
}

// Listener receives events in emission order
type Listener func(Event)

// StepSnapshot describes the state after one Step
type StepSnapshot struct {
	Algorithm Algorithm      `json:"algorithm"`
	Phase     Phase          `json:"phase"`
	StepIndex int            `json:"step_index"`
	Current   *grid.Position `json:"current,omitempty"`
	Visited   int            `json:"visited"`
	Frontier  int            `json:"frontier"`
	Status    Status         `json:"status"`
	Reason    Reason         `json:"reason,omitempty"`
	Done      bool           `json:"done"`
}

// Result contains the outcome of a run
type Result struct {
	Algorithm    Algorithm       `json:"algorithm"`
	Status       Status          `json:"status"`
	Reason       Reason          `json:"reason,omitempty"`
	Found        bool            `json:"found"`
	Path         []grid.Position `json:"path"`
	PathLength   int             `json:"path_length"`
	PathMarked   int             `json:"path_marked"`
	Visited      []grid.Position `json:"visited"`
	VisitedCount int             `json:"visited_count"`
	Steps        int             `json:"steps"`
	Duration     time.Duration   `json:"duration_ns"`
}

// FrontierKind selects how the next node is extracted
type FrontierKind string

const (
	// FrontierSorted re-sorts the whole frontier with a stable sort on every
	// extraction. Ties keep their previous relative order.
	FrontierSorted FrontierKind = "sorted"
	// FrontierHeap uses a binary heap keyed by (score, row, col)
	FrontierHeap FrontierKind = "heap"
)

// Options defines parameters for a run
type Options struct {
	Frontier FrontierKind
	Listener Listener
	Pacer    Pacer
	Locker   sync.Locker
}

// Option is a function that modifies Options
type Option func(*Options)

// WithFrontier selects the frontier implementation
func WithFrontier(kind FrontierKind) Option {
	return func(options *Options) { options.Frontier = kind }
}

// WithListener registers the event listener
func WithListener(listener Listener) Option {
	return func(options *Options) { options.Listener = listener }
}

// WithPacer sets the pacer used by Run between steps
func WithPacer(pacer Pacer) Option {
	return func(options *Options) { options.Pacer = pacer }
}

// WithDelays paces visited steps and path steps with fixed delays
func WithDelays(visit, path time.Duration) Option {
	return WithPacer(DelayPacer{Visit: visit, Path: path})
}

// WithLocker makes Run hold locker while each step mutates the grid
func WithLocker(locker sync.Locker) Option {
	return func(options *Options) { options.Locker = locker }
}

func applyOptions(options []Option) Options {
	opts := Options{
		Frontier: FrontierSorted,
		Pacer:    NoDelay{},
	}
	for _, o := range options {
		o(&opts)
	}
	if opts.Pacer == nil {
		opts.Pacer = NoDelay{}
	}
	return opts
}
