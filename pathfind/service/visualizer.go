package service

import (
	"context"

	"github.com/wricardo/pathrace/pathfind/grid"
	"github.com/wricardo/pathrace/pathfind/search"
)

// Visualizer defines all session and search operations
type Visualizer interface {
	// Session Management
	CreateSession(ctx context.Context, layoutID string, size int) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Editing (applied to every algorithm's grid)
	SetStart(ctx context.Context, sessionID string, row, col int) (*SessionInfo, error)
	SetEnd(ctx context.Context, sessionID string, row, col int) (*SessionInfo, error)
	ToggleWall(ctx context.Context, sessionID string, row, col int) (*SessionInfo, error)
	SetWall(ctx context.Context, sessionID string, row, col int, wall bool) (*SessionInfo, error)
	Resize(ctx context.Context, sessionID string, size int) (*SessionInfo, error)
	SetSpeed(ctx context.Context, sessionID, speed string) (*SessionInfo, error)
	ClearPath(ctx context.Context, sessionID string) (*SessionInfo, error)
	ClearWalls(ctx context.Context, sessionID string) (*SessionInfo, error)
	ResetGrid(ctx context.Context, sessionID string) (*SessionInfo, error)

	// Search
	GetGrid(ctx context.Context, sessionID string, algorithm search.Algorithm) (*grid.Snapshot, error)
	FindPath(ctx context.Context, sessionID string, wait bool) (*RaceResult, error)
	Cancel(ctx context.Context, sessionID string) error
	Results(ctx context.Context, sessionID string) (*RaceResult, error)
	Solve(ctx context.Context, req *SolveRequest) (*SolveResult, error)

	// Layouts
	ListLayouts(ctx context.Context) ([]*LayoutInfo, error)
	LoadLayout(ctx context.Context, name string) (*grid.Layout, error)
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, layoutID string, layout *grid.Layout) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// LayoutManager handles layout preset loading
type LayoutManager interface {
	LoadLayout(name string) (*grid.Layout, error)
	ListLayouts() ([]*LayoutInfo, error)
	GetDefault() *grid.Layout
}

// Publisher receives session events for subscribers
type Publisher interface {
	Publish(sessionID, event string, data interface{})
}

// PublisherFunc adapts a function to the Publisher interface
type PublisherFunc func(sessionID, event string, data interface{})

// Publish calls f
func (f PublisherFunc) Publish(sessionID, event string, data interface{}) {
	f(sessionID, event, data)
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, string, interface{}) {}
