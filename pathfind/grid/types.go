package grid

import (
	"errors"
	"math"
)

const (
	// Validation constants
	MinGridSize     = 2
	MaxGridSize     = 100
	DefaultGridSize = 10

	noNode = -1

	// Layout runes
	OpenRune  = '.'
	WallRune  = '#'
	StartRune = 'S'
	EndRune   = 'E'
)

var (
	ErrInvalidSize   = errors.New("invalid grid size")
	ErrOutOfBounds   = errors.New("position out of bounds")
	ErrInvalidLayout = errors.New("invalid layout")
)

// Position identifies a cell by row and column
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Node is a single grid cell with its search state
type Node struct {
	row   int
	col   int
	index int

	IsWall    bool
	IsStart   bool
	IsEnd     bool
	IsVisited bool
	IsPath    bool

	// Dijkstra
	Distance float64

	// A*
	G float64
	H float64
	F float64

	previous int
}

func newNode(row, col, index int) Node {
	n := Node{row: row, col: col, index: index}
	n.resetSearch()
	return n
}

// Row returns the node's row
func (n *Node) Row() int { return n.row }

// Col returns the node's column
func (n *Node) Col() int { return n.col }

// Index returns the node's position in the row-major arena
func (n *Node) Index() int { return n.index }

// Position returns the node's coordinates
func (n *Node) Position() Position {
	return Position{Row: n.row, Col: n.col}
}

// IsEndpoint reports whether the node is the start or the end
func (n *Node) IsEndpoint() bool {
	return n.IsStart || n.IsEnd
}

// ManhattanDistance returns |row - other.row| + |col - other.col|
func (n *Node) ManhattanDistance(other *Node) int {
	return ManhattanDistance(n.Position(), other.Position())
}

func (n *Node) resetSearch() {
	n.IsVisited = false
	n.IsPath = false
	n.Distance = math.Inf(1)
	n.G = math.Inf(1)
	n.F = math.Inf(1)
	n.H = 0
	n.previous = noNode
}

// NodeState is the JSON view of a node
type NodeState struct {
	Row       int      `json:"row"`
	Col       int      `json:"col"`
	IsWall    bool     `json:"is_wall,omitempty"`
	IsStart   bool     `json:"is_start,omitempty"`
	IsEnd     bool     `json:"is_end,omitempty"`
	IsVisited bool     `json:"is_visited,omitempty"`
	IsPath    bool     `json:"is_path,omitempty"`
	Distance  *float64 `json:"distance,omitempty"`
	G         *float64 `json:"g,omitempty"`
	H         float64  `json:"h,omitempty"`
	F         *float64 `json:"f,omitempty"`
}

// Snapshot is a serializable copy of a grid
type Snapshot struct {
	Size    int         `json:"size"`
	Rows    []string    `json:"rows"`
	Start   *Position   `json:"start,omitempty"`
	End     *Position   `json:"end,omitempty"`
	Walls   []Position  `json:"walls"`
	Visited []Position  `json:"visited"`
	Path    []Position  `json:"path"`
	Nodes   []NodeState `json:"nodes,omitempty"`
}

// ManhattanDistance calculates the Manhattan distance between two positions
func ManhattanDistance(from, to Position) int {
	dr := from.Row - to.Row
	if dr < 0 {
		dr = -dr
	}
	dc := from.Col - to.Col
	if dc < 0 {
		dc = -dc
	}
	return dr + dc
}

// finite returns nil for infinite scores so they serialize as absent
func finite(v float64) *float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}
