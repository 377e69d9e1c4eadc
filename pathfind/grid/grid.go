package grid

import "fmt"

// Grid owns a size x size row-major arena of nodes
type Grid struct {
	size  int
	nodes []Node
	start int
	end   int
}

// New creates a grid with the start in the top-left corner and the end in
// the bottom-right corner
func New(size int) (*Grid, error) {
	g, err := newEmpty(size)
	if err != nil {
		return nil, err
	}
	g.SetStart(0, 0)
	g.SetEnd(size-1, size-1)
	return g, nil
}

// newEmpty creates a grid with no walls and no endpoints
func newEmpty(size int) (*Grid, error) {
	if size < MinGridSize || size > MaxGridSize {
		return nil, fmt.Errorf("%w: must be between %d and %d, got %d", ErrInvalidSize, MinGridSize, MaxGridSize, size)
	}

	g := &Grid{
		size:  size,
		nodes: make([]Node, size*size),
		start: noNode,
		end:   noNode,
	}
	for row := 0; row < size; row++ {
		for col := 0; col < size; col++ {
			index := row*size + col
			g.nodes[index] = newNode(row, col, index)
		}
	}
	return g, nil
}

// Size returns the number of rows (and columns)
func (g *Grid) Size() int {
	return g.size
}

// InBounds reports whether row and col address a cell of the grid
func (g *Grid) InBounds(row, col int) bool {
	return row >= 0 && row < g.size && col >= 0 && col < g.size
}

// At returns the node at row, col
func (g *Grid) At(row, col int) (*Node, error) {
	if !g.InBounds(row, col) {
		return nil, fmt.Errorf("%w: (%d,%d) on %dx%d grid", ErrOutOfBounds, row, col, g.size, g.size)
	}
	return &g.nodes[row*g.size+col], nil
}

// Node returns the node at the given position, or nil when out of bounds
func (g *Grid) Node(pos Position) *Node {
	n, err := g.At(pos.Row, pos.Col)
	if err != nil {
		return nil
	}
	return n
}

// Nodes returns every node in row-major order. The slice aliases the arena.
func (g *Grid) Nodes() []*Node {
	out := make([]*Node, len(g.nodes))
	for i := range g.nodes {
		out[i] = &g.nodes[i]
	}
	return out
}

// Start returns the start node, or nil if none is placed
func (g *Grid) Start() *Node {
	if g.start == noNode {
		return nil
	}
	return &g.nodes[g.start]
}

// End returns the end node, or nil if none is placed
func (g *Grid) End() *Node {
	if g.end == noNode {
		return nil
	}
	return &g.nodes[g.end]
}

// Neighbors returns the orthogonal neighbors of n (up, down, left, right)
// that are not walls
func (g *Grid) Neighbors(n *Node) []*Node {
	neighbors := make([]*Node, 0, 4)
	row, col := n.row, n.col

	if row > 0 {
		neighbors = append(neighbors, &g.nodes[(row-1)*g.size+col])
	}
	if row < g.size-1 {
		neighbors = append(neighbors, &g.nodes[(row+1)*g.size+col])
	}
	if col > 0 {
		neighbors = append(neighbors, &g.nodes[row*g.size+col-1])
	}
	if col < g.size-1 {
		neighbors = append(neighbors, &g.nodes[row*g.size+col+1])
	}

	open := neighbors[:0]
	for _, nb := range neighbors {
		if !nb.IsWall {
			open = append(open, nb)
		}
	}
	return open
}

// Previous returns the node n was reached from, or nil
func (g *Grid) Previous(n *Node) *Node {
	if n.previous == noNode {
		return nil
	}
	return &g.nodes[n.previous]
}

// SetPrevious records prev as the backlink of n. A nil prev clears it.
func (g *Grid) SetPrevious(n, prev *Node) {
	if prev == nil {
		n.previous = noNode
		return
	}
	n.previous = prev.index
}

// SetStart moves the start to row, col. It is a no-op returning false when
// the target is the end node.
func (g *Grid) SetStart(row, col int) (bool, error) {
	node, err := g.At(row, col)
	if err != nil {
		return false, err
	}
	if node.IsEnd {
		return false, nil
	}

	if old := g.Start(); old != nil {
		old.IsStart = false
	}
	node.IsWall = false
	node.IsStart = true
	g.start = node.index
	return true, nil
}

// SetEnd moves the end to row, col. It is a no-op returning false when the
// target is the start node.
func (g *Grid) SetEnd(row, col int) (bool, error) {
	node, err := g.At(row, col)
	if err != nil {
		return false, err
	}
	if node.IsStart {
		return false, nil
	}

	if old := g.End(); old != nil {
		old.IsEnd = false
	}
	node.IsWall = false
	node.IsEnd = true
	g.end = node.index
	return true, nil
}

// ToggleWall flips the wall flag at row, col. Endpoints are never walls, so
// toggling one is a no-op returning false.
func (g *Grid) ToggleWall(row, col int) (bool, error) {
	node, err := g.At(row, col)
	if err != nil {
		return false, err
	}
	return g.SetWall(row, col, !node.IsWall)
}

// SetWall sets the wall flag at row, col. It returns whether anything changed.
func (g *Grid) SetWall(row, col int, wall bool) (bool, error) {
	node, err := g.At(row, col)
	if err != nil {
		return false, err
	}
	if node.IsEndpoint() || node.IsWall == wall {
		return false, nil
	}
	node.IsWall = wall
	return true, nil
}

// Walls returns the positions of every wall in row-major order
func (g *Grid) Walls() []Position {
	var walls []Position
	for i := range g.nodes {
		if g.nodes[i].IsWall {
			walls = append(walls, g.nodes[i].Position())
		}
	}
	return walls
}

// ResetSearchState clears visited/path flags, scores and backlinks. Walls and
// endpoints are untouched.
func (g *Grid) ResetSearchState() {
	for i := range g.nodes {
		g.nodes[i].resetSearch()
	}
}

// ClearWalls removes every wall
func (g *Grid) ClearWalls() {
	for i := range g.nodes {
		g.nodes[i].IsWall = false
	}
}

// Reset clears search state, walls, and both endpoints
func (g *Grid) Reset() {
	g.ResetSearchState()
	g.ClearWalls()
	for i := range g.nodes {
		g.nodes[i].IsStart = false
		g.nodes[i].IsEnd = false
	}
	g.start = noNode
	g.end = noNode
}

// HasSearchState reports whether any node is marked visited or path
func (g *Grid) HasSearchState() bool {
	for i := range g.nodes {
		if g.nodes[i].IsVisited || g.nodes[i].IsPath {
			return true
		}
	}
	return false
}

// Clone returns a deep copy sharing no nodes with g
func (g *Grid) Clone() *Grid {
	nodes := make([]Node, len(g.nodes))
	copy(nodes, g.nodes)
	return &Grid{
		size:  g.size,
		nodes: nodes,
		start: g.start,
		end:   g.end,
	}
}

// CopyObstaclesFrom makes walls and endpoints of g match src. Both grids
// must have the same size. Search state of g is cleared.
func (g *Grid) CopyObstaclesFrom(src *Grid) error {
	if src.size != g.size {
		return fmt.Errorf("%w: cannot copy %dx%d grid onto %dx%d grid", ErrInvalidSize, src.size, src.size, g.size, g.size)
	}
	for i := range g.nodes {
		g.nodes[i].IsWall = src.nodes[i].IsWall
		g.nodes[i].IsStart = src.nodes[i].IsStart
		g.nodes[i].IsEnd = src.nodes[i].IsEnd
		g.nodes[i].resetSearch()
	}
	g.start = src.start
	g.end = src.end
	return nil
}

// Snapshot captures the grid for serialization. When detailed is set the
// per-node scores are included.
func (g *Grid) Snapshot(detailed bool) *Snapshot {
	s := &Snapshot{
		Size:    g.size,
		Rows:    g.Rows(),
		Walls:   []Position{},
		Visited: []Position{},
		Path:    []Position{},
	}
	if start := g.Start(); start != nil {
		pos := start.Position()
		s.Start = &pos
	}
	if end := g.End(); end != nil {
		pos := end.Position()
		s.End = &pos
	}

	for i := range g.nodes {
		n := &g.nodes[i]
		switch {
		case n.IsWall:
			s.Walls = append(s.Walls, n.Position())
		case n.IsPath:
			s.Path = append(s.Path, n.Position())
		}
		if n.IsVisited {
			s.Visited = append(s.Visited, n.Position())
		}
		if detailed {
			s.Nodes = append(s.Nodes, NodeState{
				Row:       n.row,
				Col:       n.col,
				IsWall:    n.IsWall,
				IsStart:   n.IsStart,
				IsEnd:     n.IsEnd,
				IsVisited: n.IsVisited,
				IsPath:    n.IsPath,
				Distance:  finite(n.Distance),
				G:         finite(n.G),
				H:         n.H,
				F:         finite(n.F),
			})
		}
	}
	return s
}
