package search

import (
	"container/heap"
	"sort"

	"github.com/wricardo/pathrace/pathfind/grid"
)

// scoreFunc returns the priority of a node; lower is extracted first
type scoreFunc func(n *grid.Node) float64

// frontier holds discovered nodes that are not yet settled
type frontier interface {
	Push(n *grid.Node)
	Pop() *grid.Node
	Len() int
	Contains(n *grid.Node) bool
	// Fix restores ordering after the score of n decreased
	Fix(n *grid.Node)
}

func newFrontier(kind FrontierKind, size int, score scoreFunc) frontier {
	if kind == FrontierHeap {
		return newHeapFrontier(size, score)
	}
	return newSortedFrontier(size, score)
}

// sortedFrontier keeps nodes in a slice and stable-sorts it before every
// extraction, so equal scores keep the order left by the previous sort
type sortedFrontier struct {
	nodes  []*grid.Node
	member []bool
	score  scoreFunc
}

func newSortedFrontier(size int, score scoreFunc) *sortedFrontier {
	return &sortedFrontier{
		member: make([]bool, size),
		score:  score,
	}
}

func (f *sortedFrontier) Push(n *grid.Node) {
	f.nodes = append(f.nodes, n)
	f.member[n.Index()] = true
}

func (f *sortedFrontier) Pop() *grid.Node {
	if len(f.nodes) == 0 {
		return nil
	}
	sort.SliceStable(f.nodes, func(i, j int) bool {
		return f.score(f.nodes[i]) < f.score(f.nodes[j])
	})
	n := f.nodes[0]
	f.nodes[0] = nil
	f.nodes = f.nodes[1:]
	f.member[n.Index()] = false
	return n
}

func (f *sortedFrontier) Len() int { return len(f.nodes) }

func (f *sortedFrontier) Contains(n *grid.Node) bool { return f.member[n.Index()] }

// Fix is a no-op; order is recomputed on every Pop
func (f *sortedFrontier) Fix(n *grid.Node) {}

// heapFrontier is a binary min-heap with an explicit (score, row, col)
// tie-break
type heapFrontier struct {
	queue    nodeQueue
	position []int
}

func newHeapFrontier(size int, score scoreFunc) *heapFrontier {
	f := &heapFrontier{position: make([]int, size)}
	for i := range f.position {
		f.position[i] = -1
	}
	f.queue = nodeQueue{score: score, position: f.position}
	heap.Init(&f.queue)
	return f
}

func (f *heapFrontier) Push(n *grid.Node) {
	if f.Contains(n) {
		return
	}
	heap.Push(&f.queue, n)
}

func (f *heapFrontier) Pop() *grid.Node {
	if f.queue.Len() == 0 {
		return nil
	}
	return heap.Pop(&f.queue).(*grid.Node)
}

func (f *heapFrontier) Len() int { return f.queue.Len() }

func (f *heapFrontier) Contains(n *grid.Node) bool { return f.position[n.Index()] >= 0 }

func (f *heapFrontier) Fix(n *grid.Node) {
	if i := f.position[n.Index()]; i >= 0 {
		heap.Fix(&f.queue, i)
	}
}

type nodeQueue struct {
	items    []*grid.Node
	score    scoreFunc
	position []int
}

func (q nodeQueue) Len() int { return len(q.items) }

func (q nodeQueue) Less(i, j int) bool {
	a, b := q.items[i], q.items[j]
	sa, sb := q.score(a), q.score(b)
	if sa != sb {
		return sa < sb
	}
	if a.Row() != b.Row() {
		return a.Row() < b.Row()
	}
	return a.Col() < b.Col()
}

func (q nodeQueue) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
	q.position[q.items[i].Index()] = i
	q.position[q.items[j].Index()] = j
}

func (q *nodeQueue) Push(x any) {
	n := x.(*grid.Node)
	q.position[n.Index()] = len(q.items)
	q.items = append(q.items, n)
}

func (q *nodeQueue) Pop() any {
	old := q.items
	last := len(old) - 1
	n := old[last]
	old[last] = nil
	q.items = old[:last]
	q.position[n.Index()] = -1
	return n
}
