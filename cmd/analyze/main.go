// Command analyze races every algorithm and frontier over the layout presets
// in a directory and prints how much of each grid they explore. It flags any
// layout where the algorithms disagree on the shortest path length.
//
// Usage:
//
//	analyze [config-dir]
package main

import (
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/pathrace/pathfind/config"
	"github.com/wricardo/pathrace/pathfind/grid"
	"github.com/wricardo/pathrace/pathfind/search"
)

// RunStat is the outcome of one algorithm with one frontier
type RunStat struct {
	Algorithm  search.Algorithm
	Frontier   search.FrontierKind
	Found      bool
	PathLength int
	Visited    int
	Steps      int
}

// LayoutAnalysis summarizes every run over one layout
type LayoutAnalysis struct {
	ID        string
	Name      string
	Size      int
	Walls     int
	Manhattan int
	Runs      []RunStat
	Agree     bool
}

var frontiers = []search.FrontierKind{search.FrontierSorted, search.FrontierHeap}

func main() {
	dir := "configs"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	layouts, err := config.NewManager(dir)
	if err != nil {
		log.Fatal(err)
	}
	infos, err := layouts.ListLayouts()
	if err != nil {
		log.Fatal(err)
	}

	for _, info := range infos {
		layout, err := layouts.LoadLayout(info.LayoutID)
		if err != nil {
			log.WithField("layout", info.LayoutID).Errorf("Error loading layout: %v", err)
			continue
		}
		analysis, err := analyzeLayout(info.LayoutID, layout)
		if err != nil {
			log.WithField("layout", info.LayoutID).Errorf("Error analyzing layout: %v", err)
			continue
		}
		printAnalysis(os.Stdout, analysis)
	}
}

// analyzeLayout runs every algorithm and frontier pair concurrently, each on
// its own copy of the grid
func analyzeLayout(id string, layout *grid.Layout) (*LayoutAnalysis, error) {
	base, err := grid.FromLayout(layout)
	if err != nil {
		return nil, err
	}

	analysis := &LayoutAnalysis{
		ID:        id,
		Name:      layout.Name,
		Size:      base.Size(),
		Walls:     len(base.Walls()),
		Manhattan: base.Start().ManhattanDistance(base.End()),
		Runs:      make([]RunStat, len(search.Algorithms)*len(frontiers)),
	}

	var group errgroup.Group
	for i, frontier := range frontiers {
		for j, algorithm := range search.Algorithms {
			slot := i*len(search.Algorithms) + j
			frontier, algorithm := frontier, algorithm
			g := base.Clone()
			group.Go(func() error {
				result, err := search.Solve(algorithm, g, search.WithFrontier(frontier))
				if err != nil {
					return fmt.Errorf("%s/%s: %w", algorithm, frontier, err)
				}
				analysis.Runs[slot] = RunStat{
					Algorithm:  algorithm,
					Frontier:   frontier,
					Found:      result.Found,
					PathLength: result.PathLength,
					Visited:    result.VisitedCount,
					Steps:      result.Steps,
				}
				return nil
			})
		}
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	analysis.Agree = runsAgree(analysis.Runs)
	return analysis, nil
}

// runsAgree reports whether every run found the same path length, or none
// found a path
func runsAgree(runs []RunStat) bool {
	for _, r := range runs[1:] {
		if r.Found != runs[0].Found || r.PathLength != runs[0].PathLength {
			return false
		}
	}
	return true
}

func printAnalysis(w io.Writer, a *LayoutAnalysis) {
	fmt.Fprintf(w, "\n=== Analyzing %s ===\n", a.ID)
	fmt.Fprintf(w, "Name: %s\n", a.Name)
	fmt.Fprintf(w, "Grid Size: %d x %d\n", a.Size, a.Size)
	fmt.Fprintf(w, "Walls: %d of %d cells\n", a.Walls, a.Size*a.Size)
	fmt.Fprintf(w, "Manhattan distance start to end: %d\n", a.Manhattan)

	for _, r := range a.Runs {
		if r.Found {
			fmt.Fprintf(w, "  %-9s %-7s path %4d  visited %5d  steps %5d  detour %d\n",
				r.Algorithm, r.Frontier, r.PathLength, r.Visited, r.Steps, r.PathLength-a.Manhattan)
		} else {
			fmt.Fprintf(w, "  %-9s %-7s no path     visited %5d  steps %5d\n",
				r.Algorithm, r.Frontier, r.Visited, r.Steps)
		}
	}

	if !a.Agree {
		fmt.Fprintf(w, "WARNING: runs disagree on the shortest path length\n")
	} else if len(a.Runs) > 0 && !a.Runs[0].Found {
		fmt.Fprintf(w, "End is unreachable from start\n")
	} else {
		fmt.Fprintf(w, "All runs agree\n")
	}
}
