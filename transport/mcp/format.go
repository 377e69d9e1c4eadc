package mcp

import (
	"fmt"
	"strings"
	"time"

	"github.com/wricardo/pathrace/pathfind/grid"
	"github.com/wricardo/pathrace/pathfind/search"
	"github.com/wricardo/pathrace/pathfind/service"
)

// Formatting helpers

func formatSessionInfo(info *service.SessionInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s\nLayout: %s\nSize: %dx%d\nSpeed: %s\n",
		info.ID, info.LayoutID, info.Size, info.Size, info.Speed)
	fmt.Fprintf(&b, "Start: %s | End: %s | Walls: %d\n",
		formatPosition(info.Start), formatPosition(info.End), len(info.Walls))
	if info.Running {
		b.WriteString("Status: searching\n")
	}
	if len(info.Rows) > 0 {
		b.WriteString("\n")
		b.WriteString(formatRows(info.Rows))
	}
	return b.String()
}

func formatPosition(pos *grid.Position) string {
	if pos == nil {
		return "none"
	}
	return fmt.Sprintf("(%d,%d)", pos.Row, pos.Col)
}

// formatRows prints rows under a column ruler with row numbers. The ruler
// shows the last digit of each column index.
func formatRows(rows []string) string {
	if len(rows) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("    ")
	for col := range rows[0] {
		b.WriteByte(byte('0' + col%10))
	}
	b.WriteString("\n")
	for i, row := range rows {
		fmt.Fprintf(&b, "%3d %s\n", i, row)
	}
	return b.String()
}

// renderSnapshot overlays the visited and path marks on the snapshot rows
func renderSnapshot(s *grid.Snapshot) []string {
	cells := make([][]byte, len(s.Rows))
	for i, row := range s.Rows {
		cells[i] = []byte(row)
	}

	mark := func(positions []grid.Position, r byte) {
		for _, p := range positions {
			if p.Row < 0 || p.Row >= len(cells) || p.Col < 0 || p.Col >= len(cells[p.Row]) {
				continue
			}
			if cells[p.Row][p.Col] == byte(grid.OpenRune) {
				cells[p.Row][p.Col] = r
			}
		}
	}
	mark(s.Visited, byte(grid.VisitedRune))
	mark(s.Path, byte(grid.PathRune))

	rows := make([]string, len(cells))
	for i, row := range cells {
		rows[i] = string(row)
	}
	return rows
}

func formatResultLine(r search.Result) string {
	switch {
	case r.Found:
		return fmt.Sprintf("%-9s %s: path length %d, visited %d, steps %d",
			r.Algorithm, r.Status, r.PathLength, r.VisitedCount, r.Steps)
	case r.Reason != search.ReasonNone:
		return fmt.Sprintf("%-9s %s (%s): visited %d", r.Algorithm, r.Status, r.Reason, r.VisitedCount)
	default:
		return fmt.Sprintf("%-9s %s: visited %d", r.Algorithm, r.Status, r.VisitedCount)
	}
}

func formatRaceResult(race *service.RaceResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Race %s (session %s): %s\n", race.RunID, race.SessionID, race.Status)

	if race.Status == service.RaceRunning {
		b.WriteString("Search is running; call find_path again after it finishes, or use grid to watch progress.\n")
		return b.String()
	}

	for _, r := range race.Results {
		b.WriteString(formatResultLine(r))
		b.WriteString("\n")
	}
	if race.Agree {
		b.WriteString("Both algorithms agree on the shortest path length.\n")
	} else if race.Status == service.RaceFinished {
		b.WriteString("WARNING: the algorithms disagree.\n")
	}
	if race.FinishedAt != nil {
		fmt.Fprintf(&b, "Duration: %s\n", race.FinishedAt.Sub(race.StartedAt).Round(time.Millisecond))
	}
	return b.String()
}

func formatSolveResult(result *service.SolveResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Solved %dx%d grid\n\n", result.Size, result.Size)
	for _, r := range result.Results {
		b.WriteString(formatResultLine(r))
		b.WriteString("\n")
		if rows, ok := result.Rendered[string(r.Algorithm)]; ok {
			b.WriteString(formatRows(rows))
		}
		b.WriteString("\n")
	}
	if len(result.Results) > 1 {
		fmt.Fprintf(&b, "Agree: %v\n", result.Agree)
	}
	return b.String()
}
