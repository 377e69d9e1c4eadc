package grid

import (
	"fmt"
	"strings"
)

// Layout is the textual description of a grid
type Layout struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Size        int      `json:"size"`
	Rows        []string `json:"rows"`
}

// Render marks used by Render in addition to the layout runes
const (
	VisitedRune = 'o'
	PathRune    = '*'
)

// ValidateLayout validates a layout for correctness
func ValidateLayout(layout *Layout) error {
	if layout == nil {
		return fmt.Errorf("%w: layout is nil", ErrInvalidLayout)
	}
	if layout.Size < MinGridSize || layout.Size > MaxGridSize {
		return fmt.Errorf("%w: size must be between %d and %d, got %d", ErrInvalidLayout, MinGridSize, MaxGridSize, layout.Size)
	}
	if len(layout.Rows) != layout.Size {
		return fmt.Errorf("%w: must have %d rows to match size, got %d", ErrInvalidLayout, layout.Size, len(layout.Rows))
	}

	starts, ends := 0, 0
	for i, row := range layout.Rows {
		if len(row) != layout.Size {
			return fmt.Errorf("%w: row %d must have %d characters to match size, got %d", ErrInvalidLayout, i+1, layout.Size, len(row))
		}
		for j, char := range row {
			switch char {
			case OpenRune, WallRune:
			case StartRune:
				starts++
			case EndRune:
				ends++
			default:
				return fmt.Errorf("%w: invalid character '%c' at row %d, col %d", ErrInvalidLayout, char, i+1, j+1)
			}
		}
	}

	if starts != 1 {
		return fmt.Errorf("%w: must contain exactly one start (S), got %d", ErrInvalidLayout, starts)
	}
	if ends != 1 {
		return fmt.Errorf("%w: must contain exactly one end (E), got %d", ErrInvalidLayout, ends)
	}
	return nil
}

// FromLayout builds a grid from a validated layout
func FromLayout(layout *Layout) (*Grid, error) {
	if err := ValidateLayout(layout); err != nil {
		return nil, err
	}

	g, err := newEmpty(layout.Size)
	if err != nil {
		return nil, err
	}
	for row, line := range layout.Rows {
		for col, char := range line {
			switch char {
			case WallRune:
				g.SetWall(row, col, true)
			case StartRune:
				g.SetStart(row, col)
			case EndRune:
				g.SetEnd(row, col)
			}
		}
	}
	return g, nil
}

// Rows renders walls and endpoints as layout rows
func (g *Grid) Rows() []string {
	return g.render(false)
}

// Render renders the grid including visited (o) and path (*) marks
func (g *Grid) Render() []string {
	return g.render(true)
}

func (g *Grid) render(withSearch bool) []string {
	rows := make([]string, g.size)
	var b strings.Builder
	for row := 0; row < g.size; row++ {
		b.Reset()
		for col := 0; col < g.size; col++ {
			n := &g.nodes[row*g.size+col]
			switch {
			case n.IsStart:
				b.WriteRune(StartRune)
			case n.IsEnd:
				b.WriteRune(EndRune)
			case n.IsWall:
				b.WriteRune(WallRune)
			case withSearch && n.IsPath:
				b.WriteRune(PathRune)
			case withSearch && n.IsVisited:
				b.WriteRune(VisitedRune)
			default:
				b.WriteRune(OpenRune)
			}
		}
		rows[row] = b.String()
	}
	return rows
}

// Layout captures the grid's walls and endpoints as a layout
func (g *Grid) Layout(name, description string) *Layout {
	return &Layout{
		Name:        name,
		Description: description,
		Size:        g.size,
		Rows:        g.Rows(),
	}
}

// OpenLayout returns a wall-free layout with the start in the top-left and
// the end in the bottom-right corner
func OpenLayout(size int) *Layout {
	rows := make([]string, size)
	for i := range rows {
		rows[i] = strings.Repeat(string(OpenRune), size)
	}
	if size > 0 {
		rows[0] = string(StartRune) + rows[0][1:]
		last := rows[size-1]
		rows[size-1] = last[:size-1] + string(EndRune)
	}
	return &Layout{
		Name:        "open",
		Description: fmt.Sprintf("Open %dx%d grid", size, size),
		Size:        size,
		Rows:        rows,
	}
}
