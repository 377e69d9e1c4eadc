package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/wricardo/pathrace/pathfind/grid"
	"github.com/wricardo/pathrace/pathfind/service"
)

var (
	ErrLayoutNotFound = errors.New("layout not found")
	ErrInvalidLayout  = errors.New("invalid layout")
)

// DefaultLayoutID is the preset used when a session names none
const DefaultLayoutID = "open"

// Manager handles layout preset loading and caching
type Manager struct {
	layoutDir     string
	defaultLayout *grid.Layout
	layouts       map[string]*grid.Layout
	mu            sync.RWMutex
}

// NewManager creates a new layout manager
func NewManager(layoutDir string) (*Manager, error) {
	// Ensure layout directory exists
	if _, err := os.Stat(layoutDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("layout directory does not exist: %s", layoutDir)
	}

	m := &Manager{
		layoutDir: layoutDir,
		layouts:   make(map[string]*grid.Layout),
	}

	m.defaultLayout = m.findDefault()
	return m, nil
}

// LoadLayout loads a layout by name. Names are file names with or without
// the .json extension. Names that would resolve outside the layout directory
// are not found.
func (m *Manager) LoadLayout(name string) (*grid.Layout, error) {
	name = strings.TrimSuffix(name, ".json")
	if !validName(name) {
		return nil, fmt.Errorf("%w: %q", ErrLayoutNotFound, name)
	}

	m.mu.RLock()
	// Check cache first
	if layout, exists := m.layouts[name]; exists {
		m.mu.RUnlock()
		return layout, nil
	}
	m.mu.RUnlock()

	layout, err := ReadLayoutFile(filepath.Join(m.layoutDir, name+".json"))
	if err != nil {
		return nil, err
	}
	if layout.Name == "" {
		layout.Name = name
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Another caller may have loaded it meanwhile
	if cached, exists := m.layouts[name]; exists {
		return cached, nil
	}
	m.layouts[name] = layout
	return layout, nil
}

// validName accepts plain file names only
func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return filepath.Base(name) == name && !strings.ContainsAny(name, `/\`)
}

// ReadLayoutFile reads and validates one layout file
func ReadLayoutFile(path string) (*grid.Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrLayoutNotFound
		}
		return nil, fmt.Errorf("failed to read layout file: %w", err)
	}

	var layout grid.Layout
	if err := json.Unmarshal(data, &layout); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", ErrInvalidLayout, filepath.Base(path), err)
	}

	if err := grid.ValidateLayout(&layout); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLayout, err)
	}

	return &layout, nil
}

// ListLayouts returns information about all valid layouts, sorted by id
func (m *Manager) ListLayouts() ([]*service.LayoutInfo, error) {
	entries, err := os.ReadDir(m.layoutDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read layout directory: %w", err)
	}

	var layouts []*service.LayoutInfo

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		id := strings.TrimSuffix(entry.Name(), ".json")

		layout, err := m.LoadLayout(id)
		if err != nil {
			// Skip invalid layouts
			continue
		}

		layouts = append(layouts, &service.LayoutInfo{
			Filename:    entry.Name(),
			LayoutID:    id,
			Name:        layout.Name,
			Description: layout.Description,
			Size:        layout.Size,
			Walls:       countWalls(layout),
		})
	}

	sort.Slice(layouts, func(i, j int) bool { return layouts[i].LayoutID < layouts[j].LayoutID })
	return layouts, nil
}

// GetDefault returns the default layout
func (m *Manager) GetDefault() *grid.Layout {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultLayout
}

// SetDefault sets the default layout by name
func (m *Manager) SetDefault(name string) error {
	layout, err := m.LoadLayout(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultLayout = layout
	return nil
}

// RefreshCache drops cached layouts and re-resolves the default
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	m.layouts = make(map[string]*grid.Layout)
	m.mu.Unlock()

	layout := m.findDefault()

	m.mu.Lock()
	m.defaultLayout = layout
	m.mu.Unlock()
}

// findDefault prefers open.json, then the first valid layout, then a
// built-in open grid
func (m *Manager) findDefault() *grid.Layout {
	if layout, err := m.LoadLayout(DefaultLayoutID); err == nil {
		return layout
	}

	layouts, err := m.ListLayouts()
	if err == nil && len(layouts) > 0 {
		if layout, err := m.LoadLayout(layouts[0].LayoutID); err == nil {
			return layout
		}
	}

	return grid.OpenLayout(grid.DefaultGridSize)
}

func countWalls(layout *grid.Layout) int {
	walls := 0
	for _, row := range layout.Rows {
		walls += strings.Count(row, string(grid.WallRune))
	}
	return walls
}
