// Package config loads layout presets for the visualizer.
//
// A layout is a JSON file in the layouts directory:
//
//	{
//	  "name": "Gap Wall",
//	  "description": "A full-width wall with a single gap",
//	  "size": 4,
//	  "rows": ["S...", "##.#", "....", "...E"]
//	}
//
// Rows use '.' for open cells, '#' for walls, 'S' for the start and 'E' for
// the end. Every file is validated with grid.ValidateLayout when loaded;
// invalid files are skipped by ListLayouts.
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	layout, err := manager.LoadLayout("gap_wall")
//	presets, err := manager.ListLayouts()
//
// The default layout is open.json when present, otherwise the first valid
// preset, otherwise a built-in open 10x10 grid.
package config
