// Package service provides the session layer of the path race visualizer.
//
// A session owns one grid per algorithm. Every edit (start, end, walls,
// resize, clear) is applied to all of them so they only ever differ in
// search state. FindPath races Dijkstra and A* concurrently, each on its own
// grid, pacing steps with the session speed and forwarding every step event
// to a Publisher tagged with the session ID.
//
// Editing a session while a race is running cancels the race and clears the
// partial marks; editing after a race clears the previous result from the
// grids. A second FindPath while one is running fails with ErrSearchRunning.
//
// Core Interfaces:
//
// Visualizer is the main service interface used by the transports.
// SessionManager stores sessions; LayoutManager loads layout presets;
// Publisher receives events.
//
// Usage:
//
//	layouts, _ := config.NewManager("configs")
//	visualizer := service.NewVisualizer(session.NewManager(), layouts,
//		service.WithPublisher(hub))
//
//	info, err := visualizer.CreateSession(ctx, "gap_wall", 0)
//	race, err := visualizer.FindPath(ctx, info.ID, true)
//
// Solve runs a search without a session, synchronously and without pacing.
package service
