// Package mcp provides the Model Context Protocol interface for path race
// sessions.
//
// The Client is a thin proxy: every tool call becomes a REST API request
// and the JSON response is rendered as text for the agent. Grids are shown
// with a column ruler and row numbers so cells can be addressed by
// (row, col).
//
// Tools:
//   - create_session, list_sessions, get_session
//   - grid: one algorithm's grid with visited (o) and path (*) marks
//   - set_start, set_end, toggle_wall, clear_grid
//   - find_path, cancel_search
//   - list_layouts, solve, instructions
//
// Transport Modes:
//   - Stdio: server.ServeStdio(client.GetMCPServer())
//   - HTTP: POST JSON-RPC messages to /mcp on the main server
package mcp
