// Package api provides the HTTP REST API for path race sessions.
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create a session {"layout_id": "maze", "size": 12}
//   - GET /api/sessions - List sessions (sort=created|accessed, order=asc|desc, limit=N)
//   - GET /api/sessions/{id} - Get a session
//   - DELETE /api/sessions/{id} - Delete a session
//
// Editing (applied to every algorithm's grid; cancels a running search):
//   - GET /api/sessions/{id}/grid?algorithm=dijkstra|astar - Grid with per-node search state
//   - POST /api/sessions/{id}/start - {"row": 0, "col": 0}
//   - POST /api/sessions/{id}/end - {"row": 9, "col": 9}
//   - POST /api/sessions/{id}/walls - {"row": 3, "col": 4, "wall": true}; toggles when wall is absent
//   - POST /api/sessions/{id}/resize - {"size": 20}
//   - POST /api/sessions/{id}/speed - {"speed": "slow|medium|fast|instant"}
//   - POST /api/sessions/{id}/clear - {"scope": "path|walls|all"}
//
// Search:
//   - POST /api/sessions/{id}/find-path - {"wait": true}; 202 while running, 200 when waited
//   - POST /api/sessions/{id}/cancel - Cancel the running search
//   - GET /api/sessions/{id}/results - Last race result
//   - POST /api/solve - Stateless search over a layout or size/walls/endpoints
//
// Layouts:
//   - GET /api/layouts - List presets
//   - GET /api/layouts/{name} - Get one preset
//
// Other:
//   - GET /api/health - Liveness
//   - GET /ws?session={id} - WebSocket event stream
//
// Error Handling:
//
// Errors are returned as JSON:
//
//	{"error": "session a1b2: session not found"}
//
// Unknown sessions, layouts and missing results answer 404, invalid input
// 400, and a second find-path while one is running 409.
package api
