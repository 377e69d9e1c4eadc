// Package websocket streams session events to browser clients.
//
// Clients connect to /ws?session=<id> and receive one JSON message per
// event:
//
//	{"session_id": "a1b2", "event": "visited", "data": {"algorithm": "astar", "type": "visited", "seq": 12, "position": {"row": 3, "col": 4}}}
//
// Events are the search events (visited, path, result) of both algorithms,
// interleaved, plus race_started, race_finished and grid_update. Events of
// one algorithm arrive in order; use the seq field to detect gaps.
//
// The Hub implements service.Publisher. Publish never blocks; when the
// broadcast queue is full the event is dropped and a warning logged.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//	visualizer := service.NewVisualizer(sessions, layouts, service.WithPublisher(hub))
package websocket
