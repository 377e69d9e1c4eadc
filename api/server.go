package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/wricardo/pathrace/pathfind/config"
	"github.com/wricardo/pathrace/pathfind/grid"
	"github.com/wricardo/pathrace/pathfind/search"
	"github.com/wricardo/pathrace/pathfind/service"
	"github.com/wricardo/pathrace/pathfind/session"
	"github.com/wricardo/pathrace/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service service.Visualizer
	hub     *websocket.Hub
	router  *mux.Router
}

// NewServer creates a new API server
func NewServer(visualizer service.Visualizer, hub *websocket.Hub) *Server {
	s := &Server{
		service: visualizer,
		hub:     hub,
		router:  mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Editing
	api.HandleFunc("/sessions/{id}/grid", s.handleGetGrid).Methods("GET")
	api.HandleFunc("/sessions/{id}/start", s.handleSetStart).Methods("POST")
	api.HandleFunc("/sessions/{id}/end", s.handleSetEnd).Methods("POST")
	api.HandleFunc("/sessions/{id}/walls", s.handleWalls).Methods("POST")
	api.HandleFunc("/sessions/{id}/resize", s.handleResize).Methods("POST")
	api.HandleFunc("/sessions/{id}/speed", s.handleSpeed).Methods("POST")
	api.HandleFunc("/sessions/{id}/clear", s.handleClear).Methods("POST")

	// Search
	api.HandleFunc("/sessions/{id}/find-path", s.handleFindPath).Methods("POST")
	api.HandleFunc("/sessions/{id}/cancel", s.handleCancel).Methods("POST")
	api.HandleFunc("/sessions/{id}/results", s.handleResults).Methods("GET")
	api.HandleFunc("/solve", s.handleSolve).Methods("POST")

	// Layouts
	api.HandleFunc("/layouts", s.handleListLayouts).Methods("GET")
	api.HandleFunc("/layouts/{name}", s.handleGetLayout).Methods("GET")

	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service errors onto HTTP status codes
func respondServiceError(w http.ResponseWriter, err error) {
	respondError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, config.ErrLayoutNotFound),
		errors.Is(err, service.ErrNoResults):
		return http.StatusNotFound
	case errors.Is(err, service.ErrSearchRunning):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, grid.ErrInvalidSize),
		errors.Is(err, grid.ErrOutOfBounds),
		errors.Is(err, grid.ErrInvalidLayout),
		errors.Is(err, config.ErrInvalidLayout),
		errors.Is(err, search.ErrUnknownAlgorithm):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		// A waiting find-path whose request went away or timed out
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody decodes an optional JSON body; an empty body leaves v untouched
func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && err != io.EOF {
		return err
	}
	return nil
}

type positionRequest struct {
	Row *int `json:"row"`
	Col *int `json:"col"`
}

// decodePosition requires both coordinates to be present
func decodePosition(r *http.Request) (int, int, error) {
	var req positionRequest
	if err := decodeBody(r, &req); err != nil {
		return 0, 0, err
	}
	if req.Row == nil || req.Col == nil {
		return 0, 0, errors.New("row and col are required")
	}
	return *req.Row, *req.Col, nil
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LayoutID string `json:"layout_id,omitempty"`
		Size     int    `json:"size,omitempty"`
	}

	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	info, err := s.service.CreateSession(r.Context(), req.LayoutID, req.Size)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, info)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	query := r.URL.Query()
	sortBy := query.Get("sort")    // "created", "accessed" (default)
	order := query.Get("order")    // "asc", "desc" (default: "desc")
	limitStr := query.Get("limit") // number of sessions to return

	if sortBy != "created" {
		sortBy = "accessed"
	}
	if order != "asc" {
		order = "desc"
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		} else {
			ti, tj = sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		}

		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	total := len(sessions)
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(sessions) {
			sessions = sessions[:l]
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Editing Handlers

func (s *Server) handleGetGrid(w http.ResponseWriter, r *http.Request) {
	var algorithm search.Algorithm
	if name := r.URL.Query().Get("algorithm"); name != "" {
		parsed, err := search.ParseAlgorithm(name)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		algorithm = parsed
	}

	snapshot, err := s.service.GetGrid(r.Context(), mux.Vars(r)["id"], algorithm)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleSetStart(w http.ResponseWriter, r *http.Request) {
	row, col, err := decodePosition(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	info, err := s.service.SetStart(r.Context(), mux.Vars(r)["id"], row, col)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleSetEnd(w http.ResponseWriter, r *http.Request) {
	row, col, err := decodePosition(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	info, err := s.service.SetEnd(r.Context(), mux.Vars(r)["id"], row, col)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

// handleWalls toggles a wall, or sets it when "wall" is given
func (s *Server) handleWalls(w http.ResponseWriter, r *http.Request) {
	var req struct {
		positionRequest
		Wall *bool `json:"wall,omitempty"`
	}

	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Row == nil || req.Col == nil {
		respondError(w, http.StatusBadRequest, "row and col are required")
		return
	}

	sessionID := mux.Vars(r)["id"]
	var info *service.SessionInfo
	var err error
	if req.Wall == nil {
		info, err = s.service.ToggleWall(r.Context(), sessionID, *req.Row, *req.Col)
	} else {
		info, err = s.service.SetWall(r.Context(), sessionID, *req.Row, *req.Col, *req.Wall)
	}
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleResize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Size int `json:"size"`
	}

	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	info, err := s.service.Resize(r.Context(), mux.Vars(r)["id"], req.Size)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Speed string `json:"speed"`
	}

	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	info, err := s.service.SetSpeed(r.Context(), mux.Vars(r)["id"], req.Speed)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

// handleClear clears the path (default), the walls, or everything
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Scope string `json:"scope"`
	}

	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sessionID := mux.Vars(r)["id"]
	var info *service.SessionInfo
	var err error
	switch strings.ToLower(req.Scope) {
	case "", "path":
		info, err = s.service.ClearPath(r.Context(), sessionID)
	case "walls":
		info, err = s.service.ClearWalls(r.Context(), sessionID)
	case "all":
		info, err = s.service.ResetGrid(r.Context(), sessionID)
	default:
		respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown scope '%s' (use path, walls or all)", req.Scope))
		return
	}
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

// Search Handlers

// handleFindPath starts a race. Without wait it answers 202 with the running
// race; with wait it answers 200 once both searches stopped.
func (s *Server) handleFindPath(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Wait bool `json:"wait"`
	}

	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sessionID := mux.Vars(r)["id"]
	result, err := s.service.FindPath(r.Context(), sessionID, req.Wait)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if result.Status == service.RaceRunning {
		log.WithFields(log.Fields{"session": sessionID, "run": result.RunID}).Info("[SEARCH] started")
		respondJSON(w, http.StatusAccepted, result)
		return
	}

	fields := log.Fields{"session": sessionID, "run": result.RunID, "status": result.Status, "agree": result.Agree}
	for _, res := range result.Results {
		fields[string(res.Algorithm)] = fmt.Sprintf("%s visited=%d path=%d", res.Status, res.VisitedCount, res.PathLength)
	}
	log.WithFields(fields).Info("[SEARCH] finished")

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.Cancel(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Search cancelled for session %s", sessionID),
	})
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.Results(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleSolve(w http.ResponseWriter, r *http.Request) {
	var req service.SolveRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.Solve(r.Context(), &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Layout Handlers

func (s *Server) handleListLayouts(w http.ResponseWriter, r *http.Request) {
	layouts, err := s.service.ListLayouts(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, layouts)
}

func (s *Server) handleGetLayout(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSuffix(mux.Vars(r)["name"], ".json")

	layout, err := s.service.LoadLayout(r.Context(), name)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, layout)
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	// Verify session exists
	if _, err := s.service.GetSession(r.Context(), sessionID); err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	if s.hub == nil {
		http.Error(w, "WebSocket not available", http.StatusServiceUnavailable)
		return
	}

	s.hub.ServeWS(w, r, sessionID)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
