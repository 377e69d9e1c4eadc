package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/pathrace/pathfind/grid"
	"github.com/wricardo/pathrace/pathfind/search"
	"github.com/wricardo/pathrace/pathfind/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			// find_path may wait for a slow race on a large grid
			Timeout: 2 * time.Minute,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Path Race",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Path Race - MCP Interface

This is a thin client that proxies all requests to the REST API server.

Each session holds a square grid with a start (S), an end (E) and walls (#).
find_path races Dijkstra and A* on identical copies of the grid and reports
the visited count and path length of each.

AVAILABLE TOOLS:
- create_session: Create a session from a layout preset or an empty grid
- list_sessions / get_session: Inspect sessions
- grid: Show one algorithm's grid with visited (o) and path (*) marks
- set_start / set_end / toggle_wall: Edit the grid (row and col are 0-based)
- clear_grid: Clear the path, the walls, or everything
- find_path: Run both algorithms (wait=true blocks until they finish)
- cancel_search: Stop a running search
- list_layouts: List layout presets
- solve: Run a search on a grid described inline, without a session
- instructions: Detailed usage notes`),
	)

	c.registerTools()
}

func sessionProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

func cellProperties() map[string]interface{} {
	return map[string]interface{}{
		"session_id": sessionProperty(),
		"row": map[string]interface{}{
			"type":        "integer",
			"description": "Row (0-based, top to bottom)",
		},
		"col": map[string]interface{}{
			"type":        "integer",
			"description": "Column (0-based, left to right)",
		},
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new session from a layout preset, or an empty grid of the given size",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"layout_id": map[string]interface{}{
					"type":        "string",
					"description": "Layout preset to load (optional, see list_layouts)",
				},
				"size": map[string]interface{}{
					"type":        "integer",
					"description": "Grid size between 2 and 100 (optional)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "grid",
		Description: "Show a session grid with visited (o) and path (*) marks for one algorithm",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"algorithm": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"dijkstra", "astar"},
					"description": "Algorithm whose grid to show (default dijkstra)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleGrid)

	// Editing
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "set_start",
		Description: "Move the start node. Ignored when the cell holds the end.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: cellProperties(),
			Required:   []string{"session_id", "row", "col"},
		},
	}, c.handleSetStart)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "set_end",
		Description: "Move the end node. Ignored when the cell holds the start.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: cellProperties(),
			Required:   []string{"session_id", "row", "col"},
		},
	}, c.handleSetEnd)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "toggle_wall",
		Description: "Toggle a wall. Ignored on the start and end nodes.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: cellProperties(),
			Required:   []string{"session_id", "row", "col"},
		},
	}, c.handleToggleWall)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "clear_grid",
		Description: "Clear the search marks (path), the walls, or everything including the endpoints (all)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"scope": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"path", "walls", "all"},
					"description": "What to clear (default path)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleClearGrid)

	// Search
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "find_path",
		Description: "Race Dijkstra and A* on the session grid",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"wait": map[string]interface{}{
					"type":        "boolean",
					"description": "Wait for both searches to finish (default true)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleFindPath)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "cancel_search",
		Description: "Cancel the running search of a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleCancelSearch)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_layouts",
		Description: "List available layout presets",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListLayouts)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "solve",
		Description: "Run a search without a session. Give either rows (S start, E end, # wall, . open) or a layout_id.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"rows": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Grid rows, all of the same length as the number of rows",
				},
				"layout_id": map[string]interface{}{
					"type":        "string",
					"description": "Layout preset to solve instead of rows",
				},
				"algorithm": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"dijkstra", "astar"},
					"description": "Run only one algorithm (default both)",
				},
			},
		},
	}, c.handleSolve)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "instructions",
		Description: "Get detailed usage notes for the path race tools",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// arguments returns the tool arguments, tolerating a missing object
func arguments(request mcp.CallToolRequest) map[string]interface{} {
	if args, ok := request.Params.Arguments.(map[string]interface{}); ok {
		return args
	}
	return map[string]interface{}{}
}

func sessionPath(args map[string]interface{}, suffix string) (string, error) {
	sessionID, _ := args["session_id"].(string)
	if sessionID == "" {
		return "", fmt.Errorf("session_id is required")
	}
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix, nil
}

// cell reads row and col; JSON numbers arrive as float64
func cell(args map[string]interface{}) (map[string]int, error) {
	row, okRow := args["row"].(float64)
	col, okCol := args["col"].(float64)
	if !okRow || !okCol {
		return nil, fmt.Errorf("row and col are required")
	}
	return map[string]int{"row": int(row), "col": int(col)}, nil
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	body := map[string]interface{}{}
	if layoutID, _ := args["layout_id"].(string); layoutID != "" {
		body["layout_id"] = layoutID
	}
	if size, ok := args["size"].(float64); ok && size > 0 {
		body["size"] = int(size)
	}

	var info service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\n\n%s", info.ID, formatSessionInfo(&info))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		status := "idle"
		if s.Running {
			status = "searching"
		}
		fmt.Fprintf(&b, "- %s (Layout: %s, %dx%d, %s, Created: %s)\n",
			s.ID, s.LayoutID, s.Size, s.Size, status, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var info service.SessionInfo
	if err := c.apiCall(ctx, "GET", path, nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&info)), nil
}

func (c *Client) handleGrid(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/grid")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	algorithm, _ := args["algorithm"].(string)
	if algorithm == "" {
		algorithm = string(search.Dijkstra)
	}

	var snapshot grid.Snapshot
	if err := c.apiCall(ctx, "GET", path+"?algorithm="+url.QueryEscape(algorithm), nil, &snapshot); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Grid (%s, %dx%d):\n%s\nVisited: %d, Path nodes: %d\n",
		algorithm, snapshot.Size, snapshot.Size,
		formatRows(renderSnapshot(&snapshot)),
		len(snapshot.Visited), len(snapshot.Path))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) editCell(ctx context.Context, request mcp.CallToolRequest, suffix, verb string) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, suffix)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	body, err := cell(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var info service.SessionInfo
	if err := c.apiCall(ctx, "POST", path, body, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("%s (%d,%d)\n\n%s", verb, body["row"], body["col"], formatSessionInfo(&info))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleSetStart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.editCell(ctx, request, "/start", "Start set to")
}

func (c *Client) handleSetEnd(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.editCell(ctx, request, "/end", "End set to")
}

func (c *Client) handleToggleWall(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.editCell(ctx, request, "/walls", "Wall toggled at")
}

func (c *Client) handleClearGrid(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/clear")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	scope, _ := args["scope"].(string)
	if scope == "" {
		scope = "path"
	}

	var info service.SessionInfo
	if err := c.apiCall(ctx, "POST", path, map[string]string{"scope": scope}, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Cleared %s\n\n%s", scope, formatSessionInfo(&info))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleFindPath(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/find-path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	wait := true
	if w, ok := args["wait"].(bool); ok {
		wait = w
	}

	var race service.RaceResult
	if err := c.apiCall(ctx, "POST", path, map[string]bool{"wait": wait}, &race); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRaceResult(&race)), nil
}

func (c *Client) handleCancelSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/cancel")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var response struct {
		Message string `json:"message"`
	}
	if err := c.apiCall(ctx, "POST", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(response.Message), nil
}

func (c *Client) handleListLayouts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var layouts []service.LayoutInfo
	if err := c.apiCall(ctx, "GET", "/api/layouts", nil, &layouts); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Layouts:\n\n")
	for _, layout := range layouts {
		fmt.Fprintf(&b, "• %s (layout_id: %s)\n  %s\n  Grid: %dx%d, Walls: %d\n\n",
			layout.Name, layout.LayoutID, layout.Description, layout.Size, layout.Size, layout.Walls)
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleSolve(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	req := service.SolveRequest{}
	if layoutID, _ := args["layout_id"].(string); layoutID != "" {
		req.LayoutID = layoutID
	}
	if rawRows, ok := args["rows"].([]interface{}); ok {
		rows := make([]string, 0, len(rawRows))
		for _, r := range rawRows {
			if row, ok := r.(string); ok {
				rows = append(rows, row)
			}
		}
		req.Layout = &grid.Layout{Name: "inline", Size: len(rows), Rows: rows}
	}
	if req.Layout == nil && req.LayoutID == "" {
		return mcp.NewToolResultError("either rows or layout_id is required"), nil
	}
	if algorithm, _ := args["algorithm"].(string); algorithm != "" {
		req.Algorithms = []search.Algorithm{search.Algorithm(algorithm)}
	}

	var result service.SolveResult
	if err := c.apiCall(ctx, "POST", "/api/solve", req, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSolveResult(&result)), nil
}

func (c *Client) handleInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `Path Race - Instructions

GRID:
• The grid is square, 2 to 100 cells wide, addressed by (row, col) from the top-left corner (0,0)
• Movement is up, down, left and right only; every step costs 1
• S - Start, E - End, # - Wall, . - Open
• In search views: o - visited (settled) node, * - node on the reconstructed path

ALGORITHMS:
• dijkstra: expands nodes in order of distance from the start
• astar: expands nodes in order of distance plus Manhattan distance to the end
• Both always find a shortest path when one exists; A* usually visits fewer nodes
• When no path exists both report "failed" with reason "unreachable"

WORKFLOW:
1. create_session (optionally with a layout_id from list_layouts, or a size)
2. Edit with set_start, set_end and toggle_wall
3. find_path to race both algorithms; the result lists visited counts and path lengths
4. grid with algorithm=dijkstra or astar to see which nodes each one explored
5. clear_grid with scope=path before comparing a new configuration (editing clears it too)

NOTES:
• Editing a grid while a search runs cancels the search
• Only one search per session runs at a time; cancel_search stops it
• The path marks exclude the start and end nodes, so a path of length N shows N-1 marks
• solve runs a one-off search on rows you provide, without creating a session`

	return mcp.NewToolResultText(instructions), nil
}
