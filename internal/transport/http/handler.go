package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/cybrty/redops/domain"
	"github.com/cybrty/redops/internal/service"
	"github.com/cybrty/redops/internal/tools"
)

// Handler holds the HTTP handlers over the assessment facade.
type Handler struct {
	service *service.Service
}

// NewHandler creates a handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{service: svc}
}

// RegisterRoutes registers all assessment routes.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/execute-pentest", h.ExecutePentest)
	e.POST("/execute-phase", h.ExecutePhase)
	e.POST("/decide-next-task", h.DecideNextTask)
	e.POST("/execute-tool", h.ExecuteTool)
	e.GET("/session-summary/:session_id", h.SessionSummary)
	e.GET("/sessions/recent", h.RecentSessions)
	e.GET("/agent-actions", h.AgentActions)
	e.GET("/command-executions", h.CommandExecutions)
	e.GET("/tool-results", h.ToolResults)
	e.GET("/database-stats", h.DatabaseStats)
	e.GET("/tools", h.Tools)
	e.GET("/agents", h.Agents)
	e.GET("/health", h.Health)
}

// ExecutePentestRequest is the request to run a full assessment.
type ExecutePentestRequest struct {
	Target string       `json:"target"`
	Scope  string       `json:"scope"`
	Params tools.Params `json:"params,omitempty"`
}

// ExecutePentest runs every phase against a target.
// POST /execute-pentest
func (h *Handler) ExecutePentest(c echo.Context) error {
	ctx := c.Request().Context()

	var req ExecutePentestRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Target == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "target is required"})
	}

	summary, err := h.service.ExecuteFullPentest(ctx, req.Target, req.Scope, req.Params)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, summary)
}

// ExecutePhaseRequest is the request to run a single phase.
type ExecutePhaseRequest struct {
	Target    string       `json:"target"`
	Phase     domain.Phase `json:"phase"`
	SessionID string       `json:"session_id,omitempty"`
	Force     bool         `json:"force,omitempty"`
	Params    tools.Params `json:"params,omitempty"`
}

// ExecutePhase runs one phase against a target.
// POST /execute-phase
func (h *Handler) ExecutePhase(c echo.Context) error {
	ctx := c.Request().Context()

	var req ExecutePhaseRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Target == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "target is required"})
	}
	if req.Phase == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "phase is required"})
	}

	result, err := h.service.ExecuteSinglePhase(ctx, req.Target, req.Phase, req.SessionID, req.Force, req.Params)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, result)
}

// DecideRequest is the request for a task recommendation.
type DecideRequest struct {
	Target    string           `json:"target"`
	AgentRole domain.AgentRole `json:"agent_role"`
}

// DecideNextTask recommends the next tool for a role without executing it.
// POST /decide-next-task
func (h *Handler) DecideNextTask(c echo.Context) error {
	ctx := c.Request().Context()

	var req DecideRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Target == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "target is required"})
	}
	if req.AgentRole == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "agent_role is required"})
	}

	decision, err := h.service.DecideNextTask(ctx, req.Target, req.AgentRole)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, decision)
}

// ExecuteToolRequest is the request for a direct tool execution.
type ExecuteToolRequest struct {
	Tool   string       `json:"tool"`
	Target string       `json:"target"`
	Params tools.Params `json:"params,omitempty"`
}

// ExecuteTool runs one tool directly through the gateway.
// POST /execute-tool
func (h *Handler) ExecuteTool(c echo.Context) error {
	ctx := c.Request().Context()

	var req ExecuteToolRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Tool == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "tool is required"})
	}
	if req.Target == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "target is required"})
	}

	result, err := h.service.ExecuteTool(ctx, req.Tool, req.Target, req.Params)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, result)
}

// SessionSummary returns the read-only summary for one session.
// GET /session-summary/:session_id
func (h *Handler) SessionSummary(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID := c.Param("session_id")

	summary, err := h.service.GetSessionSummary(ctx, sessionID)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, summary)
}

// RecentSessions lists recently created sessions.
// GET /sessions/recent
func (h *Handler) RecentSessions(c echo.Context) error {
	limit := queryInt(c, "limit", 10)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"sessions": h.service.GetRecentSessions(limit),
	})
}

// AgentActions queries persisted decision records.
// GET /agent-actions
func (h *Handler) AgentActions(c echo.Context) error {
	ctx := c.Request().Context()

	filter := domain.DecisionFilter{
		SessionID: c.QueryParam("session_id"),
		AgentRole: domain.AgentRole(c.QueryParam("agent_role")),
		Target:    c.QueryParam("target"),
	}
	actions, err := h.service.GetAgentActions(ctx, filter, queryInt(c, "limit", 50))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"actions": actions})
}

// CommandExecutions queries persisted command executions.
// GET /command-executions
func (h *Handler) CommandExecutions(c echo.Context) error {
	ctx := c.Request().Context()

	filter := domain.CommandFilter{
		SessionID: c.QueryParam("session_id"),
		Tool:      c.QueryParam("tool"),
		Target:    c.QueryParam("target"),
	}
	executions, err := h.service.GetCommandExecutions(ctx, filter, queryInt(c, "limit", 50))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"executions": executions})
}

// ToolResults queries persisted tool results.
// GET /tool-results
func (h *Handler) ToolResults(c echo.Context) error {
	ctx := c.Request().Context()

	filter := domain.ToolResultFilter{
		SessionID: c.QueryParam("session_id"),
		ToolName:  c.QueryParam("tool"),
		Target:    c.QueryParam("target"),
	}
	results, err := h.service.GetToolResults(ctx, filter, queryInt(c, "limit", 50))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"results": results})
}

// DatabaseStats reports audit log record counts.
// GET /database-stats
func (h *Handler) DatabaseStats(c echo.Context) error {
	ctx := c.Request().Context()

	stats, err := h.service.GetDatabaseStats(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, stats)
}

// Tools lists registered tool adapters and availability.
// GET /tools
func (h *Handler) Tools(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{"tools": h.service.ListTools()})
}

// Agents lists the agent role capability table.
// GET /agents
func (h *Handler) Agents(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{"agents": h.service.ListAgents()})
}

// Health reports service health: store reachability and adapter counts.
// GET /health
func (h *Handler) Health(c echo.Context) error {
	ctx := c.Request().Context()

	status := "ok"
	stats, err := h.service.GetDatabaseStats(ctx)
	if err != nil {
		status = "degraded"
	}

	installed := 0
	toolInfos := h.service.ListTools()
	for _, info := range toolInfos {
		if info.Installed {
			installed++
		}
	}

	resp := map[string]interface{}{
		"status":          status,
		"tools_total":     len(toolInfos),
		"tools_installed": installed,
	}
	if stats != nil {
		resp["store"] = stats
	}
	return c.JSON(http.StatusOK, resp)
}

func queryInt(c echo.Context, key string, def int) int {
	if raw := c.QueryParam(key); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return def
}
