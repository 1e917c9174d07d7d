package api

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/swingdesk/swingdesk/agent"
	"github.com/swingdesk/swingdesk/dag"
	"github.com/swingdesk/swingdesk/errors"
	"github.com/swingdesk/swingdesk/logger"
	"github.com/swingdesk/swingdesk/observability"
	"github.com/swingdesk/swingdesk/tools"
)

// Handlers wires the engine, graph and history into HTTP endpoints.
type Handlers struct {
	engine   *dag.Engine
	graph    *dag.Graph
	registry *dag.Registry
	tools    *tools.Registry
	history  *dag.History
	health   []observability.HealthChecker
	service  string
	version  string
	log      *logger.Logger
}

// NewHandlers creates the handler set. tools and health are optional.
func NewHandlers(
	engine *dag.Engine,
	graph *dag.Graph,
	registry *dag.Registry,
	toolReg *tools.Registry,
	history *dag.History,
	service, version string,
	log *logger.Logger,
	health ...observability.HealthChecker,
) *Handlers {
	return &Handlers{
		engine:   engine,
		graph:    graph,
		registry: registry,
		tools:    toolReg,
		history:  history,
		health:   health,
		service:  service,
		version:  version,
		log:      log.WithComponent("api.handlers"),
	}
}

// Register mounts all routes on the engine.
func (h *Handlers) Register(r *gin.Engine) {
	r.POST("/dag/execute", h.Execute)
	r.GET("/dag/info", h.GraphInfo)
	r.GET("/executions", h.ListExecutions)
	r.GET("/executions/:id", h.GetExecution)
	r.GET("/agents", h.ListAgents)
	r.GET("/tools", h.ListTools)
	r.GET("/health", h.Health)
}

// executeRequest is the body of POST /dag/execute.
type executeRequest struct {
	Input map[string]any `json:"input"`
}

// Execute runs the full graph and returns the execution result.
func (h *Handlers) Execute(c *gin.Context) {
	var req executeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondWithError(c, errors.Validation("request body must be JSON with an optional 'input' object"))
			return
		}
	}

	result, err := h.engine.Run(c.Request.Context(), h.graph, agent.Input(req.Input))
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, result)
}

// nodeInfo is one node in the GET /dag/info response.
type nodeInfo struct {
	ID           string            `json:"id"`
	Type         string            `json:"type"`
	Inputs       map[string]string `json:"inputs,omitempty"`
	Dependencies []string          `json:"dependencies,omitempty"`
	NoCache      bool              `json:"no_cache,omitempty"`
}

// GraphInfo describes the configured graph: nodes and resolved waves.
func (h *Handlers) GraphInfo(c *gin.Context) {
	nodes := make([]nodeInfo, 0, len(h.graph.Nodes()))
	for _, n := range h.graph.Nodes() {
		nodes = append(nodes, nodeInfo{
			ID:           n.ID,
			Type:         n.Type,
			Inputs:       n.Inputs,
			Dependencies: h.graph.Dependencies(n.ID),
			NoCache:      n.NoCache,
		})
	}
	RespondOK(c, gin.H{
		"nodes": nodes,
		"waves": h.graph.Waves(),
	})
}

// ListExecutions returns recent executions, newest first. The optional
// `limit` query bounds the count.
func (h *Handlers) ListExecutions(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			RespondWithError(c, errors.Validation("limit must be a positive integer"))
			return
		}
		limit = n
	}
	RespondOK(c, h.history.List(limit))
}

// GetExecution returns one execution by ID.
func (h *Handlers) GetExecution(c *gin.Context) {
	result, err := h.history.Get(c.Param("id"))
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, result)
}

// ListAgents returns the registered agent types.
func (h *Handlers) ListAgents(c *gin.Context) {
	RespondOK(c, gin.H{"types": h.registry.Types()})
}

// ListTools returns the evidence tool descriptors.
func (h *Handlers) ListTools(c *gin.Context) {
	if h.tools == nil {
		RespondOK(c, gin.H{"tools": []any{}})
		return
	}
	RespondOK(c, gin.H{"tools": h.tools.List()})
}

// Health aggregates component health into the service health report.
func (h *Handlers) Health(c *gin.Context) {
	sh := observability.NewServiceHealth(h.service, h.version)
	for _, checker := range h.health {
		sh.AddComponent(checker.CheckHealth(c.Request.Context()))
	}
	status := 200
	if sh.Status == observability.HealthStatusDown {
		status = 503
	}
	c.JSON(status, sh)
}
