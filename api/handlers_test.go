package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/swingdesk/swingdesk/agent"
	"github.com/swingdesk/swingdesk/dag"
	"github.com/swingdesk/swingdesk/logger"
	"github.com/swingdesk/swingdesk/observability"
)

type echoAgent struct{}

func (echoAgent) Name() string               { return "echo" }
func (echoAgent) Validate(agent.Input) error { return nil }

func (echoAgent) Run(_ context.Context, in agent.Input) (agent.Output, error) {
	out := agent.Output{"echoed": true}
	for k, v := range in {
		out[k] = v
	}
	return out, nil
}

func testRouter(t *testing.T) (*gin.Engine, *dag.History) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.NewDefault("test")

	reg := dag.NewRegistry()
	reg.MustRegister("echo", func(map[string]any) (agent.Agent, error) {
		return echoAgent{}, nil
	})

	g, err := dag.NewGraph([]dag.NodeSpec{
		{ID: "first", Type: "echo"},
		{ID: "second", Type: "echo", Inputs: map[string]string{"payload": "first"}},
	})
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}

	history := dag.NewHistory(10)
	engine := dag.NewEngine(reg, log, dag.WithHistory(history))

	h := NewHandlers(engine, g, reg, nil, history, "swingdesk", "test", log)
	router := gin.New()
	h.Register(router)
	return router, history
}

func doRequest(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v\nbody: %s", err, w.Body.String())
	}
	return envelope.Data
}

func TestExecuteRunsGraph(t *testing.T) {
	router, history := testRouter(t)

	w := doRequest(t, router, http.MethodPost, "/dag/execute", `{"input": {"symbol": "AAA.NS"}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\nbody: %s", w.Code, w.Body.String())
	}

	data := decodeData(t, w)
	if data["status"] != string(dag.StatusSuccess) {
		t.Fatalf("execution status = %v, want %s", data["status"], dag.StatusSuccess)
	}
	units, ok := data["units"].(map[string]any)
	if !ok || len(units) != 2 {
		t.Fatalf("units = %v, want 2 entries", data["units"])
	}
	if history.Len() != 1 {
		t.Fatalf("history length = %d, want 1", history.Len())
	}
}

func TestExecuteAcceptsEmptyBody(t *testing.T) {
	router, _ := testRouter(t)

	w := doRequest(t, router, http.MethodPost, "/dag/execute", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\nbody: %s", w.Code, w.Body.String())
	}
}

func TestExecuteRejectsMalformedBody(t *testing.T) {
	router, _ := testRouter(t)

	w := doRequest(t, router, http.MethodPost, "/dag/execute", `{"input": nope}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestGraphInfoListsNodesAndWaves(t *testing.T) {
	router, _ := testRouter(t)

	w := doRequest(t, router, http.MethodGet, "/dag/info", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	data := decodeData(t, w)
	nodes, ok := data["nodes"].([]any)
	if !ok || len(nodes) != 2 {
		t.Fatalf("nodes = %v, want 2 entries", data["nodes"])
	}
	waves, ok := data["waves"].([]any)
	if !ok || len(waves) != 2 {
		t.Fatalf("waves = %v, want 2 waves", data["waves"])
	}
}

func TestListExecutions(t *testing.T) {
	router, _ := testRouter(t)

	doRequest(t, router, http.MethodPost, "/dag/execute", "")
	doRequest(t, router, http.MethodPost, "/dag/execute", "")

	w := doRequest(t, router, http.MethodGet, "/executions?limit=1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var envelope struct {
		Data []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data) != 1 {
		t.Fatalf("executions = %d, want 1 after limit", len(envelope.Data))
	}
}

func TestListExecutionsRejectsBadLimit(t *testing.T) {
	router, _ := testRouter(t)

	for _, limit := range []string{"0", "-1", "abc"} {
		w := doRequest(t, router, http.MethodGet, "/executions?limit="+limit, "")
		if w.Code != http.StatusBadRequest {
			t.Fatalf("limit=%s: status = %d, want 400", limit, w.Code)
		}
	}
}

func TestGetExecutionByID(t *testing.T) {
	router, history := testRouter(t)

	doRequest(t, router, http.MethodPost, "/dag/execute", "")
	runs := history.List(1)
	if len(runs) != 1 {
		t.Fatalf("history = %d runs, want 1", len(runs))
	}

	w := doRequest(t, router, http.MethodGet, "/executions/"+runs[0].ID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	data := decodeData(t, w)
	if data["execution_id"] != runs[0].ID {
		t.Fatalf("execution_id = %v, want %s", data["execution_id"], runs[0].ID)
	}
}

func TestGetExecutionNotFound(t *testing.T) {
	router, _ := testRouter(t)

	w := doRequest(t, router, http.MethodGet, "/executions/no-such-run", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestListAgents(t *testing.T) {
	router, _ := testRouter(t)

	w := doRequest(t, router, http.MethodGet, "/agents", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	data := decodeData(t, w)
	types, ok := data["types"].([]any)
	if !ok || len(types) != 1 || types[0] != "echo" {
		t.Fatalf("types = %v, want [echo]", data["types"])
	}
}

func TestListToolsWithoutRegistry(t *testing.T) {
	router, _ := testRouter(t)

	w := doRequest(t, router, http.MethodGet, "/tools", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	data := decodeData(t, w)
	tools, ok := data["tools"].([]any)
	if !ok || len(tools) != 0 {
		t.Fatalf("tools = %v, want empty list", data["tools"])
	}
}

type staticHealth observability.Health

func (s staticHealth) CheckHealth(context.Context) observability.Health {
	return observability.Health(s)
}

func TestHealthReportsComponents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := logger.NewDefault("test")

	reg := dag.NewRegistry()
	g, err := dag.NewGraph(nil)
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	history := dag.NewHistory(1)
	engine := dag.NewEngine(reg, log)

	up := staticHealth{Name: "cache", Status: observability.HealthStatusUp}
	down := staticHealth{Name: "broker", Status: observability.HealthStatusDown}

	h := NewHandlers(engine, g, reg, nil, history, "swingdesk", "test", log, up, down)
	router := gin.New()
	h.Register(router)

	w := doRequest(t, router, http.MethodGet, "/health", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 with a down component", w.Code)
	}
	var sh observability.ServiceHealth
	if err := json.Unmarshal(w.Body.Bytes(), &sh); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if sh.Status != observability.HealthStatusDown {
		t.Fatalf("service status = %s, want down", sh.Status)
	}
	if len(sh.Components) != 2 {
		t.Fatalf("components = %d, want 2", len(sh.Components))
	}
}
