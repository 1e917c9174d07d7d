package dag

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/swingdesk/swingdesk/agent"
	"github.com/swingdesk/swingdesk/cache"
	"github.com/swingdesk/swingdesk/errors"
	"github.com/swingdesk/swingdesk/logger"
)

// stubAgent runs an arbitrary function under a fixed name.
type stubAgent struct {
	name string
	run  func(ctx context.Context, in agent.Input) (agent.Output, error)
}

func (s *stubAgent) Name() string               { return s.name }
func (s *stubAgent) Validate(agent.Input) error { return nil }

func (s *stubAgent) Run(ctx context.Context, in agent.Input) (agent.Output, error) {
	return s.run(ctx, in)
}

func stubFactory(run func(ctx context.Context, in agent.Input) (agent.Output, error)) agent.Factory {
	return func(map[string]any) (agent.Agent, error) {
		return &stubAgent{name: "stub", run: run}, nil
	}
}

func okFactory(out agent.Output) agent.Factory {
	return stubFactory(func(context.Context, agent.Input) (agent.Output, error) {
		return out, nil
	})
}

func failFactory(msg string) agent.Factory {
	return stubFactory(func(context.Context, agent.Input) (agent.Output, error) {
		return nil, fmt.Errorf("%s", msg)
	})
}

func testEngine(t *testing.T, reg *Registry, opts ...EngineOption) *Engine {
	t.Helper()
	return NewEngine(reg, logger.NewDefault("test"), opts...)
}

func mustGraph(t *testing.T, nodes []NodeSpec) *Graph {
	t.Helper()
	g, err := NewGraph(nodes)
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	return g
}

func TestRunAllSucceed(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister("ok", okFactory(agent.Output{"v": 1}))

	g := mustGraph(t, []NodeSpec{
		{ID: "a", Type: "ok"},
		{ID: "b", Type: "ok", Inputs: map[string]string{"in": "a"}},
	})

	result, err := testEngine(t, reg).Run(context.Background(), g, agent.Input{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != StatusSuccess {
		t.Fatalf("status = %s, want %s", result.Status, StatusSuccess)
	}
	if result.ID == "" {
		t.Fatal("expected a generated execution ID")
	}
	for _, id := range []string{"a", "b"} {
		if result.Units[id].Status != UnitSucceeded {
			t.Fatalf("unit %s = %s, want succeeded", id, result.Units[id].Status)
		}
	}
	if result.Units["a"].Wave != 0 || result.Units["b"].Wave != 1 {
		t.Fatalf("waves = %d, %d; want 0, 1", result.Units["a"].Wave, result.Units["b"].Wave)
	}
}

func TestRunDiamondFailureIsolation(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister("ok", okFactory(agent.Output{"out": "fine"}))
	reg.MustRegister("boom", failFactory("deliberate failure"))

	g := mustGraph(t, []NodeSpec{
		{ID: "a", Type: "ok"},
		{ID: "b", Type: "boom", Inputs: map[string]string{"in": "a"}},
		{ID: "c", Type: "ok", Inputs: map[string]string{"in": "a"}},
		{ID: "d", Type: "ok", Inputs: map[string]string{"left": "b", "right": "c"}},
	})

	result, err := testEngine(t, reg).Run(context.Background(), g, agent.Input{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Status != StatusPartial {
		t.Fatalf("status = %s, want %s", result.Status, StatusPartial)
	}
	if result.Units["b"].Status != UnitFailed {
		t.Fatalf("b = %s, want failed", result.Units["b"].Status)
	}
	// The sibling branch is untouched by b's failure.
	if result.Units["c"].Status != UnitSucceeded {
		t.Fatalf("c = %s, want succeeded", result.Units["c"].Status)
	}
	d := result.Units["d"]
	if d.Status != UnitSkipped || d.SkippedOn != "b" {
		t.Fatalf("d = %s (skipped_on %q), want skipped on b", d.Status, d.SkippedOn)
	}
}

func TestRunPipelineProducesDecisionPerSymbol(t *testing.T) {
	// The full pipeline shape: a screener shortlists top-N symbols, two
	// parallel analyzers each receive the shortlist, and a final unit emits
	// one decision per symbol.
	reg := NewRegistry()
	reg.MustRegister("screen", stubFactory(func(_ context.Context, in agent.Input) (agent.Output, error) {
		topN, _ := in["top_n"].(int)
		universe := []string{"AAA.NS", "BBB.NS", "CCC.NS", "DDD.NS"}
		return agent.Output{"symbols": universe[:topN]}, nil
	}))
	reg.MustRegister("trend", stubFactory(func(_ context.Context, in agent.Input) (agent.Output, error) {
		symbols, _ := in["symbols"].([]string)
		ratings := make(map[string]string, len(symbols))
		for _, s := range symbols {
			ratings[s] = "uptrend"
		}
		return agent.Output{"ratings": ratings, "seen": len(symbols)}, nil
	}))
	reg.MustRegister("buzz", stubFactory(func(_ context.Context, in agent.Input) (agent.Output, error) {
		symbols, _ := in["symbols"].([]string)
		tone := make(map[string]string, len(symbols))
		for _, s := range symbols {
			tone[s] = "positive"
		}
		return agent.Output{"tone": tone, "seen": len(symbols)}, nil
	}))
	reg.MustRegister("decide", stubFactory(func(_ context.Context, in agent.Input) (agent.Output, error) {
		trend, _ := in["trend"].(map[string]any)
		buzz, _ := in["buzz"].(map[string]any)
		ratings, _ := trend["ratings"].(map[string]string)
		tone, _ := buzz["tone"].(map[string]string)
		decisions := make(map[string]string, len(ratings))
		for sym, r := range ratings {
			if r == "uptrend" && tone[sym] == "positive" {
				decisions[sym] = "buy"
			} else {
				decisions[sym] = "hold"
			}
		}
		return agent.Output{"decisions": decisions}, nil
	}))

	g := mustGraph(t, []NodeSpec{
		{ID: "screen", Type: "screen"},
		{ID: "trend", Type: "trend", Inputs: map[string]string{"symbols": "screen.symbols"}},
		{ID: "buzz", Type: "buzz", Inputs: map[string]string{"symbols": "screen.symbols"}},
		{ID: "decide", Type: "decide", Inputs: map[string]string{"trend": "trend", "buzz": "buzz"}},
	})

	result, err := testEngine(t, reg).Run(context.Background(), g, agent.Input{"top_n": 3})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != StatusSuccess {
		t.Fatalf("status = %s, want %s", result.Status, StatusSuccess)
	}
	for id, wave := range map[string]int{"screen": 0, "trend": 1, "buzz": 1, "decide": 2} {
		if result.Units[id].Wave != wave {
			t.Fatalf("unit %s ran in wave %d, want %d", id, result.Units[id].Wave, wave)
		}
	}
	for _, id := range []string{"trend", "buzz"} {
		if seen, _ := result.Units[id].Output["seen"].(int); seen != 3 {
			t.Fatalf("unit %s saw %v symbols, want 3", id, result.Units[id].Output["seen"])
		}
	}

	decisions, _ := result.Units["decide"].Output["decisions"].(map[string]string)
	if len(decisions) != 3 {
		t.Fatalf("decisions = %v, want one per shortlisted symbol", decisions)
	}
	for _, sym := range []string{"AAA.NS", "BBB.NS", "CCC.NS"} {
		if decisions[sym] != "buy" {
			t.Fatalf("decision for %s = %q, want buy", sym, decisions[sym])
		}
	}
	if _, ok := decisions["DDD.NS"]; ok {
		t.Fatal("unscreened symbol must not reach the decision stage")
	}
}

func TestRunAllFailed(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister("boom", failFactory("down"))

	g := mustGraph(t, []NodeSpec{{ID: "a", Type: "boom"}})

	result, err := testEngine(t, reg).Run(context.Background(), g, agent.Input{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != StatusFailure {
		t.Fatalf("status = %s, want %s", result.Status, StatusFailure)
	}
}

func TestRunWaveConcurrency(t *testing.T) {
	// Both wave-1 units must be in flight at once: each blocks until the
	// other has started.
	started := make(chan struct{}, 2)
	release := make(chan struct{})
	var timedOut atomic.Bool

	blocking := stubFactory(func(context.Context, agent.Input) (agent.Output, error) {
		started <- struct{}{}
		select {
		case <-release:
		case <-time.After(5 * time.Second):
			timedOut.Store(true)
		}
		return agent.Output{}, nil
	})

	go func() {
		<-started
		<-started
		close(release)
	}()

	reg := NewRegistry()
	reg.MustRegister("block", blocking)

	g := mustGraph(t, []NodeSpec{
		{ID: "a", Type: "block"},
		{ID: "b", Type: "block"},
	})

	result, err := testEngine(t, reg).Run(context.Background(), g, agent.Input{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if timedOut.Load() {
		t.Fatal("wave units did not run concurrently")
	}
	if result.Status != StatusSuccess {
		t.Fatalf("status = %s, want %s", result.Status, StatusSuccess)
	}
}

func TestRunMaxParallelBoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int64

	counting := stubFactory(func(context.Context, agent.Input) (agent.Output, error) {
		cur := inFlight.Add(1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return agent.Output{}, nil
	})

	reg := NewRegistry()
	reg.MustRegister("count", counting)

	g := mustGraph(t, []NodeSpec{
		{ID: "a", Type: "count"},
		{ID: "b", Type: "count"},
		{ID: "c", Type: "count"},
		{ID: "d", Type: "count"},
	})

	_, err := testEngine(t, reg, WithMaxParallel(1)).Run(context.Background(), g, agent.Input{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := peak.Load(); got != 1 {
		t.Fatalf("peak concurrency = %d, want 1", got)
	}
}

func TestRunCacheHitOnSecondRun(t *testing.T) {
	var calls atomic.Int64
	counted := stubFactory(func(context.Context, agent.Input) (agent.Output, error) {
		calls.Add(1)
		return agent.Output{"v": "cached"}, nil
	})

	reg := NewRegistry()
	reg.MustRegister("counted", counted)
	g := mustGraph(t, []NodeSpec{{ID: "a", Type: "counted"}})

	e := testEngine(t, reg, WithCache(cache.NewMemory(time.Hour)))

	first, err := e.Run(context.Background(), g, agent.Input{"seed": 1})
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if first.Units["a"].CacheHit {
		t.Fatal("first run must not be a cache hit")
	}

	second, err := e.Run(context.Background(), g, agent.Input{"seed": 1})
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if !second.Units["a"].CacheHit {
		t.Fatal("second run with identical input must hit the cache")
	}
	if second.Units["a"].Output["v"] != "cached" {
		t.Fatalf("cached output = %v, want cached", second.Units["a"].Output["v"])
	}
	if calls.Load() != 1 {
		t.Fatalf("agent ran %d times, want 1", calls.Load())
	}
}

func TestRunDifferentInputMissesCache(t *testing.T) {
	var calls atomic.Int64
	counted := stubFactory(func(context.Context, agent.Input) (agent.Output, error) {
		calls.Add(1)
		return agent.Output{}, nil
	})

	reg := NewRegistry()
	reg.MustRegister("counted", counted)
	g := mustGraph(t, []NodeSpec{{ID: "a", Type: "counted"}})

	e := testEngine(t, reg, WithCache(cache.NewMemory(time.Hour)))
	if _, err := e.Run(context.Background(), g, agent.Input{"seed": 1}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := e.Run(context.Background(), g, agent.Input{"seed": 2}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("agent ran %d times, want 2", calls.Load())
	}
}

func TestRunNoCacheNodeAlwaysExecutes(t *testing.T) {
	var calls atomic.Int64
	counted := stubFactory(func(context.Context, agent.Input) (agent.Output, error) {
		calls.Add(1)
		return agent.Output{}, nil
	})

	reg := NewRegistry()
	reg.MustRegister("counted", counted)
	g := mustGraph(t, []NodeSpec{{ID: "a", Type: "counted", NoCache: true}})

	e := testEngine(t, reg, WithCache(cache.NewMemory(time.Hour)))
	for i := 0; i < 2; i++ {
		result, err := e.Run(context.Background(), g, agent.Input{})
		if err != nil {
			t.Fatalf("Run %d: %v", i, err)
		}
		if result.Units["a"].CacheHit {
			t.Fatalf("run %d: no_cache unit must never hit the cache", i)
		}
	}
	if calls.Load() != 2 {
		t.Fatalf("agent ran %d times, want 2", calls.Load())
	}
}

func TestRunAgentTimeout(t *testing.T) {
	slow := stubFactory(func(ctx context.Context, _ agent.Input) (agent.Output, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
			return agent.Output{}, nil
		}
	})

	reg := NewRegistry()
	reg.MustRegister("slow", slow)
	g := mustGraph(t, []NodeSpec{{ID: "a", Type: "slow"}})

	result, err := testEngine(t, reg, WithAgentTimeout(20*time.Millisecond)).Run(context.Background(), g, agent.Input{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	a := result.Units["a"]
	if a.Status != UnitFailed {
		t.Fatalf("status = %s, want failed", a.Status)
	}
	if a.ErrorKind != errors.ErrCodeTimeout {
		t.Fatalf("error kind = %s, want %s", a.ErrorKind, errors.ErrCodeTimeout)
	}
}

func TestRunRoutesFieldAndWholeOutput(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister("producer", okFactory(agent.Output{"x": 42.0, "y": "extra"}))

	var gotField, gotWhole agent.Input
	reg.MustRegister("field", stubFactory(func(_ context.Context, in agent.Input) (agent.Output, error) {
		gotField = in
		return agent.Output{}, nil
	}))
	reg.MustRegister("whole", stubFactory(func(_ context.Context, in agent.Input) (agent.Output, error) {
		gotWhole = in
		return agent.Output{}, nil
	}))

	g := mustGraph(t, []NodeSpec{
		{ID: "p", Type: "producer"},
		{ID: "f", Type: "field", Inputs: map[string]string{"val": "p.x"}},
		{ID: "w", Type: "whole", Inputs: map[string]string{"all": "p"}},
	})

	if _, err := testEngine(t, reg).Run(context.Background(), g, agent.Input{}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if gotField["val"] != 42.0 {
		t.Fatalf("field route = %v, want 42", gotField["val"])
	}
	all, ok := gotWhole["all"].(map[string]any)
	if !ok || all["x"] != 42.0 || all["y"] != "extra" {
		t.Fatalf("whole route = %v, want the full producer output", gotWhole["all"])
	}
}

func TestRunRootReceivesInitialInput(t *testing.T) {
	var got agent.Input
	reg := NewRegistry()
	reg.MustRegister("root", stubFactory(func(_ context.Context, in agent.Input) (agent.Output, error) {
		got = in
		return agent.Output{}, nil
	}))

	g := mustGraph(t, []NodeSpec{{ID: "a", Type: "root"}})
	initial := agent.Input{"top_n": 5}
	if _, err := testEngine(t, reg).Run(context.Background(), g, initial); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got["top_n"] != 5 {
		t.Fatalf("root input = %v, want the initial input", got)
	}
}

func TestRunUnknownTypeIsConfigurationError(t *testing.T) {
	reg := NewRegistry()
	g := mustGraph(t, []NodeSpec{{ID: "a", Type: "ghost"}})

	_, err := testEngine(t, reg).Run(context.Background(), g, agent.Input{})
	assertCode(t, err, errors.ErrCodeValidation)
}

func TestRunCancelledContextSkipsEverything(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister("ok", okFactory(agent.Output{}))

	g := mustGraph(t, []NodeSpec{
		{ID: "a", Type: "ok"},
		{ID: "b", Type: "ok", Inputs: map[string]string{"in": "a"}},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := testEngine(t, reg).Run(ctx, g, agent.Input{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, id := range []string{"a", "b"} {
		if result.Units[id].Status != UnitSkipped {
			t.Fatalf("unit %s = %s, want skipped after cancellation", id, result.Units[id].Status)
		}
	}
	if result.Status != StatusFailure {
		t.Fatalf("status = %s, want %s", result.Status, StatusFailure)
	}
}

func TestRunPanicRecoveredAsFailure(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister("panicky", stubFactory(func(context.Context, agent.Input) (agent.Output, error) {
		panic("boom")
	}))

	g := mustGraph(t, []NodeSpec{{ID: "a", Type: "panicky"}})

	result, err := testEngine(t, reg).Run(context.Background(), g, agent.Input{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	a := result.Units["a"]
	if a.Status != UnitFailed {
		t.Fatalf("status = %s, want failed", a.Status)
	}
	if a.ErrorKind != errors.ErrCodeAgentExecution {
		t.Fatalf("error kind = %s, want %s", a.ErrorKind, errors.ErrCodeAgentExecution)
	}
}

func TestRunRecordsHistory(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister("ok", okFactory(agent.Output{}))
	g := mustGraph(t, []NodeSpec{{ID: "a", Type: "ok"}})

	h := NewHistory(5)
	e := testEngine(t, reg, WithHistory(h))

	result, err := e.Run(context.Background(), g, agent.Input{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	stored, err := h.Get(result.ID)
	if err != nil {
		t.Fatalf("history Get: %v", err)
	}
	if stored.Status != result.Status {
		t.Fatalf("stored status = %s, want %s", stored.Status, result.Status)
	}
}

func TestRunMiddlewareWrapsEveryUnit(t *testing.T) {
	var wrapped atomic.Int64
	mw := func(nodeID string, a agent.Agent) agent.Agent {
		wrapped.Add(1)
		return a
	}

	reg := NewRegistry()
	reg.MustRegister("ok", okFactory(agent.Output{}))
	g := mustGraph(t, []NodeSpec{
		{ID: "a", Type: "ok"},
		{ID: "b", Type: "ok"},
	})

	if _, err := testEngine(t, reg, WithMiddleware(mw)).Run(context.Background(), g, agent.Input{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if wrapped.Load() != 2 {
		t.Fatalf("middleware applied %d times, want 2", wrapped.Load())
	}
}
