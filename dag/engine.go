package dag

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/swingdesk/swingdesk/agent"
	"github.com/swingdesk/swingdesk/cache"
	"github.com/swingdesk/swingdesk/errors"
	"github.com/swingdesk/swingdesk/logger"
)

// Middleware wraps an agent before the engine invokes it. Used for logging,
// tracing and metrics wrappers; applied in registration order.
type Middleware func(nodeID string, a agent.Agent) agent.Agent

// Engine drives agents through the resolved waves of a graph. Waves run
// strictly in order; units within a wave run concurrently. Per-unit failures
// never escape the engine: they degrade the overall status and skip
// dependents instead.
type Engine struct {
	// MaxParallel limits concurrent units per wave (0 = unlimited).
	MaxParallel int
	// AgentTimeout bounds a single unit invocation. Zero disables the bound.
	AgentTimeout time.Duration

	registry    *Registry
	store       cache.Store
	history     *History
	middlewares []Middleware
	log         *logger.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithCache backs the engine with a shared result cache.
func WithCache(s cache.Store) EngineOption {
	return func(e *Engine) { e.store = s }
}

// WithHistory records every execution in the given history.
func WithHistory(h *History) EngineOption {
	return func(e *Engine) { e.history = h }
}

// WithMiddleware appends agent wrappers applied to every unit.
func WithMiddleware(mw ...Middleware) EngineOption {
	return func(e *Engine) { e.middlewares = append(e.middlewares, mw...) }
}

// WithMaxParallel limits concurrent units per wave.
func WithMaxParallel(n int) EngineOption {
	return func(e *Engine) { e.MaxParallel = n }
}

// WithAgentTimeout bounds each unit invocation.
func WithAgentTimeout(d time.Duration) EngineOption {
	return func(e *Engine) { e.AgentTimeout = d }
}

// NewEngine creates an engine over the given factory registry.
func NewEngine(reg *Registry, log *logger.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		registry: reg,
		log:      log.WithComponent("engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run resolves the graph's plan, instantiates agents, and executes every
// wave. Configuration errors (unknown type, factory failure) are returned;
// per-unit errors are recorded in the result instead.
func (e *Engine) Run(ctx context.Context, g *Graph, initialInput agent.Input) (*ExecutionResult, error) {
	agents, err := e.registry.Build(g)
	if err != nil {
		return nil, err
	}
	for id, a := range agents {
		for _, mw := range e.middlewares {
			a = mw(id, a)
		}
		agents[id] = a
	}

	result := &ExecutionResult{
		ID:        uuid.New().String(),
		Units:     make(map[string]UnitResult, len(g.Nodes())),
		Waves:     g.Waves(),
		StartedAt: time.Now(),
	}

	e.log.Info("execution started", logger.Fields(
		logger.FieldExecutionID, result.ID,
		"nodes", len(g.Nodes()),
		"waves", len(g.Waves()),
	))

	var mu sync.Mutex // guards result.Units across a wave's goroutines

	for waveIdx, wave := range g.Waves() {
		if err := ctx.Err(); err != nil {
			e.abortRemaining(g, result, waveIdx)
			break
		}
		e.runWave(ctx, g, agents, initialInput, waveIdx, wave, result, &mu)
	}

	result.FinishedAt = time.Now()
	result.Duration = result.FinishedAt.Sub(result.StartedAt)
	result.Status = computeStatus(result.Units)

	e.log.Info("execution finished", logger.Fields(
		logger.FieldExecutionID, result.ID,
		logger.FieldStatus, string(result.Status),
		logger.FieldDuration, result.Duration.Milliseconds(),
	))

	if e.history != nil {
		e.history.Append(result)
	}
	return result, nil
}

// runWave executes every runnable unit of one wave concurrently and blocks
// until all of them reach a terminal status.
func (e *Engine) runWave(ctx context.Context, g *Graph, agents map[string]agent.Agent, initialInput agent.Input, waveIdx int, wave []string, result *ExecutionResult, mu *sync.Mutex) {
	var toRun []string
	for _, id := range wave {
		// A unit whose producer failed or was skipped is skipped, never
		// attempted with missing data.
		if blockedOn := e.blockedProducer(g, result, id); blockedOn != "" {
			result.Units[id] = UnitResult{
				Node:      id,
				Status:    UnitSkipped,
				SkippedOn: blockedOn,
				Wave:      waveIdx,
			}
			e.log.Warn("unit skipped", logger.Fields(
				logger.FieldExecutionID, result.ID,
				logger.FieldAgent, id,
				"skipped_on", blockedOn,
			))
			continue
		}
		toRun = append(toRun, id)
	}
	if len(toRun) == 0 {
		return
	}

	// Inputs are routed before any goroutine starts: mappings only reference
	// earlier waves, and routing up front keeps the results map free of
	// concurrent reads while this wave writes to it.
	inputs := make(map[string]agent.Input, len(toRun))
	for _, id := range toRun {
		input, err := e.routeInput(g, result, id, initialInput)
		if err != nil {
			result.Units[id] = UnitResult{
				Node:      id,
				Status:    UnitFailed,
				ErrorKind: errors.CodeOf(err),
				Error:     err.Error(),
				Wave:      waveIdx,
			}
			continue
		}
		inputs[id] = input
	}

	sem := make(chan struct{}, e.concurrency(len(inputs)))
	var wg sync.WaitGroup
	for _, id := range toRun {
		input, ok := inputs[id]
		if !ok {
			continue
		}
		wg.Add(1)
		go func(nodeID string, in agent.Input) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			ur := e.runUnit(ctx, g, agents[nodeID], result.ID, nodeID, waveIdx, in)
			mu.Lock()
			result.Units[nodeID] = ur
			mu.Unlock()
		}(id, input)
	}
	wg.Wait()
}

// runUnit consults the cache and invokes the agent with the configured
// timeout. The input has already been routed.
func (e *Engine) runUnit(ctx context.Context, g *Graph, a agent.Agent, execID, nodeID string, waveIdx int, input agent.Input) UnitResult {
	start := time.Now()
	ur := UnitResult{Node: nodeID, Wave: waveIdx}

	node, _ := g.Node(nodeID)
	key := ""
	if e.store != nil && !node.NoCache {
		key = cache.GenerateKey("unit:"+node.Type+":"+nodeID, input)
		if cached, ok := cache.GetJSON[agent.Output](ctx, e.store, key); ok {
			ur.Status = UnitSucceeded
			ur.Output = *cached
			ur.CacheHit = true
			ur.Duration = time.Since(start)
			e.log.Debug("unit served from cache", logger.Fields(
				logger.FieldExecutionID, execID,
				logger.FieldAgent, nodeID,
				logger.FieldCacheHit, true,
			))
			return ur
		}
	}

	runCtx := ctx
	cancel := func() {}
	if e.AgentTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, e.AgentTimeout)
	}
	outcome := agent.Execute(runCtx, a, input)
	timedOut := runCtx.Err() == context.DeadlineExceeded
	cancel()

	ur.Duration = time.Since(start)
	if outcome.Status == agent.StatusFailed {
		ur.Status = UnitFailed
		ur.ErrorKind = outcome.ErrorKind
		ur.Error = outcome.Error
		if timedOut {
			timeoutErr := errors.Timeout(nodeID)
			ur.ErrorKind = timeoutErr.Code
			ur.Error = timeoutErr.Message
		}
		e.log.Error("unit failed", logger.Fields(
			logger.FieldExecutionID, execID,
			logger.FieldAgent, nodeID,
			logger.FieldError, ur.Error,
		))
		return ur
	}

	ur.Status = UnitSucceeded
	ur.Output = outcome.Output
	if key != "" {
		cache.SetJSON(ctx, e.store, key, &outcome.Output)
	}
	return ur
}

// routeInput builds the unit's input from producer outputs per the declared
// mapping. A root unit receives the initial input unchanged. Reads of the
// results map need no lock here: producers completed in earlier waves.
func (e *Engine) routeInput(g *Graph, result *ExecutionResult, nodeID string, initialInput agent.Input) (agent.Input, error) {
	refs := g.Inputs(nodeID)
	if len(refs) == 0 {
		return initialInput, nil
	}

	input := make(agent.Input, len(refs))
	for _, ref := range refs {
		producer, ok := result.Units[ref.Producer]
		if !ok || producer.Status != UnitSucceeded {
			return nil, errors.Routing(nodeID, ref.Producer)
		}
		if ref.Output == "" {
			input[ref.Field] = map[string]any(producer.Output)
			continue
		}
		input[ref.Field] = producer.Output[ref.Output]
	}
	return input, nil
}

// blockedProducer returns the first dependency (declaration order) that did
// not succeed, or "" when the unit is runnable.
func (e *Engine) blockedProducer(g *Graph, result *ExecutionResult, nodeID string) string {
	for _, dep := range g.Dependencies(nodeID) {
		ur, ok := result.Units[dep]
		if !ok || ur.Status != UnitSucceeded {
			return dep
		}
	}
	return ""
}

// abortRemaining marks every not-yet-recorded unit skipped after context
// cancellation.
func (e *Engine) abortRemaining(g *Graph, result *ExecutionResult, fromWave int) {
	for i := fromWave; i < len(g.Waves()); i++ {
		for _, id := range g.Waves()[i] {
			if _, ok := result.Units[id]; !ok {
				result.Units[id] = UnitResult{Node: id, Status: UnitSkipped, Wave: i}
			}
		}
	}
}

func (e *Engine) concurrency(waveSize int) int {
	if e.MaxParallel <= 0 || e.MaxParallel > waveSize {
		return waveSize
	}
	return e.MaxParallel
}
