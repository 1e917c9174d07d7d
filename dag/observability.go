package dag

import (
	"context"
	"time"

	"github.com/swingdesk/swingdesk/agent"
	"github.com/swingdesk/swingdesk/logger"
	"github.com/swingdesk/swingdesk/observability"
)

// WithTracing wraps each agent with OpenTelemetry span creation.
// Each invocation creates a span named "{prefix}.{nodeID}".
func WithTracing(prefix string) Middleware {
	return func(nodeID string, a agent.Agent) agent.Agent {
		return &tracingAgent{inner: a, span: prefix + "." + nodeID, nodeID: nodeID}
	}
}

type tracingAgent struct {
	inner  agent.Agent
	span   string
	nodeID string
}

func (t *tracingAgent) Name() string { return t.inner.Name() }
func (t *tracingAgent) Validate(input agent.Input) error { return t.inner.Validate(input) }

func (t *tracingAgent) Run(ctx context.Context, input agent.Input) (agent.Output, error) {
	ctx, span := observability.StartSpan(ctx, t.span)
	defer span.End()

	observability.SetSpanAttribute(ctx, observability.AttrAgent, t.nodeID)

	out, err := t.inner.Run(ctx, input)
	if err != nil {
		observability.SetSpanError(ctx, err)
	}
	return out, err
}

// WithMetrics wraps each agent with run count and duration recording.
func WithMetrics(metrics *observability.Metrics) Middleware {
	return func(nodeID string, a agent.Agent) agent.Agent {
		return &metricsAgent{inner: a, metrics: metrics, nodeID: nodeID}
	}
}

type metricsAgent struct {
	inner   agent.Agent
	metrics *observability.Metrics
	nodeID  string
}

func (m *metricsAgent) Name() string { return m.inner.Name() }
func (m *metricsAgent) Validate(input agent.Input) error { return m.inner.Validate(input) }

func (m *metricsAgent) Run(ctx context.Context, input agent.Input) (agent.Output, error) {
	start := time.Now()
	out, err := m.inner.Run(ctx, input)
	duration := time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
		m.metrics.RecordError(ctx, "run", m.nodeID)
	}
	m.metrics.RecordAgentRun(ctx, m.nodeID, status, duration)

	return out, err
}

// WithRunLogging wraps each agent with invocation logging: node, duration,
// and success/error status.
func WithRunLogging(log *logger.Logger) Middleware {
	return func(nodeID string, a agent.Agent) agent.Agent {
		return &loggingAgent{inner: a, log: log, nodeID: nodeID}
	}
}

type loggingAgent struct {
	inner  agent.Agent
	log    *logger.Logger
	nodeID string
}

func (l *loggingAgent) Name() string { return l.inner.Name() }
func (l *loggingAgent) Validate(input agent.Input) error { return l.inner.Validate(input) }

func (l *loggingAgent) Run(ctx context.Context, input agent.Input) (agent.Output, error) {
	start := time.Now()
	out, err := l.inner.Run(ctx, input)
	duration := time.Since(start)

	fields := logger.Fields(
		logger.FieldAgent, l.nodeID,
		logger.FieldDuration, duration.Milliseconds(),
	)
	if err != nil {
		fields[logger.FieldError] = err.Error()
		l.log.Error("agent run failed", fields)
	} else {
		l.log.Debug("agent run completed", fields)
	}
	return out, err
}
