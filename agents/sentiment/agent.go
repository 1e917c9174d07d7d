package sentiment

import (
	"context"

	"github.com/swingdesk/swingdesk/agent"
	"github.com/swingdesk/swingdesk/llm"
	"github.com/swingdesk/swingdesk/logger"
	"github.com/swingdesk/swingdesk/tools"
	"github.com/swingdesk/swingdesk/validation"
)

// Stock is the subset of the upstream screening result this agent reads.
type Stock struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// Input is the agent's input schema.
type Input struct {
	Stocks []Stock `json:"stocks"`
}

// Output is the agent's output schema.
type Output struct {
	AnalyzedStocks []Analysis `json:"analyzed_stocks"`
	TotalAnalyzed  int        `json:"total_analyzed"`
	PositiveCount  int        `json:"positive_count"`
	NegativeCount  int        `json:"negative_count"`
	NeutralCount   int        `json:"neutral_count"`
}

// Agent collects evidence adaptively per stock and analyzes its sentiment.
type Agent struct {
	collector *Collector
	reason    llm.Client
	log       *logger.Logger
}

// New creates a sentiment agent over the registered evidence sources.
func New(registry *tools.Registry, reason llm.Client, policy Policy, log *logger.Logger) *Agent {
	componentLog := log.WithComponent("sentiment")
	return &Agent{
		collector: NewCollector(registry, reason, policy, log),
		reason:    reason,
		log:       componentLog,
	}
}

// NewFactory returns the factory used by the graph registry.
func NewFactory(registry *tools.Registry, reason llm.Client, policy Policy, log *logger.Logger) agent.Factory {
	return func(_ map[string]any) (agent.Agent, error) {
		return New(registry, reason, policy, log), nil
	}
}

// Name implements agent.Agent.
func (a *Agent) Name() string { return "sentiment" }

// Validate requires a non-empty stocks list.
func (a *Agent) Validate(input agent.Input) error {
	var in Input
	if err := agent.Decode(input, &in); err != nil {
		return err
	}
	v := validation.New()
	v.RequiredSlice("stocks", len(in.Stocks))
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// Run collects evidence and analyzes sentiment for every stock. Stocks with
// no usable evidence or a failed analysis are dropped, not failed.
func (a *Agent) Run(ctx context.Context, input agent.Input) (agent.Output, error) {
	var in Input
	if err := agent.Decode(input, &in); err != nil {
		return nil, err
	}

	a.log.Info("analyzing sentiment", logger.Fields("stocks", len(in.Stocks)))

	out := Output{AnalyzedStocks: []Analysis{}}
	for _, stock := range in.Stocks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if stock.Symbol == "" {
			a.log.Warn("skipping stock with missing symbol")
			continue
		}
		name := stock.Name
		if name == "" {
			name = stock.Symbol
		}

		articles, verdict := a.collector.Collect(ctx, stock.Symbol, name)
		analysis := analyzeSentiment(ctx, a.reason, a.log, stock.Symbol, name, articles, verdict)
		if analysis == nil {
			continue
		}

		out.AnalyzedStocks = append(out.AnalyzedStocks, *analysis)
		switch analysis.OverallSentiment {
		case "positive", "very_positive":
			out.PositiveCount++
		case "negative", "very_negative":
			out.NegativeCount++
		default:
			out.NeutralCount++
		}
	}
	out.TotalAnalyzed = len(out.AnalyzedStocks)

	a.log.Info("sentiment analysis complete", logger.Fields(
		"analyzed", out.TotalAnalyzed,
		"positive", out.PositiveCount,
		"negative", out.NegativeCount,
		"neutral", out.NeutralCount,
	))

	return agent.Encode(out)
}

var _ agent.Agent = (*Agent)(nil)
