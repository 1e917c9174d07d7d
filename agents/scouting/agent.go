// Package scouting screens the Nifty 50 universe on liquidity, volume and
// volatility and shortlists the top candidates for the downstream agents.
package scouting

import (
	"context"

	"github.com/swingdesk/swingdesk/agent"
	"github.com/swingdesk/swingdesk/logger"
	"github.com/swingdesk/swingdesk/market"
	"github.com/swingdesk/swingdesk/validation"
)

const (
	defaultTopN = 10
	maxTopN     = 50
	historyDays = 90
)

// Input is the agent's input schema.
type Input struct {
	// TopN is the number of stocks to shortlist.
	TopN int `json:"top_n"`
}

// Output is the agent's output schema.
type Output struct {
	Stocks          []Result       `json:"stocks"`
	Symbols         []string       `json:"symbols"`
	TotalScreened   int            `json:"total_screened"`
	QualifyingCount int            `json:"qualifying_count"`
	Criteria        map[string]any `json:"criteria"`
}

// Agent screens and shortlists stocks.
type Agent struct {
	provider market.Provider
	universe []string
	log      *logger.Logger
}

// Option configures the Agent.
type Option func(*Agent)

// WithUniverse overrides the screening universe. Used by tests.
func WithUniverse(symbols []string) Option {
	return func(a *Agent) { a.universe = symbols }
}

// New creates a scouting agent over the given data provider.
func New(provider market.Provider, log *logger.Logger, opts ...Option) *Agent {
	a := &Agent{
		provider: provider,
		universe: Universe(),
		log:      log.WithComponent("scouting"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewFactory returns the factory used by the graph registry.
func NewFactory(provider market.Provider, log *logger.Logger) agent.Factory {
	return func(_ map[string]any) (agent.Agent, error) {
		return New(provider, log), nil
	}
}

// Name implements agent.Agent.
func (a *Agent) Name() string { return "scouting" }

// Validate checks top_n is an integer within [1, 50]. A missing top_n is
// valid and falls back to the default.
func (a *Agent) Validate(input agent.Input) error {
	var in Input
	if err := agent.Decode(input, &in); err != nil {
		return err
	}
	v := validation.New()
	if _, ok := input["top_n"]; ok {
		v.Range("top_n", in.TopN, 1, maxTopN)
	}
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// Run screens the universe and shortlists the top candidates.
func (a *Agent) Run(ctx context.Context, input agent.Input) (agent.Output, error) {
	var in Input
	if err := agent.Decode(input, &in); err != nil {
		return nil, err
	}
	if in.TopN == 0 {
		in.TopN = defaultTopN
	}

	a.log.Info("screening universe", logger.Fields("symbols", len(a.universe), "top_n", in.TopN))

	var results []Result
	for _, symbol := range a.universe {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r := a.screenSymbol(ctx, symbol)
		if r != nil {
			results = append(results, *r)
		}
	}

	qualifying := 0
	for _, r := range results {
		if r.MeetsCriteria {
			qualifying++
		}
	}

	picked := shortlist(results, in.TopN)
	symbols := make([]string, len(picked))
	for i, r := range picked {
		symbols[i] = r.Symbol
	}

	a.log.Info("shortlist ready", logger.Fields(
		"screened", len(results),
		"qualifying", qualifying,
		"shortlisted", len(picked),
	))

	return agent.Encode(Output{
		Stocks:          picked,
		Symbols:         symbols,
		TotalScreened:   len(results),
		QualifyingCount: qualifying,
		Criteria: map[string]any{
			"atr_range":        "2-5%",
			"volume_ratio_min": volumeRatioMin,
			"min_avg_volume":   minAvgVolume,
		},
	})
}

// screenSymbol fetches history and screens one symbol. Provider failures are
// logged and the symbol dropped; one bad symbol must not fail the run.
func (a *Agent) screenSymbol(ctx context.Context, symbol string) *Result {
	bars, err := a.provider.History(ctx, symbol, historyDays)
	if err != nil {
		a.log.Warn("history fetch failed, dropping symbol", logger.Fields(
			logger.FieldSymbol, symbol,
			logger.FieldError, err.Error(),
		))
		return nil
	}

	info, err := a.provider.Info(ctx, symbol)
	if err != nil || info.Name == "" {
		info = market.Info{Symbol: symbol, Name: symbol}
	}

	return screen(symbol, info.Name, bars)
}

var _ agent.Agent = (*Agent)(nil)
