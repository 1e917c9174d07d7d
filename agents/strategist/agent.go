package strategist

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/swingdesk/swingdesk/agent"
	"github.com/swingdesk/swingdesk/config"
	"github.com/swingdesk/swingdesk/llm"
	"github.com/swingdesk/swingdesk/logger"
	"github.com/swingdesk/swingdesk/validation"
)

// Input is the agent's input schema: the full outputs of the technical and
// sentiment agents.
type Input struct {
	Technical map[string]any `json:"technical"`
	Sentiment map[string]any `json:"sentiment"`
}

// Decision is one trading decision.
type Decision struct {
	Symbol         string   `json:"symbol"`
	Name           string   `json:"name"`
	Action         string   `json:"action"`
	Confidence     float64  `json:"confidence"`
	Reasoning      string   `json:"reasoning"`
	TechnicalScore float64  `json:"technical_score"`
	SentimentScore float64  `json:"sentiment_score"`
	CombinedScore  float64  `json:"combined_score"`
	Quantity       int      `json:"quantity,omitempty"`
	StopLoss       *float64 `json:"stop_loss,omitempty"`
	TargetPrice    *float64 `json:"target_price,omitempty"`
}

// Output is the agent's output schema.
type Output struct {
	Decisions       []Decision `json:"decisions"`
	TopPick         *Decision  `json:"top_pick,omitempty"`
	OrderExecuted   bool       `json:"order_executed"`
	OrderDetails    *Order     `json:"order_details,omitempty"`
	ExecutionReason string     `json:"execution_reason,omitempty"`
}

// decisionsResponse is the structured response of the decision prompt.
type decisionsResponse struct {
	Decisions []Decision `json:"decisions"`
}

// combined is the per-symbol merge of both analyses fed to the model.
type combined struct {
	Symbol       string         `json:"symbol"`
	Name         string         `json:"name"`
	CurrentPrice float64        `json:"current_price"`
	Technical    map[string]any `json:"technical"`
	Sentiment    map[string]any `json:"sentiment"`
}

// Agent makes the final buy/hold/sell call per stock.
type Agent struct {
	reason llm.Client
	broker Broker
	cfg    config.TradingConfig
	log    *logger.Logger
}

// New creates a strategist agent.
func New(reason llm.Client, broker Broker, cfg config.TradingConfig, log *logger.Logger) *Agent {
	return &Agent{
		reason: reason,
		broker: broker,
		cfg:    cfg,
		log:    log.WithComponent("strategist"),
	}
}

// NewFactory returns the factory used by the graph registry.
func NewFactory(reason llm.Client, broker Broker, cfg config.TradingConfig, log *logger.Logger) agent.Factory {
	return func(_ map[string]any) (agent.Agent, error) {
		return New(reason, broker, cfg, log), nil
	}
}

// Name implements agent.Agent.
func (a *Agent) Name() string { return "strategist" }

// Validate requires both upstream analyses.
func (a *Agent) Validate(input agent.Input) error {
	var in Input
	if err := agent.Decode(input, &in); err != nil {
		return err
	}
	v := validation.New()
	v.Custom(in.Technical != nil, "technical", "technical analysis data is required")
	v.Custom(in.Sentiment != nil, "sentiment", "sentiment analysis data is required")
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// Run merges both analyses per symbol, asks the reasoning model for
// decisions, and executes the top buy when it clears the confidence
// threshold.
func (a *Agent) Run(ctx context.Context, input agent.Input) (agent.Output, error) {
	var in Input
	if err := agent.Decode(input, &in); err != nil {
		return nil, err
	}

	stocks := combineAnalyses(in.Technical, in.Sentiment)
	a.log.Info("making trading decisions", logger.Fields("stocks", len(stocks)))

	out := Output{Decisions: []Decision{}}
	if len(stocks) == 0 {
		a.log.Warn("no stocks to decide on")
		return agent.Encode(out)
	}

	decisions, err := a.decide(ctx, stocks)
	if err != nil {
		a.log.Error("decision reasoning failed", logger.Fields(logger.FieldError, err.Error()))
		return agent.Encode(out)
	}
	out.Decisions = decisions

	buys := make([]Decision, 0, len(decisions))
	for _, d := range decisions {
		if d.Action == "buy" && d.Confidence >= a.cfg.MinConfidence {
			buys = append(buys, d)
		}
	}

	if len(buys) > 0 {
		sort.SliceStable(buys, func(i, j int) bool {
			if buys[i].Confidence != buys[j].Confidence {
				return buys[i].Confidence > buys[j].Confidence
			}
			return buys[i].CombinedScore > buys[j].CombinedScore
		})
		top := buys[0]
		out.TopPick = &top

		a.log.Info("top pick selected", logger.Fields(
			logger.FieldSymbol, top.Symbol,
			"confidence", top.Confidence,
		))

		order, reason := a.executeBuy(ctx, top)
		out.OrderDetails = order
		out.OrderExecuted = order != nil
		out.ExecutionReason = reason
	}

	a.log.Info("strategist complete", logger.Fields(
		"decisions", len(out.Decisions),
		"order_executed", out.OrderExecuted,
	))
	return agent.Encode(out)
}

// executeBuy places the order for the top pick. Returns the order, or nil
// with the reason it was not placed.
func (a *Agent) executeBuy(ctx context.Context, d Decision) (*Order, string) {
	if d.Quantity <= 0 {
		return nil, "order not executed: invalid quantity"
	}
	order, err := a.broker.PlaceOrder(ctx, d.Symbol, d.Quantity, "BUY")
	if err != nil {
		a.log.Error("order placement failed", logger.Fields(
			logger.FieldSymbol, d.Symbol,
			logger.FieldError, err.Error(),
		))
		return nil, fmt.Sprintf("order not executed: %v", err)
	}
	return order, fmt.Sprintf("high confidence (%.2f) buy signal for %s", d.Confidence, d.Symbol)
}

// decide renders the combined analyses into the decision prompt and parses
// the model's decisions.
func (a *Agent) decide(ctx context.Context, stocks []combined) ([]Decision, error) {
	payload, err := json.MarshalIndent(stocks, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("strategist: encode stocks: %w", err)
	}

	prompt := fmt.Sprintf(`You are a senior trading strategist making buy/sell/hold decisions for a swing trading system.

Your task: analyze each stock and make a final trading decision by combining technical and sentiment analysis.

IMPORTANT PRINCIPLES:
1. Only recommend BUY if BOTH technical and sentiment are strongly positive
2. Technical analysis is more reliable for entry timing
3. Sentiment analysis helps validate the decision
4. Be conservative - only high-confidence trades
5. Consider a 1:2 risk-reward ratio

Stocks to analyze:
%s

For each stock provide: action ('buy', 'hold', or 'sell'), confidence (0.0 to 1.0, only recommend buy above %.2f), reasoning, technical_score (0-100), sentiment_score (-1.0 to 1.0), combined_score (0-100), and when buying: quantity, stop_loss, target_price.

Respond in JSON format:
{
    "decisions": [
        {
            "symbol": "RELIANCE.NS",
            "name": "Reliance Industries",
            "action": "buy",
            "confidence": 0.85,
            "reasoning": "Strong bullish technical pattern with positive sentiment",
            "technical_score": 75,
            "sentiment_score": 0.7,
            "combined_score": 72.5,
            "quantity": 10,
            "stop_loss": 2400,
            "target_price": 2600
        }
    ]
}`, payload, a.cfg.MinConfidence)

	var resp decisionsResponse
	if err := llm.CompleteStructured(ctx, a.reason, "", prompt, &resp); err != nil {
		return nil, err
	}
	for i := range resp.Decisions {
		if resp.Decisions[i].Action == "" {
			resp.Decisions[i].Action = "hold"
		}
	}
	return resp.Decisions, nil
}

// combineAnalyses merges the per-stock entries of both analyses by symbol.
// A stock present in only one analysis still gets a decision; the missing
// side defaults to neutral.
func combineAnalyses(technical, sentiment map[string]any) []combined {
	techBySym := stocksBySymbol(technical)
	sentBySym := stocksBySymbol(sentiment)

	symbols := make([]string, 0, len(techBySym)+len(sentBySym))
	seen := make(map[string]struct{})
	for _, m := range []map[string]map[string]any{techBySym, sentBySym} {
		for sym := range m {
			if _, ok := seen[sym]; !ok {
				seen[sym] = struct{}{}
				symbols = append(symbols, sym)
			}
		}
	}
	sort.Strings(symbols)

	out := make([]combined, 0, len(symbols))
	for _, sym := range symbols {
		tech := techBySym[sym]
		sent := sentBySym[sym]

		name, _ := tech["name"].(string)
		if name == "" {
			name, _ = sent["name"].(string)
		}
		if name == "" {
			name = sym
		}
		price, _ := tech["current_price"].(float64)

		out = append(out, combined{
			Symbol:       sym,
			Name:         name,
			CurrentPrice: price,
			Technical: map[string]any{
				"trend":          orDefault(tech["trend"], "neutral"),
				"strength":       orDefault(tech["strength"], 0.0),
				"recommendation": orDefault(tech["recommendation"], "hold"),
				"signals":        orDefault(tech["signals"], []any{}),
			},
			Sentiment: map[string]any{
				"overall_sentiment": orDefault(sent["overall_sentiment"], "neutral"),
				"sentiment_score":   orDefault(sent["sentiment_score"], 0.0),
				"confidence":        orDefault(sent["confidence"], 0.0),
				"recommendation":    orDefault(sent["recommendation"], "hold"),
			},
		})
	}
	return out
}

// stocksBySymbol indexes an upstream output's analyzed_stocks list by symbol.
func stocksBySymbol(output map[string]any) map[string]map[string]any {
	out := make(map[string]map[string]any)
	list, _ := output["analyzed_stocks"].([]any)
	for _, item := range list {
		stock, ok := item.(map[string]any)
		if !ok {
			continue
		}
		sym, _ := stock["symbol"].(string)
		if sym == "" {
			continue
		}
		out[sym] = stock
	}
	return out
}

func orDefault(v, fallback any) any {
	if v == nil {
		return fallback
	}
	return v
}

var _ agent.Agent = (*Agent)(nil)
