package strategist

import (
	"context"
	"testing"

	"github.com/swingdesk/swingdesk/agent"
	"github.com/swingdesk/swingdesk/config"
	"github.com/swingdesk/swingdesk/logger"
)

type fakeLLM func(system, user string) (string, error)

func (f fakeLLM) Complete(_ context.Context, system, user string) (string, error) {
	return f(system, user)
}

func staticLLM(response string) fakeLLM {
	return func(string, string) (string, error) { return response, nil }
}

func tradingConfig() config.TradingConfig {
	return config.TradingConfig{MinConfidence: 0.75, PaperTrading: true, MaxPositionSize: 0.1}
}

func strategistInput() agent.Input {
	return agent.Input{
		"technical": map[string]any{
			"analyzed_stocks": []any{
				map[string]any{
					"symbol": "AAA.NS", "name": "Alpha", "current_price": 100.0,
					"trend": "bullish", "strength": 80.0, "recommendation": "strong_buy",
				},
				map[string]any{
					"symbol": "BBB.NS", "name": "Beta", "current_price": 200.0,
					"trend": "neutral", "strength": 50.0, "recommendation": "hold",
				},
			},
		},
		"sentiment": map[string]any{
			"analyzed_stocks": []any{
				map[string]any{
					"symbol": "AAA.NS", "name": "Alpha",
					"overall_sentiment": "positive", "sentiment_score": 0.7,
					"confidence": 0.9, "recommendation": "buy",
				},
			},
		},
	}
}

func TestValidateRequiresBothAnalyses(t *testing.T) {
	a := New(staticLLM("{}"), NewPaperBroker(logger.NewDefault("test")), tradingConfig(), logger.NewDefault("test"))

	if err := a.Validate(agent.Input{"technical": map[string]any{}}); err == nil {
		t.Fatal("missing sentiment should be rejected")
	}
	if err := a.Validate(agent.Input{"sentiment": map[string]any{}}); err == nil {
		t.Fatal("missing technical should be rejected")
	}
	if err := a.Validate(strategistInput()); err != nil {
		t.Fatalf("valid input rejected: %v", err)
	}
}

func TestRunExecutesTopPick(t *testing.T) {
	response := `{
		"decisions": [
			{"symbol": "AAA.NS", "name": "Alpha", "action": "buy", "confidence": 0.85,
			 "reasoning": "strong setup", "combined_score": 80, "quantity": 10},
			{"symbol": "BBB.NS", "name": "Beta", "action": "hold", "confidence": 0.5,
			 "reasoning": "mixed signals", "combined_score": 50}
		]
	}`
	a := New(staticLLM(response), NewPaperBroker(logger.NewDefault("test")), tradingConfig(), logger.NewDefault("test"))

	raw, err := a.Run(context.Background(), strategistInput())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	var out Output
	if err := agent.Decode(agent.Input(raw), &out); err != nil {
		t.Fatalf("decode output: %v", err)
	}

	if len(out.Decisions) != 2 {
		t.Fatalf("decisions = %d, want 2", len(out.Decisions))
	}
	if out.TopPick == nil || out.TopPick.Symbol != "AAA.NS" {
		t.Fatalf("top_pick = %+v, want AAA.NS", out.TopPick)
	}
	if !out.OrderExecuted {
		t.Fatal("expected order to be executed")
	}
	if out.OrderDetails == nil || out.OrderDetails.OrderID != "PAPER_AAA.NS_10" {
		t.Fatalf("order_details = %+v, want order PAPER_AAA.NS_10", out.OrderDetails)
	}
}

func TestRunPicksHighestConfidenceBuy(t *testing.T) {
	response := `{
		"decisions": [
			{"symbol": "AAA.NS", "action": "buy", "confidence": 0.80, "combined_score": 90, "quantity": 5},
			{"symbol": "BBB.NS", "action": "buy", "confidence": 0.90, "combined_score": 70, "quantity": 5},
			{"symbol": "CCC.NS", "action": "buy", "confidence": 0.90, "combined_score": 85, "quantity": 5}
		]
	}`
	a := New(staticLLM(response), NewPaperBroker(logger.NewDefault("test")), tradingConfig(), logger.NewDefault("test"))

	raw, err := a.Run(context.Background(), strategistInput())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	var out Output
	if err := agent.Decode(agent.Input(raw), &out); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	// Ties on confidence break on combined score.
	if out.TopPick == nil || out.TopPick.Symbol != "CCC.NS" {
		t.Fatalf("top_pick = %+v, want CCC.NS", out.TopPick)
	}
}

func TestRunSkipsLowConfidenceBuys(t *testing.T) {
	response := `{
		"decisions": [
			{"symbol": "AAA.NS", "action": "buy", "confidence": 0.6, "combined_score": 80, "quantity": 10}
		]
	}`
	a := New(staticLLM(response), NewPaperBroker(logger.NewDefault("test")), tradingConfig(), logger.NewDefault("test"))

	raw, err := a.Run(context.Background(), strategistInput())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	var out Output
	if err := agent.Decode(agent.Input(raw), &out); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if out.TopPick != nil {
		t.Fatalf("top_pick = %+v, want none below the confidence threshold", out.TopPick)
	}
	if out.OrderExecuted {
		t.Fatal("no order should be executed below the confidence threshold")
	}
}

func TestRunReportsUnexecutableOrder(t *testing.T) {
	// A buy decision without a quantity cannot be placed.
	response := `{
		"decisions": [
			{"symbol": "AAA.NS", "action": "buy", "confidence": 0.9, "combined_score": 80}
		]
	}`
	a := New(staticLLM(response), NewPaperBroker(logger.NewDefault("test")), tradingConfig(), logger.NewDefault("test"))

	raw, err := a.Run(context.Background(), strategistInput())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	var out Output
	if err := agent.Decode(agent.Input(raw), &out); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if out.TopPick == nil {
		t.Fatal("expected a top pick")
	}
	if out.OrderExecuted {
		t.Fatal("order must not execute without a quantity")
	}
	if out.ExecutionReason == "" {
		t.Fatal("expected an execution reason explaining the skip")
	}
}

func TestCombineAnalysesMergesBySymbol(t *testing.T) {
	in := strategistInput()
	stocks := combineAnalyses(in["technical"].(map[string]any), in["sentiment"].(map[string]any))

	if len(stocks) != 2 {
		t.Fatalf("combined = %d, want 2", len(stocks))
	}
	// Sorted by symbol.
	if stocks[0].Symbol != "AAA.NS" || stocks[1].Symbol != "BBB.NS" {
		t.Fatalf("order = %s, %s; want AAA.NS, BBB.NS", stocks[0].Symbol, stocks[1].Symbol)
	}
	if stocks[0].Technical["trend"] != "bullish" {
		t.Fatalf("technical trend = %v, want bullish", stocks[0].Technical["trend"])
	}
	if stocks[0].Sentiment["overall_sentiment"] != "positive" {
		t.Fatalf("sentiment = %v, want positive", stocks[0].Sentiment["overall_sentiment"])
	}
	// BBB has no sentiment entry; the missing side defaults to neutral.
	if stocks[1].Sentiment["overall_sentiment"] != "neutral" {
		t.Fatalf("missing sentiment = %v, want neutral", stocks[1].Sentiment["overall_sentiment"])
	}
}
