package scouting

import (
	"context"
	"testing"

	"github.com/swingdesk/swingdesk/agent"
	"github.com/swingdesk/swingdesk/logger"
	"github.com/swingdesk/swingdesk/market"
)

func testProvider() *market.Static {
	return &market.Static{
		Bars: map[string][]market.Bar{
			"AAA.NS": makeBars(60, 100, 3.5, 500_000),
			"BBB.NS": makeBars(60, 200, 14.0, 800_000),
			"CCC.NS": makeBars(60, 50, 0.5, 900_000),
		},
		Names: map[string]string{
			"AAA.NS": "Alpha Industries",
			"BBB.NS": "Beta Motors",
			"CCC.NS": "Gamma Pharma",
		},
	}
}

func testAgent(t *testing.T) *Agent {
	t.Helper()
	log := logger.NewDefault("test")
	return New(testProvider(), log, WithUniverse([]string{"AAA.NS", "BBB.NS", "CCC.NS"}))
}

func TestValidateTopNRange(t *testing.T) {
	a := testAgent(t)

	if err := a.Validate(agent.Input{}); err != nil {
		t.Fatalf("missing top_n should be valid, got %v", err)
	}
	if err := a.Validate(agent.Input{"top_n": 10}); err != nil {
		t.Fatalf("top_n=10 should be valid, got %v", err)
	}
	if err := a.Validate(agent.Input{"top_n": 0}); err == nil {
		t.Fatal("top_n=0 should be rejected")
	}
	if err := a.Validate(agent.Input{"top_n": 51}); err == nil {
		t.Fatal("top_n=51 should be rejected")
	}
}

func TestRunScreensAndShortlists(t *testing.T) {
	a := testAgent(t)

	raw, err := a.Run(context.Background(), agent.Input{"top_n": 2})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	var out Output
	if err := agent.Decode(agent.Input(raw), &out); err != nil {
		t.Fatalf("decode output: %v", err)
	}

	if out.TotalScreened != 3 {
		t.Fatalf("total_screened = %d, want 3", out.TotalScreened)
	}
	// Only AAA sits inside the ATR band; BBB is too volatile, CCC too quiet.
	if out.QualifyingCount != 1 {
		t.Fatalf("qualifying_count = %d, want 1", out.QualifyingCount)
	}
	if len(out.Stocks) != 2 || len(out.Symbols) != 2 {
		t.Fatalf("shortlist sizes = %d stocks, %d symbols; want 2 each", len(out.Stocks), len(out.Symbols))
	}
	if out.Symbols[0] != "AAA.NS" {
		t.Fatalf("top shortlisted = %s, want AAA.NS", out.Symbols[0])
	}
	if out.Stocks[0].Name != "Alpha Industries" {
		t.Fatalf("name = %q, want provider metadata", out.Stocks[0].Name)
	}
}

func TestRunDefaultsTopN(t *testing.T) {
	a := testAgent(t)

	raw, err := a.Run(context.Background(), agent.Input{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	var out Output
	if err := agent.Decode(agent.Input(raw), &out); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	// Universe is smaller than the default shortlist size, so everything
	// screened comes back.
	if len(out.Stocks) != 3 {
		t.Fatalf("len(stocks) = %d, want 3", len(out.Stocks))
	}
}
