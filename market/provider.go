// Package market provides historical price data for the screening and
// technical agents. Business logic depends only on the Provider interface;
// the Yahoo binding is the default implementation and tests inject a static
// one.
package market

import (
	"context"
	"time"
)

// Bar is one daily OHLCV candle.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Info holds static metadata for a symbol.
type Info struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// Provider fetches market data for one symbol at a time.
type Provider interface {
	// History returns up to `days` most recent daily bars, oldest first.
	History(ctx context.Context, symbol string, days int) ([]Bar, error)
	// Info returns symbol metadata. A provider without metadata may return
	// the symbol as the name.
	Info(ctx context.Context, symbol string) (Info, error)
}

// Static is a Provider over fixed in-memory data. Used in tests and offline
// runs.
type Static struct {
	Bars  map[string][]Bar
	Names map[string]string
}

// History returns the configured bars for symbol.
func (s *Static) History(_ context.Context, symbol string, days int) ([]Bar, error) {
	bars := s.Bars[symbol]
	if days > 0 && len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	return bars, nil
}

// Info returns the configured name for symbol, falling back to the symbol.
func (s *Static) Info(_ context.Context, symbol string) (Info, error) {
	name := s.Names[symbol]
	if name == "" {
		name = symbol
	}
	return Info{Symbol: symbol, Name: name}, nil
}

var _ Provider = (*Static)(nil)
