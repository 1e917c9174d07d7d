package technical

import (
	"context"

	"github.com/swingdesk/swingdesk/agent"
	"github.com/swingdesk/swingdesk/logger"
	"github.com/swingdesk/swingdesk/market"
	"github.com/swingdesk/swingdesk/validation"
)

// historyDays covers the slow EMA plus signal warmup with margin.
const historyDays = 90

// Stock is the subset of the upstream screening result this agent reads.
type Stock struct {
	Symbol       string  `json:"symbol"`
	Name         string  `json:"name"`
	CurrentPrice float64 `json:"current_price"`
}

// Input is the agent's input schema.
type Input struct {
	Stocks []Stock `json:"stocks"`
}

// Indicators holds the raw indicator values for one stock. Optional values
// are pointers so missing data serializes as null rather than zero.
type Indicators struct {
	RSI           *float64 `json:"rsi"`
	MACD          *float64 `json:"macd"`
	MACDSignal    *float64 `json:"macd_signal"`
	MACDHistogram *float64 `json:"macd_histogram"`
	SMA20         *float64 `json:"sma_20"`
	SMA50         *float64 `json:"sma_50"`
	EMA12         *float64 `json:"ema_12"`
	EMA26         *float64 `json:"ema_26"`
}

// Analysis is the per-stock result.
type Analysis struct {
	Symbol         string     `json:"symbol"`
	Name           string     `json:"name"`
	CurrentPrice   float64    `json:"current_price"`
	Indicators     Indicators `json:"indicators"`
	Trend          string     `json:"trend"`
	Strength       float64    `json:"strength"`
	Signals        []string   `json:"signals"`
	Recommendation string     `json:"recommendation"`
}

// Output is the agent's output schema.
type Output struct {
	AnalyzedStocks []Analysis `json:"analyzed_stocks"`
	TotalAnalyzed  int        `json:"total_analyzed"`
	BullishCount   int        `json:"bullish_count"`
	BearishCount   int        `json:"bearish_count"`
	NeutralCount   int        `json:"neutral_count"`
}

// Agent analyzes the shortlisted stocks.
type Agent struct {
	provider market.Provider
	log      *logger.Logger
}

// New creates a technical agent over the given data provider.
func New(provider market.Provider, log *logger.Logger) *Agent {
	return &Agent{
		provider: provider,
		log:      log.WithComponent("technical"),
	}
}

// NewFactory returns the factory used by the graph registry.
func NewFactory(provider market.Provider, log *logger.Logger) agent.Factory {
	return func(_ map[string]any) (agent.Agent, error) {
		return New(provider, log), nil
	}
}

// Name implements agent.Agent.
func (a *Agent) Name() string { return "technical" }

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

// Run analyzes every stock and tallies the trends. Stocks with missing data
// are dropped, not failed.
func (a *Agent) Run(ctx context.Context, input agent.Input) (agent.Output, error) {
	var in Input
	if err := agent.Decode(input, &in); err != nil {
		return nil, err
	}

	a.log.Info("analyzing shortlist", logger.Fields("stocks", len(in.Stocks)))

	out := Output{AnalyzedStocks: []Analysis{}}
	for _, stock := range in.Stocks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if stock.Symbol == "" || stock.CurrentPrice == 0 {
			a.log.Warn("skipping stock with missing data", logger.Fields(logger.FieldSymbol, stock.Symbol))
			continue
		}
		analysis := a.analyze(ctx, stock)
		if analysis == nil {
			continue
		}
		out.AnalyzedStocks = append(out.AnalyzedStocks, *analysis)
		switch analysis.Trend {
		case "bullish":
			out.BullishCount++
		case "bearish":
			out.BearishCount++
		default:
			out.NeutralCount++
		}
	}
	out.TotalAnalyzed = len(out.AnalyzedStocks)

	a.log.Info("technical analysis complete", logger.Fields(
		"analyzed", out.TotalAnalyzed,
		"bullish", out.BullishCount,
		"bearish", out.BearishCount,
		"neutral", out.NeutralCount,
	))

	return agent.Encode(out)
}

// analyze runs the indicator stack on one stock's history. Returns nil when
// there is not enough history to trust the indicators.
func (a *Agent) analyze(ctx context.Context, stock Stock) *Analysis {
	bars, err := a.provider.History(ctx, stock.Symbol, historyDays)
	if err != nil {
		a.log.Warn("history fetch failed, dropping symbol", logger.Fields(
			logger.FieldSymbol, stock.Symbol,
			logger.FieldError, err.Error(),
		))
		return nil
	}
	if len(bars) < smaLong {
		a.log.Warn("insufficient history, dropping symbol", logger.Fields(
			logger.FieldSymbol, stock.Symbol,
			"bars", len(bars),
		))
		return nil
	}

	prices := make([]float64, len(bars))
	for i, b := range bars {
		prices[i] = b.Close
	}

	var ind Indicators
	rsiVal, haveRSI := rsi(prices, rsiPeriod)
	if haveRSI {
		ind.RSI = &rsiVal
	}
	macdLine, macdSig, macdHist, haveMACD := macd(prices, macdFast, macdSlow, macdSignal)
	if haveMACD {
		ind.MACD = &macdLine
		ind.MACDSignal = &macdSig
		ind.MACDHistogram = &macdHist
	}
	sma20, haveSMA20 := sma(prices, smaShort)
	if haveSMA20 {
		ind.SMA20 = &sma20
	}
	sma50, haveSMA50 := sma(prices, smaLong)
	if haveSMA50 {
		ind.SMA50 = &sma50
	}
	if series := ema(prices, macdFast); len(prices) >= macdFast {
		v := series[len(series)-1]
		ind.EMA12 = &v
	}
	if series := ema(prices, macdSlow); len(prices) >= macdSlow {
		v := series[len(series)-1]
		ind.EMA26 = &v
	}

	trend := trendOf(stock.CurrentPrice, sma20, sma50, haveSMA20 && haveSMA50)
	strength := strengthOf(rsiVal, haveRSI, macdHist, haveMACD, trend)

	a.log.Debug("stock analyzed", logger.Fields(
		logger.FieldSymbol, stock.Symbol,
		"trend", trend,
		"strength", strength,
	))

	return &Analysis{
		Symbol:         stock.Symbol,
		Name:           stock.Name,
		CurrentPrice:   stock.CurrentPrice,
		Indicators:     ind,
		Trend:          trend,
		Strength:       strength,
		Signals:        signalsOf(rsiVal, haveRSI, macdLine, macdSig, haveMACD, trend),
		Recommendation: recommendationOf(strength),
	}
}

var _ agent.Agent = (*Agent)(nil)
