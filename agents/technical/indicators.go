// Package technical computes momentum and trend indicators for shortlisted
// stocks and turns them into signals, a strength score and a recommendation.
package technical

import (
	"math"
	"strings"
)

const (
	rsiPeriod  = 14
	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9
	smaShort   = 20
	smaLong    = 50
)

// rsi computes the Relative Strength Index over the final `period` price
// changes using simple averages. ok is false when there is not enough data
// or the window had no movement.
func rsi(prices []float64, period int) (float64, bool) {
	if len(prices) < period+1 {
		return 0, false
	}
	var gains, losses float64
	for i := len(prices) - period; i < len(prices); i++ {
		delta := prices[i] - prices[i-1]
		if delta > 0 {
			gains += delta
		} else {
			losses -= delta
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		if avgGain == 0 {
			return 0, false
		}
		return 100, true
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), true
}

// ema computes an exponential moving average series seeded with the first
// value, smoothing factor 2/(span+1).
func ema(values []float64, span int) []float64 {
	if len(values) == 0 {
		return nil
	}
	alpha := 2.0 / (float64(span) + 1.0)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// macd returns the MACD line, signal line and histogram at the latest bar.
// ok is false when the series is too short for the slow EMA plus signal.
func macd(prices []float64, fast, slow, signal int) (line, sig, hist float64, ok bool) {
	if len(prices) < slow+signal {
		return 0, 0, 0, false
	}
	emaFast := ema(prices, fast)
	emaSlow := ema(prices, slow)
	diff := make([]float64, len(prices))
	for i := range prices {
		diff[i] = emaFast[i] - emaSlow[i]
	}
	sigSeries := ema(diff, signal)
	last := len(prices) - 1
	return diff[last], sigSeries[last], diff[last] - sigSeries[last], true
}

// sma computes the simple moving average of the final `period` values.
func sma(prices []float64, period int) (float64, bool) {
	if len(prices) < period {
		return 0, false
	}
	sum := 0.0
	for _, p := range prices[len(prices)-period:] {
		sum += p
	}
	return sum / float64(period), true
}

// trendOf classifies the trend from the price's position against both SMAs.
func trendOf(price float64, sma20, sma50 float64, haveSMAs bool) string {
	if !haveSMAs {
		return "neutral"
	}
	if price > sma20 && sma20 > sma50 {
		return "bullish"
	}
	if price < sma20 && sma20 < sma50 {
		return "bearish"
	}
	return "neutral"
}

// signalsOf renders human-readable signals from the indicator values.
func signalsOf(rsiVal float64, haveRSI bool, macdLine, macdSig float64, haveMACD bool, trend string) []string {
	var signals []string
	if haveRSI {
		switch {
		case rsiVal < 30:
			signals = append(signals, "RSI Oversold (<30)")
		case rsiVal > 70:
			signals = append(signals, "RSI Overbought (>70)")
		case rsiVal >= 40 && rsiVal <= 60:
			signals = append(signals, "RSI Neutral")
		}
	}
	if haveMACD {
		if macdLine > macdSig {
			signals = append(signals, "MACD Bullish (above signal)")
		} else {
			signals = append(signals, "MACD Bearish (below signal)")
		}
	}
	signals = append(signals, "Trend: "+capitalize(trend))
	return signals
}

// strengthOf scores the setup 0-100 from a neutral 50. Oversold RSI and a
// positive MACD histogram push up, overbought and a bearish trend push down.
func strengthOf(rsiVal float64, haveRSI bool, hist float64, haveMACD bool, trend string) float64 {
	score := 50.0
	if haveRSI {
		switch {
		case rsiVal < 30:
			score += 20
		case rsiVal > 70:
			score -= 20
		case rsiVal >= 40 && rsiVal <= 60:
			score += 5
		}
	}
	if haveMACD {
		if hist > 0 {
			score += math.Min(15, hist*10)
		} else {
			score -= math.Min(15, -hist*10)
		}
	}
	switch trend {
	case "bullish":
		score += 15
	case "bearish":
		score -= 15
	}
	return math.Max(0, math.Min(100, score))
}

// recommendationOf buckets the strength score.
func recommendationOf(strength float64) string {
	switch {
	case strength >= 70:
		return "strong_buy"
	case strength >= 55:
		return "buy"
	case strength >= 45:
		return "hold"
	case strength >= 30:
		return "sell"
	default:
		return "strong_sell"
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
