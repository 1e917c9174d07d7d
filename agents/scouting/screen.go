package scouting

import (
	"fmt"
	"math"
	"sort"

	"github.com/swingdesk/swingdesk/market"
)

// Screening thresholds. ATR percentage must sit in a swing-friendly band,
// recent volume must not have dried up, and the stock must be liquid.
const (
	atrMinPct      = 2.0
	atrMaxPct      = 5.0
	atrSweetSpot   = 3.5
	volumeRatioMin = 0.8
	minAvgVolume   = 100_000
	atrPeriod      = 14
)

// Result is the screening outcome for one symbol.
type Result struct {
	Symbol          string   `json:"symbol"`
	Name            string   `json:"name"`
	CurrentPrice    float64  `json:"current_price"`
	ATRPercentage   float64  `json:"atr_percentage"`
	AvgVolume       float64  `json:"avg_volume"`
	RecentVolume    float64  `json:"recent_volume"`
	VolumeRatio     float64  `json:"volume_ratio"`
	MeetsCriteria   bool     `json:"meets_criteria"`
	CriteriaDetails []string `json:"criteria_details"`
	Score           float64  `json:"score,omitempty"`
}

// atr computes the Average True Range over the final `period` bars.
// Returns 0 when there is not enough data.
func atr(bars []market.Bar, period int) float64 {
	if len(bars) < period+1 {
		return 0
	}
	var trs []float64
	for i := 1; i < len(bars); i++ {
		tr := math.Max(bars[i].High-bars[i].Low,
			math.Max(math.Abs(bars[i].High-bars[i-1].Close), math.Abs(bars[i].Low-bars[i-1].Close)))
		trs = append(trs, tr)
	}
	sum := 0.0
	for _, tr := range trs[len(trs)-period:] {
		sum += tr
	}
	return sum / float64(period)
}

// atrPercentage is ATR relative to the latest close, in percent.
func atrPercentage(bars []market.Bar, period int) float64 {
	a := atr(bars, period)
	if a == 0 || len(bars) == 0 {
		return 0
	}
	last := bars[len(bars)-1].Close
	if last == 0 {
		return 0
	}
	return a / last * 100
}

// liquidity returns average volume, recent (5-day) volume, and their ratio.
func liquidity(bars []market.Bar) (avg, recent, ratio float64) {
	if len(bars) == 0 {
		return 0, 0, 0
	}
	for _, b := range bars {
		avg += b.Volume
	}
	avg /= float64(len(bars))

	n := 5
	if len(bars) < n {
		n = len(bars)
	}
	for _, b := range bars[len(bars)-n:] {
		recent += b.Volume
	}
	recent /= float64(n)

	if avg > 0 {
		ratio = recent / avg
	}
	return avg, recent, ratio
}

// screen evaluates one symbol's bars against the criteria. Returns nil when
// there is not enough history to judge.
func screen(symbol, name string, bars []market.Bar) *Result {
	if len(bars) < 20 {
		return nil
	}

	atrPct := atrPercentage(bars, atrPeriod)
	avg, recent, ratio := liquidity(bars)

	r := &Result{
		Symbol:        symbol,
		Name:          name,
		CurrentPrice:  bars[len(bars)-1].Close,
		ATRPercentage: atrPct,
		AvgVolume:     avg,
		RecentVolume:  recent,
		VolumeRatio:   ratio,
		MeetsCriteria: true,
	}

	switch {
	case atrPct == 0:
		r.MeetsCriteria = false
		r.CriteriaDetails = append(r.CriteriaDetails, "ATR calculation failed")
	case atrPct < atrMinPct:
		r.MeetsCriteria = false
		r.CriteriaDetails = append(r.CriteriaDetails, fmt.Sprintf("ATR too low: %.2f%%", atrPct))
	case atrPct > atrMaxPct:
		r.MeetsCriteria = false
		r.CriteriaDetails = append(r.CriteriaDetails, fmt.Sprintf("ATR too high: %.2f%%", atrPct))
	default:
		r.CriteriaDetails = append(r.CriteriaDetails, fmt.Sprintf("ATR OK: %.2f%%", atrPct))
	}

	if ratio < volumeRatioMin {
		r.MeetsCriteria = false
		r.CriteriaDetails = append(r.CriteriaDetails, fmt.Sprintf("Volume ratio low: %.2f", ratio))
	} else {
		r.CriteriaDetails = append(r.CriteriaDetails, fmt.Sprintf("Volume ratio OK: %.2f", ratio))
	}

	if avg < minAvgVolume {
		r.MeetsCriteria = false
		r.CriteriaDetails = append(r.CriteriaDetails, fmt.Sprintf("Avg volume too low: %.0f", avg))
	} else {
		r.CriteriaDetails = append(r.CriteriaDetails, fmt.Sprintf("Avg volume OK: %.0f", avg))
	}

	return r
}

// score ranks a stock when not enough candidates meet every criterion.
// Prefers ATR near the sweet spot, active recent volume, and liquidity.
func score(r *Result) float64 {
	s := 0.0
	if r.ATRPercentage > 0 {
		if r.ATRPercentage >= atrMinPct && r.ATRPercentage <= atrMaxPct {
			s += 50.0 - math.Abs(r.ATRPercentage-atrSweetSpot)*10.0
		} else {
			s -= 20.0
		}
	}
	s += r.VolumeRatio * 30.0
	s += math.Min(r.AvgVolume/1_000_000.0, 1.0) * 20.0
	return s
}

// shortlist returns the top n candidates. Qualifying stocks are preferred,
// ordered by volume ratio then ATR proximity to the sweet spot; when fewer
// than n qualify, the remainder is filled by score.
func shortlist(results []Result, n int) []Result {
	var qualifying []Result
	for _, r := range results {
		if r.MeetsCriteria {
			qualifying = append(qualifying, r)
		}
	}

	if len(qualifying) >= n {
		sort.SliceStable(qualifying, func(i, j int) bool {
			if qualifying[i].VolumeRatio != qualifying[j].VolumeRatio {
				return qualifying[i].VolumeRatio > qualifying[j].VolumeRatio
			}
			return math.Abs(qualifying[i].ATRPercentage-atrSweetSpot) < math.Abs(qualifying[j].ATRPercentage-atrSweetSpot)
		})
		return qualifying[:n]
	}

	scored := make([]Result, len(results))
	copy(scored, results)
	for i := range scored {
		scored[i].Score = score(&scored[i])
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > n {
		scored = scored[:n]
	}
	return scored
}
