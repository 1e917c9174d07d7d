package market

import (
	"context"
	"fmt"
	"time"

	"github.com/swingdesk/swingdesk/errors"
	"github.com/swingdesk/swingdesk/httpclient"
	"github.com/swingdesk/swingdesk/resilience"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

// Yahoo is a Provider backed by the Yahoo Finance chart API.
type Yahoo struct {
	client *httpclient.Client
}

// NewYahoo creates a Yahoo provider with retry and a conservative rate limit.
func NewYahoo() (*Yahoo, error) {
	retry := resilience.DefaultRetryConfig()
	client, err := httpclient.New(httpclient.Config{
		BaseURL: yahooBaseURL,
		Timeout: 30 * time.Second,
		Headers: map[string]string{
			"User-Agent": "swingdesk/1.0",
		},
		Retry:     &retry,
		RateLimit: &resilience.RateLimiterConfig{Name: "yahoo", Rate: 5, Burst: 10},
	})
	if err != nil {
		return nil, err
	}
	return &Yahoo{client: client}, nil
}

// chartResponse mirrors the subset of the chart API payload we read.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol    string `json:"symbol"`
				LongName  string `json:"longName"`
				ShortName string `json:"shortName"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []float64 `json:"open"`
					High   []float64 `json:"high"`
					Low    []float64 `json:"low"`
					Close  []float64 `json:"close"`
					Volume []float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// History fetches daily bars for the trailing window covering `days`.
func (y *Yahoo) History(ctx context.Context, symbol string, days int) ([]Bar, error) {
	resp, err := y.fetchChart(ctx, symbol, days)
	if err != nil {
		return nil, err
	}

	result := resp.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, errors.ExternalService("yahoo", fmt.Errorf("no quote data for %s", symbol))
	}
	q := result.Indicators.Quote[0]

	bars := make([]Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(q.Close) {
			break
		}
		bars = append(bars, Bar{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   at(q.Open, i),
			High:   at(q.High, i),
			Low:    at(q.Low, i),
			Close:  at(q.Close, i),
			Volume: at(q.Volume, i),
		})
	}
	return bars, nil
}

// Info reads symbol metadata off the chart response.
func (y *Yahoo) Info(ctx context.Context, symbol string) (Info, error) {
	resp, err := y.fetchChart(ctx, symbol, 5)
	if err != nil {
		return Info{}, err
	}
	meta := resp.Chart.Result[0].Meta
	name := meta.LongName
	if name == "" {
		name = meta.ShortName
	}
	if name == "" {
		name = symbol
	}
	return Info{Symbol: symbol, Name: name}, nil
}

func (y *Yahoo) fetchChart(ctx context.Context, symbol string, days int) (*chartResponse, error) {
	resp, err := httpclient.Get[chartResponse](y.client, ctx, "/v8/finance/chart/"+symbol,
		httpclient.WithQueryParam("range", rangeFor(days)),
		httpclient.WithQueryParam("interval", "1d"),
	)
	if err != nil {
		return nil, errors.ExternalService("yahoo", err)
	}
	if resp.Chart.Error != nil {
		return nil, errors.ExternalService("yahoo", fmt.Errorf("%s: %s", resp.Chart.Error.Code, resp.Chart.Error.Description))
	}
	if len(resp.Chart.Result) == 0 {
		return nil, errors.ExternalService("yahoo", fmt.Errorf("empty chart result for %s", symbol))
	}
	return &resp, nil
}

// rangeFor maps a day count onto the chart API's named ranges.
func rangeFor(days int) string {
	switch {
	case days <= 5:
		return "5d"
	case days <= 30:
		return "1mo"
	case days <= 90:
		return "3mo"
	case days <= 180:
		return "6mo"
	default:
		return "1y"
	}
}

func at(vals []float64, i int) float64 {
	if i < len(vals) {
		return vals[i]
	}
	return 0
}

var _ Provider = (*Yahoo)(nil)
