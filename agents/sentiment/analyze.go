package sentiment

import (
	"context"
	"fmt"
	"strings"

	"github.com/swingdesk/swingdesk/llm"
	"github.com/swingdesk/swingdesk/logger"
)

// Analysis is the per-stock sentiment result.
type Analysis struct {
	Symbol           string   `json:"symbol"`
	Name             string   `json:"name"`
	NewsCount        int      `json:"news_count"`
	SourcesUsed      []string `json:"sources_used"`
	SummaryPoints    []string `json:"summary_points"`
	OverallSentiment string   `json:"overall_sentiment"`
	SentimentScore   float64  `json:"sentiment_score"`
	Confidence       float64  `json:"confidence"`
	KeyInsights      []string `json:"key_insights"`
	Recommendation   string   `json:"recommendation"`
	// LowConfidence marks results built on evidence that never satisfied the
	// sufficiency policy.
	LowConfidence bool `json:"low_confidence,omitempty"`
}

// sentimentResponse is the structured response of the analysis prompt.
type sentimentResponse struct {
	SummaryPoints    []string `json:"summary_points"`
	OverallSentiment string   `json:"overall_sentiment"`
	SentimentScore   float64  `json:"sentiment_score"`
	Confidence       float64  `json:"confidence"`
	KeyInsights      []string `json:"key_insights"`
	Recommendation   string   `json:"recommendation"`
}

// exhaustedConfidenceCap bounds the confidence of analyses built on
// insufficient evidence.
const exhaustedConfidenceCap = 0.5

// analyzeSentiment asks the reasoning model for a sentiment read over the
// collected evidence. Returns nil when there is nothing to analyze or the
// model response cannot be parsed.
func analyzeSentiment(ctx context.Context, reason llm.Client, log *logger.Logger, symbol, company string, articles []Article, verdict Verdict) *Analysis {
	if len(articles) == 0 {
		log.Warn("no evidence to analyze", logger.Fields(logger.FieldSymbol, symbol))
		return nil
	}

	var resp sentimentResponse
	err := llm.CompleteStructured(ctx, reason, "", sentimentPrompt(symbol, company, articles), &resp)
	if err != nil {
		log.Error("sentiment analysis failed", logger.Fields(
			logger.FieldSymbol, symbol,
			logger.FieldError, err.Error(),
		))
		return nil
	}

	a := &Analysis{
		Symbol:           symbol,
		Name:             company,
		NewsCount:        len(articles),
		SourcesUsed:      sourceNames(articles),
		SummaryPoints:    resp.SummaryPoints,
		OverallSentiment: resp.OverallSentiment,
		SentimentScore:   resp.SentimentScore,
		Confidence:       resp.Confidence,
		KeyInsights:      resp.KeyInsights,
		Recommendation:   resp.Recommendation,
	}
	if a.OverallSentiment == "" {
		a.OverallSentiment = "neutral"
	}
	if a.Recommendation == "" {
		a.Recommendation = "hold"
	}
	if verdict == VerdictExhausted {
		a.LowConfidence = true
		if a.Confidence > exhaustedConfidenceCap {
			a.Confidence = exhaustedConfidenceCap
		}
	}

	log.Info("sentiment analyzed", logger.Fields(
		logger.FieldSymbol, symbol,
		"sentiment", a.OverallSentiment,
		"score", a.SentimentScore,
		"recommendation", a.Recommendation,
	))
	return a
}

// sentimentPrompt renders the evidence into the analysis request.
func sentimentPrompt(symbol, company string, articles []Article) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a financial sentiment analysis expert. Analyze the following news articles and mentions about %s (%s).\n\n", company, symbol)

	for i, a := range articles {
		if i > 0 {
			b.WriteString("\n---\n\n")
		}
		fmt.Fprintf(&b, "Title: %s\n", a.Title)
		if a.Description != "" {
			fmt.Fprintf(&b, "Description: %s\n", a.Description)
		}
		if a.PublishedDate != "" {
			fmt.Fprintf(&b, "Date: %s\n", a.PublishedDate)
		}
		fmt.Fprintf(&b, "Source: %s\n", a.Source)
	}

	b.WriteString(`
Provide:
1. A concise summary in 5-7 bullet points highlighting the most important developments
2. An overall sentiment: 'very_positive', 'positive', 'neutral', 'negative', or 'very_negative'
3. A sentiment score from -1.0 (very negative) to 1.0 (very positive)
4. A confidence level from 0.0 to 1.0
5. Key insights (3-5 points) relevant for investment decisions
6. A recommendation: 'strong_buy', 'buy', 'hold', 'sell', or 'strong_sell'

Format your response as JSON:
{
    "summary_points": ["point 1", "point 2"],
    "overall_sentiment": "positive",
    "sentiment_score": 0.65,
    "confidence": 0.85,
    "key_insights": ["insight 1", "insight 2"],
    "recommendation": "buy"
}`)
	return b.String()
}
