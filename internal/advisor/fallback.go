package advisor

import (
	"fmt"
	"math"
	"strings"

	"stockpulse/internal/domain"
)

// Fallback is the deterministic analysis used whenever the generative path has
// nothing usable. Only the sign of the daily change matters.
func Fallback(symbol string, changePercent float64) domain.Analysis {
	symbol = strings.ToUpper(symbol)
	bullish := changePercent > 0

	direction, outlook := "down", "cautious"
	trend, mood := "downward", "pessimistic"
	sentiment, score := domain.SentimentNeutral, 5.0
	if bullish {
		direction, outlook = "up", "positive"
		trend, mood = "upward", "optimistic"
		sentiment, score = domain.SentimentBullish, 7.0
	}

	return domain.Analysis{
		Symbol: symbol,
		Summary: fmt.Sprintf(
			"%s is currently trading %s by %.2f%%. The technical indicators suggest a %s outlook in the short term. (Synthetic analysis: configure a generative provider for AI commentary.)",
			symbol, direction, math.Abs(changePercent), outlook,
		),
		Sentiment: sentiment,
		Score:     score,
		Insights: []string{
			fmt.Sprintf("Price trend is %s today.", trend),
			fmt.Sprintf("Market sentiment appears %s.", mood),
			"Short term volatility is observing normal ranges.",
		},
	}
}
