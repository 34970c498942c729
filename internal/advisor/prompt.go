package advisor

import (
	"fmt"
	"strings"

	"stockpulse/internal/domain"
)

const analystInstructions = `You are an equity market analyst writing for a stock dashboard.
Respond with a single JSON object and nothing else.`

// BuildAnalysisPrompt describes the stock and the exact JSON shape expected back.
func BuildAnalysisPrompt(symbol string, price, changePercent float64, news []domain.NewsItem) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Analyze the stock %s.\n", strings.ToUpper(symbol)))
	sb.WriteString(fmt.Sprintf("Current Price: $%.2f\n", price))
	sb.WriteString(fmt.Sprintf("Daily Change: %.2f%%\n", changePercent))
	sb.WriteString("Recent News:\n")
	sb.WriteString(FormatNewsContext(news))
	sb.WriteString(`
Provide a JSON response with:
- summary: A concise 2-sentence market summary.
- sentiment: "bullish", "bearish", or "neutral".
- score: A sentiment score from 1-10 (10 is most bullish).
- insights: An array of 3-4 short, specific bullet points explaining the analysis.
`)
	return sb.String()
}

func FormatNewsContext(news []domain.NewsItem) string {
	if len(news) == 0 {
		return "No recent news.\n"
	}
	var sb strings.Builder
	for _, n := range news {
		sb.WriteString(fmt.Sprintf("- %s: %s\n", n.Title, n.Summary))
	}
	return sb.String()
}
