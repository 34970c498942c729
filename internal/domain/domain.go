package domain

// Sentiment is the directional lean assigned to a stock's short-term outlook.
type Sentiment string

const (
	SentimentBullish Sentiment = "bullish"
	SentimentBearish Sentiment = "bearish"
	SentimentNeutral Sentiment = "neutral"
)

func (s Sentiment) IsValid() bool {
	switch s {
	case SentimentBullish, SentimentBearish, SentimentNeutral:
		return true
	}
	return false
}

// Quote is the normalized market-data snapshot for a symbol.
// A zero Current means the provider did not recognize the symbol.
type Quote struct {
	Symbol        string
	Current       float64
	Change        float64
	ChangePercent float64
	High          float64
	Low           float64
	Open          float64
	PreviousClose float64
}

// Profile carries the company metadata we consume. MarketCapitalization is in millions.
type Profile struct {
	Name                 string
	Exchange             string
	Industry             string
	MarketCapitalization float64
}

// StockSummary is the quote projection rendered by the dashboard.
type StockSummary struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Volume        string  `json:"volume"`
	MarketCap     string  `json:"marketCap"`
}

type NewsItem struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Source  string `json:"source"`
	Time    string `json:"time"`
	URL     string `json:"url"`
}

type ChartPoint struct {
	Time  string  `json:"time"`
	Price float64 `json:"price"`
}

type Analysis struct {
	Symbol    string    `json:"symbol"`
	Summary   string    `json:"summary"`
	Sentiment Sentiment `json:"sentiment"`
	Score     float64   `json:"score"`
	Insights  []string  `json:"insights"`
}

// AggregatedResponse is everything the dashboard needs for one ticker.
type AggregatedResponse struct {
	Stock       StockSummary `json:"stock"`
	Chart       []ChartPoint `json:"chart"`
	IsSynthetic bool         `json:"isSynthetic"`
	News        []NewsItem   `json:"news"`
	Analysis    Analysis     `json:"analysis"`
}
