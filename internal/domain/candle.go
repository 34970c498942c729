package domain

import "time"

// Candle is one daily OHLCV bar from the market-data provider.
type Candle struct {
	Symbol   string    `json:"symbol"`
	OpenTime time.Time `json:"open_time"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
}

// Article is a company news story as reported by the provider.
// ID is zero when the provider omitted it.
type Article struct {
	ID        int64
	Headline  string
	Summary   string
	Source    string
	URL       string
	Published time.Time
}
