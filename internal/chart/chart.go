// Package chart builds the price series shown next to a quote: either real
// daily closes or a synthetic intraday session anchored to the quote.
package chart

import (
	"math"
	"math/rand/v2"
	"time"

	"stockpulse/internal/domain"

	"github.com/shopspring/decimal"
)

const (
	// SyntheticPoints is the length of a generated session.
	SyntheticPoints = 24
	pointSpacing    = 20 * time.Minute
	minVolatility   = 0.05

	dateLabelLayout = "1/2/2006"
	timeLabelLayout = "03:04 PM"
)

// Rand is the noise source for synthesis. *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// FromCandles maps daily candles to date-labelled closing prices.
func FromCandles(candles []*domain.Candle, loc *time.Location) []domain.ChartPoint {
	if loc == nil {
		loc = time.Local
	}
	points := make([]domain.ChartPoint, 0, len(candles))
	for _, c := range candles {
		points = append(points, domain.ChartPoint{
			Time:  c.OpenTime.In(loc).Format(dateLabelLayout),
			Price: c.Close,
		})
	}
	return points
}

// Synthesizer generates a plausible intraday path for quotes without history.
type Synthesizer struct {
	Rand     Rand
	Now      func() time.Time
	Location *time.Location
}

// NewSynthesizer returns a synthesizer seeded from the runtime source.
func NewSynthesizer(loc *time.Location) *Synthesizer {
	if loc == nil {
		loc = time.Local
	}
	return &Synthesizer{
		Rand:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		Now:      time.Now,
		Location: loc,
	}
}

// Bounds derives the open, close and clamp range used for a quote.
// Missing open falls back to the current price; missing high/low to ±1%
// around the open/close pair.
func Bounds(q domain.Quote) (open, close, high, low float64) {
	close = q.Current
	open = q.Open
	if open == 0 {
		open = close
	}
	high = q.High
	if high == 0 {
		high = math.Max(open, close) * 1.01
	}
	low = q.Low
	if low == 0 {
		low = math.Min(open, close) * 0.99
	}
	return open, close, high, low
}

// Synthesize returns SyntheticPoints prices starting at 09:30 today, spaced
// 20 minutes apart. Each point is the linear open→close trend plus uniform
// noise in ±volatility, clamped into [low, high]. The last point is always
// exactly q.Current.
func (s *Synthesizer) Synthesize(q domain.Quote) []domain.ChartPoint {
	open, close, high, low := Bounds(q)

	volatility := (high - low) / SyntheticPoints
	if volatility == 0 || math.IsNaN(volatility) {
		volatility = minVolatility
	}

	loc := s.Location
	if loc == nil {
		loc = time.Local
	}
	now := s.Now().In(loc)
	start := time.Date(now.Year(), now.Month(), now.Day(), 9, 30, 0, 0, loc)

	points := make([]domain.ChartPoint, SyntheticPoints)
	for i := range points {
		progress := float64(i) / SyntheticPoints
		trend := (close - open) * progress
		noise := (s.Rand.Float64() - 0.5) * volatility * 2

		price := clamp(open+trend+noise, low, high)
		price = clamp(roundCents(price), low, high)

		points[i] = domain.ChartPoint{
			Time:  start.Add(time.Duration(i) * pointSpacing).Format(timeLabelLayout),
			Price: price,
		}
	}
	points[len(points)-1].Price = close

	return points
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func roundCents(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
