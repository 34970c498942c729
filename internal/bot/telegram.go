package bot

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"stockpulse/internal/domain"

	tele "gopkg.in/telebot.v3"
)

const commandTimeout = 20 * time.Second

type StockLookup interface {
	Aggregate(ctx context.Context, ticker string) (*domain.AggregatedResponse, error)
}

// StartTelegramBot starts long polling in the background and returns the bot
// so the caller can stop it. It returns nil when token is empty.
func StartTelegramBot(token string, quotes StockLookup) *tele.Bot {
	if token == "" {
		log.Println("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return nil
	}
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		log.Printf("failed to create Telegram bot: %v", err)
		return nil
	}

	registerCommands(b, quotes)

	log.Println("Telegram bot started")
	go b.Start()
	return b
}

type commandRegistrar interface {
	Handle(endpoint interface{}, h tele.HandlerFunc, m ...tele.MiddlewareFunc)
}

func registerCommands(b commandRegistrar, quotes StockLookup) {
	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})
	b.Handle("/stock", stockCommand(quotes))
	b.Handle("/news", newsCommand(quotes))
}

func stockCommand(quotes StockLookup) tele.HandlerFunc {
	return func(c tele.Context) error {
		resp, symbol, err := lookup(c, quotes, "/stock")
		if symbol == "" {
			return c.Send("Usage: /stock AAPL")
		}
		if err != nil {
			return c.Send(fmt.Sprintf("Error fetching %s: %v", symbol, err))
		}
		return c.Send(FormatStock(resp))
	}
}

func newsCommand(quotes StockLookup) tele.HandlerFunc {
	return func(c tele.Context) error {
		resp, symbol, err := lookup(c, quotes, "/news")
		if symbol == "" {
			return c.Send("Usage: /news AAPL")
		}
		if err != nil {
			return c.Send(fmt.Sprintf("Error fetching news for %s: %v", symbol, err))
		}
		return c.Send(FormatNews(resp.Stock.Symbol, resp.News), tele.NoPreview)
	}
}

func lookup(c tele.Context, quotes StockLookup, command string) (*domain.AggregatedResponse, string, error) {
	args := c.Args()
	if len(args) == 0 {
		return nil, "", nil
	}
	symbol := strings.ToUpper(strings.TrimSpace(args[0]))
	if symbol == "" {
		return nil, "", nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	resp, err := quotes.Aggregate(ctx, symbol)
	if err != nil {
		log.Printf("telegram %s %s: %v", command, symbol, err)
	}
	return resp, symbol, err
}

// FormatStock renders the quote and analysis as a plain-text message.
func FormatStock(resp *domain.AggregatedResponse) string {
	s := resp.Stock
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s $%.2f (%+.2f, %+.2f%%)\n", s.Symbol, s.Price, s.Change, s.ChangePercent)
	fmt.Fprintf(&sb, "Day range: $%.2f - $%.2f\n", s.Low, s.High)
	fmt.Fprintf(&sb, "Market cap: %s\n", s.MarketCap)
	fmt.Fprintf(&sb, "Sentiment: %s (%.0f/10)\n", resp.Analysis.Sentiment, resp.Analysis.Score)
	sb.WriteString(resp.Analysis.Summary)
	for _, in := range resp.Analysis.Insights {
		fmt.Fprintf(&sb, "\n• %s", in)
	}
	if resp.IsSynthetic {
		sb.WriteString("\n\nChart: simulated intraday session (no daily history available)")
	}
	return sb.String()
}

func FormatNews(symbol string, news []domain.NewsItem) string {
	if len(news) == 0 {
		return fmt.Sprintf("No recent news for %s.", symbol)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Latest news for %s:", symbol)
	for _, n := range news {
		fmt.Fprintf(&sb, "\n\n%s (%s, %s)\n%s", n.Title, n.Source, n.Time, n.URL)
	}
	return sb.String()
}
