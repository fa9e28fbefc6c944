package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"coinpulse/internal/domain"
	"coinpulse/internal/job"
	"coinpulse/pkg/logger"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

const headlineCount = 5

type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

type MarketLookup interface {
	FetchMarketSnapshot(ctx context.Context, symbol string) (domain.MarketSnapshot, error)
}

type FeedSource interface {
	Snapshot() job.FeedSnapshot
	Subscribe() (<-chan job.FeedSnapshot, func())
}

var newBot = func(pref tele.Settings) (*tele.Bot, error) { return tele.NewBot(pref) }

// StartTelegramBot serves /ping, /price and /news and, when chatID is set,
// pushes High-impact headlines to that chat. It does nothing without a token.
func StartTelegramBot(ctx context.Context, token string, chatID int64, market MarketLookup, feed FeedSource) {
	if token == "" {
		logger.Info("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return
	}
	b, err := newBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		logger.Error("failed to create Telegram bot", zap.Error(err))
		return
	}

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})
	b.Handle("/price", func(c tele.Context) error {
		return c.Send(priceReply(ctx, market, c.Args()))
	})
	b.Handle("/news", func(c tele.Context) error {
		return c.Send(headlines(feed.Snapshot().Items, headlineCount))
	})

	if chatID != 0 {
		alerter := NewAlerter(b, tele.ChatID(chatID), market)
		go alerter.Run(ctx, feed)
	}

	logger.Info("Telegram bot started", zap.Bool("alerts", chatID != 0))
	go b.Start()
	go func() {
		<-ctx.Done()
		b.Stop()
	}()
}

func priceReply(ctx context.Context, market MarketLookup, args []string) string {
	supported := strings.Join(domain.SupportedSymbols, ", ")
	if len(args) == 0 {
		return fmt.Sprintf("Usage: /price BTC\nSupported: %s", supported)
	}
	symbol := strings.ToUpper(args[0])
	if !domain.IsSupportedSymbol(symbol) {
		return fmt.Sprintf("Unknown symbol: %s\nSupported: %s", symbol, supported)
	}
	snap, err := market.FetchMarketSnapshot(ctx, symbol)
	if err != nil {
		return fmt.Sprintf("Error fetching price for %s: %v", symbol, err)
	}
	msg := fmt.Sprintf("%s\nPrice: %s\n24h Change: %s\n24h Volume: $%s",
		symbol,
		domain.FormatPrice(snap.PriceUSD),
		domain.FormatPercent(snap.Change24hPct),
		domain.FormatCompact(snap.Volume24h),
	)
	if snap.Mock {
		msg += "\n(sample data, upstream unavailable)"
	}
	return msg
}

func headlines(items []domain.NewsItem, n int) string {
	if len(items) == 0 {
		return "No news yet."
	}
	if len(items) > n {
		items = items[:n]
	}
	var sb strings.Builder
	for i, item := range items {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(formatItem(item))
	}
	return sb.String()
}

func formatItem(item domain.NewsItem) string {
	row := item.ExportRow()
	line := fmt.Sprintf("[%s | %s | %d%%] %s\n%s", row.Impact, row.Sentiment, row.Reliability, item.Title, item.Source)
	if item.URL != "" {
		line += "\n" + item.URL
	}
	return line
}

// Alerter sends each High-impact item once. The first snapshot it sees only
// primes the seen set so a restart does not replay the backlog.
type Alerter struct {
	sender Sender
	to     tele.Recipient
	market MarketLookup

	mu     sync.Mutex
	seen   map[string]struct{}
	primed bool
}

func NewAlerter(sender Sender, to tele.Recipient, market MarketLookup) *Alerter {
	return &Alerter{
		sender: sender,
		to:     to,
		market: market,
		seen:   make(map[string]struct{}),
	}
}

func (a *Alerter) Run(ctx context.Context, feed FeedSource) {
	updates, unsubscribe := feed.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-updates:
			if snap.Seq == 0 {
				continue
			}
			a.Notify(ctx, snap.Items)
		}
	}
}

// Notify sends alerts for unseen High-impact items and returns how many were
// sent.
func (a *Alerter) Notify(ctx context.Context, items []domain.NewsItem) int {
	a.mu.Lock()
	var fresh []domain.NewsItem
	// only ids still in the feed are remembered, so the set stays as small
	// as the snapshot
	current := make(map[string]struct{}, len(a.seen))
	for _, item := range items {
		if item.Impact == nil || *item.Impact != domain.ImpactHigh {
			continue
		}
		if _, ok := current[item.ID]; ok {
			continue
		}
		current[item.ID] = struct{}{}
		if _, ok := a.seen[item.ID]; !ok {
			fresh = append(fresh, item)
		}
	}
	a.seen = current
	primed := a.primed
	a.primed = true
	a.mu.Unlock()

	if !primed {
		return 0
	}

	sent := 0
	for _, item := range fresh {
		if _, err := a.sender.Send(a.to, a.alertText(ctx, item)); err != nil {
			logger.Warn("telegram alert failed", zap.String("id", item.ID), zap.Error(err))
			continue
		}
		sent++
	}
	return sent
}

func (a *Alerter) alertText(ctx context.Context, item domain.NewsItem) string {
	text := "High impact: " + formatItem(item)
	if a.market == nil {
		return text
	}
	for _, symbol := range item.Symbols {
		snap, err := a.market.FetchMarketSnapshot(ctx, symbol)
		if err != nil {
			continue
		}
		text += fmt.Sprintf("\n%s %s (%s)", symbol, domain.FormatPrice(snap.PriceUSD), domain.FormatPercent(snap.Change24hPct))
	}
	return text
}
