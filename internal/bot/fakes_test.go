package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"coinpulse/internal/domain"
	"coinpulse/internal/job"

	tele "gopkg.in/telebot.v3"
)

type fakeSender struct {
	mu       sync.Mutex
	to       tele.Recipient
	messages []string
}

func (f *fakeSender) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.to = to
	f.messages = append(f.messages, fmt.Sprint(what))
	return &tele.Message{}, nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

type stubMarket struct {
	snap domain.MarketSnapshot
}

func (s *stubMarket) FetchMarketSnapshot(ctx context.Context, symbol string) (domain.MarketSnapshot, error) {
	return s.snap, nil
}

type stubFeed struct {
	ch chan job.FeedSnapshot
}

func (s *stubFeed) Snapshot() job.FeedSnapshot { return job.FeedSnapshot{} }

func (s *stubFeed) Subscribe() (<-chan job.FeedSnapshot, func()) {
	return s.ch, func() {}
}

func waitABit() { time.Sleep(5 * time.Millisecond) }
