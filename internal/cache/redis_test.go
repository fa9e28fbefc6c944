package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"coinpulse/internal/domain"

	"github.com/redis/go-redis/v9"
)

func TestNewRedisClientWithCustomAddr(t *testing.T) {
	restore := stubRedisHooks(t, nil)
	defer restore()

	var capturedAddr string
	newRedisClient = func(opts *redis.Options) *redis.Client {
		capturedAddr = opts.Addr
		return redis.NewClient(opts)
	}

	client, err := NewRedisClient(context.Background(), "redis:9999")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer client.Close()
	if capturedAddr != "redis:9999" {
		t.Fatalf("expected custom addr, got %s", capturedAddr)
	}
}

func TestNewRedisClientParsesURL(t *testing.T) {
	restore := stubRedisHooks(t, nil)
	defer restore()

	client, err := NewRedisClient(context.Background(), "redis://cache.internal:6380/2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer client.Close()
	if client.Options().Addr != "cache.internal:6380" || client.Options().DB != 2 {
		t.Fatalf("unexpected options: %+v", client.Options())
	}
}

func TestNewRedisClientPingFailure(t *testing.T) {
	restore := stubRedisHooks(t, errors.New("refused"))
	defer restore()

	if _, err := NewRedisClient(context.Background(), "localhost:6379"); err == nil {
		t.Fatal("expected ping error")
	}
}

func TestNewRedisClientEmptyAddr(t *testing.T) {
	if _, err := NewRedisClient(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty address")
	}
}

func TestRedisMirrorSharesEntriesBetweenStores(t *testing.T) {
	fake := newFakeRedis()
	mirror := NewRedisMirror(fake, time.Minute)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	writer := NewStore[domain.MarketSnapshot]("snapshot", SnapshotTTL, WithClock(clock), WithMirror(mirror))
	reader := NewStore[domain.MarketSnapshot]("snapshot", SnapshotTTL, WithClock(clock), WithMirror(mirror))

	writer.Put("BTC", domain.MarketSnapshot{Symbol: "BTC", PriceUSD: 64000})

	got, ok := reader.GetFresh("BTC")
	if !ok || got.PriceUSD != 64000 {
		t.Fatalf("expected mirrored snapshot, got %+v ok=%v", got, ok)
	}
	if fake.lastExpiration != time.Minute {
		t.Fatalf("expected retention as expiration, got %v", fake.lastExpiration)
	}
	if reader.Len() != 1 {
		t.Fatalf("mirrored entry should be adopted locally, len=%d", reader.Len())
	}
}

func TestRedisMirrorIgnoresOlderRemoteEntry(t *testing.T) {
	fake := newFakeRedis()
	mirror := NewRedisMirror(fake, 0)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewStore[domain.Sentiment]("sentiment", SentimentTTL, WithClock(func() time.Time { return now }), WithMirror(mirror))

	old, _ := json.Marshal(Entry[domain.Sentiment]{Data: domain.SentimentNegative, Timestamp: now.Add(-time.Hour)})
	store.Put("text", domain.SentimentPositive)
	fake.data["coinpulse:sentiment:text"] = old

	now = now.Add(SentimentTTL + time.Second)
	got, ok := store.GetStale("text")
	if !ok || got != domain.SentimentPositive {
		t.Fatalf("expected local newer entry to win, got %s", got)
	}
}

func TestRedisMirrorReadErrorIsAMiss(t *testing.T) {
	fake := newFakeRedis()
	fake.getErr = errors.New("timeout")
	mirror := NewRedisMirror(fake, time.Minute)

	if _, ok := mirror.Load("missing"); ok {
		t.Fatal("read error should be reported as a miss")
	}
}

func stubRedisHooks(t *testing.T, pingErr error) func() {
	t.Helper()
	origNewClient := newRedisClient
	origPing := pingRedis
	pingRedis = func(ctx context.Context, client *redis.Client) error {
		return pingErr
	}
	return func() {
		newRedisClient = origNewClient
		pingRedis = origPing
	}
}

type fakeRedis struct {
	data           map[string][]byte
	lastExpiration time.Duration
	setErr         error
	getErr         error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string][]byte)}
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	f.lastExpiration = expiration
	switch v := value.(type) {
	case []byte:
		f.data[key] = append([]byte(nil), v...)
	case string:
		f.data[key] = []byte(v)
	default:
		bytes, _ := json.Marshal(v)
		f.data[key] = bytes
	}
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	if v, ok := f.data[key]; ok {
		return redis.NewStringResult(string(v), nil)
	}
	return redis.NewStringResult("", redis.Nil)
}
