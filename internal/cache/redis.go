package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"coinpulse/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultMirrorRetention = time.Hour
	mirrorOpTimeout        = 500 * time.Millisecond
)

var (
	newRedisClient = func(opts *redis.Options) *redis.Client {
		return redis.NewClient(opts)
	}
	pingRedis = func(ctx context.Context, client *redis.Client) error {
		return client.Ping(ctx).Err()
	}
	parseRedisURL = redis.ParseURL
)

// NewRedisClient connects to addr, which may be host:port or a redis:// URL.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("redis address is empty")
	}

	opts := &redis.Options{Addr: addr}
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := parseRedisURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	}

	client := newRedisClient(opts)
	if err := pingRedis(ctx, client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to redis", zap.String("addr", opts.Addr))
	return client, nil
}

type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// RedisMirror shares cache entries between processes. Keys outlive the local
// TTL by the retention window so stale reads still find them.
type RedisMirror struct {
	client    RedisClient
	retention time.Duration
}

func NewRedisMirror(client RedisClient, retention time.Duration) *RedisMirror {
	if retention <= 0 {
		retention = defaultMirrorRetention
	}
	return &RedisMirror{client: client, retention: retention}
}

func (m *RedisMirror) Load(key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), mirrorOpTimeout)
	defer cancel()

	data, err := m.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		logger.Warn("redis mirror read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return data, true
}

func (m *RedisMirror) Save(key string, payload []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), mirrorOpTimeout)
	defer cancel()

	if err := m.client.Set(ctx, key, payload, m.retention).Err(); err != nil {
		logger.Warn("redis mirror write failed", zap.String("key", key), zap.Error(err))
	}
}
