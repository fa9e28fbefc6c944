package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"coinpulse/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const (
	fearGreedBaseURL = "https://api.alternative.me"
	FearGreedName    = "feargreed"
)

type FearGreedProvider struct {
	client  *http.Client
	baseURL string
	tracer  trace.Tracer
	limiter *RateLimiter
}

func NewFearGreedProvider(limiter *RateLimiter, tracer trace.Tracer) *FearGreedProvider {
	if limiter == nil {
		limiter = NewRateLimiter(30, time.Minute)
	}
	return &FearGreedProvider{
		client:  newHTTPClient(15 * time.Second),
		baseURL: fearGreedBaseURL,
		tracer:  tracer,
		limiter: limiter,
	}
}

func (p *FearGreedProvider) FetchLatest(ctx context.Context) (domain.FearGreed, error) {
	ctx, span := p.tracer.Start(ctx, "feargreed.fetch-latest")
	defer span.End()

	url := strings.TrimRight(p.baseURL, "/") + "/fng/?limit=1"
	body, err := getBody(ctx, p.client, p.limiter, FearGreedName, url, nil)
	if err != nil {
		return domain.FearGreed{}, fmt.Errorf("fetch fear & greed: %w", err)
	}

	var payload struct {
		Data []struct {
			Value          string `json:"value"`
			Classification string `json:"value_classification"`
			Timestamp      string `json:"timestamp"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.FearGreed{}, fmt.Errorf("decode fear & greed response: %w", err)
	}
	if len(payload.Data) == 0 {
		return domain.FearGreed{}, fmt.Errorf("fear & greed response has no rows")
	}

	row := payload.Data[0]
	value, err := strconv.Atoi(strings.TrimSpace(row.Value))
	if err != nil {
		return domain.FearGreed{}, fmt.Errorf("parse fear & greed value: %w", err)
	}
	ts, err := strconv.ParseInt(strings.TrimSpace(row.Timestamp), 10, 64)
	if err != nil {
		return domain.FearGreed{}, fmt.Errorf("parse fear & greed timestamp: %w", err)
	}
	if ts > 1_000_000_000_000 {
		ts = ts / 1000
	}

	return domain.FearGreed{
		Value:          value,
		Classification: row.Classification,
		Timestamp:      ts,
	}, nil
}
