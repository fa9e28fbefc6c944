package provider

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"coinpulse/internal/domain"
)

func TestCoinGeckoFetchSnapshot(t *testing.T) {
	t.Parallel()

	p := NewCoinGeckoProvider("demo-key", NewRateLimiter(10, time.Millisecond), testTracer())
	p.baseURL = "http://example"
	p.client = &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/coins/markets" || req.URL.Query().Get("ids") != "bitcoin" {
			t.Errorf("unexpected url: %s", req.URL)
		}
		if req.Header.Get("x-cg-demo-api-key") != "demo-key" {
			t.Errorf("expected demo api key header")
		}
		body := `[{"id":"bitcoin","symbol":"btc","current_price":64000.5,"market_cap":1.2e12,"total_volume":3.1e10,"high_24h":65000,"low_24h":63000,"price_change_percentage_24h":-1.25,"last_updated":"2026-02-13T10:00:00.000Z"}]`
		return stubResponse(http.StatusOK, body), nil
	})}

	snap, err := p.FetchSnapshot(context.Background(), "btc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Symbol != "BTC" || snap.PriceUSD != 64000.5 || snap.Change24hPct != -1.25 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.High24h != 65000 || snap.Low24h != 63000 || snap.LastUpdated != 1770976800 {
		t.Fatalf("unexpected snapshot values: %+v", snap)
	}
}

func TestCoinGeckoFetchSnapshotRateLimited(t *testing.T) {
	t.Parallel()

	p := NewCoinGeckoProvider("", nil, testTracer())
	p.baseURL = "http://example"
	p.client = stubClient(http.StatusTooManyRequests, `{"status":{"error_code":429}}`)

	_, err := p.FetchSnapshot(context.Background(), "ETH")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestCoinGeckoFetchSnapshotUnsupported(t *testing.T) {
	t.Parallel()

	p := NewCoinGeckoProvider("", nil, testTracer())
	if _, err := p.FetchSnapshot(context.Background(), "NOPE"); err == nil {
		t.Fatal("expected unsupported symbol error")
	}
}

func TestCoinGeckoFetchHistory(t *testing.T) {
	t.Parallel()

	p := NewCoinGeckoProvider("", nil, testTracer())
	p.baseURL = "http://example"
	p.client = &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if !strings.Contains(req.URL.Path, "/coins/solana/market_chart") || req.URL.Query().Get("days") != "7" {
			t.Errorf("unexpected url: %s", req.URL)
		}
		if req.Header.Get("x-cg-demo-api-key") != "" {
			t.Errorf("api key header should be omitted")
		}
		body := `{"prices":[[1771009800000,101.5],[1771006200000,100.0],[1771013400000]],"total_volumes":[]}`
		return stubResponse(http.StatusOK, body), nil
	})}

	points, err := p.FetchHistory(context.Background(), "SOL", domain.Range7D)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	if points[0].Timestamp != 1771006200000 || points[1].Price != 101.5 {
		t.Fatalf("points should be sorted ascending: %+v", points)
	}
}

func TestCoinGeckoFetchHistoryInvalidRange(t *testing.T) {
	t.Parallel()

	p := NewCoinGeckoProvider("", nil, testTracer())
	if _, err := p.FetchHistory(context.Background(), "BTC", domain.PriceRange("2w")); err == nil {
		t.Fatal("expected range error")
	}
}
