package handler

import (
	"errors"
	"net/http"
	"strings"

	"coinpulse/internal/domain"
	"coinpulse/internal/service"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// GetMarketSnapshot godoc
// @Summary      Get the market snapshot of an asset
// @Description  Returns price, 24h change, volume and range; mock data when upstream is unavailable
// @Tags         market
// @Produce      json
// @Param        symbol  path  string  true  "Asset symbol (e.g., BTC, ETH)"
// @Success      200  {object}  domain.MarketSnapshot
// @Failure      400  {object}  map[string]interface{}
// @Router       /api/market/{symbol} [get]
func (h *Handler) GetMarketSnapshot(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-market-snapshot")
	defer span.End()

	symbol := strings.ToUpper(c.Param("symbol"))
	span.SetAttributes(attribute.String("symbol", symbol))

	snapshot, err := h.market.FetchMarketSnapshot(ctx, symbol)
	if err != nil {
		h.marketError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// GetPriceHistory godoc
// @Summary      Get price history
// @Description  Returns the price series of an asset over a range, oldest first
// @Tags         market
// @Produce      json
// @Param        symbol  path   string  true   "Asset symbol (e.g., BTC, ETH)"
// @Param        range   query  string  false  "1d, 7d, 30d, 90d or 1y"  default(7d)
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]interface{}
// @Router       /api/market/{symbol}/history [get]
func (h *Handler) GetPriceHistory(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-price-history")
	defer span.End()

	symbol := strings.ToUpper(c.Param("symbol"))
	r := domain.PriceRange(strings.ToLower(c.DefaultQuery("range", string(domain.Range7D))))
	span.SetAttributes(attribute.String("symbol", symbol), attribute.String("range", string(r)))

	points, err := h.market.FetchPriceHistory(ctx, symbol, r)
	if err != nil {
		h.marketError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"symbol": symbol,
		"range":  r,
		"points": points,
	})
}

// GetFearGreed godoc
// @Summary      Get the fear & greed index
// @Description  Returns the latest crypto fear & greed reading
// @Tags         market
// @Produce      json
// @Success      200  {object}  domain.FearGreed
// @Router       /api/market/fear-greed [get]
func (h *Handler) GetFearGreed(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-fear-greed")
	defer span.End()

	fg, err := h.market.FetchFearGreed(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, fg)
}

func (h *Handler) marketError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUnsupportedSymbol):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             err.Error(),
			"supported_symbols": domain.SupportedSymbols,
		})
	case errors.Is(err, service.ErrUnsupportedRange):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":            err.Error(),
			"supported_ranges": domain.SupportedRanges,
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
