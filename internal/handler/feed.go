package handler

import (
	"fmt"
	"net/http"
	"time"

	"coinpulse/internal/domain"
	"coinpulse/internal/news"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

type feedResponse struct {
	Items     []domain.NewsItem `json:"items"`
	Total     int               `json:"total"`
	UpdatedAt string            `json:"updated_at,omitempty"`
	Stale     bool              `json:"stale"`
	Loading   bool              `json:"loading"`
	Error     string            `json:"error,omitempty"`
}

// GetFeed godoc
// @Summary      Get the enriched news feed
// @Description  Returns the reconciled feed with optional filters and ordering
// @Tags         feed
// @Produce      json
// @Param        sentiment  query  string  false  "POSITIVE, NEUTRAL or NEGATIVE"
// @Param        impact     query  string  false  "High, Medium or Low"
// @Param        source     query  string  false  "Source substring"
// @Param        symbol     query  string  false  "Ticker mentioned by the item"
// @Param        q          query  string  false  "Text search in title and body"
// @Param        sort       query  string  false  "newest, oldest or reliability"  default(newest)
// @Success      200  {object}  feedResponse
// @Failure      400  {object}  map[string]string
// @Router       /api/feed [get]
func (h *Handler) GetFeed(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.get-feed")
	defer span.End()

	q, err := parseFeedQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snap := h.feed.Snapshot()
	items := news.Apply(snap.Items, q)
	span.SetAttributes(attribute.Int("items", len(items)))

	resp := feedResponse{
		Items:   items,
		Total:   len(snap.Items),
		Stale:   snap.Stale,
		Loading: snap.Loading,
		Error:   snap.Err,
	}
	if !snap.UpdatedAt.IsZero() {
		resp.UpdatedAt = snap.UpdatedAt.UTC().Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, resp)
}

// ExportFeed godoc
// @Summary      Download the current feed
// @Description  Returns the filtered and sorted feed as a JSON attachment
// @Tags         feed
// @Produce      json
// @Param        sentiment  query  string  false  "POSITIVE, NEUTRAL or NEGATIVE"
// @Param        impact     query  string  false  "High, Medium or Low"
// @Param        source     query  string  false  "Source substring"
// @Param        symbol     query  string  false  "Ticker mentioned by the item"
// @Param        q          query  string  false  "Text search in title and body"
// @Param        sort       query  string  false  "newest, oldest or reliability"  default(newest)
// @Success      200  {object}  news.ExportDocument
// @Failure      400  {object}  map[string]string
// @Router       /api/feed/export [get]
func (h *Handler) ExportFeed(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.export-feed")
	defer span.End()

	q, err := parseFeedQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := h.now()
	doc := news.NewExportDocument(news.Apply(h.feed.Snapshot().Items, q), now)
	filename := fmt.Sprintf("coinpulse-feed-%s.json", now.UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.IndentedJSON(http.StatusOK, doc)
}

// GetFeedStats godoc
// @Summary      Feed statistics
// @Description  Sentiment and impact counts, average reliability, top symbols, sources and keywords
// @Tags         feed
// @Produce      json
// @Success      200  {object}  news.Stats
// @Router       /api/feed/stats [get]
func (h *Handler) GetFeedStats(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.get-feed-stats")
	defer span.End()

	c.JSON(http.StatusOK, news.ComputeStats(h.feed.Snapshot().Items))
}

// RefreshFeed godoc
// @Summary      Trigger a feed refresh
// @Description  Starts a refresh cycle outside the regular schedule
// @Tags         feed
// @Produce      json
// @Param        X-API-Key  header  string  false  "API key when configured"
// @Success      202  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /api/feed/refresh [post]
func (h *Handler) RefreshFeed(c *gin.Context) {
	h.feed.Refresh()
	c.JSON(http.StatusAccepted, gin.H{"status": "refresh scheduled"})
}

func parseFeedQuery(c *gin.Context) (news.Query, error) {
	q, err := news.ParseFilters(c.Query("sentiment"), c.Query("impact"), c.Query("sort"))
	if err != nil {
		return q, err
	}
	q.Source = c.Query("source")
	q.Symbol = c.Query("symbol")
	q.Text = c.Query("q")
	return q, nil
}
