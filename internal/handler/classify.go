package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const maxClassifyLength = 2000

type classifyRequest struct {
	Text string `json:"text" binding:"required"`
}

// Classify godoc
// @Summary      Classify a headline
// @Description  Runs the sentiment classifier on free text; falls back to NEUTRAL
// @Tags         sentiment
// @Accept       json
// @Produce      json
// @Param        X-API-Key  header  string           false  "API key when configured"
// @Param        request    body    classifyRequest  true   "Text to classify"
// @Success      200  {object}  sentiment.Classification
// @Failure      400  {object}  map[string]string
// @Router       /api/classify [post]
func (h *Handler) Classify(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.classify")
	defer span.End()

	var req classifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" || len(text) > maxClassifyLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text must be 1 to 2000 bytes"})
		return
	}

	c.JSON(http.StatusOK, h.classifier.ClassifyDetailed(ctx, text))
}
