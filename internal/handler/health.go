package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health godoc
// @Summary      Health check
// @Description  Returns the health status of the service and which analysis source is active
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) Health(c *gin.Context) {
	analysis := h.analysisProvider
	if analysis == "" {
		analysis = "fallback"
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "analysis": analysis})
}
