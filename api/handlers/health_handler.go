package handlers

import (
	"net/http"
	"os/exec"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/tunepipe/internal/domain"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	config *domain.Config
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(config *domain.Config) *HealthHandler {
	return &HealthHandler{config: config}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: "1.0.0",
	})
}

// Ready handles GET /ready. The pipeline cannot serve requests without
// its external tools, so readiness checks they resolve on PATH.
func (h *HealthHandler) Ready(c *gin.Context) {
	for _, bin := range []string{h.config.Download.YTDLPBinary, h.config.Download.FFmpegBinary} {
		if _, err := exec.LookPath(bin); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"reason": "missing tool: " + bin,
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
