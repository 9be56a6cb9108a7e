package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/tunepipe/internal/app"
	"github.com/yourusername/tunepipe/internal/domain"
	"go.uber.org/zap"
)

// MediaHandler handles media pipeline HTTP requests
type MediaHandler struct {
	service *app.MediaService
	logger  *zap.Logger
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(service *app.MediaService, logger *zap.Logger) *MediaHandler {
	return &MediaHandler{service: service, logger: logger}
}

// LinkRequest is the body for POST /api/v1/media/link
type LinkRequest struct {
	URL       string `json:"url" binding:"required"`
	UserID    string `json:"user_id" binding:"required"`
	AudioOnly bool   `json:"audio_only"`
}

// LinkResponse mirrors the pipeline's outcome for the delivery adapter
type LinkResponse struct {
	Result   domain.DownloadResult `json:"result"`
	Guidance string                `json:"guidance,omitempty"`
	SizeMB   float64               `json:"size_mb,omitempty"`
}

// HandleLink handles POST /api/v1/media/link
func (h *MediaHandler) HandleLink(c *gin.Context) {
	var req LinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !domain.IsURL(req.URL) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "not a valid http(s) URL"})
		return
	}

	outcome, err := h.service.HandleLink(c.Request.Context(), req.URL, req.UserID, req.AudioOnly)
	if err != nil {
		var limited *app.RateLimitedError
		if errors.As(err, &limited) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":        limited.Error(),
				"wait_seconds": int(limited.Wait.Seconds()),
			})
			return
		}
		h.logger.Error("Link handling failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := LinkResponse{Result: outcome.Result, Guidance: outcome.Guidance}
	if outcome.Probe != nil {
		resp.SizeMB = outcome.Probe.SizeMB
	}

	// The delivery adapter picks files up from the working directory and
	// releases it via POST /media/release once sent.
	c.JSON(http.StatusOK, resp)
}

// ReleaseRequest is the body for POST /api/v1/media/release
type ReleaseRequest struct {
	Path string `json:"path" binding:"required"`
}

// HandleRelease handles POST /api/v1/media/release: the delivery
// adapter calls it after sending files so the request's working
// directory can be removed. Only paths under the configured working
// directory base are accepted.
func (h *MediaHandler) HandleRelease(workDirBase string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ReleaseRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		cleaned := filepath.Clean(req.Path)
		rel, err := filepath.Rel(workDirBase, cleaned)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "path is outside the working directory base"})
			return
		}

		if err := os.RemoveAll(cleaned); err != nil {
			h.logger.Warn("Working directory release failed", zap.String("path", cleaned), zap.Error(err))
		}
		c.JSON(http.StatusOK, gin.H{"released": cleaned})
	}
}

// IdentifyResponse is the body for POST /api/v1/media/identify
type IdentifyResponse struct {
	Result string `json:"result"`
}

// HandleIdentify handles POST /api/v1/media/identify: a multipart audio
// upload with an optional hint field.
func (h *MediaHandler) HandleIdentify(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing audio file upload"})
		return
	}
	hint := c.PostForm("hint")

	tmpDir, err := os.MkdirTemp("", "identify_")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer os.RemoveAll(tmpDir)

	localPath := filepath.Join(tmpDir, filepath.Base(file.Filename))
	if err := c.SaveUploadedFile(file, localPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to save upload: %v", err)})
		return
	}

	result := h.service.HandleAudioAttachment(c.Request.Context(), localPath, hint)
	c.JSON(http.StatusOK, IdentifyResponse{Result: result})
}

// SearchRequest is the body for POST /api/v1/media/search
type SearchRequest struct {
	Query  string `json:"query" binding:"required"`
	UserID string `json:"user_id" binding:"required"`
}

// SearchResponse carries catalog results and the optional audio file
type SearchResponse struct {
	Message   string `json:"message"`
	AudioPath string `json:"audio_path,omitempty"`
}

// HandleSearch handles POST /api/v1/media/search
func (h *MediaHandler) HandleSearch(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := h.service.HandleTextSearch(c.Request.Context(), req.Query, req.UserID)
	if err != nil {
		var limited *app.RateLimitedError
		if errors.As(err, &limited) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":        limited.Error(),
				"wait_seconds": int(limited.Wait.Seconds()),
			})
			return
		}
		h.logger.Error("Search handling failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, SearchResponse{Message: outcome.Message, AudioPath: outcome.AudioPath})
}
