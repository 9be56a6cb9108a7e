package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/yourusername/tunepipe/internal/domain"
	"github.com/yourusername/tunepipe/internal/instagram"
	"go.uber.org/zap"
)

// InstagramDownloader downloads from the authenticated platform. It owns
// the process-wide auth session: loaded from disk when a valid blob
// exists, recreated by fresh login otherwise. The authenticate-or-refresh
// transition is serialized so concurrent callers share a single login.
type InstagramDownloader struct {
	client     instagram.API
	transcoder *Transcoder
	config     *domain.InstagramConfig
	logger     *zap.Logger

	mu            sync.Mutex
	authenticated bool
}

// NewInstagramDownloader creates a new authenticated downloader
func NewInstagramDownloader(client instagram.API, transcoder *Transcoder, config *domain.InstagramConfig, logger *zap.Logger) *InstagramDownloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstagramDownloader{
		client:     client,
		transcoder: transcoder,
		config:     config,
		logger:     logger,
	}
}

// ensureAuthenticated moves the session from Unauthenticated to
// Authenticated, at most one login per invalidation even under
// concurrent callers.
func (d *InstagramDownloader) ensureAuthenticated(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.authenticated {
		return nil
	}

	if d.config.Username == "" || d.config.Password == "" {
		return fmt.Errorf("instagram credentials not configured: %w", domain.ErrInvalidCredentials)
	}

	// Reuse a persisted session when it still passes the liveness probe
	if _, err := os.Stat(d.config.SessionFile); err == nil {
		if err := d.client.LoadSession(d.config.SessionFile); err == nil {
			if err := d.client.VerifySession(ctx); err == nil {
				d.logger.Info("Loaded existing Instagram session")
				d.authenticated = true
				return nil
			}
			d.logger.Warn("Stored Instagram session is stale, discarding")
		}
		os.Remove(d.config.SessionFile)
	}

	d.logger.Info("Creating new Instagram session")
	if err := d.client.Login(ctx, d.config.Username, d.config.Password); err != nil {
		switch {
		case errors.Is(err, instagram.ErrChallengeRequired):
			return fmt.Errorf("instagram requires verification in the app first: %w", domain.ErrChallengeRequired)
		case errors.Is(err, instagram.ErrLoginFailed):
			return fmt.Errorf("instagram login failed, check credentials: %w", domain.ErrInvalidCredentials)
		default:
			return fmt.Errorf("instagram authentication error: %w", err)
		}
	}

	if err := d.client.SaveSession(d.config.SessionFile); err != nil {
		d.logger.Warn("Failed to persist Instagram session", zap.Error(err))
	}

	d.authenticated = true
	return nil
}

// invalidateSession drops the in-memory session state so the next call
// re-authenticates.
func (d *InstagramDownloader) invalidateSession() {
	d.mu.Lock()
	d.authenticated = false
	d.mu.Unlock()
}

// Download routes an Instagram URL to the matching content handler and
// returns a uniform result. Audio-only requests replace video files with
// extracted audio.
func (d *InstagramDownloader) Download(ctx context.Context, req domain.DownloadRequest) (domain.DownloadResult, error) {
	if err := d.ensureAuthenticated(ctx); err != nil {
		return failure(err.Error()), err
	}

	var (
		result domain.DownloadResult
		err    error
	)
	switch {
	case instagram.IsStoryURL(req.URL):
		result, err = d.downloadStory(ctx, req)
	default:
		// Posts, reels, and carousels all resolve through media info
		result, err = d.downloadPost(ctx, req)
	}
	if err != nil {
		return result, err
	}

	if req.AudioOnly {
		result, err = d.extractAudioTracks(ctx, result)
		if err != nil {
			return result, err
		}
	}
	return result, nil
}

// downloadPost handles single items, reels, and multi-item carousels.
// Every carousel item is downloaded and all paths aggregated.
func (d *InstagramDownloader) downloadPost(ctx context.Context, req domain.DownloadRequest) (domain.DownloadResult, error) {
	media, err := d.client.MediaByURL(ctx, req.URL)
	if err != nil {
		return d.classifyContentError(err)
	}

	var paths []string
	for _, item := range media.Items {
		path, err := d.client.DownloadItem(ctx, item, req.WorkingDir)
		if err != nil {
			return failure(fmt.Sprintf("failed to download media item %s: %v", item.ID, err)), err
		}
		paths = append(paths, path)
	}

	method := "post"
	if media.MediaType == instagram.MediaTypeCarousel {
		method = "carousel"
	} else if instagram.IsReelURL(req.URL) {
		method = "reel"
	}

	return domain.DownloadResult{
		Success:    true,
		FilePaths:  paths,
		Platform:   domain.PlatformInstagram,
		MethodUsed: method,
		Caption:    media.Caption,
	}, nil
}

// downloadStory resolves a story identifier, verifies it has not
// expired, and downloads it.
func (d *InstagramDownloader) downloadStory(ctx context.Context, req domain.DownloadRequest) (domain.DownloadResult, error) {
	storyPK, err := instagram.StoryPKFromURL(req.URL)
	if err != nil {
		return failure(err.Error()), err
	}
	username, err := instagram.UsernameFromStoryURL(req.URL)
	if err != nil {
		return failure(err.Error()), err
	}

	stories, err := d.client.UserStories(ctx, username)
	if err != nil {
		return d.classifyContentError(err)
	}

	for _, story := range stories {
		if story.PK != storyPK {
			continue
		}
		path, err := d.client.DownloadItem(ctx, story.Item, req.WorkingDir)
		if err != nil {
			return failure(fmt.Sprintf("failed to download story: %v", err)), err
		}
		return domain.DownloadResult{
			Success:    true,
			FilePaths:  []string{path},
			Platform:   domain.PlatformInstagram,
			MethodUsed: "story",
			Caption:    "Instagram Story",
		}, nil
	}

	err = fmt.Errorf("story not found or expired: %w", domain.ErrContentNotFound)
	return failure(err.Error()), err
}

// extractAudioTracks replaces video files in a result with derived audio
func (d *InstagramDownloader) extractAudioTracks(ctx context.Context, result domain.DownloadResult) (domain.DownloadResult, error) {
	var audioPaths []string
	for _, path := range result.FilePaths {
		if !isVideoFile(path) {
			continue
		}
		audioPath, err := d.transcoder.ExtractAudio(ctx, path, "192")
		if err != nil {
			return failure(fmt.Sprintf("audio extraction failed: %v", err)), err
		}
		audioPaths = append(audioPaths, audioPath)
	}
	if len(audioPaths) == 0 {
		// Photo-only content cannot satisfy an audio request
		err := fmt.Errorf("no video tracks to extract audio from: %w", domain.ErrNoAudioSource)
		return failure(err.Error()), err
	}
	result.FilePaths = audioPaths
	return result, nil
}

// classifyContentError maps client errors onto the terminal result
// variants the caller understands.
func (d *InstagramDownloader) classifyContentError(err error) (domain.DownloadResult, error) {
	switch {
	case errors.Is(err, instagram.ErrPrivate):
		wrapped := fmt.Errorf("private account, the configured account must follow the content owner: %w", domain.ErrContentPrivate)
		return failure(wrapped.Error()), wrapped
	case errors.Is(err, instagram.ErrNotFound):
		wrapped := fmt.Errorf("content not found or removed: %w", domain.ErrContentNotFound)
		return failure(wrapped.Error()), wrapped
	default:
		// The session may have been invalidated server-side
		d.invalidateSession()
		return failure(err.Error()), err
	}
}

func failure(msg string) domain.DownloadResult {
	return domain.DownloadResult{
		Success:  false,
		Platform: domain.PlatformInstagram,
		Error:    msg,
	}
}

func isVideoFile(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range []string{".mp4", ".mov", ".mkv", ".webm", ".avi"} {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
