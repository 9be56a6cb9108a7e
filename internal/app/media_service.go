package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/tunepipe/internal/domain"
	"github.com/yourusername/tunepipe/internal/infrastructure"
	"go.uber.org/zap"
)

// Downloader fetches media for a request into its working directory.
type Downloader interface {
	Download(ctx context.Context, req domain.DownloadRequest) (domain.DownloadResult, error)
}

// Prober checks candidate format sizes before a download is attempted.
type Prober interface {
	Probe(ctx context.Context, url string, maxSizeMB int) domain.SizeProbe
}

// VideoCompressor re-encodes oversized video to fit the size ceiling.
type VideoCompressor interface {
	CompressVideo(ctx context.Context, inputPath, outputPath string) bool
}

// Identifier runs the audio identification chain.
type Identifier interface {
	Identify(ctx context.Context, filePath, hint string) string
	SearchCatalog(ctx context.Context, query string) string
}

// MediaService is the pipeline entry point the delivery adapter calls.
// Each request gets its own working directory; the only state shared
// across requests is the rate limiter and the auth session owned by the
// Instagram downloader.
type MediaService struct {
	strategy   Downloader
	instagram  Downloader
	prober     Prober
	compressor VideoCompressor
	identifier Identifier
	runner     infrastructure.Runner
	limiter    *RateLimiter
	config     *domain.Config
	logger     *zap.Logger
}

// NewMediaService creates a new media service
func NewMediaService(
	strategy Downloader,
	instagram Downloader,
	prober Prober,
	compressor VideoCompressor,
	identifier Identifier,
	runner infrastructure.Runner,
	limiter *RateLimiter,
	config *domain.Config,
	logger *zap.Logger,
) *MediaService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MediaService{
		strategy:   strategy,
		instagram:  instagram,
		prober:     prober,
		compressor: compressor,
		identifier: identifier,
		runner:     runner,
		limiter:    limiter,
		config:     config,
		logger:     logger,
	}
}

// LinkOutcome is what the delivery adapter renders for a link request.
// Cleanup removes the request's working directory and must be called
// once the files have been delivered.
type LinkOutcome struct {
	Result   domain.DownloadResult
	Probe    *domain.SizeProbe
	Guidance string
	Cleanup  func()
}

// HandleLink downloads media for a user-supplied URL. The rate limit is
// consulted before any download work happens.
func (s *MediaService) HandleLink(ctx context.Context, url, userID string, audioOnly bool) (*LinkOutcome, error) {
	if !s.limiter.Allow(userID) {
		wait := s.limiter.TimeUntilAllowed(userID)
		return nil, &RateLimitedError{Wait: wait}
	}

	requestID := uuid.New().String()
	platform := domain.ClassifyPlatform(url)
	s.logger.Info("Download request",
		zap.String("request_id", requestID),
		zap.String("user_id", userID),
		zap.String("platform", string(platform)),
		zap.String("url", url))

	workDir, err := s.newWorkingDir()
	if err != nil {
		return nil, err
	}
	cleanup := func() { _ = os.RemoveAll(workDir) }

	outcome := &LinkOutcome{Cleanup: cleanup}

	// Size probe is skipped for the authenticated platform; for the
	// rest a definitive "nothing fits" answer stops the request early.
	if platform != domain.PlatformInstagram {
		probe := s.prober.Probe(ctx, url, s.config.Download.MaxFileSizeMB)
		outcome.Probe = &probe
		if !probe.CanDownload {
			cleanup()
			outcome.Result = domain.DownloadResult{
				Success:  false,
				Platform: platform,
				Error:    probe.Reason,
			}
			outcome.Guidance = probe.Reason + ". Try requesting a shorter clip or audio extraction instead."
			return outcome, nil
		}
	}

	req := domain.DownloadRequest{URL: url, WorkingDir: workDir, AudioOnly: audioOnly}

	var result domain.DownloadResult
	if platform == domain.PlatformInstagram {
		result, err = s.instagram.Download(ctx, req)
	} else {
		result, err = s.strategy.Download(ctx, req)
	}

	if err != nil || !result.Success {
		cleanup()
		outcome.Result = result
		outcome.Guidance = s.failureGuidance(err, result.Error)
		return outcome, nil
	}

	if !audioOnly {
		if err := s.fitToSizeCeiling(ctx, &result); err != nil {
			outcome.Guidance = "Some files exceed the delivery size limit and compression failed. The content must be viewed via the original link instead."
		}
	}

	outcome.Result = result
	s.logger.Info("Download completed",
		zap.String("request_id", requestID),
		zap.String("method", result.MethodUsed),
		zap.Int("files", len(result.FilePaths)))
	return outcome, nil
}

// fitToSizeCeiling compresses any video file over the ceiling, replacing
// it in the result's file list. Returns an error when at least one file
// could not be brought under the limit.
func (s *MediaService) fitToSizeCeiling(ctx context.Context, result *domain.DownloadResult) error {
	ceiling := s.config.Download.MaxFileBytes()
	var failed bool

	for i, path := range result.FilePaths {
		info, err := os.Stat(path)
		if err != nil || info.Size() <= ceiling || !isVideoPath(path) {
			continue
		}

		s.logger.Info("Compressing oversized video",
			zap.String("path", path),
			zap.Int64("size", info.Size()))

		compressed := strings.TrimSuffix(path, filepath.Ext(path)) + ".compressed.mp4"
		if !s.compressor.CompressVideo(ctx, path, compressed) {
			failed = true
			continue
		}

		if out, err := os.Stat(compressed); err == nil && out.Size() <= ceiling {
			os.Remove(path)
			result.FilePaths[i] = compressed
		} else {
			os.Remove(compressed)
			failed = true
		}
	}

	if failed {
		return fmt.Errorf("compression could not fit all files under %dMB", s.config.Download.MaxFileSizeMB)
	}
	return nil
}

// failureGuidance maps a download failure onto cause-specific advice.
// Terminal auth failures already carry actionable text.
func (s *MediaService) failureGuidance(err error, errText string) string {
	switch {
	case errors.Is(err, domain.ErrChallengeRequired),
		errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrContentPrivate),
		errors.Is(err, domain.ErrContentNotFound):
		return err.Error()
	}
	if errText == "" && err != nil {
		errText = err.Error()
	}
	return infrastructure.GuidanceFor(errText)
}

// HandleAudioAttachment identifies a locally saved audio file. The chain
// always yields displayable text.
func (s *MediaService) HandleAudioAttachment(ctx context.Context, localPath, hint string) string {
	return s.identifier.Identify(ctx, localPath, hint)
}

// SearchOutcome is the answer to a free-text music query
type SearchOutcome struct {
	Message   string
	AudioPath string
	Cleanup   func()
}

// HandleTextSearch searches the catalog for a free-text query and makes
// a best-effort attempt to download the top result as audio.
func (s *MediaService) HandleTextSearch(ctx context.Context, query, userID string) (*SearchOutcome, error) {
	query = strings.TrimSpace(query)
	if len(strings.Fields(query)) < 2 {
		return &SearchOutcome{
			Message: "Please type both artist and song name (e.g. 21 Savage redrum)",
			Cleanup: func() {},
		}, nil
	}

	if !s.limiter.Allow(userID) {
		wait := s.limiter.TimeUntilAllowed(userID)
		return nil, &RateLimitedError{Wait: wait}
	}

	message := s.identifier.SearchCatalog(ctx, query)

	workDir, err := s.newWorkingDir()
	if err != nil {
		return &SearchOutcome{Message: message, Cleanup: func() {}}, nil
	}
	cleanup := func() { _ = os.RemoveAll(workDir) }

	// Best effort: a failed download still leaves the catalog results
	audioPath := s.downloadSearchAudio(ctx, query, workDir)
	if audioPath == "" {
		cleanup()
		return &SearchOutcome{Message: message, Cleanup: func() {}}, nil
	}

	return &SearchOutcome{Message: message, AudioPath: audioPath, Cleanup: cleanup}, nil
}

// downloadSearchAudio fetches the top search hit as mp3, returning an
// empty path on any failure.
func (s *MediaService) downloadSearchAudio(ctx context.Context, query, workDir string) string {
	args := []string{
		"-x", "--audio-format", "mp3",
		"--default-search", "ytsearch1",
		"--no-warnings",
		"--quiet",
		"-o", filepath.Join(workDir, "song.%(ext)s"),
		query,
	}

	timeout := 2*time.Minute + s.config.Download.GracePeriod
	if _, _, err := s.runner.Run(ctx, s.config.Download.YTDLPBinary, args, timeout); err != nil {
		s.logger.Warn("Search audio download failed", zap.String("query", query), zap.Error(err))
		return ""
	}

	entries, err := os.ReadDir(workDir)
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".mp3") {
			return filepath.Join(workDir, entry.Name())
		}
	}
	return ""
}

// newWorkingDir creates a request-scoped temporary directory
func (s *MediaService) newWorkingDir() (string, error) {
	base := s.config.Download.WorkDirBase
	if err := os.MkdirAll(base, 0755); err != nil {
		return "", fmt.Errorf("failed to create working directory base: %w", err)
	}
	dir, err := os.MkdirTemp(base, "media_")
	if err != nil {
		return "", fmt.Errorf("failed to create working directory: %w", err)
	}
	return dir, nil
}

func isVideoPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4", ".mov", ".mkv", ".avi", ".webm":
		return true
	}
	return false
}
