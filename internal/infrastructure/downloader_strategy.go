package infrastructure

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/yourusername/tunepipe/internal/domain"
	"go.uber.org/zap"
)

const (
	desktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	mobileUserAgent  = "com.zhiliaoapp.musically/2023600050 (Linux; U; Android 13; en_US; Pixel 6; Build/TP1A.220624.014; Cronet/TTNetVersion:6c7b701a 2021-11-22 QuicVersion:47ac2f7f 2021-07-29)"
)

// tiktokStrategies is the ordered fallback ladder for TikTok. Each entry
// is slower and more permissive than the one before it.
var tiktokStrategies = []domain.DownloadStrategy{
	{
		Name:            "api_useast1",
		APIHostname:     "api16-normal-c-useast1a.tiktokv.com",
		UserAgent:       desktopUserAgent,
		SocketTimeout:   30,
		Retries:         5,
		FragmentRetries: 5,
	},
	{
		Name:            "api_singapore",
		APIHostname:     "api22-normal-c-alisg.tiktokv.com",
		UserAgent:       desktopUserAgent,
		SocketTimeout:   45,
		Retries:         8,
		FragmentRetries: 8,
	},
	{
		Name:            "api_useast2_cache_cleared",
		APIHostname:     "api19-normal-c-useast2a.tiktokv.com",
		UserAgent:       desktopUserAgent,
		SocketTimeout:   60,
		Retries:         10,
		FragmentRetries: 10,
		ClearCacheFirst: true,
	},
	{
		Name:            "mobile_api",
		APIHostname:     "api16-normal-c-useast1a.tiktokv.com",
		UserAgent:       mobileUserAgent,
		SocketTimeout:   90,
		Retries:         15,
		FragmentRetries: 10,
		Mobile:          true,
	},
}

// defaultStrategies is used for every platform without a special ladder
var defaultStrategies = []domain.DownloadStrategy{
	{
		Name:            "default",
		SocketTimeout:   60,
		Retries:         3,
		FragmentRetries: 3,
	},
}

// strategyTable maps a platform to its ordered strategy list
var strategyTable = map[domain.Platform][]domain.DownloadStrategy{
	domain.PlatformTikTok: tiktokStrategies,
}

// StrategiesFor returns the ordered strategy list for a platform.
func StrategiesFor(platform domain.Platform) []domain.DownloadStrategy {
	if strategies, ok := strategyTable[platform]; ok {
		return strategies
	}
	return defaultStrategies
}

// StrategyDownloader walks a platform's strategy ladder until one
// strategy produces files or all are exhausted. It handles every
// platform except the authenticated one.
type StrategyDownloader struct {
	runner Runner
	config *domain.DownloadConfig
	logger *zap.Logger
	sleep  func(time.Duration)
}

// NewStrategyDownloader creates a new strategy downloader
func NewStrategyDownloader(runner Runner, config *domain.DownloadConfig, logger *zap.Logger) *StrategyDownloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StrategyDownloader{
		runner: runner,
		config: config,
		logger: logger,
		sleep:  time.Sleep,
	}
}

// formatSelector returns the yt-dlp format expression. Video requests
// prefer formats already under the size ceiling, then bounded-resolution
// combined streams, then worst quality as the last resort.
func (d *StrategyDownloader) formatSelector(audioOnly bool) string {
	if audioOnly {
		return "bestaudio/best"
	}
	mb := d.config.MaxFileSizeMB
	return fmt.Sprintf(
		"best[filesize<%dM]/bv*[height<=720][filesize<%dM]+ba/bv*[height<=480]+ba/worst",
		mb, mb)
}

// buildArgs assembles the downloader invocation for one strategy
func (d *StrategyDownloader) buildArgs(req domain.DownloadRequest, strategy domain.DownloadStrategy) []string {
	args := []string{
		"-f", d.formatSelector(req.AudioOnly),
		"-o", filepath.Join(req.WorkingDir, "output.%(ext)s"),
		"--no-playlist",
		"--no-warnings",
		"--no-color",
		"--socket-timeout", strconv.Itoa(strategy.SocketTimeout),
		"--retries", strconv.Itoa(strategy.Retries),
		"--fragment-retries", strconv.Itoa(strategy.FragmentRetries),
		"--geo-bypass",
		"--merge-output-format", "mp4",
	}

	if strategy.APIHostname != "" {
		args = append(args, "--extractor-args", "tiktok:api_hostname="+strategy.APIHostname)
	}
	if strategy.UserAgent != "" {
		args = append(args, "--user-agent", strategy.UserAgent)
	}
	if d.config.CookieFile != "" {
		if _, err := os.Stat(d.config.CookieFile); err == nil {
			args = append(args, "--cookies", d.config.CookieFile)
		}
	}

	return append(args, req.URL)
}

// Download walks the platform's strategies in declared order and
// short-circuits at the first one that yields at least one file. The
// returned error on exhaustion carries the last strategy's failure.
func (d *StrategyDownloader) Download(ctx context.Context, req domain.DownloadRequest) (domain.DownloadResult, error) {
	platform := domain.ClassifyPlatform(req.URL)
	strategies := StrategiesFor(platform)

	var lastErr error

	for i, strategy := range strategies {
		if i > 0 {
			// Linear backoff between strategies: 2s, 4s, 6s...
			wait := time.Duration(i) * d.config.BackoffUnit
			d.logger.Info("Waiting before next strategy",
				zap.Duration("wait", wait),
				zap.String("next", strategy.Name))
			d.sleep(wait)
		}

		if strategy.ClearCacheFirst {
			d.purgeCache(ctx)
		}

		d.logger.Info("Trying download strategy",
			zap.String("url", req.URL),
			zap.String("platform", string(platform)),
			zap.String("strategy", strategy.Name),
			zap.Int("attempt", i+1),
			zap.Int("total", len(strategies)))

		timeout := time.Duration(strategy.SocketTimeout)*time.Second + d.config.GracePeriod
		_, _, err := d.runner.Run(ctx, d.config.YTDLPBinary, d.buildArgs(req, strategy), timeout)
		if err != nil {
			lastErr = err
			d.logger.Warn("Strategy failed",
				zap.String("strategy", strategy.Name),
				zap.Error(err))
			continue
		}

		files, err := scanWorkingDir(req.WorkingDir)
		if err != nil {
			lastErr = err
			continue
		}
		if len(files) == 0 {
			lastErr = domain.ErrNoFilesProduced
			d.logger.Warn("Strategy produced no files", zap.String("strategy", strategy.Name))
			continue
		}

		d.logger.Info("Download succeeded",
			zap.String("strategy", strategy.Name),
			zap.Int("files", len(files)))

		return domain.DownloadResult{
			Success:    true,
			FilePaths:  files,
			Platform:   platform,
			MethodUsed: strategy.Name,
		}, nil
	}

	exhausted := &domain.ExhaustedError{
		Platform: platform,
		Attempts: len(strategies),
		LastErr:  lastErr,
	}
	return domain.DownloadResult{
		Success:  false,
		Platform: platform,
		Error:    exhausted.Error(),
	}, exhausted
}

// purgeCache removes the downloader's local cache. Failure is not
// critical; the next strategy runs either way.
func (d *StrategyDownloader) purgeCache(ctx context.Context) {
	if _, _, err := d.runner.Run(ctx, d.config.YTDLPBinary, []string{"--rm-cache-dir"}, 30*time.Second); err != nil {
		d.logger.Debug("Cache purge failed", zap.Error(err))
		return
	}
	d.logger.Info("Cleared downloader cache")
}

// scanWorkingDir lists non-hidden files created in the working directory,
// in discovery order.
func scanWorkingDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan working directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || entry.Name()[0] == '.' {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	return files, nil
}
