package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/yourusername/tunepipe/internal/domain"
	"go.uber.org/zap"
)

// SizeProber checks a video's candidate format sizes before downloading
// so oversized content can be rejected without wasting bandwidth.
type SizeProber struct {
	runner Runner
	config *domain.DownloadConfig
	logger *zap.Logger
}

// NewSizeProber creates a new size prober
func NewSizeProber(runner Runner, config *domain.DownloadConfig, logger *zap.Logger) *SizeProber {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SizeProber{runner: runner, config: config, logger: logger}
}

// videoInfo is the subset of yt-dlp's --dump-json output we care about
type videoInfo struct {
	Formats []formatInfo `json:"formats"`
}

type formatInfo struct {
	FormatID       string  `json:"format_id"`
	Filesize       int64   `json:"filesize"`
	FilesizeApprox int64   `json:"filesize_approx"`
	Resolution     string  `json:"resolution"`
	Ext            string  `json:"ext"`
	TBR            float64 `json:"tbr"`
}

func (f formatInfo) sizeBytes() int64 {
	if f.Filesize > 0 {
		return f.Filesize
	}
	return f.FilesizeApprox
}

// Probe queries the downloader in metadata-only mode and selects the
// largest format still under maxSizeMB. The probe never blocks a
// download: any probe-side failure returns CanDownload=true with a note.
func (p *SizeProber) Probe(ctx context.Context, url string, maxSizeMB int) domain.SizeProbe {
	// Size cannot be determined cheaply for the authenticated platform
	if domain.ClassifyPlatform(url) == domain.PlatformInstagram {
		return domain.SizeProbe{
			CanDownload: true,
			Note:        "Size check unavailable for Instagram",
		}
	}

	args := []string{
		"--dump-json",
		"--no-warnings",
		"--no-playlist",
		url,
	}

	stdout, _, err := p.runner.Run(ctx, p.config.YTDLPBinary, args, p.config.ProbeTimeout)
	if err != nil {
		p.logger.Warn("Size check failed, allowing download anyway", zap.String("url", url), zap.Error(err))
		return domain.SizeProbe{
			CanDownload: true,
			Note:        "Size check failed, attempting download anyway",
		}
	}

	var info videoInfo
	if err := json.Unmarshal([]byte(stdout), &info); err != nil {
		p.logger.Warn("Size check parse failed, allowing download anyway", zap.Error(err))
		return domain.SizeProbe{
			CanDownload: true,
			Note:        "Size check failed, attempting download anyway",
		}
	}

	ceiling := int64(maxSizeMB) * 1024 * 1024

	// Largest format under the ceiling wins: best quality that still fits
	formats := make([]formatInfo, len(info.Formats))
	copy(formats, info.Formats)
	sort.Slice(formats, func(i, j int) bool {
		return formats[i].sizeBytes() > formats[j].sizeBytes()
	})

	anySized := false
	for _, f := range formats {
		size := f.sizeBytes()
		if size <= 0 {
			continue
		}
		anySized = true
		if size < ceiling {
			return domain.SizeProbe{
				CanDownload: true,
				FormatID:    f.FormatID,
				SizeMB:      float64(size) / (1024 * 1024),
				Resolution:  f.Resolution,
			}
		}
	}

	// No size metadata at all: let the download decide
	if !anySized {
		return domain.SizeProbe{
			CanDownload: true,
			Note:        "No size metadata reported, attempting download anyway",
		}
	}

	return domain.SizeProbe{
		CanDownload: false,
		Reason:      fmt.Sprintf("No format found under %dMB", maxSizeMB),
	}
}
