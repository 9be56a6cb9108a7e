package infrastructure

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/yourusername/tunepipe/internal/domain"
	"go.uber.org/zap"
)

const (
	// Fingerprint normalization parameters: the matcher only needs a
	// short mono window at a modest sample rate.
	fingerprintSeconds    = 25
	fingerprintSampleRate = 32000

	transcodeTimeout = 5 * time.Minute
)

// Transcoder converts downloaded media using the external transcoder
// binary, always through the process runner.
type Transcoder struct {
	runner Runner
	config *domain.DownloadConfig
	logger *zap.Logger
}

// NewTranscoder creates a new transcoder
func NewTranscoder(runner Runner, config *domain.DownloadConfig, logger *zap.Logger) *Transcoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transcoder{runner: runner, config: config, logger: logger}
}

// NormalizeForFingerprint produces mono, fixed-sample-rate, capped-
// duration wav audio. On any failure it falls back to the original path;
// downstream fingerprinting tolerates non-normalized input.
func (t *Transcoder) NormalizeForFingerprint(ctx context.Context, path string) string {
	out := path + ".fp.wav"
	args := []string{
		"-y",
		"-i", path,
		"-t", strconv.Itoa(fingerprintSeconds),
		"-ac", "1",
		"-ar", strconv.Itoa(fingerprintSampleRate),
		"-vn",
		"-f", "wav",
		out,
	}

	if _, _, err := t.runner.Run(ctx, t.config.FFmpegBinary, args, transcodeTimeout); err != nil {
		t.logger.Warn("Fingerprint normalization failed, using original file",
			zap.String("path", path), zap.Error(err))
		os.Remove(out)
		return path
	}
	return out
}

// ExtractAudio produces a compressed mp3 at the given bitrate. Quality
// "0" selects variable-bitrate best mode. Fails loudly on error.
func (t *Transcoder) ExtractAudio(ctx context.Context, path, quality string) (string, error) {
	out := strings.TrimSuffix(path, filepath.Ext(path)) + ".mp3"
	args := []string{
		"-y",
		"-i", path,
		"-vn",
		"-acodec", "libmp3lame",
	}
	if quality == "0" {
		args = append(args, "-q:a", "2")
	} else {
		args = append(args, "-q:a", "4", "-b:a", quality+"k")
	}
	args = append(args, out)

	if _, _, err := t.runner.Run(ctx, t.config.FFmpegBinary, args, transcodeTimeout); err != nil {
		return "", &domain.TranscodeError{Op: "extract_audio", Err: err}
	}

	t.logger.Info("Extracted audio", zap.String("output", out))
	return out, nil
}

// CompressVideo re-encodes to a bounded resolution and bitrate ladder so
// the output fits the distribution ceiling with margin. It never raises;
// the caller checks the returned flag and the output file.
func (t *Transcoder) CompressVideo(ctx context.Context, inputPath, outputPath string) bool {
	args := []string{
		"-y",
		"-i", inputPath,
		"-vf", "scale='min(1280,iw)':'min(720,ih)':force_original_aspect_ratio=decrease",
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "28",
		"-b:v", "1500k",
		"-maxrate", "2000k",
		"-bufsize", "3000k",
		"-c:a", "aac",
		"-b:a", "128k",
		"-movflags", "+faststart",
		outputPath,
	}

	if _, _, err := t.runner.Run(ctx, t.config.FFmpegBinary, args, transcodeTimeout); err != nil {
		t.logger.Warn("Video compression failed", zap.String("input", inputPath), zap.Error(err))
		return false
	}

	info, err := os.Stat(outputPath)
	if err != nil || info.Size() == 0 {
		return false
	}

	t.logger.Info("Compressed video",
		zap.String("output", outputPath),
		zap.Float64("size_mb", float64(info.Size())/(1024*1024)))
	return true
}
