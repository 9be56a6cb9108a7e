package domain

import "time"

// Config represents the application configuration
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Download    DownloadConfig    `mapstructure:"download"`
	Instagram   InstagramConfig   `mapstructure:"instagram"`
	Recognition RecognitionConfig `mapstructure:"recognition"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DownloadConfig contains download pipeline configuration
type DownloadConfig struct {
	WorkDirBase   string        `mapstructure:"workdir_base"`
	CookieFile    string        `mapstructure:"cookie_file"`
	YTDLPBinary   string        `mapstructure:"ytdlp_binary"`
	FFmpegBinary  string        `mapstructure:"ffmpeg_binary"`
	MaxFileSizeMB int           `mapstructure:"max_file_size_mb"`
	BackoffUnit   time.Duration `mapstructure:"backoff_unit"`
	GracePeriod   time.Duration `mapstructure:"grace_period"`
	ProbeTimeout  time.Duration `mapstructure:"probe_timeout"`
}

// InstagramConfig contains the authenticated platform configuration
type InstagramConfig struct {
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	SessionFile string `mapstructure:"session_file"`
}

// RecognitionConfig contains identification chain configuration
type RecognitionConfig struct {
	AcoustIDKey         string `mapstructure:"acoustid_key"`
	AudDKey             string `mapstructure:"audd_key"`
	SpotifyClientID     string `mapstructure:"spotify_client_id"`
	SpotifyClientSecret string `mapstructure:"spotify_client_secret"`
	FpcalcBinary        string `mapstructure:"fpcalc_binary"`
}

// RateLimitConfig contains per-user request quota configuration
type RateLimitConfig struct {
	MaxRequests int           `mapstructure:"max_requests"`
	TimeWindow  time.Duration `mapstructure:"time_window"`
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
}

// MaxFileBytes returns the delivery size ceiling in bytes.
func (c DownloadConfig) MaxFileBytes() int64 {
	return int64(c.MaxFileSizeMB) * 1024 * 1024
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Download: DownloadConfig{
			WorkDirBase:   "$HOME/.tunepipe/work",
			CookieFile:    "$HOME/.tunepipe/cookies.txt",
			YTDLPBinary:   "yt-dlp",
			FFmpegBinary:  "ffmpeg",
			MaxFileSizeMB: 50,
			BackoffUnit:   2 * time.Second,
			GracePeriod:   30 * time.Second,
			ProbeTimeout:  60 * time.Second,
		},
		Instagram: InstagramConfig{
			SessionFile: "$HOME/.tunepipe/instagram_session.json",
		},
		Recognition: RecognitionConfig{
			FpcalcBinary: "fpcalc",
		},
		RateLimit: RateLimitConfig{
			MaxRequests: 10,
			TimeWindow:  60 * time.Second,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
		},
	}
}
