package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"github.com/yourusername/tunepipe/internal/domain"
)

// LoadConfig loads configuration from file and environment
func LoadConfig(configPath string) (*domain.Config, error) {
	// Start with default config
	config := domain.DefaultConfig()

	// Set up viper
	v := viper.New()
	v.SetConfigType("yaml")

	// If config path is provided, use it
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in standard locations
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.tunepipe")
		v.AddConfigPath("/etc/tunepipe")
	}

	// Read environment variables
	v.SetEnvPrefix("TUNEPIPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Every key needs a registered default, otherwise AutomaticEnv
	// values never reach Unmarshal.
	setDefaults(v, config)

	// Try to read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults
	}

	// Unmarshal into config struct
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Expand environment variables in paths
	config = expandPaths(config)

	// Validate config
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults registers every config key with viper so environment
// overrides (TUNEPIPE-prefixed, underscore-separated) are picked up
// during Unmarshal.
func setDefaults(v *viper.Viper, config *domain.Config) {
	v.SetDefault("server.host", config.Server.Host)
	v.SetDefault("server.port", config.Server.Port)

	v.SetDefault("download.workdir_base", config.Download.WorkDirBase)
	v.SetDefault("download.cookie_file", config.Download.CookieFile)
	v.SetDefault("download.ytdlp_binary", config.Download.YTDLPBinary)
	v.SetDefault("download.ffmpeg_binary", config.Download.FFmpegBinary)
	v.SetDefault("download.max_file_size_mb", config.Download.MaxFileSizeMB)
	v.SetDefault("download.backoff_unit", config.Download.BackoffUnit)
	v.SetDefault("download.grace_period", config.Download.GracePeriod)
	v.SetDefault("download.probe_timeout", config.Download.ProbeTimeout)

	v.SetDefault("instagram.username", config.Instagram.Username)
	v.SetDefault("instagram.password", config.Instagram.Password)
	v.SetDefault("instagram.session_file", config.Instagram.SessionFile)

	v.SetDefault("recognition.acoustid_key", config.Recognition.AcoustIDKey)
	v.SetDefault("recognition.audd_key", config.Recognition.AudDKey)
	v.SetDefault("recognition.spotify_client_id", config.Recognition.SpotifyClientID)
	v.SetDefault("recognition.spotify_client_secret", config.Recognition.SpotifyClientSecret)
	v.SetDefault("recognition.fpcalc_binary", config.Recognition.FpcalcBinary)

	v.SetDefault("rate_limit.max_requests", config.RateLimit.MaxRequests)
	v.SetDefault("rate_limit.time_window", config.RateLimit.TimeWindow)

	v.SetDefault("logging.level", config.Logging.Level)
	v.SetDefault("logging.format", config.Logging.Format)
	v.SetDefault("logging.output_path", config.Logging.OutputPath)
}

// expandPaths expands environment variables in path configurations
func expandPaths(config *domain.Config) *domain.Config {
	config.Download.WorkDirBase = expandPath(config.Download.WorkDirBase)
	config.Download.CookieFile = expandPath(config.Download.CookieFile)
	config.Instagram.SessionFile = expandPath(config.Instagram.SessionFile)

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" {
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}

	return config
}

// expandPath expands environment variables and ~ in paths
func expandPath(path string) string {
	// Expand environment variables
	path = os.ExpandEnv(path)

	// Expand home directory
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	// Replace $HOME
	if strings.Contains(path, "$HOME") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = strings.ReplaceAll(path, "$HOME", home)
		}
	}

	return path
}

// validateConfig validates the configuration
func validateConfig(config *domain.Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Download.WorkDirBase == "" {
		return fmt.Errorf("working directory base not configured")
	}

	if config.Download.MaxFileSizeMB < 1 {
		return fmt.Errorf("max file size must be at least 1 MB")
	}

	if config.Download.YTDLPBinary == "" {
		return fmt.Errorf("yt-dlp binary not configured")
	}

	if config.Download.FFmpegBinary == "" {
		return fmt.Errorf("ffmpeg binary not configured")
	}

	if config.RateLimit.MaxRequests < 1 {
		return fmt.Errorf("rate limit quota must be at least 1")
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	return nil
}
