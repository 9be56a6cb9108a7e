package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/tunepipe/internal/domain"
)

func TestLoadConfig_Defaults(t *testing.T) {
	config, err := LoadConfig("")

	require.NoError(t, err)
	assert.Equal(t, "localhost", config.Server.Host)
	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, 50, config.Download.MaxFileSizeMB)
	assert.Equal(t, 2*time.Second, config.Download.BackoffUnit)
	assert.Equal(t, 10, config.RateLimit.MaxRequests)
	assert.Equal(t, 60*time.Second, config.RateLimit.TimeWindow)
	assert.Equal(t, "yt-dlp", config.Download.YTDLPBinary)
	assert.Equal(t, "fpcalc", config.Recognition.FpcalcBinary)
}

func TestLoadConfig_FromFile(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  host: 0.0.0.0
  port: 9090
download:
  max_file_size_mb: 25
rate_limit:
  max_requests: 3
instagram:
  username: tester
`
	require.NoError(t, os.WriteFile(configFile, []byte(content), 0644))

	config, err := LoadConfig(configFile)

	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", config.Server.Host)
	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, 25, config.Download.MaxFileSizeMB)
	assert.Equal(t, 3, config.RateLimit.MaxRequests)
	assert.Equal(t, "tester", config.Instagram.Username)

	// Untouched keys keep their defaults
	assert.Equal(t, "yt-dlp", config.Download.YTDLPBinary)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("TUNEPIPE_DOWNLOAD_MAX_FILE_SIZE_MB", "25")
	t.Setenv("TUNEPIPE_RECOGNITION_AUDD_KEY", "audd-secret")
	t.Setenv("TUNEPIPE_INSTAGRAM_USERNAME", "envuser")
	t.Setenv("TUNEPIPE_INSTAGRAM_PASSWORD", "envpass")

	config, err := LoadConfig("")

	require.NoError(t, err)
	assert.Equal(t, 25, config.Download.MaxFileSizeMB)
	assert.Equal(t, "audd-secret", config.Recognition.AudDKey)
	assert.Equal(t, "envuser", config.Instagram.Username)
	assert.Equal(t, "envpass", config.Instagram.Password)

	// Untouched keys keep their defaults
	assert.Equal(t, 8080, config.Server.Port)
}

func TestLoadConfig_EnvAndFileTogether(t *testing.T) {
	t.Setenv("TUNEPIPE_SERVER_PORT", "9191")
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("download:\n  max_file_size_mb: 30\n"), 0644))

	config, err := LoadConfig(configFile)

	require.NoError(t, err)
	// Env takes precedence over defaults, file keys apply independently
	assert.Equal(t, 9191, config.Server.Port)
	assert.Equal(t, 30, config.Download.MaxFileSizeMB)
}

func TestLoadConfig_InvalidPort(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("server:\n  port: 99999\n"), 0644))

	_, err := LoadConfig(configFile)
	assert.ErrorContains(t, err, "invalid server port")
}

func TestLoadConfig_InvalidSizeCeiling(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("download:\n  max_file_size_mb: 0\n"), 0644))

	_, err := LoadConfig(configFile)
	assert.ErrorContains(t, err, "max file size")
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "work"), expandPath("~/work"))
	assert.Equal(t, home+"/work", expandPath("$HOME/work"))
	assert.Equal(t, "/absolute/path", expandPath("/absolute/path"))
}

func TestMaxFileBytes(t *testing.T) {
	config := domain.DownloadConfig{MaxFileSizeMB: 50}
	assert.Equal(t, int64(50*1024*1024), config.MaxFileBytes())
}
