package domain

import "strings"

// Platform represents the source platform for a media URL
type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformTikTok    Platform = "tiktok"
	PlatformYouTube   Platform = "youtube"
	PlatformTwitter   Platform = "twitter"
	PlatformFacebook  Platform = "facebook"
	PlatformOther     Platform = "other"
)

// platformFragments maps domain fragments to platforms, first match wins
var platformFragments = []struct {
	fragment string
	platform Platform
}{
	{"instagram.com", PlatformInstagram},
	{"instagr.am", PlatformInstagram},
	{"tiktok.com", PlatformTikTok},
	{"vm.tiktok.com", PlatformTikTok},
	{"youtube.com", PlatformYouTube},
	{"youtu.be", PlatformYouTube},
	{"twitter.com", PlatformTwitter},
	{"x.com", PlatformTwitter},
	{"facebook.com", PlatformFacebook},
	{"fb.watch", PlatformFacebook},
}

// ClassifyPlatform detects the platform from a URL by case-insensitive
// substring matching. URLs that match no known fragment are classified
// as PlatformOther.
func ClassifyPlatform(url string) Platform {
	lower := strings.ToLower(url)
	for _, entry := range platformFragments {
		if strings.Contains(lower, entry.fragment) {
			return entry.platform
		}
	}
	return PlatformOther
}

// IsURL reports whether text looks like an http(s) URL.
func IsURL(text string) bool {
	return strings.HasPrefix(text, "http://") || strings.HasPrefix(text, "https://")
}

// DownloadRequest describes a single media acquisition. The working
// directory is owned exclusively by the request and removed when the
// request completes.
type DownloadRequest struct {
	URL        string
	WorkingDir string
	AudioOnly  bool
}

// DownloadStrategy is one fully-parameterized download attempt
// configuration. Strategies are tried in declared order, least to most
// permissive.
type DownloadStrategy struct {
	Name            string
	APIHostname     string
	UserAgent       string
	SocketTimeout   int // seconds
	Retries         int
	FragmentRetries int
	Mobile          bool
	ClearCacheFirst bool
}

// DownloadResult is the terminal snapshot of a download attempt. It is
// either a success with files or a failure with an error message, never
// partially filled in.
type DownloadResult struct {
	Success    bool     `json:"success"`
	FilePaths  []string `json:"file_paths,omitempty"`
	Platform   Platform `json:"platform"`
	MethodUsed string   `json:"method_used,omitempty"`
	Caption    string   `json:"caption,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// SizeProbe is the outcome of a pre-download size check
type SizeProbe struct {
	CanDownload bool
	SizeMB      float64
	Resolution  string
	FormatID    string
	Reason      string
	Note        string
}
