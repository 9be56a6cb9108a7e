package infrastructure

import "strings"

// FailureCause is an advisory category derived from a downloader's error
// text. It drives the guidance shown to the user and nothing else; the
// retry engine never branches on it.
type FailureCause string

const (
	CauseBotDetection FailureCause = "bot_detection"
	CauseForbidden    FailureCause = "forbidden"
	CausePrivate      FailureCause = "private"
	CauseTimeout      FailureCause = "timeout"
	CauseUnknown      FailureCause = "unknown"
)

// guidanceText maps each cause to actionable advice
var guidanceText = map[FailureCause]string{
	CauseBotDetection: "Bot detection triggered. Try: 1) Add a fresh cookies file, 2) Update yt-dlp, 3) Use a VPN",
	CauseForbidden:    "Access forbidden. The content may be private, geo-blocked, or deleted. Try adding valid cookies or using a VPN.",
	CausePrivate:      "Private content - authentication required",
	CauseTimeout:      "Connection timeout. Check your internet connection or try again later.",
	CauseUnknown:      "Download failed. Try again later.",
}

// ClassifyFailure sniffs an error message for a known cause by
// case-insensitive substring match. The classification is advisory only.
func ClassifyFailure(errText string) FailureCause {
	lower := strings.ToLower(errText)
	switch {
	case strings.Contains(lower, "sign in") || strings.Contains(lower, "bot"):
		return CauseBotDetection
	case strings.Contains(lower, "403") || strings.Contains(lower, "forbidden"):
		return CauseForbidden
	case strings.Contains(lower, "private"):
		return CausePrivate
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "timed out"):
		return CauseTimeout
	default:
		return CauseUnknown
	}
}

// GuidanceFor returns the user-facing advice for a failure message.
func GuidanceFor(errText string) string {
	return guidanceText[ClassifyFailure(errText)]
}
