package recognition

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	// Noise tokens that show up in temp filenames and recordings but
	// never help a catalog search.
	noiseTokens = regexp.MustCompile(`(?i)(tmp|record|voice|audio|video|mix|file|music|song)`)
	clutter     = regexp.MustCompile(`[\[\]\(\)\{\}_-]+`)
	multiSpace  = regexp.MustCompile(`\s{2,}`)

	mediaExtensions = map[string]bool{
		".mp3": true, ".mp4": true, ".m4a": true, ".wav": true,
		".ogg": true, ".oga": true, ".opus": true, ".flac": true,
		".aac": true, ".webm": true, ".mkv": true, ".mov": true,
		".avi": true,
	}
)

// CleanQuery strips common noise tokens and bracket/punctuation clutter
// from a catalog search query. Cleaning is idempotent.
func CleanQuery(text string) string {
	if text == "" {
		return ""
	}
	// Only known media extensions are stripped; an arbitrary dot suffix
	// may be part of the title ("feat." and the like).
	base := text
	if ext := filepath.Ext(text); mediaExtensions[strings.ToLower(ext)] {
		base = strings.TrimSuffix(text, ext)
	}
	base = noiseTokens.ReplaceAllString(base, "")
	base = clutter.ReplaceAllString(base, " ")
	base = multiSpace.ReplaceAllString(base, " ")
	return strings.TrimSpace(base)
}
