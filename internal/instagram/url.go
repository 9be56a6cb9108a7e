package instagram

import (
	"fmt"
	"math/big"
	"net/url"
	"strings"
)

// shortcodeAlphabet is Instagram's URL-safe base64 variant used for
// media shortcodes.
const shortcodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// IsStoryURL reports whether a URL points at an ephemeral story.
func IsStoryURL(mediaURL string) bool {
	return strings.Contains(mediaURL, "/stories/") || strings.Contains(mediaURL, "/s/")
}

// IsReelURL reports whether a URL points at a reel.
func IsReelURL(mediaURL string) bool {
	return strings.Contains(mediaURL, "/reel/") || strings.Contains(mediaURL, "/reels/")
}

// MediaPKFromURL extracts the shortcode from a post or reel URL and
// decodes it into the numeric media PK the API expects.
func MediaPKFromURL(mediaURL string) (string, error) {
	parsed, err := url.Parse(mediaURL)
	if err != nil {
		return "", fmt.Errorf("instagram: invalid URL: %w", err)
	}

	parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	// Expected shapes: /p/<code>/, /reel/<code>/, /tv/<code>/
	for i, part := range parts {
		if (part == "p" || part == "reel" || part == "reels" || part == "tv") && i+1 < len(parts) {
			return shortcodeToPK(parts[i+1])
		}
	}
	return "", fmt.Errorf("instagram: no media shortcode in URL %s", mediaURL)
}

// shortcodeToPK decodes a base64-variant shortcode into its numeric PK
func shortcodeToPK(code string) (string, error) {
	pk := big.NewInt(0)
	base := big.NewInt(64)
	for _, r := range code {
		idx := strings.IndexRune(shortcodeAlphabet, r)
		if idx < 0 {
			return "", fmt.Errorf("instagram: invalid shortcode character %q", r)
		}
		pk.Mul(pk, base)
		pk.Add(pk, big.NewInt(int64(idx)))
	}
	return pk.String(), nil
}

// StoryPKFromURL extracts the story item PK from a story URL of the
// shape /stories/<username>/<pk>/.
func StoryPKFromURL(mediaURL string) (string, error) {
	parsed, err := url.Parse(mediaURL)
	if err != nil {
		return "", fmt.Errorf("instagram: invalid URL: %w", err)
	}
	parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(parts) >= 3 && parts[0] == "stories" {
		pk := parts[2]
		if idx := strings.Index(pk, "_"); idx > 0 {
			pk = pk[:idx]
		}
		return pk, nil
	}
	return "", fmt.Errorf("instagram: no story id in URL %s", mediaURL)
}

// UsernameFromStoryURL extracts the username from a story URL.
func UsernameFromStoryURL(mediaURL string) (string, error) {
	parsed, err := url.Parse(mediaURL)
	if err != nil {
		return "", fmt.Errorf("instagram: invalid URL: %w", err)
	}
	parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(parts) >= 2 && parts[0] == "stories" {
		return parts[1], nil
	}
	return "", fmt.Errorf("instagram: no username in URL %s", mediaURL)
}
