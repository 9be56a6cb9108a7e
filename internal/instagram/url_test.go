package instagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsStoryURL(t *testing.T) {
	assert.True(t, IsStoryURL("https://www.instagram.com/stories/user/123/"))
	assert.True(t, IsStoryURL("https://www.instagram.com/s/aGlnaGxpZ2h0/"))
	assert.False(t, IsStoryURL("https://www.instagram.com/p/Cabc123/"))
}

func TestIsReelURL(t *testing.T) {
	assert.True(t, IsReelURL("https://www.instagram.com/reel/Cabc123/"))
	assert.True(t, IsReelURL("https://www.instagram.com/reels/Cabc123/"))
	assert.False(t, IsReelURL("https://www.instagram.com/p/Cabc123/"))
}

func TestShortcodeToPK(t *testing.T) {
	tests := []struct {
		code     string
		expected string
	}{
		{"A", "0"},
		{"B", "1"},
		{"BB", "65"},
		{"Cap", "9897"},
		{"_", "63"},
	}

	for _, tt := range tests {
		pk, err := shortcodeToPK(tt.code)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, pk, "code %s", tt.code)
	}
}

func TestShortcodeToPK_InvalidCharacter(t *testing.T) {
	_, err := shortcodeToPK("ab!cd")
	assert.Error(t, err)
}

func TestMediaPKFromURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"post", "https://www.instagram.com/p/Cap/"},
		{"reel", "https://www.instagram.com/reel/Cap/"},
		{"reels", "https://www.instagram.com/reels/Cap/"},
		{"igtv", "https://www.instagram.com/tv/Cap/"},
		{"with query", "https://www.instagram.com/p/Cap/?igshid=abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pk, err := MediaPKFromURL(tt.url)
			require.NoError(t, err)
			assert.Equal(t, "9897", pk)
		})
	}
}

func TestMediaPKFromURL_NoShortcode(t *testing.T) {
	_, err := MediaPKFromURL("https://www.instagram.com/someuser/")
	assert.Error(t, err)
}

func TestStoryPKFromURL(t *testing.T) {
	pk, err := StoryPKFromURL("https://www.instagram.com/stories/someuser/3141592653589793238/")
	require.NoError(t, err)
	assert.Equal(t, "3141592653589793238", pk)
}

func TestStoryPKFromURL_StripsCompoundID(t *testing.T) {
	pk, err := StoryPKFromURL("https://www.instagram.com/stories/someuser/123_456/")
	require.NoError(t, err)
	assert.Equal(t, "123", pk)
}

func TestUsernameFromStoryURL(t *testing.T) {
	username, err := UsernameFromStoryURL("https://www.instagram.com/stories/someuser/123/")
	require.NoError(t, err)
	assert.Equal(t, "someuser", username)

	_, err = UsernameFromStoryURL("https://www.instagram.com/p/Cabc/")
	assert.Error(t, err)
}
