package recognition

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedRunner struct {
	stdout string
	err    error
}

func (s scriptedRunner) Run(ctx context.Context, name string, args []string, timeout time.Duration) (string, string, error) {
	return s.stdout, "", s.err
}

func TestAcoustIDClient_Match(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("client"))
		assert.Equal(t, "recordings", r.URL.Query().Get("meta"))
		assert.NotEmpty(t, r.URL.Query().Get("fingerprint"))

		w.Write([]byte(`{
			"status": "ok",
			"results": [
				{"id": "r1", "score": 0.42, "recordings": [
					{"id": "low", "title": "Low Song", "artists": [{"name": "Low Artist"}]}
				]},
				{"id": "r2", "score": 0.91, "recordings": [
					{"id": "high", "title": "High Song", "artists": [{"name": "High Artist"}]}
				]}
			]
		}`))
	}))
	defer server.Close()

	c := NewAcoustIDClient("test-key", "fpcalc", scriptedRunner{
		stdout: `{"duration": 24.8, "fingerprint": "AQAAf4mSJEuS"}`,
	}, nil)
	c.lookupURL = server.URL

	matches, err := c.Match(context.Background(), "/tmp/clip.fp.wav")

	require.NoError(t, err)
	require.Len(t, matches, 2)
	// Descending score order
	assert.Equal(t, "high", matches[0].RecordingID)
	assert.Equal(t, "High Artist", matches[0].Artist)
	assert.InDelta(t, 0.91, matches[0].Score, 0.001)
}

func TestAcoustIDClient_MissingKey(t *testing.T) {
	c := NewAcoustIDClient("", "fpcalc", scriptedRunner{}, nil)

	_, err := c.Match(context.Background(), "/tmp/clip.wav")
	assert.Error(t, err)
}

func TestAcoustIDClient_EmptyFingerprint(t *testing.T) {
	c := NewAcoustIDClient("test-key", "fpcalc", scriptedRunner{stdout: `{"duration": 10}`}, nil)

	_, err := c.Match(context.Background(), "/tmp/clip.wav")
	assert.ErrorContains(t, err, "empty fingerprint")
}

func TestMusicBrainzClient_Recording(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/recording/abc123")
		assert.Equal(t, "json", r.URL.Query().Get("fmt"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))

		w.Write([]byte(`{
			"title": "Get Lucky",
			"artist-credit": [{"artist": {"name": "Daft Punk"}}]
		}`))
	}))
	defer server.Close()

	c := NewMusicBrainzClient()
	c.baseURL = server.URL

	info, err := c.Recording(context.Background(), "abc123")

	require.NoError(t, err)
	assert.Equal(t, "Daft Punk", info.Artist)
	assert.Equal(t, "Get Lucky", info.Title)
	assert.Equal(t, "https://musicbrainz.org/recording/abc123", info.Link)
}

func TestMusicBrainzClient_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := NewMusicBrainzClient()
	c.baseURL = server.URL

	_, err := c.Recording(context.Background(), "missing")
	assert.ErrorContains(t, err, "404")
}

func TestAudDClient_Recognize(t *testing.T) {
	audioPath := filepath.Join(t.TempDir(), "clip.mp3")
	require.NoError(t, os.WriteFile(audioPath, []byte("audio bytes"), 0644))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "test-key", r.FormValue("api_token"))
		assert.Equal(t, "spotify", r.FormValue("return"))
		_, _, err := r.FormFile("file")
		assert.NoError(t, err)

		w.Write([]byte(`{
			"status": "success",
			"result": {
				"artist": "Queen",
				"title": "Bohemian Rhapsody",
				"spotify": {"external_urls": {"spotify": "https://open.spotify.com/track/q"}}
			}
		}`))
	}))
	defer server.Close()

	c := NewAudDClient("test-key")
	c.baseURL = server.URL

	match, err := c.Recognize(context.Background(), audioPath)

	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "Queen", match.Artist)
	assert.Equal(t, "Bohemian Rhapsody", match.Title)
	assert.Equal(t, "https://open.spotify.com/track/q", match.Link)
}

func TestAudDClient_NoMatch(t *testing.T) {
	audioPath := filepath.Join(t.TempDir(), "clip.mp3")
	require.NoError(t, os.WriteFile(audioPath, []byte("audio bytes"), 0644))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "success", "result": null}`))
	}))
	defer server.Close()

	c := NewAudDClient("test-key")
	c.baseURL = server.URL

	match, err := c.Recognize(context.Background(), audioPath)

	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestAudDClient_Unconfigured(t *testing.T) {
	c := NewAudDClient("")

	assert.False(t, c.Configured())
	_, err := c.Recognize(context.Background(), "/tmp/clip.mp3")
	assert.Error(t, err)
}

func TestSpotifyClient_SearchWithTokenCaching(t *testing.T) {
	tokenCalls := 0
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "id", user)
		assert.Equal(t, "secret", pass)
		w.Write([]byte(`{"access_token": "tok-1", "expires_in": 3600}`))
	}))
	defer tokenServer.Close()

	apiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.Equal(t, "track", r.URL.Query().Get("type"))
		assert.Equal(t, "get lucky", r.URL.Query().Get("q"))

		w.Write([]byte(`{
			"tracks": {"items": [
				{"name": "Get Lucky", "artists": [{"name": "Daft Punk"}],
				 "external_urls": {"spotify": "https://open.spotify.com/track/1"}}
			]}
		}`))
	}))
	defer apiServer.Close()

	c := NewSpotifyClient("id", "secret")
	c.tokenURL = tokenServer.URL
	c.apiBaseURL = apiServer.URL

	tracks, err := c.Search(context.Background(), "get lucky", 5)
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, "Daft Punk", tracks[0].Artist)
	assert.Equal(t, "Get Lucky", tracks[0].Title)

	// Second search reuses the cached token
	_, err = c.Search(context.Background(), "get lucky", 5)
	require.NoError(t, err)
	assert.Equal(t, 1, tokenCalls)
}

func TestSpotifyClient_Unconfigured(t *testing.T) {
	c := NewSpotifyClient("", "")

	assert.False(t, c.Configured())
	_, err := c.Search(context.Background(), "anything", 5)
	assert.Error(t, err)
}
