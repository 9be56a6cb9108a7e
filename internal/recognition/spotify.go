package recognition

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/yourusername/tunepipe/internal/domain"
)

const (
	spotifyAPIBaseURL = "https://api.spotify.com/v1"
	spotifyTokenURL   = "https://accounts.spotify.com/api/token"
)

// CatalogSearcher runs a keyword search against a music catalog.
type CatalogSearcher interface {
	Configured() bool
	Search(ctx context.Context, query string, limit int) ([]domain.CatalogTrack, error)
}

// SpotifyClient searches the Spotify catalog using the client
// credentials flow. The access token is cached until shortly before
// expiry.
type SpotifyClient struct {
	clientID     string
	clientSecret string
	apiBaseURL   string
	tokenURL     string
	http         *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewSpotifyClient creates a new Spotify catalog client. Missing
// credentials leave the client unconfigured rather than erroring.
func NewSpotifyClient(clientID, clientSecret string) *SpotifyClient {
	return &SpotifyClient{
		clientID:     clientID,
		clientSecret: clientSecret,
		apiBaseURL:   spotifyAPIBaseURL,
		tokenURL:     spotifyTokenURL,
		http:         &http.Client{Timeout: 30 * time.Second},
	}
}

// Configured reports whether credentials are present.
func (c *SpotifyClient) Configured() bool {
	return c.clientID != "" && c.clientSecret != ""
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// token returns a valid access token, refreshing it when needed.
func (c *SpotifyClient) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("spotify: token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("spotify: token endpoint returned status %d", resp.StatusCode)
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("spotify: failed to decode token response: %w", err)
	}

	c.accessToken = token.AccessToken
	// Refresh a minute early to avoid racing expiry
	c.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn-60) * time.Second)
	return c.accessToken, nil
}

type searchResponse struct {
	Tracks struct {
		Items []trackData `json:"items"`
	} `json:"tracks"`
}

type trackData struct {
	Name    string `json:"name"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
	ExternalURLs struct {
		Spotify string `json:"spotify"`
	} `json:"external_urls"`
}

// Search runs a track keyword search and returns ranked results.
func (c *SpotifyClient) Search(ctx context.Context, query string, limit int) ([]domain.CatalogTrack, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("spotify: credentials not configured")
	}

	accessToken, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/search?type=track&limit=%d&q=%s",
		c.apiBaseURL, limit, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("spotify: search failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("spotify: search returned status %d", resp.StatusCode)
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("spotify: failed to decode search response: %w", err)
	}

	tracks := make([]domain.CatalogTrack, 0, len(result.Tracks.Items))
	for _, item := range result.Tracks.Items {
		track := domain.CatalogTrack{
			Title: item.Name,
			Link:  item.ExternalURLs.Spotify,
		}
		if len(item.Artists) > 0 {
			track.Artist = item.Artists[0].Name
		}
		tracks = append(tracks, track)
	}
	return tracks, nil
}
