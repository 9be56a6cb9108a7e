package recognition

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	musicbrainzBaseURL   = "https://musicbrainz.org/ws/2"
	musicbrainzUserAgent = "tunepipe/1.0 (https://musicbrainz.org)"
)

// RecordingInfo is the canonical metadata for a recording
type RecordingInfo struct {
	Artist string
	Title  string
	Link   string
}

// CatalogLookup resolves a recording identifier to canonical metadata.
type CatalogLookup interface {
	Recording(ctx context.Context, recordingID string) (*RecordingInfo, error)
}

// MusicBrainzClient resolves recording IDs via the MusicBrainz API
type MusicBrainzClient struct {
	baseURL string
	http    *http.Client
}

// NewMusicBrainzClient creates a new MusicBrainz client
func NewMusicBrainzClient() *MusicBrainzClient {
	return &MusicBrainzClient{
		baseURL: musicbrainzBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type recordingResponse struct {
	Title        string `json:"title"`
	ArtistCredit []struct {
		Artist struct {
			Name string `json:"name"`
		} `json:"artist"`
	} `json:"artist-credit"`
}

// Recording looks up canonical artist/title and builds a permalink.
func (c *MusicBrainzClient) Recording(ctx context.Context, recordingID string) (*RecordingInfo, error) {
	endpoint := fmt.Sprintf("%s/recording/%s?inc=artists&fmt=json", c.baseURL, recordingID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", musicbrainzUserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("musicbrainz: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("musicbrainz: lookup returned status %d", resp.StatusCode)
	}

	var rec recordingResponse
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, fmt.Errorf("musicbrainz: failed to decode response: %w", err)
	}

	info := &RecordingInfo{
		Title: rec.Title,
		Link:  "https://musicbrainz.org/recording/" + recordingID,
	}
	if len(rec.ArtistCredit) > 0 {
		info.Artist = rec.ArtistCredit[0].Artist.Name
	}
	return info, nil
}
