package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const auddAPIURL = "https://api.audd.io/"

// Recognizer is the secondary recognition API: a raw-audio upload that
// returns a match or nothing.
type Recognizer interface {
	Recognize(ctx context.Context, filePath string) (*RecognitionMatch, error)
}

// RecognitionMatch is a usable answer from the secondary API. A nil
// match with a nil error means the service found nothing.
type RecognitionMatch struct {
	Artist string
	Title  string
	Link   string
}

// AudDClient uploads audio to the AudD recognition API
type AudDClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewAudDClient creates a new AudD client. An empty key disables the
// client; Recognize then reports not-configured.
func NewAudDClient(apiKey string) *AudDClient {
	return &AudDClient{
		apiKey:  apiKey,
		baseURL: auddAPIURL,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// Configured reports whether an API key is present.
func (c *AudDClient) Configured() bool { return c.apiKey != "" }

type auddResponse struct {
	Status string      `json:"status"`
	Result *auddResult `json:"result"`
}

type auddResult struct {
	Artist  string `json:"artist"`
	Title   string `json:"title"`
	Spotify *struct {
		ExternalURLs struct {
			Spotify string `json:"spotify"`
		} `json:"external_urls"`
	} `json:"spotify"`
}

// Recognize uploads the raw audio file as multipart form data. A nil
// match with nil error means no match was found.
func (c *AudDClient) Recognize(ctx context.Context, filePath string) (*RecognitionMatch, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("audd: api key not configured")
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("audd: failed to open audio file: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("audd: failed to buffer audio file: %w", err)
	}
	writer.WriteField("api_token", c.apiKey)
	writer.WriteField("return", "spotify")
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("audd: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("audd: returned status %d", resp.StatusCode)
	}

	var result auddResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("audd: failed to decode response: %w", err)
	}

	if result.Result == nil || result.Result.Title == "" {
		return nil, nil
	}

	match := &RecognitionMatch{
		Artist: result.Result.Artist,
		Title:  result.Result.Title,
	}
	if result.Result.Spotify != nil {
		match.Link = result.Result.Spotify.ExternalURLs.Spotify
	}
	return match, nil
}
