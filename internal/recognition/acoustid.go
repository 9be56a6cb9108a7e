package recognition

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/yourusername/tunepipe/internal/domain"
	"github.com/yourusername/tunepipe/internal/infrastructure"
	"go.uber.org/zap"
)

const acoustidLookupURL = "https://api.acoustid.org/v2/lookup"

// Fingerprinter matches an audio file against a reference database and
// returns ranked candidates.
type Fingerprinter interface {
	Match(ctx context.Context, path string) ([]domain.FingerprintMatch, error)
}

// AcoustIDClient fingerprints audio with the external chromaprint binary
// and resolves candidates through the AcoustID lookup API.
type AcoustIDClient struct {
	apiKey       string
	fpcalcBinary string
	lookupURL    string
	runner       infrastructure.Runner
	http         *http.Client
	logger       *zap.Logger
}

// NewAcoustIDClient creates a new AcoustID client
func NewAcoustIDClient(apiKey, fpcalcBinary string, runner infrastructure.Runner, logger *zap.Logger) *AcoustIDClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AcoustIDClient{
		apiKey:       apiKey,
		fpcalcBinary: fpcalcBinary,
		lookupURL:    acoustidLookupURL,
		runner:       runner,
		http:         &http.Client{Timeout: 30 * time.Second},
		logger:       logger,
	}
}

// fpcalcOutput is fpcalc's -json output
type fpcalcOutput struct {
	Duration    float64 `json:"duration"`
	Fingerprint string  `json:"fingerprint"`
}

// lookupResponse is the AcoustID lookup API response
type lookupResponse struct {
	Status  string         `json:"status"`
	Results []lookupResult `json:"results"`
}

type lookupResult struct {
	ID         string      `json:"id"`
	Score      float64     `json:"score"`
	Recordings []recording `json:"recordings"`
}

type recording struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Artists []artist `json:"artists"`
}

type artist struct {
	Name string `json:"name"`
}

// Match fingerprints the file and returns candidates ordered by
// descending score.
func (c *AcoustIDClient) Match(ctx context.Context, path string) ([]domain.FingerprintMatch, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("acoustid: api key not configured")
	}

	stdout, _, err := c.runner.Run(ctx, c.fpcalcBinary, []string{"-json", path}, 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("acoustid: fingerprint calculation failed: %w", err)
	}

	var fp fpcalcOutput
	if err := json.Unmarshal([]byte(stdout), &fp); err != nil {
		return nil, fmt.Errorf("acoustid: failed to parse fpcalc output: %w", err)
	}
	if fp.Fingerprint == "" {
		return nil, fmt.Errorf("acoustid: empty fingerprint")
	}

	params := url.Values{}
	params.Set("client", c.apiKey)
	params.Set("meta", "recordings")
	params.Set("duration", strconv.Itoa(int(fp.Duration)))
	params.Set("fingerprint", fp.Fingerprint)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.lookupURL, nil)
	if err != nil {
		return nil, err
	}
	req.URL.RawQuery = params.Encode()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("acoustid: lookup request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("acoustid: lookup returned status %d", resp.StatusCode)
	}

	var lookup lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&lookup); err != nil {
		return nil, fmt.Errorf("acoustid: failed to decode lookup response: %w", err)
	}
	if lookup.Status != "ok" {
		return nil, fmt.Errorf("acoustid: lookup status %q", lookup.Status)
	}

	var matches []domain.FingerprintMatch
	for _, result := range lookup.Results {
		for _, rec := range result.Recordings {
			match := domain.FingerprintMatch{
				Score:       result.Score,
				RecordingID: rec.ID,
				Title:       rec.Title,
			}
			if len(rec.Artists) > 0 {
				match.Artist = rec.Artists[0].Name
			}
			matches = append(matches, match)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	c.logger.Debug("AcoustID lookup completed", zap.Int("candidates", len(matches)))
	return matches, nil
}
