// Package instagram implements a minimal client for Instagram's private
// web API: cookie-session login with on-disk persistence, media metadata
// lookup, and media/story downloads.
package instagram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	baseURL       = "https://www.instagram.com"
	apiBaseURL    = "https://i.instagram.com/api/v1"
	webUserAgent  = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	clientTimeout = 30 * time.Second
)

// Media types as reported by the API
const (
	MediaTypePhoto    = 1
	MediaTypeVideo    = 2
	MediaTypeCarousel = 8
)

var (
	// ErrChallengeRequired means the account hit a verification challenge
	// that must be resolved manually in the app.
	ErrChallengeRequired = errors.New("instagram: challenge required")

	// ErrLoginFailed means the credentials were rejected.
	ErrLoginFailed = errors.New("instagram: login failed")

	// ErrPrivate means the content owner's account is private and the
	// session's account does not follow them.
	ErrPrivate = errors.New("instagram: private content")

	// ErrNotFound means the media does not exist or has expired.
	ErrNotFound = errors.New("instagram: media not found")
)

// MediaItem is one downloadable unit (a photo or a video)
type MediaItem struct {
	ID        string
	MediaType int
	URL       string
}

// Media is the metadata for a post, reel, or carousel
type Media struct {
	PK           string
	MediaType    int
	Caption      string
	LikeCount    int
	CommentCount int
	PlayCount    int
	Items        []MediaItem
}

// Story is one ephemeral story item
type Story struct {
	PK        string
	MediaType int
	Item      MediaItem
}

// API abstracts the Instagram operations the downloader needs. The
// concrete Client talks to the real service; tests substitute fakes.
type API interface {
	LoadSession(path string) error
	SaveSession(path string) error
	VerifySession(ctx context.Context) error
	Login(ctx context.Context, username, password string) error
	MediaByURL(ctx context.Context, mediaURL string) (*Media, error)
	UserStories(ctx context.Context, username string) ([]Story, error)
	DownloadItem(ctx context.Context, item MediaItem, dir string) (string, error)
}

// Client is the HTTP implementation of API
type Client struct {
	http   *http.Client
	jar    *cookiejar.Jar
	logger *zap.Logger

	// mu guards the session identity. A re-login after invalidation may
	// rewrite these while other requests are in flight.
	mu        sync.RWMutex
	userAgent string
	username  string
	csrfToken string
}

// NewClient creates a new Instagram client
func NewClient(logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	jar, _ := cookiejar.New(nil)
	return &Client{
		http:      &http.Client{Timeout: clientTimeout, Jar: jar},
		jar:       jar,
		userAgent: webUserAgent,
		logger:    logger,
	}
}

// sessionBlob is the on-disk session format. Opaque to everything
// outside this package.
type sessionBlob struct {
	Username  string          `json:"username"`
	UserAgent string          `json:"user_agent"`
	CSRFToken string          `json:"csrf_token"`
	Cookies   []sessionCookie `json:"cookies"`
	SavedAt   time.Time       `json:"saved_at"`
}

type sessionCookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain"`
	Path   string `json:"path"`
}

// LoadSession restores cookies and identity from a persisted blob.
func (c *Client) LoadSession(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read session file: %w", err)
	}

	var blob sessionBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		return fmt.Errorf("failed to parse session file: %w", err)
	}

	c.mu.Lock()
	c.username = blob.Username
	c.csrfToken = blob.CSRFToken
	if blob.UserAgent != "" {
		c.userAgent = blob.UserAgent
	}
	c.mu.Unlock()

	base, _ := url.Parse(baseURL)
	cookies := make([]*http.Cookie, 0, len(blob.Cookies))
	for _, sc := range blob.Cookies {
		cookies = append(cookies, &http.Cookie{
			Name:   sc.Name,
			Value:  sc.Value,
			Domain: sc.Domain,
			Path:   sc.Path,
		})
	}
	c.jar.SetCookies(base, cookies)
	return nil
}

// SaveSession persists the current cookies and identity.
func (c *Client) SaveSession(path string) error {
	base, _ := url.Parse(baseURL)
	c.mu.RLock()
	blob := sessionBlob{
		Username:  c.username,
		UserAgent: c.userAgent,
		CSRFToken: c.csrfToken,
		SavedAt:   time.Now(),
	}
	c.mu.RUnlock()
	for _, ck := range c.jar.Cookies(base) {
		blob.Cookies = append(blob.Cookies, sessionCookie{
			Name:   ck.Name,
			Value:  ck.Value,
			Domain: ck.Domain,
			Path:   ck.Path,
		})
	}

	data, err := json.MarshalIndent(blob, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// VerifySession makes a cheap authenticated call to check liveness.
func (c *Client) VerifySession(ctx context.Context) error {
	resp, err := c.get(ctx, apiBaseURL+"/accounts/current_user/?edit=true")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}
	return fmt.Errorf("instagram: session check returned status %d", resp.StatusCode)
}

// loginResponse is the shape of the login ajax endpoint's reply
type loginResponse struct {
	Authenticated bool   `json:"authenticated"`
	User          bool   `json:"user"`
	Message       string `json:"message"`
	CheckpointURL string `json:"checkpoint_url"`
}

// Login performs a fresh credential exchange and establishes cookies.
func (c *Client) Login(ctx context.Context, username, password string) error {
	// A GET against the home page seeds the csrftoken cookie
	if err := c.seedCSRF(ctx); err != nil {
		return err
	}

	form := url.Values{}
	form.Set("username", username)
	form.Set("enc_password", fmt.Sprintf("#PWD_INSTAGRAM_BROWSER:0:%d:%s", time.Now().Unix(), password))
	form.Set("queryParams", "{}")
	form.Set("optIntoOneTap", "false")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		baseURL+"/accounts/login/ajax/", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	userAgent, csrfToken := c.identity()
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-CSRFToken", csrfToken)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Referer", baseURL+"/")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("instagram: login request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var result loginResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("instagram: unexpected login response: %w", err)
	}

	if result.Message == "checkpoint_required" || result.CheckpointURL != "" {
		return ErrChallengeRequired
	}
	if !result.Authenticated {
		return ErrLoginFailed
	}

	c.mu.Lock()
	c.username = username
	c.mu.Unlock()
	c.refreshCSRFFromJar()
	c.logger.Info("Instagram login succeeded", zap.String("username", username))
	return nil
}

// mediaInfoResponse wraps the media info endpoint's item list
type mediaInfoResponse struct {
	Items []mediaItemJSON `json:"items"`
}

type mediaItemJSON struct {
	PK        json.Number `json:"pk"`
	MediaType int         `json:"media_type"`
	Caption   *struct {
		Text string `json:"text"`
	} `json:"caption"`
	LikeCount      int             `json:"like_count"`
	CommentCount   int             `json:"comment_count"`
	PlayCount      int             `json:"play_count"`
	ImageVersions2 *imageVersions  `json:"image_versions2"`
	VideoVersions  []videoVersion  `json:"video_versions"`
	CarouselMedia  []mediaItemJSON `json:"carousel_media"`
}

type imageVersions struct {
	Candidates []videoVersion `json:"candidates"`
}

type videoVersion struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// MediaByURL resolves a post/reel URL into full media metadata.
func (c *Client) MediaByURL(ctx context.Context, mediaURL string) (*Media, error) {
	pk, err := MediaPKFromURL(mediaURL)
	if err != nil {
		return nil, err
	}

	resp, err := c.get(ctx, fmt.Sprintf("%s/media/%s/info/", apiBaseURL, pk))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrNotFound
	case http.StatusForbidden:
		return nil, ErrPrivate
	default:
		return nil, fmt.Errorf("instagram: media info returned status %d", resp.StatusCode)
	}

	var info mediaInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("instagram: failed to decode media info: %w", err)
	}
	if len(info.Items) == 0 {
		return nil, ErrNotFound
	}

	return toMedia(info.Items[0]), nil
}

func toMedia(item mediaItemJSON) *Media {
	media := &Media{
		PK:           item.PK.String(),
		MediaType:    item.MediaType,
		LikeCount:    item.LikeCount,
		CommentCount: item.CommentCount,
		PlayCount:    item.PlayCount,
	}
	if item.Caption != nil {
		media.Caption = item.Caption.Text
	}

	if item.MediaType == MediaTypeCarousel {
		for _, child := range item.CarouselMedia {
			media.Items = append(media.Items, toItem(child))
		}
	} else {
		media.Items = []MediaItem{toItem(item)}
	}
	return media
}

func toItem(item mediaItemJSON) MediaItem {
	out := MediaItem{ID: item.PK.String(), MediaType: item.MediaType}
	if len(item.VideoVersions) > 0 {
		out.URL = item.VideoVersions[0].URL
	} else if item.ImageVersions2 != nil && len(item.ImageVersions2.Candidates) > 0 {
		out.URL = item.ImageVersions2.Candidates[0].URL
	}
	return out
}

type storyReelResponse struct {
	Reel *struct {
		Items []mediaItemJSON `json:"items"`
	} `json:"reel"`
}

type userLookupResponse struct {
	Data struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	} `json:"data"`
}

// UserStories returns the user's currently live stories. Expired
// stories are simply absent from the reel.
func (c *Client) UserStories(ctx context.Context, username string) ([]Story, error) {
	resp, err := c.get(ctx, fmt.Sprintf("%s/web/search/topsearch/?query=%s", baseURL+"/api/v1", url.QueryEscape(username)))
	if err != nil {
		return nil, err
	}
	resp.Body.Close()

	userResp, err := c.get(ctx, fmt.Sprintf("%s/users/web_profile_info/?username=%s", apiBaseURL, url.QueryEscape(username)))
	if err != nil {
		return nil, err
	}
	defer userResp.Body.Close()

	if userResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("instagram: user lookup returned status %d", userResp.StatusCode)
	}

	var lookup userLookupResponse
	if err := json.NewDecoder(userResp.Body).Decode(&lookup); err != nil {
		return nil, fmt.Errorf("instagram: failed to decode user lookup: %w", err)
	}
	userID := lookup.Data.User.ID
	if userID == "" {
		return nil, ErrNotFound
	}

	reelResp, err := c.get(ctx, fmt.Sprintf("%s/feed/user/%s/story/", apiBaseURL, userID))
	if err != nil {
		return nil, err
	}
	defer reelResp.Body.Close()

	if reelResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("instagram: story feed returned status %d", reelResp.StatusCode)
	}

	var reel storyReelResponse
	if err := json.NewDecoder(reelResp.Body).Decode(&reel); err != nil {
		return nil, fmt.Errorf("instagram: failed to decode story feed: %w", err)
	}
	if reel.Reel == nil {
		return nil, nil
	}

	stories := make([]Story, 0, len(reel.Reel.Items))
	for _, item := range reel.Reel.Items {
		stories = append(stories, Story{
			PK:        item.PK.String(),
			MediaType: item.MediaType,
			Item:      toItem(item),
		})
	}
	return stories, nil
}

// DownloadItem fetches one media item into dir and returns its path.
func (c *Client) DownloadItem(ctx context.Context, item MediaItem, dir string) (string, error) {
	if item.URL == "" {
		return "", ErrNotFound
	}

	resp, err := c.get(ctx, item.URL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("instagram: media fetch returned status %d", resp.StatusCode)
	}

	ext := ".jpg"
	if item.MediaType == MediaTypeVideo {
		ext = ".mp4"
	}
	path := filepath.Join(dir, item.ID+ext)

	out, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("instagram: failed to save media: %w", err)
	}
	return path, nil
}

// get issues an authenticated GET with the session's identity headers
func (c *Client) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	userAgent, csrfToken := c.identity()
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-IG-App-ID", "936619743392459")
	if csrfToken != "" {
		req.Header.Set("X-CSRFToken", csrfToken)
	}
	return c.http.Do(req)
}

// identity snapshots the session headers under the read lock.
func (c *Client) identity() (userAgent, csrfToken string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userAgent, c.csrfToken
}

func (c *Client) seedCSRF(ctx context.Context) error {
	resp, err := c.get(ctx, baseURL+"/")
	if err != nil {
		return fmt.Errorf("instagram: failed to seed csrf token: %w", err)
	}
	resp.Body.Close()
	c.refreshCSRFFromJar()
	return nil
}

func (c *Client) refreshCSRFFromJar() {
	base, _ := url.Parse(baseURL)
	for _, ck := range c.jar.Cookies(base) {
		if ck.Name == "csrftoken" {
			c.mu.Lock()
			c.csrfToken = ck.Value
			c.mu.Unlock()
		}
	}
}
