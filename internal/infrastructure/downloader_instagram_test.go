package infrastructure

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/tunepipe/internal/domain"
	"github.com/yourusername/tunepipe/internal/instagram"
)

// fakeInstagram scripts the client-side API without any network calls.
type fakeInstagram struct {
	mu            sync.Mutex
	loginCount    int32
	loadErr       error
	verifyErr     error
	loginErr      error
	mediaErr      error
	media         *instagram.Media
	stories       []instagram.Story
	storiesErr    error
	savedSessions []string
}

func (f *fakeInstagram) LoadSession(path string) error { return f.loadErr }

func (f *fakeInstagram) SaveSession(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.savedSessions = append(f.savedSessions, path)
	return os.WriteFile(path, []byte(`{"username":"tester"}`), 0600)
}

func (f *fakeInstagram) VerifySession(ctx context.Context) error { return f.verifyErr }

func (f *fakeInstagram) Login(ctx context.Context, username, password string) error {
	atomic.AddInt32(&f.loginCount, 1)
	return f.loginErr
}

func (f *fakeInstagram) MediaByURL(ctx context.Context, mediaURL string) (*instagram.Media, error) {
	if f.mediaErr != nil {
		return nil, f.mediaErr
	}
	return f.media, nil
}

func (f *fakeInstagram) UserStories(ctx context.Context, username string) ([]instagram.Story, error) {
	if f.storiesErr != nil {
		return nil, f.storiesErr
	}
	return f.stories, nil
}

func (f *fakeInstagram) DownloadItem(ctx context.Context, item instagram.MediaItem, dir string) (string, error) {
	name := item.ID + ".mp4"
	if item.MediaType == instagram.MediaTypePhoto {
		name = item.ID + ".jpg"
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("media"), 0644); err != nil {
		return "", err
	}
	return path, nil
}

func testInstagramConfig(t *testing.T) *domain.InstagramConfig {
	t.Helper()
	return &domain.InstagramConfig{
		Username:    "tester",
		Password:    "secret",
		SessionFile: filepath.Join(t.TempDir(), "session.json"),
	}
}

func TestInstagramDownloader_FreshLoginPersistsSession(t *testing.T) {
	workDir := t.TempDir()
	fake := &fakeInstagram{
		media: &instagram.Media{
			PK:        "123",
			MediaType: instagram.MediaTypeVideo,
			Caption:   "beach day",
			Items:     []instagram.MediaItem{{ID: "123", MediaType: instagram.MediaTypeVideo}},
		},
	}
	config := testInstagramConfig(t)

	d := NewInstagramDownloader(fake, NewTranscoder(&fakeRunner{}, testDownloadConfig(), nil), config, nil)
	result, err := d.Download(context.Background(), domain.DownloadRequest{
		URL:        "https://www.instagram.com/reel/Cabc123/",
		WorkingDir: workDir,
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "reel", result.MethodUsed)
	assert.Equal(t, "beach day", result.Caption)
	require.Len(t, result.FilePaths, 1)

	// No stored session existed, so a login ran and persisted one
	assert.Equal(t, int32(1), fake.loginCount)
	assert.FileExists(t, config.SessionFile)
}

func TestInstagramDownloader_ReusesStoredSession(t *testing.T) {
	config := testInstagramConfig(t)
	require.NoError(t, os.WriteFile(config.SessionFile, []byte(`{"username":"tester"}`), 0600))

	fake := &fakeInstagram{
		media: &instagram.Media{
			PK:        "123",
			MediaType: instagram.MediaTypePhoto,
			Items:     []instagram.MediaItem{{ID: "123", MediaType: instagram.MediaTypePhoto}},
		},
	}

	d := NewInstagramDownloader(fake, NewTranscoder(&fakeRunner{}, testDownloadConfig(), nil), config, nil)
	_, err := d.Download(context.Background(), domain.DownloadRequest{
		URL:        "https://www.instagram.com/p/Cabc123/",
		WorkingDir: t.TempDir(),
	})

	require.NoError(t, err)
	assert.Equal(t, int32(0), fake.loginCount)
}

func TestInstagramDownloader_ConcurrentCallersShareOneLogin(t *testing.T) {
	fake := &fakeInstagram{
		media: &instagram.Media{
			PK:        "123",
			MediaType: instagram.MediaTypePhoto,
			Items:     []instagram.MediaItem{{ID: "123", MediaType: instagram.MediaTypePhoto}},
		},
	}
	config := testInstagramConfig(t)
	d := NewInstagramDownloader(fake, NewTranscoder(&fakeRunner{}, testDownloadConfig(), nil), config, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.Download(context.Background(), domain.DownloadRequest{
				URL:        "https://www.instagram.com/p/Cabc123/",
				WorkingDir: t.TempDir(),
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&fake.loginCount))
}

func TestInstagramDownloader_MissingCredentials(t *testing.T) {
	d := NewInstagramDownloader(&fakeInstagram{}, NewTranscoder(&fakeRunner{}, testDownloadConfig(), nil), &domain.InstagramConfig{
		SessionFile: filepath.Join(t.TempDir(), "session.json"),
	}, nil)

	result, err := d.Download(context.Background(), domain.DownloadRequest{
		URL:        "https://www.instagram.com/p/Cabc123/",
		WorkingDir: t.TempDir(),
	})

	require.Error(t, err)
	assert.False(t, result.Success)
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestInstagramDownloader_ChallengeIsTerminal(t *testing.T) {
	fake := &fakeInstagram{loginErr: instagram.ErrChallengeRequired}
	d := NewInstagramDownloader(fake, NewTranscoder(&fakeRunner{}, testDownloadConfig(), nil), testInstagramConfig(t), nil)

	_, err := d.Download(context.Background(), domain.DownloadRequest{
		URL:        "https://www.instagram.com/p/Cabc123/",
		WorkingDir: t.TempDir(),
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrChallengeRequired)
}

func TestInstagramDownloader_PrivateContent(t *testing.T) {
	fake := &fakeInstagram{mediaErr: instagram.ErrPrivate}
	d := NewInstagramDownloader(fake, NewTranscoder(&fakeRunner{}, testDownloadConfig(), nil), testInstagramConfig(t), nil)

	result, err := d.Download(context.Background(), domain.DownloadRequest{
		URL:        "https://www.instagram.com/p/Cabc123/",
		WorkingDir: t.TempDir(),
	})

	require.Error(t, err)
	assert.False(t, result.Success)
	assert.ErrorIs(t, err, domain.ErrContentPrivate)

	// Access errors on content are not session failures
	assert.True(t, d.authenticated)
}

func TestInstagramDownloader_UnknownContentErrorInvalidatesSession(t *testing.T) {
	fake := &fakeInstagram{mediaErr: assert.AnError}
	d := NewInstagramDownloader(fake, NewTranscoder(&fakeRunner{}, testDownloadConfig(), nil), testInstagramConfig(t), nil)

	_, err := d.Download(context.Background(), domain.DownloadRequest{
		URL:        "https://www.instagram.com/p/Cabc123/",
		WorkingDir: t.TempDir(),
	})

	require.Error(t, err)
	assert.False(t, d.authenticated)
}

func TestInstagramDownloader_CarouselAggregatesAllItems(t *testing.T) {
	workDir := t.TempDir()
	fake := &fakeInstagram{
		media: &instagram.Media{
			PK:        "123",
			MediaType: instagram.MediaTypeCarousel,
			Items: []instagram.MediaItem{
				{ID: "a", MediaType: instagram.MediaTypePhoto},
				{ID: "b", MediaType: instagram.MediaTypeVideo},
				{ID: "c", MediaType: instagram.MediaTypePhoto},
			},
		},
	}

	d := NewInstagramDownloader(fake, NewTranscoder(&fakeRunner{}, testDownloadConfig(), nil), testInstagramConfig(t), nil)
	result, err := d.Download(context.Background(), domain.DownloadRequest{
		URL:        "https://www.instagram.com/p/Cabc123/",
		WorkingDir: workDir,
	})

	require.NoError(t, err)
	assert.Equal(t, "carousel", result.MethodUsed)
	assert.Len(t, result.FilePaths, 3)
}

func TestInstagramDownloader_StoryByPK(t *testing.T) {
	workDir := t.TempDir()
	fake := &fakeInstagram{
		stories: []instagram.Story{
			{PK: "111", Item: instagram.MediaItem{ID: "111", MediaType: instagram.MediaTypeVideo}},
			{PK: "222", Item: instagram.MediaItem{ID: "222", MediaType: instagram.MediaTypeVideo}},
		},
	}

	d := NewInstagramDownloader(fake, NewTranscoder(&fakeRunner{}, testDownloadConfig(), nil), testInstagramConfig(t), nil)
	result, err := d.Download(context.Background(), domain.DownloadRequest{
		URL:        "https://www.instagram.com/stories/someuser/222/",
		WorkingDir: workDir,
	})

	require.NoError(t, err)
	assert.Equal(t, "story", result.MethodUsed)
	require.Len(t, result.FilePaths, 1)
	assert.Contains(t, result.FilePaths[0], "222")
}

func TestInstagramDownloader_ExpiredStory(t *testing.T) {
	fake := &fakeInstagram{
		stories: []instagram.Story{
			{PK: "111", Item: instagram.MediaItem{ID: "111", MediaType: instagram.MediaTypeVideo}},
		},
	}

	d := NewInstagramDownloader(fake, NewTranscoder(&fakeRunner{}, testDownloadConfig(), nil), testInstagramConfig(t), nil)
	result, err := d.Download(context.Background(), domain.DownloadRequest{
		URL:        "https://www.instagram.com/stories/someuser/999/",
		WorkingDir: t.TempDir(),
	})

	require.Error(t, err)
	assert.False(t, result.Success)
	assert.ErrorIs(t, err, domain.ErrContentNotFound)
}

func TestInstagramDownloader_AudioOnlyExtractsFromVideo(t *testing.T) {
	workDir := t.TempDir()
	fake := &fakeInstagram{
		media: &instagram.Media{
			PK:        "123",
			MediaType: instagram.MediaTypeVideo,
			Items:     []instagram.MediaItem{{ID: "123", MediaType: instagram.MediaTypeVideo}},
		},
	}

	d := NewInstagramDownloader(fake, NewTranscoder(&fakeRunner{}, testDownloadConfig(), nil), testInstagramConfig(t), nil)
	result, err := d.Download(context.Background(), domain.DownloadRequest{
		URL:        "https://www.instagram.com/reel/Cabc123/",
		WorkingDir: workDir,
		AudioOnly:  true,
	})

	require.NoError(t, err)
	require.Len(t, result.FilePaths, 1)
	assert.Equal(t, ".mp3", filepath.Ext(result.FilePaths[0]))
}

func TestInstagramDownloader_AudioOnlyPhotoPostFails(t *testing.T) {
	workDir := t.TempDir()
	fake := &fakeInstagram{
		media: &instagram.Media{
			PK:        "456",
			MediaType: instagram.MediaTypeCarousel,
			Items: []instagram.MediaItem{
				{ID: "456-1", MediaType: instagram.MediaTypePhoto},
				{ID: "456-2", MediaType: instagram.MediaTypePhoto},
			},
		},
	}

	d := NewInstagramDownloader(fake, NewTranscoder(&fakeRunner{}, testDownloadConfig(), nil), testInstagramConfig(t), nil)
	result, err := d.Download(context.Background(), domain.DownloadRequest{
		URL:        "https://www.instagram.com/p/Cdef456/",
		WorkingDir: workDir,
		AudioOnly:  true,
	})

	require.ErrorIs(t, err, domain.ErrNoAudioSource)
	assert.False(t, result.Success)
	assert.Empty(t, result.FilePaths)
}
