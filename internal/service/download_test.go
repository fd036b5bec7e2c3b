package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/snatch/internal/domain"
	"github.com/bnema/snatch/internal/port"
)

type fakeExtractor struct {
	mu           sync.Mutex
	genericCalls []bool

	probeInfo   *domain.MediaInfo
	probeErr    error
	genericInfo *domain.MediaInfo
	genericErr  error

	downloadErr error
	filename    string
	progress    []domain.Progress
	panics      bool
}

func (f *fakeExtractor) Probe(_ context.Context, _ string, generic bool) (*domain.MediaInfo, error) {
	f.mu.Lock()
	f.genericCalls = append(f.genericCalls, generic)
	f.mu.Unlock()

	if generic {
		return f.genericInfo, f.genericErr
	}
	return f.probeInfo, f.probeErr
}

func (f *fakeExtractor) Download(_ context.Context, req port.DownloadRequest) (*port.DownloadResult, error) {
	if f.panics {
		panic("extractor blew up")
	}
	for _, p := range f.progress {
		if req.OnProgress != nil {
			req.OnProgress(p)
		}
	}
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	if req.OnFinished != nil {
		req.OnFinished(f.filename)
	}
	return &port.DownloadResult{Filename: f.filename}, nil
}

func (f *fakeExtractor) probeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.genericCalls)
}

func newDownloadFixture(ext *fakeExtractor) (*DownloadService, *Registry, string) {
	reg := NewRegistry(nil, 100, time.Hour)
	svc := NewDownloadService(reg, ext)
	job := reg.Create("https://example.com/watch?v=abc", domain.Quality720p, domain.KindVideo)
	return svc, reg, job.ID
}

func TestDownloadServiceRunCompletes(t *testing.T) {
	ext := &fakeExtractor{
		probeInfo: &domain.MediaInfo{Title: "A Video", Uploader: "someone", Duration: 90},
		filename:  "a-video.mp4",
		progress: []domain.Progress{
			{Percent: 25, Downloaded: 250, Total: 1000, Speed: 1000, ETA: 1, Filename: "a-video.mp4"},
			{Percent: 100, Downloaded: 1000, Total: 1000},
		},
	}
	svc, reg, id := newDownloadFixture(ext)

	svc.Run(context.Background(), id)

	got, ok := reg.Get(id)
	require.True(t, ok)
	assert.Equal(t, domain.StateCompleted, got.State)
	assert.Equal(t, "A Video", got.Title)
	assert.Equal(t, "a-video.mp4", got.Filename)
	assert.Equal(t, float64(100), got.Progress)
	assert.False(t, got.CompletedAt.IsZero())

	history := reg.RecentHistory(1)
	require.Len(t, history, 1)
	assert.Equal(t, "a-video.mp4", history[0].Filename)
}

func TestDownloadServiceProbeFailure(t *testing.T) {
	ext := &fakeExtractor{
		probeErr: errors.New("ERROR: This video is DRM protected"),
	}
	svc, reg, id := newDownloadFixture(ext)

	svc.Run(context.Background(), id)

	got, _ := reg.Get(id)
	assert.Equal(t, domain.StateError, got.State)
	assert.Equal(t, domain.ErrKindDRM.Message(), got.Error)
	assert.Equal(t, domain.ErrKindDRM.Suggestion(), got.Suggestion)
}

func TestDownloadServiceDownloadFailure(t *testing.T) {
	ext := &fakeExtractor{
		probeInfo:   &domain.MediaInfo{Title: "Gone"},
		downloadErr: errors.New("ERROR: HTTP Error 404: Not Found"),
	}
	svc, reg, id := newDownloadFixture(ext)

	svc.Run(context.Background(), id)

	got, _ := reg.Get(id)
	assert.Equal(t, domain.StateError, got.State)
	assert.Equal(t, domain.ErrKindNotFound.Message(), got.Error)
	assert.Equal(t, "Gone", got.Title, "metadata from the probe should survive the failure")
}

func TestDownloadServiceUnknownErrorKeepsDetail(t *testing.T) {
	ext := &fakeExtractor{
		probeInfo:   &domain.MediaInfo{},
		downloadErr: errors.New("disk quota exceeded"),
	}
	svc, reg, id := newDownloadFixture(ext)

	svc.Run(context.Background(), id)

	got, _ := reg.Get(id)
	assert.Equal(t, domain.StateError, got.State)
	assert.Equal(t, "disk quota exceeded", got.Error)
}

func TestDownloadServiceRecoversFromPanic(t *testing.T) {
	ext := &fakeExtractor{
		probeInfo: &domain.MediaInfo{},
		panics:    true,
	}
	svc, reg, id := newDownloadFixture(ext)

	assert.NotPanics(t, func() { svc.Run(context.Background(), id) })

	got, _ := reg.Get(id)
	assert.Equal(t, domain.StateError, got.State)
	assert.Contains(t, got.Error, "internal error")
}

func TestDownloadServiceMissingJob(t *testing.T) {
	ext := &fakeExtractor{}
	reg := NewRegistry(nil, 100, time.Hour)
	svc := NewDownloadService(reg, ext)

	assert.NotPanics(t, func() { svc.Run(context.Background(), "download_404") })
	assert.Equal(t, 0, ext.probeCount(), "nothing to probe for an unknown job")
}

func TestDownloadServiceInfo(t *testing.T) {
	t.Run("first try", func(t *testing.T) {
		ext := &fakeExtractor{probeInfo: &domain.MediaInfo{Title: "Hit"}}
		svc := NewDownloadService(NewRegistry(nil, 10, time.Hour), ext)

		info, err := svc.Info(context.Background(), "https://example.com/v")
		require.NoError(t, err)
		assert.Equal(t, "Hit", info.Title)
		assert.Equal(t, 1, ext.probeCount())
	})

	t.Run("drm short-circuits", func(t *testing.T) {
		ext := &fakeExtractor{probeErr: errors.New("This video is DRM protected")}
		svc := NewDownloadService(NewRegistry(nil, 10, time.Hour), ext)

		_, err := svc.Info(context.Background(), "https://example.com/v")
		require.Error(t, err)
		assert.Equal(t, 1, ext.probeCount(), "no generic retry for DRM")
	})

	t.Run("login short-circuits", func(t *testing.T) {
		ext := &fakeExtractor{probeErr: errors.New("ERROR: Sign in. Use --cookies for authentication")}
		svc := NewDownloadService(NewRegistry(nil, 10, time.Hour), ext)

		_, err := svc.Info(context.Background(), "https://example.com/v")
		require.Error(t, err)
		assert.Equal(t, 1, ext.probeCount())
	})

	t.Run("generic fallback succeeds", func(t *testing.T) {
		ext := &fakeExtractor{
			probeErr:    errors.New("ERROR: Unsupported URL: https://example.com/v"),
			genericInfo: &domain.MediaInfo{Title: "Rescued"},
		}
		svc := NewDownloadService(NewRegistry(nil, 10, time.Hour), ext)

		info, err := svc.Info(context.Background(), "https://example.com/v")
		require.NoError(t, err)
		assert.Equal(t, "Rescued", info.Title)
		assert.Equal(t, 2, ext.probeCount())
	})

	t.Run("both fail reports first error", func(t *testing.T) {
		first := errors.New("ERROR: Unable to extract video data")
		ext := &fakeExtractor{
			probeErr:   first,
			genericErr: errors.New("ERROR: Unsupported URL"),
		}
		svc := NewDownloadService(NewRegistry(nil, 10, time.Hour), ext)

		_, err := svc.Info(context.Background(), "https://example.com/v")
		assert.ErrorIs(t, err, first)
	})
}
