package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/snatch/internal/domain"
	"github.com/bnema/snatch/internal/service"
)

// sseStore hands out fixed jobs and signals every Get, so tests know when
// the handler has passed its subscribe step.
type sseStore struct {
	jobs map[string]domain.Job
	gets chan struct{}
}

func (s *sseStore) Get(id string) (domain.Job, bool) {
	job, ok := s.jobs[id]
	if s.gets != nil {
		s.gets <- struct{}{}
	}
	return job, ok
}

func (s *sseStore) Create(url string, quality domain.Quality, kind domain.MediaKind) domain.Job {
	return domain.Job{}
}

func (s *sseStore) RecentHistory(limit int) []domain.HistoryEntry { return nil }

func (s *sseStore) MarkFailed(id string, kind domain.ErrorKind, detail string) bool { return false }

func sseRequest(ctx context.Context, id string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/events/"+id, nil)
	return withURLParam(req.WithContext(ctx), "id", id)
}

func TestSSEWrite_MultiLineFraming(t *testing.T) {
	rec := httptest.NewRecorder()
	sseWrite(rec, "progress", "line one\nline two")

	assert.Equal(t, "event: progress\ndata: line one\ndata: line two\n\n", rec.Body.String())
}

func TestSendKeepAlive(t *testing.T) {
	rec := httptest.NewRecorder()
	sendKeepAlive(rec)

	assert.Equal(t, ": keep-alive\n\n", rec.Body.String())
}

func TestEvents_InvalidID(t *testing.T) {
	h := NewSSEHandler(service.NewEventBus(), &sseStore{})

	rec := httptest.NewRecorder()
	h.Events()(rec, sseRequest(context.Background(), "not-a-download"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid download ID", decodeBody(t, rec)["error"])
}

func TestEvents_UnknownJob(t *testing.T) {
	h := NewSSEHandler(service.NewEventBus(), &sseStore{jobs: map[string]domain.Job{}})

	rec := httptest.NewRecorder()
	h.Events()(rec, sseRequest(context.Background(), "download_404"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Download not found", decodeBody(t, rec)["error"])
}

func TestEvents_TerminalJobClosesAfterOneFrame(t *testing.T) {
	job := domain.Job{ID: "download_1", State: domain.StateCompleted, Progress: 100, Filename: "clip.mp4"}
	h := NewSSEHandler(service.NewEventBus(), &sseStore{jobs: map[string]domain.Job{job.ID: job}})

	rec := httptest.NewRecorder()
	h.Events()(rec, sseRequest(context.Background(), job.ID))

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	body := rec.Body.String()
	assert.Contains(t, body, `"status":"completed"`)
	assert.Equal(t, 1, strings.Count(body, "event: progress"), "terminal jobs get exactly one frame")
}

func TestEvents_StreamsUntilTerminal(t *testing.T) {
	job := domain.Job{ID: "download_2", State: domain.StateQueued}
	store := &sseStore{
		jobs: map[string]domain.Job{job.ID: job},
		gets: make(chan struct{}, 2),
	}
	bus := service.NewEventBus()
	h := NewSSEHandler(bus, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		h.Events()(rec, sseRequest(ctx, job.ID))
		close(done)
	}()

	// The handler reads the store once before and once after subscribing;
	// after the second read the subscription is live.
	<-store.gets
	<-store.gets

	downloading := job
	downloading.State = domain.StateDownloading
	downloading.Progress = 42
	bus.Publish(job.ID, downloading)

	completed := job
	completed.State = domain.StateCompleted
	completed.Progress = 100
	bus.Publish(job.ID, completed)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not close after the terminal snapshot")
	}

	body := rec.Body.String()
	assert.Contains(t, body, `"status":"queued"`)
	assert.Contains(t, body, `"progress":42`)
	assert.Contains(t, body, `"status":"completed"`)
	require.Equal(t, 3, strings.Count(body, "event: progress"))
}

func TestEvents_StopsWhenClientDisconnects(t *testing.T) {
	job := domain.Job{ID: "download_3", State: domain.StateQueued}
	store := &sseStore{
		jobs: map[string]domain.Job{job.ID: job},
		gets: make(chan struct{}, 2),
	}
	h := NewSSEHandler(service.NewEventBus(), store)

	ctx, cancel := context.WithCancel(context.Background())

	rec := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		h.Events()(rec, sseRequest(ctx, job.ID))
		close(done)
	}()

	<-store.gets
	<-store.gets
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not stop on client disconnect")
	}
}
