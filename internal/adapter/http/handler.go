package http

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"

	"github.com/bnema/snatch/internal/adapter/http/validation"
	"github.com/bnema/snatch/internal/domain"
	"github.com/bnema/snatch/internal/infrastructure/logger"
)

const historyLimit = 50

// JobStore is the slice of the registry the handlers need.
type JobStore interface {
	Create(url string, quality domain.Quality, kind domain.MediaKind) domain.Job
	Get(id string) (domain.Job, bool)
	RecentHistory(limit int) []domain.HistoryEntry
	MarkFailed(id string, kind domain.ErrorKind, detail string) bool
}

// JobQueue accepts jobs for execution.
type JobQueue interface {
	Enqueue(jobID string) error
}

// MediaProber answers metadata questions without downloading.
type MediaProber interface {
	Info(ctx context.Context, url string) (*domain.MediaInfo, error)
}

type Handlers struct {
	jobs        JobStore
	queue       JobQueue
	prober      MediaProber
	downloadDir string
}

func NewHandlers(jobs JobStore, queue JobQueue, prober MediaProber, downloadDir string) *Handlers {
	return &Handlers{
		jobs:        jobs,
		queue:       queue,
		prober:      prober,
		downloadDir: downloadDir,
	}
}

type downloadRequest struct {
	URL     string `json:"url"`
	Quality string `json:"quality"`
	Format  string `json:"format"`
}

func (h *Handlers) StartDownload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req downloadRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.URL) == "" {
			writeError(w, http.StatusBadRequest, "Missing required fields: url", "")
			return
		}

		url, err := validation.ValidateURL(req.URL)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid URL", err.Error())
			return
		}
		quality, err := domain.ParseQuality(req.Quality)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid quality parameter", "")
			return
		}
		kind, err := domain.ParseKind(req.Format)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid format parameter", "")
			return
		}

		job := h.jobs.Create(url, quality, kind)
		if err := h.queue.Enqueue(job.ID); err != nil {
			if errors.Is(err, domain.ErrQueueFull) {
				h.jobs.MarkFailed(job.ID, domain.ErrKindQueueFull, err.Error())
				writeError(w, http.StatusServiceUnavailable,
					domain.ErrKindQueueFull.Message(), domain.ErrKindQueueFull.Suggestion())
				return
			}
			h.jobs.MarkFailed(job.ID, domain.ErrKindUnknown, err.Error())
			writeError(w, http.StatusServiceUnavailable, "Server is shutting down", "Try again shortly")
			return
		}

		logger.Info().Str("job_id", job.ID).Str("url", logger.SanitizeForLog(url)).Msg("download queued")
		writeJSON(w, http.StatusOK, map[string]any{
			"success":     true,
			"download_id": job.ID,
			"message":     "Download started",
		})
	}
}

func (h *Handlers) Progress() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := validation.SanitizeJobID(chi.URLParam(r, "id"))
		if !validation.ValidJobID(id) {
			writeError(w, http.StatusBadRequest, "Invalid download ID", "")
			return
		}

		job, ok := h.jobs.Get(id)
		if !ok {
			writeError(w, http.StatusNotFound, "Download not found", "")
			return
		}
		writeJSON(w, http.StatusOK, job)
	}
}

type infoResponse struct {
	Success     bool                  `json:"success"`
	Title       string                `json:"title"`
	Duration    int                   `json:"duration"`
	Thumbnail   string                `json:"thumbnail"`
	Uploader    string                `json:"uploader"`
	Description string                `json:"description"`
	ViewCount   int64                 `json:"view_count"`
	Formats     []domain.FormatOption `json:"formats"`
}

func (h *Handlers) Info() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req downloadRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.URL) == "" {
			writeError(w, http.StatusBadRequest, "Missing required fields: url", "")
			return
		}

		url, err := validation.ValidateURL(req.URL)
		if err != nil {
			writeErrorDetails(w, http.StatusBadRequest, "Invalid URL", err.Error(),
				"Please provide a valid HTTP/HTTPS URL")
			return
		}

		info, err := h.prober.Info(r.Context(), url)
		if err != nil {
			kind := domain.Classify(err.Error())
			msg := kind.Message()
			if msg == "" {
				// Unknown failures surface the raw extractor text.
				writeError(w, http.StatusInternalServerError, err.Error(), kind.Suggestion())
				return
			}
			writeErrorDetails(w, http.StatusInternalServerError, msg, kind.Suggestion(), err.Error())
			return
		}

		formats := info.Formats
		if formats == nil {
			formats = []domain.FormatOption{}
		}
		writeJSON(w, http.StatusOK, infoResponse{
			Success:     true,
			Title:       info.Title,
			Duration:    info.Duration,
			Thumbnail:   info.Thumbnail,
			Uploader:    info.Uploader,
			Description: truncateRunes(info.Description, 200),
			ViewCount:   info.ViewCount,
			Formats:     formats,
		})
	}
}

func (h *Handlers) History() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries := h.jobs.RecentHistory(historyLimit)
		if entries == nil {
			entries = []domain.HistoryEntry{}
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

type fileEntry struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	SizeHuman string    `json:"size_human"`
	Modified  time.Time `json:"modified"`
}

func (h *Handlers) Downloads() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := os.ReadDir(h.downloadDir)
		if err != nil {
			logger.Error().Err(err).Msg("listing downloads failed")
			writeError(w, http.StatusInternalServerError, "Cannot list downloads", "")
			return
		}

		files := make([]fileEntry, 0, len(entries))
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			files = append(files, fileEntry{
				Name:      entry.Name(),
				Size:      info.Size(),
				SizeHuman: humanize.Bytes(uint64(info.Size())),
				Modified:  info.ModTime(),
			})
		}
		writeJSON(w, http.StatusOK, files)
	}
}

// supportedSites is a curated subset; the extractor handles far more.
var supportedSites = []string{
	"YouTube", "Vimeo", "TikTok", "Twitter/X", "Instagram", "Facebook",
	"Dailymotion", "Twitch", "Reddit", "SoundCloud", "Bandcamp",
	"VK", "Rumble", "Odysee", "Bilibili", "Niconico", "Archive.org",
	"And 1000+ more sites...",
}

func (h *Handlers) SupportedSites() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, supportedSites)
	}
}

func (h *Handlers) File() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, err := validation.RequestedFilename(chi.URLParam(r, "filename"))
		if err != nil {
			writeError(w, http.StatusNotFound, "File not found", "")
			return
		}

		path := filepath.Join(h.downloadDir, name)
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			writeError(w, http.StatusNotFound, "File not found", "")
			return
		}

		w.Header().Set("Content-Disposition", validation.ContentDisposition(name))
		http.ServeFile(w, r, path)
	}
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
