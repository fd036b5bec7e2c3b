package service

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/bnema/snatch/internal/domain"
	"github.com/bnema/snatch/internal/infrastructure/logger"
)

const historyLimit = 50

// EventPublisher receives a snapshot of a job after every accepted mutation.
type EventPublisher interface {
	Publish(jobID string, snapshot domain.Job)
}

// Registry is the in-memory source of truth for download jobs. All reads
// return copies; all writes go through mutate, which enforces the job state
// machine and publishes the resulting snapshot.
type Registry struct {
	mu         sync.RWMutex
	jobs       map[string]*domain.Job
	terminalAt map[string]time.Time
	history    []domain.HistoryEntry

	bus     EventPublisher
	maxJobs int
	ttl     time.Duration

	seq atomic.Int64
	now func() time.Time
}

func NewRegistry(bus EventPublisher, maxJobs int, ttl time.Duration) *Registry {
	r := &Registry{
		jobs:       make(map[string]*domain.Job),
		terminalAt: make(map[string]time.Time),
		bus:        bus,
		maxJobs:    maxJobs,
		ttl:        ttl,
		now:        time.Now,
	}
	// Seed the id counter with wall-clock millis so ids stay unique across
	// restarts for clients that poll a stale id.
	r.seq.Store(time.Now().UnixMilli())
	return r
}

// Create registers a new queued job and returns a copy of it.
func (r *Registry) Create(url string, quality domain.Quality, kind domain.MediaKind) domain.Job {
	id := fmt.Sprintf("download_%d", r.seq.Add(1))
	job := domain.NewJob(id, url, quality, kind)

	r.mu.Lock()
	r.jobs[id] = job
	if len(r.jobs) > r.maxJobs {
		r.evictOldestTerminalLocked()
	}
	snapshot := *job
	r.mu.Unlock()

	r.publish(id, snapshot)
	return snapshot
}

// Get returns a copy of the job, so callers can never mutate registry state.
func (r *Registry) Get(id string) (domain.Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return domain.Job{}, false
	}
	return *job, true
}

// MarkStarting moves a queued job to the starting state.
func (r *Registry) MarkStarting(id string) bool {
	return r.mutate(id, func(job *domain.Job) bool {
		return r.transition(job, domain.StateStarting)
	})
}

// SetMetadata records the probed title, thumbnail, uploader and duration.
// It does not change the job state.
func (r *Registry) SetMetadata(id string, info domain.MediaInfo) bool {
	return r.mutate(id, func(job *domain.Job) bool {
		if job.State.Terminal() {
			return false
		}
		job.Title = info.Title
		job.Thumbnail = info.Thumbnail
		job.Uploader = info.Uploader
		job.Duration = info.Duration
		return true
	})
}

// UpdateProgress applies a progress report from the extractor. The job moves
// to downloading if it is not already there; within a continuous downloading
// run the percentage never goes backwards.
func (r *Registry) UpdateProgress(id string, p domain.Progress) bool {
	return r.mutate(id, func(job *domain.Job) bool {
		wasDownloading := job.State == domain.StateDownloading
		if !wasDownloading && !r.transition(job, domain.StateDownloading) {
			return false
		}
		if wasDownloading && p.Percent < job.Progress {
			p.Percent = job.Progress
		}
		if p.Total > 0 && p.Downloaded > p.Total {
			p.Downloaded = p.Total
		}
		job.Progress = clampPercent(p.Percent)
		job.Downloaded = p.Downloaded
		job.Total = p.Total
		job.Speed = p.Speed
		job.SpeedHuman = humanSpeed(p.Speed)
		job.ETA = p.ETA
		if p.Filename != "" {
			job.Filename = p.Filename
		}
		return true
	})
}

// MarkProcessing records that the raw download finished and post-processing
// (merge, transcode) has taken over.
func (r *Registry) MarkProcessing(id, filename string) bool {
	return r.mutate(id, func(job *domain.Job) bool {
		if !r.transition(job, domain.StateProcessing) {
			return false
		}
		job.Progress = 100
		job.Speed = 0
		job.SpeedHuman = ""
		job.ETA = 0
		if filename != "" {
			job.Filename = filename
		}
		return true
	})
}

// MarkCompleted finalizes a successful job and appends it to the history.
func (r *Registry) MarkCompleted(id, filename string) bool {
	now := r.now()
	return r.mutate(id, func(job *domain.Job) bool {
		if !r.transition(job, domain.StateCompleted) {
			return false
		}
		job.Progress = 100
		job.Speed = 0
		job.SpeedHuman = ""
		job.ETA = 0
		if filename != "" {
			job.Filename = filename
		}
		job.CompletedAt = now

		r.terminalAt[id] = now
		r.history = append(r.history, domain.HistoryEntry{
			ID:          job.ID,
			URL:         job.URL,
			Title:       job.Title,
			Quality:     job.Quality,
			Kind:        job.Kind,
			Filename:    job.Filename,
			CompletedAt: now,
		})
		if len(r.history) > historyLimit {
			r.history = r.history[len(r.history)-historyLimit:]
		}
		return true
	})
}

// MarkFailed moves a job to the error state with a classified message. The
// detail is kept verbatim when the classifier has nothing better to say.
func (r *Registry) MarkFailed(id string, kind domain.ErrorKind, detail string) bool {
	now := r.now()
	return r.mutate(id, func(job *domain.Job) bool {
		if !r.transition(job, domain.StateError) {
			return false
		}
		msg := kind.Message()
		if msg == "" {
			msg = detail
		}
		job.Error = msg
		job.Suggestion = kind.Suggestion()
		job.Speed = 0
		job.SpeedHuman = ""
		job.ETA = 0

		r.terminalAt[id] = now
		return true
	})
}

// RecentHistory returns up to limit completed downloads, most recent first.
func (r *Registry) RecentHistory(limit int) []domain.HistoryEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 || limit > len(r.history) {
		limit = len(r.history)
	}
	out := make([]domain.HistoryEntry, 0, limit)
	for i := len(r.history) - 1; i >= len(r.history)-limit; i-- {
		out = append(out, r.history[i])
	}
	return out
}

// EvictExpired drops terminal jobs whose retention window has passed and
// returns how many were removed. Active jobs are never touched.
func (r *Registry) EvictExpired() int {
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, at := range r.terminalAt {
		if at.Before(cutoff) {
			delete(r.jobs, id)
			delete(r.terminalAt, id)
			removed++
		}
	}
	for len(r.jobs) > r.maxJobs {
		if !r.evictOldestTerminalLocked() {
			break
		}
		removed++
	}
	if removed > 0 {
		logger.Debug().Int("removed", removed).Msg("evicted expired jobs")
	}
	return removed
}

// mutate runs fn against the stored job under the write lock and publishes a
// snapshot when fn reports a change. Each job has a single mutating goroutine,
// so snapshots reach the bus in mutation order.
func (r *Registry) mutate(id string, fn func(*domain.Job) bool) bool {
	r.mu.Lock()
	job, ok := r.jobs[id]
	if !ok {
		r.mu.Unlock()
		return false
	}
	changed := fn(job)
	var snapshot domain.Job
	if changed {
		snapshot = *job
	}
	r.mu.Unlock()

	if changed {
		r.publish(id, snapshot)
	}
	return changed
}

func (r *Registry) transition(job *domain.Job, to domain.JobState) bool {
	if !job.State.CanTransition(to) {
		logger.Debug().
			Str("job_id", job.ID).
			Str("from", string(job.State)).
			Str("to", string(to)).
			Msg("ignoring invalid state transition")
		return false
	}
	job.State = to
	return true
}

func (r *Registry) evictOldestTerminalLocked() bool {
	var oldestID string
	var oldestAt time.Time
	for id, at := range r.terminalAt {
		if oldestID == "" || at.Before(oldestAt) {
			oldestID = id
			oldestAt = at
		}
	}
	if oldestID == "" {
		return false
	}
	delete(r.jobs, oldestID)
	delete(r.terminalAt, oldestID)
	return true
}

func (r *Registry) publish(id string, snapshot domain.Job) {
	if r.bus != nil {
		r.bus.Publish(id, snapshot)
	}
}

func clampPercent(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}

func humanSpeed(bytesPerSec float64) string {
	if bytesPerSec <= 0 {
		return ""
	}
	return humanize.Bytes(uint64(bytesPerSec)) + "/s"
}
