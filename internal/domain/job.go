package domain

import (
	"time"
)

type JobState string

const (
	StateQueued      JobState = "queued"
	StateStarting    JobState = "starting"
	StateDownloading JobState = "downloading"
	StateProcessing  JobState = "processing"
	StateCompleted   JobState = "completed"
	StateError       JobState = "error"
)

// Terminal reports whether the state admits no further transitions.
func (s JobState) Terminal() bool {
	return s == StateCompleted || s == StateError
}

// Active reports whether the job currently occupies a worker.
func (s JobState) Active() bool {
	return s == StateStarting || s == StateDownloading || s == StateProcessing
}

// transitions lists the states reachable from each non-terminal state.
// Downloading and processing alternate on merged downloads: the video and
// audio streams arrive as separate passes, each ending in a finished event.
var transitions = map[JobState]map[JobState]bool{
	StateQueued:      {StateStarting: true, StateError: true},
	StateStarting:    {StateDownloading: true, StateProcessing: true, StateCompleted: true, StateError: true},
	StateDownloading: {StateDownloading: true, StateProcessing: true, StateCompleted: true, StateError: true},
	StateProcessing:  {StateDownloading: true, StateProcessing: true, StateCompleted: true, StateError: true},
}

// CanTransition reports whether moving from s to next is allowed.
func (s JobState) CanTransition(next JobState) bool {
	return transitions[s][next]
}

// Job is the unit of download tracking. The registry owns the canonical
// record and hands out copies; nothing outside the registry mutates one.
type Job struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	State       JobState  `json:"status"`
	Progress    float64   `json:"progress"`
	Quality     Quality   `json:"quality"`
	Kind        MediaKind `json:"format"`
	Filename    string    `json:"filename,omitempty"`
	Downloaded  int64     `json:"downloaded"`
	Total       int64     `json:"total"`
	Speed       float64   `json:"speed"`
	SpeedHuman  string    `json:"speed_human,omitempty"`
	ETA         int       `json:"eta"`
	Title       string    `json:"title,omitempty"`
	Thumbnail   string    `json:"thumbnail,omitempty"`
	Duration    int       `json:"duration,omitempty"`
	Uploader    string    `json:"uploader,omitempty"`
	Error       string    `json:"error,omitempty"`
	Suggestion  string    `json:"suggestion,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at,omitzero"`
}

func NewJob(id, url string, quality Quality, kind MediaKind) *Job {
	return &Job{
		ID:        id,
		URL:       url,
		State:     StateQueued,
		Quality:   quality,
		Kind:      kind,
		StartedAt: time.Now(),
	}
}

// Progress is a point-in-time measurement reported by the extractor while
// a download is running.
type Progress struct {
	Percent    float64
	Downloaded int64
	Total      int64
	Speed      float64
	ETA        int
	Filename   string
}
