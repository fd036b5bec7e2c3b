package domain

import "time"

// HistoryEntry is the record kept once a download completes. History is
// memory-only and bounded; it does not survive a restart.
type HistoryEntry struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Quality     Quality   `json:"quality"`
	Kind        MediaKind `json:"format"`
	Filename    string    `json:"filename"`
	CompletedAt time.Time `json:"completed_at"`
}
