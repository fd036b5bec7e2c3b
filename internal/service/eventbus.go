package service

import (
	"sync"

	"github.com/bnema/snatch/internal/domain"
)

// EventBus fans out job snapshots to progress stream subscribers, keyed by
// job id. Slow subscribers lose intermediate snapshots instead of blocking
// the download worker.
type EventBus struct {
	subscribers map[string][]chan domain.Job
	mu          sync.RWMutex
}

func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[string][]chan domain.Job),
	}
}

func (eb *EventBus) Subscribe(jobID string) chan domain.Job {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	ch := make(chan domain.Job, 16)
	eb.subscribers[jobID] = append(eb.subscribers[jobID], ch)
	return ch
}

func (eb *EventBus) Unsubscribe(jobID string, ch chan domain.Job) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	subs := eb.subscribers[jobID]
	for i, sub := range subs {
		if sub == ch {
			eb.subscribers[jobID] = append(subs[:i], subs[i+1:]...)
			close(ch)
			break
		}
	}

	if len(eb.subscribers[jobID]) == 0 {
		delete(eb.subscribers, jobID)
	}
}

func (eb *EventBus) Publish(jobID string, snapshot domain.Job) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	for _, ch := range eb.subscribers[jobID] {
		select {
		case ch <- snapshot:
		default:
			// Drop the snapshot if the subscriber is slow; the next
			// one supersedes it anyway.
		}
	}
}
