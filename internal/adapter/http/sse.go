package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bnema/snatch/internal/adapter/http/validation"
	"github.com/bnema/snatch/internal/domain"
	"github.com/bnema/snatch/internal/service"
)

const keepAliveInterval = 15 * time.Second

// SSEHandler streams job snapshots so clients can follow a download without
// polling /api/progress.
type SSEHandler struct {
	bus  *service.EventBus
	jobs JobStore
}

func NewSSEHandler(bus *service.EventBus, jobs JobStore) *SSEHandler {
	return &SSEHandler{
		bus:  bus,
		jobs: jobs,
	}
}

// sseWrite writes an SSE event, handling multi-line data correctly.
func sseWrite(w http.ResponseWriter, eventName string, data string) {
	_, _ = fmt.Fprintf(w, "event: %s\n", eventName)
	for _, line := range strings.Split(data, "\n") {
		_, _ = fmt.Fprintf(w, "data: %s\n", line)
	}
	_, _ = fmt.Fprint(w, "\n")
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// sendKeepAlive writes an SSE comment to keep the connection active.
func sendKeepAlive(w http.ResponseWriter) {
	_, _ = fmt.Fprint(w, ": keep-alive\n\n")
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandler) sendSnapshot(w http.ResponseWriter, job domain.Job) {
	data, err := json.Marshal(job)
	if err != nil {
		return
	}
	sseWrite(w, "progress", string(data))
}

func (h *SSEHandler) Events() http.HandlerFunc {
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

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		// Current state first; terminal jobs need nothing more.
		h.sendSnapshot(w, job)
		if job.State.Terminal() {
			return
		}

		ch := h.bus.Subscribe(id)
		defer h.bus.Unsubscribe(id, ch)

		// The job may have finished between Get and Subscribe; without this
		// the client would hang on keep-alives forever.
		if job, ok := h.jobs.Get(id); ok && job.State.Terminal() {
			h.sendSnapshot(w, job)
			return
		}

		ctx := r.Context()
		keepAlive := time.NewTicker(keepAliveInterval)
		defer keepAlive.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-keepAlive.C:
				sendKeepAlive(w)
			case snapshot, ok := <-ch:
				if !ok {
					return
				}
				h.sendSnapshot(w, snapshot)
				if snapshot.State.Terminal() {
					return
				}
			}
		}
	}
}
