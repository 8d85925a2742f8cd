package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/seantiz/puppilot/internal/engine"
)

// handleSailEvents streams a sail's progress as server-sent events: one
// "snapshot" event with the current state, one data event per slot change,
// and a final "done" event once the sail completes.
func (s *Server) handleSailEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := s.engine.Status(r.Context(), id); err != nil {
		if errors.Is(err, engine.ErrSailNotFound) {
			s.writeError(w, http.StatusNotFound, "sail not found")
			return
		}
		s.logger.Error("get sail for events", "sail_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get sail")
		return
	}

	// Set SSE headers.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Sails from an earlier process will never publish; the topic is
	// closed for them so the stream ends right after the snapshot.
	if !s.engine.Known(id) {
		s.engine.Broker().Close(id)
	}

	// Disable write timeout for long-lived SSE connections.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		s.logger.Error("set write deadline for SSE", "error", err)
	}

	// Subscribe before taking the snapshot so no change falls in between.
	// A completed sail has a closed topic, which ends the loop below at once.
	ch, unsub := s.engine.Broker().Subscribe(id)
	defer unsub()

	snap, err := s.engine.Status(r.Context(), id)
	if err != nil {
		s.logger.Error("get sail snapshot", "sail_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get sail")
		return
	}

	w.WriteHeader(http.StatusOK)
	flusher, canFlush := w.(http.Flusher)
	flush := func() {
		if canFlush {
			flusher.Flush()
		}
	}

	if err := writeSSEJSON(w, "snapshot", snap); err != nil {
		return
	}
	flush()

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				// Sail finished; send explicit done event before closing.
				_ = writeSSEEvent(w, "done", "stream complete")
				flush()
				return
			}
			if err := writeSSEJSON(w, "", ev); err != nil {
				return // Write failed (e.g. client gone).
			}
			flush()
		case <-r.Context().Done():
			return // Client disconnected.
		}
	}
}

// writeSSEJSON writes v as the data of an SSE event. An empty eventType
// writes an unnamed data event.
func writeSSEJSON(w http.ResponseWriter, eventType string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if eventType == "" {
		return writeSSEData(w, string(data))
	}
	return writeSSEEvent(w, eventType, string(data))
}

// writeSSEData writes a line as an SSE data event. Multi-line strings are
// split so that each segment gets its own "data:" prefix, as the event-stream format requires.
func writeSSEData(w http.ResponseWriter, line string) error {
	for seg := range strings.SplitSeq(line, "\n") {
		if _, err := fmt.Fprintf(w, "data: %s\n", seg); err != nil {
			return err
		}
	}
	// Blank line terminates the event.
	_, err := fmt.Fprint(w, "\n")
	return err
}

// writeSSEEvent writes a named SSE event (event: <type>\ndata: <data>\n\n).
func writeSSEEvent(w http.ResponseWriter, eventType, data string) error {
	if _, err := fmt.Fprintf(w, "event: %s\n", eventType); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return nil
}
