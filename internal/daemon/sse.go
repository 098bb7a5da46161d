package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"adloom/internal/logging"
)

const agentStreamSystemPrompt = "You are an assistant for a UGC video ad " +
	"workflow. Answer questions about brand research, ad concepts, and " +
	"script writing concisely."

// handleSessionEvents streams workflow events for one session over SSE.
// The stream ends once the session reaches a terminal state.
func (s *apiServer) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := s.daemon.store.GetSession(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sess == nil {
		s.writeError(w, http.StatusNotFound, "session not found")
		return
	}
	flusher, ok := beginEventStream(w)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	since, _ := strconv.ParseUint(r.URL.Query().Get("since"), 10, 64)
	for {
		current, err := s.daemon.store.GetSession(r.Context(), id)
		if err != nil || current == nil {
			return
		}
		terminal := current.State.IsTerminal()

		events, next, err := s.daemon.hub.Fetch(r.Context(), since, 100, !terminal)
		if err != nil {
			return
		}
		since = next
		for _, evt := range events {
			if evt.SessionID != id {
				continue
			}
			writeEvent(w, evt)
		}
		flusher.Flush()

		if terminal {
			writeEvent(w, logging.Event{
				Type:      logging.EventDone,
				Timestamp: time.Now().UTC(),
				SessionID: id,
				Message:   string(current.State),
			})
			flusher.Flush()
			return
		}
	}
}

// handleAgentStream answers a one-off conversational prompt, streaming
// model tokens over SSE.
func (s *apiServer) handleAgentStream(w http.ResponseWriter, r *http.Request) {
	prompt := strings.TrimSpace(r.URL.Query().Get("prompt"))
	if prompt == "" {
		s.writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	if !s.llm.Configured() {
		s.writeError(w, http.StatusServiceUnavailable, "llm provider is not configured")
		return
	}
	flusher, ok := beginEventStream(w)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	writeEvent(w, logging.Event{
		Type:      logging.EventStepStarted,
		Timestamp: time.Now().UTC(),
		Step:      "respond",
		Message:   "Generating response",
	})
	flusher.Flush()

	_, err := s.llm.Stream(r.Context(), agentStreamSystemPrompt, prompt, func(token string) error {
		writeEvent(w, logging.Event{
			Type:      logging.EventToken,
			Timestamp: time.Now().UTC(),
			Step:      "respond",
			Message:   token,
		})
		flusher.Flush()
		return r.Context().Err()
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		writeEvent(w, logging.Event{
			Type:      logging.EventStepFailed,
			Timestamp: time.Now().UTC(),
			Step:      "respond",
			Message:   err.Error(),
		})
		flusher.Flush()
		return
	}

	writeEvent(w, logging.Event{
		Type:      logging.EventDone,
		Timestamp: time.Now().UTC(),
		Step:      "respond",
	})
	flusher.Flush()
}

func beginEventStream(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	return flusher, true
}

func writeEvent(w http.ResponseWriter, evt logging.Event) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return
	}
	w.Write([]byte("data: "))
	w.Write(payload)
	w.Write([]byte("\n\n"))
}
