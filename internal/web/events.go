package web

import (
	"net/http"

	"github.com/zadachnik/mathbot/internal/log"
	"github.com/zadachnik/mathbot/internal/transcript"
	"github.com/zadachnik/mathbot/internal/web/sse"
)

// EventsHandler streams transcript state to the browser over SSE.
//
// On connect the client receives one "snapshot" event with the full
// transcript, then live "append", "patch", "panel" and "typing" events. The
// subscriber queue is bounded; a client that falls behind loses events and
// resynchronizes by reconnecting, which replays the snapshot.
type EventsHandler struct {
	transcript *transcript.Log
	logger     log.Logger
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(t *transcript.Log, logger log.Logger) *EventsHandler {
	return &EventsHandler{transcript: t, logger: logger}
}

// RegisterRoutes registers the events route on the given mux.
func (h *EventsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /events", h.stream)
}

// Snapshot is the payload of the initial "snapshot" event.
type Snapshot struct {
	Messages []transcript.Message `json:"messages"`
	Panel    transcript.Panel     `json:"panel"`
	Typing   bool                 `json:"typing"`
}

func (h *EventsHandler) stream(w http.ResponseWriter, r *http.Request) {
	writer, err := sse.NewWriter(w)
	if err != nil {
		h.logger.Error("streaming not supported")
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()

	// Subscribe before the snapshot so transitions between the two are not
	// lost; duplicates are harmless because patch and panel events are
	// idempotent on the client.
	events, cancel := h.transcript.Subscribe()
	defer cancel()

	messages, panel, typing := h.transcript.Snapshot()
	if err := writer.WriteEvent(ctx, "snapshot", Snapshot{Messages: messages, Panel: panel, Typing: typing}); err != nil {
		h.logger.Debug("snapshot write failed", "error", err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := writer.WriteEvent(ctx, string(ev.Type), ev); err != nil {
				h.logger.Debug("event write failed", "error", err)
				return
			}
		}
	}
}
