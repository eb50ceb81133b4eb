package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/zadachnik/mathbot/internal/chat"
	"github.com/zadachnik/mathbot/internal/log"
)

// maxChatBody bounds request bodies on the mutation endpoints.
const maxChatBody = 64 << 10

// ChatHandler handles the message and chapter endpoints.
//
// Endpoints:
//   - POST /api/chat    - send one user message
//   - POST /api/chapter - switch the pinned chapter
//
// Both block until the pipeline resolves the turn; transcript updates reach
// the browser over /events, the HTTP response only reports acceptance.
type ChatHandler struct {
	pipeline *chat.Pipeline
	logger   log.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(pipeline *chat.Pipeline, logger log.Logger) *ChatHandler {
	return &ChatHandler{pipeline: pipeline, logger: logger}
}

// RegisterRoutes registers chat routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chat", h.send)
	mux.HandleFunc("POST /api/chapter", h.switchChapter)
}

// ChatRequest is the POST /api/chat body.
type ChatRequest struct {
	Text string `json:"text"`
}

// ChapterRequest is the POST /api/chapter body.
type ChapterRequest struct {
	Book    string `json:"book"`
	Chapter string `json:"chapter"`
}

func (h *ChatHandler) send(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBody)).Decode(&req); err != nil {
		writeError(h.logger, w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	switch err := h.pipeline.Send(r.Context(), req.Text); {
	case errors.Is(err, chat.ErrEmptyMessage):
		writeError(h.logger, w, http.StatusBadRequest, "empty_message", "text is required")
	case errors.Is(err, chat.ErrBusy):
		writeError(h.logger, w, http.StatusConflict, "busy", "a turn is already in progress")
	case err != nil:
		h.logger.Error("send failed", "error", err)
		writeError(h.logger, w, http.StatusInternalServerError, "internal", "send failed")
	default:
		writeJSON(h.logger, w, http.StatusOK, map[string]bool{"ok": true})
	}
}

func (h *ChatHandler) switchChapter(w http.ResponseWriter, r *http.Request) {
	var req ChapterRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBody)).Decode(&req); err != nil {
		writeError(h.logger, w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if req.Book == "" || req.Chapter == "" {
		writeError(h.logger, w, http.StatusBadRequest, "invalid_request", "book and chapter are required")
		return
	}

	switch err := h.pipeline.SwitchChapter(r.Context(), req.Book, req.Chapter); {
	case errors.Is(err, chat.ErrBusy):
		writeError(h.logger, w, http.StatusConflict, "busy", "a turn is already in progress")
	case err != nil:
		h.logger.Error("chapter switch failed", "error", err)
		writeError(h.logger, w, http.StatusInternalServerError, "internal", "chapter switch failed")
	default:
		writeJSON(h.logger, w, http.StatusOK, map[string]bool{"ok": true})
	}
}
