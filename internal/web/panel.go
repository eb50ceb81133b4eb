package web

import (
	"net/http"

	"github.com/zadachnik/mathbot/internal/log"
	"github.com/zadachnik/mathbot/internal/transcript"
)

// PanelHandler exposes the image panel controls.
//
// Closing hides the current image but keeps it restorable; reopening brings
// the last shown image back. Both return the resulting panel state, and the
// same transition is also published on /events.
type PanelHandler struct {
	transcript *transcript.Log
	logger     log.Logger
}

// NewPanelHandler creates a new panel handler.
func NewPanelHandler(t *transcript.Log, logger log.Logger) *PanelHandler {
	return &PanelHandler{transcript: t, logger: logger}
}

// RegisterRoutes registers panel routes on the given mux.
func (h *PanelHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/panel/close", h.close)
	mux.HandleFunc("POST /api/panel/reopen", h.reopen)
}

func (h *PanelHandler) close(w http.ResponseWriter, _ *http.Request) {
	h.transcript.ClosePanel()
	writeJSON(h.logger, w, http.StatusOK, h.transcript.Panel())
}

func (h *PanelHandler) reopen(w http.ResponseWriter, _ *http.Request) {
	h.transcript.ReopenLast()
	writeJSON(h.logger, w, http.StatusOK, h.transcript.Panel())
}
