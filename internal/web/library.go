package web

import (
	"net/http"

	"github.com/zadachnik/mathbot/internal/corpus"
	"github.com/zadachnik/mathbot/internal/log"
)

// LibraryHandler serves the corpus listing the chapter picker is built from.
type LibraryHandler struct {
	store  *corpus.Store
	logger log.Logger
}

// NewLibraryHandler creates a new library handler.
func NewLibraryHandler(store *corpus.Store, logger log.Logger) *LibraryHandler {
	return &LibraryHandler{store: store, logger: logger}
}

// RegisterRoutes registers the library route on the given mux.
func (h *LibraryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/library", h.list)
}

// LibraryResponse is the GET /api/library body. Books is populated for the
// hierarchical corpus, Sections for the flat one.
type LibraryResponse struct {
	Scheme   corpus.Scheme `json:"scheme"`
	Books    []BookEntry   `json:"books,omitempty"`
	Sections []string      `json:"sections,omitempty"`
}

// BookEntry is one book with its chapter titles.
type BookEntry struct {
	Title    string   `json:"title"`
	Chapters []string `json:"chapters"`
}

func (h *LibraryHandler) list(w http.ResponseWriter, _ *http.Request) {
	resp := LibraryResponse{Scheme: h.store.Scheme()}

	if h.store.Scheme() == corpus.SchemeFlat {
		resp.Sections = h.store.SectionKeys()
	} else {
		for _, book := range h.store.Books() {
			entry := BookEntry{Title: book.Title}
			for _, ch := range book.Chapters {
				entry.Chapters = append(entry.Chapters, ch.Title)
			}
			resp.Books = append(resp.Books, entry)
		}
	}

	writeJSON(h.logger, w, http.StatusOK, resp)
}
