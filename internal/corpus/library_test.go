package corpus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zadachnik/mathbot/internal/log"
)

const manifestJSON = `{
	"zadachnik_kvanta_utf8": {
		"1970": {"title": "1970", "chapter_json": "kvant/1970/chapter.json"},
		"broken": 42
	},
	"not_a_book": "string value"
}`

const chapterJSON = `[
	{"i": 1, "problem": "Докажите.\\ Это легко.", "solution": "Решение 1"},
	{"i": 2, "problem": "Вторая задача", "solution": "Решение 2"},
	{"problem": "нет номера", "solution": "пропустить"},
	"not an object"
]`

func libraryServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/index.json", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(manifestJSON))
	})
	mux.HandleFunc("/kvant/1970/chapter.json", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(chapterJSON))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestLoadLibrary(t *testing.T) {
	srv := libraryServer(t)

	var reports []Progress
	store, err := LoadLibrary(context.Background(), LibraryConfig{
		ManifestURL: srv.URL + "/index.json",
		BaseURL:     srv.URL + "/",
		Logger:      log.NewNop(),
	}, func(p Progress) { reports = append(reports, p) })
	require.NoError(t, err)

	require.Equal(t, SchemeHierarchical, store.Scheme())
	require.Len(t, store.Books(), 1, "non-book entries are skipped")
	assert.Equal(t, "zadachnik kvanta", store.Books()[0].Title, "slug transformed to display title")
	require.Len(t, store.Books()[0].Chapters, 1, "malformed chapter entries are skipped")

	// Progress reported at least start and done.
	require.NotEmpty(t, reports)
	assert.Contains(t, reports[0].Status, "манифеста")
	assert.Equal(t, 1, reports[len(reports)-1].FilesDiscovered)
}

func TestChapterLazyLoad(t *testing.T) {
	srv := libraryServer(t)

	store, err := LoadLibrary(context.Background(), LibraryConfig{
		ManifestURL: srv.URL + "/index.json",
		BaseURL:     srv.URL + "/",
		Logger:      log.NewNop(),
	}, nil)
	require.NoError(t, err)

	tasks, err := store.Chapter(context.Background(), "zadachnik kvanta", "1970")
	require.NoError(t, err)
	require.Len(t, tasks, 2, "malformed records are skipped silently")

	assert.Equal(t, "kvant_1970_1", tasks[0].ID)
	assert.Equal(t, 1, tasks[0].Number)
	assert.Equal(t, "Докажите. Это легко.", tasks[0].Problem, "TeX dot-backslash artifact cleaned")

	// Second call is served from cache (same slice contents).
	again, err := store.Chapter(context.Background(), "zadachnik kvanta", "1970")
	require.NoError(t, err)
	assert.Equal(t, tasks, again)
}

func TestChapterUnknown(t *testing.T) {
	srv := libraryServer(t)

	store, err := LoadLibrary(context.Background(), LibraryConfig{
		ManifestURL: srv.URL + "/index.json",
		BaseURL:     srv.URL + "/",
	}, nil)
	require.NoError(t, err)

	_, err = store.Chapter(context.Background(), "zadachnik kvanta", "1999")
	assert.ErrorIs(t, err, ErrChapterUnavailable)
}

func TestChapterFetchFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/index.json", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(manifestJSON))
	})
	// No chapter route: chapter fetches 404.
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	store, err := LoadLibrary(context.Background(), LibraryConfig{
		ManifestURL: srv.URL + "/index.json",
		BaseURL:     srv.URL + "/",
	}, nil)
	require.NoError(t, err)

	// A failing chapter does not invalidate the manifest.
	_, err = store.Chapter(context.Background(), "zadachnik kvanta", "1970")
	assert.ErrorIs(t, err, ErrChapterUnavailable)
	assert.Len(t, store.Books(), 1)
}

func TestLoadLibraryFetchVsParse(t *testing.T) {
	t.Run("unreachable manifest is a fetch error", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		t.Cleanup(srv.Close)

		_, err := LoadLibrary(context.Background(), LibraryConfig{
			ManifestURL: srv.URL + "/index.json",
			BaseURL:     srv.URL + "/",
		}, nil)
		assert.ErrorIs(t, err, ErrFetch)
	})

	t.Run("malformed manifest is a parse error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("not json at all"))
		}))
		t.Cleanup(srv.Close)

		_, err := LoadLibrary(context.Background(), LibraryConfig{
			ManifestURL: srv.URL + "/index.json",
			BaseURL:     srv.URL + "/",
		}, nil)
		assert.ErrorIs(t, err, ErrParse)
		assert.NotErrorIs(t, err, ErrFetch)
	})
}
