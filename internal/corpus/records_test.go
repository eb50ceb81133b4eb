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

const recordsNDJSON = `{"id": "div_1", "section": "7 класс - Делимость и остатки", "number": 1, "problem": "Докажите, что..."}
{"id": "div_1s", "section": "7 класс - Делимость и остатки", "number": 1, "solution": "Заметим, что..."}
{"id": "div_2", "section": "7 класс - Делимость и остатки", "number": 2, "problem": "Найдите остаток.", "solution": "Остаток 3."}
not a json line
{"id": "no_number", "section": "7 класс - Делимость и остатки", "problem": "пропустить"}

{"id": "ineq_1", "section": "8 класс - Неравенства", "number": 1, "problem": "Сравните."}`

func TestLoadRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(recordsNDJSON))
	}))
	t.Cleanup(srv.Close)

	var reports []Progress
	store, err := LoadRecords(context.Background(), RecordsConfig{
		URLs:   []string{srv.URL + "/tasks.ndjson"},
		Logger: log.NewNop(),
	}, func(p Progress) { reports = append(reports, p) })
	require.NoError(t, err)

	require.Equal(t, SchemeFlat, store.Scheme())
	assert.Equal(t, []string{
		"7 класс - Делимость и остатки",
		"8 класс - Неравенства",
	}, store.SectionKeys())

	// Problem-only and solution-only records joined on (section, number).
	task, ok := store.LookupSection("делимость", "1")
	require.True(t, ok)
	assert.Equal(t, "Докажите, что...", task.Problem)
	assert.Equal(t, "Заметим, что...", task.Solution)

	task, ok = store.LookupSection("делимость", "2")
	require.True(t, ok)
	assert.Equal(t, "Остаток 3.", task.Solution)

	// Malformed and empty lines skipped silently: 4 good records total.
	last := reports[len(reports)-1]
	assert.Equal(t, 4, last.Records)
	assert.Equal(t, 1, last.FilesProcessed)
}

func TestLoadRecordsFetchFailureIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	_, err := LoadRecords(context.Background(), RecordsConfig{
		URLs: []string{srv.URL + "/tasks.ndjson"},
	}, nil)
	assert.ErrorIs(t, err, ErrFetch)
}

func TestLoadRecordsMultipleFiles(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/a.ndjson", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id": "a1", "section": "Алгебра", "number": 1, "problem": "A"}`))
	})
	mux.HandleFunc("/b.ndjson", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id": "b1", "section": "Геометрия", "number": 1, "problem": "B"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	store, err := LoadRecords(context.Background(), RecordsConfig{
		URLs: []string{srv.URL + "/a.ndjson", srv.URL + "/b.ndjson"},
	}, nil)
	require.NoError(t, err)
	assert.Len(t, store.SectionKeys(), 2)
}
