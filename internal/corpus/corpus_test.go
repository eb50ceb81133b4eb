package corpus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatStore(sections map[string]map[int]Task) *Store {
	return &Store{
		scheme:      SchemeFlat,
		sections:    sections,
		sectionKeys: sortedKeys(sections),
	}
}

func TestFindTask(t *testing.T) {
	tasks := []Task{
		{ID: "kvant_1970_7", Number: 7, Problem: "P7"},
		{ID: "kvant_1970_12", Number: 12, Problem: "P12"},
	}

	tests := []struct {
		name   string
		query  string
		wantID string
		wantOK bool
	}{
		{name: "full id", query: "kvant_1970_7", wantID: "kvant_1970_7", wantOK: true},
		{name: "bare number", query: "7", wantID: "kvant_1970_7", wantOK: true},
		{name: "number with spaces", query: " 12 ", wantID: "kvant_1970_12", wantOK: true},
		{name: "foreign id with matching trailing number", query: "other_book_7", wantID: "kvant_1970_7", wantOK: true},
		{name: "unknown number", query: "99", wantOK: false},
		{name: "garbage", query: "abc", wantOK: false},
		{name: "empty", query: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task, ok := FindTask(tasks, tt.query)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.wantID, task.ID)
			}
		})
	}
}

// Bare numeric lookup and fully-qualified ID lookup must resolve to the
// identical task when both exist.
func TestFindTaskNumberAndIDAgree(t *testing.T) {
	tasks := []Task{{ID: "kvant_1970_7", Number: 7, Problem: "P"}}

	byID, ok := FindTask(tasks, "kvant_1970_7")
	require.True(t, ok)
	byNumber, ok := FindTask(tasks, "7")
	require.True(t, ok)
	assert.Equal(t, byID, byNumber)
}

func TestLookupSectionSubstring(t *testing.T) {
	store := flatStore(map[string]map[int]Task{
		"7 класс - Делимость и остатки": {
			1: {ID: "div_1", Number: 1, Problem: "Докажите, что..."},
		},
		"8 класс - Неравенства": {
			1: {ID: "ineq_1", Number: 1, Problem: "Сравните..."},
		},
	})

	// Case-insensitive containment match against the stored key.
	task, ok := store.LookupSection("делимость", "1")
	require.True(t, ok)
	assert.Equal(t, "div_1", task.ID)

	// Exact key works too.
	task, ok = store.LookupSection("7 класс - Делимость и остатки", "1")
	require.True(t, ok)
	assert.Equal(t, "div_1", task.ID)

	// Full record ID inside a matched section.
	task, ok = store.LookupSection("делимость", "div_1")
	require.True(t, ok)
	assert.Equal(t, 1, task.Number)
}

func TestLookupSectionMisses(t *testing.T) {
	store := flatStore(map[string]map[int]Task{
		"7 класс - Делимость и остатки": {1: {ID: "div_1", Number: 1}},
	})

	_, ok := store.LookupSection("геометрия", "1")
	assert.False(t, ok, "unknown section")

	_, ok = store.LookupSection("делимость", "2")
	assert.False(t, ok, "unknown number in known section")

	_, ok = store.LookupSection("", "1")
	assert.False(t, ok, "empty section query")
}

// When several keys contain the query, the pick follows sorted key order so
// it is deterministic across runs.
func TestLookupSectionAmbiguityDeterministic(t *testing.T) {
	store := flatStore(map[string]map[int]Task{
		"б - дроби": {1: {ID: "second", Number: 1}},
		"а - дроби": {1: {ID: "first", Number: 1}},
	})

	for range 10 {
		task, ok := store.LookupSection("дроби", "1")
		require.True(t, ok)
		assert.Equal(t, "first", task.ID)
	}
}

func TestFindChapter(t *testing.T) {
	store := &Store{
		scheme: SchemeHierarchical,
		books: []Book{{
			Title: "Задачник Кванта",
			Chapters: []ChapterRef{
				{Title: "1970", Path: "kvant/1970/chapter.json"},
			},
		}},
	}

	ref, ok := store.FindChapter("Задачник Кванта", "1970")
	require.True(t, ok)
	assert.Equal(t, "kvant/1970/chapter.json", ref.Path)

	_, ok = store.FindChapter("Задачник Кванта", "1971")
	assert.False(t, ok)

	assert.Equal(t, []string{"Задачник Кванта"}, store.BookTitles())
}
