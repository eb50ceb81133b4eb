// Package corpus holds the loaded problem/solution library in a normalized,
// queryable shape.
//
// Two addressing schemes exist in the wild and both are supported behind one
// Store type, discriminated by Scheme:
//
//   - hierarchical: Book → Chapter → []Task, tasks addressed by
//     (bookTitle, chapterTitle, taskId|taskNumber); chapter documents are
//     fetched lazily on first selection (see library.go);
//   - flat: section key → number → Task, addressed by a case-insensitive
//     section-name substring plus a number (see records.go).
//
// The store is loaded once at startup and read-only afterwards. Lookup never
// errors on absence: a missing task is a normal, reportable outcome.
package corpus

import (
	"sort"
	"strconv"
	"strings"
)

// Scheme identifies the addressing scheme a Store was loaded with.
type Scheme string

// Schemes.
const (
	SchemeHierarchical Scheme = "hierarchical"
	SchemeFlat         Scheme = "flat"
)

// Task is one problem with its solution. Immutable once loaded.
type Task struct {
	// ID is the stable identifier, derived from the source path and the
	// task's local index (hierarchical, e.g. "kvant_1970_7") or carried by
	// the record itself (flat).
	ID string

	// Number is the display number shown to the user.
	Number int

	// Problem and Solution are raw markup strings. Solution may be empty.
	Problem  string
	Solution string
}

// ChapterRef points at a chapter document inside the manifest.
type ChapterRef struct {
	Title string
	Path  string
}

// Book is one manifest entry with its chapters.
type Book struct {
	Title    string
	Chapters []ChapterRef
}

// Store is the loaded corpus. Construct with LoadLibrary (hierarchical) or
// LoadRecords (flat); the zero value is an empty flat corpus.
type Store struct {
	scheme Scheme

	// hierarchical
	books   []Book
	library *Library // lazy chapter fetches; nil for flat stores

	// flat: section key → task number → task
	sections    map[string]map[int]Task
	sectionKeys []string // sorted, for deterministic substring matches
}

// Scheme reports the addressing scheme in force.
func (s *Store) Scheme() Scheme { return s.scheme }

// Books returns the manifest books (hierarchical scheme; empty otherwise).
func (s *Store) Books() []Book { return s.books }

// BookTitles returns the manifest book titles in manifest order.
func (s *Store) BookTitles() []string {
	titles := make([]string, 0, len(s.books))
	for _, b := range s.books {
		titles = append(titles, b.Title)
	}
	return titles
}

// SectionKeys returns the known flat section keys in sorted order.
func (s *Store) SectionKeys() []string { return s.sectionKeys }

// FindChapter locates a chapter reference by book and chapter title.
func (s *Store) FindChapter(bookTitle, chapterTitle string) (ChapterRef, bool) {
	for _, b := range s.books {
		if b.Title != bookTitle {
			continue
		}
		for _, ch := range b.Chapters {
			if ch.Title == chapterTitle {
				return ch, true
			}
		}
	}
	return ChapterRef{}, false
}

// LookupSection resolves a flat-scheme task. The section query matches any
// stored key containing it case-insensitively; ties are broken by sorted key
// order so the pick is deterministic. Absence is reported via ok=false.
func (s *Store) LookupSection(sectionQuery string, idOrNumber string) (Task, bool) {
	query := strings.ToLower(strings.TrimSpace(sectionQuery))
	if query == "" {
		return Task{}, false
	}
	for _, key := range s.sectionKeys {
		if !strings.Contains(strings.ToLower(key), query) {
			continue
		}
		if num, ok := parseTaskNumber(idOrNumber); ok {
			if task, ok := s.sections[key][num]; ok {
				return task, true
			}
		}
		// Fall back to a full-ID scan within the matched section.
		for _, task := range s.sections[key] {
			if task.ID == idOrNumber {
				return task, true
			}
		}
		// First matching section wins; a miss inside it is a miss.
		return Task{}, false
	}
	return Task{}, false
}

// FindTask resolves a task within a chapter's task set by fully-qualified ID
// first, then by bare or trailing number ("7" and "kvant_1970_7" both hit
// task number 7).
func FindTask(tasks []Task, idOrNumber string) (Task, bool) {
	for _, t := range tasks {
		if t.ID == idOrNumber {
			return t, true
		}
	}
	if num, ok := parseTaskNumber(idOrNumber); ok {
		for _, t := range tasks {
			if t.Number == num {
				return t, true
			}
		}
	}
	return Task{}, false
}

// parseTaskNumber extracts a task number from either a bare number ("7") or
// the trailing segment of an underscore-separated ID ("kvant_1970_7").
func parseTaskNumber(idOrNumber string) (int, bool) {
	v := strings.TrimSpace(idOrNumber)
	if v == "" {
		return 0, false
	}
	if i := strings.LastIndex(v, "_"); i >= 0 {
		v = v[i+1:]
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// sortedKeys returns map keys in sorted order.
func sortedKeys(m map[string]map[int]Task) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
