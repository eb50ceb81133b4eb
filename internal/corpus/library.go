package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/zadachnik/mathbot/internal/log"
)

// LibraryConfig configures the hierarchical (manifest-based) loader.
type LibraryConfig struct {
	// ManifestURL is the global chapter index document.
	ManifestURL string

	// BaseURL prefixes relative chapter paths from the manifest.
	BaseURL string

	// Client is optional; http.DefaultClient is used when nil.
	Client *http.Client

	Logger log.Logger
}

// Library fetches chapter task documents lazily and caches them. Owned by a
// hierarchical Store.
type Library struct {
	client  *http.Client
	baseURL string
	logger  log.Logger

	mu       sync.Mutex
	chapters map[string][]Task // by manifest path
}

// rawChapter is one manifest chapter entry. Entries of other shapes are
// skipped, matching the tolerant per-record policy.
type rawChapter struct {
	Title       string `json:"title"`
	ChapterJSON string `json:"chapter_json"`
}

// LoadLibrary fetches and transforms the manifest into a hierarchical Store.
// Chapter task documents are NOT fetched here; they load lazily on first
// selection via Store.Chapter.
//
// A fetch or top-level parse failure is fatal to the load and reported with
// a diagnostic distinguishing the two.
func LoadLibrary(ctx context.Context, cfg LibraryConfig, progress ProgressFunc) (*Store, error) {
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	progress.report(Progress{Status: "Загрузка манифеста библиотеки..."})

	body, err := fetchDocument(ctx, client, cfg.ManifestURL)
	if err != nil {
		progress.report(Progress{Status: "Ошибка: не удалось получить манифест."})
		return nil, err
	}

	var rawBooks map[string]json.RawMessage
	if err := json.Unmarshal(body, &rawBooks); err != nil {
		progress.report(Progress{Status: "Ошибка: не удалось разобрать манифест."})
		return nil, fmt.Errorf("%w: манифест %s: %v", ErrParse, cfg.ManifestURL, err)
	}

	// Sort book slugs so the resulting order is stable across runs.
	slugs := make([]string, 0, len(rawBooks))
	for slug := range rawBooks {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	var books []Book
	chapterCount := 0
	for _, slug := range slugs {
		var rawChapters map[string]rawChapter
		if err := json.Unmarshal(rawBooks[slug], &rawChapters); err != nil {
			// Not a book-shaped entry; skip it, do not abort the batch.
			continue
		}

		keys := make([]string, 0, len(rawChapters))
		for key := range rawChapters {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		var chapters []ChapterRef
		for _, key := range keys {
			ch := rawChapters[key]
			if ch.ChapterJSON == "" {
				continue
			}
			title := ch.Title
			if title == "" {
				title = key
			}
			chapters = append(chapters, ChapterRef{Title: title, Path: ch.ChapterJSON})
		}
		if len(chapters) == 0 {
			continue
		}

		books = append(books, Book{Title: bookTitle(slug), Chapters: chapters})
		chapterCount += len(chapters)
	}

	progress.report(Progress{
		Status:          "Манифест загружен. Выберите книгу и главу.",
		FilesDiscovered: chapterCount,
		FilesProcessed:  1,
		Bytes:           int64(len(body)),
	})
	logger.Info("corpus manifest loaded", "books", len(books), "chapters", chapterCount)

	return &Store{
		scheme: SchemeHierarchical,
		books:  books,
		library: &Library{
			client:   client,
			baseURL:  cfg.BaseURL,
			logger:   logger,
			chapters: make(map[string][]Task),
		},
	}, nil
}

// bookTitle turns a manifest slug into a display title:
// "4_klass_utf8" → "4 klass".
func bookTitle(slug string) string {
	title := strings.TrimSuffix(slug, "_utf8")
	return strings.ReplaceAll(title, "_", " ")
}

// Chapter returns the task set for a chapter, fetching its document on first
// use. A fetch or parse failure wraps ErrChapterUnavailable and leaves the
// rest of the manifest intact; the chapter resolves to an empty task set.
func (s *Store) Chapter(ctx context.Context, bookTitle, chapterTitle string) ([]Task, error) {
	if s.library == nil {
		return nil, fmt.Errorf("%w: корпус не иерархический", ErrChapterUnavailable)
	}
	ref, ok := s.FindChapter(bookTitle, chapterTitle)
	if !ok {
		return nil, fmt.Errorf("%w: глава %q книги %q не найдена в манифесте",
			ErrChapterUnavailable, chapterTitle, bookTitle)
	}
	return s.library.chapter(ctx, ref.Path)
}

func (l *Library) chapter(ctx context.Context, path string) ([]Task, error) {
	l.mu.Lock()
	cached, ok := l.chapters[path]
	l.mu.Unlock()
	if ok {
		return cached, nil
	}

	body, err := fetchDocument(ctx, l.client, l.baseURL+path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChapterUnavailable, err)
	}

	var rawTasks []json.RawMessage
	if err := json.Unmarshal(body, &rawTasks); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrChapterUnavailable, path, err)
	}

	// Unique ID prefix from the document path:
	// "4_klass_utf8/chapter_1/chapter.json" → "4_klass_utf8_chapter_1".
	prefix := strings.ReplaceAll(strings.TrimSuffix(path, "/chapter.json"), "/", "_")

	tasks := make([]Task, 0, len(rawTasks))
	skipped := 0
	for _, raw := range rawTasks {
		var rt struct {
			I        *int    `json:"i"`
			Problem  *string `json:"problem"`
			Solution *string `json:"solution"`
		}
		if err := json.Unmarshal(raw, &rt); err != nil || rt.I == nil || rt.Problem == nil || rt.Solution == nil {
			skipped++
			continue
		}
		tasks = append(tasks, Task{
			ID:       fmt.Sprintf("%s_%d", prefix, *rt.I),
			Number:   *rt.I,
			Problem:  cleanTeX(*rt.Problem),
			Solution: cleanTeX(*rt.Solution),
		})
	}
	if skipped > 0 {
		l.logger.Debug("skipped malformed chapter records", "path", path, "skipped", skipped)
	}

	l.mu.Lock()
	l.chapters[path] = tasks
	l.mu.Unlock()
	return tasks, nil
}

// cleanTeX removes a common TeX artifact where ".\" forces a space after a
// period; rendered as markup it just leaves a stray backslash.
func cleanTeX(text string) string {
	return strings.ReplaceAll(text, ".\\", ".")
}
