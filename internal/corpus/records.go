package corpus

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/zadachnik/mathbot/internal/log"
)

// RecordsConfig configures the flat (NDJSON) loader.
type RecordsConfig struct {
	// URLs are the record documents, one self-contained JSON record per line.
	URLs []string

	// Client is optional; http.DefaultClient is used when nil.
	Client *http.Client

	Logger log.Logger
}

// record is one NDJSON line. Solution is optional; problem-only and
// solution-only records for the same (section, number) key merge.
type record struct {
	ID       string `json:"id"`
	Section  string `json:"section"`
	Number   *int   `json:"number"`
	Problem  string `json:"problem"`
	Solution string `json:"solution"`
}

// maxRecordLine bounds a single NDJSON line.
const maxRecordLine = 4 << 20 // 4 MB

// LoadRecords fetches the record documents and builds a flat Store.
//
// Malformed lines are skipped silently; a failed fetch of any document is
// fatal to the whole load. Progress is reported per document.
func LoadRecords(ctx context.Context, cfg RecordsConfig, progress ProgressFunc) (*Store, error) {
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	sections := make(map[string]map[int]Task)
	var totalBytes int64
	records := 0

	progress.report(Progress{
		Status:          "Загрузка библиотеки задач...",
		FilesDiscovered: len(cfg.URLs),
	})

	for i, url := range cfg.URLs {
		body, err := fetchDocument(ctx, client, url)
		if err != nil {
			progress.report(Progress{Status: "Ошибка: не удалось получить файл задач."})
			return nil, err
		}
		totalBytes += int64(len(body))

		scanner := bufio.NewScanner(bytes.NewReader(body))
		scanner.Buffer(make([]byte, 64*1024), maxRecordLine)
		skipped := 0
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			var r record
			if err := json.Unmarshal(line, &r); err != nil || r.Section == "" || r.Number == nil {
				skipped++
				continue
			}
			addRecord(sections, r)
			records++
		}
		if err := scanner.Err(); err != nil {
			// The document itself is unreadable past this point; that is a
			// top-level failure, not a per-record one.
			return nil, fmt.Errorf("%w: %s: %v", ErrParse, url, err)
		}
		if skipped > 0 {
			logger.Debug("skipped malformed records", "url", url, "skipped", skipped)
		}

		progress.report(Progress{
			Status:          fmt.Sprintf("Загружено файлов: %d из %d", i+1, len(cfg.URLs)),
			FilesDiscovered: len(cfg.URLs),
			FilesProcessed:  i + 1,
			Bytes:           totalBytes,
			Records:         records,
		})
	}

	store := &Store{
		scheme:      SchemeFlat,
		sections:    sections,
		sectionKeys: sortedKeys(sections),
	}
	progress.report(Progress{
		Status:          "Библиотека загружена.",
		FilesDiscovered: len(cfg.URLs),
		FilesProcessed:  len(cfg.URLs),
		Bytes:           totalBytes,
		Records:         records,
	})
	logger.Info("corpus records loaded", "sections", len(store.sectionKeys), "records", records)
	return store, nil
}

// addRecord merges a record into the section tables. Problem and solution
// texts for the same key may arrive in separate records; they join on
// (section, number), later non-empty fields filling earlier gaps.
func addRecord(sections map[string]map[int]Task, r record) {
	byNumber := sections[r.Section]
	if byNumber == nil {
		byNumber = make(map[int]Task)
		sections[r.Section] = byNumber
	}

	task := byNumber[*r.Number]
	task.Number = *r.Number
	if task.ID == "" {
		task.ID = r.ID
	}
	if r.Problem != "" {
		task.Problem = cleanTeX(r.Problem)
	}
	if r.Solution != "" {
		task.Solution = cleanTeX(r.Solution)
	}
	byNumber[*r.Number] = task
}
