package corpus

import "errors"

var (
	// ErrFetch indicates a corpus document could not be fetched (network
	// failure or non-success HTTP status). Fatal for startup loads.
	ErrFetch = errors.New("could not fetch corpus document")

	// ErrParse indicates a top-level corpus document could not be parsed.
	// Individual malformed records are skipped and never produce this.
	ErrParse = errors.New("could not parse corpus document")

	// ErrChapterUnavailable indicates one chapter's task document failed to
	// load. The manifest stays valid; the chapter simply has no tasks.
	ErrChapterUnavailable = errors.New("chapter tasks unavailable")
)
