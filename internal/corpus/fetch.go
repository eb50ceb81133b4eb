package corpus

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// maxDocumentSize bounds a single corpus document read.
const maxDocumentSize = 32 << 20 // 32 MB

// fetchDocument retrieves one corpus document. Failures are classified:
// network errors and non-success statuses wrap ErrFetch so callers can
// distinguish "could not fetch" from "could not parse".
func fetchDocument(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFetch, url, err)
	}
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFetch, url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: %s", ErrFetch, url, resp.Status)
	}

	// Limit response size (prevent resource exhaustion)
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFetch, url, err)
	}
	return body, nil
}
