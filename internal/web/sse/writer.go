// Package sse provides Server-Sent Events utilities for streaming transcript
// updates to the browser.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Writer wraps an http.ResponseWriter for SSE streaming. Payloads are JSON;
// the browser side decodes them with EventSource listeners.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewWriter creates a new SSE writer and sets appropriate headers.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flusher interface")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	return &Writer{w: w, flusher: flusher}, nil
}

// WriteEvent sends a named event whose data is the JSON encoding of payload.
func (w *Writer) WriteEvent(ctx context.Context, event string, payload any) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("context canceled: %w", ctx.Err())
	default:
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return w.writeSSEData(event, string(data))
}

// WriteError sends an error event with a machine code and a message.
func (w *Writer) WriteError(code, message string) error {
	data, err := json.Marshal(map[string]string{"code": code, "message": message})
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}
	return w.writeSSEData("error", string(data))
}

// writeSSEData writes data in SSE format, handling multi-line content.
// SSE spec requires each line of data to be prefixed with "data: ".
func (w *Writer) writeSSEData(event, content string) error {
	if _, err := fmt.Fprintf(w.w, "event: %s\n", event); err != nil {
		return fmt.Errorf("write event name: %w", err)
	}

	for _, line := range strings.Split(content, "\n") {
		if _, err := fmt.Fprintf(w.w, "data: %s\n", line); err != nil {
			return fmt.Errorf("write data line: %w", err)
		}
	}

	// Empty line terminates the event
	if _, err := w.w.Write([]byte("\n")); err != nil {
		return fmt.Errorf("write terminator: %w", err)
	}

	w.flusher.Flush()
	return nil
}
