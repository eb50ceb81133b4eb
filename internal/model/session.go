package model

import (
	"context"

	"google.golang.org/genai"

	"github.com/zadachnik/mathbot/internal/corpus"
	"github.com/zadachnik/mathbot/internal/log"
)

// PinnedChapter is one chapter's full task set baked into a session so the
// model can reference tasks without a lookup round-trip.
type PinnedChapter struct {
	BookTitle    string
	ChapterTitle string
	Tasks        []corpus.Task
}

// SessionContext is the set of facts a session is created with. A handle is
// immutable once created; switching context means creating a new handle and
// discarding the old one.
type SessionContext struct {
	// Scheme selects the tool parameter shape declared to the model.
	Scheme corpus.Scheme

	// BookTitles lists available books (hierarchical scheme).
	BookTitles []string

	// SectionKeys lists available sections (flat scheme).
	SectionKeys []string

	// Pinned, when set, inlines one chapter's tasks into the system context.
	Pinned *PinnedChapter
}

// ToolCall is one structured tool invocation surfaced during streaming.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// ToolResult is one machine-readable tool resolution sent back to the model
// in the round-trip reporting discipline.
type ToolResult struct {
	ID       string
	Name     string
	Response map[string]any
}

// Increment is one unit of an incremental model response: zero or more text
// fragments, zero or more tool-call requests, or a transport error. The
// increment channel closes when the stream ends.
type Increment struct {
	Text  string
	Calls []ToolCall
	Err   error
}

// Outbound is one message into a session: plain user text, or a batch of
// tool results re-entering the conversation.
type Outbound struct {
	Text    string
	Results []ToolResult
}

// parts converts an outbound message to genai content parts.
func (o Outbound) parts() []genai.Part {
	if len(o.Results) > 0 {
		parts := make([]genai.Part, 0, len(o.Results))
		for _, r := range o.Results {
			parts = append(parts, genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       r.ID,
				Name:     r.Name,
				Response: r.Response,
			}})
		}
		return parts
	}
	return []genai.Part{{Text: o.Text}}
}

// Session is one active conversation handle. All context (system
// instruction, tool declarations, temperature) is baked in at creation.
type Session struct {
	chat   *genai.Chat
	client *Client
	logger log.Logger
}

// StartSession creates a conversation handle for the given context. This is
// the first point that needs the API key; ErrMissingAPIKey surfaces here.
func (c *Client) StartSession(ctx context.Context, sc SessionContext) (*Session, error) {
	api, err := c.ensureAPI(ctx)
	if err != nil {
		return nil, err
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction(sc), genai.RoleUser),
		Temperature:       genai.Ptr(c.cfg.Temperature),
		Tools: []*genai.Tool{
			{FunctionDeclarations: Declarations(sc.Scheme)},
		},
	}

	chat, err := api.Chats.Create(ctx, c.cfg.ChatModel, cfg, nil)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("session started",
		"scheme", string(sc.Scheme),
		"books", len(sc.BookTitles),
		"sections", len(sc.SectionKeys),
		"pinned", sc.Pinned != nil)

	return &Session{chat: chat, client: c, logger: c.logger}, nil
}

// Send submits an outbound message and returns a channel of response
// increments. A producer goroutine drains the underlying SDK stream; the
// channel closes when the stream ends or the context is done. Reading stops
// on the first increment carrying Err.
//
// Cancellation is "stop reading": cancel ctx and the producer exits even if
// the transport cannot be cancelled upstream.
func (s *Session) Send(ctx context.Context, out Outbound) (<-chan Increment, error) {
	if err := s.client.wait(ctx); err != nil {
		return nil, err
	}

	ch := make(chan Increment)
	go func() {
		defer close(ch)
		for resp, err := range s.chat.SendMessageStream(ctx, out.parts()...) {
			inc := Increment{Err: err}
			if err == nil {
				inc.Text = resp.Text()
				for _, fc := range resp.FunctionCalls() {
					inc.Calls = append(inc.Calls, ToolCall{ID: fc.ID, Name: fc.Name, Args: fc.Args})
				}
			}
			select {
			case ch <- inc:
			case <-ctx.Done():
				return
			}
			if inc.Err != nil {
				return
			}
		}
	}()
	return ch, nil
}
