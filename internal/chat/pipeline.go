// Package chat implements the response-stream processing and tool-call
// orchestration pipeline: it consumes incremental model responses, mutates
// the transcript, extracts inline picture directives from partial text,
// dispatches tool invocations against the corpus and the illustrator, and
// reconciles all of it against user input and session resets.
//
// Concurrency model: one logical thread of control per pipeline. The turn
// loop is the only mutator of transcript and panel state; user-facing entry
// points are gated by a busy flag, so concurrent sends are rejected at the
// boundary rather than queued. Each turn allocates a fresh accumulator and
// message ID, so increments from an abandoned turn can only ever patch their
// own message.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/zadachnik/mathbot/internal/corpus"
	"github.com/zadachnik/mathbot/internal/log"
	"github.com/zadachnik/mathbot/internal/model"
	"github.com/zadachnik/mathbot/internal/picture"
	"github.com/zadachnik/mathbot/internal/transcript"
)

var (
	// ErrBusy is returned when a send arrives while a turn (including its
	// nested tool round-trips) is still resolving.
	ErrBusy = errors.New("a turn is already in progress")

	// ErrEmptyMessage is returned for blank user input.
	ErrEmptyMessage = errors.New("empty message")
)

// ReportMode selects the tool-result reporting discipline. It is chosen
// once at pipeline construction and applied consistently, never mixed.
type ReportMode int

const (
	// ReportDirect shows tool results in the transcript and ends the turn
	// there; nothing is sent back to the model. Default for the
	// hierarchical corpus.
	ReportDirect ReportMode = iota

	// ReportRoundTrip additionally serializes each resolution into a
	// machine-readable result and feeds the batch back into the session so
	// the model can produce a follow-up. Default for the flat corpus.
	ReportRoundTrip
)

// maxToolRounds bounds nested tool round-trips within one user turn.
const maxToolRounds = 4

// defaultTurnTimeout bounds one stream-draining round when the config does
// not say otherwise, so a stalled transport cannot leave the bot "typing"
// forever.
const defaultTurnTimeout = 2 * time.Minute

// Corpus is the abstract corpus capability the pipeline consumes. Both
// addressing schemes satisfy it through *corpus.Store; their key spaces
// stay separate, discriminated by Scheme.
type Corpus interface {
	Scheme() corpus.Scheme
	BookTitles() []string
	SectionKeys() []string
	LookupSection(sectionQuery, idOrNumber string) (corpus.Task, bool)
	Chapter(ctx context.Context, bookTitle, chapterTitle string) ([]corpus.Task, error)
}

// Transport is one active conversation handle. *model.Session implements
// it; tests substitute fakes.
type Transport interface {
	Send(ctx context.Context, out model.Outbound) (<-chan model.Increment, error)
}

// SessionFactory creates a conversation handle for a context. Replacing the
// context means calling this again and discarding the old handle.
type SessionFactory func(ctx context.Context, sc model.SessionContext) (Transport, error)

// Illustrator is the opaque async illustration boundary. An empty URL with
// nil error means "no image produced".
type Illustrator interface {
	GenerateIllustration(ctx context.Context, prompt string) (string, error)
}

// Config contains all required parameters for a Pipeline.
type Config struct {
	Corpus      Corpus
	Transcript  *transcript.Log
	Sessions    SessionFactory
	Illustrator Illustrator
	Extractor   picture.Extractor
	Logger      log.Logger

	// Mode defaults per corpus scheme: hierarchical → ReportDirect,
	// flat → ReportRoundTrip.
	Mode *ReportMode

	// TurnTimeout bounds one stream-draining round. Zero uses the default.
	TurnTimeout time.Duration
}

func (cfg Config) validate() error {
	if cfg.Corpus == nil {
		return errors.New("corpus store is required")
	}
	if cfg.Transcript == nil {
		return errors.New("transcript log is required")
	}
	if cfg.Sessions == nil {
		return errors.New("session factory is required")
	}
	if cfg.Illustrator == nil {
		return errors.New("illustrator is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Pipeline drives conversations for one user against one corpus.
type Pipeline struct {
	corpus      Corpus
	log         *transcript.Log
	sessions    SessionFactory
	illustrator Illustrator
	extractor   picture.Extractor
	logger      log.Logger
	mode        ReportMode
	turnTimeout time.Duration

	mu      sync.Mutex
	busy    bool
	session Transport            // current handle; nil until first use
	pinned  *model.PinnedChapter // chapter baked into the current handle
}

// New creates a Pipeline and appends the greeting to the transcript.
func New(cfg Config) (*Pipeline, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	mode := ReportDirect
	if cfg.Corpus.Scheme() == corpus.SchemeFlat {
		mode = ReportRoundTrip
	}
	if cfg.Mode != nil {
		mode = *cfg.Mode
	}

	timeout := cfg.TurnTimeout
	if timeout <= 0 {
		timeout = defaultTurnTimeout
	}

	p := &Pipeline{
		corpus:      cfg.Corpus,
		log:         cfg.Transcript,
		sessions:    cfg.Sessions,
		illustrator: cfg.Illustrator,
		extractor:   cfg.Extractor,
		logger:      cfg.Logger,
		mode:        mode,
		turnTimeout: timeout,
	}

	p.log.Append(transcript.Message{Sender: transcript.SenderBot, Text: msgGreeting})
	return p, nil
}

// Busy reports whether a turn is currently resolving.
func (p *Pipeline) Busy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.busy
}

func (p *Pipeline) acquire() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.busy {
		return false
	}
	p.busy = true
	return true
}

func (p *Pipeline) release() {
	p.mu.Lock()
	p.busy = false
	p.mu.Unlock()
}

// Send runs one user turn: append the user message, drain the response
// stream, dispatch tool calls, and stabilize the transcript. It blocks until
// the turn (including nested tool round-trips) is resolved.
//
// Concurrent sends are rejected with ErrBusy. Model and transport failures
// are resolved in-band (fixed apology in the transcript) and do not return
// an error: from the caller's perspective the turn happened and closed.
func (p *Pipeline) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	if !p.acquire() {
		return ErrBusy
	}
	defer p.release()

	sess, err := p.ensureSession(ctx)
	if err != nil {
		p.logger.Error("session unavailable", "error", err)
		p.log.Append(transcript.Message{Sender: transcript.SenderBot, Text: msgAIError})
		return nil
	}

	p.log.ResetImages()
	p.log.Append(transcript.Message{Sender: transcript.SenderUser, Text: text})

	p.runTurn(ctx, sess, model.Outbound{Text: text}, 0)
	return nil
}

// runTurn drains one stream-draining round. Tool round-trips re-enter with
// depth+1 up to maxToolRounds.
func (p *Pipeline) runTurn(ctx context.Context, sess Transport, out model.Outbound, depth int) {
	ctx, cancel := context.WithTimeout(ctx, p.turnTimeout)
	defer cancel()

	p.log.SetTyping(true)
	defer p.log.SetTyping(false)

	increments, err := sess.Send(ctx, out)
	if err != nil {
		p.logger.Error("send failed", "error", err)
		p.log.Append(transcript.Message{Sender: transcript.SenderBot, Text: msgAIError})
		return
	}

	// Fresh accumulator and message ID per round: stale increments can
	// never patch a later turn's message.
	var (
		acc     strings.Builder
		msgID   string
		results []model.ToolResult
	)

drain:
	for {
		var inc model.Increment
		select {
		case next, ok := <-increments:
			if !ok {
				break drain
			}
			inc = next
		case <-ctx.Done():
			// Stalled or over-deadline transport: bound the wait and close
			// the turn as a normal stream failure.
			p.logger.Error("stream draining aborted", "error", ctx.Err())
			p.closeWithApology(msgID)
			return
		}

		if inc.Err != nil {
			p.logger.Error("stream failed mid-turn", "error", inc.Err)
			p.closeWithApology(msgID)
			return
		}

		// Tool calls take precedence over text for this increment and are
		// never rendered as text.
		if len(inc.Calls) > 0 {
			for _, call := range inc.Calls {
				res := p.dispatch(ctx, call)
				if p.mode == ReportRoundTrip {
					results = append(results, res)
				}
			}
			continue
		}

		if inc.Text == "" {
			continue
		}
		acc.WriteString(inc.Text)

		// The full accumulator is re-scanned on every increment so the
		// panel opens as soon as a directive becomes visible mid-stream,
		// and a later directive supersedes an earlier one.
		cleaned, imageURL := p.extractor.Extract(acc.String())
		if imageURL != "" {
			p.log.ShowImage(imageURL)
		}

		if msgID == "" {
			m := p.log.Append(transcript.Message{Sender: transcript.SenderBot, Text: cleaned})
			msgID = m.ID
		} else {
			p.log.Patch(msgID, func(m *transcript.Message) { m.Text = cleaned })
		}
	}

	if len(results) > 0 && depth < maxToolRounds {
		// Bookkeeping entry for the round-trip; hidden from the visible
		// transcript but present in transcript state.
		p.log.Append(transcript.Message{
			Sender: transcript.SenderBot,
			Text:   fmt.Sprintf("tool results reported: %d", len(results)),
			Hidden: true,
		})
		p.runTurn(ctx, sess, model.Outbound{Results: results}, depth+1)
	}
}

// closeWithApology discards the turn's partial output: the in-progress
// message (if any) is replaced with the fixed apology, otherwise the apology
// is appended. Either way the turn closes with no dangling placeholder.
func (p *Pipeline) closeWithApology(msgID string) {
	if msgID != "" {
		p.log.Patch(msgID, func(m *transcript.Message) {
			m.Text = msgAIError
			m.ImageURL = ""
		})
		return
	}
	p.log.Append(transcript.Message{Sender: transcript.SenderBot, Text: msgAIError})
}

// SwitchChapter loads a chapter's task set and replaces the session handle
// with one whose context pins that chapter. The swap is atomic from the
// UI's perspective; a failed chapter load keeps the previous session and
// manifest intact.
func (p *Pipeline) SwitchChapter(ctx context.Context, bookTitle, chapterTitle string) error {
	if !p.acquire() {
		return ErrBusy
	}
	defer p.release()

	p.log.SetTyping(true)
	defer p.log.SetTyping(false)
	p.log.ResetImages()

	tasks, err := p.corpus.Chapter(ctx, bookTitle, chapterTitle)
	if err != nil {
		p.logger.Error("chapter load failed", "book", bookTitle, "chapter", chapterTitle, "error", err)
		p.log.Append(transcript.Message{
			Sender: transcript.SenderBot,
			Text:   fmt.Sprintf(msgChapterLoadFailed, chapterTitle),
		})
		return nil
	}

	pinned := &model.PinnedChapter{BookTitle: bookTitle, ChapterTitle: chapterTitle, Tasks: tasks}
	sess, err := p.sessions(ctx, p.sessionContext(pinned))
	if err != nil {
		p.logger.Error("session recreation failed", "error", err)
		p.log.Append(transcript.Message{Sender: transcript.SenderBot, Text: msgAIError})
		return nil
	}

	// The old handle is discarded; anything it still streams is keyed to
	// its own turn's message IDs and cannot reach the new conversation.
	p.mu.Lock()
	p.session = sess
	p.pinned = pinned
	p.mu.Unlock()

	p.logger.Info("chapter selected", "book", bookTitle, "chapter", chapterTitle, "tasks", len(tasks))
	p.log.Append(transcript.Message{
		Sender: transcript.SenderBot,
		Text:   fmt.Sprintf(msgChapterSwitched, chapterTitle, bookTitle),
	})
	return nil
}

// ensureSession returns the current handle, creating the first one lazily.
// This is the point where a missing API key surfaces.
func (p *Pipeline) ensureSession(ctx context.Context) (Transport, error) {
	p.mu.Lock()
	sess := p.session
	pinned := p.pinned
	p.mu.Unlock()
	if sess != nil {
		return sess, nil
	}

	sess, err := p.sessions(ctx, p.sessionContext(pinned))
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.session = sess
	p.mu.Unlock()
	return sess, nil
}

// sessionContext assembles the facts a new session handle is created with.
func (p *Pipeline) sessionContext(pinned *model.PinnedChapter) model.SessionContext {
	sc := model.SessionContext{Scheme: p.corpus.Scheme(), Pinned: pinned}
	if p.corpus.Scheme() == corpus.SchemeFlat {
		sc.SectionKeys = p.corpus.SectionKeys()
	} else {
		sc.BookTitles = p.corpus.BookTitles()
	}
	return sc
}
