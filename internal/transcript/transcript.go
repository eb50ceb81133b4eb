// Package transcript holds the ordered message log driving the chat UI,
// together with the floating image panel state.
//
// The log is append-only with one mutation pattern: an existing message may
// be patched in place, which is how streamed responses accumulate into a
// single visible entry instead of one entry per chunk.
//
// The package never assumes a rendering mechanism. State transitions are
// published to subscribers as Events; the web layer turns them into SSE
// frames, tests read them directly.
package transcript

import (
	"sync"

	"github.com/google/uuid"
)

// Sender identifies who produced a message.
type Sender string

// Senders.
const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message is one transcript entry.
type Message struct {
	ID          string `json:"id"`
	Sender      Sender `json:"sender"`
	Text        string `json:"text"`
	ImageURL    string `json:"imageUrl,omitempty"`
	ImagePrompt string `json:"imagePrompt,omitempty"`

	// Hidden suppresses the entry from the visible transcript while keeping
	// it in transcript state (internal bookkeeping entries).
	Hidden bool `json:"hidden,omitempty"`
}

// Panel is the image panel state. Current is cleared at the start of every
// user turn and chapter switch; Last is sticky until the next reset so a
// "show again" affordance stays available.
type Panel struct {
	Current string `json:"current"`
	Last    string `json:"last"`
}

// EventType discriminates published state transitions.
type EventType string

// Event types.
const (
	EventAppend EventType = "append"
	EventPatch  EventType = "patch"
	EventPanel  EventType = "panel"
	EventTyping EventType = "typing"
)

// Event is one published state transition. Message and Panel are snapshots,
// safe to retain.
type Event struct {
	Type    EventType `json:"type"`
	Message *Message  `json:"message,omitempty"`
	Panel   *Panel    `json:"panel,omitempty"`
	Typing  bool      `json:"typing"`
}

// subscriberBuffer bounds each subscriber's event queue. A subscriber that
// falls this far behind starts losing events rather than blocking the
// pipeline; the web layer resynchronizes from Snapshot on reconnect.
const subscriberBuffer = 64

// Log is the transcript state container. All methods are safe for
// concurrent use.
type Log struct {
	mu       sync.RWMutex
	messages []Message
	panel    Panel
	typing   bool
	subs     map[uint64]chan Event
	nextSub  uint64
}

// New creates an empty transcript log.
func New() *Log {
	return &Log{subs: make(map[uint64]chan Event)}
}

// Append adds a message to the end of the log. A missing ID is assigned.
// Returns the stored message (with its ID).
func (l *Log) Append(m Message) Message {
	l.mu.Lock()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	l.messages = append(l.messages, m)
	l.publishLocked(Event{Type: EventAppend, Message: &m})
	l.mu.Unlock()
	return m
}

// Patch rewrites the message with the given ID in place. Returns false when
// no such message exists: the caller's turn is stale and the patch is
// dropped, never applied to some other message.
func (l *Log) Patch(id string, mutate func(*Message)) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.messages {
		if l.messages[i].ID == id {
			mutate(&l.messages[i])
			m := l.messages[i]
			l.publishLocked(Event{Type: EventPatch, Message: &m})
			return true
		}
	}
	return false
}

// Messages returns a copy of the current log.
func (l *Log) Messages() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// ShowImage opens the panel on url and remembers it as the last shown image.
func (l *Log) ShowImage(url string) {
	l.mu.Lock()
	l.panel.Current = url
	l.panel.Last = url
	p := l.panel
	l.publishLocked(Event{Type: EventPanel, Panel: &p})
	l.mu.Unlock()
}

// ClosePanel hides the panel but keeps Last for reopening.
func (l *Log) ClosePanel() {
	l.mu.Lock()
	l.panel.Current = ""
	p := l.panel
	l.publishLocked(Event{Type: EventPanel, Panel: &p})
	l.mu.Unlock()
}

// ReopenLast restores the panel to the last shown image, if any.
func (l *Log) ReopenLast() {
	l.mu.Lock()
	if l.panel.Last != "" {
		l.panel.Current = l.panel.Last
	}
	p := l.panel
	l.publishLocked(Event{Type: EventPanel, Panel: &p})
	l.mu.Unlock()
}

// ResetImages clears both panel URLs. Called at the start of every user
// turn and on chapter switches.
func (l *Log) ResetImages() {
	l.mu.Lock()
	l.panel = Panel{}
	p := l.panel
	l.publishLocked(Event{Type: EventPanel, Panel: &p})
	l.mu.Unlock()
}

// Panel returns the current panel state.
func (l *Log) Panel() Panel {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.panel
}

// SetTyping publishes the "bot is typing" indicator state.
func (l *Log) SetTyping(v bool) {
	l.mu.Lock()
	l.typing = v
	l.publishLocked(Event{Type: EventTyping, Typing: v})
	l.mu.Unlock()
}

// Typing reports the current typing indicator state.
func (l *Log) Typing() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.typing
}

// Snapshot returns the full state for subscriber resynchronization.
func (l *Log) Snapshot() ([]Message, Panel, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out, l.panel, l.typing
}

// Subscribe registers a new event subscriber. The returned cancel function
// unregisters it and closes the channel; it is safe to call more than once.
func (l *Log) Subscribe() (<-chan Event, func()) {
	l.mu.Lock()
	id := l.nextSub
	l.nextSub++
	ch := make(chan Event, subscriberBuffer)
	l.subs[id] = ch
	l.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.subs, id)
			close(ch)
			l.mu.Unlock()
		})
	}
	return ch, cancel
}

// publishLocked fans an event out to all subscribers. Callers hold l.mu.
// Slow subscribers lose events instead of stalling the pipeline.
func (l *Log) publishLocked(ev Event) {
	for _, ch := range l.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
