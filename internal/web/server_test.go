package web

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zadachnik/mathbot/internal/chat"
	"github.com/zadachnik/mathbot/internal/corpus"
	"github.com/zadachnik/mathbot/internal/log"
	"github.com/zadachnik/mathbot/internal/model"
	"github.com/zadachnik/mathbot/internal/picture"
	"github.com/zadachnik/mathbot/internal/transcript"
)

const recordsNDJSON = `{"id":"sec_1","section":"7 класс - Делимость и остатки","number":1,"problem":"Докажите, что сумма двух чётных чисел чётна.","solution":"Вынесите двойку за скобки."}
{"id":"sec_2","section":"7 класс - Делимость и остатки","number":2,"problem":"Найдите остаток."}
`

// blockedTransport keeps the turn open until release is closed, so busy
// rejection can be observed over HTTP.
type blockedTransport struct {
	release chan struct{}
	started chan struct{}
}

func (b *blockedTransport) Send(context.Context, model.Outbound) (<-chan model.Increment, error) {
	b.started <- struct{}{}
	ch := make(chan model.Increment)
	go func() {
		<-b.release
		close(ch)
	}()
	return ch, nil
}

type scriptedTransport struct {
	rounds [][]model.Increment
}

func (s *scriptedTransport) Send(context.Context, model.Outbound) (<-chan model.Increment, error) {
	var script []model.Increment
	if len(s.rounds) > 0 {
		script = s.rounds[0]
		s.rounds = s.rounds[1:]
	}
	ch := make(chan model.Increment, len(script))
	for _, inc := range script {
		ch <- inc
	}
	close(ch)
	return ch, nil
}

type noIllustrator struct{}

func (noIllustrator) GenerateIllustration(context.Context, string) (string, error) {
	return "", nil
}

func flatStore(t *testing.T) *corpus.Store {
	t.Helper()
	fixture := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(recordsNDJSON))
	}))
	t.Cleanup(fixture.Close)

	store, err := corpus.LoadRecords(context.Background(), corpus.RecordsConfig{
		URLs:   []string{fixture.URL + "/sections.ndjson"},
		Logger: log.NewNop(),
	}, nil)
	require.NoError(t, err)
	return store
}

func newTestServer(t *testing.T, tr chat.Transport) (*Server, *transcript.Log) {
	t.Helper()
	store := flatStore(t)
	tl := transcript.New()
	pipeline, err := chat.New(chat.Config{
		Corpus:     store,
		Transcript: tl,
		Sessions: func(context.Context, model.SessionContext) (chat.Transport, error) {
			return tr, nil
		},
		Illustrator: noIllustrator{},
		Extractor:   picture.Extractor{BaseURL: "https://assets.example/"},
		Logger:      log.NewNop(),
	})
	require.NoError(t, err)

	srv, err := NewServer(ServerConfig{
		Pipeline:   pipeline,
		Transcript: tl,
		Corpus:     store,
		Logger:     log.NewNop(),
	})
	require.NoError(t, err)
	return srv, tl
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, &scriptedTransport{})

	for _, path := range []string{"/health", "/ready"} {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestChatEndpoint(t *testing.T) {
	srv, tl := newTestServer(t, &scriptedTransport{rounds: [][]model.Increment{{{Text: "Конечно, помогу."}}}})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"text":"помоги с задачей"}`))
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	msgs := tl.Messages()
	assert.Equal(t, "Конечно, помогу.", msgs[len(msgs)-1].Text)
}

func TestChatEndpointEmptyText(t *testing.T) {
	srv, _ := newTestServer(t, &scriptedTransport{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"text":"  "}`))
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "empty_message", resp.Error)
}

func TestChatEndpointBusyConflict(t *testing.T) {
	tr := &blockedTransport{release: make(chan struct{}), started: make(chan struct{}, 1)}
	srv, _ := newTestServer(t, tr)

	first := make(chan int, 1)
	go func() {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"text":"раз"}`))
		srv.Handler().ServeHTTP(rec, req)
		first <- rec.Code
	}()
	<-tr.started

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"text":"два"}`))
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)

	close(tr.release)
	select {
	case code := <-first:
		assert.Equal(t, http.StatusOK, code)
	case <-time.After(5 * time.Second):
		t.Fatal("first request did not finish")
	}
}

func TestLibraryEndpointFlat(t *testing.T) {
	srv, _ := newTestServer(t, &scriptedTransport{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/library", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp LibraryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, corpus.SchemeFlat, resp.Scheme)
	assert.Equal(t, []string{"7 класс - Делимость и остатки"}, resp.Sections)
	assert.Empty(t, resp.Books)
}

func TestPanelEndpoints(t *testing.T) {
	srv, tl := newTestServer(t, &scriptedTransport{})
	tl.ShowImage("https://assets.example/a.png")

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/panel/close", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var panel transcript.Panel
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &panel))
	assert.Empty(t, panel.Current)
	assert.Equal(t, "https://assets.example/a.png", panel.Last)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/panel/reopen", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &panel))
	assert.Equal(t, "https://assets.example/a.png", panel.Current)
}

func TestEventsStreamSnapshotAndLive(t *testing.T) {
	srv, tl := newTestServer(t, &scriptedTransport{})

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	reader := bufio.NewReader(resp.Body)

	event, data := readSSEEvent(t, reader)
	require.Equal(t, "snapshot", event)
	var snap Snapshot
	require.NoError(t, json.Unmarshal([]byte(data), &snap))
	require.NotEmpty(t, snap.Messages) // greeting is already there

	tl.Append(transcript.Message{Sender: transcript.SenderUser, Text: "привет"})
	event, data = readSSEEvent(t, reader)
	require.Equal(t, "append", event)
	var ev transcript.Event
	require.NoError(t, json.Unmarshal([]byte(data), &ev))
	require.NotNil(t, ev.Message)
	assert.Equal(t, "привет", ev.Message.Text)
}

// readSSEEvent reads one event/data pair from an SSE stream.
func readSSEEvent(t *testing.T, r *bufio.Reader) (event, data string) {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data += strings.TrimPrefix(line, "data: ")
		case line == "" && event != "":
			return event, data
		}
	}
}

func TestIndexPageServed(t *testing.T) {
	srv, _ := newTestServer(t, &scriptedTransport{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "MathBot")
}
