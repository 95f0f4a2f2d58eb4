package stream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/blackmichael/sea-timeline/internal/domain"
	"github.com/blackmichael/sea-timeline/internal/normalize"
)

const waitTimeout = 2 * time.Second

type fakeServer struct {
	*httptest.Server
	conns chan *websocket.Conn
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	upgrader := websocket.Upgrader{}
	fs := &fakeServer{conns: make(chan *websocket.Conn, 1)}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		fs.conns <- ws
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fakeServer) url() string {
	return "ws" + strings.TrimPrefix(fs.URL, "http")
}

func (fs *fakeServer) accept(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case ws := <-fs.conns:
		t.Cleanup(func() { ws.Close() })
		return ws
	case <-time.After(waitTimeout):
		t.Fatalf("server never accepted a connection")
		return nil
	}
}

// readFrames reads every frame from ws and forwards the decoded objects.
func readFrames(ws *websocket.Conn) <-chan map[string]any {
	frames := make(chan map[string]any, 64)
	go func() {
		defer close(frames)
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			v, err := normalize.Decode(data)
			if err != nil {
				continue
			}
			if obj, ok := v.(map[string]any); ok {
				frames <- obj
			}
		}
	}()
	return frames
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeID(content any) (domain.PostEntry, error) {
	obj, err := normalize.Object(content, "content")
	if err != nil {
		return domain.PostEntry{}, err
	}
	id, err := normalize.Integer(obj["id"], "content.id")
	if err != nil {
		return domain.PostEntry{}, err
	}
	return domain.PostEntry{
		Post:   domain.Post{ID: domain.PostID(id), Author: 1},
		Author: domain.User{ID: 1},
	}, nil
}

func dial(t *testing.T, fs *fakeServer, interval time.Duration) *Conn {
	t.Helper()
	c, err := Dial(context.Background(), Config{
		URL:               fs.url(),
		Stream:            "v1/timelines/public",
		Token:             "secret",
		KeepaliveInterval: interval,
		Logger:            testLogger(),
	}, decodeID)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestDialSendsHandshake(t *testing.T) {
	fs := newFakeServer(t)
	dial(t, fs, time.Hour)
	frames := readFrames(fs.accept(t))

	select {
	case f := <-frames:
		if f["type"] != "connect" || f["stream"] != "v1/timelines/public" || f["token"] != "secret" {
			t.Fatalf("unexpected handshake: %v", f)
		}
	case <-time.After(waitTimeout):
		t.Fatalf("no handshake received")
	}
}

func TestPostsAreEmittedInOrder(t *testing.T) {
	fs := newFakeServer(t)
	c := dial(t, fs, time.Hour)
	ws := fs.accept(t)

	got := make(chan domain.PostID, 8)
	c.OnPost(func(e domain.PostEntry) { got <- e.Post.ID })

	frames := []string{
		`{"type":"notice","content":{"id":99}}`,
		`{"type":"message","content":{"id":1}}`,
		`{"type":"message","content":{"id":"broken"}}`,
		`not json`,
		`{"type":"message","content":{"id":2}}`,
	}
	for _, f := range frames {
		if err := ws.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
			t.Fatalf("write frame: %v", err)
		}
	}

	for _, want := range []domain.PostID{1, 2} {
		select {
		case id := <-got:
			if id != want {
				t.Fatalf("expected post %d, got %d", want, id)
			}
		case <-time.After(waitTimeout):
			t.Fatalf("post %d was not emitted", want)
		}
	}

	deadline := time.Now().Add(waitTimeout)
	for c.Stats().MessagesReceived < int64(len(frames)) && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if s := c.Stats(); s.MessagesReceived != int64(len(frames)) || s.PostsReceived != 2 {
		t.Fatalf("unexpected stats: %+v", s)
	}
}

func TestKeepaliveStopsOnClose(t *testing.T) {
	fs := newFakeServer(t)
	c := dial(t, fs, 20*time.Millisecond)
	frames := readFrames(fs.accept(t))

	var closes atomic.Int32
	c.OnClose(func(CloseEvent) { closes.Add(1) })

	pings := 0
	timeout := time.After(waitTimeout)
	for pings < 2 {
		select {
		case f := <-frames:
			if f["type"] == "ping" {
				pings++
			}
		case <-timeout:
			t.Fatalf("expected keepalive pings, got %d", pings)
		}
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	sent := c.Stats().PingsSent

	select {
	case <-c.Done():
	case <-time.After(waitTimeout):
		t.Fatalf("connection did not finish after Close")
	}

	time.Sleep(100 * time.Millisecond)
	if after := c.Stats().PingsSent; after != sent {
		t.Fatalf("pings kept being sent after Close: %d then %d", sent, after)
	}
	if n := closes.Load(); n != 1 {
		t.Fatalf("expected exactly one close event, got %d", n)
	}
	if ev := c.CloseEvent(); !ev.Normal() {
		t.Fatalf("expected a normal closure, got %+v", ev)
	}

	// A second Close is a no-op.
	if err := c.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if n := closes.Load(); n != 1 {
		t.Fatalf("expected close event to stay at one, got %d", n)
	}
}

func TestServerCloseExposesReason(t *testing.T) {
	fs := newFakeServer(t)
	c := dial(t, fs, time.Hour)
	ws := fs.accept(t)

	events := make(chan CloseEvent, 2)
	c.OnClose(func(ev CloseEvent) { events <- ev })

	msg := websocket.FormatCloseMessage(4000, "maintenance")
	if err := ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil {
		t.Fatalf("write close: %v", err)
	}

	select {
	case ev := <-events:
		if ev.Code != 4000 || ev.Reason != "maintenance" {
			t.Fatalf("unexpected close event: %+v", ev)
		}
		if ev.Normal() {
			t.Fatalf("code 4000 must not count as a normal closure")
		}
	case <-time.After(waitTimeout):
		t.Fatalf("no close event")
	}

	<-c.Done()
	late := make(chan CloseEvent, 1)
	c.OnClose(func(ev CloseEvent) { late <- ev })
	select {
	case ev := <-late:
		if ev.Code != 4000 {
			t.Fatalf("late subscriber got %+v", ev)
		}
	default:
		t.Fatalf("late subscriber was not called immediately")
	}
}

func TestDroppedConnectionIsAbnormal(t *testing.T) {
	fs := newFakeServer(t)
	c := dial(t, fs, time.Hour)
	ws := fs.accept(t)

	ws.UnderlyingConn().Close()

	select {
	case <-c.Done():
	case <-time.After(waitTimeout):
		t.Fatalf("connection did not finish")
	}
	ev := c.CloseEvent()
	if ev.Code != websocket.CloseAbnormalClosure || ev.Err == nil {
		t.Fatalf("expected an abnormal closure with an error, got %+v", ev)
	}
}

func TestDialFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no websockets here", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := Dial(context.Background(), Config{
		URL:    "ws" + strings.TrimPrefix(srv.URL, "http"),
		Stream: "v1/timelines/public",
		Logger: testLogger(),
	}, decodeID)

	var setupErr *SetupError
	if !errors.As(err, &setupErr) {
		t.Fatalf("expected *SetupError, got %v", err)
	}
	if !errors.Is(err, websocket.ErrBadHandshake) {
		t.Fatalf("expected the bad handshake to be wrapped, got %v", err)
	}
}

func TestDialHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fs := newFakeServer(t)
	_, err := Dial(ctx, Config{URL: fs.url(), Logger: testLogger()}, decodeID)
	var setupErr *SetupError
	if !errors.As(err, &setupErr) {
		t.Fatalf("expected *SetupError, got %v", err)
	}
}
