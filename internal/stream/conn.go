// Package stream maintains a realtime Sea timeline connection over a
// websocket.
package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/blackmichael/sea-timeline/internal/domain"
	"github.com/blackmichael/sea-timeline/internal/event"
	"github.com/blackmichael/sea-timeline/internal/normalize"
)

const (
	// DefaultKeepaliveInterval is how often a ping is sent on an open
	// connection.
	DefaultKeepaliveInterval = 30 * time.Second

	writeWait = 10 * time.Second
)

// Config describes the stream to connect to.
type Config struct {
	// URL is the websocket endpoint.
	URL string

	// Stream names the timeline to subscribe to, e.g. v1/timelines/public.
	Stream string

	// Token is the bearer token sent in the handshake.
	Token string

	// KeepaliveInterval defaults to DefaultKeepaliveInterval.
	KeepaliveInterval time.Duration

	// Dialer defaults to a dialer without a handshake timeout; the context
	// passed to Dial bounds the connection attempt.
	Dialer *websocket.Dialer

	Logger *slog.Logger
}

// Decoder converts the content of a post frame into a post entry.
type Decoder func(content any) (domain.PostEntry, error)

// CloseEvent describes how a connection ended.
type CloseEvent struct {
	// Code is the websocket close code. Connections closed by Close report
	// websocket.CloseNormalClosure; connections lost without a close frame
	// report websocket.CloseAbnormalClosure.
	Code int

	// Reason is the close reason sent by the server, if any.
	Reason string

	// Err is the read error that ended an abnormal connection.
	Err error
}

// Normal reports whether the connection was closed deliberately by either
// side.
func (e CloseEvent) Normal() bool {
	return e.Code == websocket.CloseNormalClosure || e.Code == websocket.CloseGoingAway
}

// SetupError is returned by Dial when the connection could not be opened or
// the handshake could not be sent.
type SetupError struct {
	URL string
	Err error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("connect stream %s: %v", e.URL, e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

// Stats counts traffic on a connection.
type Stats struct {
	MessagesReceived int64
	PostsReceived    int64
	PingsSent        int64
}

// Conn is an open stream connection. It reads frames until the connection is
// closed by either side and never reconnects.
type Conn struct {
	ws     *websocket.Conn
	decode Decoder
	logger *slog.Logger

	writeMu sync.Mutex

	posts  event.Emitter[domain.PostEntry]
	closes event.Emitter[CloseEvent]

	stopKeepalive chan struct{}
	keepaliveDone chan struct{}
	stopOnce      sync.Once
	closeOnce     sync.Once
	closing       atomic.Bool

	mu         sync.Mutex
	finished   bool
	closeEvent CloseEvent
	done       chan struct{}

	messages atomic.Int64
	received atomic.Int64
	pings    atomic.Int64
}

// Dial opens the connection and sends the handshake. It returns once the
// socket is open and the handshake has been written; any failure before that
// point is a *SetupError. Dial enforces no timeout of its own.
func Dial(ctx context.Context, cfg Config, decode Decoder) (*Conn, error) {
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{Proxy: http.ProxyFromEnvironment}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	interval := cfg.KeepaliveInterval
	if interval <= 0 {
		interval = DefaultKeepaliveInterval
	}

	logger.Info("connecting to stream", "url", cfg.URL, "stream", cfg.Stream)

	ws, _, err := dialer.DialContext(ctx, cfg.URL, nil)
	if err != nil {
		return nil, &SetupError{URL: cfg.URL, Err: fmt.Errorf("dial: %w", err)}
	}

	c := &Conn{
		ws:            ws,
		decode:        decode,
		logger:        logger,
		stopKeepalive: make(chan struct{}),
		keepaliveDone: make(chan struct{}),
		done:          make(chan struct{}),
	}

	handshake := connectMessage{Type: typeConnect, Stream: cfg.Stream, Token: cfg.Token}
	if err := c.writeJSON(handshake); err != nil {
		ws.Close()
		return nil, &SetupError{URL: cfg.URL, Err: fmt.Errorf("send handshake: %w", err)}
	}

	logger.Info("connected to stream", "stream", cfg.Stream)

	go c.keepalive(interval)
	go c.readLoop()

	return c, nil
}

// OnPost registers fn for every post received on the connection. Posts are
// delivered in the order they arrive, on the connection's read goroutine.
func (c *Conn) OnPost(fn func(domain.PostEntry)) (unsubscribe func()) {
	return c.posts.Subscribe(fn)
}

// OnClose registers fn for the close event. fn is called exactly once; when
// the connection has already closed it is called immediately.
func (c *Conn) OnClose(fn func(CloseEvent)) (unsubscribe func()) {
	c.mu.Lock()
	if c.finished {
		ev := c.closeEvent
		c.mu.Unlock()
		fn(ev)
		return func() {}
	}
	defer c.mu.Unlock()
	return c.closes.Subscribe(fn)
}

// Done is closed after the close event has been delivered.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// CloseEvent returns the close event. It is only meaningful after Done is
// closed.
func (c *Conn) CloseEvent() CloseEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeEvent
}

// Stats returns the traffic counters of the connection.
func (c *Conn) Stats() Stats {
	return Stats{
		MessagesReceived: c.messages.Load(),
		PostsReceived:    c.received.Load(),
		PingsSent:        c.pings.Load(),
	}
}

// Close stops the keepalive and closes the connection. The keepalive has
// stopped by the time Close returns. The close event is delivered
// asynchronously by the read goroutine.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closing.Store(true)
		c.stopKeepaliveAndWait()

		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if werr := c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); werr != nil &&
			!errors.Is(werr, websocket.ErrCloseSent) && !errors.Is(werr, net.ErrClosed) {
			c.logger.Debug("failed to send close frame", "error", werr)
		}
		if cerr := c.ws.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			err = fmt.Errorf("close stream: %w", cerr)
		}
	})
	return err
}

func (c *Conn) keepalive(interval time.Duration) {
	defer close(c.keepaliveDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopKeepalive:
			return
		case <-ticker.C:
			select {
			case <-c.stopKeepalive:
				return
			default:
			}
			if err := c.writeJSON(pingMessage{Type: typePing}); err != nil {
				c.logger.Warn("failed to send keepalive ping", "error", err)
				continue
			}
			c.pings.Add(1)
		}
	}
}

func (c *Conn) stopKeepaliveAndWait() {
	c.stopOnce.Do(func() { close(c.stopKeepalive) })
	<-c.keepaliveDone
}

func (c *Conn) readLoop() {
	var ev CloseEvent
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			ev = c.closeEventFor(err)
			break
		}
		c.messages.Add(1)
		c.handle(data)
	}
	c.finish(ev)
}

func (c *Conn) handle(data []byte) {
	msg, err := parseInbound(data)
	if err != nil {
		c.logger.Error("failed to parse stream message", "error", err)
		return
	}
	if msg.Type != typeMessage {
		return
	}

	entry, err := c.decode(msg.Content)
	if err != nil {
		c.logger.Error("failed to decode stream post", "error", err)
		return
	}
	c.received.Add(1)
	c.posts.Emit(entry)
}

func (c *Conn) closeEventFor(err error) CloseEvent {
	var ce *websocket.CloseError
	if errors.As(err, &ce) && ce.Code != websocket.CloseAbnormalClosure {
		return CloseEvent{Code: ce.Code, Reason: ce.Text}
	}
	if c.closing.Load() {
		return CloseEvent{Code: websocket.CloseNormalClosure}
	}
	return CloseEvent{Code: websocket.CloseAbnormalClosure, Err: err}
}

func (c *Conn) finish(ev CloseEvent) {
	c.stopKeepaliveAndWait()
	c.ws.Close()

	c.mu.Lock()
	c.finished = true
	c.closeEvent = ev
	c.mu.Unlock()

	c.logger.Info("stream closed", "code", ev.Code, "reason", ev.Reason, "error", ev.Err)
	c.closes.Emit(ev)
	close(c.done)
}

func (c *Conn) writeJSON(v any) error {
	payload, err := normalize.Encode(v)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}
