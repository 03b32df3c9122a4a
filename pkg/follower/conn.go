package follower

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-so101/internal/log"
)

const (
	// recvQueue bounds buffered inbound frames. Telemetry is
	// latest-wins: when the control loop falls behind, old state
	// frames are dropped rather than queued.
	recvQueue = 8

	// maxMessageSize caps inbound frame size (1MB, matching the
	// endpoint's expectations for a joint-position channel).
	maxMessageSize = 1 << 20
)

// Options tunes the connect retry budget. The defaults let either side
// of the channel start first: ten 2s attempts with 500ms backoff cover
// a simulator that comes up a few seconds late.
type Options struct {
	Attempts       int           // connection attempts before giving up
	AttemptTimeout time.Duration // handshake timeout per attempt
	Backoff        time.Duration // delay between attempts
}

// DefaultOptions returns the standard retry budget.
func DefaultOptions() Options {
	return Options{
		Attempts:       10,
		AttemptTimeout: 2 * time.Second,
		Backoff:        500 * time.Millisecond,
	}
}

// handle is the transient ownership of one live transport. It exists
// only between a successful connect and a close or failure event.
type handle struct {
	ws   *websocket.Conn
	recv chan []byte
	done chan struct{}
}

// Conn manages the WebSocket connection lifecycle: bounded-retry
// connect, disconnect, send, and a strictly non-blocking receive poll.
// The handle is never shared across concurrent senders: Send must be
// called from one goroutine at a time (the bridge's control loop).
type Conn struct {
	url  string
	opts Options

	mu sync.Mutex
	h  *handle
}

// NewConn creates a connection manager for the given ws:// URL.
func NewConn(url string, opts Options) *Conn {
	if opts.Attempts <= 0 {
		opts = DefaultOptions()
	}
	return &Conn{url: url, opts: opts}
}

// IsConnected reports whether a live handle exists.
func (c *Conn) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.h != nil
}

// Connect dials the endpoint, retrying up to the configured budget.
// It fails with ErrAlreadyConnected if a handle already exists and
// ErrConnectFailed once all attempts are exhausted, in which case no
// handle is retained.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.h != nil {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.mu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: c.opts.AttemptTimeout,
	}

	var lastErr error
	for attempt := 1; attempt <= c.opts.Attempts; attempt++ {
		ws, _, err := dialer.DialContext(ctx, c.url, nil)
		if err == nil {
			h := &handle{
				ws:   ws,
				recv: make(chan []byte, recvQueue),
				done: make(chan struct{}),
			}
			ws.SetReadLimit(maxMessageSize)
			go c.readPump(h)

			c.mu.Lock()
			c.h = h
			c.mu.Unlock()
			log.Info("connected to endpoint", "url", c.url, "attempt", attempt)
			return nil
		}

		lastErr = err
		log.Warn("connect attempt failed", "url", c.url, "attempt", attempt, "of", c.opts.Attempts, "err", err)

		if attempt < c.opts.Attempts {
			select {
			case <-time.After(c.opts.Backoff):
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrConnectFailed, ctx.Err())
			}
		}
	}

	return fmt.Errorf("%w: %v", ErrConnectFailed, lastErr)
}

// readPump moves inbound frames onto the receive queue until the
// transport dies. Only this goroutine reads from the socket. When the
// queue is full the oldest frame is dropped: stale telemetry has no
// value.
func (c *Conn) readPump(h *handle) {
	defer close(h.done)
	for {
		_, data, err := h.ws.ReadMessage()
		if err != nil {
			return
		}
		select {
		case h.recv <- data:
		default:
			select {
			case <-h.recv:
			default:
			}
			select {
			case h.recv <- data:
			default:
			}
		}
	}
}

// Disconnect closes the transport. The handle is cleared
// unconditionally, even if the close itself errors on an
// already-closed transport, so the connection state never goes stale.
func (c *Conn) Disconnect() error {
	c.mu.Lock()
	h := c.h
	c.h = nil
	c.mu.Unlock()

	if h == nil {
		return ErrNotConnected
	}

	// Best-effort close frame; the peer may already be gone.
	_ = h.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	_ = h.ws.Close()
	return nil
}

// Send writes one encoded frame as a text message. On a detected
// transport closure the handle is cleared and ErrTransportClosed is
// returned; the caller must reconnect before further sends.
func (c *Conn) Send(data []byte) error {
	c.mu.Lock()
	h := c.h
	c.mu.Unlock()

	if h == nil {
		return ErrNotConnected
	}

	select {
	case <-h.done:
		c.clear(h)
		return ErrTransportClosed
	default:
	}

	if err := h.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		c.clear(h)
		return fmt.Errorf("%w: %v", ErrTransportClosed, err)
	}
	return nil
}

// TryReceive polls for one pending inbound frame with zero wait. Both
// outcomes are non-errors: (payload, true) when a frame was pending,
// (nil, false) otherwise. A detected transport closure clears the
// handle and reads as "no message" — inbound telemetry loss must never
// interrupt the outbound control loop.
func (c *Conn) TryReceive() ([]byte, bool) {
	c.mu.Lock()
	h := c.h
	c.mu.Unlock()

	if h == nil {
		return nil, false
	}

	// Drain buffered frames before acting on closure so the last
	// telemetry received still reaches the cache.
	select {
	case data := <-h.recv:
		return data, true
	default:
	}

	select {
	case <-h.done:
		c.clear(h)
		log.Warn("transport closed, dropping connection handle", "url", c.url)
	default:
	}
	return nil, false
}

// clear drops the handle if it is still the current one and closes the
// underlying socket.
func (c *Conn) clear(h *handle) {
	c.mu.Lock()
	if c.h == h {
		c.h = nil
	}
	c.mu.Unlock()
	_ = h.ws.Close()
}
