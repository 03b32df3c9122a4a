package follower

import "errors"

// Connection-lifecycle errors are loud and synchronous: the caller must
// react. Per-message protocol errors never surface here — they are
// logged and dropped where they occur.
var (
	// ErrAlreadyConnected is returned by Connect when a live handle exists.
	ErrAlreadyConnected = errors.New("follower: already connected")

	// ErrNotConnected is returned when an operation needs a live handle.
	ErrNotConnected = errors.New("follower: not connected")

	// ErrConnectFailed is returned when the retry budget is exhausted.
	// Consumers must treat this as fatal at startup; the bridge does not
	// degrade to an unconnected no-op mode.
	ErrConnectFailed = errors.New("follower: cannot connect to endpoint")

	// ErrTransportClosed is returned by Send when the connection died
	// mid-session. The handle is already cleared; reconnect before the
	// next send.
	ErrTransportClosed = errors.New("follower: transport closed")
)
