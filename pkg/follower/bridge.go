// Package follower implements the client side of the joint-position
// channel: a Bridge that turns logical target poses into safety-bounded
// wire commands and inbound telemetry into a cached observation, over a
// connection manager with bounded retry.
package follower

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-so101/internal/log"
	"github.com/teslashibe/go-so101/pkg/joints"
	"github.com/teslashibe/go-so101/pkg/protocol"
)

// Config describes one bridge instance.
type Config struct {
	// URL is the ws:// endpoint address.
	URL string

	// Schema is the canonical ordered joint-name list shared with the
	// endpoint.
	Schema joints.Schema

	// Limits is the safety shaping applied to every outgoing target.
	Limits joints.Limits

	// Kind selects the device-capability variant (default KindSim).
	Kind Kind

	// Conn tunes the connect retry budget; zero value means defaults.
	Conn Options
}

// Bridge composes the connection manager, observation cache, and
// command shaper into the client-facing control surface:
// Observe (receive → decode → cache) and Act (shape → encode → send).
type Bridge struct {
	Calibrator

	cfg   Config
	conn  *Conn
	cache *joints.Cache
	seq   atomic.Uint64

	sendWarn  *log.Throttle
	emptyWarn *log.Throttle
}

// New creates a bridge. The observation cache starts with every joint
// at zero; Connect must succeed before Act can deliver anything.
func New(cfg Config) *Bridge {
	return &Bridge{
		Calibrator: calibratorFor(cfg.Kind),
		cfg:        cfg,
		conn:       NewConn(cfg.URL, cfg.Conn),
		cache:      joints.NewCache(cfg.Schema),
		sendWarn:   log.NewThrottle(time.Second),
		emptyWarn:  log.NewThrottle(time.Second),
	}
}

// Connect establishes the channel, retrying per the configured budget.
func (b *Bridge) Connect(ctx context.Context) error {
	return b.conn.Connect(ctx)
}

// Disconnect tears the channel down.
func (b *Bridge) Disconnect() error {
	return b.conn.Disconnect()
}

// IsConnected reports whether the channel is currently up.
func (b *Bridge) IsConnected() bool {
	return b.conn.IsConnected()
}

// Observe drains at most one pending telemetry frame into the cache,
// then returns an independent snapshot of last-known state. It never
// blocks: no pending frame, a dead transport, or a malformed frame all
// just mean the snapshot is served from cache.
func (b *Bridge) Observe() joints.Snapshot {
	if data, ok := b.conn.TryReceive(); ok {
		frame, err := protocol.Decode(data)
		if err != nil {
			log.Debug("dropping bad telemetry frame", "err", err)
		} else if st, ok := frame.(*protocol.State); ok {
			b.cache.Update(st)
		} else {
			log.Debug("dropping non-state frame on telemetry path", "type", frame.FrameType())
		}
	}
	return b.cache.Snapshot()
}

// Act shapes target against the last observation and the configured
// limits, then encodes and sends a command frame with the next sequence
// number. A send failure is non-fatal to the caller's tick cadence: it
// is logged (throttled), returned for inspection, and the cache is
// still optimistically updated to the shaped target — "assumed applied"
// state, so downstream consumers track intent while delivery is
// unconfirmed. The shaped vector is returned in schema order.
func (b *Bridge) Act(target map[string]float64) (joints.Vector, error) {
	prev := b.cache.Snapshot()

	goal, held := joints.Shape(target, prev, b.cfg.Limits)
	if held {
		if ok, dropped := b.emptyWarn.Allow(); ok {
			log.Warn("empty target, holding position; check action key names", "suppressed", dropped)
		}
	}

	cmd := protocol.NewCommand(b.seq.Add(1), b.cfg.Schema, goal, joints.Now())
	data, err := cmd.Encode()
	if err != nil {
		// Only reachable through a schema/goal length bug on our side.
		return goal, err
	}

	sendErr := b.conn.Send(data)
	if sendErr != nil && !errors.Is(sendErr, ErrNotConnected) {
		if ok, dropped := b.sendWarn.Allow(); ok {
			log.Warn("command send failed, channel down", "err", sendErr, "suppressed", dropped)
		}
	}

	b.cache.Apply(goal, cmd.Timestamp)
	return goal, sendErr
}

// Seq returns the sequence number of the last sent command.
func (b *Bridge) Seq() uint64 {
	return b.seq.Load()
}
