package sim

import (
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/teslashibe/go-so101/pkg/joints"
	"github.com/teslashibe/go-so101/pkg/protocol"
)

// Session is one accepted follower connection. It owns the
// authoritative joint vector q for that connection; sessions share
// nothing with each other.
type Session struct {
	ID        string
	Connected time.Time

	conn *websocket.Conn

	// writeMu serializes socket writes (publish loop vs close path).
	writeMu sync.Mutex

	// mu guards q and lastSeq. q is only ever replaced wholesale,
	// never written joint by joint, so the publish loop can never
	// read a half-applied command.
	mu      sync.RWMutex
	q       joints.Vector
	lastSeq uint64
}

// apply replaces the entire joint vector with the command target.
// target must already be validated to schema length; it is retained,
// so callers must not reuse the slice.
func (s *Session) apply(cmd *protocol.Command) {
	s.mu.Lock()
	s.q = cmd.Target
	s.lastSeq = cmd.Seq
	s.mu.Unlock()
}

// state returns a copy of q plus the last applied sequence number.
func (s *Session) state() (joints.Vector, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.Clone(), s.lastSeq
}

// write sends one encoded frame as a text message.
func (s *Session) write(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Info is the JSON shape served by the sessions API.
type Info struct {
	ID        string        `json:"id"`
	Connected time.Time     `json:"connected"`
	LastSeq   uint64        `json:"last_seq"`
	JointPos  joints.Vector `json:"joint_pos"`
}

// info snapshots the session for the API.
func (s *Session) info() Info {
	q, seq := s.state()
	return Info{
		ID:        s.ID,
		Connected: s.Connected,
		LastSeq:   seq,
		JointPos:  q,
	}
}
