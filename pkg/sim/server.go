// Package sim implements the reference endpoint for the joint-position
// channel: a WebSocket server that ingests command frames into an
// authoritative per-session joint vector and publishes state frames at
// a fixed rate, independent of command cadence.
package sim

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-so101/internal/log"
	"github.com/teslashibe/go-so101/pkg/joints"
	"github.com/teslashibe/go-so101/pkg/protocol"
)

// Server accepts follower connections and runs one Session per
// connection. Each session gets an ingest loop (the read loop) and a
// publish goroutine; transport closure ends the session, never the
// server.
type Server struct {
	schema        joints.Schema
	publishPeriod time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session

	// Stats
	commandsApplied  atomic.Uint64
	commandsRejected atomic.Uint64
	statesPublished  atomic.Uint64
}

// New creates a server for the given canonical joint schema publishing
// state at publishHz.
func New(schema joints.Schema, publishHz int) *Server {
	if publishHz <= 0 {
		publishHz = 60
	}
	return &Server{
		schema:        schema.Clone(),
		publishPeriod: time.Second / time.Duration(publishHz),
		sessions:      make(map[string]*Session),
	}
}

// RegisterRoutes registers the WebSocket rendezvous on a Fiber app.
// The channel has no path by convention (ws://host:port), but /ws is
// accepted too.
func (s *Server) RegisterRoutes(app *fiber.App) {
	upgrade := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
	app.Get("/", upgrade, websocket.New(s.handleSession))
	app.Get("/ws", upgrade, websocket.New(s.handleSession))
}

// RegisterAPIRoutes registers the debug/inspection HTTP surface.
func (s *Server) RegisterAPIRoutes(api fiber.Router) {
	api.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true, "sessions": s.SessionCount()})
	})
	api.Get("/sessions", func(c *fiber.Ctx) error {
		return c.JSON(s.SessionInfos())
	})
	api.Get("/stats", func(c *fiber.Ctx) error {
		return c.JSON(s.Stats())
	})
}

// handleSession runs one connection: spawns the publish loop and then
// ingests commands until the transport closes.
func (s *Server) handleSession(c *websocket.Conn) {
	sess := &Session{
		ID:        uuid.NewString(),
		Connected: time.Now(),
		conn:      c,
		q:         make(joints.Vector, len(s.schema)),
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	count := len(s.sessions)
	s.mu.Unlock()
	log.Info("session connected", "id", sess.ID, "total", count)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.publishLoop(sess, stop)
	}()

	s.ingest(sess)

	close(stop)
	wg.Wait()

	s.mu.Lock()
	delete(s.sessions, sess.ID)
	count = len(s.sessions)
	s.mu.Unlock()
	_ = c.Close()
	log.Info("session closed", "id", sess.ID, "remaining", count)
}

// ingest reads command frames and applies them to the session's joint
// vector. Bad frames are logged and skipped; only transport closure
// ends the loop.
func (s *Server) ingest(sess *Session) {
	for {
		_, data, err := sess.conn.ReadMessage()
		if err != nil {
			return
		}

		frame, err := protocol.Decode(data)
		if err != nil {
			s.commandsRejected.Add(1)
			log.Warn("rejecting frame", "id", sess.ID, "err", err)
			continue
		}

		cmd, ok := frame.(*protocol.Command)
		if !ok {
			s.commandsRejected.Add(1)
			log.Warn("rejecting non-command frame", "id", sess.ID, "type", frame.FrameType())
			continue
		}
		if len(cmd.Target) != len(s.schema) {
			s.commandsRejected.Add(1)
			log.Warn("rejecting command with bad target length",
				"id", sess.ID, "seq", cmd.Seq, "got", len(cmd.Target), "want", len(s.schema))
			continue
		}

		sess.apply(cmd)
		s.commandsApplied.Add(1)
		log.Debug("command applied", "id", sess.ID, "seq", cmd.Seq)
	}
}

// publishLoop sends the current joint vector at the fixed publish rate,
// regardless of inbound command cadence. A write error means the
// transport died; the session is over.
func (s *Server) publishLoop(sess *Session, stop <-chan struct{}) {
	ticker := time.NewTicker(s.publishPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			q, _ := sess.state()
			st := protocol.NewState(s.schema, q, joints.Now())
			data, err := st.Encode()
			if err != nil {
				log.Error("state encode failed", "id", sess.ID, "err", err)
				return
			}
			if err := sess.write(data); err != nil {
				log.Debug("publish ended", "id", sess.ID, "err", err)
				return
			}
			s.statesPublished.Add(1)
		}
	}
}

// SessionCount returns the number of live sessions.
func (s *Server) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// SessionInfos snapshots all live sessions for the API.
func (s *Server) SessionInfos() []Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	infos := make([]Info, 0, len(s.sessions))
	for _, sess := range s.sessions {
		infos = append(infos, sess.info())
	}
	return infos
}

// Stats holds the server counters.
type Stats struct {
	Sessions         int    `json:"sessions"`
	CommandsApplied  uint64 `json:"commands_applied"`
	CommandsRejected uint64 `json:"commands_rejected"`
	StatesPublished  uint64 `json:"states_published"`
}

// Stats returns a snapshot of the server counters.
func (s *Server) Stats() Stats {
	return Stats{
		Sessions:         s.SessionCount(),
		CommandsApplied:  s.commandsApplied.Load(),
		CommandsRejected: s.commandsRejected.Load(),
		StatesPublished:  s.statesPublished.Load(),
	}
}
