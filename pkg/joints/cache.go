package joints

import (
	"sync"

	"github.com/teslashibe/go-so101/pkg/protocol"
)

// Cache holds the last-known observed position of every schema joint.
// It is updated opportunistically from inbound state frames and read
// without blocking; readers always get independent copies, so nothing
// outside the cache can alias its internals.
type Cache struct {
	mu     sync.RWMutex
	schema Schema
	pos    Vector
	ts     float64
}

// NewCache creates a cache with every joint at position 0.0 and the
// timestamp set to construction time.
func NewCache(schema Schema) *Cache {
	return &Cache{
		schema: schema.Clone(),
		pos:    make(Vector, len(schema)),
		ts:     Now(),
	}
}

// Update merges one state frame into the cache. Positions are resolved
// by name when the frame carries names, otherwise positionally against
// the canonical schema. Unknown names are ignored, as are positions
// past the end of the schema; neither is an error. The timestamp comes
// from the frame if set, else the local clock.
func (c *Cache) Update(st *protocol.State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if st.Names != nil {
		for i, name := range st.Names {
			if j := c.schema.Index(name); j >= 0 {
				c.pos[j] = st.JointPos[i]
			}
		}
	} else {
		for i, v := range st.JointPos {
			if i >= len(c.pos) {
				break
			}
			c.pos[i] = v
		}
	}

	if st.Timestamp != 0 {
		c.ts = st.Timestamp
	} else {
		c.ts = Now()
	}
}

// Apply overwrites the cached positions with pos and stamps ts. It is
// the optimistic-update path: after an unconfirmed send the bridge
// records the shaped target as "assumed applied" state.
func (c *Cache) Apply(pos Vector, ts float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	copy(c.pos, pos)
	c.ts = ts
}

// Snapshot returns a fully independent copy of the current state.
func (c *Cache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{
		Schema:    c.schema.Clone(),
		Pos:       c.pos.Clone(),
		Timestamp: c.ts,
	}
}
