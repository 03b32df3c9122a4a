// Package joints holds the joint-state model for the control channel:
// the canonical joint schema, position vectors aligned to it, the
// last-known observation cache, and the safety shaping applied to
// outgoing targets.
package joints

import "time"

// Schema is the canonical ordered list of joint names. Both ends of a
// session must share the same schema; it never changes mid-session.
type Schema []string

// Index returns the position of name in the schema, or -1.
func (s Schema) Index(name string) int {
	for i, n := range s {
		if n == name {
			return i
		}
	}
	return -1
}

// Clone returns an independent copy of the schema.
func (s Schema) Clone() Schema {
	out := make(Schema, len(s))
	copy(out, s)
	return out
}

// Vector is a list of joint positions aligned to a Schema.
type Vector []float64

// Clone returns an independent copy of the vector.
func (v Vector) Clone() Vector {
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

// Snapshot is a point-in-time copy of observed joint state. It always
// holds exactly one position per schema joint, even before the first
// telemetry frame arrives. Timestamp is in seconds (Unix epoch).
type Snapshot struct {
	Schema    Schema
	Pos       Vector
	Timestamp float64
}

// Value returns the position for name and whether the joint exists.
func (s Snapshot) Value(name string) (float64, bool) {
	i := s.Schema.Index(name)
	if i < 0 {
		return 0, false
	}
	return s.Pos[i], true
}

// Now returns the current wall clock in the wire timestamp unit
// (float seconds).
func Now() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
