// Package protocol defines the WebSocket message types for the
// joint-position control channel. This package is shared between the
// follower (client) and the simulator endpoint: each frame is one UTF-8
// text message containing a flat JSON object.
package protocol

import (
	"encoding/json"
	"fmt"
)

// FrameType identifies the type of a wire frame.
type FrameType string

const (
	// TypeCmd is a commanded joint-position frame, client to endpoint.
	TypeCmd FrameType = "cmd"
	// TypeState is an observed joint-position frame, endpoint to client.
	TypeState FrameType = "state"
)

// ModeJointPosition is the only command mode currently defined.
const ModeJointPosition = "joint_position"

// Frame is a decoded wire frame: either *Command or *State.
type Frame interface {
	FrameType() FrameType
}

// Command carries target joint positions. Names and Target are parallel
// arrays in canonical joint order; Seq starts at 1 and increases
// monotonically within a session.
type Command struct {
	Type      FrameType `json:"type"`
	Seq       uint64    `json:"seq"`
	Mode      string    `json:"mode"`
	Names     []string  `json:"names"`
	Target    []float64 `json:"target"`
	Timestamp float64   `json:"timestamp"`
}

// FrameType implements Frame.
func (c *Command) FrameType() FrameType { return TypeCmd }

// State carries observed joint positions. Names is optional: when
// absent, the receiver maps JointPos onto its own canonical joint order
// by index. Timestamp is optional (seconds, sender's clock).
type State struct {
	Type      FrameType `json:"type"`
	Names     []string  `json:"names,omitempty"`
	JointPos  []float64 `json:"joint_pos"`
	Timestamp float64   `json:"timestamp,omitempty"`
}

// FrameType implements Frame.
func (s *State) FrameType() FrameType { return TypeState }

// NewCommand builds a command frame with the joint_position mode tag.
func NewCommand(seq uint64, names []string, target []float64, timestamp float64) *Command {
	return &Command{
		Type:      TypeCmd,
		Seq:       seq,
		Mode:      ModeJointPosition,
		Names:     names,
		Target:    target,
		Timestamp: timestamp,
	}
}

// NewState builds a state frame with explicit joint names.
func NewState(names []string, jointPos []float64, timestamp float64) *State {
	return &State{
		Type:      TypeState,
		Names:     names,
		JointPos:  jointPos,
		Timestamp: timestamp,
	}
}

// Encode returns the JSON-encoded command.
func (c *Command) Encode() ([]byte, error) {
	if len(c.Names) != len(c.Target) {
		return nil, fmt.Errorf("%w: %d names vs %d targets", ErrSchemaMismatch, len(c.Names), len(c.Target))
	}
	return json.Marshal(c)
}

// Encode returns the JSON-encoded state frame.
func (s *State) Encode() ([]byte, error) {
	if s.Names != nil && len(s.Names) != len(s.JointPos) {
		return nil, fmt.Errorf("%w: %d names vs %d positions", ErrSchemaMismatch, len(s.Names), len(s.JointPos))
	}
	return json.Marshal(s)
}

// Decode parses and validates one wire frame. Every malformed or
// schema-violating frame comes back as an error value so callers can
// drop it and keep their loop alive; Decode never panics on peer input.
func Decode(data []byte) (Frame, error) {
	var head struct {
		Type *FrameType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if head.Type == nil {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedFrame)
	}

	switch *head.Type {
	case TypeCmd:
		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		if cmd.Mode != ModeJointPosition {
			return nil, fmt.Errorf("%w: mode %q", ErrUnknownMode, cmd.Mode)
		}
		if len(cmd.Names) != len(cmd.Target) {
			return nil, fmt.Errorf("%w: %d names vs %d targets", ErrSchemaMismatch, len(cmd.Names), len(cmd.Target))
		}
		return &cmd, nil

	case TypeState:
		var st State
		if err := json.Unmarshal(data, &st); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		if st.Names != nil && len(st.Names) != len(st.JointPos) {
			return nil, fmt.Errorf("%w: %d names vs %d positions", ErrSchemaMismatch, len(st.Names), len(st.JointPos))
		}
		return &st, nil

	default:
		return nil, fmt.Errorf("%w: type %q", ErrUnknownType, *head.Type)
	}
}
