// Package config provides configuration for the go-so101 bridge and
// simulator: a YAML file surface with environment overrides.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-so101/pkg/joints"
)

// Defaults for the rendezvous endpoint.
const (
	DefaultWSURL      = "ws://127.0.0.1:8765"
	DefaultListenAddr = "127.0.0.1:8765"
	DefaultPublishHz  = 60
)

// DefaultJointNames is the SO-101 arm schema. The ordering is the wire
// schema; teleop action keys must use these names.
var DefaultJointNames = []string{
	"shoulder_pan",
	"shoulder_lift",
	"elbow_flex",
	"wrist_flex",
	"wrist_roll",
	"gripper",
}

// RelativeLimit is either a single scalar applied to all joints or a
// per-joint map, matching both YAML spellings:
//
//	max_relative_target: 0.1
//	max_relative_target: {wrist_roll: 0.2, gripper: 0.05}
type RelativeLimit struct {
	Scalar  *float64
	PerName map[string]float64
}

// UnmarshalYAML implements yaml.Unmarshaler for the scalar-or-map form.
func (r *RelativeLimit) UnmarshalYAML(value *yaml.Node) error {
	var scalar float64
	if err := value.Decode(&scalar); err == nil {
		r.Scalar = &scalar
		return nil
	}
	var perName map[string]float64
	if err := value.Decode(&perName); err == nil {
		r.PerName = perName
		return nil
	}
	return fmt.Errorf("max_relative_target must be a number or a joint->number map")
}

// Config is the full configuration surface for both sides of the
// channel. A client only reads WSURL; the simulator only ListenAddr
// and PublishHz; the joint schema and limits are shared.
type Config struct {
	WSURL      string `yaml:"ws_url"`
	ListenAddr string `yaml:"listen_addr"`
	PublishHz  int    `yaml:"publish_hz"`
	LogLevel   string `yaml:"log_level"`

	JointNames []string `yaml:"joint_names"`

	MaxRelativeTarget *RelativeLimit `yaml:"max_relative_target,omitempty"`

	// Parallel arrays aligned to JointNames; both present or both absent.
	JointMin []float64 `yaml:"joint_min,omitempty"`
	JointMax []float64 `yaml:"joint_max,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		WSURL:      DefaultWSURL,
		ListenAddr: DefaultListenAddr,
		PublishHz:  DefaultPublishHz,
		LogLevel:   "info",
		JointNames: append([]string(nil), DefaultJointNames...),
	}
}

// Load reads a YAML config file, fills unset fields with defaults,
// applies environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv applies SIM_WS_URL and SIM_LISTEN_ADDR overrides.
func (c *Config) applyEnv() {
	if url := os.Getenv("SIM_WS_URL"); url != "" {
		c.WSURL = url
	}
	if addr := os.Getenv("SIM_LISTEN_ADDR"); addr != "" {
		c.ListenAddr = addr
	}
}

// Validate checks internal consistency.
func (c *Config) Validate() error {
	if len(c.JointNames) == 0 {
		return fmt.Errorf("config: joint_names must not be empty")
	}
	if c.PublishHz <= 0 {
		return fmt.Errorf("config: publish_hz must be positive, got %d", c.PublishHz)
	}
	if (c.JointMin == nil) != (c.JointMax == nil) {
		return fmt.Errorf("config: joint_min and joint_max must be set together")
	}
	if c.JointMin != nil {
		if len(c.JointMin) != len(c.JointNames) || len(c.JointMax) != len(c.JointNames) {
			return fmt.Errorf("config: joint_min/joint_max must have %d entries", len(c.JointNames))
		}
		for i := range c.JointMin {
			if c.JointMin[i] > c.JointMax[i] {
				return fmt.Errorf("config: joint_min > joint_max for %s", c.JointNames[i])
			}
		}
	}
	if c.MaxRelativeTarget != nil {
		for name := range c.MaxRelativeTarget.PerName {
			if !c.hasJoint(name) {
				return fmt.Errorf("config: max_relative_target names unknown joint %q", name)
			}
		}
	}
	return nil
}

func (c *Config) hasJoint(name string) bool {
	for _, n := range c.JointNames {
		if n == name {
			return true
		}
	}
	return false
}

// Schema returns the canonical joint schema.
func (c *Config) Schema() joints.Schema {
	return joints.Schema(c.JointNames).Clone()
}

// Limits converts the configuration surface into shaping limits.
func (c *Config) Limits() joints.Limits {
	var lim joints.Limits

	if c.MaxRelativeTarget != nil {
		lim.MaxRelative = make(map[string]float64, len(c.JointNames))
		if c.MaxRelativeTarget.Scalar != nil {
			for _, name := range c.JointNames {
				lim.MaxRelative[name] = *c.MaxRelativeTarget.Scalar
			}
		}
		for name, v := range c.MaxRelativeTarget.PerName {
			lim.MaxRelative[name] = v
		}
	}

	if c.JointMin != nil {
		lim.Min = make(map[string]float64, len(c.JointNames))
		lim.Max = make(map[string]float64, len(c.JointNames))
		for i, name := range c.JointNames {
			lim.Min[name] = c.JointMin[i]
			lim.Max[name] = c.JointMax[i]
		}
	}

	return lim
}
