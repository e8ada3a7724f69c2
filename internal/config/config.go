// Package config loads the broker's YAML configuration, in the teacher's
// style: a flat struct with yaml tags, defaults applied after unmarshal,
// and validation before returning (cf. the GOX cell/pool/agent config this
// was trimmed from, which covered a much larger orchestration surface this
// broker core does not have).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level broker configuration file.
type Config struct {
	Debug  bool         `yaml:"debug"`
	Broker BrokerConfig `yaml:"broker"`
}

// BrokerConfig configures the listening endpoint and routing behavior.
type BrokerConfig struct {
	// Network is "tcp" or "unix".
	Network string `yaml:"network"`
	// Address is host:port for tcp, or a filesystem path for unix.
	Address string `yaml:"address"`
	Debug   bool   `yaml:"debug"`

	// PullAckTimeoutSeconds, if set, would bound how long a pull item may
	// stay in flight before being treated as abandoned. spec.md §5
	// explicitly leaves this optional and undefined; this core does not
	// implement a timer for it (see DESIGN.md's open-question notes), so
	// the field is accepted and validated but otherwise inert.
	PullAckTimeoutSeconds int `yaml:"pull_ack_timeout_seconds"`
}

// Load reads and parses filename, applying defaults and validating the
// result.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", filename, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", filename, err)
	}

	if cfg.Broker.Network == "" {
		cfg.Broker.Network = "tcp"
	}
	if cfg.Broker.Address == "" {
		cfg.Broker.Address = ":9009"
	}
	if cfg.Broker.Network != "tcp" && cfg.Broker.Network != "unix" {
		return nil, fmt.Errorf("config: unsupported broker.network %q", cfg.Broker.Network)
	}
	if cfg.Broker.PullAckTimeoutSeconds < 0 {
		return nil, fmt.Errorf("config: broker.pull_ack_timeout_seconds cannot be negative: %d", cfg.Broker.PullAckTimeoutSeconds)
	}

	return &cfg, nil
}
