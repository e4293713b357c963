// Package config loads condrvhostd's YAML configuration and resolves the
// session directory handoff rendezvous files and sockets live under,
// following dcosson-h2/internal/config/config.go's Load/LoadFrom/validate
// shape.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/google/shlex"
	"gopkg.in/yaml.v3"
)

// Config is the top-level condrvhostd configuration.
type Config struct {
	Session SessionConfig `yaml:"session"`
}

// SessionConfig parameterizes one console session: a client command line
// that names the session, and the peer it may delegate rendering to.
type SessionConfig struct {
	// SpawnCommand is a shell-style command line (split with
	// google/shlex, the same way bridge.ExecCommand splits its whitelisted
	// commands) for the session's client program. Only its first word is
	// used, as the initial console title; no process is spawned from it.
	SpawnCommand string `yaml:"spawn_command"`

	// DelegationPeer names the third-party terminal to hand the session's
	// UI off to, per spec.md §4.6. Empty means host the UI in-process.
	DelegationPeer string `yaml:"delegation_peer,omitempty"`

	// AnswerQueries overrides vt_should_answer_queries; nil defers to the
	// runtime default (answer iff no terminal is attached to host output).
	AnswerQueries *bool `yaml:"answer_queries,omitempty"`
}

// ConfigDir returns condrvhostd's configuration directory (~/.condrvhost/).
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".condrvhost")
	}
	return filepath.Join(home, ".condrvhost")
}

// Load reads condrvhostd's config from ~/.condrvhost/config.yaml.
// If the file does not exist, it returns an empty Config with no error.
func Load() (*Config, error) {
	return LoadFrom(filepath.Join(ConfigDir(), "config.yaml"))
}

// LoadFrom reads the config from the given path.
// If the file does not exist, it returns an empty Config with no error.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Session.SpawnCommand == "" {
		return nil
	}
	if _, err := c.Session.Argv(); err != nil {
		return fmt.Errorf("session: spawn_command: %w", err)
	}
	if c.Session.DelegationPeer != "" && !ValidDelegationPeer(c.Session.DelegationPeer) {
		return fmt.Errorf("session: delegation_peer: invalid identifier %q", c.Session.DelegationPeer)
	}
	return nil
}

// Argv splits SpawnCommand into an argv the way bridge.ExecCommand splits
// its whitelisted commands.
func (s SessionConfig) Argv() ([]string, error) {
	if s.SpawnCommand == "" {
		return nil, fmt.Errorf("spawn_command is empty")
	}
	argv, err := shlex.Split(s.SpawnCommand)
	if err != nil {
		return nil, err
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("spawn_command has no tokens")
	}
	return argv, nil
}

var delegationPeerRe = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// ValidDelegationPeer reports whether name is a well-formed peer
// identifier. The registry-resolved CLSID the Windows original uses is
// replaced here with a plain configured string, validated the same narrow
// way the teacher validates allowed_commands entries.
func ValidDelegationPeer(name string) bool {
	return name != "" && delegationPeerRe.MatchString(name)
}
