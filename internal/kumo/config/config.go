// Package config loads Kumo's operator configuration from a YAML file into
// an explicit struct. Every consumed field is enumerated here; nothing is
// looked up dynamically at runtime.
//
// Process-level settings (homeserver, access token, database path) come from
// environment variables in cmd/kumo, not from this file, so credentials stay
// out of checked-in configuration.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// CreateServerDefaults holds the provisioning defaults applied when the
// operator's create command leaves a field unspecified.
type CreateServerDefaults struct {
	// ImageName is the image used when the command has no "from" clause.
	ImageName string `yaml:"image_name"`
	// FlavorName is the instance size label, recorded as metadata.
	FlavorName string `yaml:"flavor_name"`
	// Network is the network new instances attach to.
	Network string `yaml:"network"`
	// SecurityGroups are recorded for the provisioning payload.
	SecurityGroups []string `yaml:"security_groups"`
	// Userdata is the provisioning template: inline text or a file path.
	Userdata string `yaml:"userdata"`
	// KeyName is the SSH key pair name injected at boot.
	KeyName string `yaml:"key_name"`
	// DefaultBranch is used for the alt-branch slot when the operator gives
	// none.
	DefaultBranch string `yaml:"default_branch"`
}

// Config is the full operator-tunable configuration surface.
type Config struct {
	// Domain builds display URLs: <name>.<domain>.
	Domain string `yaml:"domain"`

	CreateServerDefaults CreateServerDefaults `yaml:"create_server_defaults"`

	// DefaultSearchOptions and DefaultSearchMetadata are template strings
	// rendered against the incoming message context when a list command
	// carries no criteria, then parsed as comma-separated key=value lists.
	DefaultSearchOptions  string `yaml:"default_search_options"`
	DefaultSearchMetadata string `yaml:"default_search_metadata"`

	// MaxServers caps the managed instance count. Zero disables the cap.
	MaxServers int `yaml:"max_servers"`
}

// Load reads and parses the YAML configuration file at path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}
	cfg, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a YAML configuration document and validates it. Unknown keys
// are rejected so typos fail at startup instead of silently doing nothing.
func Parse(data []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for structural correctness.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Domain) == "" {
		return fmt.Errorf("domain must not be empty")
	}
	if strings.TrimSpace(c.CreateServerDefaults.ImageName) == "" {
		return fmt.Errorf("create_server_defaults.image_name must not be empty")
	}
	if c.MaxServers < 0 {
		return fmt.Errorf("max_servers must not be negative, got %d", c.MaxServers)
	}
	return nil
}
