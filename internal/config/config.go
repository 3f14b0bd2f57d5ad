package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Config is the CLI configuration, read once per invocation from a YAML or
// JSON file. Unknown fields are rejected so typos fail loudly.
type Config struct {
	// Platform selects the backend: "unix" or "windows".
	// Empty means unix.
	Platform string `json:"platform,omitempty"`

	Store StoreConfig `json:"store"`
	Audit AuditConfig `json:"audit,omitempty"`
	Log   LogConfig   `json:"log,omitempty"`
}

// StoreConfig selects the native-store collaborator.
type StoreConfig struct {
	// Kind: "command" uses the platform scheduler binary (unix only),
	// "file" reads/writes Path directly. Empty means command on unix and
	// file on windows.
	Kind string `json:"kind,omitempty"`
	Path string `json:"path,omitempty"`
	// User selects another user's crontab (crontab -u); requires privileges.
	User string `json:"user,omitempty"`
	// Binary overrides the crontab executable path.
	Binary string `json:"binary,omitempty"`
}

type AuditConfig struct {
	// Driver: "none" (default), "file" or "sqlite".
	Driver      string `json:"driver,omitempty"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

type LogConfig struct {
	Level   string `json:"level,omitempty"`
	Console *bool  `json:"console,omitempty"`
	File    string `json:"file,omitempty"`
}

// BusyTimeoutDuration parses the sqlite busy timeout; zero when unset.
func (a AuditConfig) BusyTimeoutDuration() (time.Duration, error) {
	s := strings.TrimSpace(a.BusyTimeout)
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// Load reads and strictly decodes the config file. A missing path yields the
// zero Config rather than an error so the CLI works without a file.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return &Config{}, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}

	jb, _, err := coerceToJSONBytes(path, b)
	if err != nil {
		return nil, err
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("invalid config: trailing data")
		}
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Platform)) {
	case "", "unix", "windows":
	default:
		return fmt.Errorf("invalid config: platform %q", c.Platform)
	}
	switch strings.ToLower(strings.TrimSpace(c.Store.Kind)) {
	case "", "command", "file":
	default:
		return fmt.Errorf("invalid config: store.kind %q", c.Store.Kind)
	}
	if strings.EqualFold(c.Store.Kind, "file") && strings.TrimSpace(c.Store.Path) == "" {
		return fmt.Errorf("invalid config: store.path is required when store.kind=file")
	}
	if _, err := c.Audit.BusyTimeoutDuration(); err != nil {
		return fmt.Errorf("invalid config: audit.busy_timeout: %w", err)
	}
	return nil
}
