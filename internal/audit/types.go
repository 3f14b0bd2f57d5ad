package audit

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("audit storage disabled")

// Config configures audit storage.
//
// Driver values:
//   - "file": dependency-free file backend (jsonl + snapshot)
//   - "sqlite": SQLite database file (optional build tag)
//
// If Driver is empty or "none", audit storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Record captures one persisted mutation.
// Keep it compact and schema-stable.
type Record struct {
	At       time.Time `json:"at"`
	Platform string    `json:"platform"`
	Op       string    `json:"op"`
	EntryID  string    `json:"entry_id,omitempty"`
	Command  string    `json:"command,omitempty"`
	Interval string    `json:"interval,omitempty"`
	Removed  int       `json:"removed,omitempty"`
}
