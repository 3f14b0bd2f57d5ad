package audit

import (
	"context"
	"errors"
	"strings"

	logx "cronkeeper/pkg/logx"
)

// Store is the minimal persistence API used by the manager wiring.
type Store interface {
	AppendRecord(ctx context.Context, r Record) error
	PutChecksum(ctx context.Context, platform string, sum uint64) error
	GetChecksum(ctx context.Context, platform string) (sum uint64, ok bool, err error)
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if audit storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown audit driver: " + driver)
	}
}
