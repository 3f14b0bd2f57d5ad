package audit

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	logx "cronkeeper/pkg/logx"
)

// fileStore is a dependency-free persistence backend.
//
// Files:
//   - <prefix>.audit.jsonl     (append-only JSON Lines)
//   - <prefix>.sums.json       (checksum snapshot, atomically replaced)
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	auditFile *os.File

	sumsPath string
	sums     map[string]uint64
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("audit.path is required for file driver")
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	auditPath := prefix + ".audit.jsonl"
	sumsPath := prefix + ".sums.json"

	af, err := os.OpenFile(auditPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}

	sums := map[string]uint64{}
	_ = loadSums(sumsPath, sums)

	return &fileStore{
		log:       log,
		auditFile: af,
		sumsPath:  sumsPath,
		sums:      sums,
	}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.auditFile != nil {
		err := s.auditFile.Close()
		s.auditFile = nil
		return err
	}
	return nil
}

func (s *fileStore) AppendRecord(ctx context.Context, r Record) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.auditFile == nil {
		return errors.New("audit file closed")
	}
	return json.NewEncoder(s.auditFile).Encode(r)
}

func (s *fileStore) PutChecksum(ctx context.Context, platform string, sum uint64) error {
	_ = ctx
	platform = strings.TrimSpace(platform)
	if platform == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sums == nil {
		s.sums = map[string]uint64{}
	}
	s.sums[platform] = sum
	return s.writeSumsLocked()
}

func (s *fileStore) GetChecksum(ctx context.Context, platform string) (uint64, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	sum, ok := s.sums[platform]
	return sum, ok, nil
}

// writeSumsLocked snapshots the tiny checksum map atomically.
func (s *fileStore) writeSumsLocked() error {
	tmp := s.sumsPath + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(s.sums); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, s.sumsPath)
}

func loadSums(path string, out map[string]uint64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	var m map[string]uint64
	if err := json.NewDecoder(f).Decode(&m); err != nil {
		return err
	}
	for k, v := range m {
		out[k] = v
	}
	return nil
}
