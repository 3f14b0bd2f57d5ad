package unix

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"cronkeeper/pkg/logx"
)

// CommandStore talks to the real per-user crontab through the platform
// binary: `crontab -l` to read, `crontab <tmpfile>` to install. A user's
// missing crontab reads as empty rather than as an error.
type CommandStore struct {
	log logx.Logger

	// Binary overrides the crontab executable path (tests point it at a
	// stub). Empty means "crontab" from PATH.
	Binary string
	// User selects another user's crontab via -u; requires privileges.
	User string
}

func NewCommandStore(log logx.Logger) *CommandStore {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &CommandStore{log: log}
}

func (s *CommandStore) binary() string {
	if s.Binary != "" {
		return s.Binary
	}
	return "crontab"
}

func (s *CommandStore) userArgs() []string {
	if s.User == "" {
		return nil
	}
	return []string{"-u", s.User}
}

func (s *CommandStore) ReadRaw() (string, error) {
	args := append(s.userArgs(), "-l")
	cmd := exec.Command(s.binary(), args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// crontab exits non-zero when the user has no crontab yet
			s.log.Debug("crontab -l reported no crontab",
				logx.String("stderr", strings.TrimSpace(stderr.String())))
			return "", nil
		}
		return "", fmt.Errorf("run %s -l: %w", s.binary(), err)
	}
	return stdout.String(), nil
}

func (s *CommandStore) WriteRaw(content string) error {
	// Install through a temp file so a failed run never half-applies.
	f, err := os.CreateTemp("", "cronkeeper-*.tab")
	if err != nil {
		return fmt.Errorf("create temp crontab: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return fmt.Errorf("write temp crontab: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp crontab: %w", err)
	}

	args := append(s.userArgs(), path)
	cmd := exec.Command(s.binary(), args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("install crontab: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
