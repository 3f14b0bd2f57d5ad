package crontab

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileStore reads and writes a native-store document kept in a plain file:
// a cron.d-style crontab, an exported Task Scheduler document set, or a test
// fixture. A missing file reads as empty. Writes go to a temp file in the
// same directory followed by an atomic rename, so readers never observe a
// partial document.
type FileStore struct {
	Path string
	// Perm applies to newly created files; 0 means 0o644.
	Perm os.FileMode
}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

func (s *FileStore) ReadRaw() (string, error) {
	b, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return string(b), nil
}

func (s *FileStore) WriteRaw(content string) error {
	perm := s.Perm
	if perm == 0 {
		perm = 0o644
	}
	dir := filepath.Dir(s.Path)
	f, err := os.CreateTemp(dir, ".cronkeeper-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Chmod(perm); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, s.Path)
}

// Watch blocks until ctx is done, invoking onChange after the watched file
// settles following an edit. The directory is watched rather than the file
// itself so atomic rename-style rewrites (our own included) are seen.
//
// Events are debounced: editors and atomic writers emit bursts of
// create/write/rename for a single logical change.
func (s *FileStore) Watch(ctx context.Context, onChange func()) error {
	dir := filepath.Dir(s.Path)
	file := filepath.Base(s.Path)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}

	// debounce to avoid partial writes
	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	debounce := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(250*time.Millisecond, onChange)
	}

	for {
		select {
		case <-ctx.Done():
			timerMu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timerMu.Unlock()
			return nil
		case ev := <-w.Events:
			if filepath.Base(ev.Name) == file {
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
					debounce()
				}
			}
		case <-w.Errors:
			// keep watching
		}
	}
}
