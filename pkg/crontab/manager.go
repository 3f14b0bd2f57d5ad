package crontab

import (
	"errors"
	"fmt"
	"time"

	"cronkeeper/pkg/logx"
)

// Mutation describes one successful state change, for the audit trail.
type Mutation struct {
	At       time.Time
	Platform string
	Op       string
	EntryID  string
	Command  string
	Interval string
	Removed  int
}

// Recorder receives mutations after they are persisted. Implementations must
// not fail the calling operation; audit is best effort.
type Recorder interface {
	Record(m Mutation)
}

// Manager is the public facade over one Backend.
//
// Every mutating operation is a single load→transform→save cycle on the
// calling goroutine; no state is retained between calls, so the native store
// stays the only source of truth and a list issued right after a mutation
// reflects exactly that mutation plus all prior ones. Queries load and never
// write. Concurrent external edits between a load and a save are not locked
// against; the native store's last write wins.
type Manager struct {
	backend Backend
	log     logx.Logger
	rec     Recorder
}

type Option func(*Manager)

func WithLogger(log logx.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// WithRecorder wires an audit sink for mutations.
func WithRecorder(r Recorder) Option {
	return func(m *Manager) { m.rec = r }
}

func NewManager(b Backend, opts ...Option) *Manager {
	m := &Manager{backend: b, log: logx.Nop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Add validates command and interval, allocates a fresh id, appends the
// entry and saves. Nothing is written when validation fails.
func (m *Manager) Add(command, interval string, meta Metadata) (Entry, error) {
	e, err := NewEntry(command, interval, meta)
	if err != nil {
		return Entry{}, err
	}

	entries, err := m.backend.Load()
	if err != nil {
		return Entry{}, err
	}
	e.ID = newAllocatorFor(entries).Next(e.Command, e.Interval)

	entries = append(entries, e)
	if err := m.backend.Save(entries); err != nil {
		return Entry{}, err
	}

	m.log.Debug("entry added", logx.String("id", e.ID), logx.String("interval", e.Interval))
	m.record(Mutation{Op: "add", EntryID: e.ID, Command: e.Command, Interval: e.Interval})
	return e, nil
}

// All returns the managed entries in store order. Foreign entries are never
// returned by queries.
func (m *Manager) All() ([]Entry, error) {
	entries, err := m.backend.Load()
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if !e.foreign {
			out = append(out, e)
		}
	}
	return out, nil
}

// Get returns the entry with the given id, or ErrNotFound.
func (m *Manager) Get(id string) (Entry, error) {
	entries, err := m.All()
	if err != nil {
		return Entry{}, err
	}
	for _, e := range entries {
		if e.ID == id {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("%w: id %q", ErrNotFound, id)
}

// Exists reports whether an entry with the given id is present.
func (m *Manager) Exists(id string) (bool, error) {
	_, err := m.Get(id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return false, err
}

// ByCommand returns entries whose command matches exactly.
func (m *Manager) ByCommand(command string) ([]Entry, error) {
	return m.filter(func(e Entry) bool { return e.Command == command })
}

// ByInterval returns entries whose interval matches exactly, as stored.
func (m *Manager) ByInterval(interval string) ([]Entry, error) {
	return m.filter(func(e Entry) bool { return e.Interval == interval })
}

// Count returns the number of managed entries.
func (m *Manager) Count() (int, error) {
	entries, err := m.All()
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// UpdateCommand replaces the command of the entry with the given id. The id,
// interval and metadata are untouched.
func (m *Manager) UpdateCommand(id, newCommand string) (Entry, error) {
	if err := ValidateCommand(newCommand); err != nil {
		return Entry{}, err
	}
	return m.updateField(id, "update_command", func(e *Entry) { e.Command = newCommand })
}

// UpdateInterval replaces the interval of the entry with the given id.
func (m *Manager) UpdateInterval(id, newInterval string) (Entry, error) {
	if err := ValidateInterval(newInterval); err != nil {
		return Entry{}, err
	}
	return m.updateField(id, "update_interval", func(e *Entry) { e.Interval = NormalizeInterval(newInterval) })
}

func (m *Manager) updateField(id, op string, apply func(*Entry)) (Entry, error) {
	entries, err := m.backend.Load()
	if err != nil {
		return Entry{}, err
	}

	idx := -1
	for i, e := range entries {
		if !e.foreign && e.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Entry{}, fmt.Errorf("%w: id %q", ErrNotFound, id)
	}

	apply(&entries[idx])
	if err := m.backend.Save(entries); err != nil {
		return Entry{}, err
	}

	updated := entries[idx]
	m.record(Mutation{Op: op, EntryID: id, Command: updated.Command, Interval: updated.Interval})
	return updated, nil
}

// Delete removes the entry with the given id. Removing nothing is not an
// error; the count of removed entries (0 or 1) is returned.
func (m *Manager) Delete(id string) (int, error) {
	return m.deleteWhere("delete", func(e Entry) bool { return e.ID == id })
}

// DeleteByCommand removes every entry whose command matches exactly.
func (m *Manager) DeleteByCommand(command string) (int, error) {
	return m.deleteWhere("delete_by_command", func(e Entry) bool { return e.Command == command })
}

// DeleteByInterval removes every entry whose interval matches exactly.
func (m *Manager) DeleteByInterval(interval string) (int, error) {
	return m.deleteWhere("delete_by_interval", func(e Entry) bool { return e.Interval == interval })
}

func (m *Manager) deleteWhere(op string, match func(Entry) bool) (int, error) {
	entries, err := m.backend.Load()
	if err != nil {
		return 0, err
	}

	kept := entries[:0]
	removed := 0
	var lastID string
	for _, e := range entries {
		if !e.foreign && match(e) {
			removed++
			lastID = e.ID
			continue
		}
		kept = append(kept, e)
	}
	if removed == 0 {
		// Nothing matched: save nothing, per the all-or-nothing rule.
		return 0, nil
	}

	if err := m.backend.Save(kept); err != nil {
		return 0, err
	}
	m.log.Debug("entries deleted", logx.String("op", op), logx.Int("removed", removed))
	m.record(Mutation{Op: op, EntryID: lastID, Removed: removed})
	return removed, nil
}

// Duplicate copies the entry with the given id under a fresh id, with the
// new interval. Command and metadata are copied; the source is unaffected.
func (m *Manager) Duplicate(id, newInterval string) (Entry, error) {
	if err := ValidateInterval(newInterval); err != nil {
		return Entry{}, err
	}

	entries, err := m.backend.Load()
	if err != nil {
		return Entry{}, err
	}

	var src *Entry
	for i := range entries {
		if !entries[i].foreign && entries[i].ID == id {
			src = &entries[i]
			break
		}
	}
	if src == nil {
		return Entry{}, fmt.Errorf("%w: id %q", ErrNotFound, id)
	}

	dup := Entry{
		Command:  src.Command,
		Interval: NormalizeInterval(newInterval),
		Metadata: src.Metadata.clone(),
	}
	dup.ID = newAllocatorFor(entries).Next(dup.Command, dup.Interval)

	entries = append(entries, dup)
	if err := m.backend.Save(entries); err != nil {
		return Entry{}, err
	}

	m.record(Mutation{Op: "duplicate", EntryID: dup.ID, Command: dup.Command, Interval: dup.Interval})
	return dup, nil
}

func (m *Manager) filter(match func(Entry) bool) ([]Entry, error) {
	entries, err := m.All()
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if match(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *Manager) record(mut Mutation) {
	if m.rec == nil {
		return
	}
	mut.At = time.Now()
	mut.Platform = m.backend.Platform()
	m.rec.Record(mut)
}

// newAllocatorFor seeds an allocator with every id already in the loaded set.
func newAllocatorFor(entries []Entry) *Allocator {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.foreign {
			ids = append(ids, e.ID)
		}
	}
	return NewAllocator(ids)
}
