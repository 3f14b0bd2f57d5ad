package crontab

import (
	"fmt"
	"hash/fnv"
	"sync"

	"cronkeeper/pkg/logx"
)

// RawStore is the opaque native-store collaborator: something that can hand
// over the full current content (crontab text, task XML) and replace it
// wholesale. Implementations live in the platform packages; MemoryStore
// backs tests.
type RawStore interface {
	ReadRaw() (string, error)
	WriteRaw(content string) error
}

// Backend couples one codec with one native store behind a uniform
// load/save contract. Load returns every entry in store order, foreign ones
// included; Save replaces the whole store in a single write.
type Backend interface {
	Platform() string
	Load() ([]Entry, error)
	Save(entries []Entry) error
}

// Codec translates between raw native-store content and entries. Serialize
// must be deterministic: the same entry slice yields the same bytes, and
// foreign entries are re-emitted verbatim.
type Codec interface {
	Parse(raw string) ([]Entry, error)
	Serialize(entries []Entry) (string, error)
}

// ChecksumStore remembers the digest of the content this system last wrote,
// per platform. It backs best-effort detection of external edits; failures
// are the implementation's problem, never the caller's.
type ChecksumStore interface {
	PutChecksum(platform string, sum uint64)
	GetChecksum(platform string) (uint64, bool)
}

// Digest hashes raw store content for external-edit detection.
func Digest(content string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(content))
	return h.Sum64()
}

// BackendOption configures a store-backed Backend.
type BackendOption func(*storeBackend)

func WithBackendLogger(log logx.Logger) BackendOption {
	return func(b *storeBackend) { b.log = log }
}

// WithChecksumStore enables external-edit detection across process runs.
func WithChecksumStore(cs ChecksumStore) BackendOption {
	return func(b *storeBackend) { b.sums = cs }
}

// NewBackend couples a codec with a native store. The platform packages call
// this from their constructors; tests may combine any codec with a
// MemoryStore.
func NewBackend(platform string, store RawStore, codec Codec, opts ...BackendOption) Backend {
	b := &storeBackend{platform: platform, store: store, codec: codec, log: logx.Nop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type storeBackend struct {
	platform string
	store    RawStore
	codec    Codec
	log      logx.Logger
	sums     ChecksumStore
}

func (b *storeBackend) Platform() string { return b.platform }

func (b *storeBackend) Load() ([]Entry, error) {
	raw, err := b.store.ReadRaw()
	if err != nil {
		return nil, fmt.Errorf("%w: read %s store: %v", ErrStoreIO, b.platform, err)
	}
	if b.sums != nil {
		if sum, ok := b.sums.GetChecksum(b.platform); ok && sum != Digest(raw) {
			b.log.Warn("native store modified externally since last save",
				logx.String("platform", b.platform))
		}
	}
	return b.codec.Parse(raw)
}

func (b *storeBackend) Save(entries []Entry) error {
	raw, err := b.codec.Serialize(entries)
	if err != nil {
		return err
	}
	if err := b.store.WriteRaw(raw); err != nil {
		return fmt.Errorf("%w: write %s store: %v", ErrStoreIO, b.platform, err)
	}
	if b.sums != nil {
		b.sums.PutChecksum(b.platform, Digest(raw))
	}
	return nil
}

// MemoryStore is an in-memory RawStore for tests and dry runs.
type MemoryStore struct {
	mu      sync.Mutex
	content string

	// ReadErr/WriteErr, when set, are returned by the matching operation.
	ReadErr  error
	WriteErr error

	writes int
}

func NewMemoryStore(content string) *MemoryStore {
	return &MemoryStore{content: content}
}

func (s *MemoryStore) ReadRaw() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ReadErr != nil {
		return "", s.ReadErr
	}
	return s.content, nil
}

func (s *MemoryStore) WriteRaw(content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.WriteErr != nil {
		return s.WriteErr
	}
	s.content = content
	s.writes++
	return nil
}

// Content returns the current store content.
func (s *MemoryStore) Content() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content
}

// Writes returns how many successful WriteRaw calls happened.
func (s *MemoryStore) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
