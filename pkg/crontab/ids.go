package crontab

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/google/uuid"
)

// Allocator hands out stable entry identifiers.
//
// Ids are derived from a fnv64a hash over the normalized (command, interval)
// pair, so re-parsing an unchanged untagged crontab line yields the same id
// every time instead of fabricating a new identity per load. Collisions
// (duplicate command+interval pairs in one store) get a monotonically
// increasing suffix scoped to this allocator. Explicit duplication goes
// through the same path: the seed is taken, so the copy lands on a suffixed,
// distinct id.
//
// An Allocator is built per load/save cycle and is not safe for concurrent
// use; neither is the facade that owns it.
type Allocator struct {
	used map[string]struct{}
}

// NewAllocator seeds the allocator with every id already present in the
// store, managed or recovered.
func NewAllocator(existing []string) *Allocator {
	a := &Allocator{used: make(map[string]struct{}, len(existing))}
	for _, id := range existing {
		if id != "" {
			a.used[id] = struct{}{}
		}
	}
	return a
}

// Reserve marks an id as taken without allocating it.
func (a *Allocator) Reserve(id string) {
	if id != "" {
		a.used[id] = struct{}{}
	}
}

// Next returns a unique id for the given command/interval pair and marks it
// used. Allocation never fails: after suffix exhaustion (unreachable with a
// store-scoped id space) it falls back to a random token.
func (a *Allocator) Next(command, interval string) string {
	seed := seedID(command, interval)
	if _, taken := a.used[seed]; !taken {
		a.used[seed] = struct{}{}
		return seed
	}
	for n := 2; n < 1<<16; n++ {
		id := fmt.Sprintf("%s-%d", seed, n)
		if _, taken := a.used[id]; !taken {
			a.used[id] = struct{}{}
			return id
		}
	}
	id := uuid.NewString()
	a.used[id] = struct{}{}
	return id
}

// seedID hashes the normalized pair. Whitespace runs inside the interval are
// collapsed so cosmetic spacing does not change identity.
func seedID(command, interval string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.TrimSpace(command)))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(strings.Join(strings.Fields(interval), " ")))
	return fmt.Sprintf("%016x", h.Sum64())
}
