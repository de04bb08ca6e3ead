// Package dedupe detects identifier collisions inside one message.
//
// Derived identifiers are deterministic, so two measurement points with the
// same name collide on the same uid. The builder records every uid it emits
// and rejects the second occurrence.
package dedupe

import "context"

// Deduper records seen identifiers.
type Deduper interface {
	// SeenAndRecord reports whether id was already recorded and records it
	// if it was not.
	SeenAndRecord(ctx context.Context, id string) bool

	Size() int64
}

// inMemoryDeduper keeps every id of one build in a map. Nothing is ever
// evicted, so a collision is always caught.
type inMemoryDeduper struct {
	seen map[string]struct{}
}

// NewInMemoryDeduper creates an unbounded deduper. Not safe for concurrent use.
func NewInMemoryDeduper() Deduper {
	return &inMemoryDeduper{seen: make(map[string]struct{})}
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	if _, ok := d.seen[id]; ok {
		return true
	}
	d.seen[id] = struct{}{}
	return false
}

func (d *inMemoryDeduper) Size() int64 {
	return int64(len(d.seen))
}
