// Package dedupe tracks recently seen deal ids so a closed deal is credited at most once.
package dedupe

import (
	"context"
	"sync"
)

// Deduper records seen deal IDs to ensure at-most-once crediting.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so the deal can be submitted again. Used when a deal
	// was recorded but could not be queued.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

type slot struct {
	id  string
	seq uint64
}

// inMemoryDeduper keeps the most recent maxSize ids and evicts the oldest first.
// An unrecorded id leaves a stale slot in the ring; eviction skips slots whose
// sequence no longer matches the map.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]uint64
	ring    []slot
	head    int // next slot to write
	seq     uint64
	maxSize int // <= 0 means unbounded
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]uint64)
	if d.maxSize > 0 {
		d.ring = make([]slot, d.maxSize)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}
	d.seq++
	if d.maxSize > 0 {
		old := d.ring[d.head]
		if s, ok := d.seen[old.id]; ok && s == old.seq {
			delete(d.seen, old.id)
		}
		d.ring[d.head] = slot{id: id, seq: d.seq}
		d.head = (d.head + 1) % d.maxSize
	}
	d.seen[id] = d.seq
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	delete(d.seen, id)
	d.mu.Unlock()
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
