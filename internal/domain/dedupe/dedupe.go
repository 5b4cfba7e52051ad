// Package dedupe tracks batch IDs so a resubmitted batch is not evaluated twice.
package dedupe

import (
	"container/list"
	"context"
	"sync"
)

// DefaultMaxSize is the number of batch IDs remembered when no size is configured.
const DefaultMaxSize = 50000

// Deduper records seen batch IDs.
type Deduper interface {
	// SeenAndRecord reports whether id was already recorded and records it if not.
	// The check and the record happen atomically.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so the batch can be submitted again, e.g. after the
	// queue rejected it.
	Unrecord(ctx context.Context, id string)

	// Size is the number of IDs currently remembered.
	Size() int64
}

// inMemoryDeduper keeps IDs in insertion order. When bounded and full, the oldest
// ID is forgotten first.
type inMemoryDeduper struct {
	mu      sync.Mutex
	maxSize int // <= 0 means unbounded
	order   *list.List
	seen    map[string]*list.Element
}

// NewInMemoryDeduper returns a Deduper bounded to DefaultMaxSize unless overridden.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: DefaultMaxSize,
		order:   list.New(),
		seen:    make(map[string]*list.Element),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		d.evictOldest()
	}
	d.seen[id] = d.order.PushBack(id)
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[id]; ok {
		d.order.Remove(el)
		delete(d.seen, id)
	}
}

// evictOldest must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	front := d.order.Front()
	if front == nil {
		return
	}
	d.order.Remove(front)
	delete(d.seen, front.Value.(string))
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(d.order.Len())
}
