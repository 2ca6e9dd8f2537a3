// internal/storage/memory/memory.go
package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/hellogeo/geoanchor/internal/storage"
	"github.com/hellogeo/geoanchor/pkg/core"
)

// Backend keeps anchor records in process memory.
type Backend struct {
	records map[string]core.AnchorRecord
	order   []string
	mu      sync.RWMutex
}

// New creates a new memory backend
func New() *Backend {
	return &Backend{
		records: make(map[string]core.AnchorRecord),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// InsertAnchor stores the record. An existing ID is left untouched.
func (b *Backend) InsertAnchor(r *core.AnchorRecord) error {
	if r == nil || r.ID == "" {
		return fmt.Errorf("insert anchor: missing record ID")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.records[r.ID]; ok {
		return nil
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	b.records[r.ID] = *r
	b.order = append(b.order, r.ID)
	return nil
}

// DeleteAnchor removes the record. Deleting an unknown ID is a no-op.
func (b *Backend) DeleteAnchor(r *core.AnchorRecord) error {
	if r == nil {
		return fmt.Errorf("delete anchor: nil record")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.records[r.ID]; !ok {
		return nil
	}
	delete(b.records, r.ID)
	for i, id := range b.order {
		if id == r.ID {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return nil
}

// ListAnchors returns all records in insertion order.
func (b *Backend) ListAnchors() ([]core.AnchorRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]core.AnchorRecord, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.records[id])
	}
	return out, nil
}

// GetAnchor returns a single record.
func (b *Backend) GetAnchor(id string) (core.AnchorRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	r, ok := b.records[id]
	if !ok {
		return core.AnchorRecord{}, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	return r, nil
}
