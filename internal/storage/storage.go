// internal/storage/storage.go
package storage

import (
	"errors"
	"time"

	"github.com/hellogeo/geoanchor/pkg/core"
)

// ErrNotFound is returned when an anchor record does not exist.
var ErrNotFound = errors.New("anchor record not found")

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Writes may complete asynchronously; callers must not rely on them
	// being visible before the next call returns.
	InsertAnchor(r *core.AnchorRecord) error
	DeleteAnchor(r *core.AnchorRecord) error

	// Reads, oldest first
	ListAnchors() ([]core.AnchorRecord, error)
	GetAnchor(id string) (core.AnchorRecord, error)
}

// Flusher is an optional interface for backends that buffer writes.
type Flusher interface {
	Flush() error
}

// WriteStats is an optional interface for backends with a write queue.
type WriteStats interface {
	Pending() int
	GetLastDBWriteDuration() time.Duration
}
