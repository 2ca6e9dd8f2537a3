// Package anchorset holds the bounded, insertion-ordered set of placed anchors.
package anchorset

import (
	"errors"
	"fmt"
	"math"

	"github.com/hellogeo/geoanchor/internal/geo"
	"github.com/hellogeo/geoanchor/pkg/core"
)

// MaxAnchors is the default capacity of a Set.
const MaxAnchors = 3

var (
	// ErrEmptySet is returned by NearestTo when the set has no entries.
	ErrEmptySet = errors.New("anchor set is empty")
	// ErrIndexOutOfRange is returned for an index outside [0, Len).
	ErrIndexOutOfRange = errors.New("anchor index out of range")
)

// Entry pairs an anchor with the coordinate used for distance queries.
type Entry struct {
	Anchor     core.Anchor
	Coordinate core.GeoPoint
}

// Set is an ordered FIFO of at most Cap entries, oldest first.
// It is not safe for concurrent use.
type Set struct {
	entries  []Entry
	capacity int
}

// New creates an empty set. A capacity below 1 falls back to MaxAnchors.
func New(capacity int) *Set {
	if capacity < 1 {
		capacity = MaxAnchors
	}
	return &Set{
		entries:  make([]Entry, 0, capacity),
		capacity: capacity,
	}
}

// Len returns the number of entries.
func (s *Set) Len() int {
	return len(s.entries)
}

// Cap returns the maximum number of entries.
func (s *Set) Cap() int {
	return s.capacity
}

// Full reports whether the next Insert will evict.
func (s *Set) Full() bool {
	return len(s.entries) >= s.capacity
}

// Insert appends the anchor and its coordinate. When the set is full the oldest
// entry is removed first and returned; otherwise the returned entry is nil.
func (s *Set) Insert(anchor core.Anchor, coordinate core.GeoPoint) *Entry {
	var evicted *Entry
	if s.Full() {
		evicted = s.RemoveFirst()
	}
	s.entries = append(s.entries, Entry{Anchor: anchor, Coordinate: coordinate})
	return evicted
}

// RemoveFirst removes and returns the oldest entry, or nil if the set is empty.
func (s *Set) RemoveFirst() *Entry {
	if len(s.entries) == 0 {
		return nil
	}
	first := s.entries[0]
	copy(s.entries, s.entries[1:])
	s.entries = s.entries[:len(s.entries)-1]
	return &first
}

// Hydrate replaces the contents with entries, keeping only the newest Cap of them.
func (s *Set) Hydrate(entries []Entry) {
	if len(entries) > s.capacity {
		entries = entries[len(entries)-s.capacity:]
	}
	s.entries = append(s.entries[:0], entries...)
}

// At returns the entry at index.
func (s *Set) At(index int) (Entry, error) {
	if index < 0 || index >= len(s.entries) {
		return Entry{}, fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, index, len(s.entries))
	}
	return s.entries[index], nil
}

// Entries returns a copy of all entries, oldest first.
func (s *Set) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Anchors returns the anchor projection, index-aligned with Coordinates.
func (s *Set) Anchors() []core.Anchor {
	out := make([]core.Anchor, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Anchor
	}
	return out
}

// Coordinates returns the coordinate projection, index-aligned with Anchors.
func (s *Set) Coordinates() []core.GeoPoint {
	out := make([]core.GeoPoint, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Coordinate
	}
	return out
}

// DistanceTo returns the great-circle distance from camera to the entry at index.
func (s *Set) DistanceTo(index int, camera core.GeoPoint) (float64, error) {
	e, err := s.At(index)
	if err != nil {
		return 0, err
	}
	return geo.Distance(e.Coordinate, camera), nil
}

// NearestTo returns the index and distance of the entry closest to camera.
// Ties resolve to the lowest index.
func (s *Set) NearestTo(camera core.GeoPoint) (int, float64, error) {
	if len(s.entries) == 0 {
		return -1, 0, ErrEmptySet
	}
	index, best := -1, math.MaxFloat64
	for i, e := range s.entries {
		d := geo.Distance(e.Coordinate, camera)
		if d < best {
			index, best = i, d
		}
	}
	return index, best, nil
}
