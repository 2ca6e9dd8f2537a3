// Package render tracks the render-side handles attached to placed anchors.
package render

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hellogeo/geoanchor/pkg/core"
)

// ErrUnknownHandle is returned when detaching a handle that is not attached.
var ErrUnknownHandle = errors.New("unknown render handle")

// Anchorer creates and detaches render anchors.
type Anchorer interface {
	CreateAnchor(lat, lon, alt float64, q core.Quaternion) (core.Handle, error)
	Detach(h core.Handle) error
}

// Attachment describes one attached render anchor.
type Attachment struct {
	Handle      core.Handle     `json:"handle"`
	Latitude    float64         `json:"latitude"`
	Longitude   float64         `json:"longitude"`
	Altitude    float64         `json:"altitude"`
	Orientation core.Quaternion `json:"orientation"`
	AttachedAt  time.Time       `json:"attachedAt"`
}

// Registry is a headless Anchorer that keeps attachments in memory.
type Registry struct {
	mu       sync.RWMutex
	attached map[core.Handle]Attachment
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{attached: make(map[core.Handle]Attachment)}
}

// CreateAnchor attaches a new render anchor and returns its handle.
func (r *Registry) CreateAnchor(lat, lon, alt float64, q core.Quaternion) (core.Handle, error) {
	h := core.Handle(uuid.NewString())

	r.mu.Lock()
	defer r.mu.Unlock()
	r.attached[h] = Attachment{
		Handle:      h,
		Latitude:    lat,
		Longitude:   lon,
		Altitude:    alt,
		Orientation: q,
		AttachedAt:  time.Now(),
	}
	return h, nil
}

// Detach removes the handle. Detaching twice returns ErrUnknownHandle.
func (r *Registry) Detach(h core.Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.attached[h]; !ok {
		return fmt.Errorf("detach %s: %w", h, ErrUnknownHandle)
	}
	delete(r.attached, h)
	return nil
}

// IsAttached reports whether h is currently attached.
func (r *Registry) IsAttached(h core.Handle) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.attached[h]
	return ok
}

// Attached lists current attachments, oldest first.
func (r *Registry) Attached() []Attachment {
	r.mu.RLock()
	out := make([]Attachment, 0, len(r.attached))
	for _, a := range r.attached {
		out = append(out, a)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].AttachedAt.Equal(out[j].AttachedAt) {
			return out[i].Handle < out[j].Handle
		}
		return out[i].AttachedAt.Before(out[j].AttachedAt)
	})
	return out
}
