// Package markers mirrors the anchor set onto a 2D map layer.
package markers

import (
	"errors"
	"fmt"
	"sync"

	"github.com/hellogeo/geoanchor/internal/geo"
	"github.com/hellogeo/geoanchor/pkg/core"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// DefaultColor is the marker fill used for every anchor.
const DefaultColor = "#7D7D7D"

// ErrMarkerIndex is returned for an index outside the layer.
var ErrMarkerIndex = errors.New("marker index out of range")

// Layer is kept in index correspondence with the anchor set.
type Layer interface {
	AddMarker() int
	RemoveMarker(index int) error
	SetVisible(index int, visible bool) error
	SetPosition(index int, p core.GeoPoint) error
	Len() int
}

// Marker is one map marker.
type Marker struct {
	Position core.GeoPoint
	Visible  bool
	Placed   bool
}

// Map is an in-memory Layer exportable as GeoJSON.
type Map struct {
	mu      sync.RWMutex
	markers []Marker
	color   string
}

// NewMap creates an empty marker map.
func NewMap() *Map {
	return &Map{color: DefaultColor}
}

// AddMarker appends a hidden, unplaced marker and returns its index.
func (m *Map) AddMarker() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markers = append(m.markers, Marker{})
	return len(m.markers) - 1
}

// RemoveMarker removes the marker at index and shifts later markers down.
func (m *Map) RemoveMarker(index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(index); err != nil {
		return err
	}
	m.markers = append(m.markers[:index], m.markers[index+1:]...)
	return nil
}

// SetVisible shows or hides the marker at index.
func (m *Map) SetVisible(index int, visible bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(index); err != nil {
		return err
	}
	m.markers[index].Visible = visible
	return nil
}

// SetPosition moves the marker at index.
func (m *Map) SetPosition(index int, p core.GeoPoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(index); err != nil {
		return err
	}
	m.markers[index].Position = p
	m.markers[index].Placed = true
	return nil
}

// Len returns the number of markers.
func (m *Map) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.markers)
}

// Markers returns a copy of the markers.
func (m *Map) Markers() []Marker {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Marker, len(m.markers))
	copy(out, m.markers)
	return out
}

func (m *Map) check(index int) error {
	if index < 0 || index >= len(m.markers) {
		return fmt.Errorf("%w: %d (len %d)", ErrMarkerIndex, index, len(m.markers))
	}
	return nil
}

// FeatureCollection exports visible, placed markers as GeoJSON points.
// Each feature carries its index, color and Web-Mercator coordinates. A
// non-empty collection carries its bounding box.
func (m *Map) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i, mk := range m.Markers() {
		if !mk.Visible || !mk.Placed {
			continue
		}
		f := geojson.NewFeature(orb.Point{mk.Position.Longitude, mk.Position.Latitude})
		x, y := geo.ProjectWebMercator(mk.Position)
		f.Properties["index"] = i
		f.Properties["color"] = m.color
		f.Properties["mercator_x"] = x
		f.Properties["mercator_y"] = y
		fc.Append(f)
	}
	if b, ok := m.Bound(); ok {
		fc.BBox = geojson.NewBBox(b)
	}
	return fc
}

// Bound returns the bounding box of visible, placed markers.
func (m *Map) Bound() (orb.Bound, bool) {
	var mp orb.MultiPoint
	for _, mk := range m.Markers() {
		if mk.Visible && mk.Placed {
			mp = append(mp, orb.Point{mk.Position.Longitude, mk.Position.Latitude})
		}
	}
	if len(mp) == 0 {
		return orb.Bound{}, false
	}
	return mp.Bound(), true
}
