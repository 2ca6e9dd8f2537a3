package core

import "time"

// Handle is an opaque render-side anchor handle.
type Handle string

// Anchor is a placed marker tracked by the session.
// ID is shared by the render handle, the coordinate slot and the persisted record.
type Anchor struct {
	ID          string     `json:"id"`
	Handle      Handle     `json:"handle"`
	Position    GeoPoint   `json:"position"`
	Altitude    float64    `json:"altitude"`
	Orientation Quaternion `json:"orientation"`
}

// AnchorRecord is the persisted form of an anchor.
type AnchorRecord struct {
	ID          string     `json:"id"`
	Latitude    float64    `json:"latitude"`
	Longitude   float64    `json:"longitude"`
	Altitude    float64    `json:"altitude"`
	Heading     float64    `json:"heading"`
	Orientation Quaternion `json:"orientation"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Point returns the record position.
func (r AnchorRecord) Point() GeoPoint {
	return GeoPoint{Latitude: r.Latitude, Longitude: r.Longitude}
}
