// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"

	"github.com/hellogeo/geoanchor/internal/geo"
	"github.com/hellogeo/geoanchor/internal/model"
	"github.com/hellogeo/geoanchor/pkg/core"
	"gorm.io/datatypes"
)

// orientationJSON is the stored shape of an anchor quaternion.
type orientationJSON struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// quaternionToJSON converts a core.Quaternion to datatypes.JSON for DB storage.
func quaternionToJSON(q core.Quaternion) datatypes.JSON {
	data, _ := json.Marshal(orientationJSON{X: q.X, Y: q.Y, Z: q.Z, W: q.W})
	return datatypes.JSON(data)
}

// jsonToQuaternion decodes a stored orientation. Missing or malformed data is the identity rotation.
func jsonToQuaternion(data datatypes.JSON) core.Quaternion {
	if len(data) == 0 {
		return core.IdentityQuaternion
	}
	var o orientationJSON
	if err := json.Unmarshal(data, &o); err != nil {
		return core.IdentityQuaternion
	}
	q := core.Quaternion{X: o.X, Y: o.Y, Z: o.Z, W: o.W}
	if q == (core.Quaternion{}) {
		return core.IdentityQuaternion
	}
	return q
}

// AnchorToGorm converts a core.AnchorRecord to a GORM Anchor.
func AnchorToGorm(r core.AnchorRecord) model.Anchor {
	return model.Anchor{
		ID:          r.ID,
		CreatedAt:   r.CreatedAt,
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
		Altitude:    r.Altitude,
		Heading:     r.Heading,
		Location:    geo.PointFromGeo(r.Point()),
		Orientation: quaternionToJSON(r.Orientation),
	}
}

// AnchorToCore converts a GORM Anchor to a core.AnchorRecord.
// Latitude/Longitude columns win over Location, which is only a projection of them.
// Rows written with only a geometry get their coordinates back from Location.
func AnchorToCore(a model.Anchor) core.AnchorRecord {
	r := core.AnchorRecord{
		ID:          a.ID,
		Latitude:    a.Latitude,
		Longitude:   a.Longitude,
		Altitude:    a.Altitude,
		Heading:     a.Heading,
		Orientation: jsonToQuaternion(a.Orientation),
		CreatedAt:   a.CreatedAt,
	}
	if r.Latitude == 0 && r.Longitude == 0 {
		if p, ok := geo.GeoFromPoint(a.Location); ok {
			r.Latitude, r.Longitude = p.Latitude, p.Longitude
		}
	}
	return r
}
