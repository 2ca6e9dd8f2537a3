package core

// GeoPoint is a WGS84 latitude/longitude pair in degrees.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Quaternion is a unit rotation (x, y, z, w).
type Quaternion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// IdentityQuaternion is the orientation every placed anchor starts with.
var IdentityQuaternion = Quaternion{W: 1}

// CameraPose is the geospatial pose of the device camera for one tick.
// Heading is a compass bearing in degrees.
type CameraPose struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Altitude  float64 `json:"altitude"`
	Heading   float64 `json:"heading"`
}

// Point returns the pose position without altitude.
func (p CameraPose) Point() GeoPoint {
	return GeoPoint{Latitude: p.Latitude, Longitude: p.Longitude}
}
