package geo

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/hellogeo/geoanchor/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// EarthRadiusMeters is the mean sphere radius used for great-circle distances.
const EarthRadiusMeters = 6_371_000.0

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// HaversineDistance returns the great-circle distance in meters between two
// latitude/longitude points given in degrees. Inputs are not range checked.
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMeters * c
}

// Distance is HaversineDistance over two GeoPoints.
func Distance(a, b core.GeoPoint) float64 {
	return HaversineDistance(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}

// Valid reports whether p lies inside the WGS84 latitude/longitude ranges.
func Valid(p core.GeoPoint) bool {
	return p.Latitude >= -90 && p.Latitude <= 90 &&
		p.Longitude >= -180 && p.Longitude <= 180
}

// ParseGeoPoint parses a "lat,lon" or "lat,lon,alt" string. Out of range
// values are rejected with ErrInvalidCoordinates.
func ParseGeoPoint(coords string) (core.GeoPoint, float64, error) {
	coordsSplit := strings.Split(coords, ",")
	if len(coordsSplit) < 2 {
		return core.GeoPoint{}, 0, ErrInvalidCoordinates
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[0]), 64)
	if err != nil {
		return core.GeoPoint{}, 0, ErrInvalidCoordinates
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[1]), 64)
	if err != nil {
		return core.GeoPoint{}, 0, ErrInvalidCoordinates
	}
	var alt float64
	if len(coordsSplit) > 2 {
		alt, err = strconv.ParseFloat(strings.TrimSpace(coordsSplit[2]), 64)
		if err != nil {
			return core.GeoPoint{}, 0, ErrInvalidCoordinates
		}
	}
	p := core.GeoPoint{Latitude: lat, Longitude: lon}
	if !Valid(p) {
		return core.GeoPoint{}, 0, ErrInvalidCoordinates
	}
	return p, alt, nil
}

// ProjectWebMercator converts a WGS84 point (EPSG:4326) to Web Mercator (EPSG:3857) meters.
func ProjectWebMercator(p core.GeoPoint) (x, y float64) {
	f := wgs84.EPSG().Transform(4326, 3857)
	x, y, _ = f(p.Longitude, p.Latitude, 0)
	return x, y
}

// UnprojectWebMercator converts Web Mercator meters back to WGS84 degrees.
func UnprojectWebMercator(x, y float64) core.GeoPoint {
	f := wgs84.EPSG().Transform(3857, 4326)
	lon, lat, _ := f(x, y, 0)
	return core.GeoPoint{Latitude: lat, Longitude: lon}
}

// PointFromGeo builds an EPSG:3857 geometry point for storage.
// We always store as 3857 so SQLite, which has no spatial awareness, and PostGIS
// read the same WKB.
func PointFromGeo(p core.GeoPoint) geom.Point {
	x, y := ProjectWebMercator(p)
	return geom.NewPoint(
		geom.Coordinates{
			XY:   geom.XY{X: x, Y: y},
			Type: geom.DimXY,
		},
	)
}

// GeoFromPoint is the inverse of PointFromGeo. It reports false for an empty point.
func GeoFromPoint(pt geom.Point) (core.GeoPoint, bool) {
	coords, ok := pt.Coordinates()
	if !ok {
		return core.GeoPoint{}, false
	}
	return UnprojectWebMercator(coords.X, coords.Y), true
}
