// Package visibility decides whether an anchor faces the camera.
package visibility

import (
	"math"

	"github.com/hellogeo/geoanchor/pkg/core"
	"gonum.org/v1/gonum/num/quat"
)

// DefaultToleranceDegrees is the half-width of the facing cone.
const DefaultToleranceDegrees = 75.0

// IsFacingCamera reports whether the anchor heading lies within tolerance of the
// camera heading. Both are compass bearings in degrees sharing one reference.
//
// The anchor heading is normalised into [0, 360) and compared linearly with the
// camera heading. The difference does not wrap, so headings on either side of
// north (e.g. 10 and 350) are treated as 340 degrees apart.
func IsFacingCamera(anchorHeading, cameraHeading, tolerance float64) bool {
	normalized := math.Mod(anchorHeading+360, 360)
	return math.Abs(normalized-cameraHeading) <= tolerance
}

// CircularDifference returns the smallest angle in [0, 180] between two headings.
// IsFacingCamera deliberately does not use it.
func CircularDifference(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360)
	return math.Min(d, 360-d)
}

// HeadingFromQuaternion returns the compass heading, in degrees, of the
// forward (+Z) axis once q has rotated it. Pitch and roll tilt the axis but
// leave its bearing in the horizontal plane alone.
func HeadingFromQuaternion(q core.Quaternion) float64 {
	n := toNumber(q)
	r := quat.Mul(quat.Mul(n, quat.Number{Kmag: 1}), quat.Conj(n))
	return math.Atan2(r.Imag, r.Kmag) * 180 / math.Pi
}

// Normalize scales q to unit length. The zero quaternion maps to identity.
func Normalize(q core.Quaternion) core.Quaternion {
	n := toNumber(q)
	abs := quat.Abs(n)
	if abs == 0 {
		return core.IdentityQuaternion
	}
	n = quat.Scale(1/abs, n)
	return core.Quaternion{X: n.Imag, Y: n.Jmag, Z: n.Kmag, W: n.Real}
}

// FromYaw builds the Y-up rotation whose HeadingFromQuaternion equals deg.
func FromYaw(deg float64) core.Quaternion {
	half := deg * math.Pi / 360
	return core.Quaternion{Y: math.Sin(half), W: math.Cos(half)}
}

func toNumber(q core.Quaternion) quat.Number {
	return quat.Number{Real: q.W, Imag: q.X, Jmag: q.Y, Kmag: q.Z}
}
