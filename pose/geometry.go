package pose

import "math"

type Point struct {
	X float64
	Y float64
}

// Angle returns the unsigned angle ABC in degrees, in [0, 180].
// ok is false when the vertex coincides with either endpoint, since the
// angle is undefined there.
func Angle(a, b, c Point) (float64, bool) {
	if a == b || c == b {
		return 0, false
	}
	radians := math.Atan2(c.Y-b.Y, c.X-b.X) - math.Atan2(a.Y-b.Y, a.X-b.X)
	angle := math.Abs(radians * 180.0 / math.Pi)
	if angle > 180.0 {
		angle = 360 - angle
	}
	if math.IsNaN(angle) || math.IsInf(angle, 0) {
		return 0, false
	}
	return angle, true
}
