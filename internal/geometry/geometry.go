// Package geometry provides the 2D vector math used to turn body landmarks into joint angles.
package geometry

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Point is a 2D point or vector in image space (y grows downward).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Reference axes for trunk angles.
var (
	// Vertical points straight down the image.
	Vertical = Point{X: 0, Y: 1}
	// Horizontal points to the right of the image.
	Horizontal = Point{X: 1, Y: 0}
)

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Add returns p + q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Norm returns the Euclidean length of p.
func (p Point) Norm() float64 {
	return floats.Norm(p.slice(), 2)
}

func (p Point) slice() []float64 {
	return []float64{p.X, p.Y}
}

// Angle returns the angle in degrees at vertex b between the rays b->a and b->c.
// The result is in [0, 180]. Coincident points produce 0 since atan2(0, 0) is 0.
func Angle(a, b, c Point) float64 {
	radians := math.Atan2(c.Y-b.Y, c.X-b.X) - math.Atan2(a.Y-b.Y, a.X-b.X)
	angle := math.Abs(radians * 180.0 / math.Pi)

	if angle > 180.0 {
		angle = 360.0 - angle
	}

	return angle
}

// Distance returns the Euclidean distance between p and q.
func Distance(p, q Point) float64 {
	return floats.Distance(p.slice(), q.slice(), 2)
}

// AxisAngle returns the angle in degrees between vector v and the reference axis.
// A zero-length vector (or axis) yields 0 instead of an error.
func AxisAngle(v, axis Point) float64 {
	vn := v.Norm()
	an := axis.Norm()
	if vn == 0 || an == 0 {
		return 0
	}

	cos := floats.Dot(v.slice(), axis.slice()) / (vn * an)
	cos = math.Max(-1.0, math.Min(1.0, cos))

	return math.Acos(cos) * 180.0 / math.Pi
}

// Polar returns the point at distance length from origin in the direction
// given by radians (measured like atan2, in image coordinates).
func Polar(origin Point, radians, length float64) Point {
	return Point{
		X: origin.X + length*math.Cos(radians),
		Y: origin.Y + length*math.Sin(radians),
	}
}
