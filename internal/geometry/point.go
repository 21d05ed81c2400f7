// Package geometry provides the 2D point kernel used by every derived construction.
package geometry

import (
	"math"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r2"
)

// degenerateAxis is the squared-length threshold under which two axis points
// are treated as coincident.
const degenerateAxis = 1e-12

// Point is a position in the sketch's logical coordinate space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

func (p Point) vec() r2.Vec {
	return r2.Vec{X: p.X, Y: p.Y}
}

func fromVec(v r2.Vec) Point {
	return Point{X: v.X, Y: v.Y}
}

// Rotate rotates p about origin by the given angle in degrees.
func (p Point) Rotate(origin Point, degrees float64) Point {
	return fromVec(r2.Rotate(p.vec(), Radians(degrees), origin.vec()))
}

// DistanceTo returns the Euclidean distance between p and q.
func (p Point) DistanceTo(q Point) float64 {
	return r2.Norm(r2.Sub(q.vec(), p.vec()))
}

// AngleTo returns the bearing from p to q in degrees, in the range (-180, 180].
func (p Point) AngleTo(q Point) float64 {
	deg := Degrees(math.Atan2(q.Y-p.Y, q.X-p.X))
	if deg <= -180 {
		deg += 360
	}
	return deg
}

// PointAt returns the point at the given distance from p along the bearing.
func (p Point) PointAt(distance, degrees float64) Point {
	rad := Radians(degrees)
	offset := r2.Scale(distance, r2.Vec{X: math.Cos(rad), Y: math.Sin(rad)})
	return fromVec(r2.Add(p.vec(), offset))
}

// MirrorOverLine reflects p across the infinite line through a and b.
// Coincident axis points leave p unchanged.
func (p Point) MirrorOverLine(a, b Point) Point {
	dx := b.X - a.X
	dy := b.Y - a.Y
	d := dx*dx + dy*dy
	if scalar.EqualWithinAbs(d, 0, degenerateAxis) {
		return p
	}

	ca := (dx*dx - dy*dy) / d
	cb := 2 * dx * dy / d
	rx := p.X - a.X
	ry := p.Y - a.Y
	return Point{
		X: ca*rx + cb*ry + a.X,
		Y: cb*rx - ca*ry + a.Y,
	}
}

// ApproxEqual reports whether p and q are within tol on both axes.
func (p Point) ApproxEqual(q Point, tol float64) bool {
	return scalar.EqualWithinAbs(p.X, q.X, tol) && scalar.EqualWithinAbs(p.Y, q.Y, tol)
}

// Radians converts degrees to radians.
func Radians(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// Degrees converts radians to degrees.
func Degrees(radians float64) float64 {
	return radians * 180 / math.Pi
}

// NormalizeDegrees wraps an angle into [0, 360).
func NormalizeDegrees(a float64) float64 {
	a = math.Mod(a, 360)
	if a < 0 {
		a += 360
	}
	if a >= 360 {
		a -= 360
	}
	return a
}

// WrapDegrees wraps an angle into (-180, 180].
func WrapDegrees(a float64) float64 {
	a = NormalizeDegrees(a)
	if a > 180 {
		a -= 360
	}
	return a
}
