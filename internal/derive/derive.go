// Package derive computes the geometry of every non-point entity from the
// points it references. Nothing is cached: each call reads the sketch as it
// is now. A missing reference makes the affected output disappear (ok=false)
// and is never an error.
package derive

import (
	"math"

	"github.com/draftcore/draftcore/backend-go/internal/document"
	"github.com/draftcore/draftcore/backend-go/internal/geometry"
)

func point(s *document.Sketch, id document.ID) (geometry.Point, bool) {
	p, ok := s.Point(id)
	if !ok {
		return geometry.Point{}, false
	}
	return p.Pos(), true
}

func points(s *document.Sketch, ids ...document.ID) ([]geometry.Point, bool) {
	out := make([]geometry.Point, len(ids))
	for i, id := range ids {
		p, ok := point(s, id)
		if !ok {
			return nil, false
		}
		out[i] = p
	}
	return out, true
}

// BisectorPoint returns the end of a bisector of the angle p1-vertex-p3,
// length away from the vertex. A reflex angle between the arms is bisected
// on the short side.
func BisectorPoint(p1, vertex, p3 geometry.Point, length float64) geometry.Point {
	ang1 := vertex.AngleTo(p1)
	ang2 := vertex.AngleTo(p3)
	diff := geometry.NormalizeDegrees(ang2 - ang1)

	var angle float64
	if diff > 180 {
		angle = ang1 - (360-diff)/2
	} else {
		angle = ang1 + diff/2
	}
	return vertex.PointAt(length, angle)
}

// BisectorEnd resolves the endpoint of bisector id.
func BisectorEnd(s *document.Sketch, id document.ID) (geometry.Point, bool) {
	b, ok := s.Bisector(id)
	if !ok {
		return geometry.Point{}, false
	}
	pts, ok := points(s, b.P1, b.Vertex, b.P3)
	if !ok {
		return geometry.Point{}, false
	}
	return BisectorPoint(pts[0], pts[1], pts[2], b.Length), true
}

// PointAlong returns the point distance away from p1 toward p2.
func PointAlong(p1, p2 geometry.Point, distance float64) geometry.Point {
	return p1.PointAt(distance, p1.AngleTo(p2))
}

// AlongLinePoint resolves along-line point id.
func AlongLinePoint(s *document.Sketch, id document.ID) (geometry.Point, bool) {
	a, ok := s.AlongLine(id)
	if !ok {
		return geometry.Point{}, false
	}
	pts, ok := points(s, a.P1, a.P2)
	if !ok {
		return geometry.Point{}, false
	}
	return PointAlong(pts[0], pts[1], a.Distance), true
}

// Arc is the resolved geometry of an arc entity.
//
// Span is the raw end-minus-start angle and decides the path flags.
// NormalizedSpan is Span wrapped into (-180, 180] and decides Length. The
// two disagree once |Span| exceeds 180; both are kept as stored.
type Arc struct {
	Center         geometry.Point
	Start          geometry.Point
	End            geometry.Point
	Radius         float64
	Span           float64
	NormalizedSpan float64
	LargeArc       bool
	Sweep          bool
}

// ArcFrom computes arc geometry from its center and parameters.
func ArcFrom(center geometry.Point, radius, startAngle, endAngle float64) Arc {
	span := endAngle - startAngle
	return Arc{
		Center:         center,
		Start:          center.PointAt(radius, startAngle),
		End:            center.PointAt(radius, endAngle),
		Radius:         radius,
		Span:           span,
		NormalizedSpan: geometry.WrapDegrees(span),
		LargeArc:       math.Abs(span) > 180,
		Sweep:          span >= 0,
	}
}

// ArcGeometry resolves arc id.
func ArcGeometry(s *document.Sketch, id document.ID) (Arc, bool) {
	a, ok := s.Arc(id)
	if !ok {
		return Arc{}, false
	}
	c, ok := point(s, a.Center)
	if !ok {
		return Arc{}, false
	}
	return ArcFrom(c, a.Radius, a.StartAngle, a.EndAngle), true
}

// Length is the arc length along the normalized span.
func (a Arc) Length() float64 {
	return a.Radius * math.Abs(geometry.Radians(a.NormalizedSpan))
}

// PathData returns the SVG path description of the arc.
func (a Arc) PathData() string {
	return Shape{Kind: document.KindArc, Points: []geometry.Point{a.Start, a.End, a.Center},
		Radius: a.Radius, LargeArc: a.LargeArc, Sweep: a.Sweep}.PathData()
}
