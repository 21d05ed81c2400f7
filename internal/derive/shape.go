package derive

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/draftcore/draftcore/backend-go/internal/document"
	"github.com/draftcore/draftcore/backend-go/internal/geometry"
)

// Shape is the resolved, drawable geometry of one referenceable entity.
//
// Points holds, by kind:
//   - point, along_line: the position
//   - line: start, end
//   - spline: start, control 1, control 2, end
//   - bisector: vertex, endpoint
//   - arc: start, end, center
type Shape struct {
	Source   document.EntityRef `json:"source"`
	Kind     document.Kind      `json:"kind"`
	Points   []geometry.Point   `json:"points"`
	Radius   float64            `json:"radius,omitempty"`
	LargeArc bool               `json:"largeArc,omitempty"`
	Sweep    bool               `json:"sweep,omitempty"`
	Mirrored bool               `json:"mirrored,omitempty"`
}

// IsPoint reports whether the shape is drawn as a marker rather than a path.
func (sh Shape) IsPoint() bool {
	return sh.Kind == document.KindPoint || sh.Kind == document.KindAlongLine
}

// Resolve computes the shape of the entity ref names. Contours and mirrors
// are not shapes themselves; see Contour and Mirror.
func Resolve(s *document.Sketch, ref document.EntityRef) (Shape, bool) {
	sh := Shape{Source: ref, Kind: ref.Kind}
	switch ref.Kind {
	case document.KindPoint:
		p, ok := point(s, ref.ID)
		if !ok {
			return Shape{}, false
		}
		sh.Points = []geometry.Point{p}

	case document.KindLine:
		l, ok := s.Line(ref.ID)
		if !ok {
			return Shape{}, false
		}
		pts, ok := points(s, l.Start, l.End)
		if !ok {
			return Shape{}, false
		}
		sh.Points = pts

	case document.KindSpline:
		sp, ok := s.Spline(ref.ID)
		if !ok {
			return Shape{}, false
		}
		pts, ok := points(s, sp.P1, sp.P2, sp.P3, sp.P4)
		if !ok {
			return Shape{}, false
		}
		sh.Points = pts

	case document.KindBisector:
		b, ok := s.Bisector(ref.ID)
		if !ok {
			return Shape{}, false
		}
		pts, ok := points(s, b.P1, b.Vertex, b.P3)
		if !ok {
			return Shape{}, false
		}
		sh.Points = []geometry.Point{pts[1], BisectorPoint(pts[0], pts[1], pts[2], b.Length)}

	case document.KindArc:
		a, ok := ArcGeometry(s, ref.ID)
		if !ok {
			return Shape{}, false
		}
		sh.Points = []geometry.Point{a.Start, a.End, a.Center}
		sh.Radius = a.Radius
		sh.LargeArc = a.LargeArc
		sh.Sweep = a.Sweep

	case document.KindAlongLine:
		p, ok := AlongLinePoint(s, ref.ID)
		if !ok {
			return Shape{}, false
		}
		sh.Points = []geometry.Point{p}

	default:
		return Shape{}, false
	}
	return sh, true
}

// Reflect mirrors the shape across the line through a and b. Reflection
// reverses orientation, so an arc's sweep direction flips.
func (sh Shape) Reflect(a, b geometry.Point) Shape {
	out := sh
	out.Points = make([]geometry.Point, len(sh.Points))
	for i, p := range sh.Points {
		out.Points[i] = p.MirrorOverLine(a, b)
	}
	if sh.Kind == document.KindArc && !a.ApproxEqual(b, 1e-6) {
		out.Sweep = !sh.Sweep
	}
	out.Mirrored = true
	return out
}

// Mirror resolves the reflected geometry of mirror id. Sources that no
// longer resolve are skipped; a missing axis point hides the whole mirror.
func Mirror(s *document.Sketch, id document.ID) ([]Shape, bool) {
	m, ok := s.Mirror(id)
	if !ok {
		return nil, false
	}
	axis, ok := points(s, m.AxisP1, m.AxisP2)
	if !ok {
		return nil, false
	}

	out := make([]Shape, 0, len(m.Sources))
	for _, ref := range m.Sources {
		sh, ok := Resolve(s, ref)
		if !ok {
			continue
		}
		out = append(out, sh.Reflect(axis[0], axis[1]))
	}
	return out, true
}

// Contour resolves the members of contour id that still exist, in order.
func Contour(s *document.Sketch, id document.ID) ([]Shape, bool) {
	c, ok := s.Contour(id)
	if !ok {
		return nil, false
	}
	out := make([]Shape, 0, len(c.Entities))
	for _, ref := range c.Entities {
		if sh, ok := Resolve(s, ref); ok {
			out = append(out, sh)
		}
	}
	return out, true
}

// PathData returns the SVG path description of the shape, or "" for shapes
// drawn as markers.
func (sh Shape) PathData() string {
	var b strings.Builder
	for i, seg := range sh.Segments() {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(seg.Op)
		for _, v := range seg.Args {
			b.WriteByte(' ')
			b.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
		}
	}
	return b.String()
}

// Segment is one path operation: M, L, C or A with SVG argument order.
type Segment struct {
	Op   string
	Args []float64
}

// Segments returns the path operations that draw the shape.
func (sh Shape) Segments() []Segment {
	p := sh.Points
	switch sh.Kind {
	case document.KindLine, document.KindBisector:
		if len(p) < 2 {
			return nil
		}
		return []Segment{
			{Op: "M", Args: []float64{p[0].X, p[0].Y}},
			{Op: "L", Args: []float64{p[1].X, p[1].Y}},
		}
	case document.KindSpline:
		if len(p) < 4 {
			return nil
		}
		return []Segment{
			{Op: "M", Args: []float64{p[0].X, p[0].Y}},
			{Op: "C", Args: []float64{p[1].X, p[1].Y, p[2].X, p[2].Y, p[3].X, p[3].Y}},
		}
	case document.KindArc:
		if len(p) < 2 {
			return nil
		}
		return []Segment{
			{Op: "M", Args: []float64{p[0].X, p[0].Y}},
			{Op: "A", Args: []float64{sh.Radius, sh.Radius, 0, flag(sh.LargeArc), flag(sh.Sweep), p[1].X, p[1].Y}},
		}
	}
	return nil
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Bounds returns the axis-aligned box around the shape's points. Arcs use
// the full circle they are traced on.
func (sh Shape) Bounds() (minX, minY, maxX, maxY float64) {
	if sh.Kind == document.KindArc && len(sh.Points) == 3 {
		c, r, _, _ := sh.ArcTrace()
		return c.X - r, c.Y - r, c.X + r, c.Y + r
	}
	for i, p := range sh.Points {
		if i == 0 {
			minX, minY, maxX, maxY = p.X, p.Y, p.X, p.Y
			continue
		}
		minX, minY = min(minX, p.X), min(minY, p.Y)
		maxX, maxY = max(maxX, p.X), max(maxY, p.Y)
	}
	return minX, minY, maxX, maxY
}

// ArcTrace resolves the arc drawn by the shape's path data: the circle an
// SVG renderer picks from the endpoints, radius and LargeArc/Sweep flags,
// the start bearing, and the signed sweep in degrees. For stored spans
// within one turn this is the arc around Points[2]; past a full turn the
// flags select the circle on the other side of the chord. Coincident
// endpoints draw nothing and give a zero sweep.
func (sh Shape) ArcTrace() (center geometry.Point, radius, start, delta float64) {
	if sh.Kind != document.KindArc || len(sh.Points) < 3 {
		return geometry.Point{}, 0, 0, 0
	}
	p0, p1 := sh.Points[0], sh.Points[1]
	center, radius = sh.Points[2], sh.Radius

	hx, hy := (p0.X-p1.X)/2, (p0.Y-p1.Y)/2
	d2 := hx*hx + hy*hy
	if d2 < 1e-18 || radius <= 0 {
		return center, radius, center.AngleTo(p0), 0
	}
	if d2 > radius*radius {
		radius = math.Sqrt(d2)
	}
	k := math.Sqrt(max(0, (radius*radius-d2)/d2))
	if sh.LargeArc == sh.Sweep {
		k = -k
	}
	center = geometry.Point{X: k*hy + (p0.X+p1.X)/2, Y: -k*hx + (p0.Y+p1.Y)/2}

	start = center.AngleTo(p0)
	delta = geometry.NormalizeDegrees(center.AngleTo(p1) - start)
	if !sh.Sweep && delta != 0 {
		delta -= 360
	}
	return center, radius, start, delta
}

// Flatten approximates the shape by a polyline, using n segments for each
// curve. Marker shapes return their single point.
func (sh Shape) Flatten(n int) []geometry.Point {
	if n < 1 {
		n = 1
	}
	p := sh.Points
	switch sh.Kind {
	case document.KindSpline:
		if len(p) < 4 {
			return nil
		}
		out := make([]geometry.Point, 0, n+1)
		for i := 0; i <= n; i++ {
			out = append(out, cubicAt(p[0], p[1], p[2], p[3], float64(i)/float64(n)))
		}
		return out
	case document.KindArc:
		if len(p) < 3 {
			return nil
		}
		c, r, start, delta := sh.ArcTrace()
		out := make([]geometry.Point, 0, n+1)
		for i := 0; i <= n; i++ {
			out = append(out, c.PointAt(r, start+delta*float64(i)/float64(n)))
		}
		return out
	}
	return slices.Clone(p)
}

func cubicAt(p0, p1, p2, p3 geometry.Point, t float64) geometry.Point {
	u := 1 - t
	a, b, c, d := u*u*u, 3*u*u*t, 3*u*t*t, t*t*t
	return geometry.Point{
		X: a*p0.X + b*p1.X + c*p2.X + d*p3.X,
		Y: a*p0.Y + b*p1.Y + c*p2.Y + d*p3.Y,
	}
}
