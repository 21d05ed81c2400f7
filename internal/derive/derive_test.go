package derive

import (
	"math"
	"strings"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"

	"github.com/draftcore/draftcore/backend-go/internal/document"
	"github.com/draftcore/draftcore/backend-go/internal/geometry"
)

const tol = 1e-9

func TestBisectorRightAngle(t *testing.T) {
	s := document.NewSketch()
	m := document.DrawModeModeling
	p1 := s.NewPoint(0, 0, m)
	p2 := s.NewPoint(10, 0, m)
	p3 := s.NewPoint(0, 10, m)
	id, err := s.NewBisector(p2, p1, p3, 10, m)
	if err != nil {
		t.Fatalf("NewBisector: %v", err)
	}

	got, ok := BisectorEnd(s, id)
	if !ok {
		t.Fatal("bisector did not resolve")
	}
	want := geometry.Pt(10/math.Sqrt2, 10/math.Sqrt2)
	if !got.ApproxEqual(want, 1e-9) {
		t.Errorf("BisectorEnd = %v, want %v", got, want)
	}
}

func TestBisectorPoint(t *testing.T) {
	v := geometry.Pt(0, 0)
	tests := []struct {
		name   string
		p1, p3 geometry.Point
		want   geometry.Point
	}{
		{"acute", geometry.Pt(10, 0), geometry.Pt(0, 10), geometry.Pt(math.Sqrt2/2, math.Sqrt2/2)},
		// Arms swapped: the short side is still bisected.
		{"reflex", geometry.Pt(0, 10), geometry.Pt(10, 0), geometry.Pt(math.Sqrt2/2, math.Sqrt2/2)},
		{"straight", geometry.Pt(10, 0), geometry.Pt(-10, 0), geometry.Pt(0, 1)},
		{"straight reversed", geometry.Pt(-10, 0), geometry.Pt(10, 0), geometry.Pt(0, -1)},
		{"coincident arms", geometry.Pt(5, 5), geometry.Pt(5, 5), geometry.Pt(math.Sqrt2/2, math.Sqrt2/2)},
		{"across the seam", geometry.Pt(-10, 1), geometry.Pt(-10, -1), geometry.Pt(-1, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BisectorPoint(tt.p1, v, tt.p3, 1)
			if math.IsNaN(got.X) || math.IsNaN(got.Y) {
				t.Fatalf("BisectorPoint = %v", got)
			}
			if !got.ApproxEqual(tt.want, 1e-9) {
				t.Errorf("BisectorPoint = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStraightBisectorIsPerpendicular(t *testing.T) {
	v := geometry.Pt(3, 4)
	p1 := v.PointAt(5, 30)
	p3 := v.PointAt(5, 210)
	end := BisectorPoint(p1, v, p3, 7)

	armX, armY := p1.X-v.X, p1.Y-v.Y
	bisX, bisY := end.X-v.X, end.Y-v.Y
	if dot := armX*bisX + armY*bisY; !scalar.EqualWithinAbs(dot, 0, 1e-9) {
		t.Errorf("dot product = %v, want 0", dot)
	}
	if d := v.DistanceTo(end); !scalar.EqualWithinAbs(d, 7, 1e-9) {
		t.Errorf("length = %v, want 7", d)
	}
}

func TestArcFlags(t *testing.T) {
	c := geometry.Pt(0, 0)
	tests := []struct {
		name            string
		start, end      float64
		wantLarge       bool
		wantSweep       bool
		wantNormalized  float64
		wantLengthRatio float64 // length / radius
	}{
		{"quarter", 0, 90, false, true, 90, math.Pi / 2},
		{"quarter back", 0, -90, false, false, -90, math.Pi / 2},
		{"half", 0, 180, false, true, 180, math.Pi},
		{"three quarters", 0, 270, true, true, -90, math.Pi / 2},
		{"three quarters back", 90, -180, true, false, 90, math.Pi / 2},
		{"full", 0, 360, true, true, 0, 0},
		{"empty", 45, 45, false, true, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := ArcFrom(c, 5, tt.start, tt.end)
			if a.LargeArc != tt.wantLarge || a.Sweep != tt.wantSweep {
				t.Errorf("flags large=%v sweep=%v, want %v %v", a.LargeArc, a.Sweep, tt.wantLarge, tt.wantSweep)
			}
			if !scalar.EqualWithinAbs(a.NormalizedSpan, tt.wantNormalized, tol) {
				t.Errorf("NormalizedSpan = %v, want %v", a.NormalizedSpan, tt.wantNormalized)
			}
			if !scalar.EqualWithinAbs(a.Length(), 5*tt.wantLengthRatio, 1e-9) {
				t.Errorf("Length = %v, want %v", a.Length(), 5*tt.wantLengthRatio)
			}
		})
	}
}

func TestArcGeometry(t *testing.T) {
	s := document.NewSketch()
	c := s.NewPoint(0, 0, document.DrawModeModeling)
	id, _ := s.NewArc(c, 5, 0, 90, document.DrawModeModeling)

	a, ok := ArcGeometry(s, id)
	if !ok {
		t.Fatal("arc did not resolve")
	}
	if !a.Start.ApproxEqual(geometry.Pt(5, 0), tol) || !a.End.ApproxEqual(geometry.Pt(0, 5), tol) {
		t.Errorf("endpoints %v %v", a.Start, a.End)
	}
	if got := a.PathData(); !strings.HasPrefix(got, "M 5 0 A 5 5 0 0 1 ") {
		t.Errorf("PathData = %q", got)
	}

	s.DeletePoint(c)
	if _, ok := ArcGeometry(s, id); ok {
		t.Error("arc resolved after its center was deleted")
	}
}

func TestAlongLine(t *testing.T) {
	s := document.NewSketch()
	m := document.DrawModeModeling
	a := s.NewPoint(0, 0, m)
	b := s.NewPoint(0, 20, m)
	id, _ := s.NewAlongLine(a, b, 5, m)

	p, ok := AlongLinePoint(s, id)
	if !ok || !p.ApproxEqual(geometry.Pt(0, 5), tol) {
		t.Errorf("AlongLinePoint = %v, %v", p, ok)
	}

	// Distance past the second point continues on the same bearing.
	if got := PointAlong(geometry.Pt(1, 1), geometry.Pt(4, 5), 10); !got.ApproxEqual(geometry.Pt(7, 9), tol) {
		t.Errorf("PointAlong = %v", got)
	}

	s.MovePoint(b, 20, 0)
	p, _ = AlongLinePoint(s, id)
	if !p.ApproxEqual(geometry.Pt(5, 0), tol) {
		t.Errorf("after move = %v, want recomputed (5,0)", p)
	}
}

func TestMirror(t *testing.T) {
	s := document.NewSketch()
	m := document.DrawModeModeling
	a := s.NewPoint(1, 1, m)
	b := s.NewPoint(3, 2, m)
	c := s.NewPoint(4, 4, m)
	top := s.NewPoint(0, -10, m)
	bottom := s.NewPoint(0, 10, m)
	line, _ := s.NewLine(a, b, m)
	arc, _ := s.NewArc(c, 2, 0, 90, m)

	id, err := s.NewMirror([]document.EntityRef{
		document.Ref(document.KindLine, line),
		document.Ref(document.KindPoint, c),
		document.Ref(document.KindArc, arc),
	}, top, bottom, m)
	if err != nil {
		t.Fatalf("NewMirror: %v", err)
	}

	shapes, ok := Mirror(s, id)
	if !ok || len(shapes) != 3 {
		t.Fatalf("Mirror = %v, %v", shapes, ok)
	}
	if !shapes[0].Points[0].ApproxEqual(geometry.Pt(-1, 1), tol) || !shapes[0].Points[1].ApproxEqual(geometry.Pt(-3, 2), tol) {
		t.Errorf("mirrored line = %v", shapes[0].Points)
	}
	if !shapes[1].Points[0].ApproxEqual(geometry.Pt(-4, 4), tol) {
		t.Errorf("mirrored point = %v", shapes[1].Points)
	}
	if arcShape := shapes[2]; arcShape.Sweep || !arcShape.Mirrored {
		t.Errorf("mirrored arc = %+v, want sweep flipped", arcShape)
	}

	// A deleted source is skipped, the rest still resolve.
	s.DeleteEntity(document.KindLine, line)
	shapes, ok = Mirror(s, id)
	if !ok || len(shapes) != 2 {
		t.Errorf("after source delete = %d shapes, %v", len(shapes), ok)
	}

	s.DeletePoint(top)
	if _, ok := Mirror(s, id); ok {
		t.Error("mirror resolved without its axis")
	}
}

func TestMirrorDegenerateAxis(t *testing.T) {
	s := document.NewSketch()
	m := document.DrawModeModeling
	p := s.NewPoint(2, 3, m)
	a1 := s.NewPoint(5, 5, m)
	a2 := s.NewPoint(5, 5, m)
	id, _ := s.NewMirror([]document.EntityRef{document.Ref(document.KindPoint, p)}, a1, a2, m)

	shapes, ok := Mirror(s, id)
	if !ok || len(shapes) != 1 || !shapes[0].Points[0].ApproxEqual(geometry.Pt(2, 3), 0) {
		t.Errorf("degenerate mirror = %v, %v", shapes, ok)
	}
}

func TestContourSkipsMissingMembers(t *testing.T) {
	s := document.NewSampleSketch()
	c := s.Contours()[0]

	shapes, ok := Contour(s, c.ID)
	if !ok || len(shapes) != 3 {
		t.Fatalf("Contour = %d shapes, %v", len(shapes), ok)
	}
	if shapes[1].Kind != document.KindSpline {
		t.Errorf("member order changed: %v", shapes[1].Kind)
	}

	s.DeleteEntity(document.KindSpline, c.Entities[1].ID)
	shapes, _ = Contour(s, c.ID)
	if len(shapes) != 2 {
		t.Errorf("after delete = %d shapes, want 2", len(shapes))
	}
}

func TestResolveMissing(t *testing.T) {
	s := document.NewSketch()
	for _, k := range document.Kinds {
		if _, ok := Resolve(s, document.Ref(k, 1)); ok {
			t.Errorf("Resolve(%s) on empty sketch succeeded", k)
		}
	}
}

func TestShapePathData(t *testing.T) {
	tests := []struct {
		name string
		sh   Shape
		want string
	}{
		{"line", Shape{Kind: document.KindLine, Points: []geometry.Point{{X: 1, Y: 2}, {X: 3, Y: 4}}}, "M 1 2 L 3 4"},
		{"spline", Shape{Kind: document.KindSpline, Points: []geometry.Point{{X: 0, Y: 0}, {X: 1, Y: 2}, {X: 3, Y: 2}, {X: 4, Y: 0}}}, "M 0 0 C 1 2 3 2 4 0"},
		{"arc", Shape{Kind: document.KindArc, Points: []geometry.Point{{X: 5, Y: 0}, {X: -5, Y: 0}, {X: 0, Y: 0}}, Radius: 5, LargeArc: true}, "M 5 0 A 5 5 0 1 0 -5 0"},
		{"point", Shape{Kind: document.KindPoint, Points: []geometry.Point{{X: 1, Y: 1}}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sh.PathData(); got != tt.want {
				t.Errorf("PathData = %q, want %q", got, tt.want)
			}
		})
	}
}

func arcShape(center geometry.Point, radius, start, end float64) (Arc, Shape) {
	a := ArcFrom(center, radius, start, end)
	return a, Shape{
		Kind:     document.KindArc,
		Points:   []geometry.Point{a.Start, a.End, a.Center},
		Radius:   radius,
		LargeArc: a.LargeArc,
		Sweep:    a.Sweep,
	}
}

func TestArcTrace(t *testing.T) {
	tests := []struct {
		name       string
		start, end float64
		wantCenter geometry.Point
		wantStart  float64
		wantDelta  float64
	}{
		{"counter to the end", 0, 90, geometry.Pt(1, 1), 0, 90},
		{"back to the end", 0, -90, geometry.Pt(1, 1), 0, -90},
		{"large", 10, 280, geometry.Pt(1, 1), 10, 270},
		// Past a full turn the flags pick the circle across the chord.
		{"span past a full turn", 0, 450, geometry.Pt(4, 4), -90, 270},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, sh := arcShape(geometry.Pt(1, 1), 3, tt.start, tt.end)
			c, r, start, delta := sh.ArcTrace()
			if !c.ApproxEqual(tt.wantCenter, 1e-9) || !scalar.EqualWithinAbs(r, 3, 1e-9) {
				t.Errorf("circle = %v r %v, want %v r 3", c, r, tt.wantCenter)
			}
			if !scalar.EqualWithinAbs(start, tt.wantStart, 1e-9) {
				t.Errorf("start = %v, want %v", start, tt.wantStart)
			}
			if !scalar.EqualWithinAbs(delta, tt.wantDelta, 1e-9) {
				t.Errorf("delta = %v, want %v", delta, tt.wantDelta)
			}

			pts := sh.Flatten(8)
			if len(pts) != 9 || !pts[0].ApproxEqual(a.Start, 1e-9) || !pts[8].ApproxEqual(a.End, 1e-9) {
				t.Errorf("Flatten endpoints = %v .. %v", pts[0], pts[len(pts)-1])
			}
			for _, p := range pts {
				if !scalar.EqualWithinAbs(p.DistanceTo(c), r, 1e-9) {
					t.Errorf("flattened point %v is off the traced circle", p)
				}
			}
		})
	}
}

func TestArcTraceCoincidentEnds(t *testing.T) {
	_, sh := arcShape(geometry.Pt(0, 0), 2, 30, 390)
	if _, _, _, delta := sh.ArcTrace(); delta != 0 {
		t.Errorf("delta = %v, want 0 for a full turn", delta)
	}
}

func TestFlattenSpline(t *testing.T) {
	sh := Shape{Kind: document.KindSpline, Points: []geometry.Point{{X: 0, Y: 0}, {X: 0, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 0}}}
	pts := sh.Flatten(4)
	if len(pts) != 5 {
		t.Fatalf("len = %d, want 5", len(pts))
	}
	if !pts[2].ApproxEqual(geometry.Pt(5, 7.5), 1e-9) {
		t.Errorf("midpoint = %v, want (5, 7.5)", pts[2])
	}
}
