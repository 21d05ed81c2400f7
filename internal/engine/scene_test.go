package engine

import (
	"strings"
	"testing"

	"github.com/draftcore/draftcore/backend-go/internal/document"
	"github.com/draftcore/draftcore/backend-go/internal/geometry"
)

func TestBuildSceneOmitsDanglingEntities(t *testing.T) {
	s := document.NewSampleSketch()
	base := s.Lines()[0]
	s.DeleteEntity(document.KindPoint, base.Start) // no cascade: the line dangles

	sg := BuildScene(s, nil)
	if _, ok := sg.NodesByRef[base.Ref()]; ok {
		t.Error("line with a missing endpoint was drawn")
	}
	if _, ok := sg.NodesByRef[s.Lines()[1].Ref()]; ok {
		t.Error("second line shares the deleted point and should be omitted too")
	}
	if _, ok := sg.NodesByRef[s.Splines()[0].Ref()]; !ok {
		t.Error("unrelated spline missing from the scene")
	}
}

func TestBuildSceneOrder(t *testing.T) {
	sg := BuildScene(document.NewSampleSketch(), nil)
	children := sg.Root.Children
	if len(children) == 0 {
		t.Fatal("empty scene")
	}
	if children[0].Ref.Kind != document.KindContour {
		t.Errorf("first node = %s, want the contour underneath", children[0].Ref)
	}
	if last := children[len(children)-1]; last.Ref.Kind != document.KindPoint || last.Type != "marker" {
		t.Errorf("last node = %s (%s), want a point marker on top", last.Ref, last.Type)
	}
}

func TestCalculationStyle(t *testing.T) {
	s := document.NewSketch()
	a := s.NewPoint(0, 0, document.DrawModeCalculation)
	b := s.NewPoint(10, 0, document.DrawModeModeling)
	line, _ := s.NewLine(a, b, document.DrawModeCalculation)

	sg := BuildScene(s, nil)
	node := sg.NodesByRef[document.Ref(document.KindLine, line)]
	if node.Stroke != colorCalculation || len(node.Dash) == 0 {
		t.Errorf("calculation line style = %q %v", node.Stroke, node.Dash)
	}
	if n := sg.NodesByRef[document.Ref(document.KindPoint, a)]; n.Fill != colorCalculation {
		t.Errorf("calculation point fill = %q", n.Fill)
	}
}

func TestHitTest(t *testing.T) {
	s := document.NewSketch()
	m := document.DrawModeModeling
	a := s.NewPoint(0, 0, m)
	b := s.NewPoint(100, 0, m)
	c := s.NewPoint(50, 50, m)
	line, _ := s.NewLine(a, b, m)
	arc, _ := s.NewArc(c, 20, 0, 90, m)
	s.NewContour([]document.EntityRef{document.Ref(document.KindLine, line)}, m)

	sg := BuildScene(s, nil)
	center := geometry.Pt(50, 50)
	tests := []struct {
		name string
		p    geometry.Point
		want document.EntityRef
		hit  bool
	}{
		{"point on top of line", geometry.Pt(1, 1), document.Ref(document.KindPoint, a), true},
		{"line body", geometry.Pt(50, 2), document.Ref(document.KindLine, line), true},
		{"arc body", center.PointAt(20, 45), document.Ref(document.KindArc, arc), true},
		{"arc gap", center.PointAt(20, 225), document.EntityRef{}, false},
		{"empty space", geometry.Pt(300, 300), document.EntityRef{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := HitTest(sg, tt.p, 3)
			if ok != tt.hit || got != tt.want {
				t.Errorf("HitTest = %v, %v; want %v, %v", got, ok, tt.want, tt.hit)
			}
		})
	}
}

func TestCompileDrawCommands(t *testing.T) {
	s := document.NewSketch()
	m := document.DrawModeModeling
	a := s.NewPoint(0, 0, m)
	b := s.NewPoint(10, 0, m)
	s.NewLine(a, b, m)

	transform := []float64{2, 0, 0, 2, 5, 5}
	cmds := CompileDrawCommands(BuildScene(s, nil), transform)
	if len(cmds) != 3 {
		t.Fatalf("commands = %d, want 1 path and 2 markers", len(cmds))
	}
	if cmds[0].Op != "path" || len(cmds[0].Path) != 2 || cmds[0].Path[1][0] != "L" {
		t.Errorf("path command = %+v", cmds[0])
	}
	for _, c := range cmds[1:] {
		if c.Op != "marker" || c.Radius != MarkerRadius || len(c.Transform) != 6 {
			t.Errorf("marker command = %+v", c)
		}
	}

	if got := CompileDrawCommands(nil, nil); got == nil || len(got) != 0 {
		t.Errorf("nil scene = %v, want empty list", got)
	}
}

func TestMirroredGeometryIsHittable(t *testing.T) {
	s := document.NewSketch()
	m := document.DrawModeModeling
	a := s.NewPoint(10, 0, m)
	b := s.NewPoint(10, 40, m)
	top := s.NewPoint(0, -100, m)
	bottom := s.NewPoint(0, 100, m)
	line, _ := s.NewLine(a, b, m)
	mirror, _ := s.NewMirror([]document.EntityRef{document.Ref(document.KindLine, line)}, top, bottom, m)

	sg := BuildScene(s, nil)
	got, ok := HitTest(sg, geometry.Pt(-10, 20), 2)
	if !ok || got != document.Ref(document.KindMirror, mirror) {
		t.Errorf("HitTest = %v, %v", got, ok)
	}

	r := Bounds(sg, []document.EntityRef{got})
	if r.X != -10 || r.Width != 0 || r.Height != 40 {
		t.Errorf("mirror bounds = %+v", r)
	}
}

func TestEngineDrawCommands(t *testing.T) {
	s := document.NewSketch()
	s.NewPoint(100, 100, document.DrawModeModeling)
	e := New(s, DefaultOptions())

	if cmds := e.DrawCommands(0, 0); len(cmds) != 1 || cmds[0].Transform != nil {
		t.Errorf("unsized commands = %+v", cmds)
	}
	cmds := e.DrawCommands(500, 500)
	if len(cmds) != 1 || len(cmds[0].Transform) != 6 || cmds[0].Transform[0] != 0.5 {
		t.Fatalf("sized commands = %+v", cmds)
	}
	out, err := DrawCommandsToJSON(cmds)
	if err != nil || !strings.HasPrefix(out, `[{"op":"marker"`) {
		t.Errorf("DrawCommandsToJSON = %s, %v", out, err)
	}
}
