package viewport

import (
	"testing"

	"github.com/draftcore/draftcore/backend-go/internal/geometry"
)

const eps = 1e-9

func TestToLogical(t *testing.T) {
	vb := ViewBox{MinX: 0, MinY: 0, Width: 1000, Height: 1000}

	tests := []struct {
		name         string
		aspect       AspectRatio
		px, py       float64
		elemW, elemH float64
		want         geometry.Point
	}{
		{"none stretches per axis", None, 100, 100, 200, 400, geometry.Pt(500, 250)},
		{"none ignores centering", None, 0, 0, 200, 400, geometry.Pt(0, 0)},
		{"meet square", Meet, 250, 250, 500, 500, geometry.Pt(500, 500)},
		// scale = 0.5, oy = (800-500)/2 = 150
		{"meet letterbox top", Meet, 0, 150, 500, 800, geometry.Pt(0, 0)},
		{"meet letterbox center", Meet, 250, 400, 500, 800, geometry.Pt(500, 500)},
		// scale = 0.8, ox = (500-800)/2 = -150
		{"slice crops width", Slice, 0, 0, 500, 800, geometry.Pt(187.5, 0)},
		{"slice center", Slice, 250, 400, 500, 800, geometry.Pt(500, 500)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMapper(vb, tt.aspect)
			got := m.ToLogical(tt.px, tt.py, tt.elemW, tt.elemH)
			if !got.ApproxEqual(tt.want, eps) {
				t.Errorf("ToLogical(%v, %v) = %v, want %v", tt.px, tt.py, got, tt.want)
			}
		})
	}
}

func TestToLogicalOffsetViewBox(t *testing.T) {
	m := NewMapper(ViewBox{MinX: -50, MinY: 20, Width: 100, Height: 50}, Meet)
	// scale = min(400/100, 400/50) = 4, oy = (400-200)/2 = 100
	got := m.ToLogical(200, 200, 400, 400)
	if !got.ApproxEqual(geometry.Pt(0, 45), eps) {
		t.Errorf("ToLogical = %v, want (0, 45)", got)
	}
}

func TestToDeviceRoundTrip(t *testing.T) {
	vb := ViewBox{MinX: 10, MinY: -20, Width: 300, Height: 150}
	for _, aspect := range []AspectRatio{Meet, Slice, None} {
		t.Run(aspect.String(), func(t *testing.T) {
			m := NewMapper(vb, aspect)
			for _, dev := range []geometry.Point{geometry.Pt(0, 0), geometry.Pt(123, 45), geometry.Pt(640, 480)} {
				logical := m.ToLogical(dev.X, dev.Y, 640, 480)
				back := m.ToDevice(logical, 640, 480)
				if !back.ApproxEqual(dev, 1e-7) {
					t.Errorf("round trip %v -> %v -> %v", dev, logical, back)
				}
			}
		})
	}
}

func TestClientToLogical(t *testing.T) {
	m := NewMapper(DefaultViewBox(), None)
	s := Surface{Left: 20, Top: 40, Width: 500, Height: 500}
	got := m.ClientToLogical(geometry.Pt(270, 290), s)
	if !got.ApproxEqual(geometry.Pt(500, 500), eps) {
		t.Errorf("ClientToLogical = %v, want (500, 500)", got)
	}
}

func TestParseAspectRatio(t *testing.T) {
	for in, want := range map[string]AspectRatio{"meet": Meet, "SLICE": Slice, " none ": None, "": Meet} {
		got, err := ParseAspectRatio(in)
		if err != nil || got != want {
			t.Errorf("ParseAspectRatio(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseAspectRatio("xMidYMid"); err == nil {
		t.Error("expected error for unknown policy")
	}
}

func TestMatrixInvert(t *testing.T) {
	m := Translate(5, -3).Multiply(Scale(2, 4))
	if !m.Multiply(m.Invert()).IsIdentity() {
		t.Errorf("m * m^-1 is not identity: %v", m.Multiply(m.Invert()))
	}
	if !Scale(0, 1).Invert().IsIdentity() {
		t.Error("singular matrix should invert to identity")
	}
}

func TestQueueDiscreteInOrder(t *testing.T) {
	var q Queue[string]
	a := q.Issue("a", ClassDiscrete)
	b := q.Issue("b", ClassDiscrete)

	ready, ok := q.Resolve(b, Surface{Width: 1, Height: 1})
	if !ok || len(ready) != 0 {
		t.Fatalf("b resolved before a: ready=%v ok=%v", ready, ok)
	}
	ready, ok = q.Resolve(a, Surface{Width: 2, Height: 2})
	if !ok || len(ready) != 2 {
		t.Fatalf("expected a and b delivered, got %v", ready)
	}
	if ready[0].Event != "a" || ready[1].Event != "b" {
		t.Errorf("delivery order = %v, %v", ready[0].Event, ready[1].Event)
	}
	if ready[0].Surface.Width != 2 || ready[1].Surface.Width != 1 {
		t.Error("surfaces not attached to their own requests")
	}
	if q.Pending() != 0 {
		t.Errorf("pending = %d", q.Pending())
	}
}

func TestQueueContinuousSupersedes(t *testing.T) {
	var q Queue[int]
	first := q.Issue(1, ClassContinuous)
	second := q.Issue(2, ClassContinuous)
	if second <= first {
		t.Fatalf("ids not increasing: %d then %d", first, second)
	}

	ready, ok := q.Resolve(second, Surface{Width: 1, Height: 1})
	if !ok || len(ready) != 1 || ready[0].Event != 2 {
		t.Fatalf("latest move not delivered: %v %v", ready, ok)
	}

	// The earlier request's response arrives late and must be discarded.
	ready, ok = q.Resolve(first, Surface{Width: 1, Height: 1})
	if ok || len(ready) != 0 {
		t.Errorf("stale response applied: %v", ready)
	}
}

func TestQueueCancel(t *testing.T) {
	var q Queue[int]
	q.Issue(1, ClassDiscrete)
	move := q.Issue(2, ClassContinuous)
	if n := q.Cancel(ClassContinuous); n != 1 {
		t.Errorf("cancelled %d, want 1", n)
	}
	if _, ok := q.Resolve(move, Surface{}); ok {
		t.Error("cancelled request still resolvable")
	}
	if q.Pending() != 1 {
		t.Errorf("pending = %d, want 1", q.Pending())
	}
	q.Reset()
	if q.Pending() != 0 || q.Latest() != move {
		t.Errorf("after reset pending=%d latest=%d", q.Pending(), q.Latest())
	}
}
