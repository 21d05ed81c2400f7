package geometry

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

const eps = 1e-9

func TestRotate(t *testing.T) {
	tests := []struct {
		name    string
		p, o    Point
		degrees float64
		want    Point
	}{
		{"quarter turn about origin", Pt(1, 0), Pt(0, 0), 90, Pt(0, 1)},
		{"half turn about origin", Pt(1, 0), Pt(0, 0), 180, Pt(-1, 0)},
		{"quarter turn about offset", Pt(2, 1), Pt(1, 1), 90, Pt(1, 2)},
		{"negative angle", Pt(0, 1), Pt(0, 0), -90, Pt(1, 0)},
		{"zero angle", Pt(3, 4), Pt(7, -2), 0, Pt(3, 4)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.p.Rotate(tt.o, tt.degrees)
			if !got.ApproxEqual(tt.want, eps) {
				t.Errorf("%v.Rotate(%v, %v) = %v, want %v", tt.p, tt.o, tt.degrees, got, tt.want)
			}
		})
	}
}

func TestRotateInverse(t *testing.T) {
	points := []Point{Pt(0, 0), Pt(3, -4), Pt(-12.5, 7.25), Pt(1000, 1000)}
	origins := []Point{Pt(0, 0), Pt(1, 1), Pt(-50, 20)}
	angles := []float64{0, 13, 45, 90, 179.5, 270, -33, 720}

	for _, p := range points {
		for _, o := range origins {
			for _, a := range angles {
				back := p.Rotate(o, a).Rotate(o, -a)
				if !back.ApproxEqual(p, 1e-7) {
					t.Errorf("rotate(rotate(%v, %v, %v), -%v) = %v", p, o, a, a, back)
				}
			}
		}
	}
}

func TestDistanceSymmetric(t *testing.T) {
	pairs := [][2]Point{
		{Pt(0, 0), Pt(3, 4)},
		{Pt(-1, -1), Pt(2, 3)},
		{Pt(5, 5), Pt(5, 5)},
	}
	for _, pr := range pairs {
		ab := pr[0].DistanceTo(pr[1])
		ba := pr[1].DistanceTo(pr[0])
		if ab != ba {
			t.Errorf("distance not symmetric: %v vs %v", ab, ba)
		}
	}
	if d := Pt(0, 0).DistanceTo(Pt(3, 4)); !scalar.EqualWithinAbs(d, 5, eps) {
		t.Errorf("distance = %v, want 5", d)
	}
}

func TestAngleTo(t *testing.T) {
	tests := []struct {
		name string
		p, q Point
		want float64
	}{
		{"east", Pt(0, 0), Pt(1, 0), 0},
		{"north (y up)", Pt(0, 0), Pt(0, 1), 90},
		{"west", Pt(0, 0), Pt(-1, 0), 180},
		{"west negative zero", Pt(0, 0), Pt(-1, math.Copysign(0, -1)), 180},
		{"south", Pt(0, 0), Pt(0, -1), -90},
		{"diagonal", Pt(1, 1), Pt(2, 2), 45},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.p.AngleTo(tt.q)
			if !scalar.EqualWithinAbs(got, tt.want, eps) {
				t.Errorf("AngleTo = %v, want %v", got, tt.want)
			}
			if got <= -180 || got > 180 {
				t.Errorf("AngleTo = %v outside (-180, 180]", got)
			}
		})
	}
}

func TestAngleToReverse(t *testing.T) {
	pairs := [][2]Point{
		{Pt(0, 0), Pt(3, 4)},
		{Pt(-1, 5), Pt(2, -3)},
		{Pt(0, 0), Pt(-1, 0)},
	}
	for _, pr := range pairs {
		ab := pr[0].AngleTo(pr[1])
		ba := pr[1].AngleTo(pr[0])
		if diff := NormalizeDegrees(ab - ba); !scalar.EqualWithinAbs(diff, 180, eps) {
			t.Errorf("angle %v and reverse %v differ by %v, want 180", ab, ba, diff)
		}
	}
}

func TestPointAt(t *testing.T) {
	got := Pt(1, 1).PointAt(10, 90)
	if !got.ApproxEqual(Pt(1, 11), eps) {
		t.Errorf("PointAt = %v, want (1, 11)", got)
	}
	got = Pt(0, 0).PointAt(0, 123)
	if !got.ApproxEqual(Pt(0, 0), eps) {
		t.Errorf("zero distance PointAt = %v", got)
	}
}

func TestMirrorOverLine(t *testing.T) {
	tests := []struct {
		name string
		p    Point
		a, b Point
		want Point
	}{
		{"horizontal axis", Pt(3, 2), Pt(0, 0), Pt(10, 0), Pt(3, -2)},
		{"vertical axis", Pt(3, 2), Pt(1, -5), Pt(1, 5), Pt(-1, 2)},
		{"diagonal axis", Pt(1, 0), Pt(0, 0), Pt(1, 1), Pt(0, 1)},
		{"point on axis", Pt(4, 4), Pt(0, 0), Pt(1, 1), Pt(4, 4)},
		{"degenerate axis", Pt(7, -3), Pt(2, 2), Pt(2, 2), Pt(7, -3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.p.MirrorOverLine(tt.a, tt.b)
			if !got.ApproxEqual(tt.want, eps) {
				t.Errorf("MirrorOverLine = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMirrorTwiceIsIdentity(t *testing.T) {
	axes := [][2]Point{
		{Pt(0, 0), Pt(1, 0)},
		{Pt(-3, 2), Pt(5, 9)},
		{Pt(10, 10), Pt(10, -4)},
	}
	points := []Point{Pt(0, 0), Pt(12, -7), Pt(-3.5, 8.25)}
	for _, ax := range axes {
		for _, p := range points {
			back := p.MirrorOverLine(ax[0], ax[1]).MirrorOverLine(ax[0], ax[1])
			if !back.ApproxEqual(p, 1e-9) {
				t.Errorf("double mirror of %v across %v = %v", p, ax, back)
			}
		}
	}
}

func TestWrapDegrees(t *testing.T) {
	tests := []struct {
		in, norm, wrap float64
	}{
		{0, 0, 0},
		{180, 180, 180},
		{-180, 180, 180},
		{270, 270, -90},
		{-90, 270, -90},
		{720, 0, 0},
		{540, 180, 180},
	}
	for _, tt := range tests {
		if got := NormalizeDegrees(tt.in); !scalar.EqualWithinAbs(got, tt.norm, eps) {
			t.Errorf("NormalizeDegrees(%v) = %v, want %v", tt.in, got, tt.norm)
		}
		if got := WrapDegrees(tt.in); !scalar.EqualWithinAbs(got, tt.wrap, eps) {
			t.Errorf("WrapDegrees(%v) = %v, want %v", tt.in, got, tt.wrap)
		}
	}
}
