// Package viewport maps device coordinates reported by the drawing surface
// into the sketch's logical coordinate space.
package viewport

import (
	"fmt"
	"math"
	"strings"

	"github.com/draftcore/draftcore/backend-go/internal/geometry"
)

// AspectRatio is the policy for fitting the logical viewbox into a
// differently proportioned element.
type AspectRatio int

const (
	// Meet scales uniformly so the whole viewbox fits, letterboxing the rest.
	Meet AspectRatio = iota
	// Slice scales uniformly so the viewbox covers the element, cropping overflow.
	Slice
	// None stretches each axis independently.
	None
)

func (a AspectRatio) String() string {
	switch a {
	case Meet:
		return "meet"
	case Slice:
		return "slice"
	case None:
		return "none"
	default:
		return fmt.Sprintf("AspectRatio(%d)", int(a))
	}
}

// ParseAspectRatio accepts "meet", "slice" or "none" (case-insensitive).
func ParseAspectRatio(s string) (AspectRatio, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "meet", "":
		return Meet, nil
	case "slice":
		return Slice, nil
	case "none":
		return None, nil
	default:
		return Meet, fmt.Errorf("unknown aspect ratio %q", s)
	}
}

// ViewBox is the logical rectangle shown by the drawing surface.
type ViewBox struct {
	MinX   float64 `json:"minX"`
	MinY   float64 `json:"minY"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DefaultViewBox is the 1000x1000 logical canvas sketches start with.
func DefaultViewBox() ViewBox {
	return ViewBox{Width: 1000, Height: 1000}
}

// ViewBoxFromSlice builds a ViewBox from [minX, minY, width, height].
func ViewBoxFromSlice(v []float64) (ViewBox, error) {
	if len(v) != 4 {
		return ViewBox{}, fmt.Errorf("viewbox needs 4 values, got %d", len(v))
	}
	if v[2] <= 0 || v[3] <= 0 {
		return ViewBox{}, fmt.Errorf("viewbox size must be positive, got %vx%v", v[2], v[3])
	}
	return ViewBox{MinX: v[0], MinY: v[1], Width: v[2], Height: v[3]}, nil
}

// Mapper converts between device and logical coordinates.
type Mapper struct {
	ViewBox ViewBox
	Aspect  AspectRatio
}

// NewMapper creates a mapper for the given viewbox and policy.
func NewMapper(vb ViewBox, aspect AspectRatio) Mapper {
	return Mapper{ViewBox: vb, Aspect: aspect}
}

// scale returns the per-axis scale and centering offsets for an element size.
func (m Mapper) scale(elemW, elemH float64) (sx, sy, ox, oy float64) {
	vb := m.ViewBox
	switch m.Aspect {
	case None:
		return elemW / vb.Width, elemH / vb.Height, 0, 0
	case Slice:
		s := math.Max(elemW/vb.Width, elemH/vb.Height)
		return s, s, (elemW - vb.Width*s) / 2, (elemH - vb.Height*s) / 2
	default:
		s := math.Min(elemW/vb.Width, elemH/vb.Height)
		return s, s, (elemW - vb.Width*s) / 2, (elemH - vb.Height*s) / 2
	}
}

// ToLogical maps a device-space point inside an element of the given size
// into logical coordinates.
func (m Mapper) ToLogical(px, py, elemW, elemH float64) geometry.Point {
	sx, sy, ox, oy := m.scale(elemW, elemH)
	return geometry.Point{
		X: (px-ox)/sx + m.ViewBox.MinX,
		Y: (py-oy)/sy + m.ViewBox.MinY,
	}
}

func (m Matrix2D) isFinite() bool {
	for _, v := range m {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Transform returns the logical-to-device matrix for an element size.
func (m Mapper) Transform(elemW, elemH float64) Matrix2D {
	sx, sy, ox, oy := m.scale(elemW, elemH)
	return Translate(ox, oy).
		Multiply(Scale(sx, sy)).
		Multiply(Translate(-m.ViewBox.MinX, -m.ViewBox.MinY))
}

// ToDevice maps a logical point into device space. It returns the point
// unchanged when the element has no area.
func (m Mapper) ToDevice(p geometry.Point, elemW, elemH float64) geometry.Point {
	t := m.Transform(elemW, elemH)
	if !t.isFinite() || t.Determinant() == 0 {
		return p
	}
	return t.TransformPoint(p)
}

// Surface is the on-screen rectangle of the drawing element as reported by
// the device-geometry collaborator.
type Surface struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Valid reports whether the surface has a usable area.
func (s Surface) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

// ClientToLogical maps a client-space point (relative to the page) through
// the surface rectangle into logical coordinates.
func (m Mapper) ClientToLogical(client geometry.Point, s Surface) geometry.Point {
	return m.ToLogical(client.X-s.Left, client.Y-s.Top, s.Width, s.Height)
}
