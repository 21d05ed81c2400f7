package export

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/gogpu/gg"

	"github.com/draftcore/draftcore/backend-go/internal/derive"
	"github.com/draftcore/draftcore/backend-go/internal/document"
	"github.com/draftcore/draftcore/backend-go/internal/engine"
	"github.com/draftcore/draftcore/backend-go/internal/geometry"
	"github.com/draftcore/draftcore/backend-go/internal/viewport"
)

var ErrImageSize = errors.New("invalid image size")

const background = "#ffffff"

// PNG rasterizes the scene over the logical area vb into a width x height
// image, fitting vb with the meet policy.
func PNG(w io.Writer, sg *engine.SceneGraph, vb viewport.ViewBox, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrImageSize, width, height)
	}

	dc := gg.NewContext(width, height)
	defer dc.Close()

	dc.SetHexColor(background)
	dc.DrawRectangle(0, 0, float64(width), float64(height))
	if err := dc.Fill(); err != nil {
		return fmt.Errorf("fill background: %w", err)
	}

	m := viewport.NewMapper(vb, viewport.Meet).Transform(float64(width), float64(height))
	r := rasterizer{dc: dc, m: m, scale: m[0]}
	if sg != nil && sg.Root != nil {
		for _, node := range sg.Root.Children {
			if err := r.node(node); err != nil {
				return fmt.Errorf("draw %s: %w", node.Ref, err)
			}
		}
	}

	return dc.EncodePNG(w)
}

type rasterizer struct {
	dc    *gg.Context
	m     viewport.Matrix2D
	scale float64
}

func (r rasterizer) pt(p geometry.Point) geometry.Point {
	return r.m.TransformPoint(p)
}

func (r rasterizer) node(node *engine.SceneNode) error {
	dc := r.dc
	hasPath := false
	for _, sh := range node.Shapes {
		if sh.IsPoint() {
			continue
		}
		hasPath = true
		if sh.Kind == document.KindArc {
			r.arc(sh)
			continue
		}
		for _, seg := range sh.Segments() {
			a := seg.Args
			switch seg.Op {
			case "M":
				p := r.pt(geometry.Pt(a[0], a[1]))
				dc.MoveTo(p.X, p.Y)
			case "L":
				p := r.pt(geometry.Pt(a[0], a[1]))
				dc.LineTo(p.X, p.Y)
			case "C":
				c1 := r.pt(geometry.Pt(a[0], a[1]))
				c2 := r.pt(geometry.Pt(a[2], a[3]))
				p := r.pt(geometry.Pt(a[4], a[5]))
				dc.CubicTo(c1.X, c1.Y, c2.X, c2.Y, p.X, p.Y)
			}
		}
	}

	if hasPath {
		if node.Fill != "" {
			dc.SetHexColor(node.Fill)
			if node.Stroke != "" {
				if err := dc.FillPreserve(); err != nil {
					return err
				}
			} else if err := dc.Fill(); err != nil {
				return err
			}
		}
		if node.Stroke != "" {
			dc.SetHexColor(node.Stroke)
			dc.SetLineWidth(node.StrokeWidth)
			dc.SetDash(node.Dash...)
			if err := dc.Stroke(); err != nil {
				return err
			}
			dc.SetDash()
		}
	}

	if len(node.Markers) == 0 {
		return nil
	}
	fill := node.Fill
	if node.Type != "marker" {
		fill = node.Stroke
	}
	dc.SetHexColor(fill)
	for _, mk := range node.Markers {
		p := r.pt(mk)
		dc.DrawCircle(p.X, p.Y, engine.MarkerRadius)
	}
	return dc.Fill()
}

// arc traces the arc the SVG path data describes. gg draws arcs with
// increasing angle only, so a negative sweep is traced from the other end.
func (r rasterizer) arc(sh derive.Shape) {
	if len(sh.Points) < 3 || sh.Radius <= 0 {
		return
	}
	center, radius, a1, delta := sh.ArcTrace()
	from := sh.Points[0]
	if delta < 0 {
		a1, delta = a1+delta, -delta
		from = sh.Points[1]
	}
	c := r.pt(center)
	p := r.pt(from)
	r.dc.MoveTo(p.X, p.Y)
	r.dc.DrawArc(c.X, c.Y, radius*r.scale, rad(a1), rad(a1+delta))
}

func rad(deg float64) float64 { return deg * math.Pi / 180 }
