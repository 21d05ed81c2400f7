// Package export renders a sketch to standalone SVG and PNG files.
package export

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/draftcore/draftcore/backend-go/internal/document"
	"github.com/draftcore/draftcore/backend-go/internal/engine"
	"github.com/draftcore/draftcore/backend-go/internal/viewport"
)

// framePadding is the margin, in logical units, kept around the drawing.
const framePadding = 10

// Frame returns the logical area to export: the drawing's bounds plus a
// margin, or fallback when the scene is empty.
func Frame(sg *engine.SceneGraph, fallback viewport.ViewBox) viewport.ViewBox {
	if sg == nil || sg.Root == nil || sg.Root.Bounds.IsEmpty() {
		return fallback
	}
	r := sg.Root.Bounds.Inflate(engine.MarkerRadius + framePadding)
	return viewport.ViewBox{MinX: r.X, MinY: r.Y, Width: max(r.Width, 1), Height: max(r.Height, 1)}
}

type svgDoc struct {
	XMLName xml.Name   `xml:"svg"`
	Xmlns   string     `xml:"xmlns,attr"`
	ViewBox string     `xml:"viewBox,attr"`
	Width   string     `xml:"width,attr,omitempty"`
	Height  string     `xml:"height,attr,omitempty"`
	Groups  []svgGroup `xml:"g"`
}

type svgGroup struct {
	ID          string      `xml:"id,attr"`
	Class       string      `xml:"class,attr"`
	Name        string      `xml:"data-name,attr,omitempty"`
	Fill        string      `xml:"fill,attr"`
	Stroke      string      `xml:"stroke,attr,omitempty"`
	StrokeWidth string      `xml:"stroke-width,attr,omitempty"`
	Dash        string      `xml:"stroke-dasharray,attr,omitempty"`
	Paths       []svgPath   `xml:"path"`
	Circles     []svgCircle `xml:"circle"`
}

type svgPath struct {
	D string `xml:"d,attr"`
}

type svgCircle struct {
	CX   float64 `xml:"cx,attr"`
	CY   float64 `xml:"cy,attr"`
	R    float64 `xml:"r,attr"`
	Fill string  `xml:"fill,attr"`
}

// SVG writes the scene as an SVG document over the logical area vb. Each
// entity becomes one <g> in paint order, identified by its kind and id.
func SVG(w io.Writer, sg *engine.SceneGraph, vb viewport.ViewBox) error {
	doc := svgDoc{
		Xmlns:   "http://www.w3.org/2000/svg",
		ViewBox: joinFloats(vb.MinX, vb.MinY, vb.Width, vb.Height),
		Width:   fmtFloat(vb.Width),
		Height:  fmtFloat(vb.Height),
	}
	if sg != nil && sg.Root != nil {
		for _, node := range sg.Root.Children {
			doc.Groups = append(doc.Groups, svgGroupFor(node))
		}
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode svg: %w", err)
	}
	return enc.Flush()
}

func svgGroupFor(node *engine.SceneNode) svgGroup {
	g := svgGroup{
		ID:    elementID(node.Ref),
		Class: string(node.DrawMode),
		Name:  node.Name,
		Fill:  "none",
	}
	if node.Fill != "" {
		g.Fill = node.Fill
	}
	if node.Type != "marker" {
		g.Stroke = node.Stroke
		g.StrokeWidth = fmtFloat(node.StrokeWidth)
		if len(node.Dash) > 0 {
			g.Dash = joinFloats(node.Dash...)
		}
	}

	for _, sh := range node.Shapes {
		if sh.IsPoint() {
			continue
		}
		g.Paths = append(g.Paths, svgPath{D: sh.PathData()})
	}
	markerFill := node.Fill
	if node.Type != "marker" {
		markerFill = node.Stroke
	}
	for _, m := range node.Markers {
		g.Circles = append(g.Circles, svgCircle{CX: m.X, CY: m.Y, R: engine.MarkerRadius, Fill: markerFill})
	}
	return g
}

func elementID(ref document.EntityRef) string {
	return fmt.Sprintf("%s-%d", ref.Kind, ref.ID)
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func joinFloats(vs ...float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = fmtFloat(v)
	}
	return strings.Join(parts, " ")
}
