package engine

import (
	"encoding/json"
	"math"

	"github.com/draftcore/draftcore/backend-go/internal/document"
	"github.com/draftcore/draftcore/backend-go/internal/geometry"
)

// MarkerRadius is the drawn radius of a point marker in logical units.
const MarkerRadius = 4

// DrawCommand is a single drawing operation for the rendering collaborator.
// Geometry is in logical coordinates; Transform, when present, maps them
// onto the device surface.
type DrawCommand struct {
	Op          string              `json:"op"`                    // "path" or "marker"
	Ref         *document.EntityRef `json:"ref,omitempty"`         // For hit correlation
	Name        string              `json:"name,omitempty"`        // Entity name label
	Transform   []float64           `json:"transform,omitempty"`   // [a, b, c, d, e, f] affine matrix
	Path        []PathCommand       `json:"path,omitempty"`        // Path data for "path" ops
	X           float64             `json:"x,omitempty"`           // Marker center
	Y           float64             `json:"y,omitempty"`           // Marker center
	Radius      float64             `json:"radius,omitempty"`      // Marker radius
	Fill        string              `json:"fill,omitempty"`        // Fill color
	Stroke      string              `json:"stroke,omitempty"`      // Stroke color
	StrokeWidth float64             `json:"strokeWidth,omitempty"` // Stroke width
	Dash        []float64           `json:"dash,omitempty"`        // Line dash pattern
	Selected    bool                `json:"selected,omitempty"`
}

// CompileDrawCommands generates a draw command buffer from a scene graph.
// Commands are in painter's order (back to front).
func CompileDrawCommands(sg *SceneGraph, transform []float64) []DrawCommand {
	commands := []DrawCommand{}
	if sg == nil || sg.Root == nil {
		return commands
	}
	for _, node := range sg.Root.Children {
		compileNode(node, transform, &commands)
	}
	return commands
}

func compileNode(node *SceneNode, transform []float64, commands *[]DrawCommand) {
	ref := node.Ref
	if len(node.Path) > 0 {
		*commands = append(*commands, DrawCommand{
			Op:          "path",
			Ref:         &ref,
			Name:        node.Name,
			Transform:   transform,
			Path:        node.Path,
			Fill:        node.Fill,
			Stroke:      node.Stroke,
			StrokeWidth: node.StrokeWidth,
			Dash:        node.Dash,
			Selected:    node.Selected,
		})
	}

	fill := node.Fill
	if node.Type != "marker" {
		fill = node.Stroke
	}
	for _, m := range node.Markers {
		*commands = append(*commands, DrawCommand{
			Op:        "marker",
			Ref:       &ref,
			Name:      node.Name,
			Transform: transform,
			X:         m.X,
			Y:         m.Y,
			Radius:    MarkerRadius,
			Fill:      fill,
			Selected:  node.Selected,
		})
	}
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}

// hitSegments is the number of segments a curve is split into for hit
// testing.
const hitSegments = 32

// HitTest returns the top-most entity within tolerance of p. Points and
// along-line points are tested before paths regardless of paint order so a
// point sitting on a line can always be picked. Contours share their
// members' geometry and are never hit.
func HitTest(sg *SceneGraph, p geometry.Point, tolerance float64) (document.EntityRef, bool) {
	if sg == nil || sg.Root == nil {
		return document.EntityRef{}, false
	}

	for _, markersPass := range []bool{true, false} {
		for i := len(sg.Root.Children) - 1; i >= 0; i-- {
			node := sg.Root.Children[i]
			if node.Ref.Kind == document.KindContour || (node.Type == "marker") != markersPass {
				continue
			}
			if hitNode(node, p, tolerance) {
				return node.Ref, true
			}
		}
	}
	return document.EntityRef{}, false
}

func hitNode(node *SceneNode, p geometry.Point, tolerance float64) bool {
	if !node.Bounds.Inflate(tolerance).Contains(p.X, p.Y) {
		return false
	}
	for _, sh := range node.Shapes {
		if sh.IsPoint() {
			if sh.Points[0].DistanceTo(p) <= tolerance {
				return true
			}
			continue
		}
		if distanceToPolyline(p, sh.Flatten(hitSegments)) <= tolerance {
			return true
		}
	}
	return false
}

func distanceToPolyline(p geometry.Point, pts []geometry.Point) float64 {
	best := math.Inf(1)
	for i := 1; i < len(pts); i++ {
		best = min(best, distanceToSegment(p, pts[i-1], pts[i]))
	}
	if len(pts) == 1 {
		best = p.DistanceTo(pts[0])
	}
	return best
}

func distanceToSegment(p, a, b geometry.Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return p.DistanceTo(a)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / l2
	t = max(0, min(1, t))
	return p.DistanceTo(geometry.Pt(a.X+t*dx, a.Y+t*dy))
}

// Bounds returns the combined bounding box of the given entities.
func Bounds(sg *SceneGraph, refs []document.EntityRef) Rect {
	result := emptyRect()
	if sg == nil {
		return result
	}
	for _, ref := range refs {
		if node, ok := sg.NodesByRef[ref]; ok {
			result = result.Union(node.Bounds)
		}
	}
	return result
}
