package engine

import (
	"github.com/draftcore/draftcore/backend-go/internal/derive"
	"github.com/draftcore/draftcore/backend-go/internal/document"
)

// Scene colors.
const (
	colorModeling    = "#1f2937"
	colorCalculation = "#9ca3af"
	colorSelected    = "#2563eb"
	colorMirror      = "#7c3aed"
	colorContourFill = "#10b98126"
	colorPoint       = "#111827"
)

var calculationDash = []float64{6, 4}

// BuildScene resolves every entity of the sketch into a scene graph in
// painter's order: contours, mirrors, lines, splines, bisectors, arcs,
// along-line points, points. An entity whose references are missing is
// left out of the scene.
func BuildScene(s *document.Sketch, selection *document.EntityRef) *SceneGraph {
	sg := NewSceneGraph()
	sg.Root.Bounds = emptyRect()

	add := func(node *SceneNode) {
		if node == nil {
			return
		}
		if selection != nil && *selection == node.Ref {
			node.Selected = true
			node.Stroke = colorSelected
			if node.Type == "marker" {
				node.Fill = colorSelected
			}
		}
		sg.Root.Children = append(sg.Root.Children, node)
		sg.NodesByRef[node.Ref] = node
		sg.Root.Bounds = sg.Root.Bounds.Union(node.Bounds)
	}

	for _, c := range s.Contours() {
		shapes, ok := derive.Contour(s, c.ID)
		if !ok || len(shapes) == 0 {
			continue
		}
		node := newNode(c.Identity, shapes)
		node.Fill = colorContourFill
		node.Stroke = ""
		add(node)
	}
	for _, m := range s.Mirrors() {
		shapes, ok := derive.Mirror(s, m.ID)
		if !ok || len(shapes) == 0 {
			continue
		}
		node := newNode(m.Identity, shapes)
		node.Stroke = colorMirror
		node.Dash = calculationDash
		add(node)
	}

	refs := make([]document.EntityRef, 0, s.Len())
	for _, e := range s.Lines() {
		refs = append(refs, e.Ref())
	}
	for _, e := range s.Splines() {
		refs = append(refs, e.Ref())
	}
	for _, e := range s.Bisectors() {
		refs = append(refs, e.Ref())
	}
	for _, e := range s.Arcs() {
		refs = append(refs, e.Ref())
	}
	for _, e := range s.AlongLines() {
		refs = append(refs, e.Ref())
	}
	for _, e := range s.Points() {
		refs = append(refs, e.Ref())
	}
	for _, ref := range refs {
		sh, ok := derive.Resolve(s, ref)
		if !ok {
			continue
		}
		ent, _ := s.Get(ref.Kind, ref.ID)
		add(newNode(ent.Ident(), []derive.Shape{sh}))
	}

	return sg
}

// newNode builds a node drawing shapes with the style of the entity's draw
// mode.
func newNode(ident document.Identity, shapes []derive.Shape) *SceneNode {
	node := &SceneNode{
		Ref:         document.Ref(ident.Kind, ident.ID),
		Name:        ident.Name,
		Type:        "path",
		DrawMode:    ident.DrawMode,
		Stroke:      colorModeling,
		StrokeWidth: 2,
		Shapes:      shapes,
		Bounds:      emptyRect(),
	}
	if ident.DrawMode == document.DrawModeCalculation {
		node.Stroke = colorCalculation
		node.StrokeWidth = 1
		node.Dash = calculationDash
	}

	for _, sh := range shapes {
		if sh.IsPoint() {
			node.Markers = append(node.Markers, sh.Points...)
		} else {
			for _, seg := range sh.Segments() {
				cmd := make(PathCommand, 0, len(seg.Args)+1)
				cmd = append(cmd, seg.Op)
				for _, v := range seg.Args {
					cmd = append(cmd, v)
				}
				node.Path = append(node.Path, cmd)
			}
		}
		node.Bounds = node.Bounds.Union(shapeBounds(sh))
	}

	if len(node.Path) == 0 && len(node.Markers) > 0 {
		node.Type = "marker"
		node.Fill = colorPoint
		if ident.DrawMode == document.DrawModeCalculation {
			node.Fill = colorCalculation
		}
	}
	return node
}
