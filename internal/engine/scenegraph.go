package engine

import (
	"github.com/draftcore/draftcore/backend-go/internal/derive"
	"github.com/draftcore/draftcore/backend-go/internal/document"
	"github.com/draftcore/draftcore/backend-go/internal/geometry"
)

// SceneGraph is the resolved, render-ready state of a sketch. It is rebuilt
// from the sketch whenever it is needed and never edited in place.
type SceneGraph struct {
	Root       *SceneNode
	NodesByRef map[document.EntityRef]*SceneNode
}

// SceneNode is one entity resolved to drawable geometry in logical space.
type SceneNode struct {
	Ref      document.EntityRef
	Name     string
	Type     string // "group", "path", "marker"
	DrawMode document.DrawMode
	Selected bool

	Children []*SceneNode

	// Render data
	Path        []PathCommand
	Markers     []geometry.Point
	Fill        string
	Stroke      string
	StrokeWidth float64
	Dash        []float64

	// Shapes are kept for hit testing and export.
	Shapes []derive.Shape
	Bounds Rect
}

// PathCommand is a single path segment: ["M", x, y], ["L", x, y],
// ["C", x1, y1, x2, y2, x, y] or ["A", rx, ry, rot, large, sweep, x, y].
type PathCommand []any

// Rect is an axis-aligned bounding box.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NewSceneGraph creates an empty scene graph.
func NewSceneGraph() *SceneGraph {
	return &SceneGraph{
		Root:       &SceneNode{Type: "group"},
		NodesByRef: make(map[document.EntityRef]*SceneNode),
	}
}

// Contains checks if a point is inside the rect.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

// IsEmpty reports whether the rect has negative size. Zero-area boxes are
// not empty: a point or a vertical line still occupies the scene.
func (r Rect) IsEmpty() bool {
	return r.Width < 0 || r.Height < 0
}

// Inflate grows the rect by d on every side.
func (r Rect) Inflate(d float64) Rect {
	return Rect{X: r.X - d, Y: r.Y - d, Width: r.Width + 2*d, Height: r.Height + 2*d}
}

// Union returns the smallest rect containing both rects.
func (r Rect) Union(other Rect) Rect {
	if r.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return r
	}

	minX := min(r.X, other.X)
	minY := min(r.Y, other.Y)
	maxX := max(r.X+r.Width, other.X+other.Width)
	maxY := max(r.Y+r.Height, other.Y+other.Height)

	return Rect{
		X:      minX,
		Y:      minY,
		Width:  maxX - minX,
		Height: maxY - minY,
	}
}

// Center returns the center point of the rect.
func (r Rect) Center() (float64, float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

func emptyRect() Rect {
	return Rect{Width: -1, Height: -1}
}

func shapeBounds(sh derive.Shape) Rect {
	minX, minY, maxX, maxY := sh.Bounds()
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}
