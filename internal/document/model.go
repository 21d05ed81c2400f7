package document

import (
	"fmt"

	"github.com/draftcore/draftcore/backend-go/internal/geometry"
)

// ID identifies an entity. Ids come from a single counter shared by every
// kind and are never reused.
type ID int64

type Kind string

const (
	KindPoint     Kind = "point"
	KindLine      Kind = "line"
	KindSpline    Kind = "spline"
	KindBisector  Kind = "bisector"
	KindArc       Kind = "arc"
	KindAlongLine Kind = "along_line"
	KindContour   Kind = "contour"
	KindMirror    Kind = "mirror"
)

// Kinds lists every entity kind in persisted-collection order.
var Kinds = []Kind{
	KindPoint, KindLine, KindSpline, KindBisector,
	KindArc, KindAlongLine, KindContour, KindMirror,
}

// Referenceable reports whether the kind may appear in an EntityRef held by
// a Contour or Mirror.
func (k Kind) Referenceable() bool {
	switch k {
	case KindPoint, KindLine, KindSpline, KindBisector, KindArc, KindAlongLine:
		return true
	}
	return false
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k.Referenceable() || k == KindContour || k == KindMirror
}

type DrawMode string

const (
	DrawModeModeling    DrawMode = "modeling"
	DrawModeCalculation DrawMode = "calculation"
)

// Valid reports whether m is a known draw mode.
func (m DrawMode) Valid() bool {
	return m == DrawModeModeling || m == DrawModeCalculation
}

// Identity is the record shared by every entity.
type Identity struct {
	ID       ID       `json:"id"`
	Name     string   `json:"name"`
	Kind     Kind     `json:"kind"`
	DrawMode DrawMode `json:"draw_mode"`
}

// Ref returns the reference naming this entity.
func (i Identity) Ref() EntityRef {
	return EntityRef{Kind: i.Kind, ID: i.ID}
}

// EntityRef is a tagged pointer into the sketch.
type EntityRef struct {
	Kind Kind `json:"kind"`
	ID   ID   `json:"id"`
}

func (r EntityRef) String() string {
	return fmt.Sprintf("%s#%d", r.Kind, r.ID)
}

// Ref builds an EntityRef.
func Ref(kind Kind, id ID) EntityRef {
	return EntityRef{Kind: kind, ID: id}
}

// Entity is implemented by every stored record.
type Entity interface {
	Ident() Identity
	// PointRefs returns the ids of the points this entity depends on.
	PointRefs() []ID
}

// Point is the only entity with real coordinates.
type Point struct {
	Identity
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pos returns the point's coordinates.
func (p Point) Pos() geometry.Point {
	return geometry.Point{X: p.X, Y: p.Y}
}

type Line struct {
	Identity
	Start ID `json:"start"`
	End   ID `json:"end"`
}

// Spline is a cubic Bézier: P1 start, P2 and P3 controls, P4 end.
type Spline struct {
	Identity
	P1 ID `json:"p1"`
	P2 ID `json:"p2"`
	P3 ID `json:"p3"`
	P4 ID `json:"p4"`
}

type Bisector struct {
	Identity
	P1     ID      `json:"p1"`
	Vertex ID      `json:"vertex"`
	P3     ID      `json:"p3"`
	Length float64 `json:"length"`
}

// Arc angles are in degrees.
type Arc struct {
	Identity
	Center     ID      `json:"center"`
	Radius     float64 `json:"radius"`
	StartAngle float64 `json:"start_angle"`
	EndAngle   float64 `json:"end_angle"`
}

// AlongLine is a point at Distance from P1 in the direction of P2.
type AlongLine struct {
	Identity
	P1       ID      `json:"p1"`
	P2       ID      `json:"p2"`
	Distance float64 `json:"distance"`
}

// Contour groups entities in order without owning them.
type Contour struct {
	Identity
	Entities []EntityRef `json:"entities"`
}

// Mirror reflects its sources across the line through AxisP1 and AxisP2.
type Mirror struct {
	Identity
	Sources []EntityRef `json:"sources"`
	AxisP1  ID          `json:"axis_p1"`
	AxisP2  ID          `json:"axis_p2"`
}

func (e Point) Ident() Identity     { return e.Identity }
func (e Line) Ident() Identity      { return e.Identity }
func (e Spline) Ident() Identity    { return e.Identity }
func (e Bisector) Ident() Identity  { return e.Identity }
func (e Arc) Ident() Identity       { return e.Identity }
func (e AlongLine) Ident() Identity { return e.Identity }
func (e Contour) Ident() Identity   { return e.Identity }
func (e Mirror) Ident() Identity    { return e.Identity }

func (e Point) PointRefs() []ID     { return nil }
func (e Line) PointRefs() []ID      { return []ID{e.Start, e.End} }
func (e Spline) PointRefs() []ID    { return []ID{e.P1, e.P2, e.P3, e.P4} }
func (e Bisector) PointRefs() []ID  { return []ID{e.P1, e.Vertex, e.P3} }
func (e Arc) PointRefs() []ID       { return []ID{e.Center} }
func (e AlongLine) PointRefs() []ID { return []ID{e.P1, e.P2} }
func (e Contour) PointRefs() []ID   { return nil }
func (e Mirror) PointRefs() []ID    { return []ID{e.AxisP1, e.AxisP2} }
