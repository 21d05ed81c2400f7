package engine

import (
	"fmt"
	"slices"

	"github.com/draftcore/draftcore/backend-go/internal/document"
)

// Tool is the active construction mode.
type Tool int

const (
	ToolPoint Tool = iota
	ToolLine
	ToolSpline
	ToolBisector
	ToolAlongLine
	ToolArc
	ToolMirror
	ToolContour
)

var toolNames = map[Tool]string{
	ToolPoint:     "point",
	ToolLine:      "line",
	ToolSpline:    "spline",
	ToolBisector:  "bisector",
	ToolAlongLine: "along_line",
	ToolArc:       "arc",
	ToolMirror:    "mirror",
	ToolContour:   "contour",
}

func (t Tool) String() string {
	if name, ok := toolNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Tool(%d)", int(t))
}

// ParseTool maps a tool name to its Tool. The empty string selects the
// point tool.
func ParseTool(s string) (Tool, error) {
	if s == "" {
		return ToolPoint, nil
	}
	for t, name := range toolNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown tool %q", s)
}

// ToolState is the partial construction held by the active tool. Each
// concrete type carries exactly the picks its step needs, so a chain can
// never be in a state with missing or extra picks.
type ToolState interface {
	Tool() Tool
	// Step names the state for display.
	Step() string
	toolState()
}

type (
	PointIdle struct{}

	LineAwaitStart struct{}
	LineAwaitEnd   struct{ P1 document.ID }

	SplineStart struct{}
	SplineCtrl1 struct{ P1 document.ID }
	SplineCtrl2 struct{ P1, P2 document.ID }
	SplineEnd   struct{ P1, P2, P3 document.ID }

	BisectorStart  struct{}
	BisectorVertex struct{ P1 document.ID }
	BisectorEnd    struct{ P1, Vertex document.ID }

	AlongLineStart struct{}
	AlongLineEnd   struct{ P1 document.ID }

	ArcCenter struct{}
	ArcRadius struct{ Center document.ID }

	MirrorSelecting struct{ Refs []document.EntityRef }
	MirrorAxisStart struct{ Refs []document.EntityRef }
	MirrorAxisEnd   struct {
		Refs   []document.EntityRef
		AxisP1 document.ID
	}

	// ContourActive appends to Contour, which is 0 until the first member
	// is picked.
	ContourActive struct{ Contour document.ID }
)

func (PointIdle) Tool() Tool       { return ToolPoint }
func (LineAwaitStart) Tool() Tool  { return ToolLine }
func (LineAwaitEnd) Tool() Tool    { return ToolLine }
func (SplineStart) Tool() Tool     { return ToolSpline }
func (SplineCtrl1) Tool() Tool     { return ToolSpline }
func (SplineCtrl2) Tool() Tool     { return ToolSpline }
func (SplineEnd) Tool() Tool       { return ToolSpline }
func (BisectorStart) Tool() Tool   { return ToolBisector }
func (BisectorVertex) Tool() Tool  { return ToolBisector }
func (BisectorEnd) Tool() Tool     { return ToolBisector }
func (AlongLineStart) Tool() Tool  { return ToolAlongLine }
func (AlongLineEnd) Tool() Tool    { return ToolAlongLine }
func (ArcCenter) Tool() Tool       { return ToolArc }
func (ArcRadius) Tool() Tool       { return ToolArc }
func (MirrorSelecting) Tool() Tool { return ToolMirror }
func (MirrorAxisStart) Tool() Tool { return ToolMirror }
func (MirrorAxisEnd) Tool() Tool   { return ToolMirror }
func (ContourActive) Tool() Tool   { return ToolContour }

func (PointIdle) Step() string       { return "idle" }
func (LineAwaitStart) Step() string  { return "await_start" }
func (LineAwaitEnd) Step() string    { return "await_end" }
func (SplineStart) Step() string     { return "start" }
func (SplineCtrl1) Step() string     { return "ctrl1" }
func (SplineCtrl2) Step() string     { return "ctrl2" }
func (SplineEnd) Step() string       { return "end" }
func (BisectorStart) Step() string   { return "start" }
func (BisectorVertex) Step() string  { return "vertex" }
func (BisectorEnd) Step() string     { return "end" }
func (AlongLineStart) Step() string  { return "start" }
func (AlongLineEnd) Step() string    { return "end" }
func (ArcCenter) Step() string       { return "center" }
func (ArcRadius) Step() string       { return "radius" }
func (MirrorSelecting) Step() string { return "selecting" }
func (MirrorAxisStart) Step() string { return "axis_start" }
func (MirrorAxisEnd) Step() string   { return "axis_end" }
func (ContourActive) Step() string   { return "active" }

func (PointIdle) toolState()       {}
func (LineAwaitStart) toolState()  {}
func (LineAwaitEnd) toolState()    {}
func (SplineStart) toolState()     {}
func (SplineCtrl1) toolState()     {}
func (SplineCtrl2) toolState()     {}
func (SplineEnd) toolState()       {}
func (BisectorStart) toolState()   {}
func (BisectorVertex) toolState()  {}
func (BisectorEnd) toolState()     {}
func (AlongLineStart) toolState()  {}
func (AlongLineEnd) toolState()    {}
func (ArcCenter) toolState()       {}
func (ArcRadius) toolState()       {}
func (MirrorSelecting) toolState() {}
func (MirrorAxisStart) toolState() {}
func (MirrorAxisEnd) toolState()   {}
func (ContourActive) toolState()   {}

// InitialState returns the state a tool starts in and resets to after a
// commit or a discarded chain.
func InitialState(t Tool) ToolState {
	switch t {
	case ToolLine:
		return LineAwaitStart{}
	case ToolSpline:
		return SplineStart{}
	case ToolBisector:
		return BisectorStart{}
	case ToolAlongLine:
		return AlongLineStart{}
	case ToolArc:
		return ArcCenter{}
	case ToolMirror:
		return MirrorSelecting{}
	case ToolContour:
		return ContourActive{}
	default:
		return PointIdle{}
	}
}

// StateView is the JSON form of a tool state.
type StateView struct {
	Tool    string               `json:"tool"`
	Step    string               `json:"step"`
	Picked  []document.ID        `json:"picked,omitempty"`
	Refs    []document.EntityRef `json:"refs,omitempty"`
	Contour document.ID          `json:"contour,omitempty"`
}

// ViewState describes st for the rendering collaborator.
func ViewState(st ToolState) StateView {
	v := StateView{Tool: st.Tool().String(), Step: st.Step()}
	switch s := st.(type) {
	case LineAwaitEnd:
		v.Picked = []document.ID{s.P1}
	case SplineCtrl1:
		v.Picked = []document.ID{s.P1}
	case SplineCtrl2:
		v.Picked = []document.ID{s.P1, s.P2}
	case SplineEnd:
		v.Picked = []document.ID{s.P1, s.P2, s.P3}
	case BisectorVertex:
		v.Picked = []document.ID{s.P1}
	case BisectorEnd:
		v.Picked = []document.ID{s.P1, s.Vertex}
	case AlongLineEnd:
		v.Picked = []document.ID{s.P1}
	case ArcRadius:
		v.Picked = []document.ID{s.Center}
	case MirrorSelecting:
		v.Refs = slices.Clone(s.Refs)
	case MirrorAxisStart:
		v.Refs = slices.Clone(s.Refs)
	case MirrorAxisEnd:
		v.Refs = slices.Clone(s.Refs)
		v.Picked = []document.ID{s.AxisP1}
	case ContourActive:
		v.Contour = s.Contour
	}
	return v
}
