package engine

import (
	"slices"

	"github.com/draftcore/draftcore/backend-go/internal/document"
)

// PointerDown interprets a click in logical coordinates against the active
// tool. A chain that would repeat a point, or whose picks have disappeared,
// is discarded without creating anything and the tool starts over.
func (e *Engine) PointerDown(ev PointerEvent) Effect {
	return e.pointerDown(ev, true)
}

// PointerMove moves the dragged point, if any, to the pointer position.
func (e *Engine) PointerMove(ev PointerEvent) Effect {
	if e.dragging == 0 {
		return Effect{}
	}
	if !e.sketch.MovePoint(e.dragging, ev.Position.X, ev.Position.Y) {
		e.dragging = 0
		return Effect{}
	}
	return Effect{Moved: e.dragging}
}

// target returns the event's target when it names an existing entity.
func (e *Engine) target(ev PointerEvent) (document.EntityRef, bool) {
	if ev.Target == nil || !e.sketch.Has(*ev.Target) {
		return document.EntityRef{}, false
	}
	return *ev.Target, true
}

// pickPoint returns the id of the existing point under the pointer.
func (e *Engine) pickPoint(ev PointerEvent) (document.ID, bool) {
	ref, ok := e.target(ev)
	if !ok || ref.Kind != document.KindPoint {
		return 0, false
	}
	return ref.ID, true
}

func (e *Engine) reset() {
	e.state = InitialState(e.state.Tool())
}

// commit runs create and returns the tool to its initial state. A create
// error is the vanished-reference case and leaves nothing behind.
func (e *Engine) commit(kind document.Kind, create func() (document.ID, error)) Effect {
	e.reset()
	id, err := create()
	if err != nil {
		e.logger.Debug("construction discarded", "kind", kind, "err", err)
		return Effect{}
	}
	return Effect{Created: []document.EntityRef{document.Ref(kind, id)}}
}

func repeats(ids ...document.ID) bool {
	for i := range ids {
		if slices.Contains(ids[i+1:], ids[i]) {
			return true
		}
	}
	return false
}

func (e *Engine) pointerDown(ev PointerEvent, allowDrag bool) Effect {
	m := e.mode

	switch st := e.state.(type) {
	case PointIdle:
		return e.idleClick(ev, allowDrag)

	case LineAwaitStart:
		if p, ok := e.pickPoint(ev); ok {
			e.state = LineAwaitEnd{P1: p}
		}
	case LineAwaitEnd:
		p, ok := e.pickPoint(ev)
		if !ok {
			break
		}
		if repeats(st.P1, p) {
			e.reset()
			break
		}
		return e.commit(document.KindLine, func() (document.ID, error) {
			return e.sketch.NewLine(st.P1, p, m)
		})

	case SplineStart:
		if p, ok := e.pickPoint(ev); ok {
			e.state = SplineCtrl1{P1: p}
		}
	case SplineCtrl1:
		if p, ok := e.pickPoint(ev); ok {
			e.advance(SplineCtrl2{P1: st.P1, P2: p}, st.P1, p)
		}
	case SplineCtrl2:
		if p, ok := e.pickPoint(ev); ok {
			e.advance(SplineEnd{P1: st.P1, P2: st.P2, P3: p}, st.P1, st.P2, p)
		}
	case SplineEnd:
		p, ok := e.pickPoint(ev)
		if !ok {
			break
		}
		if repeats(st.P1, st.P2, st.P3, p) {
			e.reset()
			break
		}
		return e.commit(document.KindSpline, func() (document.ID, error) {
			return e.sketch.NewSpline(st.P1, st.P2, st.P3, p, m)
		})

	case BisectorStart:
		if p, ok := e.pickPoint(ev); ok {
			e.state = BisectorVertex{P1: p}
		}
	case BisectorVertex:
		if p, ok := e.pickPoint(ev); ok {
			e.advance(BisectorEnd{P1: st.P1, Vertex: p}, st.P1, p)
		}
	case BisectorEnd:
		p, ok := e.pickPoint(ev)
		if !ok {
			break
		}
		if repeats(st.P1, st.Vertex, p) {
			e.reset()
			break
		}
		return e.commit(document.KindBisector, func() (document.ID, error) {
			return e.sketch.NewBisector(st.P1, st.Vertex, p, e.opts.BisectorLength, m)
		})

	case AlongLineStart:
		if p, ok := e.pickPoint(ev); ok {
			e.state = AlongLineEnd{P1: p}
		}
	case AlongLineEnd:
		p, ok := e.pickPoint(ev)
		if !ok {
			break
		}
		if repeats(st.P1, p) {
			e.reset()
			break
		}
		return e.commit(document.KindAlongLine, func() (document.ID, error) {
			return e.sketch.NewAlongLine(st.P1, p, e.opts.AlongLineDistance, m)
		})

	case ArcCenter:
		if p, ok := e.pickPoint(ev); ok {
			e.state = ArcRadius{Center: p}
		}
	case ArcRadius:
		return e.arcClick(st, ev)

	case MirrorSelecting:
		ref, ok := e.target(ev)
		if !ok || !ref.Kind.Referenceable() || slices.Contains(st.Refs, ref) {
			break
		}
		e.state = MirrorSelecting{Refs: append(slices.Clone(st.Refs), ref)}
	case MirrorAxisStart:
		if p, ok := e.pickPoint(ev); ok {
			e.state = MirrorAxisEnd{Refs: st.Refs, AxisP1: p}
		}
	case MirrorAxisEnd:
		p, ok := e.pickPoint(ev)
		if !ok {
			break
		}
		if repeats(st.AxisP1, p) {
			e.reset()
			break
		}
		return e.commit(document.KindMirror, func() (document.ID, error) {
			return e.sketch.NewMirror(st.Refs, st.AxisP1, p, m)
		})

	case ContourActive:
		return e.contourClick(st, ev)
	}
	return Effect{}
}

// advance moves to next unless the picks repeat a point, in which case the
// chain starts over.
func (e *Engine) advance(next ToolState, picks ...document.ID) {
	if repeats(picks...) {
		e.reset()
		return
	}
	e.state = next
}

func (e *Engine) idleClick(ev PointerEvent, allowDrag bool) Effect {
	ref, ok := e.target(ev)
	if !ok {
		id := e.sketch.NewPoint(ev.Position.X, ev.Position.Y, e.mode)
		e.selection = nil
		return Effect{Created: []document.EntityRef{document.Ref(document.KindPoint, id)}}
	}

	e.selection = &ref
	if ref.Kind == document.KindPoint && allowDrag {
		e.dragging = ref.ID
	}
	return Effect{}
}

// arcClick commits an arc whose radius and start angle come from the click.
// A click on a point uses that point's position; a click on the center
// itself is a repeated pick.
func (e *Engine) arcClick(st ArcRadius, ev PointerEvent) Effect {
	pos := ev.Position
	if p, ok := e.pickPoint(ev); ok {
		if p == st.Center {
			e.reset()
			return Effect{}
		}
		pt, _ := e.sketch.Point(p)
		pos = pt.Pos()
	}

	center, ok := e.sketch.Point(st.Center)
	if !ok {
		e.reset()
		return Effect{}
	}
	c := center.Pos()
	radius := c.DistanceTo(pos)
	start := c.AngleTo(pos)
	return e.commit(document.KindArc, func() (document.ID, error) {
		return e.sketch.NewArc(st.Center, radius, start, start+e.opts.ArcSweep, e.mode)
	})
}

func contourMember(k document.Kind) bool {
	return k == document.KindLine || k == document.KindSpline || k == document.KindBisector
}

// contourClick appends the clicked line, spline or bisector to the active
// contour, creating the contour on the first pick. The tool stays active.
func (e *Engine) contourClick(st ContourActive, ev PointerEvent) Effect {
	ref, ok := e.target(ev)
	if !ok || !contourMember(ref.Kind) {
		return Effect{}
	}

	if _, exists := e.sketch.Contour(st.Contour); exists {
		if err := e.sketch.AppendToContour(st.Contour, ref); err != nil {
			return Effect{}
		}
		return Effect{Updated: []document.EntityRef{document.Ref(document.KindContour, st.Contour)}}
	}

	id, err := e.sketch.NewContour([]document.EntityRef{ref}, e.mode)
	if err != nil {
		return Effect{}
	}
	e.state = ContourActive{Contour: id}
	return Effect{Created: []document.EntityRef{document.Ref(document.KindContour, id)}}
}

// FinishSelection ends mirror source picking and moves on to the axis. It
// does nothing unless at least one source was picked.
func (e *Engine) FinishSelection() bool {
	st, ok := e.state.(MirrorSelecting)
	if !ok || len(st.Refs) == 0 {
		return false
	}
	e.state = MirrorAxisStart{Refs: st.Refs}
	return true
}
