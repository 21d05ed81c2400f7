package engine

import (
	"log/slog"

	"github.com/draftcore/draftcore/backend-go/internal/document"
	"github.com/draftcore/draftcore/backend-go/internal/geometry"
	"github.com/draftcore/draftcore/backend-go/internal/viewport"
)

// Options configures an engine.
type Options struct {
	ViewBox           viewport.ViewBox
	Aspect            viewport.AspectRatio
	BisectorLength    float64
	AlongLineDistance float64
	// ArcSweep is the span in degrees given to a new arc.
	ArcSweep float64
	Logger   *slog.Logger
}

// DefaultOptions returns the stock viewbox and construction defaults.
func DefaultOptions() Options {
	return Options{
		ViewBox:           viewport.DefaultViewBox(),
		Aspect:            viewport.Meet,
		BisectorLength:    100,
		AlongLineDistance: 50,
		ArcSweep:          90,
	}
}

// PointerEvent is a pointer position in logical coordinates plus the entity
// under it, if any.
type PointerEvent struct {
	Position geometry.Point      `json:"position"`
	Target   *document.EntityRef `json:"target,omitempty"`
}

// Effect reports what a single operation did to the sketch.
type Effect struct {
	Created []document.EntityRef `json:"created,omitempty"`
	Updated []document.EntityRef `json:"updated,omitempty"`
	Removed []document.EntityRef `json:"removed,omitempty"`
	Moved   document.ID          `json:"moved,omitempty"`
}

// Changed reports whether the sketch was modified.
func (e Effect) Changed() bool {
	return len(e.Created) > 0 || len(e.Updated) > 0 || len(e.Removed) > 0 || e.Moved != 0
}

func (e *Effect) merge(o Effect) {
	e.Created = append(e.Created, o.Created...)
	e.Updated = append(e.Updated, o.Updated...)
	e.Removed = append(e.Removed, o.Removed...)
	if o.Moved != 0 {
		e.Moved = o.Moved
	}
}

type pointerInput struct {
	Client geometry.Point
	Target *document.EntityRef
	Down   bool
}

// Engine is the application state of one drafting session: the sketch, the
// active tool and its partial chain, the selection, and the drag session.
// Every method runs to completion before the next is called; the engine is
// not safe for concurrent use.
type Engine struct {
	sketch *document.Sketch
	state  ToolState
	mode   document.DrawMode

	selection *document.EntityRef
	dragging  document.ID

	mapper  viewport.Mapper
	surface viewport.Surface
	queue   viewport.Queue[pointerInput]
	// lastUp is the newest request id issued before the latest pointer-up.
	// A pointer-down delivered at or below it must not start a drag.
	lastUp uint64

	opts   Options
	logger *slog.Logger
}

// New creates an engine over sketch. A nil sketch starts empty.
func New(sketch *document.Sketch, opts Options) *Engine {
	if sketch == nil {
		sketch = document.NewSketch()
	}
	def := DefaultOptions()
	if opts.ViewBox.Width <= 0 || opts.ViewBox.Height <= 0 {
		opts.ViewBox = def.ViewBox
	}
	if opts.ArcSweep == 0 {
		opts.ArcSweep = def.ArcSweep
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		sketch: sketch,
		state:  PointIdle{},
		mode:   document.DrawModeModeling,
		mapper: viewport.NewMapper(opts.ViewBox, opts.Aspect),
		opts:   opts,
		logger: logger,
	}
}

// Sketch returns the live sketch. Callers must not mutate it while the
// engine is in use.
func (e *Engine) Sketch() *document.Sketch {
	return e.sketch
}

// Mapper returns the coordinate mapper in use.
func (e *Engine) Mapper() viewport.Mapper {
	return e.mapper
}

// Options returns the engine's configuration.
func (e *Engine) Options() Options {
	return e.opts
}

// State returns the active tool state.
func (e *Engine) State() ToolState {
	return e.state
}

// Tool returns the active tool.
func (e *Engine) Tool() Tool {
	return e.state.Tool()
}

// SetTool activates t and discards any partial chain, including a chain
// of the same tool. Pointer events still waiting for their surface answer
// belong to the old tool and are dropped.
func (e *Engine) SetTool(t Tool) {
	if n := e.queue.Pending(); n > 0 {
		e.logger.Debug("dropping pointer events pending across tool switch", "count", n)
	}
	e.queue.Reset()
	e.state = InitialState(t)
	e.dragging = 0
}

// DrawMode returns the draw mode given to new entities.
func (e *Engine) DrawMode() document.DrawMode {
	return e.mode
}

// SetDrawMode changes the draw mode for entities created from now on.
func (e *Engine) SetDrawMode(m document.DrawMode) bool {
	if !m.Valid() {
		return false
	}
	e.mode = m
	return true
}

// Selection returns the selected entity.
func (e *Engine) Selection() (document.EntityRef, bool) {
	if e.selection == nil {
		return document.EntityRef{}, false
	}
	return *e.selection, true
}

// Select replaces the selection with ref. It fails when ref does not exist.
func (e *Engine) Select(ref document.EntityRef) bool {
	if !e.sketch.Has(ref) {
		return false
	}
	e.selection = &ref
	return true
}

// ClearSelection empties the selection.
func (e *Engine) ClearSelection() {
	e.selection = nil
}

// Dragging returns the point being dragged.
func (e *Engine) Dragging() (document.ID, bool) {
	return e.dragging, e.dragging != 0
}

// Replace swaps the whole sketch, for example after a successful load.
// Tool chains, selection and drag refer to the old graph and are reset.
func (e *Engine) Replace(s *document.Sketch) {
	e.sketch = s
	e.state = InitialState(e.state.Tool())
	e.selection = nil
	e.dragging = 0
	e.queue.Reset()
}

// DeleteSelected removes the selected entity, cascading from a point to
// its dependents, and clears the selection.
func (e *Engine) DeleteSelected() Effect {
	if e.selection == nil {
		return Effect{}
	}
	ref := *e.selection
	e.selection = nil

	removed := e.sketch.Delete(ref)
	if ref.Kind == document.KindPoint && ref.ID == e.dragging {
		e.dragging = 0
	}
	return Effect{Removed: removed}
}

// PointerUp ends any drag session, wherever the pointer is. Pending drag
// moves are dropped.
func (e *Engine) PointerUp() {
	e.dragging = 0
	e.queue.Cancel(viewport.ClassContinuous)
	e.lastUp = e.queue.Latest()
}

// SubmitPointerDown queues a pointer-down at a client-space position until
// the surface geometry for it arrives. It returns the request id to answer
// with ResolveSurface.
func (e *Engine) SubmitPointerDown(client geometry.Point, target *document.EntityRef) uint64 {
	return e.queue.Issue(pointerInput{Client: client, Target: target, Down: true}, viewport.ClassDiscrete)
}

// SubmitPointerMove queues a pointer-move. Only the newest pending move is
// ever applied.
func (e *Engine) SubmitPointerMove(client geometry.Point, target *document.EntityRef) uint64 {
	return e.queue.Issue(pointerInput{Client: client, Target: target}, viewport.ClassContinuous)
}

// PendingRequests returns the number of surface requests not yet applied.
func (e *Engine) PendingRequests() int {
	return e.queue.Pending()
}

// ResolveSurface applies the surface geometry answering request id and
// delivers every pointer event that is now in order. ok is false when the
// response was stale and discarded.
func (e *Engine) ResolveSurface(id uint64, s viewport.Surface) (eff Effect, ok bool) {
	ready, ok := e.queue.Resolve(id, s)
	if !ok {
		e.logger.Debug("discarding stale surface response", "request", id)
		return Effect{}, false
	}

	for _, r := range ready {
		if !r.Surface.Valid() {
			e.logger.Debug("surface has no area, dropping pointer event", "request", r.ID)
			continue
		}
		e.surface = r.Surface
		ev := PointerEvent{
			Position: e.mapper.ClientToLogical(r.Event.Client, r.Surface),
			Target:   r.Event.Target,
		}
		if r.Event.Down {
			eff.merge(e.pointerDown(ev, r.ID > e.lastUp))
		} else {
			eff.merge(e.PointerMove(ev))
		}
	}
	return eff, true
}

// Surface returns the most recent valid surface geometry.
func (e *Engine) Surface() (viewport.Surface, bool) {
	return e.surface, e.surface.Valid()
}

// Snapshot is the read-only view handed to the rendering collaborator.
type Snapshot struct {
	Sketch    document.File       `json:"sketch"`
	State     StateView           `json:"state"`
	Selection *document.EntityRef `json:"selection,omitempty"`
	Dragging  document.ID         `json:"dragging,omitempty"`
	DrawMode  document.DrawMode   `json:"drawMode"`
	ViewBox   viewport.ViewBox    `json:"viewBox"`
	Aspect    string              `json:"aspect"`
	Commands  []DrawCommand       `json:"commands"`
}

// Snapshot captures the current sketch, tool state and selection along with
// the draw commands that render them.
func (e *Engine) Snapshot() Snapshot {
	snap := Snapshot{
		Sketch:   document.ToFile(e.sketch),
		State:    ViewState(e.state),
		Dragging: e.dragging,
		DrawMode: e.mode,
		ViewBox:  e.mapper.ViewBox,
		Aspect:   e.mapper.Aspect.String(),
	}
	if e.selection != nil {
		sel := *e.selection
		snap.Selection = &sel
	}

	var transform []float64
	if e.surface.Valid() {
		transform = e.mapper.Transform(e.surface.Width, e.surface.Height).ToSlice()
	}
	snap.Commands = CompileDrawCommands(BuildScene(e.sketch, snap.Selection), transform)
	return snap
}

// DrawCommands compiles the sketch for a drawing element of the given size.
func (e *Engine) DrawCommands(width, height float64) []DrawCommand {
	var transform []float64
	if width > 0 && height > 0 {
		transform = e.mapper.Transform(width, height).ToSlice()
	}
	return CompileDrawCommands(BuildScene(e.sketch, e.selection), transform)
}

// HitTest returns the top-most entity within tolerance of a logical point.
func (e *Engine) HitTest(p geometry.Point, tolerance float64) (document.EntityRef, bool) {
	return HitTest(BuildScene(e.sketch, nil), p, tolerance)
}
