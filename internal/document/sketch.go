package document

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

var (
	ErrNotFound         = errors.New("entity not found")
	ErrMissingReference = errors.New("referenced entity does not exist")
	ErrSelfReference    = errors.New("entity references the same point more than once")
	ErrNotReferenceable = errors.New("entity kind cannot be referenced")
)

// Sketch is the id-indexed arena that owns every entity. Entities refer to
// each other only by id. A Sketch has a single writer; callers that share
// one across goroutines must serialize access themselves.
type Sketch struct {
	points     map[ID]Point
	lines      map[ID]Line
	splines    map[ID]Spline
	bisectors  map[ID]Bisector
	arcs       map[ID]Arc
	alongLines map[ID]AlongLine
	contours   map[ID]Contour
	mirrors    map[ID]Mirror

	nextID ID
}

// NewSketch creates an empty sketch whose first id is 1.
func NewSketch() *Sketch {
	return &Sketch{
		points:     make(map[ID]Point),
		lines:      make(map[ID]Line),
		splines:    make(map[ID]Spline),
		bisectors:  make(map[ID]Bisector),
		arcs:       make(map[ID]Arc),
		alongLines: make(map[ID]AlongLine),
		contours:   make(map[ID]Contour),
		mirrors:    make(map[ID]Mirror),
		nextID:     1,
	}
}

// NextID returns the id the next created entity will receive.
func (s *Sketch) NextID() ID {
	return s.nextID
}

func (s *Sketch) issue(kind Kind, mode DrawMode, name func(ID) string) Identity {
	id := s.nextID
	s.nextID++
	if !mode.Valid() {
		mode = DrawModeModeling
	}
	return Identity{ID: id, Name: name(id), Kind: kind, DrawMode: mode}
}

func (s *Sketch) pointName(id ID) string {
	return s.points[id].Name
}

func (s *Sketch) requirePoints(ids ...ID) error {
	for _, id := range ids {
		if _, ok := s.points[id]; !ok {
			return fmt.Errorf("point %d: %w", id, ErrMissingReference)
		}
	}
	for i := range ids {
		for j := i + 1; j < len(ids); j++ {
			if ids[i] == ids[j] {
				return fmt.Errorf("point %d: %w", ids[i], ErrSelfReference)
			}
		}
	}
	return nil
}

func (s *Sketch) requireRefs(refs []EntityRef) error {
	for _, r := range refs {
		if !r.Kind.Referenceable() {
			return fmt.Errorf("%s: %w", r, ErrNotReferenceable)
		}
		if _, ok := s.Get(r.Kind, r.ID); !ok {
			return fmt.Errorf("%s: %w", r, ErrMissingReference)
		}
	}
	return nil
}

// NewPoint places a point and returns its id.
func (s *Sketch) NewPoint(x, y float64, mode DrawMode) ID {
	ident := s.issue(KindPoint, mode, func(id ID) string { return fmt.Sprintf("P%d", id) })
	s.points[ident.ID] = Point{Identity: ident, X: x, Y: y}
	return ident.ID
}

// NewLine creates a line between two distinct existing points.
func (s *Sketch) NewLine(start, end ID, mode DrawMode) (ID, error) {
	if err := s.requirePoints(start, end); err != nil {
		return 0, fmt.Errorf("create line: %w", err)
	}
	ident := s.issue(KindLine, mode, func(ID) string {
		return "Line_" + s.pointName(start) + "_" + s.pointName(end)
	})
	s.lines[ident.ID] = Line{Identity: ident, Start: start, End: end}
	return ident.ID, nil
}

// NewSpline creates a cubic curve through p1 and p4 with controls p2 and p3.
func (s *Sketch) NewSpline(p1, p2, p3, p4 ID, mode DrawMode) (ID, error) {
	if err := s.requirePoints(p1, p2, p3, p4); err != nil {
		return 0, fmt.Errorf("create spline: %w", err)
	}
	ident := s.issue(KindSpline, mode, func(ID) string {
		return "Spl_" + s.pointName(p1) + "_" + s.pointName(p4)
	})
	s.splines[ident.ID] = Spline{Identity: ident, P1: p1, P2: p2, P3: p3, P4: p4}
	return ident.ID, nil
}

// NewBisector creates a bisector of the angle p1-vertex-p3.
func (s *Sketch) NewBisector(p1, vertex, p3 ID, length float64, mode DrawMode) (ID, error) {
	if err := s.requirePoints(p1, vertex, p3); err != nil {
		return 0, fmt.Errorf("create bisector: %w", err)
	}
	ident := s.issue(KindBisector, mode, func(ID) string {
		return "Bis_" + s.pointName(p1) + "_" + s.pointName(vertex) + "_" + s.pointName(p3)
	})
	s.bisectors[ident.ID] = Bisector{Identity: ident, P1: p1, Vertex: vertex, P3: p3, Length: length}
	return ident.ID, nil
}

// NewArc creates an arc around an existing center point.
func (s *Sketch) NewArc(center ID, radius, startAngle, endAngle float64, mode DrawMode) (ID, error) {
	if err := s.requirePoints(center); err != nil {
		return 0, fmt.Errorf("create arc: %w", err)
	}
	ident := s.issue(KindArc, mode, func(ID) string {
		return "Arc_" + s.pointName(center)
	})
	s.arcs[ident.ID] = Arc{Identity: ident, Center: center, Radius: radius, StartAngle: startAngle, EndAngle: endAngle}
	return ident.ID, nil
}

// NewAlongLine creates a point at distance from p1 toward p2.
func (s *Sketch) NewAlongLine(p1, p2 ID, distance float64, mode DrawMode) (ID, error) {
	if err := s.requirePoints(p1, p2); err != nil {
		return 0, fmt.Errorf("create along-line point: %w", err)
	}
	ident := s.issue(KindAlongLine, mode, func(ID) string {
		return "AL_" + s.pointName(p1) + "_" + s.pointName(p2)
	})
	s.alongLines[ident.ID] = AlongLine{Identity: ident, P1: p1, P2: p2, Distance: distance}
	return ident.ID, nil
}

// NewContour creates a contour over existing entities.
func (s *Sketch) NewContour(refs []EntityRef, mode DrawMode) (ID, error) {
	if err := s.requireRefs(refs); err != nil {
		return 0, fmt.Errorf("create contour: %w", err)
	}
	ident := s.issue(KindContour, mode, func(id ID) string { return fmt.Sprintf("Contour%d", id) })
	s.contours[ident.ID] = Contour{Identity: ident, Entities: cloneRefs(refs)}
	return ident.ID, nil
}

// AppendToContour adds an existing entity to the end of a contour.
func (s *Sketch) AppendToContour(id ID, ref EntityRef) error {
	c, ok := s.contours[id]
	if !ok {
		return fmt.Errorf("contour %d: %w", id, ErrNotFound)
	}
	if err := s.requireRefs([]EntityRef{ref}); err != nil {
		return fmt.Errorf("append to contour: %w", err)
	}
	c.Entities = append(cloneRefs(c.Entities), ref)
	s.contours[id] = c
	return nil
}

// NewMirror creates a mirror of sources across the axis through two distinct points.
func (s *Sketch) NewMirror(sources []EntityRef, axisP1, axisP2 ID, mode DrawMode) (ID, error) {
	if err := s.requirePoints(axisP1, axisP2); err != nil {
		return 0, fmt.Errorf("create mirror: %w", err)
	}
	if err := s.requireRefs(sources); err != nil {
		return 0, fmt.Errorf("create mirror: %w", err)
	}
	ident := s.issue(KindMirror, mode, func(id ID) string { return fmt.Sprintf("Mirror%d", id) })
	s.mirrors[ident.ID] = Mirror{Identity: ident, Sources: cloneRefs(sources), AxisP1: axisP1, AxisP2: axisP2}
	return ident.ID, nil
}

// MovePoint updates a point's coordinates. It is the only in-place mutation
// the sketch allows.
func (s *Sketch) MovePoint(id ID, x, y float64) bool {
	p, ok := s.points[id]
	if !ok {
		return false
	}
	p.X, p.Y = x, y
	s.points[id] = p
	return true
}

func (s *Sketch) Point(id ID) (Point, bool)         { p, ok := s.points[id]; return p, ok }
func (s *Sketch) Line(id ID) (Line, bool)           { e, ok := s.lines[id]; return e, ok }
func (s *Sketch) Spline(id ID) (Spline, bool)       { e, ok := s.splines[id]; return e, ok }
func (s *Sketch) Bisector(id ID) (Bisector, bool)   { e, ok := s.bisectors[id]; return e, ok }
func (s *Sketch) Arc(id ID) (Arc, bool)             { e, ok := s.arcs[id]; return e, ok }
func (s *Sketch) AlongLine(id ID) (AlongLine, bool) { e, ok := s.alongLines[id]; return e, ok }
func (s *Sketch) Contour(id ID) (Contour, bool)     { e, ok := s.contours[id]; return e, ok }
func (s *Sketch) Mirror(id ID) (Mirror, bool)       { e, ok := s.mirrors[id]; return e, ok }

// Get looks up any entity by kind and id.
func (s *Sketch) Get(kind Kind, id ID) (Entity, bool) {
	var (
		e  Entity
		ok bool
	)
	switch kind {
	case KindPoint:
		e, ok = lookup(s.points, id)
	case KindLine:
		e, ok = lookup(s.lines, id)
	case KindSpline:
		e, ok = lookup(s.splines, id)
	case KindBisector:
		e, ok = lookup(s.bisectors, id)
	case KindArc:
		e, ok = lookup(s.arcs, id)
	case KindAlongLine:
		e, ok = lookup(s.alongLines, id)
	case KindContour:
		e, ok = lookup(s.contours, id)
	case KindMirror:
		e, ok = lookup(s.mirrors, id)
	}
	return e, ok
}

func lookup[T Entity](m map[ID]T, id ID) (Entity, bool) {
	v, ok := m[id]
	if !ok {
		return nil, false
	}
	return v, true
}

// Has reports whether ref names an existing entity.
func (s *Sketch) Has(ref EntityRef) bool {
	_, ok := s.Get(ref.Kind, ref.ID)
	return ok
}

// DeleteEntity removes a single record without cascading. Deleting a point
// this way leaves its dependents dangling; use DeletePoint instead.
func (s *Sketch) DeleteEntity(kind Kind, id ID) bool {
	if _, ok := s.Get(kind, id); !ok {
		return false
	}
	switch kind {
	case KindPoint:
		delete(s.points, id)
	case KindLine:
		delete(s.lines, id)
	case KindSpline:
		delete(s.splines, id)
	case KindBisector:
		delete(s.bisectors, id)
	case KindArc:
		delete(s.arcs, id)
	case KindAlongLine:
		delete(s.alongLines, id)
	case KindContour:
		delete(s.contours, id)
	case KindMirror:
		delete(s.mirrors, id)
	}
	return true
}

// DeletePoint removes a point and every line, spline, bisector, arc and
// along-line point that references it. Contours and mirrors are left as
// they are. It returns every removed entity, the point first, or nil when
// the point does not exist.
func (s *Sketch) DeletePoint(id ID) []EntityRef {
	if _, ok := s.points[id]; !ok {
		return nil
	}
	delete(s.points, id)
	removed := []EntityRef{Ref(KindPoint, id)}

	removed = cascade(s.lines, KindLine, id, removed)
	removed = cascade(s.splines, KindSpline, id, removed)
	removed = cascade(s.bisectors, KindBisector, id, removed)
	removed = cascade(s.arcs, KindArc, id, removed)
	removed = cascade(s.alongLines, KindAlongLine, id, removed)
	return removed
}

func cascade[T Entity](m map[ID]T, kind Kind, point ID, removed []EntityRef) []EntityRef {
	for _, eid := range slices.Sorted(maps.Keys(m)) {
		if slices.Contains(m[eid].PointRefs(), point) {
			delete(m, eid)
			removed = append(removed, Ref(kind, eid))
		}
	}
	return removed
}

// Delete removes the entity named by ref, cascading when it is a point.
func (s *Sketch) Delete(ref EntityRef) []EntityRef {
	if ref.Kind == KindPoint {
		return s.DeletePoint(ref.ID)
	}
	if s.DeleteEntity(ref.Kind, ref.ID) {
		return []EntityRef{ref}
	}
	return nil
}

func (s *Sketch) Points() []Point         { return sorted(s.points) }
func (s *Sketch) Lines() []Line           { return sorted(s.lines) }
func (s *Sketch) Splines() []Spline       { return sorted(s.splines) }
func (s *Sketch) Bisectors() []Bisector   { return sorted(s.bisectors) }
func (s *Sketch) Arcs() []Arc             { return sorted(s.arcs) }
func (s *Sketch) AlongLines() []AlongLine { return sorted(s.alongLines) }
func (s *Sketch) Contours() []Contour     { return sorted(s.contours) }
func (s *Sketch) Mirrors() []Mirror       { return sorted(s.mirrors) }

func sorted[T Entity](m map[ID]T) []T {
	out := make([]T, 0, len(m))
	for _, id := range slices.Sorted(maps.Keys(m)) {
		out = append(out, m[id])
	}
	return out
}

// Len returns the total number of entities of every kind.
func (s *Sketch) Len() int {
	return len(s.points) + len(s.lines) + len(s.splines) + len(s.bisectors) +
		len(s.arcs) + len(s.alongLines) + len(s.contours) + len(s.mirrors)
}

// Clone returns a deep copy suitable for a read-only snapshot.
func (s *Sketch) Clone() *Sketch {
	c := &Sketch{
		points:     maps.Clone(s.points),
		lines:      maps.Clone(s.lines),
		splines:    maps.Clone(s.splines),
		bisectors:  maps.Clone(s.bisectors),
		arcs:       maps.Clone(s.arcs),
		alongLines: maps.Clone(s.alongLines),
		contours:   make(map[ID]Contour, len(s.contours)),
		mirrors:    make(map[ID]Mirror, len(s.mirrors)),
		nextID:     s.nextID,
	}
	for id, e := range s.contours {
		e.Entities = cloneRefs(e.Entities)
		c.contours[id] = e
	}
	for id, e := range s.mirrors {
		e.Sources = cloneRefs(e.Sources)
		c.mirrors[id] = e
	}
	return c
}

// cloneRefs copies refs into a non-nil slice so empty lists persist as [].
func cloneRefs(refs []EntityRef) []EntityRef {
	return append(make([]EntityRef, 0, len(refs)), refs...)
}

// Replace swaps the whole entity graph for other's, including the id
// counter. other must not be used afterwards.
func (s *Sketch) Replace(other *Sketch) {
	*s = *other
}
