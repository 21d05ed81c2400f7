package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrMalformed is returned when a project file is missing keys or fields,
// has the wrong shape, or contains duplicate ids.
var ErrMalformed = errors.New("malformed project file")

// File is the persisted project layout.
type File struct {
	Points     []Point     `json:"points"`
	Lines      []Line      `json:"lines"`
	Splines    []Spline    `json:"splines"`
	Bisectors  []Bisector  `json:"bisectors"`
	AlongLines []AlongLine `json:"along_lines"`
	Arcs       []Arc       `json:"arcs"`
	Contours   []Contour   `json:"contours"`
	Mirrors    []Mirror    `json:"mirrors"`
	NextID     ID          `json:"next_id"`
}

type collection struct {
	key    string
	kind   Kind
	fields []string
}

var identityFields = []string{"id", "name", "kind", "draw_mode"}

var collections = []collection{
	{"points", KindPoint, []string{"x", "y"}},
	{"lines", KindLine, []string{"start", "end"}},
	{"splines", KindSpline, []string{"p1", "p2", "p3", "p4"}},
	{"bisectors", KindBisector, []string{"p1", "vertex", "p3", "length"}},
	{"along_lines", KindAlongLine, []string{"p1", "p2", "distance"}},
	{"arcs", KindArc, []string{"center", "radius", "start_angle", "end_angle"}},
	{"contours", KindContour, []string{"entities"}},
	{"mirrors", KindMirror, []string{"sources", "axis_p1", "axis_p2"}},
}

// ToFile converts the sketch into its persisted layout, each collection
// ordered by id.
func ToFile(s *Sketch) File {
	return File{
		Points:     s.Points(),
		Lines:      s.Lines(),
		Splines:    s.Splines(),
		Bisectors:  s.Bisectors(),
		AlongLines: s.AlongLines(),
		Arcs:       s.Arcs(),
		Contours:   s.Contours(),
		Mirrors:    s.Mirrors(),
		NextID:     s.NextID(),
	}
}

// Encode serializes the sketch to the project JSON format.
func Encode(s *Sketch) ([]byte, error) {
	data, err := json.MarshalIndent(ToFile(s), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal sketch: %w", err)
	}
	return data, nil
}

// Decode parses a project file into a new sketch. It fails as a whole on
// any missing key or field; references between entities are not checked.
// The id counter resumes at next_id, or past the largest id in the file if
// next_id would reissue one.
func Decode(data []byte) (*Sketch, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if top == nil {
		return nil, fmt.Errorf("%w: not an object", ErrMalformed)
	}

	s := NewSketch()
	seen := make(map[ID]Kind)

	for _, c := range collections {
		raw, ok := top[c.key]
		if !ok || isNull(raw) {
			return nil, fmt.Errorf("%w: missing %q", ErrMalformed, c.key)
		}
		var err error
		switch c.kind {
		case KindPoint:
			err = decodeCollection(raw, c, seen, s.points)
		case KindLine:
			err = decodeCollection(raw, c, seen, s.lines)
		case KindSpline:
			err = decodeCollection(raw, c, seen, s.splines)
		case KindBisector:
			err = decodeCollection(raw, c, seen, s.bisectors)
		case KindAlongLine:
			err = decodeCollection(raw, c, seen, s.alongLines)
		case KindArc:
			err = decodeCollection(raw, c, seen, s.arcs)
		case KindContour:
			err = decodeCollection(raw, c, seen, s.contours)
		case KindMirror:
			err = decodeCollection(raw, c, seen, s.mirrors)
		}
		if err != nil {
			return nil, err
		}
	}

	for _, c := range s.contours {
		if err := checkRefs(c.Entities); err != nil {
			return nil, fmt.Errorf("%w: contours[%d]: %v", ErrMalformed, c.ID, err)
		}
	}
	for _, m := range s.mirrors {
		if err := checkRefs(m.Sources); err != nil {
			return nil, fmt.Errorf("%w: mirrors[%d]: %v", ErrMalformed, m.ID, err)
		}
	}

	rawNext, ok := top["next_id"]
	if !ok || isNull(rawNext) {
		return nil, fmt.Errorf("%w: missing %q", ErrMalformed, "next_id")
	}
	var next ID
	if err := json.Unmarshal(rawNext, &next); err != nil {
		return nil, fmt.Errorf("%w: next_id: %v", ErrMalformed, err)
	}
	for id := range seen {
		if id >= next {
			next = id + 1
		}
	}
	if next < 1 {
		next = 1
	}
	s.nextID = next

	return s, nil
}

func decodeCollection[T Entity](raw json.RawMessage, c collection, seen map[ID]Kind, dst map[ID]T) error {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, c.key, err)
	}

	for i, item := range items {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(item, &fields); err != nil || fields == nil {
			return fmt.Errorf("%w: %s[%d]: not an object", ErrMalformed, c.key, i)
		}
		for _, group := range [][]string{identityFields, c.fields} {
			for _, f := range group {
				v, ok := fields[f]
				if !ok || isNull(v) {
					return fmt.Errorf("%w: %s[%d]: missing %q", ErrMalformed, c.key, i, f)
				}
			}
		}

		var e T
		if err := json.Unmarshal(item, &e); err != nil {
			return fmt.Errorf("%w: %s[%d]: %v", ErrMalformed, c.key, i, err)
		}
		ident := e.Ident()
		switch {
		case ident.Kind != c.kind:
			return fmt.Errorf("%w: %s[%d]: kind %q", ErrMalformed, c.key, i, ident.Kind)
		case !ident.DrawMode.Valid():
			return fmt.Errorf("%w: %s[%d]: draw mode %q", ErrMalformed, c.key, i, ident.DrawMode)
		case ident.ID < 1:
			return fmt.Errorf("%w: %s[%d]: id %d", ErrMalformed, c.key, i, ident.ID)
		}
		if prev, dup := seen[ident.ID]; dup {
			return fmt.Errorf("%w: id %d used by %s and %s", ErrMalformed, ident.ID, prev, c.kind)
		}
		seen[ident.ID] = c.kind
		dst[ident.ID] = e
	}
	return nil
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

func checkRefs(refs []EntityRef) error {
	for _, r := range refs {
		if !r.Kind.Referenceable() {
			return fmt.Errorf("ref kind %q", r.Kind)
		}
	}
	return nil
}

// LoadFile reads and decodes a project file from path.
func LoadFile(path string) (*Sketch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read project: %w", err)
	}
	return Decode(data)
}

// SaveFile encodes the sketch and writes it to path.
func SaveFile(path string, s *Sketch) error {
	data, err := Encode(s)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write project: %w", err)
	}
	return nil
}
