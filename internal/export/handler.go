package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/draftcore/draftcore/backend-go/internal/auth"
	"github.com/draftcore/draftcore/backend-go/internal/document"
	"github.com/draftcore/draftcore/backend-go/internal/engine"
	"github.com/draftcore/draftcore/backend-go/internal/project"
	"github.com/draftcore/draftcore/backend-go/internal/viewport"
)

const defaultWidth = 1024

// Loader returns the current sketch of a project on behalf of a user.
type Loader func(ctx context.Context, projectID, userID string) (*document.Sketch, error)

type Handler struct {
	load      Loader
	viewBox   viewport.ViewBox
	maxPixels int
}

func NewHandler(load Loader, fallback viewport.ViewBox, maxPixels int) *Handler {
	return &Handler{load: load, viewBox: fallback, maxPixels: maxPixels}
}

func (h *Handler) scene(w http.ResponseWriter, r *http.Request) (*engine.SceneGraph, viewport.ViewBox, bool) {
	userID := auth.UserIDFromContext(r.Context())
	projectID := mux.Vars(r)["projectId"]

	sketch, err := h.load(r.Context(), projectID, userID)
	if err != nil {
		switch {
		case errors.Is(err, project.ErrNotFound):
			http.Error(w, "not found", http.StatusNotFound)
		case errors.Is(err, project.ErrNotMember):
			http.Error(w, "not a project member", http.StatusForbidden)
		default:
			slog.Error("load sketch for export", "project", projectID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return nil, viewport.ViewBox{}, false
	}

	sg := engine.BuildScene(sketch, nil)
	return sg, Frame(sg, h.viewBox), true
}

// ExportSVG handles GET /api/projects/{projectId}/export.svg.
func (h *Handler) ExportSVG(w http.ResponseWriter, r *http.Request) {
	sg, vb, ok := h.scene(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := SVG(&buf, sg, vb); err != nil {
		slog.Error("export svg", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Content-Disposition", `attachment; filename="sketch.svg"`)
	w.Write(buf.Bytes())
}

// ExportPNG handles GET /api/projects/{projectId}/export.png?width=&height=.
// A missing dimension follows the drawing's aspect ratio.
func (h *Handler) ExportPNG(w http.ResponseWriter, r *http.Request) {
	width, height, err := parseSize(r, h.maxPixels)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sg, vb, ok := h.scene(w, r)
	if !ok {
		return
	}
	width, height = fitSize(width, height, vb)
	if width*height > h.maxPixels {
		http.Error(w, fmt.Sprintf("image exceeds %d pixels", h.maxPixels), http.StatusBadRequest)
		return
	}

	var buf bytes.Buffer
	if err := PNG(&buf, sg, vb, width, height); err != nil {
		slog.Error("export png", "error", err, "width", width, "height", height)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", `attachment; filename="sketch.png"`)
	w.Write(buf.Bytes())
}

func parseSize(r *http.Request, maxPixels int) (width, height int, err error) {
	q := r.URL.Query()
	for _, p := range []struct {
		key string
		dst *int
	}{{"width", &width}, {"height", &height}} {
		v := q.Get(p.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxPixels {
			return 0, 0, fmt.Errorf("invalid %s %q", p.key, v)
		}
		*p.dst = n
	}
	return width, height, nil
}

// fitSize fills in a zero dimension from the viewbox aspect ratio.
func fitSize(width, height int, vb viewport.ViewBox) (int, int) {
	aspect := vb.Width / vb.Height
	switch {
	case width == 0 && height == 0:
		width = defaultWidth
		height = max(1, int(math.Round(float64(width)/aspect)))
	case height == 0:
		height = max(1, int(math.Round(float64(width)/aspect)))
	case width == 0:
		width = max(1, int(math.Round(float64(height)*aspect)))
	}
	return width, height
}
