package collab

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/draftcore/draftcore/backend-go/internal/auth"
	"github.com/draftcore/draftcore/backend-go/internal/document"
	"github.com/draftcore/draftcore/backend-go/internal/project"
	"github.com/draftcore/draftcore/backend-go/internal/typeid"
)

type Authenticator interface {
	ValidateToken(token string) (string, error)
	GetUser(ctx context.Context, userID string) (*auth.User, error)
}

type ProjectStore interface {
	CheckMembership(ctx context.Context, projectID, userID string) error
	LoadSketch(ctx context.Context, projectID string) (*project.SketchVersion, error)
}

// Handler upgrades /ws/project/{projectId} requests into hub clients.
type Handler struct {
	hub            *Hub
	auth           Authenticator
	projects       ProjectStore
	originPatterns []string
}

func NewHandler(hub *Hub, authn Authenticator, projects ProjectStore, originPatterns []string) *Handler {
	return &Handler{hub: hub, auth: authn, projects: projects, originPatterns: originPatterns}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["projectId"]

	var (
		userID      string
		displayName string
		sketch      *document.Sketch
		version     int
		persist     bool
	)

	if projectID == typeid.PlaygroundProjectID {
		userID = "anon-" + uuid.New().String()[:8]
		displayName = "Anonymous"
		sketch = document.NewSampleSketch()
	} else {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		var err error
		userID, err = h.auth.ValidateToken(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		if err := h.projects.CheckMembership(r.Context(), projectID, userID); err != nil {
			if errors.Is(err, project.ErrNotMember) {
				http.Error(w, "not a project member", http.StatusForbidden)
				return
			}
			slog.Error("check membership", "error", err, "project", projectID)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		user, err := h.auth.GetUser(r.Context(), userID)
		if err != nil {
			http.Error(w, "user not found", http.StatusInternalServerError)
			return
		}
		displayName = user.DisplayName

		sv, err := h.projects.LoadSketch(r.Context(), projectID)
		switch {
		case errors.Is(err, project.ErrNotFound):
			sketch = document.NewSketch()
		case err != nil:
			slog.Error("load sketch", "error", err, "project", projectID)
			http.Error(w, "could not load sketch", http.StatusInternalServerError)
			return
		default:
			sketch, version = sv.Sketch, sv.Version
		}
		persist = true
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	client := NewClient(h.hub, conn, userID, displayName, projectID, uuid.New().String())
	if !h.hub.Register(client, sketch, version, persist) {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}

	client.Serve(r.Context())
}
