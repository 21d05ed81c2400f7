package collab

import (
	"encoding/json"

	"github.com/draftcore/draftcore/backend-go/internal/document"
	"github.com/draftcore/draftcore/backend-go/internal/engine"
	"github.com/draftcore/draftcore/backend-go/internal/geometry"
	"github.com/draftcore/draftcore/backend-go/internal/viewport"
)

type Message struct {
	Type      string          `json:"type"`
	ProjectID string          `json:"projectId,omitempty"`
	ClientID  string          `json:"clientId,omitempty"`
	UserID    string          `json:"userId,omitempty"`
	Seq       int64           `json:"seq,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

const (
	// Client to server
	TypePointerDown     = "pointer.down"
	TypePointerMove     = "pointer.move"
	TypePointerUp       = "pointer.up"
	TypeSurfaceGeometry = "surface.geometry"
	TypeToolSet         = "tool.set"
	TypeDrawModeSet     = "drawmode.set"
	TypeSelectionSet    = "selection.set"
	TypeSelectionFinish = "selection.finish"
	TypeSelectionDelete = "selection.delete"

	// Server to client
	TypeWelcome      = "welcome"
	TypeSurfaceQuery = "surface.query"
	TypeSketchState  = "sketch.state"
	TypeError        = "error"

	// Both directions
	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceJoin   = "presence.join"
	TypePresenceLeave  = "presence.leave"
)

// PointerPayload carries a pointer position in client (page) coordinates
// and the entity the client reports under it.
type PointerPayload struct {
	Client geometry.Point      `json:"client"`
	Target *document.EntityRef `json:"target,omitempty"`
}

// SurfaceQueryPayload asks the client for the drawing surface's on-screen
// rectangle, echoed back with the same request id.
type SurfaceQueryPayload struct {
	Request uint64 `json:"request"`
}

type SurfaceGeometryPayload struct {
	Request uint64           `json:"request"`
	Surface viewport.Surface `json:"surface"`
}

type ToolSetPayload struct {
	Tool string `json:"tool"`
}

type DrawModeSetPayload struct {
	Mode document.DrawMode `json:"mode"`
}

type SelectionSetPayload struct {
	Ref *document.EntityRef `json:"ref"`
}

type WelcomePayload struct {
	ClientID string   `json:"clientId"`
	UserID   string   `json:"userId"`
	Tools    []string `json:"tools"`
}

// SketchStatePayload is the client's private view of the shared sketch.
type SketchStatePayload struct {
	engine.Snapshot
	Effect *engine.Effect `json:"effect,omitempty"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type PresencePayload struct {
	Cursor      *geometry.Point     `json:"cursor,omitempty"`
	Selection   *document.EntityRef `json:"selection,omitempty"`
	Tool        string              `json:"tool,omitempty"`
	DisplayName string              `json:"displayName,omitempty"`
}

type PresenceStatePayload struct {
	Presences map[string]*PresencePayload `json:"presences"`
}

type PresenceJoinPayload struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type PresenceLeavePayload struct {
	UserID string `json:"userId"`
}

func newMessage(typ string, payload any) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{Type: typ, Payload: data}, nil
}
