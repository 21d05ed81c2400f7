package collab

import (
	"encoding/json"
	"fmt"

	"github.com/draftcore/draftcore/backend-go/internal/engine"
)

// handleMessage applies one client message to the client's engine and
// fans out the result. It runs on the hub goroutine.
func (h *Hub) handleMessage(sender *Client, msg *Message) {
	room, ok := h.rooms[sender.ProjectID]
	if !ok || room.clients[sender.ClientID] != sender {
		return
	}
	e := sender.engine

	var err error
	switch msg.Type {
	case TypePointerDown, TypePointerMove:
		var p PointerPayload
		if err = json.Unmarshal(msg.Payload, &p); err != nil {
			break
		}
		var id uint64
		if msg.Type == TypePointerDown {
			id = e.SubmitPointerDown(p.Client, p.Target)
		} else {
			id = e.SubmitPointerMove(p.Client, p.Target)
		}
		h.sendTo(sender, TypeSurfaceQuery, SurfaceQueryPayload{Request: id})
		return

	case TypeSurfaceGeometry:
		var p SurfaceGeometryPayload
		if err = json.Unmarshal(msg.Payload, &p); err != nil {
			break
		}
		eff, ok := e.ResolveSurface(p.Request, p.Surface)
		if !ok {
			return
		}
		h.applied(room, sender, eff)
		return

	case TypePointerUp:
		e.PointerUp()

	case TypeToolSet:
		var p ToolSetPayload
		if err = json.Unmarshal(msg.Payload, &p); err != nil {
			break
		}
		var t engine.Tool
		if t, err = engine.ParseTool(p.Tool); err != nil {
			break
		}
		e.SetTool(t)

	case TypeDrawModeSet:
		var p DrawModeSetPayload
		if err = json.Unmarshal(msg.Payload, &p); err != nil {
			break
		}
		if !e.SetDrawMode(p.Mode) {
			err = fmt.Errorf("unknown draw mode %q", p.Mode)
		}

	case TypeSelectionSet:
		var p SelectionSetPayload
		if err = json.Unmarshal(msg.Payload, &p); err != nil {
			break
		}
		if p.Ref == nil {
			e.ClearSelection()
		} else if !e.Select(*p.Ref) {
			err = fmt.Errorf("no entity %s", p.Ref)
		}

	case TypeSelectionFinish:
		e.FinishSelection()

	case TypeSelectionDelete:
		h.applied(room, sender, e.DeleteSelected())
		return

	case TypePresenceUpdate:
		err = h.handlePresenceUpdate(room, sender, msg)
		if err == nil {
			return
		}

	default:
		err = fmt.Errorf("unknown message type %q", msg.Type)
	}

	if err != nil {
		h.logger.Warn("rejected client message", "type", msg.Type, "user", sender.UserID, "error", err)
		h.sendTo(sender, TypeError, ErrorPayload{Message: err.Error()})
		return
	}
	h.sendState(room, sender, nil)
}

// applied reports an engine result. A change to the shared sketch bumps the
// room sequence and refreshes every client; otherwise only the sender's
// private state moved.
func (h *Hub) applied(room *Room, sender *Client, eff engine.Effect) {
	if !eff.Changed() {
		h.sendState(room, sender, nil)
		return
	}
	room.seq++
	room.dirty = true
	h.broadcastState(room, &eff)
}

// handlePresenceUpdate maps the client's cursor into logical coordinates
// with its last known surface and shares it with the room.
func (h *Hub) handlePresenceUpdate(room *Room, sender *Client, msg *Message) error {
	var presence PresencePayload
	if err := json.Unmarshal(msg.Payload, &presence); err != nil {
		return err
	}

	e := sender.engine
	if presence.Cursor != nil {
		surface, ok := e.Surface()
		if !ok {
			presence.Cursor = nil
		} else {
			p := e.Mapper().ClientToLogical(*presence.Cursor, surface)
			presence.Cursor = &p
		}
	}
	presence.DisplayName = sender.DisplayName
	presence.Tool = e.Tool().String()
	if sel, ok := e.Selection(); ok {
		presence.Selection = &sel
	} else {
		presence.Selection = nil
	}

	room.presence.Update(sender.ClientID, &presence)
	h.broadcast(room, TypePresenceUpdate, presence, sender.UserID, sender.ClientID)
	return nil
}
