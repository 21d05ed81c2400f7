package collab

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/draftcore/draftcore/backend-go/internal/document"
	"github.com/draftcore/draftcore/backend-go/internal/engine"
)

// Saver persists a room's sketch as a new snapshot version.
type Saver func(ctx context.Context, projectID string, sketch *document.Sketch) (int, error)

// Room is one shared sketch and the clients editing it. Every client drives
// its own engine over the room's sketch, so tool chains and selections are
// private while entities are shared.
type Room struct {
	projectID string
	sketch    *document.Sketch
	version   int
	seq       int64
	persist   bool
	dirty     bool
	clients   map[string]*Client // clientID -> client
	presence  *PresenceManager
}

func newRoom(projectID string, sketch *document.Sketch, version int, persist bool) *Room {
	return &Room{
		projectID: projectID,
		sketch:    sketch,
		version:   version,
		persist:   persist,
		clients:   make(map[string]*Client),
		presence:  NewPresenceManager(),
	}
}

// join is a registration carrying the sketch loaded for the project, used
// only when the room does not exist yet.
type join struct {
	client  *Client
	sketch  *document.Sketch
	version int
	persist bool
}

type inbound struct {
	client *Client
	msg    *Message // nil when the client left
}

type replacement struct {
	projectID string
	sketch    *document.Sketch
	version   int
}

// Hub owns every room. All room state, engines included, is touched only by
// the goroutine running Run.
type Hub struct {
	rooms    map[string]*Room // projectID -> room
	register chan join
	inbound  chan inbound
	replace  chan replacement
	stop     chan chan struct{}
	done     chan struct{} // closed when Run returns
	stopOnce sync.Once
	opts     engine.Options
	save     Saver
	interval time.Duration
	logger   *slog.Logger
}

// NewHub creates a hub whose sessions use opts and whose persistent rooms
// are saved through save every interval while dirty.
func NewHub(opts engine.Options, save Saver, interval time.Duration) *Hub {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		rooms:    make(map[string]*Room),
		register: make(chan join),
		inbound:  make(chan inbound, 256),
		replace:  make(chan replacement),
		stop:     make(chan chan struct{}),
		done:     make(chan struct{}),
		opts:     opts,
		save:     save,
		interval: interval,
		logger:   logger,
	}
}

func (h *Hub) Run() {
	interval := h.interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case j := <-h.register:
			h.addClient(j)
		case in := <-h.inbound:
			h.dispatch(in)
		case r := <-h.replace:
			h.replaceSketch(r)
		case <-ticker.C:
			h.saveDirty()
		case done := <-h.stop:
			h.drainInbound()
			h.saveDirty()
			close(h.done)
			close(done)
			return
		}
	}
}

// drainInbound applies messages already queued when the hub stops.
func (h *Hub) drainInbound() {
	for {
		select {
		case in := <-h.inbound:
			h.dispatch(in)
		default:
			return
		}
	}
}

// Stop saves every dirty room and ends Run.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		done := make(chan struct{})
		select {
		case h.stop <- done:
			<-done
		case <-h.done:
		}
	})
}

// Register adds a client. sketch and version seed the room when the client
// is the first to join; persist marks rooms that are autosaved.
// It reports false once the hub has stopped.
func (h *Hub) Register(client *Client, sketch *document.Sketch, version int, persist bool) bool {
	select {
	case h.register <- join{client: client, sketch: sketch, version: version, persist: persist}:
		return true
	case <-h.done:
		return false
	}
}

// SketchReplaced swaps a live room's sketch after an import over HTTP.
func (h *Hub) SketchReplaced(projectID string, sketch *document.Sketch, version int) {
	select {
	case h.replace <- replacement{projectID: projectID, sketch: sketch, version: version}:
	case <-h.done:
	}
}

// leave queues behind the client's pending messages so they apply first.
func (h *Hub) leave(client *Client) {
	select {
	case h.inbound <- inbound{client: client}:
	case <-h.done:
	}
}

func (h *Hub) dispatch(in inbound) {
	if in.msg == nil {
		h.removeClient(in.client)
		return
	}
	h.handleMessage(in.client, in.msg)
}

func (h *Hub) addClient(j join) {
	client := j.client
	room, ok := h.rooms[client.ProjectID]
	if !ok {
		sketch := j.sketch
		if sketch == nil {
			sketch = document.NewSketch()
		}
		room = newRoom(client.ProjectID, sketch, j.version, j.persist)
		h.rooms[client.ProjectID] = room
	}
	client.engine = engine.New(room.sketch, h.opts)
	room.clients[client.ClientID] = client

	h.sendTo(client, TypeWelcome, WelcomePayload{
		ClientID: client.ClientID,
		UserID:   client.UserID,
		Tools:    toolNames(),
	})
	h.sendState(room, client, nil)
	if stateMsg := room.presence.StateMessage(); stateMsg != nil {
		client.Send(stateMsg)
	}

	h.broadcast(room, TypePresenceJoin, PresenceJoinPayload{
		UserID:      client.UserID,
		DisplayName: client.DisplayName,
	}, client.UserID, client.ClientID)

	h.logger.Info("client joined", "user", client.UserID, "project", client.ProjectID, "clients", len(room.clients))
}

func (h *Hub) removeClient(client *Client) {
	room, ok := h.rooms[client.ProjectID]
	if !ok {
		return
	}
	if _, ok := room.clients[client.ClientID]; !ok {
		return
	}

	delete(room.clients, client.ClientID)
	close(client.send)
	room.presence.Remove(client.ClientID)

	if len(room.clients) == 0 {
		h.saveRoom(room)
		delete(h.rooms, client.ProjectID)
	} else {
		h.broadcast(room, TypePresenceLeave, PresenceLeavePayload{UserID: client.UserID}, client.UserID, "")
	}

	h.logger.Info("client left", "user", client.UserID, "project", client.ProjectID)
}

func (h *Hub) replaceSketch(r replacement) {
	room, ok := h.rooms[r.projectID]
	if !ok {
		return
	}
	room.sketch.Replace(r.sketch)
	room.version = r.version
	room.dirty = false
	room.seq++
	for _, c := range room.clients {
		c.engine.Replace(room.sketch)
	}
	h.broadcastState(room, nil)
	h.logger.Info("sketch replaced", "project", r.projectID, "version", r.version)
}

func (h *Hub) saveDirty() {
	for _, room := range h.rooms {
		h.saveRoom(room)
	}
}

func (h *Hub) saveRoom(room *Room) {
	if !room.persist || !room.dirty || h.save == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	version, err := h.save(ctx, room.projectID, room.sketch.Clone())
	if err != nil {
		h.logger.Error("autosave failed", "project", room.projectID, "error", err)
		return
	}
	room.version = version
	room.dirty = false
	h.logger.Info("autosaved sketch", "project", room.projectID, "version", version)
}

// sendState sends a client its own snapshot of the room.
func (h *Hub) sendState(room *Room, c *Client, eff *engine.Effect) {
	msg, err := newMessage(TypeSketchState, SketchStatePayload{Snapshot: c.engine.Snapshot(), Effect: eff})
	if err != nil {
		h.logger.Error("marshal sketch state", "error", err)
		return
	}
	msg.ProjectID = room.projectID
	msg.Seq = room.seq
	c.Send(msg)
}

// broadcastState sends every client in the room its refreshed snapshot.
func (h *Hub) broadcastState(room *Room, eff *engine.Effect) {
	for _, c := range room.clients {
		h.sendState(room, c, eff)
	}
}

func (h *Hub) sendTo(c *Client, typ string, payload any) {
	msg, err := newMessage(typ, payload)
	if err != nil {
		h.logger.Error("marshal message", "type", typ, "error", err)
		return
	}
	c.Send(msg)
}

func (h *Hub) broadcast(room *Room, typ string, payload any, fromUser, excludeClientID string) {
	msg, err := newMessage(typ, payload)
	if err != nil {
		h.logger.Error("marshal message", "type", typ, "error", err)
		return
	}
	msg.UserID = fromUser
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal message", "type", typ, "error", err)
		return
	}
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			c.enqueue(data, typ)
		}
	}
}

func toolNames() []string {
	var names []string
	for t := engine.ToolPoint; t <= engine.ToolContour; t++ {
		names = append(names, t.String())
	}
	return names
}
