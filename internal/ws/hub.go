package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/IshaanShokeen/Collaborative-Canvas/internal/board"
	"github.com/IshaanShokeen/Collaborative-Canvas/internal/cache"
	"github.com/IshaanShokeen/Collaborative-Canvas/internal/events"
	"github.com/IshaanShokeen/Collaborative-Canvas/internal/room"
)

const (
	presenceTTL = 600 * time.Second
	cursorTTL   = 30 * time.Second
)

// event is one unit of dispatcher work: an inbound protocol message, a
// disconnect, or an injected visibility toggle from the HTTP API.
type event struct {
	conn       *Conn
	msg        ClientMessage
	disconnect bool
	vis        *visibilityRequest
}

type visibilityRequest struct {
	roomID  string
	opID    string
	visible bool
	by      string
	reply   chan *board.Operation
}

// Hub owns the room -> connection sets and runs the single dispatcher
// goroutine that serializes every room-state mutation. Connections never
// touch the drawing state or the presence registry directly; they submit
// events and the dispatcher applies them one at a time, which is what
// makes seq assignment and broadcast fan-out atomic per event.
type Hub struct {
	state    *board.DrawingState
	registry *room.Manager

	// optional collaborators; nil disables them
	mirror    cache.PresenceMirror
	publisher *events.Dispatcher

	mu sync.RWMutex
	// roomID -> set of connections. A set of conns, not of user ids: one
	// user may hold several connections and fan-out is per connection.
	rooms map[string]map[*Conn]struct{}

	queue chan event
}

func NewHub(state *board.DrawingState, registry *room.Manager, mirror cache.PresenceMirror, publisher *events.Dispatcher) *Hub {
	return &Hub{
		state:     state,
		registry:  registry,
		mirror:    mirror,
		publisher: publisher,
		rooms:     make(map[string]map[*Conn]struct{}),
		queue:     make(chan event, 256),
	}
}

// dispatch submits an event to the dispatcher. Blocking keeps each
// connection's events in the order its read loop produced them.
func (h *Hub) dispatch(e event) {
	h.queue <- e
}

// Run processes events until ctx is cancelled. Exactly one Run loop may
// be active per hub.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-h.queue:
			h.handle(ctx, e)
		}
	}
}

func (h *Hub) handle(ctx context.Context, e event) {
	if e.disconnect {
		h.handleDisconnect(ctx, e.conn)
		return
	}
	if e.vis != nil {
		h.handleVisibility(ctx, e.vis)
		return
	}
	switch e.msg.Type {
	case MsgJoin:
		h.handleJoin(ctx, e.conn, e.msg)
	case MsgStrokeStart:
		h.handleStrokeStart(ctx, e.conn, e.msg)
	case MsgStrokeUpdate:
		h.handleStrokeUpdate(e.conn, e.msg)
	case MsgStrokeEnd:
		h.handleStrokeEnd(ctx, e.conn, e.msg)
	case MsgCursorMove:
		h.handleCursorMove(ctx, e.conn, e.msg)
	default:
		e.conn.enqueue(ErrorMessage{Type: "error", Content: "unknown message type"})
	}
}

func (h *Hub) handleJoin(ctx context.Context, c *Conn, msg ClientMessage) {
	if c.roomID != "" {
		c.enqueue(ErrorMessage{Type: "error", Content: "already joined"})
		return
	}
	roomID := msg.RoomID
	if roomID == "" {
		roomID = "main"
	}
	h.registry.EnsureRoom(roomID)

	name := msg.Name
	if name == "" {
		short := c.sessionID
		if len(short) > 4 {
			short = short[:4]
		}
		name = "User-" + short
	}

	c.roomID = roomID
	c.user = room.User{ID: c.sessionID, Name: name, Color: h.registry.AssignColor(roomID, c.sessionID)}
	h.join(roomID, c)

	opLog := h.state.GetRoomOps(roomID)
	if opLog == nil {
		opLog = []board.Operation{}
	}

	// The snapshot and user list go to the joiner before it appears in the
	// registry; the users:update broadcast right after includes it.
	c.enqueue(InitMessage{
		Type:   "init",
		RoomID: roomID,
		UserID: c.user.ID,
		Color:  c.user.Color,
		Name:   c.user.Name,
		OpLog:  opLog,
		Users:  h.registry.Users(roomID),
	})

	h.registry.AddUser(roomID, c.user)
	h.broadcast(roomID, UsersUpdateMessage{Type: "users:update", Users: h.registry.Users(roomID)})

	if h.mirror != nil {
		mctx, cancel := context.WithTimeout(ctx, time.Second)
		if err := h.mirror.AddMember(mctx, roomID, c.user.ID, c.user.Name, presenceTTL); err != nil {
			log.Printf("presence mirror add error (room=%s): %v", roomID, err)
		}
		cancel()
	}
}

func (h *Hub) handleStrokeStart(ctx context.Context, c *Conn, msg ClientMessage) {
	if !h.requireJoined(c) {
		return
	}
	if msg.TempID == "" || msg.StartPoint == nil {
		c.enqueue(ErrorMessage{Type: "error", Content: "malformed stroke:start"})
		return
	}

	op := h.state.CreateOp(c.roomID, board.OpData{
		Type:   board.OpStroke,
		UserID: c.user.ID,
		Color:  msg.Color,
		Width:  msg.Width,
		Points: []board.Point{*msg.StartPoint},
		TempID: msg.TempID,
	})

	c.enqueue(OpAckMessage{Type: "op:ack", TempID: msg.TempID, OpID: op.ID, Seq: op.Seq})
	h.broadcastExcept(c.roomID, c, RemoteStartMessage{Type: "stroke:remoteStart", Op: op})
	h.publish(ctx, events.DrawEvent{
		EventType: events.EventOpCreated,
		RoomID:    c.roomID,
		OpID:      op.ID,
		Seq:       op.Seq,
		UserID:    op.UserID,
		TempID:    op.TempID,
	})
}

func (h *Hub) handleStrokeUpdate(c *Conn, msg ClientMessage) {
	if !h.requireJoined(c) {
		return
	}
	if msg.OpID == "" {
		c.enqueue(ErrorMessage{Type: "error", Content: "malformed stroke:update"})
		return
	}
	if len(msg.Points) == 0 {
		return
	}
	// Unknown id: the sender may still hold its tempId, or the op is gone.
	// Either way the update is dropped without an error.
	op := h.state.AppendPoints(c.roomID, msg.OpID, msg.Points)
	if op == nil {
		return
	}
	h.broadcastExcept(c.roomID, c, RemoteUpdateMessage{
		Type:   "stroke:remoteUpdate",
		OpID:   msg.OpID,
		Points: msg.Points,
		Seq:    op.Seq,
	})
}

func (h *Hub) handleStrokeEnd(ctx context.Context, c *Conn, msg ClientMessage) {
	if !h.requireJoined(c) {
		return
	}
	if msg.OpID == "" {
		c.enqueue(ErrorMessage{Type: "error", Content: "malformed stroke:end"})
		return
	}
	op := h.state.FinalizeOp(c.roomID, msg.OpID)
	if op == nil {
		return
	}
	// Unlike start/update, the sender gets this too: it reconciles its
	// local stroke against the authoritative finalized record.
	h.broadcast(c.roomID, RemoteEndMessage{Type: "stroke:remoteEnd", Op: *op})
	h.publish(ctx, events.DrawEvent{
		EventType: events.EventOpFinalized,
		RoomID:    c.roomID,
		OpID:      op.ID,
		Seq:       op.Seq,
		UserID:    op.UserID,
	})
}

type cursorPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (h *Hub) handleCursorMove(ctx context.Context, c *Conn, msg ClientMessage) {
	if !h.requireJoined(c) {
		return
	}
	h.broadcastExcept(c.roomID, c, CursorUpdateMessage{
		Type:   "cursor:update",
		UserID: c.user.ID,
		X:      msg.X,
		Y:      msg.Y,
		Name:   c.user.Name,
		Color:  c.user.Color,
	})

	if h.mirror != nil {
		b, err := json.Marshal(cursorPos{X: msg.X, Y: msg.Y})
		if err != nil {
			return
		}
		mctx, cancel := context.WithTimeout(ctx, time.Second)
		if err := h.mirror.SetCursor(mctx, c.roomID, c.user.ID, b, cursorTTL); err != nil {
			log.Printf("presence mirror cursor error (room=%s): %v", c.roomID, err)
		}
		cancel()
	}
}

func (h *Hub) handleDisconnect(ctx context.Context, c *Conn) {
	if c.roomID != "" {
		h.leave(c.roomID, c)
		h.registry.RemoveUser(c.roomID, c.user.ID)
		h.broadcast(c.roomID, UsersUpdateMessage{Type: "users:update", Users: h.registry.Users(c.roomID)})

		if h.mirror != nil {
			mctx, cancel := context.WithTimeout(ctx, time.Second)
			if err := h.mirror.RemoveMember(mctx, c.roomID, c.user.ID); err != nil {
				log.Printf("presence mirror remove error (room=%s): %v", c.roomID, err)
			}
			cancel()
		}
	}
	// A stroke the user never finished stays unfinalized in the log; its
	// ownership does not change.
	close(c.send)
}

func (h *Hub) handleVisibility(ctx context.Context, v *visibilityRequest) {
	meta := h.state.ToggleVisibility(v.roomID, v.opID, v.visible, v.by)
	if meta != nil {
		eventType := events.EventOpHidden
		if v.visible {
			eventType = events.EventOpShown
		}
		h.publish(ctx, events.DrawEvent{
			EventType: eventType,
			RoomID:    v.roomID,
			OpID:      v.opID,
			Seq:       meta.Seq,
			UserID:    v.by,
		})
	}
	v.reply <- meta
}

// ToggleVisibility injects a visibility change through the dispatcher so
// it serializes with protocol events, and waits for the resulting meta op
// (nil when the target id is unknown).
func (h *Hub) ToggleVisibility(ctx context.Context, roomID, opID string, visible bool, by string) (*board.Operation, error) {
	req := &visibilityRequest{roomID: roomID, opID: opID, visible: visible, by: by, reply: make(chan *board.Operation, 1)}
	select {
	case h.queue <- event{vis: req}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case meta := <-req.reply:
		return meta, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Hub) requireJoined(c *Conn) bool {
	if c.roomID == "" {
		c.enqueue(ErrorMessage{Type: "error", Content: "join required"})
		return false
	}
	return true
}

func (h *Hub) publish(ctx context.Context, evt events.DrawEvent) {
	if h.publisher == nil {
		return
	}
	evt.AppliedAt = time.Now()
	pctx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	if err := h.publisher.Enqueue(pctx, evt); err != nil {
		log.Printf("drop draw event room=%s op=%s: %v", evt.RoomID, evt.OpID, err)
	}
}

func (h *Hub) join(roomID string, c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Conn]struct{})
	}
	h.rooms[roomID][c] = struct{}{}
}

func (h *Hub) leave(roomID string, c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[roomID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

func (h *Hub) broadcast(roomID string, msg OutboundMessage) {
	h.mu.RLock()
	conns := h.rooms[roomID]
	h.mu.RUnlock()
	for c := range conns {
		c.enqueue(msg)
	}
}

func (h *Hub) broadcastExcept(roomID string, except *Conn, msg OutboundMessage) {
	h.mu.RLock()
	conns := h.rooms[roomID]
	h.mu.RUnlock()
	for c := range conns {
		if c == except {
			continue
		}
		c.enqueue(msg)
	}
}
