package ws

import (
	"github.com/IshaanShokeen/Collaborative-Canvas/internal/board"
	"github.com/IshaanShokeen/Collaborative-Canvas/internal/room"
)

// Inbound message types.
const (
	MsgJoin         = "join"
	MsgStrokeStart  = "stroke:start"
	MsgStrokeUpdate = "stroke:update"
	MsgStrokeEnd    = "stroke:end"
	MsgCursorMove   = "cursor:move"
)

// ClientMessage is the envelope for everything a connection sends. Type
// selects the variant; the gateway validates the fields that variant
// requires before touching any room state.
type ClientMessage struct {
	Type string `json:"type"`

	// join
	RoomID string `json:"roomId,omitempty"`
	Name   string `json:"name,omitempty"`

	// stroke:start
	TempID     string       `json:"tempId,omitempty"`
	StartPoint *board.Point `json:"startPoint,omitempty"`
	Color      string       `json:"color,omitempty"`
	Width      float64      `json:"width,omitempty"`

	// stroke:update / stroke:end
	OpID   string        `json:"opId,omitempty"`
	Points []board.Point `json:"points,omitempty"`

	// cursor:move
	X float64 `json:"x,omitempty"`
	Y float64 `json:"y,omitempty"`
}

// OutboundMessage is anything the gateway can queue on a connection.
type OutboundMessage interface {
	MessageType() string
}

// InitMessage is the full-state snapshot sent to a joining connection
// only: the room's complete op log, the joiner's assigned identity, and
// the user list as of the moment before the joiner was registered.
type InitMessage struct {
	Type   string            `json:"type"` // "init"
	RoomID string            `json:"roomId"`
	UserID string            `json:"userId"`
	Color  string            `json:"color"`
	Name   string            `json:"name"`
	OpLog  []board.Operation `json:"opLog"`
	Users  []room.User       `json:"users"`
}

// UsersUpdateMessage announces the room's current presence set to every
// member, including whoever caused the change.
type UsersUpdateMessage struct {
	Type  string      `json:"type"` // "users:update"
	Users []room.User `json:"users"`
}

// OpAckMessage correlates a client's provisional tempId with the
// authoritative server id and seq; sent to the stroke's creator only.
type OpAckMessage struct {
	Type   string `json:"type"` // "op:ack"
	TempID string `json:"tempId"`
	OpID   string `json:"opId"`
	Seq    uint64 `json:"seq"`
}

// RemoteStartMessage carries a newly created operation to every room
// member except its creator, who already rendered it optimistically.
type RemoteStartMessage struct {
	Type string          `json:"type"` // "stroke:remoteStart"
	Op   board.Operation `json:"op"`
}

// RemoteUpdateMessage carries appended points to every other member,
// tagged with the seq the append was assigned.
type RemoteUpdateMessage struct {
	Type   string        `json:"type"` // "stroke:remoteUpdate"
	OpID   string        `json:"opId"`
	Points []board.Point `json:"points"`
	Seq    uint64        `json:"seq"`
}

// RemoteEndMessage carries the authoritative finalized operation to the
// whole room, sender included: the sender reconciles by real id here.
type RemoteEndMessage struct {
	Type string          `json:"type"` // "stroke:remoteEnd"
	Op   board.Operation `json:"op"`
}

// CursorUpdateMessage is ephemeral: no log entry, no seq.
type CursorUpdateMessage struct {
	Type   string  `json:"type"` // "cursor:update"
	UserID string  `json:"userId"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Name   string  `json:"name"`
	Color  string  `json:"color"`
}

// ErrorMessage reports a protocol violation to the offending connection
// only; it never disturbs other members or the dispatcher.
type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Content string `json:"content"`
}

func (m InitMessage) MessageType() string         { return m.Type }
func (m UsersUpdateMessage) MessageType() string  { return m.Type }
func (m OpAckMessage) MessageType() string        { return m.Type }
func (m RemoteStartMessage) MessageType() string  { return m.Type }
func (m RemoteUpdateMessage) MessageType() string { return m.Type }
func (m RemoteEndMessage) MessageType() string    { return m.Type }
func (m CursorUpdateMessage) MessageType() string { return m.Type }
func (m ErrorMessage) MessageType() string        { return m.Type }
