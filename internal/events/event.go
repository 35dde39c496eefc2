package events

import "time"

// Event types published to the drawing-events topic.
const (
	EventOpCreated   = "OP_CREATED"
	EventOpFinalized = "OP_FINALIZED"
	EventOpHidden    = "OP_HIDDEN"
	EventOpShown     = "OP_SHOWN"
)

// DrawEvent is the record published to Kafka after a drawing mutation has
// been applied to a room's log. Messages are keyed by RoomID so one room's
// events stay in one partition, preserving seq order for consumers.
type DrawEvent struct {
	EventType string    `json:"eventType"`
	RoomID    string    `json:"roomId"`
	OpID      string    `json:"opId"`
	Seq       uint64    `json:"seq"`
	UserID    string    `json:"userId,omitempty"`
	TempID    string    `json:"tempId,omitempty"`
	AppliedAt time.Time `json:"appliedAt"`
}
