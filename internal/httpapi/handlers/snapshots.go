package handlers

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/IshaanShokeen/Collaborative-Canvas/internal/board"
	"github.com/IshaanShokeen/Collaborative-Canvas/internal/events"
	"github.com/IshaanShokeen/Collaborative-Canvas/internal/store"
	"github.com/IshaanShokeen/Collaborative-Canvas/internal/ws"
)

// SnapshotHandlers exposes the board's REST surface: reading a room's op
// log, capturing/loading persisted snapshots, and toggling an operation's
// visibility through the gateway dispatcher.
type SnapshotHandlers struct {
	state *board.DrawingState
	hub   *ws.Hub
	// optional; nil disables persistence endpoints
	snapshots *store.SnapshotStore
	sem       *events.SemaphoreControl
}

func NewSnapshotHandlers(state *board.DrawingState, hub *ws.Hub, snapshots *store.SnapshotStore, sem *events.SemaphoreControl) *SnapshotHandlers {
	return &SnapshotHandlers{state: state, hub: hub, snapshots: snapshots, sem: sem}
}

// RoomOps returns the room's live operation log in insertion order.
func (h *SnapshotHandlers) RoomOps(c *gin.Context) {
	roomID := c.Param("roomID")
	ops := h.state.GetRoomOps(roomID)
	if ops == nil {
		ops = []board.Operation{}
	}
	c.JSON(200, gin.H{"roomId": roomID, "ops": ops})
}

// SaveSnapshot captures the room's current log into MySQL. The stored seq
// is the highest seq in the capture, so replaying a snapshot and then the
// later events reconstructs the same state.
func (h *SnapshotHandlers) SaveSnapshot(c *gin.Context) {
	if h.snapshots == nil {
		c.JSON(503, gin.H{"error": "snapshot store not configured"})
		return
	}
	roomID := c.Param("roomID")
	ops := h.state.GetRoomOps(roomID)
	if len(ops) == 0 {
		c.JSON(404, gin.H{"error": "room has no operations"})
		return
	}

	var maxSeq uint64
	for _, op := range ops {
		if op.Seq > maxSeq {
			maxSeq = op.Seq
		}
	}
	b, err := json.Marshal(ops)
	if err != nil {
		c.JSON(500, gin.H{"error": "encode snapshot failed"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()
	if h.sem != nil {
		if err := h.sem.Acquire(ctx); err != nil {
			c.JSON(503, gin.H{"error": "snapshot writers saturated"})
			return
		}
		defer h.sem.Release()
	}
	if err := h.snapshots.SaveBoardSnapshot(ctx, roomID, maxSeq, string(b)); err != nil {
		log.Printf("save snapshot error (room=%s seq=%d): %v", roomID, maxSeq, err)
		c.JSON(500, gin.H{"error": "save snapshot failed"})
		return
	}
	c.JSON(200, gin.H{"roomId": roomID, "seq": maxSeq, "ops": len(ops)})
}

// LatestSnapshot returns the most recent persisted capture for the room.
func (h *SnapshotHandlers) LatestSnapshot(c *gin.Context) {
	if h.snapshots == nil {
		c.JSON(503, gin.H{"error": "snapshot store not configured"})
		return
	}
	roomID := c.Param("roomID")
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()
	snap, err := h.snapshots.LatestBoardSnapshot(ctx, roomID)
	if err != nil {
		log.Printf("load snapshot error (room=%s): %v", roomID, err)
		c.JSON(500, gin.H{"error": "load snapshot failed"})
		return
	}
	if snap == nil {
		c.JSON(404, gin.H{"error": "no snapshot for room"})
		return
	}
	c.JSON(200, snap)
}

type visibilityBody struct {
	Visible *bool  `json:"visible"`
	By      string `json:"by"`
}

// SetVisibility routes a visibility toggle through the gateway dispatcher
// so it serializes with live protocol traffic. Unknown op ids are 404;
// the log itself is untouched in that case.
func (h *SnapshotHandlers) SetVisibility(c *gin.Context) {
	roomID := c.Param("roomID")
	opID := c.Param("opID")

	var body visibilityBody
	if err := c.ShouldBindJSON(&body); err != nil || body.Visible == nil {
		c.JSON(400, gin.H{"error": "body must carry visible (bool)"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()
	meta, err := h.hub.ToggleVisibility(ctx, roomID, opID, *body.Visible, body.By)
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	if meta == nil {
		c.JSON(404, gin.H{"error": "unknown operation id"})
		return
	}
	c.JSON(200, meta)
}
