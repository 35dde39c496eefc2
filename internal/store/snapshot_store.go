package store

import (
	"context"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// BoardSnapshot is a persisted capture of a room's full operation log at a
// given seq, the retention hook for the otherwise unbounded in-memory log.
type BoardSnapshot struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	RoomID    string    `gorm:"size:191;not null;uniqueIndex:idx_room_seq" json:"roomId"`
	Seq       uint64    `gorm:"not null;uniqueIndex:idx_room_seq" json:"seq"`
	Ops       string    `gorm:"type:json;not null" json:"ops"` // JSON array of operations
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
}

func (BoardSnapshot) TableName() string { return "board_snapshots" }

type SnapshotStore struct{ db *gorm.DB }

func NewSnapshotStore(db *gorm.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// SaveBoardSnapshot inserts a snapshot row. A duplicate (room, seq) pair
// means this exact state was already captured, which is fine.
func (s *SnapshotStore) SaveBoardSnapshot(ctx context.Context, roomID string, seq uint64, ops string) error {
	snap := BoardSnapshot{RoomID: roomID, Seq: seq, Ops: ops}
	err := s.db.WithContext(ctx).Create(&snap).Error
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return nil
		}
		return err
	}
	return nil
}

// LatestBoardSnapshot returns the highest-seq snapshot for the room, or
// nil when none has been captured.
func (s *SnapshotStore) LatestBoardSnapshot(ctx context.Context, roomID string) (*BoardSnapshot, error) {
	var snap BoardSnapshot
	err := s.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("seq DESC").
		First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}
