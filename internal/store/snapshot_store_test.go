package store

import (
	"context"
	"testing"
)

func testStore(t *testing.T) *SnapshotStore {
	t.Helper()
	db, err := InitMySQL("root:@tcp(127.0.0.1:3306)/canvas_test?parseTime=true")
	// Skip when MySQL is not running.
	if err != nil {
		t.Skipf("skip: mysql not available: %v", err)
	}
	t.Cleanup(func() {
		db.Exec("DELETE FROM board_snapshots")
	})
	return NewSnapshotStore(db)
}

func TestSnapshotStore_SaveAndLatest(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.SaveBoardSnapshot(ctx, "main", 3, `[{"id":"a","seq":3}]`); err != nil {
		t.Fatalf("SaveBoardSnapshot error: %v", err)
	}
	if err := s.SaveBoardSnapshot(ctx, "main", 7, `[{"id":"a","seq":7}]`); err != nil {
		t.Fatalf("SaveBoardSnapshot error: %v", err)
	}

	snap, err := s.LatestBoardSnapshot(ctx, "main")
	if err != nil {
		t.Fatalf("LatestBoardSnapshot error: %v", err)
	}
	if snap == nil || snap.Seq != 7 {
		t.Fatalf("latest snapshot = %+v, want seq 7", snap)
	}

	// Duplicate (room, seq) captures are tolerated silently.
	if err := s.SaveBoardSnapshot(ctx, "main", 7, `[{"id":"a","seq":7}]`); err != nil {
		t.Fatalf("duplicate SaveBoardSnapshot error: %v", err)
	}
}

func TestSnapshotStore_LatestUnknownRoom(t *testing.T) {
	s := testStore(t)
	snap, err := s.LatestBoardSnapshot(context.Background(), "nowhere")
	if err != nil {
		t.Fatalf("LatestBoardSnapshot error: %v", err)
	}
	if snap != nil {
		t.Fatalf("snapshot for unknown room = %+v, want nil", snap)
	}
}
