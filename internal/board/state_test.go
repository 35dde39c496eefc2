package board

import (
	"reflect"
	"testing"
)

func TestCreateOp_Defaults(t *testing.T) {
	s := NewDrawingState()

	op := s.CreateOp("room1", OpData{
		Type:   OpStroke,
		UserID: "u1",
		Color:  "#e53935",
		Width:  3,
		Points: []Point{{X: 1, Y: 2, Pressure: 0.5}},
		TempID: "t1",
	})

	if op.ID == "" {
		t.Fatalf("CreateOp assigned no id")
	}
	if op.Seq != 1 {
		t.Fatalf("Seq = %d, want 1", op.Seq)
	}
	if !op.Visible {
		t.Fatalf("Visible = false, want default true")
	}
	if op.Finalized {
		t.Fatalf("Finalized = true, want false at creation")
	}
	if op.Timestamp == 0 {
		t.Fatalf("Timestamp not defaulted")
	}
	if op.TempID != "t1" {
		t.Fatalf("TempID = %q, want %q", op.TempID, "t1")
	}
}

func TestCreateOp_ExplicitInvisible(t *testing.T) {
	s := NewDrawingState()
	vis := false
	op := s.CreateOp("room1", OpData{Type: OpStroke, Visible: &vis})
	if op.Visible {
		t.Fatalf("Visible = true, want explicit false to be kept")
	}
}

func TestSeq_StrictlyIncreasingAcrossMutations(t *testing.T) {
	s := NewDrawingState()

	var seqs []uint64
	a := s.CreateOp("r", OpData{Type: OpStroke})
	seqs = append(seqs, a.Seq)
	b := s.CreateOp("r", OpData{Type: OpStroke})
	seqs = append(seqs, b.Seq)

	if op := s.AppendPoints("r", a.ID, []Point{{X: 1, Y: 1}}); op == nil {
		t.Fatalf("AppendPoints returned nil for known id")
	} else {
		seqs = append(seqs, op.Seq)
	}
	if op := s.FinalizeOp("r", a.ID); op == nil {
		t.Fatalf("FinalizeOp returned nil for known id")
	} else {
		seqs = append(seqs, op.Seq)
	}
	if meta := s.ToggleVisibility("r", b.ID, false, "u1"); meta == nil {
		t.Fatalf("ToggleVisibility returned nil for known id")
	} else {
		seqs = append(seqs, meta.Seq)
	}

	for i := 1; i < len(seqs); i++ {
		if seqs[i] <= seqs[i-1] {
			t.Fatalf("seq not strictly increasing: %v", seqs)
		}
	}
}

func TestSeq_RoomsAreIndependent(t *testing.T) {
	s := NewDrawingState()
	a := s.CreateOp("r1", OpData{Type: OpStroke})
	b := s.CreateOp("r2", OpData{Type: OpStroke})
	if a.Seq != 1 || b.Seq != 1 {
		t.Fatalf("per-room counters leaked: r1=%d r2=%d", a.Seq, b.Seq)
	}
}

func TestUnknownOpID_IsSilentNoOp(t *testing.T) {
	s := NewDrawingState()
	s.CreateOp("r", OpData{Type: OpStroke, Points: []Point{{X: 1, Y: 1}}})
	before := s.GetRoomOps("r")

	if op := s.AppendPoints("r", "no-such-id", []Point{{X: 9, Y: 9}}); op != nil {
		t.Fatalf("AppendPoints on unknown id = %+v, want nil", op)
	}
	if op := s.FinalizeOp("r", "no-such-id"); op != nil {
		t.Fatalf("FinalizeOp on unknown id = %+v, want nil", op)
	}
	if meta := s.ToggleVisibility("r", "no-such-id", false, "u1"); meta != nil {
		t.Fatalf("ToggleVisibility on unknown id = %+v, want nil", meta)
	}

	after := s.GetRoomOps("r")
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("log changed by unknown-id calls:\nbefore %+v\nafter  %+v", before, after)
	}
}

func TestAppendPoints_AfterFinalizeDropped(t *testing.T) {
	s := NewDrawingState()
	op := s.CreateOp("r", OpData{Type: OpStroke, Points: []Point{{X: 1, Y: 1}}})
	if got := s.FinalizeOp("r", op.ID); got == nil {
		t.Fatalf("FinalizeOp returned nil")
	}
	if got := s.AppendPoints("r", op.ID, []Point{{X: 2, Y: 2}}); got != nil {
		t.Fatalf("AppendPoints after finalize = %+v, want nil", got)
	}
	ops := s.GetRoomOps("r")
	if len(ops[0].Points) != 1 {
		t.Fatalf("finalized points mutated: %+v", ops[0].Points)
	}
}

func TestToggleVisibility_AuditTrail(t *testing.T) {
	s := NewDrawingState()
	a := s.CreateOp("r", OpData{Type: OpStroke, UserID: "alice"})

	meta := s.ToggleVisibility("r", a.ID, false, "bob")
	if meta == nil {
		t.Fatalf("ToggleVisibility returned nil for known id")
	}
	if meta.Type != OpMetaUndo {
		t.Fatalf("meta.Type = %q, want %q", meta.Type, OpMetaUndo)
	}
	if meta.TargetOpID != a.ID || meta.By != "bob" {
		t.Fatalf("meta = %+v, want target %q by %q", meta, a.ID, "bob")
	}
	if meta.Seq <= a.Seq {
		t.Fatalf("meta.Seq = %d, want > %d", meta.Seq, a.Seq)
	}

	ops := s.GetRoomOps("r")
	if len(ops) != 2 {
		t.Fatalf("log length = %d, want stroke + one meta", len(ops))
	}
	if ops[0].Visible {
		t.Fatalf("target op still visible after toggle")
	}

	redo := s.ToggleVisibility("r", a.ID, true, "bob")
	if redo.Type != OpMetaRedo {
		t.Fatalf("redo meta.Type = %q, want %q", redo.Type, OpMetaRedo)
	}
	if got := s.GetRoomOps("r")[0]; !got.Visible {
		t.Fatalf("target op not visible after redo toggle")
	}
}

// Replays a snapshot the way a joining client must: sort by seq, trust
// each stroke's live fields, never re-execute meta entries.
func TestSnapshot_ReplayTrustsLiveFields(t *testing.T) {
	s := NewDrawingState()
	a := s.CreateOp("r", OpData{Type: OpStroke})
	b := s.CreateOp("r", OpData{Type: OpStroke})
	s.FinalizeOp("r", a.ID)
	s.ToggleVisibility("r", a.ID, false, "u1")

	ops := s.GetRoomOps("r")
	SortBySeq(ops)
	for i := 1; i < len(ops); i++ {
		if ops[i].Seq <= ops[i-1].Seq {
			t.Fatalf("snapshot not sorted by seq: %v", ops)
		}
	}

	visible := map[string]bool{}
	for _, op := range ops {
		if op.Type != OpStroke {
			continue // audit entries are not replay instructions
		}
		visible[op.ID] = op.Visible
	}
	if visible[a.ID] {
		t.Fatalf("op A visible after replay, want hidden from live field")
	}
	if !visible[b.ID] {
		t.Fatalf("op B hidden after replay, want visible")
	}

	// A's finalization and B's in-progress state survive in the snapshot.
	for _, op := range ops {
		if op.ID == a.ID && !op.Finalized {
			t.Fatalf("op A not finalized in snapshot")
		}
		if op.ID == b.ID && op.Finalized {
			t.Fatalf("op B finalized in snapshot, never ended")
		}
	}
}

func TestGetRoomOps_ReturnsDetachedCopies(t *testing.T) {
	s := NewDrawingState()
	op := s.CreateOp("r", OpData{Type: OpStroke, Points: []Point{{X: 1, Y: 1}}})

	snap := s.GetRoomOps("r")
	snap[0].Points[0] = Point{X: 99, Y: 99}
	snap[0].Visible = false

	fresh := s.GetRoomOps("r")
	if fresh[0].Points[0].X != 1 || !fresh[0].Visible {
		t.Fatalf("mutating a snapshot leaked into state: %+v", fresh[0])
	}
	_ = op
}

func TestGetRoomOps_UnknownRoomEmpty(t *testing.T) {
	s := NewDrawingState()
	if ops := s.GetRoomOps("nowhere"); len(ops) != 0 {
		t.Fatalf("GetRoomOps on unknown room = %v, want empty", ops)
	}
}
