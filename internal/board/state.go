package board

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// OpData carries the caller-supplied fields for a new operation.
// Visible defaults to true when nil; Timestamp defaults to now (unix
// milliseconds) when zero.
type OpData struct {
	Type      string
	UserID    string
	Color     string
	Width     float64
	Points    []Point
	Visible   *bool
	Timestamp int64
	TempID    string
}

type roomState struct {
	opLog      []*Operation
	opIndex    map[string]*Operation
	seqCounter uint64
}

// DrawingState holds every room's operation log. All protocol-driven
// mutation happens on the gateway's single dispatcher goroutine; the lock
// exists for concurrent readers (snapshot HTTP handlers, tests).
type DrawingState struct {
	mu    sync.RWMutex
	rooms map[string]*roomState
}

func NewDrawingState() *DrawingState {
	return &DrawingState{rooms: make(map[string]*roomState)}
}

// ensure is idempotent; rooms are created on first reference, never on an
// error path. Caller must hold mu.
func (s *DrawingState) ensure(roomID string) *roomState {
	r, ok := s.rooms[roomID]
	if !ok {
		r = &roomState{opIndex: make(map[string]*Operation)}
		s.rooms[roomID] = r
	}
	return r
}

func (r *roomState) nextSeq() uint64 {
	r.seqCounter++
	return r.seqCounter
}

// NextSeq advances and returns the room's sequence counter.
func (s *DrawingState) NextSeq(roomID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensure(roomID).nextSeq()
}

// CreateOp allocates an id and seq for a new operation, stores it in the
// room's log and index, and returns a detached copy.
func (s *DrawingState) CreateOp(roomID string, data OpData) Operation {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.ensure(roomID)

	visible := true
	if data.Visible != nil {
		visible = *data.Visible
	}
	ts := data.Timestamp
	if ts == 0 {
		ts = time.Now().UnixMilli()
	}

	op := &Operation{
		ID:        uuid.NewString(),
		Seq:       r.nextSeq(),
		Type:      data.Type,
		UserID:    data.UserID,
		Color:     data.Color,
		Width:     data.Width,
		Points:    append([]Point(nil), data.Points...),
		Visible:   visible,
		Timestamp: ts,
		TempID:    data.TempID,
	}
	r.opLog = append(r.opLog, op)
	r.opIndex[op.ID] = op
	return op.clone()
}

// AppendPoints extends an in-progress operation and reassigns its seq.
// An unknown opId is a silent no-op and returns nil: the caller may be
// racing its own op:ack, and a stray update must not surface an error.
func (s *DrawingState) AppendPoints(roomID, opID string, points []Point) *Operation {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.ensure(roomID)
	op, ok := r.opIndex[opID]
	if !ok {
		return nil
	}
	// A finalized stroke's points never change; a stray update arriving
	// after the end is dropped like an unknown id.
	if op.Finalized {
		return nil
	}
	op.Points = append(op.Points, points...)
	op.Seq = r.nextSeq()
	cp := op.clone()
	return &cp
}

// FinalizeOp marks the operation complete. The transition is one-way;
// same unknown-id contract as AppendPoints.
func (s *DrawingState) FinalizeOp(roomID, opID string) *Operation {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.ensure(roomID)
	op, ok := r.opIndex[opID]
	if !ok {
		return nil
	}
	op.Finalized = true
	op.Seq = r.nextSeq()
	cp := op.clone()
	return &cp
}

// ToggleVisibility flips the target op's Visible field directly and appends
// a meta op recording who changed it. The meta entry gets its own seq and
// is returned; it is an audit record, not a replay instruction.
func (s *DrawingState) ToggleVisibility(roomID, opID string, visible bool, byUserID string) *Operation {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.ensure(roomID)
	target, ok := r.opIndex[opID]
	if !ok {
		return nil
	}
	target.Visible = visible

	metaType := OpMetaUndo
	if visible {
		metaType = OpMetaRedo
	}
	meta := &Operation{
		ID:         uuid.NewString(),
		Seq:        r.nextSeq(),
		Type:       metaType,
		TargetOpID: opID,
		By:         byUserID,
		Timestamp:  time.Now().UnixMilli(),
	}
	// Metas are log-only: nothing ever mutates them, so they stay out of
	// the index.
	r.opLog = append(r.opLog, meta)
	cp := meta.clone()
	return &cp
}

// GetRoomOps returns a deep copy of the room's full log in insertion
// order, for the init snapshot sent to a newly joined connection. Log
// position is not seq order once ops have been mutated; consumers that
// need effect order must sort by Seq.
func (s *DrawingState) GetRoomOps(roomID string) []Operation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return nil
	}
	ops := make([]Operation, len(r.opLog))
	for i, op := range r.opLog {
		ops[i] = op.clone()
	}
	return ops
}

// SortBySeq orders a snapshot by seq, the only ordering that reflects when
// effects were applied.
func SortBySeq(ops []Operation) {
	sort.Slice(ops, func(i, j int) bool { return ops[i].Seq < ops[j].Seq })
}
