package board

// Point is a single sample of a stroke path.
type Point struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Pressure float64 `json:"pressure,omitempty"`
}

// Operation types. Stroke ops carry the drawing payload; meta ops only
// reference a target op and exist as an audit trail of visibility changes.
const (
	OpStroke   = "stroke"
	OpMetaUndo = "meta:undo"
	OpMetaRedo = "meta:redo"
)

// Operation is one entry in a room's drawing log.
//
// Seq is the only ordering authority inside a room: it is reassigned on
// every mutation (append, finalize), so sorting a snapshot by Seq yields
// the order in which effects were applied, regardless of log position.
// Visible and Finalized on the op itself are the source of truth for
// replay; meta:undo / meta:redo entries must never be re-executed to
// derive them.
type Operation struct {
	ID        string  `json:"id"`
	Seq       uint64  `json:"seq"`
	Type      string  `json:"type"`
	UserID    string  `json:"userId,omitempty"`
	Color     string  `json:"color,omitempty"`
	Width     float64 `json:"width,omitempty"`
	Points    []Point `json:"points,omitempty"`
	Visible   bool    `json:"visible"`
	Finalized bool    `json:"finalized"`
	Timestamp int64   `json:"timestamp"`
	TempID    string  `json:"tempId,omitempty"`

	// Meta-op fields, set only on meta:undo / meta:redo entries.
	TargetOpID string `json:"targetOpId,omitempty"`
	By         string `json:"by,omitempty"`
}

// clone returns a detached copy whose Points slice shares no storage with
// the original, so callers can hold it outside the state lock.
func (op *Operation) clone() Operation {
	cp := *op
	if op.Points != nil {
		cp.Points = make([]Point, len(op.Points))
		copy(cp.Points, op.Points)
	}
	return cp
}
