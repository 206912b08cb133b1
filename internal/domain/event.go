package domain

// EventKind classifies one position lifecycle transition.
type EventKind string

const (
	EventOpen   EventKind = "open"
	EventAdd    EventKind = "add"
	EventReduce EventKind = "reduce"
	EventClose  EventKind = "close"
)

// PositionEvent is one classified lifecycle transition, carrying enough state
// for the alerting layer to render a message without re-reading any store.
type PositionEvent struct {
	Kind     EventKind     `json:"kind"`
	Position Position      `json:"position"`
	// Prev is the previous-cycle observation, set for add and reduce events
	// so before/after transitions can be rendered.
	Prev    Position      `json:"prev"`
	Session SessionRecord `json:"session"`
	// DeltaQty is the absolute quantity change for add/reduce events, zero
	// otherwise.
	DeltaQty float64 `json:"delta_qty,omitempty"`
	// Trade is set on close events only.
	Trade *Trade `json:"trade,omitempty"`
}
