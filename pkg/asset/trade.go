package asset

// Trade is one atomic exchange between an initiating order and the resting
// target order it matched. Immutable once created; deleted when reversed.
type Trade struct {
	Initiator OrderID `json:"initiator"`
	Target    OrderID `json:"target"`

	// TargetAmount is the quantity traded FROM the target order (credited to
	// the initiator's want side); InitiatorAmount is the quantity traded FROM
	// the initiating order (credited to the target's want side).
	TargetAmount    Amount `json:"targetAmount"`
	InitiatorAmount Amount `json:"initiatorAmount"`

	// InitiatorSaving is have-asset refunded to the initiator because the
	// target's price was strictly better than the initiator's limit.
	InitiatorSaving Amount `json:"initiatorSaving,omitempty"`

	Timestamp int64 `json:"timestamp"`

	// Seq is assigned by the trade store on first save: a global creation
	// sequence so reorg handling can replay trades in exact reverse order.
	Seq uint64 `json:"seq,omitempty"`
}
