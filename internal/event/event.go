// Package event defines the change-notification vocabulary shared by
// the session coordinator and the broadcast fanout.  An event is a
// wake-up signal, not a state diff: it names only the kind of change,
// and every receiver is expected to re-fetch the session's current
// state rather than apply the event as a delta.  That contract is what
// makes duplicate or out-of-order delivery harmless.
package event

// Type identifies the kind of change within a session.
type Type string

const (
	// TypeDinerJoined records a diner entering the session.
	TypeDinerJoined Type = "diner:joined"
	// TypeOrdersUpdated records a batch of orders being placed.
	TypeOrdersUpdated Type = "orders:updated"
	// TypePaymentMade records a settlement being recorded.
	TypePaymentMade Type = "payment:made"
	// TypeSessionClosed records the session closing.
	TypeSessionClosed Type = "session:closed"
)
