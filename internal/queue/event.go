// Package queue defines message payloads exchanged over the message broker.
package queue

// PaymentCompletedEvent is published when a settlement is recorded
// against a session.  It carries enough for downstream consumers to
// log, notify or feed analytics without querying the primary database.
type PaymentCompletedEvent struct {
	PaymentID   string `json:"payment_id"`
	SessionID   string `json:"session_id"`
	DinerID     string `json:"diner_id"`
	DinerName   string `json:"diner_name"`
	TableLabel  string `json:"table_label"`
	AmountCents int64  `json:"amount_cents"`
	TipCents    int64  `json:"tip_cents"`
	Method      string `json:"method"`
	OrderCount  int    `json:"order_count"`
	PaidAt      string `json:"paid_at"`
}
