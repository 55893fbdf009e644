package model

import "time"

// PaymentCompleted is the only payment status currently modeled: card or
// wallet settlement is assumed to succeed synchronously once requested,
// so no pending or failed state exists.
const PaymentCompleted = "completed"

// Payment is one settlement event by one diner covering a specific set
// of orders plus an independent tip.  The principal freezes the menu
// prices at payment time; its per-order attribution rows are written in
// the same atomic unit and always sum exactly to AmountCents.
//
// Fields:
//  ID          – primary key identifier (UUID).
//  SessionID   – session being settled against.
//  DinerID     – diner who paid.
//  AmountCents – principal: sum of attributed order amounts.
//  TipCents    – tip on top of the principal, never split.
//  Method      – payment method label (e.g. "card").
//  Status      – always "completed".
//  CreatedAt   – settlement timestamp.
type Payment struct {
	ID          string    `json:"id"`         // payments.id
	SessionID   string    `json:"session_id"` // payments.session_id
	DinerID     string    `json:"diner_id"`   // payments.diner_id
	AmountCents int64     `json:"amount"`     // payments.amount_cents
	TipCents    int64     `json:"tip"`        // payments.tip_cents
	Method      string    `json:"method"`     // payments.method
	Status      string    `json:"status"`     // payments.status
	CreatedAt   time.Time `json:"created_at"` // payments.created_at
}

// PaymentItem attributes a slice of a payment's principal to one order.
// An order id may appear in at most one payment's attributions, ever:
// that uniqueness is what makes the derived paid-order set well defined.
type PaymentItem struct {
	PaymentID   string `json:"payment_id"`   // payment_items.payment_id
	OrderID     string `json:"order_id"`     // payment_items.order_id
	AmountCents int64  `json:"amount"`       // payment_items.amount_cents
}

// PaymentDetail is a payment joined with its diner for display.
type PaymentDetail struct {
	Payment
	DinerName string `json:"diner_name"`
}
