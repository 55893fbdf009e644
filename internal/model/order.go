package model

import "time"

// Order kitchen status values.  The column exists in the schema but no
// workflow currently advances it past "pending".
const (
	OrderPending   = "pending"
	OrderConfirmed = "confirmed"
	OrderServed    = "served"
)

// Order is one line item placed by one diner.  Orders are inserted in
// atomic batches (one batch per "place order" action) and are immutable
// afterwards.  The row stores no price: the menu item's current price is
// resolved at read time, so a menu price change retroactively changes
// what an unpaid order is worth.
//
// Fields:
//  ID         – primary key identifier (UUID).
//  SessionID  – session the order belongs to.
//  DinerID    – diner who placed it.
//  MenuItemID – menu item ordered.
//  Quantity   – number of units, always >= 1.
//  Notes      – free-text instructions for the kitchen.
//  Status     – kitchen status (pending/confirmed/served).
//  CreatedAt  – creation timestamp.
type Order struct {
	ID         string    `json:"id"`           // orders.id
	SessionID  string    `json:"session_id"`   // orders.session_id
	DinerID    string    `json:"diner_id"`     // orders.diner_id
	MenuItemID string    `json:"menu_item_id"` // orders.menu_item_id
	Quantity   uint32    `json:"quantity"`     // orders.quantity
	Notes      string    `json:"notes"`        // orders.notes
	Status     string    `json:"status"`       // orders.status
	CreatedAt  time.Time `json:"created_at"`   // orders.created_at
}

// OrderDetail is an order joined with its menu item and diner at read
// time.  PriceCents always reflects the menu item's current price.
type OrderDetail struct {
	Order
	ItemName   string `json:"item_name"`
	ItemEmoji  string `json:"item_emoji"`
	PriceCents int64  `json:"price"`
	DinerName  string `json:"diner_name"`
}

// AmountCents returns what the order line is worth at the resolved price.
func (o *OrderDetail) AmountCents() int64 {
	return o.PriceCents * int64(o.Quantity)
}
