package model

import "time"

// Session status values.  A session is open from the moment the first
// diner joins until any participant closes it.  Closed is terminal.
const (
	SessionOpen   = "open"
	SessionClosed = "closed"
)

// Session represents one shared check for one table: a single dining
// occasion that diners join, order against and settle together.  At most
// one open session may exist per table at any time; a second join request
// for the same table lands in the existing session instead of creating a
// new one.
//
// Fields:
//  ID           – primary key identifier (UUID).
//  TableID      – table this check belongs to.
//  RestaurantID – restaurant owning the table.
//  Status       – "open" or "closed".
//  InviteCode   – short shareable code, unique among open sessions.
//  CreatedAt    – when the first diner opened the check.
//  ClosedAt     – when the check was closed (nil while open).
type Session struct {
	ID           string     `json:"id"`            // sessions.id
	TableID      string     `json:"table_id"`      // sessions.table_id
	RestaurantID string     `json:"restaurant_id"` // sessions.restaurant_id
	Status       string     `json:"status"`        // sessions.status
	InviteCode   string     `json:"invite_code"`   // sessions.invite_code
	CreatedAt    time.Time  `json:"created_at"`    // sessions.created_at
	ClosedAt     *time.Time `json:"closed_at"`     // sessions.closed_at (nullable)
}

// Closed reports whether the session has been closed.
func (s *Session) Closed() bool { return s.Status == SessionClosed }
