// Package ledger defines the durable store boundary for session
// sub-state.  This file declares the sentinel error values shared by
// every adapter.  Higher layers compare with errors.Is to translate
// failures into responses: ErrNotFound becomes a 404, ErrClosed and
// ErrConflict become 409s, ErrInvalidInput becomes a 400.
package ledger

import "errors"

// ErrNotFound is returned when a session, diner, table, menu item or
// order does not exist.
var ErrNotFound = errors.New("not found")

// ErrClosed is returned when a mutating operation is attempted against
// a closed session.  Closed is terminal: no orders, payments or joins
// may be created afterwards.
var ErrClosed = errors.New("session closed")

// ErrConflict is returned when a payment attempts to settle an order
// that already appears in another payment's attributions.
var ErrConflict = errors.New("order already settled")

// ErrInvalidInput is returned for empty item or order lists, quantities
// below one, negative tips and out-of-range percentages.
var ErrInvalidInput = errors.New("invalid input")

// ErrDuplicateOpenSession is returned by CreateSession when another open
// session already exists for the same table.  Callers resolve the race
// by re-reading and joining the now-existing session; the error is never
// surfaced to a client.
var ErrDuplicateOpenSession = errors.New("open session already exists for table")
