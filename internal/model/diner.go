package model

import "time"

// Diner is one participant device inside a session.  The diner who
// triggered session creation carries the host flag; later joiners never
// do.  Diners are never deleted and outlive any client-side state.
type Diner struct {
	ID        string    `json:"id"`         // diners.id
	SessionID string    `json:"session_id"` // diners.session_id
	Name      string    `json:"name"`       // diners.name
	Avatar    string    `json:"avatar"`     // diners.avatar
	IsHost    bool      `json:"is_host"`    // diners.is_host
	JoinedAt  time.Time `json:"joined_at"`  // diners.joined_at
}
