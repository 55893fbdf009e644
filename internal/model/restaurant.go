package model

import "time"

// Restaurant is the owning venue for tables, menu and sessions.
type Restaurant struct {
	ID        string    `json:"id"`         // restaurants.id
	Name      string    `json:"name"`       // restaurants.name
	Slug      string    `json:"slug"`       // restaurants.slug
	LogoEmoji string    `json:"logo_emoji"` // restaurants.logo_emoji
	Color     string    `json:"color"`      // restaurants.color
	CreatedAt time.Time `json:"created_at"` // restaurants.created_at
}

// Table is one physical table; its QR code resolves to a join URL.
type Table struct {
	ID           string `json:"id"`            // tables.id
	RestaurantID string `json:"restaurant_id"` // tables.restaurant_id
	Label        string `json:"label"`         // tables.label
}
