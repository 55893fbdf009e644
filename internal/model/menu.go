package model

import "time"

// Category groups menu items for display, ordered by SortOrder.
type Category struct {
	ID           string `json:"id"`            // categories.id
	RestaurantID string `json:"restaurant_id"` // categories.restaurant_id
	Name         string `json:"name"`          // categories.name
	SortOrder    int    `json:"sort_order"`    // categories.sort_order
}

// MenuItem is one orderable item.  PriceCents is the current price in
// the smallest currency unit; orders reference items by id and resolve
// this price at read time.
type MenuItem struct {
	ID           string    `json:"id"`            // menu_items.id
	RestaurantID string    `json:"restaurant_id"` // menu_items.restaurant_id
	CategoryID   string    `json:"category_id"`   // menu_items.category_id
	Name         string    `json:"name"`          // menu_items.name
	Description  string    `json:"description"`   // menu_items.description
	PriceCents   int64     `json:"price"`         // menu_items.price_cents
	Emoji        string    `json:"emoji"`         // menu_items.emoji
	Available    bool      `json:"available"`     // menu_items.available
	CreatedAt    time.Time `json:"created_at"`    // menu_items.created_at
}

// MenuCategory is a category with its available items, as served by the
// public menu endpoint.
type MenuCategory struct {
	Category
	Items []MenuItem `json:"items"`
}
