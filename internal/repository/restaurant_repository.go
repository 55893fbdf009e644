// Package repository contains catalog data access separated from HTTP
// handlers.  The catalog (restaurants, tables, categories, menu items) is
// administered out of band and read by guests; session and payment state
// goes through the ledger package instead, which owns the transactional
// guarantees.
package repository

import (
	"context"      // context allows passing deadlines and cancellation signals to DB operations
	"database/sql" // sql provides generic database operations and drivers
	"errors"       // errors is used for sentinel comparisons

	"github.com/easycheck/easycheck/internal/model"
)

// ErrRestaurantNotFound is returned when a restaurant cannot be found.
var ErrRestaurantNotFound = errors.New("restaurant not found")

// ErrTableNotFound is returned when a table cannot be found.
var ErrTableNotFound = errors.New("table not found")

// RestaurantRepo encapsulates queries over restaurants and their tables.
type RestaurantRepo struct {
	db *sql.DB // underlying connection pool
}

// NewRestaurantRepo constructs a RestaurantRepo with the provided DB handle.
func NewRestaurantRepo(db *sql.DB) *RestaurantRepo {
	return &RestaurantRepo{db: db}
}

// List returns all restaurants ordered by name.
func (r *RestaurantRepo) List(ctx context.Context) ([]model.Restaurant, error) {
	const q = `SELECT id, name, slug, logo_emoji, color, created_at FROM restaurants ORDER BY name`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Restaurant{}
	for rows.Next() {
		var rest model.Restaurant
		if err := rows.Scan(&rest.ID, &rest.Name, &rest.Slug, &rest.LogoEmoji, &rest.Color, &rest.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rest)
	}
	return out, rows.Err()
}

// GetBySlug fetches a restaurant by its URL slug.  Returns
// ErrRestaurantNotFound when no row matches.
func (r *RestaurantRepo) GetBySlug(ctx context.Context, slug string) (*model.Restaurant, error) {
	const q = `SELECT id, name, slug, logo_emoji, color, created_at FROM restaurants WHERE slug = ?`
	var rest model.Restaurant
	if err := r.db.QueryRowContext(ctx, q, slug).Scan(&rest.ID, &rest.Name, &rest.Slug, &rest.LogoEmoji, &rest.Color, &rest.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRestaurantNotFound
		}
		return nil, err
	}
	return &rest, nil
}

// ListTables returns all tables of a restaurant.
func (r *RestaurantRepo) ListTables(ctx context.Context, restaurantID string) ([]model.Table, error) {
	const q = `SELECT id, restaurant_id, label FROM tables WHERE restaurant_id = ? ORDER BY label`
	rows, err := r.db.QueryContext(ctx, q, restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Table{}
	for rows.Next() {
		var t model.Table
		if err := rows.Scan(&t.ID, &t.RestaurantID, &t.Label); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetTableWithSlug fetches a table together with its restaurant's slug,
// which the QR endpoint embeds in the join link.
func (r *RestaurantRepo) GetTableWithSlug(ctx context.Context, tableID string) (*model.Table, string, error) {
	const q = `SELECT t.id, t.restaurant_id, t.label, r.slug
	           FROM tables t
	           JOIN restaurants r ON r.id = t.restaurant_id
	           WHERE t.id = ?`
	var t model.Table
	var slug string
	if err := r.db.QueryRowContext(ctx, q, tableID).Scan(&t.ID, &t.RestaurantID, &t.Label, &slug); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", ErrTableNotFound
		}
		return nil, "", err
	}
	return &t, slug, nil
}
