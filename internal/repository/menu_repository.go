package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/easycheck/easycheck/internal/model"
)

// ErrMenuItemNotFound is returned when a menu item cannot be found.
var ErrMenuItemNotFound = errors.New("menu item not found")

// MenuRepo encapsulates queries over categories and menu items.
type MenuRepo struct {
	db *sql.DB
}

// NewMenuRepo constructs a MenuRepo with the provided DB handle.
func NewMenuRepo(db *sql.DB) *MenuRepo {
	return &MenuRepo{db: db}
}

// Menu returns the restaurant's categories in display order, each with its
// available items.  Unavailable items are filtered here so guests never see
// them; the admin endpoints read items individually instead.
func (r *MenuRepo) Menu(ctx context.Context, restaurantID string) ([]model.MenuCategory, error) {
	const qCats = `SELECT id, restaurant_id, name, sort_order FROM categories
	               WHERE restaurant_id = ? ORDER BY sort_order`
	rows, err := r.db.QueryContext(ctx, qCats, restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	menu := []model.MenuCategory{}
	index := map[string]int{} // category id -> position in menu
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.RestaurantID, &c.Name, &c.SortOrder); err != nil {
			return nil, err
		}
		index[c.ID] = len(menu)
		menu = append(menu, model.MenuCategory{Category: c, Items: []model.MenuItem{}})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	const qItems = `SELECT id, restaurant_id, category_id, name, description, price_cents, emoji, available, created_at
	                FROM menu_items WHERE restaurant_id = ? AND available = 1 ORDER BY name`
	items, err := r.db.QueryContext(ctx, qItems, restaurantID)
	if err != nil {
		return nil, err
	}
	defer items.Close()

	for items.Next() {
		mi, err := scanMenuItem(items)
		if err != nil {
			return nil, err
		}
		if pos, ok := index[mi.CategoryID]; ok {
			menu[pos].Items = append(menu[pos].Items, *mi)
		}
	}
	return menu, items.Err()
}

// Get fetches a single menu item, available or not.
func (r *MenuRepo) Get(ctx context.Context, id string) (*model.MenuItem, error) {
	const q = `SELECT id, restaurant_id, category_id, name, description, price_cents, emoji, available, created_at
	           FROM menu_items WHERE id = ?`
	mi, err := scanMenuItem(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMenuItemNotFound
		}
		return nil, err
	}
	return mi, nil
}

// Create inserts a new menu item and returns it with generated fields set.
func (r *MenuRepo) Create(ctx context.Context, mi *model.MenuItem) (*model.MenuItem, error) {
	if mi.ID == "" {
		mi.ID = uuid.NewString()
	}
	if mi.Emoji == "" {
		mi.Emoji = "🍴"
	}
	const q = `INSERT INTO menu_items (id, restaurant_id, category_id, name, description, price_cents, emoji, available, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, mi.ID, mi.RestaurantID, nullable(mi.CategoryID),
		mi.Name, mi.Description, mi.PriceCents, mi.Emoji, true, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, mi.ID)
}

// Update replaces the mutable fields of a menu item.  Price changes take
// effect for unpaid orders immediately because prices are resolved at read
// time; settled payments keep the amount they were made with.
func (r *MenuRepo) Update(ctx context.Context, mi *model.MenuItem) (*model.MenuItem, error) {
	const q = `UPDATE menu_items SET name = ?, description = ?, price_cents = ?, emoji = ?, category_id = ?, available = ?
	           WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, mi.Name, mi.Description, mi.PriceCents, mi.Emoji,
		nullable(mi.CategoryID), mi.Available, mi.ID)
	if err != nil {
		return nil, err
	}
	// RowsAffected is 0 both for a missing row and for a no-op update, so
	// existence is confirmed by the follow-up read instead.
	return r.Get(ctx, mi.ID)
}

// Delete removes a menu item.  Returns ErrMenuItemNotFound if nothing was
// deleted.  Deleting an item that existing orders reference fails on the
// foreign key; the handler reports that as a conflict.
func (r *MenuRepo) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM menu_items WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrMenuItemNotFound
	}
	return nil
}

// ListCategories returns a restaurant's categories in display order.
func (r *MenuRepo) ListCategories(ctx context.Context, restaurantID string) ([]model.Category, error) {
	const q = `SELECT id, restaurant_id, name, sort_order FROM categories
	           WHERE restaurant_id = ? ORDER BY sort_order`
	rows, err := r.db.QueryContext(ctx, q, restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Category{}
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.RestaurantID, &c.Name, &c.SortOrder); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CreateCategory appends a category after the restaurant's current last
// sort position.
func (r *MenuRepo) CreateCategory(ctx context.Context, restaurantID, name string) (*model.Category, error) {
	id := uuid.NewString()
	const q = `INSERT INTO categories (id, restaurant_id, name, sort_order)
	           SELECT ?, ?, ?, COALESCE(MAX(sort_order), -1) + 1 FROM categories WHERE restaurant_id = ?`
	if _, err := r.db.ExecContext(ctx, q, id, restaurantID, name, restaurantID); err != nil {
		return nil, err
	}
	const qGet = `SELECT id, restaurant_id, name, sort_order FROM categories WHERE id = ?`
	var c model.Category
	if err := r.db.QueryRowContext(ctx, qGet, id).Scan(&c.ID, &c.RestaurantID, &c.Name, &c.SortOrder); err != nil {
		return nil, err
	}
	return &c, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMenuItem(row rowScanner) (*model.MenuItem, error) {
	var mi model.MenuItem
	var category sql.NullString
	if err := row.Scan(&mi.ID, &mi.RestaurantID, &category, &mi.Name, &mi.Description,
		&mi.PriceCents, &mi.Emoji, &mi.Available, &mi.CreatedAt); err != nil {
		return nil, err
	}
	mi.CategoryID = category.String
	return &mi, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
