package ledger

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/easycheck/easycheck/internal/model"
)

// MySQLStore implements Store on top of a MySQL database.  All
// timestamps are stored in UTC.  The two invariants the schema enforces
// for it are a unique key over (table, open) for sessions and a unique
// key over payment_items.order_id; duplicate-key failures on those are
// translated into the corresponding sentinel errors.
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore returns a MySQLStore bound to the given database.
func NewMySQLStore(db *sql.DB) *MySQLStore { return &MySQLStore{db: db} }

// DB exposes the underlying handle for callers that share the pool
// (catalog repositories, schema bootstrap).
func (s *MySQLStore) DB() *sql.DB { return s.db }

const mysqlDuplicateEntry = 1062

// isDuplicate reports whether err is a duplicate-key violation on the
// named unique key.
func isDuplicate(err error, key string) bool {
	var me *mysql.MySQLError
	if !errors.As(err, &me) || me.Number != mysqlDuplicateEntry {
		return false
	}
	return strings.Contains(me.Message, key)
}

// CreateSession inserts a new open session.  ErrDuplicateOpenSession is
// returned when the one-open-session-per-table key rejects the row, so
// the caller can re-read and join the session that won the race.
func (s *MySQLStore) CreateSession(ctx context.Context, sess *model.Session) error {
	const q = `INSERT INTO sessions (id, table_id, restaurant_id, status, invite_code, created_at)
	           VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q, sess.ID, sess.TableID, sess.RestaurantID,
		sess.Status, sess.InviteCode, sess.CreatedAt.UTC())
	if err != nil {
		if isDuplicate(err, "uq_sessions_open_table") {
			return ErrDuplicateOpenSession
		}
		return err
	}
	return nil
}

const sessionColumns = `id, table_id, restaurant_id, status, invite_code, created_at, closed_at`

func scanSession(row *sql.Row) (*model.Session, error) {
	var sess model.Session
	var closedAt sql.NullTime
	err := row.Scan(&sess.ID, &sess.TableID, &sess.RestaurantID, &sess.Status,
		&sess.InviteCode, &sess.CreatedAt, &closedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if closedAt.Valid {
		t := closedAt.Time
		sess.ClosedAt = &t
	}
	return &sess, nil
}

// GetSession returns a session by id or ErrNotFound.
func (s *MySQLStore) GetSession(ctx context.Context, id string) (*model.Session, error) {
	const q = `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ?`
	return scanSession(s.db.QueryRowContext(ctx, q, id))
}

// GetOpenSessionByTable returns the open session for a table, if any.
func (s *MySQLStore) GetOpenSessionByTable(ctx context.Context, tableID string) (*model.Session, error) {
	const q = `SELECT ` + sessionColumns + ` FROM sessions WHERE table_id = ? AND status = 'open'`
	return scanSession(s.db.QueryRowContext(ctx, q, tableID))
}

// GetOpenSessionByCode resolves an invite code to its open session.
// Codes of closed sessions do not match: a closed tab cannot be joined.
func (s *MySQLStore) GetOpenSessionByCode(ctx context.Context, code string) (*model.Session, error) {
	const q = `SELECT ` + sessionColumns + ` FROM sessions WHERE invite_code = ? AND status = 'open'`
	return scanSession(s.db.QueryRowContext(ctx, q, code))
}

// CloseSession transitions the session to closed exactly once.  The
// WHERE clause makes the update a no-op when already closed, which is
// reported as (false, nil) so close stays idempotent for callers.
func (s *MySQLStore) CloseSession(ctx context.Context, id string, closedAt time.Time) (bool, error) {
	const q = `UPDATE sessions SET status = 'closed', closed_at = ? WHERE id = ? AND status = 'open'`
	res, err := s.db.ExecContext(ctx, q, closedAt.UTC(), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		// Distinguish "already closed" from "no such session".
		if _, err := s.GetSession(ctx, id); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

// CreateDiner inserts a participant row.
func (s *MySQLStore) CreateDiner(ctx context.Context, d *model.Diner) error {
	const q = `INSERT INTO diners (id, session_id, name, avatar, is_host, joined_at)
	           VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q, d.ID, d.SessionID, d.Name, d.Avatar, d.IsHost, d.JoinedAt.UTC())
	return err
}

// GetDiner returns a diner by id or ErrNotFound.
func (s *MySQLStore) GetDiner(ctx context.Context, id string) (*model.Diner, error) {
	const q = `SELECT id, session_id, name, avatar, is_host, joined_at FROM diners WHERE id = ?`
	var d model.Diner
	err := s.db.QueryRowContext(ctx, q, id).Scan(&d.ID, &d.SessionID, &d.Name, &d.Avatar, &d.IsHost, &d.JoinedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// ListDiners returns the session's diners in join order.
func (s *MySQLStore) ListDiners(ctx context.Context, sessionID string) ([]model.Diner, error) {
	const q = `SELECT id, session_id, name, avatar, is_host, joined_at
	           FROM diners WHERE session_id = ? ORDER BY joined_at, id`
	rows, err := s.db.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	diners := make([]model.Diner, 0)
	for rows.Next() {
		var d model.Diner
		if err := rows.Scan(&d.ID, &d.SessionID, &d.Name, &d.Avatar, &d.IsHost, &d.JoinedAt); err != nil {
			return nil, err
		}
		diners = append(diners, d)
	}
	return diners, rows.Err()
}

// CreateOrders inserts the batch in one multi-row statement inside a
// transaction so a place-order action is all-or-nothing.
func (s *MySQLStore) CreateOrders(ctx context.Context, orders []*model.Order) error {
	if len(orders) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	query := `INSERT INTO orders (id, session_id, diner_id, menu_item_id, quantity, notes, status, created_at) VALUES `
	args := make([]interface{}, 0, len(orders)*8)
	for i, o := range orders {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?, ?, ?)"
		args = append(args, o.ID, o.SessionID, o.DinerID, o.MenuItemID, o.Quantity, o.Notes, o.Status, o.CreatedAt.UTC())
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// ListOrders returns the session's orders joined with their menu item
// and diner.  Prices come from menu_items at query time, never from the
// order row.
func (s *MySQLStore) ListOrders(ctx context.Context, sessionID string) ([]model.OrderDetail, error) {
	const q = `SELECT o.id, o.session_id, o.diner_id, o.menu_item_id, o.quantity, o.notes, o.status, o.created_at,
	                  mi.name, mi.emoji, mi.price_cents, d.name
	           FROM orders o
	           JOIN menu_items mi ON mi.id = o.menu_item_id
	           JOIN diners d ON d.id = o.diner_id
	           WHERE o.session_id = ?
	           ORDER BY o.created_at, o.id`
	rows, err := s.db.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]model.OrderDetail, 0)
	for rows.Next() {
		var d model.OrderDetail
		if err := rows.Scan(&d.ID, &d.SessionID, &d.DinerID, &d.MenuItemID, &d.Quantity, &d.Notes, &d.Status,
			&d.CreatedAt, &d.ItemName, &d.ItemEmoji, &d.PriceCents, &d.DinerName); err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// OrderAmounts prices the given orders of one session at current menu
// prices.  Unknown or foreign ids are absent from the result.
func (s *MySQLStore) OrderAmounts(ctx context.Context, sessionID string, orderIDs []string) ([]OrderAmount, error) {
	if len(orderIDs) == 0 {
		return []OrderAmount{}, nil
	}
	placeholders := make([]string, 0, len(orderIDs))
	args := make([]interface{}, 0, len(orderIDs)+1)
	args = append(args, sessionID)
	for _, id := range orderIDs {
		placeholders = append(placeholders, "?")
		args = append(args, id)
	}
	query := `SELECT o.id, o.diner_id, mi.price_cents * o.quantity
	          FROM orders o
	          JOIN menu_items mi ON mi.id = o.menu_item_id
	          WHERE o.session_id = ? AND o.id IN (` + strings.Join(placeholders, ",") + `)`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	amounts := make([]OrderAmount, 0, len(orderIDs))
	for rows.Next() {
		var a OrderAmount
		if err := rows.Scan(&a.OrderID, &a.DinerID, &a.AmountCents); err != nil {
			return nil, err
		}
		amounts = append(amounts, a)
	}
	return amounts, rows.Err()
}

// CreatePayment inserts the payment and its attribution rows in one
// transaction.  The unique key on payment_items.order_id rejects any
// order already settled by an earlier payment, which surfaces as
// ErrConflict and rolls back the whole unit.
func (s *MySQLStore) CreatePayment(ctx context.Context, p *model.Payment, items []model.PaymentItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	const q = `INSERT INTO payments (id, session_id, diner_id, amount_cents, tip_cents, method, status, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, q, p.ID, p.SessionID, p.DinerID, p.AmountCents, p.TipCents,
		p.Method, p.Status, p.CreatedAt.UTC()); err != nil {
		return err
	}
	query := `INSERT INTO payment_items (payment_id, order_id, amount_cents) VALUES `
	args := make([]interface{}, 0, len(items)*3)
	for i, it := range items {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, it.PaymentID, it.OrderID, it.AmountCents)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if isDuplicate(err, "uq_payment_items_order") {
			return ErrConflict
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// ListPayments returns the session's payments joined with diner names,
// oldest first.
func (s *MySQLStore) ListPayments(ctx context.Context, sessionID string) ([]model.PaymentDetail, error) {
	const q = `SELECT p.id, p.session_id, p.diner_id, p.amount_cents, p.tip_cents, p.method, p.status, p.created_at, d.name
	           FROM payments p
	           JOIN diners d ON d.id = p.diner_id
	           WHERE p.session_id = ?
	           ORDER BY p.created_at, p.id`
	rows, err := s.db.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	payments := make([]model.PaymentDetail, 0)
	for rows.Next() {
		var p model.PaymentDetail
		if err := rows.Scan(&p.ID, &p.SessionID, &p.DinerID, &p.AmountCents, &p.TipCents,
			&p.Method, &p.Status, &p.CreatedAt, &p.DinerName); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// PaidOrderIDs returns every order id attributed to any payment of the
// session.
func (s *MySQLStore) PaidOrderIDs(ctx context.Context, sessionID string) ([]string, error) {
	const q = `SELECT pi.order_id
	           FROM payment_items pi
	           JOIN payments p ON p.id = pi.payment_id
	           WHERE p.session_id = ?`
	rows, err := s.db.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetTable returns a table by id or ErrNotFound.
func (s *MySQLStore) GetTable(ctx context.Context, id string) (*model.Table, error) {
	const q = `SELECT id, restaurant_id, label FROM tables WHERE id = ?`
	var t model.Table
	err := s.db.QueryRowContext(ctx, q, id).Scan(&t.ID, &t.RestaurantID, &t.Label)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// GetMenuItem returns a menu item by id or ErrNotFound.
func (s *MySQLStore) GetMenuItem(ctx context.Context, id string) (*model.MenuItem, error) {
	const q = `SELECT id, restaurant_id, category_id, name, description, price_cents, emoji, available, created_at
	           FROM menu_items WHERE id = ?`
	var mi model.MenuItem
	var category sql.NullString // category_id is NULL for uncategorized items
	err := s.db.QueryRowContext(ctx, q, id).Scan(&mi.ID, &mi.RestaurantID, &category, &mi.Name,
		&mi.Description, &mi.PriceCents, &mi.Emoji, &mi.Available, &mi.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	mi.CategoryID = category.String
	return &mi, nil
}
