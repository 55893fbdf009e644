package ledger

import (
	"context"
	"time"

	"github.com/easycheck/easycheck/internal/model"
)

// OrderAmount is an order id with its worth at current menu prices.
// Payment creation prices the selected orders through this shape so the
// principal and its attributions are computed from the same snapshot.
type OrderAmount struct {
	OrderID     string
	DinerID     string
	AmountCents int64
}

// Store is the durable, transactional record of diners, orders and
// payments for a session.  It carries no business logic: every method is
// a single atomic read or write, and multi-row writes (order batches,
// payment plus attributions) either land completely or not at all.
// Reads observe a consistent snapshot; a payment's principal is never
// visible without its attribution rows.
//
// Two adapters exist: MySQLStore for production and MemoryStore for
// tests.  The coordinator is written against this interface only.
type Store interface {
	// Sessions.
	CreateSession(ctx context.Context, s *model.Session) error
	GetSession(ctx context.Context, id string) (*model.Session, error)
	GetOpenSessionByTable(ctx context.Context, tableID string) (*model.Session, error)
	GetOpenSessionByCode(ctx context.Context, code string) (*model.Session, error)
	// CloseSession transitions open -> closed and stamps closedAt.  It
	// reports false without error when the session was already closed.
	CloseSession(ctx context.Context, id string, closedAt time.Time) (bool, error)

	// Diners.
	CreateDiner(ctx context.Context, d *model.Diner) error
	GetDiner(ctx context.Context, id string) (*model.Diner, error)
	ListDiners(ctx context.Context, sessionID string) ([]model.Diner, error)

	// Orders.  CreateOrders inserts the whole batch atomically.
	CreateOrders(ctx context.Context, orders []*model.Order) error
	ListOrders(ctx context.Context, sessionID string) ([]model.OrderDetail, error)
	// OrderAmounts prices the given orders of one session at current menu
	// prices.  Ids that do not belong to the session are simply absent
	// from the result; the caller decides whether that is an error.
	OrderAmounts(ctx context.Context, sessionID string, orderIDs []string) ([]OrderAmount, error)

	// Payments.  CreatePayment inserts the payment and its attribution
	// rows in one atomic unit and returns ErrConflict when any order id
	// is already attributed to an existing payment.
	CreatePayment(ctx context.Context, p *model.Payment, items []model.PaymentItem) error
	ListPayments(ctx context.Context, sessionID string) ([]model.PaymentDetail, error)
	// PaidOrderIDs returns the derived paid-order set for a session.
	PaidOrderIDs(ctx context.Context, sessionID string) ([]string, error)

	// Catalog lookups consumed by the coordinator.
	GetTable(ctx context.Context, id string) (*model.Table, error)
	GetMenuItem(ctx context.Context, id string) (*model.MenuItem, error)
}
