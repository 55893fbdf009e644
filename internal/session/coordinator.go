// Package session implements the coordinator: the single writer of
// session sub-state.  Every mutating operation on one session runs
// under that session's lock, validates against the ledger, applies its
// writes atomically and emits a change event only after the write
// landed.  A rejected mutation leaves both the ledger and the lock
// discipline untouched for subsequent calls.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/easycheck/easycheck/internal/event"
	"github.com/easycheck/easycheck/internal/ledger"
	"github.com/easycheck/easycheck/internal/model"
	"github.com/easycheck/easycheck/internal/split"
	"github.com/easycheck/easycheck/internal/utils"
)

// Notifier receives change events for a session's subscriber group.
// Delivery is fire-and-forget: a failed or absent notifier never fails
// the mutation that produced the event.
type Notifier interface {
	Publish(sessionID string, t event.Type)
}

// Coordinator owns the serialization boundary for sessions.  All
// methods are safe for concurrent use.
type Coordinator struct {
	store    ledger.Store
	notifier Notifier
	locks    *keyedLocks
}

// NewCoordinator builds a Coordinator over the given store.  notifier
// may be nil, in which case events are dropped.
func NewCoordinator(store ledger.Store, notifier Notifier) *Coordinator {
	if store == nil {
		panic("nil store passed to NewCoordinator")
	}
	return &Coordinator{store: store, notifier: notifier, locks: newKeyedLocks()}
}

func (c *Coordinator) notify(sessionID string, t event.Type) {
	if c.notifier != nil {
		c.notifier.Publish(sessionID, t)
	}
}

// defaultAvatar matches the schema default for diners without one.
const defaultAvatar = "😀"

// JoinResult is returned by both join operations.
type JoinResult struct {
	Session *model.Session
	Diner   *model.Diner
	Diners  []model.Diner
	// Created reports whether this join opened the session.
	Created bool
}

// JoinByTable finds or creates the open session for a table and adds a
// diner to it.  Concurrent first-joins for one table are serialized by
// the table lock within this process and by the store's unique
// open-session-per-table constraint across processes; losing the
// creation race is resolved by re-reading and joining the winner's
// session, never by failing the caller.
func (c *Coordinator) JoinByTable(ctx context.Context, tableID, name, avatar string) (*JoinResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: diner name is required", ledger.ErrInvalidInput)
	}
	table, err := c.store.GetTable(ctx, tableID)
	if err != nil {
		return nil, err
	}

	unlock := c.locks.acquire("table:" + tableID)
	defer unlock()

	created := false
	sess, err := c.store.GetOpenSessionByTable(ctx, tableID)
	if errors.Is(err, ledger.ErrNotFound) {
		sess = &model.Session{
			ID:           uuid.NewString(),
			TableID:      table.ID,
			RestaurantID: table.RestaurantID,
			Status:       model.SessionOpen,
			InviteCode:   utils.NewInviteCode(),
			CreatedAt:    time.Now().UTC(),
		}
		createErr := c.store.CreateSession(ctx, sess)
		if createErr == nil {
			created = true
		} else if errors.Is(createErr, ledger.ErrDuplicateOpenSession) {
			// Lost the cross-process race: join the session that won.
			sess, err = c.store.GetOpenSessionByTable(ctx, tableID)
			if err != nil {
				return nil, err
			}
		} else {
			return nil, createErr
		}
	} else if err != nil {
		return nil, err
	}

	// Other mutations serialize on the session key, not the table key.
	// Take the session lock before inserting the diner and re-check the
	// status: a close may have landed between resolving the session and
	// here, and a closed session must not gain diners.
	unlockSess := c.locks.acquire("session:" + sess.ID)
	defer unlockSess()
	sess, err = c.store.GetSession(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	if sess.Closed() {
		return nil, ledger.ErrClosed
	}
	return c.addDiner(ctx, sess, name, avatar, created)
}

// JoinByCode resolves an invite code to its open session and adds a
// diner.  Codes of closed sessions never match, so a closed tab cannot
// gain diners; joiners by code are never host.
func (c *Coordinator) JoinByCode(ctx context.Context, code, name, avatar string) (*JoinResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: diner name is required", ledger.ErrInvalidInput)
	}
	sess, err := c.store.GetOpenSessionByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return nil, err
	}

	unlock := c.locks.acquire("session:" + sess.ID)
	defer unlock()

	// Re-check under the lock: the session may have closed since the
	// code resolved.
	sess, err = c.store.GetSession(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	if sess.Closed() {
		return nil, ledger.ErrClosed
	}
	return c.addDiner(ctx, sess, name, avatar, false)
}

// addDiner inserts the participant and emits diner:joined.  The caller
// holds the relevant lock.  The host flag goes to the first diner of a
// session this coordinator just created.
func (c *Coordinator) addDiner(ctx context.Context, sess *model.Session, name, avatar string, created bool) (*JoinResult, error) {
	if avatar == "" {
		avatar = defaultAvatar
	}
	existing, err := c.store.ListDiners(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	diner := &model.Diner{
		ID:        uuid.NewString(),
		SessionID: sess.ID,
		Name:      name,
		Avatar:    avatar,
		IsHost:    created && len(existing) == 0,
		JoinedAt:  time.Now().UTC(),
	}
	if err := c.store.CreateDiner(ctx, diner); err != nil {
		return nil, err
	}
	diners := append(existing, *diner)
	c.notify(sess.ID, event.TypeDinerJoined)
	return &JoinResult{Session: sess, Diner: diner, Diners: diners, Created: created}, nil
}

// OrderItem is one line of a place-order request.
type OrderItem struct {
	MenuItemID string
	Quantity   uint32
	Notes      string
}

// PlaceOrder inserts a batch of orders as one atomic unit and emits a
// single orders:updated event.  The whole batch is validated before
// anything is written: an empty batch or a zero quantity fails with
// ErrInvalidInput, an unknown session, diner or menu item with
// ErrNotFound, a closed session with ErrClosed.
func (c *Coordinator) PlaceOrder(ctx context.Context, sessionID, dinerID string, items []OrderItem) ([]model.OrderDetail, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: items is required", ledger.ErrInvalidInput)
	}
	for _, it := range items {
		if it.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity must be at least 1", ledger.ErrInvalidInput)
		}
	}

	unlock := c.locks.acquire("session:" + sessionID)
	defer unlock()

	sess, err := c.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Closed() {
		return nil, ledger.ErrClosed
	}
	diner, err := c.store.GetDiner(ctx, dinerID)
	if err != nil || diner.SessionID != sessionID {
		return nil, ledger.ErrNotFound
	}

	now := time.Now().UTC()
	orders := make([]*model.Order, 0, len(items))
	ids := make(map[string]bool, len(items))
	for _, it := range items {
		if _, err := c.store.GetMenuItem(ctx, it.MenuItemID); err != nil {
			return nil, fmt.Errorf("menu item %s: %w", it.MenuItemID, ledger.ErrNotFound)
		}
		o := &model.Order{
			ID:         uuid.NewString(),
			SessionID:  sessionID,
			DinerID:    dinerID,
			MenuItemID: it.MenuItemID,
			Quantity:   it.Quantity,
			Notes:      it.Notes,
			Status:     model.OrderPending,
			CreatedAt:  now,
		}
		orders = append(orders, o)
		ids[o.ID] = true
	}
	if err := c.store.CreateOrders(ctx, orders); err != nil {
		return nil, err
	}

	all, err := c.store.ListOrders(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	placed := make([]model.OrderDetail, 0, len(orders))
	for _, det := range all {
		if ids[det.ID] {
			placed = append(placed, det)
		}
	}
	c.notify(sessionID, event.TypeOrdersUpdated)
	return placed, nil
}

// CreatePayment settles a set of orders in one payment.  The principal
// is the sum of the selected orders' price x quantity at current menu
// prices, computed here and frozen into the payment and its per-order
// attributions, which the store writes atomically.  Any order already
// attributed to an earlier payment fails the whole call with
// ErrConflict instead of silently re-charging.
func (c *Coordinator) CreatePayment(ctx context.Context, sessionID, dinerID string, orderIDs []string, tipCents int64, method string) (*model.PaymentDetail, error) {
	if len(orderIDs) == 0 {
		return nil, fmt.Errorf("%w: order_ids is required", ledger.ErrInvalidInput)
	}
	if tipCents < 0 {
		return nil, fmt.Errorf("%w: tip must not be negative", ledger.ErrInvalidInput)
	}
	unique := make([]string, 0, len(orderIDs))
	seen := make(map[string]bool, len(orderIDs))
	for _, id := range orderIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return nil, fmt.Errorf("%w: order_ids is required", ledger.ErrInvalidInput)
	}

	unlock := c.locks.acquire("session:" + sessionID)
	defer unlock()

	sess, err := c.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Closed() {
		return nil, ledger.ErrClosed
	}
	diner, err := c.store.GetDiner(ctx, dinerID)
	if err != nil || diner.SessionID != sessionID {
		return nil, ledger.ErrNotFound
	}

	amounts, err := c.store.OrderAmounts(ctx, sessionID, unique)
	if err != nil {
		return nil, err
	}
	if len(amounts) != len(unique) {
		return nil, fmt.Errorf("order does not exist in session: %w", ledger.ErrNotFound)
	}
	paid, err := c.store.PaidOrderIDs(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	settled := make(map[string]bool, len(paid))
	for _, id := range paid {
		settled[id] = true
	}
	for _, id := range unique {
		if settled[id] {
			return nil, ledger.ErrConflict
		}
	}

	if method == "" {
		method = "card"
	}
	payment := &model.Payment{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		DinerID:   dinerID,
		TipCents:  tipCents,
		Method:    method,
		Status:    model.PaymentCompleted,
		CreatedAt: time.Now().UTC(),
	}
	items := make([]model.PaymentItem, 0, len(amounts))
	for _, a := range amounts {
		payment.AmountCents += a.AmountCents
		items = append(items, model.PaymentItem{
			PaymentID:   payment.ID,
			OrderID:     a.OrderID,
			AmountCents: a.AmountCents,
		})
	}
	if err := c.store.CreatePayment(ctx, payment, items); err != nil {
		return nil, err
	}
	c.notify(sessionID, event.TypePaymentMade)
	return &model.PaymentDetail{Payment: *payment, DinerName: diner.Name}, nil
}

// Close transitions the session to closed.  Closing an already-closed
// session is a successful no-op; session:closed is emitted only on the
// actual transition.
func (c *Coordinator) Close(ctx context.Context, sessionID string) error {
	unlock := c.locks.acquire("session:" + sessionID)
	defer unlock()

	if _, err := c.store.GetSession(ctx, sessionID); err != nil {
		return err
	}
	closed, err := c.store.CloseSession(ctx, sessionID, time.Now().UTC())
	if err != nil {
		return err
	}
	if closed {
		c.notify(sessionID, event.TypeSessionClosed)
	}
	return nil
}

// State is the full read model of one session.
type State struct {
	Session  *model.Session        `json:"session"`
	Table    *model.Table          `json:"table"`
	Diners   []model.Diner         `json:"diners"`
	Orders   []model.OrderDetail   `json:"orders"`
	Payments []model.PaymentDetail `json:"payments"`
}

// GetState assembles the session, its table, diners, orders and
// payments.  Reads are not serialized against writes; each sub-read is
// an atomic snapshot and receivers of change events re-fetch through
// here.
func (c *Coordinator) GetState(ctx context.Context, sessionID string) (*State, error) {
	sess, err := c.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	table, err := c.store.GetTable(ctx, sess.TableID)
	if err != nil {
		return nil, err
	}
	diners, err := c.store.ListDiners(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	orders, err := c.store.ListOrders(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	payments, err := c.store.ListPayments(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &State{Session: sess, Table: table, Diners: diners, Orders: orders, Payments: payments}, nil
}

// PaidOrders returns the session's derived paid-order set.
func (c *Coordinator) PaidOrders(ctx context.Context, sessionID string) ([]string, error) {
	if _, err := c.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return c.store.PaidOrderIDs(ctx, sessionID)
}

// Quote is a split-calculator answer for one prospective payment.
type Quote struct {
	Mode        string `json:"mode"`
	AmountCents int64  `json:"amount"`
	TipCents    int64  `json:"tip"`
	TotalCents  int64  `json:"total"`
	Unpaid      int64  `json:"unpaid_total"`
	GrandTotal  int64  `json:"grand_total"`
}

// SplitQuote prices a prospective payment under the chosen mode without
// writing anything.  For items mode the caller supplies the order ids;
// equal and percent modes work off the whole session state.
func (c *Coordinator) SplitQuote(ctx context.Context, sessionID, mode string, orderIDs []string, percent, tipPct int) (*Quote, error) {
	m, err := split.ParseMode(mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrInvalidInput, err)
	}
	if _, err := c.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	orders, err := c.store.ListOrders(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	payments, err := c.store.ListPayments(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	diners, err := c.store.ListDiners(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	st := split.State{}
	for _, o := range orders {
		st.Orders = append(st.Orders, split.Order{ID: o.ID, DinerID: o.DinerID, AmountCents: o.AmountCents()})
	}
	for _, p := range payments {
		st.Payments = append(st.Payments, split.Payment{DinerID: p.DinerID, AmountCents: p.AmountCents})
	}
	for _, d := range diners {
		st.DinerIDs = append(st.DinerIDs, d.ID)
	}

	amount, err := split.Amount(st, split.Request{Mode: m, OrderIDs: orderIDs, Percent: percent})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrInvalidInput, err)
	}
	tip, err := split.Tip(amount, tipPct)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrInvalidInput, err)
	}
	return &Quote{
		Mode:        mode,
		AmountCents: amount,
		TipCents:    tip,
		TotalCents:  amount + tip,
		Unpaid:      split.UnpaidTotal(st),
		GrandTotal:  split.GrandTotal(st),
	}, nil
}
