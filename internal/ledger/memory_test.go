package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/easycheck/easycheck/internal/model"
)

func seedStore(t *testing.T) *MemoryStore {
	t.Helper()
	s := NewMemoryStore()
	s.SeedTable(model.Table{ID: "table-1", RestaurantID: "rest-1", Label: "Mesa 1"})
	s.SeedMenuItem(model.MenuItem{ID: "item-1", RestaurantID: "rest-1", Name: "Provoleta", PriceCents: 5200, Emoji: "🧀", Available: true})
	return s
}

func openSession(t *testing.T, s *MemoryStore, id, tableID, code string) *model.Session {
	t.Helper()
	sess := &model.Session{
		ID:           id,
		TableID:      tableID,
		RestaurantID: "rest-1",
		Status:       model.SessionOpen,
		InviteCode:   code,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.CreateSession(context.Background(), sess); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	return sess
}

func TestCreateSessionRejectsSecondOpenOnTable(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()
	openSession(t, s, "sess-1", "table-1", "AAAAAA")

	err := s.CreateSession(ctx, &model.Session{
		ID: "sess-2", TableID: "table-1", RestaurantID: "rest-1",
		Status: model.SessionOpen, InviteCode: "BBBBBB", CreatedAt: time.Now().UTC(),
	})
	if !errors.Is(err, ErrDuplicateOpenSession) {
		t.Fatalf("expected ErrDuplicateOpenSession, got %v", err)
	}

	// Once the first session closes, the table is free again.
	if _, err := s.CloseSession(ctx, "sess-1", time.Now().UTC()); err != nil {
		t.Fatalf("CloseSession: %v", err)
	}
	err = s.CreateSession(ctx, &model.Session{
		ID: "sess-2", TableID: "table-1", RestaurantID: "rest-1",
		Status: model.SessionOpen, InviteCode: "BBBBBB", CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create after close: %v", err)
	}
}

func TestCloseSessionReportsTransition(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()
	openSession(t, s, "sess-1", "table-1", "AAAAAA")

	closed, err := s.CloseSession(ctx, "sess-1", time.Now().UTC())
	if err != nil || !closed {
		t.Fatalf("first close: closed=%v err=%v", closed, err)
	}
	closed, err = s.CloseSession(ctx, "sess-1", time.Now().UTC())
	if err != nil {
		t.Fatalf("second close: %v", err)
	}
	if closed {
		t.Fatal("second close must not report a transition")
	}
	if _, err := s.CloseSession(ctx, "missing", time.Now().UTC()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown session, got %v", err)
	}

	sess, err := s.GetSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if sess.Status != model.SessionClosed || sess.ClosedAt == nil {
		t.Fatalf("close not recorded: %+v", sess)
	}
}

func TestOpenSessionLookups(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()
	openSession(t, s, "sess-1", "table-1", "AAAAAA")

	byTable, err := s.GetOpenSessionByTable(ctx, "table-1")
	if err != nil || byTable.ID != "sess-1" {
		t.Fatalf("GetOpenSessionByTable: %v %+v", err, byTable)
	}
	byCode, err := s.GetOpenSessionByCode(ctx, "AAAAAA")
	if err != nil || byCode.ID != "sess-1" {
		t.Fatalf("GetOpenSessionByCode: %v %+v", err, byCode)
	}

	if _, err := s.CloseSession(ctx, "sess-1", time.Now().UTC()); err != nil {
		t.Fatalf("CloseSession: %v", err)
	}
	// Closed sessions are invisible to both open-session lookups.
	if _, err := s.GetOpenSessionByTable(ctx, "table-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound by table, got %v", err)
	}
	if _, err := s.GetOpenSessionByCode(ctx, "AAAAAA"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound by code, got %v", err)
	}
}

func TestOrdersResolvePriceAtReadTime(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()
	openSession(t, s, "sess-1", "table-1", "AAAAAA")
	if err := s.CreateDiner(ctx, &model.Diner{ID: "diner-1", SessionID: "sess-1", Name: "Ana", JoinedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("CreateDiner: %v", err)
	}
	err := s.CreateOrders(ctx, []*model.Order{{
		ID: "order-1", SessionID: "sess-1", DinerID: "diner-1",
		MenuItemID: "item-1", Quantity: 2, Status: model.OrderPending, CreatedAt: time.Now().UTC(),
	}})
	if err != nil {
		t.Fatalf("CreateOrders: %v", err)
	}

	orders, err := s.ListOrders(ctx, "sess-1")
	if err != nil {
		t.Fatalf("ListOrders: %v", err)
	}
	if len(orders) != 1 || orders[0].AmountCents() != 10400 {
		t.Fatalf("expected one order at 10400, got %+v", orders)
	}
	if orders[0].DinerName != "Ana" || orders[0].ItemName != "Provoleta" {
		t.Fatalf("names not resolved: %+v", orders[0])
	}

	// A price change shows up in subsequent reads of the same order.
	s.SeedMenuItem(model.MenuItem{ID: "item-1", RestaurantID: "rest-1", Name: "Provoleta", PriceCents: 6000, Emoji: "🧀", Available: true})
	orders, err = s.ListOrders(ctx, "sess-1")
	if err != nil {
		t.Fatalf("ListOrders after reprice: %v", err)
	}
	if orders[0].AmountCents() != 12000 {
		t.Fatalf("expected repriced amount 12000, got %d", orders[0].AmountCents())
	}
}

func TestCreatePaymentIsAtomicOnConflict(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()
	openSession(t, s, "sess-1", "table-1", "AAAAAA")
	if err := s.CreateDiner(ctx, &model.Diner{ID: "diner-1", SessionID: "sess-1", Name: "Ana", JoinedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("CreateDiner: %v", err)
	}
	orders := []*model.Order{
		{ID: "order-1", SessionID: "sess-1", DinerID: "diner-1", MenuItemID: "item-1", Quantity: 1, Status: model.OrderPending, CreatedAt: time.Now().UTC()},
		{ID: "order-2", SessionID: "sess-1", DinerID: "diner-1", MenuItemID: "item-1", Quantity: 1, Status: model.OrderPending, CreatedAt: time.Now().UTC()},
	}
	if err := s.CreateOrders(ctx, orders); err != nil {
		t.Fatalf("CreateOrders: %v", err)
	}

	first := &model.Payment{ID: "pay-1", SessionID: "sess-1", DinerID: "diner-1", AmountCents: 5200, Status: model.PaymentCompleted, CreatedAt: time.Now().UTC()}
	err := s.CreatePayment(ctx, first, []model.PaymentItem{{PaymentID: "pay-1", OrderID: "order-1", AmountCents: 5200}})
	if err != nil {
		t.Fatalf("first payment: %v", err)
	}

	// The second payment overlaps order-1, so nothing of it may land.
	second := &model.Payment{ID: "pay-2", SessionID: "sess-1", DinerID: "diner-1", AmountCents: 10400, Status: model.PaymentCompleted, CreatedAt: time.Now().UTC()}
	err = s.CreatePayment(ctx, second, []model.PaymentItem{
		{PaymentID: "pay-2", OrderID: "order-2", AmountCents: 5200},
		{PaymentID: "pay-2", OrderID: "order-1", AmountCents: 5200},
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	paid, err := s.PaidOrderIDs(ctx, "sess-1")
	if err != nil {
		t.Fatalf("PaidOrderIDs: %v", err)
	}
	if len(paid) != 1 || paid[0] != "order-1" {
		t.Fatalf("expected only order-1 paid, got %v", paid)
	}
	payments, err := s.ListPayments(ctx, "sess-1")
	if err != nil {
		t.Fatalf("ListPayments: %v", err)
	}
	if len(payments) != 1 || payments[0].ID != "pay-1" {
		t.Fatalf("expected only pay-1 recorded, got %+v", payments)
	}
}

func TestOrderAmountsSkipsForeignOrders(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()
	openSession(t, s, "sess-1", "table-1", "AAAAAA")
	if err := s.CreateOrders(ctx, []*model.Order{
		{ID: "order-1", SessionID: "sess-1", DinerID: "diner-1", MenuItemID: "item-1", Quantity: 3, Status: model.OrderPending, CreatedAt: time.Now().UTC()},
	}); err != nil {
		t.Fatalf("CreateOrders: %v", err)
	}

	amounts, err := s.OrderAmounts(ctx, "sess-1", []string{"order-1", "order-elsewhere"})
	if err != nil {
		t.Fatalf("OrderAmounts: %v", err)
	}
	if len(amounts) != 1 {
		t.Fatalf("expected the unknown order to be dropped, got %+v", amounts)
	}
	if amounts[0].AmountCents != 15600 {
		t.Fatalf("expected 3x5200=15600, got %d", amounts[0].AmountCents)
	}
}
