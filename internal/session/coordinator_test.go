package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/easycheck/easycheck/internal/event"
	"github.com/easycheck/easycheck/internal/ledger"
	"github.com/easycheck/easycheck/internal/model"
)

// recordingNotifier captures published events and mirrors them onto a
// channel so tests can wait for delivery.
type recordingNotifier struct {
	mu     sync.Mutex
	events []event.Type
	ch     chan event.Type
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{ch: make(chan event.Type, 64)}
}

func (n *recordingNotifier) Publish(_ string, t event.Type) {
	n.mu.Lock()
	n.events = append(n.events, t)
	n.mu.Unlock()
	n.ch <- t
}

func (n *recordingNotifier) recorded() []event.Type {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]event.Type, len(n.events))
	copy(out, n.events)
	return out
}

func newTestCoordinator(t *testing.T) (*Coordinator, *ledger.MemoryStore, *recordingNotifier) {
	t.Helper()
	store := ledger.NewMemoryStore()
	store.SeedTable(model.Table{ID: "table-1", RestaurantID: "rest-1", Label: "Mesa 1"})
	store.SeedTable(model.Table{ID: "table-2", RestaurantID: "rest-1", Label: "Mesa 2"})
	store.SeedMenuItem(model.MenuItem{ID: "item-steak", RestaurantID: "rest-1", Name: "Bife de chorizo", PriceCents: 14500, Emoji: "🥩", Available: true})
	store.SeedMenuItem(model.MenuItem{ID: "item-flan", RestaurantID: "rest-1", Name: "Flan casero", PriceCents: 4500, Emoji: "🍮", Available: true})
	notifier := newRecordingNotifier()
	return NewCoordinator(store, notifier), store, notifier
}

func TestJoinByTableCreatesSessionWithHost(t *testing.T) {
	c, _, n := newTestCoordinator(t)
	ctx := context.Background()

	res, err := c.JoinByTable(ctx, "table-1", "Ana", "")
	if err != nil {
		t.Fatalf("JoinByTable: %v", err)
	}
	if !res.Created {
		t.Fatal("first join should create the session")
	}
	if res.Session.Status != model.SessionOpen {
		t.Fatalf("session status = %q, want open", res.Session.Status)
	}
	if res.Session.InviteCode == "" {
		t.Fatal("session has no invite code")
	}
	if !res.Diner.IsHost {
		t.Fatal("first diner of a created session must be host")
	}
	if res.Diner.Avatar != defaultAvatar {
		t.Fatalf("avatar = %q, want default", res.Diner.Avatar)
	}
	got := n.recorded()
	if len(got) != 1 || got[0] != event.TypeDinerJoined {
		t.Fatalf("events = %v, want [diner:joined]", got)
	}
}

func TestJoinByTableReusesOpenSession(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	ctx := context.Background()

	first, err := c.JoinByTable(ctx, "table-1", "Ana", "")
	if err != nil {
		t.Fatalf("first join: %v", err)
	}
	second, err := c.JoinByTable(ctx, "table-1", "Beto", "🦊")
	if err != nil {
		t.Fatalf("second join: %v", err)
	}
	if second.Created {
		t.Fatal("second join must not create a session")
	}
	if second.Session.ID != first.Session.ID {
		t.Fatalf("second join landed in session %s, want %s", second.Session.ID, first.Session.ID)
	}
	if second.Diner.IsHost {
		t.Fatal("later joiner must not be host")
	}
	if len(second.Diners) != 2 {
		t.Fatalf("diner count = %d, want 2", len(second.Diners))
	}
}

func TestConcurrentFirstJoinsCreateOneSession(t *testing.T) {
	c, store, _ := newTestCoordinator(t)
	ctx := context.Background()

	const joiners = 16
	results := make([]*JoinResult, joiners)
	var wg sync.WaitGroup
	for i := 0; i < joiners; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := c.JoinByTable(ctx, "table-1", "Diner", "")
			if err != nil {
				t.Errorf("join %d: %v", i, err)
				return
			}
			results[i] = res
		}(i)
	}
	wg.Wait()

	sessionID := results[0].Session.ID
	hosts := 0
	for _, res := range results {
		if res.Session.ID != sessionID {
			t.Fatalf("joins split across sessions %s and %s", sessionID, res.Session.ID)
		}
		if res.Diner.IsHost {
			hosts++
		}
	}
	if hosts != 1 {
		t.Fatalf("host count = %d, want exactly 1", hosts)
	}
	diners, err := store.ListDiners(ctx, sessionID)
	if err != nil {
		t.Fatalf("ListDiners: %v", err)
	}
	if len(diners) != joiners {
		t.Fatalf("diner count = %d, want %d", len(diners), joiners)
	}
}

func TestJoinByCode(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	ctx := context.Background()

	created, err := c.JoinByTable(ctx, "table-1", "Ana", "")
	if err != nil {
		t.Fatalf("JoinByTable: %v", err)
	}
	res, err := c.JoinByCode(ctx, created.Session.InviteCode, "Beto", "")
	if err != nil {
		t.Fatalf("JoinByCode: %v", err)
	}
	if res.Session.ID != created.Session.ID {
		t.Fatal("code join resolved the wrong session")
	}
	if res.Diner.IsHost {
		t.Fatal("code joiner must never be host")
	}
	if _, err := c.JoinByCode(ctx, "NOPE99", "Caro", ""); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("unknown code err = %v, want ErrNotFound", err)
	}
}

func TestJoinValidation(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	ctx := context.Background()

	if _, err := c.JoinByTable(ctx, "table-1", "  ", ""); !errors.Is(err, ledger.ErrInvalidInput) {
		t.Fatalf("blank name err = %v, want ErrInvalidInput", err)
	}
	if _, err := c.JoinByTable(ctx, "no-such-table", "Ana", ""); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("unknown table err = %v, want ErrNotFound", err)
	}
}

func TestPlaceOrderResolvesPrices(t *testing.T) {
	c, _, n := newTestCoordinator(t)
	ctx := context.Background()

	join, _ := c.JoinByTable(ctx, "table-1", "Ana", "")
	placed, err := c.PlaceOrder(ctx, join.Session.ID, join.Diner.ID, []OrderItem{
		{MenuItemID: "item-steak", Quantity: 2, Notes: "jugoso"},
		{MenuItemID: "item-flan", Quantity: 1},
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if len(placed) != 2 {
		t.Fatalf("placed %d orders, want 2", len(placed))
	}
	var total int64
	for _, o := range placed {
		total += o.AmountCents()
	}
	if total != 2*14500+4500 {
		t.Fatalf("batch total = %d, want %d", total, 2*14500+4500)
	}
	got := n.recorded()
	if got[len(got)-1] != event.TypeOrdersUpdated {
		t.Fatalf("last event = %v, want orders:updated", got[len(got)-1])
	}
	// One batch, one event: diner:joined plus orders:updated.
	if len(got) != 2 {
		t.Fatalf("event count = %d, want 2", len(got))
	}
}

func TestPlaceOrderValidation(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	ctx := context.Background()
	join, _ := c.JoinByTable(ctx, "table-1", "Ana", "")

	if _, err := c.PlaceOrder(ctx, join.Session.ID, join.Diner.ID, nil); !errors.Is(err, ledger.ErrInvalidInput) {
		t.Fatalf("empty items err = %v, want ErrInvalidInput", err)
	}
	if _, err := c.PlaceOrder(ctx, join.Session.ID, join.Diner.ID, []OrderItem{{MenuItemID: "item-flan", Quantity: 0}}); !errors.Is(err, ledger.ErrInvalidInput) {
		t.Fatalf("zero quantity err = %v, want ErrInvalidInput", err)
	}
	if _, err := c.PlaceOrder(ctx, join.Session.ID, join.Diner.ID, []OrderItem{{MenuItemID: "no-such-item", Quantity: 1}}); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("unknown item err = %v, want ErrNotFound", err)
	}
	if _, err := c.PlaceOrder(ctx, join.Session.ID, "no-such-diner", []OrderItem{{MenuItemID: "item-flan", Quantity: 1}}); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("unknown diner err = %v, want ErrNotFound", err)
	}
}

func TestCreatePaymentSettlesOrders(t *testing.T) {
	c, _, n := newTestCoordinator(t)
	ctx := context.Background()
	join, _ := c.JoinByTable(ctx, "table-1", "Ana", "")
	placed, _ := c.PlaceOrder(ctx, join.Session.ID, join.Diner.ID, []OrderItem{
		{MenuItemID: "item-steak", Quantity: 1},
		{MenuItemID: "item-flan", Quantity: 2},
	})

	ids := []string{placed[0].ID, placed[1].ID}
	payment, err := c.CreatePayment(ctx, join.Session.ID, join.Diner.ID, ids, 1500, "card")
	if err != nil {
		t.Fatalf("CreatePayment: %v", err)
	}
	want := int64(14500 + 2*4500)
	if payment.AmountCents != want {
		t.Fatalf("principal = %d, want %d", payment.AmountCents, want)
	}
	if payment.TipCents != 1500 {
		t.Fatalf("tip = %d, want 1500", payment.TipCents)
	}
	if payment.Status != model.PaymentCompleted {
		t.Fatalf("status = %q, want completed", payment.Status)
	}

	paid, err := c.PaidOrders(ctx, join.Session.ID)
	if err != nil {
		t.Fatalf("PaidOrders: %v", err)
	}
	if len(paid) != 2 {
		t.Fatalf("paid-order set size = %d, want 2", len(paid))
	}
	got := n.recorded()
	if got[len(got)-1] != event.TypePaymentMade {
		t.Fatalf("last event = %v, want payment:made", got[len(got)-1])
	}
}

func TestCreatePaymentConflictOnSettledOrder(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	ctx := context.Background()
	join, _ := c.JoinByTable(ctx, "table-1", "Ana", "")
	placed, _ := c.PlaceOrder(ctx, join.Session.ID, join.Diner.ID, []OrderItem{{MenuItemID: "item-flan", Quantity: 1}})

	if _, err := c.CreatePayment(ctx, join.Session.ID, join.Diner.ID, []string{placed[0].ID}, 0, ""); err != nil {
		t.Fatalf("first payment: %v", err)
	}
	if _, err := c.CreatePayment(ctx, join.Session.ID, join.Diner.ID, []string{placed[0].ID}, 0, ""); !errors.Is(err, ledger.ErrConflict) {
		t.Fatalf("second payment err = %v, want ErrConflict", err)
	}
}

func TestConcurrentPaymentsSettleOrderOnce(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	ctx := context.Background()
	join, _ := c.JoinByTable(ctx, "table-1", "Ana", "")
	placed, _ := c.PlaceOrder(ctx, join.Session.ID, join.Diner.ID, []OrderItem{{MenuItemID: "item-steak", Quantity: 1}})

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.CreatePayment(ctx, join.Session.ID, join.Diner.ID, []string{placed[0].ID}, 0, "")
		}(i)
	}
	wg.Wait()

	succeeded, conflicted := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ledger.ErrConflict):
			conflicted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 || conflicted != attempts-1 {
		t.Fatalf("succeeded=%d conflicted=%d, want 1 and %d", succeeded, conflicted, attempts-1)
	}
}

func TestCreatePaymentValidation(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	ctx := context.Background()
	join, _ := c.JoinByTable(ctx, "table-1", "Ana", "")
	placed, _ := c.PlaceOrder(ctx, join.Session.ID, join.Diner.ID, []OrderItem{{MenuItemID: "item-flan", Quantity: 1}})

	if _, err := c.CreatePayment(ctx, join.Session.ID, join.Diner.ID, nil, 0, ""); !errors.Is(err, ledger.ErrInvalidInput) {
		t.Fatalf("empty order ids err = %v, want ErrInvalidInput", err)
	}
	if _, err := c.CreatePayment(ctx, join.Session.ID, join.Diner.ID, []string{placed[0].ID}, -1, ""); !errors.Is(err, ledger.ErrInvalidInput) {
		t.Fatalf("negative tip err = %v, want ErrInvalidInput", err)
	}
	if _, err := c.CreatePayment(ctx, join.Session.ID, join.Diner.ID, []string{"no-such-order"}, 0, ""); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("foreign order err = %v, want ErrNotFound", err)
	}
}

func TestPaymentFreezesPriceAtSettlement(t *testing.T) {
	c, store, _ := newTestCoordinator(t)
	ctx := context.Background()
	join, _ := c.JoinByTable(ctx, "table-1", "Ana", "")
	placed, _ := c.PlaceOrder(ctx, join.Session.ID, join.Diner.ID, []OrderItem{
		{MenuItemID: "item-flan", Quantity: 1},
		{MenuItemID: "item-steak", Quantity: 1},
	})
	var flanOrder, steakOrder model.OrderDetail
	for _, o := range placed {
		if o.MenuItemID == "item-flan" {
			flanOrder = o
		} else {
			steakOrder = o
		}
	}

	payment, err := c.CreatePayment(ctx, join.Session.ID, join.Diner.ID, []string{flanOrder.ID}, 0, "")
	if err != nil {
		t.Fatalf("CreatePayment: %v", err)
	}
	if payment.AmountCents != 4500 {
		t.Fatalf("principal = %d, want 4500", payment.AmountCents)
	}

	// Reprice both items: the unpaid steak order re-resolves, the
	// settled flan payment keeps its frozen principal.
	store.SeedMenuItem(model.MenuItem{ID: "item-flan", RestaurantID: "rest-1", Name: "Flan casero", PriceCents: 9000, Emoji: "🍮", Available: true})
	store.SeedMenuItem(model.MenuItem{ID: "item-steak", RestaurantID: "rest-1", Name: "Bife de chorizo", PriceCents: 20000, Emoji: "🥩", Available: true})

	state, err := c.GetState(ctx, join.Session.ID)
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	for _, o := range state.Orders {
		if o.ID == steakOrder.ID && o.AmountCents() != 20000 {
			t.Fatalf("unpaid order amount = %d, want repriced 20000", o.AmountCents())
		}
	}
	if state.Payments[0].AmountCents != 4500 {
		t.Fatalf("settled principal = %d, want frozen 4500", state.Payments[0].AmountCents)
	}
}

func TestCloseIsIdempotentAndTerminal(t *testing.T) {
	c, _, n := newTestCoordinator(t)
	ctx := context.Background()
	join, _ := c.JoinByTable(ctx, "table-1", "Ana", "")
	placed, _ := c.PlaceOrder(ctx, join.Session.ID, join.Diner.ID, []OrderItem{{MenuItemID: "item-flan", Quantity: 1}})

	if err := c.Close(ctx, join.Session.ID); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := c.Close(ctx, join.Session.ID); err != nil {
		t.Fatalf("second close should be a no-op, got %v", err)
	}
	closes := 0
	for _, ev := range n.recorded() {
		if ev == event.TypeSessionClosed {
			closes++
		}
	}
	if closes != 1 {
		t.Fatalf("session:closed emitted %d times, want 1", closes)
	}

	if _, err := c.PlaceOrder(ctx, join.Session.ID, join.Diner.ID, []OrderItem{{MenuItemID: "item-flan", Quantity: 1}}); !errors.Is(err, ledger.ErrClosed) {
		t.Fatalf("placeOrder on closed err = %v, want ErrClosed", err)
	}
	if _, err := c.CreatePayment(ctx, join.Session.ID, join.Diner.ID, []string{placed[0].ID}, 0, ""); !errors.Is(err, ledger.ErrClosed) {
		t.Fatalf("createPayment on closed err = %v, want ErrClosed", err)
	}
	if _, err := c.JoinByCode(ctx, join.Session.InviteCode, "Beto", ""); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("join by code on closed err = %v, want ErrNotFound", err)
	}
	// A new table join opens a fresh session rather than reviving the
	// closed one.
	again, err := c.JoinByTable(ctx, "table-1", "Caro", "")
	if err != nil {
		t.Fatalf("join after close: %v", err)
	}
	if again.Session.ID == join.Session.ID {
		t.Fatal("closed session must not accept new joins")
	}
}

func TestReadAfterNotifySeesNewOrders(t *testing.T) {
	c, _, n := newTestCoordinator(t)
	ctx := context.Background()
	join, _ := c.JoinByTable(ctx, "table-1", "Ana", "")
	<-n.ch // diner:joined

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Subscriber discipline: treat the event as a freshness signal
		// and re-fetch the full state.
		ev := <-n.ch
		if ev != event.TypeOrdersUpdated {
			t.Errorf("event = %v, want orders:updated", ev)
			return
		}
		state, err := c.GetState(ctx, join.Session.ID)
		if err != nil {
			t.Errorf("GetState: %v", err)
			return
		}
		if len(state.Orders) != 1 {
			t.Errorf("orders after notify = %d, want 1", len(state.Orders))
		}
	}()

	if _, err := c.PlaceOrder(ctx, join.Session.ID, join.Diner.ID, []OrderItem{{MenuItemID: "item-flan", Quantity: 1}}); err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	<-done
}

func TestSplitQuote(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	ctx := context.Background()
	join, _ := c.JoinByTable(ctx, "table-1", "Ana", "")
	other, _ := c.JoinByCode(ctx, join.Session.InviteCode, "Beto", "")
	if _, err := c.PlaceOrder(ctx, join.Session.ID, join.Diner.ID, []OrderItem{{MenuItemID: "item-steak", Quantity: 1}}); err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if _, err := c.PlaceOrder(ctx, other.Session.ID, other.Diner.ID, []OrderItem{{MenuItemID: "item-flan", Quantity: 1}}); err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	quote, err := c.SplitQuote(ctx, join.Session.ID, "equal", nil, 0, 10)
	if err != nil {
		t.Fatalf("SplitQuote: %v", err)
	}
	wantAmount := int64((14500 + 4500 + 1) / 2) // ceil(19000/2)
	if quote.AmountCents != wantAmount {
		t.Fatalf("equal quote = %d, want %d", quote.AmountCents, wantAmount)
	}
	if quote.TotalCents != quote.AmountCents+quote.TipCents {
		t.Fatalf("total %d != amount %d + tip %d", quote.TotalCents, quote.AmountCents, quote.TipCents)
	}

	if _, err := c.SplitQuote(ctx, join.Session.ID, "ratio", nil, 0, 0); !errors.Is(err, ledger.ErrInvalidInput) {
		t.Fatalf("unknown mode err = %v, want ErrInvalidInput", err)
	}
	if _, err := c.SplitQuote(ctx, join.Session.ID, "percent", nil, 3, 0); !errors.Is(err, ledger.ErrInvalidInput) {
		t.Fatalf("bad percent err = %v, want ErrInvalidInput", err)
	}
}

// gatedStore delegates to a real store but pauses after resolving an
// open session by table, letting a test slip another mutation into the
// window between resolution and the diner insert.
type gatedStore struct {
	ledger.Store
	mu      sync.Mutex
	armed   bool
	entered chan struct{}
	release chan struct{}
}

func (s *gatedStore) GetOpenSessionByTable(ctx context.Context, tableID string) (*model.Session, error) {
	sess, err := s.Store.GetOpenSessionByTable(ctx, tableID)
	s.mu.Lock()
	armed := s.armed
	s.armed = false
	s.mu.Unlock()
	if armed && err == nil {
		close(s.entered)
		<-s.release
	}
	return sess, err
}

func TestJoinByTableRejectsRacingClose(t *testing.T) {
	store := ledger.NewMemoryStore()
	store.SeedTable(model.Table{ID: "table-1", RestaurantID: "rest-1", Label: "Mesa 1"})
	gated := &gatedStore{Store: store, entered: make(chan struct{}), release: make(chan struct{})}
	c := NewCoordinator(gated, newRecordingNotifier())
	ctx := context.Background()

	first, err := c.JoinByTable(ctx, "table-1", "Ana", "")
	if err != nil {
		t.Fatalf("first join: %v", err)
	}

	// Pause the next table join right after it resolves the open
	// session, close the session in the gap, then let the join resume.
	gated.mu.Lock()
	gated.armed = true
	gated.mu.Unlock()
	joinErr := make(chan error, 1)
	go func() {
		_, err := c.JoinByTable(ctx, "table-1", "Late", "")
		joinErr <- err
	}()
	<-gated.entered
	if err := c.Close(ctx, first.Session.ID); err != nil {
		t.Fatalf("close: %v", err)
	}
	close(gated.release)

	if err := <-joinErr; !errors.Is(err, ledger.ErrClosed) {
		t.Fatalf("join racing close err = %v, want ErrClosed", err)
	}
	diners, err := store.ListDiners(ctx, first.Session.ID)
	if err != nil {
		t.Fatalf("ListDiners: %v", err)
	}
	if len(diners) != 1 {
		t.Fatalf("closed session has %d diners, want the 1 from before close", len(diners))
	}
}
