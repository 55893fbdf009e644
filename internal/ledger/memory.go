package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/easycheck/easycheck/internal/model"
)

// MemoryStore is an in-memory Store used by tests and local development.
// A single mutex makes every method atomic, which mirrors the snapshot
// guarantees of the MySQL adapter: a payment and its attributions become
// visible together or not at all.
type MemoryStore struct {
	mu        sync.RWMutex
	sessions  map[string]*model.Session
	diners    map[string]*model.Diner
	orders    map[string]*model.Order
	payments  map[string]*model.Payment
	items     map[string][]model.PaymentItem // payment id -> attributions
	paid      map[string]string              // order id -> payment id
	tables    map[string]*model.Table
	menuItems map[string]*model.MenuItem
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions:  make(map[string]*model.Session),
		diners:    make(map[string]*model.Diner),
		orders:    make(map[string]*model.Order),
		payments:  make(map[string]*model.Payment),
		items:     make(map[string][]model.PaymentItem),
		paid:      make(map[string]string),
		tables:    make(map[string]*model.Table),
		menuItems: make(map[string]*model.MenuItem),
	}
}

// SeedTable registers a table in the catalog.
func (s *MemoryStore) SeedTable(t model.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := t
	s.tables[t.ID] = &cp
}

// SeedMenuItem registers a menu item.  Re-seeding an existing id
// replaces it, which is how tests model a menu price change.
func (s *MemoryStore) SeedMenuItem(mi model.MenuItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := mi
	s.menuItems[mi.ID] = &cp
}

func (s *MemoryStore) CreateSession(_ context.Context, sess *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.sessions {
		if existing.TableID == sess.TableID && existing.Status == model.SessionOpen {
			return ErrDuplicateOpenSession
		}
	}
	cp := *sess
	s.sessions[sess.ID] = &cp
	return nil
}

func (s *MemoryStore) GetSession(_ context.Context, id string) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *sess
	return &cp, nil
}

func (s *MemoryStore) GetOpenSessionByTable(_ context.Context, tableID string) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sess := range s.sessions {
		if sess.TableID == tableID && sess.Status == model.SessionOpen {
			cp := *sess
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) GetOpenSessionByCode(_ context.Context, code string) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sess := range s.sessions {
		if sess.InviteCode == code && sess.Status == model.SessionOpen {
			cp := *sess
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) CloseSession(_ context.Context, id string, closedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return false, ErrNotFound
	}
	if sess.Status == model.SessionClosed {
		return false, nil
	}
	sess.Status = model.SessionClosed
	t := closedAt
	sess.ClosedAt = &t
	return true, nil
}

func (s *MemoryStore) CreateDiner(_ context.Context, d *model.Diner) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *d
	s.diners[d.ID] = &cp
	return nil
}

func (s *MemoryStore) GetDiner(_ context.Context, id string) (*model.Diner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.diners[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (s *MemoryStore) ListDiners(_ context.Context, sessionID string) ([]model.Diner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	diners := make([]model.Diner, 0)
	for _, d := range s.diners {
		if d.SessionID == sessionID {
			diners = append(diners, *d)
		}
	}
	sort.Slice(diners, func(i, j int) bool {
		if diners[i].JoinedAt.Equal(diners[j].JoinedAt) {
			return diners[i].ID < diners[j].ID
		}
		return diners[i].JoinedAt.Before(diners[j].JoinedAt)
	})
	return diners, nil
}

func (s *MemoryStore) CreateOrders(_ context.Context, orders []*model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range orders {
		cp := *o
		s.orders[o.ID] = &cp
	}
	return nil
}

func (s *MemoryStore) ListOrders(_ context.Context, sessionID string) ([]model.OrderDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	details := make([]model.OrderDetail, 0)
	for _, o := range s.orders {
		if o.SessionID != sessionID {
			continue
		}
		mi, ok := s.menuItems[o.MenuItemID]
		if !ok {
			continue
		}
		det := model.OrderDetail{Order: *o, ItemName: mi.Name, ItemEmoji: mi.Emoji, PriceCents: mi.PriceCents}
		if d, ok := s.diners[o.DinerID]; ok {
			det.DinerName = d.Name
		}
		details = append(details, det)
	}
	// Stable order for deterministic reads.
	sort.Slice(details, func(i, j int) bool {
		if details[i].CreatedAt.Equal(details[j].CreatedAt) {
			return details[i].ID < details[j].ID
		}
		return details[i].CreatedAt.Before(details[j].CreatedAt)
	})
	return details, nil
}

func (s *MemoryStore) OrderAmounts(_ context.Context, sessionID string, orderIDs []string) ([]OrderAmount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	amounts := make([]OrderAmount, 0, len(orderIDs))
	for _, id := range orderIDs {
		o, ok := s.orders[id]
		if !ok || o.SessionID != sessionID {
			continue
		}
		mi, ok := s.menuItems[o.MenuItemID]
		if !ok {
			continue
		}
		amounts = append(amounts, OrderAmount{
			OrderID:     o.ID,
			DinerID:     o.DinerID,
			AmountCents: mi.PriceCents * int64(o.Quantity),
		})
	}
	return amounts, nil
}

func (s *MemoryStore) CreatePayment(_ context.Context, p *model.Payment, items []model.PaymentItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range items {
		if _, settled := s.paid[it.OrderID]; settled {
			return ErrConflict
		}
	}
	cp := *p
	s.payments[p.ID] = &cp
	attributions := make([]model.PaymentItem, len(items))
	copy(attributions, items)
	s.items[p.ID] = attributions
	for _, it := range items {
		s.paid[it.OrderID] = p.ID
	}
	return nil
}

func (s *MemoryStore) ListPayments(_ context.Context, sessionID string) ([]model.PaymentDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	payments := make([]model.PaymentDetail, 0)
	for _, p := range s.payments {
		if p.SessionID != sessionID {
			continue
		}
		det := model.PaymentDetail{Payment: *p}
		if d, ok := s.diners[p.DinerID]; ok {
			det.DinerName = d.Name
		}
		payments = append(payments, det)
	}
	sort.Slice(payments, func(i, j int) bool {
		if payments[i].CreatedAt.Equal(payments[j].CreatedAt) {
			return payments[i].ID < payments[j].ID
		}
		return payments[i].CreatedAt.Before(payments[j].CreatedAt)
	})
	return payments, nil
}

func (s *MemoryStore) PaidOrderIDs(_ context.Context, sessionID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0)
	for orderID, paymentID := range s.paid {
		p, ok := s.payments[paymentID]
		if ok && p.SessionID == sessionID {
			ids = append(ids, orderID)
		}
	}
	return ids, nil
}

func (s *MemoryStore) GetTable(_ context.Context, id string) (*model.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *MemoryStore) GetMenuItem(_ context.Context, id string) (*model.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mi, ok := s.menuItems[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *mi
	return &cp, nil
}
