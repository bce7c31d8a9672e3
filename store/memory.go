package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"storefront/model"
)

// MemoryStore is the process-wide in-memory arena. A single lock guards
// catalog, carts, users and orders, so each method is atomic.
type MemoryStore struct {
	mu sync.RWMutex

	products map[int64]model.Product
	items    map[int64]model.LineItem
	touched  map[string]time.Time // session id -> last cart mutation
	users    map[int64]model.User
	orders   map[int64]model.Order

	nextItemID  int64
	nextUserID  int64
	nextOrderID int64

	now func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(products []model.Product) *MemoryStore {
	s := &MemoryStore{
		products: make(map[int64]model.Product, len(products)),
		items:    map[int64]model.LineItem{},
		touched:  map[string]time.Time{},
		users:    map[int64]model.User{},
		orders:   map[int64]model.Order{},
		now:      time.Now,
	}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

func (s *MemoryStore) Close() error { return nil }

// PutProduct inserts or replaces a catalog record. Catalog maintenance is
// not exposed over HTTP; seeding and tests use this.
func (s *MemoryStore) PutProduct(p model.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

// DeleteProduct removes a catalog record without touching carts.
func (s *MemoryStore) DeleteProduct(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.products, id)
}

// --- catalog ---

func (s *MemoryStore) GetProduct(_ context.Context, id int64) (model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return model.Product{}, ErrProductNotFound
	}
	return p, nil
}

func (s *MemoryStore) ListProducts(_ context.Context, f ProductFilter) ([]model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Product, 0, len(s.products))
	for _, p := range s.products {
		if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
			continue
		}
		if f.Brand != "" && !strings.EqualFold(p.Brand, f.Brand) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- cart ---

func (s *MemoryStore) ListItems(_ context.Context, sessionID string) ([]model.CartLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked(sessionID)
}

func (s *MemoryStore) listLocked(sessionID string) ([]model.CartLine, error) {
	out := []model.CartLine{}
	for _, it := range s.items {
		if it.SessionID != sessionID {
			continue
		}
		p, ok := s.products[it.ProductID]
		if !ok {
			return nil, errors.Wrapf(ErrProductMissing, "session %s line %d product %d", sessionID, it.ID, it.ProductID)
		}
		out = append(out, model.CartLine{LineItem: it, Product: p})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) FindBySessionAndProduct(_ context.Context, sessionID string, productID int64) (model.LineItem, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.findLocked(sessionID, productID)
	return it, ok, nil
}

func (s *MemoryStore) findLocked(sessionID string, productID int64) (model.LineItem, bool) {
	for _, it := range s.items {
		if it.SessionID == sessionID && it.ProductID == productID {
			return it, true
		}
	}
	return model.LineItem{}, false
}

func (s *MemoryStore) GetItem(_ context.Context, id int64) (model.LineItem, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[id]
	return it, ok, nil
}

func (s *MemoryStore) AddItem(_ context.Context, sessionID string, productID int64, qty int) (model.LineItem, error) {
	if qty < 1 {
		return model.LineItem{}, ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[productID]; !ok {
		return model.LineItem{}, ErrProductNotFound
	}

	now := s.now()
	s.touched[sessionID] = now

	if it, ok := s.findLocked(sessionID, productID); ok {
		it.Quantity += qty
		it.UpdatedAt = now
		s.items[it.ID] = it
		return it, nil
	}

	s.nextItemID++
	it := model.LineItem{
		ID:        s.nextItemID,
		SessionID: sessionID,
		ProductID: productID,
		Quantity:  qty,
		UpdatedAt: now,
	}
	s.items[it.ID] = it
	return it, nil
}

func (s *MemoryStore) SetQuantity(_ context.Context, id int64, qty int) (model.LineItem, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[id]
	if !ok {
		return model.LineItem{}, false, ErrLineItemNotFound
	}
	now := s.now()
	s.touched[it.SessionID] = now

	if qty <= 0 {
		delete(s.items, id)
		return it, true, nil
	}
	it.Quantity = qty
	it.UpdatedAt = now
	s.items[id] = it
	return it, false, nil
}

func (s *MemoryStore) RemoveItem(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return false, nil
	}
	delete(s.items, id)
	s.touched[it.SessionID] = s.now()
	return true, nil
}

func (s *MemoryStore) ClearSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked(sessionID)
	return nil
}

// clearLocked drops the session's rows and its mutation time, and reports
// how many rows went.
func (s *MemoryStore) clearLocked(sessionID string) int {
	n := 0
	for id, it := range s.items {
		if it.SessionID == sessionID {
			delete(s.items, id)
			n++
		}
	}
	delete(s.touched, sessionID)
	return n
}

func (s *MemoryStore) SweepIdle(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for sid, at := range s.touched {
		if at.Before(before) && s.clearLocked(sid) > 0 {
			n++
		}
	}
	return n, nil
}

// --- users ---

func (s *MemoryStore) CreateUser(_ context.Context, u model.User) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return model.User{}, ErrEmailTaken
		}
	}
	s.nextUserID++
	u.ID = s.nextUserID
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return model.User{}, ErrUserNotFound
}

func (s *MemoryStore) GetUserByID(_ context.Context, id int64) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, ErrUserNotFound
	}
	return u, nil
}

func (s *MemoryStore) UpdateUser(_ context.Context, u model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return ErrUserNotFound
	}
	s.users[u.ID] = u
	return nil
}

// --- orders ---

// Checkout holds the arena lock from the cart read to the clear, so no
// write to the session can land in between.
func (s *MemoryStore) Checkout(_ context.Context, sessionID string, build OrderBuilder) (model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := s.listLocked(sessionID)
	if err != nil {
		return model.Order{}, err
	}
	o, err := build(lines)
	if err != nil {
		return model.Order{}, err
	}
	o.SessionID = sessionID
	o = s.createOrderLocked(o)
	s.clearLocked(sessionID)
	return o, nil
}

func (s *MemoryStore) createOrderLocked(o model.Order) model.Order {
	s.nextOrderID++
	o.ID = s.nextOrderID
	if o.CreatedAt.IsZero() {
		o.CreatedAt = s.now()
	}
	o.Items = append([]model.OrderItem(nil), o.Items...)
	s.orders[o.ID] = o
	return o
}

func (s *MemoryStore) GetOrder(_ context.Context, id int64) (model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return model.Order{}, ErrOrderNotFound
	}
	return o, nil
}
