// Package memory is an in-process repository.Store used for development and tests.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"marketplace-service/internal/domain"
	"marketplace-service/internal/repository"
)

// Store serializes all units of work behind one mutex. A unit of work runs
// against a copy of the state that replaces the live state only on success.
type Store struct {
	mu    sync.RWMutex
	state *state
}

var _ repository.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{state: newState()}
}

func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(work); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *Store) Close() error { return nil }

func (s *Store) GetItem(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.GetItem(ctx, id)
}

func (s *Store) GetItems(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.GetItems(ctx, ids)
}

func (s *Store) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.GetOrder(ctx, id)
}

func (s *Store) ListOrdersByBuyer(ctx context.Context, buyerID uuid.UUID) ([]*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ListOrdersByBuyer(ctx, buyerID)
}

func (s *Store) ListOrdersBySeller(ctx context.Context, sellerID uuid.UUID) ([]*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ListOrdersBySeller(ctx, sellerID)
}

func (s *Store) GetDeliveryProfile(ctx context.Context, sellerID uuid.UUID) (*domain.SellerDeliveryProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.GetDeliveryProfile(ctx, sellerID)
}

func (s *Store) GetAccount(ctx context.Context, userID uuid.UUID) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.GetAccount(ctx, userID)
}

func (s *Store) ListComments(ctx context.Context, itemID uuid.UUID) ([]*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ListComments(ctx, itemID)
}

// state holds the records. Every value handed out is a copy.
type state struct {
	items    map[uuid.UUID]domain.Item
	orders   map[uuid.UUID]*domain.Order
	profiles map[uuid.UUID]*domain.SellerDeliveryProfile
	accounts map[uuid.UUID]domain.Account
	comments map[uuid.UUID][]domain.Comment
}

func newState() *state {
	return &state{
		items:    make(map[uuid.UUID]domain.Item),
		orders:   make(map[uuid.UUID]*domain.Order),
		profiles: make(map[uuid.UUID]*domain.SellerDeliveryProfile),
		accounts: make(map[uuid.UUID]domain.Account),
		comments: make(map[uuid.UUID][]domain.Comment),
	}
}

// clone copies the maps. Orders and profiles are replaced, never mutated in
// place, so sharing their pointers between generations is safe.
func (st *state) clone() *state {
	comments := make(map[uuid.UUID][]domain.Comment, len(st.comments))
	for id, list := range st.comments {
		comments[id] = slices.Clone(list)
	}
	return &state{
		items:    maps.Clone(st.items),
		orders:   maps.Clone(st.orders),
		profiles: maps.Clone(st.profiles),
		accounts: maps.Clone(st.accounts),
		comments: comments,
	}
}

func copyOrder(o *domain.Order) *domain.Order {
	cp := *o
	cp.Items = slices.Clone(o.Items)
	return &cp
}

func copyProfile(p *domain.SellerDeliveryProfile) *domain.SellerDeliveryProfile {
	cp := *p
	cp.ServiceableCities = slices.Clone(p.ServiceableCities)
	if p.Location != nil {
		loc := *p.Location
		cp.Location = &loc
	}
	return &cp
}

func (st *state) GetItem(_ context.Context, id uuid.UUID) (*domain.Item, error) {
	item, ok := st.items[id]
	if !ok {
		return nil, domain.NewItemNotFound(id)
	}
	return &item, nil
}

func (st *state) GetItems(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Item, error) {
	out := make(map[uuid.UUID]*domain.Item, len(ids))
	for _, id := range ids {
		if item, ok := st.items[id]; ok {
			out[id] = &item
		}
	}
	return out, nil
}

func (st *state) GetOrder(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	o, ok := st.orders[id]
	if !ok {
		return nil, domain.NewOrderNotFound(id)
	}
	return copyOrder(o), nil
}

func (st *state) listOrders(match func(o *domain.Order) bool) []*domain.Order {
	out := make([]*domain.Order, 0)
	for _, o := range st.orders {
		if match(o) {
			out = append(out, copyOrder(o))
		}
	}
	slices.SortFunc(out, func(a, b *domain.Order) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return slices.Compare(b.ID[:], a.ID[:])
	})
	return out
}

func (st *state) ListOrdersByBuyer(_ context.Context, buyerID uuid.UUID) ([]*domain.Order, error) {
	return st.listOrders(func(o *domain.Order) bool { return o.BuyerID == buyerID }), nil
}

func (st *state) ListOrdersBySeller(_ context.Context, sellerID uuid.UUID) ([]*domain.Order, error) {
	return st.listOrders(func(o *domain.Order) bool { return o.SellerID == sellerID }), nil
}

func (st *state) GetDeliveryProfile(_ context.Context, sellerID uuid.UUID) (*domain.SellerDeliveryProfile, error) {
	p, ok := st.profiles[sellerID]
	if !ok {
		return nil, domain.NewProfileNotFound(sellerID)
	}
	return copyProfile(p), nil
}

func (st *state) GetAccount(_ context.Context, userID uuid.UUID) (*domain.Account, error) {
	acc, ok := st.accounts[userID]
	if !ok {
		return &domain.Account{UserID: userID}, nil
	}
	return &acc, nil
}

func (st *state) ListComments(_ context.Context, itemID uuid.UUID) ([]*domain.Comment, error) {
	list := st.comments[itemID]
	out := make([]*domain.Comment, 0, len(list))
	for i := range list {
		c := list[i]
		out = append(out, &c)
	}
	return out, nil
}

func (st *state) InsertItem(_ context.Context, item *domain.Item) error {
	if _, exists := st.items[item.ID]; exists {
		return domain.ErrConflict
	}
	st.items[item.ID] = *item
	return nil
}

func (st *state) UpdateItemPrice(_ context.Context, id uuid.UUID, price decimal.Decimal, at time.Time) error {
	item, ok := st.items[id]
	if !ok {
		return domain.NewItemNotFound(id)
	}
	item.Price = price
	item.UpdatedAt = at
	item.Version++
	st.items[id] = item
	return nil
}

func (st *state) DeleteItem(_ context.Context, id uuid.UUID) error {
	if _, ok := st.items[id]; !ok {
		return domain.NewItemNotFound(id)
	}
	delete(st.items, id)
	delete(st.comments, id)
	return nil
}

func (st *state) CountOpenOrdersForItem(_ context.Context, itemID uuid.UUID) (int, error) {
	count := 0
	for _, o := range st.orders {
		if !o.Status.Terminal() && o.ContainsItem(itemID) {
			count++
		}
	}
	return count, nil
}

func (st *state) ReserveStock(_ context.Context, itemID uuid.UUID, qty int, at time.Time) error {
	item, ok := st.items[itemID]
	if !ok {
		return domain.NewItemNotFound(itemID)
	}
	if err := item.Reserve(qty); err != nil {
		return err
	}
	item.UpdatedAt = at
	st.items[itemID] = item
	return nil
}

func (st *state) RestoreStock(_ context.Context, itemID uuid.UUID, qty int, at time.Time) error {
	item, ok := st.items[itemID]
	if !ok {
		return domain.NewItemNotFound(itemID)
	}
	if err := item.Restore(qty); err != nil {
		return err
	}
	item.UpdatedAt = at
	st.items[itemID] = item
	return nil
}

func (st *state) ApplyRating(_ context.Context, itemID uuid.UUID, rating int, at time.Time) (*domain.Item, error) {
	item, ok := st.items[itemID]
	if !ok {
		return nil, domain.NewItemNotFound(itemID)
	}
	if err := item.ApplyRating(rating); err != nil {
		return nil, err
	}
	item.UpdatedAt = at
	st.items[itemID] = item
	return &item, nil
}

func (st *state) InsertOrder(_ context.Context, order *domain.Order) error {
	if _, exists := st.orders[order.ID]; exists {
		return domain.ErrConflict
	}
	st.orders[order.ID] = copyOrder(order)
	return nil
}

func (st *state) UpdateOrderStatus(_ context.Context, id uuid.UUID, from, to domain.OrderStatus, at time.Time) error {
	o, ok := st.orders[id]
	if !ok {
		return domain.NewOrderNotFound(id)
	}
	if o.Status != from {
		return domain.ErrConflict
	}
	updated := copyOrder(o)
	updated.Status = to
	updated.UpdatedAt = at
	st.orders[id] = updated
	return nil
}

func (st *state) IncrementRefundCount(_ context.Context, userID uuid.UUID, at time.Time) error {
	acc := st.accounts[userID]
	acc.UserID = userID
	acc.RefundCount++
	acc.UpdatedAt = at
	st.accounts[userID] = acc
	return nil
}

func (st *state) InsertComment(_ context.Context, comment *domain.Comment) error {
	if _, ok := st.items[comment.ItemID]; !ok {
		return domain.NewItemNotFound(comment.ItemID)
	}
	st.comments[comment.ItemID] = append(st.comments[comment.ItemID], *comment)
	return nil
}

func (st *state) UpsertDeliveryProfile(_ context.Context, profile *domain.SellerDeliveryProfile) error {
	st.profiles[profile.SellerID] = copyProfile(profile)
	return nil
}
