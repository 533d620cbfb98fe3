// Package repository defines the persistence contract shared by the memory,
// SQLite and Postgres stores.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"marketplace-service/internal/domain"
)

// Reader is the read side of a store. Missing records are reported with
// errors wrapping domain.ErrNotFound.
type Reader interface {
	GetItem(ctx context.Context, id uuid.UUID) (*domain.Item, error)
	// GetItems returns the items found, keyed by id. Missing ids are absent from the map.
	GetItems(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Item, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	// ListOrdersByBuyer and ListOrdersBySeller return newest first.
	ListOrdersByBuyer(ctx context.Context, buyerID uuid.UUID) ([]*domain.Order, error)
	ListOrdersBySeller(ctx context.Context, sellerID uuid.UUID) ([]*domain.Order, error)
	GetDeliveryProfile(ctx context.Context, sellerID uuid.UUID) (*domain.SellerDeliveryProfile, error)
	// GetAccount returns a zero account for users that never had a counter written.
	GetAccount(ctx context.Context, userID uuid.UUID) (*domain.Account, error)
	// ListComments returns the comments of an item, oldest first.
	ListComments(ctx context.Context, itemID uuid.UUID) ([]*domain.Comment, error)
}

// Tx is a unit of work. Everything written through one Tx commits or rolls back together.
type Tx interface {
	Reader

	InsertItem(ctx context.Context, item *domain.Item) error
	UpdateItemPrice(ctx context.Context, id uuid.UUID, price decimal.Decimal, at time.Time) error
	DeleteItem(ctx context.Context, id uuid.UUID) error
	CountOpenOrdersForItem(ctx context.Context, itemID uuid.UUID) (int, error)

	// ReserveStock atomically decrements stock if at least qty units are left.
	// Otherwise it returns *domain.InsufficientStockError with the stock seen.
	ReserveStock(ctx context.Context, itemID uuid.UUID, qty int, at time.Time) error
	// RestoreStock adds qty units back unconditionally.
	RestoreStock(ctx context.Context, itemID uuid.UUID, qty int, at time.Time) error
	// ApplyRating folds rating into the running average in one atomic write
	// and returns the updated item.
	ApplyRating(ctx context.Context, itemID uuid.UUID, rating int, at time.Time) (*domain.Item, error)

	InsertOrder(ctx context.Context, order *domain.Order) error
	// UpdateOrderStatus is a compare-and-set on the status column. It returns
	// domain.ErrConflict when the stored status is no longer from.
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus, at time.Time) error

	IncrementRefundCount(ctx context.Context, userID uuid.UUID, at time.Time) error
	InsertComment(ctx context.Context, comment *domain.Comment) error
	UpsertDeliveryProfile(ctx context.Context, profile *domain.SellerDeliveryProfile) error
}

// Store is the entry point of a persistence adapter.
type Store interface {
	Reader
	// WithTx runs fn in a unit of work. It commits when fn returns nil and
	// rolls back otherwise. fn must only use tx for data access.
	WithTx(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}
