package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

type OrderStatus string

// remember to add new statuses to the validOrderStatuses map
const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusAccepted  OrderStatus = "accepted"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var validOrderStatuses = map[OrderStatus]struct{}{
	OrderStatusPending:   {},
	OrderStatusAccepted:  {},
	OrderStatusShipped:   {},
	OrderStatusDelivered: {},
	OrderStatusCancelled: {},
}

func ToOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(s)
	if _, ok := validOrderStatuses[status]; ok {
		return status, nil
	}

	return "", errors.New("invalid order status")
}

// Terminal reports whether no transition can leave the status.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// OpenOrderStatuses lists the statuses of orders that still hold an item.
func OpenOrderStatuses() []OrderStatus {
	return []OrderStatus{OrderStatusPending, OrderStatusAccepted, OrderStatusShipped}
}

// LineItem is one (item, quantity, snapshot price) triple.
type LineItem struct {
	ItemID    uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
}

// LineTotal is quantity times the snapshot price.
func (l LineItem) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Order is scoped to the items of a single seller.
type Order struct {
	ID          uuid.UUID
	BuyerID     uuid.UUID
	SellerID    uuid.UUID
	Items       []LineItem
	DeliveryFee decimal.Decimal
	TotalPrice  decimal.Decimal
	Status      OrderStatus

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewOrder builds a pending order and computes its total from the snapshot prices.
func NewOrder(buyerID, sellerID uuid.UUID, lines []LineItem, deliveryFee decimal.Decimal, now time.Time) (*Order, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyOrder
	}
	if !IsMoney(deliveryFee) {
		return nil, ErrInvalidFee
	}
	for _, l := range lines {
		if l.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}
		if !IsMoney(l.UnitPrice) {
			return nil, ErrInvalidPrice
		}
	}

	o := &Order{
		ID:          uuid.New(),
		BuyerID:     buyerID,
		SellerID:    sellerID,
		Items:       lines,
		DeliveryFee: deliveryFee,
		Status:      OrderStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	o.TotalPrice = o.ComputeTotal()
	return o, nil
}

// ComputeTotal returns the sum of line totals plus the delivery fee.
func (o *Order) ComputeTotal() decimal.Decimal {
	subtotal := lo.Reduce(o.Items, func(acc decimal.Decimal, l LineItem, _ int) decimal.Decimal {
		return acc.Add(l.LineTotal())
	}, decimal.Zero)
	return subtotal.Add(o.DeliveryFee)
}

// ContainsItem reports whether the order has a line for itemID.
func (o *Order) ContainsItem(itemID uuid.UUID) bool {
	return lo.ContainsBy(o.Items, func(l LineItem) bool { return l.ItemID == itemID })
}

// InvolvesActor reports whether the user is the buyer or the seller of the order.
func (o *Order) InvolvesActor(actorID uuid.UUID) bool {
	return actorID != uuid.Nil && (o.BuyerID == actorID || o.SellerID == actorID)
}
