package commands

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"marketplace-service/internal/domain"
)

// LineRequest is one requested (item, quantity) pair of a new order.
type LineRequest struct {
	ItemID   uuid.UUID
	Quantity int
}

// CreateOrderCommand represents a buyer placing an order.
// A nil DeliveryFee is quoted from the seller's profile when Destination is set,
// and defaults to zero otherwise.
type CreateOrderCommand struct {
	BuyerID     uuid.UUID
	Items       []LineRequest
	DeliveryFee *decimal.Decimal
	Destination *domain.Destination
}

// TransitionOrderCommand represents an actor moving an order to a new status.
type TransitionOrderCommand struct {
	OrderID uuid.UUID
	ActorID uuid.UUID
	Role    domain.Role
	Target  domain.OrderStatus
}

// RecordReviewCommand represents a buyer commenting on (and optionally rating) an item.
type RecordReviewCommand struct {
	ItemID  uuid.UUID
	BuyerID uuid.UUID
	OrderID *uuid.UUID
	Text    string
	Rating  *int
}

// CreateItemCommand represents a seller listing a new item.
type CreateItemCommand struct {
	SellerID     uuid.UUID
	Title        string
	Price        decimal.Decimal
	Stock        int
	Category     string
	DeliveryDays int
}

// UpdateItemPriceCommand represents a seller repricing an item. Existing orders keep their snapshot.
type UpdateItemPriceCommand struct {
	ItemID   uuid.UUID
	SellerID uuid.UUID
	Price    decimal.Decimal
}

// RestockItemCommand represents a seller adding units to an item.
type RestockItemCommand struct {
	ItemID   uuid.UUID
	SellerID uuid.UUID
	Quantity int
}

// DeleteItemCommand represents a seller removing an item
type DeleteItemCommand struct {
	ItemID   uuid.UUID
	SellerID uuid.UUID
}

// UpsertDeliveryProfileCommand represents a seller replacing their delivery settings.
type UpsertDeliveryProfileCommand struct {
	SellerID           uuid.UUID
	Location           *domain.GeoPoint
	ServiceableCities  []string
	MaxDeliveryRangeKm float64
	BaseDeliveryFee    decimal.Decimal
	PricePerKm         decimal.Decimal
}
