package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"marketplace-service/internal/domain"
)

// Stream groups events that share a Kafka topic.
type Stream int

const (
	StreamOrders Stream = iota
	StreamCatalog
)

// Event types, carried in the event-type header.
const (
	TypeOrderCreated         = "OrderCreated"
	TypeOrderStatusChanged   = "OrderStatusChanged"
	TypeOrderCancelled       = "OrderCancelled"
	TypeReviewRecorded       = "ReviewRecorded"
	TypeItemCreated          = "ItemCreated"
	TypeItemPriceChanged     = "ItemPriceChanged"
	TypeItemDeleted          = "ItemDeleted"
	TypeStockRestocked       = "StockRestocked"
	TypeSellerProfileUpdated = "SellerProfileUpdated"
)

// ErrUnknownEventType is returned by Decode for types it has no decoder for.
var ErrUnknownEventType = errors.New("unknown event type")

// Event is a domain event published after a committed unit of work.
type Event interface {
	EventType() string
	Stream() Stream
	// PartitionKey keeps events of one aggregate ordered within a partition.
	PartitionKey() string
}

type StockLine struct {
	ItemID   uuid.UUID `json:"item_id"`
	Quantity int       `json:"quantity"`
}

type OrderLine struct {
	ItemID    uuid.UUID       `json:"item_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type OrderCreatedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	BuyerID     uuid.UUID       `json:"buyer_id"`
	SellerID    uuid.UUID       `json:"seller_id"`
	Items       []OrderLine     `json:"items"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

func NewOrderCreated(o *domain.Order) OrderCreatedEvent {
	return OrderCreatedEvent{
		OrderID:  o.ID,
		BuyerID:  o.BuyerID,
		SellerID: o.SellerID,
		Items: lo.Map(o.Items, func(l domain.LineItem, _ int) OrderLine {
			return OrderLine{ItemID: l.ItemID, Quantity: l.Quantity, UnitPrice: l.UnitPrice}
		}),
		DeliveryFee: o.DeliveryFee,
		TotalPrice:  o.TotalPrice,
		OccurredAt:  o.CreatedAt,
	}
}

func (e OrderCreatedEvent) EventType() string { return TypeOrderCreated }
func (e OrderCreatedEvent) Stream() Stream { return StreamOrders }
func (e OrderCreatedEvent) PartitionKey() string { return e.OrderID.String() }

type OrderStatusChangedEvent struct {
	OrderID    uuid.UUID          `json:"order_id"`
	BuyerID    uuid.UUID          `json:"buyer_id"`
	SellerID   uuid.UUID          `json:"seller_id"`
	ActorID    uuid.UUID          `json:"actor_id"`
	From       domain.OrderStatus `json:"from"`
	To         domain.OrderStatus `json:"to"`
	OccurredAt time.Time          `json:"occurred_at"`
}

func (e OrderStatusChangedEvent) EventType() string { return TypeOrderStatusChanged }
func (e OrderStatusChangedEvent) Stream() Stream { return StreamOrders }
func (e OrderStatusChangedEvent) PartitionKey() string { return e.OrderID.String() }

// OrderCancelledEvent lists the quantities put back on the shelf.
type OrderCancelledEvent struct {
	OrderID    uuid.UUID   `json:"order_id"`
	BuyerID    uuid.UUID   `json:"buyer_id"`
	SellerID   uuid.UUID   `json:"seller_id"`
	ActorID    uuid.UUID   `json:"actor_id"`
	Restored   []StockLine `json:"restored"`
	OccurredAt time.Time   `json:"occurred_at"`
}

func (e OrderCancelledEvent) EventType() string { return TypeOrderCancelled }
func (e OrderCancelledEvent) Stream() Stream { return StreamOrders }
func (e OrderCancelledEvent) PartitionKey() string { return e.OrderID.String() }

type ReviewRecordedEvent struct {
	CommentID     uuid.UUID `json:"comment_id"`
	ItemID        uuid.UUID `json:"item_id"`
	BuyerID       uuid.UUID `json:"buyer_id"`
	Rating        *int      `json:"rating,omitempty"`
	AvgRating     float64   `json:"avg_rating"`
	CommentsCount int       `json:"comments_count"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func (e ReviewRecordedEvent) EventType() string { return TypeReviewRecorded }
func (e ReviewRecordedEvent) Stream() Stream { return StreamCatalog }
func (e ReviewRecordedEvent) PartitionKey() string { return e.ItemID.String() }

type ItemCreatedEvent struct {
	ItemID     uuid.UUID       `json:"item_id"`
	SellerID   uuid.UUID       `json:"seller_id"`
	Title      string          `json:"title"`
	Price      decimal.Decimal `json:"price"`
	Stock      int             `json:"stock"`
	OccurredAt time.Time       `json:"occurred_at"`
}

func (e ItemCreatedEvent) EventType() string { return TypeItemCreated }
func (e ItemCreatedEvent) Stream() Stream { return StreamCatalog }
func (e ItemCreatedEvent) PartitionKey() string { return e.ItemID.String() }

type ItemPriceChangedEvent struct {
	ItemID     uuid.UUID       `json:"item_id"`
	SellerID   uuid.UUID       `json:"seller_id"`
	OldPrice   decimal.Decimal `json:"old_price"`
	NewPrice   decimal.Decimal `json:"new_price"`
	OccurredAt time.Time       `json:"occurred_at"`
}

func (e ItemPriceChangedEvent) EventType() string { return TypeItemPriceChanged }
func (e ItemPriceChangedEvent) Stream() Stream { return StreamCatalog }
func (e ItemPriceChangedEvent) PartitionKey() string { return e.ItemID.String() }

type ItemDeletedEvent struct {
	ItemID     uuid.UUID `json:"item_id"`
	SellerID   uuid.UUID `json:"seller_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (e ItemDeletedEvent) EventType() string { return TypeItemDeleted }
func (e ItemDeletedEvent) Stream() Stream { return StreamCatalog }
func (e ItemDeletedEvent) PartitionKey() string { return e.ItemID.String() }

type StockRestockedEvent struct {
	ItemID     uuid.UUID `json:"item_id"`
	SellerID   uuid.UUID `json:"seller_id"`
	Quantity   int       `json:"quantity"`
	NewStock   int       `json:"new_stock"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (e StockRestockedEvent) EventType() string { return TypeStockRestocked }
func (e StockRestockedEvent) Stream() Stream { return StreamCatalog }
func (e StockRestockedEvent) PartitionKey() string { return e.ItemID.String() }

type SellerProfileUpdatedEvent struct {
	SellerID   uuid.UUID `json:"seller_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (e SellerProfileUpdatedEvent) EventType() string { return TypeSellerProfileUpdated }
func (e SellerProfileUpdatedEvent) Stream() Stream { return StreamCatalog }
func (e SellerProfileUpdatedEvent) PartitionKey() string { return e.SellerID.String() }

// Decode rebuilds an event from its type header and JSON body.
func Decode(eventType string, data []byte) (Event, error) {
	var (
		event Event
		err   error
	)
	switch eventType {
	case TypeOrderCreated:
		event, err = decodeAs[OrderCreatedEvent](data)
	case TypeOrderStatusChanged:
		event, err = decodeAs[OrderStatusChangedEvent](data)
	case TypeOrderCancelled:
		event, err = decodeAs[OrderCancelledEvent](data)
	case TypeReviewRecorded:
		event, err = decodeAs[ReviewRecordedEvent](data)
	case TypeItemCreated:
		event, err = decodeAs[ItemCreatedEvent](data)
	case TypeItemPriceChanged:
		event, err = decodeAs[ItemPriceChangedEvent](data)
	case TypeItemDeleted:
		event, err = decodeAs[ItemDeletedEvent](data)
	case TypeStockRestocked:
		event, err = decodeAs[StockRestockedEvent](data)
	case TypeSellerProfileUpdated:
		event, err = decodeAs[SellerProfileUpdatedEvent](data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEventType, eventType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", eventType, err)
	}
	return event, nil
}

func decodeAs[T Event](data []byte) (Event, error) {
	var e T
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return e, nil
}
