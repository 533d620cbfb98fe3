// Package ordering runs the order lifecycle: checkout, status transitions
// and the stock side effects of cancellation.
package ordering

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"marketplace-service/internal/commands"
	"marketplace-service/internal/delivery"
	"marketplace-service/internal/domain"
	"marketplace-service/internal/events"
	"marketplace-service/internal/inventory"
	"marketplace-service/internal/repository"
)

// Quoter prices delivery from a seller to a destination.
type Quoter interface {
	Quote(ctx context.Context, sellerID uuid.UUID, dest domain.Destination) (delivery.Result, error)
}

type Service struct {
	store     repository.Store
	ledger    *inventory.Ledger
	quoter    Quoter
	publisher events.EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(store repository.Store, ledger *inventory.Ledger, quoter Quoter, publisher events.EventPublisher, logger *zap.Logger) *Service {
	return &Service{
		store:     store,
		ledger:    ledger,
		quoter:    quoter,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateOrder places a pending order. Every line is reserved in one unit of
// work, so either all stock is taken and the order exists, or nothing changed.
func (s *Service) CreateOrder(ctx context.Context, cmd commands.CreateOrderCommand) (*domain.Order, error) {
	if cmd.BuyerID == uuid.Nil {
		return nil, domain.ErrNotAuthorized
	}
	if cmd.DeliveryFee != nil && !domain.IsMoney(*cmd.DeliveryFee) {
		return nil, domain.ErrInvalidFee
	}
	lines, err := mergeLines(cmd.Items)
	if err != nil {
		return nil, err
	}
	itemIDs := lo.Map(lines, func(l commands.LineRequest, _ int) uuid.UUID { return l.ItemID })

	// Resolve the seller and quote delivery before the unit of work: quoting
	// reads the store and must not run inside the transaction.
	items, err := s.store.GetItems(ctx, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("store.GetItems: %w", err)
	}
	sellerID, err := singleSeller(itemIDs, items)
	if err != nil {
		return nil, err
	}
	fee, err := s.deliveryFee(ctx, sellerID, cmd)
	if err != nil {
		return nil, err
	}

	var order *domain.Order
	err = s.store.WithTx(ctx, func(tx repository.Tx) error {
		current, err := tx.GetItems(ctx, itemIDs)
		if err != nil {
			return fmt.Errorf("tx.GetItems: %w", err)
		}
		if _, err := singleSeller(itemIDs, current); err != nil {
			return err
		}

		// prices are snapshotted as they are at this instant
		snapshot := lo.Map(lines, func(l commands.LineRequest, _ int) domain.LineItem {
			return domain.LineItem{ItemID: l.ItemID, Quantity: l.Quantity, UnitPrice: current[l.ItemID].Price}
		})
		order, err = domain.NewOrder(cmd.BuyerID, sellerID, snapshot, fee, s.now())
		if err != nil {
			return err
		}

		if err := s.ledger.ReserveLines(ctx, tx, inventory.LinesOf(order.Items)); err != nil {
			return err
		}
		return tx.InsertOrder(ctx, order)
	})
	if err != nil {
		s.logger.Info("Order rejected",
			zap.String("buyer_id", cmd.BuyerID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("buyer_id", order.BuyerID.String()),
		zap.String("seller_id", order.SellerID.String()),
		zap.String("total", order.TotalPrice.StringFixed(2)),
	)
	events.PublishAll(ctx, s.publisher, s.logger, events.NewOrderCreated(order))
	return order, nil
}

// deliveryFee picks the explicit fee, else a quote for the destination, else zero.
func (s *Service) deliveryFee(ctx context.Context, sellerID uuid.UUID, cmd commands.CreateOrderCommand) (decimal.Decimal, error) {
	if cmd.DeliveryFee != nil {
		return *cmd.DeliveryFee, nil
	}
	if cmd.Destination == nil || s.quoter == nil {
		return decimal.Zero, nil
	}

	result, err := s.quoter.Quote(ctx, sellerID, *cmd.Destination)
	if err != nil {
		return decimal.Zero, err
	}
	if !result.Deliverable {
		return decimal.Zero, fmt.Errorf("%w: %s", domain.ErrNotDeliverable, result.Reason)
	}
	return result.Fee, nil
}

// TransitionOrder moves an order to cmd.Target on behalf of an actor.
// Cancelling restores every reserved line and bumps both refund counters in
// the same unit of work as the status write.
func (s *Service) TransitionOrder(ctx context.Context, cmd commands.TransitionOrderCommand) (*domain.Order, error) {
	if _, err := domain.ToOrderStatus(string(cmd.Target)); err != nil {
		return nil, domain.ErrInvalidStatus
	}

	var (
		order *domain.Order
		from  domain.OrderStatus
	)
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		var err error
		order, err = tx.GetOrder(ctx, cmd.OrderID)
		if err != nil {
			return err
		}
		if err := domain.AuthorizeTransition(order, cmd.ActorID, cmd.Role, cmd.Target); err != nil {
			return err
		}

		now := s.now()
		// compare-and-set: a concurrent transition makes this fail with ErrConflict
		if err := tx.UpdateOrderStatus(ctx, order.ID, order.Status, cmd.Target, now); err != nil {
			return err
		}

		if cmd.Target == domain.OrderStatusCancelled {
			if err := s.ledger.RestoreLines(ctx, tx, inventory.LinesOf(order.Items)); err != nil {
				return err
			}
			if err := tx.IncrementRefundCount(ctx, order.BuyerID, now); err != nil {
				return err
			}
			if err := tx.IncrementRefundCount(ctx, order.SellerID, now); err != nil {
				return err
			}
		}

		from = order.Status
		order.Status = cmd.Target
		order.UpdatedAt = now
		return nil
	})
	if err != nil {
		s.logger.Info("Order transition rejected",
			zap.String("order_id", cmd.OrderID.String()),
			zap.String("actor_id", cmd.ActorID.String()),
			zap.String("target", string(cmd.Target)),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("Order status changed",
		zap.String("order_id", order.ID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(order.Status)),
	)

	published := []events.Event{events.OrderStatusChangedEvent{
		OrderID:    order.ID,
		BuyerID:    order.BuyerID,
		SellerID:   order.SellerID,
		ActorID:    cmd.ActorID,
		From:       from,
		To:         order.Status,
		OccurredAt: order.UpdatedAt,
	}}
	if order.Status == domain.OrderStatusCancelled {
		published = append(published, events.OrderCancelledEvent{
			OrderID:  order.ID,
			BuyerID:  order.BuyerID,
			SellerID: order.SellerID,
			ActorID:  cmd.ActorID,
			Restored: lo.Map(order.Items, func(l domain.LineItem, _ int) events.StockLine {
				return events.StockLine{ItemID: l.ItemID, Quantity: l.Quantity}
			}),
			OccurredAt: order.UpdatedAt,
		})
	}
	events.PublishAll(ctx, s.publisher, s.logger, published...)
	return order, nil
}

// GetOrder returns an order to its buyer or seller.
func (s *Service) GetOrder(ctx context.Context, orderID, actorID uuid.UUID) (*domain.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.InvolvesActor(actorID) {
		return nil, domain.ErrNotAuthorized
	}
	return order, nil
}

// ListOrders returns a buyer's purchases or a seller's sales, newest first.
func (s *Service) ListOrders(ctx context.Context, actorID uuid.UUID, role domain.Role) ([]*domain.Order, error) {
	switch role {
	case domain.RoleBuyer:
		return s.store.ListOrdersByBuyer(ctx, actorID)
	case domain.RoleSeller:
		return s.store.ListOrdersBySeller(ctx, actorID)
	default:
		return nil, domain.ErrNotAuthorized
	}
}

// mergeLines validates the requested lines and folds repeated item ids into
// one line, keeping first-seen order.
func mergeLines(requested []commands.LineRequest) ([]commands.LineRequest, error) {
	if len(requested) == 0 {
		return nil, domain.ErrEmptyOrder
	}

	merged := make([]commands.LineRequest, 0, len(requested))
	index := make(map[uuid.UUID]int, len(requested))
	for _, l := range requested {
		if l.Quantity < 1 {
			return nil, domain.ErrInvalidQuantity
		}
		if l.ItemID == uuid.Nil {
			return nil, domain.ErrInvalidItem
		}
		if i, seen := index[l.ItemID]; seen {
			merged[i].Quantity += l.Quantity
			continue
		}
		index[l.ItemID] = len(merged)
		merged = append(merged, l)
	}
	return merged, nil
}

// singleSeller checks every item exists and belongs to the same seller.
func singleSeller(ids []uuid.UUID, items map[uuid.UUID]*domain.Item) (uuid.UUID, error) {
	var seller uuid.UUID
	for _, id := range ids {
		item, ok := items[id]
		if !ok {
			return uuid.Nil, domain.NewItemNotFound(id)
		}
		if seller == uuid.Nil {
			seller = item.SellerID
		} else if item.SellerID != seller {
			return uuid.Nil, domain.ErrMixedSellers
		}
	}
	return seller, nil
}
