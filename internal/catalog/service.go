// Package catalog manages listings and seller delivery settings, and filters
// listings by where a buyer wants them delivered.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"marketplace-service/internal/cache"
	"marketplace-service/internal/commands"
	"marketplace-service/internal/domain"
	"marketplace-service/internal/events"
	"marketplace-service/internal/inventory"
	"marketplace-service/internal/repository"
)

type Service struct {
	store     repository.Store
	ledger    *inventory.Ledger
	filter    *LocationFilter
	cache     cache.Cache
	cacheTTL  time.Duration
	publisher events.EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(
	store repository.Store,
	ledger *inventory.Ledger,
	filter *LocationFilter,
	c cache.Cache,
	cacheTTL time.Duration,
	publisher events.EventPublisher,
	logger *zap.Logger,
) *Service {
	return &Service{
		store:     store,
		ledger:    ledger,
		filter:    filter,
		cache:     c,
		cacheTTL:  cacheTTL,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// GetItem reads an item through the cache.
func (s *Service) GetItem(ctx context.Context, itemID uuid.UUID) (*domain.Item, error) {
	key := cache.ItemKey(itemID)

	var cached domain.Item
	if err := cache.GetJSON(ctx, s.cache, key, &cached); err == nil {
		return &cached, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("Item cache read failed", zap.String("key", key), zap.Error(err))
	}

	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if err := cache.SetJSON(ctx, s.cache, key, item, s.cacheTTL); err != nil {
		s.logger.Warn("Item cache write failed", zap.String("key", key), zap.Error(err))
	}
	return item, nil
}

// ListReviews returns the comments of an existing item, oldest first.
func (s *Service) ListReviews(ctx context.Context, itemID uuid.UUID) ([]*domain.Comment, error) {
	if _, err := s.store.GetItem(ctx, itemID); err != nil {
		return nil, err
	}
	return s.store.ListComments(ctx, itemID)
}

// Deliverable loads the requested items and keeps the ones that can be
// delivered to dest. Unknown ids are skipped; request order is kept.
func (s *Service) Deliverable(ctx context.Context, itemIDs []uuid.UUID, dest domain.Destination) ([]*domain.Item, error) {
	ids := lo.Uniq(itemIDs)
	found, err := s.store.GetItems(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("store.GetItems: %w", err)
	}

	candidates := lo.FilterMap(ids, func(id uuid.UUID, _ int) (*domain.Item, bool) {
		item, ok := found[id]
		return item, ok
	})
	return s.filter.Filter(ctx, candidates, dest)
}

func (s *Service) CreateItem(ctx context.Context, cmd commands.CreateItemCommand) (*domain.Item, error) {
	item, err := domain.NewItem(cmd.SellerID, cmd.Title, cmd.Price, cmd.Stock, cmd.Category, cmd.DeliveryDays)
	if err != nil {
		return nil, err
	}

	if err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		return tx.InsertItem(ctx, item)
	}); err != nil {
		s.logger.Error("Failed to save item", zap.Error(err))
		return nil, err
	}

	s.logger.Info("Item created",
		zap.String("item_id", item.ID.String()),
		zap.String("seller_id", item.SellerID.String()),
		zap.Int("stock", item.Stock),
	)
	events.PublishAll(ctx, s.publisher, s.logger, events.ItemCreatedEvent{
		ItemID:     item.ID,
		SellerID:   item.SellerID,
		Title:      item.Title,
		Price:      item.Price,
		Stock:      item.Stock,
		OccurredAt: item.CreatedAt,
	})
	return item, nil
}

// UpdateItemPrice reprices an item. Orders already placed keep their snapshot.
func (s *Service) UpdateItemPrice(ctx context.Context, cmd commands.UpdateItemPriceCommand) (*domain.Item, error) {
	if !domain.IsMoney(cmd.Price) {
		return nil, domain.ErrInvalidPrice
	}

	now := s.now()
	var item *domain.Item
	event := events.ItemPriceChangedEvent{ItemID: cmd.ItemID, SellerID: cmd.SellerID, NewPrice: cmd.Price, OccurredAt: now}
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		var err error
		if item, err = ownedItem(ctx, tx, cmd.ItemID, cmd.SellerID); err != nil {
			return err
		}
		event.OldPrice = item.Price
		if err := tx.UpdateItemPrice(ctx, item.ID, cmd.Price, now); err != nil {
			return err
		}
		item.Price = cmd.Price
		item.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, cache.ItemKey(item.ID))
	s.logger.Info("Item price updated",
		zap.String("item_id", item.ID.String()),
		zap.String("old_price", event.OldPrice.StringFixed(2)),
		zap.String("new_price", event.NewPrice.StringFixed(2)),
	)
	events.PublishAll(ctx, s.publisher, s.logger, event)
	return item, nil
}

// RestockItem adds units to an item owned by the seller.
func (s *Service) RestockItem(ctx context.Context, cmd commands.RestockItemCommand) (*domain.Item, error) {
	if cmd.Quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}

	var item *domain.Item
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		if _, err := ownedItem(ctx, tx, cmd.ItemID, cmd.SellerID); err != nil {
			return err
		}
		if err := s.ledger.RestoreLines(ctx, tx, []inventory.Line{{ItemID: cmd.ItemID, Quantity: cmd.Quantity}}); err != nil {
			return err
		}
		var err error
		item, err = tx.GetItem(ctx, cmd.ItemID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, cache.ItemKey(item.ID))
	s.logger.Info("Item restocked",
		zap.String("item_id", item.ID.String()),
		zap.Int("quantity", cmd.Quantity),
		zap.Int("stock", item.Stock),
	)
	events.PublishAll(ctx, s.publisher, s.logger, events.StockRestockedEvent{
		ItemID:     item.ID,
		SellerID:   item.SellerID,
		Quantity:   cmd.Quantity,
		NewStock:   item.Stock,
		OccurredAt: item.UpdatedAt,
	})
	return item, nil
}

// DeleteItem removes a listing. Items held by an open order cannot be deleted.
func (s *Service) DeleteItem(ctx context.Context, cmd commands.DeleteItemCommand) error {
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		if _, err := ownedItem(ctx, tx, cmd.ItemID, cmd.SellerID); err != nil {
			return err
		}
		open, err := tx.CountOpenOrdersForItem(ctx, cmd.ItemID)
		if err != nil {
			return err
		}
		if open > 0 {
			return domain.ErrItemInUse
		}
		return tx.DeleteItem(ctx, cmd.ItemID)
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, cache.ItemKey(cmd.ItemID))
	s.logger.Info("Item deleted", zap.String("item_id", cmd.ItemID.String()))
	events.PublishAll(ctx, s.publisher, s.logger, events.ItemDeletedEvent{
		ItemID:     cmd.ItemID,
		SellerID:   cmd.SellerID,
		OccurredAt: s.now(),
	})
	return nil
}

// UpsertDeliveryProfile replaces the seller's delivery settings.
func (s *Service) UpsertDeliveryProfile(ctx context.Context, cmd commands.UpsertDeliveryProfileCommand) (*domain.SellerDeliveryProfile, error) {
	profile := &domain.SellerDeliveryProfile{
		SellerID:           cmd.SellerID,
		Location:           cmd.Location,
		ServiceableCities:  cmd.ServiceableCities,
		MaxDeliveryRangeKm: cmd.MaxDeliveryRangeKm,
		BaseDeliveryFee:    cmd.BaseDeliveryFee,
		PricePerKm:         cmd.PricePerKm,
		UpdatedAt:          s.now(),
	}
	profile.NormalizeCities()
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		return tx.UpsertDeliveryProfile(ctx, profile)
	}); err != nil {
		return nil, err
	}

	s.invalidate(ctx, cache.ProfileKey(profile.SellerID))
	s.logger.Info("Delivery profile updated",
		zap.String("seller_id", profile.SellerID.String()),
		zap.Strings("cities", profile.ServiceableCities),
		zap.Float64("max_range_km", profile.MaxDeliveryRangeKm),
	)
	events.PublishAll(ctx, s.publisher, s.logger, events.SellerProfileUpdatedEvent{
		SellerID:   profile.SellerID,
		OccurredAt: profile.UpdatedAt,
	})
	return profile, nil
}

func (s *Service) invalidate(ctx context.Context, keys ...string) {
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn("Cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

func ownedItem(ctx context.Context, tx repository.Tx, itemID, sellerID uuid.UUID) (*domain.Item, error) {
	item, err := tx.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.SellerID != sellerID {
		return nil, domain.ErrNotAuthorized
	}
	return item, nil
}
