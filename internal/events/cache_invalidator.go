package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"marketplace-service/internal/cache"
)

// CacheInvalidator evicts the read-through cache entries an event makes stale.
type CacheInvalidator struct {
	cache  cache.Cache
	logger *zap.Logger
}

func NewCacheInvalidator(c cache.Cache, logger *zap.Logger) *CacheInvalidator {
	return &CacheInvalidator{cache: c, logger: logger}
}

// ProcessEvent decodes a raw event and invalidates the keys it touches.
func (i *CacheInvalidator) ProcessEvent(ctx context.Context, eventType string, data []byte) error {
	event, err := Decode(eventType, data)
	if errors.Is(err, ErrUnknownEventType) {
		// the keys it touched are unknown, so nothing cached can be trusted
		if flushErr := i.flush(ctx, eventType); flushErr != nil {
			return flushErr
		}
		return err
	}
	if err != nil {
		return err
	}
	return i.Handle(ctx, event)
}

func (i *CacheInvalidator) Handle(ctx context.Context, event Event) error {
	keys := StaleKeys(event)
	if len(keys) == 0 {
		return nil
	}
	if err := i.cache.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}
	i.logger.Debug("Cache invalidated",
		zap.String("event_type", event.EventType()),
		zap.Strings("keys", keys),
	)
	return nil
}

func (i *CacheInvalidator) flush(ctx context.Context, eventType string) error {
	for _, pattern := range []string{cache.ItemKeyPattern, cache.ProfileKeyPattern} {
		if err := i.cache.DeleteByPattern(ctx, pattern); err != nil {
			return fmt.Errorf("failed to flush %s: %w", pattern, err)
		}
	}
	i.logger.Warn("Unknown event type, flushed item and profile cache",
		zap.String("event_type", eventType),
	)
	return nil
}

// StaleKeys lists the cache keys whose cached value no longer matches the
// store once event has happened.
func StaleKeys(event Event) []string {
	switch e := event.(type) {
	case OrderCreatedEvent:
		return lo.Uniq(lo.Map(e.Items, func(l OrderLine, _ int) string { return cache.ItemKey(l.ItemID) }))
	case OrderCancelledEvent:
		return lo.Uniq(lo.Map(e.Restored, func(l StockLine, _ int) string { return cache.ItemKey(l.ItemID) }))
	case ReviewRecordedEvent:
		return []string{cache.ItemKey(e.ItemID)}
	case ItemCreatedEvent:
		return []string{cache.ItemKey(e.ItemID)}
	case ItemPriceChangedEvent:
		return []string{cache.ItemKey(e.ItemID)}
	case ItemDeletedEvent:
		return []string{cache.ItemKey(e.ItemID)}
	case StockRestockedEvent:
		return []string{cache.ItemKey(e.ItemID)}
	case SellerProfileUpdatedEvent:
		return []string{cache.ProfileKey(e.SellerID)}
	default:
		return nil
	}
}
