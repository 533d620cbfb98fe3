package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"marketplace-service/internal/delivery"
	"marketplace-service/internal/domain"
)

// Quoter evaluates delivery for one seller and destination.
type Quoter interface {
	Quote(ctx context.Context, sellerID uuid.UUID, dest domain.Destination) (delivery.Result, error)
}

// LocationFilter narrows a candidate set of listings down to the ones whose
// seller delivers to a destination.
type LocationFilter struct {
	quoter Quoter
	logger *zap.Logger
}

func NewLocationFilter(quoter Quoter, logger *zap.Logger) *LocationFilter {
	return &LocationFilter{quoter: quoter, logger: logger}
}

// Filter keeps the deliverable items in input order. Each seller is quoted
// at most once per call.
func (f *LocationFilter) Filter(ctx context.Context, items []*domain.Item, dest domain.Destination) ([]*domain.Item, error) {
	verdicts := make(map[uuid.UUID]bool)
	for _, sellerID := range lo.Uniq(lo.Map(items, func(it *domain.Item, _ int) uuid.UUID { return it.SellerID })) {
		result, err := f.quoter.Quote(ctx, sellerID, dest)
		if err != nil {
			return nil, fmt.Errorf("quote seller %s: %w", sellerID, err)
		}
		verdicts[sellerID] = result.Deliverable
	}

	kept := lo.Filter(items, func(it *domain.Item, _ int) bool { return verdicts[it.SellerID] })
	f.logger.Debug("Catalog filtered by location",
		zap.String("city", dest.City),
		zap.Int("candidates", len(items)),
		zap.Int("sellers", len(verdicts)),
		zap.Int("deliverable", len(kept)),
	)
	return kept, nil
}
