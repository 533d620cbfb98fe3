package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"marketplace-service/internal/cache"
	"marketplace-service/internal/domain"
)

// ProfileSource resolves a seller's delivery profile. Missing profiles are
// reported as domain.ErrNotFound.
type ProfileSource interface {
	GetDeliveryProfile(ctx context.Context, sellerID uuid.UUID) (*domain.SellerDeliveryProfile, error)
}

// Service answers delivery quotes for a seller and destination.
type Service struct {
	profiles ProfileSource
	logger   *zap.Logger
}

func NewService(profiles ProfileSource, logger *zap.Logger) *Service {
	return &Service{profiles: profiles, logger: logger}
}

// Quote evaluates dest against the seller's profile. A seller without a
// profile is treated as unconfigured and delivers for free.
func (s *Service) Quote(ctx context.Context, sellerID uuid.UUID, dest domain.Destination) (Result, error) {
	profile, err := s.profiles.GetDeliveryProfile(ctx, sellerID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return Result{}, fmt.Errorf("delivery.Quote: %w", err)
		}
		s.logger.Debug("No delivery profile configured", zap.String("seller_id", sellerID.String()))
		profile = nil
	}

	result := Evaluate(profile, dest)
	s.logger.Debug("Delivery evaluated",
		zap.String("seller_id", sellerID.String()),
		zap.Bool("deliverable", result.Deliverable),
		zap.Float64("distance_km", result.DistanceKm),
		zap.String("fee", result.Fee.StringFixed(2)),
		zap.String("reason", result.Reason),
	)
	return result, nil
}

// CachedProfiles is a read-through cache in front of a ProfileSource.
// Not-found answers are not cached.
type CachedProfiles struct {
	source ProfileSource
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedProfiles(source ProfileSource, c cache.Cache, ttl time.Duration, logger *zap.Logger) *CachedProfiles {
	return &CachedProfiles{source: source, cache: c, ttl: ttl, logger: logger}
}

func (p *CachedProfiles) GetDeliveryProfile(ctx context.Context, sellerID uuid.UUID) (*domain.SellerDeliveryProfile, error) {
	key := cache.ProfileKey(sellerID)

	var cached domain.SellerDeliveryProfile
	if err := cache.GetJSON(ctx, p.cache, key, &cached); err == nil {
		return &cached, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		p.logger.Warn("Profile cache read failed", zap.String("key", key), zap.Error(err))
	}

	profile, err := p.source.GetDeliveryProfile(ctx, sellerID)
	if err != nil {
		return nil, err
	}

	if err := cache.SetJSON(ctx, p.cache, key, profile, p.ttl); err != nil {
		p.logger.Warn("Profile cache write failed", zap.String("key", key), zap.Error(err))
	}
	return profile, nil
}

// Invalidate drops the cached profile of sellerID.
func (p *CachedProfiles) Invalidate(ctx context.Context, sellerID uuid.UUID) error {
	return p.cache.Delete(ctx, cache.ProfileKey(sellerID))
}
