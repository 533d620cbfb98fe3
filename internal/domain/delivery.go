package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"

	"marketplace-service/internal/geo"
)

// GeoPoint is a WGS84 coordinate in degrees.
type GeoPoint struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// Valid reports whether the coordinate lies in the usual lat/lon ranges.
func (p GeoPoint) Valid() bool {
	return p.Latitude >= -90 && p.Latitude <= 90 && p.Longitude >= -180 && p.Longitude <= 180
}

// DistanceKm is the great-circle distance to other.
func (p GeoPoint) DistanceKm(other GeoPoint) float64 {
	return geo.DistanceKm(p.Latitude, p.Longitude, other.Latitude, other.Longitude)
}

// SellerDeliveryProfile describes where and at what price a seller delivers.
// A zero MaxDeliveryRangeKm disables the radius check.
type SellerDeliveryProfile struct {
	SellerID           uuid.UUID
	Location           *GeoPoint
	ServiceableCities  []string
	MaxDeliveryRangeKm float64
	BaseDeliveryFee    decimal.Decimal
	PricePerKm         decimal.Decimal
	UpdatedAt          time.Time
}

// Validate enforces the non-negative fee/range invariant and coordinate ranges.
func (p *SellerDeliveryProfile) Validate() error {
	if p.SellerID == uuid.Nil {
		return ErrInvalidProfile
	}
	if p.MaxDeliveryRangeKm < 0 || !IsMoney(p.BaseDeliveryFee) || !IsMoney(p.PricePerKm) {
		return ErrInvalidProfile
	}
	if p.Location != nil && !p.Location.Valid() {
		return ErrInvalidProfile
	}
	return nil
}

// NormalizeCities trims, drops blanks and de-duplicates the city list case-insensitively.
func (p *SellerDeliveryProfile) NormalizeCities() {
	seen := make(map[string]struct{}, len(p.ServiceableCities))
	p.ServiceableCities = lo.Filter(lo.Map(p.ServiceableCities, func(c string, _ int) string {
		return strings.TrimSpace(c)
	}), func(c string, _ int) bool {
		if c == "" {
			return false
		}
		key := FoldCity(c)
		if _, ok := seen[key]; ok {
			return false
		}
		seen[key] = struct{}{}
		return true
	})
}

// ServesCity matches city against the allow-list ignoring case.
func (p *SellerDeliveryProfile) ServesCity(city string) bool {
	want := FoldCity(city)
	return lo.ContainsBy(p.ServiceableCities, func(c string) bool {
		return FoldCity(c) == want
	})
}

// FoldCity returns the case-folded form used for city comparison.
// A Caser is stateful, so each call builds its own.
func FoldCity(city string) string {
	return cases.Fold().String(strings.TrimSpace(city))
}

// Destination is where a buyer wants an order delivered. Either field may be
// empty; City drives the allow-list check and Point drives the distance check.
type Destination struct {
	City  string    `json:"city,omitempty"`
	Point *GeoPoint `json:"point,omitempty"`
}
