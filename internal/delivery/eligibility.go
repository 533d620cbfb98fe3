// Package delivery decides whether a seller can serve a destination and what
// the delivery costs.
package delivery

import (
	"math"

	"github.com/shopspring/decimal"

	"marketplace-service/internal/domain"
)

// Reasons reported for non-deliverable destinations.
const (
	ReasonOutOfServiceArea = "out of service area"
	ReasonOutOfRange       = "out of range"
)

// Result is the answer for one seller/destination pair. Reason is empty when
// Deliverable is true.
type Result struct {
	Deliverable bool            `json:"deliverable"`
	DistanceKm  float64         `json:"distance_km"`
	Fee         decimal.Decimal `json:"fee"`
	Reason      string          `json:"reason,omitempty"`
}

// Evaluate applies the decision order, first match wins:
//
//  1. a supplied city is checked against a non-empty city list; a miss is terminal
//  2. no profile or no seller location: deliverable, free
//  3. no destination point: deliverable at the base fee, distance unknown
//  4. great-circle distance, rejected beyond a positive max range,
//     otherwise base fee plus distance times the per-km fee
//
// Fees are rounded half-up to cents and distances to two decimals. The range
// check uses the unrounded distance.
func Evaluate(profile *domain.SellerDeliveryProfile, dest domain.Destination) Result {
	if profile != nil && dest.City != "" && len(profile.ServiceableCities) > 0 {
		if !profile.ServesCity(dest.City) {
			return Result{Deliverable: false, Fee: decimal.Zero, Reason: ReasonOutOfServiceArea}
		}
	}

	if profile == nil || profile.Location == nil {
		return Result{Deliverable: true, Fee: decimal.Zero}
	}

	if dest.Point == nil {
		return Result{Deliverable: true, Fee: roundFee(profile.BaseDeliveryFee)}
	}

	distance := profile.Location.DistanceKm(*dest.Point)
	if profile.MaxDeliveryRangeKm > 0 && distance > profile.MaxDeliveryRangeKm {
		return Result{
			Deliverable: false,
			DistanceKm:  round2(distance),
			Fee:         decimal.Zero,
			Reason:      ReasonOutOfRange,
		}
	}

	fee := profile.BaseDeliveryFee.Add(decimal.NewFromFloat(distance).Mul(profile.PricePerKm))
	return Result{
		Deliverable: true,
		DistanceKm:  round2(distance),
		Fee:         roundFee(fee),
	}
}

// roundFee rounds to cents. Fees are never negative, so decimal's
// half-away-from-zero rounding is round-half-up here.
func roundFee(fee decimal.Decimal) decimal.Decimal {
	return fee.Round(2)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
