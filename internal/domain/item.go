package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// IsMoney reports whether d is a non-negative amount in whole cents.
// Every stored price and fee has at most two decimal places.
func IsMoney(d decimal.Decimal) bool {
	return !d.IsNegative() && d.Equal(d.Round(2))
}

// Item is a catalog listing owned by one seller.
type Item struct {
	ID            uuid.UUID
	SellerID      uuid.UUID
	Title         string
	Price         decimal.Decimal
	Stock         int
	AvgRating     float64
	CommentsCount int
	Category      string
	DeliveryDays  int
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Version       int // bumped on every stock or rating write
}

// NewItem creates a new listing with an empty rating aggregate.
func NewItem(sellerID uuid.UUID, title string, price decimal.Decimal, stock int, category string, deliveryDays int) (*Item, error) {
	now := time.Now().UTC()
	item := &Item{
		ID:           uuid.New(),
		SellerID:     sellerID,
		Title:        strings.TrimSpace(title),
		Price:        price,
		Stock:        stock,
		Category:     strings.TrimSpace(category),
		DeliveryDays: deliveryDays,
		CreatedAt:    now,
		UpdatedAt:    now,
		Version:      1,
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}
	return item, nil
}

// Validate checks the field-level invariants of a listing.
func (i *Item) Validate() error {
	if i.SellerID == uuid.Nil || i.Title == "" {
		return ErrInvalidItem
	}
	if !IsMoney(i.Price) {
		return ErrInvalidPrice
	}
	if i.Stock < 0 || i.DeliveryDays < 0 {
		return ErrInvalidItem
	}
	return nil
}

// Reserve decrements stock if enough units are left.
func (i *Item) Reserve(quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	if i.Stock < quantity {
		return &InsufficientStockError{ItemID: i.ID, Requested: quantity, Available: i.Stock}
	}
	i.Stock -= quantity
	i.UpdatedAt = time.Now().UTC()
	i.Version++
	return nil
}

// Restore adds units back unconditionally.
func (i *Item) Restore(quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	i.Stock += quantity
	i.UpdatedAt = time.Now().UTC()
	i.Version++
	return nil
}

// ApplyRating folds one more rating into the running average.
func (i *Item) ApplyRating(rating int) error {
	if !ValidRating(rating) {
		return ErrInvalidRating
	}
	i.AvgRating = RunningAverage(i.AvgRating, i.CommentsCount, rating)
	i.CommentsCount++
	i.UpdatedAt = time.Now().UTC()
	i.Version++
	return nil
}

// RunningAverage returns (avg*count + rating) / (count + 1).
func RunningAverage(avg float64, count int, rating int) float64 {
	return (avg*float64(count) + float64(rating)) / float64(count+1)
}

func ValidRating(rating int) bool {
	return rating >= 1 && rating <= 5
}
