package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Comment is an immutable review of an item, optionally rated and optionally
// linked to the order it was bought with.
type Comment struct {
	ID        uuid.UUID
	ItemID    uuid.UUID
	BuyerID   uuid.UUID
	OrderID   *uuid.UUID
	Text      string
	Rating    *int
	CreatedAt time.Time
}

// NewComment validates and builds a review.
func NewComment(itemID, buyerID uuid.UUID, text string, rating *int, orderID *uuid.UUID, now time.Time) (*Comment, error) {
	if rating != nil && !ValidRating(*rating) {
		return nil, ErrInvalidRating
	}
	if itemID == uuid.Nil {
		return nil, ErrInvalidItem
	}
	if buyerID == uuid.Nil {
		return nil, ErrNotAuthorized
	}
	return &Comment{
		ID:        uuid.New(),
		ItemID:    itemID,
		BuyerID:   buyerID,
		OrderID:   orderID,
		Text:      strings.TrimSpace(text),
		Rating:    rating,
		CreatedAt: now,
	}, nil
}

// Account holds per-user counters maintained by the order lifecycle.
type Account struct {
	UserID      uuid.UUID
	RefundCount int
	UpdatedAt   time.Time
}
