package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// Error codes shared with the HTTP error mapping.
const (
	CodeInsufficientStock = "InsufficientStock"
	CodeInvalidTransition = "InvalidTransition"
	CodeNotAuthorized     = "NotAuthorized"
	CodeNotFound          = "ResourceNotFound"
	CodeConflict          = "Conflict"
	CodeValidation        = "ValidationError"
	CodeNotDeliverable    = "NotDeliverable"
)

// Domain errors
var (
	ErrInsufficientStock = &DomainError{Code: CodeInsufficientStock, Message: "insufficient stock available"}
	ErrInvalidTransition = &DomainError{Code: CodeInvalidTransition, Message: "invalid order status transition"}
	ErrNotAuthorized     = &DomainError{Code: CodeNotAuthorized, Message: "actor is not authorized for this operation"}
	ErrNotFound          = &DomainError{Code: CodeNotFound, Message: "resource not found"}
	ErrConflict          = &DomainError{Code: CodeConflict, Message: "resource was modified concurrently"}
	ErrItemInUse         = &DomainError{Code: CodeConflict, Message: "item is referenced by an undelivered order"}

	ErrEmptyOrder      = &DomainError{Code: CodeValidation, Message: "order must contain at least one item"}
	ErrMixedSellers    = &DomainError{Code: CodeValidation, Message: "all items of an order must belong to one seller"}
	ErrInvalidQuantity = &DomainError{Code: CodeValidation, Message: "quantity must be at least 1"}
	ErrInvalidPrice    = &DomainError{Code: CodeValidation, Message: "price must be a non-negative amount in whole cents"}
	ErrInvalidFee      = &DomainError{Code: CodeValidation, Message: "delivery fee must be a non-negative amount in whole cents"}
	ErrInvalidRating   = &DomainError{Code: CodeValidation, Message: "rating must be between 1 and 5"}
	ErrInvalidProfile  = &DomainError{Code: CodeValidation, Message: "invalid delivery profile"}
	ErrInvalidItem     = &DomainError{Code: CodeValidation, Message: "invalid item"}
	ErrInvalidStatus   = &DomainError{Code: CodeValidation, Message: "invalid order status"}

	ErrNotDeliverable = &DomainError{Code: CodeNotDeliverable, Message: "seller does not deliver to this destination"}
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// InsufficientStockError names the item that could not be reserved and how
// many units were left at the time of the attempt.
type InsufficientStockError struct {
	ItemID    uuid.UUID
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for item %s: requested %d, available %d", e.ItemID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// InvalidTransitionError names the current and requested order status.
type InvalidTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid order status transition from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// NotFoundError reports a missing entity by kind and id.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

func NewItemNotFound(id uuid.UUID) error {
	return &NotFoundError{Entity: "item", ID: id.String()}
}

func NewOrderNotFound(id uuid.UUID) error {
	return &NotFoundError{Entity: "order", ID: id.String()}
}

func NewProfileNotFound(sellerID uuid.UUID) error {
	return &NotFoundError{Entity: "delivery profile", ID: sellerID.String()}
}
