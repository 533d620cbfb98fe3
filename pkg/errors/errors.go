package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"marketplace-service/internal/domain"
)

// StandardError represents a standardized error response
type StandardError struct {
	Code    string `json:"error"`   // Error code/type (e.g., "InsufficientStock", "ResourceNotFound")
	Message string `json:"message"` // Human-readable error message
	Details string `json:"details"` // Additional details (item id, statuses, field name)
}

// Error implements the error interface
func (e *StandardError) Error() string {
	return e.Message
}

// HTTPStatus returns the appropriate HTTP status code for the error
func (e *StandardError) HTTPStatus() int {
	switch e.Code {
	case "InvalidRequest", domain.CodeValidation:
		return http.StatusBadRequest
	case "Unauthorized":
		return http.StatusUnauthorized
	case domain.CodeNotAuthorized:
		return http.StatusForbidden
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeInsufficientStock, domain.CodeInvalidTransition, domain.CodeConflict:
		return http.StatusConflict
	case domain.CodeNotDeliverable:
		return http.StatusUnprocessableEntity
	case "ServiceUnavailable":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// NewStandardError creates a new StandardError
func NewStandardError(errorCode, message, details string) *StandardError {
	return &StandardError{
		Code:    errorCode,
		Message: message,
		Details: details,
	}
}

// FromError converts any error returned by the services into a StandardError.
// Unknown errors become InternalError.
func FromError(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}

	var stockErr *domain.InsufficientStockError
	if stderrors.As(err, &stockErr) {
		return NewInsufficientStock(stockErr.ItemID.String(), stockErr.Available, stockErr.Requested)
	}

	var transitionErr *domain.InvalidTransitionError
	if stderrors.As(err, &transitionErr) {
		return NewStandardError(domain.CodeInvalidTransition, domain.ErrInvalidTransition.Message,
			fmt.Sprintf("Current: %s, Requested: %s", transitionErr.From, transitionErr.To))
	}

	var notFound *domain.NotFoundError
	if stderrors.As(err, &notFound) {
		return NewStandardError(domain.CodeNotFound, notFound.Entity+" not found",
			fmt.Sprintf("ID: %s", notFound.ID))
	}

	var domainErr *domain.DomainError
	if stderrors.As(err, &domainErr) {
		return NewStandardError(domainErr.Code, domainErr.Message, "")
	}

	return NewInternalError("internal server error")
}

// Common error constructors
func NewInvalidRequest(message, details string) *StandardError {
	return NewStandardError("InvalidRequest", message, details)
}

func NewValidationError(message, field string) *StandardError {
	return NewStandardError(domain.CodeValidation, message, fmt.Sprintf("Field: %s", field))
}

func NewUnauthorized(message, details string) *StandardError {
	return NewStandardError("Unauthorized", message, details)
}

func NewForbidden(details string) *StandardError {
	return NewStandardError(domain.CodeNotAuthorized, domain.ErrNotAuthorized.Message, details)
}

func NewInsufficientStock(itemID string, available, requested int) *StandardError {
	return NewStandardError(domain.CodeInsufficientStock, domain.ErrInsufficientStock.Message,
		fmt.Sprintf("Item ID: %s, Available: %d, Requested: %d", itemID, available, requested))
}

// NewInternalError never carries the cause; callers log it instead.
func NewInternalError(message string) *StandardError {
	return NewStandardError("InternalError", message, "")
}
