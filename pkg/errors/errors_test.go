package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"marketplace-service/internal/domain"
)

func TestFromError(t *testing.T) {
	itemID := uuid.New()

	testCases := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
		wantDetail string
	}{
		{
			name:       "insufficient stock",
			err:        fmt.Errorf("reserve: %w", &domain.InsufficientStockError{ItemID: itemID, Requested: 3, Available: 1}),
			wantCode:   domain.CodeInsufficientStock,
			wantStatus: http.StatusConflict,
			wantDetail: fmt.Sprintf("Item ID: %s, Available: 1, Requested: 3", itemID),
		},
		{
			name:       "invalid transition",
			err:        &domain.InvalidTransitionError{From: domain.OrderStatusCancelled, To: domain.OrderStatusCancelled},
			wantCode:   domain.CodeInvalidTransition,
			wantStatus: http.StatusConflict,
			wantDetail: "Current: cancelled, Requested: cancelled",
		},
		{
			name:       "not found",
			err:        domain.NewOrderNotFound(itemID),
			wantCode:   domain.CodeNotFound,
			wantStatus: http.StatusNotFound,
			wantDetail: "ID: " + itemID.String(),
		},
		{
			name:       "not authorized",
			err:        domain.ErrNotAuthorized,
			wantCode:   domain.CodeNotAuthorized,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "conflict",
			err:        fmt.Errorf("tx: %w", domain.ErrConflict),
			wantCode:   domain.CodeConflict,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "validation",
			err:        domain.ErrMixedSellers,
			wantCode:   domain.CodeValidation,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "not deliverable",
			err:        domain.ErrNotDeliverable,
			wantCode:   domain.CodeNotDeliverable,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "unknown",
			err:        stderrors.New("disk on fire"),
			wantCode:   "InternalError",
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := FromError(tc.err)

			assert.Equal(t, tc.wantCode, got.Code)
			assert.Equal(t, tc.wantStatus, got.HTTPStatus())
			if tc.wantDetail != "" {
				assert.Equal(t, tc.wantDetail, got.Details)
			}
		})
	}
}

func TestFromError_HidesInternalCause(t *testing.T) {
	got := FromError(fmt.Errorf("list orders: %w", stderrors.New(`pq: syntax error at or near "FROM"`)))

	assert.Equal(t, "InternalError", got.Code)
	assert.Equal(t, "internal server error", got.Message)
	assert.Empty(t, got.Details)
}

func TestFromError_PassesStandardErrorThrough(t *testing.T) {
	original := NewValidationError("quantity must be positive", "quantity")

	assert.Same(t, original, FromError(original))
	assert.Equal(t, http.StatusBadRequest, original.HTTPStatus())
	assert.Equal(t, http.StatusUnauthorized, NewUnauthorized("missing", "").HTTPStatus())
}
