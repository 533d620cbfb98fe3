package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"marketplace-service/internal/commands"
	"marketplace-service/internal/rating"
	"marketplace-service/pkg/errors"
	"marketplace-service/pkg/middleware"
)

type ReviewHandler struct {
	logger  *zap.Logger
	ratings *rating.Updater
}

func NewReviewHandler(logger *zap.Logger, ratings *rating.Updater) *ReviewHandler {
	return &ReviewHandler{logger: logger, ratings: ratings}
}

// RecordReview handles POST /api/v1/items/:id/reviews
// @Summary      Review an item
// @Description  Stores a comment. A rating from 1 to 5 also updates the item's average rating.
// @Description  When order_id is given, the order must belong to the reviewer and contain the item.
// @Tags         reviews
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        X-Request-ID  header    string         false  "Request ID for idempotency (UUID)"
// @Param        id            path      string         true   "Item ID (UUID)"
// @Param        request       body      ReviewRequest  true   "Comment and optional rating"
// @Success      201           {object}  ReviewResponse
// @Failure      400           {object}  errors.StandardError
// @Failure      403           {object}  errors.StandardError  "Linked order does not match the reviewer or item"
// @Failure      404           {object}  errors.StandardError
// @Router       /items/{id}/reviews [post]
func (h *ReviewHandler) RecordReview(c *gin.Context) {
	buyerID, _, ok := middleware.Actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errors.NewUnauthorized("missing actor", ""))
		return
	}

	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errors.NewInvalidRequest("invalid item ID", c.Param("id")))
		return
	}

	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request", zap.Error(err))
		c.JSON(http.StatusBadRequest, errors.NewInvalidRequest("invalid request body", err.Error()))
		return
	}

	cmd := commands.RecordReviewCommand{
		ItemID:  itemID,
		BuyerID: buyerID,
		Text:    req.Text,
		Rating:  req.Rating,
	}
	if req.OrderID != nil {
		orderID := uuid.MustParse(*req.OrderID)
		cmd.OrderID = &orderID
	}

	comment, err := h.ratings.RecordReview(c.Request.Context(), cmd)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, newReviewResponse(comment))
}
