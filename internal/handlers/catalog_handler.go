package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"marketplace-service/internal/catalog"
	"marketplace-service/internal/commands"
	"marketplace-service/internal/delivery"
	"marketplace-service/internal/domain"
	"marketplace-service/pkg/errors"
	"marketplace-service/pkg/middleware"
)

type CatalogHandler struct {
	logger   *zap.Logger
	catalog  *catalog.Service
	delivery *delivery.Service
}

func NewCatalogHandler(logger *zap.Logger, catalogService *catalog.Service, quotes *delivery.Service) *CatalogHandler {
	return &CatalogHandler{logger: logger, catalog: catalogService, delivery: quotes}
}

// GetItem handles GET /api/v1/items/:id
// @Summary      Get an item
// @Tags         catalog
// @Produce      json
// @Param        id   path      string  true  "Item ID (UUID)"
// @Success      200  {object}  ItemResponse
// @Failure      400  {object}  errors.StandardError
// @Failure      404  {object}  errors.StandardError
// @Router       /items/{id} [get]
func (h *CatalogHandler) GetItem(c *gin.Context) {
	itemID, ok := h.itemID(c)
	if !ok {
		return
	}

	item, err := h.catalog.GetItem(c.Request.Context(), itemID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, newItemResponse(item))
}

// ListReviews handles GET /api/v1/items/:id/reviews
// @Summary      List an item's reviews
// @Description  Oldest first.
// @Tags         catalog
// @Produce      json
// @Param        id   path      string  true  "Item ID (UUID)"
// @Success      200  {object}  ListReviewsResponse
// @Failure      404  {object}  errors.StandardError
// @Router       /items/{id}/reviews [get]
func (h *CatalogHandler) ListReviews(c *gin.Context) {
	itemID, ok := h.itemID(c)
	if !ok {
		return
	}

	reviews, err := h.catalog.ListReviews(c.Request.Context(), itemID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ListReviewsResponse{
		Reviews: lo.Map(reviews, func(r *domain.Comment, _ int) ReviewResponse { return newReviewResponse(r) }),
		Total:   len(reviews),
	})
}

// FilterDeliverable handles POST /api/v1/catalog/deliverable
// @Summary      Filter items by destination
// @Description  Returns the items whose seller delivers to the destination, in request order. Unknown item IDs are skipped.
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Param        request  body      DeliverableRequest  true  "Candidate items and destination"
// @Success      200      {object}  DeliverableResponse
// @Failure      400      {object}  errors.StandardError
// @Router       /catalog/deliverable [post]
func (h *CatalogHandler) FilterDeliverable(c *gin.Context) {
	var req DeliverableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.NewInvalidRequest("invalid request body", err.Error()))
		return
	}

	items, err := h.catalog.Deliverable(c.Request.Context(), parseIDs(req.ItemIDs), domain.Destination{
		City:  req.City,
		Point: req.Point.toDomain(),
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, DeliverableResponse{
		Items: lo.Map(items, func(i *domain.Item, _ int) ItemResponse { return newItemResponse(i) }),
		Total: len(items),
	})
}

// DeliveryQuote handles GET /api/v1/sellers/:id/delivery-quote
// @Summary      Quote delivery from a seller
// @Description  Evaluates the seller's delivery profile for a destination city and/or point.
// @Description  Sellers without a profile deliver for free.
// @Tags         delivery
// @Produce      json
// @Param        id    path      string  true   "Seller ID (UUID)"
// @Param        city  query     string  false  "Destination city"
// @Param        lat   query     number  false  "Destination latitude"
// @Param        lon   query     number  false  "Destination longitude"
// @Success      200   {object}  DeliveryQuoteResponse
// @Failure      400   {object}  errors.StandardError
// @Router       /sellers/{id}/delivery-quote [get]
func (h *CatalogHandler) DeliveryQuote(c *gin.Context) {
	sellerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errors.NewInvalidRequest("invalid seller ID", c.Param("id")))
		return
	}

	var query DeliveryQuoteQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errors.NewInvalidRequest("invalid query", err.Error()))
		return
	}
	dest, ok := query.destination()
	if !ok {
		c.JSON(http.StatusBadRequest, errors.NewInvalidRequest("lat and lon must be given together", ""))
		return
	}

	result, err := h.delivery.Quote(c.Request.Context(), sellerID, dest)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, newDeliveryQuoteResponse(result))
}

// CreateItem handles POST /api/v1/items
// @Summary      List a new item
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        X-Request-ID  header    string             false  "Request ID for idempotency (UUID)"
// @Param        request       body      CreateItemRequest  true   "Item to list"
// @Success      201           {object}  ItemResponse
// @Failure      400           {object}  errors.StandardError
// @Failure      403           {object}  errors.StandardError  "Only sellers can list items"
// @Router       /items [post]
func (h *CatalogHandler) CreateItem(c *gin.Context) {
	sellerID, _, ok := middleware.Actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errors.NewUnauthorized("missing actor", ""))
		return
	}

	var req CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request", zap.Error(err))
		c.JSON(http.StatusBadRequest, errors.NewInvalidRequest("invalid request body", err.Error()))
		return
	}

	item, err := h.catalog.CreateItem(c.Request.Context(), commands.CreateItemCommand{
		SellerID:     sellerID,
		Title:        req.Title,
		Price:        req.Price,
		Stock:        req.Stock,
		Category:     req.Category,
		DeliveryDays: req.DeliveryDays,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, newItemResponse(item))
}

// UpdateItemPrice handles PUT /api/v1/items/:id/price
// @Summary      Reprice an item
// @Description  Orders already placed keep the price they were placed at.
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string              true  "Item ID (UUID)"
// @Param        request  body      UpdatePriceRequest  true  "New price"
// @Success      200      {object}  ItemResponse
// @Failure      400      {object}  errors.StandardError
// @Failure      403      {object}  errors.StandardError
// @Failure      404      {object}  errors.StandardError
// @Router       /items/{id}/price [put]
func (h *CatalogHandler) UpdateItemPrice(c *gin.Context) {
	sellerID, itemID, ok := h.ownerAndItem(c)
	if !ok {
		return
	}

	var req UpdatePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.NewInvalidRequest("invalid request body", err.Error()))
		return
	}

	item, err := h.catalog.UpdateItemPrice(c.Request.Context(), commands.UpdateItemPriceCommand{
		ItemID:   itemID,
		SellerID: sellerID,
		Price:    req.Price,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, newItemResponse(item))
}

// RestockItem handles POST /api/v1/items/:id/restock
// @Summary      Add stock to an item
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        X-Request-ID  header    string          false  "Request ID for idempotency (UUID)"
// @Param        id            path      string          true   "Item ID (UUID)"
// @Param        request       body      RestockRequest  true   "Units to add"
// @Success      200           {object}  ItemResponse
// @Failure      400           {object}  errors.StandardError
// @Failure      403           {object}  errors.StandardError
// @Failure      404           {object}  errors.StandardError
// @Router       /items/{id}/restock [post]
func (h *CatalogHandler) RestockItem(c *gin.Context) {
	sellerID, itemID, ok := h.ownerAndItem(c)
	if !ok {
		return
	}

	var req RestockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.NewInvalidRequest("invalid request body", err.Error()))
		return
	}

	item, err := h.catalog.RestockItem(c.Request.Context(), commands.RestockItemCommand{
		ItemID:   itemID,
		SellerID: sellerID,
		Quantity: req.Quantity,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, newItemResponse(item))
}

// DeleteItem handles DELETE /api/v1/items/:id
// @Summary      Delete an item
// @Description  Rejected while a pending, accepted or shipped order holds the item.
// @Tags         catalog
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Item ID (UUID)"
// @Success      200  {object}  SuccessResponse
// @Failure      403  {object}  errors.StandardError
// @Failure      404  {object}  errors.StandardError
// @Failure      409  {object}  errors.StandardError  "Item is held by an open order"
// @Router       /items/{id} [delete]
func (h *CatalogHandler) DeleteItem(c *gin.Context) {
	sellerID, itemID, ok := h.ownerAndItem(c)
	if !ok {
		return
	}

	if err := h.catalog.DeleteItem(c.Request.Context(), commands.DeleteItemCommand{ItemID: itemID, SellerID: sellerID}); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "item deleted successfully"})
}

// UpsertDeliveryProfile handles PUT /api/v1/sellers/me/delivery-profile
// @Summary      Set my delivery profile
// @Description  Replaces the seller's location, serviceable cities, range and fees. Cities match case-insensitively.
// @Description  A max_delivery_range_km of 0 disables the range check.
// @Tags         delivery
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      DeliveryProfileRequest  true  "Delivery settings"
// @Success      200      {object}  DeliveryProfileResponse
// @Failure      400      {object}  errors.StandardError
// @Failure      403      {object}  errors.StandardError
// @Router       /sellers/me/delivery-profile [put]
func (h *CatalogHandler) UpsertDeliveryProfile(c *gin.Context) {
	sellerID, _, ok := middleware.Actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errors.NewUnauthorized("missing actor", ""))
		return
	}

	var req DeliveryProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.NewInvalidRequest("invalid request body", err.Error()))
		return
	}

	profile, err := h.catalog.UpsertDeliveryProfile(c.Request.Context(), commands.UpsertDeliveryProfileCommand{
		SellerID:           sellerID,
		Location:           req.Location.toDomain(),
		ServiceableCities:  req.ServiceableCities,
		MaxDeliveryRangeKm: req.MaxDeliveryRangeKm,
		BaseDeliveryFee:    req.BaseDeliveryFee,
		PricePerKm:         req.PricePerKm,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, newDeliveryProfileResponse(profile))
}

func (h *CatalogHandler) itemID(c *gin.Context) (uuid.UUID, bool) {
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errors.NewInvalidRequest("invalid item ID", c.Param("id")))
		return uuid.Nil, false
	}
	return itemID, true
}

func (h *CatalogHandler) ownerAndItem(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	sellerID, _, ok := middleware.Actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errors.NewUnauthorized("missing actor", ""))
		return uuid.Nil, uuid.Nil, false
	}
	itemID, ok := h.itemID(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	return sellerID, itemID, true
}
