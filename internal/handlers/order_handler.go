package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"marketplace-service/internal/commands"
	"marketplace-service/internal/domain"
	"marketplace-service/internal/ordering"
	"marketplace-service/pkg/errors"
	"marketplace-service/pkg/middleware"
)

type OrderHandler struct {
	logger *zap.Logger
	orders *ordering.Service
}

func NewOrderHandler(logger *zap.Logger, orders *ordering.Service) *OrderHandler {
	return &OrderHandler{logger: logger, orders: orders}
}

// CreateOrder handles POST /api/v1/orders
// @Summary      Place an order
// @Description  Reserves stock for every line and creates a pending order. Either every line is reserved or nothing changes.
// @Description  **Idempotency**: send X-Request-ID to have a retried request replay the first response.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        X-Request-ID  header    string              false  "Request ID for idempotency (UUID)"
// @Param        request       body      CreateOrderRequest  true   "Order lines, optional fee and destination"
// @Success      201           {object}  OrderResponse
// @Failure      400           {object}  errors.StandardError  "Invalid body, empty order, mixed sellers"
// @Failure      401           {object}  errors.StandardError
// @Failure      404           {object}  errors.StandardError  "Unknown item"
// @Failure      409           {object}  errors.StandardError  "Insufficient stock"
// @Failure      422           {object}  errors.StandardError  "Seller does not deliver to the destination"
// @Router       /orders [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	actorID, _, ok := middleware.Actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errors.NewUnauthorized("missing actor", ""))
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request", zap.Error(err))
		c.JSON(http.StatusBadRequest, errors.NewInvalidRequest("invalid request body", err.Error()))
		return
	}

	cmd := commands.CreateOrderCommand{
		BuyerID: actorID,
		Items: lo.Map(req.Items, func(l OrderLineRequest, _ int) commands.LineRequest {
			return commands.LineRequest{ItemID: uuid.MustParse(l.ItemID), Quantity: l.Quantity}
		}),
		DeliveryFee: req.DeliveryFee,
		Destination: req.Destination.toDomain(),
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), cmd)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, newOrderResponse(order))
}

// TransitionOrder handles POST /api/v1/orders/:id/status
// @Summary      Change an order's status
// @Description  Sellers move their orders forward or cancel them before delivery. Buyers confirm delivery or cancel while pending.
// @Description  Cancelling restores the reserved stock.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                  true  "Order ID (UUID)"
// @Param        request  body      TransitionOrderRequest  true  "Target status"
// @Success      200      {object}  OrderResponse
// @Failure      400      {object}  errors.StandardError
// @Failure      403      {object}  errors.StandardError  "Not the buyer or seller of the order"
// @Failure      404      {object}  errors.StandardError
// @Failure      409      {object}  errors.StandardError  "Transition not allowed, or the order changed concurrently"
// @Router       /orders/{id}/status [post]
func (h *OrderHandler) TransitionOrder(c *gin.Context) {
	actorID, role, ok := middleware.Actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errors.NewUnauthorized("missing actor", ""))
		return
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errors.NewInvalidRequest("invalid order ID", c.Param("id")))
		return
	}

	var req TransitionOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.NewInvalidRequest("invalid request body", err.Error()))
		return
	}

	order, err := h.orders.TransitionOrder(c.Request.Context(), commands.TransitionOrderCommand{
		OrderID: orderID,
		ActorID: actorID,
		Role:    role,
		Target:  domain.OrderStatus(req.Status),
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, newOrderResponse(order))
}

// GetOrder handles GET /api/v1/orders/:id
// @Summary      Get an order
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Order ID (UUID)"
// @Success      200  {object}  OrderResponse
// @Failure      403  {object}  errors.StandardError
// @Failure      404  {object}  errors.StandardError
// @Router       /orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	actorID, _, ok := middleware.Actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errors.NewUnauthorized("missing actor", ""))
		return
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errors.NewInvalidRequest("invalid order ID", c.Param("id")))
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), orderID, actorID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, newOrderResponse(order))
}

// ListOrders handles GET /api/v1/orders
// @Summary      List my orders
// @Description  Buyers see their purchases, sellers their sales. Newest first.
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  ListOrdersResponse
// @Router       /orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	actorID, role, ok := middleware.Actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errors.NewUnauthorized("missing actor", ""))
		return
	}

	orders, err := h.orders.ListOrders(c.Request.Context(), actorID, role)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ListOrdersResponse{
		Orders: lo.Map(orders, func(o *domain.Order, _ int) OrderResponse { return newOrderResponse(o) }),
		Total:  len(orders),
	})
}
