package handlers

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"marketplace-service/internal/delivery"
	"marketplace-service/internal/domain"
)

// SuccessResponse represents a success response
// @Description Success response with message
type SuccessResponse struct {
	Message string `json:"message" example:"item deleted successfully"`
}

// HealthResponse
// @Description Service liveness and storage reachability
type HealthResponse struct {
	Status  string `json:"status" example:"ok"`
	Service string `json:"service" example:"marketplace-service"`
	Store   string `json:"store" example:"ok"`
}

// GeoPointRequest is a WGS84 coordinate in degrees
type GeoPointRequest struct {
	Longitude float64 `json:"longitude" binding:"min=-180,max=180" example:"31.2357"`
	Latitude  float64 `json:"latitude" binding:"min=-90,max=90" example:"30.0444"`
}

func (p *GeoPointRequest) toDomain() *domain.GeoPoint {
	if p == nil {
		return nil
	}
	return &domain.GeoPoint{Longitude: p.Longitude, Latitude: p.Latitude}
}

// DestinationRequest is where the buyer wants the order delivered. Both fields are optional.
type DestinationRequest struct {
	City  string           `json:"city" example:"Cairo"`
	Point *GeoPointRequest `json:"point"`
}

func (d *DestinationRequest) toDomain() *domain.Destination {
	if d == nil {
		return nil
	}
	return &domain.Destination{City: d.City, Point: d.Point.toDomain()}
}

// OrderLineRequest is one requested (item, quantity) pair
type OrderLineRequest struct {
	ItemID   string `json:"item_id" binding:"required,uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	Quantity int    `json:"quantity" binding:"required,min=1" example:"2"`
}

// CreateOrderRequest
// @Description Checkout request. All items must belong to the same seller.
// @Description When delivery_fee is omitted and a destination is given, the fee is quoted from the seller's delivery profile.
type CreateOrderRequest struct {
	Items       []OrderLineRequest  `json:"items" binding:"required,min=1,dive"`
	DeliveryFee *decimal.Decimal    `json:"delivery_fee" swaggertype:"string" example:"4.50"`
	Destination *DestinationRequest `json:"destination"`
}

// TransitionOrderRequest moves an order to a new status
type TransitionOrderRequest struct {
	Status string `json:"status" binding:"required,oneof=pending accepted shipped delivered cancelled" example:"accepted"`
}

// OrderLineResponse is one line of an order with its snapshot price
type OrderLineResponse struct {
	ItemID    string `json:"item_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Quantity  int    `json:"quantity" example:"2"`
	UnitPrice string `json:"unit_price" example:"12.50"`
	LineTotal string `json:"line_total" example:"25.00"`
}

// OrderResponse
// @Description An order with its price snapshot
type OrderResponse struct {
	ID          string              `json:"id" example:"0b5a3f0e-6d1b-4a43-9a0c-1b0a1e1f5e77"`
	BuyerID     string              `json:"buyer_id"`
	SellerID    string              `json:"seller_id"`
	Items       []OrderLineResponse `json:"items"`
	DeliveryFee string              `json:"delivery_fee" example:"4.50"`
	TotalPrice  string              `json:"total_price" example:"29.50"`
	Status      string              `json:"status" example:"pending"`
	CreatedAt   string              `json:"created_at" example:"2024-01-15T10:30:00Z"`
	UpdatedAt   string              `json:"updated_at" example:"2024-01-15T10:30:00Z"`
}

func newOrderResponse(o *domain.Order) OrderResponse {
	return OrderResponse{
		ID:       o.ID.String(),
		BuyerID:  o.BuyerID.String(),
		SellerID: o.SellerID.String(),
		Items: lo.Map(o.Items, func(l domain.LineItem, _ int) OrderLineResponse {
			return OrderLineResponse{
				ItemID:    l.ItemID.String(),
				Quantity:  l.Quantity,
				UnitPrice: l.UnitPrice.StringFixed(2),
				LineTotal: l.LineTotal().StringFixed(2),
			}
		}),
		DeliveryFee: o.DeliveryFee.StringFixed(2),
		TotalPrice:  o.TotalPrice.StringFixed(2),
		Status:      string(o.Status),
		CreatedAt:   o.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   o.UpdatedAt.Format(time.RFC3339),
	}
}

// ListOrdersResponse
type ListOrdersResponse struct {
	Orders []OrderResponse `json:"orders"`
	Total  int             `json:"total" example:"1"`
}

// CreateItemRequest
// @Description Request to list a new item. Price and stock must not be negative.
type CreateItemRequest struct {
	Title        string          `json:"title" binding:"required" example:"Handmade ceramic mug"`
	Price        decimal.Decimal `json:"price" swaggertype:"string" example:"12.50"`
	Stock        int             `json:"stock" binding:"min=0" example:"20"`
	Category     string          `json:"category" example:"kitchen"`
	DeliveryDays int             `json:"delivery_days" binding:"min=0" example:"3"`
}

// UpdatePriceRequest reprices an item. Orders already placed keep their snapshot price.
type UpdatePriceRequest struct {
	Price decimal.Decimal `json:"price" swaggertype:"string" example:"10.00"`
}

// RestockRequest adds units to an item
type RestockRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1" example:"5"`
}

// ItemResponse
// @Description A catalog listing with its rating aggregate
type ItemResponse struct {
	ID            string  `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	SellerID      string  `json:"seller_id"`
	Title         string  `json:"title" example:"Handmade ceramic mug"`
	Price         string  `json:"price" example:"12.50"`
	Stock         int     `json:"stock" example:"20"`
	AvgRating     float64 `json:"avg_rating" example:"4.33"`
	CommentsCount int     `json:"comments_count" example:"3"`
	Category      string  `json:"category" example:"kitchen"`
	DeliveryDays  int     `json:"delivery_days" example:"3"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

func newItemResponse(i *domain.Item) ItemResponse {
	return ItemResponse{
		ID:            i.ID.String(),
		SellerID:      i.SellerID.String(),
		Title:         i.Title,
		Price:         i.Price.StringFixed(2),
		Stock:         i.Stock,
		AvgRating:     i.AvgRating,
		CommentsCount: i.CommentsCount,
		Category:      i.Category,
		DeliveryDays:  i.DeliveryDays,
		CreatedAt:     i.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     i.UpdatedAt.Format(time.RFC3339),
	}
}

// DeliverableRequest asks which of the given items can be delivered to a destination
type DeliverableRequest struct {
	ItemIDs []string         `json:"item_ids" binding:"required,min=1,dive,uuid"`
	City    string           `json:"city" example:"Cairo"`
	Point   *GeoPointRequest `json:"point"`
}

// DeliverableResponse keeps the request order of the deliverable items
type DeliverableResponse struct {
	Items []ItemResponse `json:"items"`
	Total int            `json:"total" example:"2"`
}

// DeliveryQuoteResponse
// @Description Delivery evaluation for one seller and destination
type DeliveryQuoteResponse struct {
	Deliverable bool    `json:"deliverable" example:"true"`
	DistanceKm  float64 `json:"distance_km" example:"8.42"`
	Fee         string  `json:"fee" example:"12.21"`
	Reason      string  `json:"reason,omitempty" example:"out of range"`
}

func newDeliveryQuoteResponse(r delivery.Result) DeliveryQuoteResponse {
	return DeliveryQuoteResponse{
		Deliverable: r.Deliverable,
		DistanceKm:  r.DistanceKm,
		Fee:         r.Fee.StringFixed(2),
		Reason:      r.Reason,
	}
}

// DeliveryProfileRequest replaces the seller's delivery settings
type DeliveryProfileRequest struct {
	Location           *GeoPointRequest `json:"location"`
	ServiceableCities  []string         `json:"serviceable_cities" example:"Cairo,Giza"`
	MaxDeliveryRangeKm float64          `json:"max_delivery_range_km" binding:"min=0" example:"25"`
	BaseDeliveryFee    decimal.Decimal  `json:"base_delivery_fee" swaggertype:"string" example:"5.00"`
	PricePerKm         decimal.Decimal  `json:"price_per_km" swaggertype:"string" example:"0.75"`
}

// DeliveryProfileResponse
type DeliveryProfileResponse struct {
	SellerID           string           `json:"seller_id"`
	Location           *domain.GeoPoint `json:"location,omitempty"`
	ServiceableCities  []string         `json:"serviceable_cities"`
	MaxDeliveryRangeKm float64          `json:"max_delivery_range_km"`
	BaseDeliveryFee    string           `json:"base_delivery_fee"`
	PricePerKm         string           `json:"price_per_km"`
	UpdatedAt          string           `json:"updated_at"`
}

func newDeliveryProfileResponse(p *domain.SellerDeliveryProfile) DeliveryProfileResponse {
	return DeliveryProfileResponse{
		SellerID:           p.SellerID.String(),
		Location:           p.Location,
		ServiceableCities:  p.ServiceableCities,
		MaxDeliveryRangeKm: p.MaxDeliveryRangeKm,
		BaseDeliveryFee:    p.BaseDeliveryFee.StringFixed(2),
		PricePerKm:         p.PricePerKm.StringFixed(2),
		UpdatedAt:          p.UpdatedAt.Format(time.RFC3339),
	}
}

// ReviewRequest comments on an item and optionally rates it.
// A linked order must belong to the reviewer and contain the item.
type ReviewRequest struct {
	Text    string  `json:"text" example:"Arrived well packed"`
	Rating  *int    `json:"rating" binding:"omitempty,min=1,max=5" example:"5"`
	OrderID *string `json:"order_id" binding:"omitempty,uuid"`
}

// ReviewResponse
type ReviewResponse struct {
	ID        string  `json:"id"`
	ItemID    string  `json:"item_id"`
	BuyerID   string  `json:"buyer_id"`
	OrderID   *string `json:"order_id,omitempty"`
	Text      string  `json:"text"`
	Rating    *int    `json:"rating,omitempty"`
	CreatedAt string  `json:"created_at"`
}

func newReviewResponse(c *domain.Comment) ReviewResponse {
	var orderID *string
	if c.OrderID != nil {
		orderID = lo.ToPtr(c.OrderID.String())
	}
	return ReviewResponse{
		ID:        c.ID.String(),
		ItemID:    c.ItemID.String(),
		BuyerID:   c.BuyerID.String(),
		OrderID:   orderID,
		Text:      c.Text,
		Rating:    c.Rating,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
	}
}

// ListReviewsResponse
type ListReviewsResponse struct {
	Reviews []ReviewResponse `json:"reviews"`
	Total   int              `json:"total" example:"1"`
}

// parseIDs converts already validated uuid strings.
func parseIDs(raw []string) []uuid.UUID {
	return lo.Map(raw, func(s string, _ int) uuid.UUID { return uuid.MustParse(s) })
}

// DeliveryQuoteQuery carries the destination of a quote. lat and lon go together.
type DeliveryQuoteQuery struct {
	City      string   `form:"city"`
	Latitude  *float64 `form:"lat" binding:"omitempty,min=-90,max=90"`
	Longitude *float64 `form:"lon" binding:"omitempty,min=-180,max=180"`
}

func (q DeliveryQuoteQuery) destination() (domain.Destination, bool) {
	dest := domain.Destination{City: q.City}
	switch {
	case q.Latitude == nil && q.Longitude == nil:
		return dest, true
	case q.Latitude == nil || q.Longitude == nil:
		return dest, false
	}
	dest.Point = &domain.GeoPoint{Longitude: *q.Longitude, Latitude: *q.Latitude}
	return dest, true
}
