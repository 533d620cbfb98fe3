package handlers

import (
	"github.com/gin-gonic/gin"

	"marketplace-service/internal/domain"
	"marketplace-service/pkg/middleware"
)

// Routes groups what RegisterRoutes needs to mount the API.
type Routes struct {
	Health  *HealthHandler
	Orders  *OrderHandler
	Catalog *CatalogHandler
	Reviews *ReviewHandler

	// Auth authenticates the caller; Idempotency runs after it so replays are per user.
	Auth        gin.HandlerFunc
	Idempotency gin.HandlerFunc
}

// RegisterRoutes mounts every endpoint under v1.
func RegisterRoutes(v1 *gin.RouterGroup, r Routes) {
	v1.GET("/health", r.Health.Health)

	// public catalog browsing
	v1.GET("/items/:id", r.Catalog.GetItem)
	v1.GET("/items/:id/reviews", r.Catalog.ListReviews)
	v1.POST("/catalog/deliverable", r.Catalog.FilterDeliverable)
	v1.GET("/sellers/:id/delivery-quote", r.Catalog.DeliveryQuote)

	protected := v1.Group("")
	protected.Use(r.Auth)
	if r.Idempotency != nil {
		protected.Use(r.Idempotency)
	}
	{
		protected.POST("/orders", r.Orders.CreateOrder)
		protected.GET("/orders", r.Orders.ListOrders)
		protected.GET("/orders/:id", r.Orders.GetOrder)
		protected.POST("/orders/:id/status", r.Orders.TransitionOrder)
		protected.POST("/items/:id/reviews", r.Reviews.RecordReview)

		seller := protected.Group("")
		seller.Use(middleware.RequireRole(domain.RoleSeller))
		{
			seller.POST("/items", r.Catalog.CreateItem)
			seller.PUT("/items/:id/price", r.Catalog.UpdateItemPrice)
			seller.POST("/items/:id/restock", r.Catalog.RestockItem)
			seller.DELETE("/items/:id", r.Catalog.DeleteItem)
			seller.PUT("/sellers/me/delivery-profile", r.Catalog.UpsertDeliveryProfile)
		}
	}
}
