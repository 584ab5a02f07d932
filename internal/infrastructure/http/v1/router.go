// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"barstock/internal/core/id"
	"barstock/internal/domain/availability"
	"barstock/internal/domain/catalog/product"
	"barstock/internal/domain/consignment"
	"barstock/internal/domain/sale"
	"barstock/internal/infrastructure/http/v1/handlers"
	"barstock/internal/infrastructure/http/v1/middleware"
	"barstock/internal/infrastructure/storage/postgres"
	"barstock/pkg/logger"
)

// RouterConfig holds everything the HTTP layer depends on.
type RouterConfig struct {
	// BarID is the bar this node serves.
	BarID id.ID

	Pool   *postgres.Pool
	Logger *logger.Logger

	Engine       *availability.Engine
	Products     *product.Service
	Sales        *sale.Service
	Consignments *consignment.Service

	// IdempotencyStore enables replay of retried writes. Nil disables the
	// middleware (tests).
	IdempotencyStore *postgres.IdempotencyStore

	Version string
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no bar context required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool, cfg.Engine, cfg.Version)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	baseHandler := handlers.NewBaseHandler()
	availabilityHandler := handlers.NewAvailabilityHandler(baseHandler, cfg.Engine)
	productHandler := handlers.NewProductHandler(baseHandler, cfg.Products)
	saleHandler := handlers.NewSaleHandler(baseHandler, cfg.Sales, cfg.Engine)
	consignmentHandler := handlers.NewConsignmentHandler(baseHandler, cfg.Consignments)

	// API v1
	api := router.Group("/api/v1")
	api.Use(middleware.BarContext(cfg.BarID))
	if cfg.IdempotencyStore != nil {
		api.Use(middleware.Idempotency(cfg.IdempotencyStore))
	}
	{
		avail := api.Group("/availability")
		{
			avail.GET("", availabilityHandler.List)
			avail.GET("/sources", availabilityHandler.Sources)
			avail.GET("/:productId", availabilityHandler.Get)
		}

		products := api.Group("/products")
		{
			products.POST("", productHandler.Create)
			products.GET("", productHandler.List)
			products.GET("/:productId", productHandler.Get)
			products.POST("/:productId/stock-adjustments", productHandler.AdjustStock)
		}

		sales := api.Group("/sales")
		{
			sales.POST("", saleHandler.Create)
			sales.POST("/validate", saleHandler.ValidateItems)
			sales.POST("/sync", saleHandler.Sync)
			sales.GET("/:saleId", saleHandler.Get)
			sales.POST("/:saleId/validate", saleHandler.Validate)
		}

		consignments := api.Group("/consignments")
		{
			consignments.POST("", consignmentHandler.Create)
			consignments.POST("/expire", consignmentHandler.Expire)
			consignments.GET("", consignmentHandler.List)
			consignments.GET("/:consignmentId", consignmentHandler.Get)
			consignments.POST("/:consignmentId/claim", consignmentHandler.Claim)
			consignments.POST("/:consignmentId/forfeit", consignmentHandler.Forfeit)
		}
	}

	return router
}
