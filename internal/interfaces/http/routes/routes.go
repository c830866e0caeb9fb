// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/your-org/farmshop-backend/internal/config"
	"github.com/your-org/farmshop-backend/internal/domain/catalog"
	"github.com/your-org/farmshop-backend/internal/domain/fulfillment"
	"github.com/your-org/farmshop-backend/internal/domain/ledger"
	"github.com/your-org/farmshop-backend/internal/domain/operator"
	"github.com/your-org/farmshop-backend/internal/domain/order"
	"github.com/your-org/farmshop-backend/internal/domain/producer"
	"github.com/your-org/farmshop-backend/internal/domain/webhook"
	"github.com/your-org/farmshop-backend/internal/interfaces/http/handlers"
	"github.com/your-org/farmshop-backend/internal/interfaces/http/middleware"
	"github.com/your-org/farmshop-backend/internal/pkg/email"
)

// SetupRoutes wires the domain services and registers all API routes.
func SetupRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config, logger *logrus.Logger) {
	emailService := email.NewEmailService(cfg, logger)

	catalogService := catalog.NewService(db)
	ledgerService := ledger.NewService(db, cfg, logger)
	orderService := order.NewService(db, cfg, catalogService, ledgerService, logger)
	operatorService := operator.NewService(db, cfg, logger)

	registry := producer.NewRegistry(cfg, emailService, logger)
	dispatcher := fulfillment.NewDispatcher(db, registry, cfg, ledgerService, logger)

	notifier := &orderNotifier{emailService: emailService}
	processor := webhook.NewProcessor(db, cfg, orderService, ledgerService, dispatcher, notifier, logger)

	authHandler := handlers.NewAuthHandler(operatorService)
	webhookHandler := handlers.NewWebhookHandler(cfg, processor, logger)
	orderHandler := handlers.NewOrderHandler(orderService, ledgerService)
	fulfillmentHandler := handlers.NewFulfillmentHandler(dispatcher)
	reportHandler := handlers.NewReportHandler(ledgerService)
	catalogHandler := handlers.NewCatalogHandler(catalogService)

	// Public endpoints. The webhook authenticates via HMAC signature,
	// not JWT.
	webhooks := rg.Group("/webhooks")
	{
		webhooks.POST("/payment", webhookHandler.HandlePaymentEvent)
	}

	auth := rg.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.RefreshToken)
	}

	// Operator dashboard endpoints.
	protected := rg.Group("")
	protected.Use(middleware.AuthMiddleware(cfg))
	{
		orders := protected.Group("/orders")
		{
			orders.GET("", orderHandler.List)
			orders.GET("/:id", orderHandler.Get)
			orders.GET("/:id/ledger", orderHandler.Ledger)
			orders.POST("/:id/refund", orderHandler.Refund)
			orders.POST("/:id/dispatch", fulfillmentHandler.DispatchOrder)
		}

		tasks := protected.Group("/fulfillment/tasks")
		{
			tasks.GET("", fulfillmentHandler.ListTasks)
			tasks.POST("/:id/retry", fulfillmentHandler.RetryTask)
			tasks.PUT("/:id/status", fulfillmentHandler.UpdateTaskStatus)
		}

		reports := protected.Group("/reports")
		{
			reports.POST("", reportHandler.Generate)
			reports.GET("", reportHandler.List)
		}

		catalogGroup := protected.Group("/catalog")
		{
			catalogGroup.GET("/variants/:sku", catalogHandler.GetVariant)
		}
	}
}
