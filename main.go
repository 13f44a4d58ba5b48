package main

import (
	"os"
	"time"

	"membership-api/config"
	"membership-api/database"
	paymentsapi "membership-api/internal/api/payments"
	stripewebhooks "membership-api/internal/api/stripewebhook"
	subscriptionsapi "membership-api/internal/api/subscriptions"
	routes "membership-api/internal/app/http"
	"membership-api/internal/billing/payments"
	"membership-api/internal/billing/reconciler"
	"membership-api/internal/billing/subscriptions"
	"membership-api/internal/domain/plans"
	"membership-api/internal/infra/stripeapi"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func main() {
	// gin.SetMode(gin.ReleaseMode) uncomment only in production
	config.LoadEnv()
	database.InitDB()

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "membership-api").Logger()

	gateway := stripeapi.New(config.STRIPE_SECRET_KEY, config.FRONTEND_URL)

	catalog := plans.NewCatalog(map[string]plans.Plan{
		config.STRIPE_PRICE_BASIC_MONTHLY:   {Name: "Basic Monthly", Tier: "basic"},
		config.STRIPE_PRICE_PREMIUM_MONTHLY: {Name: "Premium Monthly", Tier: "premium"},
		config.STRIPE_PRICE_PREMIUM_ANNUAL:  {Name: "Premium Annual", Tier: "premium"},
		config.STRIPE_PRICE_ELITE_MONTHLY:   {Name: "Elite Monthly", Tier: "elite"},
	})

	paymentRepo := payments.NewRepository(database.DB)
	paymentSvc := payments.NewService(paymentRepo, gateway, logger.With().Str("component", "payments").Logger())

	subscriptionRepo := subscriptions.NewRepository(database.DB)
	subscriptionSvc := subscriptions.NewService(subscriptionRepo, gateway, catalog, logger.With().Str("component", "subscriptions").Logger())

	rec := reconciler.New(subscriptionRepo, paymentRepo, gateway, catalog, logger.With().Str("component", "reconciler").Logger())

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{os.Getenv("CORS_ORIGIN")},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, &routes.Handlers{
		Payments:      paymentsapi.NewHandler(paymentSvc),
		Subscriptions: subscriptionsapi.NewHandler(subscriptionSvc),
		Webhook:       stripewebhooks.NewHandler(rec, config.STRIPE_WEBHOOK_SECRET),
	})

	r.Run(":" + config.PORT)
}
