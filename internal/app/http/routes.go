package routes

import (
	authapi "membership-api/internal/api/auth"
	paymentsapi "membership-api/internal/api/payments"
	stripewebhooks "membership-api/internal/api/stripewebhook"
	subscriptionsapi "membership-api/internal/api/subscriptions"
	usersapi "membership-api/internal/api/users"
	"membership-api/internal/app/http/middleware"
	domain "membership-api/internal/domain/billing"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Payments      *paymentsapi.Handler
	Subscriptions *subscriptionsapi.Handler
	Webhook       *stripewebhooks.Handler
}

func RegisterRoutes(r *gin.Engine, h *Handlers) {
	// Raw body must reach the webhook handler untouched, so it stays outside
	// the sanitizing group.
	r.POST("/api/webhooks/stripe", h.Webhook.StripeWebhook)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	r.GET("/api/subscriptions/plans", h.Subscriptions.GetPlans)

	public := r.Group("/api/users")
	public.Use(middleware.SanitizeInputMiddleware())
	public.POST("/register", authapi.Register)
	public.POST("/login", authapi.Login)

	// Authenticated
	auth := r.Group("/api")
	auth.Use(middleware.AuthMiddleware())
	auth.GET("/users/me", usersapi.GetCurrentUser)
	auth.POST("/users/change-password", authapi.ChangePassword)

	auth.POST("/payments/create-payment-intent", h.Payments.CreatePaymentIntent)
	auth.POST("/payments/checkout", h.Payments.CreateCheckout)
	auth.GET("/payments", h.Payments.GetPaymentHistory)

	auth.POST("/subscriptions/create", h.Subscriptions.CreateSubscription)
	auth.POST("/subscriptions/cancel", h.Subscriptions.CancelSubscription)
	auth.POST("/subscriptions/resume", h.Subscriptions.ResumeSubscription)
	auth.POST("/subscriptions/change-plan", h.Subscriptions.ChangeSubscriptionPlan)
	auth.GET("/subscriptions/history", h.Subscriptions.GetSubscriptionHistory)
	auth.POST("/subscriptions/portal", h.Subscriptions.CreatePortalSession)

	// Subscribed users
	subscribed := auth.Group("/")
	subscribed.Use(middleware.RequireActiveSubscription())
	subscribed.GET("/subscriptions/current", h.Subscriptions.GetCurrentSubscription)
	subscribed.GET("/subscriptions/member-area", h.Subscriptions.MemberArea)

	// Premium and up
	premium := auth.Group("/")
	premium.Use(middleware.RequireMembershipType(domain.PlanTypePremium, domain.PlanTypeElite))
	premium.GET("/subscriptions/premium-area", h.Subscriptions.MemberArea)

	// Elite only, gated on the cached access level
	elite := auth.Group("/")
	elite.Use(middleware.RequireAccessLevel(3))
	elite.GET("/subscriptions/elite-area", h.Subscriptions.MemberArea)
}
