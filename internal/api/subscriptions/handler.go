package subscriptions

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"membership-api/config"
	"membership-api/internal/billing"
	"membership-api/internal/billing/subscriptions"
)

type Handler struct {
	svc *subscriptions.Service
}

func NewHandler(svc *subscriptions.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) GetPlans(c *gin.Context) {
	plans, err := h.svc.AvailablePlans()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch plans"})
		return
	}
	c.JSON(http.StatusOK, plans)
}

func (h *Handler) CreateSubscription(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var body struct {
		PriceID         string `json:"priceId"`
		PaymentMethodID string `json:"paymentMethodId"`
		TrialDays       int64  `json:"trialDays"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.PriceID == "" || body.PaymentMethodID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields: priceId, paymentMethodId"})
		return
	}

	result, err := h.svc.Create(userID, body.PriceID, body.PaymentMethodID, body.TrialDays)
	if err != nil {
		writeBillingError(c, err, "Failed to create subscription")
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (h *Handler) GetCurrentSubscription(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	sub, err := h.svc.ActiveForUser(userID)
	if err != nil {
		writeBillingError(c, err, "Failed to fetch subscription")
		return
	}

	c.JSON(http.StatusOK, sub)
}

func (h *Handler) CancelSubscription(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var body struct {
		Immediate bool `json:"immediate"`
	}
	_ = c.ShouldBindJSON(&body)

	sub, err := h.svc.Cancel(userID, body.Immediate)
	if err != nil {
		writeBillingError(c, err, "Failed to cancel subscription")
		return
	}

	message := "Subscription will be canceled at the end of the billing period"
	if body.Immediate {
		message = "Subscription canceled immediately"
	}
	c.JSON(http.StatusOK, gin.H{"subscription": sub, "message": message})
}

func (h *Handler) ResumeSubscription(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	sub, err := h.svc.Resume(userID)
	if err != nil {
		writeBillingError(c, err, "Failed to resume subscription")
		return
	}

	c.JSON(http.StatusOK, gin.H{"subscription": sub, "message": "Subscription resumed successfully"})
}

func (h *Handler) ChangeSubscriptionPlan(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var body struct {
		NewPriceID string `json:"newPriceId"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.NewPriceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required field: newPriceId"})
		return
	}

	sub, err := h.svc.ChangePlan(userID, body.NewPriceID)
	if err != nil {
		writeBillingError(c, err, "Failed to change subscription plan")
		return
	}

	c.JSON(http.StatusOK, gin.H{"subscription": sub, "message": "Plan changed successfully"})
}

func (h *Handler) GetSubscriptionHistory(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	history, err := h.svc.History(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch subscription history"})
		return
	}

	c.JSON(http.StatusOK, history)
}

func (h *Handler) CreatePortalSession(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var body struct {
		ReturnURL string `json:"returnUrl"`
	}
	_ = c.ShouldBindJSON(&body)
	if body.ReturnURL == "" {
		body.ReturnURL = config.FRONTEND_URL + "/account"
	}

	url, err := h.svc.PortalSession(userID, body.ReturnURL)
	if err != nil {
		writeBillingError(c, err, "Failed to create portal session")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (h *Handler) MemberArea(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Welcome to member area"})
}

func writeBillingError(c *gin.Context, err error, generic string) {
	switch {
	case errors.Is(err, billing.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, billing.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": generic})
	}
}
