package payments

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"membership-api/internal/billing"
	"membership-api/internal/billing/payments"
)

type Handler struct {
	svc *payments.Service
}

func NewHandler(svc *payments.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) CreatePaymentIntent(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var body struct {
		Amount int64 `json:"amount"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount"})
		return
	}

	result, err := h.svc.CreatePaymentIntent(userID, body.Amount)
	if err != nil {
		writeBillingError(c, err, "Failed to create payment intent")
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) CreateCheckout(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var body struct {
		Amount int64 `json:"amount"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount"})
		return
	}

	url, err := h.svc.CreateCheckout(userID, body.Amount)
	if err != nil {
		writeBillingError(c, err, "Failed to create checkout session")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (h *Handler) GetPaymentHistory(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	history, err := h.svc.History(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load payments"})
		return
	}

	c.JSON(http.StatusOK, history)
}

// writeBillingError maps expected business outcomes to their status codes and
// hides everything else behind a generic message.
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
