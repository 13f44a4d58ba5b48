package stripewebhooks

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v75/webhook"

	"membership-api/internal/billing/reconciler"
)

type Handler struct {
	reconciler *reconciler.Reconciler
	secret     string
}

func NewHandler(rec *reconciler.Reconciler, webhookSecret string) *Handler {
	return &Handler{reconciler: rec, secret: webhookSecret}
}

// StripeWebhook verifies and dispatches a raw Stripe event. Verification is
// the sole trust boundary: the body must reach ConstructEvent unparsed and
// unmodified. A 5xx response makes Stripe redeliver, which is safe because
// every handler is idempotent.
func (h *Handler) StripeWebhook(c *gin.Context) {
	payload, err := readStripeBody(c, 65536)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Error reading request body"})
		return
	}

	event, err := webhook.ConstructEventWithOptions(
		payload,
		c.GetHeader("Stripe-Signature"),
		h.secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Signature verification failed"})
		return
	}

	if err := h.reconciler.HandleEvent(&event); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Webhook handler failed",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func readStripeBody(c *gin.Context, maxBytes int64) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	return io.ReadAll(c.Request.Body)
}
