package billing

import (
	"time"

	"membership-api/internal/domain/users"
)

const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

// Payment is a one-time charge attempt. Exactly one of the two Stripe ids is
// set: the intent id for the PaymentIntent path, the session id for the
// Checkout path. Rows are created pending and only ever move forward through
// MarkPaid/MarkFailed; they are never deleted.
type Payment struct {
	ID     uint       `gorm:"primaryKey" json:"id"`
	UserID uint       `gorm:"index;not null" json:"userId"`
	User   users.User `json:"-"`

	StripePaymentIntentID   *string `gorm:"column:stripe_payment_intent_id;uniqueIndex:idx_payments_intent_id" json:"stripePaymentIntentId,omitempty"`
	StripeCheckoutSessionID *string `gorm:"column:stripe_checkout_session_id;uniqueIndex:idx_payments_session_id" json:"stripeCheckoutSessionId,omitempty"`

	Amount   int64  `gorm:"not null" json:"amount"` // minor currency units
	Currency string `gorm:"default:'usd'" json:"currency"`
	Status   string `gorm:"not null;default:'pending'" json:"status"`

	// Webhook event ids already applied to this row. Redelivered events are
	// recognized here and skipped.
	WebhookEventIDs []string `gorm:"column:webhook_event_ids;serializer:json" json:"webhookEventIds"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
