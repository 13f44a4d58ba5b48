package billing

import (
	"time"

	"membership-api/internal/domain/users"
)

const (
	StatusActive            = "active"
	StatusCanceled          = "canceled"
	StatusPastDue           = "past_due"
	StatusIncomplete        = "incomplete"
	StatusIncompleteExpired = "incomplete_expired"
	StatusTrialing          = "trialing"
	StatusUnpaid            = "unpaid"
)

const (
	PlanTypeBasic   = "basic"
	PlanTypePremium = "premium"
	PlanTypeElite   = "elite"
)

// Subscription is the authoritative recurring-billing record, one row per
// Stripe subscription id. Rows are never deleted; cancellation transitions
// status to canceled and sets EndedAt.
type Subscription struct {
	ID     uint       `gorm:"primaryKey" json:"id"`
	UserID uint       `gorm:"index;not null" json:"userId"`
	User   users.User `json:"-"`

	StripeSubscriptionID string `gorm:"column:stripe_subscription_id;not null;uniqueIndex:idx_subscriptions_stripe_id" json:"stripeSubscriptionId"`
	StripeCustomerID     string `gorm:"column:stripe_customer_id;index" json:"stripeCustomerId"`
	StripePriceID        string `gorm:"column:stripe_price_id;not null" json:"stripePriceId"`
	StripeProductID      string `gorm:"column:stripe_product_id" json:"stripeProductId"`

	Status string `gorm:"not null;index" json:"status"`

	PlanName        string `gorm:"not null" json:"planName"`
	PlanType        string `gorm:"not null" json:"planType"` // basic | premium | elite
	BillingInterval string `json:"billingInterval"`          // month | year
	Amount          int64  `gorm:"not null" json:"amount"`
	Currency        string `gorm:"default:'usd'" json:"currency"`

	CurrentPeriodStart time.Time  `gorm:"not null" json:"currentPeriodStart"`
	CurrentPeriodEnd   time.Time  `gorm:"not null;index" json:"currentPeriodEnd"`
	CancelAtPeriodEnd  bool       `gorm:"default:false" json:"cancelAtPeriodEnd"`
	CanceledAt         *time.Time `json:"canceledAt,omitempty"`
	EndedAt            *time.Time `json:"endedAt,omitempty"`

	TrialStart *time.Time `json:"trialStart,omitempty"`
	TrialEnd   *time.Time `json:"trialEnd,omitempty"`

	// Unix seconds of the provider snapshot last applied to this row.
	// Writers update conditionally on stripe_revision so a late-arriving
	// stale webhook cannot regress a newer state.
	StripeRevision int64 `gorm:"column:stripe_revision;default:0" json:"-"`

	Metadata map[string]string `gorm:"serializer:json" json:"metadata,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsActive reports whether the subscription currently grants access.
func (s *Subscription) IsActive() bool {
	return s.Status == StatusActive || s.Status == StatusTrialing
}
