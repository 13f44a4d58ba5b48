package users

import (
	"time"
)

// User carries the account identity plus a denormalized snapshot of the
// latest known subscription. The snapshot fields are cache only: the
// Subscription row stays authoritative and the snapshot is rewritten by the
// sync step after every subscription write.
type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Name     string `json:"name"`
	Email    string `gorm:"not null;uniqueIndex:idx_users_email" json:"email"`
	Password string `json:"-"`
	Role     string `gorm:"type:varchar(20);not null;default:'member'" json:"role"`

	StripeCustomerID *string `gorm:"column:stripe_customer_id;uniqueIndex:idx_users_stripe_customer_id" json:"stripeCustomerId,omitempty"`

	SubscriptionID       *string    `gorm:"column:subscription_id;uniqueIndex:idx_users_subscription_id" json:"subscriptionId,omitempty"`
	SubscriptionStatus   *string    `gorm:"column:subscription_status" json:"subscriptionStatus,omitempty"`
	SubscriptionPlanID   *string    `gorm:"column:subscription_plan_id" json:"subscriptionPlanId,omitempty"`
	SubscriptionPlanName *string    `gorm:"column:subscription_plan_name" json:"subscriptionPlanName,omitempty"`
	CurrentPeriodStart   *time.Time `gorm:"column:current_period_start" json:"currentPeriodStart,omitempty"`
	CurrentPeriodEnd     *time.Time `gorm:"column:current_period_end" json:"currentPeriodEnd,omitempty"`
	CancelAtPeriodEnd    bool       `gorm:"column:cancel_at_period_end;default:false" json:"cancelAtPeriodEnd"`
	CanceledAt           *time.Time `gorm:"column:canceled_at" json:"canceledAt,omitempty"`
	TrialEnd             *time.Time `gorm:"column:trial_end" json:"trialEnd,omitempty"`

	MembershipType *string `gorm:"column:membership_type" json:"membershipType,omitempty"`
	AccessLevel    int     `gorm:"column:access_level;default:0" json:"accessLevel"`

	DefaultPaymentMethodID *string `gorm:"column:default_payment_method_id" json:"defaultPaymentMethodId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
