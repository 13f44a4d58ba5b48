package subscriptions

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"membership-api/internal/billing"
	domain "membership-api/internal/domain/billing"
	"membership-api/internal/domain/plans"
	"membership-api/internal/domain/users"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(sub *domain.Subscription) error {
	if err := r.db.Create(sub).Error; err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}
	return nil
}

func (r *Repository) FindByStripeID(stripeSubscriptionID string) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := r.db.Where("stripe_subscription_id = ?", stripeSubscriptionID).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, billing.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load subscription: %w", err)
	}
	return &sub, nil
}

// FindActiveByUserID returns the user's current subscription: the most recent
// row whose status is active or trialing. The one-active-subscription rule is
// enforced in the service, not by a database constraint.
func (r *Repository) FindActiveByUserID(userID uint) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := r.db.
		Where("user_id = ? AND status IN ?", userID, []string{domain.StatusActive, domain.StatusTrialing}).
		Order("created_at DESC").
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, billing.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load subscription: %w", err)
	}
	return &sub, nil
}

func (r *Repository) HistoryByUserID(userID uint) ([]domain.Subscription, error) {
	var out []domain.Subscription
	err := r.db.
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("load subscriptions: %w", err)
	}
	return out, nil
}

// ApplySnapshot writes provider-derived fields to the row, but only when the
// incoming revision is at least as fresh as the stored one. A stale webhook
// replay therefore cannot roll the row back. Returns false when the write was
// dropped as stale.
func (r *Repository) ApplySnapshot(stripeSubscriptionID string, updates map[string]interface{}, revision int64) (bool, error) {
	updates["stripe_revision"] = revision

	res := r.db.Model(&domain.Subscription{}).
		Where("stripe_subscription_id = ? AND stripe_revision <= ?", stripeSubscriptionID, revision).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("update subscription: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// MarkCanceled records a cancellation. Cancellation always wins over the
// revision guard: it is the one transition exempt from period-end
// monotonicity.
func (r *Repository) MarkCanceled(stripeSubscriptionID string, atPeriodEnd bool, now time.Time) error {
	updates := map[string]interface{}{
		"canceled_at":          now,
		"cancel_at_period_end": atPeriodEnd,
	}
	if !atPeriodEnd {
		updates["status"] = domain.StatusCanceled
		updates["ended_at"] = now
	}

	err := r.db.Model(&domain.Subscription{}).
		Where("stripe_subscription_id = ?", stripeSubscriptionID).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	return nil
}

func (r *Repository) ClearCancellation(stripeSubscriptionID string) error {
	err := r.db.Model(&domain.Subscription{}).
		Where("stripe_subscription_id = ?", stripeSubscriptionID).
		Updates(map[string]interface{}{
			"cancel_at_period_end": false,
			"canceled_at":          nil,
		}).Error
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	return nil
}

func (r *Repository) FindUserByID(userID uint) (*users.User, error) {
	var u users.User
	err := r.db.Where("id = ?", userID).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, billing.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &u, nil
}

func (r *Repository) SetStripeCustomerID(userID uint, customerID string) error {
	err := r.db.Model(&users.User{}).
		Where("id = ?", userID).
		Update("stripe_customer_id", customerID).Error
	if err != nil {
		return fmt.Errorf("store customer id: %w", err)
	}
	return nil
}

func (r *Repository) SetDefaultPaymentMethod(userID uint, paymentMethodID string) error {
	err := r.db.Model(&users.User{}).
		Where("id = ?", userID).
		Update("default_payment_method_id", paymentMethodID).Error
	if err != nil {
		return fmt.Errorf("store payment method: %w", err)
	}
	return nil
}

// SyncUserSubscription rewrites the denormalized billing snapshot on the user
// from the given subscription row. It is the single writer of those fields
// and is idempotent: re-running it with the same row is a no-op.
func (r *Repository) SyncUserSubscription(sub *domain.Subscription) error {
	updates := map[string]interface{}{
		"subscription_id":        sub.StripeSubscriptionID,
		"subscription_status":    sub.Status,
		"subscription_plan_id":   sub.StripePriceID,
		"subscription_plan_name": sub.PlanName,
		"current_period_start":   sub.CurrentPeriodStart,
		"current_period_end":     sub.CurrentPeriodEnd,
		"cancel_at_period_end":   sub.CancelAtPeriodEnd,
		"canceled_at":            sub.CanceledAt,
		"trial_end":              sub.TrialEnd,
		"membership_type":        sub.PlanType,
		"access_level":           plans.AccessLevel(sub.PlanType),
	}

	err := r.db.Model(&users.User{}).
		Where("id = ?", sub.UserID).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("sync user snapshot: %w", err)
	}
	return nil
}
