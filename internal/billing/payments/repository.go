package payments

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"membership-api/internal/billing"
	domain "membership-api/internal/domain/billing"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(p *domain.Payment) error {
	if err := r.db.Create(p).Error; err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// LatestIntentByUserID returns the user's most recent intent-path payment,
// or billing.ErrNotFound. Checkout-path rows are excluded: they never carry a
// reusable client secret.
func (r *Repository) LatestIntentByUserID(userID uint) (*domain.Payment, error) {
	var p domain.Payment
	err := r.db.
		Where("user_id = ? AND stripe_payment_intent_id IS NOT NULL", userID).
		Order("created_at DESC").
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, billing.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load payment: %w", err)
	}
	return &p, nil
}

func (r *Repository) FindByIntentID(intentID string) (*domain.Payment, error) {
	var p domain.Payment
	err := r.db.Where("stripe_payment_intent_id = ?", intentID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, billing.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load payment: %w", err)
	}
	return &p, nil
}

func (r *Repository) FindBySessionID(sessionID string) (*domain.Payment, error) {
	var p domain.Payment
	err := r.db.Where("stripe_checkout_session_id = ?", sessionID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, billing.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load payment: %w", err)
	}
	return &p, nil
}

func (r *Repository) HistoryByUserID(userID uint) ([]domain.Payment, error) {
	var out []domain.Payment
	err := r.db.
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("load payments: %w", err)
	}
	return out, nil
}

// MarkPaid transitions the row to paid under the applied-event-id guard: a
// redelivered event id leaves the row untouched.
func (r *Repository) MarkPaid(p *domain.Payment, eventID string) error {
	return r.transition(p, domain.PaymentStatusPaid, eventID)
}

// MarkFailed records a failed charge attempt under the same guard.
func (r *Repository) MarkFailed(p *domain.Payment, eventID string) error {
	return r.transition(p, domain.PaymentStatusFailed, eventID)
}

func (r *Repository) transition(p *domain.Payment, status, eventID string) error {
	for _, applied := range p.WebhookEventIDs {
		if applied == eventID {
			return nil
		}
	}

	p.Status = status
	p.WebhookEventIDs = append(p.WebhookEventIDs, eventID)
	if err := r.db.Save(p).Error; err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	return nil
}
