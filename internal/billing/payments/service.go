package payments

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v75"

	"membership-api/internal/billing"
	domain "membership-api/internal/domain/billing"
)

type IntentResult struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
}

type Service struct {
	repo    *Repository
	gateway billing.Gateway
	log     zerolog.Logger
}

func NewService(repo *Repository, gateway billing.Gateway, log zerolog.Logger) *Service {
	return &Service{repo: repo, gateway: gateway, log: log}
}

// CreatePaymentIntent returns a client secret for the user's one-time charge.
// If a prior intent-path payment exists, the paired intent is re-fetched and
// its secret returned so a reloaded payment page does not pile up duplicate
// intents; a canceled intent falls through to a fresh one.
func (s *Service) CreatePaymentIntent(userID uint, amount int64) (*IntentResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", billing.ErrConflict)
	}

	existing, err := s.repo.LatestIntentByUserID(userID)
	if err != nil && !errors.Is(err, billing.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		intent, err := s.gateway.GetPaymentIntent(*existing.StripePaymentIntentID)
		if err != nil {
			return nil, err
		}
		if intent.Status != stripe.PaymentIntentStatusCanceled {
			return &IntentResult{
				ClientSecret:    intent.ClientSecret,
				PaymentIntentID: intent.ID,
			}, nil
		}
		// terminal intent, create a new one below
	}

	intent, err := s.gateway.CreatePaymentIntent(amount, "usd", map[string]string{
		"userId": fmt.Sprint(userID),
	})
	if err != nil {
		return nil, err
	}

	payment := &domain.Payment{
		UserID:                userID,
		StripePaymentIntentID: &intent.ID,
		Amount:                amount,
		Currency:              "usd",
		Status:                domain.PaymentStatusPending,
	}
	if err := s.repo.Create(payment); err != nil {
		return nil, err
	}

	s.log.Info().Uint("user_id", userID).Str("intent_id", intent.ID).Msg("payment intent created")

	return &IntentResult{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
	}, nil
}

// CreateCheckout always opens a fresh checkout session; sessions are
// short-lived and never reused.
func (s *Service) CreateCheckout(userID uint, amount int64) (string, error) {
	if amount <= 0 {
		return "", fmt.Errorf("%w: amount must be positive", billing.ErrConflict)
	}

	sess, err := s.gateway.CreateCheckoutSession(amount, "usd", map[string]string{
		"userId": fmt.Sprint(userID),
	})
	if err != nil {
		return "", err
	}

	payment := &domain.Payment{
		UserID:                  userID,
		StripeCheckoutSessionID: &sess.ID,
		Amount:                  amount,
		Currency:                "usd",
		Status:                  domain.PaymentStatusPending,
	}
	if err := s.repo.Create(payment); err != nil {
		return "", err
	}

	s.log.Info().Uint("user_id", userID).Str("session_id", sess.ID).Msg("checkout session created")

	return sess.URL, nil
}

func (s *Service) History(userID uint) ([]domain.Payment, error) {
	return s.repo.HistoryByUserID(userID)
}
