package subscriptions

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v75"

	"membership-api/internal/billing"
	domain "membership-api/internal/domain/billing"
	"membership-api/internal/domain/plans"
)

type CreateResult struct {
	Subscription *domain.Subscription `json:"subscription"`
	ClientSecret string               `json:"clientSecret,omitempty"`
}

type PlanListing struct {
	PriceID   string `json:"priceId"`
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Interval  string `json:"interval"`
}

type Service struct {
	repo    *Repository
	gateway billing.Gateway
	catalog *plans.Catalog
	log     zerolog.Logger
}

func NewService(repo *Repository, gateway billing.Gateway, catalog *plans.Catalog, log zerolog.Logger) *Service {
	return &Service{repo: repo, gateway: gateway, catalog: catalog, log: log}
}

// Create starts a recurring subscription for the user. The stored row is
// derived entirely from the provider's returned object; local assumptions
// about price or amount are never persisted. Every mutating operation here
// ends with the user-snapshot sync.
func (s *Service) Create(userID uint, priceID, paymentMethodID string, trialDays int64) (*CreateResult, error) {
	plan, ok := s.catalog.Lookup(priceID)
	if !ok {
		return nil, fmt.Errorf("%w: unknown price id %s", billing.ErrConflict, priceID)
	}

	user, err := s.repo.FindUserByID(userID)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.FindActiveByUserID(userID); err == nil {
		return nil, fmt.Errorf("%w: user already has an active subscription", billing.ErrConflict)
	} else if !errors.Is(err, billing.ErrNotFound) {
		return nil, err
	}

	customerID := ""
	if user.StripeCustomerID != nil {
		customerID = *user.StripeCustomerID
	}
	if customerID == "" {
		cus, err := s.gateway.CreateOrGetCustomer(user.Email, user.Name, userID)
		if err != nil {
			return nil, err
		}
		customerID = cus.ID
		if err := s.repo.SetStripeCustomerID(userID, customerID); err != nil {
			return nil, err
		}
	}

	if err := s.gateway.AttachPaymentMethod(paymentMethodID, customerID); err != nil {
		return nil, err
	}
	if err := s.repo.SetDefaultPaymentMethod(userID, paymentMethodID); err != nil {
		return nil, err
	}

	stripeSub, err := s.gateway.CreateSubscription(customerID, priceID, trialDays)
	if err != nil {
		return nil, err
	}

	sub, err := newFromStripe(userID, customerID, plan, stripeSub)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(sub); err != nil {
		return nil, err
	}
	if err := s.repo.SyncUserSubscription(sub); err != nil {
		return nil, err
	}

	s.log.Info().
		Uint("user_id", userID).
		Str("subscription_id", sub.StripeSubscriptionID).
		Str("plan", sub.PlanName).
		Msg("subscription created")

	result := &CreateResult{Subscription: sub}
	if stripeSub.LatestInvoice != nil && stripeSub.LatestInvoice.PaymentIntent != nil {
		result.ClientSecret = stripeSub.LatestInvoice.PaymentIntent.ClientSecret
	}
	return result, nil
}

// Cancel ends the subscription, either immediately or at period end. The
// provider call comes first: local state must never claim a cancellation
// Stripe has not accepted.
func (s *Service) Cancel(userID uint, immediate bool) (*domain.Subscription, error) {
	sub, err := s.repo.FindActiveByUserID(userID)
	if err != nil {
		return nil, err
	}

	if _, err := s.gateway.CancelSubscription(sub.StripeSubscriptionID, !immediate); err != nil {
		return nil, err
	}

	if err := s.repo.MarkCanceled(sub.StripeSubscriptionID, !immediate, time.Now()); err != nil {
		return nil, err
	}

	updated, err := s.repo.FindByStripeID(sub.StripeSubscriptionID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SyncUserSubscription(updated); err != nil {
		return nil, err
	}

	s.log.Info().
		Uint("user_id", userID).
		Str("subscription_id", sub.StripeSubscriptionID).
		Bool("immediate", immediate).
		Msg("subscription canceled")

	return updated, nil
}

// Resume clears a pending period-end cancellation. A subscription not
// scheduled for cancellation cannot be resumed.
func (s *Service) Resume(userID uint) (*domain.Subscription, error) {
	sub, err := s.repo.FindActiveByUserID(userID)
	if err != nil {
		return nil, err
	}
	if !sub.CancelAtPeriodEnd {
		return nil, fmt.Errorf("%w: subscription is not scheduled for cancellation", billing.ErrConflict)
	}

	if _, err := s.gateway.ResumeSubscription(sub.StripeSubscriptionID); err != nil {
		return nil, err
	}

	if err := s.repo.ClearCancellation(sub.StripeSubscriptionID); err != nil {
		return nil, err
	}

	updated, err := s.repo.FindByStripeID(sub.StripeSubscriptionID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SyncUserSubscription(updated); err != nil {
		return nil, err
	}

	s.log.Info().
		Uint("user_id", userID).
		Str("subscription_id", sub.StripeSubscriptionID).
		Msg("subscription resumed")

	return updated, nil
}

// ChangePlan moves the subscription to a new price with proration. The new
// interval, amount and period end are taken from the provider response.
func (s *Service) ChangePlan(userID uint, newPriceID string) (*domain.Subscription, error) {
	sub, err := s.repo.FindActiveByUserID(userID)
	if err != nil {
		return nil, err
	}

	plan, ok := s.catalog.Lookup(newPriceID)
	if !ok {
		return nil, fmt.Errorf("%w: unknown price id %s", billing.ErrConflict, newPriceID)
	}

	stripeSub, err := s.gateway.UpdateSubscription(sub.StripeSubscriptionID, newPriceID)
	if err != nil {
		return nil, err
	}

	price, err := priceOf(stripeSub)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"stripe_price_id":    newPriceID,
		"plan_name":          plan.Name,
		"plan_type":          plan.Tier,
		"billing_interval":   intervalOf(price),
		"amount":             price.UnitAmount,
		"current_period_end": time.Unix(stripeSub.CurrentPeriodEnd, 0),
	}
	if _, err := s.repo.ApplySnapshot(sub.StripeSubscriptionID, updates, time.Now().Unix()); err != nil {
		return nil, err
	}

	updated, err := s.repo.FindByStripeID(sub.StripeSubscriptionID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SyncUserSubscription(updated); err != nil {
		return nil, err
	}

	s.log.Info().
		Uint("user_id", userID).
		Str("subscription_id", sub.StripeSubscriptionID).
		Str("price_id", newPriceID).
		Msg("subscription plan changed")

	return updated, nil
}

// PortalSession opens the Stripe customer portal. No local state changes.
func (s *Service) PortalSession(userID uint, returnURL string) (string, error) {
	user, err := s.repo.FindUserByID(userID)
	if err != nil {
		return "", err
	}
	if user.StripeCustomerID == nil || *user.StripeCustomerID == "" {
		return "", fmt.Errorf("%w: no billing customer for user", billing.ErrNotFound)
	}

	sess, err := s.gateway.CreatePortalSession(*user.StripeCustomerID, returnURL)
	if err != nil {
		return "", err
	}
	return sess.URL, nil
}

func (s *Service) ActiveForUser(userID uint) (*domain.Subscription, error) {
	return s.repo.FindActiveByUserID(userID)
}

func (s *Service) History(userID uint) ([]domain.Subscription, error) {
	return s.repo.HistoryByUserID(userID)
}

// AvailablePlans lists the provider's active recurring prices, filtered to
// the ones the catalog knows about.
func (s *Service) AvailablePlans() ([]PlanListing, error) {
	prices, err := s.gateway.ListPrices()
	if err != nil {
		return nil, err
	}

	listings := []PlanListing{}
	for _, p := range prices {
		plan, ok := s.catalog.Lookup(p.ID)
		if !ok {
			continue
		}
		listing := PlanListing{
			PriceID:  p.ID,
			Name:     plan.Name,
			Type:     plan.Tier,
			Amount:   p.UnitAmount,
			Currency: string(p.Currency),
			Interval: intervalOf(p),
		}
		if p.Product != nil {
			listing.ProductID = p.Product.ID
		}
		listings = append(listings, listing)
	}
	return listings, nil
}

func newFromStripe(userID uint, customerID string, plan plans.Plan, stripeSub *stripe.Subscription) (*domain.Subscription, error) {
	price, err := priceOf(stripeSub)
	if err != nil {
		return nil, err
	}

	sub := &domain.Subscription{
		UserID:               userID,
		StripeSubscriptionID: stripeSub.ID,
		StripeCustomerID:     customerID,
		StripePriceID:        price.ID,
		Status:               string(stripeSub.Status),
		PlanName:             plan.Name,
		PlanType:             plan.Tier,
		BillingInterval:      intervalOf(price),
		Amount:               price.UnitAmount,
		Currency:             string(stripeSub.Currency),
		CurrentPeriodStart:   time.Unix(stripeSub.CurrentPeriodStart, 0),
		CurrentPeriodEnd:     time.Unix(stripeSub.CurrentPeriodEnd, 0),
		CancelAtPeriodEnd:    stripeSub.CancelAtPeriodEnd,
		StripeRevision:       time.Now().Unix(),
	}
	if price.Product != nil {
		sub.StripeProductID = price.Product.ID
	}
	if stripeSub.TrialStart > 0 {
		t := time.Unix(stripeSub.TrialStart, 0)
		sub.TrialStart = &t
	}
	if stripeSub.TrialEnd > 0 {
		t := time.Unix(stripeSub.TrialEnd, 0)
		sub.TrialEnd = &t
	}
	return sub, nil
}

func priceOf(stripeSub *stripe.Subscription) (*stripe.Price, error) {
	if stripeSub.Items == nil || len(stripeSub.Items.Data) == 0 || stripeSub.Items.Data[0].Price == nil {
		return nil, fmt.Errorf("subscription %s missing items/price", stripeSub.ID)
	}
	return stripeSub.Items.Data[0].Price, nil
}

func intervalOf(price *stripe.Price) string {
	if price.Recurring == nil {
		return ""
	}
	return string(price.Recurring.Interval)
}
