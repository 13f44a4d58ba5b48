package billing

import (
	"github.com/stripe/stripe-go/v75"
)

// Gateway is the capability set the billing core needs from Stripe. The
// returned objects are the provider's authoritative snapshots; callers derive
// all persisted values from them, never from locally cached state.
type Gateway interface {
	CreateOrGetCustomer(email, name string, userID uint) (*stripe.Customer, error)
	AttachPaymentMethod(paymentMethodID, customerID string) error

	CreateSubscription(customerID, priceID string, trialDays int64) (*stripe.Subscription, error)
	UpdateSubscription(subscriptionID, newPriceID string) (*stripe.Subscription, error)
	CancelSubscription(subscriptionID string, atPeriodEnd bool) (*stripe.Subscription, error)
	ResumeSubscription(subscriptionID string) (*stripe.Subscription, error)
	GetSubscription(subscriptionID string) (*stripe.Subscription, error)

	ListPrices() ([]*stripe.Price, error)
	CreatePortalSession(customerID, returnURL string) (*stripe.BillingPortalSession, error)

	CreatePaymentIntent(amount int64, currency string, metadata map[string]string) (*stripe.PaymentIntent, error)
	GetPaymentIntent(id string) (*stripe.PaymentIntent, error)
	CreateCheckoutSession(amount int64, currency string, metadata map[string]string) (*stripe.CheckoutSession, error)
}
