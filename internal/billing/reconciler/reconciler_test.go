package reconciler

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v75"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"membership-api/internal/billing/payments"
	"membership-api/internal/billing/subscriptions"
	domain "membership-api/internal/domain/billing"
	"membership-api/internal/domain/plans"
	"membership-api/internal/domain/users"
)

type fixture struct {
	db       *gorm.DB
	subs     *subscriptions.Repository
	payments *payments.Repository
	gateway  *reconcilerGateway
	rec      *Reconciler
}

// reconcilerGateway only serves the invoice re-fetch path.
type reconcilerGateway struct {
	subscription *stripe.Subscription
	getCalls     int
}

func (f *reconcilerGateway) GetSubscription(subscriptionID string) (*stripe.Subscription, error) {
	f.getCalls++
	return f.subscription, nil
}

func (f *reconcilerGateway) CreateOrGetCustomer(email, name string, userID uint) (*stripe.Customer, error) {
	return nil, nil
}
func (f *reconcilerGateway) AttachPaymentMethod(paymentMethodID, customerID string) error { return nil }
func (f *reconcilerGateway) CreateSubscription(customerID, priceID string, trialDays int64) (*stripe.Subscription, error) {
	return nil, nil
}
func (f *reconcilerGateway) UpdateSubscription(subscriptionID, newPriceID string) (*stripe.Subscription, error) {
	return nil, nil
}
func (f *reconcilerGateway) CancelSubscription(subscriptionID string, atPeriodEnd bool) (*stripe.Subscription, error) {
	return nil, nil
}
func (f *reconcilerGateway) ResumeSubscription(subscriptionID string) (*stripe.Subscription, error) {
	return nil, nil
}
func (f *reconcilerGateway) ListPrices() ([]*stripe.Price, error) { return nil, nil }
func (f *reconcilerGateway) CreatePortalSession(customerID, returnURL string) (*stripe.BillingPortalSession, error) {
	return nil, nil
}
func (f *reconcilerGateway) CreatePaymentIntent(amount int64, currency string, metadata map[string]string) (*stripe.PaymentIntent, error) {
	return nil, nil
}
func (f *reconcilerGateway) GetPaymentIntent(id string) (*stripe.PaymentIntent, error) {
	return nil, nil
}
func (f *reconcilerGateway) CreateCheckoutSession(amount int64, currency string, metadata map[string]string) (*stripe.CheckoutSession, error) {
	return nil, nil
}

func setupReconciler(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&users.User{}, &domain.Payment{}, &domain.Subscription{}))

	catalog := plans.NewCatalog(map[string]plans.Plan{
		"price_basic":   {Name: "Basic Monthly", Tier: "basic"},
		"price_premium": {Name: "Premium Monthly", Tier: "premium"},
	})

	subs := subscriptions.NewRepository(db)
	pays := payments.NewRepository(db)
	gw := &reconcilerGateway{}

	return &fixture{
		db:       db,
		subs:     subs,
		payments: pays,
		gateway:  gw,
		rec:      New(subs, pays, gw, catalog, zerolog.Nop()),
	}
}

func (f *fixture) seedUser(t *testing.T) *users.User {
	t.Helper()
	u := &users.User{Name: "Ada", Email: "ada@example.com", Role: "member"}
	require.NoError(t, f.db.Create(u).Error)
	return u
}

func (f *fixture) seedSubscription(t *testing.T, userID uint, status string, revision int64) *domain.Subscription {
	t.Helper()
	sub := &domain.Subscription{
		UserID:               userID,
		StripeSubscriptionID: "sub_1",
		StripeCustomerID:     "cus_1",
		StripePriceID:        "price_basic",
		Status:               status,
		PlanName:             "Basic Monthly",
		PlanType:             domain.PlanTypeBasic,
		BillingInterval:      "month",
		Amount:               999,
		Currency:             "usd",
		CurrentPeriodStart:   time.Now().Add(-24 * time.Hour),
		CurrentPeriodEnd:     time.Now().Add(29 * 24 * time.Hour),
		StripeRevision:       revision,
	}
	require.NoError(t, f.subs.Create(sub))
	require.NoError(t, f.subs.SyncUserSubscription(sub))
	return sub
}

func providerSub(id, priceID string, status stripe.SubscriptionStatus, periodEnd int64) *stripe.Subscription {
	return &stripe.Subscription{
		ID:                 id,
		Status:             status,
		Currency:           stripe.CurrencyUSD,
		CurrentPeriodStart: periodEnd - 30*24*3600,
		CurrentPeriodEnd:   periodEnd,
		Items: &stripe.SubscriptionItemList{
			Data: []*stripe.SubscriptionItem{{
				Price: &stripe.Price{
					ID:         priceID,
					UnitAmount: 1999,
					Currency:   stripe.CurrencyUSD,
					Recurring:  &stripe.PriceRecurring{Interval: stripe.PriceRecurringIntervalMonth},
				},
			}},
		},
	}
}

func eventOf(t *testing.T, eventID, eventType string, created int64, object interface{}) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(object)
	require.NoError(t, err)
	return &stripe.Event{
		ID:      eventID,
		Type:    stripe.EventType(eventType),
		Created: created,
		Data:    &stripe.EventData{Raw: raw},
	}
}

func TestSubscriptionUpdatedAppliesSnapshotAndSyncsUser(t *testing.T) {
	f := setupReconciler(t)
	user := f.seedUser(t)
	f.seedSubscription(t, user.ID, domain.StatusTrialing, 100)

	periodEnd := time.Now().Add(30 * 24 * time.Hour).Unix()
	event := eventOf(t, "evt_1", "customer.subscription.updated", 200,
		providerSub("sub_1", "price_premium", stripe.SubscriptionStatusActive, periodEnd))

	require.NoError(t, f.rec.HandleEvent(event))

	sub, err := f.subs.FindByStripeID("sub_1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, sub.Status)
	assert.Equal(t, "price_premium", sub.StripePriceID)
	assert.Equal(t, "Premium Monthly", sub.PlanName)
	assert.Equal(t, domain.PlanTypePremium, sub.PlanType)
	assert.EqualValues(t, 1999, sub.Amount)
	assert.Equal(t, periodEnd, sub.CurrentPeriodEnd.Unix())
	assert.EqualValues(t, 200, sub.StripeRevision)

	var reloaded users.User
	require.NoError(t, f.db.First(&reloaded, user.ID).Error)
	require.NotNil(t, reloaded.SubscriptionStatus)
	assert.Equal(t, domain.StatusActive, *reloaded.SubscriptionStatus)
	require.NotNil(t, reloaded.MembershipType)
	assert.Equal(t, domain.PlanTypePremium, *reloaded.MembershipType)
	assert.Equal(t, 2, reloaded.AccessLevel)
}

func TestStaleSnapshotIsDropped(t *testing.T) {
	f := setupReconciler(t)
	user := f.seedUser(t)
	f.seedSubscription(t, user.ID, domain.StatusActive, 500)

	// a webhook from before the stored revision arrives late
	periodEnd := time.Now().Add(10 * 24 * time.Hour).Unix()
	event := eventOf(t, "evt_1", "customer.subscription.updated", 400,
		providerSub("sub_1", "price_premium", stripe.SubscriptionStatusPastDue, periodEnd))

	require.NoError(t, f.rec.HandleEvent(event))

	sub, err := f.subs.FindByStripeID("sub_1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, sub.Status)
	assert.Equal(t, "price_basic", sub.StripePriceID)
	assert.EqualValues(t, 500, sub.StripeRevision)
}

func TestReplayedSnapshotConverges(t *testing.T) {
	f := setupReconciler(t)
	user := f.seedUser(t)
	f.seedSubscription(t, user.ID, domain.StatusTrialing, 100)

	periodEnd := time.Now().Add(30 * 24 * time.Hour).Unix()
	event := eventOf(t, "evt_1", "customer.subscription.updated", 200,
		providerSub("sub_1", "price_basic", stripe.SubscriptionStatusActive, periodEnd))

	require.NoError(t, f.rec.HandleEvent(event))
	// Stripe redelivers the same event
	require.NoError(t, f.rec.HandleEvent(event))

	sub, err := f.subs.FindByStripeID("sub_1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, sub.Status)
	assert.EqualValues(t, 200, sub.StripeRevision)
}

func TestUnknownSubscriptionIsSkipped(t *testing.T) {
	f := setupReconciler(t)

	periodEnd := time.Now().Add(30 * 24 * time.Hour).Unix()
	event := eventOf(t, "evt_1", "customer.subscription.updated", 200,
		providerSub("sub_ghost", "price_basic", stripe.SubscriptionStatusActive, periodEnd))

	// unknown ids are acknowledged so Stripe does not retry forever
	require.NoError(t, f.rec.HandleEvent(event))

	var count int64
	f.db.Model(&domain.Subscription{}).Count(&count)
	assert.EqualValues(t, 0, count)
}

func TestSubscriptionDeleted(t *testing.T) {
	f := setupReconciler(t)
	user := f.seedUser(t)
	f.seedSubscription(t, user.ID, domain.StatusActive, 100)

	event := eventOf(t, "evt_1", "customer.subscription.deleted", 200,
		&stripe.Subscription{ID: "sub_1"})

	require.NoError(t, f.rec.HandleEvent(event))

	sub, err := f.subs.FindByStripeID("sub_1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCanceled, sub.Status)
	assert.NotNil(t, sub.EndedAt)

	var reloaded users.User
	require.NoError(t, f.db.First(&reloaded, user.ID).Error)
	require.NotNil(t, reloaded.SubscriptionStatus)
	assert.Equal(t, domain.StatusCanceled, *reloaded.SubscriptionStatus)
}

func TestInvoiceEventRefetchesSubscription(t *testing.T) {
	f := setupReconciler(t)
	user := f.seedUser(t)
	f.seedSubscription(t, user.ID, domain.StatusTrialing, 100)

	periodEnd := time.Now().Add(30 * 24 * time.Hour).Unix()
	f.gateway.subscription = providerSub("sub_1", "price_basic", stripe.SubscriptionStatusActive, periodEnd)

	event := eventOf(t, "evt_1", "invoice.payment_succeeded", 200,
		&stripe.Invoice{ID: "in_1", Subscription: &stripe.Subscription{ID: "sub_1"}})

	require.NoError(t, f.rec.HandleEvent(event))

	// the invoice's embedded copy is not trusted; the provider was asked
	assert.Equal(t, 1, f.gateway.getCalls)

	sub, err := f.subs.FindByStripeID("sub_1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, sub.Status)
}

func TestInvoiceEventWithoutSubscriptionIsIgnored(t *testing.T) {
	f := setupReconciler(t)

	event := eventOf(t, "evt_1", "invoice.payment_succeeded", 200, &stripe.Invoice{ID: "in_1"})

	require.NoError(t, f.rec.HandleEvent(event))
	assert.Equal(t, 0, f.gateway.getCalls)
}

func TestPaymentIntentSucceeded(t *testing.T) {
	f := setupReconciler(t)
	user := f.seedUser(t)

	intentID := "pi_1"
	require.NoError(t, f.payments.Create(&domain.Payment{
		UserID:                user.ID,
		StripePaymentIntentID: &intentID,
		Amount:                5000,
		Currency:              "usd",
		Status:                domain.PaymentStatusPending,
	}))

	event := eventOf(t, "evt_1", "payment_intent.succeeded", 200, &stripe.PaymentIntent{ID: intentID})

	require.NoError(t, f.rec.HandleEvent(event))

	payment, err := f.payments.FindByIntentID(intentID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPaid, payment.Status)
	assert.Equal(t, []string{"evt_1"}, payment.WebhookEventIDs)

	// redelivery is a no-op
	require.NoError(t, f.rec.HandleEvent(event))

	payment, err = f.payments.FindByIntentID(intentID)
	require.NoError(t, err)
	assert.Equal(t, []string{"evt_1"}, payment.WebhookEventIDs)
}

func TestPaymentIntentFailed(t *testing.T) {
	f := setupReconciler(t)
	user := f.seedUser(t)

	intentID := "pi_1"
	require.NoError(t, f.payments.Create(&domain.Payment{
		UserID:                user.ID,
		StripePaymentIntentID: &intentID,
		Amount:                5000,
		Currency:              "usd",
		Status:                domain.PaymentStatusPending,
	}))

	event := eventOf(t, "evt_1", "payment_intent.payment_failed", 200, &stripe.PaymentIntent{ID: intentID})

	require.NoError(t, f.rec.HandleEvent(event))

	payment, err := f.payments.FindByIntentID(intentID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusFailed, payment.Status)
}

func TestPaymentIntentForUnknownPaymentIsSkipped(t *testing.T) {
	f := setupReconciler(t)

	event := eventOf(t, "evt_1", "payment_intent.succeeded", 200, &stripe.PaymentIntent{ID: "pi_ghost"})
	require.NoError(t, f.rec.HandleEvent(event))
}

func TestUnhandledEventTypesAreAcknowledged(t *testing.T) {
	f := setupReconciler(t)

	for _, eventType := range []string{
		"customer.created",
		"charge.refunded",
		"customer.subscription.trial_will_end",
		"invoice.upcoming",
	} {
		event := eventOf(t, "evt_1", eventType, 200, &stripe.Subscription{ID: "sub_1"})
		assert.NoError(t, f.rec.HandleEvent(event), eventType)
	}
}
