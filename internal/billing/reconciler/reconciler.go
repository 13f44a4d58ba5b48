package reconciler

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v75"

	"membership-api/internal/billing"
	"membership-api/internal/billing/payments"
	"membership-api/internal/billing/subscriptions"
	"membership-api/internal/domain/plans"
)

// Reconciler applies webhook events to local Payment/Subscription state. It
// runs concurrently with the synchronous flows and relies on idempotency
// rather than locking: payment transitions are guarded by applied event ids,
// subscription updates always overwrite from the provider's snapshot, and the
// revision guard drops snapshots older than what is already stored. Replaying
// any event converges to the same state.
type Reconciler struct {
	subs     *subscriptions.Repository
	payments *payments.Repository
	gateway  billing.Gateway
	catalog  *plans.Catalog
	log      zerolog.Logger
}

func New(subs *subscriptions.Repository, pays *payments.Repository, gateway billing.Gateway, catalog *plans.Catalog, log zerolog.Logger) *Reconciler {
	return &Reconciler{subs: subs, payments: pays, gateway: gateway, catalog: catalog, log: log}
}

// eventKind is the closed set of event types the reconciler acts on. Anything
// else maps to kindIgnored and is acknowledged without state change, so new
// provider event types never fail the webhook.
type eventKind int

const (
	kindIgnored eventKind = iota
	kindSubscriptionCreated
	kindSubscriptionUpdated
	kindSubscriptionDeleted
	kindTrialWillEnd
	kindInvoicePaymentSucceeded
	kindInvoicePaymentFailed
	kindInvoiceUpcoming
	kindPaymentIntentSucceeded
	kindPaymentIntentFailed
)

func kindOf(eventType string) eventKind {
	switch eventType {
	case "customer.subscription.created":
		return kindSubscriptionCreated
	case "customer.subscription.updated":
		return kindSubscriptionUpdated
	case "customer.subscription.deleted":
		return kindSubscriptionDeleted
	case "customer.subscription.trial_will_end":
		return kindTrialWillEnd
	case "invoice.payment_succeeded":
		return kindInvoicePaymentSucceeded
	case "invoice.payment_failed":
		return kindInvoicePaymentFailed
	case "invoice.upcoming":
		return kindInvoiceUpcoming
	case "payment_intent.succeeded":
		return kindPaymentIntentSucceeded
	case "payment_intent.payment_failed":
		return kindPaymentIntentFailed
	default:
		return kindIgnored
	}
}

// HandleEvent dispatches a verified event. An error return makes the webhook
// respond 5xx so Stripe redelivers; handlers order their side effects so the
// local write happens only after the provider calls backing it succeeded.
func (r *Reconciler) HandleEvent(event *stripe.Event) error {
	switch kindOf(string(event.Type)) {
	case kindSubscriptionCreated, kindSubscriptionUpdated:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("parse subscription event: %w", err)
		}
		return r.applySubscriptionSnapshot(&sub, event.Created)

	case kindSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("parse subscription event: %w", err)
		}
		return r.handleSubscriptionDeleted(&sub)

	case kindTrialWillEnd:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("parse subscription event: %w", err)
		}
		// notification hook only
		r.log.Info().Str("subscription_id", sub.ID).Msg("trial ending soon")
		return nil

	case kindInvoicePaymentSucceeded, kindInvoicePaymentFailed:
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			return fmt.Errorf("parse invoice event: %w", err)
		}
		return r.handleInvoiceEvent(&invoice)

	case kindInvoiceUpcoming:
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			return fmt.Errorf("parse invoice event: %w", err)
		}
		r.log.Info().Str("invoice_id", invoice.ID).Msg("upcoming invoice")
		return nil

	case kindPaymentIntentSucceeded:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return fmt.Errorf("parse payment intent event: %w", err)
		}
		return r.markPayment(intent.ID, event.ID, true)

	case kindPaymentIntentFailed:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return fmt.Errorf("parse payment intent event: %w", err)
		}
		return r.markPayment(intent.ID, event.ID, false)

	default:
		r.log.Debug().Str("type", string(event.Type)).Msg("ignoring event")
		return nil
	}
}

// applySubscriptionSnapshot overwrites the local row with the provider's
// current representation. The subscription must already exist locally (the
// synchronous flow creates it); an unknown id is logged and skipped so Stripe
// does not retry forever. Plan metadata is re-resolved on every write because
// price ids can change between deployments; a catalog miss keeps the prior
// values.
func (r *Reconciler) applySubscriptionSnapshot(stripeSub *stripe.Subscription, revision int64) error {
	local, err := r.subs.FindByStripeID(stripeSub.ID)
	if errors.Is(err, billing.ErrNotFound) {
		r.log.Warn().Str("subscription_id", stripeSub.ID).Msg("subscription not found locally, skipping")
		return nil
	}
	if err != nil {
		return err
	}

	if stripeSub.Items == nil || len(stripeSub.Items.Data) == 0 || stripeSub.Items.Data[0].Price == nil {
		return fmt.Errorf("subscription %s missing items/price", stripeSub.ID)
	}
	price := stripeSub.Items.Data[0].Price

	planName := local.PlanName
	planType := local.PlanType
	if plan, ok := r.catalog.Lookup(price.ID); ok {
		planName = plan.Name
		planType = plan.Tier
	} else {
		r.log.Warn().Str("price_id", price.ID).Msg("price not in catalog, keeping prior plan metadata")
	}

	updates := map[string]interface{}{
		"status":               string(stripeSub.Status),
		"stripe_price_id":      price.ID,
		"plan_name":            planName,
		"plan_type":            planType,
		"amount":               price.UnitAmount,
		"current_period_start": time.Unix(stripeSub.CurrentPeriodStart, 0),
		"current_period_end":   time.Unix(stripeSub.CurrentPeriodEnd, 0),
		"cancel_at_period_end": stripeSub.CancelAtPeriodEnd,
		"canceled_at":          unixOrNil(stripeSub.CanceledAt),
		"ended_at":             unixOrNil(stripeSub.EndedAt),
		"trial_start":          unixOrNil(stripeSub.TrialStart),
		"trial_end":            unixOrNil(stripeSub.TrialEnd),
	}
	if price.Recurring != nil {
		updates["billing_interval"] = string(price.Recurring.Interval)
	}

	applied, err := r.subs.ApplySnapshot(stripeSub.ID, updates, revision)
	if err != nil {
		return err
	}
	if !applied {
		r.log.Info().
			Str("subscription_id", stripeSub.ID).
			Int64("revision", revision).
			Msg("dropping stale subscription snapshot")
	}

	return r.syncUser(stripeSub.ID)
}

func (r *Reconciler) handleSubscriptionDeleted(stripeSub *stripe.Subscription) error {
	if _, err := r.subs.FindByStripeID(stripeSub.ID); err != nil {
		if errors.Is(err, billing.ErrNotFound) {
			r.log.Warn().Str("subscription_id", stripeSub.ID).Msg("subscription not found locally, skipping")
			return nil
		}
		return err
	}

	if err := r.subs.MarkCanceled(stripeSub.ID, false, time.Now()); err != nil {
		return err
	}
	return r.syncUser(stripeSub.ID)
}

// handleInvoiceEvent treats the invoice as a proxy trigger: invoice and
// subscription state can arrive out of order, so the authoritative
// subscription object is re-fetched from the provider instead of trusting
// the invoice's embedded copy.
func (r *Reconciler) handleInvoiceEvent(invoice *stripe.Invoice) error {
	if invoice.Subscription == nil || invoice.Subscription.ID == "" {
		return nil
	}

	stripeSub, err := r.gateway.GetSubscription(invoice.Subscription.ID)
	if err != nil {
		return err
	}
	return r.applySubscriptionSnapshot(stripeSub, time.Now().Unix())
}

func (r *Reconciler) markPayment(intentID, eventID string, succeeded bool) error {
	payment, err := r.payments.FindByIntentID(intentID)
	if errors.Is(err, billing.ErrNotFound) {
		r.log.Warn().Str("intent_id", intentID).Msg("payment not found locally, skipping")
		return nil
	}
	if err != nil {
		return err
	}

	if succeeded {
		return r.payments.MarkPaid(payment, eventID)
	}
	return r.payments.MarkFailed(payment, eventID)
}

func (r *Reconciler) syncUser(stripeSubscriptionID string) error {
	updated, err := r.subs.FindByStripeID(stripeSubscriptionID)
	if err != nil {
		return err
	}
	return r.subs.SyncUserSubscription(updated)
}

func unixOrNil(ts int64) interface{} {
	if ts <= 0 {
		return nil
	}
	return time.Unix(ts, 0)
}
