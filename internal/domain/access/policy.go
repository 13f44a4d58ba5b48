package access

import (
	"time"

	"membership-api/internal/domain/billing"
	"membership-api/internal/domain/users"
)

// The gate decisions are pure functions over the denormalized user snapshot.
// They never call Stripe: a small staleness window is traded for a cheap
// check on every gated request.

// HasActiveSubscription reports whether the snapshot grants access at all:
// status active or trialing, and not past the paid-through period end.
func HasActiveSubscription(now time.Time, u users.User) bool {
	if u.SubscriptionStatus == nil {
		return false
	}
	status := *u.SubscriptionStatus
	if status != billing.StatusActive && status != billing.StatusTrialing {
		return false
	}
	if u.CurrentPeriodEnd != nil && now.After(*u.CurrentPeriodEnd) {
		return false
	}
	return true
}

// CanUseMembership requires an active subscription plus one of the allowed
// membership types.
func CanUseMembership(now time.Time, u users.User, allowed ...string) bool {
	if !HasActiveSubscription(now, u) {
		return false
	}
	if u.MembershipType == nil {
		return false
	}
	for _, t := range allowed {
		if *u.MembershipType == t {
			return true
		}
	}
	return false
}

// CanAccessFeature requires an active subscription plus at least minLevel.
func CanAccessFeature(now time.Time, u users.User, minLevel int) bool {
	return u.AccessLevel >= minLevel && HasActiveSubscription(now, u)
}
