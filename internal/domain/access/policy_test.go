package access

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"membership-api/internal/domain/users"
)

func snapshotUser(status string, periodEnd time.Time, membership string, level int) users.User {
	return users.User{
		SubscriptionStatus: &status,
		CurrentPeriodEnd:   &periodEnd,
		MembershipType:     &membership,
		AccessLevel:        level,
	}
}

func TestHasActiveSubscription(t *testing.T) {
	now := time.Now()
	future := now.Add(24 * time.Hour)
	past := now.Add(-24 * time.Hour)

	assert.True(t, HasActiveSubscription(now, snapshotUser("active", future, "basic", 1)))
	assert.True(t, HasActiveSubscription(now, snapshotUser("trialing", future, "premium", 2)))

	// paid-through window has lapsed
	assert.False(t, HasActiveSubscription(now, snapshotUser("active", past, "basic", 1)))

	assert.False(t, HasActiveSubscription(now, snapshotUser("canceled", future, "basic", 1)))
	assert.False(t, HasActiveSubscription(now, snapshotUser("past_due", future, "basic", 1)))

	// no subscription at all
	assert.False(t, HasActiveSubscription(now, users.User{}))
}

func TestHasActiveSubscriptionWithoutPeriodEnd(t *testing.T) {
	status := "active"
	u := users.User{SubscriptionStatus: &status}
	assert.True(t, HasActiveSubscription(time.Now(), u))
}

func TestCanUseMembership(t *testing.T) {
	now := time.Now()
	future := now.Add(24 * time.Hour)

	premium := snapshotUser("active", future, "premium", 2)
	assert.True(t, CanUseMembership(now, premium, "premium", "elite"))
	assert.False(t, CanUseMembership(now, premium, "elite"))

	// an allowed type on a lapsed subscription still denies
	lapsed := snapshotUser("active", now.Add(-time.Hour), "premium", 2)
	assert.False(t, CanUseMembership(now, lapsed, "premium"))

	assert.False(t, CanUseMembership(now, users.User{}, "basic"))
}

func TestCanAccessFeature(t *testing.T) {
	now := time.Now()
	future := now.Add(24 * time.Hour)

	elite := snapshotUser("active", future, "elite", 3)
	assert.True(t, CanAccessFeature(now, elite, 1))
	assert.True(t, CanAccessFeature(now, elite, 3))

	basic := snapshotUser("active", future, "basic", 1)
	assert.False(t, CanAccessFeature(now, basic, 2))

	lapsedElite := snapshotUser("active", now.Add(-time.Hour), "elite", 3)
	assert.False(t, CanAccessFeature(now, lapsedElite, 1))
}
