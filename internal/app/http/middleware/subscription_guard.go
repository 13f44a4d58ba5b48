package middleware

import (
	"net/http"
	"time"

	"membership-api/database"
	"membership-api/internal/domain/access"
	"membership-api/internal/domain/users"

	"github.com/gin-gonic/gin"
)

// The guards read only the denormalized snapshot on the user row; they never
// call Stripe on the request path.

func RequireActiveSubscription() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := loadUser(c)
		if !ok {
			return
		}

		if !access.HasActiveSubscription(time.Now(), user) {
			status := "none"
			if user.SubscriptionStatus != nil {
				status = *user.SubscriptionStatus
			}
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":               "Active subscription required",
				"subscription_status": status,
			})
			return
		}

		c.Next()
	}
}

func RequireMembershipType(allowedTypes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := loadUser(c)
		if !ok {
			return
		}

		if !access.CanUseMembership(time.Now(), user, allowedTypes...) {
			membership := "none"
			if user.MembershipType != nil {
				membership = *user.MembershipType
			}
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":              "This feature requires a higher membership type",
				"current_membership": membership,
			})
			return
		}

		c.Next()
	}
}

func RequireAccessLevel(minLevel int) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := loadUser(c)
		if !ok {
			return
		}

		if !access.CanAccessFeature(time.Now(), user, minLevel) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":                "Insufficient access level",
				"current_access_level": user.AccessLevel,
			})
			return
		}

		c.Next()
	}
}

func loadUser(c *gin.Context) (users.User, bool) {
	var user users.User

	userID := c.GetUint("user_id")
	if userID == 0 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return user, false
	}

	if err := database.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return user, false
	}

	return user, true
}
