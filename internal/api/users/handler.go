package users

import (
	"net/http"
	"time"

	"membership-api/database"
	"membership-api/internal/domain/access"
	"membership-api/internal/domain/users"

	"github.com/gin-gonic/gin"
)

type MeDTO struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`

	SubscriptionStatus   *string    `json:"subscriptionStatus,omitempty"`
	SubscriptionPlanName *string    `json:"subscriptionPlanName,omitempty"`
	CurrentPeriodEnd     *time.Time `json:"currentPeriodEnd,omitempty"`
	CancelAtPeriodEnd    bool       `json:"cancelAtPeriodEnd"`
	TrialEnd             *time.Time `json:"trialEnd,omitempty"`
	MembershipType       *string    `json:"membershipType,omitempty"`
	AccessLevel          int        `json:"accessLevel"`

	HasActiveSubscription bool `json:"hasActiveSubscription"`
}

func GetCurrentUser(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var user users.User
	if err := database.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, MeDTO{
		ID:                    user.ID,
		Name:                  user.Name,
		Email:                 user.Email,
		Role:                  user.Role,
		SubscriptionStatus:    user.SubscriptionStatus,
		SubscriptionPlanName:  user.SubscriptionPlanName,
		CurrentPeriodEnd:      user.CurrentPeriodEnd,
		CancelAtPeriodEnd:     user.CancelAtPeriodEnd,
		TrialEnd:              user.TrialEnd,
		MembershipType:        user.MembershipType,
		AccessLevel:           user.AccessLevel,
		HasActiveSubscription: access.HasActiveSubscription(time.Now(), user),
	})
}
