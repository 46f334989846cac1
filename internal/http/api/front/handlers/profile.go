package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/glowlens/glowlens-api/internal/auth"
	"github.com/glowlens/glowlens-api/internal/entitlement"
)

// ProfileFrontHandler serves the authenticated account view.
type ProfileFrontHandler struct {
	ledger *entitlement.Service
}

// NewProfileHandler constructs a ProfileFrontHandler.
func NewProfileHandler(ledger *entitlement.Service) *ProfileFrontHandler {
	return &ProfileFrontHandler{ledger: ledger}
}

// ProfilePayload describes the account and entitlement state.
type ProfilePayload struct {
	Subject       string     `json:"subject"`
	Email         string     `json:"email"`
	Tier          string     `json:"tier"`
	FreeQuota     int        `json:"free_quota"`
	FreeUsed      int        `json:"free_used"`
	FreeRemaining int        `json:"free_remaining"`
	CreditBalance int64      `json:"credit_balance"`
	ProPackageID  string     `json:"pro_package_id,omitempty"`
	ProExpiresAt  *time.Time `json:"pro_expires_at,omitempty"`
	CanGenerate   bool       `json:"can_generate"`
	UsageSource   string     `json:"usage_source,omitempty"`
	MemberSince   time.Time  `json:"member_since"`
}

// ProfileStats summarizes generation activity.
type ProfileStats struct {
	TotalGenerations int64      `json:"total_generations"`
	LastGeneratedAt  *time.Time `json:"last_generated_at,omitempty"`
}

// ProfileResponse is the profile payload.
type ProfileResponse struct {
	Profile ProfilePayload `json:"profile"`
	Stats   ProfileStats   `json:"stats"`
	Success bool           `json:"success"`
}

// Get returns the profile of the authenticated user.
func (h *ProfileFrontHandler) Get(c *gin.Context) {
	userID, ok := auth.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	view, errProfile := h.ledger.Profile(c.Request.Context(), userID)
	if errProfile != nil {
		log.WithError(errProfile).Error("profile: load failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load profile failed"})
		return
	}

	user := view.User
	c.JSON(http.StatusOK, ProfileResponse{
		Profile: ProfilePayload{
			Subject:       user.Subject,
			Email:         user.Email,
			Tier:          string(user.Tier),
			FreeQuota:     user.FreeQuota,
			FreeUsed:      user.FreeUsed,
			FreeRemaining: user.FreeRemaining(),
			CreditBalance: user.CreditBalance,
			ProPackageID:  user.ProPackageID,
			ProExpiresAt:  user.ProExpiresAt,
			CanGenerate:   view.Decision.Allowed,
			UsageSource:   string(view.Decision.Source),
			MemberSince:   user.CreatedAt,
		},
		Stats: ProfileStats{
			TotalGenerations: view.TotalGenerations,
			LastGeneratedAt:  view.LastGeneratedAt,
		},
		Success: true,
	})
}
