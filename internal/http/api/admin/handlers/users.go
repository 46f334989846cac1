package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	dbutil "github.com/glowlens/glowlens-api/internal/db"
	"github.com/glowlens/glowlens-api/internal/entitlement"
	"github.com/glowlens/glowlens-api/internal/models"
)

// UserHandler serves ops views over the entitlement ledger.
type UserHandler struct {
	db     *gorm.DB
	ledger *entitlement.Service
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(db *gorm.DB, ledger *entitlement.Service) *UserHandler {
	return &UserHandler{db: db, ledger: ledger}
}

// userListQuery defines filters for the user list view.
type userListQuery struct {
	Page     int    `form:"page,default=1"`       // Page number.
	PageSize int    `form:"page_size,default=20"` // Page size.
	Search   string `form:"search"`               // Subject/email/id search.
	Tier     string `form:"tier"`                 // Tier filter.
}

// List returns ledger rows with paging and filters.
func (h *UserHandler) List(c *gin.Context) {
	var q userListQuery
	if errBind := c.ShouldBindQuery(&q); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query"})
		return
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 || q.PageSize > 100 {
		q.PageSize = 20
	}

	base := h.db.WithContext(c.Request.Context()).Model(&models.User{})
	if search := strings.TrimSpace(q.Search); search != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+search+"%")
		base = base.Where(
			dbutil.CaseInsensitiveLikeExpr(h.db, "subject")+" OR "+
				dbutil.CaseInsensitiveLikeExpr(h.db, "email")+" OR CAST(id AS TEXT) LIKE ?",
			pattern,
			pattern,
			"%"+search+"%",
		)
	}
	if tier := strings.TrimSpace(q.Tier); tier != "" {
		base = base.Where("tier = ?", tier)
	}

	var total int64
	if errCount := base.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count users failed"})
		return
	}

	var rows []models.User
	if errFind := base.
		Order("created_at DESC").
		Offset((q.Page - 1) * q.PageSize).
		Limit(q.PageSize).
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list users failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatUser(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"users":     out,
		"total":     total,
		"page":      q.Page,
		"page_size": q.PageSize,
	})
}

// Get returns one ledger row plus its live eligibility decision.
func (h *UserHandler) Get(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).First(&user, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	payload := formatUser(&user)
	decision, errDecision := h.ledger.CheckEligibility(c.Request.Context(), id)
	if errDecision != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "eligibility check failed"})
		return
	}
	payload["can_generate"] = decision.Allowed
	payload["usage_source"] = string(decision.Source)
	c.JSON(http.StatusOK, payload)
}

// adjustCreditsRequest defines the manual credit adjustment payload.
type adjustCreditsRequest struct {
	Credits int64 `json:"credits"` // Signed delta in whole credits.
}

// AdjustCredits applies a signed manual credit adjustment. The balance can
// never go below zero.
func (h *UserHandler) AdjustCredits(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body adjustCreditsRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.Credits == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "credits must be non-zero"})
		return
	}

	user, errAdjust := h.ledger.AdjustCredits(c.Request.Context(), id, body.Credits)
	if errAdjust != nil {
		switch {
		case errors.Is(errAdjust, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		case errors.Is(errAdjust, entitlement.ErrNegativeBalance):
			c.JSON(http.StatusBadRequest, gin.H{"error": "insufficient credit balance"})
		default:
			log.WithError(errAdjust).Error("ops: adjust credits failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "adjust credits failed"})
		}
		return
	}

	log.WithFields(log.Fields{
		"admin":   c.GetString("adminUsername"),
		"user_id": id,
		"credits": body.Credits,
	}).Info("ops: credits adjusted")
	c.JSON(http.StatusOK, gin.H{
		"id":             user.ID,
		"credit_balance": user.CreditBalance,
	})
}

// formatUser formats a ledger row into response JSON.
func formatUser(u *models.User) gin.H {
	return gin.H{
		"id":                 u.ID,
		"subject":            u.Subject,
		"email":              u.Email,
		"tier":               u.Tier,
		"free_quota":         u.FreeQuota,
		"free_used":          u.FreeUsed,
		"credit_balance":     u.CreditBalance,
		"stripe_customer_id": u.StripeCustomerID,
		"pro_package_id":     u.ProPackageID,
		"pro_expires_at":     u.ProExpiresAt,
		"created_at":         u.CreatedAt,
		"updated_at":         u.UpdatedAt,
	}
}
