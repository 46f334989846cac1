package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/glowlens/glowlens-api/internal/models"
)

// TransactionHandler serves ops views over payment transactions.
type TransactionHandler struct {
	db *gorm.DB
}

// NewTransactionHandler constructs a TransactionHandler.
func NewTransactionHandler(db *gorm.DB) *TransactionHandler {
	return &TransactionHandler{db: db}
}

// transactionListQuery defines filters for the transaction list view.
type transactionListQuery struct {
	Page          int    `form:"page,default=1"`       // Page number.
	PageSize      int    `form:"page_size,default=20"` // Page size.
	UserID        string `form:"user_id"`              // Purchasing user filter.
	PaymentStatus string `form:"payment_status"`       // Lifecycle state filter.
	SessionID     string `form:"session_id"`           // Exact session lookup.
}

// List returns payment transactions with paging and filters.
func (h *TransactionHandler) List(c *gin.Context) {
	var q transactionListQuery
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

	base := h.db.WithContext(c.Request.Context()).Model(&models.PaymentTransaction{})
	if userIDQ := strings.TrimSpace(q.UserID); userIDQ != "" {
		if id, errParse := strconv.ParseUint(userIDQ, 10, 64); errParse == nil {
			base = base.Where("user_id = ?", id)
		}
	}
	if statusQ := strings.TrimSpace(q.PaymentStatus); statusQ != "" {
		base = base.Where("payment_status = ?", statusQ)
	}
	if sessionQ := strings.TrimSpace(q.SessionID); sessionQ != "" {
		base = base.Where("session_id = ?", sessionQ)
	}

	var total int64
	if errCount := base.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count transactions failed"})
		return
	}

	var rows []models.PaymentTransaction
	if errFind := base.
		Order("created_at DESC").
		Offset((q.Page - 1) * q.PageSize).
		Limit(q.PageSize).
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list transactions failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatTransaction(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"transactions": out,
		"total":        total,
		"page":         q.Page,
		"page_size":    q.PageSize,
	})
}

// Get returns a transaction by ID.
func (h *TransactionHandler) Get(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var txn models.PaymentTransaction
	if errFind := h.db.WithContext(c.Request.Context()).First(&txn, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, formatTransaction(&txn))
}

// formatTransaction formats a transaction row into response JSON.
func formatTransaction(t *models.PaymentTransaction) gin.H {
	return gin.H{
		"id":             t.ID,
		"session_id":     t.SessionID,
		"user_id":        t.UserID,
		"package_id":     t.PackageID,
		"package_name":   t.PackageName,
		"amount_cents":   t.AmountCents,
		"currency":       t.Currency,
		"payment_status": t.PaymentStatus,
		"status":         t.Status,
		"processed_at":   t.ProcessedAt,
		"created_at":     t.CreatedAt,
		"updated_at":     t.UpdatedAt,
	}
}
