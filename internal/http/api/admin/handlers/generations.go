package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/glowlens/glowlens-api/internal/models"
)

// GenerationHandler serves ops views over generation records.
type GenerationHandler struct {
	db *gorm.DB
}

// NewGenerationHandler constructs a GenerationHandler.
func NewGenerationHandler(db *gorm.DB) *GenerationHandler {
	return &GenerationHandler{db: db}
}

// generationListQuery defines filters for the generation list view.
type generationListQuery struct {
	Page     int    `form:"page,default=1"`       // Page number.
	PageSize int    `form:"page_size,default=20"` // Page size.
	UserID   string `form:"user_id"`              // Owning user filter.
	Source   string `form:"source"`               // Usage source filter.
	Category string `form:"category"`             // Prompt category filter.
}

// generationListRow carries one record without the image payload.
type generationListRow struct {
	ID         string    `gorm:"column:id"`
	UserID     uint64    `gorm:"column:user_id"`
	PromptID   int       `gorm:"column:prompt_id"`
	PromptText string    `gorm:"column:prompt_text"`
	Category   string    `gorm:"column:category"`
	SourceKind string    `gorm:"column:source_kind"`
	Model      string    `gorm:"column:model"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

// List returns generation records with paging and filters. The base64 image
// payload is never selected.
func (h *GenerationHandler) List(c *gin.Context) {
	var q generationListQuery
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

	base := h.db.WithContext(c.Request.Context()).Model(&models.GenerationRecord{})
	if userIDQ := strings.TrimSpace(q.UserID); userIDQ != "" {
		if id, errParse := strconv.ParseUint(userIDQ, 10, 64); errParse == nil {
			base = base.Where("user_id = ?", id)
		}
	}
	if sourceQ := strings.TrimSpace(q.Source); sourceQ != "" {
		base = base.Where("source_kind = ?", sourceQ)
	}
	if categoryQ := strings.TrimSpace(q.Category); categoryQ != "" {
		base = base.Where("category = ?", categoryQ)
	}

	var total int64
	if errCount := base.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count generations failed"})
		return
	}

	var rows []generationListRow
	if errFind := base.
		Select("id", "user_id", "prompt_id", "prompt_text", "category", "source_kind", "model", "created_at").
		Order("created_at DESC").
		Offset((q.Page - 1) * q.PageSize).
		Limit(q.PageSize).
		Scan(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list generations failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":          row.ID,
			"user_id":     row.UserID,
			"prompt_id":   row.PromptID,
			"prompt_text": row.PromptText,
			"category":    row.Category,
			"source":      row.SourceKind,
			"model":       row.Model,
			"created_at":  row.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"generations": out,
		"total":       total,
		"page":        q.Page,
		"page_size":   q.PageSize,
	})
}
