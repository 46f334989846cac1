package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/glowlens/glowlens-api/internal/auth"
	"github.com/glowlens/glowlens-api/internal/entitlement"
	"github.com/glowlens/glowlens-api/internal/generation"
)

// GenerateFrontHandler serves image generation and history.
type GenerateFrontHandler struct {
	generator *generation.Service
}

// NewGenerateHandler constructs a GenerateFrontHandler.
func NewGenerateHandler(generator *generation.Service) *GenerateFrontHandler {
	return &GenerateFrontHandler{generator: generator}
}

// generateRequest is the generate-image body. PromptID selects a curated
// prompt; free-form requests send Prompt instead.
type generateRequest struct {
	PromptID    int    `json:"prompt_id"`
	Prompt      string `json:"prompt"`
	ImageBase64 string `json:"image_base64"`
	Style       string `json:"style"`
}

// GenerateResponse is the generate-image payload.
type GenerateResponse struct {
	Success       bool   `json:"success"`
	RecordID      string `json:"record_id"`
	ImageURL      string `json:"image_url"`
	UsageSource   string `json:"usage_source"`
	FreeRemaining int    `json:"free_remaining"`
	CreditBalance int64  `json:"credit_balance"`
}

// GenerationView is one history row.
type GenerationView struct {
	ID         string    `json:"id"`
	PromptID   int       `json:"prompt_id,omitempty"`
	PromptText string    `json:"prompt_text"`
	Category   string    `json:"category,omitempty"`
	Source     string    `json:"source"`
	Model      string    `json:"model"`
	CreatedAt  time.Time `json:"created_at"`
}

// GenerationListResponse is the history payload.
type GenerationListResponse struct {
	Generations []GenerationView `json:"generations"`
	Count       int              `json:"count"`
	Success     bool             `json:"success"`
}

// Generate renders an image for the authenticated user.
func (h *GenerateFrontHandler) Generate(c *gin.Context) {
	userID, ok := auth.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	var req generateRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid request body"})
		return
	}

	result, errGenerate := h.generator.Generate(c.Request.Context(), userID, generation.GenerateRequest{
		PromptID:       req.PromptID,
		Prompt:         req.Prompt,
		ReferenceImage: req.ImageBase64,
		Style:          req.Style,
	})
	if errGenerate != nil {
		switch {
		case errors.Is(errGenerate, generation.ErrUnknownPrompt):
			c.JSON(http.StatusNotFound, gin.H{"error": "prompt not found"})
		case errors.Is(errGenerate, generation.ErrEmptyPrompt):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "prompt is required"})
		case errors.Is(errGenerate, entitlement.ErrInsufficientEntitlement):
			c.JSON(http.StatusPaymentRequired, gin.H{
				"error":   "insufficient entitlement",
				"upgrade": "purchase a credit pack or Pro subscription to continue",
			})
		case errors.Is(errGenerate, generation.ErrProviderUnavailable):
			log.WithError(errGenerate).Warn("generate: provider unavailable")
			c.JSON(http.StatusBadGateway, gin.H{"error": "image provider unavailable"})
		default:
			log.WithError(errGenerate).Error("generate: failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "generate image failed"})
		}
		return
	}

	c.JSON(http.StatusOK, GenerateResponse{
		Success:       true,
		RecordID:      result.RecordID,
		ImageURL:      fmt.Sprintf("data:%s;base64,%s", result.MimeType, result.ImageData),
		UsageSource:   string(result.Source),
		FreeRemaining: result.FreeRemaining,
		CreditBalance: result.CreditBalance,
	})
}

// History returns the user's newest generations first.
func (h *GenerateFrontHandler) History(c *gin.Context) {
	userID, ok := auth.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	views, errHistory := h.generator.History(c.Request.Context(), userID, limit)
	if errHistory != nil {
		log.WithError(errHistory).Error("generations: list failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list generations failed"})
		return
	}

	out := make([]GenerationView, 0, len(views))
	for _, view := range views {
		out = append(out, GenerationView{
			ID:         view.ID,
			PromptID:   view.PromptID,
			PromptText: view.PromptText,
			Category:   view.Category,
			Source:     view.Source,
			Model:      view.Model,
			CreatedAt:  view.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, GenerationListResponse{
		Generations: out,
		Count:       len(out),
		Success:     true,
	})
}
