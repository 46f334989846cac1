package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/glowlens/glowlens-api/internal/catalog"
)

// PromptFrontHandler serves the curated prompt catalog.
type PromptFrontHandler struct {
	catalogs *catalog.Store
}

// NewPromptHandler constructs a PromptFrontHandler.
func NewPromptHandler(catalogs *catalog.Store) *PromptFrontHandler {
	return &PromptFrontHandler{catalogs: catalogs}
}

// PromptView is one curated prompt.
type PromptView struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Prompt      string `json:"prompt"`
	Category    string `json:"category"`
}

// PromptListResponse is the full catalog payload.
type PromptListResponse struct {
	Prompts    []PromptView `json:"prompts"`
	Categories []string     `json:"categories"`
	TotalCount int          `json:"total_count"`
	Success    bool         `json:"success"`
}

// PromptCategoryResponse is the per-category payload.
type PromptCategoryResponse struct {
	Prompts  []PromptView `json:"prompts"`
	Category string       `json:"category"`
	Count    int          `json:"count"`
	Success  bool         `json:"success"`
}

// List returns every curated prompt plus the category index.
func (h *PromptFrontHandler) List(c *gin.Context) {
	snapshot := h.catalogs.Snapshot()
	prompts := snapshot.Prompts()
	out := make([]PromptView, 0, len(prompts))
	for _, prompt := range prompts {
		out = append(out, promptView(prompt))
	}
	c.JSON(http.StatusOK, PromptListResponse{
		Prompts:    out,
		Categories: snapshot.Categories(),
		TotalCount: len(out),
		Success:    true,
	})
}

// ByCategory returns the prompts of a single category.
func (h *PromptFrontHandler) ByCategory(c *gin.Context) {
	category := c.Param("category")
	prompts, ok := h.catalogs.Snapshot().PromptsByCategory(category)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "category not found"})
		return
	}
	out := make([]PromptView, 0, len(prompts))
	for _, prompt := range prompts {
		out = append(out, promptView(prompt))
	}
	c.JSON(http.StatusOK, PromptCategoryResponse{
		Prompts:  out,
		Category: category,
		Count:    len(out),
		Success:  true,
	})
}

func promptView(prompt catalog.Prompt) PromptView {
	return PromptView{
		ID:          prompt.ID,
		Title:       prompt.Title,
		Description: prompt.Description,
		Prompt:      prompt.Prompt,
		Category:    prompt.Category,
	}
}
