package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/glowlens/glowlens-api/internal/catalog"
	"github.com/glowlens/glowlens-api/internal/entitlement"
	"github.com/glowlens/glowlens-api/internal/models"
)

var (
	// ErrUnknownPrompt rejects a curated prompt id not in the catalog.
	ErrUnknownPrompt = errors.New("unknown prompt")

	// ErrEmptyPrompt rejects a free-form request without prompt text.
	ErrEmptyPrompt = errors.New("empty prompt")
)

// defaultStyle mirrors the request default used by the mobile client.
const defaultStyle = "photorealistic"

// History page limits.
const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 50
)

// Service runs the generate flow: resolve the prompt, check entitlement,
// call the provider, then debit and record in one transaction.
type Service struct {
	db       *gorm.DB
	catalogs *catalog.Store
	ledger   *entitlement.Service
	provider ImageProvider
}

// NewService wires the generation service.
func NewService(gdb *gorm.DB, catalogs *catalog.Store, ledger *entitlement.Service, provider ImageProvider) *Service {
	return &Service{db: gdb, catalogs: catalogs, ledger: ledger, provider: provider}
}

// GenerateRequest is one user-initiated generation. PromptID selects a
// curated prompt; otherwise Prompt carries free-form text.
type GenerateRequest struct {
	PromptID       int
	Prompt         string
	ReferenceImage string
	Style          string
}

// GenerateResult carries the rendered image and the post-debit ledger view.
type GenerateResult struct {
	RecordID      string
	ImageData     string
	MimeType      string
	Source        models.UsageSource
	FreeRemaining int
	CreditBalance int64
}

// Generate renders an image for the user. The provider is only called after
// an eligibility check, and the ledger is only debited after the provider
// succeeds, so a failed render never costs anything.
func (s *Service) Generate(ctx context.Context, userID uint64, req GenerateRequest) (*GenerateResult, error) {
	promptText, category, errPrompt := s.resolvePrompt(req)
	if errPrompt != nil {
		return nil, errPrompt
	}

	decision, errCheck := s.ledger.CheckEligibility(ctx, userID)
	if errCheck != nil {
		return nil, errCheck
	}
	if !decision.Allowed {
		return nil, entitlement.ErrInsufficientEntitlement
	}

	image, errGenerate := s.provider.Generate(ctx, GenerateInput{
		Prompt:         enhancePrompt(promptText, req.Style, req.ReferenceImage != ""),
		ReferenceImage: req.ReferenceImage,
	})
	if errGenerate != nil {
		return nil, errGenerate
	}

	record, errCommit := s.ledger.CommitUsage(ctx, userID, decision.Source, entitlement.RecordDraft{
		PromptID:   req.PromptID,
		PromptText: promptText,
		Category:   category,
		Model:      s.provider.Model(),
		ImageData:  image.Data,
	})
	if errCommit != nil {
		return nil, errCommit
	}

	// Re-read so the response reflects the debit that just happened.
	after, errAfter := s.ledger.CheckEligibility(ctx, userID)
	if errAfter != nil {
		return nil, errAfter
	}

	return &GenerateResult{
		RecordID:      record.ID,
		ImageData:     image.Data,
		MimeType:      image.MimeType,
		Source:        models.UsageSource(record.SourceKind),
		FreeRemaining: after.FreeRemaining,
		CreditBalance: after.CreditBalance,
	}, nil
}

// resolvePrompt picks the curated prompt for a prompt id, or falls back to
// the free-form text.
func (s *Service) resolvePrompt(req GenerateRequest) (text, category string, err error) {
	if req.PromptID > 0 {
		prompt, ok := s.catalogs.Snapshot().PromptByID(req.PromptID)
		if !ok {
			return "", "", ErrUnknownPrompt
		}
		return prompt.Prompt, prompt.Category, nil
	}
	text = strings.TrimSpace(req.Prompt)
	if text == "" {
		return "", "", ErrEmptyPrompt
	}
	return text, "", nil
}

// enhancePrompt wraps the raw prompt depending on whether a reference image
// is being transformed or a new image is rendered from text.
func enhancePrompt(prompt, style string, hasReference bool) string {
	if strings.TrimSpace(style) == "" {
		style = defaultStyle
	}
	if hasReference {
		return fmt.Sprintf("Transform this image: %s. Style: %s. Make it visually stunning and high-quality.", prompt, style)
	}
	return fmt.Sprintf("Create a beautiful, high-quality, detailed image: %s. Style: %s. Focus on artistic composition and vivid details.", prompt, style)
}

// RecordView is one history row. Image payloads stay out of list responses.
type RecordView struct {
	ID         string
	PromptID   int
	PromptText string
	Category   string
	Source     string
	Model      string
	CreatedAt  time.Time
}

// History returns the user's newest generations first.
func (s *Service) History(ctx context.Context, userID uint64, limit int) ([]RecordView, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	var records []models.GenerationRecord
	if errFind := s.db.WithContext(ctx).
		Select("id", "user_id", "prompt_id", "prompt_text", "category", "source_kind", "model", "created_at").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error; errFind != nil {
		return nil, errFind
	}

	views := make([]RecordView, 0, len(records))
	for _, record := range records {
		views = append(views, RecordView{
			ID:         record.ID,
			PromptID:   record.PromptID,
			PromptText: record.PromptText,
			Category:   record.Category,
			Source:     record.SourceKind,
			Model:      record.Model,
			CreatedAt:  record.CreatedAt,
		})
	}
	return views, nil
}
