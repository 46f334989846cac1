package generation

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/glowlens/glowlens-api/internal/catalog"
	"github.com/glowlens/glowlens-api/internal/config"
	"github.com/glowlens/glowlens-api/internal/db"
	"github.com/glowlens/glowlens-api/internal/entitlement"
	"github.com/glowlens/glowlens-api/internal/models"
)

// fakeImageProvider returns a canned image and records the last input.
type fakeImageProvider struct {
	image     *Image
	err       error
	calls     int
	lastInput GenerateInput
}

func (p *fakeImageProvider) Generate(_ context.Context, input GenerateInput) (*Image, error) {
	p.calls++
	p.lastInput = input
	if p.err != nil {
		return nil, p.err
	}
	if p.image != nil {
		return p.image, nil
	}
	return &Image{Data: "ZmFrZS1pbWFnZQ==", MimeType: "image/png"}, nil
}

func (p *fakeImageProvider) Model() string { return "fake-image-model" }

func newGenerationService(t *testing.T) (*Service, *entitlement.Service, *fakeImageProvider, *gorm.DB) {
	t.Helper()
	gdb, errOpen := db.Open("file:" + filepath.Join(t.TempDir(), "generation.db"))
	if errOpen != nil {
		t.Fatalf("open database: %v", errOpen)
	}
	if errMigrate := db.Migrate(gdb); errMigrate != nil {
		t.Fatalf("migrate database: %v", errMigrate)
	}
	ledger := entitlement.NewService(gdb, config.EntitlementConfig{FreeQuota: 5})
	provider := &fakeImageProvider{}
	svc := NewService(gdb, catalog.NewStore(catalog.DefaultSnapshot()), ledger, provider)
	return svc, ledger, provider, gdb
}

func createUser(t *testing.T, ledger *entitlement.Service) *models.User {
	t.Helper()
	user, errEnsure := ledger.EnsureUser(context.Background(), "auth0|artist", "artist@example.com")
	if errEnsure != nil {
		t.Fatalf("ensure user: %v", errEnsure)
	}
	return user
}

func TestGenerateDebitsFreeQuota(t *testing.T) {
	svc, ledger, provider, gdb := newGenerationService(t)
	user := createUser(t, ledger)

	result, errGenerate := svc.Generate(context.Background(), user.ID, GenerateRequest{Prompt: "a red fox in the snow"})
	if errGenerate != nil {
		t.Fatalf("generate: %v", errGenerate)
	}
	if result.Source != models.SourceFreeQuota {
		t.Fatalf("expected free_quota source, got %s", result.Source)
	}
	if result.FreeRemaining != 4 {
		t.Fatalf("expected 4 free generations left, got %d", result.FreeRemaining)
	}
	if result.ImageData == "" || result.MimeType != "image/png" {
		t.Fatalf("expected image payload, got %+v", result)
	}

	if !strings.Contains(provider.lastInput.Prompt, "a red fox in the snow") ||
		!strings.Contains(provider.lastInput.Prompt, "photorealistic") {
		t.Fatalf("unexpected enhanced prompt %q", provider.lastInput.Prompt)
	}

	var record models.GenerationRecord
	if errFind := gdb.Where("id = ?", result.RecordID).First(&record).Error; errFind != nil {
		t.Fatalf("load record: %v", errFind)
	}
	if record.UserID != user.ID || record.Model != "fake-image-model" || record.SourceKind != string(models.SourceFreeQuota) {
		t.Fatalf("unexpected record %+v", record)
	}
}

func TestGenerateCuratedPrompt(t *testing.T) {
	svc, ledger, provider, gdb := newGenerationService(t)
	user := createUser(t, ledger)

	result, errGenerate := svc.Generate(context.Background(), user.ID, GenerateRequest{PromptID: 3})
	if errGenerate != nil {
		t.Fatalf("generate: %v", errGenerate)
	}
	if !strings.Contains(provider.lastInput.Prompt, "A cinematic fashion editorial portrait") {
		t.Fatalf("expected catalog prompt text, got %q", provider.lastInput.Prompt)
	}

	var record models.GenerationRecord
	if errFind := gdb.Where("id = ?", result.RecordID).First(&record).Error; errFind != nil {
		t.Fatalf("load record: %v", errFind)
	}
	if record.PromptID != 3 || record.Category != "Artistic" {
		t.Fatalf("expected curated prompt metadata, got id=%d category=%q", record.PromptID, record.Category)
	}
}

func TestGenerateUnknownPrompt(t *testing.T) {
	svc, ledger, provider, _ := newGenerationService(t)
	user := createUser(t, ledger)

	_, errGenerate := svc.Generate(context.Background(), user.ID, GenerateRequest{PromptID: 99})
	if !errors.Is(errGenerate, ErrUnknownPrompt) {
		t.Fatalf("expected ErrUnknownPrompt, got %v", errGenerate)
	}
	if provider.calls != 0 {
		t.Fatalf("expected no provider call, got %d", provider.calls)
	}
}

func TestGenerateEmptyPrompt(t *testing.T) {
	svc, ledger, _, _ := newGenerationService(t)
	user := createUser(t, ledger)

	_, errGenerate := svc.Generate(context.Background(), user.ID, GenerateRequest{Prompt: "   "})
	if !errors.Is(errGenerate, ErrEmptyPrompt) {
		t.Fatalf("expected ErrEmptyPrompt, got %v", errGenerate)
	}
}

func TestGenerateExhaustedEntitlement(t *testing.T) {
	svc, ledger, provider, gdb := newGenerationService(t)
	user := createUser(t, ledger)

	for i := 0; i < 5; i++ {
		if _, errGenerate := svc.Generate(context.Background(), user.ID, GenerateRequest{Prompt: "sunset"}); errGenerate != nil {
			t.Fatalf("generate %d: %v", i+1, errGenerate)
		}
	}

	_, errDenied := svc.Generate(context.Background(), user.ID, GenerateRequest{Prompt: "sunset"})
	if !errors.Is(errDenied, entitlement.ErrInsufficientEntitlement) {
		t.Fatalf("expected ErrInsufficientEntitlement, got %v", errDenied)
	}
	if provider.calls != 5 {
		t.Fatalf("expected 5 provider calls, got %d", provider.calls)
	}

	var count int64
	if errCount := gdb.Model(&models.GenerationRecord{}).Where("user_id = ?", user.ID).Count(&count).Error; errCount != nil {
		t.Fatalf("count records: %v", errCount)
	}
	if count != 5 {
		t.Fatalf("expected 5 records, got %d", count)
	}
}

func TestGenerateProviderFailureNoDebit(t *testing.T) {
	svc, ledger, provider, gdb := newGenerationService(t)
	user := createUser(t, ledger)
	provider.err = ErrProviderUnavailable

	_, errGenerate := svc.Generate(context.Background(), user.ID, GenerateRequest{Prompt: "sunset"})
	if !errors.Is(errGenerate, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", errGenerate)
	}

	var reloaded models.User
	if errFind := gdb.First(&reloaded, user.ID).Error; errFind != nil {
		t.Fatalf("load user: %v", errFind)
	}
	if reloaded.FreeUsed != 0 {
		t.Fatalf("expected no debit after provider failure, free_used=%d", reloaded.FreeUsed)
	}
	var count int64
	if errCount := gdb.Model(&models.GenerationRecord{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count records: %v", errCount)
	}
	if count != 0 {
		t.Fatalf("expected no records, got %d", count)
	}
}

func TestGenerateWithReferenceImage(t *testing.T) {
	svc, ledger, provider, _ := newGenerationService(t)
	user := createUser(t, ledger)

	_, errGenerate := svc.Generate(context.Background(), user.ID, GenerateRequest{
		Prompt:         "make it watercolor",
		ReferenceImage: "aW1hZ2UtYnl0ZXM=",
		Style:          "watercolor",
	})
	if errGenerate != nil {
		t.Fatalf("generate: %v", errGenerate)
	}
	if provider.lastInput.ReferenceImage != "aW1hZ2UtYnl0ZXM=" {
		t.Fatalf("expected reference image forwarded, got %q", provider.lastInput.ReferenceImage)
	}
	if !strings.HasPrefix(provider.lastInput.Prompt, "Transform this image:") ||
		!strings.Contains(provider.lastInput.Prompt, "watercolor") {
		t.Fatalf("unexpected transform prompt %q", provider.lastInput.Prompt)
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	svc, ledger, _, gdb := newGenerationService(t)
	user := createUser(t, ledger)

	base := time.Now().UTC().Add(-3 * time.Hour)
	for i := 0; i < 3; i++ {
		record := models.GenerationRecord{
			ID:         uuid.NewString(),
			UserID:     user.ID,
			PromptText: []string{"first", "second", "third"}[i],
			SourceKind: string(models.SourceFreeQuota),
			Model:      "fake-image-model",
			ImageData:  "ZmFrZQ==",
			CreatedAt:  base.Add(time.Duration(i) * time.Hour),
		}
		if errCreate := gdb.Create(&record).Error; errCreate != nil {
			t.Fatalf("seed record: %v", errCreate)
		}
	}

	views, errHistory := svc.History(context.Background(), user.ID, 2)
	if errHistory != nil {
		t.Fatalf("history: %v", errHistory)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(views))
	}
	if views[0].PromptText != "third" || views[1].PromptText != "second" {
		t.Fatalf("expected newest first, got %q then %q", views[0].PromptText, views[1].PromptText)
	}

	all, errAll := svc.History(context.Background(), user.ID, 0)
	if errAll != nil {
		t.Fatalf("history with default limit: %v", errAll)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 rows with default limit, got %d", len(all))
	}
}
