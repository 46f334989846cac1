package front

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"github.com/glowlens/glowlens-api/internal/auth"
	"github.com/glowlens/glowlens-api/internal/catalog"
	"github.com/glowlens/glowlens-api/internal/config"
	"github.com/glowlens/glowlens-api/internal/db"
	"github.com/glowlens/glowlens-api/internal/entitlement"
	"github.com/glowlens/glowlens-api/internal/generation"
	handlers "github.com/glowlens/glowlens-api/internal/http/api/front/handlers"
	"github.com/glowlens/glowlens-api/internal/models"
	"github.com/glowlens/glowlens-api/internal/payments"
	"github.com/glowlens/glowlens-api/internal/ratelimit"
)

const (
	frontIssuer   = "https://id.glowlens.dev/"
	frontAudience = "glowlens-api"
	frontSecret   = "front-test-secret"
	testSignature = "t=1,v1=valid"
)

// stubPaymentProvider keeps checkout sessions in memory and verifies
// webhooks against a fixed signature.
type stubPaymentProvider struct {
	sessions map[string]*payments.Session
	created  int
}

func (p *stubPaymentProvider) CreateCustomer(_ context.Context, subject, _ string) (string, error) {
	return "cus_" + subject, nil
}

func (p *stubPaymentProvider) CreateSession(_ context.Context, input payments.CreateSessionInput) (*payments.Session, error) {
	p.created++
	sess := &payments.Session{
		ID:            fmt.Sprintf("cs_front_%d", p.created),
		URL:           fmt.Sprintf("https://checkout.example/cs_front_%d", p.created),
		Status:        "open",
		PaymentStatus: "unpaid",
		AmountTotal:   input.AmountCents,
		Currency:      input.Currency,
		CustomerID:    input.CustomerID,
	}
	p.sessions[sess.ID] = sess
	return sess, nil
}

func (p *stubPaymentProvider) GetSession(_ context.Context, sessionID string) (*payments.Session, error) {
	sess, ok := p.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: unknown session", payments.ErrProviderUnavailable)
	}
	return sess, nil
}

func (p *stubPaymentProvider) VerifyWebhook(payload []byte, sigHeader string) (*payments.WebhookEvent, error) {
	if sigHeader != testSignature {
		return nil, errors.New("bad signature")
	}
	var raw struct {
		ID         string `json:"id"`
		Type       string `json:"type"`
		SessionID  string `json:"session_id"`
		CustomerID string `json:"customer_id"`
	}
	if errUnmarshal := json.Unmarshal(payload, &raw); errUnmarshal != nil {
		return nil, errUnmarshal
	}
	return &payments.WebhookEvent{
		ID:         raw.ID,
		Type:       raw.Type,
		SessionID:  raw.SessionID,
		CustomerID: raw.CustomerID,
		Payload:    payload,
	}, nil
}

// stubImageProvider returns a canned render.
type stubImageProvider struct {
	err   error
	calls int
}

func (p *stubImageProvider) Generate(_ context.Context, _ generation.GenerateInput) (*generation.Image, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return &generation.Image{Data: "aW1hZ2U=", MimeType: "image/png"}, nil
}

func (p *stubImageProvider) Model() string { return "stub-model" }

type frontEnv struct {
	engine   *gin.Engine
	gdb      *gorm.DB
	imageP   *stubImageProvider
	paymentP *stubPaymentProvider
}

func newFrontEnv(t *testing.T, rateLimit int) *frontEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb, errOpen := db.Open("file:" + filepath.Join(t.TempDir(), "front.db"))
	if errOpen != nil {
		t.Fatalf("open database: %v", errOpen)
	}
	if errMigrate := db.Migrate(gdb); errMigrate != nil {
		t.Fatalf("migrate database: %v", errMigrate)
	}

	ledger := entitlement.NewService(gdb, config.EntitlementConfig{FreeQuota: 5})
	catalogs := catalog.NewStore(catalog.DefaultSnapshot())
	imageP := &stubImageProvider{}
	paymentP := &stubPaymentProvider{sessions: map[string]*payments.Session{}}
	generationSvc := generation.NewService(gdb, catalogs, ledger, imageP)
	paymentSvc := payments.NewService(gdb, paymentP, catalogs, ledger)

	verifier, errVerifier := auth.NewVerifier(config.IdentityConfig{
		Issuer:   frontIssuer,
		Audience: frontAudience,
		HSSecret: frontSecret,
	})
	if errVerifier != nil {
		t.Fatalf("new verifier: %v", errVerifier)
	}
	limiter := ratelimit.NewManager(func() ratelimit.SettingsConfig {
		return ratelimit.SettingsConfig{Limit: rateLimit}
	}, time.Minute, nil, nil)

	engine := gin.New()
	RegisterFrontRoutes(engine, verifier, ledger, paymentSvc, generationSvc, catalogs, limiter)
	return &frontEnv{engine: engine, gdb: gdb, imageP: imageP, paymentP: paymentP}
}

func signFrontToken(t *testing.T, subject string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"iss":   frontIssuer,
		"aud":   frontAudience,
		"sub":   subject,
		"email": subject + "@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
		"iat":   time.Now().Unix(),
	}
	token, errSign := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(frontSecret))
	if errSign != nil {
		t.Fatalf("sign token: %v", errSign)
	}
	return token
}

func doJSON(t *testing.T, engine *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, errMarshal := json.Marshal(body)
		if errMarshal != nil {
			t.Fatalf("marshal body: %v", errMarshal)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func postWebhook(t *testing.T, engine *gin.Engine, event map[string]any, sig string) *httptest.ResponseRecorder {
	t.Helper()
	data, errMarshal := json.Marshal(event)
	if errMarshal != nil {
		t.Fatalf("marshal event: %v", errMarshal)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/webhook/stripe", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	if sig != "" {
		req.Header.Set("Stripe-Signature", sig)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, target any) {
	t.Helper()
	if errDecode := json.Unmarshal(w.Body.Bytes(), target); errDecode != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), errDecode)
	}
}

func TestHealthEndpoint(t *testing.T) {
	env := newFrontEnv(t, 0)

	w := doJSON(t, env.engine, http.MethodGet, "/api/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp handlers.HealthResponse
	decodeBody(t, w, &resp)
	if resp.Status != "healthy" || resp.Service != "glowlens-api" {
		t.Fatalf("unexpected health payload %+v", resp)
	}
}

func TestPromptEndpoints(t *testing.T) {
	env := newFrontEnv(t, 0)

	w := doJSON(t, env.engine, http.MethodGet, "/api/prompts", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var list handlers.PromptListResponse
	decodeBody(t, w, &list)
	if list.TotalCount != 12 || len(list.Prompts) != 12 {
		t.Fatalf("expected 12 prompts, got %d", list.TotalCount)
	}
	if len(list.Categories) != 3 {
		t.Fatalf("expected 3 categories, got %v", list.Categories)
	}

	w = doJSON(t, env.engine, http.MethodGet, "/api/prompts/category/Lifestyle", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var byCat handlers.PromptCategoryResponse
	decodeBody(t, w, &byCat)
	if byCat.Count != 2 || byCat.Category != "Lifestyle" {
		t.Fatalf("unexpected category payload %+v", byCat)
	}

	w = doJSON(t, env.engine, http.MethodGet, "/api/prompts/category/Nonsense", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestProfileRequiresAuth(t *testing.T) {
	env := newFrontEnv(t, 0)

	if w := doJSON(t, env.engine, http.MethodGet, "/api/user/profile", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
}

func TestProfileCreatesUser(t *testing.T) {
	env := newFrontEnv(t, 0)
	token := signFrontToken(t, "auth0|newcomer")

	w := doJSON(t, env.engine, http.MethodGet, "/api/user/profile", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp handlers.ProfileResponse
	decodeBody(t, w, &resp)
	if resp.Profile.Subject != "auth0|newcomer" || resp.Profile.Tier != string(models.TierFree) {
		t.Fatalf("unexpected profile %+v", resp.Profile)
	}
	if resp.Profile.FreeRemaining != 5 || !resp.Profile.CanGenerate {
		t.Fatalf("expected full free quota, got %+v", resp.Profile)
	}
	if resp.Stats.TotalGenerations != 0 {
		t.Fatalf("expected zero generations, got %d", resp.Stats.TotalGenerations)
	}
}

func TestGenerateExhaustsFreeQuota(t *testing.T) {
	env := newFrontEnv(t, 0)
	token := signFrontToken(t, "auth0|freeloader")

	for i := 0; i < 5; i++ {
		w := doJSON(t, env.engine, http.MethodPost, "/api/generate-image", token,
			map[string]any{"prompt": "a mountain lake"})
		if w.Code != http.StatusOK {
			t.Fatalf("generate %d: expected 200, got %d: %s", i+1, w.Code, w.Body.String())
		}
		var resp handlers.GenerateResponse
		decodeBody(t, w, &resp)
		if resp.UsageSource != string(models.SourceFreeQuota) {
			t.Fatalf("generate %d: expected free_quota, got %s", i+1, resp.UsageSource)
		}
		if resp.FreeRemaining != 4-i {
			t.Fatalf("generate %d: expected %d free left, got %d", i+1, 4-i, resp.FreeRemaining)
		}
		if !strings.HasPrefix(resp.ImageURL, "data:image/png;base64,") {
			t.Fatalf("generate %d: unexpected image url %q", i+1, resp.ImageURL)
		}
	}

	w := doJSON(t, env.engine, http.MethodPost, "/api/generate-image", token,
		map[string]any{"prompt": "a mountain lake"})
	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402 after quota, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "upgrade") {
		t.Fatalf("expected upgrade hint, got %s", w.Body.String())
	}
	if env.imageP.calls != 5 {
		t.Fatalf("expected 5 provider calls, got %d", env.imageP.calls)
	}
}

func TestGenerateValidation(t *testing.T) {
	env := newFrontEnv(t, 0)
	token := signFrontToken(t, "auth0|validator")

	req := httptest.NewRequest(http.MethodPost, "/api/generate-image", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	env.engine.ServeHTTP(w, req)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for malformed body, got %d", w.Code)
	}

	if w := doJSON(t, env.engine, http.MethodPost, "/api/generate-image", token,
		map[string]any{"prompt": "   "}); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for blank prompt, got %d", w.Code)
	}

	if w := doJSON(t, env.engine, http.MethodPost, "/api/generate-image", token,
		map[string]any{"prompt_id": 99}); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown prompt, got %d", w.Code)
	}

	env.imageP.err = generation.ErrProviderUnavailable
	if w := doJSON(t, env.engine, http.MethodPost, "/api/generate-image", token,
		map[string]any{"prompt": "a mountain lake"}); w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 on provider failure, got %d", w.Code)
	}
}

func TestPackagesEndpoint(t *testing.T) {
	env := newFrontEnv(t, 0)

	w := doJSON(t, env.engine, http.MethodGet, "/api/payment/packages", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp handlers.PackageListResponse
	decodeBody(t, w, &resp)
	if len(resp.Packages) != 4 {
		t.Fatalf("expected 4 packages, got %d", len(resp.Packages))
	}
	starter, ok := resp.Packages["credits_10"]
	if !ok || starter.Amount != 4.99 || starter.Credits != 10 || starter.Mode != "payment" {
		t.Fatalf("unexpected starter package %+v", starter)
	}
	pro, ok := resp.Packages["pro_monthly"]
	if !ok || pro.Mode != "subscription" || pro.Interval != "month" {
		t.Fatalf("unexpected pro package %+v", pro)
	}
}

func TestCheckoutAndWebhookFlow(t *testing.T) {
	env := newFrontEnv(t, 0)
	token := signFrontToken(t, "auth0|buyer")

	w := doJSON(t, env.engine, http.MethodPost, "/api/payment/checkout-session", token,
		map[string]any{"package_id": "credits_10", "origin_url": "https://app.glowlens.dev"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var checkout handlers.CheckoutResponse
	decodeBody(t, w, &checkout)
	if checkout.SessionID == "" || checkout.URL == "" || checkout.Amount != 4.99 {
		t.Fatalf("unexpected checkout payload %+v", checkout)
	}

	event := map[string]any{
		"id":         "evt_front_1",
		"type":       "checkout.session.completed",
		"session_id": checkout.SessionID,
	}
	if w := postWebhook(t, env.engine, event, testSignature); w.Code != http.StatusOK {
		t.Fatalf("webhook: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, env.engine, http.MethodGet, "/api/user/profile", token, nil)
	var profile handlers.ProfileResponse
	decodeBody(t, w, &profile)
	if profile.Profile.CreditBalance != 10 {
		t.Fatalf("expected 10 credits after webhook, got %d", profile.Profile.CreditBalance)
	}

	// Redelivery must not grant again.
	if w := postWebhook(t, env.engine, event, testSignature); w.Code != http.StatusOK {
		t.Fatalf("duplicate webhook: expected 200, got %d", w.Code)
	}
	w = doJSON(t, env.engine, http.MethodGet, "/api/user/profile", token, nil)
	decodeBody(t, w, &profile)
	if profile.Profile.CreditBalance != 10 {
		t.Fatalf("expected balance unchanged on redelivery, got %d", profile.Profile.CreditBalance)
	}
}

func TestCheckoutRejectsUnknownPackage(t *testing.T) {
	env := newFrontEnv(t, 0)
	token := signFrontToken(t, "auth0|buyer")

	w := doJSON(t, env.engine, http.MethodPost, "/api/payment/checkout-session", token,
		map[string]any{"package_id": "credits_9000", "origin_url": "https://app.glowlens.dev"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}

	var count int64
	if errCount := env.gdb.Model(&models.PaymentTransaction{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count transactions: %v", errCount)
	}
	if count != 0 {
		t.Fatalf("expected no transaction rows, got %d", count)
	}
}

func TestCheckoutRejectsMalformedBody(t *testing.T) {
	env := newFrontEnv(t, 0)
	token := signFrontToken(t, "auth0|buyer")

	if w := doJSON(t, env.engine, http.MethodPost, "/api/payment/checkout-session", token,
		map[string]any{"origin_url": "https://app.glowlens.dev"}); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 without package_id, got %d", w.Code)
	}
}

func TestPaymentStatusEndpoint(t *testing.T) {
	env := newFrontEnv(t, 0)
	token := signFrontToken(t, "auth0|poller")

	w := doJSON(t, env.engine, http.MethodPost, "/api/payment/checkout-session", token,
		map[string]any{"package_id": "credits_50", "origin_url": "https://app.glowlens.dev"})
	var checkout handlers.CheckoutResponse
	decodeBody(t, w, &checkout)

	sess := env.paymentP.sessions[checkout.SessionID]
	sess.Status = "complete"
	sess.PaymentStatus = "paid"

	w = doJSON(t, env.engine, http.MethodGet, "/api/payment/status/"+checkout.SessionID, token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var status handlers.PaymentStatusResponse
	decodeBody(t, w, &status)
	if status.PaymentStatus != string(models.PaymentStatusPaid) || status.AmountTotal != 1999 {
		t.Fatalf("unexpected status payload %+v", status)
	}

	if w := doJSON(t, env.engine, http.MethodGet, "/api/payment/status/cs_missing", token, nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown session, got %d", w.Code)
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	env := newFrontEnv(t, 0)

	event := map[string]any{"id": "evt_x", "type": "checkout.session.completed", "session_id": "cs_x"}
	if w := postWebhook(t, env.engine, event, ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without signature, got %d", w.Code)
	}
	if w := postWebhook(t, env.engine, event, "t=1,v1=garbage"); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 with bad signature, got %d", w.Code)
	}
}

func TestGenerateRateLimited(t *testing.T) {
	env := newFrontEnv(t, 2)
	token := signFrontToken(t, "auth0|spammer")

	for i := 0; i < 2; i++ {
		if w := doJSON(t, env.engine, http.MethodPost, "/api/generate-image", token,
			map[string]any{"prompt": "quick sketch"}); w.Code != http.StatusOK {
			t.Fatalf("generate %d: expected 200, got %d", i+1, w.Code)
		}
	}

	w := doJSON(t, env.engine, http.MethodPost, "/api/generate-image", token,
		map[string]any{"prompt": "quick sketch"})
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
	if !strings.Contains(w.Body.String(), "rate limit exceeded") {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}

func TestGenerationHistoryEndpoint(t *testing.T) {
	env := newFrontEnv(t, 0)
	token := signFrontToken(t, "auth0|historian")

	for _, prompt := range []string{"alpha", "beta"} {
		if w := doJSON(t, env.engine, http.MethodPost, "/api/generate-image", token,
			map[string]any{"prompt": prompt}); w.Code != http.StatusOK {
			t.Fatalf("generate %q: got %d", prompt, w.Code)
		}
	}

	w := doJSON(t, env.engine, http.MethodGet, "/api/user/generations?limit=10", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp handlers.GenerationListResponse
	decodeBody(t, w, &resp)
	if resp.Count != 2 || len(resp.Generations) != 2 {
		t.Fatalf("expected 2 generations, got %+v", resp)
	}
	for _, row := range resp.Generations {
		if row.Model != "stub-model" || row.Source != string(models.SourceFreeQuota) {
			t.Fatalf("unexpected history row %+v", row)
		}
	}
}
