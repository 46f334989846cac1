package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/glowlens/glowlens-api/internal/auth"
	"github.com/glowlens/glowlens-api/internal/catalog"
	"github.com/glowlens/glowlens-api/internal/payments"
)

// maxWebhookBody caps how much of a webhook request is read.
const maxWebhookBody = 65536

// PaymentFrontHandler serves the package catalog, checkout and webhooks.
type PaymentFrontHandler struct {
	payments *payments.Service
	catalogs *catalog.Store
}

// NewPaymentHandler constructs a PaymentFrontHandler.
func NewPaymentHandler(paymentSvc *payments.Service, catalogs *catalog.Store) *PaymentFrontHandler {
	return &PaymentFrontHandler{payments: paymentSvc, catalogs: catalogs}
}

// PackageView is one purchasable package.
type PackageView struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Amount      float64 `json:"amount"`
	AmountCents int64   `json:"amount_cents"`
	Currency    string  `json:"currency"`
	Credits     int64   `json:"credits,omitempty"`
	Unlimited   bool    `json:"unlimited,omitempty"`
	Interval    string  `json:"interval,omitempty"`
	Mode        string  `json:"mode"`
}

// PackageListResponse is the package catalog payload, keyed by package id.
type PackageListResponse struct {
	Packages map[string]PackageView `json:"packages"`
	Success  bool                   `json:"success"`
}

// checkoutRequest is the checkout-session body.
type checkoutRequest struct {
	PackageID string `json:"package_id" binding:"required"`
	OriginURL string `json:"origin_url"`
}

// CheckoutResponse is the checkout-session payload.
type CheckoutResponse struct {
	URL         string  `json:"url"`
	SessionID   string  `json:"session_id"`
	PackageID   string  `json:"package_id"`
	PackageName string  `json:"package_name"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Success     bool    `json:"success"`
}

// PaymentStatusResponse is the session status payload. Amounts are cents.
type PaymentStatusResponse struct {
	SessionID     string `json:"session_id"`
	PaymentStatus string `json:"payment_status"`
	Status        string `json:"status,omitempty"`
	AmountTotal   int64  `json:"amount_total"`
	Currency      string `json:"currency"`
	Success       bool   `json:"success"`
}

// WebhookAckResponse acknowledges a processed webhook delivery.
type WebhookAckResponse struct {
	Received bool `json:"received"`
}

// Packages returns the server-side package catalog. Prices shown to the
// client are display only; checkout always re-reads the catalog.
func (h *PaymentFrontHandler) Packages(c *gin.Context) {
	packages := h.catalogs.Snapshot().Packages()
	out := make(map[string]PackageView, len(packages))
	for _, pkg := range packages {
		out[pkg.ID] = PackageView{
			ID:          pkg.ID,
			Name:        pkg.Name,
			Description: pkg.Description,
			Amount:      pkg.Amount(),
			AmountCents: pkg.AmountCents,
			Currency:    pkg.Currency,
			Credits:     pkg.Credits,
			Unlimited:   pkg.Unlimited,
			Interval:    pkg.Interval,
			Mode:        pkg.CheckoutMode(),
		}
	}
	c.JSON(http.StatusOK, PackageListResponse{Packages: out, Success: true})
}

// CreateCheckoutSession opens a provider checkout for a catalog package.
func (h *PaymentFrontHandler) CreateCheckoutSession(c *gin.Context) {
	userID, ok := auth.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	var req checkoutRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid request body"})
		return
	}

	view, errCheckout := h.payments.CreateCheckout(c.Request.Context(), userID, req.PackageID, req.OriginURL)
	if errCheckout != nil {
		switch {
		case errors.Is(errCheckout, payments.ErrInvalidPackage):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid package"})
		case errors.Is(errCheckout, payments.ErrInvalidOrigin):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid origin url"})
		default:
			log.WithError(errCheckout).Error("checkout: create session failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "create checkout session failed"})
		}
		return
	}

	c.JSON(http.StatusOK, CheckoutResponse{
		URL:         view.CheckoutURL,
		SessionID:   view.SessionID,
		PackageID:   view.PackageID,
		PackageName: view.PackageName,
		Amount:      float64(view.AmountCents) / 100,
		Currency:    view.Currency,
		Success:     true,
	})
}

// Status refreshes and returns the reconciled state of a checkout session.
func (h *PaymentFrontHandler) Status(c *gin.Context) {
	userID, ok := auth.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	view, errStatus := h.payments.Status(c.Request.Context(), userID, c.Param("sessionId"))
	if errStatus != nil {
		switch {
		case errors.Is(errStatus, payments.ErrTransactionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
		default:
			log.WithError(errStatus).Error("payment status: refresh failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "payment status failed"})
		}
		return
	}

	c.JSON(http.StatusOK, PaymentStatusResponse{
		SessionID:     view.SessionID,
		PaymentStatus: string(view.PaymentStatus),
		Status:        view.Status,
		AmountTotal:   view.AmountCents,
		Currency:      view.Currency,
		Success:       true,
	})
}

// Webhook verifies and processes a provider event. Verification failures are
// rejected before any lookup; processing failures return 500 so the provider
// retries the delivery.
func (h *PaymentFrontHandler) Webhook(c *gin.Context) {
	payload, errRead := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if errRead != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read body failed"})
		return
	}
	sigHeader := c.GetHeader("Stripe-Signature")
	if sigHeader == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing signature"})
		return
	}

	event, errVerify := h.payments.VerifyWebhook(payload, sigHeader)
	if errVerify != nil {
		log.WithError(errVerify).Warn("webhook: signature verification failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "signature verification failed"})
		return
	}

	if errHandle := h.payments.HandleWebhookEvent(c.Request.Context(), event); errHandle != nil {
		log.WithError(errHandle).Error("webhook: handle event failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "handle event failed"})
		return
	}
	c.JSON(http.StatusOK, WebhookAckResponse{Received: true})
}
