// Package payments owns checkout creation and payment reconciliation. All
// state transitions of a PaymentTransaction funnel through Reconcile, which
// is what keeps webhook retries and status polling idempotent.
package payments

import (
	"context"
	"errors"
)

var (
	// ErrInvalidPackage rejects a checkout for a package id not in the catalog.
	ErrInvalidPackage = errors.New("invalid package")

	// ErrInvalidOrigin rejects a checkout with an unusable return origin.
	ErrInvalidOrigin = errors.New("invalid origin url")

	// ErrTransactionNotFound means no transaction exists for the session id.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrProviderUnavailable wraps failures of the payment provider API.
	ErrProviderUnavailable = errors.New("payment provider unavailable")
)

// Session is the provider's view of a checkout session.
type Session struct {
	ID            string
	URL           string
	Status        string
	PaymentStatus string
	AmountTotal   int64
	Currency      string
	CustomerID    string
	Metadata      map[string]string
}

// CreateSessionInput carries everything the provider needs to open a
// checkout session. Amounts always come from the server-side catalog.
type CreateSessionInput struct {
	CustomerID  string
	Mode        string
	PackageID   string
	PackageName string
	Description string
	AmountCents int64
	Currency    string
	Interval    string
	SuccessURL  string
	CancelURL   string
	Metadata    map[string]string
}

// WebhookEvent is a signature-verified provider event.
type WebhookEvent struct {
	ID         string
	Type       string
	SessionID  string
	CustomerID string
	Payload    []byte
}

// Provider is the narrow contract against the external payment provider.
type Provider interface {
	CreateCustomer(ctx context.Context, subject, email string) (string, error)
	CreateSession(ctx context.Context, input CreateSessionInput) (*Session, error)
	GetSession(ctx context.Context, sessionID string) (*Session, error)
	VerifyWebhook(payload []byte, sigHeader string) (*WebhookEvent, error)
}
