package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/customer"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/glowlens/glowlens-api/internal/config"
)

// StripeProvider implements Provider on Stripe Checkout.
type StripeProvider struct {
	webhookSecret string
}

// NewStripeProvider configures the Stripe client. The secret key is process
// global, matching the official client library.
func NewStripeProvider(cfg config.StripeConfig) (*StripeProvider, error) {
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, errors.New("stripe requires a secret key")
	}
	stripe.Key = cfg.SecretKey
	return &StripeProvider{webhookSecret: cfg.WebhookSecret}, nil
}

// CreateCustomer registers a Stripe customer tagged with the identity subject.
func (p *StripeProvider) CreateCustomer(ctx context.Context, subject, email string) (string, error) {
	params := &stripe.CustomerParams{
		Metadata: map[string]string{"subject": subject},
	}
	params.Context = ctx
	if strings.TrimSpace(email) != "" {
		params.Email = stripe.String(email)
	}
	cust, errNew := customer.New(params)
	if errNew != nil {
		return "", fmt.Errorf("%w: create customer: %v", ErrProviderUnavailable, errNew)
	}
	return cust.ID, nil
}

// CreateSession opens a checkout session with an inline price. Prices are
// never pre-registered with Stripe; the catalog is the source of truth.
func (p *StripeProvider) CreateSession(ctx context.Context, input CreateSessionInput) (*Session, error) {
	priceData := &stripe.CheckoutSessionLineItemPriceDataParams{
		Currency:   stripe.String(input.Currency),
		UnitAmount: stripe.Int64(input.AmountCents),
		ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(input.PackageName),
		},
	}
	if strings.TrimSpace(input.Description) != "" {
		priceData.ProductData.Description = stripe.String(input.Description)
	}

	mode := stripe.CheckoutSessionModePayment
	if input.Mode == "subscription" {
		mode = stripe.CheckoutSessionModeSubscription
		priceData.Recurring = &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
			Interval: stripe.String(input.Interval),
		}
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(mode)),
		SuccessURL: stripe.String(input.SuccessURL),
		CancelURL:  stripe.String(input.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: priceData,
			Quantity:  stripe.Int64(1),
		}},
		Metadata: input.Metadata,
	}
	params.Context = ctx
	if strings.TrimSpace(input.CustomerID) != "" {
		params.Customer = stripe.String(input.CustomerID)
	}

	sess, errNew := session.New(params)
	if errNew != nil {
		return nil, fmt.Errorf("%w: create checkout session: %v", ErrProviderUnavailable, errNew)
	}
	return sessionView(sess), nil
}

// GetSession fetches the current state of a checkout session.
func (p *StripeProvider) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, errGet := session.Get(sessionID, params)
	if errGet != nil {
		return nil, fmt.Errorf("%w: get checkout session: %v", ErrProviderUnavailable, errGet)
	}
	return sessionView(sess), nil
}

// VerifyWebhook checks the Stripe signature and extracts the identifiers the
// reconciler needs from the event payload.
func (p *StripeProvider) VerifyWebhook(payload []byte, sigHeader string) (*WebhookEvent, error) {
	event, errConstruct := webhook.ConstructEventWithOptions(payload, sigHeader, p.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if errConstruct != nil {
		return nil, errConstruct
	}

	out := &WebhookEvent{
		ID:      event.ID,
		Type:    string(event.Type),
		Payload: event.Data.Raw,
	}
	switch {
	case strings.HasPrefix(out.Type, "checkout.session."):
		var sess stripe.CheckoutSession
		if errUnmarshal := json.Unmarshal(event.Data.Raw, &sess); errUnmarshal != nil {
			return nil, fmt.Errorf("parse checkout session event: %w", errUnmarshal)
		}
		out.SessionID = sess.ID
		if sess.Customer != nil {
			out.CustomerID = sess.Customer.ID
		}
	case strings.HasPrefix(out.Type, "customer.subscription."):
		var sub stripe.Subscription
		if errUnmarshal := json.Unmarshal(event.Data.Raw, &sub); errUnmarshal != nil {
			return nil, fmt.Errorf("parse subscription event: %w", errUnmarshal)
		}
		if sub.Customer != nil {
			out.CustomerID = sub.Customer.ID
		}
	}
	return out, nil
}

// sessionView flattens the Stripe session into the provider-neutral view.
func sessionView(sess *stripe.CheckoutSession) *Session {
	view := &Session{
		ID:            sess.ID,
		URL:           sess.URL,
		Status:        string(sess.Status),
		PaymentStatus: string(sess.PaymentStatus),
		AmountTotal:   sess.AmountTotal,
		Currency:      string(sess.Currency),
		Metadata:      sess.Metadata,
	}
	if sess.Customer != nil {
		view.CustomerID = sess.Customer.ID
	}
	return view
}
