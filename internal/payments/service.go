package payments

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/glowlens/glowlens-api/internal/catalog"
	"github.com/glowlens/glowlens-api/internal/db"
	"github.com/glowlens/glowlens-api/internal/entitlement"
	"github.com/glowlens/glowlens-api/internal/models"
)

// Service creates checkout sessions and reconciles their outcomes against
// the entitlement ledger.
type Service struct {
	db       *gorm.DB
	provider Provider
	catalogs *catalog.Store
	ledger   *entitlement.Service
}

// NewService wires the payments service.
func NewService(gdb *gorm.DB, provider Provider, catalogs *catalog.Store, ledger *entitlement.Service) *Service {
	return &Service{db: gdb, provider: provider, catalogs: catalogs, ledger: ledger}
}

// CheckoutView is returned to the client after a checkout session opens.
type CheckoutView struct {
	SessionID   string
	CheckoutURL string
	PackageID   string
	PackageName string
	AmountCents int64
	Currency    string
}

// StatusReport is a provider-observed session state to reconcile against
// the stored transaction.
type StatusReport struct {
	PaymentStatus models.PaymentStatus
	Status        string
}

// StatusView is the polled view of a checkout session after reconciliation.
type StatusView struct {
	SessionID     string
	PaymentStatus models.PaymentStatus
	Status        string
	AmountCents   int64
	Currency      string
}

// CreateCheckout validates the package against the catalog, opens a provider
// session and records the pending transaction. Nothing is written and no
// provider call is made for an unknown package id.
func (s *Service) CreateCheckout(ctx context.Context, userID uint64, packageID, originURL string) (*CheckoutView, error) {
	pkg, ok := s.catalogs.Snapshot().PackageByID(strings.TrimSpace(packageID))
	if !ok {
		return nil, ErrInvalidPackage
	}
	origin, errOrigin := normalizeOrigin(originURL)
	if errOrigin != nil {
		return nil, errOrigin
	}

	var user models.User
	if errFind := s.db.WithContext(ctx).First(&user, userID).Error; errFind != nil {
		return nil, errFind
	}

	customerID, errCustomer := s.ensureCustomer(ctx, &user)
	if errCustomer != nil {
		return nil, errCustomer
	}

	sess, errCreate := s.provider.CreateSession(ctx, CreateSessionInput{
		CustomerID:  customerID,
		Mode:        pkg.CheckoutMode(),
		PackageID:   pkg.ID,
		PackageName: pkg.Name,
		Description: pkg.Description,
		AmountCents: pkg.AmountCents,
		Currency:    pkg.Currency,
		Interval:    pkg.Interval,
		SuccessURL:  origin + "/payment/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:   origin + "/payment/cancel",
		Metadata: map[string]string{
			"user_id":    strconv.FormatUint(user.ID, 10),
			"package_id": pkg.ID,
		},
	})
	if errCreate != nil {
		return nil, errCreate
	}

	txn := models.PaymentTransaction{
		SessionID:     sess.ID,
		UserID:        user.ID,
		PackageID:     pkg.ID,
		PackageName:   pkg.Name,
		AmountCents:   pkg.AmountCents,
		Currency:      pkg.Currency,
		PaymentStatus: models.PaymentStatusInitiated,
		Status:        sess.Status,
	}
	if errPersist := s.db.WithContext(ctx).Create(&txn).Error; errPersist != nil {
		if db.IsUniqueViolation(errPersist) {
			return nil, fmt.Errorf("checkout session %s already recorded", sess.ID)
		}
		return nil, errPersist
	}

	log.WithFields(log.Fields{
		"user_id":    user.ID,
		"package_id": pkg.ID,
		"session_id": sess.ID,
	}).Info("checkout session created")

	return &CheckoutView{
		SessionID:   sess.ID,
		CheckoutURL: sess.URL,
		PackageID:   pkg.ID,
		PackageName: pkg.Name,
		AmountCents: pkg.AmountCents,
		Currency:    pkg.Currency,
	}, nil
}

// ensureCustomer returns the user's provider customer id, creating and
// storing one on first use.
func (s *Service) ensureCustomer(ctx context.Context, user *models.User) (string, error) {
	if id := strings.TrimSpace(user.StripeCustomerID); id != "" {
		return id, nil
	}
	id, errCustomer := s.provider.CreateCustomer(ctx, user.Subject, user.Email)
	if errCustomer != nil {
		return "", errCustomer
	}
	if errSave := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", user.ID).
		Update("stripe_customer_id", id).Error; errSave != nil {
		return "", errSave
	}
	user.StripeCustomerID = id
	return id, nil
}

// Reconcile applies a provider-observed state to the stored transaction.
// The row is locked for the duration; a transaction already in a terminal
// state is returned unchanged, which is what makes webhook redeliveries and
// concurrent status polls safe. The first transition to paid grants the
// package through the entitlement ledger and stamps processed_at, all inside
// the same database transaction.
func (s *Service) Reconcile(ctx context.Context, sessionID string, reported StatusReport) (*models.PaymentTransaction, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ErrTransactionNotFound
	}

	var txn models.PaymentTransaction
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errFind := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("session_id = ?", sessionID).
			First(&txn).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return ErrTransactionNotFound
			}
			return errFind
		}

		if txn.PaymentStatus.Terminal() {
			return nil
		}

		now := time.Now().UTC()
		updates := map[string]any{"updated_at": now}
		if reported.Status != "" && reported.Status != txn.Status {
			updates["status"] = reported.Status
			txn.Status = reported.Status
		}

		next := reported.PaymentStatus
		if next == "" || next == txn.PaymentStatus {
			if len(updates) > 1 {
				return tx.Model(&models.PaymentTransaction{}).Where("id = ?", txn.ID).Updates(updates).Error
			}
			return nil
		}

		updates["payment_status"] = next
		if next == models.PaymentStatusPaid {
			pkg, ok := s.catalogs.Snapshot().PackageByID(txn.PackageID)
			if !ok {
				return fmt.Errorf("package %q missing from catalog", txn.PackageID)
			}
			if errApply := s.ledger.ApplyPaymentCredit(tx, txn.UserID, pkg); errApply != nil {
				return errApply
			}
			updates["processed_at"] = now
			txn.ProcessedAt = &now
			log.WithFields(log.Fields{
				"session_id": txn.SessionID,
				"user_id":    txn.UserID,
				"package_id": txn.PackageID,
			}).Info("payment applied")
		}
		txn.PaymentStatus = next
		return tx.Model(&models.PaymentTransaction{}).Where("id = ?", txn.ID).Updates(updates).Error
	})
	if errTx != nil {
		return nil, errTx
	}
	return &txn, nil
}

// Status refreshes a transaction from the provider and returns the
// reconciled state. The session must belong to the given user.
func (s *Service) Status(ctx context.Context, userID uint64, sessionID string) (*StatusView, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ErrTransactionNotFound
	}

	var stored models.PaymentTransaction
	if errFind := s.db.WithContext(ctx).
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		First(&stored).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, errFind
	}

	// Terminal rows are already settled; skip the provider round trip.
	if !stored.PaymentStatus.Terminal() {
		sess, errGet := s.provider.GetSession(ctx, sessionID)
		if errGet != nil {
			return nil, errGet
		}
		txn, errReconcile := s.Reconcile(ctx, sessionID, reportFromSession(sess))
		if errReconcile != nil {
			return nil, errReconcile
		}
		stored = *txn
	}

	return &StatusView{
		SessionID:     stored.SessionID,
		PaymentStatus: stored.PaymentStatus,
		Status:        stored.Status,
		AmountCents:   stored.AmountCents,
		Currency:      stored.Currency,
	}, nil
}

// VerifyWebhook delegates signature verification to the provider.
func (s *Service) VerifyWebhook(payload []byte, sigHeader string) (*WebhookEvent, error) {
	return s.provider.VerifyWebhook(payload, sigHeader)
}

// HandleWebhookEvent records the delivery and routes it to the reconciler.
// Unknown event types are stored and acknowledged.
func (s *Service) HandleWebhookEvent(ctx context.Context, event *WebhookEvent) error {
	if event == nil {
		return errors.New("nil webhook event")
	}

	// Record first so the raw payload survives even for event types we skip.
	row := models.WebhookEvent{
		EventID:   event.ID,
		EventType: event.Type,
		SessionID: event.SessionID,
		Payload:   datatypes.JSON(event.Payload),
	}
	if errCreate := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "event_id"}}, DoNothing: true}).
		Create(&row).Error; errCreate != nil {
		return errCreate
	}

	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		_, errReconcile := s.Reconcile(ctx, event.SessionID, StatusReport{
			PaymentStatus: models.PaymentStatusPaid,
			Status:        "complete",
		})
		return errReconcile
	case "checkout.session.async_payment_failed":
		_, errReconcile := s.Reconcile(ctx, event.SessionID, StatusReport{
			PaymentStatus: models.PaymentStatusFailed,
			Status:        "complete",
		})
		return errReconcile
	case "checkout.session.expired":
		_, errReconcile := s.Reconcile(ctx, event.SessionID, StatusReport{
			PaymentStatus: models.PaymentStatusExpired,
			Status:        "expired",
		})
		return errReconcile
	case "customer.subscription.deleted":
		errRevoke := s.ledger.RevokePro(ctx, event.CustomerID)
		if errors.Is(errRevoke, gorm.ErrRecordNotFound) {
			log.WithField("customer_id", event.CustomerID).Warn("subscription deleted for unknown customer")
			return nil
		}
		return errRevoke
	default:
		log.WithField("event_type", event.Type).Debug("ignoring webhook event")
		return nil
	}
}

// reportFromSession maps provider session state onto the local lifecycle.
// Anything that is neither settled nor expired counts as pending.
func reportFromSession(sess *Session) StatusReport {
	report := StatusReport{Status: sess.Status}
	switch {
	case sess.PaymentStatus == "paid" || sess.Status == "complete":
		report.PaymentStatus = models.PaymentStatusPaid
	case sess.Status == "expired":
		report.PaymentStatus = models.PaymentStatusExpired
	default:
		report.PaymentStatus = models.PaymentStatusPending
	}
	return report
}

// normalizeOrigin reduces the client-supplied return origin to scheme://host.
func normalizeOrigin(originURL string) (string, error) {
	trimmed := strings.TrimSpace(originURL)
	if trimmed == "" {
		return "", ErrInvalidOrigin
	}
	parsed, errParse := url.Parse(trimmed)
	if errParse != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", ErrInvalidOrigin
	}
	return parsed.Scheme + "://" + parsed.Host, nil
}
