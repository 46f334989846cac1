// Package entitlement is the single authority for whether a user may
// generate an image right now, and at whose expense. Every debit and every
// credit of the per-user ledger goes through this service.
package entitlement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glowlens/glowlens-api/internal/catalog"
	"github.com/glowlens/glowlens-api/internal/config"
	"github.com/glowlens/glowlens-api/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service owns the entitlement ledger.
type Service struct {
	db               *gorm.DB
	defaultFreeQuota int
}

// NewService constructs an entitlement service.
func NewService(db *gorm.DB, cfg config.EntitlementConfig) *Service {
	quota := cfg.FreeQuota
	if quota < 0 {
		quota = 0
	}
	return &Service{db: db, defaultFreeQuota: quota}
}

// EnsureUser materializes the ledger row for an identity-provider subject.
// Creation is conflict-safe so concurrent first requests produce one row;
// a changed token email is written back to the stored profile.
func (s *Service) EnsureUser(ctx context.Context, subject, email string) (*models.User, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, errors.New("empty subject")
	}
	email = strings.TrimSpace(email)

	row := models.User{
		Subject:   subject,
		Email:     email,
		Tier:      models.TierFree,
		FreeQuota: s.defaultFreeQuota,
	}
	if errCreate := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "subject"}}, DoNothing: true}).
		Create(&row).Error; errCreate != nil {
		return nil, errCreate
	}

	var user models.User
	if errFind := s.db.WithContext(ctx).Where("subject = ?", subject).First(&user).Error; errFind != nil {
		return nil, errFind
	}

	if email != "" && user.Email != email {
		if errUpdate := s.db.WithContext(ctx).
			Model(&models.User{}).
			Where("id = ?", user.ID).
			Update("email", email).Error; errUpdate != nil {
			return nil, errUpdate
		}
		user.Email = email
	}
	return &user, nil
}

// Decision reports whether a generation may proceed and which allowance
// pays for it.
type Decision struct {
	Allowed       bool
	Source        models.UsageSource
	FreeRemaining int
	CreditBalance int64
}

// CheckEligibility evaluates the fixed priority order: active pro
// subscription, then free quota, then purchased credits.
func (s *Service) CheckEligibility(ctx context.Context, userID uint64) (Decision, error) {
	var user models.User
	if errFind := s.db.WithContext(ctx).First(&user, userID).Error; errFind != nil {
		return Decision{}, errFind
	}
	return decide(&user, time.Now().UTC()), nil
}

// decide applies the priority order to a loaded user row.
func decide(user *models.User, now time.Time) Decision {
	d := Decision{
		FreeRemaining: user.FreeRemaining(),
		CreditBalance: user.CreditBalance,
	}
	switch {
	case proActive(user, now):
		d.Allowed = true
		d.Source = models.SourceProSubscription
	case user.FreeUsed < user.FreeQuota:
		d.Allowed = true
		d.Source = models.SourceFreeQuota
	case user.CreditBalance > 0:
		d.Allowed = true
		d.Source = models.SourcePaidCredit
	}
	return d
}

// proActive reports whether the pro tier currently applies.
func proActive(user *models.User, now time.Time) bool {
	if user.Tier != models.TierPro {
		return false
	}
	if user.ProExpiresAt != nil && user.ProExpiresAt.Before(now) {
		return false
	}
	return true
}

// RecordDraft carries the generation details persisted alongside the debit.
type RecordDraft struct {
	PromptID   int
	PromptText string
	Category   string
	Model      string
	ImageData  string
}

// CommitUsage debits one unit from the given source and appends the
// generation record in the same transaction. The user row is locked for the
// duration, and the debit is a conditional write, so a stale eligibility
// decision cannot overdraw the ledger; it falls through to credits or fails
// with ErrInsufficientEntitlement instead.
func (s *Service) CommitUsage(ctx context.Context, userID uint64, source models.UsageSource, draft RecordDraft) (*models.GenerationRecord, error) {
	var created models.GenerationRecord
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if errFind := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, userID).Error; errFind != nil {
			return errFind
		}

		debited, errDebit := debitOne(tx, &user, source)
		if errDebit != nil {
			return errDebit
		}

		created = models.GenerationRecord{
			ID:         uuid.NewString(),
			UserID:     userID,
			PromptID:   draft.PromptID,
			PromptText: draft.PromptText,
			Category:   draft.Category,
			SourceKind: string(debited),
			Model:      draft.Model,
			ImageData:  draft.ImageData,
			CreatedAt:  time.Now().UTC(),
		}
		if errCreate := tx.Create(&created).Error; errCreate != nil {
			return errCreate
		}
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	return &created, nil
}

// debitOne consumes one unit from the source and returns the allowance that
// actually paid.
func debitOne(tx *gorm.DB, user *models.User, source models.UsageSource) (models.UsageSource, error) {
	now := time.Now().UTC()
	switch source {
	case models.SourceProSubscription:
		if proActive(user, now) {
			return models.SourceProSubscription, nil
		}
		// Tier changed between eligibility check and commit; re-apply the
		// priority order against the locked row.
		if user.FreeUsed < user.FreeQuota {
			return debitFree(tx, user.ID, now)
		}
		return debitCredit(tx, user.ID, now)
	case models.SourceFreeQuota:
		return debitFree(tx, user.ID, now)
	case models.SourcePaidCredit:
		return debitCredit(tx, user.ID, now)
	default:
		return "", fmt.Errorf("unknown usage source %q", source)
	}
}

// debitFree consumes one free-quota unit, falling through to credits when a
// concurrent commit drained the quota first.
func debitFree(tx *gorm.DB, userID uint64, now time.Time) (models.UsageSource, error) {
	res := tx.Model(&models.User{}).
		Where("id = ? AND free_used < free_quota", userID).
		Updates(map[string]any{
			"free_used":  gorm.Expr("free_used + ?", 1),
			"updated_at": now,
		})
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected > 0 {
		return models.SourceFreeQuota, nil
	}
	return debitCredit(tx, userID, now)
}

// debitCredit consumes one purchased credit. The balance guard lives in the
// WHERE clause, so the stored balance can never go negative.
func debitCredit(tx *gorm.DB, userID uint64, now time.Time) (models.UsageSource, error) {
	res := tx.Model(&models.User{}).
		Where("id = ? AND credit_balance > 0", userID).
		Updates(map[string]any{
			"credit_balance": gorm.Expr("credit_balance - ?", 1),
			"updated_at":     now,
		})
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected == 0 {
		return "", ErrInsufficientEntitlement
	}
	return models.SourcePaidCredit, nil
}

// ApplyPaymentCredit grants a purchased package inside the caller's
// transaction. Unlimited packages switch the tier to pro; fixed-credit
// packages top up the balance. Idempotency is the caller's responsibility.
func (s *Service) ApplyPaymentCredit(tx *gorm.DB, userID uint64, pkg catalog.Package) error {
	now := time.Now().UTC()
	if pkg.Unlimited {
		updates := map[string]any{
			"tier":           models.TierPro,
			"pro_package_id": pkg.ID,
			"updated_at":     now,
		}
		if pkg.Interval != "" {
			updates["pro_expires_at"] = addInterval(now, pkg.Interval)
		}
		res := tx.Model(&models.User{}).Where("id = ?", userID).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	}

	res := tx.Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"credit_balance": gorm.Expr("credit_balance + ?", pkg.Credits),
			"updated_at":     now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// addInterval advances now by one billing interval.
func addInterval(now time.Time, interval string) time.Time {
	if interval == "year" {
		return now.AddDate(1, 0, 0)
	}
	return now.AddDate(0, 1, 0)
}

// RevokePro drops the user identified by a payment-provider customer back
// to the free tier. Purchased credits are untouched.
func (s *Service) RevokePro(ctx context.Context, stripeCustomerID string) error {
	stripeCustomerID = strings.TrimSpace(stripeCustomerID)
	if stripeCustomerID == "" {
		return errors.New("empty customer id")
	}
	res := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("stripe_customer_id = ?", stripeCustomerID).
		Updates(map[string]any{
			"tier":           models.TierFree,
			"pro_package_id": "",
			"pro_expires_at": nil,
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AdjustCredits applies a manual credit adjustment under a row lock.
// Adjustments that would drive the balance negative fail with
// ErrNegativeBalance.
func (s *Service) AdjustCredits(ctx context.Context, userID uint64, delta int64) (*models.User, error) {
	var user models.User
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errFind := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, userID).Error; errFind != nil {
			return errFind
		}
		if user.CreditBalance+delta < 0 {
			return ErrNegativeBalance
		}
		res := tx.Model(&models.User{}).
			Where("id = ?", userID).
			Updates(map[string]any{
				"credit_balance": gorm.Expr("credit_balance + ?", delta),
				"updated_at":     time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		user.CreditBalance += delta
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	return &user, nil
}

// ProfileView is the entitlement snapshot returned to the app.
type ProfileView struct {
	User             *models.User
	Decision         Decision
	TotalGenerations int64
	LastGeneratedAt  *time.Time
}

// Profile loads the ledger row plus generation stats for the profile endpoint.
func (s *Service) Profile(ctx context.Context, userID uint64) (*ProfileView, error) {
	var user models.User
	if errFind := s.db.WithContext(ctx).First(&user, userID).Error; errFind != nil {
		return nil, errFind
	}

	var total int64
	if errCount := s.db.WithContext(ctx).
		Model(&models.GenerationRecord{}).
		Where("user_id = ?", userID).
		Count(&total).Error; errCount != nil {
		return nil, errCount
	}

	view := &ProfileView{
		User:             &user,
		Decision:         decide(&user, time.Now().UTC()),
		TotalGenerations: total,
	}
	if total > 0 {
		var last models.GenerationRecord
		if errLast := s.db.WithContext(ctx).
			Select("created_at").
			Where("user_id = ?", userID).
			Order("created_at DESC").
			Take(&last).Error; errLast == nil {
			at := last.CreatedAt
			view.LastGeneratedAt = &at
		}
	}
	return view, nil
}
