package models

import "time"

// PaymentStatus tracks the local payment lifecycle of a checkout session.
type PaymentStatus string

// PaymentStatus constants define payment lifecycle states.
const (
	// PaymentStatusInitiated marks a freshly created checkout session.
	PaymentStatusInitiated PaymentStatus = "initiated"
	// PaymentStatusPending marks a session the provider reports as open.
	PaymentStatusPending PaymentStatus = "pending"
	// PaymentStatusPaid marks a completed payment. Terminal.
	PaymentStatusPaid PaymentStatus = "paid"
	// PaymentStatusFailed marks a failed payment. Terminal.
	PaymentStatusFailed PaymentStatus = "failed"
	// PaymentStatusExpired marks a session that timed out unpaid. Terminal.
	PaymentStatusExpired PaymentStatus = "expired"
)

// Terminal reports whether the status can never change again. Once a
// transaction reaches a terminal status, reconciliation leaves it untouched;
// that guard is what makes duplicate webhook deliveries harmless.
func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentStatusPaid, PaymentStatusFailed, PaymentStatusExpired:
		return true
	default:
		return false
	}
}

// PaymentTransaction stores one row per checkout session ever created.
// Rows are never deleted.
type PaymentTransaction struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	SessionID string `gorm:"type:text;not null;uniqueIndex"` // Provider-assigned checkout session ID.

	UserID uint64 `gorm:"not null;index"` // Purchasing user ID.

	PackageID   string `gorm:"type:text;not null"`            // Catalog package purchased.
	PackageName string `gorm:"type:text"`                     // Package display name at purchase time.
	AmountCents int64  `gorm:"not null"`                      // Server-side price in minor units.
	Currency    string `gorm:"type:text;not null;default:usd"` // ISO currency code.

	PaymentStatus PaymentStatus `gorm:"type:text;not null;default:initiated"` // Local payment lifecycle state.
	Status        string        `gorm:"type:text"`                            // Provider-level session status.

	ProcessedAt *time.Time // Set exactly once, when the payment is first applied.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
