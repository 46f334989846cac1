package models

import "time"

// Tier identifies the entitlement tier of a user.
type Tier string

// Tier constants define entitlement tiers.
const (
	// TierFree limits the user to free quota plus purchased credits.
	TierFree Tier = "free"
	// TierPro grants unlimited generations via subscription.
	TierPro Tier = "pro"
)

// User stores one entitlement ledger row per identity-provider subject.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Subject string `gorm:"type:text;not null;uniqueIndex"` // Immutable identity-provider subject.
	Email   string `gorm:"type:text"`                      // Email reported by the identity token.

	Tier Tier `gorm:"type:text;not null;default:free"` // Current entitlement tier.

	FreeQuota     int   `gorm:"not null;default:5"` // Total free generations ever granted.
	FreeUsed      int   `gorm:"not null;default:0"` // Free generations consumed so far.
	CreditBalance int64 `gorm:"not null;default:0"` // Purchased generations remaining.

	StripeCustomerID string     `gorm:"type:text;index"` // Lazily created payment-provider customer.
	ProPackageID     string     `gorm:"type:text"`       // Package that granted the pro tier.
	ProExpiresAt     *time.Time // Subscription period end, when known.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// FreeRemaining returns the free generations the user can still consume.
func (u *User) FreeRemaining() int {
	remaining := u.FreeQuota - u.FreeUsed
	if remaining < 0 {
		return 0
	}
	return remaining
}
