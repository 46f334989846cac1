package models

import "time"

// UsageSource identifies which allowance paid for a generation.
type UsageSource string

// UsageSource constants define the debit source of a generation.
const (
	// SourceFreeQuota debits one unit of free quota.
	SourceFreeQuota UsageSource = "free_quota"
	// SourcePaidCredit debits one purchased credit.
	SourcePaidCredit UsageSource = "paid_credit"
	// SourceProSubscription debits nothing; the user is on an unlimited plan.
	SourceProSubscription UsageSource = "pro_subscription"
)

// GenerationRecord stores one accepted generation request. Rows are
// append-only; they are never mutated or re-parented after creation.
type GenerationRecord struct {
	ID string `gorm:"type:text;primaryKey"` // UUID assigned at commit time.

	UserID uint64 `gorm:"not null;index"` // Owning user ID.

	PromptID   int    `gorm:"not null;default:0"`  // Curated prompt ID, 0 for free-form prompts.
	PromptText string `gorm:"type:text;not null"`  // Prompt sent to the provider.
	Category   string `gorm:"type:text"`           // Curated prompt category, if any.
	SourceKind string `gorm:"type:text;not null"`  // Allowance debited (UsageSource value).
	Model      string `gorm:"type:text"`           // Provider model that produced the image.
	ImageData  string `gorm:"type:text"`           // Base64 image payload returned to the client.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Creation timestamp.
}
