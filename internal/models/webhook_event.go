package models

import (
	"time"

	"gorm.io/datatypes"
)

// WebhookEvent records every verified provider webhook delivery. The unique
// event ID keeps redeliveries down to a single audit row; reconciliation
// stays idempotent regardless.
type WebhookEvent struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	EventID   string `gorm:"type:text;not null;uniqueIndex"` // Provider event ID.
	EventType string `gorm:"type:text;not null"`             // Provider event type.
	SessionID string `gorm:"type:text;index"`                // Related checkout session, if any.

	Payload datatypes.JSON `gorm:"type:jsonb"` // Raw event payload.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // First delivery timestamp.
}
