package models

import (
	"encoding/json"
	"time"
)

// Setting stores one runtime configuration value as JSON.
type Setting struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Key   string          `gorm:"type:text;not null;uniqueIndex"` // Setting key.
	Value json.RawMessage `gorm:"type:jsonb;not null"`            // JSON value payload.

	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
