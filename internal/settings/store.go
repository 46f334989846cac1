package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/glowlens/glowlens-api/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Store caches settings rows in an atomically swapped snapshot so hot paths
// never touch the database. Refresh after writes or on the poll interval.
type Store struct {
	db       *gorm.DB
	snapshot atomic.Pointer[map[string]json.RawMessage]
}

// NewStore constructs a Store with an empty snapshot.
func NewStore(db *gorm.DB) *Store {
	s := &Store{db: db}
	empty := make(map[string]json.RawMessage)
	s.snapshot.Store(&empty)
	return s
}

// Refresh reloads all settings rows into the snapshot.
func (s *Store) Refresh(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("settings: store not initialized")
	}
	var rows []models.Setting
	if errFind := s.db.WithContext(ctx).Find(&rows).Error; errFind != nil {
		return fmt.Errorf("settings: load: %w", errFind)
	}
	next := make(map[string]json.RawMessage, len(rows))
	for _, row := range rows {
		if row.Key == "" {
			continue
		}
		next[row.Key] = row.Value
	}
	s.snapshot.Store(&next)
	return nil
}

// Value returns the raw JSON value stored under the key, if present.
func (s *Store) Value(key string) (json.RawMessage, bool) {
	if s == nil {
		return nil, false
	}
	snap := s.snapshot.Load()
	if snap == nil {
		return nil, false
	}
	value, ok := (*snap)[key]
	return value, ok
}

// Run refreshes the snapshot on the interval until the context is cancelled.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if errRefresh := s.Refresh(ctx); errRefresh != nil {
				log.WithError(errRefresh).Warn("settings: refresh failed")
			}
		}
	}
}
