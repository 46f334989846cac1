package settings

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/glowlens/glowlens-api/internal/db"
	"github.com/glowlens/glowlens-api/internal/models"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "glowlens-test.db")
	conn, err := db.Open(dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func TestStoreRefreshLoadsSeededDefaults(t *testing.T) {
	conn := openTestDB(t)
	store := NewStore(conn)

	if _, ok := store.Value(RateLimitKey); ok {
		t.Fatalf("expected empty snapshot before refresh")
	}

	if errRefresh := store.Refresh(context.Background()); errRefresh != nil {
		t.Fatalf("refresh: %v", errRefresh)
	}

	raw, ok := store.Value(RateLimitKey)
	if !ok {
		t.Fatalf("expected %s in snapshot after refresh", RateLimitKey)
	}
	if string(raw) != "0" {
		t.Fatalf("expected seeded rate limit 0, got %s", raw)
	}

	raw, ok = store.Value(RateLimitRedisEnabledKey)
	if !ok {
		t.Fatalf("expected %s in snapshot after refresh", RateLimitRedisEnabledKey)
	}
	if string(raw) != "false" {
		t.Fatalf("expected seeded redis toggle false, got %s", raw)
	}
}

func TestStoreRefreshPicksUpWrites(t *testing.T) {
	conn := openTestDB(t)
	store := NewStore(conn)
	if errRefresh := store.Refresh(context.Background()); errRefresh != nil {
		t.Fatalf("refresh: %v", errRefresh)
	}

	update := conn.Model(&models.Setting{}).
		Where("key = ?", RateLimitKey).
		Update("value", json.RawMessage("12"))
	if update.Error != nil {
		t.Fatalf("update setting: %v", update.Error)
	}

	raw, _ := store.Value(RateLimitKey)
	if string(raw) != "0" {
		t.Fatalf("expected stale snapshot before refresh, got %s", raw)
	}

	if errRefresh := store.Refresh(context.Background()); errRefresh != nil {
		t.Fatalf("refresh after write: %v", errRefresh)
	}
	raw, ok := store.Value(RateLimitKey)
	if !ok {
		t.Fatalf("expected %s in snapshot", RateLimitKey)
	}
	if string(raw) != "12" {
		t.Fatalf("expected refreshed rate limit 12, got %s", raw)
	}
}
