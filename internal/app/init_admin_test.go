package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/glowlens/glowlens-api/internal/config"
	"github.com/glowlens/glowlens-api/internal/db"
	"github.com/glowlens/glowlens-api/internal/models"
	"github.com/glowlens/glowlens-api/internal/security"
)

func TestHasAdminInitialized(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "glowlens-test.db")
	conn, err := db.Open(dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	initialized, err := HasAdminInitialized(conn)
	if err != nil {
		t.Fatalf("HasAdminInitialized: %v", err)
	}
	if initialized {
		t.Fatalf("expected initialized=false before migrate")
	}

	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	initialized, err = HasAdminInitialized(conn)
	if err != nil {
		t.Fatalf("HasAdminInitialized after migrate: %v", err)
	}
	if initialized {
		t.Fatalf("expected initialized=false with empty admins table")
	}

	now := time.Now().UTC()
	admin := models.Admin{
		Username:  "root",
		Password:  "hashed-password",
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if errCreate := conn.Create(&admin).Error; errCreate != nil {
		t.Fatalf("create admin: %v", errCreate)
	}

	initialized, err = HasAdminInitialized(conn)
	if err != nil {
		t.Fatalf("HasAdminInitialized after seed: %v", err)
	}
	if !initialized {
		t.Fatalf("expected initialized=true after admin created")
	}
}

func TestEnsureInitialAdminSeedsFromEnv(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "glowlens-test.db")
	conn, err := db.Open(dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	t.Setenv(config.EnvAdminUsername, "root")
	t.Setenv(config.EnvAdminPassword, "opspass123")

	if errSeed := EnsureInitialAdmin(conn); errSeed != nil {
		t.Fatalf("EnsureInitialAdmin: %v", errSeed)
	}

	var admin models.Admin
	if errFind := conn.First(&admin).Error; errFind != nil {
		t.Fatalf("find admin: %v", errFind)
	}
	if admin.Username != "root" {
		t.Fatalf("expected username root, got %q", admin.Username)
	}
	if !admin.Active {
		t.Fatalf("expected seeded admin to be active")
	}
	if admin.Password == "opspass123" {
		t.Fatalf("expected password to be hashed")
	}
	if !security.CheckPassword(admin.Password, "opspass123") {
		t.Fatalf("expected hash to verify against the seeded password")
	}
}

func TestEnsureInitialAdminSkipsWhenAdminExists(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "glowlens-test.db")
	conn, err := db.Open(dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	if errCreate := CreateAdminUserWithConn(conn, "existing", "firstpass"); errCreate != nil {
		t.Fatalf("CreateAdminUserWithConn: %v", errCreate)
	}

	t.Setenv(config.EnvAdminUsername, "root")
	t.Setenv(config.EnvAdminPassword, "opspass123")

	if errSeed := EnsureInitialAdmin(conn); errSeed != nil {
		t.Fatalf("EnsureInitialAdmin: %v", errSeed)
	}

	var count int64
	if errCount := conn.Model(&models.Admin{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count admins: %v", errCount)
	}
	if count != 1 {
		t.Fatalf("expected 1 admin, got %d", count)
	}

	var admin models.Admin
	if errFind := conn.First(&admin).Error; errFind != nil {
		t.Fatalf("find admin: %v", errFind)
	}
	if admin.Username != "existing" {
		t.Fatalf("expected existing admin untouched, got %q", admin.Username)
	}
}

func TestEnsureInitialAdminMissingEnv(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "glowlens-test.db")
	conn, err := db.Open(dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	t.Setenv(config.EnvAdminUsername, "")
	t.Setenv(config.EnvAdminPassword, "")

	if errSeed := EnsureInitialAdmin(conn); errSeed != nil {
		t.Fatalf("EnsureInitialAdmin without env: %v", errSeed)
	}

	var count int64
	if errCount := conn.Model(&models.Admin{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count admins: %v", errCount)
	}
	if count != 0 {
		t.Fatalf("expected no admin seeded, got %d", count)
	}
}
