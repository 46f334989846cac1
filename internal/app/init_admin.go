package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/glowlens/glowlens-api/internal/config"
	"github.com/glowlens/glowlens-api/internal/models"
	"github.com/glowlens/glowlens-api/internal/security"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// HasAdminInitialized reports whether at least one ops admin account exists.
func HasAdminInitialized(conn *gorm.DB) (bool, error) {
	if conn == nil {
		return false, fmt.Errorf("nil db")
	}
	if !conn.Migrator().HasTable(&models.Admin{}) {
		return false, nil
	}
	var count int64
	if errCount := conn.Model(&models.Admin{}).Count(&count).Error; errCount != nil {
		return false, errCount
	}
	return count > 0, nil
}

// EnsureInitialAdmin seeds the first ops admin from ADMIN_USERNAME and
// ADMIN_PASSWORD when no admin account exists yet. Missing credentials leave
// the ops console without accounts; the public API still serves.
func EnsureInitialAdmin(conn *gorm.DB) error {
	initialized, errInit := HasAdminInitialized(conn)
	if errInit != nil {
		return errInit
	}
	if initialized {
		return nil
	}

	username := strings.TrimSpace(os.Getenv(config.EnvAdminUsername))
	password := os.Getenv(config.EnvAdminPassword)
	if username == "" || password == "" {
		log.Warnf("no ops admin exists; set %s and %s to seed one", config.EnvAdminUsername, config.EnvAdminPassword)
		return nil
	}

	if errCreate := CreateAdminUserWithConn(conn, username, password); errCreate != nil {
		return fmt.Errorf("seed initial admin: %w", errCreate)
	}
	log.Infof("seeded initial ops admin %q", username)
	return nil
}

// CreateAdminUserWithConn creates an ops admin account with a bcrypt password
// hash.
func CreateAdminUserWithConn(conn *gorm.DB, username, password string) error {
	if conn == nil {
		return fmt.Errorf("open database: nil connection")
	}

	hashedPassword, errHash := security.HashPassword(password)
	if errHash != nil {
		return fmt.Errorf("hash password: %w", errHash)
	}

	now := time.Now().UTC()
	admin := models.Admin{
		Username:  username,
		Password:  hashedPassword,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if errCreate := conn.Create(&admin).Error; errCreate != nil {
		return fmt.Errorf("create admin user: %w", errCreate)
	}
	return nil
}
