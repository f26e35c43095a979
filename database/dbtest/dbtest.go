// Package dbtest opens throwaway sqlite databases for tests.
package dbtest

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"attendance/config"
	"attendance/database"
	"attendance/models"
)

// Roster is the employee list seeded by Open.
var Roster = []models.Employee{
	{ID: "NTS-001", Name: "Prathamesh Shinde", ShiftWindow: "10:00 AM - 7:00 PM"},
	{ID: "NTS-003", Name: "Payal Nalavade", ShiftWindow: "9:00 AM - 6:00 PM"},
}

// Open returns a migrated local database in the test's temp dir with the
// default admin and Roster seeded. It is also installed as database.DB.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Driver:   "sqlite",
		DSN:      filepath.Join(t.TempDir(), "local.db"),
		LogLevel: "silent",
	}
	if err := database.Init(cfg, Roster, zap.NewNop()); err != nil {
		t.Fatalf("init test database: %v", err)
	}
	db := database.GetDB()
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// OpenRemote returns an empty sqlite database for the remote log.
func OpenRemote(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := database.Open(&config.DatabaseConfig{
		Driver:   "sqlite",
		DSN:      filepath.Join(t.TempDir(), "remote.db"),
		LogLevel: "silent",
	})
	if err != nil {
		t.Fatalf("open remote test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// CreateUser adds an account that has already changed its password.
func CreateUser(t testing.TB, db *gorm.DB, username, password string, role models.Role) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	user := &models.User{
		Username:     username,
		FullName:     username,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	// MustChangePassword defaults to true on insert.
	if err := db.Model(user).Update("must_change_password", false).Error; err != nil {
		t.Fatal(err)
	}
	return user
}
