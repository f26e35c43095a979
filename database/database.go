package database

import (
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"attendance/config"
	"attendance/models"
)

// DB is the local database: accounts, roster, day records and leave requests.
var DB *gorm.DB

// Init opens the local database, migrates it and seeds the default admin and
// the roster.
func Init(cfg *config.DatabaseConfig, roster []models.Employee, log *zap.Logger) error {
	db, err := Open(cfg)
	if err != nil {
		return err
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Employee{},
		&models.AttendanceRecord{},
		&models.LeaveRequest{},
	)
	if err != nil {
		return fmt.Errorf("migrate local database: %w", err)
	}

	if err := seedDefaultAdmin(db, log); err != nil {
		return err
	}
	if err := seedRoster(db, roster); err != nil {
		return err
	}

	DB = db
	log.Info("local database ready", zap.String("driver", cfg.Driver))
	return nil
}

// Open connects to the configured driver without migrating anything.
func Open(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel(cfg.LogLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}

	if cfg.Driver == "sqlite" {
		// sqlite allows one writer; a single connection keeps write-through
		// updates from failing with SQLITE_BUSY.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

func GetDB() *gorm.DB {
	return DB
}

func seedDefaultAdmin(db *gorm.DB, log *zap.Logger) error {
	var count int64
	if err := db.Model(&models.User{}).Where("username = ?", "admin").Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := models.User{
		Username:           "admin",
		FullName:           "Administrator",
		PasswordHash:       string(hashedPassword),
		Role:               models.RoleAdmin,
		MustChangePassword: true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	log.Info("default admin user created", zap.String("username", admin.Username))
	return nil
}

// seedRoster upserts the configured employees, keeping their configured order.
func seedRoster(db *gorm.DB, roster []models.Employee) error {
	if len(roster) == 0 {
		return errors.New("roster is empty")
	}
	return db.Transaction(func(tx *gorm.DB) error {
		for i, emp := range roster {
			emp.Position = i
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&emp).Error; err != nil {
				return fmt.Errorf("seed employee %s: %w", emp.ID, err)
			}
		}
		return nil
	})
}

func logLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
