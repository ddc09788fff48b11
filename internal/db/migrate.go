package db

import (
	"fmt"  // Error wrapping
	"time" // UTC clock for gorm

	"notes_marketplace/internal/config" // Configuration
	"notes_marketplace/internal/domain" // Importing domain models

	"github.com/sirupsen/logrus" // Logging
	"gorm.io/driver/mysql"       // MySQL driver for GORM
	"gorm.io/driver/postgres"    // Postgres driver for GORM
	"gorm.io/gorm"               // GORM ORM library
	"gorm.io/gorm/logger"        // GORM log levels
)

// Models lists every table owned by the service, in migration order
func Models() []any {
	return []any{
		&domain.User{},
		&domain.Note{},
		&domain.Review{},
		&domain.Like{},
		&domain.Sale{},
		&domain.Purchase{},
		&domain.Withdrawal{},
		&domain.Notification{},
	}
}

// GormConfig is shared by every connection so timestamps are always written in UTC
func GormConfig(isProd bool) *gorm.Config {
	level := logger.Info // Verbose SQL in development
	if isProd {
		level = logger.Warn // Only slow queries and errors in production
	}
	return &gorm.Config{
		NowFunc:        func() time.Time { return time.Now().UTC() }, // Store UTC
		TranslateError: true,                                         // Surface gorm.ErrDuplicatedKey on unique violations
		Logger:         logger.Default.LogMode(level),
	}
}

// Open connects to the configured database driver
func Open(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN())
	default:
		dialector = mysql.Open(cfg.DSN())
	}
	conn, err := gorm.Open(dialector, GormConfig(cfg.IsProd))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DBDriver, err)
	}
	return conn, nil
}

// Migrate performs automatic migration for the database schema
func Migrate(conn *gorm.DB) error {
	// AutoMigrate will create tables, missing foreign keys, constraints, columns and indexes
	if err := conn.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logrus.Info("Migration completed.") // Log successful migration
	return nil
}

// PromoteAdmin gives the admin role to the user with the given email
func PromoteAdmin(conn *gorm.DB, email string) error {
	var user domain.User
	if err := conn.Where("email = ?", email).First(&user).Error; err != nil {
		return fmt.Errorf("promote %s: %w", email, err)
	}
	if err := conn.Model(&user).Update("role", domain.RoleAdmin).Error; err != nil {
		return fmt.Errorf("promote %s: %w", email, err)
	}
	logrus.WithFields(logrus.Fields{"email": email, "user_id": user.ID}).Info("User promoted to admin")
	return nil
}
