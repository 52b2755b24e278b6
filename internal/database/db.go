package database

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/justsurfingit/job-board/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the database for the configured driver and runs migrations.
func Connect(driver, dsn string, log *slog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		if dsn == "" {
			dsn = "file:jobboard.db?_pragma=busy_timeout(5000)"
		}
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
		// Jobs without a recruiter profile must still be storable.
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if driver == "sqlite" {
		// sqlite wants a single writer.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
	log.Info("database connection established", "driver", driver)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	log.Info("migrations applied")
	return db, nil
}

// Migrate creates the tables and the partial unique index that backs the
// one-active-application-per-job rule.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Recruiter{},
		&models.Applicant{},
		&models.Job{},
		&models.Application{},
	); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	// Same syntax on postgres and sqlite.
	err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_applications_active_pair
		ON applications (user_id, job_id)
		WHERE status IN ('applied', 'shortlisted')`).Error
	if err != nil {
		return fmt.Errorf("create active pair index: %w", err)
	}
	return nil
}
