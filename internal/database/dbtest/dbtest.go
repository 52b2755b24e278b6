// Package dbtest opens throwaway in-memory databases for tests.
package dbtest

import (
	"testing"

	"github.com/justsurfingit/job-board/internal/database"
	"github.com/justsurfingit/job-board/internal/logging"
	"gorm.io/gorm"
)

// New returns a migrated in-memory sqlite database closed at test cleanup.
func New(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := database.Connect("sqlite", ":memory:", logging.Discard())
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
