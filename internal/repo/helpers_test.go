package repo

import (
	"fmt"
	"strings"
	"testing"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/suggestion-box/internal/domain"
)

// newRepoDB opens a per-test in-memory database with foreign keys enforced.
// When migrate is true the full schema is created.
func newRepoDB(t *testing.T, migrate bool) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		t.Cleanup(func() { _ = sqlDB.Close() })
	}
	if migrate {
		if err := AutoMigrate(db); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

// seedCategory inserts a category and returns its id.
func seedCategory(t *testing.T, db *gorm.DB, name string) uint {
	t.Helper()
	c := &domain.Category{Name: name}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("seed category: %v", err)
	}
	return c.ID
}

// seedSuggestion inserts a suggestion in the given category and returns its id.
func seedSuggestion(t *testing.T, db *gorm.DB, categoryID uint, title string) uint {
	t.Helper()
	s := &domain.Suggestion{Title: title, Content: title + " content", CategoryID: categoryID}
	if err := db.Create(s).Error; err != nil {
		t.Fatalf("seed suggestion: %v", err)
	}
	return s.ID
}
