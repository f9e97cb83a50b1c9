package services

import (
	"fmt"
	"path/filepath"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/suggestion-box/internal/domain"
	"github.com/tbourn/suggestion-box/internal/repo"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())

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
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// newFileDB opens a WAL database on disk through the production opener, for
// tests that need real cross-connection locking.
func newFileDB(t *testing.T, pool repo.PoolOptions) *gorm.DB {
	t.Helper()
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "box.db"), pool)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	db.Logger = logger.Default.LogMode(logger.Silent)
	sqlDB, _ := db.DB()
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedCategory(t *testing.T, db *gorm.DB, name string) uint {
	t.Helper()
	c := &domain.Category{Name: name}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("seed category: %v", err)
	}
	return c.ID
}

func seedSuggestion(t *testing.T, db *gorm.DB, categoryID uint) uint {
	t.Helper()
	s := &domain.Suggestion{Title: "t", Content: "c", CategoryID: categoryID}
	if err := db.Create(s).Error; err != nil {
		t.Fatalf("seed suggestion: %v", err)
	}
	return s.ID
}

// failOn registers a GORM callback that aborts every statement of the given
// kind ("create", "query", "delete", "row") with err.
func failOn(t *testing.T, db *gorm.DB, kind string, err error) {
	t.Helper()
	name := "test:fail_" + kind
	hook := func(tx *gorm.DB) { _ = tx.AddError(err) }
	var regErr error
	switch kind {
	case "create":
		regErr = db.Callback().Create().Before("gorm:create").Register(name, hook)
	case "query":
		regErr = db.Callback().Query().Before("gorm:query").Register(name, hook)
	case "delete":
		regErr = db.Callback().Delete().Before("gorm:delete").Register(name, hook)
	case "row":
		regErr = db.Callback().Row().Before("gorm:row").Register(name, hook)
	default:
		t.Fatalf("unknown callback kind %q", kind)
	}
	if regErr != nil {
		t.Fatalf("register callback: %v", regErr)
	}
}

func findView(views []domain.SuggestionView, id uint) (domain.SuggestionView, bool) {
	for _, v := range views {
		if v.SuggestionID == id {
			return v, true
		}
	}
	return domain.SuggestionView{}, false
}
