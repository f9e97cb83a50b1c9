package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/suggestion-box/internal/domain"
)

// ListCategories returns all categories ordered by id.
func ListCategories(ctx context.Context, db *gorm.DB) ([]domain.Category, error) {
	out := []domain.Category{}
	err := db.WithContext(ctx).Order("id ASC").Find(&out).Error
	return out, err
}
