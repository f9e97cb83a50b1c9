// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for
// conditional responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/suggestion-box/internal/domain"
)

// RepliesStats returns the number of replies on a suggestion and the latest
// RepliedAt among them. When there are none, count is 0 and lastRepliedAt is nil.
func RepliesStats(ctx context.Context, db *gorm.DB, suggestionID uint) (count int64, lastRepliedAt *time.Time, err error) {
	if err = db.WithContext(ctx).Model(&domain.Reply{}).
		Where("suggestion_id = ?", suggestionID).
		Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Order+limit instead of MAX(): SQLite returns MAX() over DATETIME as TEXT.
	var row struct {
		RepliedAt time.Time
	}
	if err = db.WithContext(ctx).Model(&domain.Reply{}).
		Select("replied_at").
		Where("suggestion_id = ?", suggestionID).
		Order("replied_at DESC").
		Limit(1).
		Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.RepliedAt, nil
}
