package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/suggestion-box/internal/domain"
)

// CreateReply appends a reply to a suggestion. RepliedAt is assigned here in
// UTC; a missing suggestion surfaces as a foreign-key error.
func CreateReply(ctx context.Context, db *gorm.DB, suggestionID uint, content string) (*domain.Reply, error) {
	r := &domain.Reply{
		ID:           uuid.NewString(),
		SuggestionID: suggestionID,
		Content:      content,
		RepliedAt:    time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(r).Error; err != nil {
		return nil, err
	}
	return r, nil
}

// ListReplies returns the thread for a suggestion, oldest first. Ties on
// replied_at are broken by id so the order is stable. The result is never nil.
func ListReplies(ctx context.Context, db *gorm.DB, suggestionID uint) ([]domain.ReplyView, error) {
	var out []domain.ReplyView
	err := db.WithContext(ctx).
		Model(&domain.Reply{}).
		Select("id AS reply_id, suggestion_id, content, replied_at").
		Where("suggestion_id = ?", suggestionID).
		Order("replied_at ASC, id ASC").
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.ReplyView{}
	}
	return out, nil
}
