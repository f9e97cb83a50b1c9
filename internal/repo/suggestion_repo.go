// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for suggestions
// and the aggregated suggestion feed.
//
// The repository follows a "thin" approach: it performs persistence and
// query composition, leaving validation and error translation to the
// services package.
package repo

import (
	"context"
	"database/sql"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/suggestion-box/internal/domain"
)

// feedSQL computes the whole feed in one statement so the counts and the
// viewer's voted flag come from the same snapshot.
//
// display_no numbers suggestions by creation order; rows are returned newest
// first.
const feedSQL = `
SELECT
	ROW_NUMBER() OVER (ORDER BY s.id) AS display_no,
	s.id                              AS suggestion_id,
	s.title                           AS title,
	s.content                         AS content,
	s.status                          AS status,
	c.name                            AS category,
	COALESCE(vc.cnt, 0)               AS vote_count,
	COALESCE(rc.cnt, 0)               AS reply_count,
	CASE WHEN @viewer <> '' AND EXISTS (
		SELECT 1 FROM votes v WHERE v.suggestion_id = s.id AND v.student_id = @viewer
	) THEN 1 ELSE 0 END               AS voted,
	s.created_at                      AS created_at
FROM suggestions s
JOIN categories c ON c.id = s.category_id
LEFT JOIN (SELECT suggestion_id, COUNT(*) AS cnt FROM votes GROUP BY suggestion_id) vc ON vc.suggestion_id = s.id
LEFT JOIN (SELECT suggestion_id, COUNT(*) AS cnt FROM replies GROUP BY suggestion_id) rc ON rc.suggestion_id = s.id
ORDER BY s.id DESC`

// CreateSuggestion inserts a suggestion. The store assigns the id and the
// default status. A missing category surfaces as a foreign-key error.
func CreateSuggestion(ctx context.Context, db *gorm.DB, title, content string, categoryID uint) (*domain.Suggestion, error) {
	s := &domain.Suggestion{
		Title:      title,
		Content:    content,
		CategoryID: categoryID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

// ListSuggestionFeed returns every suggestion, newest first, annotated for
// the given viewer. An empty viewer never matches a vote.
func ListSuggestionFeed(ctx context.Context, db *gorm.DB, viewer domain.ClientAssertedID) ([]domain.SuggestionView, error) {
	var out []domain.SuggestionView
	if err := db.WithContext(ctx).Raw(feedSQL, sql.Named("viewer", string(viewer))).Scan(&out).Error; err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.SuggestionView{}
	}
	return out, nil
}
