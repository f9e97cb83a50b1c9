// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Vote model.
//
// Error semantics:
//   - A duplicate vote (same suggestion_id, student_id) relies on the
//     database unique index and is returned as the raw DB error. There is no
//     read-before-write: the index is what makes concurrent inserts safe.
//   - Deleting reports the number of affected rows; zero means there was no
//     vote to remove.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/suggestion-box/internal/domain"
)

// CreateVote inserts a vote for the given suggestion and student.
func CreateVote(ctx context.Context, db *gorm.DB, suggestionID uint, studentID domain.ClientAssertedID) error {
	v := &domain.Vote{
		ID:           uuid.NewString(),
		SuggestionID: suggestionID,
		StudentID:    string(studentID),
		CreatedAt:    time.Now().UTC(),
	}
	return db.WithContext(ctx).Create(v).Error
}

// DeleteVote removes the vote for the given pair and returns how many rows
// were deleted (0 or 1).
func DeleteVote(ctx context.Context, db *gorm.DB, suggestionID uint, studentID domain.ClientAssertedID) (int64, error) {
	res := db.WithContext(ctx).
		Where("suggestion_id = ? AND student_id = ?", suggestionID, string(studentID)).
		Delete(&domain.Vote{})
	return res.RowsAffected, res.Error
}

// CountVotes returns the number of votes on a suggestion.
func CountVotes(ctx context.Context, db *gorm.DB, suggestionID uint) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Vote{}).Where("suggestion_id = ?", suggestionID).Count(&n).Error
	return n, err
}
