// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the Idempotency
// model used to implement safe-retry semantics for POST endpoints.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/suggestion-box/internal/domain"
)

// GetIdempotency returns a non-expired record or ErrNotFound.
func GetIdempotency(ctx context.Context, db *gorm.DB, studentID, scope, key string, now time.Time) (*domain.Idempotency, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrNotFound
	}
	var rec domain.Idempotency
	err := db.WithContext(ctx).
		Where("student_id = ? AND scope = ? AND key = ? AND expires_at > ?", studentID, scope, key, now).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateIdempotency inserts a record and returns ErrDuplicate on unique violation.
func CreateIdempotency(ctx context.Context, db *gorm.DB, studentID, scope, key, resourceID string, status int, ttl time.Duration) (*domain.Idempotency, error) {
	now := time.Now().UTC()
	rec := &domain.Idempotency{
		ID:         uuid.NewString(),
		StudentID:  studentID,
		Scope:      scope,
		Key:        key,
		ResourceID: resourceID,
		Status:     status,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if IsUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}

// SetIdempotencyResource records the id of the row a claimed request produced.
func SetIdempotencyResource(ctx context.Context, db *gorm.DB, id, resourceID string) error {
	return db.WithContext(ctx).Model(&domain.Idempotency{}).Where("id = ?", id).Update("resource_id", resourceID).Error
}

// DeleteExpiredIdempotencyKey frees a single key whose claim has expired so it
// can be claimed again.
func DeleteExpiredIdempotencyKey(ctx context.Context, db *gorm.DB, studentID, scope, key string, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("student_id = ? AND scope = ? AND key = ? AND expires_at <= ?", studentID, scope, key, now).
		Delete(&domain.Idempotency{})
	return res.RowsAffected, res.Error
}

// PurgeExpiredIdempotency deletes records whose expiry is at or before now
// and returns how many were removed.
func PurgeExpiredIdempotency(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&domain.Idempotency{})
	return res.RowsAffected, res.Error
}
