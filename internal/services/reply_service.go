// Package services – ReplyService
//
// This file implements ReplyService: the append-only, admin-only reply log
// attached to each suggestion. Threads are read oldest first, the opposite of
// the newest-first suggestion feed.
package services

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/suggestion-box/internal/domain"
	"github.com/tbourn/suggestion-box/internal/repo"
)

// ReplyService implements listing and adding replies.
type ReplyService struct {
	DB   *gorm.DB
	Gate *AdminGate

	// AcquireTimeout bounds the wait for a pooled connection (<= 0: no bound).
	AcquireTimeout time.Duration
}

func (s *ReplyService) tracer() trace.Tracer { return otel.Tracer("services/ReplyService") }

// List returns the replies of suggestionID, oldest first. A suggestion with
// no replies (or an id that matches nothing) yields an empty slice.
func (s *ReplyService) List(ctx context.Context, suggestionID uint) ([]domain.ReplyView, error) {
	ctx, span := s.tracer().Start(ctx, "List",
		trace.WithAttributes(attribute.Int64("suggestion.id", int64(suggestionID))),
	)
	defer span.End()

	var out []domain.ReplyView
	err := repo.WithConn(ctx, s.DB, s.AcquireTimeout, func(tx *gorm.DB) error {
		var err error
		out, err = repo.ListReplies(ctx, tx, suggestionID)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, translate("list replies", err, nil, nil)
	}
	return out, nil
}

// Add appends a reply after passing the admin gate. Content is stored
// trimmed.
//
// Errors, in check order:
//   - ErrAdminForbidden for a missing or wrong credential.
//   - ErrReplyFieldsRequired when suggestionID is 0 or content is blank.
//   - ErrUnknownSuggestion when the suggestion does not exist.
func (s *ReplyService) Add(ctx context.Context, credential string, suggestionID uint, content string) error {
	ctx, span := s.tracer().Start(ctx, "Add",
		trace.WithAttributes(attribute.Int64("suggestion.id", int64(suggestionID))),
	)
	defer span.End()

	if err := s.Gate.Check(credential); err != nil {
		return err
	}
	content = cleanText(content)
	if suggestionID == 0 || content == "" {
		return ErrReplyFieldsRequired
	}

	err := repo.WithConn(ctx, s.DB, s.AcquireTimeout, func(tx *gorm.DB) error {
		_, err := repo.CreateReply(ctx, tx, suggestionID, content)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return translate("add reply", err, nil, ErrUnknownSuggestion)
	}
	repliesCreated.Inc()
	return nil
}

// Stats returns the reply count and latest reply time for suggestionID, used
// to build a weak ETag for polling clients.
func (s *ReplyService) Stats(ctx context.Context, suggestionID uint) (count int64, last *time.Time, err error) {
	err = repo.WithConn(ctx, s.DB, s.AcquireTimeout, func(tx *gorm.DB) error {
		var err error
		count, last, err = repo.RepliesStats(ctx, tx, suggestionID)
		return err
	})
	if err != nil {
		return 0, nil, translate("reply stats", err, nil, nil)
	}
	return count, last, nil
}
