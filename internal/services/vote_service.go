// Package services – VoteService
//
// This file implements VoteService, which enforces one vote per student per
// suggestion. Uniqueness is guaranteed by the store's unique index and not by
// a read-then-write check, so concurrent duplicate requests (a double click)
// resolve to exactly one success and one ErrAlreadyVoted.
//
// The student identifier is a domain.ClientAssertedID: an unverified token the
// browser presents. The one-vote guarantee holds only as far as that token is
// not forged or reset.
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

// VoteService implements adding and removing votes.
type VoteService struct {
	DB *gorm.DB

	// AcquireTimeout bounds the wait for a pooled connection (<= 0: no bound).
	AcquireTimeout time.Duration
}

func (s *VoteService) tracer() trace.Tracer { return otel.Tracer("services/VoteService") }

// Add records a vote by student on suggestionID.
//
// Errors:
//   - ErrVoteFieldsRequired when either argument is absent.
//   - ErrAlreadyVoted when the pair already has a vote.
//   - ErrUnknownSuggestion when the suggestion does not exist.
//   - ErrStoreBusy when no connection was available in time.
func (s *VoteService) Add(ctx context.Context, suggestionID uint, student domain.ClientAssertedID) (err error) {
	ctx, span := s.tracer().Start(ctx, "Add",
		trace.WithAttributes(attribute.Int64("suggestion.id", int64(suggestionID))),
	)
	defer span.End()
	defer func() { votesTotal.WithLabelValues("add", voteResult(err)).Inc() }()

	if suggestionID == 0 || student.Empty() {
		return ErrVoteFieldsRequired
	}

	err = repo.WithConn(ctx, s.DB, s.AcquireTimeout, func(tx *gorm.DB) error {
		return repo.CreateVote(ctx, tx, suggestionID, student)
	})
	if err != nil {
		span.RecordError(err)
		return translate("add vote", err, ErrAlreadyVoted, ErrUnknownSuggestion)
	}
	return nil
}

// Remove withdraws the vote by student on suggestionID. Removing a vote that
// does not exist is an error (ErrVoteNotFound), not a silent success.
func (s *VoteService) Remove(ctx context.Context, suggestionID uint, student domain.ClientAssertedID) (err error) {
	ctx, span := s.tracer().Start(ctx, "Remove",
		trace.WithAttributes(attribute.Int64("suggestion.id", int64(suggestionID))),
	)
	defer span.End()
	defer func() { votesTotal.WithLabelValues("remove", voteResult(err)).Inc() }()

	if suggestionID == 0 || student.Empty() {
		return ErrVoteFieldsRequired
	}

	var affected int64
	err = repo.WithConn(ctx, s.DB, s.AcquireTimeout, func(tx *gorm.DB) error {
		var err error
		affected, err = repo.DeleteVote(ctx, tx, suggestionID, student)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return translate("remove vote", err, nil, nil)
	}
	if affected == 0 {
		return ErrVoteNotFound
	}
	return nil
}
