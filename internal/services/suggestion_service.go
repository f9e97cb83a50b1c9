// Package services – SuggestionService
//
// This file implements SuggestionService, which owns the suggestion feed and
// suggestion creation. The feed is a single aggregated read so vote counts,
// reply counts and the viewer's voted flag are mutually consistent. Creation
// validates input, persists with the store's default status, and optionally
// deduplicates retries through an Idempotency-Key in the same transaction.
//
// Observability: public methods are OpenTelemetry-instrumented.
package services

import (
	"context"
	"errors"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/suggestion-box/internal/domain"
	"github.com/tbourn/suggestion-box/internal/repo"
)

// ScopeCreateSuggestion is the idempotency scope of POST /suggestions.
const ScopeCreateSuggestion = "suggestions.create"

// MaxTitleRunes is the width of the suggestions.title column.
const MaxTitleRunes = 200

// errReplay rolls back a create whose idempotency key is already claimed.
var errReplay = errors.New("idempotent replay")

// CreateSuggestionInput carries the fields of a new suggestion.
type CreateSuggestionInput struct {
	Title      string
	Content    string
	CategoryID uint
}

// SuggestionService implements the suggestion use-cases.
type SuggestionService struct {
	DB *gorm.DB

	// AcquireTimeout bounds the wait for a pooled connection (<= 0: no bound).
	AcquireTimeout time.Duration

	// IdempotencyTTL is how long an Idempotency-Key stays claimed.
	IdempotencyTTL time.Duration
}

func (s *SuggestionService) tracer() trace.Tracer { return otel.Tracer("services/SuggestionService") }

// List returns the feed, newest first, annotated for viewer.
func (s *SuggestionService) List(ctx context.Context, viewer domain.ClientAssertedID) ([]domain.SuggestionView, error) {
	ctx, span := s.tracer().Start(ctx, "List",
		trace.WithAttributes(attribute.Bool("viewer.present", !viewer.Empty())),
	)
	defer span.End()

	var out []domain.SuggestionView
	err := repo.WithConn(ctx, s.DB, s.AcquireTimeout, func(tx *gorm.DB) error {
		var err error
		out, err = repo.ListSuggestionFeed(ctx, tx, viewer)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, translate("list suggestions", err, nil, nil)
	}
	span.SetAttributes(attribute.Int("suggestions.count", len(out)))
	return out, nil
}

// Create validates and persists a suggestion. Only success is reported; the
// created row is not returned.
func (s *SuggestionService) Create(ctx context.Context, in CreateSuggestionInput) error {
	ctx, span := s.tracer().Start(ctx, "Create",
		trace.WithAttributes(attribute.Int64("category.id", int64(in.CategoryID))),
	)
	defer span.End()

	in, err := validateSuggestion(in)
	if err != nil {
		return err
	}

	err = repo.WithConn(ctx, s.DB, s.AcquireTimeout, func(tx *gorm.DB) error {
		_, err := repo.CreateSuggestion(ctx, tx, in.Title, in.Content, in.CategoryID)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return translate("create suggestion", err, nil, ErrUnknownCategory)
	}
	suggestionsCreated.Inc()
	return nil
}

// CreateOnce behaves like Create but claims key for viewer first. The
// suggestion and the idempotency record are written in one transaction; when
// the key is already claimed nothing is written and replayed is true.
// An empty key falls back to Create; any other key must be a UUID.
func (s *SuggestionService) CreateOnce(ctx context.Context, viewer domain.ClientAssertedID, key string, in CreateSuggestionInput) (replayed bool, err error) {
	if key == "" {
		return false, s.Create(ctx, in)
	}
	// Keys are scoped per student and every first-time client is the empty
	// student, so only unguessable keys keep their requests apart.
	if _, err := uuid.Parse(key); err != nil {
		return false, ErrBadIdempotencyKey
	}

	ctx, span := s.tracer().Start(ctx, "CreateOnce",
		trace.WithAttributes(attribute.Int64("category.id", int64(in.CategoryID))),
	)
	defer span.End()

	in, err = validateSuggestion(in)
	if err != nil {
		return false, err
	}

	// Every statement in the transaction is a write, starting with the claim,
	// so SQLite takes the write lock up front and concurrent claims queue on
	// the busy timeout.
	err = repo.WithConn(ctx, s.DB, s.AcquireTimeout, func(conn *gorm.DB) error {
		return conn.Transaction(func(tx *gorm.DB) error {
			now := time.Now().UTC()
			if _, err := repo.DeleteExpiredIdempotencyKey(ctx, tx, string(viewer), ScopeCreateSuggestion, key, now); err != nil {
				return err
			}
			claim, err := repo.CreateIdempotency(ctx, tx, string(viewer), ScopeCreateSuggestion, key, "", 201, s.ttl())
			if errors.Is(err, repo.ErrDuplicate) {
				return errReplay
			}
			if err != nil {
				return err
			}

			created, err := repo.CreateSuggestion(ctx, tx, in.Title, in.Content, in.CategoryID)
			if err != nil {
				return err
			}
			return repo.SetIdempotencyResource(ctx, tx, claim.ID, strconv.FormatUint(uint64(created.ID), 10))
		})
	})
	switch {
	case errors.Is(err, errReplay):
		span.SetAttributes(attribute.Bool("idempotency.replay", true))
		return true, nil
	case err != nil:
		span.RecordError(err)
		return false, translate("create suggestion", err, nil, ErrUnknownCategory)
	}
	suggestionsCreated.Inc()
	return false, nil
}

// Categories lists the categories a suggestion may reference.
func (s *SuggestionService) Categories(ctx context.Context) ([]domain.Category, error) {
	ctx, span := s.tracer().Start(ctx, "Categories")
	defer span.End()

	var out []domain.Category
	err := repo.WithConn(ctx, s.DB, s.AcquireTimeout, func(tx *gorm.DB) error {
		var err error
		out, err = repo.ListCategories(ctx, tx)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, translate("list categories", err, nil, nil)
	}
	return out, nil
}

func (s *SuggestionService) ttl() time.Duration {
	if s.IdempotencyTTL > 0 {
		return s.IdempotencyTTL
	}
	return 24 * time.Hour
}

func validateSuggestion(in CreateSuggestionInput) (CreateSuggestionInput, error) {
	in.Title = cleanText(in.Title)
	in.Content = cleanText(in.Content)
	if in.Title == "" || in.Content == "" || in.CategoryID == 0 {
		return in, ErrSuggestionFieldsRequired
	}
	if utf8.RuneCountInString(in.Title) > MaxTitleRunes {
		return in, ErrSuggestionTooLong
	}
	return in, nil
}
