// Package handlers provides HTTP handler implementations for the public API.
//
// Handlers are transport-thin: they decode input, pick the viewer identity
// from the request context, call application services, and translate results
// into HTTP responses (including conditional responses).
package handlers

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/suggestion-box/internal/domain"
	"github.com/tbourn/suggestion-box/internal/services"
	"github.com/tbourn/suggestion-box/internal/utils"
)

// HeaderAdminKey carries the admin secret on admin-only writes.
const HeaderAdminKey = "X-Admin-Key"

//
// Service contracts (context-aware)
//

// SuggestionService defines the suggestion feed and creation operations.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type SuggestionService interface {
	// List returns the feed, newest first, annotated for viewer.
	List(ctx context.Context, viewer domain.ClientAssertedID) ([]domain.SuggestionView, error)
	// CreateOnce persists a suggestion, deduplicating on key when non-empty.
	CreateOnce(ctx context.Context, viewer domain.ClientAssertedID, key string, in services.CreateSuggestionInput) (bool, error)
	// Categories lists the categories a suggestion may reference.
	Categories(ctx context.Context) ([]domain.Category, error)
}

// VoteService defines the one-vote-per-student operations.
type VoteService interface {
	Add(ctx context.Context, suggestionID uint, student domain.ClientAssertedID) error
	Remove(ctx context.Context, suggestionID uint, student domain.ClientAssertedID) error
}

// ReplyService defines the admin reply log operations.
type ReplyService interface {
	List(ctx context.Context, suggestionID uint) ([]domain.ReplyView, error)
	Add(ctx context.Context, credential string, suggestionID uint, content string) error
	// Stats feeds the weak ETag of a reply thread.
	Stats(ctx context.Context, suggestionID uint) (int64, *time.Time, error)
}

// AdminService exchanges admin credentials for the admin secret.
type AdminService interface {
	Login(id, passphrase string) (string, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for suggestions, votes, replies and admin
// login. It depends on abstract service interfaces to keep transport concerns
// separate from business logic.
type Handlers struct {
	suggestions SuggestionService
	votes       VoteService
	replies     ReplyService
	admin       AdminService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(suggestions SuggestionService, votes VoteService, replies ReplyService, admin AdminService) *Handlers {
	return &Handlers{suggestions: suggestions, votes: votes, replies: replies, admin: admin}
}

//
// Input decoding
//

var errBadID = errors.New("id must be a positive integer")

// FlexID is an identifier that decodes from a JSON number, a numeric JSON
// string, or a form value. Absent, null and empty values decode to 0, which
// the services report as a missing field.
type FlexID uint

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexID) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*f = 0
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = unq
	}
	return f.UnmarshalParam(s)
}

// UnmarshalParam implements gin's binding.BindUnmarshaler for form values.
func (f *FlexID) UnmarshalParam(s string) error {
	if strings.TrimSpace(s) == "" {
		*f = 0
		return nil
	}
	id, ok := utils.ParseID(s)
	if !ok {
		return errBadID
	}
	*f = FlexID(id)
	return nil
}

// bind decodes the body according to its Content-Type (JSON or form). An
// empty body is not an error: it yields the zero request, so missing fields
// are reported by the service with its own message.
func bind(c *gin.Context, dst any) error {
	if err := c.ShouldBind(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
