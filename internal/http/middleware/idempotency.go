package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderIdempotencyKey carries a client-chosen key that makes a create safe
// to retry.
const HeaderIdempotencyKey = "Idempotency-Key"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay"
	ctxKeyRateBypass = "rate.bypass"

	defaultIdemMaxLen = 200
)

// GetIdempotencyKey returns the validated key stashed by IdempotencyValidator.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	s := c.GetString(ctxKeyIdemKey)
	return s, s != ""
}

// IsReplay reports whether the (student, scope, key) triple already has a
// stored result.
func IsReplay(c *gin.Context) bool {
	return c.GetBool(ctxKeyIdemReplay)
}

// IdempotencyOptions configures IdempotencyValidator. Expiry is the lookup's
// business; the middleware only passes it the current time.
type IdempotencyOptions struct {
	MaxLen  int            // <= 0 means 200
	Pattern *regexp.Regexp // nil means the key must parse as a UUID
	// Scope names the operation a key belongs to. Requests for which it
	// returns "" are validated but never looked up. If nil, the scope is
	// "<METHOD> <route>".
	Scope func(c *gin.Context) string
}

// IdempotencyLookup reports whether an unexpired record exists for the triple.
// Errors are logged and treated as a miss, so a flaky store never blocks a
// create; the unique index still rejects a true duplicate.
type IdempotencyLookup func(ctx context.Context, studentID, scope, key string, now time.Time) (bool, error)

// IdempotencyValidator checks the Idempotency-Key header when present and
// stashes it for handlers. A malformed key is rejected with 400
// bad_idempotency_key. When lookup finds a stored result the request is
// flagged as a replay and let past the rate limiter; serving the stored
// result is left to the handler.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = defaultIdemMaxLen
	}
	// Keys are only unique per student, and first-time clients share the
	// empty student id, so short hand-picked keys would collide.
	valid := func(key string) bool { _, err := uuid.Parse(key); return err == nil }
	if opts.Pattern != nil {
		valid = opts.Pattern.MatchString
	}
	scopeOf := opts.Scope
	if scopeOf == nil {
		scopeOf = func(c *gin.Context) string { return c.Request.Method + " " + c.FullPath() }
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !valid(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": RequestIDFrom(c),
				"code":       "bad_idempotency_key",
				"message":    "invalid Idempotency-Key",
			})
			return
		}
		c.Set(ctxKeyIdemKey, key)

		scope := scopeOf(c)
		if lookup == nil || scope == "" {
			c.Next()
			return
		}

		found, err := lookup(c.Request.Context(), string(StudentFrom(c)), scope, key, time.Now().UTC())
		switch {
		case err != nil:
			LoggerFrom(c).Warn().Err(err).Str("scope", scope).Msg("idempotency lookup failed")
		case found:
			c.Set(ctxKeyIdemReplay, true)
			c.Set(ctxKeyRateBypass, true)
		}
		c.Next()
	}
}
