// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the anonymous student identity cookie. Every request
// that arrives without a valid identity cookie is answered with a fresh one;
// only a cookie the client actually sent back identifies the viewer of the
// current request.
package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/suggestion-box/internal/domain"
)

// ctxKeyStudentID is the Gin context key under which the verified student id
// is stored.
const ctxKeyStudentID = "studentID"

// IdentityIssuer mints and verifies student identity cookie values.
// *identity.Issuer satisfies it.
type IdentityIssuer interface {
	Issue() (value string, id domain.ClientAssertedID)
	Verify(value string) (domain.ClientAssertedID, bool)
}

// IdentityOptions configures StudentIdentity.
type IdentityOptions struct {
	CookieName string        // defaults to "studentId"
	MaxAge     time.Duration // defaults to one year
}

// StudentIdentity reads the identity cookie, stores the verified id in the
// context (see StudentFrom) and issues a new cookie when the request carried
// none or an invalid one.
//
// The cookie is readable from JavaScript (not HttpOnly), SameSite=Lax, and
// Secure only when the request came over TLS.
func StudentIdentity(iss IdentityIssuer, opts IdentityOptions) gin.HandlerFunc {
	name := opts.CookieName
	if name == "" {
		name = "studentId"
	}
	maxAge := opts.MaxAge
	if maxAge <= 0 {
		maxAge = 365 * 24 * time.Hour
	}

	return func(c *gin.Context) {
		if raw, err := c.Cookie(name); err == nil {
			if id, ok := iss.Verify(raw); ok {
				c.Set(ctxKeyStudentID, id)
				c.Next()
				return
			}
		}

		value, _ := iss.Issue()
		studentIDsIssued.Inc()
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(name, value, int(maxAge/time.Second), "/", "", c.Request.TLS != nil, false)
		c.Next()
	}
}

// StudentFrom returns the student id the client presented on this request.
// It is empty when the request carried no valid identity cookie.
func StudentFrom(c *gin.Context) domain.ClientAssertedID {
	if v, ok := c.Get(ctxKeyStudentID); ok {
		if id, ok := v.(domain.ClientAssertedID); ok {
			return id
		}
	}
	return ""
}
