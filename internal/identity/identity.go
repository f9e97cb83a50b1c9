// Package identity issues and checks the anonymous per-browser student
// identifier carried in the identity cookie.
//
// The identifier only scopes vote-once semantics; it is not authentication.
// Two policies are supported:
//
//   - trust:  the cookie value is a random UUID and is accepted as-is. Anyone
//     can forge or reset it.
//   - signed: the cookie value is "<uuid>.<mac>" where mac is an HMAC-SHA256
//     of the uuid under a server secret. Values that fail verification are
//     treated as absent, so a client cannot pick another student's id, though
//     it can still discard its cookie and start over.
package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/tbourn/suggestion-box/internal/domain"
)

// Policy selects how cookie values are issued and verified.
type Policy string

// Supported policies.
const (
	PolicyTrust  Policy = "trust"
	PolicySigned Policy = "signed"
)

// MaxLen is the longest identifier accepted under PolicyTrust. It matches the
// width of votes.student_id.
const MaxLen = 128

// ErrWeakSecret is returned when PolicySigned is configured with a short key.
var ErrWeakSecret = errors.New("identity: signed policy needs a secret of at least 16 bytes")

// Issuer mints and verifies identity cookie values.
type Issuer struct {
	policy Policy
	secret []byte
}

// NewIssuer returns an Issuer for policy. Unknown policies are an error.
func NewIssuer(policy Policy, secret string) (*Issuer, error) {
	switch policy {
	case PolicyTrust:
		return &Issuer{policy: policy}, nil
	case PolicySigned:
		if len(secret) < 16 {
			return nil, ErrWeakSecret
		}
		return &Issuer{policy: policy, secret: []byte(secret)}, nil
	default:
		return nil, errors.New("identity: unknown policy " + string(policy))
	}
}

// Policy reports the issuer's policy.
func (i *Issuer) Policy() Policy { return i.policy }

// Issue returns a fresh cookie value and the identifier it carries.
func (i *Issuer) Issue() (value string, id domain.ClientAssertedID) {
	raw := uuid.NewString()
	if i.policy == PolicySigned {
		return raw + "." + i.mac(raw), domain.ClientAssertedID(raw)
	}
	return raw, domain.ClientAssertedID(raw)
}

// Verify extracts the identifier from a cookie value. ok is false when the
// value is empty or fails the policy's checks.
func (i *Issuer) Verify(value string) (id domain.ClientAssertedID, ok bool) {
	if value == "" {
		return "", false
	}
	if i.policy == PolicySigned {
		raw, sig, found := strings.Cut(value, ".")
		if !found || raw == "" {
			return "", false
		}
		if !hmac.Equal([]byte(sig), []byte(i.mac(raw))) {
			return "", false
		}
		return domain.ClientAssertedID(raw), true
	}
	if len(value) > MaxLen || strings.IndexFunc(value, unicode.IsControl) >= 0 {
		return "", false
	}
	return domain.ClientAssertedID(value), true
}

func (i *Issuer) mac(raw string) string {
	h := hmac.New(sha256.New, i.secret)
	h.Write([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
