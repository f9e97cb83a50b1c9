package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/suggestion-box/internal/domain"
)

const (
	testKey1 = "0b0c5a3e-6d1f-4f5e-9a43-8c1d2e3f4a51"
	testKey2 = "7e1a9c44-2b3d-4c5e-8f60-1a2b3c4d5e6f"
)

func TestGetIdempotencyKeyAndIsReplay(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	if k, ok := GetIdempotencyKey(c); k != "" || ok {
		t.Fatalf("expected no key by default")
	}
	if IsReplay(c) {
		t.Fatalf("expected IsReplay=false by default")
	}

	c.Set(ctxKeyIdemKey, 123)
	if _, ok := GetIdempotencyKey(c); ok {
		t.Fatalf("non-string value must read as absent")
	}
	c.Set(ctxKeyIdemReplay, true)
	if !IsReplay(c) {
		t.Fatalf("expected IsReplay=true")
	}
	c.Set(ctxKeyIdemReplay, "yes")
	if IsReplay(c) {
		t.Fatalf("non-bool value must read as false")
	}
}

func TestIdempotencyValidator_RejectsMalformedKeys(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name string
		opts IdempotencyOptions
		key  string
	}{
		{"too long", IdempotencyOptions{MaxLen: 5}, testKey1},
		{"default length", IdempotencyOptions{}, strings.Repeat("k", defaultIdemMaxLen+1)},
		{"custom pattern", IdempotencyOptions{Pattern: regexp.MustCompile(`^[0-9]+$`)}, "abc123"},
		{"short token", IdempotencyOptions{}, "k1"},
		{"token characters", IdempotencyOptions{}, "retry-key-1"},
		{"space", IdempotencyOptions{}, "a b"},
		{"truncated uuid", IdempotencyOptions{}, testKey1[:35]},
	}
	for _, tc := range cases {
		r := gin.New()
		r.Use(RequestID())
		r.Use(IdempotencyValidator(tc.opts, nil))
		r.POST("/suggestions", func(c *gin.Context) {
			t.Fatalf("%s: handler must not run", tc.name)
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/suggestions", nil)
		req.Header.Set(HeaderIdempotencyKey, tc.key)
		r.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", tc.name, w.Code)
		}
		var body map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s: invalid json: %v", tc.name, err)
		}
		if body["code"] != "bad_idempotency_key" || body["request_id"] != w.Header().Get(HeaderRequestID) {
			t.Fatalf("%s: unexpected body: %v", tc.name, body)
		}
	}
}

// idemRouter mounts the validator in front of POST /suggestions and records
// what the handler observed.
type idemSeen struct {
	key            string
	replay, bypass bool
}

func idemRouter(opts IdempotencyOptions, lookup IdempotencyLookup, student domain.ClientAssertedID, seen *idemSeen) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if student != "" {
		r.Use(func(c *gin.Context) { c.Set(ctxKeyStudentID, student); c.Next() })
	}
	r.Use(IdempotencyValidator(opts, lookup))
	r.POST("/suggestions", func(c *gin.Context) {
		seen.key, _ = GetIdempotencyKey(c)
		seen.replay, seen.bypass = IsReplay(c), IsRateBypass(c)
		c.Status(http.StatusOK)
	})
	return r
}

func postSuggestion(r http.Handler, key string) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/suggestions", nil)
	if key != "" {
		req.Header.Set(HeaderIdempotencyKey, key)
	}
	r.ServeHTTP(w, req)
	return w.Code
}

func TestIdempotencyValidator_NoHeaderSkipsLookup(t *testing.T) {
	var seen idemSeen
	lookup := func(context.Context, string, string, string, time.Time) (bool, error) {
		t.Fatalf("lookup must not run without a key")
		return false, nil
	}
	if code := postSuggestion(idemRouter(IdempotencyOptions{}, lookup, "", &seen), ""); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if seen.key != "" || seen.replay {
		t.Fatalf("unexpected state: %+v", seen)
	}
}

func TestIdempotencyValidator_LookupMissUsesDefaultScope(t *testing.T) {
	var seen idemSeen
	lookup := func(_ context.Context, studentID, scope, key string, now time.Time) (bool, error) {
		if studentID != "" || scope != "POST /suggestions" || key != testKey1 || now.IsZero() {
			t.Fatalf("lookup args: student=%q scope=%q key=%q now=%v", studentID, scope, key, now)
		}
		return false, nil
	}
	if code := postSuggestion(idemRouter(IdempotencyOptions{}, lookup, "", &seen), testKey1); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if seen.key != testKey1 || seen.replay || seen.bypass {
		t.Fatalf("unexpected state on miss: %+v", seen)
	}
}

func TestIdempotencyValidator_LookupHitFlagsReplay(t *testing.T) {
	var seen idemSeen
	lookup := func(_ context.Context, studentID, scope, key string, _ time.Time) (bool, error) {
		if studentID != "s9" || scope != "suggestions.create" || key != testKey2 {
			t.Fatalf("lookup args: %q %q %q", studentID, scope, key)
		}
		return true, nil
	}
	opts := IdempotencyOptions{Scope: func(*gin.Context) string { return "suggestions.create" }}
	postSuggestion(idemRouter(opts, lookup, "s9", &seen), testKey2)
	if !seen.replay || !seen.bypass {
		t.Fatalf("expected replay and bypass on hit: %+v", seen)
	}
}

func TestIdempotencyValidator_EmptyScopeKeepsKey(t *testing.T) {
	var seen idemSeen
	lookup := func(context.Context, string, string, string, time.Time) (bool, error) {
		t.Fatalf("lookup must not run for unscoped routes")
		return false, nil
	}
	opts := IdempotencyOptions{Scope: func(*gin.Context) string { return "" }}
	postSuggestion(idemRouter(opts, lookup, "", &seen), testKey1)
	if seen.key != testKey1 || seen.replay {
		t.Fatalf("unexpected state: %+v", seen)
	}
}

func TestIdempotencyValidator_LookupErrorIsAMiss(t *testing.T) {
	buf := captureLogger(t)
	var seen idemSeen
	lookup := func(context.Context, string, string, string, time.Time) (bool, error) {
		return true, errors.New("database is locked")
	}
	if code := postSuggestion(idemRouter(IdempotencyOptions{}, lookup, "s1", &seen), testKey2); code != http.StatusOK {
		t.Fatalf("a failed lookup must not block the request, got %d", code)
	}
	if seen.replay || seen.bypass {
		t.Fatalf("failed lookup must not flag a replay: %+v", seen)
	}
	if !strings.Contains(buf.String(), "idempotency lookup failed") {
		t.Fatalf("expected a warning, got:\n%s", buf.String())
	}
}

func TestIdempotencyValidator_AcceptsUUIDsAndCustomPatterns(t *testing.T) {
	keys := []string{testKey1, uuid.NewString(), strings.ToUpper(uuid.NewString())}
	for _, key := range keys {
		var seen idemSeen
		if code := postSuggestion(idemRouter(IdempotencyOptions{}, nil, "", &seen), key); code != http.StatusOK || seen.key != key {
			t.Fatalf("key %q: status=%d seen=%+v", key, code, seen)
		}
	}

	// A custom pattern replaces the UUID rule.
	var seen idemSeen
	opts := IdempotencyOptions{Pattern: regexp.MustCompile(`^[0-9]+$`)}
	if code := postSuggestion(idemRouter(opts, nil, "", &seen), "12345"); code != http.StatusOK || seen.key != "12345" {
		t.Fatalf("custom pattern: status=%d seen=%+v", code, seen)
	}
}
