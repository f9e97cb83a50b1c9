package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/suggestion-box/internal/domain"
	"github.com/tbourn/suggestion-box/internal/http/middleware"
	"github.com/tbourn/suggestion-box/internal/identity"
	"github.com/tbourn/suggestion-box/internal/services"
)

// ---------- stub services ----------

type stubSuggestions struct {
	listFn       func(ctx context.Context, viewer domain.ClientAssertedID) ([]domain.SuggestionView, error)
	createOnceFn func(ctx context.Context, viewer domain.ClientAssertedID, key string, in services.CreateSuggestionInput) (bool, error)
	categoriesFn func(ctx context.Context) ([]domain.Category, error)
}

func (s *stubSuggestions) List(ctx context.Context, viewer domain.ClientAssertedID) ([]domain.SuggestionView, error) {
	return s.listFn(ctx, viewer)
}

func (s *stubSuggestions) CreateOnce(ctx context.Context, viewer domain.ClientAssertedID, key string, in services.CreateSuggestionInput) (bool, error) {
	return s.createOnceFn(ctx, viewer, key, in)
}

func (s *stubSuggestions) Categories(ctx context.Context) ([]domain.Category, error) {
	return s.categoriesFn(ctx)
}

type stubVotes struct {
	addFn    func(ctx context.Context, id uint, student domain.ClientAssertedID) error
	removeFn func(ctx context.Context, id uint, student domain.ClientAssertedID) error
}

func (s *stubVotes) Add(ctx context.Context, id uint, student domain.ClientAssertedID) error {
	return s.addFn(ctx, id, student)
}

func (s *stubVotes) Remove(ctx context.Context, id uint, student domain.ClientAssertedID) error {
	return s.removeFn(ctx, id, student)
}

type stubReplies struct {
	listFn  func(ctx context.Context, id uint) ([]domain.ReplyView, error)
	addFn   func(ctx context.Context, cred string, id uint, content string) error
	statsFn func(ctx context.Context, id uint) (int64, *time.Time, error)
}

func (s *stubReplies) List(ctx context.Context, id uint) ([]domain.ReplyView, error) {
	return s.listFn(ctx, id)
}

func (s *stubReplies) Add(ctx context.Context, cred string, id uint, content string) error {
	return s.addFn(ctx, cred, id, content)
}

func (s *stubReplies) Stats(ctx context.Context, id uint) (int64, *time.Time, error) {
	return s.statsFn(ctx, id)
}

type stubAdmin struct {
	loginFn func(id, passphrase string) (string, error)
}

func (s *stubAdmin) Login(id, passphrase string) (string, error) { return s.loginFn(id, passphrase) }

// ---------- router + request helpers ----------

const (
	testCookie  = "studentId"
	testIdemKey = "3f2c8d1e-5a6b-4c7d-9e0f-1a2b3c4d5e6f"
)

// newRouter mounts the handlers behind the student identity middleware
// (trust policy) and the idempotency validator, like the real router.
func newRouter(t *testing.T, h *Handlers, lookup middleware.IdempotencyLookup) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	iss, err := identity.NewIssuer(identity.PolicyTrust, "")
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	r := gin.New()
	r.Use(middleware.StudentIdentity(iss, middleware.IdentityOptions{CookieName: testCookie}))
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, lookup))

	r.GET("/suggestions", h.ListSuggestions)
	r.POST("/suggestions", h.CreateSuggestion)
	r.GET("/categories", h.ListCategories)
	r.POST("/vote", h.AddVote)
	r.DELETE("/vote", h.RemoveVote)
	r.GET("/replies/:suggestionId", h.ListReplies)
	r.POST("/replies", h.CreateReply)
	r.POST("/admin/login", h.AdminLogin)
	return r
}

type reqOpt func(*http.Request)

func asStudent(id string) reqOpt {
	return func(r *http.Request) { r.AddCookie(&http.Cookie{Name: testCookie, Value: id}) }
}

func withHeader(k, v string) reqOpt {
	return func(r *http.Request) { r.Header.Set(k, v) }
}

func do(r *gin.Engine, method, path, body string, opts ...reqOpt) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, o := range opts {
		o(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return er
}

func decodeMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var m MessageResponse
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode message body %q: %v", w.Body.String(), err)
	}
	return m.Message
}

func readCloser(s string) io.ReadCloser { return io.NopCloser(strings.NewReader(s)) }
