package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/suggestion-box/internal/domain"
)

func captureLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	log.Logger = zerolog.New(&buf) // plain JSON lines
	return &buf
}

// logLines decodes every JSON line written to buf.
func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("bad log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestRequestID_GenerateAndPropagate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/rid", func(c *gin.Context) {
		c.String(http.StatusOK, RequestIDFrom(c))
	})

	cases := []struct {
		name, in string
		keep     bool
	}{
		{"missing", "", false},
		{"propagated", "abc-123", true},
		{"uppercase", "Z-REQ-123", true},
		{"trace style", "00f067aa0ba902b7:1", true},
		{"injection", "x\n{\"level\":\"error\"}", false},
		{"spaces", "a b", false},
		{"too long", strings.Repeat("a", maxRequestIDLen+1), false},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/rid", nil)
		if tc.in != "" {
			req.Header[HeaderRequestID] = []string{tc.in}
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		got := w.Header().Get(HeaderRequestID)
		if got == "" || w.Body.String() != got {
			t.Fatalf("%s: header %q body %q", tc.name, got, w.Body.String())
		}
		if tc.keep && got != tc.in {
			t.Fatalf("%s: expected %q to propagate, got %q", tc.name, tc.in, got)
		}
		if !tc.keep && got == tc.in {
			t.Fatalf("%s: expected a fresh id", tc.name)
		}
	}
}

func TestLogger_LevelsAndRoutePattern(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID())
	r.Use(Logger())
	r.GET("/replies/:suggestionId", func(c *gin.Context) { c.String(http.StatusOK, "[]") })
	r.POST("/vote", func(c *gin.Context) {
		_ = c.Error(errSentinel{})
		c.Status(http.StatusBadRequest)
	})

	for _, p := range []struct{ method, path string }{
		{http.MethodGet, "/replies/12"},
		{http.MethodGet, "/missing"},
		{http.MethodPost, "/vote"},
	} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(p.method, p.path, nil))
	}

	lines := logLines(t, buf)
	if len(lines) != 3 {
		t.Fatalf("expected 3 access lines, got %d", len(lines))
	}
	want := []struct{ level, path string }{
		{"info", "/replies/:suggestionId"},
		{"warn", "/missing"},
		{"error", "/vote"},
	}
	for i, w := range want {
		if lines[i]["level"] != w.level || lines[i]["path"] != w.path {
			t.Fatalf("line %d = %v, want level=%s path=%s", i, lines[i], w.level, w.path)
		}
		if lines[i]["request_id"] == "" || lines[i]["status"] == nil || lines[i]["latency"] == nil {
			t.Fatalf("line %d missing fields: %v", i, lines[i])
		}
	}
	if lines[2]["errors"] == nil {
		t.Fatalf("handler errors must be logged: %v", lines[2])
	}
}

type errSentinel struct{}

func (e errSentinel) Error() string { return "boom" }

func TestLogger_NoClientFingerprint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID())
	r.Use(func(c *gin.Context) { c.Set(ctxKeyStudentID, domain.ClientAssertedID("student-xyz")); c.Next() })
	r.Use(Logger())
	r.POST("/suggestions", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/suggestions", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (student laptop)")
	req.RemoteAddr = "10.1.2.3:5555"
	r.ServeHTTP(httptest.NewRecorder(), req)

	logs := buf.String()
	if !strings.Contains(logs, `"student":true`) {
		t.Fatalf("expected student flag, got:\n%s", logs)
	}
	for _, leak := range []string{"student-xyz", "student laptop", "10.1.2.3"} {
		if strings.Contains(logs, leak) {
			t.Fatalf("%q must not be logged:\n%s", leak, logs)
		}
	}
}

func TestRecovery_PanicsToJSON500AndLogs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID())
	r.Use(Logger())
	r.Use(Recovery())
	r.GET("/panic", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 from Recovery, got %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json body: %v", err)
	}
	if body["code"] != "internal_error" || body["request_id"] != w.Header().Get(HeaderRequestID) {
		t.Fatalf("unexpected body: %v", body)
	}
	// The panic line carries the request-scoped fields.
	var found bool
	for _, l := range logLines(t, buf) {
		if l["message"] == "panic recovered" {
			found = l["request_id"] == body["request_id"] && l["stack"] != nil
		}
	}
	if !found {
		t.Fatalf("expected panic log with request id, got:\n%s", buf.String())
	}
}

func TestRecovery_PanicAfterWrite_NoJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID())
	r.Use(Logger())
	r.Use(Recovery())
	r.GET("/panic-after-write", func(c *gin.Context) {
		c.String(http.StatusOK, "partial-body")
		panic("late kaboom")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic-after-write", nil))

	if strings.Contains(w.Body.String(), "internal_error") {
		t.Fatalf("expected no JSON error body when panic after write; got %q", w.Body.String())
	}
	if !strings.Contains(buf.String(), "panic recovered") {
		t.Fatalf("expected panic log, got:\n%s", buf.String())
	}
}

func TestLoggerFrom_FallbackAndRequestScoped(t *testing.T) {
	gin.SetMode(gin.TestMode)

	for _, scoped := range []bool{false, true} {
		buf := captureLogger(t)
		r := gin.New()
		r.Use(RequestID())
		if scoped {
			r.Use(Logger())
		}
		r.GET("/use", func(c *gin.Context) {
			LoggerFrom(c).Info().Msg("custom")
			c.Status(http.StatusOK)
		})
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/use", nil))

		var custom map[string]any
		for _, l := range logLines(t, buf) {
			if l["message"] == "custom" {
				custom = l
			}
		}
		if custom == nil {
			t.Fatalf("scoped=%v: custom line missing", scoped)
		}
		if _, has := custom["request_id"]; has != scoped {
			t.Fatalf("scoped=%v: request_id presence = %v", scoped, has)
		}
	}
}
