package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/intertool/cardinsight_api/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestJWTMiddlewareScopes(t *testing.T) {
	tokens := utils.NewTokenManager("test-secret")
	userToken, _, _ := tokens.Generate("flow-1", "a@b.c", utils.ScopeUser, time.Hour)
	adminToken, _, _ := tokens.Generate("ch-1", "admin@b.c", utils.ScopeAdmin, time.Hour)

	r := gin.New()
	r.GET("/admin", NewJWTMiddleware(tokens).Require(utils.ScopeAdmin), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextSubject))
	})

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"malformed", "Token abc", http.StatusUnauthorized},
		{"garbage", "Bearer abc", http.StatusUnauthorized},
		{"wrong scope", "Bearer " + userToken, http.StatusForbidden},
		{"admin", "Bearer " + adminToken, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, w.Code)
			}
			if tc.want == http.StatusOK && w.Body.String() != "ch-1" {
				t.Fatalf("subject not set: %q", w.Body.String())
			}
		})
	}
}

func TestFailedAttemptLimiterBlocksAfterLimit(t *testing.T) {
	stop := make(chan struct{})
	defer close(stop)
	rl := NewFailedAttemptLimiter(2, time.Minute, stop)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	r := gin.New()
	r.POST("/login", rl.Handle(), func(c *gin.Context) {
		c.Status(http.StatusUnauthorized)
	})

	do := func() int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
		return w.Code
	}

	if do() != 401 || do() != 401 {
		t.Fatal("expected first two attempts to reach the handler")
	}
	if code := do(); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", code)
	}

	now = now.Add(2 * time.Minute)
	if code := do(); code != 401 {
		t.Fatalf("expected window reset, got %d", code)
	}
}

func TestCORSAllowsConfiguredHosts(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware([]string{"localhost:3000"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("expected origin echoed, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected allow origin %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/x", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected preflight 204, got %d", w.Code)
	}
}

func TestLoggingMiddlewareSetsRequestID(t *testing.T) {
	r := gin.New()
	r.Use(LoggingMiddleware())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ContextRequestID)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if len(w.Body.String()) != 8 || w.Header().Get("X-Request-Id") != w.Body.String() {
		t.Fatalf("unexpected request id %q / %q", w.Body.String(), w.Header().Get("X-Request-Id"))
	}
}
