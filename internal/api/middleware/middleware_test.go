package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVerifier map[string]string

func (s stubVerifier) Verify(token string) (string, error) {
	if userID, ok := s[token]; ok {
		return userID, nil
	}
	return "", errors.New("bad token")
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(GetUserIDFromContext(r.Context())))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	return body.Error
}

func TestRequireAuth(t *testing.T) {
	m := NewAuthMiddleware(stubVerifier{"good": "user-1"}, zerolog.Nop())
	h := m.RequireAuth(http.HandlerFunc(okHandler))

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"valid", "Bearer good", http.StatusOK, "user-1"},
		{"lowercase scheme", "bearer good", http.StatusOK, "user-1"},
		{"missing", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic good", http.StatusUnauthorized, ""},
		{"empty token", "Bearer ", http.StatusUnauthorized, ""},
		{"rejected", "Bearer bad", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/agents", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, tt.body, rec.Body.String())
			} else {
				assert.NotEmpty(t, decodeError(t, rec))
			}
		})
	}
}

func TestNormalizePath(t *testing.T) {
	tests := map[string]string{
		"/api/conversations":                  "/api/conversations",
		"/api/conversations/stream":           "/api/conversations/stream",
		"/api/conversations/history":          "/api/conversations/history",
		"/api/conversations/conv-01abc":       "/api/conversations/:id",
		"/api/conversations/conv-01abc/read":  "/api/conversations/:id/read",
		"/api/conversations/conv-01abc/title": "/api/conversations/:id/title",
		"/api/agents/custom/custom-01abc":     "/api/agents/custom/:id",
		"/api/agents":                         "/api/agents",
		"/health":                             "/health",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalizePath(in), in)
	}
}

func TestMetrics_PassesFlushThrough(t *testing.T) {
	var flushed bool
	h := Metrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, ok := w.(http.Flusher)
		require.True(t, ok)
		w.Write([]byte("data: x\n\n"))
		f.Flush()
		flushed = true
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/conversations/stream", nil))
	assert.True(t, flushed)
	assert.True(t, rec.Flushed)
}

func TestStatusWriter_Code(t *testing.T) {
	silent := &statusWriter{ResponseWriter: httptest.NewRecorder()}
	assert.Equal(t, http.StatusOK, silent.code())

	implicit := &statusWriter{ResponseWriter: httptest.NewRecorder()}
	implicit.Write([]byte("ok"))
	assert.Equal(t, http.StatusOK, implicit.status)

	explicit := &statusWriter{ResponseWriter: httptest.NewRecorder()}
	explicit.WriteHeader(http.StatusServiceUnavailable)
	explicit.Write([]byte("down"))
	assert.Equal(t, http.StatusServiceUnavailable, explicit.code())
}

func TestValidateRequest(t *testing.T) {
	h := ValidateRequest(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodPost, "/api/conversations", strings.NewReader(`{"message":"hi"}`))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/conversations", strings.NewReader(`{"message":"hi"}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/conversations/history?q=%3Cscript%3E", nil)
	req.URL.RawQuery = "q=<script>"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMaxBodySize(t *testing.T) {
	h := MaxBodySize(8)(http.HandlerFunc(okHandler))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/conversations", strings.NewReader("0123456789")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "request body too large", decodeError(t, rec))
}

func TestLogger_LevelByStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	h := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/conversations/x/messages", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, float64(http.StatusNotFound), entry["status"])
	assert.Equal(t, "/api/conversations/x/messages", entry["path"])
}

func newUnreachableLimiter(cfg RateLimiterConfig) *RateLimiter {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	return NewRateLimiter(client, zerolog.Nop(), cfg)
}

func TestFindLimit(t *testing.T) {
	rl := newUnreachableLimiter(RateLimiterConfig{})

	tests := []struct {
		method, path string
		want         string
	}{
		{http.MethodPost, "/api/conversations", "POST /api/conversations"},
		{http.MethodPost, "/api/conversations/stream", "POST /api/conversations/stream"},
		{http.MethodPost, "/api/conversations/conv-1/read", "POST /api/conversations/"},
		{http.MethodGet, "/api/conversations/history", "GET /api/"},
		{http.MethodDelete, "/api/agents/custom/custom-1", "DELETE /api/"},
		{http.MethodPost, "/api/agents/custom", "POST /api/agents/custom"},
		{http.MethodGet, "/health", ""},
	}
	for _, tt := range tests {
		limit := rl.findLimit(httptest.NewRequest(tt.method, tt.path, nil))
		if tt.want == "" {
			assert.Nil(t, limit, tt.path)
			continue
		}
		require.NotNil(t, limit, tt.path)
		assert.Equal(t, tt.want, limit.Pattern, tt.path)
	}
}

func TestIsWhitelisted(t *testing.T) {
	rl := newUnreachableLimiter(RateLimiterConfig{Whitelist: []string{"10.0.0.0/8", "192.168.1.5", "bogus/cidr"}})

	assert.True(t, rl.isWhitelisted("10.1.2.3"))
	assert.True(t, rl.isWhitelisted("192.168.1.5"))
	assert.False(t, rl.isWhitelisted("192.168.1.6"))
	assert.False(t, rl.isWhitelisted("not-an-ip"))
}

func TestUserKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/agents", nil)
	req.RemoteAddr = "203.0.113.9:5555"
	assert.Equal(t, "ratelimit:ip:203.0.113.9", userKey(req))

	req = req.WithContext(WithUserID(req.Context(), "user-1"))
	assert.Equal(t, "ratelimit:user:user-1", userKey(req))
}

func TestRealIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:5555"
	assert.Equal(t, "203.0.113.9", RealIP(req))

	req.Header.Set("X-Forwarded-For", "198.51.100.1, 10.0.0.1")
	assert.Equal(t, "198.51.100.1", RealIP(req))

	req.Header.Set("Fly-Client-IP", "198.51.100.7")
	assert.Equal(t, "198.51.100.7", RealIP(req))
}

func TestRateLimiter_FailsOpenWithoutRedis(t *testing.T) {
	rl := newUnreachableLimiter(RateLimiterConfig{})
	h := rl.Middleware(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodPost, "/api/conversations", nil)
	req = req.WithContext(WithUserID(req.Context(), "user-1"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "20", rec.Header().Get("X-RateLimit-Limit"))
}

func TestRateLimiter_WhitelistSkipsChecks(t *testing.T) {
	rl := newUnreachableLimiter(RateLimiterConfig{Whitelist: []string{"203.0.113.9"}})
	h := rl.Middleware(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodPost, "/api/conversations", nil)
	req.RemoteAddr = "203.0.113.9:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}
