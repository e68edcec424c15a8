package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/peerlink/backend/internal/auth"
)

type mockLimiter struct {
	mock.Mock
}

func (m *mockLimiter) Allow(ctx context.Context, key string) (bool, int, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Int(1), args.Error(2)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func withUser(r *http.Request, userID string) *http.Request {
	return r.WithContext(WithIdentity(r.Context(), &auth.Identity{UserID: userID}))
}

func TestAuthMiddleware(t *testing.T) {
	jwtManager := auth.NewJWTManager("secret", "peerlink", time.Hour)
	token, err := jwtManager.GenerateToken("uid1", "")
	require.NoError(t, err)

	var seen string
	handler := AuthMiddleware(jwtManager)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = GetUserID(r.Context())
	}))

	tests := []struct {
		name   string
		header string
		query  string
		status int
		user   string
	}{
		{"bearer header", "Bearer " + token, "", http.StatusOK, "uid1"},
		{"query token", "", "?token=" + token, http.StatusOK, "uid1"},
		{"missing", "", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic " + token, "", http.StatusUnauthorized, ""},
		{"garbage", "Bearer nope", "", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/x"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.user, seen)
		})
	}
}

func TestRateLimit(t *testing.T) {
	limiter := new(mockLimiter)
	limiter.On("Allow", mock.Anything, "u1").Return(true, 4, nil).Once()
	limiter.On("Allow", mock.Anything, "u1").Return(false, 0, nil).Once()
	limiter.On("Allow", mock.Anything, "u2").Return(false, 0, errors.New("redis down"))

	handler := RateLimit(limiter, zap.NewNop())(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, withUser(httptest.NewRequest(http.MethodPost, "/", nil), "u1"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "4", rec.Header().Get("X-RateLimit-Remaining"))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, withUser(httptest.NewRequest(http.MethodPost, "/", nil), "u1"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// limiter failures let the request through
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, withUser(httptest.NewRequest(http.MethodPost, "/", nil), "u2"))
	assert.Equal(t, http.StatusOK, rec.Code)

	limiter.AssertExpectations(t)
}

func TestRedisLimiter_SubSecondWindow(t *testing.T) {
	l := NewRedisLimiter(nil, "ratelimit:test", 3, 500*time.Millisecond)
	assert.Equal(t, time.Second, l.window)

	now := time.Unix(1700000000, 0)
	assert.NotPanics(t, func() { windowBucket(now, 500*time.Millisecond) })
	assert.Equal(t, windowBucket(now, time.Hour), windowBucket(now.Add(time.Minute), time.Hour))
	assert.NotEqual(t, windowBucket(now, time.Second), windowBucket(now.Add(time.Second), time.Second))
}

func TestRateLimit_NilLimiterIsPassThrough(t *testing.T) {
	handler := RateLimit(nil, zap.NewNop())(okHandler())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoggingMiddleware_SetsRequestID(t *testing.T) {
	handler := LoggingMiddleware(zap.NewNop())(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := RecoveryMiddleware(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetRealIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", getRealIP(req))
}

func TestLoggingMiddleware_PassesHijackThrough(t *testing.T) {
	var hijacked bool
	handler := LoggingMiddleware(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := w.(http.Hijacker)
		require.True(t, ok)
		conn, buf, err := h.Hijack()
		require.NoError(t, err)
		hijacked = true
		_, _ = buf.WriteString("HTTP/1.1 204 No Content\r\n\r\n")
		_ = buf.Flush()
		conn.Close()
	}))

	srv := httptest.NewServer(handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.True(t, hijacked)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestLoggingMiddleware_HijackUnsupported(t *testing.T) {
	handler := LoggingMiddleware(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _, err := w.(http.Hijacker).Hijack()
		assert.Error(t, err)
		w.(http.Flusher).Flush()
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, rec.Flushed)
}
