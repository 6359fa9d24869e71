package middleware

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/account-service/internal/domain"
	"github.com/baechuer/account-service/internal/infrastructure/redis"
	appCtx "github.com/baechuer/account-service/internal/pkg/context"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// writeErrStub records the error code and writes the mapped status.
func writeErrStub(got *string) WriteErrFunc {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		var de *domain.Error
		if errors.As(err, &de) {
			*got = de.Code
		}
		w.WriteHeader(http.StatusTooManyRequests)
	}
}

func TestRequestID_GeneratesAndPropagates(t *testing.T) {
	var seenID string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = appCtx.GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.NotEmpty(t, seenID)
	assert.Equal(t, seenID, rr.Header().Get(HeaderXRequestID))
}

func TestRequestID_KeepsIncomingHeader(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = appCtx.GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderXRequestID, "abc-123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rr.Header().Get(HeaderXRequestID))
}

func seenClientIP(t *testing.T, trustProxy bool, remoteAddr string, headers map[string]string) string {
	t.Helper()
	var seen string
	h := ClientIP(trustProxy)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = appCtx.GetClientIP(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remoteAddr
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	h.ServeHTTP(httptest.NewRecorder(), req)
	return seen
}

func TestClientIP_IgnoresForwardingHeadersByDefault(t *testing.T) {
	headers := map[string]string{
		"X-Forwarded-For": "203.0.113.9, 10.0.0.1",
		"X-Real-IP":       "203.0.113.10",
		"True-Client-IP":  "203.0.113.11",
	}
	assert.Equal(t, "10.0.0.1", seenClientIP(t, false, "10.0.0.1:1234", headers))
	assert.Equal(t, "10.0.0.1", seenClientIP(t, false, "10.0.0.1:1234", nil))
}

func TestClientIP_TrustedProxyUsesForwardedFor(t *testing.T) {
	headers := map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.1"}
	assert.Equal(t, "203.0.113.9", seenClientIP(t, true, "10.0.0.1:1234", headers))
	assert.Equal(t, "10.0.0.1", seenClientIP(t, true, "10.0.0.1:1234", nil))
}

func TestRateLimitLocal_RotatingForwardedForDoesNotEscape(t *testing.T) {
	var code string
	limit := RateLimitLocal(FixedWindowConfig{RouteKey: "account.register", Limit: 2, Window: time.Minute}, writeErrStub(&code))
	h := ClientIP(false)(limit(http.HandlerFunc(okHandler)))

	passed := 0
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodPost, "/register", nil)
		req.RemoteAddr = "192.0.2.50:4000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i+1))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code == http.StatusOK {
			passed++
		}
	}

	assert.Equal(t, 2, passed)
	assert.Equal(t, "rate_limited", code)
}

func TestBodyLimit_RejectsOversizedBody(t *testing.T) {
	var readErr error
	h := BodyLimit(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.c"}`))
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.Error(t, readErr)
	var mbe *http.MaxBytesError
	assert.ErrorAs(t, readErr, &mbe)
}

type fakeLimiter struct {
	mu    sync.Mutex
	count map[string]int
	err   error
	keys  []string
}

func (f *fakeLimiter) AllowFixedWindow(ctx context.Context, key string, limit int, window time.Duration) (redis.Decision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.Decision{}, f.err
	}
	if f.count == nil {
		f.count = map[string]int{}
	}
	f.keys = append(f.keys, key)
	f.count[key]++
	c := f.count[key]
	if c > limit {
		return redis.Decision{Allowed: false, Limit: limit, RetryAfter: 30 * time.Second, Count: c}, nil
	}
	return redis.Decision{Allowed: true, Limit: limit, Remaining: limit - c, Count: c}, nil
}

func TestRateLimitFixedWindow_BlocksOverLimit(t *testing.T) {
	lim := &fakeLimiter{}
	var code string
	h := RateLimitFixedWindow(lim, FixedWindowConfig{RouteKey: "account.login", Limit: 2, Window: time.Minute}, writeErrStub(&code))(http.HandlerFunc(okHandler))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "192.0.2.1:1000"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "192.0.2.1:1000"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "rate_limited", code)
	assert.Equal(t, "30", rr.Header().Get("Retry-After"))
	require.NotEmpty(t, lim.keys)
	assert.True(t, strings.HasPrefix(lim.keys[0], "rl:account.login:ip:192.0.2.1:"))
}

func TestRateLimitFixedWindow_FailsOpen(t *testing.T) {
	lim := &fakeLimiter{err: errors.New("redis down")}
	var code string
	h := RateLimitFixedWindow(lim, FixedWindowConfig{RouteKey: "account.verify", Limit: 1}, writeErrStub(&code))(http.HandlerFunc(okHandler))

	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/verify", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	}
	assert.Empty(t, code)
}

func TestRateLimitLocal_PerIP(t *testing.T) {
	var code string
	h := RateLimit(nil, FixedWindowConfig{RouteKey: "account.demo", Limit: 1, Window: time.Minute}, writeErrStub(&code))(http.HandlerFunc(okHandler))

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/demo", nil)
		req.RemoteAddr = ip + ":4000"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusOK, send("198.51.100.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("198.51.100.1"))
	assert.Equal(t, "rate_limited", code)
	assert.Equal(t, http.StatusOK, send("198.51.100.2"))
}

func TestWindowBucket(t *testing.T) {
	now := time.Unix(125, 0)
	assert.Equal(t, int64(2), windowBucket(now, time.Minute))
	assert.Equal(t, int64(2), windowBucket(now, 0))
}

func TestCORS_PreflightAllowedOrigin(t *testing.T) {
	h := CORS([]string{"https://app.example.com"})(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodOptions, "/register", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "https://app.example.com", rr.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/user/bob", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestStatusRecorder_CapturesFirstStatus(t *testing.T) {
	rr := httptest.NewRecorder()
	rec := &statusRecorder{ResponseWriter: rr, status: http.StatusOK}

	rec.WriteHeader(http.StatusCreated)
	rec.WriteHeader(http.StatusInternalServerError)

	assert.Equal(t, http.StatusCreated, rec.status)
}
