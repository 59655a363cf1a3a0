package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/beacon/internal/auth"
	"github.com/gosuda/beacon/internal/server/middleware"
)

const testJWTSecret = "test-secret-key-very-long-and-secure"

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { //nolint:gochecknoglobals // test helper
	w.WriteHeader(http.StatusOK)
})

// contextHandler captures the user id injected by middleware.
type contextHandler struct {
	userID int64
	called bool
}

func (h *contextHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.called = true
	h.userID, _ = middleware.UserIDFromContext(r.Context())
	w.WriteHeader(http.StatusOK)
}

func setUser(r *http.Request, userID int64) *http.Request {
	return r.WithContext(middleware.WithUserID(r.Context(), userID))
}

func issue(t *testing.T, userID int64, ttl time.Duration) string {
	t.Helper()
	token, err := auth.IssueAccessToken(testJWTSecret, "beacon", userID, ttl)
	require.NoError(t, err)
	return token
}

// ===========================================================================
// 1. Context helpers
// ===========================================================================

func TestUserIDFromContext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		ctx    context.Context
		want   int64
		wantOK bool
	}{
		{name: "present", ctx: middleware.WithUserID(context.Background(), 42), want: 42, wantOK: true},
		{name: "absent", ctx: context.Background()},
		{name: "zero id", ctx: middleware.WithUserID(context.Background(), 0)},
		{name: "wrong type", ctx: context.WithValue(context.Background(), middleware.ContextKeyUserID, "42")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := middleware.UserIDFromContext(tt.ctx)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

// ===========================================================================
// 2. Auth
// ===========================================================================

func TestAuth_ValidToken_PopulatesContext(t *testing.T) {
	t.Parallel()

	h := &contextHandler{}
	handler := middleware.Auth(auth.NewVerifier(testJWTSecret, "beacon"))(h)

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+issue(t, 42, time.Minute))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, h.called)
	assert.Equal(t, int64(42), h.userID)
}

func TestAuth_QueryToken(t *testing.T) {
	t.Parallel()

	h := &contextHandler{}
	handler := middleware.Auth(auth.NewVerifier(testJWTSecret, "beacon"))(h)

	req := httptest.NewRequest(http.MethodGet, "/ws?token="+issue(t, 7, time.Minute), http.NoBody)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(7), h.userID)
}

func TestAuth_Rejected(t *testing.T) {
	t.Parallel()

	expired := issue(t, 42, -time.Second)
	other, err := auth.IssueAccessToken("another-secret-that-is-long-enough!", "beacon", 42, time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		query  string
	}{
		{name: "no credentials"},
		{name: "garbage token", header: "Bearer not-a-jwt"},
		{name: "expired token", header: "Bearer " + expired},
		{name: "wrong secret", header: "Bearer " + other},
		{name: "bad query token", query: "nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := &contextHandler{}
			handler := middleware.Auth(auth.NewVerifier(testJWTSecret, "beacon"))(h)

			target := "/"
			if tt.query != "" {
				target += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.False(t, h.called)
			assert.Contains(t, rec.Body.String(), "Unauthorized")
		})
	}
}

func TestAuth_BearerFormat(t *testing.T) {
	t.Parallel()

	token := issue(t, 42, 15*time.Minute)

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{name: "uppercase Bearer", authHeader: "Bearer " + token, wantStatus: http.StatusOK},
		{name: "lowercase bearer", authHeader: "bearer " + token, wantStatus: http.StatusOK},
		{name: "mixed case BEARER", authHeader: "BEARER " + token, wantStatus: http.StatusOK},
		{name: "Basic scheme falls through to 401", authHeader: "Basic " + token, wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handler := middleware.Auth(auth.NewVerifier(testJWTSecret, "beacon"))(okHandler)
			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			req.Header.Set("Authorization", tt.authHeader)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

// ===========================================================================
// 3. Service key
// ===========================================================================

func TestServiceKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		configured string
		sent       string
		wantStatus int
	}{
		{name: "match", configured: "service-key-123456", sent: "service-key-123456", wantStatus: http.StatusOK},
		{name: "mismatch", configured: "service-key-123456", sent: "service-key-654321", wantStatus: http.StatusUnauthorized},
		{name: "missing header", configured: "service-key-123456", wantStatus: http.StatusUnauthorized},
		{name: "unconfigured key rejects all", sent: "", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handler := middleware.ServiceKey(tt.configured)(okHandler)
			req := httptest.NewRequest(http.MethodPost, "/", http.NoBody)
			if tt.sent != "" {
				req.Header.Set(middleware.ServiceKeyHeader, tt.sent)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

// ===========================================================================
// 4. Rate limiting
// ===========================================================================

func TestRateLimitByUser_NoUserInContext_PassesThrough(t *testing.T) {
	t.Parallel()

	handler := middleware.RateLimitByUser(t.Context(), 0.001, 1)(okHandler)

	for range 3 {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimitByUser_BurstExceeded_Returns429(t *testing.T) {
	t.Parallel()

	// Very low rate (effectively zero refill during the test) with burst of 2.
	handler := middleware.RateLimitByUser(t.Context(), 0.001, 2)(okHandler)

	for i := range 2 {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, setUser(httptest.NewRequest(http.MethodGet, "/", http.NoBody), 42))
		require.Equalf(t, http.StatusOK, rec.Code, "request %d should pass", i+1)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, setUser(httptest.NewRequest(http.MethodGet, "/", http.NoBody), 42))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "rate limit exceeded")
}

func TestRateLimitByUser_IndependentPerUser(t *testing.T) {
	t.Parallel()

	handler := middleware.RateLimitByUser(t.Context(), 0.001, 1)(okHandler)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, setUser(httptest.NewRequest(http.MethodGet, "/", http.NoBody), 1))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, setUser(httptest.NewRequest(http.MethodGet, "/", http.NoBody), 1))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, setUser(httptest.NewRequest(http.MethodGet, "/", http.NoBody), 2))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitByIP_BurstExceeded_Returns429(t *testing.T) {
	t.Parallel()

	handler := middleware.RateLimitByIP(t.Context(), 0.001, 1)(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	other := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	other.RemoteAddr = "10.0.0.2:1234"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, other)
	assert.Equal(t, http.StatusOK, rec.Code)
}
