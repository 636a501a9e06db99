package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/apartment-management/internal/auth"
	"github.com/ukydev/apartment-management/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func tokenFor(t *testing.T, svc *auth.Service, role models.Role) string {
	t.Helper()
	token, err := svc.GenerateToken(&models.User{ID: primitive.NewObjectID(), Email: string(role) + "@example.com", Role: role})
	require.NoError(t, err)
	return token
}

func TestAuthMiddleware_Authenticate(t *testing.T) {
	authService := auth.NewService("test-secret", time.Hour)
	middleware := NewAuthMiddleware(authService)

	t.Run("valid token", func(t *testing.T) {
		token := tokenFor(t, authService, models.RoleTenant)
		req := httptest.NewRequest("GET", "/api/cart", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		handlerCalled := false
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handlerCalled = true
			claims, ok := GetUserFromContext(r.Context())
			assert.True(t, ok)
			assert.Equal(t, "tenant@example.com", claims.Email)
			assert.Equal(t, models.RoleTenant, claims.Role)
		})

		middleware.Authenticate(handler).ServeHTTP(w, req)
		assert.True(t, handlerCalled)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing authorization header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/cart", nil)
		w := httptest.NewRecorder()

		handlerCalled := false
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handlerCalled = true
		})

		middleware.Authenticate(handler).ServeHTTP(w, req)
		assert.False(t, handlerCalled)
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, false, body["success"])
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/cart", nil)
		req.Header.Set("Authorization", "Bearer invalid-token")
		w := httptest.NewRecorder()

		handlerCalled := false
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handlerCalled = true
		})

		middleware.Authenticate(handler).ServeHTTP(w, req)
		assert.False(t, handlerCalled)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequireRole(t *testing.T) {
	authService := auth.NewService("test-secret", time.Hour)
	middleware := NewAuthMiddleware(authService)

	tests := []struct {
		name    string
		role    models.Role
		allowed []models.Role
		want    int
	}{
		{"admin on admin route", models.RoleAdmin, []models.Role{models.RoleAdmin}, http.StatusOK},
		{"tenant on admin route", models.RoleTenant, []models.Role{models.RoleAdmin}, http.StatusForbidden},
		{"worker on shared route", models.RoleWorker, []models.Role{models.RoleAdmin, models.RoleWorker}, http.StatusOK},
		{"admin is not implied", models.RoleAdmin, []models.Role{models.RoleTenant}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/bills", nil)
			req.Header.Set("Authorization", "Bearer "+tokenFor(t, authService, tt.role))
			w := httptest.NewRecorder()

			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
			middleware.Authenticate(RequireRole(tt.allowed...)(handler)).ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}

	t.Run("no claims", func(t *testing.T) {
		w := httptest.NewRecorder()
		RequireRole(models.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).
			ServeHTTP(w, httptest.NewRequest("GET", "/api/bills", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequirePermission(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	run := func(role models.Role, action string) int {
		req := httptest.NewRequest("POST", "/api/cart/items", nil)
		req = req.WithContext(WithClaims(req.Context(), &models.Claims{UserID: "x", Role: role}))
		w := httptest.NewRecorder()
		RequirePermission(action)(ok).ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, run(models.RoleTenant, "order_beverages"))
	assert.Equal(t, http.StatusForbidden, run(models.RoleWorker, "order_beverages"))
	assert.Equal(t, http.StatusOK, run(models.RoleAdmin, "order_beverages"))
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := NewRateLimitMiddleware()
	clock := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return clock }

	handlerCalls := 0
	handler := limiter.RateLimit(2, 60)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalls++
	}))

	serve := func(addr string) int {
		req := httptest.NewRequest("GET", "/api/test", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, serve("192.168.1.1:12345"))
	assert.Equal(t, http.StatusOK, serve("192.168.1.1:12346"))
	assert.Equal(t, http.StatusTooManyRequests, serve("192.168.1.1:12347"))
	assert.Equal(t, http.StatusOK, serve("192.168.1.2:12345"), "limits are per client")

	clock = clock.Add(61 * time.Second)
	assert.Equal(t, http.StatusOK, serve("192.168.1.1:12345"), "window slides")
	assert.Equal(t, 4, handlerCalls)
}

func TestRateLimitMiddleware_IgnoresForwardedHeaders(t *testing.T) {
	limiter := NewRateLimitMiddleware()
	handler := limiter.RateLimit(1, 60)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	codes := make([]int, 0, 3)
	for _, forwarded := range []string{"1.1.1.1", "2.2.2.2", "3.3.3.3"} {
		req := httptest.NewRequest("GET", "/api/test", nil)
		req.RemoteAddr = "10.0.0.9:4000"
		req.Header.Set("X-Forwarded-For", forwarded)
		req.Header.Set("X-Real-IP", forwarded)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests, http.StatusTooManyRequests}, codes)
}

func TestRateLimitMiddleware_DropsIdleClients(t *testing.T) {
	limiter := NewRateLimitMiddleware()
	clock := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return clock }
	handler := limiter.RateLimit(5, 60)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	serve := func(addr string) {
		req := httptest.NewRequest("GET", "/api/test", nil)
		req.RemoteAddr = addr
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
	for _, addr := range []string{"10.0.0.1:1", "10.0.0.2:1", "10.0.0.3:1"} {
		serve(addr)
	}
	assert.Len(t, limiter.requests, 3)

	clock = clock.Add(2 * time.Minute)
	serve("10.0.0.4:1")
	assert.Len(t, limiter.requests, 1)
	assert.Contains(t, limiter.requests, "10.0.0.4")
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", getClientIP(req))

	req.Header.Set("X-Forwarded-For", "10.0.0.3, 10.0.0.4")
	assert.Equal(t, "10.0.0.1", getClientIP(req))

	// chi's RealIP rewrites RemoteAddr without a port
	req.RemoteAddr = "203.0.113.7"
	assert.Equal(t, "203.0.113.7", getClientIP(req))

	req.RemoteAddr = "[::1]:8080"
	assert.Equal(t, "::1", getClientIP(req))
}

func TestGetUserFromContext(t *testing.T) {
	claims := &models.Claims{UserID: "test-id", Email: "a@example.com", Role: models.RoleAdmin}

	retrieved, ok := GetUserFromContext(WithClaims(context.Background(), claims))
	assert.True(t, ok)
	assert.Equal(t, claims, retrieved)

	_, ok = GetUserFromContext(context.Background())
	assert.False(t, ok)
}
