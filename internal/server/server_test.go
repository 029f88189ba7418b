package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitclub/internal/api"
	"fitclub/internal/auth"
	"fitclub/internal/booking"
	"fitclub/internal/gym"
	"fitclub/internal/review"
	"fitclub/internal/stats"
	"fitclub/internal/subscription"
	"fitclub/internal/support"
	"fitclub/internal/user"
)

const testSecret = "test-secret"

// The route tests below stop in middleware, so the handlers never reach
// their services.
func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	RegisterValidators()

	router := gin.New()
	registerRoutes(router, testSecret, Handlers{
		Users:         user.NewHandler(nil),
		Gyms:          gym.NewHandler(nil),
		Bookings:      booking.NewHandler(nil),
		Subscriptions: subscription.NewHandler(nil),
		Reviews:       review.NewHandler(nil),
		Stats:         stats.NewHandler(nil),
		Support:       support.NewHandler(nil),
	})
	return router
}

func tokenFor(t *testing.T, role auth.Role) string {
	token, _, err := auth.GenerateTokens(1, "someone@example.com", role, testSecret, testSecret)
	require.NoError(t, err)
	return token
}

func TestHealth(t *testing.T) {
	router := setupRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp api.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestMetricsEndpoint(t *testing.T) {
	router := setupRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	router := setupRouter()

	for _, path := range []string{"/me", "/bookings", "/support/tickets", "/partner/gyms", "/admin/users"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestProtectedRoutes_RolePolicy(t *testing.T) {
	tests := []struct {
		name   string
		role   auth.Role
		method string
		path   string
	}{
		{name: "member on admin", role: auth.RoleUser, method: http.MethodGet, path: "/admin/users"},
		{name: "member on partner", role: auth.RoleUser, method: http.MethodGet, path: "/partner/gyms"},
		{name: "member on staff queue", role: auth.RoleUser, method: http.MethodGet, path: "/staff/tickets"},
		{name: "partner on admin", role: auth.RolePartner, method: http.MethodGet, path: "/admin/analytics/bookings"},
		{name: "support books", role: auth.RoleSupport, method: http.MethodPost, path: "/bookings"},
		{name: "support on partner", role: auth.RoleSupport, method: http.MethodGet, path: "/partner/gyms"},
	}

	router := setupRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString("{}"))
			req.Header.Set("Authorization", "Bearer "+tokenFor(t, tt.role))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusForbidden, w.Code)
		})
	}
}

func TestProtectedRoutes_RejectRefreshToken(t *testing.T) {
	router := setupRouter()

	_, refresh, err := auth.GenerateTokens(1, "someone@example.com", auth.RoleAdmin, testSecret, testSecret)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	req.Header.Set("Authorization", "Bearer "+refresh)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
