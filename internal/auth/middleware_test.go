package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthMiddlewareHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)

	refresh, _ := GenerateRefreshToken(1, "user@example.com", RoleUser, "secret")

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
	}{
		{"Empty header", "", http.StatusUnauthorized},
		{"Invalid format", "Token abc", http.StatusUnauthorized},
		{"Empty token", "Bearer ", http.StatusUnauthorized},
		{"Garbage token", "Bearer abc.def.ghi", http.StatusUnauthorized},
		{"Refresh token", "Bearer " + refresh, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			req := httptest.NewRequest("GET", "/", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			c.Request = req

			AuthMiddleware("secret")(c)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.True(t, c.IsAborted())
		})
	}
}

func TestAuthMiddleware_SetsActor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(AuthMiddleware("secret"))
	router.GET("/me", func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"user_id": actor.UserID, "role": actor.Role})
	})

	token, err := GenerateAccessToken(5, "member@example.com", RoleUser, "secret")
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(5), body["user_id"])
	assert.Equal(t, "user", body["role"])
}

func TestAuthorize(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(actor *Actor) *gin.Engine {
		router := gin.New()
		router.Use(func(c *gin.Context) {
			if actor != nil {
				SetActor(c, *actor)
			}
			c.Next()
		})
		router.Use(Authorize())
		ok := func(c *gin.Context) { c.Status(http.StatusOK) }
		router.GET("/admin/users", ok)
		router.GET("/bookings", ok)
		router.GET("/partner/gyms/:gymID", ok)
		return router
	}

	tests := []struct {
		name   string
		actor  *Actor
		path   string
		status int
	}{
		{"no actor", nil, "/bookings", http.StatusUnauthorized},
		{"user books", &Actor{UserID: 1, Role: RoleUser}, "/bookings", http.StatusOK},
		{"user admin area", &Actor{UserID: 1, Role: RoleUser}, "/admin/users", http.StatusForbidden},
		{"partner own area", &Actor{UserID: 2, Role: RolePartner}, "/partner/gyms/3", http.StatusOK},
		{"support bookings", &Actor{UserID: 3, Role: RoleSupport}, "/bookings", http.StatusForbidden},
		{"admin everywhere", &Actor{UserID: 4, Role: RoleAdmin}, "/admin/users", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			newRouter(tt.actor).ServeHTTP(w, httptest.NewRequest("GET", tt.path, nil))
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestGetUserID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := GetUserID(c)
	assert.False(t, ok)

	SetActor(c, Actor{UserID: 9, Role: RoleUser})
	id, ok := GetUserID(c)
	assert.True(t, ok)
	assert.Equal(t, 9, id)

	SetActor(c, Actor{UserID: 0, Role: RoleUser})
	_, ok = GetUserID(c)
	assert.False(t, ok)
}
