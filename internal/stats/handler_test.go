package stats

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fitclub/internal/auth"
)

func newStatsRouter(repo Repository, actor *auth.Actor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(repo)
	r.GET("/me/stats", func(c *gin.Context) {
		if actor != nil {
			auth.SetActor(c, *actor)
		}
		h.GetMyStats(c)
	})
	return r
}

func TestHandler_GetMyStats_Missing(t *testing.T) {
	repo := new(MockRepository)
	repo.On("Get", mock.Anything, 9).Return(nil, ErrStatsNotFound)

	r := newStatsRouter(repo, &auth.Actor{UserID: 9, Role: auth.RoleUser})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me/stats", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 9, resp.UserID)
	assert.Equal(t, 0, resp.TotalBookings)
	assert.Nil(t, resp.LastWorkoutDate)
}

func TestHandler_GetMyStats_Unauthenticated(t *testing.T) {
	r := newStatsRouter(new(MockRepository), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me/stats", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
