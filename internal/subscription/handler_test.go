package subscription

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fitclub/internal/api"
	"fitclub/internal/auth"
)

func setupRouter(repo Repository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(NewService(repo))

	r.Use(func(c *gin.Context) {
		auth.SetActor(c, member)
		c.Next()
	})
	r.GET("/subscriptions/plans", h.ListPlans)
	r.POST("/subscriptions", h.Create)
	r.POST("/subscriptions/:subscriptionID/cancel", h.Cancel)
	r.GET("/admin/subscriptions", h.ListAll)
	return r
}

func TestHandler_ListPlans(t *testing.T) {
	r := setupRouter(new(MockRepository))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/subscriptions/plans", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var plans []Plan
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &plans))
	assert.Len(t, plans, 3)
	assert.Equal(t, 999, plans[2].MonthlyBookings)
}

func TestHandler_Create(t *testing.T) {
	repo := new(MockRepository)
	repo.On("Create", mock.Anything, 1, mock.MatchedBy(func(p Plan) bool { return p.Tier == TierBasic }), mock.Anything, mock.Anything).
		Return(&Subscription{ID: 1, UserID: 1, Tier: TierBasic, Status: StatusActive}, nil)
	r := setupRouter(repo)

	body, _ := json.Marshal(CreateRequest{Tier: "basic", Months: 1})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/subscriptions", bytes.NewReader(body)))

	assert.Equal(t, http.StatusCreated, w.Code)
	repo.AssertExpectations(t)
}

func TestHandler_Create_PlanNameComesFromCatalog(t *testing.T) {
	repo := new(MockRepository)
	repo.On("Create", mock.Anything, 1, mock.MatchedBy(func(p Plan) bool {
		return p.Tier == TierPremium && p.Name == "Premium"
	}), mock.Anything, mock.Anything).
		Return(&Subscription{ID: 2, UserID: 1, PlanName: "Premium", Tier: TierPremium, Status: StatusActive}, nil)
	r := setupRouter(repo)

	body := `{"plan_name":"Free Forever","tier":"premium","months":3}`
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/subscriptions", bytes.NewBufferString(body)))

	require.Equal(t, http.StatusCreated, w.Code)
	var sub Subscription
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sub))
	assert.Equal(t, "Premium", sub.PlanName)
	repo.AssertExpectations(t)
}

func TestHandler_Create_InvalidBody(t *testing.T) {
	r := setupRouter(new(MockRepository))

	for _, body := range []string{`{"tier":"gold","months":1}`, `{"tier":"basic","months":13}`, `{}`} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/subscriptions", bytes.NewBufferString(body)))
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestHandler_Cancel_NotFound(t *testing.T) {
	repo := new(MockRepository)
	repo.On("Cancel", mock.Anything, 1, 42).Return(ErrSubscriptionNotFound)
	r := setupRouter(repo)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/subscriptions/42/cancel", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_ListAll(t *testing.T) {
	repo := new(MockRepository)
	now := time.Now()
	repo.On("ListAll", mock.Anything, 10, 10).
		Return([]Subscription{{ID: 11, CreatedAt: now}}, 11, nil)
	r := setupRouter(repo)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/subscriptions?page=2&page_size=10", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var page api.Page[Subscription]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 11, page.Total)
	assert.Equal(t, 2, page.Page)
	require.Len(t, page.Items, 1)
}
