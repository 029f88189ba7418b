package booking

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
	"fitclub/internal/gym"
	"fitclub/internal/subscription"
)

func setupBookingRouter(f *fixture, actor *auth.Actor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewHandler(f.svc)

	if actor != nil {
		router.Use(func(c *gin.Context) {
			auth.SetActor(c, *actor)
			c.Next()
		})
	}
	router.POST("/bookings", h.CreateBooking)
	router.GET("/bookings", h.ListMyBookings)
	router.POST("/bookings/:bookingID/cancel", h.CancelBooking)
	router.POST("/partner/bookings/:bookingID/complete", h.CompleteBooking)
	router.GET("/partner/gyms/:gymID/bookings/export", h.ExportGymBookings)
	router.GET("/admin/analytics/bookings", h.Analytics)
	return router
}

func postJSON(t *testing.T, path string, body interface{}) *http.Request {
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestCreateBooking_Handler(t *testing.T) {
	f := newFixture()
	f.tiers.On("TierFor", mock.Anything, member.UserID).Return(subscription.TierRegular, nil)
	f.usage.On("CountBookedBetween", mock.Anything, member.UserID, mock.Anything, mock.Anything).Return(0, nil)
	f.repo.On("ClassSnapshot", mock.Anything, 1).Return(openClass(0, 10), nil)
	f.repo.On("HasBookingAt", mock.Anything, 1, mock.Anything, (*int)(nil)).Return(false, nil)
	f.repo.On("Admit", mock.Anything, mock.Anything).Return(&Booking{ID: 100, UserID: member.UserID, Status: StatusBooked}, nil)

	w := httptest.NewRecorder()
	setupBookingRouter(f, &member).ServeHTTP(w, postJSON(t, "/bookings", classRequest(1, classStart)))

	require.Equal(t, http.StatusCreated, w.Code)
	var b Booking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	assert.Equal(t, 100, b.ID)
}

func TestCreateBooking_Handler_Unauthenticated(t *testing.T) {
	f := newFixture()

	w := httptest.NewRecorder()
	setupBookingRouter(f, nil).ServeHTTP(w, postJSON(t, "/bookings", classRequest(1, classStart)))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateBooking_Handler_LimitReached(t *testing.T) {
	f := newFixture()
	f.tiers.On("TierFor", mock.Anything, member.UserID).Return(subscription.TierBasic, nil)
	f.usage.On("CountBookedBetween", mock.Anything, member.UserID, mock.Anything, mock.Anything).Return(4, nil)

	w := httptest.NewRecorder()
	setupBookingRouter(f, &member).ServeHTTP(w, postJSON(t, "/bookings", classRequest(1, classStart)))

	require.Equal(t, http.StatusConflict, w.Code)
	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, subscription.LimitMessage(subscription.TierBasic), resp.Error)
}

func TestCreateBooking_Handler_Conflict(t *testing.T) {
	f := newFixture()
	f.tiers.On("TierFor", mock.Anything, member.UserID).Return(subscription.TierBasic, nil)
	f.usage.On("CountBookedBetween", mock.Anything, member.UserID, mock.Anything, mock.Anything).Return(0, nil)
	f.repo.On("ClassSnapshot", mock.Anything, 1).Return(openClass(10, 10), nil)

	w := httptest.NewRecorder()
	setupBookingRouter(f, &member).ServeHTTP(w, postJSON(t, "/bookings", classRequest(1, classStart)))

	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), ErrBookingConflict.Error())
}

func TestCreateBooking_Handler_BadBody(t *testing.T) {
	f := newFixture()

	w := httptest.NewRecorder()
	setupBookingRouter(f, &member).ServeHTTP(w, postJSON(t, "/bookings", map[string]string{"booking_type": "spa"}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelBooking_Handler(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		setupMock  func(*MockRepository)
		wantStatus int
	}{
		{
			name: "cancelled",
			path: "/bookings/100/cancel",
			setupMock: func(m *MockRepository) {
				m.On("Cancel", mock.Anything, member.UserID, 100).Return(&Booking{ID: 100}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "not found",
			path: "/bookings/100/cancel",
			setupMock: func(m *MockRepository) {
				m.On("Cancel", mock.Anything, member.UserID, 100).Return(nil, ErrBookingNotFound)
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "bad id",
			path:       "/bookings/abc/cancel",
			setupMock:  func(m *MockRepository) {},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tt.setupMock(f.repo)

			w := httptest.NewRecorder()
			setupBookingRouter(f, &member).ServeHTTP(w, httptest.NewRequest(http.MethodPost, tt.path, nil))

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestCompleteBooking_Handler_Forbidden(t *testing.T) {
	f := newFixture()
	f.repo.On("GetDetails", mock.Anything, 100).Return(&BookingWithDetails{Booking: Booking{ID: 100}, VenueID: 5}, nil)
	f.gyms.On("EnsureManager", mock.Anything, partner, 5).Return(nil, gym.ErrNotGymOwner)

	w := httptest.NewRecorder()
	setupBookingRouter(f, &partner).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/partner/bookings/100/complete", nil))

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestExportGymBookings_Handler(t *testing.T) {
	f := newFixture()
	f.gyms.On("EnsureManager", mock.Anything, partner, 5).Return(&gym.Gym{ID: 5}, nil)
	f.repo.On("ListByGym", mock.Anything, 5).Return([]BookingWithDetails{
		{Booking: Booking{ID: 1, BookingType: TypeGymVisit, Status: StatusBooked, DateTime: classStart, CreatedAt: classStart}},
	}, nil)

	w := httptest.NewRecorder()
	setupBookingRouter(f, &partner).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/partner/gyms/5/bookings/export", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "gym-5-bookings-")
	assert.NotZero(t, w.Body.Len())
}

func TestAnalytics_Handler(t *testing.T) {
	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

	t.Run("by gym", func(t *testing.T) {
		f := newFixture()
		f.repo.On("StatsByGym", mock.Anything, from, to).
			Return([]BookingStatsByGym{{GymID: 5, GymName: "Iron", BookingsActive: 3}}, nil)

		w := httptest.NewRecorder()
		path := "/admin/analytics/bookings?group_by=gym&from=2024-06-01T00:00:00Z&to=2024-06-30T00:00:00Z"
		setupBookingRouter(f, nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

		require.Equal(t, http.StatusOK, w.Code)
		var stats []BookingStatsByGym
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
		require.Len(t, stats, 1)
		assert.Equal(t, 3, stats[0].BookingsActive)
	})

	t.Run("unknown grouping", func(t *testing.T) {
		w := httptest.NewRecorder()
		setupBookingRouter(newFixture(), nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/analytics/bookings?group_by=week", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("inverted range", func(t *testing.T) {
		w := httptest.NewRecorder()
		path := "/admin/analytics/bookings?from=2024-06-30T00:00:00Z&to=2024-06-01T00:00:00Z"
		setupBookingRouter(newFixture(), nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
