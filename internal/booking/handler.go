package booking

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fitclub/internal/api"
	"fitclub/internal/auth"
	"fitclub/internal/gym"
	"fitclub/internal/logger"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func writeError(c *gin.Context, err error, fallback string) {
	var limitErr *LimitError
	switch {
	case errors.Is(err, auth.ErrNotAuthenticated):
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: err.Error()})
	case errors.As(err, &limitErr):
		c.JSON(http.StatusConflict, api.ErrorResponse{Error: limitErr.Message})
	case errors.Is(err, ErrBookingConflict), errors.Is(err, ErrBookingNotActive):
		c.JSON(http.StatusConflict, api.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ErrInvalidBooking), errors.Is(err, ErrInvalidDateTime), errors.Is(err, ErrNotClassBooking):
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ErrBookingNotFound):
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Booking not found"})
	case errors.Is(err, gym.ErrGymNotFound):
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Gym not found"})
	case errors.Is(err, gym.ErrClassNotFound):
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Class not found"})
	case errors.Is(err, gym.ErrNotGymOwner):
		c.JSON(http.StatusForbidden, api.ErrorResponse{Error: err.Error()})
	default:
		logger.Error(fallback, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: fallback})
	}
}

// CreateBooking godoc
// @Summary      Book a class or a gym visit
// @Description  Checks the monthly subscription quota and, for classes, capacity and time conflicts before booking.
// @Tags         bookings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CreateBookingRequest  true  "Booking"
// @Success      201      {object}  Booking
// @Failure      400      {object}  api.ErrorResponse
// @Failure      401      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /bookings [post]
func (h *Handler) CreateBooking(c *gin.Context) {
	actor, _ := auth.ActorFrom(c)

	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	booking, err := h.service.CreateBooking(c.Request.Context(), actor, req)
	if err != nil {
		writeError(c, err, "Failed to create booking")
		return
	}

	c.JSON(http.StatusCreated, booking)
}

// ListMyBookings godoc
// @Summary      List my bookings
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   BookingWithDetails
// @Failure      401  {object}  api.ErrorResponse
// @Failure      500  {object}  api.ErrorResponse
// @Router       /bookings [get]
func (h *Handler) ListMyBookings(c *gin.Context) {
	actor, _ := auth.ActorFrom(c)

	bookings, err := h.service.ListMyBookings(c.Request.Context(), actor)
	if err != nil {
		writeError(c, err, "Failed to fetch bookings")
		return
	}

	c.JSON(http.StatusOK, bookings)
}

// CancelBooking godoc
// @Summary      Cancel booking
// @Description  Cancels an active booking of the current user and releases its class seat.
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        bookingID  path      int  true  "Booking ID"
// @Success      200        {object}  api.MessageResponse
// @Failure      400        {object}  api.ErrorResponse
// @Failure      401        {object}  api.ErrorResponse
// @Failure      404        {object}  api.ErrorResponse
// @Failure      500        {object}  api.ErrorResponse
// @Router       /bookings/{bookingID}/cancel [post]
func (h *Handler) CancelBooking(c *gin.Context) {
	actor, _ := auth.ActorFrom(c)

	bookingID, ok := api.ParseID(c, "bookingID")
	if !ok {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid booking ID"})
		return
	}

	if err := h.service.CancelBooking(c.Request.Context(), actor, bookingID); err != nil {
		writeError(c, err, "Failed to cancel booking")
		return
	}

	c.JSON(http.StatusOK, api.MessageResponse{Message: "Booking cancelled successfully"})
}

// RescheduleBooking godoc
// @Summary      Move a class booking to another time
// @Tags         bookings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        bookingID  path      int                true  "Booking ID"
// @Param        request    body      RescheduleRequest  true  "New time"
// @Success      200        {object}  Booking
// @Failure      400        {object}  api.ErrorResponse
// @Failure      404        {object}  api.ErrorResponse
// @Failure      409        {object}  api.ErrorResponse
// @Failure      500        {object}  api.ErrorResponse
// @Router       /bookings/{bookingID}/reschedule [post]
func (h *Handler) RescheduleBooking(c *gin.Context) {
	actor, _ := auth.ActorFrom(c)

	bookingID, ok := api.ParseID(c, "bookingID")
	if !ok {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid booking ID"})
		return
	}

	var req RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	at, err := time.Parse(time.RFC3339, req.DateTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: ErrInvalidDateTime.Error()})
		return
	}

	booking, err := h.service.RescheduleBooking(c.Request.Context(), actor, bookingID, at)
	if err != nil {
		writeError(c, err, "Failed to reschedule booking")
		return
	}

	c.JSON(http.StatusOK, booking)
}

// CompleteBooking godoc
// @Summary      Mark a booking as attended
// @Tags         partner
// @Security     BearerAuth
// @Produce      json
// @Param        bookingID  path      int  true  "Booking ID"
// @Success      200        {object}  Booking
// @Failure      403        {object}  api.ErrorResponse
// @Failure      404        {object}  api.ErrorResponse
// @Failure      409        {object}  api.ErrorResponse
// @Failure      500        {object}  api.ErrorResponse
// @Router       /partner/bookings/{bookingID}/complete [post]
func (h *Handler) CompleteBooking(c *gin.Context) {
	actor, _ := auth.ActorFrom(c)

	bookingID, ok := api.ParseID(c, "bookingID")
	if !ok {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid booking ID"})
		return
	}

	booking, err := h.service.CompleteBooking(c.Request.Context(), actor, bookingID)
	if err != nil {
		writeError(c, err, "Failed to complete booking")
		return
	}

	c.JSON(http.StatusOK, booking)
}

// ListGymBookings godoc
// @Summary      List bookings of a gym
// @Tags         partner
// @Security     BearerAuth
// @Produce      json
// @Param        gymID  path      int  true  "Gym ID"
// @Success      200    {array}   BookingWithDetails
// @Failure      403    {object}  api.ErrorResponse
// @Failure      404    {object}  api.ErrorResponse
// @Failure      500    {object}  api.ErrorResponse
// @Router       /partner/gyms/{gymID}/bookings [get]
func (h *Handler) ListGymBookings(c *gin.Context) {
	actor, _ := auth.ActorFrom(c)

	gymID, ok := api.ParseID(c, "gymID")
	if !ok {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid gym ID"})
		return
	}

	bookings, err := h.service.ListGymBookings(c.Request.Context(), actor, gymID)
	if err != nil {
		writeError(c, err, "Failed to fetch bookings")
		return
	}

	c.JSON(http.StatusOK, bookings)
}

// ListClassBookings godoc
// @Summary      List bookings of a class
// @Tags         partner
// @Security     BearerAuth
// @Produce      json
// @Param        classID  path      int  true  "Class ID"
// @Success      200      {array}   BookingWithDetails
// @Failure      403      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /partner/classes/{classID}/bookings [get]
func (h *Handler) ListClassBookings(c *gin.Context) {
	actor, _ := auth.ActorFrom(c)

	classID, ok := api.ParseID(c, "classID")
	if !ok {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid class ID"})
		return
	}

	bookings, err := h.service.ListClassBookings(c.Request.Context(), actor, classID)
	if err != nil {
		writeError(c, err, "Failed to fetch bookings")
		return
	}

	c.JSON(http.StatusOK, bookings)
}

// ExportGymBookings godoc
// @Summary      Export bookings of a gym as XLSX
// @Tags         partner
// @Security     BearerAuth
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        gymID  path  int  true  "Gym ID"
// @Success      200    {file}    file
// @Failure      403    {object}  api.ErrorResponse
// @Failure      404    {object}  api.ErrorResponse
// @Failure      500    {object}  api.ErrorResponse
// @Router       /partner/gyms/{gymID}/bookings/export [get]
func (h *Handler) ExportGymBookings(c *gin.Context) {
	actor, _ := auth.ActorFrom(c)

	gymID, ok := api.ParseID(c, "gymID")
	if !ok {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid gym ID"})
		return
	}

	var buf bytes.Buffer
	if err := h.service.ExportGymBookings(c.Request.Context(), actor, gymID, &buf); err != nil {
		writeError(c, err, "Failed to export bookings")
		return
	}

	filename := fmt.Sprintf("gym-%d-bookings-%s.xlsx", gymID, time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// Analytics godoc
// @Summary      Booking analytics
// @Description  Booking counts by status grouped by creation day or by gym.
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        group_by  query     string  false  "day or gym"  Enums(day, gym)
// @Param        from      query     string  false  "RFC3339, defaults to 30 days ago"
// @Param        to        query     string  false  "RFC3339, defaults to now"
// @Success      200       {array}   BookingStatsByBucket
// @Failure      400       {object}  api.ErrorResponse
// @Failure      500       {object}  api.ErrorResponse
// @Router       /admin/analytics/bookings [get]
func (h *Handler) Analytics(c *gin.Context) {
	to := time.Now()
	from := to.AddDate(0, 0, -30)

	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid from"})
			return
		}
		from = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid to"})
			return
		}
		to = t
	}
	if to.Before(from) {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "to must not be before from"})
		return
	}

	ctx := c.Request.Context()
	switch c.DefaultQuery("group_by", "day") {
	case "day":
		stats, err := h.service.StatsByDay(ctx, from, to)
		if err != nil {
			writeError(c, err, "Failed to load analytics")
			return
		}
		c.JSON(http.StatusOK, stats)
	case "gym":
		stats, err := h.service.StatsByGym(ctx, from, to)
		if err != nil {
			writeError(c, err, "Failed to load analytics")
			return
		}
		c.JSON(http.StatusOK, stats)
	default:
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "group_by must be day or gym"})
	}
}
