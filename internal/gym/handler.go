package gym

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"fitclub/internal/api"
	"fitclub/internal/auth"
	"fitclub/internal/logger"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{
		service: service,
	}
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrGymNotFound):
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Gym not found"})
	case errors.Is(err, ErrNotGymOwner):
		c.JSON(http.StatusForbidden, api.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ErrClassInvalid):
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
	default:
		logger.Error(fallback, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: fallback})
	}
}

// @Summary      Search gyms
// @Description  Paginated gym search ordered by rating.
// @Tags         gyms
// @Produce      json
// @Security     BearerAuth
// @Param        q          query     string  false  "Name contains"
// @Param        city       query     string  false  "City"
// @Param        category   query     string  false  "Category"
// @Param        page       query     int     false  "Page (from 1)"
// @Param        page_size  query     int     false  "Page size (1..100)"
// @Success      200 {object} api.Page[gym.Gym]
// @Failure      400 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /gyms [get]
func (h *Handler) SearchGyms(c *gin.Context) {
	p, err := api.ParsePagination(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	f := SearchFilter{
		Query:    c.Query("q"),
		City:     c.Query("city"),
		Category: c.Query("category"),
		Page:     p.Page,
		PageSize: p.PageSize,
	}

	gyms, total, err := h.service.Search(c.Request.Context(), f)
	if err != nil {
		writeError(c, err, "Failed to fetch gyms")
		return
	}

	c.JSON(http.StatusOK, api.NewPage(gyms, p.Page, p.PageSize, total))
}

// @Summary      Get gym
// @Tags         gyms
// @Produce      json
// @Security     BearerAuth
// @Param        gymID path int true "Gym ID"
// @Success      200 {object} gym.Gym
// @Failure      400 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Router       /gyms/{gymID} [get]
func (h *Handler) GetGym(c *gin.Context) {
	gymID, ok := api.ParseID(c, "gymID")
	if !ok {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid gym ID"})
		return
	}

	g, err := h.service.GetGym(c.Request.Context(), gymID)
	if err != nil {
		writeError(c, err, "Failed to fetch gym")
		return
	}

	c.JSON(http.StatusOK, g)
}

// @Summary      List classes of a gym
// @Description  Upcoming classes with remaining seats. Pass all=true to include past classes.
// @Tags         gyms
// @Produce      json
// @Security     BearerAuth
// @Param        gymID path  int   true  "Gym ID"
// @Param        all   query bool  false "Include past classes"
// @Success      200 {array} gym.ClassWithAvailability
// @Failure      400 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /gyms/{gymID}/classes [get]
func (h *Handler) GetClasses(c *gin.Context) {
	gymID, ok := api.ParseID(c, "gymID")
	if !ok {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid gym ID"})
		return
	}

	onlyFuture := c.Query("all") != "true"

	classes, err := h.service.GetClasses(c.Request.Context(), gymID, onlyFuture)
	if err != nil {
		writeError(c, err, "Failed to fetch classes")
		return
	}

	c.JSON(http.StatusOK, classes)
}

// @Summary      Create a gym
// @Description  Partners create gyms they manage; admins may assign partner_id.
// @Tags         partner,admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body gym.CreateGymRequest true "Gym payload"
// @Success      201 {object} gym.Gym
// @Failure      400 {object} api.ErrorResponse
// @Failure      401 {object} api.ErrorResponse
// @Failure      403 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /partner/gyms [post]
// @Router       /admin/gyms [post]
func (h *Handler) CreateGym(c *gin.Context) {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: auth.ErrNotAuthenticated.Error()})
		return
	}

	var req CreateGymRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	g, err := h.service.CreateGym(c.Request.Context(), actor, req)
	if err != nil {
		writeError(c, err, "Failed to create gym")
		return
	}

	c.JSON(http.StatusCreated, g)
}

// @Summary      Update a gym
// @Tags         partner
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        gymID   path int                   true "Gym ID"
// @Param        request body gym.UpdateGymRequest  true "Gym payload"
// @Success      200 {object} gym.Gym
// @Failure      400 {object} api.ErrorResponse
// @Failure      403 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /partner/gyms/{gymID} [put]
func (h *Handler) UpdateGym(c *gin.Context) {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: auth.ErrNotAuthenticated.Error()})
		return
	}

	gymID, ok := api.ParseID(c, "gymID")
	if !ok {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid gym ID"})
		return
	}

	var req UpdateGymRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	g, err := h.service.UpdateGym(c.Request.Context(), actor, gymID, req)
	if err != nil {
		writeError(c, err, "Failed to update gym")
		return
	}

	c.JSON(http.StatusOK, g)
}

// @Summary      List my gyms
// @Tags         partner
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} gym.Gym
// @Failure      401 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /partner/gyms [get]
func (h *Handler) ListMyGyms(c *gin.Context) {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: auth.ErrNotAuthenticated.Error()})
		return
	}

	gyms, err := h.service.ListMyGyms(c.Request.Context(), actor)
	if err != nil {
		writeError(c, err, "Failed to fetch gyms")
		return
	}

	c.JSON(http.StatusOK, gyms)
}

// @Summary      Create a class
// @Tags         partner
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        gymID   path int                      true "Gym ID"
// @Param        request body gym.CreateClassRequest   true "Class payload"
// @Success      201 {object} gym.Class
// @Failure      400 {object} api.ErrorResponse
// @Failure      403 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /partner/gyms/{gymID}/classes [post]
func (h *Handler) CreateClass(c *gin.Context) {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: auth.ErrNotAuthenticated.Error()})
		return
	}

	gymID, ok := api.ParseID(c, "gymID")
	if !ok {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid gym ID"})
		return
	}

	var req CreateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	class, err := h.service.CreateClass(c.Request.Context(), actor, gymID, req)
	if err != nil {
		writeError(c, err, "Failed to create class")
		return
	}

	c.JSON(http.StatusCreated, class)
}
