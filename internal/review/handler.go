package review

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"fitclub/internal/api"
	"fitclub/internal/auth"
	"fitclub/internal/gym"
	"fitclub/internal/logger"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, auth.ErrNotAuthenticated):
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ErrDuplicateReview):
		c.JSON(http.StatusConflict, api.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ErrReviewNotFound):
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Review not found"})
	case errors.Is(err, gym.ErrGymNotFound):
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Gym not found"})
	default:
		logger.Error(fallback, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: fallback})
	}
}

// CreateReview godoc
// @Summary      Review a gym
// @Description  One review per user and gym. The gym rating is recomputed in the background.
// @Tags         reviews
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        gymID    path      int                  true  "Gym ID"
// @Param        request  body      CreateReviewRequest  true  "Review"
// @Success      201      {object}  Review
// @Failure      400      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /gyms/{gymID}/reviews [post]
func (h *Handler) CreateReview(c *gin.Context) {
	actor, _ := auth.ActorFrom(c)

	gymID, ok := api.ParseID(c, "gymID")
	if !ok {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid gym ID"})
		return
	}

	var req CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	rev, err := h.service.Create(c.Request.Context(), actor, gymID, req)
	if err != nil {
		writeError(c, err, "Failed to create review")
		return
	}

	c.JSON(http.StatusCreated, rev)
}

// ListReviews godoc
// @Summary      List reviews of a gym
// @Tags         reviews
// @Produce      json
// @Param        gymID  path      int  true  "Gym ID"
// @Success      200    {array}   ReviewWithAuthor
// @Failure      400    {object}  api.ErrorResponse
// @Failure      500    {object}  api.ErrorResponse
// @Router       /gyms/{gymID}/reviews [get]
func (h *Handler) ListReviews(c *gin.Context) {
	gymID, ok := api.ParseID(c, "gymID")
	if !ok {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid gym ID"})
		return
	}

	reviews, err := h.service.ListByGym(c.Request.Context(), gymID)
	if err != nil {
		writeError(c, err, "Failed to fetch reviews")
		return
	}

	c.JSON(http.StatusOK, reviews)
}

// DeleteReview godoc
// @Summary      Delete a review
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        reviewID  path      int  true  "Review ID"
// @Success      200       {object}  api.MessageResponse
// @Failure      404       {object}  api.ErrorResponse
// @Failure      500       {object}  api.ErrorResponse
// @Router       /admin/reviews/{reviewID} [delete]
func (h *Handler) DeleteReview(c *gin.Context) {
	actor, _ := auth.ActorFrom(c)

	id, ok := api.ParseID(c, "reviewID")
	if !ok {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid review ID"})
		return
	}

	if err := h.service.Delete(c.Request.Context(), actor, id); err != nil {
		writeError(c, err, "Failed to delete review")
		return
	}

	c.JSON(http.StatusOK, api.MessageResponse{Message: "Review deleted"})
}
