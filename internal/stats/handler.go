package stats

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"fitclub/internal/api"
	"fitclub/internal/auth"
	"fitclub/internal/logger"
)

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// GetMyStats godoc
// @Summary      Get my workout statistics
// @Description  Returns booking and workout counters of the current user. Users without activity get zeroed stats.
// @Tags         users
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  Response
// @Failure      401  {object}  api.ErrorResponse
// @Failure      500  {object}  api.ErrorResponse
// @Router       /me/stats [get]
func (h *Handler) GetMyStats(c *gin.Context) {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: auth.ErrNotAuthenticated.Error()})
		return
	}

	s, err := h.repo.Get(c.Request.Context(), actor.UserID)
	if err != nil {
		if errors.Is(err, ErrStatsNotFound) {
			c.JSON(http.StatusOK, UserStats{UserID: actor.UserID}.ToResponse())
			return
		}
		logger.Error("Failed to load stats", "user_id", actor.UserID, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to load stats"})
		return
	}

	c.JSON(http.StatusOK, s.ToResponse())
}
