package subscription

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
	return &Handler{service: service}
}

// ListPlans godoc
// @Summary      List subscription plans
// @Tags         subscriptions
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}  Plan
// @Router       /subscriptions/plans [get]
func (h *Handler) ListPlans(c *gin.Context) {
	c.JSON(http.StatusOK, Plans())
}

// Create godoc
// @Summary      Subscribe to a plan
// @Description  Starts a subscription now. An existing active subscription is cancelled first.
// @Tags         subscriptions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CreateRequest  true  "Plan tier and duration"
// @Success      201      {object}  Subscription
// @Failure      400      {object}  api.ErrorResponse
// @Failure      401      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /subscriptions [post]
func (h *Handler) Create(c *gin.Context) {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: auth.ErrNotAuthenticated.Error()})
		return
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	tier, _ := ParseTier(req.Tier)
	sub, err := h.service.Subscribe(c.Request.Context(), actor, tier, req.Months)
	if err != nil {
		if errors.Is(err, ErrUnknownTier) {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
			return
		}
		logger.Error("Failed to create subscription", "user_id", actor.UserID, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to create subscription"})
		return
	}

	c.JSON(http.StatusCreated, sub)
}

// ListMy godoc
// @Summary      List my subscriptions
// @Tags         subscriptions
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   Subscription
// @Failure      401  {object}  api.ErrorResponse
// @Failure      500  {object}  api.ErrorResponse
// @Router       /subscriptions [get]
func (h *Handler) ListMy(c *gin.Context) {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: auth.ErrNotAuthenticated.Error()})
		return
	}

	subs, err := h.service.ListMine(c.Request.Context(), actor)
	if err != nil {
		logger.Error("Failed to list subscriptions", "user_id", actor.UserID, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to load subscriptions"})
		return
	}

	c.JSON(http.StatusOK, subs)
}

// Cancel godoc
// @Summary      Cancel my subscription
// @Tags         subscriptions
// @Security     BearerAuth
// @Produce      json
// @Param        subscriptionID  path      int  true  "Subscription ID"
// @Success      200             {object}  api.MessageResponse
// @Failure      400             {object}  api.ErrorResponse
// @Failure      404             {object}  api.ErrorResponse
// @Failure      500             {object}  api.ErrorResponse
// @Router       /subscriptions/{subscriptionID}/cancel [post]
func (h *Handler) Cancel(c *gin.Context) {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: auth.ErrNotAuthenticated.Error()})
		return
	}

	id, ok := api.ParseID(c, "subscriptionID")
	if !ok {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid subscription ID"})
		return
	}

	if err := h.service.Cancel(c.Request.Context(), actor, id); err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Subscription not found"})
			return
		}
		logger.Error("Failed to cancel subscription", "subscription_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to cancel subscription"})
		return
	}

	c.JSON(http.StatusOK, api.MessageResponse{Message: "Subscription cancelled"})
}

// ListAll godoc
// @Summary      List all subscriptions
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        page       query     int  false  "Page"
// @Param        page_size  query     int  false  "Page size"
// @Success      200        {object}  api.Page[Subscription]
// @Failure      400        {object}  api.ErrorResponse
// @Failure      500        {object}  api.ErrorResponse
// @Router       /admin/subscriptions [get]
func (h *Handler) ListAll(c *gin.Context) {
	p, err := api.ParsePagination(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	subs, total, err := h.service.ListAll(c.Request.Context(), p.PageSize, p.Offset())
	if err != nil {
		logger.Error("Failed to list subscriptions", "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to load subscriptions"})
		return
	}

	c.JSON(http.StatusOK, api.NewPage(subs, p.Page, p.PageSize, total))
}
