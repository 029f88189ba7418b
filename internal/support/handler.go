package support

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fitclub/internal/api"
	"fitclub/internal/auth"
	"fitclub/internal/logger"
)

const pingInterval = 25 * time.Second

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
	case errors.Is(err, ErrTicketNotFound):
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Ticket not found"})
	case errors.Is(err, ErrTicketClosed):
		c.JSON(http.StatusConflict, api.ErrorResponse{Error: "Ticket is closed"})
	default:
		logger.Error(fallback, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: fallback})
	}
}

// CreateTicket godoc
// @Summary      Open a support ticket
// @Tags         support
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CreateTicketRequest  true  "Ticket"
// @Success      201      {object}  Ticket
// @Failure      400      {object}  api.ErrorResponse
// @Failure      401      {object}  api.ErrorResponse
// @Router       /support/tickets [post]
func (h *Handler) CreateTicket(c *gin.Context) {
	actor, _ := auth.ActorFrom(c)

	var req CreateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	t, err := h.service.OpenTicket(c.Request.Context(), actor, req)
	if err != nil {
		writeError(c, err, "Failed to open ticket")
		return
	}

	c.JSON(http.StatusCreated, t)
}

// ListMyTickets godoc
// @Summary      List my support tickets
// @Tags         support
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   Ticket
// @Router       /support/tickets [get]
func (h *Handler) ListMyTickets(c *gin.Context) {
	actor, _ := auth.ActorFrom(c)

	tickets, err := h.service.MyTickets(c.Request.Context(), actor)
	if err != nil {
		writeError(c, err, "Failed to list tickets")
		return
	}

	c.JSON(http.StatusOK, tickets)
}

// ListMessages godoc
// @Summary      Ticket conversation
// @Tags         support
// @Security     BearerAuth
// @Produce      json
// @Param        ticketID  path      int  true  "Ticket ID"
// @Success      200       {array}   Message
// @Failure      404       {object}  api.ErrorResponse
// @Router       /support/tickets/{ticketID}/messages [get]
func (h *Handler) ListMessages(c *gin.Context) {
	actor, _ := auth.ActorFrom(c)

	ticketID, ok := api.ParseID(c, "ticketID")
	if !ok {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid ticket ID"})
		return
	}

	messages, err := h.service.Messages(c.Request.Context(), actor, ticketID)
	if err != nil {
		writeError(c, err, "Failed to list messages")
		return
	}

	c.JSON(http.StatusOK, messages)
}

// PostMessage godoc
// @Summary      Write to a ticket
// @Description  Used by ticket owners and by support staff replying to them.
// @Tags         support
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        ticketID  path      int                 true  "Ticket ID"
// @Param        request   body      PostMessageRequest  true  "Message"
// @Success      201       {object}  Message
// @Failure      404       {object}  api.ErrorResponse
// @Failure      409       {object}  api.ErrorResponse
// @Router       /support/tickets/{ticketID}/messages [post]
func (h *Handler) PostMessage(c *gin.Context) {
	actor, _ := auth.ActorFrom(c)

	ticketID, ok := api.ParseID(c, "ticketID")
	if !ok {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid ticket ID"})
		return
	}

	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	m, err := h.service.PostMessage(c.Request.Context(), actor, ticketID, req.Body)
	if err != nil {
		writeError(c, err, "Failed to post message")
		return
	}

	c.JSON(http.StatusCreated, m)
}

// StreamTicket godoc
// @Summary      Live ticket messages
// @Description  Server-sent events, one "message" event per new message.
// @Tags         support
// @Security     BearerAuth
// @Produce      text/event-stream
// @Param        ticketID  path  int  true  "Ticket ID"
// @Success      200
// @Failure      404  {object}  api.ErrorResponse
// @Router       /support/tickets/{ticketID}/stream [get]
func (h *Handler) StreamTicket(c *gin.Context) {
	actor, _ := auth.ActorFrom(c)

	ticketID, ok := api.ParseID(c, "ticketID")
	if !ok {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid ticket ID"})
		return
	}

	ctx := c.Request.Context()
	messages, err := h.service.Stream(ctx, actor, ticketID)
	if err != nil {
		writeError(c, err, "Failed to open stream")
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			c.SSEvent("ping", time.Now().Unix())
		case m, ok := <-messages:
			if !ok {
				return
			}
			c.SSEvent("message", m)
		}
		c.Writer.Flush()
	}
}

// ListTickets godoc
// @Summary      Support queue
// @Tags         staff
// @Security     BearerAuth
// @Produce      json
// @Param        status  query     string  false  "open or closed"  default(open)
// @Success      200     {array}   Ticket
// @Failure      400     {object}  api.ErrorResponse
// @Router       /staff/tickets [get]
func (h *Handler) ListTickets(c *gin.Context) {
	status := TicketStatus(c.DefaultQuery("status", string(StatusOpen)))
	if status != StatusOpen && status != StatusClosed {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "status must be open or closed"})
		return
	}

	tickets, err := h.service.Queue(c.Request.Context(), status)
	if err != nil {
		writeError(c, err, "Failed to list tickets")
		return
	}

	c.JSON(http.StatusOK, tickets)
}

// CloseTicket godoc
// @Summary      Close a ticket
// @Tags         staff
// @Security     BearerAuth
// @Produce      json
// @Param        ticketID  path      int  true  "Ticket ID"
// @Success      200       {object}  Ticket
// @Failure      404       {object}  api.ErrorResponse
// @Router       /staff/tickets/{ticketID}/close [post]
func (h *Handler) CloseTicket(c *gin.Context) {
	actor, _ := auth.ActorFrom(c)

	ticketID, ok := api.ParseID(c, "ticketID")
	if !ok {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid ticket ID"})
		return
	}

	t, err := h.service.CloseTicket(c.Request.Context(), actor, ticketID)
	if err != nil {
		writeError(c, err, "Failed to close ticket")
		return
	}

	c.JSON(http.StatusOK, t)
}
