package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/deskline/deskline-server/internal/core"
)

// TicketHandlers provides HTTP handlers for ticket discovery endpoints.
type TicketHandlers struct {
	router *core.Router
	log    *zerolog.Logger
}

// NewTicketHandlers creates a new ticket handlers instance.
func NewTicketHandlers(router *core.Router, logger *zerolog.Logger) *TicketHandlers {
	return &TicketHandlers{
		router: router,
		log:    logger,
	}
}

// TicketResponse represents a ticket in API responses.
type TicketResponse struct {
	Room      string `json:"room"`
	User      string `json:"user"`
	Message   string `json:"message"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
}

func ticketResponse(t core.Ticket) TicketResponse {
	return TicketResponse{
		Room:      t.RoomID,
		User:      t.Requester,
		Message:   t.InitialMessage.Body,
		Status:    string(t.Status),
		CreatedAt: t.CreatedAt.Unix(),
	}
}

// ListTickets returns all currently open tickets in creation order.
// GET /api/tickets
func (h *TicketHandlers) ListTickets(c *gin.Context) {
	open := h.router.OpenTickets()

	response := make([]TicketResponse, 0, len(open))
	for _, t := range open {
		response = append(response, ticketResponse(t))
	}
	c.JSON(http.StatusOK, response)
}

// LookupTicket returns the latest ticket opened by a requester, used for
// prior context before claiming.
// GET /api/tickets/user/:username
func (h *TicketHandlers) LookupTicket(c *gin.Context) {
	username := c.Param("username")

	ticket, err := h.router.LookupTicket(username)
	if err != nil {
		if errors.Is(err, core.ErrTicketNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "ticket not found"})
			return
		}
		h.log.Error().Err(err).Str("username", username).Msg("failed to lookup ticket")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, ticketResponse(*ticket))
}
