package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/deskline/deskline-server/internal/auth"
	"github.com/deskline/deskline-server/internal/config"
	"github.com/deskline/deskline-server/internal/core"
)

// NewServer builds the HTTP server: REST API for identity and ticket
// discovery, WebSocket endpoint for the chat protocol.
func NewServer(registry *core.Registry, router *core.Router, authService *auth.Service, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), LoggerMiddleware(logger))

	engine.GET("/healthz", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})

	apiHandlers := NewAPIHandlers(authService, logger)
	ticketHandlers := NewTicketHandlers(router, logger)

	api := engine.Group("/api")
	api.POST("/register", apiHandlers.Register)
	api.POST("/login", apiHandlers.Login)
	api.POST("/guest", apiHandlers.GuestLogin)

	agentAPI := api.Group("", AuthMiddleware(authService, logger), RequireAgent(logger))
	agentAPI.GET("/tickets", ticketHandlers.ListTickets)
	agentAPI.GET("/tickets/user/:username", ticketHandlers.LookupTicket)

	engine.GET("/ws", gin.WrapH(NewWSHandler(registry, router, authService, logger)))

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           engine,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
