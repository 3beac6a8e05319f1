package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/manhle/roomchat-server/internal/auth"
	"github.com/manhle/roomchat-server/internal/config"
	"github.com/manhle/roomchat-server/internal/core"
	"github.com/manhle/roomchat-server/internal/presence"
	"github.com/manhle/roomchat-server/internal/service/messages"
)

// NewServer builds the HTTP server with all routes.
func NewServer(
	cfg config.Config,
	authService *auth.Service,
	messageService *messages.Service,
	tracker *presence.Tracker,
	manager *core.Manager,
	logger *zerolog.Logger,
) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	api := NewAPIHandlers(authService, tracker, logger)
	msg := NewMessageHandlers(messageService, logger)
	ws := NewWSHandler(cfg, authService, messageService, tracker, manager, logger)

	router.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})

	router.POST("/register", api.Register)
	router.POST("/login", api.Login)

	authed := router.Group("/", AuthMiddleware(authService, logger))
	authed.POST("/heartbeat", api.Heartbeat)
	authed.GET("/messages/:room_id", msg.History)

	// Token arrives as a query parameter; the handler runs the shared
	// validator itself.
	router.GET("/ws/:room_id", ws.Handle)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
