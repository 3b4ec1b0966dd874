package http

import (
	"fmt"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/roomchat/roomchat-server/internal/auth"
	"github.com/roomchat/roomchat-server/internal/config"
	"github.com/roomchat/roomchat-server/internal/core"
	"github.com/roomchat/roomchat-server/internal/metrics"
	"github.com/roomchat/roomchat-server/internal/store"
)

// NewServer builds the HTTP server: REST API, metrics and the WebSocket
// upgrade endpoint.
func NewServer(hub *core.Hub, authService *auth.Service, st store.Store, m *metrics.Metrics, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/health", healthHandler)
	if m != nil {
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}

	apiHandlers := NewAPIHandlers(authService, logger)
	api := router.Group("/api")
	{
		api.POST("/register", apiHandlers.Register)
		api.POST("/login", apiHandlers.Login)
		api.POST("/guest", apiHandlers.Guest)
	}

	chatHandlers := NewChatHandlers(st, cfg.HistoryLimit, logger)
	chat := api.Group("/chat", AuthMiddleware(authService, logger))
	{
		chat.GET("/:room", chatHandlers.RoomHistory)
		chat.POST("", chatHandlers.PostMessage)
	}

	router.GET("/ws", gin.WrapH(NewWSHandler(hub, logger)))

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	fmt.Fprint(c.Writer, "ok")
}
