package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/salon-chat/salon-server/internal/auth"
	"github.com/salon-chat/salon-server/internal/config"
	"github.com/salon-chat/salon-server/internal/core"
	"github.com/salon-chat/salon-server/internal/store"
)

// NewServer builds the HTTP server: static client assets, the WebSocket
// endpoint and the authenticated upload API.
func NewServer(hub *core.Hub, authService *auth.Service, st store.Store, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/health", healthHandler)
	router.GET("/ws", gin.WrapH(NewWSHandler(hub, authService, logger)))
	router.Static("/uploads", cfg.UploadDir)

	uploads := NewUploadHandlers(st, hub, cfg, logger)
	api := router.Group("/api")
	api.POST("/upload", AuthMiddleware(authService, logger), uploads.Upload)

	// Client assets at the root; registered routes take precedence.
	router.NoRoute(gin.WrapH(stdhttp.FileServer(stdhttp.Dir(cfg.StaticDir))))

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
