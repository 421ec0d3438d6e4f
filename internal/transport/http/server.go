// Package http serves the local view and control API for the room engine.
package http

import (
	"context"
	stdhttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-client/internal/config"
	"github.com/vovakirdan/wirechat-client/internal/coordinator"
)

const readHeaderTimeout = 5 * time.Second

// Engine runs a function on the coordinator loop.
type Engine interface {
	Do(ctx context.Context, fn func(*coordinator.Coordinator) error) error
}

// NewServer builds the HTTP server for the view API.
func NewServer(engine Engine, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.ViewAddr,
		Handler:           NewRouter(engine, logger),
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// NewRouter registers every view route on a gin engine.
func NewRouter(engine Engine, logger *zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", healthHandler)

	rooms := NewRoomHandlers(engine, logger)
	moderation := NewModerationHandlers(engine, logger)

	api := router.Group("/api")
	{
		api.GET("/rooms", rooms.ListRooms)
		api.POST("/rooms", rooms.OpenRoom)
		api.POST("/rooms/:index/foreground", rooms.SwitchForeground)
		api.POST("/rooms/:index/activate", rooms.ActivateRoom)
		api.DELETE("/rooms/:index", rooms.CloseRoom)
		api.GET("/rooms/:index/messages", rooms.GetRoom)
		api.POST("/rooms/:index/messages", rooms.SendMessage)
		api.POST("/rooms/:index/typing", rooms.SetTyping)

		api.POST("/rooms/:index/votes", moderation.StartVote)
		api.POST("/rooms/:index/votes/:target", moderation.ToggleVote)
		api.POST("/rooms/:index/ban", moderation.Ban)
		api.POST("/rooms/:index/report", moderation.Report)
		api.POST("/rooms/:index/close", moderation.CloseRemote)

		api.GET("/blocks", moderation.ListBlocks)
		api.POST("/blocks/:user", moderation.Block)
		api.DELETE("/blocks/:user", moderation.Unblock)
	}

	return router
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
