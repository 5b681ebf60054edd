package http

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/khadijauser/chat-app/internal/adapters/ws"
	"github.com/khadijauser/chat-app/internal/auth"
	"github.com/khadijauser/chat-app/internal/config"
)

func SetupRouter(cfg *config.Config, h *Handlers, tokens *auth.TokenManager, wsCtrl *ws.Controller) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(CORS())

	authed := RequireAuth(tokens)

	api := r.Group("/api")
	api.POST("/auth/register", h.register)
	api.POST("/auth/login", h.login)
	api.GET("/auth/me", authed, h.me)

	api.POST("/rooms", authed, h.createRoom)
	api.POST("/rooms/join", authed, h.joinRoom)
	api.GET("/rooms/user/:id", authed, h.userRooms)
	api.GET("/rooms/:id", authed, h.roomDetails)
	api.GET("/rooms/:id/messages", authed, h.roomMessages)
	api.GET("/users/:id/stats", authed, h.userStats)

	r.GET("/ws", authed, func(c *gin.Context) {
		userID, username := Identity(c)
		wsCtrl.Handle(c, userID, username)
	})

	log.Info().Str("module", "adapters.http").Msg("router setup")
	return r
}
