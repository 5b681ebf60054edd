package ws

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/khadijauser/chat-app/internal/app"
	"github.com/khadijauser/chat-app/internal/core"
	"github.com/khadijauser/chat-app/internal/domain"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Controller struct {
	svc        *app.Service
	readLimit  int64
	pingPeriod time.Duration
}

func NewController(svc *app.Service, readLimit int64, pingPeriod time.Duration) *Controller {
	return &Controller{svc: svc, readLimit: readLimit, pingPeriod: pingPeriod}
}

// Handle upgrades an already-authenticated request and registers the
// connection. Each socket gets a fresh connection id; identity comes from
// the verified token, never from the wire.
func (ctl *Controller) Handle(c *gin.Context, userID domain.UserID, username string) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("upgrade failed")
		return
	}

	connID := core.ConnID(uuid.NewString())
	conn := newWSConn(ws)

	if err := ctl.svc.Connect(connID, userID, username, conn); err != nil {
		// Duplicate ids cannot happen with fresh uuids; if it does the
		// transport is broken and the socket is rejected outright.
		if errors.Is(err, core.ErrDuplicateConnection) {
			log.Error().Str("module", "ws").Str("conn", string(connID)).Msg("duplicate connection id")
			_ = ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "duplicate connection"))
		} else {
			log.Error().Err(err).Str("module", "ws").Msg("register connection")
		}
		_ = ws.Close()
		return
	}
	log.Info().Str("module", "ws").Str("conn", string(connID)).Str("user", string(userID)).Msg("connection open")

	go ctl.writePump(conn)
	go ctl.readPump(connID, userID, username, conn)
}
