package ws

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/khadijauser/chat-app/internal/core"
	"github.com/khadijauser/chat-app/internal/domain"
)

const writeWait = 5 * time.Second

// writePump owns all writes. When it exits it closes the connection, so a
// dead writer unblocks readPump right away instead of waiting out the read
// deadline.
func (ctl *Controller) writePump(c *wsConn) {
	ticker := time.NewTicker(ctl.pingPeriod)
	defer ticker.Stop()
	defer c.Close()
	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "ws").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "ws").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump is the only reader; it dispatches inbound envelopes until the
// socket dies, then runs disconnect cleanup exactly once.
func (ctl *Controller) readPump(connID core.ConnID, userID domain.UserID, username string, c *wsConn) {
	defer func() {
		log.Info().Str("module", "ws").Str("conn", string(connID)).Msg("connection closing")
		ctl.svc.Disconnect(connID)
		c.Close()
	}()

	pongWait := ctl.pingPeriod + ctl.pingPeriod/9
	c.conn.SetReadLimit(ctl.readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Str("module", "ws").Str("conn", string(connID)).Msg("read error")
			}
			return
		}
		ctl.dispatch(connID, userID, username, c, data)
	}
}

// envelope is the inbound wire frame. Identity fields are deliberately
// absent: userId and username always come from the session.
type envelope struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId,omitempty"`
	Text   string `json:"text,omitempty"`
}

func (ctl *Controller) dispatch(connID core.ConnID, userID domain.UserID, username string, c *wsConn, data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("bad json")
		ctl.sendError(c, "bad_payload")
		return
	}

	switch env.Type {
	case "join-room":
		ctl.handleJoin(connID, userID, c, env)
	case "leave-room":
		ctl.svc.LeaveLive(connID, domain.RoomID(env.RoomID))
	case "send-message":
		ctl.handleSend(connID, userID, username, c, env)
	case "ping":
		ctl.sendJSON(c, map[string]any{"type": "pong"})
	default:
		log.Warn().Str("module", "ws").Str("type", env.Type).Msg("unknown event")
		ctl.sendError(c, "unknown_event")
	}
}

func (ctl *Controller) handleJoin(connID core.ConnID, userID domain.UserID, c *wsConn, env envelope) {
	users, err := ctl.svc.JoinLive(connID, domain.RoomID(env.RoomID), userID)
	if err != nil {
		ctl.sendError(c, errorCode(err))
		return
	}
	ctl.sendJSON(c, struct {
		Type   string               `json:"type"`
		RoomID string               `json:"roomId"`
		Users  []core.PresenceEntry `json:"users"`
	}{
		Type:   "room-users",
		RoomID: env.RoomID,
		Users:  users,
	})
}

func (ctl *Controller) handleSend(connID core.ConnID, userID domain.UserID, username string, c *wsConn, env envelope) {
	if _, err := ctl.svc.SendMessage(connID, domain.RoomID(env.RoomID), userID, username, env.Text); err != nil {
		ctl.sendError(c, errorCode(err))
	}
	// On success the service broadcast already reached this connection.
}

func (ctl *Controller) sendJSON(c *wsConn, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(data)
}

func (ctl *Controller) sendError(c *wsConn, code string) {
	ctl.sendJSON(c, map[string]any{"type": "error", "error": code})
}
