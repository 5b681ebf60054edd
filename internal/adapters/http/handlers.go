package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/khadijauser/chat-app/internal/app"
	"github.com/khadijauser/chat-app/internal/auth"
	"github.com/khadijauser/chat-app/internal/domain"
	"github.com/khadijauser/chat-app/internal/storage"
)

type Handlers struct {
	Auth    *auth.Service
	Rooms   *app.Service
	Store   *storage.Store
	History int
}

func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, app.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, app.ErrRoomNotFound), errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, auth.ErrUserExists):
		status = http.StatusConflict
	case errors.Is(err, app.ErrStorageUnavailable):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("module", "adapters.http").Msg("request failed")
	}
	c.JSON(status, gin.H{"message": err.Error()})
}

func (h *Handlers) register(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, domain.ErrInvalidInput)
		return
	}
	user, token, err := h.Auth.Register(req.Username, req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": token, "user": user})
}

func (h *Handlers) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, domain.ErrInvalidInput)
		return
	}
	user, token, err := h.Auth.Login(req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func (h *Handlers) me(c *gin.Context) {
	userID, _ := Identity(c)
	user, err := h.Auth.UserByID(userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *Handlers) createRoom(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, domain.ErrInvalidInput)
		return
	}
	userID, _ := Identity(c)
	room, err := h.Rooms.CreateRoom(req.Name, userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"room": room})
}

func (h *Handlers) joinRoom(c *gin.Context) {
	var req struct {
		Code string `json:"code"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, domain.ErrInvalidInput)
		return
	}
	userID, _ := Identity(c)
	room, err := h.Rooms.JoinByCode(req.Code, userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"room": room})
}

func (h *Handlers) userRooms(c *gin.Context) {
	userID, _ := Identity(c)
	if c.Param("id") != string(userID) {
		fail(c, app.ErrForbidden)
		return
	}
	rooms, err := h.Store.RoomsOfUser(userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

func (h *Handlers) roomDetails(c *gin.Context) {
	userID, _ := Identity(c)
	roomID := domain.RoomID(c.Param("id"))
	room, err := h.Store.RoomByID(roomID)
	if err != nil {
		fail(c, err)
		return
	}
	if ok, err := h.Store.IsMember(roomID, userID); err != nil {
		fail(c, err)
		return
	} else if !ok {
		fail(c, app.ErrForbidden)
		return
	}
	c.JSON(http.StatusOK, gin.H{"room": room})
}

// roomMessages serves the persisted backlog (last History messages, oldest
// first); realtime delivery never replays it.
func (h *Handlers) roomMessages(c *gin.Context) {
	userID, _ := Identity(c)
	roomID := domain.RoomID(c.Param("id"))
	if ok, err := h.Store.IsMember(roomID, userID); err != nil {
		fail(c, err)
		return
	} else if !ok {
		fail(c, app.ErrForbidden)
		return
	}
	msgs, err := h.Store.ListMessages(roomID, h.History)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h *Handlers) userStats(c *gin.Context) {
	userID, _ := Identity(c)
	if c.Param("id") != string(userID) {
		fail(c, app.ErrForbidden)
		return
	}
	stats, err := h.Store.StatsOfUser(userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}
