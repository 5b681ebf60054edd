package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	MaxRoomNameLen = 50

	// CodeLen and CodeAlphabet define the shareable room code format:
	// 6 uppercase alphanumerics, ~31 bits of entropy.
	CodeLen      = 6
	CodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var (
	ErrRoomNameEmpty   = fmt.Errorf("%w: room name empty", ErrInvalidInput)
	ErrRoomNameTooLong = fmt.Errorf("%w: room name too long", ErrInvalidInput)
	ErrBadRoomCode     = fmt.Errorf("%w: malformed room code", ErrInvalidInput)
)

type RoomID string

type Room struct {
	ID           RoomID    `json:"id"`
	Name         string    `json:"name"`
	Code         string    `json:"code"`
	CreatedBy    UserID    `json:"createdBy"`
	Members      []UserID  `json:"members"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
}

// NewRoom builds a room owned by creator; the creator is always a member.
func NewRoom(name, code string, creator UserID) (*Room, error) {
	if err := ValidateRoomName(name); err != nil {
		return nil, err
	}
	now := time.Now()
	return &Room{
		ID:           RoomID(uuid.NewString()),
		Name:         name,
		Code:         code,
		CreatedBy:    creator,
		Members:      []UserID{creator},
		CreatedAt:    now,
		LastActivity: now,
	}, nil
}

func ValidateRoomName(name string) error {
	if len(name) == 0 {
		return ErrRoomNameEmpty
	}
	if len(name) > MaxRoomNameLen {
		return ErrRoomNameTooLong
	}
	return nil
}

// ValidateRoomCode rejects anything that is not CodeLen chars of CodeAlphabet.
func ValidateRoomCode(code string) error {
	if len(code) != CodeLen {
		return ErrBadRoomCode
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return ErrBadRoomCode
		}
	}
	return nil
}
