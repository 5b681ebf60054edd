package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const MaxMessageLen = 500

var (
	ErrMessageEmpty   = fmt.Errorf("%w: message empty", ErrInvalidInput)
	ErrMessageTooLong = fmt.Errorf("%w: message too long", ErrInvalidInput)
)

type MessageID string

// Message is immutable once created; Timestamp is assigned at persistence
// time, never taken from the client.
type Message struct {
	ID        MessageID `json:"id"`
	RoomID    RoomID    `json:"roomId"`
	UserID    UserID    `json:"userId"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage trims and validates text and stamps the message server-side.
func NewMessage(roomID RoomID, userID UserID, username, text string) (*Message, error) {
	text = strings.TrimSpace(text)
	if err := ValidateMessageText(text); err != nil {
		return nil, err
	}
	return &Message{
		ID:        MessageID(uuid.NewString()),
		RoomID:    roomID,
		UserID:    userID,
		Username:  username,
		Text:      text,
		Timestamp: time.Now(),
	}, nil
}

// ValidateMessageText expects already-trimmed input.
func ValidateMessageText(text string) error {
	if len(text) == 0 {
		return ErrMessageEmpty
	}
	if len(text) > MaxMessageLen {
		return ErrMessageTooLong
	}
	return nil
}
