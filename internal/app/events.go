package app

import (
	"github.com/khadijauser/chat-app/internal/core"
	"github.com/khadijauser/chat-app/internal/domain"
)

// Event types pushed to live room members.
const (
	EventMessage    = "message"
	EventUserJoined = "user-joined"
	EventUserLeft   = "user-left"
)

// MessageEvent carries the persisted message; every client, including the
// sender, renders from this one authoritative copy.
type MessageEvent struct {
	Type string `json:"type"`
	domain.Message
}

// PresenceEvent announces a membership change together with the resulting
// presence list, so clients never need a follow-up query.
type PresenceEvent struct {
	Type     string               `json:"type"`
	UserID   domain.UserID        `json:"userId"`
	Username string               `json:"username"`
	Users    []core.PresenceEntry `json:"users"`
}
