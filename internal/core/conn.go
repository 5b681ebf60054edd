// Package core holds the process-wide presence registry: which connections
// are alive, who they belong to, and which rooms they are live in. It is a
// cache over live connections only — durable membership lives in storage and
// survives restarts; this does not.
package core

import "github.com/khadijauser/chat-app/internal/domain"

type ConnID string

// Conn abstracts the realtime transport endpoint of one connection.
// Owned by the adapter; the adapter must Close() it. TrySend must never
// block: a full or dead peer is the sender's problem, not the room's.
type Conn interface {
	TrySend(data []byte) error
	Close()
}

// PresenceEntry is one live user as seen by the rest of a room.
type PresenceEntry struct {
	UserID   domain.UserID `json:"userId"`
	Username string        `json:"username"`
}

// ConnSnapshot pairs a connection with its id so callers can exclude the
// sender during fan-out.
type ConnSnapshot struct {
	ID   ConnID
	Conn Conn
}

// SessionInfo is the read-only identity view of a connection.
type SessionInfo struct {
	UserID   domain.UserID
	Username string
}
