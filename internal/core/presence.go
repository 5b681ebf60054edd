package core

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/khadijauser/chat-app/internal/domain"
)

// ErrDuplicateConnection means the transport registered the same connection
// id twice; that is a transport defect, not a user error.
var ErrDuplicateConnection = errors.New("connection already registered")

// ErrUnknownConnection means an operation referenced a connection that was
// never registered or has already been dropped.
var ErrUnknownConnection = errors.New("unknown connection")

type session struct {
	userID   domain.UserID
	username string
	conn     Conn
	rooms    map[domain.RoomID]struct{}
}

// PresenceRegistry tracks live connections and per-room live-member sets.
// One mutex serializes all mutations, so a connection can never be observed
// in a room set without its session reflecting the same membership.
type PresenceRegistry struct {
	mu       sync.RWMutex
	sessions map[ConnID]*session
	rooms    map[domain.RoomID]map[ConnID]struct{}
}

func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{
		sessions: make(map[ConnID]*session),
		rooms:    make(map[domain.RoomID]map[ConnID]struct{}),
	}
}

func (r *PresenceRegistry) Register(id ConnID, userID domain.UserID, username string, conn Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; ok {
		return ErrDuplicateConnection
	}
	r.sessions[id] = &session{
		userID:   userID,
		username: username,
		conn:     conn,
		rooms:    make(map[domain.RoomID]struct{}),
	}
	log.Info().Str("module", "core.presence").Str("conn", string(id)).Str("user", string(userID)).Msg("connection registered")
	return nil
}

// Join adds the connection to a room's live set. Re-joining is a no-op;
// joined reports whether this call actually changed anything so the caller
// can suppress duplicate presence broadcasts.
func (r *PresenceRegistry) Join(id ConnID, roomID domain.RoomID) (joined bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	if !ok {
		return false, ErrUnknownConnection
	}
	if _, already := sess.rooms[roomID]; already {
		return false, nil
	}
	sess.rooms[roomID] = struct{}{}
	set, ok := r.rooms[roomID]
	if !ok {
		set = make(map[ConnID]struct{})
		r.rooms[roomID] = set
	}
	set[id] = struct{}{}
	log.Info().Str("module", "core.presence").Str("conn", string(id)).Str("room", string(roomID)).Msg("joined room")
	return true, nil
}

// Leave is the inverse of Join; it reports whether the connection was
// actually live in the room.
func (r *PresenceRegistry) Leave(id ConnID, roomID domain.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	if !ok {
		return false
	}
	if _, present := sess.rooms[roomID]; !present {
		return false
	}
	delete(sess.rooms, roomID)
	r.removeFromRoom(id, roomID)
	log.Info().Str("module", "core.presence").Str("conn", string(id)).Str("room", string(roomID)).Msg("left room")
	return true
}

// Drop removes the session entirely and returns the rooms it was live in,
// so the caller can broadcast updated presence to each.
func (r *PresenceRegistry) Drop(id ConnID) []domain.RoomID {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	if !ok {
		return nil
	}
	affected := make([]domain.RoomID, 0, len(sess.rooms))
	for roomID := range sess.rooms {
		r.removeFromRoom(id, roomID)
		affected = append(affected, roomID)
	}
	delete(r.sessions, id)
	log.Info().Str("module", "core.presence").Str("conn", string(id)).Int("rooms", len(affected)).Msg("connection dropped")
	return affected
}

// removeFromRoom must be called with the write lock held.
func (r *PresenceRegistry) removeFromRoom(id ConnID, roomID domain.RoomID) {
	set, ok := r.rooms[roomID]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(r.rooms, roomID)
	}
}

// Snapshot returns the live members of a room deduplicated by user: a user
// connected from two devices appears once.
func (r *PresenceRegistry) Snapshot(roomID domain.RoomID) []PresenceEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[domain.UserID]struct{})
	out := make([]PresenceEntry, 0, len(r.rooms[roomID]))
	for id := range r.rooms[roomID] {
		sess := r.sessions[id]
		if _, dup := seen[sess.userID]; dup {
			continue
		}
		seen[sess.userID] = struct{}{}
		out = append(out, PresenceEntry{UserID: sess.userID, Username: sess.username})
	}
	return out
}

// Conns returns every live connection in a room, one entry per connection.
func (r *PresenceRegistry) Conns(roomID domain.RoomID) []ConnSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ConnSnapshot, 0, len(r.rooms[roomID]))
	for id := range r.rooms[roomID] {
		out = append(out, ConnSnapshot{ID: id, Conn: r.sessions[id].conn})
	}
	return out
}

func (r *PresenceRegistry) IsJoined(id ConnID, roomID domain.RoomID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[id]
	if !ok {
		return false
	}
	_, present := sess.rooms[roomID]
	return present
}

func (r *PresenceRegistry) SessionOf(id ConnID) (SessionInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[id]
	if !ok {
		return SessionInfo{}, false
	}
	return SessionInfo{UserID: sess.userID, Username: sess.username}, true
}
