// Package app orchestrates room membership and the persist-then-broadcast
// message pipeline. All identities arriving here are already verified by the
// auth layer; the service enforces membership invariants, never credentials.
package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/khadijauser/chat-app/internal/core"
	"github.com/khadijauser/chat-app/internal/domain"
	"github.com/khadijauser/chat-app/internal/storage"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrForbidden    = errors.New("forbidden")
	// ErrStorageUnavailable wraps transient persistence failures; the
	// triggering operation is aborted and nothing is broadcast.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// maxCodeRetries bounds redraws on code collision. At 36^6 codes the chance
// of hitting it is negligible; exhausting it means the store is misbehaving.
const maxCodeRetries = 10

// Store is the persistence surface the service needs.
type Store interface {
	CreateRoom(room *domain.Room) error
	RoomByCode(code string) (*domain.Room, error)
	RoomByID(id domain.RoomID) (*domain.Room, error)
	AddMember(roomID domain.RoomID, userID domain.UserID) error
	IsMember(roomID domain.RoomID, userID domain.UserID) (bool, error)
	TouchActivity(roomID domain.RoomID, at time.Time) error
	AppendMessage(msg *domain.Message) error
}

type Service struct {
	store    Store
	presence *core.PresenceRegistry
	newCode  func() string

	// lockMu guards locks; each room gets its own mutex so that
	// persist+touch+fanout is serialized per room and broadcasts reach
	// every member in store-write order. Sends to distinct rooms never
	// contend. Entries live for the process lifetime: pruning one while
	// a sender holds it would hand the next sender a fresh mutex for the
	// same room and break the ordering. The map is bounded by the number
	// of rooms messaged since startup.
	lockMu sync.Mutex
	locks  map[domain.RoomID]*sync.Mutex
}

func NewService(store Store, presence *core.PresenceRegistry, newCode func() string) *Service {
	return &Service{
		store:    store,
		presence: presence,
		newCode:  newCode,
		locks:    make(map[domain.RoomID]*sync.Mutex),
	}
}

func (s *Service) roomLock(id domain.RoomID) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// Connect registers a live connection under a verified identity.
func (s *Service) Connect(connID core.ConnID, userID domain.UserID, username string, conn core.Conn) error {
	return s.presence.Register(connID, userID, username, conn)
}

// CreateRoom allocates a collision-free code and persists the room with the
// creator as its only member. No broadcast: the room has no live members yet.
func (s *Service) CreateRoom(name string, creator domain.UserID) (*domain.Room, error) {
	if err := domain.ValidateRoomName(name); err != nil {
		return nil, err
	}
	for i := 0; i < maxCodeRetries; i++ {
		room, err := domain.NewRoom(name, s.newCode(), creator)
		if err != nil {
			return nil, err
		}
		err = s.store.CreateRoom(room)
		switch {
		case err == nil:
			log.Info().Str("module", "app.service").Str("room", string(room.ID)).Str("code", room.Code).Msg("room created")
			return room, nil
		case errors.Is(err, storage.ErrConflict):
			// Another creator won this code; redraw.
			log.Debug().Str("module", "app.service").Str("code", room.Code).Msg("room code collision, retrying")
		default:
			return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
	}
	return nil, fmt.Errorf("%w: could not allocate a unique room code", ErrStorageUnavailable)
}

// JoinByCode makes the user a durable member of the room behind code.
// It does not open a live presence entry; that is JoinLive's job.
func (s *Service) JoinByCode(code string, userID domain.UserID) (*domain.Room, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if err := domain.ValidateRoomCode(code); err != nil {
		return nil, err
	}
	room, err := s.store.RoomByCode(code)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if err := s.store.AddMember(room.ID, userID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return s.reload(room.ID)
}

func (s *Service) reload(id domain.RoomID) (*domain.Room, error) {
	room, err := s.store.RoomByID(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return room, nil
}

// JoinLive opens live presence for a durable member and tells the other live
// members. Re-joining an already-joined room returns the presence list again
// without a duplicate broadcast.
func (s *Service) JoinLive(connID core.ConnID, roomID domain.RoomID, userID domain.UserID) ([]core.PresenceEntry, error) {
	member, err := s.store.IsMember(roomID, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if !member {
		return nil, ErrForbidden
	}

	joined, err := s.presence.Join(connID, roomID)
	if err != nil {
		return nil, err
	}
	users := s.presence.Snapshot(roomID)
	if joined {
		sess, _ := s.presence.SessionOf(connID)
		s.broadcast(roomID, connID, PresenceEvent{
			Type:     EventUserJoined,
			UserID:   sess.UserID,
			Username: sess.Username,
			Users:    users,
		})
	}
	return users, nil
}

// LeaveLive closes live presence for one room; durable membership is
// untouched. No-op, no broadcast, if the connection was not live there.
func (s *Service) LeaveLive(connID core.ConnID, roomID domain.RoomID) {
	sess, ok := s.presence.SessionOf(connID)
	if !ok {
		return
	}
	if !s.presence.Leave(connID, roomID) {
		return
	}
	s.broadcast(roomID, "", PresenceEvent{
		Type:     EventUserLeft,
		UserID:   sess.UserID,
		Username: sess.Username,
		Users:    s.presence.Snapshot(roomID),
	})
}

// SendMessage persists then fans out. Persistence failure aborts the whole
// operation; nothing is broadcast on a failed write.
func (s *Service) SendMessage(connID core.ConnID, roomID domain.RoomID, userID domain.UserID, username, text string) (*domain.Message, error) {
	msg, err := domain.NewMessage(roomID, userID, username, text)
	if err != nil {
		return nil, err
	}
	if !s.presence.IsJoined(connID, roomID) {
		return nil, ErrForbidden
	}

	l := s.roomLock(roomID)
	l.Lock()
	defer l.Unlock()

	if err := s.store.AppendMessage(msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if err := s.store.TouchActivity(roomID, msg.Timestamp); err != nil {
		// The message is already durable; a stale activity stamp is not
		// worth failing the send over.
		log.Warn().Err(err).Str("module", "app.service").Str("room", string(roomID)).Msg("touch activity failed")
	}
	s.broadcast(roomID, "", MessageEvent{Type: EventMessage, Message: *msg})
	return msg, nil
}

// Disconnect purges the connection from every room it was live in and
// announces its departure to each. Cleanup is best-effort: the connection is
// already gone, so failures are logged, never surfaced.
func (s *Service) Disconnect(connID core.ConnID) {
	sess, ok := s.presence.SessionOf(connID)
	if !ok {
		return
	}
	for _, roomID := range s.presence.Drop(connID) {
		s.broadcast(roomID, "", PresenceEvent{
			Type:     EventUserLeft,
			UserID:   sess.UserID,
			Username: sess.Username,
			Users:    s.presence.Snapshot(roomID),
		})
	}
}

type broadcastResult struct {
	delivered int
	dropped   int
}

// broadcast is fire-and-forget: marshal once, TrySend to every live
// connection except exclude. A slow or dead recipient is counted and
// skipped, never waited on.
func (s *Service) broadcast(roomID domain.RoomID, exclude core.ConnID, v any) broadcastResult {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.service").Msg("broadcast marshal")
		return broadcastResult{}
	}
	var res broadcastResult
	for _, snap := range s.presence.Conns(roomID) {
		if exclude != "" && snap.ID == exclude {
			continue
		}
		if err := snap.Conn.TrySend(data); err != nil {
			res.dropped++
			continue
		}
		res.delivered++
	}
	log.Debug().Str("module", "app.service").Str("room", string(roomID)).Int("delivered", res.delivered).Int("dropped", res.dropped).Msg("broadcast")
	return res
}
