package storage

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khadijauser/chat-app/internal/domain"
)

// openTestStore gives each test its own shared-cache in-memory database so
// gorm's connection pool sees one schema and tests never see each other.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	s, err := Open(dsn)
	require.NoError(t, err)
	return s
}

func mustUser(t *testing.T, s *Store, username string) *domain.User {
	t.Helper()
	u, err := domain.NewUser(username, username+"@example.com")
	require.NoError(t, err)
	u.PasswordHash = "x"
	require.NoError(t, s.CreateUser(u))
	return u
}

func mustRoom(t *testing.T, s *Store, name, code string, creator domain.UserID) *domain.Room {
	t.Helper()
	room, err := domain.NewRoom(name, code, creator)
	require.NoError(t, err)
	require.NoError(t, s.CreateRoom(room))
	return room
}

func TestUserUniqueness(t *testing.T) {
	s := openTestStore(t)
	mustUser(t, s, "alice")

	dup, err := domain.NewUser("alice", "other@example.com")
	require.NoError(t, err)
	dup.PasswordHash = "x"
	assert.ErrorIs(t, s.CreateUser(dup), ErrConflict)

	dup, err = domain.NewUser("someone", "alice@example.com")
	require.NoError(t, err)
	dup.PasswordHash = "x"
	assert.ErrorIs(t, s.CreateUser(dup), ErrConflict)
}

func TestUserLookup(t *testing.T) {
	s := openTestStore(t)
	u := mustUser(t, s, "alice")

	got, err := s.UserByEmail("alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "alice", got.Username)

	got, err = s.UserByID(u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Username, got.Username)

	_, err = s.UserByEmail("nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.UserByID("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateRoomCodeConflict(t *testing.T) {
	s := openTestStore(t)
	u := mustUser(t, s, "alice")
	mustRoom(t, s, "Team", "K3F9QZ", u.ID)

	clash, err := domain.NewRoom("Other", "K3F9QZ", u.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, s.CreateRoom(clash), ErrConflict)

	// The failed transaction must not leave a membership row behind.
	_, err = s.RoomByID(clash.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateRoomSeedsCreatorMembership(t *testing.T) {
	s := openTestStore(t)
	u := mustUser(t, s, "alice")
	room := mustRoom(t, s, "Team", "K3F9QZ", u.ID)

	got, err := s.RoomByCode("K3F9QZ")
	require.NoError(t, err)
	assert.Equal(t, room.ID, got.ID)
	assert.Equal(t, []domain.UserID{u.ID}, got.Members)

	member, err := s.IsMember(room.ID, u.ID)
	require.NoError(t, err)
	assert.True(t, member)
}

func TestRoomByCodeNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.RoomByCode("ZZZZZZ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddMember(t *testing.T) {
	s := openTestStore(t)
	alice := mustUser(t, s, "alice")
	bob := mustUser(t, s, "bob")
	room := mustRoom(t, s, "Team", "K3F9QZ", alice.ID)

	require.NoError(t, s.AddMember(room.ID, bob.ID))
	// Idempotent.
	require.NoError(t, s.AddMember(room.ID, bob.ID))

	got, err := s.RoomByID(room.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.UserID{alice.ID, bob.ID}, got.Members)

	assert.ErrorIs(t, s.AddMember("no-such-room", bob.ID), ErrNotFound)
}

func TestIsMember(t *testing.T) {
	s := openTestStore(t)
	alice := mustUser(t, s, "alice")
	room := mustRoom(t, s, "Team", "K3F9QZ", alice.ID)

	member, err := s.IsMember(room.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, member)

	member, err = s.IsMember(room.ID, "stranger")
	require.NoError(t, err)
	assert.False(t, member)

	// A missing room is a distinct condition from a non-member.
	_, err = s.IsMember("no-such-room", alice.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRoomsOfUserOrderedByActivity(t *testing.T) {
	s := openTestStore(t)
	alice := mustUser(t, s, "alice")
	old := mustRoom(t, s, "Old", "AAAAAA", alice.ID)
	fresh := mustRoom(t, s, "Fresh", "BBBBBB", alice.ID)

	base := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.TouchActivity(old.ID, base.Add(-time.Hour)))
	require.NoError(t, s.TouchActivity(fresh.ID, base))

	rooms, err := s.RoomsOfUser(alice.ID)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, fresh.ID, rooms[0].ID)
	assert.Equal(t, old.ID, rooms[1].ID)

	rooms, err = s.RoomsOfUser("stranger")
	require.NoError(t, err)
	assert.Empty(t, rooms)
}

func TestTouchActivityMissingRoom(t *testing.T) {
	s := openTestStore(t)
	assert.ErrorIs(t, s.TouchActivity("missing", time.Now()), ErrNotFound)
}

func TestMessageLog(t *testing.T) {
	s := openTestStore(t)
	alice := mustUser(t, s, "alice")
	room := mustRoom(t, s, "Team", "K3F9QZ", alice.ID)

	// Identical timestamps on purpose: ordering must come from write order.
	at := time.Now().UTC()
	for i := 0; i < 5; i++ {
		msg, err := domain.NewMessage(room.ID, alice.ID, "alice", fmt.Sprintf("m%d", i))
		require.NoError(t, err)
		msg.Timestamp = at
		require.NoError(t, s.AppendMessage(msg))
	}

	msgs, err := s.ListMessages(room.ID, 100)
	require.NoError(t, err)
	require.Len(t, msgs, 5)
	for i, m := range msgs {
		assert.Equal(t, fmt.Sprintf("m%d", i), m.Text)
	}

	// Limit keeps the newest, still oldest-first.
	msgs, err = s.ListMessages(room.ID, 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "m3", msgs[0].Text)
	assert.Equal(t, "m4", msgs[1].Text)

	msgs, err = s.ListMessages("empty-room", 100)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestStatsOfUser(t *testing.T) {
	s := openTestStore(t)
	alice := mustUser(t, s, "alice")
	room := mustRoom(t, s, "Team", "K3F9QZ", alice.ID)
	mustRoom(t, s, "Side", "BBBBBB", alice.ID)

	for i := 0; i < 3; i++ {
		msg, err := domain.NewMessage(room.ID, alice.ID, "alice", "hi")
		require.NoError(t, err)
		require.NoError(t, s.AppendMessage(msg))
	}

	stats, err := s.StatsOfUser(alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.RoomsCount)
	assert.EqualValues(t, 3, stats.MessagesCount)
	assert.WithinDuration(t, alice.CreatedAt, stats.JoinedAt, time.Second)

	_, err = s.StatsOfUser("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
