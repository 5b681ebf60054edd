package core

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khadijauser/chat-app/internal/domain"
)

type nopConn struct{}

func (nopConn) TrySend([]byte) error { return nil }
func (nopConn) Close()               {}

func TestRegisterDuplicate(t *testing.T) {
	r := NewPresenceRegistry()
	require.NoError(t, r.Register("c1", "u1", "alice", nopConn{}))
	assert.ErrorIs(t, r.Register("c1", "u1", "alice", nopConn{}), ErrDuplicateConnection)
}

func TestJoinUnknownConnection(t *testing.T) {
	r := NewPresenceRegistry()
	_, err := r.Join("ghost", "room")
	assert.ErrorIs(t, err, ErrUnknownConnection)
}

func TestJoinIsIdempotent(t *testing.T) {
	r := NewPresenceRegistry()
	require.NoError(t, r.Register("c1", "u1", "alice", nopConn{}))

	joined, err := r.Join("c1", "room")
	require.NoError(t, err)
	assert.True(t, joined)

	joined, err = r.Join("c1", "room")
	require.NoError(t, err)
	assert.False(t, joined, "re-join must be a no-op")

	assert.Len(t, r.Snapshot("room"), 1)
}

func TestLeave(t *testing.T) {
	r := NewPresenceRegistry()
	require.NoError(t, r.Register("c1", "u1", "alice", nopConn{}))
	_, err := r.Join("c1", "room")
	require.NoError(t, err)

	assert.True(t, r.Leave("c1", "room"))
	assert.False(t, r.Leave("c1", "room"), "second leave is a no-op")
	assert.False(t, r.Leave("ghost", "room"))
	assert.Empty(t, r.Snapshot("room"))
	assert.False(t, r.IsJoined("c1", "room"))
}

func TestDropReturnsAffectedRooms(t *testing.T) {
	r := NewPresenceRegistry()
	require.NoError(t, r.Register("c1", "u1", "alice", nopConn{}))
	for _, room := range []domain.RoomID{"a", "b", "c"} {
		_, err := r.Join("c1", room)
		require.NoError(t, err)
	}

	affected := r.Drop("c1")
	assert.ElementsMatch(t, []domain.RoomID{"a", "b", "c"}, affected)
	for _, room := range []domain.RoomID{"a", "b", "c"} {
		assert.Empty(t, r.Snapshot(room))
	}
	_, ok := r.SessionOf("c1")
	assert.False(t, ok)
	assert.Nil(t, r.Drop("c1"), "dropping again yields nothing")
}

func TestSnapshotDedupesByUser(t *testing.T) {
	r := NewPresenceRegistry()
	// Same user on two devices, plus one other user.
	require.NoError(t, r.Register("phone", "u1", "alice", nopConn{}))
	require.NoError(t, r.Register("laptop", "u1", "alice", nopConn{}))
	require.NoError(t, r.Register("c3", "u2", "bob", nopConn{}))
	for _, id := range []ConnID{"phone", "laptop", "c3"} {
		_, err := r.Join(id, "room")
		require.NoError(t, err)
	}

	snap := r.Snapshot("room")
	assert.ElementsMatch(t, []PresenceEntry{
		{UserID: "u1", Username: "alice"},
		{UserID: "u2", Username: "bob"},
	}, snap)

	// Conns is per connection, not per user.
	assert.Len(t, r.Conns("room"), 3)

	// Dropping one device keeps the user present.
	r.Drop("phone")
	assert.ElementsMatch(t, []PresenceEntry{
		{UserID: "u1", Username: "alice"},
		{UserID: "u2", Username: "bob"},
	}, r.Snapshot("room"))
}

func TestConcurrentMutations(t *testing.T) {
	r := NewPresenceRegistry()
	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := ConnID(fmt.Sprintf("c%d", i))
			uid := domain.UserID(fmt.Sprintf("u%d", i))
			assert.NoError(t, r.Register(id, uid, "user", nopConn{}))
			_, err := r.Join(id, "room")
			assert.NoError(t, err)
			r.Snapshot("room")
			if i%2 == 0 {
				r.Leave(id, "room")
			} else {
				r.Drop(id)
			}
		}(i)
	}
	wg.Wait()
	assert.Empty(t, r.Snapshot("room"))
}
