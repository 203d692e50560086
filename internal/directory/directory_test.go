package directory

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuneroom/live-service/internal/domain"
)

type fakeConnIndex map[string][]string

func (f fakeConnIndex) ConnectionsFor(userID string) []string { return f[userID] }

func TestDirectory_JoinCreatesRoom(t *testing.T) {
	d := New(fakeConnIndex{})

	res, err := d.Join("jazz", "u1", "c1", true)
	require.NoError(t, err)
	require.True(t, res.Created)
	require.True(t, res.NewMember)
	require.Equal(t, []string{"u1"}, res.Members)

	res, err = d.Join("jazz", "u2", "c2", true)
	require.NoError(t, err)
	require.False(t, res.Created)
	require.True(t, res.NewMember)
	require.Equal(t, []string{"u1", "u2"}, res.Members)
}

func TestDirectory_MembershipDedupAcrossConnections(t *testing.T) {
	d := New(fakeConnIndex{})

	_, err := d.Join("jazz", "u1", "c1", true)
	require.NoError(t, err)
	res, err := d.Join("jazz", "u1", "c2", true)
	require.NoError(t, err)
	require.False(t, res.NewMember, "second connection must not re-announce the user")
	require.Equal(t, []string{"u1"}, res.Members)

	// Scenario C: leaving via one connection keeps the membership
	left, err := d.Leave("jazz", "u1", "c1")
	require.NoError(t, err)
	require.False(t, left.UserLeft)
	require.False(t, left.RoomDeleted)
	require.True(t, d.IsMember("jazz", "u1"))

	left, err = d.Leave("jazz", "u1", "c2")
	require.NoError(t, err)
	require.True(t, left.UserLeft)
	require.True(t, left.RoomDeleted)

	_, err = d.Members("jazz")
	require.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestDirectory_JoinOrderPreserved(t *testing.T) {
	d := New(fakeConnIndex{})

	for i, u := range []string{"u3", "u1", "u2"} {
		_, err := d.Join("jazz", u, "c"+string(rune('0'+i)), true)
		require.NoError(t, err)
	}
	members, err := d.Members("jazz")
	require.NoError(t, err)
	require.Equal(t, []string{"u3", "u1", "u2"}, members)

	_, err = d.Leave("jazz", "u1", "c1")
	require.NoError(t, err)
	members, err = d.Members("jazz")
	require.NoError(t, err)
	require.Equal(t, []string{"u3", "u2"}, members)
}

func TestDirectory_EqualJoinsAndLeaves(t *testing.T) {
	d := New(fakeConnIndex{})

	for i := 0; i < 3; i++ {
		_, err := d.Join("jazz", "u1", "c1", false) // persistent room survives emptiness
		require.NoError(t, err)
		_, err = d.Leave("jazz", "u1", "c1")
		require.NoError(t, err)
	}
	require.False(t, d.IsMember("jazz", "u1"))
	require.True(t, d.Exists("jazz"))

	members, err := d.Members("jazz")
	require.NoError(t, err)
	require.Empty(t, members)
}

func TestDirectory_EphemeralRecreatedAfterReclaim(t *testing.T) {
	d := New(fakeConnIndex{})

	_, err := d.Join("jazz", "u1", "c1", true)
	require.NoError(t, err)
	_, err = d.Leave("jazz", "u1", "c1")
	require.NoError(t, err)
	require.False(t, d.Exists("jazz"))

	res, err := d.Join("jazz", "u2", "c2", true)
	require.NoError(t, err)
	require.True(t, res.Created)
	require.Equal(t, []string{"u2"}, res.Members)
}

func TestDirectory_LeaveErrors(t *testing.T) {
	d := New(fakeConnIndex{})

	_, err := d.Leave("nowhere", "u1", "c1")
	require.ErrorIs(t, err, domain.ErrRoomNotFound)

	_, err = d.Join("jazz", "u1", "c1", true)
	require.NoError(t, err)

	_, err = d.Leave("jazz", "u2", "c2")
	require.ErrorIs(t, err, domain.ErrNotAMember)

	// чужой connID для этого пользователя
	_, err = d.Leave("jazz", "u2", "c1")
	require.ErrorIs(t, err, domain.ErrNotAMember)
}

func TestDirectory_ArchivedRejectsJoins(t *testing.T) {
	d := New(fakeConnIndex{})

	_, err := d.Join("legends", "u1", "c1", false)
	require.NoError(t, err)
	require.NoError(t, d.Archive("legends"))

	_, err = d.Join("legends", "u2", "c2", false)
	require.ErrorIs(t, err, domain.ErrRoomNotJoinable)

	// membership remains readable
	members, err := d.Members("legends")
	require.NoError(t, err)
	require.Equal(t, []string{"u1"}, members)

	require.True(t, errors.Is(d.Archive("nowhere"), domain.ErrRoomNotFound))
}

func TestDirectory_BroadcastTargets(t *testing.T) {
	idx := fakeConnIndex{
		"u1": {"c1", "c2"},
		"u2": {"c3"},
	}
	d := New(idx)

	_, err := d.Join("jazz", "u1", "c1", true)
	require.NoError(t, err)
	_, err = d.Join("jazz", "u1", "c2", true)
	require.NoError(t, err)
	_, err = d.Join("jazz", "u2", "c3", true)
	require.NoError(t, err)

	targets, err := d.BroadcastTargets("jazz")
	require.NoError(t, err)
	require.Equal(t, []string{"c1", "c2", "c3"}, targets)
}
