package party

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/hellasmmo/server/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestManager(max int) *Manager {
	return NewManager(max, nil, nil, zap.NewNop())
}

func TestGroupOf_SoloFallback(t *testing.T) {
	m := newTestManager(0)
	assert.Equal(t, []string{"alice"}, m.GroupOf("alice"))
	assert.Equal(t, 1, m.GroupSize("alice"))
	assert.False(t, m.IsInGroup("alice"))
	assert.False(t, m.InSameGroup("alice", "alice"))
	assert.Equal(t, 0, m.NumGroups())
}

func TestCreateAndAdd(t *testing.T) {
	m := newTestManager(0)
	require.NoError(t, m.CreateGroup("carol"))
	require.NoError(t, m.AddToGroup("alice", "carol"))

	assert.Equal(t, 2, m.GroupSize("alice"))
	assert.Equal(t, 2, m.GroupSize("carol"))
	assert.Equal(t, []string{"alice", "carol"}, m.GroupOf("carol"))
	assert.True(t, m.InSameGroup("alice", "carol"))
	assert.False(t, m.InSameGroup("alice", "bob"))
	assert.Equal(t, 1, m.NumGroups())

	assert.ErrorIs(t, m.CreateGroup("alice"), ErrAlreadyInGroup)
	assert.ErrorIs(t, m.AddToGroup("alice", "carol"), ErrAlreadyInGroup)
	assert.ErrorIs(t, m.AddToGroup("bob", "dave"), ErrNotInGroup)
	assert.False(t, m.IsInGroup("bob"))
}

func TestGroupOfReturnsCopy(t *testing.T) {
	m := newTestManager(0)
	require.NoError(t, m.CreateGroup("a"))
	got := m.GroupOf("a")
	got[0] = "mallory"
	assert.Equal(t, []string{"a"}, m.GroupOf("a"))
}

func TestGroupFull(t *testing.T) {
	m := newTestManager(2)
	require.NoError(t, m.CreateGroup("a"))
	require.NoError(t, m.AddToGroup("b", "a"))
	assert.ErrorIs(t, m.AddToGroup("c", "a"), ErrGroupFull)
	assert.False(t, m.IsInGroup("c"))
}

func TestLeave_DisbandsAtOne(t *testing.T) {
	m := newTestManager(0)
	require.NoError(t, m.CreateGroup("a"))
	require.NoError(t, m.AddToGroup("b", "a"))
	require.NoError(t, m.AddToGroup("c", "a"))

	require.NoError(t, m.Leave("b"))
	assert.Equal(t, []string{"a", "c"}, m.GroupOf("a"))
	assert.Equal(t, 1, m.NumGroups())

	require.NoError(t, m.Leave("c"))
	assert.False(t, m.IsInGroup("a"))
	assert.Equal(t, 0, m.NumGroups())
	assert.ErrorIs(t, m.Leave("a"), ErrNotInGroup)
}

func TestInvitations(t *testing.T) {
	m := newTestManager(0)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	assert.ErrorIs(t, m.AcceptInvitation("bob"), ErrNoInvitation)

	require.NoError(t, m.RegisterInvitation("alice", "bob"))
	assert.True(t, m.HasInvitation("bob"))
	assert.False(t, m.HasInvitation("alice"))

	// The inviter has no group yet: accepting creates it.
	require.NoError(t, m.AcceptInvitation("bob"))
	assert.Equal(t, []string{"alice", "bob"}, m.GroupOf("bob"))
	assert.False(t, m.HasInvitation("bob"))
	assert.ErrorIs(t, m.AcceptInvitation("bob"), ErrNoInvitation)

	assert.ErrorIs(t, m.RegisterInvitation("alice", "bob"), ErrAlreadyInGroup)

	require.NoError(t, m.RegisterInvitation("bob", "carol"))
	now = now.Add(inviteTimeout)
	assert.False(t, m.HasInvitation("carol"))
	assert.ErrorIs(t, m.AcceptInvitation("carol"), ErrNoInvitation)
}

func TestCleanupInvites(t *testing.T) {
	m := newTestManager(0)
	require.NoError(t, m.RegisterInvitation("alice", "bob"))
	require.NoError(t, m.RegisterInvitation("alice", "carol"))
	require.NoError(t, m.RegisterInvitation("dave", "alice"))
	m.CleanupInvites("alice")
	assert.False(t, m.HasInvitation("bob"))
	assert.False(t, m.HasInvitation("carol"))
	assert.False(t, m.HasInvitation("alice"))

	require.NoError(t, m.RegisterInvitation("x", "y"))
	m.DeclineInvitation("y")
	assert.False(t, m.HasInvitation("y"))
}

func TestNotifications(t *testing.T) {
	c, ps := testutil.SetupTestCache(t)
	m := NewManager(0, c, ps, zap.NewNop())
	ch, cancel, err := ps.Subscribe(context.Background(), ChannelGroup)
	require.NoError(t, err)
	t.Cleanup(cancel)

	next := func() Update {
		t.Helper()
		select {
		case msg := <-ch:
			var u Update
			require.NoError(t, json.Unmarshal([]byte(msg.Payload), &u))
			return u
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for group update")
		}
		return Update{}
	}

	require.NoError(t, m.CreateGroup("a"))
	u := next()
	assert.Equal(t, EventCreated, u.Event)
	assert.Equal(t, []string{"a"}, u.Members)

	require.NoError(t, m.AddToGroup("b", "a"))
	u = next()
	assert.Equal(t, EventJoined, u.Event)
	assert.Equal(t, []string{"a", "b"}, u.Members)

	id, ok := m.GroupID("a")
	require.True(t, ok)
	members, err := c.SMembers(context.Background(), SnapshotKey(id))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, members)

	require.NoError(t, m.Leave("a"))
	u = next()
	assert.Equal(t, EventDisbanded, u.Event)
	assert.Empty(t, u.Members)
	members, err = c.SMembers(context.Background(), SnapshotKey(id))
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestConcurrentJoins(t *testing.T) {
	m := newTestManager(0)
	require.NoError(t, m.CreateGroup("leader"))
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("p%02d", i)
			_ = m.AddToGroup(name, "leader")
			_ = m.GroupOf(name)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 51, m.GroupSize("leader"))
}

func TestSnapshot_OlderUpdateDoesNotOverwrite(t *testing.T) {
	c, _ := testutil.SetupTestCache(t)
	m := NewManager(0, c, nil, zap.NewNop())
	ctx := context.Background()

	m.notify(Update{GroupID: 7, Event: EventJoined, Members: []string{"a", "b", "c"}, seq: 2})
	m.notify(Update{GroupID: 7, Event: EventJoined, Members: []string{"a", "b"}, seq: 1})

	members, err := c.SMembers(ctx, SnapshotKey(7))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, members)
}

func TestSnapshot_MatchesGroupAfterConcurrentChanges(t *testing.T) {
	c, _ := testutil.SetupTestCache(t)
	m := NewManager(0, c, nil, zap.NewNop())
	require.NoError(t, m.CreateGroup("leader"))
	require.NoError(t, m.AddToGroup("anchor", "leader"))

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("p%02d", i)
			_ = m.AddToGroup(name, "leader")
			if i%2 == 0 {
				_ = m.Leave(name)
			}
		}(i)
	}
	wg.Wait()

	id, ok := m.GroupID("leader")
	require.True(t, ok)
	members, err := c.SMembers(context.Background(), SnapshotKey(id))
	require.NoError(t, err)
	assert.ElementsMatch(t, m.GroupOf("leader"), members)
	assert.Len(t, members, 22)
}
