package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"chat-gateway/models"
)

func TestPresenceSnapshotReplacesSet(t *testing.T) {
	p := NewPresenceTracker()
	p.SetOnline(models.OnlineUser{UserID: "stale"})

	p.SetAll([]models.OnlineUser{
		{UserID: "alice", Username: "Alice"},
		{UserID: "bob", Username: "Bob"},
	})

	assert.True(t, p.IsOnline("alice"))
	assert.True(t, p.IsOnline("bob"))
	assert.False(t, p.IsOnline("stale"))
}

func TestPresenceOnlineOfflineRoundTrip(t *testing.T) {
	p := NewPresenceTracker()
	p.SetAll([]models.OnlineUser{
		{UserID: "alice"},
		{UserID: "bob"},
	})

	p.SetOffline("alice")

	assert.False(t, p.IsOnline("alice"))
	assert.True(t, p.IsOnline("bob"))

	snap := p.Snapshot()
	assert.Len(t, snap, 1)
	assert.Equal(t, "bob", snap[0].UserID)
}

func TestPresenceSetOnlineIdempotent(t *testing.T) {
	p := NewPresenceTracker()

	u := models.OnlineUser{UserID: "alice", Username: "Alice"}
	p.SetOnline(u)
	p.SetOnline(u)

	snap := p.Snapshot()
	assert.Len(t, snap, 1)
	assert.Equal(t, u, snap[0])
}

func TestPresenceSetOnlineUpdatesProfile(t *testing.T) {
	p := NewPresenceTracker()

	p.SetOnline(models.OnlineUser{UserID: "alice", Username: "Alice"})
	p.SetOnline(models.OnlineUser{UserID: "alice", Username: "Alice B."})

	snap := p.Snapshot()
	assert.Len(t, snap, 1)
	assert.Equal(t, "Alice B.", snap[0].Username)
}

func TestPresenceSetOfflineAbsentIsNoop(t *testing.T) {
	p := NewPresenceTracker()
	p.SetOnline(models.OnlineUser{UserID: "alice"})

	p.SetOffline("ghost")

	assert.True(t, p.IsOnline("alice"))
	assert.Len(t, p.Snapshot(), 1)
}

func TestPresenceSnapshotSorted(t *testing.T) {
	p := NewPresenceTracker()
	p.SetAll([]models.OnlineUser{
		{UserID: "carol"},
		{UserID: "alice"},
		{UserID: "bob"},
	})

	snap := p.Snapshot()
	ids := make([]string, 0, len(snap))
	for _, u := range snap {
		ids = append(ids, u.UserID)
	}
	assert.Equal(t, []string{"alice", "bob", "carol"}, ids)
}
