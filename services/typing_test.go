package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTyping(t *testing.T) (*TypingTracker, *miniredis.Miniredis, uint, uint, uint) {
	t.Helper()
	db := newTestDB(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	convSvc := NewConversationService(db)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	conv, err := convSvc.CreateDirect(alice.ID, bob.ID)
	require.NoError(t, err)

	return NewTypingTracker(client, db), mr, conv, alice.ID, bob.ID
}

func TestTypingSignalExpires(t *testing.T) {
	tracker, mr, conv, alice, bob := setupTyping(t)
	ctx := context.Background()

	tracker.Record(ctx, conv, alice)

	active := tracker.Active(ctx, conv, bob)
	require.Len(t, active, 1)
	assert.Equal(t, "alice", active[0].Username)

	// still inside the horizon
	mr.FastForward(5 * time.Second)
	assert.Len(t, tracker.Active(ctx, conv, bob), 1)

	// past it
	mr.FastForward(2 * time.Second)
	assert.Empty(t, tracker.Active(ctx, conv, bob))
}

func TestTypingExcludesViewer(t *testing.T) {
	tracker, _, conv, alice, bob := setupTyping(t)
	ctx := context.Background()

	tracker.Record(ctx, conv, alice)
	tracker.Record(ctx, conv, bob)

	active := tracker.Active(ctx, conv, alice)
	require.Len(t, active, 1)
	assert.Equal(t, bob, active[0].ID)
}

func TestTypingClearedOnSend(t *testing.T) {
	tracker, _, conv, alice, bob := setupTyping(t)
	ctx := context.Background()

	tracker.Record(ctx, conv, alice)
	tracker.Clear(ctx, conv, alice)

	assert.Empty(t, tracker.Active(ctx, conv, bob))
}

func TestTypingRefreshExtendsHorizon(t *testing.T) {
	tracker, mr, conv, alice, bob := setupTyping(t)
	ctx := context.Background()

	tracker.Record(ctx, conv, alice)
	mr.FastForward(4 * time.Second)
	tracker.Record(ctx, conv, alice)
	mr.FastForward(4 * time.Second)

	// 8s after the first signal, but only 4s after the refresh
	assert.Len(t, tracker.Active(ctx, conv, bob), 1)
}

func TestTypingDegradesWithoutRedis(t *testing.T) {
	db := newTestDB(t)
	tracker := NewTypingTracker(nil, db)
	ctx := context.Background()

	tracker.Record(ctx, 1, 2)
	tracker.Clear(ctx, 1, 2)
	assert.Empty(t, tracker.Active(ctx, 1, 2))
}
