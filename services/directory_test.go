package services

import (
	"testing"

	"linkup-server/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSettingsDefaults(t *testing.T) {
	db := newTestDB(t)
	dir := NewUserDirectory(db)
	alice := seedUser(t, db, "alice")

	settings := dir.GetSettings(alice.ID)
	assert.Equal(t, "everyone", settings.DMPrivacy)
	assert.False(t, settings.HideReadReceipts)
	assert.False(t, settings.HideTyping)
	assert.True(t, settings.ShowOnline)
}

func TestCanMessagePrivacy(t *testing.T) {
	db := newTestDB(t)
	dir := NewUserDirectory(db)

	open := seedUser(t, db, "open")
	closed := seedUser(t, db, "closed")
	guarded := seedUser(t, db, "guarded")
	stranger := seedUser(t, db, "stranger")
	friend := seedUser(t, db, "friend")

	seedSettings(t, db, closed.ID, "nobody")
	seedSettings(t, db, guarded.ID, "friends")
	seedFriendship(t, db, friend.ID, guarded.ID)

	assert.True(t, dir.CanMessage(stranger.ID, open.ID), "no settings row means everyone")
	assert.False(t, dir.CanMessage(stranger.ID, closed.ID))
	assert.False(t, dir.CanMessage(friend.ID, closed.ID), "nobody blocks friends too")
	assert.False(t, dir.CanMessage(stranger.ID, guarded.ID))
	assert.True(t, dir.CanMessage(friend.ID, guarded.ID))
	assert.True(t, dir.CanMessage(open.ID, open.ID), "self always allowed")
}

func TestCanMessageBlocksEitherDirection(t *testing.T) {
	db := newTestDB(t)
	dir := NewUserDirectory(db)

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	carol := seedUser(t, db, "carol")

	require.NoError(t, db.Create(&models.UserBlock{BlockerID: alice.ID, BlockedID: bob.ID}).Error)

	assert.False(t, dir.CanMessage(bob.ID, alice.ID), "blocked sender rejected")
	assert.False(t, dir.CanMessage(alice.ID, bob.ID), "blocker cannot message either")
	assert.True(t, dir.CanMessage(carol.ID, alice.ID))
}
