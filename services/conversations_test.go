package services

import (
	"testing"
	"time"

	"linkup-server/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateDirectIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := NewConversationService(db)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	first, err := svc.CreateDirect(alice.ID, bob.ID)
	require.NoError(t, err)
	require.NotZero(t, first)

	second, err := svc.CreateDirect(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// reversed argument order resolves to the same conversation
	reversed, err := svc.CreateDirect(bob.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, first, reversed)

	var count int64
	db.Model(&models.Conversation{}).Count(&count)
	assert.Equal(t, int64(1), count)

	assert.True(t, svc.IsParticipant(first, alice.ID))
	assert.True(t, svc.IsParticipant(first, bob.ID))
}

func TestCreateGroupCollapsesDuplicates(t *testing.T) {
	db := newTestDB(t)
	svc := NewConversationService(db)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	carol := seedUser(t, db, "carol")

	// creator repeated in the member list, bob listed twice
	id, err := svc.CreateGroup("trip", alice.ID, []uint{alice.ID, bob.ID, bob.ID, carol.ID})
	require.NoError(t, err)

	var participants []models.ConversationParticipant
	require.NoError(t, db.Where("conversation_id = ?", id).Order("user_id ASC").Find(&participants).Error)
	require.Len(t, participants, 3)

	roles := map[uint]string{}
	for _, p := range participants {
		roles[p.UserID] = p.Role
	}
	assert.Equal(t, "owner", roles[alice.ID])
	assert.Equal(t, "member", roles[bob.ID])
	assert.Equal(t, "member", roles[carol.ID])
}

func TestOtherParticipantID(t *testing.T) {
	db := newTestDB(t)
	svc := NewConversationService(db)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	id, err := svc.CreateDirect(alice.ID, bob.ID)
	require.NoError(t, err)

	peer, ok := svc.OtherParticipantID(id, alice.ID)
	require.True(t, ok)
	assert.Equal(t, bob.ID, peer)

	_, ok = svc.OtherParticipantID(9999, alice.ID)
	assert.False(t, ok)
}

func TestListForViewerOrdering(t *testing.T) {
	db := newTestDB(t)
	clock := newTestClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))

	convSvc := NewConversationService(db)
	convSvc.now = clock.Now
	msgSvc := NewMessageService(db)
	msgSvc.now = clock.Now

	viewer := seedUser(t, db, "viewer")
	peerA := seedUser(t, db, "peer-a")
	peerB := seedUser(t, db, "peer-b")
	peerC := seedUser(t, db, "peer-c")

	// oldest activity, but pinned by the viewer
	pinned, err := convSvc.CreateDirect(viewer.ID, peerA.ID)
	require.NoError(t, err)
	sendText(t, msgSvc, pinned, peerA.ID, "old pinned chatter")
	markLatestRead(t, msgSvc, pinned, viewer.ID)

	clock.Advance(time.Minute)
	// unread messages from peerB
	unread, err := convSvc.CreateDirect(viewer.ID, peerB.ID)
	require.NoError(t, err)
	sendText(t, msgSvc, unread, peerB.ID, "you there?")

	clock.Advance(time.Minute)
	// most recent activity, fully read
	recent, err := convSvc.CreateDirect(viewer.ID, peerC.ID)
	require.NoError(t, err)
	sendText(t, msgSvc, recent, peerC.ID, "latest news")
	markLatestRead(t, msgSvc, recent, viewer.ID)

	clock.Advance(time.Minute)
	require.NoError(t, convSvc.Pin(pinned, viewer.ID))

	rows, err := convSvc.ListForViewer(viewer.ID)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, pinned, rows[0].ID, "pinned conversation first regardless of activity")
	assert.Equal(t, unread, rows[1].ID, "unread beats newer-but-read")
	assert.Equal(t, recent, rows[2].ID)

	assert.Equal(t, 1, rows[1].UnreadCount)
	assert.Equal(t, 0, rows[2].UnreadCount)
	require.NotNil(t, rows[1].PeerUsername)
	assert.Equal(t, "peer-b", *rows[1].PeerUsername)
}

func TestMuteAndUnmute(t *testing.T) {
	db := newTestDB(t)
	clock := newTestClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	svc := NewConversationService(db)
	svc.now = clock.Now

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	id, err := svc.CreateDirect(alice.ID, bob.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Mute(id, alice.ID, 30))

	var participant models.ConversationParticipant
	require.NoError(t, db.Where("conversation_id = ? AND user_id = ?", id, alice.ID).First(&participant).Error)
	require.NotNil(t, participant.MutedUntil)
	assert.Equal(t, clock.Now().Add(30*time.Minute).Unix(), participant.MutedUntil.Unix())

	// bob's row untouched
	var peer models.ConversationParticipant
	require.NoError(t, db.Where("conversation_id = ? AND user_id = ?", id, bob.ID).First(&peer).Error)
	assert.Nil(t, peer.MutedUntil)

	require.NoError(t, svc.Unmute(id, alice.ID))

	// scan into a fresh struct: a NULL column leaves a reused one stale
	var unmuted models.ConversationParticipant
	require.NoError(t, db.Where("conversation_id = ? AND user_id = ?", id, alice.ID).First(&unmuted).Error)
	assert.Nil(t, unmuted.MutedUntil)
}

func sendText(t *testing.T, svc *MessageService, conversationID, senderID uint, body string) uint {
	t.Helper()
	id, err := svc.Create(CreateMessageParams{ConversationID: conversationID, SenderID: senderID, Body: &body})
	if err != nil {
		t.Fatalf("send message: %v", err)
	}
	return id
}

func markLatestRead(t *testing.T, svc *MessageService, conversationID, viewerID uint) {
	t.Helper()
	rows, err := svc.List(conversationID, viewerID, 100, 0, 0)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(rows) == 0 {
		return
	}
	if err := svc.MarkRead(rows[len(rows)-1].ID, viewerID, true); err != nil {
		t.Fatalf("mark read: %v", err)
	}
}
