package services

import (
	"testing"
	"time"

	"linkup-server/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupConversation(t *testing.T) (*MessageService, *testClock, uint, models.User, models.User) {
	t.Helper()
	db := newTestDB(t)
	clock := newTestClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))

	convSvc := NewConversationService(db)
	convSvc.now = clock.Now
	msgSvc := NewMessageService(db)
	msgSvc.now = clock.Now

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	conversationID, err := convSvc.CreateDirect(alice.ID, bob.ID)
	require.NoError(t, err)

	return msgSvc, clock, conversationID, alice, bob
}

func TestScheduledMessageStaysInvisibleUntilDue(t *testing.T) {
	svc, clock, conv, alice, bob := setupConversation(t)

	body := "surprise!"
	due := clock.Now().Add(time.Hour)
	id, err := svc.Create(CreateMessageParams{
		ConversationID: conv, SenderID: alice.ID, Body: &body, ScheduledAt: &due,
	})
	require.NoError(t, err)

	message, err := svc.FindByID(id)
	require.NoError(t, err)
	assert.Equal(t, "scheduled", message.Status)

	rows, err := svc.List(conv, bob.ID, 50, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, rows, "scheduled message must not appear before its time")

	clock.Advance(2 * time.Hour)
	rows, err = svc.List(conv, bob.ID, 50, 0, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "sent", rows[0].Status)
	assert.Equal(t, due.Unix(), rows[0].CreatedAt.Unix(), "promotion stamps created_at with scheduled_at")
}

func TestPromotedMessageLandsInChronologicalSlot(t *testing.T) {
	svc, clock, conv, alice, bob := setupConversation(t)

	early := sendText(t, svc, conv, alice.ID, "first")

	due := clock.Now().Add(10 * time.Minute)
	body := "scheduled in the middle"
	scheduled, err := svc.Create(CreateMessageParams{
		ConversationID: conv, SenderID: alice.ID, Body: &body, ScheduledAt: &due,
	})
	require.NoError(t, err)

	clock.Advance(20 * time.Minute)
	late := sendText(t, svc, conv, bob.ID, "third")

	clock.Advance(time.Minute)
	rows, err := svc.List(conv, bob.ID, 50, 0, 0)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, early, rows[0].ID)
	assert.Equal(t, scheduled, rows[1].ID)
	assert.Equal(t, late, rows[2].ID)
}

func TestExpiringMessageDisappears(t *testing.T) {
	svc, clock, conv, alice, bob := setupConversation(t)

	body := "gone in sixty seconds"
	_, err := svc.Create(CreateMessageParams{
		ConversationID: conv, SenderID: alice.ID, Body: &body, ExpiresIn: 60,
	})
	require.NoError(t, err)

	clock.Advance(59 * time.Second)
	rows, err := svc.List(conv, bob.ID, 50, 0, 0)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	clock.Advance(2 * time.Second)
	rows, err = svc.List(conv, bob.ID, 50, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestListAfterIDReturnsOnlyNewerRows(t *testing.T) {
	svc, _, conv, alice, bob := setupConversation(t)

	first := sendText(t, svc, conv, alice.ID, "one")
	second := sendText(t, svc, conv, bob.ID, "two")
	third := sendText(t, svc, conv, alice.ID, "three")

	rows, err := svc.List(conv, bob.ID, 50, 0, first)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, second, rows[0].ID)
	assert.Equal(t, third, rows[1].ID)
}

func TestMarkReadCursorNeverRegresses(t *testing.T) {
	svc, _, conv, alice, bob := setupConversation(t)
	db := svc.db

	sendText(t, svc, conv, alice.ID, "one")
	sendText(t, svc, conv, alice.ID, "two")
	latest := sendText(t, svc, conv, alice.ID, "three")
	middle := latest - 1

	require.NoError(t, svc.MarkRead(latest, bob.ID, true))

	var participant models.ConversationParticipant
	require.NoError(t, db.Where("conversation_id = ? AND user_id = ?", conv, bob.ID).First(&participant).Error)
	require.NotNil(t, participant.LastReadMessageID)
	assert.Equal(t, latest, *participant.LastReadMessageID)

	// a stale poll for an older message must not move the cursor back
	require.NoError(t, svc.MarkRead(middle, bob.ID, true))
	require.NoError(t, db.Where("conversation_id = ? AND user_id = ?", conv, bob.ID).First(&participant).Error)
	assert.Equal(t, latest, *participant.LastReadMessageID)
}

func TestMarkReadReceiptDeduplicated(t *testing.T) {
	svc, _, conv, alice, bob := setupConversation(t)
	db := svc.db

	id := sendText(t, svc, conv, alice.ID, "hello")
	require.NoError(t, svc.MarkRead(id, bob.ID, true))
	require.NoError(t, svc.MarkRead(id, bob.ID, true))

	var count int64
	db.Model(&models.MessageRead{}).Where("message_id = ? AND user_id = ?", id, bob.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestMarkReadWithoutReceipt(t *testing.T) {
	svc, _, conv, alice, bob := setupConversation(t)
	db := svc.db

	id := sendText(t, svc, conv, alice.ID, "hello")
	require.NoError(t, svc.MarkRead(id, bob.ID, false))

	var count int64
	db.Model(&models.MessageRead{}).Where("message_id = ?", id).Count(&count)
	assert.Equal(t, int64(0), count, "hidden receipts leave no row")

	var participant models.ConversationParticipant
	require.NoError(t, db.Where("conversation_id = ? AND user_id = ?", conv, bob.ID).First(&participant).Error)
	require.NotNil(t, participant.LastReadMessageID, "cursor still advances")
}

func TestEditAppendsHistoryNewestFirst(t *testing.T) {
	svc, clock, conv, alice, bob := setupConversation(t)

	id := sendText(t, svc, conv, alice.ID, "helo")
	require.NoError(t, svc.Edit(id, alice.ID, "hello"))
	clock.Advance(time.Minute)
	require.NoError(t, svc.Edit(id, alice.ID, "hello there"))

	message, err := svc.FindByID(id)
	require.NoError(t, err)
	require.NotNil(t, message.Body)
	assert.Equal(t, "hello there", *message.Body)
	assert.NotNil(t, message.EditedAt)

	edits, err := svc.Edits(id)
	require.NoError(t, err)
	require.Len(t, edits, 2)
	assert.Equal(t, "hello there", edits[0].Body)
	assert.Equal(t, "hello", edits[1].Body)

	assert.ErrorIs(t, svc.Edit(id, bob.ID, "hijacked"), ErrNotSender)
	assert.ErrorIs(t, svc.Edit(id, alice.ID, ""), ErrEmptyBody)
}

func TestDeleteForAllTombstones(t *testing.T) {
	svc, clock, conv, alice, bob := setupConversation(t)

	id := sendText(t, svc, conv, alice.ID, "regret this")
	clock.Advance(5 * time.Minute)

	assert.ErrorIs(t, svc.DeleteForAll(id, bob.ID), ErrNotSender)
	require.NoError(t, svc.DeleteForAll(id, alice.ID))

	// the row survives as a tombstone for every viewer
	rows, err := svc.List(conv, bob.ID, 50, 0, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].Body)
	assert.NotNil(t, rows[0].DeletedAt)

	assert.ErrorIs(t, svc.Edit(id, alice.ID, "resurrect"), ErrTombstoned)
}

func TestDeleteForAllWindowExpires(t *testing.T) {
	svc, clock, conv, alice, _ := setupConversation(t)

	id := sendText(t, svc, conv, alice.ID, "too late")
	clock.Advance(DeleteForAllWindow + time.Second)

	assert.ErrorIs(t, svc.DeleteForAll(id, alice.ID), ErrWindowExpired)

	message, err := svc.FindByID(id)
	require.NoError(t, err)
	assert.Nil(t, message.DeletedAt)
}

func TestHideForSelfIsPerViewer(t *testing.T) {
	svc, _, conv, alice, bob := setupConversation(t)

	id := sendText(t, svc, conv, alice.ID, "awkward")
	require.NoError(t, svc.HideForSelf(id, bob.ID))
	require.NoError(t, svc.HideForSelf(id, bob.ID)) // idempotent

	rows, err := svc.List(conv, bob.ID, 50, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = svc.List(conv, alice.ID, 50, 0, 0)
	require.NoError(t, err)
	assert.Len(t, rows, 1, "hide only affects the hiding viewer")
}

func TestReactReplacesPreviousReaction(t *testing.T) {
	svc, _, conv, alice, bob := setupConversation(t)

	id := sendText(t, svc, conv, alice.ID, "reaction bait")
	require.NoError(t, svc.React(id, bob.ID, "👍"))
	require.NoError(t, svc.React(id, bob.ID, "❤️"))
	require.NoError(t, svc.React(id, alice.ID, "😂"))

	reactions, err := svc.Reactions(id)
	require.NoError(t, err)
	require.Len(t, reactions, 2)

	byUser := map[uint]string{}
	for _, r := range reactions {
		byUser[r.UserID] = r.Emoji
	}
	assert.Equal(t, "❤️", byUser[bob.ID], "second reaction replaces the first")
	assert.Equal(t, "😂", byUser[alice.ID])
}

func TestListEnrichesReplyAndReadCount(t *testing.T) {
	svc, _, conv, alice, bob := setupConversation(t)

	original := sendText(t, svc, conv, alice.ID, "original")
	require.NoError(t, svc.MarkRead(original, bob.ID, true))

	body := "replying"
	_, err := svc.Create(CreateMessageParams{
		ConversationID: conv, SenderID: bob.ID, Body: &body, ReplyTo: &original,
	})
	require.NoError(t, err)

	rows, err := svc.List(conv, alice.ID, 50, 0, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, 1, rows[0].ReadCount)
	assert.Equal(t, "alice", rows[0].Username)

	require.NotNil(t, rows[1].ReplyBody)
	assert.Equal(t, "original", *rows[1].ReplyBody)
	require.NotNil(t, rows[1].ReplyUsername)
	assert.Equal(t, "alice", *rows[1].ReplyUsername)
}
