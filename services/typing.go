package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// TypingHorizon is the maximum age of a typing signal still considered
// active. Keys expire on their own; readers never see stale entries.
const TypingHorizon = 6 * time.Second

// TypingTracker keeps short-lived typing indicators in Redis. It is
// best-effort: any Redis failure degrades to a silent no-op or an empty
// result, and must never block message delivery.
type TypingTracker struct {
	redis *redis.Client
	db    *gorm.DB
}

func NewTypingTracker(redisClient *redis.Client, db *gorm.DB) *TypingTracker {
	return &TypingTracker{redis: redisClient, db: db}
}

// TypingUser is one active typer resolved against current user identity.
type TypingUser struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

func typingKey(conversationID, userID uint) string {
	return fmt.Sprintf("typing:conv:%d:user:%d", conversationID, userID)
}

// Record upserts the user's typing signal for the conversation.
func (t *TypingTracker) Record(ctx context.Context, conversationID, userID uint) {
	if t.redis == nil {
		return
	}
	t.redis.Set(ctx, typingKey(conversationID, userID), "1", TypingHorizon)
}

// Clear drops the user's typing signal; called when they send a message.
func (t *TypingTracker) Clear(ctx context.Context, conversationID, userID uint) {
	if t.redis == nil {
		return
	}
	t.redis.Del(ctx, typingKey(conversationID, userID))
}

// Active returns every participant with a live typing signal, excluding the
// viewer. Identity comes from the users table so renames show up
// immediately.
func (t *TypingTracker) Active(ctx context.Context, conversationID, viewerID uint) []TypingUser {
	if t.redis == nil {
		return []TypingUser{}
	}

	var participants []struct {
		UserID   uint
		Username string
		Name     string
	}
	err := t.db.Table("conversation_participants cp").
		Select("cp.user_id, u.username, u.name").
		Joins("JOIN users u ON u.id = cp.user_id").
		Where("cp.conversation_id = ?", conversationID).
		Scan(&participants).Error
	if err != nil {
		return []TypingUser{}
	}

	active := []TypingUser{}
	for _, p := range participants {
		if p.UserID == viewerID {
			continue
		}
		val, err := t.redis.Get(ctx, typingKey(conversationID, p.UserID)).Result()
		if err != nil || val != "1" {
			continue
		}
		active = append(active, TypingUser{ID: p.UserID, Username: p.Username, Name: p.Name})
	}
	return active
}
