package services

import (
	"time"

	"linkup-server/models"

	"golang.org/x/exp/slices"
	"gorm.io/gorm"
)

// ConversationService owns conversation and participant rows. It assumes
// pre-authorized input: callers check participation before mutating state on
// someone's behalf.
type ConversationService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewConversationService(db *gorm.DB) *ConversationService {
	return &ConversationService{db: db, now: time.Now}
}

// ConversationSummary is one row of the viewer's conversation list.
type ConversationSummary struct {
	ID                uint       `json:"id"`
	Type              string     `json:"type"`
	Title             string     `json:"title"`
	CreatedBy         uint       `json:"createdBy"`
	CreatedAt         time.Time  `json:"createdAt"`
	LastReadMessageID *uint      `json:"lastReadMessageID"`
	PinnedAt          *time.Time `json:"pinnedAt"`
	MutedUntil        *time.Time `json:"mutedUntil"`
	PeerID            *uint      `json:"peerID"`
	PeerUsername      *string    `json:"peerUsername"`
	PeerAvatar        *string    `json:"peerAvatar"`
	LastMessage       *string    `json:"lastMessage"`
	LastMessageAt     *time.Time `json:"lastMessageAt"`
	UnreadCount       int        `json:"unreadCount"`
}

// ParticipantInfo is the public slice of a participant's identity.
type ParticipantInfo struct {
	ID         uint       `json:"id"`
	Username   string     `json:"username"`
	AvatarURL  string     `json:"avatarURL"`
	MutedUntil *time.Time `json:"-"`
}

// CreateDirect returns the existing direct conversation for the unordered
// (a, b) pair, creating one with both as members when absent. Idempotent in
// either argument order.
func (s *ConversationService) CreateDirect(userA, userB uint) (uint, error) {
	var existing struct{ ID uint }
	err := s.db.Table("conversations").
		Select("conversations.id").
		Joins("JOIN conversation_participants p1 ON p1.conversation_id = conversations.id AND p1.user_id = ?", userA).
		Joins("JOIN conversation_participants p2 ON p2.conversation_id = conversations.id AND p2.user_id = ?", userB).
		Where("conversations.type = ?", "direct").
		Limit(1).
		Scan(&existing).Error
	if err != nil {
		return 0, err
	}
	if existing.ID != 0 {
		return existing.ID, nil
	}

	now := s.now()
	conversation := models.Conversation{Type: "direct", CreatedBy: userA, CreatedAt: now}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&conversation).Error; err != nil {
			return err
		}
		participants := []models.ConversationParticipant{
			{ConversationID: conversation.ID, UserID: userA, Role: "member", JoinedAt: now},
			{ConversationID: conversation.ID, UserID: userB, Role: "member", JoinedAt: now},
		}
		return tx.Create(&participants).Error
	})
	if err != nil {
		return 0, err
	}
	return conversation.ID, nil
}

// CreateGroup creates a group conversation. The creator is always a member
// even when omitted from memberIDs; duplicates are collapsed.
func (s *ConversationService) CreateGroup(title string, creatorID uint, memberIDs []uint) (uint, error) {
	ids := []uint{creatorID}
	for _, id := range memberIDs {
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}

	now := s.now()
	conversation := models.Conversation{Type: "group", Title: title, CreatedBy: creatorID, CreatedAt: now}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&conversation).Error; err != nil {
			return err
		}
		participants := make([]models.ConversationParticipant, 0, len(ids))
		for _, id := range ids {
			role := "member"
			if id == creatorID {
				role = "owner"
			}
			participants = append(participants, models.ConversationParticipant{
				ConversationID: conversation.ID, UserID: id, Role: role, JoinedAt: now,
			})
		}
		return tx.Create(&participants).Error
	})
	if err != nil {
		return 0, err
	}
	return conversation.ID, nil
}

func (s *ConversationService) FindByID(id uint) (*models.Conversation, error) {
	var conversation models.Conversation
	if err := s.db.First(&conversation, id).Error; err != nil {
		return nil, err
	}
	return &conversation, nil
}

func (s *ConversationService) IsParticipant(conversationID, userID uint) bool {
	var count int64
	s.db.Model(&models.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&count)
	return count > 0
}

func (s *ConversationService) Participants(conversationID uint) ([]ParticipantInfo, error) {
	var out []ParticipantInfo
	err := s.db.Table("conversation_participants cp").
		Select("u.id, u.username, u.avatar_url, cp.muted_until").
		Joins("JOIN users u ON u.id = cp.user_id").
		Where("cp.conversation_id = ?", conversationID).
		Scan(&out).Error
	return out, err
}

// OtherParticipantID returns the peer of a direct conversation.
func (s *ConversationService) OtherParticipantID(conversationID, userID uint) (uint, bool) {
	var row struct{ UserID uint }
	s.db.Table("conversation_participants").
		Select("user_id").
		Where("conversation_id = ? AND user_id <> ?", conversationID, userID).
		Limit(1).
		Scan(&row)
	return row.UserID, row.UserID != 0
}

// ListForViewer returns the viewer's conversations: pinned first (pin time
// descending), then conversations with unread messages, then most recent
// activity. Unread counts only sent messages past the viewer's read cursor
// and not authored by the viewer.
func (s *ConversationService) ListForViewer(viewerID uint) ([]ConversationSummary, error) {
	var rows []ConversationSummary
	err := s.db.Raw(`
SELECT * FROM (
  SELECT c.id, c.type, c.title, c.created_by, c.created_at,
         cp.last_read_message_id, cp.pinned_at, cp.muted_until,
         u.id AS peer_id, u.username AS peer_username, u.avatar_url AS peer_avatar,
         (SELECT m.body FROM messages m
           WHERE m.conversation_id = c.id AND m.status = 'sent'
           ORDER BY m.created_at DESC LIMIT 1) AS last_message,
         (SELECT m.created_at FROM messages m
           WHERE m.conversation_id = c.id AND m.status = 'sent'
           ORDER BY m.created_at DESC LIMIT 1) AS last_message_at,
         (SELECT COUNT(*) FROM messages m
           WHERE m.conversation_id = c.id
             AND m.status = 'sent'
             AND m.id > COALESCE(cp.last_read_message_id, 0)
             AND m.sender_id <> ?) AS unread_count
  FROM conversations c
  JOIN conversation_participants cp ON cp.conversation_id = c.id AND cp.user_id = ?
  LEFT JOIN conversation_participants cp2 ON cp2.conversation_id = c.id AND cp2.user_id <> ? AND c.type = 'direct'
  LEFT JOIN users u ON u.id = cp2.user_id
) x
ORDER BY (CASE WHEN x.pinned_at IS NULL THEN 1 ELSE 0 END), x.pinned_at DESC,
         (CASE WHEN x.unread_count > 0 THEN 0 ELSE 1 END),
         COALESCE(x.last_message_at, x.created_at) DESC`,
		viewerID, viewerID, viewerID).Scan(&rows).Error
	return rows, err
}

// Pin, Unpin, Mute and Unmute touch only the viewer's own participant row
// and are silent no-ops for non-participants; callers pre-check
// IsParticipant for the Forbidden response.

func (s *ConversationService) Pin(conversationID, userID uint) error {
	return s.participantUpdate(conversationID, userID, map[string]interface{}{"pinned_at": s.now()})
}

func (s *ConversationService) Unpin(conversationID, userID uint) error {
	return s.participantUpdate(conversationID, userID, map[string]interface{}{"pinned_at": nil})
}

func (s *ConversationService) Mute(conversationID, userID uint, minutes int) error {
	until := s.now().Add(time.Duration(minutes) * time.Minute)
	return s.participantUpdate(conversationID, userID, map[string]interface{}{"muted_until": until})
}

func (s *ConversationService) Unmute(conversationID, userID uint) error {
	return s.participantUpdate(conversationID, userID, map[string]interface{}{"muted_until": nil})
}

func (s *ConversationService) participantUpdate(conversationID, userID uint, values map[string]interface{}) error {
	return s.db.Model(&models.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Updates(values).Error
}
