package services

import (
	"errors"
	"time"

	"linkup-server/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeleteForAllWindow bounds how long after creation a sender may still
// delete a message for everyone.
const DeleteForAllWindow = 10 * time.Minute

var (
	ErrMessageNotFound = errors.New("message not found")
	ErrNotSender       = errors.New("only the sender may do this")
	ErrTombstoned      = errors.New("message was deleted for everyone")
	ErrWindowExpired   = errors.New("delete-for-all window expired")
	ErrEmptyBody       = errors.New("message body required")
)

// MessageService drives the message lifecycle: creation, lazy
// scheduled→sent promotion, expiry filtering, edits, tombstones, per-viewer
// hides, receipts and reactions. The clock is injected so time-triggered
// transitions are testable without sleeping.
type MessageService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewMessageService(db *gorm.DB) *MessageService {
	return &MessageService{db: db, now: time.Now}
}

// CreateMessageParams carries the optional knobs of message creation.
type CreateMessageParams struct {
	ConversationID uint
	SenderID       uint
	Body           *string
	Type           string
	ReplyTo        *uint
	ScheduledAt    *time.Time
	ExpiresIn      int // seconds; 0 means the message never expires
}

// Create persists a new message. A ScheduledAt in the future yields status
// scheduled and the message stays invisible until promoted; otherwise it is
// sent immediately. Returns the new message id.
func (s *MessageService) Create(p CreateMessageParams) (uint, error) {
	now := s.now()

	status := "sent"
	createdAt := now
	var scheduledAt *time.Time
	if p.ScheduledAt != nil && p.ScheduledAt.After(now) {
		status = "scheduled"
		t := *p.ScheduledAt
		scheduledAt = &t
		createdAt = t
	}

	var expiresAt *time.Time
	if p.ExpiresIn > 0 {
		t := now.Add(time.Duration(p.ExpiresIn) * time.Second)
		expiresAt = &t
	}

	msgType := p.Type
	if msgType == "" {
		msgType = "text"
	}

	message := models.Message{
		ConversationID:   p.ConversationID,
		SenderID:         p.SenderID,
		ReplyToMessageID: p.ReplyTo,
		Body:             p.Body,
		Type:             msgType,
		Status:           status,
		CreatedAt:        createdAt,
		ScheduledAt:      scheduledAt,
		ExpiresAt:        expiresAt,
	}
	if err := s.db.Create(&message).Error; err != nil {
		return 0, err
	}
	return message.ID, nil
}

func (s *MessageService) FindByID(id uint) (*models.Message, error) {
	var message models.Message
	err := s.db.First(&message, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// PromoteDue flips every due scheduled message of the conversation to sent,
// stamping created_at with the original scheduled_at so the message lands in
// its chronological slot. Returns the promoted ids. Every listing path calls
// this before filtering; no background clock exists.
func (s *MessageService) PromoteDue(conversationID uint, now time.Time) ([]uint, error) {
	var ids []uint
	err := s.db.Model(&models.Message{}).
		Where("conversation_id = ? AND status = ? AND scheduled_at IS NOT NULL AND scheduled_at <= ?",
			conversationID, "scheduled", now).
		Pluck("id", &ids).Error
	if err != nil || len(ids) == 0 {
		return nil, err
	}

	err = s.db.Model(&models.Message{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"status":     "sent",
			"created_at": gorm.Expr("scheduled_at"),
		}).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// MessageView is one enriched row of a conversation listing. Tombstoned
// messages keep their row (body null) so clients render "message deleted"
// instead of a gap.
type MessageView struct {
	ID               uint       `json:"id"`
	ConversationID   uint       `json:"conversationID"`
	SenderID         uint       `json:"senderID"`
	ReplyToMessageID *uint      `json:"replyToMessageID"`
	Body             *string    `json:"body"`
	Type             string     `json:"type"`
	Status           string     `json:"status"`
	CreatedAt        time.Time  `json:"createdAt"`
	EditedAt         *time.Time `json:"editedAt"`
	DeletedAt        *time.Time `json:"deletedAt"`
	ExpiresAt        *time.Time `json:"expiresAt"`
	Username         string     `json:"username"`
	AvatarURL        string     `json:"avatarURL"`
	ReadCount        int        `json:"readCount"`
	MediaURL         *string    `json:"mediaURL"`
	MediaType        *string    `json:"mediaType"`
	ReplyBody        *string    `json:"replyBody"`
	ReplyUsername    *string    `json:"replyUsername"`
}

// List returns the viewer's visible slice of a conversation in ascending
// creation order. afterID > 0 switches to incremental polling: only rows
// with a greater id. Hidden-for-viewer and expired rows are excluded;
// scheduled rows are promoted first.
func (s *MessageService) List(conversationID, viewerID uint, limit, offset int, afterID uint) ([]MessageView, error) {
	now := s.now()
	if _, err := s.PromoteDue(conversationID, now); err != nil {
		return nil, err
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := `
SELECT m.id, m.conversation_id, m.sender_id, m.reply_to_message_id, m.body,
       m.type, m.status, m.created_at, m.edited_at, m.deleted_at, m.expires_at,
       u.username, u.avatar_url,
       (SELECT COUNT(*) FROM message_reads mr WHERE mr.message_id = m.id) AS read_count,
       (SELECT ma.url FROM message_attachments ma WHERE ma.message_id = m.id ORDER BY ma.id ASC LIMIT 1) AS media_url,
       (SELECT ma.media_type FROM message_attachments ma WHERE ma.message_id = m.id ORDER BY ma.id ASC LIMIT 1) AS media_type,
       r.body AS reply_body, ru.username AS reply_username
FROM messages m
JOIN users u ON u.id = m.sender_id
LEFT JOIN messages r ON r.id = m.reply_to_message_id
LEFT JOIN users ru ON ru.id = r.sender_id
LEFT JOIN message_hidden mh ON mh.message_id = m.id AND mh.user_id = ?
WHERE m.conversation_id = ?
  AND m.status = 'sent'
  AND (m.expires_at IS NULL OR m.expires_at > ?)
  AND mh.id IS NULL`

	args := []interface{}{viewerID, conversationID, now}
	if afterID > 0 {
		query += " AND m.id > ?"
		args = append(args, afterID)
	}
	query += " ORDER BY m.created_at ASC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var rows []MessageView
	err := s.db.Raw(query, args...).Scan(&rows).Error
	return rows, err
}

// MarkRead advances the viewer's read cursor to at least messageID. The
// cursor never regresses, even under concurrent calls from rapid polling.
// A MessageRead receipt is recorded only when the viewer's privacy settings
// allow it (trackReceipt).
func (s *MessageService) MarkRead(messageID, viewerID uint, trackReceipt bool) error {
	message, err := s.FindByID(messageID)
	if err != nil {
		return err
	}

	if trackReceipt {
		receipt := models.MessageRead{MessageID: messageID, UserID: viewerID, ReadAt: s.now()}
		if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&receipt).Error; err != nil {
			return err
		}
	}

	return s.db.Exec(`
UPDATE conversation_participants
SET last_read_message_id = CASE
      WHEN last_read_message_id IS NULL OR last_read_message_id < ? THEN ?
      ELSE last_read_message_id
    END
WHERE conversation_id = ? AND user_id = ?`,
		messageID, messageID, message.ConversationID, viewerID).Error
}

// Edit replaces the body and appends to the immutable edit history. Only the
// original sender may edit, and never after a tombstone.
func (s *MessageService) Edit(messageID, editorID uint, body string) error {
	if body == "" {
		return ErrEmptyBody
	}
	message, err := s.FindByID(messageID)
	if err != nil {
		return err
	}
	if message.SenderID != editorID {
		return ErrNotSender
	}
	if message.DeletedAt != nil {
		return ErrTombstoned
	}

	now := s.now()
	return s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Message{}).
			Where("id = ? AND sender_id = ? AND deleted_at IS NULL", messageID, editorID).
			Updates(map[string]interface{}{"body": body, "edited_at": now}).Error
		if err != nil {
			return err
		}
		return tx.Create(&models.MessageEdit{
			MessageID: messageID, EditorID: editorID, Body: body, CreatedAt: now,
		}).Error
	})
}

// Edits lists the edit history, newest first.
func (s *MessageService) Edits(messageID uint) ([]models.MessageEdit, error) {
	var edits []models.MessageEdit
	err := s.db.Where("message_id = ?", messageID).
		Order("created_at DESC, id DESC").
		Find(&edits).Error
	return edits, err
}

// DeleteForAll tombstones the message: body cleared, deleted_at set, row
// kept for ordering. Sender-only, and only within DeleteForAllWindow of
// creation.
func (s *MessageService) DeleteForAll(messageID, senderID uint) error {
	message, err := s.FindByID(messageID)
	if err != nil {
		return err
	}
	if message.SenderID != senderID {
		return ErrNotSender
	}
	if s.now().Sub(message.CreatedAt) > DeleteForAllWindow {
		return ErrWindowExpired
	}

	return s.db.Model(&models.Message{}).
		Where("id = ? AND sender_id = ?", messageID, senderID).
		Updates(map[string]interface{}{"body": nil, "deleted_at": s.now()}).Error
}

// HideForSelf suppresses the message for this viewer only. Idempotent.
func (s *MessageService) HideForSelf(messageID, viewerID uint) error {
	hidden := models.MessageHidden{MessageID: messageID, UserID: viewerID, CreatedAt: s.now()}
	return s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&hidden).Error
}

// React records the user's emoji on a message. A second reaction from the
// same user replaces the first.
func (s *MessageService) React(messageID, userID uint, emoji string) error {
	reaction := models.MessageReaction{
		MessageID: messageID, UserID: userID, Emoji: emoji, CreatedAt: s.now(),
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "message_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"emoji": emoji, "created_at": s.now()}),
	}).Create(&reaction).Error
}

// Reactions returns all reactions on a message.
func (s *MessageService) Reactions(messageID uint) ([]models.MessageReaction, error) {
	var reactions []models.MessageReaction
	err := s.db.Where("message_id = ?", messageID).Order("id ASC").Find(&reactions).Error
	return reactions, err
}

// AttachMedia links stored media to a message.
func (s *MessageService) AttachMedia(messageID uint, mediaType, url string, sizeBytes *int64) error {
	return s.db.Create(&models.MessageAttachment{
		MessageID: messageID, MediaType: mediaType, URL: url, SizeBytes: sizeBytes, CreatedAt: s.now(),
	}).Error
}
