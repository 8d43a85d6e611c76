package models

import "time"

// Message is one entry in a conversation.
//
// status: scheduled | sent. A scheduled message becomes sent lazily, the
// moment any listing of its conversation runs after ScheduledAt.
// DeletedAt is the delete-for-everyone tombstone: the body is cleared but
// the row stays so ordering and reply references survive. It is a plain
// timestamp, not a gorm soft delete.
type Message struct {
	ID             uint         `json:"id" gorm:"primaryKey"`
	ConversationID uint         `json:"conversationID" gorm:"not null;index"`
	Conversation   Conversation `json:"-" gorm:"foreignKey:ConversationID"`

	SenderID uint `json:"senderID" gorm:"not null;index"`
	Sender   User `json:"sender" gorm:"foreignKey:SenderID"`

	ReplyToMessageID *uint   `json:"replyToMessageID" gorm:"index"`
	Body             *string `json:"body" gorm:"type:text"`
	Type             string  `json:"type" gorm:"size:16;default:text"` // text, image, video, audio, file
	Status           string  `json:"status" gorm:"size:16;index"`      // scheduled, sent

	CreatedAt   time.Time  `json:"createdAt" gorm:"index"`
	ScheduledAt *time.Time `json:"scheduledAt" gorm:"index"`
	ExpiresAt   *time.Time `json:"expiresAt" gorm:"index"`
	EditedAt    *time.Time `json:"editedAt"`
	DeletedAt   *time.Time `json:"deletedAt"`
}

// MessageEdit is one entry of a message's append-only edit history.
type MessageEdit struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	MessageID uint      `json:"messageID" gorm:"not null;index"`
	EditorID  uint      `json:"editorID" gorm:"not null"`
	Body      string    `json:"body" gorm:"type:text"`
	CreatedAt time.Time `json:"createdAt"`
}

// MessageHidden suppresses a message for a single viewer (delete-for-self).
// Other participants keep seeing the message.
type MessageHidden struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	MessageID uint      `json:"messageID" gorm:"not null;uniqueIndex:idx_hidden_pair"`
	UserID    uint      `json:"userID" gorm:"not null;uniqueIndex:idx_hidden_pair;index"`
	CreatedAt time.Time `json:"createdAt"`
}

func (MessageHidden) TableName() string { return "message_hidden" }

// MessageRead is a read receipt, at most one per (message, user).
type MessageRead struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	MessageID uint      `json:"messageID" gorm:"not null;uniqueIndex:idx_read_pair"`
	UserID    uint      `json:"userID" gorm:"not null;uniqueIndex:idx_read_pair;index"`
	ReadAt    time.Time `json:"readAt"`
}

// MessageReaction holds one emoji per (message, user); a later reaction by
// the same user replaces the earlier one.
type MessageReaction struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	MessageID uint      `json:"messageID" gorm:"not null;uniqueIndex:idx_reaction_pair"`
	UserID    uint      `json:"userID" gorm:"not null;uniqueIndex:idx_reaction_pair;index"`
	Emoji     string    `json:"emoji" gorm:"size:32;not null"`
	CreatedAt time.Time `json:"createdAt"`
}

// MessageAttachment stores uploaded media attached to a message.
type MessageAttachment struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	MessageID uint      `json:"messageID" gorm:"not null;index"`
	MediaType string    `json:"mediaType" gorm:"size:16"` // image, video, audio, file
	URL       string    `json:"url" gorm:"size:512"`
	ThumbURL  string    `json:"thumbURL" gorm:"size:512"`
	Duration  *int      `json:"duration"`
	SizeBytes *int64    `json:"sizeBytes"`
	CreatedAt time.Time `json:"createdAt"`
}
