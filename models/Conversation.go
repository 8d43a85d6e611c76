package models

import "time"

// Conversation is a chat room. type: direct | group. A direct conversation
// has exactly two participants and is unique per unordered user pair.
type Conversation struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Type      string    `json:"type" gorm:"size:16;not null;index"`
	Title     string    `json:"title" gorm:"size:120"`
	CreatedBy uint      `json:"createdBy" gorm:"not null;index"`
	Creator   User      `json:"-" gorm:"foreignKey:CreatedBy"`
	CreatedAt time.Time `json:"createdAt"`

	Participants []ConversationParticipant `json:"participants" gorm:"foreignKey:ConversationID"`
}

// ConversationParticipant tracks one user's state inside a conversation.
// LastReadMessageID only moves forward, never back.
type ConversationParticipant struct {
	ID             uint         `json:"id" gorm:"primaryKey"`
	ConversationID uint         `json:"conversationID" gorm:"not null;uniqueIndex:idx_participant_pair"`
	Conversation   Conversation `json:"-" gorm:"foreignKey:ConversationID"`

	UserID uint `json:"userID" gorm:"not null;uniqueIndex:idx_participant_pair;index"`
	User   User `json:"user" gorm:"foreignKey:UserID"`

	Role              string     `json:"role" gorm:"size:16;default:member"` // member, owner
	JoinedAt          time.Time  `json:"joinedAt"`
	LastReadMessageID *uint      `json:"lastReadMessageID"`
	PinnedAt          *time.Time `json:"pinnedAt"`
	MutedUntil        *time.Time `json:"mutedUntil"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
