package models

import "time"

// MessageRequest gates unsolicited direct messaging between non-friends.
// At most one non-denied request exists per unordered (requester, recipient)
// pair; only the recipient may answer it.
// status: pending, accepted, denied
type MessageRequest struct {
	ID             uint         `json:"id" gorm:"primaryKey"`
	ConversationID uint         `json:"conversationID" gorm:"not null;index"`
	Conversation   Conversation `json:"-" gorm:"foreignKey:ConversationID"`

	RequesterID uint `json:"requesterID" gorm:"not null;index"`
	Requester   User `json:"requester" gorm:"foreignKey:RequesterID"`

	RecipientID uint `json:"recipientID" gorm:"not null;index"`
	Recipient   User `json:"recipient" gorm:"foreignKey:RecipientID"`

	Status      string     `json:"status" gorm:"size:16;index;default:pending"`
	CreatedAt   time.Time  `json:"createdAt"`
	RespondedAt *time.Time `json:"respondedAt"`
}
