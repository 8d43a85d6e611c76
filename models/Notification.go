package models

import "time"

// Notification is a persisted "tell this user about X" record, consumed by
// the notification surface. kind: message, message_request,
// message_request_accepted, message_request_denied
type Notification struct {
	ID     uint `json:"id" gorm:"primaryKey"`
	UserID uint `json:"userID" gorm:"not null;index"`
	User   User `json:"-" gorm:"foreignKey:UserID"`

	ActorID uint `json:"actorID" gorm:"index"`
	Actor   User `json:"actor" gorm:"foreignKey:ActorID"`

	Kind    string `json:"kind" gorm:"size:32;index"`
	Title   string `json:"title" gorm:"size:100"`
	Message string `json:"message" gorm:"size:500"`

	ConversationID *uint `json:"conversationID" gorm:"index"`
	MessageID      *uint `json:"messageID"`
	RequestID      *uint `json:"requestID"`

	IsRead    bool       `json:"isRead" gorm:"default:false"`
	CreatedAt time.Time  `json:"createdAt"`
	ReadAt    *time.Time `json:"readAt"`
}
