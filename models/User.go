package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Username            string         `json:"username" gorm:"size:60;uniqueIndex;not null"`
	Name                string         `json:"name" gorm:"size:120"`
	Email               string         `json:"email" gorm:"size:255;uniqueIndex"`
	Password            string         `json:"-"`
	AvatarURL           string         `json:"avatarURL" gorm:"size:512"`
	PushTokens          datatypes.JSON `json:"pushTokens"`
	AllowsNotifications *bool          `json:"allowsNotifications"`
	Role                string         `json:"role" gorm:"type:varchar(20);default:user;index"` // user, admin
}

// UserSettings holds the per-user privacy switches the messaging core reads.
// DMPrivacy: everyone | friends | nobody
type UserSettings struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	UserID           uint      `json:"userID" gorm:"not null;uniqueIndex"`
	User             User      `json:"-" gorm:"foreignKey:UserID"`
	DMPrivacy        string    `json:"dmPrivacy" gorm:"size:16;default:everyone"`
	HideReadReceipts bool      `json:"hideReadReceipts" gorm:"default:false"`
	HideTyping       bool      `json:"hideTyping" gorm:"default:false"`
	ShowOnline       bool      `json:"showOnline" gorm:"default:true"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Friend is one edge of the friendship graph. The graph is owned by the
// social surface; the messaging core only reads it.
type Friend struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"userID" gorm:"not null;uniqueIndex:idx_friend_pair"`
	FriendID  uint      `json:"friendID" gorm:"not null;uniqueIndex:idx_friend_pair;index"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserBlock records that blocker no longer wants contact from blocked.
type UserBlock struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	BlockerID uint      `json:"blockerID" gorm:"not null;uniqueIndex:idx_block_pair"`
	BlockedID uint      `json:"blockedID" gorm:"not null;uniqueIndex:idx_block_pair;index"`
	CreatedAt time.Time `json:"createdAt"`
}
