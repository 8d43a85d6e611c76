package services

import (
	"errors"

	"linkup-server/models"

	"gorm.io/gorm"
)

// UserDirectory is the read-only identity oracle the messaging core consults:
// profile fields, privacy settings, friendship and block predicates. User,
// friend and block rows are owned by the social surface; nothing here writes
// to them.
type UserDirectory struct {
	db *gorm.DB
}

func NewUserDirectory(db *gorm.DB) *UserDirectory {
	return &UserDirectory{db: db}
}

func (d *UserDirectory) GetUser(id uint) (*models.User, error) {
	var user models.User
	if err := d.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetSettings returns the user's settings, falling back to defaults when no
// row exists yet.
func (d *UserDirectory) GetSettings(userID uint) models.UserSettings {
	var settings models.UserSettings
	err := d.db.Where("user_id = ?", userID).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.UserSettings{UserID: userID, DMPrivacy: "everyone", ShowOnline: true}
	}
	return settings
}

func (d *UserDirectory) AreFriends(userA, userB uint) bool {
	var count int64
	d.db.Model(&models.Friend{}).
		Where("user_id = ? AND friend_id = ?", userA, userB).
		Count(&count)
	return count > 0
}

// IsBlocked reports whether blocker has blocked blocked.
func (d *UserDirectory) IsBlocked(blocker, blocked uint) bool {
	var count int64
	d.db.Model(&models.UserBlock{}).
		Where("blocker_id = ? AND blocked_id = ?", blocker, blocked).
		Count(&count)
	return count > 0
}

// CanMessage decides whether sender may open (or continue) a direct exchange
// with recipient: self always, blocks in either direction never, then the
// recipient's dm_privacy setting (everyone / friends / nobody).
func (d *UserDirectory) CanMessage(senderID, recipientID uint) bool {
	if senderID == recipientID {
		return true
	}
	if d.IsBlocked(senderID, recipientID) || d.IsBlocked(recipientID, senderID) {
		return false
	}

	switch d.GetSettings(recipientID).DMPrivacy {
	case "everyone":
		return true
	case "nobody":
		return false
	default: // friends
		return d.AreFriends(senderID, recipientID)
	}
}
