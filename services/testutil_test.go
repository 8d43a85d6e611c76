package services

import (
	"fmt"
	"testing"
	"time"

	"linkup-server/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a private in-memory database per test. The shared cache
// keeps gorm's connection pool on the same database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.UserSettings{},
		&models.Friend{},
		&models.UserBlock{},
		&models.Conversation{},
		&models.ConversationParticipant{},
		&models.Message{},
		&models.MessageEdit{},
		&models.MessageHidden{},
		&models.MessageRead{},
		&models.MessageReaction{},
		&models.MessageAttachment{},
		&models.MessageRequest{},
		&models.Notification{},
	)
	if err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()
	user := models.User{Username: username, Name: username, Email: username + "@example.com"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return user
}

func seedFriendship(t *testing.T, db *gorm.DB, userID, friendID uint) {
	t.Helper()
	if err := db.Create(&models.Friend{UserID: userID, FriendID: friendID}).Error; err != nil {
		t.Fatalf("seed friendship: %v", err)
	}
	if err := db.Create(&models.Friend{UserID: friendID, FriendID: userID}).Error; err != nil {
		t.Fatalf("seed friendship: %v", err)
	}
}

func seedSettings(t *testing.T, db *gorm.DB, userID uint, privacy string) {
	t.Helper()
	settings := models.UserSettings{UserID: userID, DMPrivacy: privacy, ShowOnline: true}
	if err := db.Create(&settings).Error; err != nil {
		t.Fatalf("seed settings: %v", err)
	}
}

// testClock is a settable clock for the services' injected now func.
type testClock struct {
	current time.Time
}

func newTestClock(start time.Time) *testClock {
	return &testClock{current: start}
}

func (c *testClock) Now() time.Time { return c.current }

func (c *testClock) Advance(d time.Duration) { c.current = c.current.Add(d) }
