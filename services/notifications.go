package services

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"linkup-server/models"
	"linkup-server/utils"

	"gorm.io/gorm"
)

// NotificationService persists "tell this participant about X" records and
// pushes them to the user's devices. Both halves are best-effort from the
// messaging core's point of view: a failed push never fails the write that
// caused it.
type NotificationService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db, now: time.Now}
}

// getUserPushTokens retrieves all push tokens for a user.
func (ns *NotificationService) getUserPushTokens(userID uint) ([]string, error) {
	var user models.User
	if err := ns.db.First(&user, userID).Error; err != nil {
		return nil, fmt.Errorf("user not found: %v", err)
	}
	if user.AllowsNotifications == nil || !*user.AllowsNotifications || user.PushTokens == nil {
		return nil, fmt.Errorf("user has notifications disabled or no tokens")
	}

	var tokens []string
	if err := json.Unmarshal(user.PushTokens, &tokens); err != nil {
		return nil, fmt.Errorf("failed to unmarshal push tokens: %v", err)
	}
	return tokens, nil
}

func (ns *NotificationService) push(userID uint, title, body string, data map[string]string) {
	tokens, err := ns.getUserPushTokens(userID)
	if err != nil {
		log.Printf("⚠️  push skipped for user %d: %v", userID, err)
		return
	}
	for _, token := range tokens {
		if err := utils.SendNotification(token, title, body, data); err != nil {
			log.Printf("⚠️  push to user %d failed: %v", userID, err)
		}
	}
}

func (ns *NotificationService) create(n *models.Notification) {
	n.CreatedAt = ns.now()
	if err := ns.db.Create(n).Error; err != nil {
		log.Printf("⚠️  notification row not created: %v", err)
	}
}

// MessageReceived records a new-message notification for one recipient.
// muted suppresses the device push but keeps the row so the notification
// surface stays consistent.
func (ns *NotificationService) MessageReceived(recipientID, senderID, conversationID, messageID uint, senderName string, muted bool) {
	ns.create(&models.Notification{
		UserID:         recipientID,
		ActorID:        senderID,
		Kind:           "message",
		Title:          "New message",
		Message:        fmt.Sprintf("%s sent you a message", senderName),
		ConversationID: &conversationID,
		MessageID:      &messageID,
	})
	if muted {
		return
	}
	go ns.push(recipientID, "New message", fmt.Sprintf("%s sent you a message", senderName), map[string]string{
		"type":           "message",
		"conversationId": fmt.Sprintf("%d", conversationID),
		"messageId":      fmt.Sprintf("%d", messageID),
	})
}

// RequestReceived records a message-request notification for the recipient.
func (ns *NotificationService) RequestReceived(recipientID, requesterID, conversationID, requestID uint, requesterName string) {
	ns.create(&models.Notification{
		UserID:         recipientID,
		ActorID:        requesterID,
		Kind:           "message_request",
		Title:          "Message request",
		Message:        fmt.Sprintf("%s wants to message you", requesterName),
		ConversationID: &conversationID,
		RequestID:      &requestID,
	})
	go ns.push(recipientID, "Message request", fmt.Sprintf("%s wants to message you", requesterName), map[string]string{
		"type":      "message_request",
		"requestId": fmt.Sprintf("%d", requestID),
	})
}

// RequestAnswered tells the requester how the recipient responded.
func (ns *NotificationService) RequestAnswered(requesterID, recipientID, conversationID, requestID uint, accepted bool) {
	kind := "message_request_denied"
	title := "Message request denied"
	if accepted {
		kind = "message_request_accepted"
		title = "Message request accepted"
	}
	ns.create(&models.Notification{
		UserID:         requesterID,
		ActorID:        recipientID,
		Kind:           kind,
		Title:          title,
		ConversationID: &conversationID,
		RequestID:      &requestID,
	})
	go ns.push(requesterID, title, "", map[string]string{
		"type":      kind,
		"requestId": fmt.Sprintf("%d", requestID),
	})
}

// List returns the user's notifications, newest first.
func (ns *NotificationService) List(userID uint, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var notifications []models.Notification
	err := ns.db.Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&notifications).Error
	return notifications, err
}

// MarkRead flags one of the user's notifications as read.
func (ns *NotificationService) MarkRead(notificationID, userID uint) error {
	return ns.db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Updates(map[string]interface{}{"is_read": true, "read_at": ns.now()}).Error
}
