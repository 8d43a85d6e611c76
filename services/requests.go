package services

import (
	"errors"
	"time"

	"linkup-server/models"

	"gorm.io/gorm"
)

var (
	ErrRequestNotFound = errors.New("message request not found")
	ErrNotRecipient    = errors.New("only the recipient may respond")
	ErrRequestDenied   = errors.New("message request denied by recipient")
	ErrRequestPending  = errors.New("message request pending")
	ErrRecipientClosed = errors.New("user does not accept message requests")
)

// MessageRequestService is the consent gate for unsolicited direct
// messaging. Duplicate requests for the same unordered pair resolve to the
// existing row rather than an error.
type MessageRequestService struct {
	db        *gorm.DB
	directory *UserDirectory
	now       func() time.Time
}

func NewMessageRequestService(db *gorm.DB, directory *UserDirectory) *MessageRequestService {
	return &MessageRequestService{db: db, directory: directory, now: time.Now}
}

func (s *MessageRequestService) FindByID(id uint) (*models.MessageRequest, error) {
	var request models.MessageRequest
	err := s.db.First(&request, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// FindBetween returns the latest request between the unordered (a, b) pair,
// or nil when none exists.
func (s *MessageRequestService) FindBetween(userA, userB uint) (*models.MessageRequest, error) {
	var request models.MessageRequest
	err := s.db.
		Where("(requester_id = ? AND recipient_id = ?) OR (requester_id = ? AND recipient_id = ?)",
			userA, userB, userB, userA).
		Order("id DESC").
		First(&request).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// Create inserts a pending request unless one already exists for the
// unordered pair, in which case the existing request's id is returned.
func (s *MessageRequestService) Create(conversationID, requesterID, recipientID uint) (uint, error) {
	existing, err := s.FindBetween(requesterID, recipientID)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return existing.ID, nil
	}

	request := models.MessageRequest{
		ConversationID: conversationID,
		RequesterID:    requesterID,
		RecipientID:    recipientID,
		Status:         "pending",
		CreatedAt:      s.now(),
	}
	if err := s.db.Create(&request).Error; err != nil {
		return 0, err
	}
	return request.ID, nil
}

// UpdateStatus answers a request. Only the recipient may respond; status is
// accepted or denied.
func (s *MessageRequestService) UpdateStatus(requestID, respondentID uint, status string) error {
	request, err := s.FindByID(requestID)
	if err != nil {
		return err
	}
	if request.RecipientID != respondentID {
		return ErrNotRecipient
	}
	return s.db.Model(&models.MessageRequest{}).
		Where("id = ? AND recipient_id = ?", requestID, respondentID).
		Updates(map[string]interface{}{"status": status, "responded_at": s.now()}).Error
}

// GateDirectMessage applies the first-contact flow before a direct message
// from sender to recipient is persisted:
//   - a block in either direction, or a "nobody" privacy setting, rejects the
//     write outright and leaves no rows behind;
//   - an existing denied request always blocks the requester; a pending one
//     blocks further messages from the requester only while the recipient's
//     privacy still requires friendship (the recipient may always reply);
//     accepted opens both ways;
//   - with "friends" privacy, first contact from a non-friend auto-creates a
//     pending request and still lets that one message through (newRequestID
//     reports the creation so the caller can notify the recipient);
//   - "everyone" lets strangers write without forcing a request.
func (s *MessageRequestService) GateDirectMessage(conversationID, senderID, recipientID uint) (newRequestID *uint, err error) {
	if senderID == recipientID {
		return nil, nil
	}
	if s.directory.IsBlocked(senderID, recipientID) || s.directory.IsBlocked(recipientID, senderID) {
		return nil, ErrRecipientClosed
	}

	privacy := s.directory.GetSettings(recipientID).DMPrivacy
	if privacy == "nobody" {
		return nil, ErrRecipientClosed
	}

	request, err := s.FindBetween(senderID, recipientID)
	if err != nil {
		return nil, err
	}
	if request != nil {
		switch request.Status {
		case "denied":
			return nil, ErrRequestDenied
		case "pending":
			if request.RequesterID == senderID &&
				privacy == "friends" && !s.directory.AreFriends(senderID, recipientID) {
				return nil, ErrRequestPending
			}
		}
		return nil, nil
	}

	if privacy == "friends" && !s.directory.AreFriends(senderID, recipientID) {
		id, err := s.Create(conversationID, senderID, recipientID)
		if err != nil {
			return nil, err
		}
		return &id, nil
	}
	return nil, nil
}

// RequestView is one row of the incoming/sent request listings.
type RequestView struct {
	ID             uint       `json:"id"`
	ConversationID uint       `json:"conversationID"`
	RequesterID    uint       `json:"requesterID"`
	RecipientID    uint       `json:"recipientID"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"createdAt"`
	Username       string     `json:"username"`
	Name           string     `json:"name"`
	AvatarURL      string     `json:"avatarURL"`
	LastMessage    *string    `json:"lastMessage"`
	LastMessageAt  *time.Time `json:"lastMessageAt"`
}

// ListIncoming returns pending requests addressed to the user, newest
// first, with the requester's identity and a last-message preview.
func (s *MessageRequestService) ListIncoming(userID uint) ([]RequestView, error) {
	var rows []RequestView
	err := s.db.Raw(`
SELECT mr.id, mr.conversation_id, mr.requester_id, mr.recipient_id, mr.status, mr.created_at,
       u.username, u.name, u.avatar_url,
       (SELECT m.body FROM messages m WHERE m.conversation_id = mr.conversation_id
         ORDER BY m.created_at DESC LIMIT 1) AS last_message,
       (SELECT m.created_at FROM messages m WHERE m.conversation_id = mr.conversation_id
         ORDER BY m.created_at DESC LIMIT 1) AS last_message_at
FROM message_requests mr
JOIN users u ON u.id = mr.requester_id
WHERE mr.recipient_id = ? AND mr.status = 'pending'
ORDER BY mr.created_at DESC`, userID).Scan(&rows).Error
	return rows, err
}

// ListSent returns the user's own pending requests, newest first.
func (s *MessageRequestService) ListSent(userID uint) ([]RequestView, error) {
	var rows []RequestView
	err := s.db.Raw(`
SELECT mr.id, mr.conversation_id, mr.requester_id, mr.recipient_id, mr.status, mr.created_at,
       u.username, u.name, u.avatar_url
FROM message_requests mr
JOIN users u ON u.id = mr.recipient_id
WHERE mr.requester_id = ? AND mr.status = 'pending'
ORDER BY mr.created_at DESC`, userID).Scan(&rows).Error
	return rows, err
}
