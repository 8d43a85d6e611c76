package routes

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"linkup-server/services"
	"linkup-server/utils"

	"github.com/google/uuid"
	"github.com/kataras/iris/v12"
)

type sendMessageInput struct {
	Body        string `json:"body"`
	Type        string `json:"type" validate:"omitempty,oneof=text image video audio file"`
	ReplyTo     *uint  `json:"replyTo"`
	ScheduledAt string `json:"scheduledAt"`
	ExpiresIn   int    `json:"expiresIn"`
}

// SendMessage persists a message in a conversation, running the
// message-request gate for direct conversations, then fans the write out to
// the realtime transport and the notification surface. Scheduled messages
// return immediately without fan-out.
func (h *Handler) SendMessage(ctx iris.Context) {
	conversationID, senderID, ok := h.conversationFromPath(ctx)
	if !ok {
		return
	}

	var input sendMessageInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}
	if strings.TrimSpace(input.Body) == "" {
		utils.JSONError(ctx, iris.StatusUnprocessableEntity, "validation", "message body required")
		return
	}

	conversation, err := h.Conversations.FindByID(conversationID)
	if err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	// Direct conversations go through the consent gate before any write
	var newRequestID *uint
	var recipientID uint
	if conversation.Type == "direct" {
		if otherID, found := h.Conversations.OtherParticipantID(conversationID, senderID); found {
			recipientID = otherID
			newRequestID, err = h.Requests.GateDirectMessage(conversationID, senderID, otherID)
			if err != nil {
				h.gateError(ctx, err)
				return
			}
		}
	}

	var scheduledAt *time.Time
	if input.ScheduledAt != "" {
		if t, parseErr := time.Parse(time.RFC3339, input.ScheduledAt); parseErr == nil {
			scheduledAt = &t
		}
	}

	body := input.Body
	messageID, err := h.Messages.Create(services.CreateMessageParams{
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           &body,
		Type:           input.Type,
		ReplyTo:        input.ReplyTo,
		ScheduledAt:    scheduledAt,
		ExpiresIn:      input.ExpiresIn,
	})
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if newRequestID != nil && recipientID != 0 {
		sender, _ := h.Directory.GetUser(senderID)
		name := ""
		if sender != nil {
			name = sender.Username
		}
		h.Notifier.RequestReceived(recipientID, senderID, conversationID, *newRequestID, name)
	}

	message, err := h.Messages.FindByID(messageID)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	payload := h.messagePayload(messageID, conversationID, senderID, &body, message.Type, message.CreatedAt, input.ReplyTo)

	if message.Status == "scheduled" {
		ctx.StatusCode(iris.StatusCreated)
		ctx.JSON(iris.Map{"message": payload, "status": "scheduled"})
		return
	}

	h.fanOutMessage(ctx, conversationID, senderID, messageID, payload)

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{"message": payload})
}

type sendMediaInput struct {
	File string `json:"file" validate:"required"`
}

var messageMediaAllowList = []string{"image/*", "video/*", "audio/*", "application/pdf"}

// SendMedia uploads a base64 data URI and attaches it to a fresh message.
// The message type follows the stored mime: image, video, audio or file.
func (h *Handler) SendMedia(ctx iris.Context) {
	conversationID, senderID, ok := h.conversationFromPath(ctx)
	if !ok {
		return
	}

	var input sendMediaInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	stored := h.Uploads.UploadBase64Media(input.File, uuid.NewString(), messageMediaAllowList)
	if stored == nil {
		utils.JSONError(ctx, iris.StatusUnprocessableEntity, "validation", "invalid media type")
		return
	}

	mediaType := "file"
	switch {
	case strings.HasPrefix(stored.Mime, "image/"):
		mediaType = "image"
	case strings.HasPrefix(stored.Mime, "video/"):
		mediaType = "video"
	case strings.HasPrefix(stored.Mime, "audio/"):
		mediaType = "audio"
	}

	messageID, err := h.Messages.Create(services.CreateMessageParams{
		ConversationID: conversationID,
		SenderID:       senderID,
		Type:           mediaType,
	})
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	size := stored.SizeBytes
	if err := h.Messages.AttachMedia(messageID, mediaType, stored.URL, &size); err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	message, _ := h.Messages.FindByID(messageID)
	createdAt := time.Now()
	if message != nil {
		createdAt = message.CreatedAt
	}
	payload := h.messagePayload(messageID, conversationID, senderID, nil, mediaType, createdAt, nil)
	payload["mediaURL"] = stored.URL
	payload["mediaType"] = mediaType

	h.fanOutMessage(ctx, conversationID, senderID, messageID, payload)

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{"message": payload})
}

// ListMessages returns the viewer's visible slice of the conversation in
// ascending order. after_id switches to incremental polling, the pull-based
// fallback for clients without a realtime subscription.
func (h *Handler) ListMessages(ctx iris.Context) {
	conversationID, viewerID, ok := h.conversationFromPath(ctx)
	if !ok {
		return
	}

	limit := ctx.URLParamIntDefault("limit", 50)
	offset := ctx.URLParamIntDefault("offset", 0)
	if offset < 0 {
		offset = 0
	}
	afterID := ctx.URLParamIntDefault("after_id", 0)
	if afterID < 0 {
		afterID = 0
	}

	items, err := h.Messages.List(conversationID, viewerID, limit, offset, uint(afterID))
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(iris.Map{"items": items})
}

// MarkRead advances the viewer's read cursor and, when their privacy
// settings allow receipts, records one and tells the sender.
func (h *Handler) MarkRead(ctx iris.Context) {
	claims := utils.CurrentUser(ctx)
	if claims == nil {
		ctx.StopWithStatus(http.StatusUnauthorized)
		return
	}
	messageID, err := ctx.Params().GetUint("id")
	if err != nil {
		ctx.StopWithStatus(http.StatusBadRequest)
		return
	}

	message, err := h.Messages.FindByID(messageID)
	if err != nil || !h.Conversations.IsParticipant(message.ConversationID, claims.ID) {
		utils.CreateForbidden(ctx)
		return
	}

	trackReceipt := !h.Directory.GetSettings(claims.ID).HideReadReceipts
	if err := h.Messages.MarkRead(messageID, claims.ID, trackReceipt); err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if trackReceipt && message.SenderID != claims.ID {
		h.Realtime.Trigger(
			[]string{fmt.Sprintf("private-user.%d", message.SenderID)},
			"message.read",
			iris.Map{"messageID": messageID, "userID": claims.ID},
		)
	}
	ctx.StatusCode(iris.StatusNoContent)
}

type editMessageInput struct {
	Body string `json:"body" validate:"required"`
}

func (h *Handler) EditMessage(ctx iris.Context) {
	claims := utils.CurrentUser(ctx)
	if claims == nil {
		ctx.StopWithStatus(http.StatusUnauthorized)
		return
	}
	messageID, err := ctx.Params().GetUint("id")
	if err != nil {
		ctx.StopWithStatus(http.StatusBadRequest)
		return
	}

	message, err := h.Messages.FindByID(messageID)
	if err != nil || !h.Conversations.IsParticipant(message.ConversationID, claims.ID) {
		utils.CreateForbidden(ctx)
		return
	}

	var input editMessageInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}
	body := strings.TrimSpace(input.Body)
	if body == "" {
		utils.JSONError(ctx, iris.StatusUnprocessableEntity, "validation", "message body required")
		return
	}

	switch err := h.Messages.Edit(messageID, claims.ID, body); {
	case errors.Is(err, services.ErrNotSender):
		utils.JSONError(ctx, iris.StatusForbidden, "forbidden", "only the sender can edit this message")
		return
	case errors.Is(err, services.ErrTombstoned):
		utils.JSONError(ctx, iris.StatusForbidden, "forbidden", "message was deleted")
		return
	case err != nil:
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(iris.Map{"status": "edited"})
}

// DeleteMessage handles both scopes: ?scope=all tombstones for everyone
// (sender-only, time-boxed), anything else hides the message for the caller
// alone.
func (h *Handler) DeleteMessage(ctx iris.Context) {
	claims := utils.CurrentUser(ctx)
	if claims == nil {
		ctx.StopWithStatus(http.StatusUnauthorized)
		return
	}
	messageID, err := ctx.Params().GetUint("id")
	if err != nil {
		ctx.StopWithStatus(http.StatusBadRequest)
		return
	}

	message, err := h.Messages.FindByID(messageID)
	if err != nil || !h.Conversations.IsParticipant(message.ConversationID, claims.ID) {
		utils.CreateForbidden(ctx)
		return
	}

	if ctx.URLParamDefault("scope", "self") == "all" {
		switch err := h.Messages.DeleteForAll(messageID, claims.ID); {
		case errors.Is(err, services.ErrNotSender):
			utils.JSONError(ctx, iris.StatusForbidden, "forbidden", "only the sender can delete for everyone")
			return
		case errors.Is(err, services.ErrWindowExpired):
			utils.JSONError(ctx, iris.StatusForbidden, "forbidden", "time limit exceeded for delete-for-all")
			return
		case err != nil:
			utils.CreateInternalServerError(ctx)
			return
		}
		ctx.JSON(iris.Map{"status": "deleted_for_all"})
		return
	}

	if err := h.Messages.HideForSelf(messageID, claims.ID); err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(iris.Map{"status": "deleted_for_self"})
}

type reactInput struct {
	Emoji string `json:"emoji" validate:"required"`
}

func (h *Handler) ReactToMessage(ctx iris.Context) {
	claims := utils.CurrentUser(ctx)
	if claims == nil {
		ctx.StopWithStatus(http.StatusUnauthorized)
		return
	}
	messageID, err := ctx.Params().GetUint("id")
	if err != nil {
		ctx.StopWithStatus(http.StatusBadRequest)
		return
	}

	var input reactInput
	if err := ctx.ReadJSON(&input); err != nil || input.Emoji == "" {
		utils.JSONError(ctx, iris.StatusUnprocessableEntity, "validation", "emoji required")
		return
	}

	message, err := h.Messages.FindByID(messageID)
	if err != nil || !h.Conversations.IsParticipant(message.ConversationID, claims.ID) {
		utils.CreateForbidden(ctx)
		return
	}

	if err := h.Messages.React(messageID, claims.ID, input.Emoji); err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	h.Realtime.Trigger(
		[]string{fmt.Sprintf("private-message.%d", messageID)},
		"message.reacted",
		iris.Map{"messageID": messageID, "userID": claims.ID, "emoji": input.Emoji},
	)
	ctx.JSON(iris.Map{"status": "reacted"})
}

func (h *Handler) ListMessageEdits(ctx iris.Context) {
	claims := utils.CurrentUser(ctx)
	if claims == nil {
		ctx.StopWithStatus(http.StatusUnauthorized)
		return
	}
	messageID, err := ctx.Params().GetUint("id")
	if err != nil {
		ctx.StopWithStatus(http.StatusBadRequest)
		return
	}

	message, err := h.Messages.FindByID(messageID)
	if err != nil || !h.Conversations.IsParticipant(message.ConversationID, claims.ID) {
		utils.CreateForbidden(ctx)
		return
	}

	items, err := h.Messages.Edits(messageID)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(iris.Map{"items": items})
}

// messagePayload builds the transport payload other clients rely on.
func (h *Handler) messagePayload(messageID, conversationID, senderID uint, body *string, msgType string, createdAt time.Time, replyTo *uint) iris.Map {
	payload := iris.Map{
		"id":             messageID,
		"messageID":      messageID,
		"conversationID": conversationID,
		"senderID":       senderID,
		"body":           body,
		"type":           msgType,
		"createdAt":      createdAt.Format(time.RFC3339),
		"readCount":      0,
	}
	if replyTo != nil {
		if reply, err := h.Messages.FindByID(*replyTo); err == nil {
			payload["replyBody"] = reply.Body
			if replyUser, err := h.Directory.GetUser(reply.SenderID); err == nil {
				payload["replyUsername"] = replyUser.Username
			}
		}
	}
	if sender, err := h.Directory.GetUser(senderID); err == nil {
		payload["username"] = sender.Username
		payload["avatarURL"] = sender.AvatarURL
	}
	return payload
}

// fanOutMessage clears the sender's typing signal, pushes the event over the
// realtime transport and notifies the other participants. All of it is
// best-effort; the persisted message is already the source of truth.
func (h *Handler) fanOutMessage(ctx iris.Context, conversationID, senderID, messageID uint, payload iris.Map) {
	h.Typing.Clear(ctx.Request().Context(), conversationID, senderID)
	h.Realtime.Trigger(
		[]string{fmt.Sprintf("private-conversation.%d", conversationID)},
		"message.sent",
		payload,
	)

	senderName := ""
	if name, ok := payload["username"].(string); ok {
		senderName = name
	}
	participants, err := h.Conversations.Participants(conversationID)
	if err != nil {
		return
	}
	now := time.Now()
	for _, participant := range participants {
		if participant.ID == senderID {
			continue
		}
		muted := participant.MutedUntil != nil && participant.MutedUntil.After(now)
		h.Notifier.MessageReceived(participant.ID, senderID, conversationID, messageID, senderName, muted)
	}
}

func (h *Handler) gateError(ctx iris.Context, err error) {
	switch {
	case errors.Is(err, services.ErrRecipientClosed):
		utils.JSONError(ctx, iris.StatusForbidden, "forbidden", "user does not accept message requests")
	case errors.Is(err, services.ErrRequestDenied):
		utils.JSONError(ctx, iris.StatusForbidden, "forbidden", "message request denied by recipient")
	case errors.Is(err, services.ErrRequestPending):
		utils.JSONError(ctx, iris.StatusForbidden, "forbidden", "message request pending, accept or deny it first")
	default:
		utils.CreateInternalServerError(ctx)
	}
}
