package routes

import (
	"net/http"

	"linkup-server/utils"

	"github.com/kataras/iris/v12"
)

type createConversationInput struct {
	Type         string `json:"type" validate:"omitempty,oneof=direct group"`
	UserID       uint   `json:"userID"`
	Title        string `json:"title"`
	Participants []uint `json:"participants"`
}

// CreateConversation opens a direct conversation (idempotent per pair,
// gate-checked) or a group conversation.
func (h *Handler) CreateConversation(ctx iris.Context) {
	claims := utils.CurrentUser(ctx)
	if claims == nil {
		ctx.StopWithStatus(http.StatusUnauthorized)
		return
	}

	var input createConversationInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if input.Type == "group" {
		title := input.Title
		if title == "" {
			title = "Group Chat"
		}
		conversationID, err := h.Conversations.CreateGroup(title, claims.ID, input.Participants)
		if err != nil {
			utils.CreateInternalServerError(ctx)
			return
		}
		ctx.StatusCode(iris.StatusCreated)
		ctx.JSON(iris.Map{"conversationID": conversationID})
		return
	}

	otherID := input.UserID
	if otherID == 0 {
		utils.JSONError(ctx, iris.StatusUnprocessableEntity, "validation", "userID required")
		return
	}
	if otherID == claims.ID {
		utils.JSONError(ctx, iris.StatusUnprocessableEntity, "validation", "cannot create a chat with yourself")
		return
	}
	otherUser, err := h.Directory.GetUser(otherID)
	if err != nil {
		utils.CreateNotFound(ctx)
		return
	}
	if h.Directory.IsBlocked(claims.ID, otherID) || h.Directory.IsBlocked(otherID, claims.ID) {
		utils.JSONError(ctx, iris.StatusForbidden, "forbidden", "user does not accept message requests")
		return
	}
	privacy := h.Directory.GetSettings(otherID).DMPrivacy
	if privacy == "nobody" {
		utils.JSONError(ctx, iris.StatusForbidden, "forbidden", "user does not accept message requests")
		return
	}

	conversationID, err := h.Conversations.CreateDirect(claims.ID, otherID)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	// Guarded recipients get a pending request attached to the fresh
	// conversation unless the pair is already friends
	if privacy == "friends" && !h.Directory.AreFriends(claims.ID, otherID) {
		existing, err := h.Requests.FindBetween(claims.ID, otherID)
		if err == nil && existing == nil {
			requestID, err := h.Requests.Create(conversationID, claims.ID, otherID)
			if err == nil {
				requester, _ := h.Directory.GetUser(claims.ID)
				name := ""
				if requester != nil {
					name = requester.Username
				}
				h.Notifier.RequestReceived(otherUser.ID, claims.ID, conversationID, requestID, name)
			}
		}
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{"conversationID": conversationID})
}

// ListConversations returns the viewer's conversation list: pinned first,
// then unread, then most recent activity, each with an unread count.
func (h *Handler) ListConversations(ctx iris.Context) {
	claims := utils.CurrentUser(ctx)
	if claims == nil {
		ctx.StopWithStatus(http.StatusUnauthorized)
		return
	}

	items, err := h.Conversations.ListForViewer(claims.ID)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(iris.Map{"items": items})
}

// conversationFromPath authorizes the viewer against the {id} route param
// and returns (conversationID, viewerID, ok).
func (h *Handler) conversationFromPath(ctx iris.Context) (uint, uint, bool) {
	claims := utils.CurrentUser(ctx)
	if claims == nil {
		ctx.StopWithStatus(http.StatusUnauthorized)
		return 0, 0, false
	}
	conversationID, err := ctx.Params().GetUint("id")
	if err != nil {
		ctx.StopWithStatus(http.StatusBadRequest)
		return 0, 0, false
	}
	if !h.Conversations.IsParticipant(conversationID, claims.ID) {
		utils.CreateForbidden(ctx)
		return 0, 0, false
	}
	return conversationID, claims.ID, true
}

func (h *Handler) PinConversation(ctx iris.Context) {
	conversationID, viewerID, ok := h.conversationFromPath(ctx)
	if !ok {
		return
	}
	if err := h.Conversations.Pin(conversationID, viewerID); err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(iris.Map{"status": "pinned"})
}

func (h *Handler) UnpinConversation(ctx iris.Context) {
	conversationID, viewerID, ok := h.conversationFromPath(ctx)
	if !ok {
		return
	}
	if err := h.Conversations.Unpin(conversationID, viewerID); err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(iris.Map{"status": "unpinned"})
}

type muteInput struct {
	Minutes int `json:"minutes"`
}

func (h *Handler) MuteConversation(ctx iris.Context) {
	conversationID, viewerID, ok := h.conversationFromPath(ctx)
	if !ok {
		return
	}
	input := muteInput{Minutes: 60}
	ctx.ReadJSON(&input)
	if input.Minutes <= 0 {
		utils.JSONError(ctx, iris.StatusUnprocessableEntity, "validation", "invalid duration")
		return
	}
	if err := h.Conversations.Mute(conversationID, viewerID, input.Minutes); err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(iris.Map{"status": "muted"})
}

func (h *Handler) UnmuteConversation(ctx iris.Context) {
	conversationID, viewerID, ok := h.conversationFromPath(ctx)
	if !ok {
		return
	}
	if err := h.Conversations.Unmute(conversationID, viewerID); err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(iris.Map{"status": "unmuted"})
}
