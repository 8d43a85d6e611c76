package routes

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"linkup-server/utils"

	"github.com/kataras/iris/v12"
)

type realtimeAuthInput struct {
	SocketID    string `json:"socket_id" validate:"required"`
	ChannelName string `json:"channel_name" validate:"required"`
}

// RealtimeAuth signs a channel subscription for the caller after checking
// they may read the channel:
//   - private-conversation.{id}: participants only
//   - private-user.{id} and private-message channels: the user themselves
//   - presence-*: any authenticated user, with their identity embedded
func (h *Handler) RealtimeAuth(ctx iris.Context) {
	claims := utils.CurrentUser(ctx)
	if claims == nil {
		ctx.StopWithStatus(http.StatusUnauthorized)
		return
	}

	var input realtimeAuthInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}
	if input.SocketID == "" || input.ChannelName == "" {
		utils.JSONError(ctx, iris.StatusUnprocessableEntity, "validation", "socket_id and channel_name required")
		return
	}

	var channelData interface{}
	switch {
	case strings.HasPrefix(input.ChannelName, "private-conversation."):
		id, err := strconv.ParseUint(strings.TrimPrefix(input.ChannelName, "private-conversation."), 10, 64)
		if err != nil || !h.Conversations.IsParticipant(uint(id), claims.ID) {
			utils.CreateForbidden(ctx)
			return
		}
	case strings.HasPrefix(input.ChannelName, "private-user."):
		id, err := strconv.ParseUint(strings.TrimPrefix(input.ChannelName, "private-user."), 10, 64)
		if err != nil || uint(id) != claims.ID {
			utils.CreateForbidden(ctx)
			return
		}
	case strings.HasPrefix(input.ChannelName, "presence-"):
		user, err := h.Directory.GetUser(claims.ID)
		if err != nil {
			utils.CreateForbidden(ctx)
			return
		}
		channelData = iris.Map{
			"user_id": fmt.Sprintf("%d", claims.ID),
			"user_info": iris.Map{
				"name":   user.Name,
				"avatar": user.AvatarURL,
			},
		}
	case strings.HasPrefix(input.ChannelName, "private-message."):
		// message channels carry reactions/edits; any participant of the
		// parent conversation may listen
		id, err := strconv.ParseUint(strings.TrimPrefix(input.ChannelName, "private-message."), 10, 64)
		if err != nil {
			utils.CreateForbidden(ctx)
			return
		}
		message, err := h.Messages.FindByID(uint(id))
		if err != nil || !h.Conversations.IsParticipant(message.ConversationID, claims.ID) {
			utils.CreateForbidden(ctx)
			return
		}
	default:
		utils.CreateForbidden(ctx)
		return
	}

	grant, err := h.Realtime.AuthChannel(input.SocketID, input.ChannelName, channelData)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(grant)
}
