package routes

import (
	"fmt"

	"github.com/kataras/iris/v12"
)

// RecordTyping records a short-lived typing signal for the caller and
// relays it over the realtime transport. Users who hide their typing state
// get a silent no-op so clients can't probe the setting.
func (h *Handler) RecordTyping(ctx iris.Context) {
	conversationID, userID, ok := h.conversationFromPath(ctx)
	if !ok {
		return
	}

	if h.Directory.GetSettings(userID).HideTyping {
		ctx.StatusCode(iris.StatusNoContent)
		return
	}

	h.Typing.Record(ctx.Request().Context(), conversationID, userID)

	username := ""
	if user, err := h.Directory.GetUser(userID); err == nil {
		username = user.Username
	}
	h.Realtime.Trigger(
		[]string{fmt.Sprintf("private-conversation.%d", conversationID)},
		"typing",
		iris.Map{"conversationID": conversationID, "userID": userID, "username": username},
	)
	ctx.StatusCode(iris.StatusNoContent)
}

// TypingState returns who else is currently typing in the conversation,
// the pull-based fallback for clients without a realtime subscription.
func (h *Handler) TypingState(ctx iris.Context) {
	conversationID, viewerID, ok := h.conversationFromPath(ctx)
	if !ok {
		return
	}
	ctx.JSON(iris.Map{"typing": h.Typing.Active(ctx.Request().Context(), conversationID, viewerID)})
}
