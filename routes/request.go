package routes

import (
	"errors"
	"net/http"

	"linkup-server/services"
	"linkup-server/utils"

	"github.com/kataras/iris/v12"
)

// ListMessageRequests returns both directions of the caller's pending
// requests so a client can render the "requests" inbox in one call.
func (h *Handler) ListMessageRequests(ctx iris.Context) {
	claims := utils.CurrentUser(ctx)
	if claims == nil {
		ctx.StopWithStatus(http.StatusUnauthorized)
		return
	}

	incoming, err := h.Requests.ListIncoming(claims.ID)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	sent, err := h.Requests.ListSent(claims.ID)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(iris.Map{"incoming": incoming, "sent": sent})
}

func (h *Handler) AcceptMessageRequest(ctx iris.Context) {
	h.answerRequest(ctx, "accepted")
}

func (h *Handler) DenyMessageRequest(ctx iris.Context) {
	h.answerRequest(ctx, "denied")
}

func (h *Handler) answerRequest(ctx iris.Context, status string) {
	claims := utils.CurrentUser(ctx)
	if claims == nil {
		ctx.StopWithStatus(http.StatusUnauthorized)
		return
	}
	requestID, err := ctx.Params().GetUint("id")
	if err != nil {
		ctx.StopWithStatus(http.StatusBadRequest)
		return
	}

	request, err := h.Requests.FindByID(requestID)
	if errors.Is(err, services.ErrRequestNotFound) {
		utils.CreateNotFound(ctx)
		return
	}
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	switch err := h.Requests.UpdateStatus(requestID, claims.ID, status); {
	case errors.Is(err, services.ErrNotRecipient):
		utils.JSONError(ctx, iris.StatusForbidden, "forbidden", "only the recipient can respond to this request")
		return
	case err != nil:
		utils.CreateInternalServerError(ctx)
		return
	}

	h.Notifier.RequestAnswered(request.RequesterID, claims.ID, request.ConversationID, requestID, status == "accepted")
	ctx.JSON(iris.Map{"status": status})
}
