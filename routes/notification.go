package routes

import (
	"net/http"

	"linkup-server/utils"

	"github.com/kataras/iris/v12"
)

func (h *Handler) ListNotifications(ctx iris.Context) {
	claims := utils.CurrentUser(ctx)
	if claims == nil {
		ctx.StopWithStatus(http.StatusUnauthorized)
		return
	}

	limit := ctx.URLParamIntDefault("limit", 50)
	items, err := h.Notifier.List(claims.ID, limit)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(iris.Map{"items": items})
}

func (h *Handler) MarkNotificationRead(ctx iris.Context) {
	claims := utils.CurrentUser(ctx)
	if claims == nil {
		ctx.StopWithStatus(http.StatusUnauthorized)
		return
	}
	notificationID, err := ctx.Params().GetUint("id")
	if err != nil {
		ctx.StopWithStatus(http.StatusBadRequest)
		return
	}

	if err := h.Notifier.MarkRead(notificationID, claims.ID); err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.StatusCode(iris.StatusNoContent)
}
