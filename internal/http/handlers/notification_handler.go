package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/freelance-market/internal/http/handlers/common"
	"github.com/ignatzorin/freelance-market/internal/service"
)

type NotificationHandler struct {
	notifications *service.NotificationService
}

// NewNotificationHandler создаёт новый хэндлер.
func NewNotificationHandler(notifications *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List обрабатывает GET /notifications?unread=true.
func (h *NotificationHandler) List(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.Fail(c, err)
		return
	}
	limit, offset := common.GetPagination(c, common.DefaultPageSize)
	unreadOnly := c.Query("unread") == "true"

	list, err := h.notifications.List(c.Request.Context(), actor, limit, offset, unreadOnly)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// MarkAsRead обрабатывает PUT /notifications/:id/read.
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	actor, id, ok := actorAndID(c, "id")
	if !ok {
		return
	}

	if err := h.notifications.MarkAsRead(c.Request.Context(), actor, id); err != nil {
		common.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MarkAllAsRead обрабатывает PUT /notifications/read-all.
func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	if err := h.notifications.MarkAllAsRead(c.Request.Context(), actor); err != nil {
		common.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
