package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/freelance-market/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-market/internal/http/handlers/common"
	"github.com/ignatzorin/freelance-market/internal/service"
)

type AdminHandler struct {
	admin *service.AdminService
}

// NewAdminHandler создаёт новый хэндлер.
func NewAdminHandler(admin *service.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// ListUsers обрабатывает GET /admin/users?search=...
func (h *AdminHandler) ListUsers(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.Fail(c, err)
		return
	}
	limit, offset := common.GetPagination(c, common.DefaultPageSize)

	list, err := h.admin.ListUsers(c.Request.Context(), actor, c.Query("search"), limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// SetRole обрабатывает PUT /admin/users/:id/role.
func (h *AdminHandler) SetRole(c *gin.Context) {
	actor, userID, ok := actorAndID(c, "id")
	if !ok {
		return
	}

	var req service.SetRoleRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	user, err := h.admin.SetRole(c.Request.Context(), actor, userID, valueobject.Role(req.Role))
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// SetBanned обрабатывает PUT /admin/users/:id/ban.
func (h *AdminHandler) SetBanned(c *gin.Context) {
	actor, userID, ok := actorAndID(c, "id")
	if !ok {
		return
	}

	var req service.SetBannedRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	user, err := h.admin.SetBanned(c.Request.Context(), actor, userID, req.Banned)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// DeleteUser обрабатывает DELETE /admin/users/:id.
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	actor, userID, ok := actorAndID(c, "id")
	if !ok {
		return
	}

	if err := h.admin.DeleteUser(c.Request.Context(), actor, userID); err != nil {
		common.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
