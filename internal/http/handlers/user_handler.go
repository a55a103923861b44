package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/freelance-market/internal/http/handlers/common"
	"github.com/ignatzorin/freelance-market/internal/service"
)

type UserHandler struct {
	users *service.UserService
}

// NewUserHandler создаёт новый хэндлер.
func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// Profile обрабатывает GET /users/:id.
func (h *UserHandler) Profile(c *gin.Context) {
	userID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}

	profile, err := h.users.Profile(c.Request.Context(), userID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// Freelancers обрабатывает GET /freelancers?search=...
func (h *UserHandler) Freelancers(c *gin.Context) {
	limit, offset := common.GetPagination(c, common.DefaultPageSize)

	list, err := h.users.Freelancers(c.Request.Context(), c.Query("search"), limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// FreelancerOrders обрабатывает GET /freelancers/:id/orders.
func (h *UserHandler) FreelancerOrders(c *gin.Context) {
	freelancerID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}

	orders, err := h.users.FreelancerOrders(c.Request.Context(), freelancerID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}
