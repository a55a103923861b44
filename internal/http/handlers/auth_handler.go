package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/freelance-market/internal/http/handlers/common"
	"github.com/ignatzorin/freelance-market/internal/service"
)

type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler создаёт новый хэндлер.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Register обрабатывает POST /auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	result, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// Login обрабатывает POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Me обрабатывает GET /auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	user, err := h.auth.Me(c.Request.Context(), actor)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
