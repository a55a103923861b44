package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/freelance-market/internal/http/handlers/common"
	"github.com/ignatzorin/freelance-market/internal/service"
)

type ReviewHandler struct {
	reviews *service.ReviewService
}

// NewReviewHandler создаёт новый хэндлер.
func NewReviewHandler(reviews *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

// Leave обрабатывает POST /orders/:id/reviews.
func (h *ReviewHandler) Leave(c *gin.Context) {
	actor, orderID, ok := actorAndID(c, "id")
	if !ok {
		return
	}

	var req service.LeaveReviewRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	review, err := h.reviews.Leave(c.Request.Context(), actor, orderID, req)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

// ListUserReviews обрабатывает GET /users/:id/reviews.
func (h *ReviewHandler) ListUserReviews(c *gin.Context) {
	userID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}

	reviews, err := h.reviews.ForUser(c.Request.Context(), userID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}
