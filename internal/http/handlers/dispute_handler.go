package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/freelance-market/internal/http/handlers/common"
	"github.com/ignatzorin/freelance-market/internal/service"
)

// disputePageSize размер страницы списка споров по умолчанию.
const disputePageSize = 15

type DisputeHandler struct {
	disputes *service.DisputeService
}

// NewDisputeHandler создаёт новый хэндлер.
func NewDisputeHandler(disputes *service.DisputeService) *DisputeHandler {
	return &DisputeHandler{disputes: disputes}
}

// Open обрабатывает POST /orders/:id/disputes.
func (h *DisputeHandler) Open(c *gin.Context) {
	actor, orderID, ok := actorAndID(c, "id")
	if !ok {
		return
	}

	var req service.OpenDisputeRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	dispute, err := h.disputes.Open(c.Request.Context(), actor, orderID, req)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, dispute)
}

// Get обрабатывает GET /disputes/:id.
func (h *DisputeHandler) Get(c *gin.Context) {
	actor, disputeID, ok := actorAndID(c, "id")
	if !ok {
		return
	}

	dispute, err := h.disputes.Get(c.Request.Context(), actor, disputeID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dispute)
}

// List обрабатывает GET /admin/disputes.
func (h *DisputeHandler) List(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.Fail(c, err)
		return
	}
	limit, offset := common.GetPagination(c, disputePageSize)

	list, err := h.disputes.List(c.Request.Context(), actor, limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Resolve обрабатывает POST /admin/disputes/:id/resolve.
func (h *DisputeHandler) Resolve(c *gin.Context) {
	actor, disputeID, ok := actorAndID(c, "id")
	if !ok {
		return
	}

	var req service.ResolveDisputeRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	dispute, err := h.disputes.Resolve(c.Request.Context(), actor, disputeID, req)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dispute)
}
