package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/freelance-market/internal/http/handlers/common"
	"github.com/ignatzorin/freelance-market/internal/service"
)

type BidHandler struct {
	bids *service.BidService
}

// NewBidHandler создаёт новый хэндлер.
func NewBidHandler(bids *service.BidService) *BidHandler {
	return &BidHandler{bids: bids}
}

// Submit обрабатывает POST /orders/:id/bids.
func (h *BidHandler) Submit(c *gin.Context) {
	actor, orderID, ok := actorAndID(c, "id")
	if !ok {
		return
	}

	var req service.SubmitBidRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	bid, err := h.bids.Submit(c.Request.Context(), actor, orderID, req)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, bid)
}

// ListForOrder обрабатывает GET /orders/:id/bids. Видно владельцу заказа и администратору.
func (h *BidHandler) ListForOrder(c *gin.Context) {
	actor, orderID, ok := actorAndID(c, "id")
	if !ok {
		return
	}

	bids, err := h.bids.ListForOrder(c.Request.Context(), actor, orderID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bids": bids})
}

// MyBid обрабатывает GET /orders/:id/bids/my.
func (h *BidHandler) MyBid(c *gin.Context) {
	actor, orderID, ok := actorAndID(c, "id")
	if !ok {
		return
	}

	bid, err := h.bids.MyBid(c.Request.Context(), actor, orderID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bid": bid})
}

// ListMine обрабатывает GET /bids/my.
func (h *BidHandler) ListMine(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	bids, err := h.bids.ListMine(c.Request.Context(), actor)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bids": bids})
}

// Accept обрабатывает POST /bids/:id/accept.
func (h *BidHandler) Accept(c *gin.Context) {
	actor, bidID, ok := actorAndID(c, "id")
	if !ok {
		return
	}

	bid, err := h.bids.Accept(c.Request.Context(), actor, bidID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, bid)
}

// Reject обрабатывает POST /bids/:id/reject.
func (h *BidHandler) Reject(c *gin.Context) {
	actor, bidID, ok := actorAndID(c, "id")
	if !ok {
		return
	}

	bid, err := h.bids.Reject(c.Request.Context(), actor, bidID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, bid)
}
