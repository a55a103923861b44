package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/freelance-market/internal/http/handlers/common"
	"github.com/ignatzorin/freelance-market/internal/service"
)

type BalanceHandler struct {
	ledger *service.LedgerService
}

// NewBalanceHandler создаёт новый хэндлер.
func NewBalanceHandler(ledger *service.LedgerService) *BalanceHandler {
	return &BalanceHandler{ledger: ledger}
}

// Get обрабатывает GET /balance.
func (h *BalanceHandler) Get(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	balance, err := h.ledger.GetBalance(c.Request.Context(), actor)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, service.Balance{Balance: balance})
}

// Deposit обрабатывает POST /balance/deposit.
func (h *BalanceHandler) Deposit(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	var req service.DepositRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	balance, err := h.ledger.Deposit(c.Request.Context(), actor, req)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, service.Balance{Balance: balance})
}

// History обрабатывает GET /balance/history.
func (h *BalanceHandler) History(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.Fail(c, err)
		return
	}
	limit, offset := common.GetPagination(c, common.DefaultPageSize)

	history, err := h.ledger.History(c.Request.Context(), actor, limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}
