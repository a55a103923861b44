package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Виды записей леджера.
const (
	LedgerKindDeposit      = "deposit"
	LedgerKindOrderFunding = "order_funding"
	LedgerKindRefund       = "refund"
	LedgerKindPayout       = "payout"
	LedgerKindExtraPayment = "extra_payment"
)

// LedgerEntry запись об изменении баланса. Amount со знаком.
type LedgerEntry struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	UserID       uuid.UUID       `db:"user_id" json:"user_id"`
	OrderID      *uuid.UUID      `db:"order_id" json:"order_id,omitempty"`
	Kind         string          `db:"kind" json:"kind"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	BalanceAfter decimal.Decimal `db:"balance_after" json:"balance_after"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}
