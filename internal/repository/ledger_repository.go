package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/freelance-market/internal/models"
	"github.com/ignatzorin/freelance-market/internal/repository/common"
)

// LedgerRepository меняет баланс пользователей и ведёт журнал операций.
type LedgerRepository struct {
	db *sqlx.DB
}

func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// GetBalance возвращает текущий баланс.
func (r *LedgerRepository) GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	var balance decimal.Decimal
	if err := sqlx.GetContext(ctx, common.Conn(ctx, r.db), &balance,
		`SELECT balance FROM users WHERE id = $1`, userID); err != nil {
		return decimal.Zero, fmt.Errorf("ledger repository: get balance: %w", common.MapError(err))
	}
	return balance, nil
}

// Debit списывает сумму одним UPDATE, проверка и списание атомарны.
func (r *LedgerRepository) Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	conn := common.Conn(ctx, r.db)

	var balance decimal.Decimal
	err := sqlx.GetContext(ctx, conn, &balance, `
		UPDATE users SET balance = balance - $2, updated_at = NOW()
		WHERE id = $1 AND balance >= $2
		RETURNING balance
	`, userID, amount)
	if err == nil {
		return balance, nil
	}

	err = common.MapError(err)
	if !errors.Is(err, ErrNotFound) {
		return decimal.Zero, fmt.Errorf("ledger repository: debit: %w", err)
	}
	// Строки нет: либо пользователя нет, либо не хватает средств.
	if _, getErr := r.GetBalance(ctx, userID); getErr != nil {
		return decimal.Zero, getErr
	}
	return decimal.Zero, ErrInsufficientFunds
}

// Credit зачисляет сумму.
func (r *LedgerRepository) Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	if err := sqlx.GetContext(ctx, common.Conn(ctx, r.db), &balance, `
		UPDATE users SET balance = balance + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING balance
	`, userID, amount); err != nil {
		return decimal.Zero, fmt.Errorf("ledger repository: credit: %w", common.MapError(err))
	}
	return balance, nil
}

// AddEntry пишет запись журнала.
func (r *LedgerRepository) AddEntry(ctx context.Context, entry *models.LedgerEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if err := common.Conn(ctx, r.db).QueryRowxContext(ctx, `
		INSERT INTO ledger_entries (id, user_id, order_id, kind, amount, balance_after)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, entry.ID, entry.UserID, entry.OrderID, entry.Kind, entry.Amount, entry.BalanceAfter).Scan(&entry.CreatedAt); err != nil {
		return fmt.Errorf("ledger repository: add entry: %w", common.MapError(err))
	}
	return nil
}

// ListEntries возвращает журнал пользователя, новые сверху.
func (r *LedgerRepository) ListEntries(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.LedgerEntry, error) {
	entries := make([]models.LedgerEntry, 0)
	if err := sqlx.SelectContext(ctx, common.Conn(ctx, r.db), &entries, `
		SELECT id, user_id, order_id, kind, amount, balance_after, created_at
		FROM ledger_entries
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("ledger repository: list entries: %w", err)
	}
	return entries, nil
}
