package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/freelance-market/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-market/internal/models"
	"github.com/ignatzorin/freelance-market/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-market/internal/validation"
)

type LedgerRepository interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)
	Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)
	AddEntry(ctx context.Context, entry *models.LedgerEntry) error
	ListEntries(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.LedgerEntry, error)
}

// LedgerService ведёт балансы пользователей. Любое изменение баланса сопровождается записью журнала.
type LedgerService struct {
	runner
	repo       LedgerRepository
	depositMax decimal.Decimal
}

// DepositRequest пополнение баланса.
type DepositRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"gte=1"`
}

// Balance текущий баланс и последние операции.
type Balance struct {
	Balance decimal.Decimal      `json:"balance"`
	Entries []models.LedgerEntry `json:"entries,omitempty"`
}

func NewLedgerService(tx Transactor, repo LedgerRepository, depositMax decimal.Decimal) *LedgerService {
	return &LedgerService{runner: runner{tx: tx}, repo: repo, depositMax: depositMax}
}

func (s *LedgerService) GetBalance(ctx context.Context, actor Actor) (decimal.Decimal, error) {
	if err := actor.ensureActive(); err != nil {
		return decimal.Zero, err
	}
	balance, err := s.repo.GetBalance(ctx, actor.ID)
	if err != nil {
		return decimal.Zero, mapRepoError("ledger service: balance", err, apperror.ErrUserNotFound)
	}
	return balance, nil
}

// Deposit зачисляет средства на счёт пользователя.
func (s *LedgerService) Deposit(ctx context.Context, actor Actor, req DepositRequest) (decimal.Decimal, error) {
	if err := actor.ensureActive(); err != nil {
		return decimal.Zero, err
	}
	if err := validation.Struct(req); err != nil {
		return decimal.Zero, err
	}
	amount, err := valueobject.NewPositiveMoney(req.Amount)
	if err != nil {
		return decimal.Zero, err
	}
	if s.depositMax.IsPositive() && amount.GreaterThan(s.depositMax) {
		return decimal.Zero, apperror.Newf(apperror.ErrCodeValidation, "сумма пополнения не может превышать %s", s.depositMax.String())
	}

	var balance decimal.Decimal
	err = s.inTx(ctx, func(ctx context.Context, _ *effects) error {
		var err error
		balance, err = s.Credit(ctx, actor.ID, amount, models.LedgerKindDeposit, nil)
		return err
	})
	return balance, err
}

// History журнал операций пользователя, новые сверху.
func (s *LedgerService) History(ctx context.Context, actor Actor, limit, offset int) (*Balance, error) {
	balance, err := s.GetBalance(ctx, actor)
	if err != nil {
		return nil, err
	}
	limit, offset = normalizePage(limit, offset)
	entries, err := s.repo.ListEntries(ctx, actor.ID, limit, offset)
	if err != nil {
		return nil, mapRepoError("ledger service: history", err, nil)
	}
	return &Balance{Balance: balance, Entries: entries}, nil
}

// Debit списывает сумму. Нехватка средств даёт InsufficientFunds без изменения баланса.
// Нулевая сумма ничего не пишет.
func (s *LedgerService) Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, kind string, orderID *uuid.UUID) (decimal.Decimal, error) {
	return s.apply(ctx, userID, amount.Neg(), kind, orderID)
}

// Credit зачисляет сумму.
func (s *LedgerService) Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, kind string, orderID *uuid.UUID) (decimal.Decimal, error) {
	return s.apply(ctx, userID, amount, kind, orderID)
}

func (s *LedgerService) apply(ctx context.Context, userID uuid.UUID, signed decimal.Decimal, kind string, orderID *uuid.UUID) (decimal.Decimal, error) {
	if signed.IsZero() {
		balance, err := s.repo.GetBalance(ctx, userID)
		return balance, mapRepoError("ledger service: balance", err, apperror.ErrUserNotFound)
	}

	var balance decimal.Decimal
	err := s.inTx(ctx, func(ctx context.Context, fx *effects) error {
		var err error
		if signed.IsNegative() {
			balance, err = s.repo.Debit(ctx, userID, signed.Neg())
		} else {
			balance, err = s.repo.Credit(ctx, userID, signed)
		}
		if err != nil {
			return mapRepoError("ledger service: "+kind, err, apperror.ErrUserNotFound)
		}

		if err := s.repo.AddEntry(ctx, &models.LedgerEntry{
			ID:           uuid.New(),
			UserID:       userID,
			OrderID:      orderID,
			Kind:         kind,
			Amount:       signed,
			BalanceAfter: balance,
		}); err != nil {
			return mapRepoError("ledger service: entry", err, nil)
		}
		fx.ledgerKinds = append(fx.ledgerKinds, kind)
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}
