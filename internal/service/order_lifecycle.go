package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/freelance-market/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-market/internal/models"
	"github.com/ignatzorin/freelance-market/internal/pkg/apperror"
)

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error)
	Update(ctx context.Context, order *models.Order) error
	List(ctx context.Context, filter models.OrderFilter) (*models.OrderList, error)
	SetSkills(ctx context.Context, orderID uuid.UUID, skillIDs []uuid.UUID) error
	Skills(ctx context.Context, orderID uuid.UUID) ([]string, error)
	AddFiles(ctx context.Context, files []models.OrderFile) error
	Files(ctx context.Context, orderID uuid.UUID) ([]models.OrderFile, error)
}

type OrderHistoryRepository interface {
	Add(ctx context.Context, entry *models.OrderHistory) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderHistory, error)
}

// Действия в истории заказа.
const (
	actionCreated    = "created"
	actionPublished  = "published"
	actionAssigned   = "assigned"
	actionSubmitted  = "submitted_for_review"
	actionCompleted  = "completed"
	actionCanceled   = "canceled"
	actionDisputed   = "dispute_opened"
	actionDisputeEnd = "dispute_closed"
)

// lifecycle общие шаги изменения заказа для сервисов заказов, откликов и споров.
type lifecycle struct {
	orders      OrderRepository
	history     OrderHistoryRepository
	ledger      *LedgerService
	assignments *AssignmentService
}

func (l lifecycle) lockOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := l.orders.GetForUpdate(ctx, id)
	if err != nil {
		return nil, mapRepoError("lock order", err, apperror.ErrOrderNotFound)
	}
	return order, nil
}

func (l lifecycle) getOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := l.orders.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError("get order", err, apperror.ErrOrderNotFound)
	}
	return order, nil
}

// transition переводит заказ в next, сохраняет его и пишет историю.
func (l lifecycle) transition(ctx context.Context, fx *effects, order *models.Order, next valueobject.OrderStatus, actorID *uuid.UUID, action string) error {
	prev := order.Status
	if err := order.TransitionTo(next); err != nil {
		return err
	}
	if err := l.orders.Update(ctx, order); err != nil {
		return mapRepoError("update order", err, apperror.ErrOrderNotFound)
	}
	if err := l.record(ctx, order, prev, actorID, action); err != nil {
		return err
	}
	fx.transitions = append(fx.transitions, [2]valueobject.OrderStatus{prev, next})
	return nil
}

func (l lifecycle) record(ctx context.Context, order *models.Order, prev valueobject.OrderStatus, actorID *uuid.UUID, action string) error {
	if err := l.history.Add(ctx, &models.OrderHistory{
		ID:        uuid.New(),
		OrderID:   order.ID,
		UserID:    actorID,
		Action:    action,
		OldStatus: prev,
		NewStatus: order.Status,
	}); err != nil {
		return mapRepoError("order history", err, nil)
	}
	return nil
}

// fund резервирует бюджет заказа на стороне клиента.
// Заказ без бюджета остаётся неоплаченным до выбора отклика.
func (l lifecycle) fund(ctx context.Context, order *models.Order) error {
	if !order.Budget.Valid || order.IsFunded() {
		return nil
	}
	amount := order.Budget.Decimal.Sub(order.FundedAmount)
	if _, err := l.ledger.Debit(ctx, order.ClientID, amount, models.LedgerKindOrderFunding, &order.ID); err != nil {
		return err
	}
	order.FundedAmount = order.Budget.Decimal
	return nil
}

// payout переводит зарезервированную сумму исполнителю.
func (l lifecycle) payout(ctx context.Context, order *models.Order, freelancerID uuid.UUID) error {
	if !order.FundedAmount.IsPositive() {
		return nil
	}
	_, err := l.ledger.Credit(ctx, freelancerID, order.FundedAmount, models.LedgerKindPayout, &order.ID)
	return err
}

// refund возвращает зарезервированную сумму клиенту.
func (l lifecycle) refund(ctx context.Context, order *models.Order) error {
	if !order.FundedAmount.IsPositive() {
		return nil
	}
	if _, err := l.ledger.Credit(ctx, order.ClientID, order.FundedAmount, models.LedgerKindRefund, &order.ID); err != nil {
		return err
	}
	order.FundedAmount = decimal.Zero
	return nil
}

// assignee исполнитель заказа: сначала по назначению, затем по полю заказа.
func (l lifecycle) assignee(ctx context.Context, order *models.Order) (uuid.UUID, bool, error) {
	id, ok, err := l.assignments.FreelancerFor(ctx, order.ID)
	if err != nil || ok {
		return id, ok, err
	}
	if order.FreelancerID != nil {
		return *order.FreelancerID, true, nil
	}
	return uuid.Nil, false, nil
}
