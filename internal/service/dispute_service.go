package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-market/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-market/internal/events"
	"github.com/ignatzorin/freelance-market/internal/models"
	"github.com/ignatzorin/freelance-market/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-market/internal/repository"
	"github.com/ignatzorin/freelance-market/internal/validation"
)

type DisputeRepository interface {
	Create(ctx context.Context, dispute *models.Dispute) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	ActiveForOrder(ctx context.Context, orderID uuid.UUID) (*models.Dispute, error)
	Update(ctx context.Context, dispute *models.Dispute) error
	List(ctx context.Context, limit, offset int) ([]models.Dispute, int, error)
}

// DisputeService споры по заказам. Открытый спор замораживает заказ до решения администратора.
type DisputeService struct {
	runner
	lifecycle
	repo            DisputeRepository
	payoutOnResolve bool
}

// OpenDisputeRequest причина спора.
type OpenDisputeRequest struct {
	Reason string `json:"reason" validate:"required,notblank,min=10,max=2000"`
}

// ResolveDisputeRequest решение администратора.
type ResolveDisputeRequest struct {
	Status  string  `json:"status" validate:"required,oneof=in_progress resolved cancelled"`
	Comment *string `json:"comment" validate:"omitempty,max=2000"`
}

// DisputeList страница споров для администратора.
type DisputeList struct {
	Disputes []models.Dispute `json:"disputes"`
	Total    int              `json:"total"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
}

func NewDisputeService(tx Transactor, publisher EventPublisher, orders OrderRepository, history OrderHistoryRepository,
	repo DisputeRepository, ledger *LedgerService, assignments *AssignmentService, payoutOnResolve bool) *DisputeService {
	return &DisputeService{
		runner: runner{tx: tx, publisher: publisher},
		lifecycle: lifecycle{
			orders:      orders,
			history:     history,
			ledger:      ledger,
			assignments: assignments,
		},
		repo:            repo,
		payoutOnResolve: payoutOnResolve,
	}
}

// Open участник заказа открывает спор. Заказ переходит в dispute, прежний статус запоминается.
func (s *DisputeService) Open(ctx context.Context, actor Actor, orderID uuid.UUID, req OpenDisputeRequest) (*models.Dispute, error) {
	if err := actor.ensureActive(); err != nil {
		return nil, err
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	var dispute *models.Dispute
	err := s.inTx(ctx, func(ctx context.Context, fx *effects) error {
		order, err := s.lockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		freelancerID, assigned, err := s.assignee(ctx, order)
		if err != nil {
			return err
		}
		if !order.IsOwnedBy(actor.ID) && !(assigned && freelancerID == actor.ID) {
			return errNotParticipant
		}

		if _, err := s.repo.ActiveForOrder(ctx, orderID); err == nil {
			return errDisputeExists
		} else if !errors.Is(err, repository.ErrNotFound) {
			return mapRepoError("dispute service: active", err, nil)
		}

		dispute = &models.Dispute{
			ID:                uuid.New(),
			OrderID:           orderID,
			InitiatorID:       actor.ID,
			Reason:            validation.SanitizeText(req.Reason),
			Status:            valueobject.DisputeStatusOpen,
			OrderStatusBefore: order.Status,
		}
		if err := s.transition(ctx, fx, order, valueobject.OrderStatusDispute, &actor.ID, actionDisputed); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, dispute); err != nil {
			if errors.Is(err, repository.ErrAlreadyExists) {
				return errDisputeExists
			}
			return mapRepoError("dispute service: create", err, nil)
		}

		fx.emit(events.DisputeStatusChanged(*dispute, *order), events.OrderUpdated(*order))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dispute, nil
}

// Resolve администратор меняет статус спора. resolved завершает заказ,
// cancelled возвращает заказ в статус до спора.
func (s *DisputeService) Resolve(ctx context.Context, actor Actor, disputeID uuid.UUID, req ResolveDisputeRequest) (*models.Dispute, error) {
	if err := actor.ensureActive(); err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		return nil, errAdminOnly
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	next := valueobject.DisputeStatus(req.Status)

	var dispute *models.Dispute
	err := s.inTx(ctx, func(ctx context.Context, fx *effects) error {
		// Сначала заказ, затем спор: тот же порядок блокировок, что и при открытии.
		unlocked, err := s.get(ctx, disputeID)
		if err != nil {
			return err
		}
		order, err := s.lockOrder(ctx, unlocked.OrderID)
		if err != nil {
			return err
		}
		if dispute, err = s.repo.GetForUpdate(ctx, disputeID); err != nil {
			return mapRepoError("dispute service: lock", err, apperror.ErrDisputeNotFound)
		}
		if !dispute.Status.CanTransitionTo(next) {
			return apperror.Newf(apperror.ErrCodeInvalidState, "нельзя перевести спор из %s в %s", dispute.Status, next)
		}

		// Завершить заказ можно только при назначенном исполнителе.
		var freelancerID uuid.UUID
		if next == valueobject.DisputeStatusResolved {
			var ok bool
			if freelancerID, ok, err = s.assignee(ctx, order); err != nil {
				return err
			}
			if !ok {
				return errNoAssignee
			}
		}

		dispute.Status = next
		dispute.AdminID = &actor.ID
		dispute.AdminComment = validation.SanitizeOptional(req.Comment)
		if !next.IsActive() {
			now := time.Now().UTC()
			dispute.ResolvedAt = &now
		}
		if err := s.repo.Update(ctx, dispute); err != nil {
			return mapRepoError("dispute service: update", err, apperror.ErrDisputeNotFound)
		}

		switch next {
		case valueobject.DisputeStatusResolved:
			if err := s.transition(ctx, fx, order, valueobject.OrderStatusCompleted, &actor.ID, actionDisputeEnd); err != nil {
				return err
			}
			if s.payoutOnResolve {
				if err := s.payout(ctx, order, freelancerID); err != nil {
					return err
				}
			}
			fx.emit(events.OrderUpdated(*order))
		case valueobject.DisputeStatusCancelled:
			restore := dispute.OrderStatusBefore
			if !restore.IsValid() || restore == valueobject.OrderStatusDispute {
				restore = valueobject.OrderStatusOpen
			}
			if err := s.transition(ctx, fx, order, restore, &actor.ID, actionDisputeEnd); err != nil {
				return err
			}
			fx.emit(events.OrderUpdated(*order))
		}

		fx.emit(events.DisputeStatusChanged(*dispute, *order))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dispute, nil
}

// List все споры для администратора, новые сверху.
func (s *DisputeService) List(ctx context.Context, actor Actor, limit, offset int) (*DisputeList, error) {
	if err := actor.ensureActive(); err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		return nil, errAdminOnly
	}
	limit, offset = normalizePage(limit, offset)
	disputes, total, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, mapRepoError("dispute service: list", err, nil)
	}
	return &DisputeList{Disputes: disputes, Total: total, Limit: limit, Offset: offset}, nil
}

// Get спор виден участникам заказа и администратору.
func (s *DisputeService) Get(ctx context.Context, actor Actor, disputeID uuid.UUID) (*models.Dispute, error) {
	if err := actor.ensureActive(); err != nil {
		return nil, err
	}
	dispute, err := s.get(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() || dispute.InitiatorID == actor.ID {
		return dispute, nil
	}
	order, err := s.getOrder(ctx, dispute.OrderID)
	if err != nil {
		return nil, err
	}
	freelancerID, ok, err := s.assignee(ctx, order)
	if err != nil {
		return nil, err
	}
	if !order.IsOwnedBy(actor.ID) && !(ok && freelancerID == actor.ID) {
		return nil, errNotParticipant
	}
	return dispute, nil
}

func (s *DisputeService) get(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	dispute, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError("dispute service: get", err, apperror.ErrDisputeNotFound)
	}
	return dispute, nil
}
