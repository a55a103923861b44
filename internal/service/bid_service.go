package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/freelance-market/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-market/internal/events"
	"github.com/ignatzorin/freelance-market/internal/models"
	"github.com/ignatzorin/freelance-market/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-market/internal/repository"
	"github.com/ignatzorin/freelance-market/internal/validation"
)

type BidRepository interface {
	Create(ctx context.Context, bid *models.Bid) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Bid, error)
	GetByOrderAndFreelancer(ctx context.Context, orderID, freelancerID uuid.UUID) (*models.Bid, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.BidWithFreelancer, error)
	ListByFreelancer(ctx context.Context, freelancerID uuid.UUID) ([]models.Bid, error)
	CountByOrder(ctx context.Context, orderID uuid.UUID) (int, error)
	UpdateStatus(ctx context.Context, bid *models.Bid) error
	RejectOthers(ctx context.Context, orderID, acceptedID uuid.UUID) ([]models.Bid, error)
}

// BidService отклики фрилансеров и выбор исполнителя.
type BidService struct {
	runner
	lifecycle
	bids BidRepository
}

// SubmitBidRequest отклик на заказ. Amount пустой, если фрилансер предлагает обсудить цену.
type SubmitBidRequest struct {
	Amount   decimal.NullDecimal `json:"amount" validate:"omitempty,gte=0"`
	Comment  string              `json:"comment" validate:"required,notblank,min=10,max=1000"`
	Deadline string              `json:"deadline" validate:"omitempty,datetime=2006-01-02"`
}

func NewBidService(tx Transactor, publisher EventPublisher, orders OrderRepository, history OrderHistoryRepository,
	bids BidRepository, ledger *LedgerService, assignments *AssignmentService) *BidService {
	return &BidService{
		runner: runner{tx: tx, publisher: publisher},
		lifecycle: lifecycle{
			orders:      orders,
			history:     history,
			ledger:      ledger,
			assignments: assignments,
		},
		bids: bids,
	}
}

// Submit фрилансер откликается на открытый заказ. Один отклик на заказ.
func (s *BidService) Submit(ctx context.Context, actor Actor, orderID uuid.UUID, req SubmitBidRequest) (*models.Bid, error) {
	if err := actor.ensureActive(); err != nil {
		return nil, err
	}
	if !actor.IsFreelancer() {
		return nil, errFreelancerOnly
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if req.Amount.Valid {
		if _, err := valueobject.NewMoney(req.Amount.Decimal); err != nil {
			return nil, err
		}
	}

	bid := &models.Bid{
		ID:           uuid.New(),
		OrderID:      orderID,
		FreelancerID: actor.ID,
		Amount:       req.Amount,
		Comment:      validation.SanitizeText(req.Comment),
		Status:       valueobject.BidStatusPending,
	}
	if req.Deadline != "" {
		deadline, err := time.Parse(time.DateOnly, req.Deadline)
		if err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeValidation, "некорректная дата срока")
		}
		if !deadline.After(time.Now().UTC().Truncate(24 * time.Hour)) {
			return nil, apperror.New(apperror.ErrCodeValidation, "срок выполнения должен быть в будущем")
		}
		bid.Deadline = &deadline
	}

	err := s.inTx(ctx, func(ctx context.Context, fx *effects) error {
		order, err := s.lockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if order.IsOwnedBy(actor.ID) {
			return errOwnOrderBid
		}
		if order.Status != valueobject.OrderStatusOpen {
			return errOrderNotOpen
		}

		if _, err := s.bids.GetByOrderAndFreelancer(ctx, orderID, actor.ID); err == nil {
			return errBidExists
		} else if !errors.Is(err, repository.ErrNotFound) {
			return mapRepoError("bid service: lookup", err, nil)
		}

		if err := s.bids.Create(ctx, bid); err != nil {
			if errors.Is(err, repository.ErrAlreadyExists) {
				return errBidExists
			}
			return mapRepoError("bid service: create", err, nil)
		}
		fx.emit(events.BidStatusChanged(*bid, order.ClientID))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bid, nil
}

// Accept заказчик выбирает отклик. Отклик принимается, заказ уходит в работу с исполнителем,
// остальные ожидающие отклики отклоняются. Всё или ничего.
func (s *BidService) Accept(ctx context.Context, actor Actor, bidID uuid.UUID) (*models.Bid, error) {
	if err := actor.ensureActive(); err != nil {
		return nil, err
	}

	var bid *models.Bid
	err := s.inTx(ctx, func(ctx context.Context, fx *effects) error {
		order, current, err := s.lockBidOrder(ctx, bidID)
		if err != nil {
			return err
		}
		bid = current
		if !order.IsOwnedBy(actor.ID) {
			return errNotOrderOwner
		}
		if bid.Status != valueobject.BidStatusPending {
			return errBidDecided
		}
		if order.Status != valueobject.OrderStatusOpen {
			return errOrderTaken
		}

		// Заказ без бюджета оплачивается по сумме выбранного отклика.
		if !order.Budget.Valid {
			if !bid.Amount.Valid {
				return errNegotiableNoBid
			}
			order.Budget = bid.Amount
		}
		if err := s.fund(ctx, order); err != nil {
			return err
		}

		if err := bid.Accept(); err != nil {
			return err
		}
		if err := s.bids.UpdateStatus(ctx, bid); err != nil {
			return mapRepoError("bid service: accept", err, apperror.ErrBidNotFound)
		}
		fx.bidStatuses = append(fx.bidStatuses, bid.Status)

		order.FreelancerID = &bid.FreelancerID
		if err := s.transition(ctx, fx, order, valueobject.OrderStatusInProgress, &actor.ID, actionAssigned); err != nil {
			return err
		}
		if err := s.assignments.Assign(ctx, order.ID, bid.FreelancerID); err != nil {
			return err
		}

		rejected, err := s.bids.RejectOthers(ctx, order.ID, bid.ID)
		if err != nil {
			return mapRepoError("bid service: reject others", err, nil)
		}

		fx.emit(events.BidStatusChanged(*bid, order.ClientID))
		for _, other := range rejected {
			fx.bidStatuses = append(fx.bidStatuses, other.Status)
			fx.emit(events.BidStatusChanged(other, order.ClientID))
		}
		fx.emit(events.OrderUpdated(*order))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bid, nil
}

// Reject заказчик отклоняет ожидающий отклик.
func (s *BidService) Reject(ctx context.Context, actor Actor, bidID uuid.UUID) (*models.Bid, error) {
	if err := actor.ensureActive(); err != nil {
		return nil, err
	}

	var bid *models.Bid
	err := s.inTx(ctx, func(ctx context.Context, fx *effects) error {
		order, current, err := s.lockBidOrder(ctx, bidID)
		if err != nil {
			return err
		}
		bid = current
		if !order.IsOwnedBy(actor.ID) {
			return errNotOrderOwner
		}
		if err := bid.Reject(); err != nil {
			return err
		}
		if err := s.bids.UpdateStatus(ctx, bid); err != nil {
			return mapRepoError("bid service: reject", err, apperror.ErrBidNotFound)
		}
		fx.bidStatuses = append(fx.bidStatuses, bid.Status)
		fx.emit(events.BidStatusChanged(*bid, order.ClientID))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bid, nil
}

// lockBidOrder блокирует заказ отклика и перечитывает отклик уже под блокировкой.
func (s *BidService) lockBidOrder(ctx context.Context, bidID uuid.UUID) (*models.Order, *models.Bid, error) {
	bid, err := s.getBid(ctx, bidID)
	if err != nil {
		return nil, nil, err
	}
	order, err := s.lockOrder(ctx, bid.OrderID)
	if err != nil {
		return nil, nil, err
	}
	if bid, err = s.getBid(ctx, bidID); err != nil {
		return nil, nil, err
	}
	return order, bid, nil
}

func (s *BidService) getBid(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	bid, err := s.bids.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError("bid service: get", err, apperror.ErrBidNotFound)
	}
	return bid, nil
}

// ListForOrder отклики заказа с авторами. Видны заказчику и администратору.
func (s *BidService) ListForOrder(ctx context.Context, actor Actor, orderID uuid.UUID) ([]models.BidWithFreelancer, error) {
	if err := actor.ensureActive(); err != nil {
		return nil, err
	}
	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsOwnedBy(actor.ID) && !actor.IsAdmin() {
		return nil, errNotOrderOwner
	}
	bids, err := s.bids.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, mapRepoError("bid service: list", err, nil)
	}
	return bids, nil
}

// MyBid отклик текущего пользователя на заказ.
func (s *BidService) MyBid(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Bid, error) {
	if err := actor.ensureActive(); err != nil {
		return nil, err
	}
	bid, err := s.bids.GetByOrderAndFreelancer(ctx, orderID, actor.ID)
	if err != nil {
		return nil, mapRepoError("bid service: my bid", err, apperror.ErrBidNotFound)
	}
	return bid, nil
}

// ListMine все отклики текущего фрилансера.
func (s *BidService) ListMine(ctx context.Context, actor Actor) ([]models.Bid, error) {
	if err := actor.ensureActive(); err != nil {
		return nil, err
	}
	bids, err := s.bids.ListByFreelancer(ctx, actor.ID)
	if err != nil {
		return nil, mapRepoError("bid service: list mine", err, nil)
	}
	return bids, nil
}
