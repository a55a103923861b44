package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/ignatzorin/freelance-market/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-market/internal/events"
	"github.com/ignatzorin/freelance-market/internal/models"
	"github.com/ignatzorin/freelance-market/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-market/internal/repository"
	"github.com/ignatzorin/freelance-market/internal/validation"
)

type CatalogRepository interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategoryByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	ListSkills(ctx context.Context) ([]models.Skill, error)
	EnsureSkills(ctx context.Context, names []string) ([]models.Skill, error)
}

type UserReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// BidReader то, что сервису заказов нужно знать об откликах.
type BidReader interface {
	CountByOrder(ctx context.Context, orderID uuid.UUID) (int, error)
	GetByOrderAndFreelancer(ctx context.Context, orderID, freelancerID uuid.UUID) (*models.Bid, error)
}

// OrderPolicy настраиваемые правила жизненного цикла заказа.
type OrderPolicy struct {
	RefundOnCancel      bool
	PayoutOnComplete    bool
	StrictDeliveryCheck bool
}

type OrderServiceDeps struct {
	Tx          Transactor
	Publisher   EventPublisher
	Files       FileStore
	Orders      OrderRepository
	History     OrderHistoryRepository
	Catalog     CatalogRepository
	Users       UserReader
	Bids        BidReader
	Ledger      *LedgerService
	Assignments *AssignmentService
	Reviews     *ReviewService
	Cache       *CacheService
	Policy      OrderPolicy
}

// OrderService жизненный цикл заказа со стороны заказчика.
type OrderService struct {
	runner
	lifecycle
	catalog CatalogRepository
	users   UserReader
	bids    BidReader
	reviews *ReviewService
	cache   *CacheService
	policy  OrderPolicy
}

func NewOrderService(deps OrderServiceDeps) *OrderService {
	return &OrderService{
		runner: runner{tx: deps.Tx, publisher: deps.Publisher, files: deps.Files},
		lifecycle: lifecycle{
			orders:      deps.Orders,
			history:     deps.History,
			ledger:      deps.Ledger,
			assignments: deps.Assignments,
		},
		catalog: deps.Catalog,
		users:   deps.Users,
		bids:    deps.Bids,
		reviews: deps.Reviews,
		cache:   deps.Cache,
		policy:  deps.Policy,
	}
}

// CreateOrderRequest данные нового заказа. Status draft или open.
type CreateOrderRequest struct {
	Title        string              `json:"title" validate:"required,notblank,max=255"`
	Description  string              `json:"description" validate:"required,notblank,max=10000"`
	Budget       decimal.NullDecimal `json:"budget" validate:"omitempty,gte=0"`
	CategoryID   uuid.UUID           `json:"category_id" validate:"required"`
	Skills       []string            `json:"skills" validate:"max=20,dive,notblank,max=50"`
	DeadlineDays *int                `json:"deadline_days" validate:"omitempty,gte=1,lte=365"`
	Status       string              `json:"status" validate:"omitempty,oneof=draft open"`
	Files        []FileUpload        `json:"-" validate:"max=10"`
}

// ListOrdersRequest фильтр публичного списка.
type ListOrdersRequest struct {
	Status     string     `form:"status"`
	CategoryID *uuid.UUID `form:"-"`
	Skill      string     `form:"skill"`
	Search     string     `form:"search"`
	Limit      int        `form:"limit"`
	Offset     int        `form:"offset"`
}

// CloseOrderRequest приёмка работы: отзыв исполнителю и необязательная доплата.
type CloseOrderRequest struct {
	Rating           int                 `json:"rating" validate:"gte=1,lte=5"`
	Comment          *string             `json:"comment" validate:"omitempty,max=1000"`
	AdditionalAmount decimal.NullDecimal `json:"additional_amount" validate:"omitempty,gte=0"`
}

// Create создаёт заказ. Публикация сразу списывает бюджет с баланса заказчика.
func (s *OrderService) Create(ctx context.Context, actor Actor, req CreateOrderRequest) (*models.Order, error) {
	if err := actor.ensureActive(); err != nil {
		return nil, err
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if req.Budget.Valid {
		if _, err := valueobject.NewMoney(req.Budget.Decimal); err != nil {
			return nil, err
		}
	}

	order := &models.Order{
		ID:          uuid.New(),
		ClientID:    actor.ID,
		CategoryID:  req.CategoryID,
		Title:       validation.SanitizeText(req.Title),
		Description: validation.SanitizeText(req.Description),
		Budget:      req.Budget,
		Status:      valueobject.OrderStatusDraft,
	}
	if req.DeadlineDays != nil {
		deadline := time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, *req.DeadlineDays)
		order.Deadline = &deadline
	}

	err := s.inTx(ctx, func(ctx context.Context, fx *effects) error {
		if _, err := s.catalog.GetCategoryByID(ctx, req.CategoryID); err != nil {
			return mapRepoError("order service: category", err, apperror.ErrCategoryNotFound)
		}
		if err := s.orders.Create(ctx, order); err != nil {
			return mapRepoError("order service: create", err, nil)
		}
		if err := s.record(ctx, order, "", &actor.ID, actionCreated); err != nil {
			return err
		}

		if names := normalizeSkills(req.Skills); len(names) > 0 {
			skills, err := s.catalog.EnsureSkills(ctx, names)
			if err != nil {
				return mapRepoError("order service: skills", err, nil)
			}
			ids := make([]uuid.UUID, 0, len(skills))
			for _, skill := range skills {
				ids = append(ids, skill.ID)
			}
			if err := s.orders.SetSkills(ctx, order.ID, ids); err != nil {
				return mapRepoError("order service: set skills", err, nil)
			}
		}

		files, err := s.storeFiles(ctx, fx, order, actor.ID, models.FileKindAttachment, req.Files)
		if err != nil {
			return err
		}
		if len(files) > 0 {
			if err := s.orders.AddFiles(ctx, files); err != nil {
				return mapRepoError("order service: files", err, nil)
			}
		}

		if req.Status == string(valueobject.OrderStatusOpen) {
			return s.publish(ctx, fx, order, actor.ID)
		}
		fx.emit(events.OrderUpdated(*order))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Publish переводит черновик в open, списывая бюджет.
func (s *OrderService) Publish(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error) {
	if err := actor.ensureActive(); err != nil {
		return nil, err
	}

	var order *models.Order
	err := s.inTx(ctx, func(ctx context.Context, fx *effects) error {
		var err error
		if order, err = s.lockOrder(ctx, orderID); err != nil {
			return err
		}
		if !order.IsOwnedBy(actor.ID) {
			return errNotOrderOwner
		}
		if order.Status != valueobject.OrderStatusDraft {
			return apperror.Newf(apperror.ErrCodeInvalidState, "опубликовать можно только черновик, статус заказа: %s", order.Status)
		}
		return s.publish(ctx, fx, order, actor.ID)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *OrderService) publish(ctx context.Context, fx *effects, order *models.Order, actorID uuid.UUID) error {
	if err := s.fund(ctx, order); err != nil {
		return err
	}
	if err := s.transition(ctx, fx, order, valueobject.OrderStatusOpen, &actorID, actionPublished); err != nil {
		return err
	}
	fx.emit(events.OrderUpdated(*order))
	return nil
}

// Cancel отменяет заказ в статусе open или in_progress и снимает исполнителя.
func (s *OrderService) Cancel(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error) {
	if err := actor.ensureActive(); err != nil {
		return nil, err
	}

	var order *models.Order
	err := s.inTx(ctx, func(ctx context.Context, fx *effects) error {
		var err error
		if order, err = s.lockOrder(ctx, orderID); err != nil {
			return err
		}
		if !order.IsOwnedBy(actor.ID) {
			return errNotOrderOwner
		}
		if order.Status != valueobject.OrderStatusOpen && order.Status != valueobject.OrderStatusInProgress {
			return apperror.Newf(apperror.ErrCodeInvalidState, "нельзя отменить заказ в статусе %s", order.Status)
		}

		previous := order.FreelancerID
		if s.policy.RefundOnCancel {
			if err := s.refund(ctx, order); err != nil {
				return err
			}
		}
		if err := s.assignments.Release(ctx, order.ID); err != nil {
			return err
		}
		order.FreelancerID = nil
		if err := s.transition(ctx, fx, order, valueobject.OrderStatusCanceled, &actor.ID, actionCanceled); err != nil {
			return err
		}

		event := events.OrderUpdated(*order)
		if previous != nil {
			event = event.WithRecipient(*previous)
		}
		fx.emit(event)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// SubmitForReview исполнитель сдаёт работу, прикладывая результаты.
func (s *OrderService) SubmitForReview(ctx context.Context, actor Actor, orderID uuid.UUID, uploads []FileUpload) (*models.Order, error) {
	if err := actor.ensureActive(); err != nil {
		return nil, err
	}
	if len(uploads) > 10 {
		return nil, apperror.New(apperror.ErrCodeValidation, "можно приложить не более 10 файлов")
	}

	var order *models.Order
	err := s.inTx(ctx, func(ctx context.Context, fx *effects) error {
		var err error
		if order, err = s.lockOrder(ctx, orderID); err != nil {
			return err
		}
		if s.policy.StrictDeliveryCheck {
			freelancerID, ok, err := s.assignee(ctx, order)
			if err != nil {
				return err
			}
			if !ok || freelancerID != actor.ID {
				return errNotAssignee
			}
		}
		if order.Status != valueobject.OrderStatusInProgress {
			return apperror.Newf(apperror.ErrCodeInvalidState, "сдать работу можно только по заказу в работе, статус: %s", order.Status)
		}

		files, err := s.storeFiles(ctx, fx, order, actor.ID, models.FileKindDeliverable, uploads)
		if err != nil {
			return err
		}
		if len(files) > 0 {
			if err := s.orders.AddFiles(ctx, files); err != nil {
				return mapRepoError("order service: deliverables", err, nil)
			}
		}

		if err := s.transition(ctx, fx, order, valueobject.OrderStatusAwaitingReview, &actor.ID, actionSubmitted); err != nil {
			return err
		}
		fx.emit(events.OrderUpdated(*order))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Close заказчик принимает работу: заказ завершается, исполнитель получает отзыв и оплату.
func (s *OrderService) Close(ctx context.Context, actor Actor, orderID uuid.UUID, req CloseOrderRequest) (*models.Order, error) {
	if err := actor.ensureActive(); err != nil {
		return nil, err
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	var extra decimal.Decimal
	if req.AdditionalAmount.Valid {
		var err error
		if extra, err = valueobject.NewMoney(req.AdditionalAmount.Decimal); err != nil {
			return nil, err
		}
	}

	var order *models.Order
	err := s.inTx(ctx, func(ctx context.Context, fx *effects) error {
		var err error
		if order, err = s.lockOrder(ctx, orderID); err != nil {
			return err
		}
		if !order.IsOwnedBy(actor.ID) {
			return errNotOrderOwner
		}
		if order.Status != valueobject.OrderStatusAwaitingReview {
			return apperror.Newf(apperror.ErrCodeInvalidState, "закрыть можно только заказ на проверке, статус: %s", order.Status)
		}
		freelancerID, ok, err := s.assignee(ctx, order)
		if err != nil {
			return err
		}
		if !ok {
			return errNoAssignee
		}

		if extra.IsPositive() {
			if _, err := s.ledger.Debit(ctx, order.ClientID, extra, models.LedgerKindExtraPayment, &order.ID); err != nil {
				return err
			}
			order.Budget = decimal.NewNullDecimal(order.Budget.Decimal.Add(extra))
			order.FundedAmount = order.FundedAmount.Add(extra)
		}

		if err := s.transition(ctx, fx, order, valueobject.OrderStatusCompleted, &actor.ID, actionCompleted); err != nil {
			return err
		}
		if s.policy.PayoutOnComplete {
			if err := s.payout(ctx, order, freelancerID); err != nil {
				return err
			}
		}
		if _, err := s.reviews.create(ctx, order, actor.ID, freelancerID, req.Rating, req.Comment); err != nil {
			return err
		}
		fx.emit(events.OrderUpdated(*order))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// List публичный список заказов, по умолчанию только открытые.
func (s *OrderService) List(ctx context.Context, req ListOrdersRequest) (*models.OrderList, error) {
	filter := models.OrderFilter{
		Status:     valueobject.OrderStatusOpen,
		CategoryID: req.CategoryID,
		Skill:      strings.TrimSpace(req.Skill),
		Search:     strings.TrimSpace(req.Search),
	}
	if req.Status != "" {
		status, err := valueobject.NewOrderStatus(req.Status)
		if err != nil {
			return nil, err
		}
		if status == valueobject.OrderStatusDraft {
			return nil, apperror.New(apperror.ErrCodeValidation, "черновики не попадают в публичный список")
		}
		filter.Status = status
	}
	filter.Limit, filter.Offset = normalizePage(req.Limit, req.Offset)

	load := func() (interface{}, error) {
		list, err := s.orders.List(ctx, filter)
		if err != nil {
			return nil, mapRepoError("order service: list", err, nil)
		}
		return list, nil
	}
	if s.cache == nil {
		list, err := load()
		if err != nil {
			return nil, err
		}
		return list.(*models.OrderList), nil
	}

	value, err := s.cache.GetOrSet(OrderListCacheKey(filter), load)
	if err != nil {
		return nil, err
	}
	return value.(*models.OrderList), nil
}

// ListByCategory открытые заказы категории.
func (s *OrderService) ListByCategory(ctx context.Context, categoryID uuid.UUID, limit, offset int) (*models.OrderList, error) {
	if _, err := s.catalog.GetCategoryByID(ctx, categoryID); err != nil {
		return nil, mapRepoError("order service: category", err, apperror.ErrCategoryNotFound)
	}
	return s.List(ctx, ListOrdersRequest{CategoryID: &categoryID, Limit: limit, Offset: offset})
}

// ListMine все заказы пользователя как заказчика, включая черновики.
func (s *OrderService) ListMine(ctx context.Context, actor Actor, limit, offset int) (*models.OrderList, error) {
	if err := actor.ensureActive(); err != nil {
		return nil, err
	}
	filter := models.OrderFilter{ClientID: &actor.ID}
	filter.Limit, filter.Offset = normalizePage(limit, offset)

	list, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, mapRepoError("order service: list mine", err, nil)
	}
	return list, nil
}

// Get карточка заказа со связями. viewer может быть nil для анонимного просмотра.
// Черновик видят только заказчик и администратор.
func (s *OrderService) Get(ctx context.Context, viewer *Actor, orderID uuid.UUID) (*models.OrderDetails, error) {
	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	isOwner := viewer != nil && order.IsOwnedBy(viewer.ID)
	isAdmin := viewer != nil && viewer.IsAdmin()
	if order.Status == valueobject.OrderStatusDraft && !isOwner && !isAdmin {
		return nil, apperror.ErrOrderNotFound
	}

	details := &models.OrderDetails{Order: *order, IsOwner: isOwner}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		client, err := s.users.GetByID(gctx, order.ClientID)
		if err != nil {
			return mapRepoError("order service: client", err, apperror.ErrUserNotFound)
		}
		details.Client = client.Public()
		return nil
	})
	g.Go(func() error {
		category, err := s.catalog.GetCategoryByID(gctx, order.CategoryID)
		if err != nil {
			if errorsIsNotFound(err) {
				return nil
			}
			return mapRepoError("order service: category", err, nil)
		}
		details.Category = category
		return nil
	})
	g.Go(func() error {
		skills, err := s.orders.Skills(gctx, order.ID)
		if err != nil {
			return mapRepoError("order service: skills", err, nil)
		}
		details.Skills = skills
		return nil
	})
	g.Go(func() error {
		files, err := s.orders.Files(gctx, order.ID)
		if err != nil {
			return mapRepoError("order service: files", err, nil)
		}
		participant := isAdmin || (viewer != nil && order.IsParticipant(viewer.ID))
		for _, f := range files {
			if f.Kind == models.FileKindDeliverable && !participant {
				continue
			}
			details.Files = append(details.Files, f)
		}
		return nil
	})
	g.Go(func() error {
		count, err := s.bids.CountByOrder(gctx, order.ID)
		if err != nil {
			return mapRepoError("order service: bids count", err, nil)
		}
		details.BidsCount = count
		return nil
	})
	g.Go(func() error {
		freelancerID, ok, err := s.assignee(gctx, order)
		if err != nil || !ok {
			return err
		}
		freelancer, err := s.users.GetByID(gctx, freelancerID)
		if err != nil {
			return mapRepoError("order service: freelancer", err, apperror.ErrUserNotFound)
		}
		public := freelancer.Public()
		details.Freelancer = &public
		return nil
	})
	if viewer != nil && !isOwner {
		g.Go(func() error {
			bid, err := s.bids.GetByOrderAndFreelancer(gctx, order.ID, viewer.ID)
			if err != nil {
				if errorsIsNotFound(err) {
					return nil
				}
				return mapRepoError("order service: my bid", err, nil)
			}
			details.MyBid = bid
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	details.CanApply = viewer != nil && viewer.IsFreelancer() && !viewer.Banned &&
		!isOwner && order.Status == valueobject.OrderStatusOpen && details.MyBid == nil
	return details, nil
}

// History журнал смены статусов, доступен участникам и администратору.
func (s *OrderService) History(ctx context.Context, actor Actor, orderID uuid.UUID) ([]models.OrderHistory, error) {
	if err := actor.ensureActive(); err != nil {
		return nil, err
	}
	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !order.IsParticipant(actor.ID) {
		return nil, errNotParticipant
	}
	history, err := s.history.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, mapRepoError("order service: history", err, nil)
	}
	return history, nil
}

func normalizeSkills(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, name := range raw {
		name = strings.ToLower(strings.TrimSpace(validation.SanitizeText(name)))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

func errorsIsNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
