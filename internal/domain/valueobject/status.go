package valueobject

import "github.com/ignatzorin/freelance-market/internal/pkg/apperror"

type OrderStatus string

const (
	OrderStatusDraft          OrderStatus = "draft"
	OrderStatusOpen           OrderStatus = "open"
	OrderStatusInProgress     OrderStatus = "in_progress"
	OrderStatusAwaitingReview OrderStatus = "awaiting_review"
	OrderStatusCompleted      OrderStatus = "completed"
	OrderStatusCanceled       OrderStatus = "canceled"
	OrderStatusDispute        OrderStatus = "dispute"
)

// orderTransitions таблица допустимых переходов заказа.
// Из dispute можно вернуться в статус до спора (спор отменён) или завершить заказ (спор решён).
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusDraft:          {OrderStatusOpen},
	OrderStatusOpen:           {OrderStatusInProgress, OrderStatusCanceled, OrderStatusDispute},
	OrderStatusInProgress:     {OrderStatusAwaitingReview, OrderStatusCanceled, OrderStatusDispute},
	OrderStatusAwaitingReview: {OrderStatusCompleted, OrderStatusDispute},
	OrderStatusDispute:        {OrderStatusCompleted, OrderStatusOpen, OrderStatusInProgress, OrderStatusAwaitingReview},
	OrderStatusCompleted:      {},
	OrderStatusCanceled:       {},
}

func (s OrderStatus) IsValid() bool {
	_, ok := orderTransitions[s]
	return ok
}

func (s OrderStatus) CanTransitionTo(newStatus OrderStatus) bool {
	for _, status := range orderTransitions[s] {
		if status == newStatus {
			return true
		}
	}
	return false
}

// IsTerminal сообщает, что из статуса нет переходов.
func (s OrderStatus) IsTerminal() bool {
	return s.IsValid() && len(orderTransitions[s]) == 0
}

// HasAssignment сообщает, должен ли у заказа в этом статусе быть исполнитель.
func (s OrderStatus) HasAssignment() bool {
	switch s {
	case OrderStatusInProgress, OrderStatusAwaitingReview, OrderStatusCompleted:
		return true
	}
	return false
}

// Transition проверяет переход и возвращает InvalidState, если его нет в таблице.
func (s OrderStatus) Transition(newStatus OrderStatus) (OrderStatus, error) {
	if !s.CanTransitionTo(newStatus) {
		return s, apperror.Newf(apperror.ErrCodeInvalidState, "переход заказа из статуса %s в %s невозможен", s, newStatus)
	}
	return newStatus, nil
}

func NewOrderStatus(status string) (OrderStatus, error) {
	s := OrderStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус заказа")
	}
	return s, nil
}

type BidStatus string

const (
	BidStatusPending  BidStatus = "pending"
	BidStatusAccepted BidStatus = "accepted"
	BidStatusRejected BidStatus = "rejected"
)

func (s BidStatus) IsValid() bool {
	switch s {
	case BidStatusPending, BidStatusAccepted, BidStatusRejected:
		return true
	}
	return false
}

// CanTransitionTo отклик меняет статус только из pending.
func (s BidStatus) CanTransitionTo(newStatus BidStatus) bool {
	return s == BidStatusPending && (newStatus == BidStatusAccepted || newStatus == BidStatusRejected)
}

func NewBidStatus(status string) (BidStatus, error) {
	s := BidStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус отклика")
	}
	return s, nil
}

type DisputeStatus string

const (
	DisputeStatusOpen       DisputeStatus = "open"
	DisputeStatusInProgress DisputeStatus = "in_progress"
	DisputeStatusResolved   DisputeStatus = "resolved"
	DisputeStatusCancelled  DisputeStatus = "cancelled"
)

var disputeTransitions = map[DisputeStatus][]DisputeStatus{
	DisputeStatusOpen:       {DisputeStatusInProgress, DisputeStatusResolved, DisputeStatusCancelled},
	DisputeStatusInProgress: {DisputeStatusResolved, DisputeStatusCancelled},
	DisputeStatusResolved:   {},
	DisputeStatusCancelled:  {},
}

func (s DisputeStatus) IsValid() bool {
	_, ok := disputeTransitions[s]
	return ok
}

// IsActive открытый спор замораживает заказ.
func (s DisputeStatus) IsActive() bool {
	return s == DisputeStatusOpen || s == DisputeStatusInProgress
}

func (s DisputeStatus) CanTransitionTo(newStatus DisputeStatus) bool {
	for _, status := range disputeTransitions[s] {
		if status == newStatus {
			return true
		}
	}
	return false
}

func NewDisputeStatus(status string) (DisputeStatus, error) {
	s := DisputeStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус спора")
	}
	return s, nil
}

type Role string

const (
	RoleUser       Role = "user"
	RoleFreelancer Role = "freelancer"
	RoleAdmin      Role = "admin"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleFreelancer, RoleAdmin:
		return true
	}
	return false
}

func NewRole(role string) (Role, error) {
	r := Role(role)
	if !r.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректная роль")
	}
	return r, nil
}
