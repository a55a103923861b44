package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/freelance-market/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-market/internal/pkg/apperror"
)

// Order заказ клиента. FundedAmount сумма, фактически списанная с клиента.
type Order struct {
	ID           uuid.UUID               `db:"id" json:"id"`
	ClientID     uuid.UUID               `db:"client_id" json:"client_id"`
	FreelancerID *uuid.UUID              `db:"freelancer_id" json:"freelancer_id,omitempty"`
	CategoryID   uuid.UUID               `db:"category_id" json:"category_id"`
	Title        string                  `db:"title" json:"title"`
	Description  string                  `db:"description" json:"description"`
	Budget       decimal.NullDecimal     `db:"budget" json:"budget"`
	FundedAmount decimal.Decimal         `db:"funded_amount" json:"funded_amount"`
	Status       valueobject.OrderStatus `db:"status" json:"status"`
	Deadline     *time.Time              `db:"deadline" json:"deadline,omitempty"`
	CreatedAt    time.Time               `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time               `db:"updated_at" json:"updated_at"`
}

func (o *Order) IsOwnedBy(userID uuid.UUID) bool {
	return o.ClientID == userID
}

// IsAssignedTo сообщает, что пользователь исполнитель заказа.
func (o *Order) IsAssignedTo(userID uuid.UUID) bool {
	return o.FreelancerID != nil && *o.FreelancerID == userID
}

// IsParticipant клиент или назначенный исполнитель.
func (o *Order) IsParticipant(userID uuid.UUID) bool {
	return o.IsOwnedBy(userID) || o.IsAssignedTo(userID)
}

// IsFunded бюджет заказа зарезервирован на стороне клиента.
func (o *Order) IsFunded() bool {
	return o.Budget.Valid && o.FundedAmount.Equal(o.Budget.Decimal)
}

// TransitionTo меняет статус по таблице переходов.
func (o *Order) TransitionTo(next valueobject.OrderStatus) error {
	status, err := o.Status.Transition(next)
	if err != nil {
		return err
	}
	if next == valueobject.OrderStatusInProgress && !o.IsFunded() {
		return apperror.New(apperror.ErrCodeInvalidState, "заказ без оплаченного бюджета не может перейти в работу")
	}
	o.Status = status
	return nil
}

// OrderFilter фильтр публичного списка заказов.
type OrderFilter struct {
	Status     valueobject.OrderStatus
	CategoryID *uuid.UUID
	ClientID   *uuid.UUID
	Skill      string
	Search     string
	Limit      int
	Offset     int
}

// OrderListItem строка списка с подгруженными связями.
type OrderListItem struct {
	Order
	Client    PublicUser `json:"client"`
	Skills    []string   `json:"skills"`
	BidsCount int        `db:"bids_count" json:"bids_count"`
}

// OrderList страница списка заказов.
type OrderList struct {
	Orders  []OrderListItem `json:"orders"`
	Total   int             `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
	HasMore bool            `json:"has_more"`
}

// OrderDetails карточка заказа для конкретного зрителя.
type OrderDetails struct {
	Order      Order       `json:"order"`
	Client     PublicUser  `json:"client"`
	Category   *Category   `json:"category,omitempty"`
	Skills     []string    `json:"skills"`
	Files      []OrderFile `json:"files"`
	Freelancer *PublicUser `json:"freelancer"`
	BidsCount  int         `json:"bids_count"`
	IsOwner    bool        `json:"is_owner"`
	CanApply   bool        `json:"can_apply"`
	MyBid      *Bid        `json:"my_bid,omitempty"`
}

const (
	FileKindAttachment  = "attachment"
	FileKindDeliverable = "deliverable"
)

// OrderFile ссылка на файл в хранилище: вложение клиента или результат работы.
type OrderFile struct {
	ID         uuid.UUID `db:"id" json:"id"`
	OrderID    uuid.UUID `db:"order_id" json:"order_id"`
	UploaderID uuid.UUID `db:"uploader_id" json:"uploader_id"`
	Kind       string    `db:"kind" json:"kind"`
	Name       string    `db:"name" json:"name"`
	Path       string    `db:"path" json:"-"`
	URL        string    `db:"url" json:"url"`
	Size       int64     `db:"size" json:"size"`
	MimeType   string    `db:"mime_type" json:"mime_type"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Assignment связь заказа с исполнителем, одна на заказ.
type Assignment struct {
	OrderID      uuid.UUID `db:"order_id" json:"order_id"`
	FreelancerID uuid.UUID `db:"freelancer_id" json:"freelancer_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
