package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/freelance-market/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-market/internal/pkg/apperror"
)

// Bid отклик фрилансера на заказ. После создания автор его не меняет.
type Bid struct {
	ID           uuid.UUID             `db:"id" json:"id"`
	OrderID      uuid.UUID             `db:"order_id" json:"order_id"`
	FreelancerID uuid.UUID             `db:"freelancer_id" json:"freelancer_id"`
	Amount       decimal.NullDecimal   `db:"amount" json:"amount"`
	Comment      string                `db:"comment" json:"comment"`
	Deadline     *time.Time            `db:"deadline" json:"deadline,omitempty"`
	Status       valueobject.BidStatus `db:"status" json:"status"`
	CreatedAt    time.Time             `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time             `db:"updated_at" json:"updated_at"`
}

func (b *Bid) Accept() error {
	if b.Status == valueobject.BidStatusAccepted {
		return apperror.New(apperror.ErrCodeConflict, "отклик уже принят")
	}
	if !b.Status.CanTransitionTo(valueobject.BidStatusAccepted) {
		return apperror.New(apperror.ErrCodeConflict, "отклик уже отклонён")
	}
	b.Status = valueobject.BidStatusAccepted
	return nil
}

func (b *Bid) Reject() error {
	if !b.Status.CanTransitionTo(valueobject.BidStatusRejected) {
		return apperror.Newf(apperror.ErrCodeInvalidState, "невозможно отклонить отклик в статусе %s", b.Status)
	}
	b.Status = valueobject.BidStatusRejected
	return nil
}

// BidWithFreelancer отклик вместе с публичными данными автора.
type BidWithFreelancer struct {
	Bid
	Freelancer PublicUser `json:"freelancer"`
}
