package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-market/internal/domain/valueobject"
)

// Dispute спор по заказу. OrderStatusBefore статус заказа до открытия спора.
type Dispute struct {
	ID                uuid.UUID                 `db:"id" json:"id"`
	OrderID           uuid.UUID                 `db:"order_id" json:"order_id"`
	InitiatorID       uuid.UUID                 `db:"initiator_id" json:"initiator_id"`
	Reason            string                    `db:"reason" json:"reason"`
	Status            valueobject.DisputeStatus `db:"status" json:"status"`
	OrderStatusBefore valueobject.OrderStatus   `db:"order_status_before" json:"order_status_before"`
	AdminID           *uuid.UUID                `db:"admin_id" json:"admin_id,omitempty"`
	AdminComment      *string                   `db:"admin_comment" json:"admin_comment,omitempty"`
	ResolvedAt        *time.Time                `db:"resolved_at" json:"resolved_at,omitempty"`
	CreatedAt         time.Time                 `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time                 `db:"updated_at" json:"updated_at"`
}

// Review отзыв одного участника заказа о другом.
type Review struct {
	ID        uuid.UUID `db:"id" json:"id"`
	OrderID   uuid.UUID `db:"order_id" json:"order_id"`
	AuthorID  uuid.UUID `db:"author_id" json:"author_id"`
	TargetID  uuid.UUID `db:"target_id" json:"target_id"`
	Rating    int       `db:"rating" json:"rating"`
	Comment   *string   `db:"comment" json:"comment,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
