package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-market/internal/domain/valueobject"
)

// OrderHistory запись о смене статуса заказа.
type OrderHistory struct {
	ID        uuid.UUID               `db:"id" json:"id"`
	OrderID   uuid.UUID               `db:"order_id" json:"order_id"`
	UserID    *uuid.UUID              `db:"user_id" json:"user_id,omitempty"`
	Action    string                  `db:"action" json:"action"`
	OldStatus valueobject.OrderStatus `db:"old_status" json:"old_status,omitempty"`
	NewStatus valueobject.OrderStatus `db:"new_status" json:"new_status"`
	CreatedAt time.Time               `db:"created_at" json:"created_at"`
}
