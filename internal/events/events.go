package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-market/internal/models"
)

type Type string

const (
	TypeOrderUpdated         Type = "order.updated"
	TypeBidStatusChanged     Type = "bid.status_changed"
	TypeDisputeStatusChanged Type = "dispute.status_changed"
)

// Event доменное событие для рассылки заинтересованным пользователям.
type Event struct {
	Type       Type        `json:"type"`
	Recipients []uuid.UUID `json:"recipients"`
	Data       any         `json:"data"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// OrderUpdated получают клиент и назначенный исполнитель.
func OrderUpdated(order models.Order) Event {
	return newEvent(TypeOrderUpdated, order, order.ClientID, order.FreelancerID)
}

// BidStatusChanged получают автор отклика и клиент заказа.
func BidStatusChanged(bid models.Bid, clientID uuid.UUID) Event {
	return newEvent(TypeBidStatusChanged, bid, bid.FreelancerID, &clientID)
}

// DisputeStatusChanged получают клиент, исполнитель и инициатор спора.
func DisputeStatusChanged(dispute models.Dispute, order models.Order) Event {
	e := newEvent(TypeDisputeStatusChanged, dispute, order.ClientID, order.FreelancerID)
	e.Recipients = appendUnique(e.Recipients, dispute.InitiatorID)
	return e
}

func newEvent(t Type, data any, first uuid.UUID, second *uuid.UUID) Event {
	recipients := []uuid.UUID{first}
	if second != nil {
		recipients = appendUnique(recipients, *second)
	}
	return Event{Type: t, Recipients: recipients, Data: data, OccurredAt: time.Now().UTC()}
}

func appendUnique(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	if id == uuid.Nil {
		return ids
	}
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

// WithRecipient добавляет получателя, например снятого с заказа исполнителя.
func (e Event) WithRecipient(id uuid.UUID) Event {
	e.Recipients = appendUnique(append([]uuid.UUID(nil), e.Recipients...), id)
	return e
}
