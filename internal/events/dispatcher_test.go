package events

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/freelance-market/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-market/internal/models"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Deliver(_ context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func TestDispatcherDeliversToAllSinks(t *testing.T) {
	first := &recordingSink{}
	second := &recordingSink{}
	failing := SinkFunc("failing", func(context.Context, Event) error { return errors.New("down") })
	panicking := SinkFunc("panicking", func(context.Context, Event) error { panic("sink bug") })

	d := NewDispatcher(first, failing)
	d.AddSink(panicking)
	d.AddSink(second)

	order := models.Order{ID: uuid.New(), ClientID: uuid.New(), Status: valueobject.OrderStatusOpen}
	d.Publish(context.Background(), OrderUpdated(order), OrderUpdated(order))
	d.Wait()

	assert.Len(t, first.events, 2)
	assert.Len(t, second.events, 2)
}

func TestDispatcherSurvivesCanceledContext(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(SinkFunc("ctx", func(ctx context.Context, e Event) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return sink.Deliver(ctx, e)
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Publish(ctx, OrderUpdated(models.Order{ClientID: uuid.New()}))
	d.Wait()

	assert.Len(t, sink.events, 1)
}

func TestEventRecipients(t *testing.T) {
	client, freelancer := uuid.New(), uuid.New()

	order := models.Order{ID: uuid.New(), ClientID: client}
	assert.Equal(t, []uuid.UUID{client}, OrderUpdated(order).Recipients)

	order.FreelancerID = &freelancer
	assert.Equal(t, []uuid.UUID{client, freelancer}, OrderUpdated(order).Recipients)

	bid := models.Bid{ID: uuid.New(), FreelancerID: freelancer}
	e := BidStatusChanged(bid, client)
	assert.Equal(t, TypeBidStatusChanged, e.Type)
	assert.Equal(t, []uuid.UUID{freelancer, client}, e.Recipients)

	dispute := models.Dispute{ID: uuid.New(), InitiatorID: freelancer}
	assert.Equal(t, []uuid.UUID{client, freelancer}, DisputeStatusChanged(dispute, order).Recipients)

	outsider := uuid.New()
	dispute.InitiatorID = outsider
	assert.Equal(t, []uuid.UUID{client, freelancer, outsider}, DisputeStatusChanged(dispute, order).Recipients)
}
