package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/freelance-market/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-market/internal/events"
	"github.com/ignatzorin/freelance-market/internal/pkg/apperror"
)

func TestSubmitBid(t *testing.T) {
	env := newTestEnv(t, defaultPolicy())
	client := env.client(300)
	order := env.openOrder(t, client, 300)
	freelancer := env.freelancer()

	bid := env.submitBid(t, freelancer, order.ID, 250)
	assert.Equal(t, valueobject.BidStatusPending, bid.Status)

	submitted := env.pub.OfType(events.TypeBidStatusChanged)
	require.Len(t, submitted, 1)
	assert.ElementsMatch(t, []uuid.UUID{client.ID, freelancer.ID}, submitted[0].Recipients)

	_, err := env.bids.Submit(context.Background(), actorOf(freelancer), order.ID, SubmitBidRequest{Comment: "Повторный отклик на тот же заказ"})
	assert.ErrorIs(t, err, errBidExists)
}

func TestSubmitBidRules(t *testing.T) {
	env := newTestEnv(t, defaultPolicy())
	client := env.client(300)
	order := env.openOrder(t, client, 300)
	comment := "Сделаю аккуратно и в срок, есть похожие работы"

	t.Run("only freelancers", func(t *testing.T) {
		_, err := env.bids.Submit(context.Background(), actorOf(env.client(0)), order.ID, SubmitBidRequest{Comment: comment})
		assert.ErrorIs(t, err, errFreelancerOnly)
	})

	t.Run("not on own order", func(t *testing.T) {
		owner := actorOf(client)
		owner.Role = valueobject.RoleFreelancer
		_, err := env.bids.Submit(context.Background(), owner, order.ID, SubmitBidRequest{Comment: comment})
		assert.ErrorIs(t, err, errOwnOrderBid)
	})

	t.Run("short comment", func(t *testing.T) {
		_, err := env.bids.Submit(context.Background(), actorOf(env.freelancer()), order.ID, SubmitBidRequest{Comment: "ok"})
		assert.True(t, apperror.IsValidation(err))
	})

	t.Run("deadline in the past", func(t *testing.T) {
		_, err := env.bids.Submit(context.Background(), actorOf(env.freelancer()), order.ID, SubmitBidRequest{
			Comment:  comment,
			Deadline: time.Now().AddDate(0, 0, -1).Format(time.DateOnly),
		})
		assert.True(t, apperror.IsValidation(err))
	})

	t.Run("future deadline", func(t *testing.T) {
		bid, err := env.bids.Submit(context.Background(), actorOf(env.freelancer()), order.ID, SubmitBidRequest{
			Comment:  comment,
			Deadline: time.Now().AddDate(0, 0, 7).Format(time.DateOnly),
		})
		require.NoError(t, err)
		assert.NotNil(t, bid.Deadline)
	})

	t.Run("order not open", func(t *testing.T) {
		draft, err := env.orders.Create(context.Background(), actorOf(client), env.orderRequest(int64p(10), valueobject.OrderStatusDraft))
		require.NoError(t, err)
		_, err = env.bids.Submit(context.Background(), actorOf(env.freelancer()), draft.ID, SubmitBidRequest{Comment: comment})
		assert.ErrorIs(t, err, errOrderNotOpen)
	})

	t.Run("unknown order", func(t *testing.T) {
		_, err := env.bids.Submit(context.Background(), actorOf(env.freelancer()), uuid.New(), SubmitBidRequest{Comment: comment})
		assert.ErrorIs(t, err, apperror.ErrOrderNotFound)
	})
}

func TestAcceptBidRejectsOthers(t *testing.T) {
	env := newTestEnv(t, defaultPolicy())
	client := env.client(300)
	order := env.openOrder(t, client, 300)
	first, second, third := env.freelancer(), env.freelancer(), env.freelancer()
	bid1 := env.submitBid(t, first, order.ID, 300)
	bid2 := env.submitBid(t, second, order.ID, 280)
	bid3 := env.submitBid(t, third, order.ID, noAmount)
	env.pub.Reset()

	accepted, err := env.bids.Accept(context.Background(), actorOf(client), bid2.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.BidStatusAccepted, accepted.Status)

	assert.Equal(t, valueobject.BidStatusRejected, env.store.Bid(bid1.ID).Status)
	assert.Equal(t, valueobject.BidStatusAccepted, env.store.Bid(bid2.ID).Status)
	assert.Equal(t, valueobject.BidStatusRejected, env.store.Bid(bid3.ID).Status)

	stored := env.store.Order(order.ID)
	assert.Equal(t, valueobject.OrderStatusInProgress, stored.Status)
	require.NotNil(t, stored.FreelancerID)
	assert.Equal(t, second.ID, *stored.FreelancerID)
	assigned, ok := env.store.AssignedFreelancer(order.ID)
	require.True(t, ok)
	assert.Equal(t, second.ID, assigned)

	assert.Len(t, env.pub.OfType(events.TypeBidStatusChanged), 3)
	assert.Len(t, env.pub.OfType(events.TypeOrderUpdated), 1)

	_, err = env.bids.Accept(context.Background(), actorOf(client), bid1.ID)
	assert.True(t, apperror.IsConflict(err))
}

func TestAcceptBidIsAtomic(t *testing.T) {
	env := newTestEnv(t, defaultPolicy())
	client := env.client(300)
	order := env.openOrder(t, client, 300)
	bid := env.submitBid(t, env.freelancer(), order.ID, 300)
	other := env.submitBid(t, env.freelancer(), order.ID, 200)
	env.pub.Reset()
	env.store.FailOn("bids.RejectOthers", errors.New("connection reset"))

	_, err := env.bids.Accept(context.Background(), actorOf(client), bid.ID)
	require.Error(t, err)

	assert.Equal(t, valueobject.BidStatusPending, env.store.Bid(bid.ID).Status)
	assert.Equal(t, valueobject.BidStatusPending, env.store.Bid(other.ID).Status)
	stored := env.store.Order(order.ID)
	assert.Equal(t, valueobject.OrderStatusOpen, stored.Status)
	assert.Nil(t, stored.FreelancerID)
	_, assigned := env.store.AssignedFreelancer(order.ID)
	assert.False(t, assigned)
	assert.Empty(t, env.pub.Events())
}

func TestAcceptBidConcurrently(t *testing.T) {
	env := newTestEnv(t, defaultPolicy())
	client := env.client(300)
	order := env.openOrder(t, client, 300)

	bids := make([]uuid.UUID, 5)
	for i := range bids {
		bids[i] = env.submitBid(t, env.freelancer(), order.ID, 300).ID
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for _, id := range bids {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			_, err := env.bids.Accept(context.Background(), actorOf(client), id)
			if err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
				return
			}
			assert.True(t, apperror.IsConflict(err), err.Error())
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
	accepted := 0
	for _, id := range bids {
		if env.store.Bid(id).Status == valueobject.BidStatusAccepted {
			accepted++
		}
	}
	assert.Equal(t, 1, accepted)
	assert.True(t, env.store.Balance(client.ID).IsZero())
}

func TestAcceptRacesCancel(t *testing.T) {
	for i := 0; i < 20; i++ {
		env := newTestEnv(t, defaultPolicy())
		client := env.client(300)
		order := env.openOrder(t, client, 300)
		freelancer := env.freelancer()
		bid := env.submitBid(t, freelancer, order.ID, 300)

		var (
			wg                   sync.WaitGroup
			acceptErr, cancelErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, acceptErr = env.bids.Accept(context.Background(), actorOf(client), bid.ID)
		}()
		go func() {
			defer wg.Done()
			_, cancelErr = env.orders.Cancel(context.Background(), actorOf(client), order.ID)
		}()
		wg.Wait()

		// Отмена разрешена и из open, и из in_progress, поэтому она проходит всегда.
		require.NoError(t, cancelErr)
		stored := env.store.Order(order.ID)
		assert.Equal(t, valueobject.OrderStatusCanceled, stored.Status)
		assert.Nil(t, stored.FreelancerID)
		_, assigned := env.store.AssignedFreelancer(order.ID)
		assert.False(t, assigned)
		assert.True(t, stored.FundedAmount.IsZero())
		assert.True(t, env.store.Balance(client.ID).Equal(money(300)))
		assert.True(t, env.store.Balance(freelancer.ID).IsZero())

		if acceptErr == nil {
			// Принятие успело раньше: отклик принят, затем заказ отменён с возвратом.
			assert.Equal(t, valueobject.BidStatusAccepted, env.store.Bid(bid.ID).Status)
		} else {
			assert.ErrorIs(t, acceptErr, errOrderTaken)
			assert.Equal(t, valueobject.BidStatusPending, env.store.Bid(bid.ID).Status)
		}
	}
}

func TestAcceptNegotiableOrderFundsBidAmount(t *testing.T) {
	env := newTestEnv(t, defaultPolicy())
	client := env.client(500)
	order, err := env.orders.Create(context.Background(), actorOf(client), env.orderRequest(nil, valueobject.OrderStatusOpen))
	require.NoError(t, err)

	withoutAmount := env.submitBid(t, env.freelancer(), order.ID, noAmount)
	_, err = env.bids.Accept(context.Background(), actorOf(client), withoutAmount.ID)
	assert.ErrorIs(t, err, errNegotiableNoBid)

	priced := env.submitBid(t, env.freelancer(), order.ID, 350)
	_, err = env.bids.Accept(context.Background(), actorOf(client), priced.ID)
	require.NoError(t, err)

	stored := env.store.Order(order.ID)
	assert.True(t, stored.Budget.Decimal.Equal(money(350)))
	assert.True(t, stored.FundedAmount.Equal(money(350)))
	assert.True(t, env.store.Balance(client.ID).Equal(money(150)))
}

func TestZeroAmountBid(t *testing.T) {
	env := newTestEnv(t, defaultPolicy())
	client := env.client(200)
	order, err := env.orders.Create(context.Background(), actorOf(client), env.orderRequest(nil, valueobject.OrderStatusOpen))
	require.NoError(t, err)

	_, err = env.bids.Submit(context.Background(), actorOf(env.freelancer()), order.ID, SubmitBidRequest{
		Comment: "Сделаю аккуратно и в срок, есть похожие работы",
		Amount:  decimal.NewNullDecimal(money(-1)),
	})
	assert.True(t, apperror.IsValidation(err))

	free := env.submitBid(t, env.freelancer(), order.ID, 0)
	require.True(t, free.Amount.Valid)
	assert.True(t, free.Amount.Decimal.IsZero())

	entries := len(env.store.LedgerEntries(client.ID))
	_, err = env.bids.Accept(context.Background(), actorOf(client), free.ID)
	require.NoError(t, err)

	stored := env.store.Order(order.ID)
	assert.Equal(t, valueobject.OrderStatusInProgress, stored.Status)
	assert.True(t, stored.Budget.Valid)
	assert.True(t, stored.Budget.Decimal.IsZero())
	assert.True(t, env.store.Balance(client.ID).Equal(money(200)))
	assert.Len(t, env.store.LedgerEntries(client.ID), entries)
}

func TestAcceptNegotiableOrderInsufficientFunds(t *testing.T) {
	env := newTestEnv(t, defaultPolicy())
	client := env.client(100)
	order, err := env.orders.Create(context.Background(), actorOf(client), env.orderRequest(nil, valueobject.OrderStatusOpen))
	require.NoError(t, err)
	bid := env.submitBid(t, env.freelancer(), order.ID, 350)

	_, err = env.bids.Accept(context.Background(), actorOf(client), bid.ID)
	require.True(t, apperror.IsInsufficientFunds(err))

	stored := env.store.Order(order.ID)
	assert.False(t, stored.Budget.Valid)
	assert.Equal(t, valueobject.OrderStatusOpen, stored.Status)
	assert.Equal(t, valueobject.BidStatusPending, env.store.Bid(bid.ID).Status)
}

func TestAcceptBidOnlyOwner(t *testing.T) {
	env := newTestEnv(t, defaultPolicy())
	client := env.client(100)
	order := env.openOrder(t, client, 100)
	freelancer := env.freelancer()
	bid := env.submitBid(t, freelancer, order.ID, 100)

	_, err := env.bids.Accept(context.Background(), actorOf(freelancer), bid.ID)
	assert.ErrorIs(t, err, errNotOrderOwner)

	_, err = env.bids.Accept(context.Background(), actorOf(client), uuid.New())
	assert.ErrorIs(t, err, apperror.ErrBidNotFound)
}

func TestRejectBid(t *testing.T) {
	env := newTestEnv(t, defaultPolicy())
	client := env.client(100)
	order := env.openOrder(t, client, 100)
	bid := env.submitBid(t, env.freelancer(), order.ID, 100)

	rejected, err := env.bids.Reject(context.Background(), actorOf(client), bid.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.BidStatusRejected, rejected.Status)

	_, err = env.bids.Reject(context.Background(), actorOf(client), bid.ID)
	assert.True(t, apperror.IsInvalidState(err))

	_, err = env.bids.Accept(context.Background(), actorOf(client), bid.ID)
	assert.ErrorIs(t, err, errBidDecided)
	assert.Equal(t, valueobject.OrderStatusOpen, env.store.Order(order.ID).Status)
}

func TestListBids(t *testing.T) {
	env := newTestEnv(t, defaultPolicy())
	client := env.client(100)
	order := env.openOrder(t, client, 100)
	freelancer := env.freelancer()
	env.submitBid(t, freelancer, order.ID, 90)
	env.submitBid(t, env.freelancer(), order.ID, 80)

	list, err := env.bids.ListForOrder(context.Background(), actorOf(client), order.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = env.bids.ListForOrder(context.Background(), actorOf(freelancer), order.ID)
	assert.True(t, apperror.IsForbidden(err))

	adminList, err := env.bids.ListForOrder(context.Background(), actorOf(env.admin()), order.ID)
	require.NoError(t, err)
	assert.Len(t, adminList, 2)

	mine, err := env.bids.ListMine(context.Background(), actorOf(freelancer))
	require.NoError(t, err)
	require.Len(t, mine, 1)

	my, err := env.bids.MyBid(context.Background(), actorOf(freelancer), order.ID)
	require.NoError(t, err)
	assert.Equal(t, mine[0].ID, my.ID)

	_, err = env.bids.MyBid(context.Background(), actorOf(env.freelancer()), order.ID)
	assert.ErrorIs(t, err, apperror.ErrBidNotFound)
}
