package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/freelance-market/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-market/internal/events"
	"github.com/ignatzorin/freelance-market/internal/models"
	"github.com/ignatzorin/freelance-market/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-market/internal/testutil"
)

func int64p(v int64) *int64 { return &v }

func TestCreateOpenOrderDebitsBudget(t *testing.T) {
	env := newTestEnv(t, defaultPolicy())
	client := env.client(500)

	order, err := env.orders.Create(context.Background(), actorOf(client), env.orderRequest(int64p(500), valueobject.OrderStatusOpen))
	require.NoError(t, err)

	assert.Equal(t, valueobject.OrderStatusOpen, order.Status)
	assert.True(t, env.store.Balance(client.ID).IsZero())
	assert.True(t, order.FundedAmount.Equal(money(500)))
	assert.True(t, env.store.Order(order.ID).FundedAmount.Equal(money(500)))

	entries := env.store.LedgerEntries(client.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, models.LedgerKindOrderFunding, entries[0].Kind)
	assert.True(t, entries[0].Amount.Equal(money(-500)))
	assert.Equal(t, &order.ID, entries[0].OrderID)

	assert.Len(t, env.pub.OfType(events.TypeOrderUpdated), 1)
}

func TestCreateOpenOrderInsufficientFunds(t *testing.T) {
	env := newTestEnv(t, defaultPolicy())
	client := env.client(100)

	_, err := env.orders.Create(context.Background(), actorOf(client), env.orderRequest(int64p(500), valueobject.OrderStatusOpen))
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientFunds(err))

	assert.True(t, env.store.Balance(client.ID).Equal(money(100)))
	list, err := env.orders.ListMine(context.Background(), actorOf(client), 20, 0)
	require.NoError(t, err)
	assert.Empty(t, list.Orders)
	assert.Empty(t, env.pub.Events())
}

func TestCreateDraftDoesNotDebit(t *testing.T) {
	env := newTestEnv(t, defaultPolicy())
	client := env.client(100)

	order, err := env.orders.Create(context.Background(), actorOf(client), env.orderRequest(int64p(500), valueobject.OrderStatusDraft))
	require.NoError(t, err)

	assert.Equal(t, valueobject.OrderStatusDraft, order.Status)
	assert.True(t, env.store.Balance(client.ID).Equal(money(100)))
	assert.True(t, order.FundedAmount.IsZero())
}

func TestCreateNegotiableOrderDoesNotDebit(t *testing.T) {
	env := newTestEnv(t, defaultPolicy())
	client := env.client(100)

	order, err := env.orders.Create(context.Background(), actorOf(client), env.orderRequest(nil, valueobject.OrderStatusOpen))
	require.NoError(t, err)

	assert.Equal(t, valueobject.OrderStatusOpen, order.Status)
	assert.False(t, order.Budget.Valid)
	assert.True(t, env.store.Balance(client.ID).Equal(money(100)))
}

func TestCreateOrderValidation(t *testing.T) {
	env := newTestEnv(t, defaultPolicy())
	client := env.client(100)

	cases := map[string]func(r *CreateOrderRequest){
		"empty title":      func(r *CreateOrderRequest) { r.Title = "  " },
		"negative budget":  func(r *CreateOrderRequest) { r.Budget = decimal.NewNullDecimal(money(-1)) },
		"fractional cents": func(r *CreateOrderRequest) { r.Budget = decimal.NewNullDecimal(decimal.RequireFromString("10.555")) },
		"unknown status":   func(r *CreateOrderRequest) { r.Status = "in_progress" },
		"no category":      func(r *CreateOrderRequest) { r.CategoryID = uuid.Nil },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := env.orderRequest(int64p(10), valueobject.OrderStatusDraft)
			mutate(&req)
			_, err := env.orders.Create(context.Background(), actorOf(client), req)
			require.Error(t, err)
			assert.True(t, apperror.IsValidation(err), err.Error())
		})
	}
}

func TestCreateOrderUnknownCategory(t *testing.T) {
	env := newTestEnv(t, defaultPolicy())
	client := env.client(100)

	req := env.orderRequest(int64p(10), valueobject.OrderStatusOpen)
	req.CategoryID = uuid.New()
	_, err := env.orders.Create(context.Background(), actorOf(client), req)

	assert.ErrorIs(t, err, apperror.ErrCategoryNotFound)
	assert.True(t, env.store.Balance(client.ID).Equal(money(100)))
}

func TestCreateOrderBannedActor(t *testing.T) {
	env := newTestEnv(t, defaultPolicy())
	client := env.client(100)
	actor := actorOf(client)
	actor.Banned = true

	_, err := env.orders.Create(context.Background(), actor, env.orderRequest(int64p(10), valueobject.OrderStatusOpen))
	assert.ErrorIs(t, err, apperror.ErrUserBanned)
}

func TestCreateOrderRemovesFilesOnRollback(t *testing.T) {
	env := newTestEnv(t, defaultPolicy())
	client := env.client(10)

	req := env.orderRequest(int64p(500), valueobject.OrderStatusOpen)
	req.Files = []FileUpload{upload("brief.pdf", testutil.PDF())}
	_, err := env.orders.Create(context.Background(), actorOf(client), req)

	require.True(t, apperror.IsInsufficientFunds(err))
	assert.Zero(t, env.files.Count())
}

func TestCreateOrderRejectsUnsupportedFile(t *testing.T) {
	env := newTestEnv(t, defaultPolicy())
	client := env.client(100)

	req := env.orderRequest(int64p(50), valueobject.OrderStatusOpen)
	req.Files = []FileUpload{
		upload("brief.pdf", testutil.PDF()),
		upload("script.sh", bytes.NewReader([]byte("#!/bin/sh\necho hi\n"))),
	}
	_, err := env.orders.Create(context.Background(), actorOf(client), req)

	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	assert.Zero(t, env.files.Count())
	assert.True(t, env.store.Balance(client.ID).Equal(money(100)))
}

func TestPublishDraft(t *testing.T) {
	env := newTestEnv(t, defaultPolicy())
	client := env.client(300)
	draft, err := env.orders.Create(context.Background(), actorOf(client), env.orderRequest(int64p(200), valueobject.OrderStatusDraft))
	require.NoError(t, err)

	_, err = env.orders.Publish(context.Background(), actorOf(env.client(1000)), draft.ID)
	assert.ErrorIs(t, err, errNotOrderOwner)

	published, err := env.orders.Publish(context.Background(), actorOf(client), draft.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.OrderStatusOpen, published.Status)
	assert.True(t, env.store.Balance(client.ID).Equal(money(100)))

	_, err = env.orders.Publish(context.Background(), actorOf(client), draft.ID)
	assert.True(t, apperror.IsInvalidState(err))
	assert.True(t, env.store.Balance(client.ID).Equal(money(100)))
}

func TestCancelOrder(t *testing.T) {
	t.Run("refunds when enabled", func(t *testing.T) {
		env := newTestEnv(t, defaultPolicy())
		client := env.client(500)
		order := env.openOrder(t, client, 500)

		canceled, err := env.orders.Cancel(context.Background(), actorOf(client), order.ID)
		require.NoError(t, err)

		assert.Equal(t, valueobject.OrderStatusCanceled, canceled.Status)
		assert.True(t, env.store.Balance(client.ID).Equal(money(500)))
		entries := env.store.LedgerEntries(client.ID)
		require.Len(t, entries, 2)
		assert.Equal(t, models.LedgerKindRefund, entries[1].Kind)
	})

	t.Run("keeps funds when refund disabled", func(t *testing.T) {
		policy := defaultPolicy()
		policy.RefundOnCancel = false
		env := newTestEnv(t, policy)
		client := env.client(500)
		order := env.openOrder(t, client, 500)

		_, err := env.orders.Cancel(context.Background(), actorOf(client), order.ID)
		require.NoError(t, err)
		assert.True(t, env.store.Balance(client.ID).IsZero())
	})

	t.Run("in progress clears assignment", func(t *testing.T) {
		env := newTestEnv(t, defaultPolicy())
		order, client, freelancer := env.inProgress(t, 300)
		env.pub.Reset()

		canceled, err := env.orders.Cancel(context.Background(), actorOf(client), order.ID)
		require.NoError(t, err)

		assert.Nil(t, canceled.FreelancerID)
		_, assigned := env.store.AssignedFreelancer(order.ID)
		assert.False(t, assigned)

		updates := env.pub.OfType(events.TypeOrderUpdated)
		require.Len(t, updates, 1)
		assert.Contains(t, updates[0].Recipients, freelancer.ID)
	})

	t.Run("only owner", func(t *testing.T) {
		env := newTestEnv(t, defaultPolicy())
		client := env.client(100)
		order := env.openOrder(t, client, 100)

		_, err := env.orders.Cancel(context.Background(), actorOf(env.freelancer()), order.ID)
		assert.True(t, apperror.IsForbidden(err))
	})

	t.Run("not from draft or completed", func(t *testing.T) {
		env := newTestEnv(t, defaultPolicy())
		client := env.client(100)
		draft, err := env.orders.Create(context.Background(), actorOf(client), env.orderRequest(int64p(10), valueobject.OrderStatusDraft))
		require.NoError(t, err)

		_, err = env.orders.Cancel(context.Background(), actorOf(client), draft.ID)
		assert.True(t, apperror.IsInvalidState(err))
	})

	t.Run("missing order", func(t *testing.T) {
		env := newTestEnv(t, defaultPolicy())
		_, err := env.orders.Cancel(context.Background(), actorOf(env.client(0)), uuid.New())
		assert.ErrorIs(t, err, apperror.ErrOrderNotFound)
	})
}

func TestSubmitForReview(t *testing.T) {
	t.Run("assigned freelancer attaches deliverables", func(t *testing.T) {
		env := newTestEnv(t, defaultPolicy())
		order, client, freelancer := env.inProgress(t, 200)

		updated, err := env.orders.SubmitForReview(context.Background(), actorOf(freelancer), order.ID,
			[]FileUpload{upload("result.pdf", testutil.PDF())})
		require.NoError(t, err)
		assert.Equal(t, valueobject.OrderStatusAwaitingReview, updated.Status)

		details, err := env.orders.Get(context.Background(), ptr(actorOf(client)), order.ID)
		require.NoError(t, err)
		require.Len(t, details.Files, 1)
		assert.Equal(t, models.FileKindDeliverable, details.Files[0].Kind)

		outsider := actorOf(env.freelancer())
		public, err := env.orders.Get(context.Background(), &outsider, order.ID)
		require.NoError(t, err)
		assert.Empty(t, public.Files)
	})

	t.Run("strict check rejects other users", func(t *testing.T) {
		env := newTestEnv(t, defaultPolicy())
		order, client, _ := env.inProgress(t, 200)

		_, err := env.orders.SubmitForReview(context.Background(), actorOf(client), order.ID, nil)
		assert.ErrorIs(t, err, errNotAssignee)
	})

	t.Run("lenient check allows any participant", func(t *testing.T) {
		policy := defaultPolicy()
		policy.StrictDeliveryCheck = false
		env := newTestEnv(t, policy)
		order, client, _ := env.inProgress(t, 200)

		updated, err := env.orders.SubmitForReview(context.Background(), actorOf(client), order.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, valueobject.OrderStatusAwaitingReview, updated.Status)
	})

	t.Run("requires in progress", func(t *testing.T) {
		policy := defaultPolicy()
		policy.StrictDeliveryCheck = false
		env := newTestEnv(t, policy)
		client := env.client(100)
		order := env.openOrder(t, client, 100)

		_, err := env.orders.SubmitForReview(context.Background(), actorOf(client), order.ID, nil)
		assert.True(t, apperror.IsInvalidState(err))
	})

	t.Run("storage failure rolls back", func(t *testing.T) {
		env := newTestEnv(t, defaultPolicy())
		order, _, freelancer := env.inProgress(t, 200)
		env.store.FailOn("orders.AddFiles", errors.New("disk full"))

		_, err := env.orders.SubmitForReview(context.Background(), actorOf(freelancer), order.ID,
			[]FileUpload{upload("result.pdf", testutil.PDF())})
		require.Error(t, err)

		assert.Equal(t, valueobject.OrderStatusInProgress, env.store.Order(order.ID).Status)
		assert.Zero(t, env.files.Count())
	})
}

func TestCloseOrder(t *testing.T) {
	t.Run("completes, reviews and pays out", func(t *testing.T) {
		env := newTestEnv(t, defaultPolicy())
		order, client, freelancer := env.awaitingReview(t, 400)

		closed, err := env.orders.Close(context.Background(), actorOf(client), order.ID, CloseOrderRequest{Rating: 5})
		require.NoError(t, err)

		assert.Equal(t, valueobject.OrderStatusCompleted, closed.Status)
		assert.True(t, env.store.Balance(freelancer.ID).Equal(money(400)))

		reviews, err := env.reviews.ForUser(context.Background(), freelancer.ID)
		require.NoError(t, err)
		require.Len(t, reviews, 1)
		assert.Equal(t, client.ID, reviews[0].AuthorID)

		rating := env.store.User(freelancer.ID).Rating
		require.True(t, rating.Valid)
		assert.Equal(t, "5", rating.Decimal.String())
	})

	t.Run("additional amount raises budget", func(t *testing.T) {
		env := newTestEnv(t, defaultPolicy())
		order, client, freelancer := env.awaitingReview(t, 400)
		_, err := env.ledger.Deposit(context.Background(), actorOf(client), DepositRequest{Amount: money(100)})
		require.NoError(t, err)

		closed, err := env.orders.Close(context.Background(), actorOf(client), order.ID, CloseOrderRequest{
			Rating:           4,
			AdditionalAmount: decimal.NewNullDecimal(money(50)),
		})
		require.NoError(t, err)

		assert.True(t, closed.Budget.Decimal.Equal(money(450)))
		assert.True(t, env.store.Balance(client.ID).Equal(money(50)))
		assert.True(t, env.store.Balance(freelancer.ID).Equal(money(450)))
	})

	t.Run("additional amount beyond balance", func(t *testing.T) {
		env := newTestEnv(t, defaultPolicy())
		order, client, freelancer := env.awaitingReview(t, 400)

		_, err := env.orders.Close(context.Background(), actorOf(client), order.ID, CloseOrderRequest{
			Rating:           4,
			AdditionalAmount: decimal.NewNullDecimal(money(50)),
		})
		require.True(t, apperror.IsInsufficientFunds(err))

		assert.Equal(t, valueobject.OrderStatusAwaitingReview, env.store.Order(order.ID).Status)
		assert.True(t, env.store.Balance(freelancer.ID).IsZero())
		reviews, _ := env.reviews.ForUser(context.Background(), freelancer.ID)
		assert.Empty(t, reviews)
	})

	t.Run("payout disabled", func(t *testing.T) {
		policy := defaultPolicy()
		policy.PayoutOnComplete = false
		env := newTestEnv(t, policy)
		order, client, freelancer := env.awaitingReview(t, 400)

		_, err := env.orders.Close(context.Background(), actorOf(client), order.ID, CloseOrderRequest{Rating: 3})
		require.NoError(t, err)
		assert.True(t, env.store.Balance(freelancer.ID).IsZero())
	})

	t.Run("requires awaiting review", func(t *testing.T) {
		env := newTestEnv(t, defaultPolicy())
		order, client, _ := env.inProgress(t, 100)

		_, err := env.orders.Close(context.Background(), actorOf(client), order.ID, CloseOrderRequest{Rating: 5})
		assert.True(t, apperror.IsInvalidState(err))
	})

	t.Run("rating out of range", func(t *testing.T) {
		env := newTestEnv(t, defaultPolicy())
		order, client, _ := env.awaitingReview(t, 100)

		_, err := env.orders.Close(context.Background(), actorOf(client), order.ID, CloseOrderRequest{Rating: 6})
		assert.True(t, apperror.IsValidation(err))
		assert.Equal(t, valueobject.OrderStatusAwaitingReview, env.store.Order(order.ID).Status)
	})

	t.Run("only owner", func(t *testing.T) {
		env := newTestEnv(t, defaultPolicy())
		order, _, freelancer := env.awaitingReview(t, 100)

		_, err := env.orders.Close(context.Background(), actorOf(freelancer), order.ID, CloseOrderRequest{Rating: 5})
		assert.True(t, apperror.IsForbidden(err))
	})
}

func TestListOpenOrders(t *testing.T) {
	env := newTestEnv(t, defaultPolicy())
	client := env.client(1000)
	env.openOrder(t, client, 100)
	env.openOrder(t, client, 100)
	_, err := env.orders.Create(context.Background(), actorOf(client), env.orderRequest(int64p(10), valueobject.OrderStatusDraft))
	require.NoError(t, err)

	list, err := env.orders.List(context.Background(), ListOrdersRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, list.Total)
	assert.Equal(t, []string{"go", "html"}, list.Orders[0].Skills)
	assert.Equal(t, client.ID, list.Orders[0].Client.ID)

	bySkill, err := env.orders.List(context.Background(), ListOrdersRequest{Skill: "go", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, bySkill.Orders, 1)
	assert.True(t, bySkill.HasMore)

	_, err = env.orders.List(context.Background(), ListOrdersRequest{Status: "draft"})
	assert.True(t, apperror.IsValidation(err))

	byCategory, err := env.orders.ListByCategory(context.Background(), env.category.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, byCategory.Total)

	_, err = env.orders.ListByCategory(context.Background(), uuid.New(), 10, 0)
	assert.ErrorIs(t, err, apperror.ErrCategoryNotFound)

	mine, err := env.orders.ListMine(context.Background(), actorOf(client), 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, mine.Total)
}

func TestListOpenOrdersCache(t *testing.T) {
	env := newTestEnv(t, defaultPolicy())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	env.orders.cache = NewCacheService(ctx, time.Minute)

	client := env.client(1000)
	env.openOrder(t, client, 100)

	first, err := env.orders.List(context.Background(), ListOrdersRequest{})
	require.NoError(t, err)
	env.openOrder(t, client, 100)

	cached, err := env.orders.List(context.Background(), ListOrdersRequest{})
	require.NoError(t, err)
	assert.Equal(t, first.Total, cached.Total)

	for _, e := range env.pub.OfType(events.TypeOrderUpdated) {
		require.NoError(t, env.orders.cache.Deliver(context.Background(), e))
	}
	fresh, err := env.orders.List(context.Background(), ListOrdersRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.Total)
}

func TestGetOrderDetails(t *testing.T) {
	env := newTestEnv(t, defaultPolicy())
	client := env.client(1000)
	order := env.openOrder(t, client, 100)
	freelancer := env.freelancer()

	viewer := actorOf(freelancer)
	details, err := env.orders.Get(context.Background(), &viewer, order.ID)
	require.NoError(t, err)
	assert.True(t, details.CanApply)
	assert.False(t, details.IsOwner)
	assert.Equal(t, env.category.ID, details.Category.ID)
	assert.Nil(t, details.MyBid)

	env.submitBid(t, freelancer, order.ID, 100)
	details, err = env.orders.Get(context.Background(), &viewer, order.ID)
	require.NoError(t, err)
	assert.False(t, details.CanApply)
	require.NotNil(t, details.MyBid)
	assert.Equal(t, 1, details.BidsCount)

	anonymous, err := env.orders.Get(context.Background(), nil, order.ID)
	require.NoError(t, err)
	assert.False(t, anonymous.CanApply)
	assert.Equal(t, client.ID, anonymous.Client.ID)
}

func TestGetDraftHiddenFromOthers(t *testing.T) {
	env := newTestEnv(t, defaultPolicy())
	client := env.client(0)
	draft, err := env.orders.Create(context.Background(), actorOf(client), env.orderRequest(nil, valueobject.OrderStatusDraft))
	require.NoError(t, err)

	other := actorOf(env.freelancer())
	_, err = env.orders.Get(context.Background(), &other, draft.ID)
	assert.ErrorIs(t, err, apperror.ErrOrderNotFound)

	owner := actorOf(client)
	details, err := env.orders.Get(context.Background(), &owner, draft.ID)
	require.NoError(t, err)
	assert.True(t, details.IsOwner)
}

func TestOrderHistory(t *testing.T) {
	env := newTestEnv(t, defaultPolicy())
	order, client, _ := env.awaitingReview(t, 100)

	history, err := env.orders.History(context.Background(), actorOf(client), order.ID)
	require.NoError(t, err)

	actions := make([]string, 0, len(history))
	for _, h := range history {
		actions = append(actions, h.Action)
	}
	assert.Equal(t, []string{actionCreated, actionPublished, actionAssigned, actionSubmitted}, actions)

	_, err = env.orders.History(context.Background(), actorOf(env.freelancer()), order.ID)
	assert.True(t, apperror.IsForbidden(err))
}

func ptr[T any](v T) *T { return &v }
