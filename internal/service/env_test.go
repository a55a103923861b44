package service

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/freelance-market/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-market/internal/models"
	"github.com/ignatzorin/freelance-market/internal/testutil"
)

type testEnv struct {
	store       *testutil.MemStore
	pub         *testutil.RecordingPublisher
	files       *testutil.MemFileStore
	ledger      *LedgerService
	assignments *AssignmentService
	reviews     *ReviewService
	orders      *OrderService
	bids        *BidService
	disputes    *DisputeService
	category    models.Category
}

func defaultPolicy() OrderPolicy {
	return OrderPolicy{RefundOnCancel: true, PayoutOnComplete: true, StrictDeliveryCheck: true}
}

func newTestEnv(t *testing.T, policy OrderPolicy) *testEnv {
	t.Helper()

	store := testutil.NewMemStore()
	pub := &testutil.RecordingPublisher{}
	files := testutil.NewMemFileStore()

	ledger := NewLedgerService(store, store.Ledger(), decimal.NewFromInt(100000))
	assignments := NewAssignmentService(store.Assignments())
	reviews := NewReviewService(store, store.Orders(), assignments, store.Reviews(), store.Users())
	orders := NewOrderService(OrderServiceDeps{
		Tx:          store,
		Publisher:   pub,
		Files:       files,
		Orders:      store.Orders(),
		History:     store.History(),
		Catalog:     store.Catalog(),
		Users:       store.Users(),
		Bids:        store.Bids(),
		Ledger:      ledger,
		Assignments: assignments,
		Reviews:     reviews,
		Policy:      policy,
	})
	bids := NewBidService(store, pub, store.Orders(), store.History(), store.Bids(), ledger, assignments)
	disputes := NewDisputeService(store, pub, store.Orders(), store.History(), store.Disputes(), ledger, assignments, policy.PayoutOnComplete)

	return &testEnv{
		store:       store,
		pub:         pub,
		files:       files,
		ledger:      ledger,
		assignments: assignments,
		reviews:     reviews,
		orders:      orders,
		bids:        bids,
		disputes:    disputes,
		category:    store.SeedCategory("development"),
	}
}

func actorOf(u models.User) Actor {
	return ActorFromUser(&u)
}

func money(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func (e *testEnv) client(balance int64) models.User {
	return e.store.SeedUser(valueobject.RoleUser, balance)
}

func (e *testEnv) freelancer() models.User {
	return e.store.SeedUser(valueobject.RoleFreelancer, 0)
}

func (e *testEnv) admin() models.User {
	return e.store.SeedUser(valueobject.RoleAdmin, 0)
}

func (e *testEnv) orderRequest(budget *int64, status valueobject.OrderStatus) CreateOrderRequest {
	req := CreateOrderRequest{
		Title:       "Лендинг для кофейни",
		Description: "Нужен одностраничный сайт с меню и формой заказа",
		CategoryID:  e.category.ID,
		Skills:      []string{"Go", "html"},
		Status:      string(status),
	}
	if budget != nil {
		req.Budget = decimal.NewNullDecimal(money(*budget))
	}
	return req
}

// openOrder создаёт опубликованный заказ с бюджетом.
func (e *testEnv) openOrder(t *testing.T, client models.User, budget int64) *models.Order {
	t.Helper()
	order, err := e.orders.Create(context.Background(), actorOf(client), e.orderRequest(&budget, valueobject.OrderStatusOpen))
	require.NoError(t, err)
	return order
}

// noAmount отклик без суммы: цена обсуждается.
const noAmount int64 = -1

func (e *testEnv) submitBid(t *testing.T, freelancer models.User, orderID uuid.UUID, amount int64) *models.Bid {
	t.Helper()
	req := SubmitBidRequest{Comment: "Сделаю аккуратно и в срок, есть похожие работы"}
	if amount != noAmount {
		req.Amount = decimal.NewNullDecimal(money(amount))
	}
	bid, err := e.bids.Submit(context.Background(), actorOf(freelancer), orderID, req)
	require.NoError(t, err)
	return bid
}

// inProgress заказ с выбранным исполнителем.
func (e *testEnv) inProgress(t *testing.T, budget int64) (*models.Order, models.User, models.User) {
	t.Helper()
	client := e.client(budget)
	freelancer := e.freelancer()
	order := e.openOrder(t, client, budget)
	bid := e.submitBid(t, freelancer, order.ID, budget)
	_, err := e.bids.Accept(context.Background(), actorOf(client), bid.ID)
	require.NoError(t, err)
	return order, client, freelancer
}

// awaitingReview заказ, по которому исполнитель сдал работу.
func (e *testEnv) awaitingReview(t *testing.T, budget int64) (*models.Order, models.User, models.User) {
	t.Helper()
	order, client, freelancer := e.inProgress(t, budget)
	_, err := e.orders.SubmitForReview(context.Background(), actorOf(freelancer), order.ID,
		[]FileUpload{{Name: "result.pdf", Content: testutil.PDF()}})
	require.NoError(t, err)
	return order, client, freelancer
}

func upload(name string, r io.Reader) FileUpload {
	return FileUpload{Name: name, Content: r}
}
