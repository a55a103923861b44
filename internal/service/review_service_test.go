package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/freelance-market/internal/models"
	"github.com/ignatzorin/freelance-market/internal/pkg/apperror"
)

// completeWith проводит заказ клиента через фрилансера до завершения с оценкой.
func (e *testEnv) completeWith(t *testing.T, freelancer models.User, rating int) (*models.Order, models.User) {
	t.Helper()
	ctx := context.Background()
	client := e.client(100)
	order := e.openOrder(t, client, 100)
	bid := e.submitBid(t, freelancer, order.ID, 100)
	_, err := e.bids.Accept(ctx, actorOf(client), bid.ID)
	require.NoError(t, err)
	_, err = e.orders.SubmitForReview(ctx, actorOf(freelancer), order.ID, nil)
	require.NoError(t, err)
	_, err = e.orders.Close(ctx, actorOf(client), order.ID, CloseOrderRequest{Rating: rating})
	require.NoError(t, err)
	return order, client
}

func TestFreelancerRatingIsMean(t *testing.T) {
	env := newTestEnv(t, defaultPolicy())
	freelancer := env.freelancer()

	env.completeWith(t, freelancer, 5)
	env.completeWith(t, freelancer, 4)

	rating := env.store.User(freelancer.ID).Rating
	require.True(t, rating.Valid)
	assert.Equal(t, "4.5", rating.Decimal.String())

	env.completeWith(t, freelancer, 4)
	assert.Equal(t, "4.3", env.store.User(freelancer.ID).Rating.Decimal.String())
}

func TestLeaveReview(t *testing.T) {
	env := newTestEnv(t, defaultPolicy())
	freelancer := env.freelancer()
	order, client := env.completeWith(t, freelancer, 5)

	comment := "Понятное задание, быстрая оплата"
	review, err := env.reviews.Leave(context.Background(), actorOf(freelancer), order.ID, LeaveReviewRequest{Rating: 5, Comment: &comment})
	require.NoError(t, err)
	assert.Equal(t, client.ID, review.TargetID)
	assert.Equal(t, "5", env.store.User(client.ID).Rating.Decimal.String())

	_, err = env.reviews.Leave(context.Background(), actorOf(freelancer), order.ID, LeaveReviewRequest{Rating: 1})
	assert.ErrorIs(t, err, errReviewExists)

	// Отзыв заказчика уже оставлен при закрытии заказа.
	_, err = env.reviews.Leave(context.Background(), actorOf(client), order.ID, LeaveReviewRequest{Rating: 3})
	assert.ErrorIs(t, err, errReviewExists)
	assert.Equal(t, "5", env.store.User(freelancer.ID).Rating.Decimal.String())
}

func TestLeaveReviewRules(t *testing.T) {
	env := newTestEnv(t, defaultPolicy())
	order, client, freelancer := env.inProgress(t, 100)

	_, err := env.reviews.Leave(context.Background(), actorOf(env.freelancer()), order.ID, LeaveReviewRequest{Rating: 5})
	assert.True(t, apperror.IsForbidden(err))

	_, err = env.reviews.Leave(context.Background(), actorOf(client), order.ID, LeaveReviewRequest{Rating: 5})
	assert.True(t, apperror.IsInvalidState(err))

	_, err = env.reviews.Leave(context.Background(), actorOf(freelancer), order.ID, LeaveReviewRequest{Rating: 0})
	assert.True(t, apperror.IsValidation(err))

	reviews, err := env.reviews.ForUser(context.Background(), client.ID)
	require.NoError(t, err)
	assert.Empty(t, reviews)
}
