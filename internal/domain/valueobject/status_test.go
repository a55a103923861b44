package valueobject

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/freelance-market/internal/pkg/apperror"
)

func TestOrderStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		ok       bool
	}{
		{OrderStatusDraft, OrderStatusOpen, true},
		{OrderStatusDraft, OrderStatusInProgress, false},
		{OrderStatusDraft, OrderStatusCanceled, false},
		{OrderStatusOpen, OrderStatusInProgress, true},
		{OrderStatusOpen, OrderStatusCanceled, true},
		{OrderStatusOpen, OrderStatusCompleted, false},
		{OrderStatusInProgress, OrderStatusAwaitingReview, true},
		{OrderStatusInProgress, OrderStatusCanceled, true},
		{OrderStatusAwaitingReview, OrderStatusCompleted, true},
		{OrderStatusAwaitingReview, OrderStatusCanceled, false},
		{OrderStatusDispute, OrderStatusCompleted, true},
		{OrderStatusDispute, OrderStatusCanceled, false},
		{OrderStatusCompleted, OrderStatusDispute, false},
		{OrderStatusCanceled, OrderStatusOpen, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.from.CanTransitionTo(tt.to))

			next, err := tt.from.Transition(tt.to)
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, tt.to, next)
			} else {
				assert.True(t, apperror.IsInvalidState(err))
				assert.Equal(t, tt.from, next)
			}
		})
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	assert.True(t, OrderStatusCompleted.IsTerminal())
	assert.True(t, OrderStatusCanceled.IsTerminal())
	assert.False(t, OrderStatusDispute.IsTerminal())
	assert.False(t, OrderStatus("unknown").IsTerminal())
}

func TestNewOrderStatus(t *testing.T) {
	s, err := NewOrderStatus("awaiting_review")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusAwaitingReview, s)

	_, err = NewOrderStatus("published")
	assert.True(t, apperror.IsValidation(err))
}

func TestBidStatusTransitions(t *testing.T) {
	assert.True(t, BidStatusPending.CanTransitionTo(BidStatusAccepted))
	assert.True(t, BidStatusPending.CanTransitionTo(BidStatusRejected))
	assert.False(t, BidStatusRejected.CanTransitionTo(BidStatusRejected))
	assert.False(t, BidStatusAccepted.CanTransitionTo(BidStatusRejected))
}

func TestDisputeStatus(t *testing.T) {
	assert.True(t, DisputeStatusOpen.IsActive())
	assert.True(t, DisputeStatusInProgress.IsActive())
	assert.False(t, DisputeStatusResolved.IsActive())

	assert.True(t, DisputeStatusOpen.CanTransitionTo(DisputeStatusResolved))
	assert.False(t, DisputeStatusInProgress.CanTransitionTo(DisputeStatusInProgress))
	assert.False(t, DisputeStatusCancelled.CanTransitionTo(DisputeStatusResolved))
}

func TestNewRole(t *testing.T) {
	r, err := NewRole("freelancer")
	require.NoError(t, err)
	assert.Equal(t, RoleFreelancer, r)

	_, err = NewRole("root")
	assert.True(t, apperror.IsValidation(err))
}

func TestNewMoney(t *testing.T) {
	m, err := NewMoney(decimal.RequireFromString("10.5"))
	require.NoError(t, err)
	assert.True(t, m.Equal(decimal.RequireFromString("10.50")))

	_, err = NewMoney(decimal.RequireFromString("-1"))
	assert.True(t, apperror.IsValidation(err))

	_, err = NewMoney(decimal.RequireFromString("1.005"))
	assert.True(t, apperror.IsValidation(err))

	_, err = NewPositiveMoney(decimal.Zero)
	assert.True(t, apperror.IsValidation(err))
}

func TestRoundRating(t *testing.T) {
	avg := decimal.NewFromInt(14).Div(decimal.NewFromInt(3))
	assert.Equal(t, "4.7", RoundRating(avg).String())
}
