package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/freelance-market/internal/events"
	"github.com/ignatzorin/freelance-market/internal/models"
	"github.com/ignatzorin/freelance-market/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-market/internal/testutil"
)

func TestNotificationService_DeliverAndRead(t *testing.T) {
	store := testutil.NewMemStore()
	svc := NewNotificationService(store.Notifications())
	ctx := context.Background()

	clientID, freelancerID := uuid.New(), uuid.New()
	order := models.Order{ID: uuid.New(), ClientID: clientID, FreelancerID: &freelancerID, Title: "Логотип"}
	require.NoError(t, svc.Deliver(ctx, events.OrderUpdated(order)))

	client := Actor{ID: clientID}
	list, err := svc.List(ctx, client, 0, 0, false)
	require.NoError(t, err)
	require.Len(t, list.Notifications, 1)
	assert.Equal(t, 1, list.Unread)
	assert.Equal(t, string(events.TypeOrderUpdated), list.Notifications[0].Type)

	var payload models.Order
	require.NoError(t, json.Unmarshal(list.Notifications[0].Payload, &payload))
	assert.Equal(t, order.ID, payload.ID)

	freelancerList, err := svc.List(ctx, Actor{ID: freelancerID}, 0, 0, false)
	require.NoError(t, err)
	require.Len(t, freelancerList.Notifications, 1)

	err = svc.MarkAsRead(ctx, Actor{ID: freelancerID}, list.Notifications[0].ID)
	assert.True(t, apperror.IsNotFound(err))

	require.NoError(t, svc.MarkAsRead(ctx, client, list.Notifications[0].ID))
	unread, err := svc.List(ctx, client, 0, 0, true)
	require.NoError(t, err)
	assert.Empty(t, unread.Notifications)
	assert.Zero(t, unread.Unread)

	require.NoError(t, svc.Deliver(ctx, events.OrderUpdated(order)))
	require.NoError(t, svc.MarkAllAsRead(ctx, Actor{ID: freelancerID}))
	freelancerList, err = svc.List(ctx, Actor{ID: freelancerID}, 0, 0, false)
	require.NoError(t, err)
	assert.Len(t, freelancerList.Notifications, 2)
	assert.Zero(t, freelancerList.Unread)
}

func TestNotificationService_RequiresActor(t *testing.T) {
	svc := NewNotificationService(testutil.NewMemStore().Notifications())

	_, err := svc.List(context.Background(), Actor{}, 10, 0, false)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}
