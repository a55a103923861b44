package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/freelance-market/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-market/internal/events"
	"github.com/ignatzorin/freelance-market/internal/models"
)

func TestCacheService_GetOrSet(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cache := NewCacheService(ctx, time.Minute)

	calls := 0
	load := func() (interface{}, error) {
		calls++
		return calls, nil
	}

	v, err := cache.GetOrSet("k", load)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	v, err = cache.GetOrSet("k", load)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	_, err = cache.GetOrSet("broken", func() (interface{}, error) { return nil, errors.New("boom") })
	assert.Error(t, err)
	_, found := cache.Get("broken")
	assert.False(t, found)
}

func TestCacheService_Expiry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cache := NewCacheService(ctx, time.Minute)

	cache.Set("short", "v", time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	_, found := cache.Get("short")
	assert.False(t, found)
}

func TestCacheService_InvalidatesOrderLists(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cache := NewCacheService(ctx, time.Minute)

	listKey := OrderListCacheKey(models.OrderFilter{Status: valueobject.OrderStatusOpen, Limit: 20})
	cache.Set(listKey, "list", time.Minute)
	cache.Set("other", "value", time.Minute)

	dispute := models.Dispute{ID: uuid.New(), Status: valueobject.DisputeStatusOpen}
	require.NoError(t, cache.Deliver(ctx, events.DisputeStatusChanged(dispute, models.Order{ID: uuid.New(), ClientID: uuid.New()})))
	_, found := cache.Get(listKey)
	assert.True(t, found)

	require.NoError(t, cache.Deliver(ctx, events.OrderUpdated(models.Order{ID: uuid.New(), ClientID: uuid.New()})))
	_, found = cache.Get(listKey)
	assert.False(t, found)
	_, found = cache.Get("other")
	assert.True(t, found)

	// Новый отклик меняет bids_count в списке.
	cache.Set(listKey, "list", time.Minute)
	require.NoError(t, cache.Deliver(ctx, events.BidStatusChanged(models.Bid{ID: uuid.New()}, uuid.New())))
	_, found = cache.Get(listKey)
	assert.False(t, found)
}

func TestOrderListCacheKey(t *testing.T) {
	category := uuid.New()
	a := OrderListCacheKey(models.OrderFilter{Status: valueobject.OrderStatusOpen, Limit: 20})
	b := OrderListCacheKey(models.OrderFilter{Status: valueobject.OrderStatusOpen, CategoryID: &category, Limit: 20})
	c := OrderListCacheKey(models.OrderFilter{Status: valueobject.OrderStatusOpen, Limit: 20, Offset: 20})

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Contains(t, b, category.String())
}
