package cache

import (
	"context"
	"testing"

	"go-ticket-reservation/config"
	"go-ticket-reservation/internal/database"
	"go-ticket-reservation/internal/model"
	apperrors "go-ticket-reservation/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestCache(t *testing.T) (AvailabilityCache, *redis.Client) {
	t.Helper()

	cfg := config.LoadTestConfig()
	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		t.Skipf("test redis not available: %v", err)
	}
	t.Cleanup(func() { rdb.Close() })
	return NewAvailabilityCache(rdb), rdb
}

func TestSetAndGetAvailability(t *testing.T) {
	ctx := context.Background()
	c, _ := setupTestCache(t)

	id := uuid.NewString()

	require.NoError(t, c.SetAvailability(ctx, id, 7, model.TicketTypeStatusActive))

	info, err := c.GetAvailability(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 7, info.Available)
	assert.Equal(t, model.TicketTypeStatusActive, info.Status)

	// 覆寫投影
	require.NoError(t, c.SetAvailability(ctx, id, 0, model.TicketTypeStatusSoldOut))

	info, err = c.GetAvailability(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, info.Available)
	assert.Equal(t, model.TicketTypeStatusSoldOut, info.Status)

	require.NoError(t, c.Invalidate(ctx, id))
}

func TestGetAvailabilityMissingKey(t *testing.T) {
	c, _ := setupTestCache(t)

	_, err := c.GetAvailability(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, apperrors.ErrTicketTypeNotFound)
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	c, _ := setupTestCache(t)

	id := uuid.NewString()
	require.NoError(t, c.SetAvailability(ctx, id, 3, model.TicketTypeStatusActive))
	require.NoError(t, c.Invalidate(ctx, id))

	_, err := c.GetAvailability(ctx, id)
	assert.ErrorIs(t, err, apperrors.ErrTicketTypeNotFound)
}
