package cache

import (
	"context"
	"fmt"
	"strconv"

	"go-ticket-reservation/internal/model"
	apperrors "go-ticket-reservation/pkg/app_errors"

	"github.com/redis/go-redis/v9"
)

// AvailabilityInfo 票種可售狀態的唯讀投影，給高頻查詢用，不做任何扣減判斷
type AvailabilityInfo struct {
	Available int
	Status    model.TicketTypeStatus
}

type AvailabilityCache interface {
	// 寫入/覆蓋票種的可售投影 (每次庫存異動後 write-through)
	SetAvailability(ctx context.Context, ticketTypeID string, available int, status model.TicketTypeStatus) error
	// 讀取票種的可售投影
	GetAvailability(ctx context.Context, ticketTypeID string) (AvailabilityInfo, error)
	// 刪除投影 (票種刪除時)
	Invalidate(ctx context.Context, ticketTypeID string) error
}

type AvailabilityCacheImpl struct {
	client *redis.Client
}

func NewAvailabilityCache(client *redis.Client) AvailabilityCache {
	return &AvailabilityCacheImpl{
		client: client,
	}
}

// 投影 key
func (c *AvailabilityCacheImpl) getKey(ticketTypeID string) string {
	return fmt.Sprintf("ticket_type:%s:availability", ticketTypeID)
}

func (c *AvailabilityCacheImpl) SetAvailability(ctx context.Context, ticketTypeID string, available int, status model.TicketTypeStatus) error {
	key := c.getKey(ticketTypeID)
	return c.client.HSet(ctx, key, map[string]interface{}{
		"available": available,
		"status":    string(status),
	}).Err()
}

func (c *AvailabilityCacheImpl) GetAvailability(ctx context.Context, ticketTypeID string) (AvailabilityInfo, error) {
	key := c.getKey(ticketTypeID)
	result, err := c.client.HGetAll(ctx, key).Result()
	if err != nil {
		return AvailabilityInfo{}, err
	}

	// 檢查 key 是否存在
	if len(result) == 0 {
		return AvailabilityInfo{}, apperrors.ErrTicketTypeNotFound
	}

	available, err := strconv.Atoi(result["available"])
	if err != nil {
		return AvailabilityInfo{}, fmt.Errorf("invalid available: %v", err)
	}

	return AvailabilityInfo{
		Available: available,
		Status:    model.TicketTypeStatus(result["status"]),
	}, nil
}

func (c *AvailabilityCacheImpl) Invalidate(ctx context.Context, ticketTypeID string) error {
	return c.client.Del(ctx, c.getKey(ticketTypeID)).Err()
}
