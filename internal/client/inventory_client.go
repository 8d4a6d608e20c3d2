package client

import (
	"context"

	"go-ticket-reservation/internal/model"
	"go-ticket-reservation/internal/store"
	apperrors "go-ticket-reservation/pkg/app_errors"

	"github.com/google/uuid"
)

// InventoryClient 預約端依賴的庫存服務介面
// 同進程部署時用 LocalInventoryClient，跨服務部署時用 HTTPInventoryClient
type InventoryClient interface {
	// 嘗試扣減庫存，成功時回傳預約當下的票種快照
	// 庫存不足回傳 ErrInsufficientStock，票種不存在回傳 ErrTicketTypeNotFound
	Reserve(ctx context.Context, ticketTypeID uuid.UUID, quantity int) (*model.TicketTypeSnapshot, error)
	// 回補庫存 (補償或取消)；只回補已成功扣減的數量即不會重複加回
	Release(ctx context.Context, ticketTypeID uuid.UUID, quantity int) error
	// 唯讀查詢，供預約前驗證 (同活動、maxPerCustomer)
	GetTicketType(ctx context.Context, ticketTypeID uuid.UUID) (*model.TicketTypeSnapshot, error)
}

// LocalInventoryClientImpl 同進程內直接呼叫 InventoryStore
type LocalInventoryClientImpl struct {
	store store.InventoryStore
}

func NewLocalInventoryClient(store store.InventoryStore) InventoryClient {
	return &LocalInventoryClientImpl{
		store: store,
	}
}

func (c *LocalInventoryClientImpl) Reserve(ctx context.Context, ticketTypeID uuid.UUID, quantity int) (*model.TicketTypeSnapshot, error) {
	// 先取快照再扣減：快照欄位 (名稱/價格) 不受扣減影響
	ticket, err := c.store.GetByID(ctx, ticketTypeID)
	if err != nil {
		return nil, err
	}

	ok, err := c.store.DecrementAvailable(ctx, ticketTypeID, quantity)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.ErrInsufficientStock
	}

	snapshot := ticket.Snapshot()
	return &snapshot, nil
}

func (c *LocalInventoryClientImpl) Release(ctx context.Context, ticketTypeID uuid.UUID, quantity int) error {
	ok, err := c.store.IncrementAvailable(ctx, ticketTypeID, quantity)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.ErrTicketTypeNotFound
	}
	return nil
}

func (c *LocalInventoryClientImpl) GetTicketType(ctx context.Context, ticketTypeID uuid.UUID) (*model.TicketTypeSnapshot, error) {
	ticket, err := c.store.GetByID(ctx, ticketTypeID)
	if err != nil {
		return nil, err
	}

	snapshot := ticket.Snapshot()
	return &snapshot, nil
}
