package store

import (
	"context"

	"go-ticket-reservation/internal/model"

	"github.com/google/uuid"
)

// InventoryStore 票種庫存帳本
// Decrement/Increment 必須是可線性化的原子操作，保證併發下不會超賣
type InventoryStore interface {
	// 扣減庫存：庫存足夠時原子扣減並回傳 true；不足時不做任何異動回傳 false
	// 庫存歸零且非管理停售狀態時自動轉為 SOLD_OUT
	DecrementAvailable(ctx context.Context, ticketTypeID uuid.UUID, quantity int) (bool, error)
	// 回補庫存：原子加回，上限為 TotalQuantity；票種不存在時回傳 false
	// 狀態為 SOLD_OUT 且回補後大於零時自動轉回 ACTIVE (PAUSED/INACTIVE 不受影響)
	IncrementAvailable(ctx context.Context, ticketTypeID uuid.UUID, quantity int) (bool, error)

	GetByID(ctx context.Context, ticketTypeID uuid.UUID) (*model.TicketType, error)
	GetByEventID(ctx context.Context, eventID int) ([]*model.TicketType, error)
	Add(ctx context.Context, ticketType *model.TicketType) (*model.TicketType, error)
	Update(ctx context.Context, ticketTypeID uuid.UUID, params model.UpdateTicketTypeParams) (*model.TicketType, error)
	Delete(ctx context.Context, ticketTypeID uuid.UUID) error
}
