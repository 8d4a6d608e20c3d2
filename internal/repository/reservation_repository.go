package repository

import (
	"context"

	"go-ticket-reservation/internal/model"

	"github.com/google/uuid"
)

// ReservationRepository 預約的持久化
// UpdateStatus 在該筆預約的鎖 (或 DB row lock) 內執行 mutate，
// 讓併發的 cancel 與 convert 只會有一個通過 ACTIVE 前置檢查
type ReservationRepository interface {
	Save(ctx context.Context, reservation *model.Reservation) (*model.Reservation, error)
	FindByID(ctx context.Context, reservationID uuid.UUID) (*model.Reservation, error)
	FindByCustomerID(ctx context.Context, customerID int) ([]*model.Reservation, error)
	FindByEventID(ctx context.Context, eventID int) ([]*model.Reservation, error)
	UpdateStatus(ctx context.Context, reservationID uuid.UUID, mutate func(*model.Reservation) error) (*model.Reservation, error)
}
