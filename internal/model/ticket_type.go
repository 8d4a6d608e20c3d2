package model

import (
	"time"

	"github.com/google/uuid"
)

// TicketTypeStatus 票種狀態類型
type TicketTypeStatus string

const (
	TicketTypeStatusActive   TicketTypeStatus = "ACTIVE"
	TicketTypeStatusPaused   TicketTypeStatus = "PAUSED"
	TicketTypeStatusSoldOut  TicketTypeStatus = "SOLD_OUT"
	TicketTypeStatusInactive TicketTypeStatus = "INACTIVE"
)

// IsValid 驗證狀態是否有效
func (s TicketTypeStatus) IsValid() bool {
	switch s {
	case TicketTypeStatusActive, TicketTypeStatusPaused, TicketTypeStatusSoldOut, TicketTypeStatusInactive:
		return true
	}
	return false
}

// CanTransitionTo 檢查是否可以轉換到目標狀態
// SOLD_OUT 只由庫存異動驅動；PAUSED/INACTIVE 是管理操作，不會被庫存異動覆蓋
func (s TicketTypeStatus) CanTransitionTo(target TicketTypeStatus) bool {
	transitions := map[TicketTypeStatus][]TicketTypeStatus{
		TicketTypeStatusActive:   {TicketTypeStatusPaused, TicketTypeStatusSoldOut, TicketTypeStatusInactive},
		TicketTypeStatusPaused:   {TicketTypeStatusActive, TicketTypeStatusInactive},
		TicketTypeStatusSoldOut:  {TicketTypeStatusActive, TicketTypeStatusPaused, TicketTypeStatusInactive},
		TicketTypeStatusInactive: {TicketTypeStatusActive},
	}

	allowed, ok := transitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == target {
			return true
		}
	}
	return false
}

// IsManualOverride 管理操作設定的狀態，庫存歸零/回補時不自動改變
func (s TicketTypeStatus) IsManualOverride() bool {
	return s == TicketTypeStatusPaused || s == TicketTypeStatusInactive
}

// TicketType 票種 (庫存帳本實體)
// 不變量：0 ≤ AvailableQuantity ≤ TotalQuantity
type TicketType struct {
	ID                int              `json:"id" db:"id"`
	TicketTypeID      uuid.UUID        `json:"ticket_type_id" db:"ticket_type_id"`
	EventID           int              `json:"event_id" db:"event_id"`
	Name              string           `json:"name" db:"name"`
	Price             float64          `json:"price" db:"price"`
	TotalQuantity     int              `json:"total_quantity" db:"total_quantity"`
	AvailableQuantity int              `json:"available_quantity" db:"available_quantity"`
	MaxPerCustomer    int              `json:"max_per_customer" db:"max_per_customer"`
	Status            TicketTypeStatus `json:"status" db:"status"`
	SalesStartAt      *time.Time       `json:"sales_start_at,omitempty" db:"sales_start_at"`
	SalesEndAt        *time.Time       `json:"sales_end_at,omitempty" db:"sales_end_at"`
	CreatedAt         time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at" db:"updated_at"`
}

type UpdateTicketTypeParams struct {
	Name           *string
	Price          *float64
	MaxPerCustomer *int
	Status         *TicketTypeStatus
	SalesStartAt   *time.Time
	SalesEndAt     *time.Time
}

// IsAvailable 檢查票種是否可被預約
func (t *TicketType) IsAvailable() bool {
	return t.Status == TicketTypeStatusActive && t.AvailableQuantity > 0
}

// WithinSalesWindow 檢查時間點是否在銷售期間內 (未設定視為不限)
func (t *TicketType) WithinSalesWindow(at time.Time) bool {
	if t.SalesStartAt != nil && at.Before(*t.SalesStartAt) {
		return false
	}
	if t.SalesEndAt != nil && at.After(*t.SalesEndAt) {
		return false
	}
	return true
}

// Snapshot 預約當下擷取的票種快照，之後票價變動不影響既有預約
func (t *TicketType) Snapshot() TicketTypeSnapshot {
	return TicketTypeSnapshot{
		TicketTypeID:   t.TicketTypeID,
		EventID:        t.EventID,
		Name:           t.Name,
		Price:          t.Price,
		MaxPerCustomer: t.MaxPerCustomer,
	}
}

// TicketTypeSnapshot 跨服務邊界傳遞的唯讀票種資訊
// MaxPerCustomer 供預約端在扣減前做單人限購檢查
type TicketTypeSnapshot struct {
	TicketTypeID   uuid.UUID `json:"ticket_type_id"`
	EventID        int       `json:"event_id"`
	Name           string    `json:"name"`
	Price          float64   `json:"price"`
	MaxPerCustomer int       `json:"max_per_customer"`
}

// TicketTypeResponse 票種響應
type TicketTypeResponse struct {
	TicketTypeID      uuid.UUID `json:"ticket_type_id"`
	EventID           int       `json:"event_id"`
	Name              string    `json:"name"`
	Price             float64   `json:"price"`
	TotalQuantity     int       `json:"total_quantity"`
	AvailableQuantity int       `json:"available_quantity"`
	MaxPerCustomer    int       `json:"max_per_customer"`
	Status            string    `json:"status"`
	Available         bool      `json:"available"`
}

func (t *TicketType) ToResponse() TicketTypeResponse {
	return TicketTypeResponse{
		TicketTypeID:      t.TicketTypeID,
		EventID:           t.EventID,
		Name:              t.Name,
		Price:             t.Price,
		TotalQuantity:     t.TotalQuantity,
		AvailableQuantity: t.AvailableQuantity,
		MaxPerCustomer:    t.MaxPerCustomer,
		Status:            string(t.Status),
		Available:         t.IsAvailable(),
	}
}
