package model

import (
	"time"

	apperrors "go-ticket-reservation/pkg/app_errors"

	"github.com/google/uuid"
)

// ReservationStatus 預約狀態類型
type ReservationStatus string

const (
	ReservationStatusActive    ReservationStatus = "ACTIVE"
	ReservationStatusCancelled ReservationStatus = "CANCELLED"
	ReservationStatusConverted ReservationStatus = "CONVERTED"
)

// IsValid 驗證狀態是否有效
func (s ReservationStatus) IsValid() bool {
	switch s {
	case ReservationStatusActive, ReservationStatusCancelled, ReservationStatusConverted:
		return true
	}
	return false
}

// CanTransitionTo 檢查是否可以轉換到目標狀態
// ACTIVE 之後只能單向走到 CANCELLED 或 CONVERTED，終態不可再轉換
func (s ReservationStatus) CanTransitionTo(target ReservationStatus) bool {
	transitions := map[ReservationStatus][]ReservationStatus{
		ReservationStatusActive:    {ReservationStatusCancelled, ReservationStatusConverted},
		ReservationStatusCancelled: {},
		ReservationStatusConverted: {},
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

// CancellationType 取消類型 (顧客主動取消、逾時釋放、營運取消)
type CancellationType string

const (
	CancellationTypeCustomer CancellationType = "CUSTOMER"
	CancellationTypeExpired  CancellationType = "EXPIRED"
	CancellationTypeOperator CancellationType = "OPERATOR"
)

// ReservationItem 預約中的單一票種項目，名稱與單價為預約當下快照
type ReservationItem struct {
	TicketTypeID   uuid.UUID `json:"ticket_type_id" db:"ticket_type_id"`
	TicketTypeName string    `json:"ticket_type_name" db:"ticket_type_name"`
	Quantity       int       `json:"quantity" db:"quantity"`
	UnitPrice      float64   `json:"unit_price" db:"unit_price"`
	Subtotal       float64   `json:"subtotal" db:"subtotal"`
}

// Reservation 預約 (顧客對庫存的暫時持有)
// 不變量：Items 非空；TotalAmount 恆等於各項 Subtotal 之和
type Reservation struct {
	ID            int               `json:"id" db:"id"`
	ReservationID uuid.UUID         `json:"reservation_id" db:"reservation_id"`
	CustomerID    int               `json:"customer_id" db:"customer_id"`
	EventID       int               `json:"event_id" db:"event_id"`
	Items         []ReservationItem `json:"items" db:"-"`
	TotalAmount   float64           `json:"total_amount" db:"total_amount"`
	Status        ReservationStatus `json:"status" db:"status"`
	CreatedAt     time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at" db:"updated_at"`

	// 終態資訊
	CancelledAt      *time.Time        `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CancelledBy      *string           `json:"cancelled_by,omitempty" db:"cancelled_by"`
	CancelReason     *string           `json:"cancel_reason,omitempty" db:"cancel_reason"`
	CancellationType *CancellationType `json:"cancellation_type,omitempty" db:"cancellation_type"`
	ConvertedAt      *time.Time        `json:"converted_at,omitempty" db:"converted_at"`
	OrderID          *string           `json:"order_id,omitempty" db:"order_id"`
}

// NewReservation 以預約當下的票種快照建立 ACTIVE 預約
func NewReservation(customerID int, eventID int, items []ReservationItem) (*Reservation, error) {
	if len(items) == 0 {
		return nil, apperrors.ErrEmptyReservationItems
	}

	total := 0.0
	for i := range items {
		if items[i].Quantity <= 0 {
			return nil, apperrors.ErrInvalidInput
		}
		qty, err := NewQuantity(items[i].Quantity)
		if err != nil {
			return nil, err
		}
		price, err := NewPrice(items[i].UnitPrice)
		if err != nil {
			return nil, err
		}
		items[i].Subtotal = price.Mul(qty)
		total += items[i].Subtotal
	}

	now := time.Now().UTC()
	return &Reservation{
		ReservationID: uuid.New(),
		CustomerID:    customerID,
		EventID:       eventID,
		Items:         items,
		TotalAmount:   total,
		Status:        ReservationStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Cancel 轉換到 CANCELLED 並記錄取消資訊
func (r *Reservation) Cancel(cancelledBy, reason string, cancellationType CancellationType) error {
	if !r.Status.CanTransitionTo(ReservationStatusCancelled) {
		return apperrors.ErrInvalidReservationStatus
	}

	now := time.Now().UTC()
	r.Status = ReservationStatusCancelled
	r.CancelledAt = &now
	r.CancelledBy = &cancelledBy
	r.CancelReason = &reason
	r.CancellationType = &cancellationType
	r.UpdatedAt = now
	return nil
}

// Convert 轉換到 CONVERTED 並記錄訂單編號；庫存在建立預約時已扣減，這裡不再異動
func (r *Reservation) Convert(orderID string) error {
	if !r.Status.CanTransitionTo(ReservationStatusConverted) {
		return apperrors.ErrInvalidReservationStatus
	}

	now := time.Now().UTC()
	r.Status = ReservationStatusConverted
	r.ConvertedAt = &now
	r.OrderID = &orderID
	r.UpdatedAt = now
	return nil
}

// CreateReservationRequest 建立預約請求
type CreateReservationRequest struct {
	CustomerID int                      `json:"customer_id" binding:"required"`
	Items      []ReservationItemRequest `json:"items" binding:"required"`
}

type ReservationItemRequest struct {
	TicketTypeID uuid.UUID `json:"ticket_type_id" binding:"required"`
	Quantity     int       `json:"quantity" binding:"required,min=1"`
}

// CancelReservationRequest 取消預約請求
type CancelReservationRequest struct {
	CancelledBy      string           `json:"cancelled_by" binding:"required"`
	Reason           string           `json:"reason"`
	CancellationType CancellationType `json:"cancellation_type" binding:"required"`
}

// ConvertReservationRequest 轉換預約請求
type ConvertReservationRequest struct {
	OrderID string `json:"order_id" binding:"required"`
}
