package apperrors

import "errors"

// 驗證類錯誤：在任何庫存異動前就被拒絕，不需要補償
var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrEmptyReservationItems = errors.New("reservation items must not be empty")
	ErrEventMismatch         = errors.New("reservation items must belong to the same event")
	ErrExceedsMaxPerCustomer = errors.New("quantity exceeds max per customer")
)

// 業務類錯誤
var (
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrTicketTypeNotFound  = errors.New("ticket type not found")
	ErrReservationNotFound = errors.New("reservation not found")
	// 預約狀態不允許此操作 (例如取消已轉換的預約)
	ErrInvalidReservationStatus = errors.New("invalid reservation status")
	// 票種狀態機不允許此轉換
	ErrInvalidStatusTransition = errors.New("invalid status transition")
)

// 系統類錯誤
var (
	// 庫存服務無法連線或逾時
	ErrInventoryUnavailable = errors.New("inventory service unavailable")
	ErrInternalServerError  = errors.New("internal server error")
)
