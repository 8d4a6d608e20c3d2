package model

import (
	apperrors "go-ticket-reservation/pkg/app_errors"
)

// Quantity 非負數量
type Quantity int

func NewQuantity(v int) (Quantity, error) {
	if v < 0 {
		return 0, apperrors.ErrInvalidInput
	}
	return Quantity(v), nil
}

func (q Quantity) Int() int {
	return int(q)
}

// Price 非負單價
type Price float64

func NewPrice(v float64) (Price, error) {
	if v < 0 {
		return 0, apperrors.ErrInvalidInput
	}
	return Price(v), nil
}

func (p Price) Float64() float64 {
	return float64(p)
}

// Mul 計算小計 (單價 × 數量)
func (p Price) Mul(q Quantity) float64 {
	return float64(p) * float64(q)
}
