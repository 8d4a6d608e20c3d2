package model

import (
	"testing"

	apperrors "go-ticket-reservation/pkg/app_errors"

	"github.com/stretchr/testify/assert"
)

func TestNewQuantity(t *testing.T) {
	q, err := NewQuantity(5)
	assert.NoError(t, err)
	assert.Equal(t, 5, q.Int())

	zero, err := NewQuantity(0)
	assert.NoError(t, err)
	assert.Equal(t, 0, zero.Int())

	_, err = NewQuantity(-1)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestNewPrice(t *testing.T) {
	p, err := NewPrice(100.5)
	assert.NoError(t, err)
	assert.Equal(t, 100.5, p.Float64())

	_, err = NewPrice(-0.01)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestPriceMul(t *testing.T) {
	p, _ := NewPrice(100.0)
	q, _ := NewQuantity(3)
	assert.Equal(t, 300.0, p.Mul(q))
}
