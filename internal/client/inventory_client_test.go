package client

import (
	"context"
	"testing"

	"go-ticket-reservation/internal/model"
	"go-ticket-reservation/internal/store"
	apperrors "go-ticket-reservation/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocalClient(t *testing.T, total int) (InventoryClient, store.InventoryStore, uuid.UUID) {
	t.Helper()
	s := store.NewMemoryInventoryStore()
	created, err := s.Add(context.Background(), &model.TicketType{
		EventID:        7,
		Name:           "VIP",
		Price:          150.0,
		TotalQuantity:  total,
		MaxPerCustomer: 4,
	})
	require.NoError(t, err)
	return NewLocalInventoryClient(s), s, created.TicketTypeID
}

func TestLocalReserveReturnsSnapshot(t *testing.T) {
	ctx := context.Background()
	c, s, id := newLocalClient(t, 10)

	snapshot, err := c.Reserve(ctx, id, 3)
	require.NoError(t, err)
	assert.Equal(t, "VIP", snapshot.Name)
	assert.Equal(t, 150.0, snapshot.Price)
	assert.Equal(t, 7, snapshot.EventID)
	assert.Equal(t, 4, snapshot.MaxPerCustomer)

	ticket, _ := s.GetByID(ctx, id)
	assert.Equal(t, 7, ticket.AvailableQuantity)
}

func TestLocalReserveInsufficientStock(t *testing.T) {
	ctx := context.Background()
	c, s, id := newLocalClient(t, 2)

	_, err := c.Reserve(ctx, id, 5)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)

	ticket, _ := s.GetByID(ctx, id)
	assert.Equal(t, 2, ticket.AvailableQuantity)
}

func TestLocalReserveUnknownTicketType(t *testing.T) {
	c, _, _ := newLocalClient(t, 2)

	_, err := c.Reserve(context.Background(), uuid.New(), 1)
	assert.ErrorIs(t, err, apperrors.ErrTicketTypeNotFound)
}

func TestLocalReleaseRestoresStock(t *testing.T) {
	ctx := context.Background()
	c, s, id := newLocalClient(t, 10)

	_, err := c.Reserve(ctx, id, 4)
	require.NoError(t, err)

	require.NoError(t, c.Release(ctx, id, 4))

	ticket, _ := s.GetByID(ctx, id)
	assert.Equal(t, 10, ticket.AvailableQuantity)
}

func TestLocalReleaseUnknownTicketType(t *testing.T) {
	c, _, _ := newLocalClient(t, 2)

	err := c.Release(context.Background(), uuid.New(), 1)
	assert.ErrorIs(t, err, apperrors.ErrTicketTypeNotFound)
}

func TestLocalGetTicketType(t *testing.T) {
	c, _, id := newLocalClient(t, 2)

	snapshot, err := c.GetTicketType(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, snapshot.TicketTypeID)

	_, err = c.GetTicketType(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrTicketTypeNotFound)
}
