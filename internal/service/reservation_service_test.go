package service

import (
	"context"
	"testing"

	"go-ticket-reservation/internal/client"
	"go-ticket-reservation/internal/model"
	"go-ticket-reservation/internal/queue"
	"go-ticket-reservation/internal/repository"
	"go-ticket-reservation/internal/store"
	apperrors "go-ticket-reservation/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sagaFixture struct {
	service ReservationService
	store   store.InventoryStore
	repo    repository.ReservationRepository
	queue   queue.ReleaseQueue
	client  client.InventoryClient
}

func newSagaFixture(t *testing.T) *sagaFixture {
	t.Helper()
	inventoryStore := store.NewMemoryInventoryStore()
	repo := repository.NewMemoryReservationRepository()
	releaseQueue := queue.NewMemoryReleaseQueue(16)
	inventoryClient := client.NewLocalInventoryClient(inventoryStore)

	return &sagaFixture{
		service: NewReservationService(repo, inventoryClient, releaseQueue),
		store:   inventoryStore,
		repo:    repo,
		queue:   releaseQueue,
		client:  inventoryClient,
	}
}

func (f *sagaFixture) addTicketType(t *testing.T, eventID int, name string, price float64, total, maxPerCustomer int) uuid.UUID {
	t.Helper()
	created, err := f.store.Add(context.Background(), &model.TicketType{
		EventID:        eventID,
		Name:           name,
		Price:          price,
		TotalQuantity:  total,
		MaxPerCustomer: maxPerCustomer,
	})
	require.NoError(t, err)
	return created.TicketTypeID
}

func (f *sagaFixture) available(t *testing.T, id uuid.UUID) int {
	t.Helper()
	ticket, err := f.store.GetByID(context.Background(), id)
	require.NoError(t, err)
	return ticket.AvailableQuantity
}

// failingReleaseClient 包住真實 client，Release 永遠失敗，模擬補償時庫存服務斷線
type failingReleaseClient struct {
	client.InventoryClient
}

func (c *failingReleaseClient) Release(ctx context.Context, ticketTypeID uuid.UUID, quantity int) error {
	return apperrors.ErrInventoryUnavailable
}

func TestCreateReservation(t *testing.T) {
	ctx := context.Background()
	f := newSagaFixture(t)

	typeA := f.addTicketType(t, 42, "VIP", 100.0, 10, 5)
	typeB := f.addTicketType(t, 42, "General", 50.0, 20, 5)

	created, err := f.service.CreateReservation(ctx, model.CreateReservationRequest{
		CustomerID: 1,
		Items: []model.ReservationItemRequest{
			{TicketTypeID: typeA, Quantity: 2},
			{TicketTypeID: typeB, Quantity: 1},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, model.ReservationStatusActive, created.Status)
	assert.Equal(t, 42, created.EventID)
	assert.Equal(t, 250.0, created.TotalAmount)
	require.Len(t, created.Items, 2)
	assert.Equal(t, "VIP", created.Items[0].TicketTypeName)
	assert.Equal(t, 200.0, created.Items[0].Subtotal)

	// 庫存已扣
	assert.Equal(t, 8, f.available(t, typeA))
	assert.Equal(t, 19, f.available(t, typeB))

	// 已持久化
	found, err := f.service.GetReservation(ctx, created.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, created.ReservationID, found.ReservationID)
}

func TestCreateReservationEmptyItems(t *testing.T) {
	f := newSagaFixture(t)

	_, err := f.service.CreateReservation(context.Background(), model.CreateReservationRequest{
		CustomerID: 1,
	})
	assert.ErrorIs(t, err, apperrors.ErrEmptyReservationItems)
}

// Compensation completeness: [A:2, B:100] 在 B 庫存不足時，A 要完整回補且不留預約
func TestCreateReservationCompensatesOnInsufficientStock(t *testing.T) {
	ctx := context.Background()
	f := newSagaFixture(t)

	typeA := f.addTicketType(t, 42, "VIP", 100.0, 10, 0)
	typeB := f.addTicketType(t, 42, "General", 50.0, 5, 0)

	_, err := f.service.CreateReservation(ctx, model.CreateReservationRequest{
		CustomerID: 1,
		Items: []model.ReservationItemRequest{
			{TicketTypeID: typeA, Quantity: 2},
			{TicketTypeID: typeB, Quantity: 100},
		},
	})
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)

	// A 的庫存回到原值
	assert.Equal(t, 10, f.available(t, typeA))
	assert.Equal(t, 5, f.available(t, typeB))

	// 沒有任何預約被存下來
	reservations, _ := f.service.ListByCustomer(ctx, 1)
	assert.Empty(t, reservations)
}

func TestCreateReservationRejectsCrossEventItems(t *testing.T) {
	ctx := context.Background()
	f := newSagaFixture(t)

	typeA := f.addTicketType(t, 42, "VIP", 100.0, 10, 0)
	typeB := f.addTicketType(t, 99, "Other", 50.0, 10, 0)

	_, err := f.service.CreateReservation(ctx, model.CreateReservationRequest{
		CustomerID: 1,
		Items: []model.ReservationItemRequest{
			{TicketTypeID: typeA, Quantity: 1},
			{TicketTypeID: typeB, Quantity: 1},
		},
	})
	assert.ErrorIs(t, err, apperrors.ErrEventMismatch)

	// 第一項已扣的庫存要回補
	assert.Equal(t, 10, f.available(t, typeA))
	assert.Equal(t, 10, f.available(t, typeB))
}

func TestCreateReservationRejectsExceedingMaxPerCustomer(t *testing.T) {
	ctx := context.Background()
	f := newSagaFixture(t)

	typeA := f.addTicketType(t, 42, "VIP", 100.0, 10, 2)

	_, err := f.service.CreateReservation(ctx, model.CreateReservationRequest{
		CustomerID: 1,
		Items: []model.ReservationItemRequest{
			{TicketTypeID: typeA, Quantity: 3},
		},
	})
	assert.ErrorIs(t, err, apperrors.ErrExceedsMaxPerCustomer)
	assert.Equal(t, 10, f.available(t, typeA))
}

func TestCreateReservationUnknownTicketType(t *testing.T) {
	f := newSagaFixture(t)

	_, err := f.service.CreateReservation(context.Background(), model.CreateReservationRequest{
		CustomerID: 1,
		Items: []model.ReservationItemRequest{
			{TicketTypeID: uuid.New(), Quantity: 1},
		},
	})
	assert.ErrorIs(t, err, apperrors.ErrTicketTypeNotFound)
}

// 快照語意：預約後改票價，既有預約的金額不變
func TestReservationAmountImmuneToLaterPriceChange(t *testing.T) {
	ctx := context.Background()
	f := newSagaFixture(t)

	typeA := f.addTicketType(t, 42, "VIP", 100.0, 10, 0)

	created, err := f.service.CreateReservation(ctx, model.CreateReservationRequest{
		CustomerID: 1,
		Items:      []model.ReservationItemRequest{{TicketTypeID: typeA, Quantity: 2}},
	})
	require.NoError(t, err)

	newPrice := 500.0
	_, err = f.store.Update(ctx, typeA, model.UpdateTicketTypeParams{Price: &newPrice})
	require.NoError(t, err)

	found, _ := f.service.GetReservation(ctx, created.ReservationID)
	assert.Equal(t, 200.0, found.TotalAmount)
	assert.Equal(t, 100.0, found.Items[0].UnitPrice)
}

// 補償失敗時：原始錯誤照樣回給呼叫端，失敗的回補進 pending release 隊列
func TestCompensationFailureEnqueuesPendingRelease(t *testing.T) {
	ctx := context.Background()

	inventoryStore := store.NewMemoryInventoryStore()
	repo := repository.NewMemoryReservationRepository()
	releaseQueue := queue.NewMemoryReleaseQueue(16)
	base := client.NewLocalInventoryClient(inventoryStore)
	svc := NewReservationService(repo, &failingReleaseClient{base}, releaseQueue)

	typeA, err := inventoryStore.Add(ctx, &model.TicketType{EventID: 42, Name: "VIP", Price: 100.0, TotalQuantity: 10})
	require.NoError(t, err)
	typeB, err := inventoryStore.Add(ctx, &model.TicketType{EventID: 42, Name: "GA", Price: 50.0, TotalQuantity: 1})
	require.NoError(t, err)

	_, err = svc.CreateReservation(ctx, model.CreateReservationRequest{
		CustomerID: 1,
		Items: []model.ReservationItemRequest{
			{TicketTypeID: typeA.TicketTypeID, Quantity: 2},
			{TicketTypeID: typeB.TicketTypeID, Quantity: 5},
		},
	})
	// 原始錯誤不被補償失敗蓋掉
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)

	// 失敗的回補留下 pending release 標記
	deliveries, err := releaseQueue.SubscribeReleases(ctx)
	require.NoError(t, err)

	d := <-deliveries
	assert.Equal(t, typeA.TicketTypeID, d.Data.TicketTypeID)
	assert.Equal(t, 2, d.Data.Quantity)
	assert.Equal(t, "create_compensation", d.Data.Reason)
}

func TestCancelReservation(t *testing.T) {
	ctx := context.Background()
	f := newSagaFixture(t)

	typeA := f.addTicketType(t, 42, "VIP", 100.0, 10, 0)
	typeB := f.addTicketType(t, 42, "General", 50.0, 20, 0)

	created, err := f.service.CreateReservation(ctx, model.CreateReservationRequest{
		CustomerID: 1,
		Items: []model.ReservationItemRequest{
			{TicketTypeID: typeA, Quantity: 2},
			{TicketTypeID: typeB, Quantity: 1},
		},
	})
	require.NoError(t, err)

	cancelled, err := f.service.CancelReservation(ctx, created.ReservationID, model.CancelReservationRequest{
		CancelledBy:      "customer-1",
		Reason:           "changed mind",
		CancellationType: model.CancellationTypeCustomer,
	})
	require.NoError(t, err)

	assert.Equal(t, model.ReservationStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledBy)
	assert.Equal(t, "customer-1", *cancelled.CancelledBy)

	// 兩個票種的數量都放回去了
	assert.Equal(t, 10, f.available(t, typeA))
	assert.Equal(t, 20, f.available(t, typeB))
}

func TestCancelReservationNotFound(t *testing.T) {
	f := newSagaFixture(t)

	_, err := f.service.CancelReservation(context.Background(), uuid.New(), model.CancelReservationRequest{
		CancelledBy:      "op",
		CancellationType: model.CancellationTypeOperator,
	})
	assert.ErrorIs(t, err, apperrors.ErrReservationNotFound)
}

// Monotonic state machine: 終態上的 cancel/convert 一律 InvalidState
func TestCancelConvertOnTerminalStates(t *testing.T) {
	ctx := context.Background()
	f := newSagaFixture(t)

	typeA := f.addTicketType(t, 42, "VIP", 100.0, 10, 0)

	created, err := f.service.CreateReservation(ctx, model.CreateReservationRequest{
		CustomerID: 1,
		Items:      []model.ReservationItemRequest{{TicketTypeID: typeA, Quantity: 1}},
	})
	require.NoError(t, err)

	cancelReq := model.CancelReservationRequest{
		CancelledBy:      "customer-1",
		Reason:           "changed mind",
		CancellationType: model.CancellationTypeCustomer,
	}

	_, err = f.service.CancelReservation(ctx, created.ReservationID, cancelReq)
	require.NoError(t, err)

	// 重複取消
	_, err = f.service.CancelReservation(ctx, created.ReservationID, cancelReq)
	assert.ErrorIs(t, err, apperrors.ErrInvalidReservationStatus)

	// 已取消不能轉換
	_, err = f.service.ConvertReservation(ctx, created.ReservationID, "order-1")
	assert.ErrorIs(t, err, apperrors.ErrInvalidReservationStatus)

	// 取消只回補一次
	assert.Equal(t, 10, f.available(t, typeA))
}

// 取消時個別回補失敗：預約仍轉 CANCELLED，漏掉的量進 pending release
func TestCancelProceedsWhenReleaseFails(t *testing.T) {
	ctx := context.Background()

	inventoryStore := store.NewMemoryInventoryStore()
	repo := repository.NewMemoryReservationRepository()
	releaseQueue := queue.NewMemoryReleaseQueue(16)
	base := client.NewLocalInventoryClient(inventoryStore)

	typeA, err := inventoryStore.Add(ctx, &model.TicketType{EventID: 42, Name: "VIP", Price: 100.0, TotalQuantity: 10})
	require.NoError(t, err)

	// 建立用正常 client，取消用會失敗的 client
	createSvc := NewReservationService(repo, base, releaseQueue)
	created, err := createSvc.CreateReservation(ctx, model.CreateReservationRequest{
		CustomerID: 1,
		Items:      []model.ReservationItemRequest{{TicketTypeID: typeA.TicketTypeID, Quantity: 3}},
	})
	require.NoError(t, err)

	cancelSvc := NewReservationService(repo, &failingReleaseClient{base}, releaseQueue)
	cancelled, err := cancelSvc.CancelReservation(ctx, created.ReservationID, model.CancelReservationRequest{
		CancelledBy:      "customer-1",
		Reason:           "changed mind",
		CancellationType: model.CancellationTypeCustomer,
	})
	require.NoError(t, err)
	assert.Equal(t, model.ReservationStatusCancelled, cancelled.Status)

	// 回補沒成功，庫存還是扣著，靠 pending release 補
	ticket, _ := inventoryStore.GetByID(ctx, typeA.TicketTypeID)
	assert.Equal(t, 7, ticket.AvailableQuantity)

	deliveries, err := releaseQueue.SubscribeReleases(ctx)
	require.NoError(t, err)

	d := <-deliveries
	assert.Equal(t, created.ReservationID, d.Data.ReservationID)
	assert.Equal(t, 3, d.Data.Quantity)
	assert.Equal(t, "cancel", d.Data.Reason)
}

func TestConvertReservation(t *testing.T) {
	ctx := context.Background()
	f := newSagaFixture(t)

	typeA := f.addTicketType(t, 42, "VIP", 100.0, 10, 0)

	created, err := f.service.CreateReservation(ctx, model.CreateReservationRequest{
		CustomerID: 1,
		Items:      []model.ReservationItemRequest{{TicketTypeID: typeA, Quantity: 4}},
	})
	require.NoError(t, err)
	require.Equal(t, 6, f.available(t, typeA))

	converted, err := f.service.ConvertReservation(ctx, created.ReservationID, "order-77")
	require.NoError(t, err)

	assert.Equal(t, model.ReservationStatusConverted, converted.Status)
	require.NotNil(t, converted.OrderID)
	assert.Equal(t, "order-77", *converted.OrderID)
	require.NotNil(t, converted.ConvertedAt)

	// 轉換不碰庫存：建立時已扣
	assert.Equal(t, 6, f.available(t, typeA))
}

func TestConvertReservationValidation(t *testing.T) {
	f := newSagaFixture(t)

	_, err := f.service.ConvertReservation(context.Background(), uuid.New(), "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = f.service.ConvertReservation(context.Background(), uuid.New(), "order-1")
	assert.ErrorIs(t, err, apperrors.ErrReservationNotFound)
}

func TestListByCustomerAndEvent(t *testing.T) {
	ctx := context.Background()
	f := newSagaFixture(t)

	typeA := f.addTicketType(t, 42, "VIP", 100.0, 100, 0)
	typeB := f.addTicketType(t, 99, "Other", 50.0, 100, 0)

	for i := 0; i < 2; i++ {
		_, err := f.service.CreateReservation(ctx, model.CreateReservationRequest{
			CustomerID: 1,
			Items:      []model.ReservationItemRequest{{TicketTypeID: typeA, Quantity: 1}},
		})
		require.NoError(t, err)
	}
	_, err := f.service.CreateReservation(ctx, model.CreateReservationRequest{
		CustomerID: 2,
		Items:      []model.ReservationItemRequest{{TicketTypeID: typeB, Quantity: 1}},
	})
	require.NoError(t, err)

	byCustomer, err := f.service.ListByCustomer(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, byCustomer, 2)

	byEvent, err := f.service.ListByEvent(ctx, 42)
	require.NoError(t, err)
	assert.Len(t, byEvent, 2)

	byEvent, err = f.service.ListByEvent(ctx, 99)
	require.NoError(t, err)
	assert.Len(t, byEvent, 1)
}
