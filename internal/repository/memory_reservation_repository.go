package repository

import (
	"context"
	"sort"
	"sync"

	"go-ticket-reservation/internal/model"
	apperrors "go-ticket-reservation/pkg/app_errors"

	"github.com/google/uuid"
)

// MemoryReservationRepositoryImpl 記憶體版預約儲存
// 單把 RWMutex 即可：預約不像庫存計數有熱點競爭，正確性才是重點
type MemoryReservationRepositoryImpl struct {
	mu           sync.RWMutex
	reservations map[uuid.UUID]*model.Reservation
	nextID       int
}

func NewMemoryReservationRepository() ReservationRepository {
	return &MemoryReservationRepositoryImpl{
		reservations: make(map[uuid.UUID]*model.Reservation),
		nextID:       1,
	}
}

func (r *MemoryReservationRepositoryImpl) Save(ctx context.Context, reservation *model.Reservation) (*model.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if reservation.ReservationID == uuid.Nil {
		reservation.ReservationID = uuid.New()
	}
	reservation.ID = r.nextID
	r.nextID++

	copied := cloneReservation(reservation)
	r.reservations[reservation.ReservationID] = copied

	return cloneReservation(copied), nil
}

func (r *MemoryReservationRepositoryImpl) FindByID(ctx context.Context, reservationID uuid.UUID) (*model.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reservation, ok := r.reservations[reservationID]
	if !ok {
		return nil, apperrors.ErrReservationNotFound
	}

	return cloneReservation(reservation), nil
}

func (r *MemoryReservationRepositoryImpl) FindByCustomerID(ctx context.Context, customerID int) ([]*model.Reservation, error) {
	return r.findBy(func(res *model.Reservation) bool {
		return res.CustomerID == customerID
	})
}

func (r *MemoryReservationRepositoryImpl) FindByEventID(ctx context.Context, eventID int) ([]*model.Reservation, error) {
	return r.findBy(func(res *model.Reservation) bool {
		return res.EventID == eventID
	})
}

// UpdateStatus 在整個 map 鎖內執行 mutate，序列化同一預約上的併發取消/轉換
func (r *MemoryReservationRepositoryImpl) UpdateStatus(ctx context.Context, reservationID uuid.UUID, mutate func(*model.Reservation) error) (*model.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reservation, ok := r.reservations[reservationID]
	if !ok {
		return nil, apperrors.ErrReservationNotFound
	}

	// mutate 失敗時不留下半套用的狀態
	working := cloneReservation(reservation)
	if err := mutate(working); err != nil {
		return nil, err
	}

	r.reservations[reservationID] = working
	return cloneReservation(working), nil
}

func (r *MemoryReservationRepositoryImpl) findBy(match func(*model.Reservation) bool) ([]*model.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.Reservation, 0)
	for _, reservation := range r.reservations {
		if match(reservation) {
			result = append(result, cloneReservation(reservation))
		}
	}

	// map 迭代順序不定，固定以建立時間排序
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result, nil
}

func cloneReservation(reservation *model.Reservation) *model.Reservation {
	copied := *reservation
	copied.Items = make([]model.ReservationItem, len(reservation.Items))
	copy(copied.Items, reservation.Items)
	return &copied
}
