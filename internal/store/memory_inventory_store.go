package store

import (
	"context"
	"sync"
	"time"

	"go-ticket-reservation/internal/model"
	apperrors "go-ticket-reservation/pkg/app_errors"

	"github.com/google/uuid"
)

// MemoryInventoryStoreImpl 記憶體版庫存帳本
// 每個票種 id 各自持有一把鎖 (lazily created)，不同票種的異動互不阻塞；
// decrement/increment 的 read-check-write 都在該票種的鎖內執行
type MemoryInventoryStoreImpl struct {
	mu      sync.RWMutex // 保護 tickets map 本身的增刪查
	tickets map[uuid.UUID]*model.TicketType
	nextID  int

	// 每票種一把鎖，對應 DB 實作的 row-level lock
	locks sync.Map // map[uuid.UUID]*sync.Mutex
}

func NewMemoryInventoryStore() InventoryStore {
	return &MemoryInventoryStoreImpl{
		tickets: make(map[uuid.UUID]*model.TicketType),
		nextID:  1,
	}
}

func (s *MemoryInventoryStoreImpl) lockFor(ticketTypeID uuid.UUID) *sync.Mutex {
	actual, _ := s.locks.LoadOrStore(ticketTypeID, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

func (s *MemoryInventoryStoreImpl) DecrementAvailable(ctx context.Context, ticketTypeID uuid.UUID, quantity int) (bool, error) {
	if quantity <= 0 {
		return false, apperrors.ErrInvalidInput
	}

	lock := s.lockFor(ticketTypeID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	ticket, ok := s.tickets[ticketTypeID]
	s.mu.RUnlock()
	if !ok {
		return false, apperrors.ErrTicketTypeNotFound
	}

	// 庫存不足是正常業務結果，不是錯誤
	if ticket.AvailableQuantity < quantity {
		return false, nil
	}

	ticket.AvailableQuantity -= quantity
	if ticket.AvailableQuantity == 0 && !ticket.Status.IsManualOverride() {
		ticket.Status = model.TicketTypeStatusSoldOut
	}
	ticket.UpdatedAt = time.Now().UTC()

	return true, nil
}

func (s *MemoryInventoryStoreImpl) IncrementAvailable(ctx context.Context, ticketTypeID uuid.UUID, quantity int) (bool, error) {
	if quantity <= 0 {
		return false, apperrors.ErrInvalidInput
	}

	lock := s.lockFor(ticketTypeID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	ticket, ok := s.tickets[ticketTypeID]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}

	// 回補不得超過總量
	ticket.AvailableQuantity += quantity
	if ticket.AvailableQuantity > ticket.TotalQuantity {
		ticket.AvailableQuantity = ticket.TotalQuantity
	}

	// 只有 SOLD_OUT 會被回補自動恢復，管理停售狀態不受影響
	if ticket.Status == model.TicketTypeStatusSoldOut && ticket.AvailableQuantity > 0 {
		ticket.Status = model.TicketTypeStatusActive
	}
	ticket.UpdatedAt = time.Now().UTC()

	return true, nil
}

func (s *MemoryInventoryStoreImpl) GetByID(ctx context.Context, ticketTypeID uuid.UUID) (*model.TicketType, error) {
	// 讀取也走票種鎖，避免與進行中的扣減互相踩到欄位
	lock := s.lockFor(ticketTypeID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	ticket, ok := s.tickets[ticketTypeID]
	s.mu.RUnlock()
	if !ok {
		return nil, apperrors.ErrTicketTypeNotFound
	}

	copied := *ticket
	return &copied, nil
}

func (s *MemoryInventoryStoreImpl) GetByEventID(ctx context.Context, eventID int) ([]*model.TicketType, error) {
	s.mu.RLock()
	ids := make([]uuid.UUID, 0, len(s.tickets))
	for id := range s.tickets {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	tickets := make([]*model.TicketType, 0)
	for _, id := range ids {
		ticket, err := s.GetByID(ctx, id)
		if err != nil {
			continue // 與收集 id 之間被刪除
		}
		if ticket.EventID == eventID {
			tickets = append(tickets, ticket)
		}
	}

	return tickets, nil
}

func (s *MemoryInventoryStoreImpl) Add(ctx context.Context, ticketType *model.TicketType) (*model.TicketType, error) {
	if ticketType.TotalQuantity < 0 || ticketType.Price < 0 || ticketType.MaxPerCustomer < 0 {
		return nil, apperrors.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ticketType.TicketTypeID == uuid.Nil {
		ticketType.TicketTypeID = uuid.New()
	}
	if ticketType.Status == "" {
		ticketType.Status = model.TicketTypeStatusActive
	}

	// 建立時可售數量等於總量
	ticketType.ID = s.nextID
	s.nextID++
	ticketType.AvailableQuantity = ticketType.TotalQuantity
	now := time.Now().UTC()
	ticketType.CreatedAt = now
	ticketType.UpdatedAt = now

	copied := *ticketType
	s.tickets[ticketType.TicketTypeID] = &copied

	return ticketType, nil
}

func (s *MemoryInventoryStoreImpl) Update(ctx context.Context, ticketTypeID uuid.UUID, params model.UpdateTicketTypeParams) (*model.TicketType, error) {
	lock := s.lockFor(ticketTypeID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	ticket, ok := s.tickets[ticketTypeID]
	s.mu.RUnlock()
	if !ok {
		return nil, apperrors.ErrTicketTypeNotFound
	}

	// 先驗證再套用，避免半套用
	if params.Price != nil && *params.Price < 0 {
		return nil, apperrors.ErrInvalidInput
	}
	if params.MaxPerCustomer != nil && *params.MaxPerCustomer < 0 {
		return nil, apperrors.ErrInvalidInput
	}
	if params.Status != nil {
		if !params.Status.IsValid() || !ticket.Status.CanTransitionTo(*params.Status) {
			return nil, apperrors.ErrInvalidStatusTransition
		}
	}

	if params.Name != nil {
		ticket.Name = *params.Name
	}
	if params.Price != nil {
		ticket.Price = *params.Price
	}
	if params.MaxPerCustomer != nil {
		ticket.MaxPerCustomer = *params.MaxPerCustomer
	}
	if params.Status != nil {
		ticket.Status = *params.Status
	}
	if params.SalesStartAt != nil {
		ticket.SalesStartAt = params.SalesStartAt
	}
	if params.SalesEndAt != nil {
		ticket.SalesEndAt = params.SalesEndAt
	}
	ticket.UpdatedAt = time.Now().UTC()

	copied := *ticket
	return &copied, nil
}

func (s *MemoryInventoryStoreImpl) Delete(ctx context.Context, ticketTypeID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tickets[ticketTypeID]; !ok {
		return apperrors.ErrTicketTypeNotFound
	}

	delete(s.tickets, ticketTypeID)
	return nil
}
