package service

import (
	"context"

	"go-ticket-reservation/internal/cache"
	"go-ticket-reservation/internal/model"
	"go-ticket-reservation/internal/store"
	apperrors "go-ticket-reservation/pkg/app_errors"
	"go-ticket-reservation/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TicketTypeService interface {
	Create(ctx context.Context, ticketType *model.TicketType) (*model.TicketType, error)
	GetByID(ctx context.Context, ticketTypeID uuid.UUID) (*model.TicketType, error)
	ListByEvent(ctx context.Context, eventID int) ([]*model.TicketType, error)
	Update(ctx context.Context, ticketTypeID uuid.UUID, params model.UpdateTicketTypeParams) (*model.TicketType, error)
	Delete(ctx context.Context, ticketTypeID uuid.UUID) error

	// 庫存端對外的兩個原子操作，HTTP 版 InventoryClient 的伺服器端
	Reserve(ctx context.Context, ticketTypeID uuid.UUID, quantity int) (*model.TicketTypeSnapshot, error)
	Release(ctx context.Context, ticketTypeID uuid.UUID, quantity int) (bool, error)
}

type TicketTypeServiceImpl struct {
	store store.InventoryStore
	cache cache.AvailabilityCache
}

// NewTicketTypeService 建立票種服務。cache 可為 nil (不啟用可售投影)。
func NewTicketTypeService(inventoryStore store.InventoryStore, availabilityCache cache.AvailabilityCache) TicketTypeService {
	return &TicketTypeServiceImpl{
		store: inventoryStore,
		cache: availabilityCache,
	}
}

func (s *TicketTypeServiceImpl) Create(ctx context.Context, ticketType *model.TicketType) (*model.TicketType, error) {
	created, err := s.store.Add(ctx, ticketType)
	if err != nil {
		return nil, err
	}

	s.syncCache(ctx, created)
	return created, nil
}

func (s *TicketTypeServiceImpl) GetByID(ctx context.Context, ticketTypeID uuid.UUID) (*model.TicketType, error) {
	return s.store.GetByID(ctx, ticketTypeID)
}

func (s *TicketTypeServiceImpl) ListByEvent(ctx context.Context, eventID int) ([]*model.TicketType, error) {
	return s.store.GetByEventID(ctx, eventID)
}

func (s *TicketTypeServiceImpl) Update(ctx context.Context, ticketTypeID uuid.UUID, params model.UpdateTicketTypeParams) (*model.TicketType, error) {
	updated, err := s.store.Update(ctx, ticketTypeID, params)
	if err != nil {
		return nil, err
	}

	s.syncCache(ctx, updated)
	return updated, nil
}

func (s *TicketTypeServiceImpl) Delete(ctx context.Context, ticketTypeID uuid.UUID) error {
	if err := s.store.Delete(ctx, ticketTypeID); err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, ticketTypeID.String()); err != nil {
			logger.WithComponent("ticket_type_service").Warn("invalidate availability cache failed",
				zap.String("ticket_type_id", ticketTypeID.String()), zap.Error(err))
		}
	}
	return nil
}

func (s *TicketTypeServiceImpl) Reserve(ctx context.Context, ticketTypeID uuid.UUID, quantity int) (*model.TicketTypeSnapshot, error) {
	ticket, err := s.store.GetByID(ctx, ticketTypeID)
	if err != nil {
		return nil, err
	}

	ok, err := s.store.DecrementAvailable(ctx, ticketTypeID, quantity)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.ErrInsufficientStock
	}

	s.refreshCache(ctx, ticketTypeID)

	snapshot := ticket.Snapshot()
	return &snapshot, nil
}

func (s *TicketTypeServiceImpl) Release(ctx context.Context, ticketTypeID uuid.UUID, quantity int) (bool, error) {
	ok, err := s.store.IncrementAvailable(ctx, ticketTypeID, quantity)
	if err != nil {
		return false, err
	}

	if ok {
		s.refreshCache(ctx, ticketTypeID)
	}
	return ok, nil
}

// syncCache / refreshCache 可售投影為 best-effort：寫入失敗不影響庫存異動本身
func (s *TicketTypeServiceImpl) syncCache(ctx context.Context, ticket *model.TicketType) {
	if s.cache == nil {
		return
	}
	err := s.cache.SetAvailability(ctx, ticket.TicketTypeID.String(), ticket.AvailableQuantity, ticket.Status)
	if err != nil {
		logger.WithComponent("ticket_type_service").Warn("sync availability cache failed",
			zap.String("ticket_type_id", ticket.TicketTypeID.String()), zap.Error(err))
	}
}

func (s *TicketTypeServiceImpl) refreshCache(ctx context.Context, ticketTypeID uuid.UUID) {
	if s.cache == nil {
		return
	}
	ticket, err := s.store.GetByID(ctx, ticketTypeID)
	if err != nil {
		return
	}
	s.syncCache(ctx, ticket)
}
