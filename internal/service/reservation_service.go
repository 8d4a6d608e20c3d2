package service

import (
	"context"
	"time"

	"go-ticket-reservation/internal/client"
	"go-ticket-reservation/internal/model"
	"go-ticket-reservation/internal/queue"
	"go-ticket-reservation/internal/repository"
	apperrors "go-ticket-reservation/pkg/app_errors"
	"go-ticket-reservation/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ReservationService interface {
	// 建立預約 (saga)：逐項扣庫存，任一項失敗就依序回補已扣的項目
	CreateReservation(ctx context.Context, req model.CreateReservationRequest) (*model.Reservation, error)
	// 取消預約：逐項回補庫存後轉 CANCELLED
	CancelReservation(ctx context.Context, reservationID uuid.UUID, req model.CancelReservationRequest) (*model.Reservation, error)
	// 轉換為訂單：純狀態轉換，庫存在建立時已扣
	ConvertReservation(ctx context.Context, reservationID uuid.UUID, orderID string) (*model.Reservation, error)
	GetReservation(ctx context.Context, reservationID uuid.UUID) (*model.Reservation, error)
	ListByCustomer(ctx context.Context, customerID int) ([]*model.Reservation, error)
	ListByEvent(ctx context.Context, eventID int) ([]*model.Reservation, error)
}

type ReservationServiceImpl struct {
	repository   repository.ReservationRepository
	inventory    client.InventoryClient
	releaseQueue queue.ReleaseQueue
}

func NewReservationService(
	reservationRepository repository.ReservationRepository,
	inventoryClient client.InventoryClient,
	releaseQueue queue.ReleaseQueue,
) ReservationService {
	return &ReservationServiceImpl{
		repository:   reservationRepository,
		inventory:    inventoryClient,
		releaseQueue: releaseQueue,
	}
}

// reservedItem 已成功扣減的項目，補償時依預約順序回補
type reservedItem struct {
	ticketTypeID uuid.UUID
	quantity     int
	snapshot     *model.TicketTypeSnapshot
}

func (s *ReservationServiceImpl) CreateReservation(ctx context.Context, req model.CreateReservationRequest) (*model.Reservation, error) {
	if len(req.Items) == 0 {
		return nil, apperrors.ErrEmptyReservationItems
	}

	// 依呼叫端給的順序逐項處理：這個順序同時決定扣減順序與補償順序
	reserved := make([]reservedItem, 0, len(req.Items))
	eventID := 0

	for _, item := range req.Items {
		snapshot, err := s.inventory.GetTicketType(ctx, item.TicketTypeID)
		if err != nil {
			s.compensate(ctx, uuid.Nil, reserved)
			return nil, err
		}

		// 同一預約的所有項目必須屬於同一活動
		if len(reserved) == 0 {
			eventID = snapshot.EventID
		} else if snapshot.EventID != eventID {
			s.compensate(ctx, uuid.Nil, reserved)
			return nil, apperrors.ErrEventMismatch
		}

		if snapshot.MaxPerCustomer > 0 && item.Quantity > snapshot.MaxPerCustomer {
			s.compensate(ctx, uuid.Nil, reserved)
			return nil, apperrors.ErrExceedsMaxPerCustomer
		}

		// reserve 失敗 (含逾時) 代表這一項沒有扣到庫存，只需要回補前面已成功的項目
		reservedSnapshot, err := s.inventory.Reserve(ctx, item.TicketTypeID, item.Quantity)
		if err != nil {
			s.compensate(ctx, uuid.Nil, reserved)
			return nil, err
		}

		reserved = append(reserved, reservedItem{
			ticketTypeID: item.TicketTypeID,
			quantity:     item.Quantity,
			snapshot:     reservedSnapshot,
		})
	}

	// 全部扣減成功，以扣減當下的快照組預約項目
	items := make([]model.ReservationItem, 0, len(reserved))
	for _, r := range reserved {
		items = append(items, model.ReservationItem{
			TicketTypeID:   r.ticketTypeID,
			TicketTypeName: r.snapshot.Name,
			Quantity:       r.quantity,
			UnitPrice:      r.snapshot.Price,
		})
	}

	reservation, err := model.NewReservation(req.CustomerID, eventID, items)
	if err != nil {
		s.compensate(ctx, uuid.Nil, reserved)
		return nil, err
	}

	saved, err := s.repository.Save(ctx, reservation)
	if err != nil {
		// 預約沒存成，扣掉的庫存要全部吐回去
		s.compensate(ctx, reservation.ReservationID, reserved)
		return nil, err
	}

	return saved, nil
}

// compensate 依預約順序回補已扣減的項目
// 回補失敗只記錄並排入 pending release，不得蓋掉原始錯誤：能回補多少是多少
func (s *ReservationServiceImpl) compensate(ctx context.Context, reservationID uuid.UUID, reserved []reservedItem) {
	if len(reserved) == 0 {
		return
	}

	log := logger.WithComponent("reservation_saga")
	for _, r := range reserved {
		// 補償不跟隨請求的生命週期：用戶斷線也必須把庫存吐回去
		err := s.inventory.Release(context.WithoutCancel(ctx), r.ticketTypeID, r.quantity)
		if err != nil {
			log.Error("compensating release failed, enqueue pending release",
				zap.String("ticket_type_id", r.ticketTypeID.String()),
				zap.Int("quantity", r.quantity),
				zap.Error(err))
			s.enqueuePendingRelease(reservationID, r.ticketTypeID, r.quantity, "create_compensation")
		}
	}
}

func (s *ReservationServiceImpl) enqueuePendingRelease(reservationID, ticketTypeID uuid.UUID, quantity int, reason string) {
	release := &queue.PendingRelease{
		ReservationID: reservationID,
		TicketTypeID:  ticketTypeID,
		Quantity:      quantity,
		Reason:        reason,
		EnqueuedAt:    time.Now().UTC(),
	}
	if err := s.releaseQueue.PublishRelease(context.Background(), release); err != nil {
		// 隊列也失敗時只剩 log 可以對帳
		logger.WithComponent("reservation_saga").Error("enqueue pending release failed, leaked hold",
			zap.String("reservation_id", reservationID.String()),
			zap.String("ticket_type_id", ticketTypeID.String()),
			zap.Int("quantity", quantity),
			zap.Error(err))
	}
}

func (s *ReservationServiceImpl) CancelReservation(ctx context.Context, reservationID uuid.UUID, req model.CancelReservationRequest) (*model.Reservation, error) {
	reservation, err := s.repository.FindByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	// 先檢查前置狀態，避免對已終態的預約做回補
	if reservation.Status != model.ReservationStatusActive {
		return nil, apperrors.ErrInvalidReservationStatus
	}

	// 逐項回補；個別失敗記錄後繼續，能放回多少是多少
	log := logger.WithComponent("reservation_saga")
	for _, item := range reservation.Items {
		err := s.inventory.Release(context.WithoutCancel(ctx), item.TicketTypeID, item.Quantity)
		if err != nil {
			log.Error("release on cancel failed, enqueue pending release",
				zap.String("reservation_id", reservationID.String()),
				zap.String("ticket_type_id", item.TicketTypeID.String()),
				zap.Int("quantity", item.Quantity),
				zap.Error(err))
			s.enqueuePendingRelease(reservationID, item.TicketTypeID, item.Quantity, "cancel")
		}
	}

	// 即使部分回補失敗，預約也必須離開 ACTIVE：取消已被接受
	return s.repository.UpdateStatus(ctx, reservationID, func(r *model.Reservation) error {
		return r.Cancel(req.CancelledBy, req.Reason, req.CancellationType)
	})
}

func (s *ReservationServiceImpl) ConvertReservation(ctx context.Context, reservationID uuid.UUID, orderID string) (*model.Reservation, error) {
	if orderID == "" {
		return nil, apperrors.ErrInvalidInput
	}

	return s.repository.UpdateStatus(ctx, reservationID, func(r *model.Reservation) error {
		return r.Convert(orderID)
	})
}

func (s *ReservationServiceImpl) GetReservation(ctx context.Context, reservationID uuid.UUID) (*model.Reservation, error) {
	return s.repository.FindByID(ctx, reservationID)
}

func (s *ReservationServiceImpl) ListByCustomer(ctx context.Context, customerID int) ([]*model.Reservation, error) {
	return s.repository.FindByCustomerID(ctx, customerID)
}

func (s *ReservationServiceImpl) ListByEvent(ctx context.Context, eventID int) ([]*model.Reservation, error) {
	return s.repository.FindByEventID(ctx, eventID)
}
