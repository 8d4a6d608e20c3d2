package worker

import (
	"context"

	"go-ticket-reservation/internal/queue"
	"go-ticket-reservation/internal/store"
	"go-ticket-reservation/pkg/logger"

	"go.uber.org/zap"
)

// ReleaseWorker 消化 pending release 隊列，把補償失敗時漏回補的庫存加回帳本
type ReleaseWorker interface {
	Start(ctx context.Context) error
}

type ReleaseWorkerImpl struct {
	store store.InventoryStore
	queue queue.ReleaseQueue
}

func NewReleaseWorker(store store.InventoryStore, queue queue.ReleaseQueue) ReleaseWorker {
	return &ReleaseWorkerImpl{
		store: store,
		queue: queue,
	}
}

func (w *ReleaseWorkerImpl) Start(ctx context.Context) error {
	msgs, err := w.queue.SubscribeReleases(ctx)
	if err != nil {
		return err
	}

	go func() {
		log := logger.WithComponent("release_worker")
		for msg := range msgs {
			release := msg.Data

			ok, err := w.store.IncrementAvailable(ctx, release.TicketTypeID, release.Quantity)
			if err != nil {
				// 暫時性失敗，留給隊列延遲重試
				log.Warn("release retry failed",
					zap.String("reservation_id", release.ReservationID.String()),
					zap.String("ticket_type_id", release.TicketTypeID.String()),
					zap.Int("quantity", release.Quantity),
					zap.Error(err))
				msg.Nack(true)
				continue
			}
			if !ok {
				// 票種已不存在，重試也不會成功，直接結案
				log.Warn("release target ticket type missing, dropping",
					zap.String("reservation_id", release.ReservationID.String()),
					zap.String("ticket_type_id", release.TicketTypeID.String()))
				msg.Ack()
				continue
			}

			log.Info("pending release applied",
				zap.String("reservation_id", release.ReservationID.String()),
				zap.String("ticket_type_id", release.TicketTypeID.String()),
				zap.Int("quantity", release.Quantity),
				zap.String("reason", release.Reason))
			msg.Ack()
		}
	}()
	return nil
}
