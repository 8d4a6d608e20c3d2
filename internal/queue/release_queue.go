package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PendingRelease 補償或取消時回補失敗的庫存，先記下來再由 worker 重試，
// 避免變成永久漏掉的持有 (leaked hold)
type PendingRelease struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	TicketTypeID  uuid.UUID `json:"ticket_type_id"`
	Quantity      int       `json:"quantity"`
	Reason        string    `json:"reason"`
	EnqueuedAt    time.Time `json:"enqueued_at"`
}

type Delivery struct {
	Data *PendingRelease
	Ack  func()
	Nack func(requeue bool)
}

type ReleaseQueue interface {
	// 發送 pending release 到隊列
	PublishRelease(ctx context.Context, release *PendingRelease) error
	// 訂閱 pending release 隊列
	SubscribeReleases(ctx context.Context) (<-chan Delivery, error)
}

// MemoryReleaseQueueImpl 使用 Go channel 的無基礎設施版本，供測試與單機部署
type MemoryReleaseQueueImpl struct {
	ch chan *PendingRelease
}

func NewMemoryReleaseQueue(bufferSize int) ReleaseQueue {
	return &MemoryReleaseQueueImpl{
		ch: make(chan *PendingRelease, bufferSize),
	}
}

func (q *MemoryReleaseQueueImpl) PublishRelease(ctx context.Context, release *PendingRelease) error {
	select {
	case q.ch <- release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryReleaseQueueImpl) SubscribeReleases(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case release, ok := <-q.ch:
				if !ok {
					return
				}
				d := Delivery{
					Data: release,
					Ack:  func() {},
					Nack: func(requeue bool) {
						if requeue {
							// 放回隊列尾端重試
							select {
							case q.ch <- release:
							default:
							}
						}
					},
				}
				select {
				case out <- d:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
