package repository

import (
	"context"
	"fmt"
	"time"

	"go-ticket-reservation/internal/model"
	apperrors "go-ticket-reservation/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const reservationColumns = `id, reservation_id, customer_id, event_id, total_amount, status,
		cancelled_at, cancelled_by, cancel_reason, cancellation_type,
		converted_at, order_id, created_at, updated_at`

type PostgresReservationRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewPostgresReservationRepository(pool *pgxpool.Pool) ReservationRepository {
	return &PostgresReservationRepositoryImpl{
		pool: pool,
	}
}

func (r *PostgresReservationRepositoryImpl) Save(ctx context.Context, reservation *model.Reservation) (*model.Reservation, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if reservation.ReservationID == uuid.Nil {
		reservation.ReservationID = uuid.New()
	}

	query := `
		INSERT INTO reservations (
			reservation_id, customer_id, event_id, total_amount, status
		)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err = tx.QueryRow(ctx, query,
		reservation.ReservationID, reservation.CustomerID, reservation.EventID,
		reservation.TotalAmount, reservation.Status,
	).Scan(
		&reservation.ID,
		&reservation.CreatedAt,
		&reservation.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create reservation: %w", err)
	}

	// 項目列與預約同一交易寫入
	itemQuery := `
		INSERT INTO reservation_items (
			reservation_id, ticket_type_id, ticket_type_name, quantity, unit_price, subtotal
		)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, item := range reservation.Items {
		_, err := tx.Exec(ctx, itemQuery,
			reservation.ReservationID, item.TicketTypeID, item.TicketTypeName,
			item.Quantity, item.UnitPrice, item.Subtotal,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create reservation item: %w", err)
		}
	}

	return reservation, tx.Commit(ctx)
}

func (r *PostgresReservationRepositoryImpl) FindByID(ctx context.Context, reservationID uuid.UUID) (*model.Reservation, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM reservations
		WHERE reservation_id = $1
	`, reservationColumns)

	reservation, err := scanReservation(r.pool.QueryRow(ctx, query, reservationID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrReservationNotFound
		}
		return nil, err
	}

	items, err := r.loadItems(ctx, reservation.ReservationID)
	if err != nil {
		return nil, err
	}
	reservation.Items = items

	return reservation, nil
}

func (r *PostgresReservationRepositoryImpl) FindByCustomerID(ctx context.Context, customerID int) ([]*model.Reservation, error) {
	return r.findBy(ctx, "customer_id", customerID)
}

func (r *PostgresReservationRepositoryImpl) FindByEventID(ctx context.Context, eventID int) ([]*model.Reservation, error) {
	return r.findBy(ctx, "event_id", eventID)
}

// UpdateStatus 以 FOR UPDATE 鎖定該列後執行 mutate，
// 同一預約上的併發 cancel/convert 只會有一個在 ACTIVE 狀態下通過
func (r *PostgresReservationRepositoryImpl) UpdateStatus(ctx context.Context, reservationID uuid.UUID, mutate func(*model.Reservation) error) (*model.Reservation, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	lockQuery := fmt.Sprintf(`
		SELECT %s
		FROM reservations
		WHERE reservation_id = $1
		FOR UPDATE
	`, reservationColumns)

	reservation, err := scanReservation(tx.QueryRow(ctx, lockQuery, reservationID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrReservationNotFound
		}
		return nil, err
	}

	items, err := r.loadItems(ctx, reservation.ReservationID)
	if err != nil {
		return nil, err
	}
	reservation.Items = items

	if err := mutate(reservation); err != nil {
		return nil, err
	}

	updateQuery := `
		UPDATE reservations
		SET status = $1, cancelled_at = $2, cancelled_by = $3, cancel_reason = $4,
			cancellation_type = $5, converted_at = $6, order_id = $7, updated_at = $8
		WHERE reservation_id = $9
	`

	_, err = tx.Exec(ctx, updateQuery,
		reservation.Status, reservation.CancelledAt, reservation.CancelledBy,
		reservation.CancelReason, reservation.CancellationType,
		reservation.ConvertedAt, reservation.OrderID, time.Now().UTC(),
		reservationID,
	)
	if err != nil {
		return nil, err
	}

	return reservation, tx.Commit(ctx)
}

func (r *PostgresReservationRepositoryImpl) findBy(ctx context.Context, column string, value int) ([]*model.Reservation, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM reservations
		WHERE %s = $1
		ORDER BY created_at DESC
	`, reservationColumns, column)

	rows, err := r.pool.Query(ctx, query, value)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reservations := make([]*model.Reservation, 0)
	for rows.Next() {
		reservation, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, reservation)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, reservation := range reservations {
		items, err := r.loadItems(ctx, reservation.ReservationID)
		if err != nil {
			return nil, err
		}
		reservation.Items = items
	}

	return reservations, nil
}

func (r *PostgresReservationRepositoryImpl) loadItems(ctx context.Context, reservationID uuid.UUID) ([]model.ReservationItem, error) {
	query := `
		SELECT ticket_type_id, ticket_type_name, quantity, unit_price, subtotal
		FROM reservation_items
		WHERE reservation_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.ReservationItem, 0)
	for rows.Next() {
		var item model.ReservationItem
		err := rows.Scan(
			&item.TicketTypeID,
			&item.TicketTypeName,
			&item.Quantity,
			&item.UnitPrice,
			&item.Subtotal,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

func scanReservation(row pgx.Row) (*model.Reservation, error) {
	var reservation model.Reservation
	err := row.Scan(
		&reservation.ID,
		&reservation.ReservationID,
		&reservation.CustomerID,
		&reservation.EventID,
		&reservation.TotalAmount,
		&reservation.Status,
		&reservation.CancelledAt,
		&reservation.CancelledBy,
		&reservation.CancelReason,
		&reservation.CancellationType,
		&reservation.ConvertedAt,
		&reservation.OrderID,
		&reservation.CreatedAt,
		&reservation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}
