package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-ticket-reservation/internal/model"
	apperrors "go-ticket-reservation/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const ticketTypeColumns = `id, ticket_type_id, event_id, name, price, total_quantity,
		available_quantity, max_per_customer, status, sales_start_at, sales_end_at,
		created_at, updated_at`

// PostgresInventoryStoreImpl 以資料庫交易取代記憶體版的票種鎖：
// 條件式 UPDATE (WHERE available_quantity >= $1) 在 row lock 下完成 read-check-write
type PostgresInventoryStoreImpl struct {
	pool *pgxpool.Pool
}

func NewPostgresInventoryStore(pool *pgxpool.Pool) InventoryStore {
	return &PostgresInventoryStoreImpl{
		pool: pool,
	}
}

func (s *PostgresInventoryStoreImpl) DecrementAvailable(ctx context.Context, ticketTypeID uuid.UUID, quantity int) (bool, error) {
	if quantity <= 0 {
		return false, apperrors.ErrInvalidInput
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	// 條件式扣減，rows affected = 0 代表庫存不足或票種不存在
	query := `
		UPDATE ticket_types
		SET available_quantity = available_quantity - $1,
			status = CASE
				WHEN available_quantity - $1 = 0 AND status = 'ACTIVE' THEN 'SOLD_OUT'
				ELSE status
			END,
			updated_at = $2
		WHERE ticket_type_id = $3 AND available_quantity >= $1
	`

	result, err := tx.Exec(ctx, query, quantity, time.Now().UTC(), ticketTypeID)
	if err != nil {
		return false, err
	}

	if result.RowsAffected() == 0 {
		// 區分庫存不足與票種不存在
		var exists bool
		err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM ticket_types WHERE ticket_type_id = $1)`, ticketTypeID).Scan(&exists)
		if err != nil {
			return false, err
		}
		if !exists {
			return false, apperrors.ErrTicketTypeNotFound
		}
		return false, tx.Commit(ctx)
	}

	return true, tx.Commit(ctx)
}

func (s *PostgresInventoryStoreImpl) IncrementAvailable(ctx context.Context, ticketTypeID uuid.UUID, quantity int) (bool, error) {
	if quantity <= 0 {
		return false, apperrors.ErrInvalidInput
	}

	query := `
		UPDATE ticket_types
		SET available_quantity = LEAST(available_quantity + $1, total_quantity),
			status = CASE
				WHEN status = 'SOLD_OUT' AND LEAST(available_quantity + $1, total_quantity) > 0 THEN 'ACTIVE'
				ELSE status
			END,
			updated_at = $2
		WHERE ticket_type_id = $3
	`

	result, err := s.pool.Exec(ctx, query, quantity, time.Now().UTC(), ticketTypeID)
	if err != nil {
		return false, err
	}

	return result.RowsAffected() > 0, nil
}

func (s *PostgresInventoryStoreImpl) GetByID(ctx context.Context, ticketTypeID uuid.UUID) (*model.TicketType, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM ticket_types
		WHERE ticket_type_id = $1
	`, ticketTypeColumns)

	ticket, err := scanTicketType(s.pool.QueryRow(ctx, query, ticketTypeID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrTicketTypeNotFound
		}
		return nil, err
	}

	return ticket, nil
}

func (s *PostgresInventoryStoreImpl) GetByEventID(ctx context.Context, eventID int) ([]*model.TicketType, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM ticket_types
		WHERE event_id = $1
		ORDER BY created_at DESC
	`, ticketTypeColumns)

	rows, err := s.pool.Query(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := make([]*model.TicketType, 0)
	for rows.Next() {
		ticket, err := scanTicketType(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return tickets, nil
}

func (s *PostgresInventoryStoreImpl) Add(ctx context.Context, ticketType *model.TicketType) (*model.TicketType, error) {
	if ticketType.TotalQuantity < 0 || ticketType.Price < 0 || ticketType.MaxPerCustomer < 0 {
		return nil, apperrors.ErrInvalidInput
	}

	if ticketType.TicketTypeID == uuid.Nil {
		ticketType.TicketTypeID = uuid.New()
	}
	if ticketType.Status == "" {
		ticketType.Status = model.TicketTypeStatusActive
	}

	// 建立時可售數量等於總量
	query := fmt.Sprintf(`
		INSERT INTO ticket_types (
			ticket_type_id, event_id, name, price, total_quantity,
			available_quantity, max_per_customer, status, sales_start_at, sales_end_at
		)
		VALUES ($1, $2, $3, $4, $5, $5, $6, $7, $8, $9)
		RETURNING %s
	`, ticketTypeColumns)

	created, err := scanTicketType(s.pool.QueryRow(ctx, query,
		ticketType.TicketTypeID, ticketType.EventID, ticketType.Name, ticketType.Price,
		ticketType.TotalQuantity, ticketType.MaxPerCustomer, ticketType.Status,
		ticketType.SalesStartAt, ticketType.SalesEndAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create ticket type: %w", err)
	}

	return created, nil
}

func (s *PostgresInventoryStoreImpl) Update(ctx context.Context, ticketTypeID uuid.UUID, params model.UpdateTicketTypeParams) (*model.TicketType, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// 先鎖定該列，狀態轉換需要先讀當前狀態
	current, err := s.findByIDWithLock(ctx, tx, ticketTypeID)
	if err != nil {
		return nil, err
	}

	sets := []string{}
	args := []interface{}{}
	argPos := 1

	if params.Name != nil {
		sets = append(sets, fmt.Sprintf("name = $%d", argPos))
		args = append(args, *params.Name)
		argPos++
	}
	if params.Price != nil {
		if *params.Price < 0 {
			return nil, apperrors.ErrInvalidInput
		}
		sets = append(sets, fmt.Sprintf("price = $%d", argPos))
		args = append(args, *params.Price)
		argPos++
	}
	if params.MaxPerCustomer != nil {
		if *params.MaxPerCustomer < 0 {
			return nil, apperrors.ErrInvalidInput
		}
		sets = append(sets, fmt.Sprintf("max_per_customer = $%d", argPos))
		args = append(args, *params.MaxPerCustomer)
		argPos++
	}
	if params.Status != nil {
		if !params.Status.IsValid() || !current.Status.CanTransitionTo(*params.Status) {
			return nil, apperrors.ErrInvalidStatusTransition
		}
		sets = append(sets, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *params.Status)
		argPos++
	}
	if params.SalesStartAt != nil {
		sets = append(sets, fmt.Sprintf("sales_start_at = $%d", argPos))
		args = append(args, *params.SalesStartAt)
		argPos++
	}
	if params.SalesEndAt != nil {
		sets = append(sets, fmt.Sprintf("sales_end_at = $%d", argPos))
		args = append(args, *params.SalesEndAt)
		argPos++
	}

	if len(sets) == 0 {
		return nil, apperrors.ErrInvalidInput
	}

	sets = append(sets, fmt.Sprintf("updated_at = $%d", argPos))
	args = append(args, time.Now().UTC())
	argPos++

	args = append(args, ticketTypeID)

	query := fmt.Sprintf(`
		UPDATE ticket_types
		SET %s
		WHERE ticket_type_id = $%d
		RETURNING %s
	`, strings.Join(sets, ", "), argPos, ticketTypeColumns)

	updated, err := scanTicketType(tx.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, err
	}

	return updated, tx.Commit(ctx)
}

func (s *PostgresInventoryStoreImpl) Delete(ctx context.Context, ticketTypeID uuid.UUID) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM ticket_types WHERE ticket_type_id = $1`, ticketTypeID)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrTicketTypeNotFound
	}

	return nil
}

func (s *PostgresInventoryStoreImpl) findByIDWithLock(ctx context.Context, tx pgx.Tx, ticketTypeID uuid.UUID) (*model.TicketType, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM ticket_types
		WHERE ticket_type_id = $1
		FOR UPDATE
	`, ticketTypeColumns)

	ticket, err := scanTicketType(tx.QueryRow(ctx, query, ticketTypeID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrTicketTypeNotFound
		}
		return nil, err
	}

	return ticket, nil
}

func scanTicketType(row pgx.Row) (*model.TicketType, error) {
	var ticket model.TicketType
	err := row.Scan(
		&ticket.ID,
		&ticket.TicketTypeID,
		&ticket.EventID,
		&ticket.Name,
		&ticket.Price,
		&ticket.TotalQuantity,
		&ticket.AvailableQuantity,
		&ticket.MaxPerCustomer,
		&ticket.Status,
		&ticket.SalesStartAt,
		&ticket.SalesEndAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}
