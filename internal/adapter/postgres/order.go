package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Temutjin2k/delivery-dispatch/internal/domain/models"
	"github.com/Temutjin2k/delivery-dispatch/internal/domain/types"
)

type OrderRepo struct {
	db *pgxpool.Pool
}

func NewOrderRepo(db *pgxpool.Pool) *OrderRepo {
	return &OrderRepo{db: db}
}

// EligibleOrders returns READY_FOR_PICKUP orders with coordinates, without a delivery stop and
// updated after since, oldest first.
func (r *OrderRepo) EligibleOrders(ctx context.Context, since time.Time) (orders []models.EligibleOrder, err error) {
	const op = "OrderRepo.EligibleOrders"
	defer func(start time.Time) { observe(op, start, err) }(time.Now())

	query := `
		SELECT o.id, o.customer_id, o.latitude, o.longitude, o.address, o.total::float8, o.notes, o.updated_at
		FROM orders o
		WHERE o.status = $1
			AND o.latitude IS NOT NULL
			AND o.longitude IS NOT NULL
			AND o.updated_at >= $2
			AND NOT EXISTS (SELECT 1 FROM delivery_stops s WHERE s.order_id = o.id)
		ORDER BY o.updated_at ASC, o.id ASC`

	rows, err := TxorDB(ctx, r.db).Query(ctx, query, types.OrderReadyForPickup, since)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	for rows.Next() {
		var o models.EligibleOrder
		if err := rows.Scan(
			&o.ID,
			&o.CustomerID,
			&o.Coordinates.Lat,
			&o.Coordinates.Lng,
			&o.Address,
			&o.Total,
			&o.Notes,
			&o.ReadyAt,
		); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return orders, nil
}

// MarkReady moves an order to READY_FOR_PICKUP and refreshes its ready time.
func (r *OrderRepo) MarkReady(ctx context.Context, orderID int64) (err error) {
	const op = "OrderRepo.MarkReady"
	defer func(start time.Time) { observe(op, start, err) }(time.Now())

	query := `
		UPDATE orders
		SET status = $2, updated_at = now()
		WHERE id = $1 AND status IN ($3, $4, $2)`

	tag, err := TxorDB(ctx, r.db).Exec(ctx, query, orderID, types.OrderReadyForPickup, types.OrderPending, types.OrderPreparing)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: order %d: %w", op, orderID, types.ErrNotFound)
	}

	return nil
}

// Create inserts an order and returns its id.
func (r *OrderRepo) Create(ctx context.Context, order models.EligibleOrder, status types.OrderStatus) (id int64, err error) {
	const op = "OrderRepo.Create"
	defer func(start time.Time) { observe(op, start, err) }(time.Now())

	query := `
		INSERT INTO orders (customer_id, status, address, latitude, longitude, total, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	if err := TxorDB(ctx, r.db).QueryRow(ctx, query,
		order.CustomerID,
		status,
		order.Address,
		order.Coordinates.Lat,
		order.Coordinates.Lng,
		order.Total,
		order.Notes,
	).Scan(&id); err != nil {
		if err == pgx.ErrNoRows {
			return 0, fmt.Errorf("%s: %w", op, types.ErrNotFound)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}
