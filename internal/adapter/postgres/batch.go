package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Temutjin2k/delivery-dispatch/internal/domain/models"
	"github.com/Temutjin2k/delivery-dispatch/internal/domain/types"
	"github.com/Temutjin2k/delivery-dispatch/pkg/postgres"
)

type BatchRepo struct {
	db *pgxpool.Pool
}

func NewBatchRepo(db *pgxpool.Pool) *BatchRepo {
	return &BatchRepo{db: db}
}

func (r *BatchRepo) CreateBatch(ctx context.Context, batch models.NewBatch) (id int64, err error) {
	const op = "BatchRepo.CreateBatch"
	defer func(start time.Time) { observe(op, start, err) }(time.Now())

	query := `
		INSERT INTO delivery_batches (driver_id, status, total_distance_km, estimated_minutes, estimated_earnings, assigned_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	if err := TxorDB(ctx, r.db).QueryRow(ctx, query,
		batch.DriverID,
		batch.Status,
		batch.TotalDistanceKm,
		batch.EstimatedMinutes,
		batch.EstimatedEarnings,
		batch.AssignedAt,
	).Scan(&id); err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return 0, fmt.Errorf("%s: %w", op, types.ErrDriverNotFound)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

// CreateStops inserts the stops in one round trip, in the given order.
func (r *BatchRepo) CreateStops(ctx context.Context, stops []models.NewStop) (persisted []models.PersistedStop, err error) {
	const op = "BatchRepo.CreateStops"
	defer func(start time.Time) { observe(op, start, err) }(time.Now())

	query := `
		INSERT INTO delivery_stops (batch_id, order_id, sequence, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	b := &pgx.Batch{}
	for _, s := range stops {
		b.Queue(query, s.BatchID, s.OrderID, s.Sequence, s.Status)
	}

	results := TxorDB(ctx, r.db).SendBatch(ctx, b)
	defer results.Close()

	persisted = make([]models.PersistedStop, 0, len(stops))
	for _, s := range stops {
		var id int64
		if err := results.QueryRow().Scan(&id); err != nil {
			switch {
			case postgres.IsUniqueViolation(err):
				return nil, fmt.Errorf("%s: order %d: %w", op, s.OrderID, types.ErrOrderAlreadyBatched)
			case postgres.IsForeignKeyViolation(err):
				return nil, fmt.Errorf("%s: order %d: %w", op, s.OrderID, types.ErrNotFound)
			}
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		persisted = append(persisted, models.PersistedStop{StopID: id, OrderID: s.OrderID, Sequence: s.Sequence})
	}

	return persisted, nil
}
