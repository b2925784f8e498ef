package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Temutjin2k/delivery-dispatch/internal/domain/models"
	"github.com/Temutjin2k/delivery-dispatch/internal/domain/types"
)

type DriverRepo struct {
	db *pgxpool.Pool
}

func NewDriverRepo(db *pgxpool.Pool) *DriverRepo {
	return &DriverRepo{
		db: db,
	}
}

const lastCompletedQuery = `
	(SELECT max(b.end_time) FROM delivery_batches b
	 WHERE b.driver_id = d.id AND b.status = 'COMPLETED')`

func (r *DriverRepo) Get(ctx context.Context, driverID int64) (driver *models.Driver, err error) {
	const op = "DriverRepo.Get"
	defer func(start time.Time) { observe(op, start, err) }(time.Now())

	query := `
		SELECT d.id, d.user_id, d.name, d.phone, d.plate, d.status, d.latitude, d.longitude, d.updated_at,
			` + lastCompletedQuery + `
		FROM drivers d
		WHERE d.id = $1`

	driver, err = scanDriver(TxorDB(ctx, r.db).QueryRow(ctx, query, driverID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrDriverNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return driver, nil
}

// ListAvailable returns AVAILABLE drivers with their durable position, which may be nil.
func (r *DriverRepo) ListAvailable(ctx context.Context) (drivers []models.Driver, err error) {
	const op = "DriverRepo.ListAvailable"
	defer func(start time.Time) { observe(op, start, err) }(time.Now())

	query := `
		SELECT d.id, d.user_id, d.name, d.phone, d.plate, d.status, d.latitude, d.longitude, d.updated_at,
			` + lastCompletedQuery + `
		FROM drivers d
		WHERE d.status = $1
		ORDER BY d.id`

	rows, err := TxorDB(ctx, r.db).Query(ctx, query, types.DriverAvailable)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		drivers = append(drivers, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return drivers, nil
}

func scanDriver(row pgx.Row) (*models.Driver, error) {
	var (
		d        models.Driver
		userID   *int64
		lat, lng *float64
	)
	if err := row.Scan(
		&d.ID,
		&userID,
		&d.Name,
		&d.Phone,
		&d.Plate,
		&d.Status,
		&lat,
		&lng,
		&d.UpdatedAt,
		&d.LastCompletedAt,
	); err != nil {
		return nil, err
	}

	if userID != nil {
		d.UserID = *userID
	}
	if lat != nil && lng != nil {
		d.Position = &models.Coordinates{Lat: *lat, Lng: *lng}
	}
	return &d, nil
}

// ChangeStatus moves a driver from one status to another. It reports false when the driver
// was not in the from status.
func (r *DriverRepo) ChangeStatus(ctx context.Context, driverID int64, from, to types.DriverStatus) (changed bool, err error) {
	const op = "DriverRepo.ChangeStatus"
	defer func(start time.Time) { observe(op, start, err) }(time.Now())

	query := `
		UPDATE drivers
		SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2`

	tag, err := TxorDB(ctx, r.db).Exec(ctx, query, driverID, from, to)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return tag.RowsAffected() == 1, nil
}

// SavePosition stores the durable position of a driver.
func (r *DriverRepo) SavePosition(ctx context.Context, driverID int64, position models.Coordinates) (err error) {
	const op = "DriverRepo.SavePosition"
	defer func(start time.Time) { observe(op, start, err) }(time.Now())

	query := `
		UPDATE drivers
		SET latitude = $2, longitude = $3, updated_at = now()
		WHERE id = $1`

	tag, err := TxorDB(ctx, r.db).Exec(ctx, query, driverID, position.Lat, position.Lng)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrDriverNotFound
	}

	return nil
}

// Create inserts a driver and returns its id.
func (r *DriverRepo) Create(ctx context.Context, driver *models.Driver) (id int64, err error) {
	const op = "DriverRepo.Create"
	defer func(start time.Time) { observe(op, start, err) }(time.Now())

	query := `
		INSERT INTO drivers (user_id, name, phone, plate, status, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	var lat, lng *float64
	if driver.Position != nil {
		lat, lng = &driver.Position.Lat, &driver.Position.Lng
	}

	if err := TxorDB(ctx, r.db).QueryRow(ctx, query,
		driver.UserID,
		driver.Name,
		driver.Phone,
		driver.Plate,
		driver.Status,
		lat,
		lng,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}
