package persistence

import (
	"context"

	"github.com/Temutjin2k/delivery-dispatch/internal/domain/models"
	"github.com/Temutjin2k/delivery-dispatch/internal/domain/types"
)

type TxManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

/*====Batches====*/

type BatchRepo interface {
	CreateBatch(ctx context.Context, batch models.NewBatch) (int64, error)
	// CreateStops returns types.ErrOrderAlreadyBatched when an order already has a stop.
	CreateStops(ctx context.Context, stops []models.NewStop) ([]models.PersistedStop, error)
}

/*====Drivers====*/

type DriverRepo interface {
	// ChangeStatus moves the driver from one status to another and reports whether a row changed.
	ChangeStatus(ctx context.Context, driverID int64, from, to types.DriverStatus) (bool, error)
}
