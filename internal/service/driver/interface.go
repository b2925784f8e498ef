package drivergo

import (
	"context"

	"github.com/Temutjin2k/delivery-dispatch/internal/domain/models"
	"github.com/Temutjin2k/delivery-dispatch/internal/domain/types"
)

/*=================Driver Repository======================*/

type DriverRepo interface {
	// Get returns types.ErrDriverNotFound for an unknown id.
	Get(ctx context.Context, driverID int64) (*models.Driver, error)
	ChangeStatus(ctx context.Context, driverID int64, from, to types.DriverStatus) (bool, error)
	SavePosition(ctx context.Context, driverID int64, position models.Coordinates) error
}

/*=================Location Cache=========================*/

type LocationCache interface {
	UpdatePosition(ctx context.Context, driverID int64, coords models.Coordinates) error
	Seed(ctx context.Context, driverID int64, durable models.Coordinates) (bool, error)
	LastKnown(ctx context.Context, driverID int64) (models.CachedLocation, error)
}

/*=================Offers=================================*/

type OfferLister interface {
	ListByDriver(driverID int64) []*models.TripOffer
}

/*========================Publisher=======================*/

type Publisher interface {
	PublishDriverStatus(ctx context.Context, msg models.DriverStatusMessage) error
}
