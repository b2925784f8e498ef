package location

import (
	"context"
	"time"

	"github.com/Temutjin2k/delivery-dispatch/internal/domain/models"
)

/*====Cache====*/

// Cache stores the last known position of each driver with a TTL.
// Get returns types.ErrLocationNotFound on a miss.
type Cache interface {
	Set(ctx context.Context, driverID int64, loc models.CachedLocation, ttl time.Duration) error
	SetIfAbsent(ctx context.Context, driverID int64, loc models.CachedLocation, ttl time.Duration) (bool, error)
	Get(ctx context.Context, driverID int64) (models.CachedLocation, error)
	GetMany(ctx context.Context, driverIDs []int64) (map[int64]models.CachedLocation, error)
	Ping(ctx context.Context) error
}

/*====Drivers====*/

// DriverRepo lists drivers in AVAILABLE state with their durable position and idle reference.
type DriverRepo interface {
	ListAvailable(ctx context.Context) ([]models.Driver, error)
}
