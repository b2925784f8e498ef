package offer

import (
	"context"

	"github.com/Temutjin2k/delivery-dispatch/internal/domain/models"
)

/*====Driver channel====*/

// Notifier pushes a message to the real-time channel of one driver.
// It returns an error when the driver is not connected.
type Notifier interface {
	SendTo(driverID int64, msg any) error
}

/*====Geocoding====*/

// ReverseGeocoder names the area around a point.
type ReverseGeocoder interface {
	Zone(ctx context.Context, coords models.Coordinates) (string, error)
}

// ExpiryHandler is called once for every offer that expires, after it left the active set.
type ExpiryHandler func(offer *models.TripOffer)
