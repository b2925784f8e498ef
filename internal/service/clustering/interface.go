package clustering

import (
	"context"
	"time"

	"github.com/Temutjin2k/delivery-dispatch/internal/domain/models"
)

/*====Orders====*/

// OrderSource returns orders that are ready for pickup, geolocated, not attached to a delivery
// stop and updated after since, oldest first.
type OrderSource interface {
	EligibleOrders(ctx context.Context, since time.Time) ([]models.EligibleOrder, error)
}
