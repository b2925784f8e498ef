package selection

import (
	"context"

	"github.com/Temutjin2k/delivery-dispatch/internal/domain/models"
)

/*====Drivers====*/

// DriverSource returns available drivers with their best known positions.
type DriverSource interface {
	AvailableDrivers(ctx context.Context) ([]models.AvailableDriver, error)
}

/*====ETA====*/

// ETAProvider estimates travel minutes between two points.
type ETAProvider interface {
	ETAMinutes(ctx context.Context, from, to models.Coordinates) (float64, error)
}

// MatrixProvider resolves a distance/duration matrix for an ordered list of points.
type MatrixProvider interface {
	Matrix(ctx context.Context, points []models.Coordinates) (models.Matrix, error)
}
