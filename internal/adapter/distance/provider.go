package distance

import (
	"context"

	"github.com/Temutjin2k/delivery-dispatch/internal/domain/models"
)

// Provider resolves an N×N distance/duration matrix for an ordered list of points.
// Pairs it cannot resolve carry models.UnreachableSentinel.
type Provider interface {
	Name() string
	Matrix(ctx context.Context, points []models.Coordinates) (models.Matrix, error)
}
