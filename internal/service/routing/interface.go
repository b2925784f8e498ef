package routing

import (
	"context"

	"github.com/Temutjin2k/delivery-dispatch/internal/domain/models"
)

// MatrixProvider resolves a distance/duration matrix for an ordered list of points. Unresolvable
// pairs carry models.UnreachableSentinel instead of failing the call.
type MatrixProvider interface {
	Matrix(ctx context.Context, points []models.Coordinates) (models.Matrix, error)
}
