package routing

import (
	"context"
	"fmt"

	"github.com/Temutjin2k/delivery-dispatch/internal/domain/models"
	"github.com/Temutjin2k/delivery-dispatch/internal/domain/types"
	"github.com/Temutjin2k/delivery-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/delivery-dispatch/pkg/logger/wrapper"
)

// MaxStops bounds exact routing; 8 stops is 8! = 40320 permutations.
const MaxStops = 8

// Optimizer orders the stops of a batch starting from the restaurant.
type Optimizer struct {
	matrix     MatrixProvider
	restaurant models.Restaurant
	log        logger.Logger
}

func New(matrix MatrixProvider, restaurant models.Restaurant, log logger.Logger) *Optimizer {
	return &Optimizer{
		matrix:     matrix,
		restaurant: restaurant,
		log:        log,
	}
}

// Optimize returns the stops of batch in visiting order. A route that has to use an unreachable
// leg is returned together with an error wrapping types.ErrUnreachableStop.
func (o *Optimizer) Optimize(ctx context.Context, batch models.BatchProposal) ([]models.OptimizedStop, error) {
	const op = "Optimizer.Optimize"
	ctx = wrap.WithAction(ctx, types.ActionRouting)

	switch n := len(batch.Orders); {
	case n == 0:
		return nil, fmt.Errorf("%s: %w", op, types.ErrEmptyBatch)
	case n > MaxStops:
		return nil, fmt.Errorf("%s: %w: %d stops, max %d", op, types.ErrBatchTooLarge, n, MaxStops)
	}

	points := make([]models.Coordinates, 0, len(batch.Orders)+1)
	points = append(points, o.restaurant.Coordinates)
	for _, ord := range batch.Orders {
		points = append(points, ord.Coordinates)
	}

	mx, err := o.matrix.Matrix(ctx, points)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if mx.Size() != len(points) {
		return nil, fmt.Errorf("%s: %w: got %dx%d matrix for %d points", op, types.ErrMatrixUnavailable, mx.Size(), mx.Size(), len(points))
	}

	route := []int{0, 1}
	if len(batch.Orders) > 1 {
		route, _ = SolveTSP(mx.DistanceKm)
	}

	stops := make([]models.OptimizedStop, 0, len(batch.Orders))
	var unreachable []int64
	for i := 1; i < len(route); i++ {
		prev, cur := route[i-1], route[i]
		ord := batch.Orders[cur-1]

		if mx.Unreachable(prev, cur) {
			unreachable = append(unreachable, ord.ID)
		}

		stops = append(stops, models.OptimizedStop{
			OrderID:                ord.ID,
			Sequence:               i,
			Coordinates:            ord.Coordinates,
			Address:                ord.Address,
			DistanceFromPreviousKm: mx.DistanceKm[prev][cur],
			EtaFromPreviousMinutes: mx.DurationMin[prev][cur],
		})
	}

	if len(unreachable) > 0 {
		return stops, fmt.Errorf("%s: %w: orders %v", op, types.ErrUnreachableStop, unreachable)
	}

	distance, minutes := Totals(stops)
	o.log.Debug(ctx, "route optimized",
		"temp_id", batch.TempID,
		"stops", len(stops),
		"distance_km", distance,
		"minutes", minutes,
	)

	return stops, nil
}

// Totals sums leg distances and durations of a route.
func Totals(stops []models.OptimizedStop) (distanceKm, minutes float64) {
	for _, s := range stops {
		distanceKm += s.DistanceFromPreviousKm
		minutes += s.EtaFromPreviousMinutes
	}
	return distanceKm, minutes
}

// Apply stores the route on the assignment and replaces the provisional totals. Total time includes
// the driver's trip to the restaurant.
func Apply(a *models.TentativeAssignment, stops []models.OptimizedStop) {
	distance, minutes := Totals(stops)
	a.OptimizedRoute = stops
	a.TotalDistanceKm = distance
	a.TotalTimeMinutes = a.DriverEtaMinutes + minutes
}
