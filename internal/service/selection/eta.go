package selection

import (
	"context"
	"fmt"

	"github.com/Temutjin2k/delivery-dispatch/internal/domain/models"
	"github.com/Temutjin2k/delivery-dispatch/internal/domain/types"
	"github.com/Temutjin2k/delivery-dispatch/internal/service/geo"
)

// HaversineETA is straight-line distance at a constant average speed.
type HaversineETA struct {
	AvgSpeedKmh float64
}

func NewHaversineETA(avgSpeedKmh float64) HaversineETA {
	return HaversineETA{AvgSpeedKmh: avgSpeedKmh}
}

func (h HaversineETA) ETAMinutes(_ context.Context, from, to models.Coordinates) (float64, error) {
	return geo.EstimateETAMinutes(from, to, h.AvgSpeedKmh), nil
}

// MatrixETA asks a distance-matrix provider for the road duration of one pair.
type MatrixETA struct {
	matrix MatrixProvider
}

func NewMatrixETA(matrix MatrixProvider) *MatrixETA {
	return &MatrixETA{matrix: matrix}
}

func (m *MatrixETA) ETAMinutes(ctx context.Context, from, to models.Coordinates) (float64, error) {
	const op = "MatrixETA.ETAMinutes"

	mx, err := m.matrix.Matrix(ctx, []models.Coordinates{from, to})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if mx.Size() != 2 {
		return 0, fmt.Errorf("%s: %w: matrix of size %d", op, types.ErrMatrixUnavailable, mx.Size())
	}
	if mx.Unreachable(0, 1) {
		return 0, fmt.Errorf("%s: %w", op, types.ErrUnreachableStop)
	}
	return mx.DurationMin[0][1], nil
}
