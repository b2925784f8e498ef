package distance

import (
	"context"

	"github.com/Temutjin2k/delivery-dispatch/internal/domain/models"
	"github.com/Temutjin2k/delivery-dispatch/internal/domain/types"
	"github.com/Temutjin2k/delivery-dispatch/internal/service/geo"
)

// Haversine derives the matrix from great-circle distances at a constant average speed.
type Haversine struct {
	avgSpeedKmh float64
}

func NewHaversine(avgSpeedKmh float64) *Haversine {
	return &Haversine{avgSpeedKmh: avgSpeedKmh}
}

func (h *Haversine) Name() string {
	return string(types.ETAHaversine)
}

func (h *Haversine) Matrix(_ context.Context, points []models.Coordinates) (models.Matrix, error) {
	m := models.NewMatrix(len(points))
	m.DistanceKm = geo.DistanceMatrix(points)
	for i := range m.DistanceKm {
		for j, km := range m.DistanceKm[i] {
			m.DurationMin[i][j] = geo.MinutesForKm(km, h.avgSpeedKmh)
		}
	}
	return m, nil
}
