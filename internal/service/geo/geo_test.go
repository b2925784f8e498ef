package geo

import (
	"testing"

	"github.com/Temutjin2k/delivery-dispatch/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var plaza = models.Coordinates{Lat: -17.7833, Lng: -63.1821}

func TestHaversineKm(t *testing.T) {
	tests := []struct {
		name  string
		a, b  models.Coordinates
		want  float64
		delta float64
	}{
		{"same point", plaza, plaza, 0, 1e-9},
		{"one degree of latitude", models.Coordinates{Lat: 0, Lng: 0}, models.Coordinates{Lat: 1, Lng: 0}, 111.19, 0.01},
		{"almaty to astana", models.Coordinates{Lat: 43.2389, Lng: 76.8897}, models.Coordinates{Lat: 51.1694, Lng: 71.4491}, 970, 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, HaversineKm(tt.a, tt.b), tt.delta)
			assert.InDelta(t, HaversineKm(tt.a, tt.b), HaversineKm(tt.b, tt.a), 1e-9)
		})
	}
}

func TestWithinRadius(t *testing.T) {
	near := models.Coordinates{Lat: plaza.Lat + 0.01, Lng: plaza.Lng} // ~1.1 km
	far := models.Coordinates{Lat: plaza.Lat + 0.05, Lng: plaza.Lng}  // ~5.6 km

	assert.True(t, WithinRadius(plaza, near, 3))
	assert.False(t, WithinRadius(plaza, far, 3))
	assert.True(t, WithinRadius(plaza, plaza, 0))
}

func TestEstimateETAMinutes(t *testing.T) {
	a := models.Coordinates{Lat: 0, Lng: 0}
	b := models.Coordinates{Lat: 1, Lng: 0}

	// 111.19 km at 25 km/h
	assert.InDelta(t, 266.86, EstimateETAMinutes(a, b, 25), 0.1)
	assert.InDelta(t, 6.0, MinutesForKm(2.5, 25), 1e-9)
}

func TestDistanceMatrix(t *testing.T) {
	pts := []models.Coordinates{plaza, {Lat: -17.79, Lng: -63.18}, {Lat: -17.77, Lng: -63.19}}
	m := DistanceMatrix(pts)

	require.Len(t, m, 3)
	for i := range m {
		require.Len(t, m[i], 3)
		assert.Zero(t, m[i][i])
		for j := range m {
			assert.Equal(t, m[i][j], m[j][i])
		}
	}
	assert.InDelta(t, HaversineKm(pts[0], pts[2]), m[0][2], 1e-12)
	assert.Empty(t, DistanceMatrix(nil))
}

func TestCentroid(t *testing.T) {
	c := Centroid([]models.Coordinates{{Lat: 1, Lng: 2}, {Lat: 3, Lng: 4}})
	assert.Equal(t, models.Coordinates{Lat: 2, Lng: 3}, c)
	assert.Equal(t, models.Coordinates{}, Centroid(nil))
}
