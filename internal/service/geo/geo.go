// Package geo holds great-circle helpers used across the assignment pipeline.
package geo

import (
	"math"

	"github.com/Temutjin2k/delivery-dispatch/internal/domain/models"
)

const (
	EarthRadiusKm = 6371.0
	// KmPerDegree is the local approximation of one degree of latitude.
	KmPerDegree = 111.0
)

func degreesToRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// HaversineKm returns the great-circle distance between a and b in kilometers.
func HaversineKm(a, b models.Coordinates) float64 {
	lat1 := degreesToRadians(a.Lat)
	lat2 := degreesToRadians(b.Lat)
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLng := degreesToRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLng/2)*math.Sin(dLng/2)*math.Cos(lat1)*math.Cos(lat2)

	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// WithinRadius reports whether p lies within radiusKm of center, boundary included.
func WithinRadius(center, p models.Coordinates, radiusKm float64) bool {
	return HaversineKm(center, p) <= radiusKm
}

// MinutesForKm converts a distance to travel minutes at avgSpeedKmh.
func MinutesForKm(km, avgSpeedKmh float64) float64 {
	if avgSpeedKmh <= 0 {
		return math.Inf(1)
	}
	return km / avgSpeedKmh * 60
}

// EstimateETAMinutes is the straight-line travel time from a to b.
func EstimateETAMinutes(a, b models.Coordinates, avgSpeedKmh float64) float64 {
	return MinutesForKm(HaversineKm(a, b), avgSpeedKmh)
}

// DistanceMatrix returns the symmetric haversine matrix of points, zero on the diagonal.
func DistanceMatrix(points []models.Coordinates) [][]float64 {
	n := len(points)
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
	}
	for i := range n {
		for j := i + 1; j < n; j++ {
			d := HaversineKm(points[i], points[j])
			m[i][j] = d
			m[j][i] = d
		}
	}
	return m
}

// Centroid is the arithmetic mean of points. Zero value for an empty slice.
func Centroid(points []models.Coordinates) models.Coordinates {
	if len(points) == 0 {
		return models.Coordinates{}
	}
	var lat, lng float64
	for _, p := range points {
		lat += p.Lat
		lng += p.Lng
	}
	n := float64(len(points))
	return models.Coordinates{Lat: lat / n, Lng: lng / n}
}

// KmToDegrees converts a radius to the degree space used by clustering.
func KmToDegrees(km float64) float64 {
	return km / KmPerDegree
}

// EuclideanDegrees is the planar distance between a and b in degrees.
func EuclideanDegrees(a, b models.Coordinates) float64 {
	return math.Hypot(a.Lat-b.Lat, a.Lng-b.Lng)
}
