package models

// UnreachableSentinel marks a matrix pair the provider could not resolve, in both km and minutes.
const UnreachableSentinel = 9999.0

// Matrix holds pairwise distances (km) and durations (minutes) between an ordered list of points.
type Matrix struct {
	DistanceKm  [][]float64 `json:"distance_km"`
	DurationMin [][]float64 `json:"duration_min"`
}

func NewMatrix(n int) Matrix {
	m := Matrix{
		DistanceKm:  make([][]float64, n),
		DurationMin: make([][]float64, n),
	}
	for i := range n {
		m.DistanceKm[i] = make([]float64, n)
		m.DurationMin[i] = make([]float64, n)
	}
	return m
}

func (m Matrix) Size() int {
	return len(m.DistanceKm)
}

// Unreachable reports whether the pair i->j carries the failure sentinel.
func (m Matrix) Unreachable(i, j int) bool {
	return m.DistanceKm[i][j] >= UnreachableSentinel || m.DurationMin[i][j] >= UnreachableSentinel
}
