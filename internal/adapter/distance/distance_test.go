package distance

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Temutjin2k/delivery-dispatch/internal/domain/models"
	"github.com/Temutjin2k/delivery-dispatch/internal/domain/types"
	"github.com/Temutjin2k/delivery-dispatch/pkg/logger"
)

var points = []models.Coordinates{
	{Lat: -17.7833, Lng: -63.1821},
	{Lat: -17.7700, Lng: -63.1800},
}

const matrixResponse = `{
	"status": "OK",
	"origin_addresses": ["a", "b"],
	"destination_addresses": ["a", "b"],
	"rows": [
		{"elements": [
			{"status": "OK", "distance": {"text": "0 km", "value": 0}, "duration": {"text": "0 mins", "value": 0}},
			{"status": "OK", "distance": {"text": "1.5 km", "value": 1500}, "duration": {"text": "4 mins", "value": 240}}
		]},
		{"elements": [
			{"status": "ZERO_RESULTS"},
			{"status": "OK", "distance": {"text": "0 km", "value": 0}, "duration": {"text": "0 mins", "value": 0}}
		]}
	]
}`

func TestGoogle_Matrix(t *testing.T) {
	var query atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query.Store(r.URL.Query())
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(matrixResponse))
	}))
	defer srv.Close()

	g, err := NewGoogle("test-key", srv.URL, time.Second)
	require.NoError(t, err)

	m, err := g.Matrix(context.Background(), points)
	require.NoError(t, err)

	assert.Equal(t, 1.5, m.DistanceKm[0][1])
	assert.Equal(t, 4.0, m.DurationMin[0][1])
	assert.True(t, m.Unreachable(1, 0))
	assert.Equal(t, models.UnreachableSentinel, m.DistanceKm[1][0])
	assert.Zero(t, m.DistanceKm[1][1])

	q := query.Load()
	require.NotNil(t, q)
	values := q.(interface{ Get(string) string })
	assert.Equal(t, "-17.783300,-63.182100|-17.770000,-63.180000", values.Get("origins"))
	assert.Equal(t, "driving", values.Get("mode"))
}

func TestGoogle_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status": "OVER_QUERY_LIMIT", "rows": []}`))
	}))
	defer srv.Close()

	g, err := NewGoogle("test-key", srv.URL, time.Second)
	require.NoError(t, err)

	_, err = g.Matrix(context.Background(), points)
	assert.ErrorIs(t, err, types.ErrMatrixUnavailable)
}

func TestHaversine_Matrix(t *testing.T) {
	m, err := NewHaversine(30).Matrix(context.Background(), points)
	require.NoError(t, err)

	require.Equal(t, 2, m.Size())
	assert.Zero(t, m.DistanceKm[0][0])
	assert.InDelta(t, 1.47, m.DistanceKm[0][1], 0.05)
	assert.InDelta(t, m.DistanceKm[0][1]*2, m.DurationMin[0][1], 1e-9)
	assert.Equal(t, m.DistanceKm[0][1], m.DistanceKm[1][0])
}

type stubProvider struct {
	calls atomic.Int32
	err   error
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Matrix(_ context.Context, pts []models.Coordinates) (models.Matrix, error) {
	s.calls.Add(1)
	if s.err != nil {
		return models.Matrix{}, s.err
	}
	return models.NewMatrix(len(pts)), nil
}

func TestResilient_BreakerOpens(t *testing.T) {
	stub := &stubProvider{err: errors.New("upstream 500")}
	r := NewResilient(stub, ResilienceConfig{RequestsPerSecond: 1000, Burst: 10, BreakerFailures: 2, BreakerTimeout: time.Minute}, logger.Nop())

	for range 2 {
		_, err := r.Matrix(context.Background(), points)
		require.Error(t, err)
	}
	assert.Equal(t, "open", r.State())

	_, err := r.Matrix(context.Background(), points)
	assert.ErrorIs(t, err, types.ErrMatrixUnavailable)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), stub.calls.Load())
}

func TestResilient_RateLimitHonoursContext(t *testing.T) {
	stub := &stubProvider{}
	r := NewResilient(stub, ResilienceConfig{RequestsPerSecond: 0.001, Burst: 1, BreakerFailures: 5, BreakerTimeout: time.Minute}, logger.Nop())

	_, err := r.Matrix(context.Background(), points)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = r.Matrix(ctx, points)
	assert.ErrorIs(t, err, types.ErrMatrixUnavailable)
	assert.Equal(t, int32(1), stub.calls.Load())
}

func TestFallback(t *testing.T) {
	primary := &stubProvider{err: errors.New("down")}
	f := NewFallback(primary, NewHaversine(25), logger.Nop())

	m, err := f.Matrix(context.Background(), points)
	require.NoError(t, err)
	assert.Greater(t, m.DistanceKm[0][1], 1.0)
	assert.Equal(t, "stub+haversine", f.Name())

	primary.err = nil
	m, err = f.Matrix(context.Background(), points)
	require.NoError(t, err)
	assert.Zero(t, m.DistanceKm[0][1])
}
