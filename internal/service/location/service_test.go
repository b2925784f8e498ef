package location

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Temutjin2k/delivery-dispatch/internal/domain/models"
	"github.com/Temutjin2k/delivery-dispatch/internal/domain/types"
	"github.com/Temutjin2k/delivery-dispatch/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memCache struct {
	mu   sync.Mutex
	data map[int64]models.CachedLocation
	err  error
}

func newMemCache() *memCache {
	return &memCache{data: make(map[int64]models.CachedLocation)}
}

func (c *memCache) Set(_ context.Context, id int64, loc models.CachedLocation, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.data[id] = loc
	return nil
}

func (c *memCache) SetIfAbsent(_ context.Context, id int64, loc models.CachedLocation, _ time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return false, c.err
	}
	if _, ok := c.data[id]; ok {
		return false, nil
	}
	c.data[id] = loc
	return true, nil
}

func (c *memCache) Get(_ context.Context, id int64) (models.CachedLocation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return models.CachedLocation{}, c.err
	}
	loc, ok := c.data[id]
	if !ok {
		return models.CachedLocation{}, types.ErrLocationNotFound
	}
	return loc, nil
}

func (c *memCache) GetMany(_ context.Context, ids []int64) (map[int64]models.CachedLocation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	out := make(map[int64]models.CachedLocation)
	for _, id := range ids {
		if loc, ok := c.data[id]; ok {
			out[id] = loc
		}
	}
	return out, nil
}

func (c *memCache) Ping(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

type stubDrivers struct {
	drivers []models.Driver
	err     error
}

func (s stubDrivers) ListAvailable(context.Context) ([]models.Driver, error) {
	return s.drivers, s.err
}

var (
	durable = models.Coordinates{Lat: -17.78, Lng: -63.18}
	gps     = models.Coordinates{Lat: -17.79, Lng: -63.19}
)

func TestUpdatePosition_ThenLastKnown(t *testing.T) {
	cache := newMemCache()
	s := New(cache, stubDrivers{}, 10*time.Minute, logger.Nop())
	ctx := context.Background()

	require.NoError(t, s.UpdatePosition(ctx, 7, gps))

	loc, err := s.LastKnown(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, gps, loc.Coordinates())
	assert.Equal(t, types.SourceGPS, loc.Source)

	_, err = s.LastKnown(ctx, 8)
	assert.ErrorIs(t, err, types.ErrLocationNotFound)
}

func TestSeed_DoesNotOverwriteGPS(t *testing.T) {
	cache := newMemCache()
	s := New(cache, stubDrivers{}, time.Minute, logger.Nop())
	ctx := context.Background()

	require.NoError(t, s.UpdatePosition(ctx, 1, gps))

	wrote, err := s.Seed(ctx, 1, durable)
	require.NoError(t, err)
	assert.False(t, wrote)

	wrote, err = s.Seed(ctx, 2, durable)
	require.NoError(t, err)
	assert.True(t, wrote)

	loc, err := s.LastKnown(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, types.SourceDatabase, loc.Source)
}

func TestPosition_Fallback(t *testing.T) {
	cache := newMemCache()
	s := New(cache, stubDrivers{}, time.Minute, logger.Nop())
	ctx := context.Background()

	c, fromDB, err := s.Position(ctx, 1, &durable)
	require.NoError(t, err)
	assert.True(t, fromDB)
	assert.Equal(t, durable, c)

	_, _, err = s.Position(ctx, 1, nil)
	assert.ErrorIs(t, err, types.ErrLocationNotFound)

	require.NoError(t, s.UpdatePosition(ctx, 1, gps))
	c, fromDB, err = s.Position(ctx, 1, &durable)
	require.NoError(t, err)
	assert.False(t, fromDB)
	assert.Equal(t, gps, c)
}

func TestAvailableDrivers_PrefersCache(t *testing.T) {
	cache := newMemCache()
	repo := stubDrivers{drivers: []models.Driver{
		{ID: 1, Name: "cached", Position: &durable},
		{ID: 2, Name: "durable", Position: &durable},
		{ID: 3, Name: "nowhere"},
	}}
	s := New(cache, repo, time.Minute, logger.Nop())
	ctx := context.Background()
	require.NoError(t, s.UpdatePosition(ctx, 1, gps))

	got, err := s.AvailableDrivers(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, gps, got[0].Coordinates)
	assert.False(t, got[0].FromDatabase)

	assert.Equal(t, int64(2), got[1].ID)
	assert.Equal(t, durable, got[1].Coordinates)
	assert.True(t, got[1].FromDatabase)
}

func TestAvailableDrivers_CacheDownUsesDatabase(t *testing.T) {
	cache := newMemCache()
	cache.err = errors.New("connection refused")
	repo := stubDrivers{drivers: []models.Driver{{ID: 1, Position: &durable}}}
	s := New(cache, repo, time.Minute, logger.Nop())
	ctx := context.Background()

	got, err := s.AvailableDrivers(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].FromDatabase)
	assert.True(t, s.degraded.Load())
	assert.False(t, s.Available(ctx))

	cache.mu.Lock()
	cache.err = nil
	cache.mu.Unlock()

	assert.True(t, s.Available(ctx))
	assert.False(t, s.degraded.Load())
}

func TestAvailableDrivers_RepoError(t *testing.T) {
	s := New(newMemCache(), stubDrivers{err: errors.New("db down")}, time.Minute, logger.Nop())

	_, err := s.AvailableDrivers(context.Background())
	assert.Error(t, err)
}

func TestUpdatePosition_CacheDown(t *testing.T) {
	cache := newMemCache()
	cache.err = errors.New("timeout")
	s := New(cache, stubDrivers{}, time.Minute, logger.Nop())

	err := s.UpdatePosition(context.Background(), 1, gps)
	assert.ErrorIs(t, err, types.ErrCacheUnavailable)
}
