package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Temutjin2k/delivery-dispatch/internal/domain/models"
	"github.com/Temutjin2k/delivery-dispatch/internal/domain/types"
)

func newStore(t *testing.T) (*LocationStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLocationStore(client), mr
}

var at = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestLocationStore_SetGet(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()

	loc := models.CachedLocation{Lat: -17.78, Lng: -63.18, Timestamp: at, Source: types.SourceGPS}
	require.NoError(t, s.Set(ctx, 7, loc, 10*time.Minute))

	got, err := s.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, loc, got)

	assert.Equal(t, 10*time.Minute, mr.TTL("driver:7:location"))
	raw, err := mr.Get("driver:7:location")
	require.NoError(t, err)
	assert.JSONEq(t, `{"lat":-17.78,"lng":-63.18,"timestamp":"2025-03-01T12:00:00Z","source":"gps"}`, raw)
}

func TestLocationStore_Expires(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, 1, models.CachedLocation{Lat: 1, Lng: 2}, time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err := s.Get(ctx, 1)
	assert.ErrorIs(t, err, types.ErrLocationNotFound)
}

func TestLocationStore_SetIfAbsent(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	gps := models.CachedLocation{Lat: 1, Lng: 1, Source: types.SourceGPS}
	db := models.CachedLocation{Lat: 2, Lng: 2, Source: types.SourceDatabase}

	ok, err := s.SetIfAbsent(ctx, 1, gps, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.SetIfAbsent(ctx, 1, db, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := s.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, types.SourceGPS, got.Source)
}

func TestLocationStore_GetMany(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, 1, models.CachedLocation{Lat: 1, Lng: 1}, time.Minute))
	require.NoError(t, s.Set(ctx, 3, models.CachedLocation{Lat: 3, Lng: 3}, time.Minute))
	require.NoError(t, mr.Set("driver:4:location", "not json"))

	got, err := s.GetMany(ctx, []int64{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 3.0, got[3].Lat)

	empty, err := s.GetMany(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestLocationStore_Down(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()
	mr.Close()

	assert.Error(t, s.Ping(ctx))
	_, err := s.Get(ctx, 1)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, types.ErrLocationNotFound)
}
