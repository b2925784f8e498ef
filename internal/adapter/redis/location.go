package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Temutjin2k/delivery-dispatch/internal/domain/models"
	"github.com/Temutjin2k/delivery-dispatch/internal/domain/types"
)

const locationKeyFmt = "driver:%d:location"

func locationKey(driverID int64) string {
	return fmt.Sprintf(locationKeyFmt, driverID)
}

// LocationStore keeps the last known position of each driver as a JSON value with a TTL.
type LocationStore struct {
	client *redis.Client
}

func NewLocationStore(client *redis.Client) *LocationStore {
	return &LocationStore{client: client}
}

func (s *LocationStore) Set(ctx context.Context, driverID int64, loc models.CachedLocation, ttl time.Duration) error {
	const op = "LocationStore.Set"

	data, err := json.Marshal(loc)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.client.Set(ctx, locationKey(driverID), data, ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SetIfAbsent writes loc only when the driver has no entry and reports whether it wrote.
func (s *LocationStore) SetIfAbsent(ctx context.Context, driverID int64, loc models.CachedLocation, ttl time.Duration) (bool, error) {
	const op = "LocationStore.SetIfAbsent"

	data, err := json.Marshal(loc)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	ok, err := s.client.SetNX(ctx, locationKey(driverID), data, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return ok, nil
}

func (s *LocationStore) Get(ctx context.Context, driverID int64) (models.CachedLocation, error) {
	const op = "LocationStore.Get"

	data, err := s.client.Get(ctx, locationKey(driverID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.CachedLocation{}, types.ErrLocationNotFound
		}
		return models.CachedLocation{}, fmt.Errorf("%s: %w", op, err)
	}

	var loc models.CachedLocation
	if err := json.Unmarshal(data, &loc); err != nil {
		return models.CachedLocation{}, fmt.Errorf("%s: decode: %w", op, err)
	}
	return loc, nil
}

// GetMany fetches several drivers in one MGET. Missing and undecodable entries are left out.
func (s *LocationStore) GetMany(ctx context.Context, driverIDs []int64) (map[int64]models.CachedLocation, error) {
	const op = "LocationStore.GetMany"

	out := make(map[int64]models.CachedLocation, len(driverIDs))
	if len(driverIDs) == 0 {
		return out, nil
	}

	keys := make([]string, len(driverIDs))
	for i, id := range driverIDs {
		keys[i] = locationKey(id)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var loc models.CachedLocation
		if err := json.Unmarshal([]byte(raw), &loc); err != nil {
			continue
		}
		out[driverIDs[i]] = loc
	}
	return out, nil
}

func (s *LocationStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
