package location

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Temutjin2k/delivery-dispatch/internal/domain/models"
	"github.com/Temutjin2k/delivery-dispatch/internal/domain/types"
	"github.com/Temutjin2k/delivery-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/delivery-dispatch/pkg/logger/wrapper"
)

const pingTimeout = 500 * time.Millisecond

// Service is the driver position cache with a durable-store fallback. Cache failures degrade to
// durable positions; the degradation is logged once per outage.
type Service struct {
	cache   Cache
	drivers DriverRepo
	ttl     time.Duration
	log     logger.Logger

	degraded atomic.Bool
	now      func() time.Time
}

func New(cache Cache, drivers DriverRepo, ttl time.Duration, log logger.Logger) *Service {
	return &Service{
		cache:   cache,
		drivers: drivers,
		ttl:     ttl,
		log:     log,
		now:     time.Now,
	}
}

// UpdatePosition stores a GPS position and refreshes its TTL.
func (s *Service) UpdatePosition(ctx context.Context, driverID int64, coords models.Coordinates) error {
	const op = "Service.UpdatePosition"

	loc := models.CachedLocation{
		Lat:       coords.Lat,
		Lng:       coords.Lng,
		Timestamp: s.now().UTC(),
		Source:    types.SourceGPS,
	}

	if err := s.cache.Set(ctx, driverID, loc, s.ttl); err != nil {
		s.markDegraded(ctx, err)
		return wrap.Error(ctx, fmt.Errorf("%s: %w: %w", op, types.ErrCacheUnavailable, err))
	}
	s.markHealthy(ctx)

	return nil
}

// Seed puts the durable position into the cache when the driver has no cached entry.
// Reports whether it wrote.
func (s *Service) Seed(ctx context.Context, driverID int64, durable models.Coordinates) (bool, error) {
	const op = "Service.Seed"

	loc := models.CachedLocation{
		Lat:       durable.Lat,
		Lng:       durable.Lng,
		Timestamp: s.now().UTC(),
		Source:    types.SourceDatabase,
	}

	ok, err := s.cache.SetIfAbsent(ctx, driverID, loc, s.ttl)
	if err != nil {
		s.markDegraded(ctx, err)
		return false, wrap.Error(ctx, fmt.Errorf("%s: %w: %w", op, types.ErrCacheUnavailable, err))
	}
	s.markHealthy(ctx)

	return ok, nil
}

// LastKnown returns the cached entry of driverID.
func (s *Service) LastKnown(ctx context.Context, driverID int64) (models.CachedLocation, error) {
	const op = "Service.LastKnown"

	loc, err := s.cache.Get(ctx, driverID)
	if err != nil {
		if errors.Is(err, types.ErrLocationNotFound) {
			return models.CachedLocation{}, err
		}
		s.markDegraded(ctx, err)
		return models.CachedLocation{}, fmt.Errorf("%s: %w: %w", op, types.ErrCacheUnavailable, err)
	}
	s.markHealthy(ctx)

	return loc, nil
}

// Position returns the best known position of driverID: the cache, else fallback.
// fromDB is true when fallback was used.
func (s *Service) Position(ctx context.Context, driverID int64, fallback *models.Coordinates) (coords models.Coordinates, fromDB bool, err error) {
	loc, err := s.LastKnown(ctx, driverID)
	if err == nil {
		return loc.Coordinates(), false, nil
	}
	if fallback == nil {
		return models.Coordinates{}, false, types.ErrLocationNotFound
	}
	return *fallback, true, nil
}

// Available pings the cache.
func (s *Service) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := s.cache.Ping(ctx); err != nil {
		s.markDegraded(ctx, err)
		return false
	}
	s.markHealthy(ctx)
	return true
}

// AvailableDrivers returns AVAILABLE drivers with their best known coordinates. Drivers with
// neither a cached nor a durable position are left out.
func (s *Service) AvailableDrivers(ctx context.Context) ([]models.AvailableDriver, error) {
	const op = "Service.AvailableDrivers"

	drivers, err := s.drivers.ListAvailable(ctx)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	if len(drivers) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(drivers))
	for i, d := range drivers {
		ids[i] = d.ID
	}

	cached, err := s.cache.GetMany(ctx, ids)
	if err != nil {
		s.markDegraded(ctx, err)
		cached = nil
	} else {
		s.markHealthy(ctx)
	}

	out := make([]models.AvailableDriver, 0, len(drivers))
	var fromDB int
	for _, d := range drivers {
		ad := models.AvailableDriver{
			ID:              d.ID,
			UserID:          d.UserID,
			Name:            d.Name,
			Phone:           d.Phone,
			Plate:           d.Plate,
			LastCompletedAt: d.LastCompletedAt,
		}

		if loc, ok := cached[d.ID]; ok {
			ad.Coordinates = loc.Coordinates()
		} else if d.Position != nil {
			ad.Coordinates = *d.Position
			ad.FromDatabase = true
			fromDB++
		} else {
			s.log.Debug(wrap.WithDriverID(ctx, d.ID), "driver has no known position")
			continue
		}

		out = append(out, ad)
	}

	if fromDB > 0 {
		s.log.Debug(ctx, "driver positions taken from database", "count", fromDB, "total", len(out))
	}

	return out, nil
}

func (s *Service) markDegraded(ctx context.Context, err error) {
	if s.degraded.CompareAndSwap(false, true) {
		s.log.Warn(wrap.WithAction(ctx, types.ActionCacheDegraded),
			"location cache unavailable, using database positions", "error", err.Error())
	}
}

func (s *Service) markHealthy(ctx context.Context) {
	if s.degraded.CompareAndSwap(true, false) {
		s.log.Info(wrap.WithAction(ctx, types.ActionCacheRecovered), "location cache recovered")
	}
}
