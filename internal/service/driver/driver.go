package drivergo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Temutjin2k/delivery-dispatch/internal/domain/models"
	"github.com/Temutjin2k/delivery-dispatch/internal/domain/types"
	"github.com/Temutjin2k/delivery-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/delivery-dispatch/pkg/logger/wrapper"
)

/*
Service tracks driver presence on the real-time channel: it moves drivers between
OFFLINE and AVAILABLE, keeps the location cache warm and hands back live offers on reconnect.
*/
type Service struct {
	drivers   DriverRepo
	locations LocationCache
	offers    OfferLister
	publisher Publisher
	l         logger.Logger

	now func() time.Time
}

func New(drivers DriverRepo, locations LocationCache, offers OfferLister, publisher Publisher, l logger.Logger) *Service {
	return &Service{
		drivers:   drivers,
		locations: locations,
		offers:    offers,
		publisher: publisher,
		l:         l,
		now:       time.Now,
	}
}

// Connect marks an OFFLINE driver AVAILABLE, seeds the cache from the durable position and
// returns the driver's live offers for resync. A BUSY driver keeps its status.
func (s *Service) Connect(ctx context.Context, driverID int64) (*models.Driver, []*models.TripOffer, error) {
	const op = "Service.Connect"
	ctx = wrap.WithDriverID(wrap.WithAction(ctx, types.ActionDriverConnected), driverID)

	driver, err := s.drivers.Get(ctx, driverID)
	if err != nil {
		return nil, nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	if driver.Status == types.DriverOffline {
		changed, err := s.drivers.ChangeStatus(ctx, driverID, types.DriverOffline, types.DriverAvailable)
		if err != nil {
			return nil, nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
		}
		if changed {
			driver.Status = types.DriverAvailable
			s.publishStatus(ctx, driverID, types.DriverAvailable)
		}
	}

	if driver.Position != nil {
		if seeded, err := s.locations.Seed(ctx, driverID, *driver.Position); err != nil {
			s.l.Warn(ctx, "failed to seed location cache", "error", err.Error())
		} else if seeded {
			s.l.Debug(ctx, "location cache seeded from database position")
		}
	} else {
		s.l.Warn(ctx, "driver has no durable position to seed the cache")
	}

	s.l.Info(ctx, "driver connected", "status", driver.Status)

	return driver, s.offers.ListByDriver(driverID), nil
}

// Disconnect stores the last cached position as the durable one and marks an AVAILABLE driver OFFLINE.
func (s *Service) Disconnect(ctx context.Context, driverID int64) error {
	const op = "Service.Disconnect"
	ctx = wrap.WithDriverID(wrap.WithAction(ctx, types.ActionDriverDisconnect), driverID)

	loc, err := s.locations.LastKnown(ctx, driverID)
	switch {
	case err == nil:
		if err := s.drivers.SavePosition(ctx, driverID, loc.Coordinates()); err != nil {
			s.l.Error(ctx, "failed to save last position", err)
		}
	case errors.Is(err, types.ErrLocationNotFound):
		s.l.Debug(ctx, "no cached position to save")
	default:
		s.l.Warn(ctx, "last position unavailable", "error", err.Error())
	}

	changed, err := s.drivers.ChangeStatus(ctx, driverID, types.DriverAvailable, types.DriverOffline)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	if changed {
		s.publishStatus(ctx, driverID, types.DriverOffline)
	}

	s.l.Info(ctx, "driver disconnected", "status_changed", changed)
	return nil
}

// UpdateLocation refreshes the cached GPS position of a driver.
func (s *Service) UpdateLocation(ctx context.Context, driverID int64, coords models.Coordinates) error {
	const op = "Service.UpdateLocation"
	ctx = wrap.WithDriverID(wrap.WithAction(ctx, types.ActionLocationUpdate), driverID)

	if err := s.locations.UpdatePosition(ctx, driverID, coords); err != nil {
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	return nil
}

func (s *Service) publishStatus(ctx context.Context, driverID int64, status types.DriverStatus) {
	msg := models.DriverStatusMessage{DriverID: driverID, Status: status, Timestamp: s.now().UTC()}
	if err := s.publisher.PublishDriverStatus(ctx, msg); err != nil {
		s.l.Error(ctx, "failed to publish driver status", err)
	}
}
