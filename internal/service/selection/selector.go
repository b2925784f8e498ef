package selection

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/Temutjin2k/delivery-dispatch/internal/domain/models"
	"github.com/Temutjin2k/delivery-dispatch/internal/domain/types"
	"github.com/Temutjin2k/delivery-dispatch/internal/service/geo"
	"github.com/Temutjin2k/delivery-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/delivery-dispatch/pkg/logger/wrapper"
)

// minutes per estimated km used for the provisional trip time before routing
const provisionalMinutesPerKm = 2.4

type Config struct {
	MaxDriverRadiusKm float64
	WeightEta         float64
	WeightIdleTime    float64
	BaseFee           float64
	PerOrderFee       float64
}

// Selector pairs batches with drivers greedily, oldest batch first, one driver per batch.
type Selector struct {
	drivers    DriverSource
	eta        ETAProvider
	restaurant models.Restaurant
	cfg        Config
	log        logger.Logger

	now func() time.Time
}

func New(drivers DriverSource, eta ETAProvider, restaurant models.Restaurant, cfg Config, log logger.Logger) *Selector {
	return &Selector{
		drivers:    drivers,
		eta:        eta,
		restaurant: restaurant,
		cfg:        cfg,
		log:        log,
		now:        time.Now,
	}
}

// LoadDrivers returns available drivers, minus the ones in exclude.
func (s *Selector) LoadDrivers(ctx context.Context, exclude map[int64]struct{}) ([]models.AvailableDriver, error) {
	const op = "Selector.LoadDrivers"

	drivers, err := s.drivers.AvailableDrivers(ctx)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	if len(exclude) == 0 {
		return drivers, nil
	}

	kept := make([]models.AvailableDriver, 0, len(drivers))
	for _, d := range drivers {
		if _, held := exclude[d.ID]; !held {
			kept = append(kept, d)
		}
	}
	return kept, nil
}

// FilterByRadius keeps drivers within MaxDriverRadiusKm of the restaurant.
func (s *Selector) FilterByRadius(drivers []models.AvailableDriver) []models.AvailableDriver {
	out := make([]models.AvailableDriver, 0, len(drivers))
	for _, d := range drivers {
		if geo.WithinRadius(s.restaurant.Coordinates, d.Coordinates, s.cfg.MaxDriverRadiusKm) {
			out = append(out, d)
		}
	}
	return out
}

// Score computes weightEta*eta - weightIdle*idle for driver. Lower is better.
func (s *Selector) Score(ctx context.Context, driver models.AvailableDriver) (models.DriverCandidate, error) {
	const op = "Selector.Score"

	eta, err := s.eta.ETAMinutes(ctx, driver.Coordinates, s.restaurant.Coordinates)
	if err != nil {
		return models.DriverCandidate{}, fmt.Errorf("%s: %w", op, err)
	}

	var idle float64
	if driver.LastCompletedAt != nil {
		idle = max(s.now().Sub(*driver.LastCompletedAt).Minutes(), 0)
	}

	return models.DriverCandidate{
		Driver:                 driver,
		DistanceToRestaurantKm: geo.HaversineKm(driver.Coordinates, s.restaurant.Coordinates),
		EtaMinutes:             eta,
		IdleMinutes:            idle,
		Score:                  s.cfg.WeightEta*eta - s.cfg.WeightIdleTime*idle,
	}, nil
}

// Best returns the lowest scoring candidate, the first one on ties. Nil when candidates is empty.
func Best(candidates []models.DriverCandidate) *models.DriverCandidate {
	if len(candidates) == 0 {
		return nil
	}
	best := 0
	for i := 1; i < len(candidates); i++ {
		if candidates[i].Score < candidates[best].Score {
			best = i
		}
	}
	c := candidates[best]
	return &c
}

// Assign pairs batches with drivers. Batches are served oldest first; each batch takes the best
// driver not reserved earlier in this call. Returns the assignments and the batches that got no
// driver. Running out of drivers is not an error.
func (s *Selector) Assign(ctx context.Context, batches []models.BatchProposal, drivers []models.AvailableDriver) ([]models.TentativeAssignment, []models.BatchProposal, error) {
	ctx = wrap.WithAction(ctx, types.ActionSelection)

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if len(batches) == 0 {
		s.log.Debug(ctx, "no batches to assign")
		return nil, nil, nil
	}

	eligible := s.FilterByRadius(drivers)
	s.log.Debug(ctx, "drivers filtered by radius",
		"eligible", len(eligible),
		"total", len(drivers),
		"radius_km", s.cfg.MaxDriverRadiusKm,
	)
	if len(eligible) == 0 {
		s.log.Info(ctx, "no drivers within radius of the restaurant", "radius_km", s.cfg.MaxDriverRadiusKm)
		return nil, batches, nil
	}

	// driver score does not depend on the batch, so each driver is scored once
	candidates := make([]models.DriverCandidate, 0, len(eligible))
	for _, d := range eligible {
		c, err := s.Score(ctx, d)
		if err != nil {
			s.log.Warn(wrap.WithDriverID(ctx, d.ID), "driver skipped: eta unavailable", "error", err.Error())
			continue
		}
		candidates = append(candidates, c)
	}

	ordered := slices.Clone(batches)
	slices.SortStableFunc(ordered, func(a, b models.BatchProposal) int {
		return cmp.Compare(a.OldestOrderTime.UnixNano(), b.OldestOrderTime.UnixNano())
	})

	var (
		assignments []models.TentativeAssignment
		unassigned  []models.BatchProposal
		reserved    = make(map[int64]struct{}, len(candidates))
	)

	for _, batch := range ordered {
		free := make([]models.DriverCandidate, 0, len(candidates))
		for _, c := range candidates {
			if _, taken := reserved[c.Driver.ID]; !taken {
				free = append(free, c)
			}
		}

		best := Best(free)
		if best == nil {
			s.log.Info(ctx, "no drivers left for batch", "temp_id", batch.TempID)
			unassigned = append(unassigned, batch)
			continue
		}

		reserved[best.Driver.ID] = struct{}{}
		assignments = append(assignments, models.TentativeAssignment{
			Batch:             batch,
			Driver:            best.Driver,
			DriverScore:       best.Score,
			DriverEtaMinutes:  best.EtaMinutes,
			TotalDistanceKm:   batch.EstimatedDistanceKm,
			TotalTimeMinutes:  best.EtaMinutes + batch.EstimatedDistanceKm*provisionalMinutesPerKm,
			EstimatedEarnings: s.Earnings(len(batch.Orders)),
		})

		s.log.Info(wrap.WithDriverID(ctx, best.Driver.ID), "batch paired with driver",
			"temp_id", batch.TempID,
			"score", best.Score,
			"eta_minutes", best.EtaMinutes,
			"idle_minutes", best.IdleMinutes,
		)
	}

	s.log.Info(ctx, "selection completed", "assigned", len(assignments), "unassigned", len(unassigned))

	return assignments, unassigned, nil
}

// Earnings is the flat fee plus a per-order fee.
func (s *Selector) Earnings(orders int) float64 {
	return s.cfg.BaseFee + float64(orders)*s.cfg.PerOrderFee
}
