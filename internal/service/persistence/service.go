package persistence

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/Temutjin2k/delivery-dispatch/internal/domain/models"
	"github.com/Temutjin2k/delivery-dispatch/internal/domain/types"
	"github.com/Temutjin2k/delivery-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/delivery-dispatch/pkg/logger/wrapper"
)

// Service commits accepted offers.
type Service struct {
	trm     TxManager
	batches BatchRepo
	drivers DriverRepo
	log     logger.Logger

	now func() time.Time
}

func New(trm TxManager, batches BatchRepo, drivers DriverRepo, log logger.Logger) *Service {
	return &Service{
		trm:     trm,
		batches: batches,
		drivers: drivers,
		log:     log,
		now:     time.Now,
	}
}

// Persist writes the batch, its stops in route order and flips the driver to BUSY in one
// transaction. Nothing is committed when any step fails.
func (s *Service) Persist(ctx context.Context, offer *models.TripOffer) (models.PersistedBatch, error) {
	const op = "Service.Persist"
	ctx = wrap.WithOfferID(wrap.WithDriverID(ctx, offer.DriverID), offer.OfferID)

	route := offer.Internal.OptimizedRoute
	if len(route) == 0 {
		return models.PersistedBatch{}, wrap.Error(ctx, fmt.Errorf("%s: %w", op, types.ErrEmptyBatch))
	}

	var result models.PersistedBatch
	err := s.trm.Do(ctx, func(ctx context.Context) error {
		batchID, err := s.batches.CreateBatch(ctx, models.NewBatch{
			DriverID:          offer.DriverID,
			Status:            types.BatchAssigned,
			TotalDistanceKm:   offer.Summary.TotalDistanceKm,
			EstimatedMinutes:  offer.Summary.EstimatedTimeMinutes,
			EstimatedEarnings: offer.Summary.EstimatedEarnings,
			AssignedAt:        s.now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("create batch: %w", err)
		}

		stops := make([]models.NewStop, len(route))
		for i, st := range route {
			stops[i] = models.NewStop{
				BatchID:  batchID,
				OrderID:  st.OrderID,
				Sequence: st.Sequence,
				Status:   types.StopPending,
			}
		}

		persisted, err := s.batches.CreateStops(ctx, stops)
		if err != nil {
			return fmt.Errorf("create stops: %w", err)
		}

		changed, err := s.drivers.ChangeStatus(ctx, offer.DriverID, types.DriverAvailable, types.DriverBusy)
		if err != nil {
			return fmt.Errorf("change driver status: %w", err)
		}
		if !changed {
			return types.ErrDriverNotAvailable
		}

		result = models.PersistedBatch{BatchID: batchID, DriverID: offer.DriverID, Stops: persisted}
		return nil
	})
	if err != nil {
		return models.PersistedBatch{}, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	s.log.Info(wrap.WithBatchID(wrap.WithAction(ctx, types.ActionBatchPersisted), fmt.Sprint(result.BatchID)),
		"accepted offer persisted", "stops", len(result.Stops), "distance_km", math.Round(offer.Summary.TotalDistanceKm*100)/100)

	return result, nil
}

// HandleRejection records a rejected offer. Nothing is stored.
func (s *Service) HandleRejection(ctx context.Context, offerID string) {
	s.log.Info(wrap.WithOfferID(wrap.WithAction(ctx, types.ActionOfferRejected), offerID), "offer rejected by driver")
}

// HandleExpiration records an expired offer. Nothing is stored.
func (s *Service) HandleExpiration(ctx context.Context, offerID string) {
	s.log.Info(wrap.WithOfferID(wrap.WithAction(ctx, types.ActionOfferExpired), offerID), "offer expired without answer")
}
