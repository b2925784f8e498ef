package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/Temutjin2k/delivery-dispatch/internal/domain/models"
	"github.com/Temutjin2k/delivery-dispatch/internal/domain/types"
	wrap "github.com/Temutjin2k/delivery-dispatch/pkg/logger/wrapper"
)

// accept persists an accepted offer and removes it whatever the outcome. On failure the
// driver holds nothing and the orders go back to the next run.
func (o *Orchestrator) accept(ctx context.Context, offerID string) (models.PersistedBatch, error) {
	const op = "Orchestrator.accept"
	ctx = wrap.WithOfferID(wrap.WithAction(ctx, types.ActionOfferAccepted), offerID)

	offer, err := o.offers.Accept(offerID)
	if err != nil {
		if isBenignRace(err) {
			o.l.Warn(ctx, "accept ignored", "reason", err.Error())
		}
		return models.PersistedBatch{}, fmt.Errorf("%s: %w", op, err)
	}
	ctx = wrap.WithDriverID(ctx, offer.DriverID)

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.PersistTimeout)
	batch, err := o.persister.Persist(pctx, offer)
	cancel()
	o.offers.Remove(offerID)

	if err != nil {
		o.l.Error(wrap.ErrorCtx(ctx, err), "accepted offer could not be persisted, driver released", err)
		o.requestRun(ctx)
		return models.PersistedBatch{}, fmt.Errorf("%s: %w", op, err)
	}

	ctx = wrap.WithBatchID(ctx, fmt.Sprint(batch.BatchID))
	now := o.now().UTC()

	if err := o.publisher.PublishBatchAssigned(ctx, models.BatchAssignedMessage{
		BatchID:   batch.BatchID,
		DriverID:  batch.DriverID,
		OfferID:   offerID,
		Stops:     batch.Stops,
		Timestamp: now,
	}); err != nil {
		o.l.Error(ctx, "failed to publish batch assignment", err)
	}
	o.publishOutcome(ctx, offer, types.OfferAccepted)

	o.l.Info(ctx, "offer accepted", "stops", len(batch.Stops))
	return batch, nil
}

func (o *Orchestrator) reject(ctx context.Context, offerID string) error {
	const op = "Orchestrator.reject"
	ctx = wrap.WithOfferID(wrap.WithAction(ctx, types.ActionOfferRejected), offerID)

	offer, err := o.offers.Reject(offerID)
	if err != nil {
		if isBenignRace(err) {
			o.l.Warn(ctx, "reject ignored", "reason", err.Error())
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	ctx = wrap.WithDriverID(ctx, offer.DriverID)

	o.persister.HandleRejection(ctx, offerID)
	o.publishOutcome(ctx, offer, types.OfferRejected)
	o.requestRun(ctx)

	return nil
}

func (o *Orchestrator) expired(ctx context.Context, offer *models.TripOffer) {
	ctx = wrap.WithDriverID(wrap.WithOfferID(wrap.WithAction(ctx, types.ActionOfferExpired), offer.OfferID), offer.DriverID)

	o.persister.HandleExpiration(ctx, offer.OfferID)
	o.publishOutcome(ctx, offer, types.OfferExpired)
	o.requestRun(ctx)
}

func (o *Orchestrator) publishOutcome(ctx context.Context, offer *models.TripOffer, outcome types.OfferOutcome) {
	msg := models.OfferOutcomeMessage{
		OfferID:   offer.OfferID,
		DriverID:  offer.DriverID,
		OrderIDs:  offer.Internal.OrderIDs,
		Outcome:   outcome,
		Timestamp: o.now().UTC(),
	}
	if err := o.publisher.PublishOfferOutcome(ctx, msg); err != nil {
		o.l.Error(ctx, "failed to publish offer outcome", err, "outcome", outcome.String())
	}
}

func isBenignRace(err error) bool {
	return errors.Is(err, types.ErrOfferNotFound) ||
		errors.Is(err, types.ErrOfferExpired) ||
		errors.Is(err, types.ErrOfferAlreadyResolved)
}
