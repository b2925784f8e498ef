package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/Temutjin2k/delivery-dispatch/internal/domain/models"
	"github.com/Temutjin2k/delivery-dispatch/internal/domain/types"
	"github.com/Temutjin2k/delivery-dispatch/internal/service/routing"
	wrap "github.com/Temutjin2k/delivery-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/delivery-dispatch/pkg/metrics"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// execute runs clustering, selection, routing and offer dispatch once. Only failures of the
// order and driver queries abort the run; a failing batch is skipped.
func (o *Orchestrator) execute(ctx context.Context) (summary RunSummary, err error) {
	const op = "Orchestrator.execute"

	summary.RunID = uuid.NewString()
	ctx = wrap.WithRunID(ctx, summary.RunID)
	start := o.now()

	defer func() {
		summary.Duration = o.now().Sub(start)
		metrics.RecordDispatchRun(err, summary.Batches, summary.Assignments, summary.Duration)

		fctx := wrap.WithAction(ctx, types.ActionRunFinished)
		if err != nil {
			o.l.Error(fctx, "dispatch run failed", err, "duration", summary.Duration.String())
			return
		}
		o.l.Info(fctx, "dispatch run finished",
			"batches", summary.Batches,
			"assignments", summary.Assignments,
			"routing_failures", summary.RoutingFailures,
			"offers", summary.Offers,
			"duration", summary.Duration.String())
	}()

	o.l.Info(wrap.WithAction(ctx, types.ActionRunStarted), "dispatch run started")

	batches, err := o.clusterer.CreateBatches(ctx, o.offers.HeldOrderIDs())
	if err != nil {
		return summary, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	summary.Batches = len(batches)
	if len(batches) == 0 {
		o.l.Info(ctx, "no eligible orders")
		return summary, nil
	}

	drivers, err := o.selector.LoadDrivers(ctx, o.offers.HeldDriverIDs())
	if err != nil {
		return summary, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	assignments, unassigned, err := o.selector.Assign(ctx, batches, drivers)
	if err != nil {
		return summary, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	if len(assignments) == 0 {
		o.l.Info(ctx, "no drivers available for pending batches", "batches", len(batches), "drivers", len(drivers))
		return summary, nil
	}

	routed, freed := o.route(ctx, assignments)
	summary.RoutingFailures = len(freed)

	// drivers whose batch could not be routed get one more chance at the batches left over
	if len(freed) > 0 && len(unassigned) > 0 {
		extra, _, err := o.selector.Assign(ctx, unassigned, freed)
		if err != nil {
			o.l.Error(wrap.WithAction(ctx, types.ActionSelection), "reassignment of freed drivers failed", err)
		} else if len(extra) > 0 {
			o.l.Info(wrap.WithAction(ctx, types.ActionSelection), "freed drivers reassigned", "assignments", len(extra))
			rerouted, failed := o.route(ctx, extra)
			routed = append(routed, rerouted...)
			summary.RoutingFailures += len(failed)
		}
	}
	summary.Assignments = len(routed)

	summary.Offers = o.dispatch(ctx, routed)
	return summary, nil
}

// route optimizes every assignment concurrently. It returns the routed assignments in input
// order and the drivers of the assignments that failed.
func (o *Orchestrator) route(ctx context.Context, assignments []models.TentativeAssignment) ([]models.TentativeAssignment, []models.AvailableDriver) {
	results := make([]*models.TentativeAssignment, len(assignments))

	var g errgroup.Group
	g.SetLimit(o.cfg.RoutingConcurrency)

	for i := range assignments {
		g.Go(func() error {
			a := assignments[i]
			actx := wrap.WithBatchID(wrap.WithDriverID(wrap.WithAction(ctx, types.ActionRouting), a.Driver.ID), a.Batch.TempID)

			stops, err := o.router.Optimize(actx, a.Batch)
			if err != nil {
				metrics.RoutingFailuresTotal.Inc()
				o.l.Error(actx, "route optimization failed, batch skipped", err, "orders", len(a.Batch.OrderIDs))
				return nil
			}

			routing.Apply(&a, stops)
			results[i] = &a
			return nil
		})
	}
	_ = g.Wait()

	routed := make([]models.TentativeAssignment, 0, len(assignments))
	var freed []models.AvailableDriver
	for i, r := range results {
		if r == nil {
			freed = append(freed, assignments[i].Driver)
			continue
		}
		routed = append(routed, *r)
	}
	return routed, freed
}

// dispatch creates and sends one offer per assignment and returns how many were sent.
func (o *Orchestrator) dispatch(ctx context.Context, assignments []models.TentativeAssignment) int {
	var sent int
	for _, a := range assignments {
		actx := wrap.WithBatchID(wrap.WithDriverID(ctx, a.Driver.ID), a.Batch.TempID)

		offer, err := o.offers.Create(actx, a)
		if err != nil {
			o.l.Error(actx, "offer creation failed", err)
			continue
		}
		if err := o.offers.Send(actx, offer); err != nil {
			if errors.Is(err, types.ErrOfferExpired) {
				o.l.Warn(actx, "offer expired before it was sent", "offer_id", offer.OfferID)
				continue
			}
			o.l.Error(wrap.ErrorCtx(actx, err), "offer dispatch failed", err)
			o.offers.Remove(offer.OfferID)
			continue
		}
		sent++
	}
	return sent
}
