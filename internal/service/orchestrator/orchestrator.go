package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Temutjin2k/delivery-dispatch/internal/domain/models"
	"github.com/Temutjin2k/delivery-dispatch/internal/domain/types"
	"github.com/Temutjin2k/delivery-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/delivery-dispatch/pkg/logger/wrapper"
	"github.com/robfig/cron/v3"
)

type Config struct {
	ProcessingDelay    time.Duration
	RoutingConcurrency int
	SweepSchedule      string // cron spec, empty disables the sweep
	PersistTimeout     time.Duration
}

type kind int

const (
	kindOrderReady kind = iota
	kindSweep
	kindRunDue
	kindRunDone
	kindTrigger
	kindAccept
	kindReject
	kindExpired
)

type message struct {
	kind    kind
	ctx     context.Context
	orderID int64
	offerID string
	offer   *models.TripOffer

	run         runResult
	runReply    chan runResult
	acceptReply chan acceptResult
	rejectReply chan error
}

type runResult struct {
	summary RunSummary
	err     error
}

type acceptResult struct {
	batch models.PersistedBatch
	err   error
}

// RunSummary describes one pipeline run.
type RunSummary struct {
	RunID           string        `json:"run_id"`
	Batches         int           `json:"batches"`
	Assignments     int           `json:"assignments"`
	RoutingFailures int           `json:"routing_failures"`
	Offers          int           `json:"offers"`
	Duration        time.Duration `json:"duration"`
}

/*
Orchestrator drives the assignment pipeline. Every signal (order ready, manual trigger,
offer answers and expiries) goes through one inbox consumed by Run, which owns the
scheduling state. Pipeline runs execute off the loop and report back when done.

Exactly one Orchestrator may run against a given database: offers and driver
reservations live in process memory.
*/
type Orchestrator struct {
	cfg       Config
	clusterer Clusterer
	selector  Selector
	router    Router
	offers    Offers
	persister Persister
	publisher Publisher
	l         logger.Logger

	inbox   chan message
	stopped chan struct{}
	runs    sync.WaitGroup

	// owned by the Run loop
	scheduled       bool
	running         bool
	pendingAfterRun bool
	debounce        *time.Timer

	now func() time.Time
}

func New(cfg Config, clusterer Clusterer, selector Selector, router Router, offers Offers, persister Persister, publisher Publisher, l logger.Logger) *Orchestrator {
	if cfg.RoutingConcurrency < 1 {
		cfg.RoutingConcurrency = 1
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = 10 * time.Second
	}

	return &Orchestrator{
		cfg:       cfg,
		clusterer: clusterer,
		selector:  selector,
		router:    router,
		offers:    offers,
		persister: persister,
		publisher: publisher,
		l:         l,
		inbox:     make(chan message, 64),
		stopped:   make(chan struct{}),
		now:       time.Now,
	}
}

// Run consumes the inbox until ctx is cancelled, then waits for the run in flight.
func (o *Orchestrator) Run(ctx context.Context) error {
	const op = "Orchestrator.Run"
	defer close(o.stopped)

	if o.cfg.SweepSchedule != "" {
		c := cron.New()
		if _, err := c.AddFunc(o.cfg.SweepSchedule, func() {
			o.enqueue(context.Background(), message{kind: kindSweep, ctx: context.Background()})
		}); err != nil {
			return fmt.Errorf("%s: invalid sweep schedule %q: %w", op, o.cfg.SweepSchedule, err)
		}
		c.Start()
		defer c.Stop()
	}

	o.l.Info(ctx, "dispatcher started", "processing_delay", o.cfg.ProcessingDelay.String(), "sweep", o.cfg.SweepSchedule)

	for {
		select {
		case <-ctx.Done():
			o.shutdown(context.WithoutCancel(ctx))
			return nil
		case m := <-o.inbox:
			o.handle(ctx, m)
		}
	}
}

// shutdown waits for the run in flight while refusing new work.
func (o *Orchestrator) shutdown(ctx context.Context) {
	if o.debounce != nil {
		o.debounce.Stop()
	}

	idle := make(chan struct{})
	go func() {
		o.runs.Wait()
		close(idle)
	}()

	for {
		select {
		case <-idle:
			o.l.Info(ctx, "dispatcher stopped")
			return
		case m := <-o.inbox:
			o.refuse(m)
		}
	}
}

func (o *Orchestrator) refuse(m message) {
	switch m.kind {
	case kindTrigger:
		m.runReply <- runResult{err: types.ErrDispatcherStopped}
	case kindRunDone:
		if m.runReply != nil {
			m.runReply <- m.run
		}
	case kindAccept:
		m.acceptReply <- acceptResult{err: types.ErrDispatcherStopped}
	case kindReject:
		m.rejectReply <- types.ErrDispatcherStopped
	}
}

func (o *Orchestrator) handle(ctx context.Context, m message) {
	switch m.kind {
	case kindOrderReady:
		o.l.Debug(wrap.WithAction(m.ctx, types.ActionOrderReady), "order ready", "order_id", m.orderID)
		o.requestRun(m.ctx)
	case kindSweep:
		o.l.Debug(wrap.WithAction(m.ctx, types.ActionSweep), "periodic sweep")
		o.requestRun(m.ctx)
	case kindRunDue:
		o.scheduled = false
		o.debounce = nil
		if o.running {
			o.pendingAfterRun = true
			return
		}
		o.startRun(ctx, nil)
	case kindTrigger:
		switch {
		case o.scheduled:
			m.runReply <- runResult{err: types.ErrRunAlreadyScheduled}
		case o.running:
			m.runReply <- runResult{err: types.ErrRunInProgress}
		default:
			o.startRun(context.WithoutCancel(m.ctx), m.runReply)
		}
	case kindRunDone:
		o.running = false
		if m.runReply != nil {
			m.runReply <- m.run
		}
		if o.pendingAfterRun {
			o.pendingAfterRun = false
			o.requestRun(ctx)
		}
	case kindAccept:
		batch, err := o.accept(m.ctx, m.offerID)
		m.acceptReply <- acceptResult{batch: batch, err: err}
	case kindReject:
		m.rejectReply <- o.reject(m.ctx, m.offerID)
	case kindExpired:
		o.expired(m.ctx, m.offer)
	}
}

// requestRun schedules a debounced run unless one is already scheduled. While a run executes,
// the request is remembered and scheduled when it finishes.
func (o *Orchestrator) requestRun(ctx context.Context) {
	if o.running {
		o.pendingAfterRun = true
		return
	}
	if o.scheduled {
		return
	}

	o.scheduled = true
	o.debounce = time.AfterFunc(o.cfg.ProcessingDelay, func() {
		o.enqueue(context.Background(), message{kind: kindRunDue, ctx: context.Background()})
	})
	o.l.Info(wrap.WithAction(ctx, types.ActionRunScheduled), "dispatch run scheduled", "delay", o.cfg.ProcessingDelay.String())
}

func (o *Orchestrator) startRun(ctx context.Context, reply chan runResult) {
	o.running = true
	o.runs.Add(1)

	go func() {
		defer o.runs.Done()

		summary, err := o.execute(ctx)
		res := runResult{summary: summary, err: err}

		// the reply goes out once the loop saw the run finish
		done := message{kind: kindRunDone, ctx: context.Background(), run: res, runReply: reply}
		if err := o.enqueue(context.Background(), done); err != nil && reply != nil {
			reply <- res
		}
	}()
}

// enqueue delivers m to the loop. It gives up when ctx ends or the loop has stopped.
func (o *Orchestrator) enqueue(ctx context.Context, m message) error {
	select {
	case <-o.stopped:
		return types.ErrDispatcherStopped
	default:
	}

	select {
	case o.inbox <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-o.stopped:
		return types.ErrDispatcherStopped
	}
}

// OrderReady signals that an order reached READY_FOR_PICKUP.
func (o *Orchestrator) OrderReady(ctx context.Context, orderID int64) error {
	return o.enqueue(ctx, message{kind: kindOrderReady, ctx: ctx, orderID: orderID})
}

// Trigger runs the pipeline now and waits for it. It refuses while a debounced run is
// scheduled or a run is executing.
func (o *Orchestrator) Trigger(ctx context.Context) (RunSummary, error) {
	reply := make(chan runResult, 1)
	if err := o.enqueue(ctx, message{kind: kindTrigger, ctx: ctx, runReply: reply}); err != nil {
		return RunSummary{}, err
	}

	select {
	case res := <-reply:
		return res.summary, res.err
	case <-ctx.Done():
		return RunSummary{}, ctx.Err()
	}
}

// Accept commits the offer accepted by its driver.
func (o *Orchestrator) Accept(ctx context.Context, offerID string) (models.PersistedBatch, error) {
	reply := make(chan acceptResult, 1)
	if err := o.enqueue(ctx, message{kind: kindAccept, ctx: ctx, offerID: offerID, acceptReply: reply}); err != nil {
		return models.PersistedBatch{}, err
	}

	select {
	case res := <-reply:
		return res.batch, res.err
	case <-ctx.Done():
		return models.PersistedBatch{}, ctx.Err()
	}
}

// Reject releases the offer declined by its driver.
func (o *Orchestrator) Reject(ctx context.Context, offerID string) error {
	reply := make(chan error, 1)
	if err := o.enqueue(ctx, message{kind: kindReject, ctx: ctx, offerID: offerID, rejectReply: reply}); err != nil {
		return err
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OfferExpired is the expiry handler of the offer lifecycle. It may be called from the loop
// itself, so delivery happens on its own goroutine.
func (o *Orchestrator) OfferExpired(offer *models.TripOffer) {
	ctx := context.Background()
	go func() {
		if err := o.enqueue(ctx, message{kind: kindExpired, ctx: ctx, offer: offer}); err != nil {
			o.l.Warn(ctx, "expiry not processed", "offer_id", offer.OfferID, "error", err.Error())
		}
	}()
}
