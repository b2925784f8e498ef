package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/Temutjin2k/delivery-dispatch/internal/domain/models"
	"github.com/Temutjin2k/delivery-dispatch/internal/domain/types"
	"github.com/Temutjin2k/delivery-dispatch/internal/service/offer"
	"github.com/Temutjin2k/delivery-dispatch/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClusterer struct {
	mu       sync.Mutex
	batches  []models.BatchProposal
	err      error
	calls    int
	excluded []map[int64]struct{}
}

func (c *fakeClusterer) CreateBatches(_ context.Context, exclude map[int64]struct{}) ([]models.BatchProposal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.excluded = append(c.excluded, maps.Clone(exclude))
	if c.err != nil {
		return nil, c.err
	}
	var out []models.BatchProposal
	for _, b := range c.batches {
		held := false
		for _, id := range b.OrderIDs {
			if _, ok := exclude[id]; ok {
				held = true
			}
		}
		if !held {
			out = append(out, b)
		}
	}
	return out, nil
}

func (c *fakeClusterer) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// pairSelector gives the i-th batch to the i-th driver.
type pairSelector struct {
	drivers []models.AvailableDriver
}

func (s pairSelector) LoadDrivers(_ context.Context, exclude map[int64]struct{}) ([]models.AvailableDriver, error) {
	var out []models.AvailableDriver
	for _, d := range s.drivers {
		if _, ok := exclude[d.ID]; !ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s pairSelector) Assign(_ context.Context, batches []models.BatchProposal, drivers []models.AvailableDriver) ([]models.TentativeAssignment, []models.BatchProposal, error) {
	n := min(len(batches), len(drivers))
	out := make([]models.TentativeAssignment, n)
	for i := range n {
		out[i] = models.TentativeAssignment{Batch: batches[i], Driver: drivers[i], DriverEtaMinutes: 3, EstimatedEarnings: 15}
	}
	return out, batches[n:], nil
}

type fakeRouter struct {
	fail map[string]bool
}

func (r fakeRouter) Optimize(_ context.Context, b models.BatchProposal) ([]models.OptimizedStop, error) {
	if r.fail[b.TempID] {
		return nil, types.ErrMatrixUnavailable
	}
	stops := make([]models.OptimizedStop, len(b.OrderIDs))
	for i, id := range b.OrderIDs {
		stops[i] = models.OptimizedStop{OrderID: id, Sequence: i + 1, DistanceFromPreviousKm: 1, EtaFromPreviousMinutes: 2.4}
	}
	return stops, nil
}

type fakePersister struct {
	mu        sync.Mutex
	persisted []string
	rejected  []string
	expired   []string
	err       error
}

func (p *fakePersister) Persist(_ context.Context, o *models.TripOffer) (models.PersistedBatch, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return models.PersistedBatch{}, p.err
	}
	p.persisted = append(p.persisted, o.OfferID)
	b := models.PersistedBatch{BatchID: int64(len(p.persisted)), DriverID: o.DriverID}
	for _, s := range o.Internal.OptimizedRoute {
		b.Stops = append(b.Stops, models.PersistedStop{StopID: s.OrderID * 10, OrderID: s.OrderID, Sequence: s.Sequence})
	}
	return b, nil
}

func (p *fakePersister) HandleRejection(_ context.Context, id string) {
	p.mu.Lock()
	p.rejected = append(p.rejected, id)
	p.mu.Unlock()
}

func (p *fakePersister) HandleExpiration(_ context.Context, id string) {
	p.mu.Lock()
	p.expired = append(p.expired, id)
	p.mu.Unlock()
}

func (p *fakePersister) expiredIDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.expired)
}

type fakePublisher struct {
	mu       sync.Mutex
	assigned []models.BatchAssignedMessage
	outcomes []models.OfferOutcomeMessage
}

func (p *fakePublisher) PublishBatchAssigned(_ context.Context, m models.BatchAssignedMessage) error {
	p.mu.Lock()
	p.assigned = append(p.assigned, m)
	p.mu.Unlock()
	return nil
}

func (p *fakePublisher) PublishOfferOutcome(_ context.Context, m models.OfferOutcomeMessage) error {
	p.mu.Lock()
	p.outcomes = append(p.outcomes, m)
	p.mu.Unlock()
	return nil
}

func (p *fakePublisher) outcomeKinds() []types.OfferOutcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []types.OfferOutcome
	for _, m := range p.outcomes {
		out = append(out, m.Outcome)
	}
	return out
}

type silentNotifier struct{}

func (silentNotifier) SendTo(int64, any) error { return nil }

type harness struct {
	orch      *Orchestrator
	offers    *offer.Lifecycle
	clusterer *fakeClusterer
	persister *fakePersister
	publisher *fakePublisher
}

type options struct {
	delay      time.Duration
	expiration time.Duration
	failRoutes []string
}

func batch(id string, orderIDs ...int64) models.BatchProposal {
	b := models.BatchProposal{TempID: id, OrderIDs: orderIDs}
	for _, oid := range orderIDs {
		b.Orders = append(b.Orders, models.EligibleOrder{ID: oid, Address: fmt.Sprintf("Calle %d, Centro", oid)})
	}
	return b
}

func drivers(ids ...int64) []models.AvailableDriver {
	out := make([]models.AvailableDriver, len(ids))
	for i, id := range ids {
		out[i] = models.AvailableDriver{ID: id}
	}
	return out
}

func start(t *testing.T, batches []models.BatchProposal, available []models.AvailableDriver, opt options) harness {
	t.Helper()
	if opt.delay == 0 {
		opt.delay = time.Hour
	}
	if opt.expiration == 0 {
		opt.expiration = time.Minute
	}

	fail := make(map[string]bool)
	for _, id := range opt.failRoutes {
		fail[id] = true
	}

	h := harness{
		offers:    offer.New(opt.expiration, models.Restaurant{Name: "Plaza"}, silentNotifier{}, offer.NewZoner(nil, logger.Nop()), logger.Nop()),
		clusterer: &fakeClusterer{batches: batches},
		persister: &fakePersister{},
		publisher: &fakePublisher{},
	}
	h.orch = New(Config{ProcessingDelay: opt.delay, RoutingConcurrency: 2},
		h.clusterer, pairSelector{drivers: available}, fakeRouter{fail: fail}, h.offers, h.persister, h.publisher, logger.Nop())
	h.offers.OnExpire(h.orch.OfferExpired)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.orch.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
		h.offers.Close()
	})
	return h
}

func TestTrigger_OffersPerAssignment(t *testing.T) {
	h := start(t, []models.BatchProposal{batch("b1", 1, 2), batch("b2", 3), batch("b3", 4)}, drivers(10, 20), options{})

	sum, err := h.orch.Trigger(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, sum.RunID)
	assert.Equal(t, 3, sum.Batches)
	assert.Equal(t, 2, sum.Assignments)
	assert.Equal(t, 2, sum.Offers)
	assert.Zero(t, sum.RoutingFailures)

	active := h.offers.ListActive()
	require.Len(t, active, 2)
	assert.Equal(t, map[int64]struct{}{10: {}, 20: {}}, h.offers.HeldDriverIDs())
	assert.Equal(t, map[int64]struct{}{1: {}, 2: {}, 3: {}}, h.offers.HeldOrderIDs())
}

func TestTrigger_PastDueOfferNotCounted(t *testing.T) {
	h := start(t, []models.BatchProposal{batch("b1", 1)}, drivers(10), options{expiration: -time.Second})

	sum, err := h.orch.Trigger(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Assignments)
	assert.Zero(t, sum.Offers)
	assert.Empty(t, h.offers.ListActive())
}

func TestTrigger_HeldOrdersAndDriversExcluded(t *testing.T) {
	h := start(t, []models.BatchProposal{batch("b1", 1), batch("b2", 2)}, drivers(10, 20), options{})

	_, err := h.orch.Trigger(context.Background())
	require.NoError(t, err)

	sum, err := h.orch.Trigger(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sum.Batches)
	assert.Zero(t, sum.Offers)

	h.clusterer.mu.Lock()
	defer h.clusterer.mu.Unlock()
	require.Len(t, h.clusterer.excluded, 2)
	assert.Empty(t, h.clusterer.excluded[0])
	assert.Equal(t, map[int64]struct{}{1: {}, 2: {}}, h.clusterer.excluded[1])
}

func TestTrigger_RoutingFailureFreesDriver(t *testing.T) {
	h := start(t, []models.BatchProposal{batch("b1", 1), batch("b2", 2), batch("b3", 3)}, drivers(10, 20), options{failRoutes: []string{"b1"}})

	sum, err := h.orch.Trigger(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, sum.RoutingFailures)
	assert.Equal(t, 2, sum.Offers)

	byDriver := map[int64]string{}
	for _, o := range h.offers.ListActive() {
		byDriver[o.DriverID] = o.Internal.BatchTempID
	}
	assert.Equal(t, map[int64]string{10: "b3", 20: "b2"}, byDriver)
}

func TestTrigger_ClusteringFailureAbortsRun(t *testing.T) {
	h := start(t, nil, drivers(10), options{})
	h.clusterer.err = errors.New("db down")

	_, err := h.orch.Trigger(context.Background())
	assert.Error(t, err)
	assert.Empty(t, h.offers.ListActive())
}

func TestTrigger_RefusedWhileScheduled(t *testing.T) {
	h := start(t, nil, nil, options{delay: time.Hour})

	require.NoError(t, h.orch.OrderReady(context.Background(), 1))

	_, err := h.orch.Trigger(context.Background())
	assert.ErrorIs(t, err, types.ErrRunAlreadyScheduled)
	assert.Zero(t, h.clusterer.callCount())
}

func TestOrderReady_Debounced(t *testing.T) {
	h := start(t, nil, nil, options{delay: 50 * time.Millisecond})

	for id := range int64(5) {
		require.NoError(t, h.orch.OrderReady(context.Background(), id))
	}

	require.Eventually(t, func() bool { return h.clusterer.callCount() == 1 }, time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 1, h.clusterer.callCount())
}

func TestAccept_SingleOrder(t *testing.T) {
	h := start(t, []models.BatchProposal{batch("b1", 42)}, drivers(7), options{})

	_, err := h.orch.Trigger(context.Background())
	require.NoError(t, err)
	offers := h.offers.ListByDriver(7)
	require.Len(t, offers, 1)

	pb, err := h.orch.Accept(context.Background(), offers[0].OfferID)
	require.NoError(t, err)

	assert.Equal(t, int64(7), pb.DriverID)
	require.Len(t, pb.Stops, 1)
	assert.Equal(t, 1, pb.Stops[0].Sequence)
	assert.Equal(t, int64(42), pb.Stops[0].OrderID)

	_, err = h.offers.Get(offers[0].OfferID)
	assert.ErrorIs(t, err, types.ErrOfferNotFound)

	h.publisher.mu.Lock()
	defer h.publisher.mu.Unlock()
	require.Len(t, h.publisher.assigned, 1)
	assert.Equal(t, offers[0].OfferID, h.publisher.assigned[0].OfferID)
	require.Len(t, h.publisher.outcomes, 1)
	assert.Equal(t, types.OfferAccepted, h.publisher.outcomes[0].Outcome)
}

func TestAccept_AfterExpiryIsNoop(t *testing.T) {
	h := start(t, []models.BatchProposal{batch("b1", 42)}, drivers(7), options{expiration: 300 * time.Millisecond})

	_, err := h.orch.Trigger(context.Background())
	require.NoError(t, err)
	id := h.offers.ListActive()[0].OfferID

	require.Eventually(t, func() bool { return len(h.persister.expiredIDs()) == 1 }, 2*time.Second, 10*time.Millisecond)

	_, err = h.orch.Accept(context.Background(), id)
	assert.ErrorIs(t, err, types.ErrOfferNotFound)

	h.persister.mu.Lock()
	assert.Empty(t, h.persister.persisted)
	h.persister.mu.Unlock()
	assert.Equal(t, []types.OfferOutcome{types.OfferExpired}, h.publisher.outcomeKinds())
}

func TestAccept_PersistFailureReleasesDriver(t *testing.T) {
	h := start(t, []models.BatchProposal{batch("b1", 42)}, drivers(7), options{})
	h.persister.err = types.ErrDriverNotAvailable

	_, err := h.orch.Trigger(context.Background())
	require.NoError(t, err)
	id := h.offers.ListActive()[0].OfferID

	_, err = h.orch.Accept(context.Background(), id)
	assert.ErrorIs(t, err, types.ErrDriverNotAvailable)

	assert.Empty(t, h.offers.HeldDriverIDs())
	assert.Empty(t, h.offers.HeldOrderIDs())
	assert.Empty(t, h.publisher.outcomeKinds())
}

func TestReject(t *testing.T) {
	h := start(t, []models.BatchProposal{batch("b1", 42)}, drivers(7), options{})

	_, err := h.orch.Trigger(context.Background())
	require.NoError(t, err)
	id := h.offers.ListActive()[0].OfferID

	require.NoError(t, h.orch.Reject(context.Background(), id))
	assert.Empty(t, h.offers.ListActive())
	assert.Equal(t, []types.OfferOutcome{types.OfferRejected}, h.publisher.outcomeKinds())

	err = h.orch.Reject(context.Background(), id)
	assert.ErrorIs(t, err, types.ErrOfferNotFound)

	// the rejection scheduled a follow-up run
	_, err = h.orch.Trigger(context.Background())
	assert.ErrorIs(t, err, types.ErrRunAlreadyScheduled)
}

func TestStopped(t *testing.T) {
	o := New(Config{}, &fakeClusterer{}, pairSelector{}, fakeRouter{}, nil, &fakePersister{}, &fakePublisher{}, logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, o.Run(ctx))

	_, err := o.Trigger(context.Background())
	assert.ErrorIs(t, err, types.ErrDispatcherStopped)
}
