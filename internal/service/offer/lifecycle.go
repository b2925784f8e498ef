package offer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Temutjin2k/delivery-dispatch/internal/domain/models"
	"github.com/Temutjin2k/delivery-dispatch/internal/domain/types"
	"github.com/Temutjin2k/delivery-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/delivery-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/delivery-dispatch/pkg/metrics"
	"github.com/google/uuid"
)

type state int

const (
	stateCreated state = iota
	stateSent
	stateAccepting
)

type entry struct {
	offer *models.TripOffer
	timer *time.Timer
	state state
}

// Lifecycle owns the in-memory table of live offers and their expiration timers.
// An offer leaves the table exactly once: on expiry, rejection or Remove.
type Lifecycle struct {
	expiration time.Duration
	restaurant models.Restaurant
	notifier   Notifier
	zoner      *Zoner
	log        logger.Logger

	mu       sync.Mutex
	offers   map[string]*entry
	onExpire ExpiryHandler

	now   func() time.Time
	newID func() string
}

func New(expiration time.Duration, restaurant models.Restaurant, notifier Notifier, zoner *Zoner, log logger.Logger) *Lifecycle {
	return &Lifecycle{
		expiration: expiration,
		restaurant: restaurant,
		notifier:   notifier,
		zoner:      zoner,
		log:        log,
		offers:     make(map[string]*entry),
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// OnExpire registers the handler called after an offer expired. Set it before sending offers.
func (l *Lifecycle) OnExpire(fn ExpiryHandler) {
	l.mu.Lock()
	l.onExpire = fn
	l.mu.Unlock()
}

// Create builds the offer of an assignment and stores it. Stop addresses are reduced to zones
// and stop ETAs are cumulative from the restaurant.
func (l *Lifecycle) Create(ctx context.Context, a models.TentativeAssignment) (*models.TripOffer, error) {
	const op = "Lifecycle.Create"

	if len(a.OptimizedRoute) == 0 {
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, types.ErrEmptyBatch))
	}

	now := l.now()
	stops := make([]models.TripOfferStop, len(a.OptimizedRoute))
	var cumulative float64
	for i, s := range a.OptimizedRoute {
		cumulative += s.EtaFromPreviousMinutes
		stops[i] = models.TripOfferStop{
			Sequence:        s.Sequence,
			ApproximateZone: l.zoner.Zone(ctx, s.Address, s.Coordinates),
			EtaMinutes:      int(math.Round(cumulative)),
		}
	}

	o := &models.TripOffer{
		OfferID:    l.newID(),
		DriverID:   a.Driver.ID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(l.expiration),
		Restaurant: l.restaurant,
		Stops:      stops,
		Summary: models.OfferSummary{
			TotalOrders:          len(a.Batch.Orders),
			TotalDistanceKm:      math.Round(a.TotalDistanceKm*100) / 100,
			EstimatedTimeMinutes: int(math.Round(a.TotalTimeMinutes)),
			EstimatedEarnings:    a.EstimatedEarnings,
		},
		Internal: models.OfferInternal{
			BatchTempID:    a.Batch.TempID,
			OrderIDs:       slices.Clone(a.Batch.OrderIDs),
			OptimizedRoute: slices.Clone(a.OptimizedRoute),
		},
	}

	l.mu.Lock()
	l.offers[o.OfferID] = &entry{offer: o, state: stateCreated}
	l.mu.Unlock()
	metrics.OffersActiveGauge.Inc()

	l.log.Info(wrap.WithOfferID(wrap.WithAction(ctx, types.ActionOfferCreated), o.OfferID), "offer created",
		"driver_id", o.DriverID, "orders", len(o.Internal.OrderIDs), "expires_at", o.ExpiresAt)

	return o, nil
}

// Send starts the expiration timer and pushes the offer to the driver. A driver that is not
// connected is logged; the offer stays live until it expires. An offer already past its
// deadline is expired on the spot and Send returns types.ErrOfferExpired.
func (l *Lifecycle) Send(ctx context.Context, o *models.TripOffer) error {
	const op = "Lifecycle.Send"
	ctx = wrap.WithOfferID(wrap.WithDriverID(wrap.WithAction(ctx, types.ActionOfferSent), o.DriverID), o.OfferID)

	l.mu.Lock()
	e, ok := l.offers[o.OfferID]
	if !ok || e.state != stateCreated {
		l.mu.Unlock()
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, types.ErrOfferNotFound))
	}

	wait := o.ExpiresAt.Sub(l.now())
	if wait <= 0 {
		l.mu.Unlock()
		l.expire(o.OfferID)
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, types.ErrOfferExpired))
	}

	e.state = stateSent
	id := o.OfferID
	e.timer = time.AfterFunc(wait, func() { l.expire(id) })
	l.mu.Unlock()

	msg := models.WSMessage{Type: types.WSTripOffer, Data: o}
	if err := l.notifier.SendTo(o.DriverID, msg); err != nil {
		l.log.Warn(ctx, "offer not delivered, driver channel unavailable", "error", err.Error())
		return nil
	}

	l.log.Info(ctx, "offer sent", "expires_in", wait.String())
	return nil
}

// Accept claims a live offer for persistence and stops its timer. The caller must Remove it
// once persistence finished, whatever the result.
func (l *Lifecycle) Accept(id string) (*models.TripOffer, error) {
	const op = "Lifecycle.Accept"

	l.mu.Lock()
	e, err := l.claim(id)
	if err != nil {
		l.mu.Unlock()
		return nil, l.resolveErr(op, id, err)
	}

	e.state = stateAccepting
	l.stopTimer(e)
	l.mu.Unlock()

	metrics.OfferOutcomesTotal.WithLabelValues(types.OfferAccepted.String()).Inc()
	return e.offer, nil
}

// Reject removes a live offer and returns it.
func (l *Lifecycle) Reject(id string) (*models.TripOffer, error) {
	const op = "Lifecycle.Reject"

	l.mu.Lock()
	e, err := l.claim(id)
	if err != nil {
		l.mu.Unlock()
		return nil, l.resolveErr(op, id, err)
	}

	l.stopTimer(e)
	delete(l.offers, id)
	l.mu.Unlock()

	metrics.OffersActiveGauge.Dec()
	metrics.OfferOutcomesTotal.WithLabelValues(types.OfferRejected.String()).Inc()
	return e.offer, nil
}

// claim must be called with mu held.
func (l *Lifecycle) claim(id string) (*entry, error) {
	e, ok := l.offers[id]
	if !ok {
		return nil, types.ErrOfferNotFound
	}
	if e.state == stateAccepting {
		return nil, types.ErrOfferAlreadyResolved
	}
	if e.offer.IsExpired(l.now()) {
		return nil, types.ErrOfferExpired
	}
	return e, nil
}

func (l *Lifecycle) resolveErr(op, id string, err error) error {
	if errors.Is(err, types.ErrOfferExpired) {
		// deadline passed before the timer fired
		l.expire(id)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Remove stops the timer of an offer and drops it. Removing an unknown offer is a no-op.
func (l *Lifecycle) Remove(id string) bool {
	l.mu.Lock()
	e, ok := l.offers[id]
	if ok {
		l.stopTimer(e)
		delete(l.offers, id)
	}
	l.mu.Unlock()

	if ok {
		metrics.OffersActiveGauge.Dec()
	}
	return ok
}

func (l *Lifecycle) expire(id string) {
	l.mu.Lock()
	e, ok := l.offers[id]
	if !ok || e.state == stateAccepting {
		l.mu.Unlock()
		return
	}
	l.stopTimer(e)
	delete(l.offers, id)
	handler := l.onExpire
	l.mu.Unlock()

	metrics.OffersActiveGauge.Dec()
	metrics.OfferOutcomesTotal.WithLabelValues(types.OfferExpired.String()).Inc()

	o := e.offer
	ctx := wrap.WithOfferID(wrap.WithDriverID(wrap.WithAction(context.Background(), types.ActionOfferExpired), o.DriverID), o.OfferID)
	l.log.Info(ctx, "offer expired")

	msg := models.WSMessage{Type: types.WSTripExpired, Data: map[string]string{"offer_id": o.OfferID}}
	if err := l.notifier.SendTo(o.DriverID, msg); err != nil {
		l.log.Debug(ctx, "expiry notice not delivered", "error", err.Error())
	}

	if handler != nil {
		handler(o)
	}
}

// stopTimer must be called with mu held.
func (l *Lifecycle) stopTimer(e *entry) {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

func (l *Lifecycle) Get(id string) (*models.TripOffer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.offers[id]
	if !ok {
		return nil, types.ErrOfferNotFound
	}
	return e.offer, nil
}

// ListActive returns live offers, oldest first.
func (l *Lifecycle) ListActive() []*models.TripOffer {
	return l.list(func(*models.TripOffer) bool { return true })
}

// ListByDriver returns the live offers of one driver, oldest first.
func (l *Lifecycle) ListByDriver(driverID int64) []*models.TripOffer {
	return l.list(func(o *models.TripOffer) bool { return o.DriverID == driverID })
}

func (l *Lifecycle) list(keep func(*models.TripOffer) bool) []*models.TripOffer {
	l.mu.Lock()
	out := make([]*models.TripOffer, 0, len(l.offers))
	for _, e := range l.offers {
		if keep(e.offer) {
			out = append(out, e.offer)
		}
	}
	l.mu.Unlock()

	slices.SortFunc(out, func(a, b *models.TripOffer) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.OfferID, b.OfferID)
	})
	return out
}

// HeldOrderIDs returns the orders that belong to a live offer.
func (l *Lifecycle) HeldOrderIDs() map[int64]struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	held := make(map[int64]struct{})
	for _, e := range l.offers {
		for _, id := range e.offer.Internal.OrderIDs {
			held[id] = struct{}{}
		}
	}
	return held
}

// HeldDriverIDs returns the drivers holding a live offer.
func (l *Lifecycle) HeldDriverIDs() map[int64]struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	held := make(map[int64]struct{}, len(l.offers))
	for _, e := range l.offers {
		held[e.offer.DriverID] = struct{}{}
	}
	return held
}

// Close stops every timer and drops all offers without notifying anyone.
func (l *Lifecycle) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for id, e := range l.offers {
		l.stopTimer(e)
		delete(l.offers, id)
		metrics.OffersActiveGauge.Dec()
	}
}
