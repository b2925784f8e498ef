package persistence

import (
	"context"
	"errors"
	"maps"
	"testing"

	"github.com/Temutjin2k/delivery-dispatch/internal/domain/models"
	"github.com/Temutjin2k/delivery-dispatch/internal/domain/types"
	"github.com/Temutjin2k/delivery-dispatch/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// store is an in-memory database whose Do restores the previous state when fn fails.
type store struct {
	nextID  int64
	batches map[int64]models.NewBatch
	stops   map[int64]models.NewStop // by order id
	drivers map[int64]types.DriverStatus
	failOn  string
}

func newStore() *store {
	return &store{
		batches: make(map[int64]models.NewBatch),
		stops:   make(map[int64]models.NewStop),
		drivers: make(map[int64]types.DriverStatus),
	}
}

func (s *store) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	nextID, batches, stops, drivers := s.nextID, maps.Clone(s.batches), maps.Clone(s.stops), maps.Clone(s.drivers)
	if err := fn(ctx); err != nil {
		s.nextID, s.batches, s.stops, s.drivers = nextID, batches, stops, drivers
		return err
	}
	return nil
}

func (s *store) CreateBatch(_ context.Context, b models.NewBatch) (int64, error) {
	if s.failOn == "batch" {
		return 0, errors.New("insert failed")
	}
	s.nextID++
	s.batches[s.nextID] = b
	return s.nextID, nil
}

func (s *store) CreateStops(_ context.Context, stops []models.NewStop) ([]models.PersistedStop, error) {
	out := make([]models.PersistedStop, 0, len(stops))
	for _, st := range stops {
		if _, ok := s.stops[st.OrderID]; ok {
			return nil, types.ErrOrderAlreadyBatched
		}
		s.nextID++
		s.stops[st.OrderID] = st
		out = append(out, models.PersistedStop{StopID: s.nextID, OrderID: st.OrderID, Sequence: st.Sequence})
	}
	return out, nil
}

func (s *store) ChangeStatus(_ context.Context, id int64, from, to types.DriverStatus) (bool, error) {
	if s.drivers[id] != from {
		return false, nil
	}
	s.drivers[id] = to
	return true, nil
}

func newService(st *store) *Service {
	return New(st, st, st, logger.Nop())
}

func offer(driverID int64, orderIDs ...int64) *models.TripOffer {
	o := &models.TripOffer{OfferID: "offer-1", DriverID: driverID}
	for i, id := range orderIDs {
		o.Internal.OrderIDs = append(o.Internal.OrderIDs, id)
		o.Internal.OptimizedRoute = append(o.Internal.OptimizedRoute, models.OptimizedStop{OrderID: id, Sequence: i + 1})
	}
	o.Summary.TotalOrders = len(orderIDs)
	return o
}

func TestPersist_SingleOrder(t *testing.T) {
	st := newStore()
	st.drivers[7] = types.DriverAvailable

	got, err := newService(st).Persist(context.Background(), offer(7, 42))
	require.NoError(t, err)

	assert.Equal(t, int64(7), got.DriverID)
	require.Len(t, got.Stops, 1)
	assert.Equal(t, int64(42), got.Stops[0].OrderID)
	assert.Equal(t, 1, got.Stops[0].Sequence)

	assert.Equal(t, types.DriverBusy, st.drivers[7])
	assert.Equal(t, types.BatchAssigned, st.batches[got.BatchID].Status)
	assert.Equal(t, types.StopPending, st.stops[42].Status)
}

func TestPersist_StopOrderFollowsRoute(t *testing.T) {
	st := newStore()
	st.drivers[1] = types.DriverAvailable

	got, err := newService(st).Persist(context.Background(), offer(1, 30, 10, 20))
	require.NoError(t, err)

	var orders []int64
	for _, s := range got.Stops {
		orders = append(orders, s.OrderID)
	}
	assert.Equal(t, []int64{30, 10, 20}, orders)
}

func TestPersist_RollsBack(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(st *store)
		wantErr error
	}{
		{
			name:    "driver no longer available",
			prepare: func(st *store) { st.drivers[1] = types.DriverBusy },
			wantErr: types.ErrDriverNotAvailable,
		},
		{
			name: "order already batched",
			prepare: func(st *store) {
				st.drivers[1] = types.DriverAvailable
				st.stops[20] = models.NewStop{BatchID: 99, OrderID: 20}
			},
			wantErr: types.ErrOrderAlreadyBatched,
		},
		{
			name: "batch insert fails",
			prepare: func(st *store) {
				st.drivers[1] = types.DriverAvailable
				st.failOn = "batch"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newStore()
			tt.prepare(st)
			before := maps.Clone(st.drivers)
			stopsBefore := len(st.stops)

			_, err := newService(st).Persist(context.Background(), offer(1, 10, 20))
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}

			assert.Empty(t, st.batches)
			assert.Len(t, st.stops, stopsBefore)
			assert.Equal(t, before, st.drivers)
		})
	}
}

func TestPersist_EmptyRoute(t *testing.T) {
	_, err := newService(newStore()).Persist(context.Background(), &models.TripOffer{OfferID: "x"})
	assert.ErrorIs(t, err, types.ErrEmptyBatch)
}
