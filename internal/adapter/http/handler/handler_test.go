package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Temutjin2k/delivery-dispatch/internal/domain/models"
	"github.com/Temutjin2k/delivery-dispatch/internal/domain/types"
	"github.com/Temutjin2k/delivery-dispatch/internal/service/orchestrator"
	"github.com/Temutjin2k/delivery-dispatch/pkg/logger"
)

type fakeDispatcher struct {
	summary  orchestrator.RunSummary
	err      error
	readyErr error
	ready    []int64
}

func (f *fakeDispatcher) Trigger(context.Context) (orchestrator.RunSummary, error) {
	return f.summary, f.err
}

func (f *fakeDispatcher) OrderReady(_ context.Context, id int64) error {
	f.ready = append(f.ready, id)
	return f.readyErr
}

type fakeOffers struct {
	offers []*models.TripOffer
}

func (f *fakeOffers) ListActive() []*models.TripOffer { return f.offers }

func (f *fakeOffers) ListByDriver(id int64) []*models.TripOffer {
	var out []*models.TripOffer
	for _, o := range f.offers {
		if o.DriverID == id {
			out = append(out, o)
		}
	}
	return out
}

type fakeOrders struct {
	missing map[int64]bool
	marked  []int64
}

func (f *fakeOrders) MarkReady(_ context.Context, id int64) error {
	if f.missing[id] {
		return types.ErrNotFound
	}
	f.marked = append(f.marked, id)
	return nil
}

func newTestMux(d *fakeDispatcher, offers *fakeOffers, orders *fakeOrders) *http.ServeMux {
	h := NewDispatch(d, offers, orders, logger.Nop())
	mux := http.NewServeMux()
	mux.HandleFunc("POST /admin/dispatch/run", h.RunDispatch)
	mux.HandleFunc("GET /admin/offers", h.ListOffers)
	mux.HandleFunc("GET /admin/drivers/{driver_id}/offers", h.ListDriverOffers)
	mux.HandleFunc("POST /orders/{order_id}/ready", h.MarkOrderReady)
	return mux
}

func do(t *testing.T, h http.Handler, method, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestRunDispatch(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{name: "ok", wantCode: http.StatusOK},
		{name: "scheduled", err: types.ErrRunAlreadyScheduled, wantCode: http.StatusConflict},
		{name: "running", err: types.ErrRunInProgress, wantCode: http.StatusConflict},
		{name: "stopped", err: types.ErrDispatcherStopped, wantCode: http.StatusServiceUnavailable},
		{name: "failure", err: errors.New("db down"), wantCode: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDispatcher{
				summary: orchestrator.RunSummary{RunID: "run-1", Batches: 2, Assignments: 1, Offers: 1, Duration: 1500 * time.Microsecond},
				err:     tt.err,
			}
			rec, body := do(t, newTestMux(d, &fakeOffers{}, &fakeOrders{}), http.MethodPost, "/admin/dispatch/run")

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.err != nil {
				assert.Equal(t, tt.err.Error(), body["error"])
				return
			}
			run := body["run"].(map[string]any)
			assert.Equal(t, "run-1", run["run_id"])
			assert.Equal(t, 2.0, run["batches"])
			assert.Equal(t, 1.5, run["duration_ms"])
		})
	}
}

func TestListOffers(t *testing.T) {
	offers := &fakeOffers{offers: []*models.TripOffer{
		{OfferID: "a", DriverID: 1, Internal: models.OfferInternal{BatchTempID: "b1", OrderIDs: []int64{10, 11}}},
		{OfferID: "b", DriverID: 2},
	}}
	mux := newTestMux(&fakeDispatcher{}, offers, &fakeOrders{})

	rec, body := do(t, mux, http.MethodGet, "/admin/offers")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2.0, body["count"])
	first := body["offers"].([]any)[0].(map[string]any)
	assert.Equal(t, "a", first["offer_id"])
	assert.Equal(t, "b1", first["batch_temp_id"])
	assert.Len(t, first["order_ids"], 2)

	rec, body = do(t, mux, http.MethodGet, "/admin/drivers/2/offers")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, body["count"])

	rec, _ = do(t, mux, http.MethodGet, "/admin/drivers/abc/offers")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarkOrderReady(t *testing.T) {
	d := &fakeDispatcher{}
	orders := &fakeOrders{missing: map[int64]bool{404: true}}
	mux := newTestMux(d, &fakeOffers{}, orders)

	rec, body := do(t, mux, http.MethodPost, "/orders/5/ready")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "READY_FOR_PICKUP", body["status"])
	assert.Equal(t, []int64{5}, orders.marked)
	assert.Equal(t, []int64{5}, d.ready)

	rec, _ = do(t, mux, http.MethodPost, "/orders/404/ready")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, []int64{5}, d.ready)

	rec, _ = do(t, mux, http.MethodPost, "/orders/0/ready")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthCheck(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("refused") }

	tests := []struct {
		name       string
		checks     []HealthCheck
		wantCode   int
		wantStatus string
	}{
		{name: "all up", checks: []HealthCheck{{Name: "postgres", Critical: true, Probe: ok}}, wantCode: http.StatusOK, wantStatus: "available"},
		{name: "cache down", checks: []HealthCheck{{Name: "postgres", Critical: true, Probe: ok}, {Name: "redis", Probe: down}}, wantCode: http.StatusOK, wantStatus: "degraded"},
		{name: "database down", checks: []HealthCheck{{Name: "postgres", Critical: true, Probe: down}, {Name: "redis", Probe: down}}, wantCode: http.StatusServiceUnavailable, wantStatus: "unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealth("dispatch-service", logger.Nop(), tt.checks...)
			rec, body := do(t, http.HandlerFunc(h.HealthCheck), http.MethodGet, "/health")

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantStatus, body["status"])
		})
	}
}
